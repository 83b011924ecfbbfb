// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/o1298098/remote-play-sub005/internal/log"
)

// Watcher reloads a config file on change and passes the new snapshot to
// every callback registered with OnChange, without a process restart.
type Watcher struct {
	path      string
	current   Config
	listeners []func(Config)
}

// NewWatcher loads path once and returns a Watcher primed with that snapshot.
func NewWatcher(path string) (*Watcher, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	return &Watcher{path: path, current: cfg}, nil
}

// Current returns the most recently loaded snapshot.
func (w *Watcher) Current() Config {
	return w.current
}

// OnChange registers a callback invoked with the new snapshot after a
// successful reload. Callbacks run synchronously on the watch goroutine;
// keep them short.
func (w *Watcher) OnChange(fn func(Config)) {
	w.listeners = append(w.listeners, fn)
}

// Run watches the config file for changes until ctx is canceled. A missing
// file is tolerated (no-op watch); parse errors on reload are logged and the
// previous snapshot is kept rather than propagated.
func (w *Watcher) Run(ctx context.Context) error {
	if w.path == "" {
		<-ctx.Done()
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	dir := filepath.Dir(w.path)
	if err := watcher.Add(dir); err != nil {
		return err
	}

	logger := log.WithComponent("config")
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != filepath.Clean(w.path) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			cfg, err := Load(w.path)
			if err != nil {
				logger.Warn().Err(err).Msg("config reload failed, keeping previous snapshot")
				continue
			}
			w.current = cfg
			logger.Info().Msg("config reloaded")
			for _, fn := range w.listeners {
				fn(cfg)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn().Err(err).Msg("config watcher error")
		}
	}
}
