// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/o1298098/remote-play-sub005/internal/config"
	xglog "github.com/o1298098/remote-play-sub005/internal/log"
	"github.com/o1298098/remote-play-sub005/internal/manager"
)

var (
	version = "v0.1.0"
	commit  = "none"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	listenAddr := flag.String("listen", ":8080", "admin HTTP surface listen address")
	flag.Parse()

	if *showVersion {
		fmt.Printf("rpstreamd %s (commit: %s)\n", version, commit)
		os.Exit(0)
	}

	xglog.Configure(xglog.Config{Level: "info", Service: "rpstreamd", Version: version})
	logger := xglog.WithComponent("rpstreamd")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Str("event", "config.load_failed").Msg("failed to load configuration")
	}

	if cfg.Logging.EnableDebug {
		xglog.Configure(xglog.Config{Level: "debug", Service: "rpstreamd", Version: version})
	}

	logger.Info().
		Str("event", "startup").
		Str("version", version).
		Str("commit", commit).
		Str("addr", *listenAddr).
		Int("discovery_port", cfg.Discovery.Port).
		Str("stream_codec", cfg.Stream.Codec).
		Msg("starting rpstreamd")

	mgr := manager.New(cfg, nil)

	srv := &http.Server{
		Addr:              *listenAddr,
		Handler:           adminRoutes(mgr),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("admin server failed")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("admin server shutdown did not complete cleanly")
	}

	mgr.Shutdown()
	logger.Info().Msg("rpstreamd exiting")
}
