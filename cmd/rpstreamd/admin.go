// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/o1298098/remote-play-sub005/internal/log"
	"github.com/o1298098/remote-play-sub005/internal/manager"
	"github.com/o1298098/remote-play-sub005/internal/model"
)

// adminRoutes builds the ops surface: health/readiness, Prometheus metrics,
// the in-memory debug log tail, and a bare session-lifecycle control API.
// This is deliberately not the product REST API (no auth, no persistence,
// no OpenAPI schema) — spec.md §1 places that outside the core; this
// surface exists only so the daemon can be driven at all without an
// external caller.
func adminRoutes(mgr *manager.Manager) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(chimw.RequestID)
	r.Use(httprate.LimitByIP(20, time.Minute))

	r.Get("/healthz", handleHealthz(mgr))
	r.Get("/readyz", handleHealthz(mgr))
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/debug/logs", handleDebugLogs)

	r.Route("/v1/sessions", func(sr chi.Router) {
		sr.Get("/", handleListSessions(mgr))
		sr.Post("/", handleStartSession(mgr))
		sr.Delete("/{sessionID}", handleStopSession(mgr))
		sr.Post("/{sessionID}/buttons/{name}", handleButton(mgr))
	})
	r.Get("/v1/discover", handleDiscover(mgr))

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func handleHealthz(mgr *manager.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":        "ok",
			"active_sessions": mgr.Registry().Len(),
		})
	}
}

func handleDebugLogs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, log.GetRecentLogs())
}

type sessionView struct {
	ID     string `json:"id"`
	HostIP string `json:"host_ip"`
	State  string `json:"state"`
}

func handleListSessions(mgr *manager.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var out []sessionView
		mgr.Registry().Range(func(s *model.RemoteSession) {
			out = append(out, sessionView{ID: s.ID, HostIP: s.HostIP, State: s.State.String()})
		})
		writeJSON(w, http.StatusOK, out)
	}
}

type startSessionRequest struct {
	HostIP          string `json:"host_ip"`
	HostType        string `json:"host_type"` // "PS4" or "PS5"; resolved via discovery if empty
	AccountIDBase64 string `json:"account_id_base64"`
	PIN             string `json:"pin,omitempty"`
}

func handleStartSession(mgr *manager.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req startSessionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		if req.HostIP == "" || req.AccountIDBase64 == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "host_ip and account_id_base64 are required"})
			return
		}

		hostType := model.HostType(req.HostType)
		if hostType != model.HostTypePS4 && hostType != model.HostTypePS5 {
			resolved, err := mgr.ResolveHostType(r.Context(), req.HostIP)
			if err != nil {
				writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
				return
			}
			hostType = resolved
		}

		_, sess, err := mgr.StartSession(r.Context(), manager.StartRequest{
			HostIP:          req.HostIP,
			HostType:        hostType,
			AccountIDBase64: req.AccountIDBase64,
			PIN:             req.PIN,
		})
		if err != nil {
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusCreated, sessionView{ID: sess.ID, HostIP: sess.HostIP, State: sess.State.String()})
	}
}

func handleStopSession(mgr *manager.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "sessionID")
		if err := mgr.StopSession(id); err != nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type buttonRequest struct {
	Action string `json:"action"` // "press", "release", "tap"
}

func handleButton(mgr *manager.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "sessionID")
		name := model.Button(chi.URLParam(r, "name"))

		var req buttonRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}

		var err error
		switch req.Action {
		case "press":
			err = mgr.Controller().Button(r.Context(), id, name, model.ActionPress, 0)
		case "release":
			err = mgr.Controller().Button(r.Context(), id, name, model.ActionRelease, 0)
		case "tap", "":
			err = mgr.Controller().Tap(r.Context(), id, name, 0)
		default:
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "action must be press, release, or tap"})
			return
		}
		if err != nil {
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleDiscover(mgr *manager.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		consoles, err := mgr.Scan(r.Context())
		if err != nil {
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, consoles)
	}
}
