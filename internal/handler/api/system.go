package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/wingsite/internal/model"
	"github.com/olegiv/wingsite/internal/scheduler"
)

// StatusResponse is polled by clients to decide whether to render the site.
type StatusResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// Status returns the site status and server version.
func (h *Handler) Status(w http.ResponseWriter, _ *http.Request) {
	v := h.Version.Version
	if v == "" {
		v = "dev"
	}
	WriteSuccess(w, StatusResponse{Status: h.SiteStatus, Version: v})
}

// Health pings the database.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.Store.Ping(ctx); err != nil {
		h.Logger.Error("health check failed", "error", err)
		WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ListEvents returns the event log, newest first, optionally filtered by ?category=.
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	if h.Events == nil {
		WriteSuccess(w, []model.Event{})
		return
	}
	events, err := h.Events.List(r.Context(), r.URL.Query().Get("category"), queryLimit(r, 100))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if events == nil {
		events = []model.Event{}
	}
	WriteSuccess(w, events)
}

// ListJobs returns the scheduled maintenance jobs.
func (h *Handler) ListJobs(w http.ResponseWriter, _ *http.Request) {
	if h.Scheduler == nil {
		WriteSuccess(w, []scheduler.JobInfo{})
		return
	}
	WriteSuccess(w, h.Scheduler.Jobs())
}

// RunJob triggers a scheduled job immediately.
func (h *Handler) RunJob(w http.ResponseWriter, r *http.Request) {
	if h.Scheduler == nil {
		WriteNotFound(w, "Job not found")
		return
	}

	err := h.Scheduler.Trigger(r.Context(), chi.URLParam(r, "name"))
	switch {
	case errors.Is(err, scheduler.ErrJobNotFound):
		WriteNotFound(w, "Job not found")
	case err != nil:
		h.writeServiceError(w, r, err)
	default:
		WriteSuccess(w, map[string]bool{"ok": true})
	}
}
