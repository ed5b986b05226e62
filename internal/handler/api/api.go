// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package api provides the JSON HTTP handlers of the content backend.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/wingsite/internal/auth"
	"github.com/olegiv/wingsite/internal/mailer"
	"github.com/olegiv/wingsite/internal/middleware"
	"github.com/olegiv/wingsite/internal/model"
	"github.com/olegiv/wingsite/internal/scheduler"
	"github.com/olegiv/wingsite/internal/service"
	"github.com/olegiv/wingsite/internal/store"
	"github.com/olegiv/wingsite/internal/version"
	"github.com/olegiv/wingsite/internal/webhook"
)

// maxBodySize limits JSON request bodies.
const maxBodySize = 4 << 20

// Deps holds the services the handlers call. Mailer, Webhooks and Scheduler
// may be nil; their endpoints then report the feature as unavailable. A nil
// Events skips event logging and lists no events.
type Deps struct {
	Store      *store.Store
	Auth       *auth.Service
	Users      *service.UserService
	Content    *service.ContentService
	Events     *service.EventService
	Mailer     *mailer.Client
	Webhooks   *webhook.Receiver
	LoginGuard *middleware.LoginProtection
	Scheduler  *scheduler.Scheduler
	SiteStatus string
	Version    version.Info
	Logger     *slog.Logger
}

// Handler holds shared dependencies for all API handlers.
type Handler struct {
	Deps
}

// NewHandler creates a new API handler.
func NewHandler(d Deps) *Handler {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.SiteStatus == "" {
		d.SiteStatus = "live"
	}
	return &Handler{Deps: d}
}

// Response is the standard API response wrapper.
type Response struct {
	Data any `json:"data"`
}

// ErrorResponse is the standard API error response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information.
type ErrorDetail struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteSuccess writes a successful JSON response.
func WriteSuccess(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusOK, Response{Data: data})
}

// WriteCreated writes a 201 Created JSON response.
func WriteCreated(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusCreated, Response{Data: data})
}

// WriteError writes an error JSON response.
func WriteError(w http.ResponseWriter, statusCode int, code, message string, details map[string]string) {
	WriteJSON(w, statusCode, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// WriteBadRequest writes a 400 Bad Request response.
func WriteBadRequest(w http.ResponseWriter, message string, details map[string]string) {
	WriteError(w, http.StatusBadRequest, "bad_request", message, details)
}

// WriteNotFound writes a 404 Not Found response.
func WriteNotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, "not_found", message, nil)
}

// WriteUnauthorized writes a 401 Unauthorized response.
func WriteUnauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, "unauthorized", message, nil)
}

// WriteInternalError writes a 500 Internal Server Error response.
func WriteInternalError(w http.ResponseWriter) {
	WriteError(w, http.StatusInternalServerError, "internal_error", "Internal server error", nil)
}

// WriteValidationError writes a 400 response with field errors.
func WriteValidationError(w http.ResponseWriter, fieldErrors map[string]string) {
	WriteError(w, http.StatusBadRequest, "validation_error", "Validation failed", fieldErrors)
}

// MethodNotAllowed answers requests for a method a route does not serve.
func MethodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed", nil)
}

// NotFound answers unknown routes.
func NotFound(w http.ResponseWriter, _ *http.Request) {
	WriteNotFound(w, "Route not found")
}

// writeServiceError maps a service, store or provider error to its response.
// Unrecognized errors are logged and reported as a generic 500.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		ve *service.ValidationError
		fe mailer.FieldErrors
		ue *mailer.UpstreamError
	)

	switch {
	case errors.As(err, &ve):
		WriteValidationError(w, ve.Fields)
	case errors.As(err, &fe):
		WriteValidationError(w, fe)
	case errors.Is(err, model.ErrInvalidType):
		WriteError(w, http.StatusBadRequest, "invalid_type", "Unknown content type", nil)
	case errors.Is(err, model.ErrInvalidKey):
		WriteError(w, http.StatusBadRequest, "invalid_key", "Unknown config key", nil)
	case errors.Is(err, service.ErrMethodNotAllowed):
		MethodNotAllowed(w, r)
	case errors.Is(err, store.ErrNotFound):
		WriteNotFound(w, "Resource not found")
	case errors.Is(err, store.ErrLastAdmin):
		WriteError(w, http.StatusConflict, "last_admin", "The last admin cannot be deleted or demoted", nil)
	case errors.Is(err, store.ErrConflict):
		WriteError(w, http.StatusConflict, "conflict", "Resource already exists", nil)
	case errors.Is(err, auth.ErrUnauthorized):
		WriteError(w, http.StatusUnauthorized, "invalid_credentials", "Invalid email or password", nil)
	case errors.Is(err, mailer.ErrNotConfigured):
		WriteError(w, http.StatusServiceUnavailable, "email_not_configured", "Email service is not configured", nil)
	case errors.As(err, &ue):
		WriteError(w, http.StatusBadGateway, "upstream_error", ue.Message, nil)
	default:
		h.Logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		WriteInternalError(w)
	}
}

// decodeJSON reads a JSON body into v. It writes the 400 itself and reports
// whether decoding succeeded.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var mbe *http.MaxBytesError
		switch {
		case errors.As(err, &mbe):
			WriteError(w, http.StatusRequestEntityTooLarge, "payload_too_large", "Request body too large", nil)
		case errors.Is(err, io.EOF):
			WriteBadRequest(w, "Request body is required", nil)
		default:
			WriteBadRequest(w, "Invalid JSON body", nil)
		}
		return false
	}
	return true
}

// idParam returns the id from the {id} path segment or the ?id= query.
// ok is false when neither is present.
func idParam(r *http.Request) (id int64, ok bool, err error) {
	raw := chi.URLParam(r, "id")
	if raw == "" {
		raw = r.URL.Query().Get("id")
	}
	if raw == "" {
		return 0, false, nil
	}
	id, err = strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, true, errors.New("invalid id")
	}
	return id, true, nil
}

// queryLimit parses ?limit= falling back to def.
func queryLimit(r *http.Request, def int) int {
	if n, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && n > 0 {
		return n
	}
	return def
}

// actor returns the authenticated user's id, or nil.
func actor(r *http.Request) *int64 {
	if c := middleware.ClaimsFromContext(r.Context()); c != nil {
		id := c.UserID
		return &id
	}
	return nil
}
