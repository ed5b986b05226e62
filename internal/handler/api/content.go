package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/wingsite/internal/model"
	"github.com/olegiv/wingsite/internal/service"
	"github.com/olegiv/wingsite/internal/util"
)

// ContentRequest is the body of a content write.
type ContentRequest struct {
	Data json.RawMessage `json:"data"`
}

// GetContent returns the JSON stored for a content type.
func (h *Handler) GetContent(w http.ResponseWriter, r *http.Request) {
	t, err := model.ParseContentType(chi.URLParam(r, "type"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	data, err := h.Content.Get(r.Context(), t)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	WriteSuccess(w, data)
}

// PutContent replaces the content for a type and returns the stored result.
// POST and PUT behave the same.
func (h *Handler) PutContent(w http.ResponseWriter, r *http.Request) {
	t, err := model.ParseContentType(chi.URLParam(r, "type"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	var req ContentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	data, err := h.Content.Put(r.Context(), t, req.Data)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.logContentEvent(r, "content updated", map[string]any{"type": string(t)})
	WriteSuccess(w, data)
}

// DeleteContent resets a content type. Settings cannot be deleted.
func (h *Handler) DeleteContent(w http.ResponseWriter, r *http.Request) {
	t, err := model.ParseContentType(chi.URLParam(r, "type"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	if err := h.Content.Delete(r.Context(), t); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.logContentEvent(r, "content deleted", map[string]any{"type": string(t)})
	w.WriteHeader(http.StatusNoContent)
}

// BulkGet returns every stored content blob and config entry.
func (h *Handler) BulkGet(w http.ResponseWriter, r *http.Request) {
	bulk, err := h.Content.BulkGet(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	WriteSuccess(w, bulk)
}

// BulkImport writes each provided key independently and reports per-key
// outcomes. A partially failed import still answers 200.
func (h *Handler) BulkImport(w http.ResponseWriter, r *http.Request) {
	var in service.Bulk
	if !decodeJSON(w, r, &in) {
		return
	}
	if len(in.Content) == 0 && len(in.Config) == 0 {
		WriteValidationError(w, map[string]string{"content": "content or config is required"})
		return
	}

	res := h.Content.BulkImport(r.Context(), in)
	h.logContentEvent(r, "bulk import", map[string]any{"updated": len(res.Updated), "failed": len(res.Failed)})
	WriteSuccess(w, res)
}

func (h *Handler) logContentEvent(r *http.Request, msg string, meta map[string]any) {
	if h.Events == nil {
		return
	}
	_ = h.Events.LogContentEvent(r.Context(), model.EventLevelInfo, msg, actor(r), util.ClientIP(r), meta)
}
