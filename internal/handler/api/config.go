package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/wingsite/internal/model"
	"github.com/olegiv/wingsite/internal/util"
)

// ConfigRequest is the body of a config write.
type ConfigRequest struct {
	Value json.RawMessage `json:"value"`
}

// HeaderUpdatedAt carries the last write time of a config value at full
// precision. Last-Modified only has whole seconds.
const HeaderUpdatedAt = "X-Updated-At"

// GetConfig returns a config value. Last-Modified and X-Updated-At carry the
// time of the last write so clients can reconcile local copies.
func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	k, err := model.ParseConfigKey(chi.URLParam(r, "key"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	entry, err := h.Content.Configs().Get(r.Context(), k)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	if !entry.UpdatedAt.IsZero() {
		w.Header().Set("Last-Modified", entry.UpdatedAt.UTC().Format(http.TimeFormat))
		w.Header().Set(HeaderUpdatedAt, entry.UpdatedAt.UTC().Format(time.RFC3339Nano))
	}
	WriteSuccess(w, entry.Data)
}

// PutConfig upserts a config value. POST and PUT behave the same.
func (h *Handler) PutConfig(w http.ResponseWriter, r *http.Request) {
	k, err := model.ParseConfigKey(chi.URLParam(r, "key"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	var req ConfigRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.Content.Configs().Put(r.Context(), k, req.Value); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	if h.Events != nil {
		_ = h.Events.LogConfigEvent(r.Context(), model.EventLevelInfo, "config updated", actor(r), util.ClientIP(r),
			map[string]any{"key": string(k)})
	}
	h.GetConfig(w, r)
}
