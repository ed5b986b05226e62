package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/olegiv/wingsite/internal/model"
	"github.com/olegiv/wingsite/internal/webhook"
)

// InboundWebhook verifies and stores an email provider event.
func (h *Handler) InboundWebhook(w http.ResponseWriter, r *http.Request) {
	if h.Webhooks == nil {
		WriteError(w, http.StatusServiceUnavailable, "webhooks_disabled", "Inbound webhooks are not enabled", nil)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, webhook.MaxBodySize))
	if err != nil {
		WriteError(w, http.StatusRequestEntityTooLarge, "payload_too_large", "Request body too large", nil)
		return
	}

	msg, err := h.Webhooks.Receive(r.Context(), body, r.Header.Get(webhook.SignatureHeader))
	switch {
	case errors.Is(err, webhook.ErrInvalidSignature):
		h.Logger.Warn("inbound webhook signature mismatch", "category", model.EventCategoryEmail)
		WriteError(w, http.StatusUnauthorized, "invalid_signature", "Invalid webhook signature", nil)
		return
	case errors.Is(err, webhook.ErrInvalidPayload):
		WriteBadRequest(w, "Invalid webhook payload", nil)
		return
	case err != nil:
		h.writeServiceError(w, r, err)
		return
	}

	WriteSuccess(w, map[string]string{"id": msg.ID})
}

// ListInbound returns recently received webhook messages.
func (h *Handler) ListInbound(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.Store.ListInboundMessages(r.Context(), min(queryLimit(r, 50), 500))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if msgs == nil {
		msgs = []model.InboundMessage{}
	}
	WriteSuccess(w, msgs)
}
