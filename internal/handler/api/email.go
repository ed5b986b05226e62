package api

import (
	"errors"
	"net/http"

	"github.com/olegiv/wingsite/internal/mailer"
	"github.com/olegiv/wingsite/internal/model"
	"github.com/olegiv/wingsite/internal/util"
)

// SendEmailResponse carries the provider's message id.
type SendEmailResponse struct {
	ID string `json:"id"`
}

// SendEmail delivers a contact form message to the configured recipient.
func (h *Handler) SendEmail(w http.ResponseWriter, r *http.Request) {
	var msg mailer.ContactMessage
	if !decodeJSON(w, r, &msg) {
		return
	}
	if h.Mailer == nil {
		h.writeServiceError(w, r, mailer.ErrNotConfigured)
		return
	}

	id, err := h.Mailer.SendContact(r.Context(), msg)
	if err != nil {
		if h.Events != nil && !isClientError(err) {
			_ = h.Events.LogEmailEvent(r.Context(), model.EventLevelError, "contact email failed", nil, util.ClientIP(r),
				map[string]any{"error": err.Error()})
		}
		h.writeServiceError(w, r, err)
		return
	}

	if h.Events != nil {
		_ = h.Events.LogEmailEvent(r.Context(), model.EventLevelInfo, "contact email sent", nil, util.ClientIP(r),
			map[string]any{"id": id, "from": msg.Email})
	}
	WriteSuccess(w, SendEmailResponse{ID: id})
}

func isClientError(err error) bool {
	return errors.Is(err, mailer.ErrInvalidMessage)
}
