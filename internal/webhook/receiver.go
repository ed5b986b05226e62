package webhook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/olegiv/wingsite/internal/model"
)

// ErrInvalidSignature is returned when the signature header does not match.
var ErrInvalidSignature = errors.New("invalid webhook signature")

// MaxBodySize limits inbound webhook bodies.
const MaxBodySize = 1 << 20

// MessageStore persists inbound messages.
type MessageStore interface {
	CreateInboundMessage(ctx context.Context, m model.InboundMessage) (model.InboundMessage, error)
}

// Receiver verifies, parses and stores inbound provider events.
type Receiver struct {
	secret string
	store  MessageStore
	logger *slog.Logger
	now    func() time.Time
}

// NewReceiver creates a Receiver. With an empty secret signatures are not
// checked, which is only meant for development.
func NewReceiver(secret string, store MessageStore, logger *slog.Logger) *Receiver {
	if secret == "" {
		logger.Warn("inbound webhook secret not set; signatures will not be verified")
	}
	return &Receiver{secret: secret, store: store, logger: logger, now: time.Now}
}

// Receive verifies the body against signature and stores the event.
func (r *Receiver) Receive(ctx context.Context, body []byte, signature string) (model.InboundMessage, error) {
	if r.secret != "" && !VerifySignature(body, signature, r.secret) {
		return model.InboundMessage{}, ErrInvalidSignature
	}

	ev, data, err := ParseEvent(body)
	if err != nil {
		return model.InboundMessage{}, err
	}

	received := ev.CreatedAt
	if received.IsZero() {
		received = r.now()
	}

	msg, err := r.store.CreateInboundMessage(ctx, model.InboundMessage{
		EventType:  ev.Type,
		From:       data.From,
		To:         data.To.String(),
		Subject:    data.Subject,
		Payload:    string(body),
		ReceivedAt: received.UTC(),
	})
	if err != nil {
		return model.InboundMessage{}, fmt.Errorf("storing inbound message: %w", err)
	}

	r.logger.Info("inbound webhook stored", "id", msg.ID, "type", msg.EventType, "from", msg.From)
	return msg, nil
}
