package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/olegiv/wingsite/internal/model"
)

// CreateInboundMessage stores a webhook delivery. An empty ID is replaced
// with a fresh UUID.
func (s *Store) CreateInboundMessage(ctx context.Context, m model.InboundMessage) (model.InboundMessage, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.ReceivedAt.IsZero() {
		m.ReceivedAt = now()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO inbound_messages (id, event_type, from_addr, to_addr, subject, payload, received_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.EventType, m.From, m.To, m.Subject, m.Payload, m.ReceivedAt.UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return m, ErrConflict
		}
		return m, fmt.Errorf("storing inbound message: %w", err)
	}
	return m, nil
}

// ListInboundMessages returns the most recent inbound messages, newest first.
func (s *Store) ListInboundMessages(ctx context.Context, limit int) ([]model.InboundMessage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, event_type, from_addr, to_addr, subject, payload, received_at
		 FROM inbound_messages ORDER BY received_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing inbound messages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	msgs := []model.InboundMessage{}
	for rows.Next() {
		var m model.InboundMessage
		if err := rows.Scan(&m.ID, &m.EventType, &m.From, &m.To, &m.Subject, &m.Payload, &m.ReceivedAt); err != nil {
			return nil, fmt.Errorf("scanning inbound message: %w", err)
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// DeleteInboundMessagesBefore prunes messages received before cutoff.
func (s *Store) DeleteInboundMessagesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM inbound_messages WHERE received_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("pruning inbound messages: %w", err)
	}
	return res.RowsAffected()
}
