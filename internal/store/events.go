package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/olegiv/wingsite/internal/model"
)

// CreateEventParams holds the fields of a new event log entry.
type CreateEventParams struct {
	Level     string
	Category  string
	Message   string
	UserID    *int64
	IPAddress string
	Metadata  string
	CreatedAt time.Time
}

// CreateEvent appends an entry to the event log.
func (s *Store) CreateEvent(ctx context.Context, p CreateEventParams) error {
	if p.Metadata == "" {
		p.Metadata = "{}"
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now()
	}

	var userID sql.NullInt64
	if p.UserID != nil {
		userID = sql.NullInt64{Int64: *p.UserID, Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO events (level, category, message, user_id, ip_address, metadata, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.Level, p.Category, p.Message, userID, p.IPAddress, p.Metadata, p.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("creating event: %w", err)
	}
	return nil
}

// ListEvents returns the most recent events, newest first. A category
// filter of "" matches all categories.
func (s *Store) ListEvents(ctx context.Context, category string, limit int) ([]model.Event, error) {
	q := `SELECT id, level, category, message, user_id, ip_address, metadata, created_at FROM events`
	args := []any{}
	if category != "" {
		q += ` WHERE category = ?`
		args = append(args, category)
	}
	q += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	events := []model.Event{}
	for rows.Next() {
		var e model.Event
		var userID sql.NullInt64
		if err := rows.Scan(&e.ID, &e.Level, &e.Category, &e.Message, &userID, &e.IPAddress, &e.Metadata, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		if userID.Valid {
			id := userID.Int64
			e.UserID = &id
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// DeleteEventsBefore prunes events older than cutoff and returns how many were removed.
func (s *Store) DeleteEventsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE created_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("pruning events: %w", err)
	}
	return res.RowsAffected()
}
