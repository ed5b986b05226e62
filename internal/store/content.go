package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Entry is a stored JSON document with its last write time.
type Entry struct {
	Key       string
	Data      json.RawMessage
	UpdatedAt time.Time
}

// GetContent returns the blob stored for a content type.
func (s *Store) GetContent(ctx context.Context, entityType string) (Entry, error) {
	e := Entry{Key: entityType}
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT data, updated_at FROM content_blobs WHERE entity_type = ?`, entityType).Scan(&data, &e.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return e, ErrNotFound
	}
	if err != nil {
		return e, fmt.Errorf("getting content %s: %w", entityType, err)
	}
	e.Data = json.RawMessage(data)
	return e, nil
}

// UpsertContent inserts or replaces the blob for a content type.
func (s *Store) UpsertContent(ctx context.Context, entityType string, data json.RawMessage) error {
	q := s.dialect.Upsert("content_blobs", "entity_type", "data", "updated_at")
	if _, err := s.db.ExecContext(ctx, q, entityType, string(data), now()); err != nil {
		return fmt.Errorf("upserting content %s: %w", entityType, err)
	}
	return nil
}

// DeleteContent removes the blob for a content type. Deleting a missing
// blob is not an error.
func (s *Store) DeleteContent(ctx context.Context, entityType string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM content_blobs WHERE entity_type = ?`, entityType); err != nil {
		return fmt.Errorf("deleting content %s: %w", entityType, err)
	}
	return nil
}

// ListContent returns every stored blob.
func (s *Store) ListContent(ctx context.Context) ([]Entry, error) {
	return s.listEntries(ctx, `SELECT entity_type, data, updated_at FROM content_blobs ORDER BY entity_type`)
}

// GetConfig returns the value stored for a config key.
func (s *Store) GetConfig(ctx context.Context, key string) (Entry, error) {
	e := Entry{Key: key}
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value, updated_at FROM config_entries WHERE config_key = ?`, key).Scan(&value, &e.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return e, ErrNotFound
	}
	if err != nil {
		return e, fmt.Errorf("getting config %s: %w", key, err)
	}
	e.Data = json.RawMessage(value)
	return e, nil
}

// UpsertConfig inserts or replaces the value for a config key.
func (s *Store) UpsertConfig(ctx context.Context, key string, value json.RawMessage) error {
	q := s.dialect.Upsert("config_entries", "config_key", "value", "updated_at")
	if _, err := s.db.ExecContext(ctx, q, key, string(value), now()); err != nil {
		return fmt.Errorf("upserting config %s: %w", key, err)
	}
	return nil
}

// ListConfig returns every stored config entry.
func (s *Store) ListConfig(ctx context.Context) ([]Entry, error) {
	return s.listEntries(ctx, `SELECT config_key, value, updated_at FROM config_entries ORDER BY config_key`)
}

func (s *Store) listEntries(ctx context.Context, query string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var data string
		if err := rows.Scan(&e.Key, &data, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning entry: %w", err)
		}
		e.Data = json.RawMessage(data)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
