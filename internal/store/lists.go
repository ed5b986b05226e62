package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/olegiv/wingsite/internal/model"
)

// ListTable reads and replaces one typed content list.
type ListTable[T any] struct {
	store *Store
	spec  model.ListSpec[T]
}

// NewListTable binds a list spec to the store.
func NewListTable[T any](s *Store, spec model.ListSpec[T]) *ListTable[T] {
	return &ListTable[T]{store: s, spec: spec}
}

// Type returns the content type served by the table.
func (t *ListTable[T]) Type() model.ContentType { return t.spec.Type }

// List returns the items in saved order.
func (t *ListTable[T]) List(ctx context.Context) ([]T, error) {
	q := fmt.Sprintf("SELECT id, %s FROM %s ORDER BY sort_order, id",
		strings.Join(t.spec.Columns, ", "), t.spec.Table)

	rows, err := t.store.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", t.spec.Table, err)
	}
	defer func() { _ = rows.Close() }()

	items := []T{}
	for rows.Next() {
		item, err := t.spec.Read(rows)
		if err != nil {
			return nil, fmt.Errorf("reading %s row: %w", t.spec.Table, err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// Replace swaps the whole list for items. Existing rows are deleted and the
// new ones inserted in order inside one transaction, so ids are reassigned on
// every save and a failed insert leaves the previous list intact.
func (t *ListTable[T]) Replace(ctx context.Context, items []T) error {
	insert := fmt.Sprintf("INSERT INTO %s (sort_order, %s) VALUES (?%s)",
		t.spec.Table, strings.Join(t.spec.Columns, ", "),
		strings.Repeat(", ?", len(t.spec.Columns)))

	err := t.store.InTx(ctx, func(tx DBTX) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+t.spec.Table); err != nil {
			return fmt.Errorf("clearing: %w", err)
		}
		for i, item := range items {
			if t.spec.Normalize != nil {
				t.spec.Normalize(&item)
			}
			values, err := t.spec.Write(item)
			if err != nil {
				return fmt.Errorf("item %d: %w", i, err)
			}
			args := append([]any{i}, values...)
			if _, err := tx.ExecContext(ctx, insert, args...); err != nil {
				return fmt.Errorf("inserting item %d: %w", i, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("replacing %s: %w", t.spec.Table, err)
	}
	return nil
}
