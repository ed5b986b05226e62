package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/olegiv/wingsite/internal/model"
	"github.com/olegiv/wingsite/internal/store"
)

// listAccessor hides the item type of a typed list so the content service can
// dispatch on content type. Each implementation is a typedList[T] built from a
// model.ListSpec, so the row mapping is fixed at compile time.
type listAccessor interface {
	Load(ctx context.Context) (any, error)
	Save(ctx context.Context, data json.RawMessage) error
}

type typedList[T any] struct {
	table *store.ListTable[T]
}

func newTypedList[T any](s *store.Store, spec model.ListSpec[T]) listAccessor {
	return typedList[T]{table: store.NewListTable(s, spec)}
}

func (l typedList[T]) Load(ctx context.Context) (any, error) {
	return l.table.List(ctx)
}

func (l typedList[T]) Save(ctx context.Context, data json.RawMessage) error {
	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return NewValidationError("data", fmt.Sprintf("must be a JSON array of %s items", l.table.Type()))
	}
	if items == nil {
		items = []T{}
	}
	return l.table.Replace(ctx, items)
}

func newListAccessors(s *store.Store) map[model.ContentType]listAccessor {
	return map[model.ContentType]listAccessor{
		model.TypeWings:     newTypedList(s, model.WingList),
		model.TypeProjects:  newTypedList(s, model.ProjectList),
		model.TypePartners:  newTypedList(s, model.PartnerList),
		model.TypeTeam:      newTypedList(s, model.TeamList),
		model.TypeTechStack: newTypedList(s, model.TechStackList),
	}
}
