package store

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/olegiv/wingsite/internal/model"
)

// clearIDs zeroes ids so saved and loaded items compare field by field.
func clearIDs[T any](items []T, id func(*T) *int64) []T {
	out := make([]T, len(items))
	for i := range items {
		out[i] = items[i]
		*id(&out[i]) = 0
	}
	return out
}

func roundTrip[T any](t *testing.T, s *Store, spec model.ListSpec[T], items []T, id func(*T) *int64) {
	t.Helper()
	ctx := context.Background()
	table := NewListTable(s, spec)

	if err := table.Replace(ctx, items); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	got, err := table.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != len(items) {
		t.Fatalf("List len = %d, want %d", len(got), len(items))
	}
	for i := range got {
		if *id(&got[i]) == 0 {
			t.Errorf("item %d has no id", i)
		}
	}
	if want := clearIDs(items, id); !reflect.DeepEqual(clearIDs(got, id), want) {
		t.Errorf("List = %+v\nwant %+v", got, want)
	}
}

func TestListTables_RoundTrip(t *testing.T) {
	s := testStore(t)

	t.Run("wings", func(t *testing.T) {
		roundTrip(t, s, model.WingList, []model.Wing{
			{Key: "tech", Title: "Tech", Tagline: "Build", Description: "Software", Icon: "cpu", Color: "#00f", Features: []string{"Web", "Mobile"}},
			{Key: "media", Title: "Media", Features: []string{}},
		}, func(w *model.Wing) *int64 { return &w.ID })
	})

	t.Run("projects", func(t *testing.T) {
		roundTrip(t, s, model.ProjectList, []model.Project{
			{Title: "Site", Slug: "site", Category: "web", Client: "Acme", Tags: []string{"go"}, Featured: true, Year: 2024},
			{Title: "App", Slug: "app", Tags: []string{}},
		}, func(p *model.Project) *int64 { return &p.ID })
	})

	t.Run("partners", func(t *testing.T) {
		roundTrip(t, s, model.PartnerList, []model.Partner{
			{Name: "Acme", LogoURL: "/acme.png", Website: "https://acme.example", Category: "client"},
		}, func(p *model.Partner) *int64 { return &p.ID })
	})

	t.Run("team", func(t *testing.T) {
		roundTrip(t, s, model.TeamList, []model.Leader{
			{Name: "Ada", Role: "CEO", Bio: "Founder", LinkedIn: "https://linkedin.com/in/ada", Email: "ada@example.com"},
			{Name: "Grace", Role: "CTO"},
		}, func(l *model.Leader) *int64 { return &l.ID })
	})

	t.Run("techStack", func(t *testing.T) {
		roundTrip(t, s, model.TechStackList, []model.TechItem{
			{Name: "Go", Category: "backend", Icon: "go"},
		}, func(ti *model.TechItem) *int64 { return &ti.ID })
	})
}

func TestListTable_EmptyAndReassignedIDs(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	table := NewListTable(s, model.PartnerList)

	if err := table.Replace(ctx, []model.Partner{{Name: "A"}, {Name: "B"}}); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	first, _ := table.List(ctx)

	if err := table.Replace(ctx, []model.Partner{{Name: "A"}, {Name: "B"}}); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	second, _ := table.List(ctx)
	if first[0].ID == second[0].ID {
		t.Errorf("ids should be reassigned on save, both %d", first[0].ID)
	}

	if err := table.Replace(ctx, []model.Partner{}); err != nil {
		t.Fatalf("Replace(empty): %v", err)
	}
	got, err := table.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("List after empty replace = %#v, want empty non-nil slice", got)
	}
}

func TestListTable_ProjectSlugGenerated(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	table := NewListTable(s, model.ProjectList)

	if err := table.Replace(ctx, []model.Project{{Title: "Lagos Smart City"}}); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	got, _ := table.List(ctx)
	if got[0].Slug != "lagos-smart-city" {
		t.Errorf("Slug = %q, want lagos-smart-city", got[0].Slug)
	}
}

func TestListTable_ReplaceRollsBackOnFailure(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	good := NewListTable(s, model.TechStackList)
	if err := good.Replace(ctx, []model.TechItem{{Name: "Go"}, {Name: "SQLite"}}); err != nil {
		t.Fatalf("Replace: %v", err)
	}

	errBoom := errors.New("boom")
	failing := model.TechStackList
	failing.Write = func(ti model.TechItem) ([]any, error) {
		if ti.Name == "bad" {
			return nil, errBoom
		}
		return model.TechStackList.Write(ti)
	}

	err := NewListTable(s, failing).Replace(ctx, []model.TechItem{{Name: "Rust"}, {Name: "bad"}})
	if !errors.Is(err, errBoom) {
		t.Fatalf("Replace error = %v, want errBoom", err)
	}

	got, _ := good.List(ctx)
	if len(got) != 2 || got[0].Name != "Go" || got[1].Name != "SQLite" {
		t.Errorf("list after failed replace = %+v, want previous contents", got)
	}
}
