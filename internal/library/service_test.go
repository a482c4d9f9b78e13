package library

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/matchcut/matchcut-agent/internal/db"
)

func setupService(t *testing.T) *Service {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	database, err := db.New(dbPath, nil)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	return NewService(NewRepository(database.Conn()), nil)
}

func newItem(name string) *MediaItem {
	return &MediaItem{
		ID:      NewID(),
		Name:    name,
		Locator: "file:///videos/" + name,
	}
}

func TestSetReference_OverwritesSlot(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	first := newItem("ref_v1.mp4")
	if err := svc.SetReference(ctx, first); err != nil {
		t.Fatalf("SetReference() error = %v", err)
	}

	second := newItem("ref_v2.mp4")
	if err := svc.SetReference(ctx, second); err != nil {
		t.Fatalf("SetReference() error = %v", err)
	}

	got, err := svc.Reference(ctx)
	if err != nil {
		t.Fatalf("Reference() error = %v", err)
	}
	if got == nil || got.ID != second.ID {
		t.Fatalf("reference slot = %+v, want item %s", got, second.ID)
	}

	// The overwritten reference must be gone, not demoted to raw.
	if _, err := svc.Get(ctx, first.ID); err != ErrNotFound {
		t.Errorf("Get(old reference) error = %v, want ErrNotFound", err)
	}
}

func TestReference_EmptyRegistry(t *testing.T) {
	svc := setupService(t)

	got, err := svc.Reference(context.Background())
	if err != nil {
		t.Fatalf("Reference() error = %v", err)
	}
	if got != nil {
		t.Errorf("Reference() = %+v, want nil", got)
	}
}

func TestAddRaw_PreservesArrivalOrder(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	first := []*MediaItem{newItem("a.mp4"), newItem("b.mp4")}
	if err := svc.AddRaw(ctx, first); err != nil {
		t.Fatalf("AddRaw() error = %v", err)
	}

	second := []*MediaItem{newItem("c.mp4")}
	if err := svc.AddRaw(ctx, second); err != nil {
		t.Fatalf("AddRaw() error = %v", err)
	}

	pool, err := svc.RawPool(ctx)
	if err != nil {
		t.Fatalf("RawPool() error = %v", err)
	}
	want := []string{"a.mp4", "b.mp4", "c.mp4"}
	if len(pool) != len(want) {
		t.Fatalf("raw pool size = %d, want %d", len(pool), len(want))
	}
	for i, name := range want {
		if pool[i].Name != name {
			t.Errorf("pool[%d].Name = %q, want %q", i, pool[i].Name, name)
		}
	}
}

func TestAddRaw_RejectsInvalidItems(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	if err := svc.AddRaw(ctx, nil); err == nil {
		t.Error("AddRaw(nil) should fail")
	}
	if err := svc.AddRaw(ctx, []*MediaItem{{ID: NewID(), Name: "x.mp4"}}); err == nil {
		t.Error("AddRaw without locator should fail")
	}
}

func TestSetCategory(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	item := newItem("ceremony_01.mp4")
	if err := svc.AddRaw(ctx, []*MediaItem{item}); err != nil {
		t.Fatalf("AddRaw() error = %v", err)
	}

	updated, err := svc.SetCategory(ctx, item.ID, CategoryCeremony)
	if err != nil {
		t.Fatalf("SetCategory() error = %v", err)
	}
	if updated.Category != CategoryCeremony {
		t.Errorf("Category = %q, want %q", updated.Category, CategoryCeremony)
	}

	if _, err := svc.SetCategory(ctx, item.ID, Category("banquet")); err == nil {
		t.Error("SetCategory with unknown category should fail")
	}
	if _, err := svc.SetCategory(ctx, "no-such-id", CategoryParty); err != ErrNotFound {
		t.Errorf("SetCategory(unknown id) error = %v, want ErrNotFound", err)
	}
}

func TestCategoryCounts(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	a := newItem("a.mp4")
	b := newItem("b.mp4")
	c := newItem("c.mp4")
	if err := svc.AddRaw(ctx, []*MediaItem{a, b, c}); err != nil {
		t.Fatalf("AddRaw() error = %v", err)
	}
	if _, err := svc.SetCategory(ctx, a.ID, CategoryParty); err != nil {
		t.Fatalf("SetCategory() error = %v", err)
	}
	if _, err := svc.SetCategory(ctx, b.ID, CategoryParty); err != nil {
		t.Fatalf("SetCategory() error = %v", err)
	}

	counts, err := svc.CategoryCounts(ctx)
	if err != nil {
		t.Fatalf("CategoryCounts() error = %v", err)
	}
	if counts[CategoryParty] != 2 {
		t.Errorf("party count = %d, want 2", counts[CategoryParty])
	}
	// Untagged items are reported under unknown.
	if counts[CategoryUnknown] != 1 {
		t.Errorf("unknown count = %d, want 1", counts[CategoryUnknown])
	}
}
