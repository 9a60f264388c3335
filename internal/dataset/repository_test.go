package dataset

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"go.uber.org/zap"

	"basket/internal/models"
	"basket/internal/store"
)

func newTestRepository(t *testing.T) (*Repository, store.Store) {
	t.Helper()

	s, err := store.NewSQLite(filepath.Join(t.TempDir(), "basket.db"), zap.NewNop())
	if err != nil {
		t.Fatalf("NewSQLite() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	return NewRepository(s, "shopping_list_data.csv", zap.NewNop()), s
}

func TestRepository_LoadAbsent(t *testing.T) {
	repo, _ := newTestRepository(t)

	ds, err := repo.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(ds.Items) != 0 {
		t.Errorf("len(Items) = %d, want 0", len(ds.Items))
	}
	if ds.Ref != nil {
		t.Errorf("Ref = %+v, want nil before first save", ds.Ref)
	}
}

func TestRepository_SaveLoadRoundTrip(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	ds, err := repo.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	ds.Append(models.Item{
		ID:        "id-1",
		CreatedAt: "2026-08-20T10:00:00Z",
		Name:      "Milk",
		Category:  "Meat/Dairy",
		Store:     "Costco",
	})

	if err := repo.Save(ctx, ds); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if ds.Ref == nil || ds.Ref.Revision != "1" {
		t.Fatalf("Ref after first save = %+v, want revision 1", ds.Ref)
	}

	reloaded, err := repo.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !reflect.DeepEqual(reloaded.Items, ds.Items) {
		t.Errorf("reloaded items = %+v, want %+v", reloaded.Items, ds.Items)
	}
	if reloaded.Ref == nil || reloaded.Ref.Revision != "1" {
		t.Errorf("reloaded Ref = %+v, want revision 1", reloaded.Ref)
	}
}

func TestRepository_CorruptContentDegrades(t *testing.T) {
	repo, s := newTestRepository(t)
	ctx := context.Background()

	// Something unparsable lands in the file out of band.
	if _, err := s.Upload(ctx, "shopping_list_data.csv", []byte("\"unclosed"), nil); err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	ds, err := repo.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(ds.Items) != 0 {
		t.Errorf("len(Items) = %d, want 0 for corrupt content", len(ds.Items))
	}
	if ds.Ref == nil {
		t.Fatal("Ref = nil, want the existing file reference kept")
	}

	// The next save overwrites the corrupt file in place.
	ds.Append(models.Item{ID: "id-1", Name: "Milk", Category: "Meat/Dairy", Store: "Costco"})
	if err := repo.Save(ctx, ds); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if ds.Ref.Revision != "2" {
		t.Errorf("Ref.Revision = %q, want 2", ds.Ref.Revision)
	}
}

func TestRepository_StaleSaveConflicts(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	seed, err := repo.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := repo.Save(ctx, seed); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	a, err := repo.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	b, err := repo.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	a.Append(models.Item{ID: "id-a", Name: "Milk", Category: "Meat/Dairy", Store: "Costco"})
	if err := repo.Save(ctx, a); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	b.Append(models.Item{ID: "id-b", Name: "Peas", Category: "Frozen", Store: "Costco"})
	err = repo.Save(ctx, b)
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("Save() with stale ref error = %v, want ErrConflict", err)
	}
}
