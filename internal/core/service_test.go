package core

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"basket/internal/config"
	"basket/internal/models"
	"basket/internal/store"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	return &config.Config{
		Store: config.StoreConfig{
			Backend:  "sqlite",
			FileName: "shopping_list_data.csv",
			SQLite:   config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "basket.db")},
		},
		Retry: config.RetryConfig{MaxAttempts: 4, ConflictRetries: 2},
		Log:   config.LogConfig{Level: "info"},
	}
}

func newTestService(t *testing.T) *Service {
	t.Helper()

	svc, err := NewService(testConfig(t))
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	t.Cleanup(func() { _ = svc.Close() })

	return svc
}

func TestService_AddAndList(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	added, err := svc.Add(ctx, "Milk", "Meat/Dairy", "Costco")
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if added.ID == "" {
		t.Error("Add() returned item without ID")
	}
	if _, err := time.Parse(time.RFC3339, added.CreatedAt); err != nil {
		t.Errorf("CreatedAt %q is not RFC3339: %v", added.CreatedAt, err)
	}
	if added.Purchased {
		t.Error("new item starts purchased")
	}

	items, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(items) != 1 || items[0] != added {
		t.Errorf("List() = %+v, want [%+v]", items, added)
	}
}

func TestService_Add_TrimsName(t *testing.T) {
	svc := newTestService(t)

	added, err := svc.Add(context.Background(), "  Milk  ", "Meat/Dairy", "Costco")
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if added.Name != "Milk" {
		t.Errorf("Name = %q, want Milk", added.Name)
	}
}

func TestService_Add_Validation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name       string
		item       string
		category   string
		store      string
		wantReason string
	}{
		{"missing store", "Milk", "Meat/Dairy", "", ReasonMissingStore},
		{"unknown store", "Milk", "Meat/Dairy", "Walmart", ReasonUnknownStore},
		{"missing category", "Milk", "", "Costco", ReasonMissingCategory},
		{"unknown category", "Milk", "Snacks", "Costco", ReasonUnknownCategory},
		{"missing item", "", "Meat/Dairy", "Costco", ReasonMissingItem},
		{"whitespace item", "   ", "Meat/Dairy", "Costco", ReasonMissingItem},
		{"store checked before category", "Milk", "", "", ReasonMissingStore},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Add(ctx, tt.item, tt.category, tt.store)

			var verr *ErrValidation
			if !errors.As(err, &verr) {
				t.Fatalf("Add() error = %v, want ErrValidation", err)
			}
			if verr.Reason != tt.wantReason {
				t.Errorf("reason = %q, want %q", verr.Reason, tt.wantReason)
			}
			if verr.Message == "" {
				t.Error("validation message is empty")
			}
		})
	}

	// None of the rejected adds may have persisted anything.
	items, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(items) != 0 {
		t.Errorf("List() after rejected adds = %+v, want empty", items)
	}
}

func TestService_Add_Duplicate(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Add(ctx, "Milk", "Meat/Dairy", "Costco"); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	// Duplicates match list-wide on the trimmed name, even across stores.
	_, err := svc.Add(ctx, " Milk ", "Beverages", "Whole Foods")

	var verr *ErrValidation
	if !errors.As(err, &verr) {
		t.Fatalf("Add() duplicate error = %v, want ErrValidation", err)
	}
	if verr.Reason != ReasonDuplicateItem {
		t.Errorf("reason = %q, want %q", verr.Reason, ReasonDuplicateItem)
	}

	// Matching is case-sensitive: a different casing is a new item.
	if _, err := svc.Add(ctx, "milk", "Meat/Dairy", "Costco"); err != nil {
		t.Fatalf("Add() with different casing error = %v", err)
	}

	items, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(items) != 2 {
		t.Errorf("len(items) = %d, want 2", len(items))
	}
}

func TestService_TogglePurchased(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	added, err := svc.Add(ctx, "Milk", "Meat/Dairy", "Costco")
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	toggled, err := svc.TogglePurchased(ctx, added.ID)
	if err != nil {
		t.Fatalf("TogglePurchased() error = %v", err)
	}
	if !toggled.Purchased {
		t.Error("first toggle did not set purchased")
	}

	items, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if !items[0].Purchased {
		t.Error("toggle not persisted")
	}

	back, err := svc.TogglePurchased(ctx, added.ID)
	if err != nil {
		t.Fatalf("TogglePurchased() error = %v", err)
	}
	if back.Purchased {
		t.Error("second toggle did not clear purchased")
	}
}

func TestService_TogglePurchased_Prefix(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	added, err := svc.Add(ctx, "Milk", "Meat/Dairy", "Costco")
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if _, err := svc.Add(ctx, "Peas", "Frozen", "Costco"); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	toggled, err := svc.TogglePurchased(ctx, models.ShortID(added.ID))
	if err != nil {
		t.Fatalf("TogglePurchased() by prefix error = %v", err)
	}
	if toggled.ID != added.ID {
		t.Errorf("toggled ID = %s, want %s", toggled.ID, added.ID)
	}
}

func TestService_TogglePurchased_NotFound(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.TogglePurchased(context.Background(), "no-such-id")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("TogglePurchased() error = %v, want ErrNotFound", err)
	}
}

func TestService_Delete(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	first, err := svc.Add(ctx, "Milk", "Meat/Dairy", "Costco")
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	second, err := svc.Add(ctx, "Peas", "Frozen", "Costco")
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	removed, err := svc.Delete(ctx, first.ID)
	if err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if removed.ID != first.ID {
		t.Errorf("removed ID = %s, want %s", removed.ID, first.ID)
	}

	items, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(items) != 1 || items[0].ID != second.ID {
		t.Errorf("List() = %+v, want only %s", items, second.ID)
	}

	if _, err := svc.Delete(ctx, first.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete() again error = %v, want ErrNotFound", err)
	}
}

func TestService_Grouped(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	for _, add := range []struct{ name, category, store string }{
		{"Milk", "Meat/Dairy", "Costco"},
		{"Peas", "Frozen", "Costco"},
		{"Kale", "Vegetables", "Costco"},
		{"Coffee", "Beverages", "Trader Joe's"},
	} {
		if _, err := svc.Add(ctx, add.name, add.category, add.store); err != nil {
			t.Fatalf("Add(%s) error = %v", add.name, err)
		}
	}

	groups, err := svc.Grouped(ctx, "Costco")
	if err != nil {
		t.Fatalf("Grouped() error = %v", err)
	}
	if len(groups) != 3 {
		t.Fatalf("len(groups) = %d, want 3", len(groups))
	}
	for i, want := range []string{"Meat/Dairy", "Frozen", "Vegetables"} {
		if groups[i].Category != want {
			t.Errorf("groups[%d].Category = %q, want %q", i, groups[i].Category, want)
		}
	}
}

func TestService_Status(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	st, err := svc.Status(ctx)
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if st.Items != 0 || st.FileID != "" {
		t.Errorf("empty status = %+v, want zero items and no file", st)
	}
	if st.Backend != "sqlite" || st.FileName != "shopping_list_data.csv" {
		t.Errorf("status identity = %+v", st)
	}

	added, err := svc.Add(ctx, "Milk", "Meat/Dairy", "Costco")
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if _, err := svc.Add(ctx, "Peas", "Frozen", "Costco"); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if _, err := svc.TogglePurchased(ctx, added.ID); err != nil {
		t.Fatalf("TogglePurchased() error = %v", err)
	}

	st, err = svc.Status(ctx)
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if st.Items != 2 || st.Purchased != 1 {
		t.Errorf("counts = %d/%d, want 2/1", st.Items, st.Purchased)
	}
	if st.FileID == "" || st.Revision == "" {
		t.Errorf("file ref = %q@%q, want populated", st.FileID, st.Revision)
	}
}

func TestService_Ping(t *testing.T) {
	svc := newTestService(t)

	if err := svc.Ping(context.Background()); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
}

// raceStore passes through to a real store but fires a competing
// writer right before one Upload, making that save lose its revision
// check.
type raceStore struct {
	store.Store

	mu      sync.Mutex
	armed   bool
	compete func()
}

func (r *raceStore) arm(compete func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.armed = true
	r.compete = compete
}

func (r *raceStore) Upload(ctx context.Context, name string, content []byte, prev *store.FileRef) (store.FileRef, error) {
	r.mu.Lock()
	fire := r.armed
	r.armed = false
	r.mu.Unlock()

	if fire {
		r.compete()
	}

	return r.Store.Upload(ctx, name, content, prev)
}

func newRacingServices(t *testing.T, conflictRetries int) (victim *Service, competitor *Service, rs *raceStore) {
	t.Helper()

	cfg := testConfig(t)
	cfg.Retry.ConflictRetries = conflictRetries

	inner, err := store.NewSQLite(cfg.Store.SQLite.Path, zap.NewNop())
	if err != nil {
		t.Fatalf("NewSQLite() error = %v", err)
	}
	t.Cleanup(func() { _ = inner.Close() })

	rs = &raceStore{Store: inner}

	victim, err = NewService(cfg, WithStore(rs))
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}

	competitor, err = NewService(cfg, WithStore(inner))
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}

	return victim, competitor, rs
}

func TestService_ConflictRetrySucceeds(t *testing.T) {
	victim, competitor, rs := newRacingServices(t, 2)
	ctx := context.Background()

	if _, err := victim.Add(ctx, "Bread", "Dry Goods", "Costco"); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	rs.arm(func() {
		if _, err := competitor.Add(ctx, "Olive Oil", "Dry Goods", "Costco"); err != nil {
			t.Errorf("competitor Add() error = %v", err)
		}
	})

	if _, err := victim.Add(ctx, "Milk", "Meat/Dairy", "Costco"); err != nil {
		t.Fatalf("Add() during race error = %v", err)
	}

	items, err := victim.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}

	got := map[string]bool{}
	for _, item := range items {
		got[item.Name] = true
	}
	for _, want := range []string{"Bread", "Olive Oil", "Milk"} {
		if !got[want] {
			t.Errorf("item %q lost in the race, list = %+v", want, items)
		}
	}
	if len(items) != 3 {
		t.Errorf("len(items) = %d, want 3", len(items))
	}
}

func TestService_ConflictExhaustsBudget(t *testing.T) {
	victim, competitor, rs := newRacingServices(t, 0)
	ctx := context.Background()

	if _, err := victim.Add(ctx, "Bread", "Dry Goods", "Costco"); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	rs.arm(func() {
		if _, err := competitor.Add(ctx, "Olive Oil", "Dry Goods", "Costco"); err != nil {
			t.Errorf("competitor Add() error = %v", err)
		}
	})

	_, err := victim.Add(ctx, "Milk", "Meat/Dairy", "Costco")
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("Add() with no retry budget error = %v, want ErrConflict", err)
	}
}
