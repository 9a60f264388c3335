package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"basket/internal/config"
	"basket/internal/dataset"
	"basket/internal/grouping"
	"basket/internal/models"
	"basket/internal/store"
)

// Option is a functional option for NewService.
type Option func(*Service)

// WithStore injects a custom store.Store implementation, primarily for testing.
func WithStore(s store.Store) Option {
	return func(svc *Service) { svc.store = s }
}

// WithLogger sets the service logger. Defaults to a no-op logger.
func WithLogger(log *zap.Logger) Option {
	return func(svc *Service) { svc.log = log }
}

// Service is the application layer over the shared shopping list. Every
// mutation is load, apply, save: the whole list is fetched, changed in
// memory, and written back, with the repository's revision check
// catching concurrent writers. The service owns the retry loop around
// that cycle; transports (CLI, HTTP, MCP) stay thin.
type Service struct {
	config          *config.Config
	store           store.Store
	repo            *dataset.Repository
	log             *zap.Logger
	conflictRetries int
}

// NewService creates a list service from a validated configuration.
// Pass Option values to override defaults (e.g., WithStore for testing).
func NewService(cfg *config.Config, opts ...Option) (*Service, error) {
	svc := &Service{
		config:          cfg,
		log:             zap.NewNop(),
		conflictRetries: cfg.Retry.ConflictRetries,
	}

	for _, o := range opts {
		o(svc)
	}

	if svc.store == nil {
		s, err := store.New(cfg, svc.log)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize store: %w", err)
		}
		svc.store = s
	}

	svc.repo = dataset.NewRepository(svc.store, cfg.Store.FileName, svc.log)

	return svc, nil
}

// Add validates and appends a new item to the list. The item starts
// unpurchased. Duplicate names are rejected list-wide, matching on the
// trimmed name.
func (s *Service) Add(ctx context.Context, name, category, storeName string) (models.Item, error) {
	name = strings.TrimSpace(name)

	if storeName == "" {
		return models.Item{}, &ErrValidation{Reason: ReasonMissingStore, Message: "Please select a store."}
	}
	if !models.ValidStore(storeName) {
		return models.Item{}, &ErrValidation{
			Reason:  ReasonUnknownStore,
			Message: fmt.Sprintf("Unknown store %q. Valid stores: %s.", storeName, strings.Join(models.Stores, ", ")),
		}
	}
	if category == "" {
		return models.Item{}, &ErrValidation{Reason: ReasonMissingCategory, Message: "Please select a category."}
	}
	if !models.ValidCategory(category) {
		return models.Item{}, &ErrValidation{
			Reason:  ReasonUnknownCategory,
			Message: fmt.Sprintf("Unknown category %q. Valid categories: %s.", category, strings.Join(models.Categories, ", ")),
		}
	}
	if name == "" {
		return models.Item{}, &ErrValidation{Reason: ReasonMissingItem, Message: "Please enter a valid item name."}
	}

	var added models.Item

	err := s.mutate(ctx, func(ds *dataset.Dataset) error {
		// Checked against the freshly loaded list on every attempt, so a
		// duplicate added concurrently is still caught.
		for _, item := range ds.Items {
			if item.Name == name {
				return &ErrValidation{Reason: ReasonDuplicateItem, Message: "That item is already on the list."}
			}
		}

		added = models.NewItem(name, category, storeName)
		ds.Append(added)

		return nil
	})
	if err != nil {
		return models.Item{}, err
	}

	s.log.Info("item added",
		zap.String("id", added.ID),
		zap.String("item", added.Name),
		zap.String("store", added.Store),
		zap.String("category", added.Category))

	return added, nil
}

// TogglePurchased flips the purchased flag of the item addressed by id,
// which may be a full ID or a unique prefix. Returns the item as saved.
func (s *Service) TogglePurchased(ctx context.Context, id string) (models.Item, error) {
	var updated models.Item

	err := s.mutate(ctx, func(ds *dataset.Dataset) error {
		i := ds.FindByIDPrefix(id)
		if i < 0 {
			return fmt.Errorf("%w: %q", ErrNotFound, id)
		}

		ds.SetPurchased(i, !ds.Items[i].Purchased)
		updated = ds.Items[i]

		return nil
	})
	if err != nil {
		return models.Item{}, err
	}

	s.log.Info("item toggled",
		zap.String("id", updated.ID),
		zap.String("item", updated.Name),
		zap.Bool("purchased", updated.Purchased))

	return updated, nil
}

// Delete removes the item addressed by id (full ID or unique prefix)
// from the list. Returns the removed item.
func (s *Service) Delete(ctx context.Context, id string) (models.Item, error) {
	var removed models.Item

	err := s.mutate(ctx, func(ds *dataset.Dataset) error {
		i := ds.FindByIDPrefix(id)
		if i < 0 {
			return fmt.Errorf("%w: %q", ErrNotFound, id)
		}

		item, ok := ds.RemoveAt(i)
		if !ok {
			return fmt.Errorf("%w: %q", ErrNotFound, id)
		}
		removed = item

		return nil
	})
	if err != nil {
		return models.Item{}, err
	}

	s.log.Info("item removed",
		zap.String("id", removed.ID),
		zap.String("item", removed.Name))

	return removed, nil
}

// List returns the full item table in stored order.
func (s *Service) List(ctx context.Context) ([]models.Item, error) {
	ds, err := s.repo.Load(ctx)
	if err != nil {
		return nil, err
	}

	return ds.Items, nil
}

// Grouped returns one store's items grouped for display: categories in
// first-encounter order, unpurchased before purchased within each.
func (s *Service) Grouped(ctx context.Context, storeName string) ([]grouping.CategoryGroup, error) {
	ds, err := s.repo.Load(ctx)
	if err != nil {
		return nil, err
	}

	return grouping.Grouped(ds.Items, storeName), nil
}

// Status summarizes the list and its backing file.
type Status struct {
	Backend   string
	FileName  string
	FileID    string
	Revision  string
	Items     int
	Purchased int
}

// Status reports item counts and the backing file reference. A zero
// FileID means the file has not been created yet.
func (s *Service) Status(ctx context.Context) (Status, error) {
	ds, err := s.repo.Load(ctx)
	if err != nil {
		return Status{}, err
	}

	st := Status{
		Backend:  s.config.Store.Backend,
		FileName: s.config.Store.FileName,
		Items:    len(ds.Items),
	}
	for _, item := range ds.Items {
		if item.Purchased {
			st.Purchased++
		}
	}
	if ds.Ref != nil {
		st.FileID = ds.Ref.ID
		st.Revision = ds.Ref.Revision
	}

	return st, nil
}

// Ping verifies the store is reachable with the configured credentials.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Authenticate(ctx)
}

// mutate runs one load-apply-save cycle, reloading and reapplying when
// the save loses to a concurrent writer. apply sees a freshly loaded
// dataset on every attempt; it must not keep state across calls beyond
// what it recomputes. A conflict that survives the retry budget is
// returned to the caller.
func (s *Service) mutate(ctx context.Context, apply func(*dataset.Dataset) error) error {
	for attempt := 0; ; attempt++ {
		ds, err := s.repo.Load(ctx)
		if err != nil {
			return err
		}

		if err := apply(ds); err != nil {
			return err
		}

		err = s.repo.Save(ctx, ds)
		if err == nil {
			return nil
		}
		if !errors.Is(err, store.ErrConflict) || attempt >= s.conflictRetries {
			return err
		}

		s.log.Warn("save lost to a concurrent writer, reloading",
			zap.Int("attempt", attempt+1),
			zap.Int("budget", s.conflictRetries))
	}
}

// Close closes the service and cleans up resources
func (s *Service) Close() error {
	return s.store.Close()
}
