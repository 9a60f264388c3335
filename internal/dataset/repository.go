package dataset

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"basket/internal/models"
	"basket/internal/store"
)

// Repository loads and persists the shopping list against a remote
// store, by file name. The whole table moves on every load and save;
// O(n) transfer per edit is fine at household-list scale and keeps the
// file a plain spreadsheet-openable CSV.
type Repository struct {
	store    store.Store
	fileName string
	log      *zap.Logger
}

// NewRepository creates a Repository over the given store.
func NewRepository(s store.Store, fileName string, log *zap.Logger) *Repository {
	return &Repository{store: s, fileName: fileName, log: log}
}

// Load fetches the current list. An absent file is not an error: the
// list starts empty and the first Save creates the file. Unreadable
// content degrades to an empty table too, keeping the file reference so
// the next save overwrites the corrupt content in place.
func (r *Repository) Load(ctx context.Context) (*Dataset, error) {
	ref, err := r.store.FindByName(ctx, r.fileName)
	if err != nil {
		return nil, fmt.Errorf("failed to locate %q: %w", r.fileName, err)
	}
	if ref == nil {
		r.log.Debug("list file absent, starting empty", zap.String("file", r.fileName))

		return &Dataset{Items: []models.Item{}}, nil
	}

	content, fresh, err := r.store.Download(ctx, *ref)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Vanished between lookup and fetch. Same as absent.
			r.log.Warn("list file vanished before download", zap.String("file", r.fileName))

			return &Dataset{Items: []models.Item{}}, nil
		}

		return nil, err
	}

	items, err := Unmarshal(content)
	if err != nil {
		r.log.Warn("list file content unreadable, treating as empty",
			zap.String("file", r.fileName),
			zap.Error(err))
		items = []models.Item{}
	}

	return &Dataset{Items: items, Ref: &fresh}, nil
}

// Save rewrites the remote file from the dataset. The dataset's file
// reference gates the write: a concurrent edit since Load surfaces as
// store.ErrConflict and nothing is written. On success the reference
// advances to the new revision.
func (r *Repository) Save(ctx context.Context, ds *Dataset) error {
	ref, err := r.store.Upload(ctx, r.fileName, Marshal(ds.Items), ds.Ref)
	if err != nil {
		return fmt.Errorf("failed to save %q: %w", r.fileName, err)
	}
	ds.Ref = &ref

	return nil
}
