package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a requested file does not exist in the store.
var ErrNotFound = errors.New("file not found")

// ErrConflict is returned when an upload carries a stale revision, meaning
// another writer changed the file after the caller loaded it. Nothing is
// written; the caller should reload and reapply its change.
var ErrConflict = errors.New("file revision conflict")

// ErrAuth is returned when credentials are missing or rejected, including
// impersonation denial. Not retryable.
var ErrAuth = errors.New("authentication failed")

// ErrPermission is returned when the session is valid but lacks access to
// the container or file.
var ErrPermission = errors.New("permission denied")

// ErrTransient is returned after a network or service hiccup survived the
// retry budget. The operation may succeed if repeated later.
var ErrTransient = errors.New("transient store error")

// FileRef is an opaque handle for a file in the store. Revision identifies
// the content generation observed when the ref was obtained; an empty
// Revision means unknown, which disables the conflict check on upload.
type FileRef struct {
	ID       string
	Name     string
	Revision string
}

// Store is the remote persistence interface for the shopping-list file.
// Implementations must make Upload atomic from the caller's perspective:
// after an error the prior content is still what Download returns.
type Store interface {
	// Authenticate establishes (or verifies) the credentialed session.
	// Implementations cache the session for the process lifetime; calling
	// this again is a health probe.
	Authenticate(ctx context.Context) error

	// FindByName looks a file up by exact name within the configured
	// container. Returns (nil, nil) when absent.
	FindByName(ctx context.Context, name string) (*FileRef, error)

	// Download retrieves the full content of a file plus a refreshed ref
	// carrying the current revision. Returns ErrNotFound if the file
	// vanished between lookup and fetch.
	Download(ctx context.Context, ref FileRef) ([]byte, FileRef, error)

	// Upload writes content. With prev == nil it creates a new file with
	// the given name in the configured container; otherwise it overwrites
	// prev, failing with ErrConflict when prev.Revision is stale.
	Upload(ctx context.Context, name string, content []byte, prev *FileRef) (FileRef, error)

	Close() error
}
