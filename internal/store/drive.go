package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"

	"basket/internal/config"
	"basket/internal/redaction"
)

// Compile-time check that *Drive satisfies the Store interface.
var _ Store = (*Drive)(nil)

const (
	// driveScope grants full file access; the service account only sees
	// files inside the shared folder it was granted.
	driveScope = "https://www.googleapis.com/auth/drive"

	defaultDriveBaseURL = "https://www.googleapis.com"

	// driveUploadMIMEType is the content type of the list file itself.
	driveUploadMIMEType = "text/csv"

	// maxErrorBodySize caps how much of an API error body is read into
	// error messages.
	maxErrorBodySize = 4096
)

// Drive is a Store backed by the Google Drive v3 REST API. Files live
// in a single shared folder and are addressed by name; revisions map to
// Drive's headRevisionId. All requests run as a service account,
// optionally impersonating a workspace user via domain-wide delegation.
type Drive struct {
	folderID    string
	baseURL     string
	maxAttempts int

	jwtConfig   *jwt.Config
	tokenSource oauth2.TokenSource
	client      *http.Client

	log *zap.Logger
}

// DriveOption configures a Drive client.
type DriveOption func(*Drive)

// WithHTTPClient injects a pre-built HTTP client and skips credential
// loading entirely. Primarily for testing against a fake API server.
func WithHTTPClient(c *http.Client) DriveOption {
	return func(d *Drive) {
		d.client = c
	}
}

// WithTokenSource injects a token source instead of loading a
// service-account key.
func WithTokenSource(ts oauth2.TokenSource) DriveOption {
	return func(d *Drive) {
		d.tokenSource = ts
	}
}

// NewDrive creates a Drive store from configuration. Unless an HTTP
// client or token source is injected, the service-account key is loaded
// and parsed here so that misconfiguration surfaces at startup rather
// than on the first list operation.
func NewDrive(cfg config.DriveConfig, maxAttempts int, log *zap.Logger, opts ...DriveOption) (*Drive, error) {
	d := &Drive{
		folderID:    cfg.FolderID,
		baseURL:     strings.TrimSuffix(cfg.Endpoint, "/"),
		maxAttempts: maxAttempts,
		log:         log,
	}

	if d.baseURL == "" {
		d.baseURL = defaultDriveBaseURL
	}
	if d.maxAttempts < 1 {
		d.maxAttempts = 1
	}

	for _, opt := range opts {
		opt(d)
	}

	if d.client != nil {
		return d, nil
	}

	if d.tokenSource == nil {
		data, err := credentialsData(cfg)
		if err != nil {
			return nil, err
		}

		jwtCfg, err := google.JWTConfigFromJSON(data, driveScope)
		if err != nil {
			return nil, fmt.Errorf("%w: parsing service-account key: %v", ErrAuth, redaction.Scrub(err.Error()))
		}
		// Domain-wide delegation: requests run as this user, so files the
		// service account creates are owned by a real account.
		jwtCfg.Subject = cfg.Impersonate

		d.jwtConfig = jwtCfg
		d.tokenSource = jwtCfg.TokenSource(context.Background())
	}

	d.client = oauth2.NewClient(context.Background(), d.tokenSource)

	return d, nil
}

func credentialsData(cfg config.DriveConfig) ([]byte, error) {
	if cfg.CredentialsJSON != "" {
		return []byte(cfg.CredentialsJSON), nil
	}

	data, err := os.ReadFile(cfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("%w: reading service-account key: %v", ErrAuth, err)
	}

	return data, nil
}

// Authenticate validates the credentials by fetching a token. A denied
// impersonation subject or a revoked key fails here, before any list
// operation runs.
func (d *Drive) Authenticate(ctx context.Context) error {
	if d.jwtConfig != nil {
		if _, err := d.jwtConfig.TokenSource(ctx).Token(); err != nil {
			return fmt.Errorf("%w: %v", ErrAuth, redaction.Scrub(err.Error()))
		}

		return nil
	}

	if d.tokenSource != nil {
		if _, err := d.tokenSource.Token(); err != nil {
			return fmt.Errorf("%w: %v", ErrAuth, redaction.Scrub(err.Error()))
		}
	}

	return nil
}

// FindByName looks a file up by exact name inside the configured
// folder. Returns (nil, nil) when no such file exists. When concurrent
// first saves ever produced duplicates, the newest match wins; Drive
// lists newest first.
func (d *Drive) FindByName(ctx context.Context, name string) (*FileRef, error) {
	query := fmt.Sprintf("name='%s' and '%s' in parents and trashed=false",
		escapeQueryTerm(name), escapeQueryTerm(d.folderID))

	params := url.Values{}
	params.Set("q", query)
	params.Set("fields", "files(id,name,headRevisionId)")

	var list driveFileList
	if err := d.getJSON(ctx, d.baseURL+"/drive/v3/files?"+params.Encode(), &list); err != nil {
		return nil, fmt.Errorf("find %q: %w", name, err)
	}

	if len(list.Files) == 0 {
		return nil, nil
	}

	ref := list.Files[0].ref()

	return &ref, nil
}

// Download fetches the file content and its current revision. Metadata
// is read before content: if another writer lands between the two
// requests, the stale revision makes the next Upload fail its conflict
// check instead of silently overwriting the newer content.
func (d *Drive) Download(ctx context.Context, ref FileRef) ([]byte, FileRef, error) {
	meta, err := d.fileMetadata(ctx, ref.ID)
	if err != nil {
		return nil, FileRef{}, fmt.Errorf("download %s: %w", ref.ID, err)
	}

	var content []byte

	err = d.retry(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet,
			d.baseURL+"/drive/v3/files/"+url.PathEscape(ref.ID)+"?alt=media", nil)
		if err != nil {
			return backoff.Permanent(err)
		}

		resp, err := d.client.Do(req)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrTransient, err)
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusOK {
			return d.statusError(resp)
		}

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("%w: reading content: %v", ErrTransient, err)
		}
		content = data

		return nil
	})
	if err != nil {
		return nil, FileRef{}, fmt.Errorf("download %s: %w", ref.ID, err)
	}

	return content, meta.ref(), nil
}

// Upload writes content under the given name. With prev == nil a new
// file is created in the folder; otherwise prev.ID is overwritten after
// a revision pre-check. Drive has no atomic compare-and-swap for
// uploads, so a writer landing between the check and the write still
// wins the race; the check narrows the window, it cannot close it.
func (d *Drive) Upload(ctx context.Context, name string, content []byte, prev *FileRef) (FileRef, error) {
	if prev == nil {
		return d.create(ctx, name, content)
	}

	return d.update(ctx, content, *prev)
}

func (d *Drive) create(ctx context.Context, name string, content []byte) (FileRef, error) {
	// A concurrent first save would otherwise produce a second file with
	// the same name; Drive names are not unique.
	existing, err := d.FindByName(ctx, name)
	if err != nil {
		return FileRef{}, err
	}
	if existing != nil {
		return FileRef{}, fmt.Errorf("%w: %q was created concurrently", ErrConflict, name)
	}

	meta, err := json.Marshal(map[string]interface{}{
		"name":    name,
		"parents": []string{d.folderID},
	})
	if err != nil {
		return FileRef{}, fmt.Errorf("create %q: %w", name, err)
	}

	params := url.Values{}
	params.Set("uploadType", "multipart")
	params.Set("fields", "id,name,headRevisionId")

	var out driveFile

	err = d.retry(ctx, func() error {
		var body bytes.Buffer

		mw := multipart.NewWriter(&body)

		part, err := mw.CreatePart(textproto.MIMEHeader{"Content-Type": {"application/json; charset=UTF-8"}})
		if err != nil {
			return backoff.Permanent(err)
		}
		if _, err := part.Write(meta); err != nil {
			return backoff.Permanent(err)
		}

		part, err = mw.CreatePart(textproto.MIMEHeader{"Content-Type": {driveUploadMIMEType}})
		if err != nil {
			return backoff.Permanent(err)
		}
		if _, err := part.Write(content); err != nil {
			return backoff.Permanent(err)
		}

		if err := mw.Close(); err != nil {
			return backoff.Permanent(err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			d.baseURL+"/upload/drive/v3/files?"+params.Encode(), &body)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "multipart/related; boundary="+mw.Boundary())

		return d.doJSON(req, &out)
	})
	if err != nil {
		return FileRef{}, fmt.Errorf("create %q: %w", name, err)
	}

	ref := out.ref()
	if ref.Name == "" {
		ref.Name = name
	}

	d.log.Debug("created drive file",
		zap.String("name", ref.Name),
		zap.String("id", ref.ID),
		zap.String("revision", ref.Revision))

	return ref, nil
}

func (d *Drive) update(ctx context.Context, content []byte, prev FileRef) (FileRef, error) {
	// Pre-check: refuse the write when the head revision moved since the
	// content was loaded. An empty revision means unknown; skip the check.
	if prev.Revision != "" {
		meta, err := d.fileMetadata(ctx, prev.ID)
		if err != nil {
			return FileRef{}, fmt.Errorf("upload %s: %w", prev.ID, err)
		}
		if meta.HeadRevisionID != "" && meta.HeadRevisionID != prev.Revision {
			return FileRef{}, fmt.Errorf("%w: file %s changed since it was loaded", ErrConflict, prev.ID)
		}
	}

	params := url.Values{}
	params.Set("uploadType", "media")
	params.Set("fields", "id,name,headRevisionId")

	var out driveFile

	err := d.retry(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPatch,
			d.baseURL+"/upload/drive/v3/files/"+url.PathEscape(prev.ID)+"?"+params.Encode(),
			bytes.NewReader(content))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", driveUploadMIMEType)

		return d.doJSON(req, &out)
	})
	if err != nil {
		return FileRef{}, fmt.Errorf("upload %s: %w", prev.ID, err)
	}

	ref := out.ref()
	if ref.Name == "" {
		ref.Name = prev.Name
	}

	d.log.Debug("updated drive file",
		zap.String("id", ref.ID),
		zap.String("revision", ref.Revision))

	return ref, nil
}

// Close releases idle connections. Tokens expire on their own.
func (d *Drive) Close() error {
	d.client.CloseIdleConnections()

	return nil
}

// ---------------------------------------------------------------------------
// Wire types and request plumbing

type driveFile struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	HeadRevisionID string `json:"headRevisionId"`
}

func (f *driveFile) ref() FileRef {
	return FileRef{ID: f.ID, Name: f.Name, Revision: f.HeadRevisionID}
}

type driveFileList struct {
	Files []driveFile `json:"files"`
}

func (d *Drive) fileMetadata(ctx context.Context, id string) (*driveFile, error) {
	params := url.Values{}
	params.Set("fields", "id,name,headRevisionId")

	var f driveFile
	if err := d.getJSON(ctx, d.baseURL+"/drive/v3/files/"+url.PathEscape(id)+"?"+params.Encode(), &f); err != nil {
		return nil, err
	}

	return &f, nil
}

func (d *Drive) getJSON(ctx context.Context, rawURL string, out interface{}) error {
	return d.retry(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return backoff.Permanent(err)
		}

		return d.doJSON(req, out)
	})
}

// doJSON executes one request and decodes a 200 response into out.
// Errors are classified for the retry loop: transient failures come
// back bare, everything else is wrapped as permanent.
func (d *Drive) doJSON(req *http.Request, out interface{}) error {
	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransient, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return d.statusError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return backoff.Permanent(fmt.Errorf("failed to decode drive response: %w", err))
	}

	return nil
}

func (d *Drive) statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
	msg := redaction.Scrub(strings.TrimSpace(string(body)))

	err := fmt.Errorf("drive API returned status %d: %s", resp.StatusCode, msg)

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return backoff.Permanent(fmt.Errorf("%w: %v", ErrAuth, err))
	case resp.StatusCode == http.StatusForbidden:
		return backoff.Permanent(fmt.Errorf("%w: %v", ErrPermission, err))
	case resp.StatusCode == http.StatusNotFound:
		return backoff.Permanent(fmt.Errorf("%w: %v", ErrNotFound, err))
	case resp.StatusCode == http.StatusRequestTimeout,
		resp.StatusCode == http.StatusTooManyRequests,
		resp.StatusCode >= 500:
		return fmt.Errorf("%w: %v", ErrTransient, err)
	default:
		return backoff.Permanent(err)
	}
}

// retry runs op with exponential backoff until it succeeds, returns a
// permanent error, or the attempt budget is spent.
func (d *Drive) retry(ctx context.Context, op func() error) error {
	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(d.maxAttempts-1)), ctx)

	return backoff.RetryNotify(op, b, func(err error, wait time.Duration) {
		d.log.Warn("retrying drive request",
			zap.Error(err),
			zap.Duration("wait", wait))
	})
}

// escapeQueryTerm escapes a value for embedding in a Drive search
// query, where terms are single-quoted.
func escapeQueryTerm(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)

	return strings.ReplaceAll(s, `'`, `\'`)
}
