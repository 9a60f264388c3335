package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	// embeds the sqlite WASM build the gormlite driver runs on.
	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/ncruces/go-sqlite3/gormlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Compile-time check that *SQLite satisfies the Store interface.
var _ Store = (*SQLite)(nil)

// FileModel represents the files table.
type FileModel struct {
	ID        string `gorm:"primaryKey;type:text"`
	Name      string `gorm:"type:text;not null;uniqueIndex"`
	Content   []byte `gorm:"type:blob"`
	Revision  int64  `gorm:"not null;default:0"`
	UpdatedAt string `gorm:"type:text;not null"`
}

// TableName specifies the table name for GORM.
func (FileModel) TableName() string {
	return "files"
}

// Ref converts the row to a FileRef with the revision rendered opaque.
func (m *FileModel) Ref() FileRef {
	return FileRef{
		ID:       m.ID,
		Name:     m.Name,
		Revision: strconv.FormatInt(m.Revision, 10),
	}
}

// SQLite keeps the shared list file in a local sqlite database. It serves
// single-host deployments and tests; the revision check runs inside a
// transaction, so concurrent writers on the same database cannot silently
// overwrite each other.
type SQLite struct {
	db  *gorm.DB
	log *zap.Logger
}

// NewSQLite opens (creating if needed) the database at dbPath.
func NewSQLite(dbPath string, log *zap.Logger) (*SQLite, error) {
	dsn := "file:" + dbPath + "?_pragma=busy_timeout(5000)"

	gormDB, err := gorm.Open(gormlite.Open(dsn), &gorm.Config{
		Logger: logger.Discard,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open gorm connection: %w", err)
	}

	if err := gormDB.AutoMigrate(&FileModel{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &SQLite{db: gormDB, log: log}, nil
}

// Authenticate pings the database; there is no remote session to establish.
func (s *SQLite) Authenticate(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAuth, err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrAuth, err)
	}
	return nil
}

// FindByName looks up a file row by exact name.
func (s *SQLite) FindByName(ctx context.Context, name string) (*FileRef, error) {
	var m FileModel
	if err := s.db.WithContext(ctx).Where("name = ?", name).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("find %q: %w", name, err)
	}

	ref := m.Ref()
	return &ref, nil
}

// Download returns the stored content and a ref carrying the current revision.
func (s *SQLite) Download(ctx context.Context, ref FileRef) ([]byte, FileRef, error) {
	var m FileModel
	if err := s.db.WithContext(ctx).Where("id = ?", ref.ID).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, FileRef{}, fmt.Errorf("%w: %s", ErrNotFound, ref.ID)
		}
		return nil, FileRef{}, fmt.Errorf("download %s: %w", ref.ID, err)
	}

	return m.Content, m.Ref(), nil
}

// Upload writes content transactionally, enforcing the revision check.
func (s *SQLite) Upload(ctx context.Context, name string, content []byte, prev *FileRef) (FileRef, error) {
	var out FileRef
	now := time.Now().UTC().Format(time.RFC3339)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if prev == nil {
			// First save. A concurrent writer may have created the file
			// after our load saw nothing; creating over it would discard
			// their rows, so surface the race instead.
			var existing FileModel
			err := tx.Where("name = ?", name).First(&existing).Error
			if err == nil {
				return fmt.Errorf("%w: %q was created concurrently", ErrConflict, name)
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}

			m := FileModel{
				ID:        uuid.New().String(),
				Name:      name,
				Content:   content,
				Revision:  1,
				UpdatedAt: now,
			}
			if err := tx.Create(&m).Error; err != nil {
				return err
			}
			s.log.Debug("created list file", zap.String("name", name), zap.String("id", m.ID))
			out = m.Ref()
			return nil
		}

		var m FileModel
		if err := tx.Where("id = ?", prev.ID).First(&m).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: %s", ErrNotFound, prev.ID)
			}
			return err
		}

		if prev.Revision != "" && prev.Revision != strconv.FormatInt(m.Revision, 10) {
			return fmt.Errorf("%w: %q changed since load", ErrConflict, m.Name)
		}

		m.Content = content
		m.Revision++
		m.UpdatedAt = now
		if err := tx.Save(&m).Error; err != nil {
			return err
		}
		out = m.Ref()
		return nil
	})
	if err != nil {
		return FileRef{}, err
	}

	return out, nil
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}

	return sqlDB.Close()
}
