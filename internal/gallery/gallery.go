// Package gallery records exported drawings and generated images in a SQLite database.
package gallery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Kind is what produced a saved file.
type Kind string

const (
	KindPNG Kind = "png"
	KindPDF Kind = "pdf"
	KindAI  Kind = "ai"
)

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindPNG, KindPDF, KindAI:
		return true
	}
	return false
}

// Entry is one saved file.
type Entry struct {
	ID        uint      `gorm:"primaryKey"`
	Kind      Kind      `gorm:"size:8;index"`
	Path      string    `gorm:"not null"`
	Prompt    string
	Mode      string    `gorm:"size:32"`
	CreatedAt time.Time `gorm:"index"`
}

func (Entry) TableName() string { return "gallery_entries" }

// ErrInvalidEntry is returned by Record for entries without a path or with an unknown kind.
var ErrInvalidEntry = errors.New("invalid gallery entry")

// Store is the gallery database.
type Store struct {
	db  *gorm.DB
	log zerolog.Logger
}

// Open opens or creates the database at path and migrates it. An empty path opens a
// private in-memory database.
func Open(path string, log zerolog.Logger) (*Store, error) {
	log = log.With().Str("component", "gallery").Logger()
	dsn := path
	if dsn == "" {
		dsn = fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open gallery %q: %w", path, err)
	}
	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, fmt.Errorf("migrate gallery: %w", err)
	}

	if path == "" {
		log.Debug().Msg("using in-memory gallery")
	} else {
		log.Debug().Str("path", path).Msg("using gallery database")
	}
	return &Store{db: db, log: log}, nil
}

// Record stores e. A zero CreatedAt is set to now.
func (s *Store) Record(ctx context.Context, e *Entry) error {
	if e.Path == "" || !e.Kind.Valid() {
		return fmt.Errorf("%w: kind %q path %q", ErrInvalidEntry, e.Kind, e.Path)
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	if err := s.db.WithContext(ctx).Create(e).Error; err != nil {
		return fmt.Errorf("record %s: %w", e.Path, err)
	}
	s.log.Info().Str("kind", string(e.Kind)).Str("path", e.Path).Msg("saved to gallery")
	return nil
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	var entries []Entry
	err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("list gallery: %w", err)
	}
	return entries, nil
}

// Close releases the database.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to access sql interface: %w", err)
	}
	return sqlDB.Close()
}
