package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	errMissingDatabase = errors.New("database handle is required")
	errMissingKey      = errors.New("storage key is required")
	noOpLogger         = zap.NewNop()
)

// Entry models one persisted key-value row. Values are either opaque
// encrypted envelopes or plain JSON, depending on the logical store.
type Entry struct {
	Key              string `gorm:"column:key;primaryKey;size:190;not null"`
	Value            string `gorm:"column:value;type:text;not null"`
	UpdatedAtSeconds int64  `gorm:"column:updated_at_s;not null"`
}

// TableName provides the explicit table binding for GORM.
func (Entry) TableName() string {
	return "kv_entries"
}

// StoreConfig describes the dependencies of the key-value store.
type StoreConfig struct {
	Database *gorm.DB
	Clock    func() time.Time
	Logger   *zap.Logger
}

// Store is a serialized key-value facade over the SQLite database.
// All writes go through a single mutex so staged commit sequences from
// concurrent callers never interleave.
type Store struct {
	db      *gorm.DB
	clock   func() time.Time
	logger  *zap.Logger
	writeMu sync.Mutex
}

// NewStore constructs the key-value store.
func NewStore(cfg StoreConfig) (*Store, error) {
	if cfg.Database == nil {
		return nil, fmt.Errorf("storage: %w", errMissingDatabase)
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Store{db: cfg.Database, clock: clock, logger: logger}, nil
}

// Get returns the latest committed value for the key. The second return
// value reports whether the key exists.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	if key == "" {
		return "", false, fmt.Errorf("storage: %w", errMissingKey)
	}
	var entry Entry
	err := s.db.WithContext(ctx).Where("key = ?", key).Take(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return entry.Value, true, nil
}

// Set writes the value under the key, replacing any prior value.
func (s *Store) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return fmt.Errorf("storage: %w", errMissingKey)
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.set(ctx, key, value)
}

// Delete removes the key. Deleting an absent key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if key == "" {
		return fmt.Errorf("storage: %w", errMissingKey)
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.delete(ctx, key)
}

// CommitStaged performs the two-phase snapshot write: staging key first,
// then the primary key, then removal of the staging key. A crash mid-way
// leaves either the old primary value or a recoverable staging value.
func (s *Store) CommitStaged(ctx context.Context, stagingKey, primaryKey, value string) error {
	if stagingKey == "" || primaryKey == "" {
		return fmt.Errorf("storage: %w", errMissingKey)
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.set(ctx, stagingKey, value); err != nil {
		return err
	}
	if err := s.set(ctx, primaryKey, value); err != nil {
		return err
	}
	if err := s.delete(ctx, stagingKey); err != nil {
		s.logger.Warn("staging key cleanup failed",
			zap.String("key", stagingKey), zap.Error(err))
	}
	return nil
}

func (s *Store) set(ctx context.Context, key, value string) error {
	entry := Entry{Key: key, Value: value, UpdatedAtSeconds: s.clock().UTC().Unix()}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&entry).Error
}

func (s *Store) delete(ctx context.Context, key string) error {
	return s.db.WithContext(ctx).Where("key = ?", key).Delete(&Entry{}).Error
}
