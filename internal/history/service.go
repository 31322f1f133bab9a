// Package history owns the list of generated documents: retention,
// legacy migration and encrypted staged persistence.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kenatst/docgen/internal/storage"
	"github.com/kenatst/docgen/internal/templates"
	"github.com/kenatst/docgen/internal/vault"
)

const (
	legacyKey  = "docgen_history"
	primaryKey = "docgen_secure_history_v1"
	stagingKey = "docgen_secure_history_v1_staging"
)

var (
	errMissingStore      = errors.New("key-value store is required")
	errMissingCipher     = errors.New("payload cipher is required")
	errMissingIDProvider = errors.New("id provider is required")
	errMissingContent    = errors.New("document content is required")
	noOpLogger           = zap.NewNop()
)

// ServiceError carries an operation.reason code alongside the cause.
type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error { return e.err }

// Code returns the machine-readable error code.
func (e *ServiceError) Code() string { return e.code }

const (
	opServiceNew = "history.service.new"
	opLoad       = "history.load"
	opAdd        = "history.add"
	opRemove     = "history.remove"
	opClear      = "history.clear"
	opPersist    = "history.persist"
)

func newServiceError(operation, reason string, cause error) error {
	return &ServiceError{code: fmt.Sprintf("%s.%s", operation, reason), err: cause}
}

// IDProvider issues identifiers for documents created without one.
type IDProvider interface {
	NewID() (string, error)
}

// ServiceConfig describes the dependencies of the history manager.
type ServiceConfig struct {
	Store         *storage.Store
	Cipher        *vault.Cipher
	Clock         func() time.Time
	IDProvider    IDProvider
	Logger        *zap.Logger
	RetentionDays int
	MaxDocuments  int
}

// Service keeps the in-memory history list and flushes every mutation to
// the encrypted store through the staged-write protocol. Mutations are
// serialized by the service mutex, so writes apply in submission order.
type Service struct {
	store         *storage.Store
	cipher        *vault.Cipher
	clock         func() time.Time
	idProvider    IDProvider
	logger        *zap.Logger
	retentionDays int
	maxDocuments  int

	mu      sync.Mutex
	history []GeneratedDocument
	loaded  bool
}

// NewService constructs the history manager.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, newServiceError(opServiceNew, "missing_store", errMissingStore)
	}
	if cfg.Cipher == nil {
		return nil, newServiceError(opServiceNew, "missing_cipher", errMissingCipher)
	}
	if cfg.IDProvider == nil {
		return nil, newServiceError(opServiceNew, "missing_id_provider", errMissingIDProvider)
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	retentionDays := cfg.RetentionDays
	if retentionDays <= 0 {
		retentionDays = 365
	}
	maxDocuments := cfg.MaxDocuments
	if maxDocuments <= 0 {
		maxDocuments = 300
	}

	return &Service{
		store:         cfg.Store,
		cipher:        cfg.Cipher,
		clock:         clock,
		idProvider:    cfg.IDProvider,
		logger:        logger,
		retentionDays: retentionDays,
		maxDocuments:  maxDocuments,
	}, nil
}

// Load returns the retained history, reading the encrypted snapshot (or
// migrating the legacy plaintext one) on first use.
func (s *Service) Load(ctx context.Context) ([]GeneratedDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	s.history = s.applyRetention(s.history)
	return append([]GeneratedDocument(nil), s.history...), nil
}

// Add prepends a freshly generated document, filling in its identifier
// and timestamps, and flushes the snapshot.
func (s *Service) Add(ctx context.Context, doc GeneratedDocument) (GeneratedDocument, error) {
	if doc.Content == "" {
		return GeneratedDocument{}, newServiceError(opAdd, "missing_content", errMissingContent)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(ctx); err != nil {
		return GeneratedDocument{}, err
	}

	if doc.ID == "" {
		id, err := s.idProvider.NewID()
		if err != nil {
			s.logError(opAdd, "id_generation_failed", err)
			return GeneratedDocument{}, newServiceError(opAdd, "id_generation_failed", err)
		}
		doc.ID = id
	}
	now := s.clock().UTC().Format(time.RFC3339)
	if doc.CreatedAt == "" {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = normalizeISODate(doc.UpdatedAt, s.clock())
	doc.Tone = templates.ParseTone(string(doc.Tone))

	next := append([]GeneratedDocument{doc}, s.history...)
	if err := s.commit(ctx, opAdd, next); err != nil {
		return GeneratedDocument{}, err
	}
	return doc, nil
}

// Remove deletes the document with the given id. Removing an unknown id
// is not an error.
func (s *Service) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(ctx); err != nil {
		return err
	}

	next := make([]GeneratedDocument, 0, len(s.history))
	for _, doc := range s.history {
		if doc.ID != id {
			next = append(next, doc)
		}
	}
	return s.commit(ctx, opRemove, next)
}

// Clear deletes the entire history.
func (s *Service) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(ctx); err != nil {
		return err
	}
	return s.commit(ctx, opClear, nil)
}

// Purge re-applies the retention policy without other changes.
func (s *Service) Purge(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(ctx); err != nil {
		return err
	}
	return s.commit(ctx, opLoad, s.history)
}

// ensureLoaded reads the persisted snapshot once. Callers hold the mutex.
func (s *Service) ensureLoaded(ctx context.Context) error {
	if s.loaded {
		return nil
	}

	docs, ok := s.readSecure(ctx)
	if !ok {
		migrated, err := s.readLegacy(ctx)
		if err != nil {
			s.logError(opLoad, "legacy_read_failed", err)
			return newServiceError(opLoad, "legacy_read_failed", err)
		}
		docs = migrated
	}

	s.history = s.applyRetention(docs)
	s.loaded = true

	// Re-persist immediately so migrated or expired data leaves the
	// store in the current encrypted format.
	if err := s.persist(ctx, s.history); err != nil {
		s.logError(opLoad, "initial_persist_failed", err)
	}
	return nil
}

// readSecure decodes the encrypted snapshot, trying the primary key and
// then the staging key left by an interrupted commit.
func (s *Service) readSecure(ctx context.Context) ([]GeneratedDocument, bool) {
	for _, key := range []string{primaryKey, stagingKey} {
		encrypted, found, err := s.store.Get(ctx, key)
		if err != nil {
			s.logError(opLoad, "snapshot_read_failed", err, zap.String("key", key))
			continue
		}
		if !found {
			continue
		}

		var payload snapshot
		if !s.cipher.DecryptPayload(ctx, encrypted, &payload) {
			s.logger.Warn("history snapshot undecodable, trying next source", zap.String("key", key))
			continue
		}
		if payload.History == nil {
			continue
		}
		return payload.History, true
	}
	return nil, false
}

// readLegacy normalizes the old unencrypted history array. Malformed
// records are dropped individually rather than failing the whole batch.
func (s *Service) readLegacy(ctx context.Context) ([]GeneratedDocument, error) {
	raw, found, err := s.store.Get(ctx, legacyKey)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}

	var rawDocs []rawDocument
	if err := json.Unmarshal([]byte(raw), &rawDocs); err != nil {
		s.logger.Warn("legacy history snapshot unreadable, discarding", zap.Error(err))
		return nil, nil
	}

	now := s.clock()
	docs := make([]GeneratedDocument, 0, len(rawDocs))
	for _, entry := range rawDocs {
		if doc := normalizeRaw(entry, now, s.generatedID); doc != nil {
			docs = append(docs, *doc)
		}
	}
	s.logger.Info("legacy history migrated", zap.Int("documents", len(docs)))
	return docs, nil
}

// commit applies retention, flushes the snapshot and only then updates the
// in-memory list, leaving prior state untouched when persistence fails.
func (s *Service) commit(ctx context.Context, operation string, next []GeneratedDocument) error {
	retained := s.applyRetention(next)
	if err := s.persist(ctx, retained); err != nil {
		s.logError(operation, "persist_failed", err)
		return newServiceError(operation, "persist_failed", err)
	}
	s.history = retained
	return nil
}

func (s *Service) persist(ctx context.Context, docs []GeneratedDocument) error {
	payload := snapshot{
		Version: snapshotVersion,
		SavedAt: s.clock().UTC().Format(time.RFC3339),
		History: docs,
	}
	if payload.History == nil {
		payload.History = []GeneratedDocument{}
	}

	encrypted, err := s.cipher.EncryptPayload(ctx, payload)
	if err != nil {
		return err
	}
	if err := s.store.CommitStaged(ctx, stagingKey, primaryKey, encrypted); err != nil {
		return err
	}
	// The legacy key is superseded once an encrypted write lands.
	return s.store.Delete(ctx, legacyKey)
}

// applyRetention drops entries older than the retention window,
// de-duplicates by id keeping the later-seen entry, sorts newest first
// and truncates to the document cap. Ordering compares parsed instants,
// not timestamp strings, so mixed UTC offsets rank chronologically.
func (s *Service) applyRetention(docs []GeneratedDocument) []GeneratedDocument {
	cutoff := s.clock().Add(-time.Duration(s.retentionDays) * 24 * time.Hour)

	type timedDocument struct {
		doc       GeneratedDocument
		createdAt time.Time
	}
	deduped := make(map[string]timedDocument, len(docs))
	order := make([]string, 0, len(docs))
	for _, doc := range docs {
		createdAt, err := time.Parse(time.RFC3339, doc.CreatedAt)
		if err != nil || createdAt.Before(cutoff) {
			continue
		}
		if _, seen := deduped[doc.ID]; !seen {
			order = append(order, doc.ID)
		}
		deduped[doc.ID] = timedDocument{doc: doc, createdAt: createdAt}
	}

	timed := make([]timedDocument, 0, len(deduped))
	for _, id := range order {
		timed = append(timed, deduped[id])
	}

	sort.SliceStable(timed, func(i, j int) bool {
		return timed[i].createdAt.After(timed[j].createdAt)
	})

	if len(timed) > s.maxDocuments {
		timed = timed[:s.maxDocuments]
	}
	retained := make([]GeneratedDocument, 0, len(timed))
	for _, entry := range timed {
		retained = append(retained, entry.doc)
	}
	return retained
}

func (s *Service) generatedID() string {
	id, err := s.idProvider.NewID()
	if err != nil {
		// Migration must not fail on id exhaustion; fall back to a
		// timestamp-derived identifier.
		return fmt.Sprintf("legacy-%d", s.clock().UnixNano())
	}
	return id
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.logger.Error("history service error", attrs...)
}
