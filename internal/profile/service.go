// Package profile owns the multi-profile sender identities, their active
// pointer and the debounced encrypted persistence of the active profile.
package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kenatst/docgen/internal/storage"
	"github.com/kenatst/docgen/internal/vault"
)

const (
	legacyKey        = "docgen_user_profile_v1"
	securePrimaryKey = "docgen_user_profile_secure_v1"
	secureStagingKey = "docgen_user_profile_secure_v1_staging"
	multiProfilesKey = "docgen_multi_profiles_v1"
	activeProfileKey = "docgen_active_profile_id"

	defaultProfileLabel = "Personnel"
)

var (
	errMissingStore      = errors.New("key-value store is required")
	errMissingCipher     = errors.New("payload cipher is required")
	errMissingIDProvider = errors.New("id provider is required")
	// ErrLastProfile is returned when deleting the only remaining profile.
	ErrLastProfile = errors.New("profile: cannot delete the last profile")
	// ErrUnknownProfile is returned when an operation names no known entry.
	ErrUnknownProfile = errors.New("profile: unknown profile id")
	noOpLogger        = zap.NewNop()
)

// IDProvider issues identifiers for new profile entries.
type IDProvider interface {
	NewID() (string, error)
}

// ServiceConfig describes the dependencies of the profile manager.
type ServiceConfig struct {
	Store      *storage.Store
	Cipher     *vault.Cipher
	Clock      func() time.Time
	IDProvider IDProvider
	Logger     *zap.Logger
	// AutosaveQuiet is the debounce window: rapid SaveProfile calls
	// coalesce into a single persist once edits pause this long.
	AutosaveQuiet time.Duration
}

// Service keeps the profile list in memory and serializes all writes.
type Service struct {
	store         *storage.Store
	cipher        *vault.Cipher
	clock         func() time.Time
	idProvider    IDProvider
	logger        *zap.Logger
	autosaveQuiet time.Duration

	mu           sync.Mutex
	entries      []Entry
	activeID     string
	applyVersion int64
	loaded       bool
	pendingSave  *time.Timer
}

// NewService constructs the profile manager.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("profile: %w", errMissingStore)
	}
	if cfg.Cipher == nil {
		return nil, fmt.Errorf("profile: %w", errMissingCipher)
	}
	if cfg.IDProvider == nil {
		return nil, fmt.Errorf("profile: %w", errMissingIDProvider)
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	quiet := cfg.AutosaveQuiet
	if quiet <= 0 {
		quiet = 600 * time.Millisecond
	}

	return &Service{
		store:         cfg.Store,
		cipher:        cfg.Cipher,
		clock:         clock,
		idProvider:    cfg.IDProvider,
		logger:        logger,
		autosaveQuiet: quiet,
	}, nil
}

// Load returns the profile entries and the active profile id, migrating
// legacy single-profile stores into a first named entry on first use.
func (s *Service) Load(ctx context.Context) ([]Entry, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(ctx); err != nil {
		return nil, "", err
	}
	return append([]Entry(nil), s.entries...), s.activeID, nil
}

// Active returns the currently active profile.
func (s *Service) Active(ctx context.Context) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(ctx); err != nil {
		return Entry{}, err
	}
	return s.activeEntry(), nil
}

// SaveProfile replaces the active entry's profile and schedules a
// debounced persist. Edits landing inside the quiet window coalesce into
// one write carrying the latest content.
func (s *Service) SaveProfile(ctx context.Context, next UserProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(ctx); err != nil {
		return err
	}

	for i := range s.entries {
		if s.entries[i].ID == s.activeID {
			s.entries[i].Profile = next
		}
	}
	s.schedulePersist()
	return nil
}

// UpdateField updates a single field of the active profile and schedules
// a debounced persist. The read-modify-write runs under the service mutex
// so a concurrent save cannot slip between snapshot and write-back.
func (s *Service) UpdateField(ctx context.Context, field, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(ctx); err != nil {
		return err
	}

	next := s.activeEntry().Profile
	switch field {
	case "expediteur_nom":
		next.Nom = value
	case "expediteur_adresse":
		next.Adresse = value
	case "expediteur_email":
		next.Email = value
	case "expediteur_tel":
		next.Tel = value
	case "lieu":
		next.Lieu = value
	case "signatureDataUri":
		next.SignatureDataURI = value
	default:
		return fmt.Errorf("profile: unknown field %q", field)
	}

	for i := range s.entries {
		if s.entries[i].ID == s.activeID {
			s.entries[i].Profile = next
		}
	}
	s.schedulePersist()
	return nil
}

// Flush forces any pending debounced save to persist now.
func (s *Service) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pendingSave != nil {
		s.pendingSave.Stop()
		s.pendingSave = nil
	}
	if !s.loaded {
		return nil
	}
	return s.persistAll(ctx)
}

// Switch makes the given profile active and refreshes the legacy snapshot.
func (s *Service) Switch(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(ctx); err != nil {
		return err
	}
	if _, ok := s.findEntry(id); !ok {
		return ErrUnknownProfile
	}
	s.activeID = id
	return s.persistAll(ctx)
}

// Add creates a new empty profile with the label, makes it active and
// returns its id.
func (s *Service) Add(ctx context.Context, label string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(ctx); err != nil {
		return "", err
	}

	id, err := s.idProvider.NewID()
	if err != nil {
		return "", fmt.Errorf("profile: id generation failed: %w", err)
	}
	s.entries = append(s.entries, Entry{ID: id, Label: label})
	s.activeID = id
	if err := s.persistAll(ctx); err != nil {
		return "", err
	}
	return id, nil
}

// Delete removes the profile. The last remaining profile cannot be
// deleted; when the active profile is removed the first remaining entry
// becomes active.
func (s *Service) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(ctx); err != nil {
		return err
	}
	if _, ok := s.findEntry(id); !ok {
		return ErrUnknownProfile
	}
	if len(s.entries) <= 1 {
		return ErrLastProfile
	}

	next := make([]Entry, 0, len(s.entries)-1)
	for _, entry := range s.entries {
		if entry.ID != id {
			next = append(next, entry)
		}
	}
	s.entries = next
	if s.activeID == id {
		s.activeID = next[0].ID
	}
	return s.persistAll(ctx)
}

// Rename relabels the profile.
func (s *Service) Rename(ctx context.Context, id, label string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(ctx); err != nil {
		return err
	}
	found := false
	for i := range s.entries {
		if s.entries[i].ID == id {
			s.entries[i].Label = label
			found = true
		}
	}
	if !found {
		return ErrUnknownProfile
	}
	return s.persistAll(ctx)
}

// RequestApply bumps the apply counter that form screens observe to know
// when to re-pull profile defaults into an in-progress form.
func (s *Service) RequestApply() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applyVersion++
	return s.applyVersion
}

// ApplyVersion returns the current apply counter value.
func (s *Service) ApplyVersion() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applyVersion
}

func (s *Service) activeEntry() Entry {
	if entry, ok := s.findEntry(s.activeID); ok {
		return entry
	}
	if len(s.entries) > 0 {
		return s.entries[0]
	}
	return Entry{}
}

func (s *Service) findEntry(id string) (Entry, bool) {
	for _, entry := range s.entries {
		if entry.ID == id {
			return entry, true
		}
	}
	return Entry{}, false
}

// ensureLoaded reads the multi-profile list, falling back to the legacy
// encrypted and plaintext single-profile stores. Callers hold the mutex.
func (s *Service) ensureLoaded(ctx context.Context) error {
	if s.loaded {
		return nil
	}

	entries := s.readMultiProfiles(ctx)
	activeID, _, err := s.readActiveID(ctx)
	if err != nil {
		return err
	}

	if len(entries) == 0 {
		migrated := s.readLegacyProfile(ctx)
		id, err := s.idProvider.NewID()
		if err != nil {
			return fmt.Errorf("profile: id generation failed: %w", err)
		}
		entries = []Entry{{ID: id, Label: defaultProfileLabel, Profile: migrated}}
		activeID = id
	}

	if _, ok := findIn(entries, activeID); !ok {
		activeID = entries[0].ID
	}

	s.entries = entries
	s.activeID = activeID
	s.loaded = true

	if err := s.persistAll(ctx); err != nil {
		s.logger.Error("initial profile persist failed", zap.Error(err))
	}
	return nil
}

func (s *Service) readMultiProfiles(ctx context.Context) []Entry {
	raw, found, err := s.store.Get(ctx, multiProfilesKey)
	if err != nil || !found {
		return nil
	}
	var entries []Entry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		s.logger.Warn("multi-profile snapshot unreadable, discarding", zap.Error(err))
		return nil
	}
	return entries
}

func (s *Service) readActiveID(ctx context.Context) (string, bool, error) {
	id, found, err := s.store.Get(ctx, activeProfileKey)
	if err != nil {
		return "", false, err
	}
	return id, found, nil
}

// readLegacyProfile tries the encrypted single-profile snapshot (primary
// then staging), then the plaintext one. Failures mean an empty profile.
func (s *Service) readLegacyProfile(ctx context.Context) UserProfile {
	for _, key := range []string{securePrimaryKey, secureStagingKey} {
		encrypted, found, err := s.store.Get(ctx, key)
		if err != nil || !found {
			continue
		}
		var payload legacySnapshot
		if s.cipher.DecryptPayload(ctx, encrypted, &payload) {
			return payload.Profile
		}
	}

	raw, found, err := s.store.Get(ctx, legacyKey)
	if err != nil || !found {
		return UserProfile{}
	}
	var parsed UserProfile
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return UserProfile{}
	}
	return parsed
}

// schedulePersist (re)arms the debounce timer. Callers hold the mutex.
func (s *Service) schedulePersist() {
	if s.pendingSave != nil {
		s.pendingSave.Stop()
	}
	s.pendingSave = time.AfterFunc(s.autosaveQuiet, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.pendingSave = nil
		if err := s.persistAll(context.Background()); err != nil {
			s.logger.Error("debounced profile persist failed", zap.Error(err))
		}
	})
}

// persistAll writes the multi-profile list, the active pointer and the
// legacy-compatible encrypted snapshot of the active profile. Callers
// hold the mutex.
func (s *Service) persistAll(ctx context.Context) error {
	encoded, err := json.Marshal(s.entries)
	if err != nil {
		return fmt.Errorf("profile: list serialization failed: %w", err)
	}
	if err := s.store.Set(ctx, multiProfilesKey, string(encoded)); err != nil {
		return err
	}
	if err := s.store.Set(ctx, activeProfileKey, s.activeID); err != nil {
		return err
	}
	return s.persistLegacySnapshot(ctx, s.activeEntry().Profile)
}

func (s *Service) persistLegacySnapshot(ctx context.Context, active UserProfile) error {
	payload := legacySnapshot{
		Version: legacySnapshotVersion,
		SavedAt: s.clock().UTC().Format(time.RFC3339),
		Profile: active,
	}
	encrypted, err := s.cipher.EncryptPayload(ctx, payload)
	if err != nil {
		return err
	}
	if err := s.store.CommitStaged(ctx, secureStagingKey, securePrimaryKey, encrypted); err != nil {
		return err
	}
	return s.store.Delete(ctx, legacyKey)
}

func findIn(entries []Entry, id string) (Entry, bool) {
	for _, entry := range entries {
		if entry.ID == id {
			return entry, true
		}
	}
	return Entry{}, false
}
