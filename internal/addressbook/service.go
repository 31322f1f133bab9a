// Package addressbook keeps the saved recipient contacts as plain JSON
// in the key-value store.
package addressbook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kenatst/docgen/internal/storage"
)

const storageKey = "docgen_address_book_v1"

var (
	errMissingStore = errors.New("addressbook: key-value store is required")
	// ErrUnknownContact is returned when an update names no known entry.
	ErrUnknownContact = errors.New("addressbook: unknown contact id")
	noOpLogger        = zap.NewNop()
)

// Contact is one saved recipient.
type Contact struct {
	ID      string `json:"id"`
	Label   string `json:"label"`
	Nom     string `json:"nom"`
	Adresse string `json:"adresse"`
	Email   string `json:"email,omitempty"`
	Tel     string `json:"tel,omitempty"`
}

// ServiceConfig describes the dependencies of the address book.
type ServiceConfig struct {
	Store  *storage.Store
	Logger *zap.Logger
}

// Service owns the in-memory contact list; writes are serialized.
type Service struct {
	store  *storage.Store
	logger *zap.Logger

	mu       sync.Mutex
	contacts []Contact
	loaded   bool
}

// NewService constructs the address book service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, errMissingStore
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Service{store: cfg.Store, logger: logger}, nil
}

// List returns the saved contacts, newest first.
func (s *Service) List(ctx context.Context) ([]Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	return append([]Contact(nil), s.contacts...), nil
}

// Add prepends a contact and returns it with its generated id.
func (s *Service) Add(ctx context.Context, contact Contact) (Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(ctx); err != nil {
		return Contact{}, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return Contact{}, fmt.Errorf("addressbook: id generation failed: %w", err)
	}
	contact.ID = id.String()
	next := append([]Contact{contact}, s.contacts...)
	if err := s.persist(ctx, next); err != nil {
		return Contact{}, err
	}
	s.contacts = next
	return contact, nil
}

// Update merges non-empty fields into the contact with the given id.
func (s *Service) Update(ctx context.Context, id string, updates Contact) (Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(ctx); err != nil {
		return Contact{}, err
	}

	next := append([]Contact(nil), s.contacts...)
	var updated *Contact
	for i := range next {
		if next[i].ID != id {
			continue
		}
		if updates.Label != "" {
			next[i].Label = updates.Label
		}
		if updates.Nom != "" {
			next[i].Nom = updates.Nom
		}
		if updates.Adresse != "" {
			next[i].Adresse = updates.Adresse
		}
		if updates.Email != "" {
			next[i].Email = updates.Email
		}
		if updates.Tel != "" {
			next[i].Tel = updates.Tel
		}
		updated = &next[i]
	}
	if updated == nil {
		return Contact{}, ErrUnknownContact
	}
	if err := s.persist(ctx, next); err != nil {
		return Contact{}, err
	}
	s.contacts = next
	return *updated, nil
}

// Remove deletes the contact. Removing an unknown id is not an error.
func (s *Service) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(ctx); err != nil {
		return err
	}

	next := make([]Contact, 0, len(s.contacts))
	for _, contact := range s.contacts {
		if contact.ID != id {
			next = append(next, contact)
		}
	}
	if err := s.persist(ctx, next); err != nil {
		return err
	}
	s.contacts = next
	return nil
}

func (s *Service) ensureLoaded(ctx context.Context) error {
	if s.loaded {
		return nil
	}

	raw, found, err := s.store.Get(ctx, storageKey)
	if err != nil {
		return err
	}
	if found {
		var parsed []Contact
		if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
			s.logger.Warn("address book snapshot unreadable, discarding", zap.Error(err))
		} else {
			s.contacts = parsed
		}
	}
	s.loaded = true
	return nil
}

func (s *Service) persist(ctx context.Context, contacts []Contact) error {
	encoded, err := json.Marshal(contacts)
	if err != nil {
		return fmt.Errorf("addressbook: serialization failed: %w", err)
	}
	return s.store.Set(ctx, storageKey, string(encoded))
}
