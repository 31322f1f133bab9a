package addressbook

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/kenatst/docgen/internal/storage"
)

func newTestService(t *testing.T) (*Service, *storage.Store) {
	t.Helper()

	dsn := fmt.Sprintf("file:addressbook_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&storage.Entry{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	store, err := storage.NewStore(storage.StoreConfig{Database: db})
	if err != nil {
		t.Fatalf("failed to construct store: %v", err)
	}
	service, err := NewService(ServiceConfig{Store: store})
	if err != nil {
		t.Fatalf("failed to construct service: %v", err)
	}
	return service, store
}

func TestAddAssignsIDAndPrepends(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	first, err := service.Add(ctx, Contact{Label: "Salle de sport", Nom: "Ma Salle de Sport"})
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if first.ID == "" {
		t.Fatalf("expected generated contact id")
	}

	second, err := service.Add(ctx, Contact{Label: "Employeur", Nom: "Société ACME"})
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}

	contacts, err := service.List(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(contacts) != 2 || contacts[0].ID != second.ID || contacts[1].ID != first.ID {
		t.Fatalf("expected newest-first order, got %v", contacts)
	}
}

func TestUpdateMergesNonEmptyFields(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	contact, err := service.Add(ctx, Contact{Label: "Salle", Nom: "Ma Salle", Adresse: "1 rue du Sport"})
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}

	updated, err := service.Update(ctx, contact.ID, Contact{Email: "contact@salle.fr"})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.Nom != "Ma Salle" || updated.Adresse != "1 rue du Sport" {
		t.Fatalf("expected untouched fields to survive, got %+v", updated)
	}
	if updated.Email != "contact@salle.fr" {
		t.Fatalf("expected email to be merged, got %+v", updated)
	}
}

func TestUpdateUnknownContactFails(t *testing.T) {
	service, _ := newTestService(t)

	if _, err := service.Update(context.Background(), "missing", Contact{Nom: "X"}); !errors.Is(err, ErrUnknownContact) {
		t.Fatalf("expected ErrUnknownContact, got %v", err)
	}
}

func TestRemoveIsIdempotent(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	contact, err := service.Add(ctx, Contact{Nom: "Ma Salle"})
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if err := service.Remove(ctx, contact.ID); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if err := service.Remove(ctx, contact.ID); err != nil {
		t.Fatalf("repeated remove failed: %v", err)
	}

	contacts, err := service.List(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(contacts) != 0 {
		t.Fatalf("expected empty address book, got %d", len(contacts))
	}
}

func TestContactsPersistAcrossServices(t *testing.T) {
	service, store := newTestService(t)
	ctx := context.Background()

	if _, err := service.Add(ctx, Contact{Nom: "Ma Salle"}); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	reloaded, err := NewService(ServiceConfig{Store: store})
	if err != nil {
		t.Fatalf("failed to construct service: %v", err)
	}
	contacts, err := reloaded.List(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(contacts) != 1 || contacts[0].Nom != "Ma Salle" {
		t.Fatalf("expected persisted contact, got %v", contacts)
	}
}

func TestCorruptSnapshotIsDiscarded(t *testing.T) {
	service, store := newTestService(t)
	ctx := context.Background()

	if err := store.Set(ctx, "docgen_address_book_v1", "{not json"); err != nil {
		t.Fatalf("failed to seed corrupt snapshot: %v", err)
	}

	contacts, err := service.List(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(contacts) != 0 {
		t.Fatalf("expected empty list after corrupt snapshot, got %d", len(contacts))
	}
}
