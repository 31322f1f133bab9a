package vault

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/kenatst/docgen/internal/storage"
)

func newTestStore(t *testing.T) *storage.Store {
	t.Helper()

	dsn := fmt.Sprintf("file:vault_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
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
	return store
}

func TestMasterSecretGeneratesAndPersistsKeyFile(t *testing.T) {
	keyPath := filepath.Join(t.TempDir(), "keys", "master.key")
	keystore, err := NewKeystore(KeystoreConfig{KeyPath: keyPath, Store: newTestStore(t)})
	if err != nil {
		t.Fatalf("failed to construct keystore: %v", err)
	}

	secret, err := keystore.MasterSecret(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(secret) != 64 {
		t.Fatalf("expected 64 hex characters, got %d", len(secret))
	}

	info, err := os.Stat(keyPath)
	if err != nil {
		t.Fatalf("expected key file to exist: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("expected 0600 permissions, got %v", info.Mode().Perm())
	}

	again, err := keystore.MasterSecret(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if again != secret {
		t.Fatalf("expected stable secret across calls")
	}
}

func TestMasterSecretReadsExistingKeyFile(t *testing.T) {
	keyPath := filepath.Join(t.TempDir(), "master.key")
	if err := os.WriteFile(keyPath, []byte("preexisting-secret\n"), 0o600); err != nil {
		t.Fatalf("failed to seed key file: %v", err)
	}

	keystore, err := NewKeystore(KeystoreConfig{KeyPath: keyPath, Store: newTestStore(t)})
	if err != nil {
		t.Fatalf("failed to construct keystore: %v", err)
	}

	secret, err := keystore.MasterSecret(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if secret != "preexisting-secret" {
		t.Fatalf("expected trimmed file content, got %q", secret)
	}
}

func TestMasterSecretRefusesUnusableKeyFileWithoutFallback(t *testing.T) {
	// A directory at the key path makes both read and write fail.
	keyPath := t.TempDir()

	keystore, err := NewKeystore(KeystoreConfig{KeyPath: keyPath, Store: newTestStore(t)})
	if err != nil {
		t.Fatalf("failed to construct keystore: %v", err)
	}

	if _, err := keystore.MasterSecret(context.Background()); !errors.Is(err, ErrSecureStoreUnavailable) {
		t.Fatalf("expected ErrSecureStoreUnavailable, got %v", err)
	}
}

func TestMasterSecretUsesFallbackSlotWhenAllowed(t *testing.T) {
	keyPath := t.TempDir()
	store := newTestStore(t)

	keystore, err := NewKeystore(KeystoreConfig{
		KeyPath:               keyPath,
		AllowInsecureFallback: true,
		Store:                 store,
	})
	if err != nil {
		t.Fatalf("failed to construct keystore: %v", err)
	}

	secret, err := keystore.MasterSecret(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stored, found, err := store.Get(context.Background(), "docgen_master_key_v1_fallback")
	if err != nil {
		t.Fatalf("fallback lookup failed: %v", err)
	}
	if !found || stored != secret {
		t.Fatalf("expected secret in fallback slot")
	}
}

func TestMasterSecretMigratesFallbackBackToKeyFile(t *testing.T) {
	keyPath := filepath.Join(t.TempDir(), "master.key")
	store := newTestStore(t)
	if err := store.Set(context.Background(), "docgen_master_key_v1_fallback", "fallback-secret"); err != nil {
		t.Fatalf("failed to seed fallback slot: %v", err)
	}

	keystore, err := NewKeystore(KeystoreConfig{KeyPath: keyPath, Store: store})
	if err != nil {
		t.Fatalf("failed to construct keystore: %v", err)
	}

	secret, err := keystore.MasterSecret(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if secret != "fallback-secret" {
		t.Fatalf("expected migrated fallback secret, got %q", secret)
	}

	raw, err := os.ReadFile(keyPath)
	if err != nil {
		t.Fatalf("expected key file after migration: %v", err)
	}
	if string(raw) != "fallback-secret" {
		t.Fatalf("unexpected key file content %q", raw)
	}

	if _, found, _ := store.Get(context.Background(), "docgen_master_key_v1_fallback"); found {
		t.Fatalf("expected fallback slot to be cleared after migration")
	}
}
