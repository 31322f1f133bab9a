package database

import (
	"path/filepath"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/kenatst/docgen/internal/storage"
)

func TestApplyMigrationsRenamesContactsKey(testContext *testing.T) {
	tempDir := testContext.TempDir()
	databasePath := filepath.Join(tempDir, "migration.db")

	database, err := gorm.Open(sqlite.Open(databasePath), &gorm.Config{})
	if err != nil {
		testContext.Fatalf("failed to open sqlite: %v", err)
	}

	if err := database.AutoMigrate(&storage.Entry{}, &migrationRecord{}); err != nil {
		testContext.Fatalf("failed to migrate schema: %v", err)
	}

	legacy := storage.Entry{Key: "docgen_contacts", Value: `[{"id":"c-1"}]`, UpdatedAtSeconds: 1}
	if err := database.Create(&legacy).Error; err != nil {
		testContext.Fatalf("failed to insert legacy entry: %v", err)
	}

	if err := applyMigrations(database, zap.NewNop()); err != nil {
		testContext.Fatalf("failed to apply migrations: %v", err)
	}

	var renamed storage.Entry
	if err := database.Where("key = ?", "docgen_address_book_v1").Take(&renamed).Error; err != nil {
		testContext.Fatalf("expected renamed entry: %v", err)
	}
	if renamed.Value != legacy.Value {
		testContext.Fatalf("expected value to survive rename, got %q", renamed.Value)
	}

	var old storage.Entry
	if err := database.Where("key = ?", "docgen_contacts").Take(&old).Error; err == nil {
		testContext.Fatalf("expected legacy key to be gone")
	}

	var record migrationRecord
	if err := database.Where("name = ?", migrationRenameContactsKey).Take(&record).Error; err != nil {
		testContext.Fatalf("expected migration record to be created: %v", err)
	}
	if record.AppliedAtSeconds == 0 {
		testContext.Fatalf("expected migration timestamp to be set")
	}
}

func TestApplyMigrationsKeepsExistingVersionedKey(testContext *testing.T) {
	database, err := gorm.Open(sqlite.Open(filepath.Join(testContext.TempDir(), "migration.db")), &gorm.Config{})
	if err != nil {
		testContext.Fatalf("failed to open sqlite: %v", err)
	}
	if err := database.AutoMigrate(&storage.Entry{}, &migrationRecord{}); err != nil {
		testContext.Fatalf("failed to migrate schema: %v", err)
	}

	entries := []storage.Entry{
		{Key: "docgen_contacts", Value: `[{"id":"old"}]`, UpdatedAtSeconds: 1},
		{Key: "docgen_address_book_v1", Value: `[{"id":"new"}]`, UpdatedAtSeconds: 2},
	}
	if err := database.Create(&entries).Error; err != nil {
		testContext.Fatalf("failed to insert entries: %v", err)
	}

	if err := applyMigrations(database, zap.NewNop()); err != nil {
		testContext.Fatalf("failed to apply migrations: %v", err)
	}

	var kept storage.Entry
	if err := database.Where("key = ?", "docgen_address_book_v1").Take(&kept).Error; err != nil {
		testContext.Fatalf("expected versioned entry: %v", err)
	}
	if kept.Value != `[{"id":"new"}]` {
		testContext.Fatalf("expected versioned value to be untouched, got %q", kept.Value)
	}
}
