package database

import (
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const migrationRenameContactsKey = "2026-06-18_rename_contacts_key"

type migrationRecord struct {
	Name             string `gorm:"column:name;primaryKey;size:190;not null"`
	AppliedAtSeconds int64  `gorm:"column:applied_at_s;not null"`
}

func (migrationRecord) TableName() string {
	return "db_migrations"
}

type migrationDefinition struct {
	name  string
	apply func(*gorm.DB) error
}

func applyMigrations(db *gorm.DB, logger *zap.Logger) error {
	migrations := []migrationDefinition{
		{name: migrationRenameContactsKey, apply: renameContactsKey},
	}

	for _, migration := range migrations {
		var record migrationRecord
		err := db.Where("name = ?", migration.name).Take(&record).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := migration.apply(db); err != nil {
			return err
		}
		appliedAt := time.Now().UTC().Unix()
		if err := db.Create(&migrationRecord{Name: migration.name, AppliedAtSeconds: appliedAt}).Error; err != nil {
			return err
		}
		if logger != nil {
			logger.Info("database migration applied", zap.String("migration", migration.name))
		}
	}
	return nil
}

// renameContactsKey moves the address book snapshot from the pre-release key
// name to the versioned one, unless the new key already holds data.
func renameContactsKey(db *gorm.DB) error {
	const oldKey = "docgen_contacts"
	const newKey = "docgen_address_book_v1"

	return db.Exec(
		"UPDATE kv_entries SET key = ? WHERE key = ? AND NOT EXISTS (SELECT 1 FROM kv_entries WHERE key = ?);",
		newKey, oldKey, newKey,
	).Error
}
