package database

import (
	"log"

	"gorm.io/gorm"
)

// cleanupLegacyRows removes rows that would violate the current schema.
// Runs BEFORE AutoMigrate so the primary key and not-null constraints apply cleanly.
func cleanupLegacyRows(db *gorm.DB) error {
	if !db.Migrator().HasTable("items") {
		return nil
	}

	// Rows imported without an id cannot be addressed by the API
	result := db.Exec(`DELETE FROM items WHERE id IS NULL OR id = ''`)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		log.Printf("Removed %d items without an id", result.RowsAffected)
	}
	return nil
}

// RunMigrations runs data migrations after schema changes.
// Safe to run repeatedly: each statement only touches rows still needing it.
func RunMigrations(db *gorm.DB) error {
	if err := migrateItemDefaults(db); err != nil {
		return err
	}
	return nil
}

// migrateItemDefaults fills the JSON columns and quantity of rows written
// before those columns existed, so decoding never sees NULL.
func migrateItemDefaults(db *gorm.DB) error {
	if !db.Migrator().HasTable("items") {
		return nil
	}

	steps := []struct {
		name string
		sql  string
	}{
		{"tags", `UPDATE items SET tags = '[]' WHERE tags IS NULL OR tags = ''`},
		{"price_history", `UPDATE items SET price_history = '[]' WHERE price_history IS NULL OR price_history = ''`},
		{"quantity", `UPDATE items SET quantity = 1 WHERE quantity IS NULL`},
	}

	for _, step := range steps {
		result := db.Exec(step.sql)
		if result.Error != nil {
			log.Printf("Warning: failed to migrate items.%s: %v", step.name, result.Error)
			continue
		}
		if result.RowsAffected > 0 {
			log.Printf("Migrated %d items rows (%s)", result.RowsAffected, step.name)
		}
	}
	return nil
}
