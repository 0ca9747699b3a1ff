package database

import (
	"path/filepath"
	"testing"

	"gorm.io/gorm/logger"

	"github.com/pokstore/backend/internal/models"
)

func TestOpenSQLiteMigrates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	db, err := Open(path, "", "silent")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	for _, table := range []string{"items", "users", "collection_value_snapshots"} {
		if !db.Migrator().HasTable(table) {
			t.Errorf("expected table %s to exist", table)
		}
	}
	if !db.Migrator().HasColumn(&models.Item{}, "set_name") {
		t.Error("expected items.set_name column")
	}
}

func TestRunMigrationsFillsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(path, "", "silent")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	if err := db.Exec(`INSERT INTO items (id, name, set_name, quantity, tags, price_history, created_at, updated_at) VALUES ('a', 'ETB', 'EV1', NULL, NULL, '', CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`).Error; err != nil {
		t.Fatalf("insert legacy row: %v", err)
	}

	if err := RunMigrations(db); err != nil {
		t.Fatalf("RunMigrations() error = %v", err)
	}

	var item models.Item
	if err := db.First(&item, "id = ?", "a").Error; err != nil {
		t.Fatalf("load item: %v", err)
	}
	if item.Quantity != 1 {
		t.Errorf("quantity = %d, want 1", item.Quantity)
	}
	if item.Tags == nil || len(item.Tags) != 0 {
		t.Errorf("tags = %#v, want empty slice", item.Tags)
	}
	if item.PriceHistory == nil || len(item.PriceHistory) != 0 {
		t.Errorf("price history = %#v, want empty slice", item.PriceHistory)
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]logger.LogLevel{
		"silent":  logger.Silent,
		"ERROR":   logger.Error,
		"info":    logger.Info,
		"":        logger.Warn,
		"unknown": logger.Warn,
	}
	for in, want := range tests {
		if got := parseLogLevel(in); got != want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestIsPostgresURL(t *testing.T) {
	if !isPostgresURL("postgres://u:p@localhost/db") {
		t.Error("postgres:// should be detected")
	}
	if isPostgresURL("./pokstore.db") {
		t.Error("file path is not a postgres url")
	}
}
