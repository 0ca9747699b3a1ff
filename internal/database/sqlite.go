package database

import (
	"database/sql"
	"fmt"
	"log"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/pokstore/backend/internal/models"
)

var DB *gorm.DB

// Initialize opens the database and migrates the schema. A postgres
// DATABASE_URL takes precedence over the sqlite file path.
func Initialize(dbPath, databaseURL, logLevel string) error {
	db, err := Open(dbPath, databaseURL, logLevel)
	if err != nil {
		return err
	}
	DB = db
	return nil
}

// Open connects and migrates without touching the package-level DB.
func Open(dbPath, databaseURL, logLevel string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	if isPostgresURL(databaseURL) {
		sqlDB, err := sql.Open("pgx", databaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres connection: %w", err)
		}
		dialector = postgres.New(postgres.Config{Conn: sqlDB})
	} else {
		dialector = sqlite.Open(dbPath)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(parseLogLevel(logLevel)),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Database connected successfully (%s)", dialector.Name())

	if err := cleanupLegacyRows(db); err != nil {
		log.Printf("Warning: legacy row cleanup failed: %v", err)
	}

	err = db.AutoMigrate(&models.Item{}, &models.User{}, &models.CollectionValueSnapshot{})
	if err != nil {
		return nil, err
	}

	if err := RunMigrations(db); err != nil {
		return nil, err
	}

	log.Println("Database migration completed")
	return db, nil
}

func GetDB() *gorm.DB {
	return DB
}

func isPostgresURL(u string) bool {
	return strings.HasPrefix(u, "postgres://") || strings.HasPrefix(u, "postgresql://")
}

func parseLogLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}
