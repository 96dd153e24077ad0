package database

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"dramastream/catalogservice/internal/model"
)

type Config struct {
	// Driver is "postgres" or "sqlite".
	Driver      string
	PostgresDSN string
	SQLitePath  string
}

// Open connects to the configured database and migrates the catalog schema.
func Open(cfg Config) (*gorm.DB, error) {
	var (
		db  *gorm.DB
		err error
	)
	gormCfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)}

	switch cfg.Driver {
	case "postgres":
		db, err = gorm.Open(postgres.Open(cfg.PostgresDSN), gormCfg)
	case "sqlite", "":
		path := cfg.SQLitePath
		if path == "" {
			path = "catalog.db"
		}
		db, err = gorm.Open(sqlite.Open(path), gormCfg)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// OpenMemory opens a throwaway in-memory SQLite database. Test use only.
func OpenMemory() (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, err
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.Content{},
		&model.ContentLanguage{},
		&model.SyncLog{},
	); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}
