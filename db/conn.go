// Package db opens the database and keeps the schema up to date
package db

import (
	"bitwise74/blog-api/internal/model"
	"bitwise74/blog-api/pkg/util"
	"errors"
	"fmt"
	"os"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Config struct {
	Driver string // sqlite or postgres
	DSN    string
}

func New(cfg Config) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch cfg.Driver {
	case "", "sqlite":
		if cfg.DSN == "" {
			cfg.DSN = "database.db"
		}

		// If running in a docker container don't allow the sqlite file to be created.
		// The host should instead mount it using volumes
		if util.IsRunningInDocker() && cfg.DSN == "database.db" {
			if _, err := os.Stat(cfg.DSN); errors.Is(err, os.ErrNotExist) {
				return nil, errors.New("SQLite database file not mounted, please use docker volumes to mount it to /app/database.db")
			}
		}

		dialector = sqlite.Open(cfg.DSN)
	case "postgres":
		if cfg.DSN == "" {
			return nil, errors.New("postgres driver needs a dsn")
		}

		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := Open(dialector)
	if err != nil {
		return nil, err
	}

	if cfg.Driver == "" || cfg.Driver == "sqlite" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get sql handle, %w", err)
		}

		// SQLite has a single writer. Queue on the pool instead of failing with SQLITE_BUSY
		sqlDB.SetMaxOpenConns(1)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

// Open opens a connection with the settings the app relies on. Tests use it
// directly with an in-memory sqlite dialector.
func Open(d gorm.Dialector) (*gorm.DB, error) {
	db, err := gorm.Open(d, &gorm.Config{
		// Unique violations come back as gorm.ErrDuplicatedKey
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database, %w", err)
	}

	return db, nil
}

func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		model.User{},
		model.PasswordResetOTP{},
		model.Post{},
		model.Comment{},
		model.PostLike{},
		model.CommentLike{},
	)
	if err != nil {
		return fmt.Errorf("failed to automigrate tables, %w", err)
	}

	return nil
}
