package database

import (
	"context"
	"fmt"
	"time"

	"github.com/chamsedd0/neighbor/internal/config"
	"github.com/chamsedd0/neighbor/internal/gateway"
	"github.com/chamsedd0/neighbor/internal/migrations"
	"github.com/chamsedd0/neighbor/internal/models"
	"github.com/chamsedd0/neighbor/pkg/logger"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var DB *gorm.DB

// Connect opens the relational store named by DATABASE_DRIVER.
func Connect(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DatabaseDriver {
	case "sqlite":
		dsn := cfg.DatabaseURL
		if dsn == "" {
			dsn = "file:neighbor.db?_foreign_keys=on"
		}
		dialector = sqlite.Open(dsn)
	case "postgres", "":
		dialector = postgres.Open(cfg.DatabaseURL)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.DatabaseDriver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if cfg.DatabaseDriver == "sqlite" {
		// SQLite allows one writer; a single connection avoids SQLITE_BUSY.
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxLifetime(5 * time.Minute)
	}

	DB = db
	logger.Info().Str("driver", db.Dialector.Name()).Msg("Connected to database")
	return db, nil
}

// Migrate creates the tables and applies pending index migrations.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.Tables()...); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return migrations.NewMigrator(db).Run()
}

// Open builds the document gateway for the configured backend. feed may be
// nil for a process-local change feed.
func Open(ctx context.Context, cfg *config.Config, feed gateway.Feed) (gateway.Gateway, error) {
	if cfg.DatabaseDriver == "mongo" {
		db, err := ConnectMongo(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if err := EnsureMongoIndexes(ctx, db); err != nil {
			return nil, err
		}
		return gateway.NewMongo(db, feed), nil
	}

	db, err := Connect(cfg)
	if err != nil {
		return nil, err
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return gateway.NewGorm(db, feed), nil
}
