package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/alexivanou/geonames-sync/internal/config"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib" // Postgres driver for database/sql
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// Connect creates a database connection based on configuration using sqlx
func Connect(ctx context.Context, cfg config.DBConfig) (*sqlx.DB, error) {
	driverName := "pgx"
	if cfg.IsSQLite() {
		driverName = "sqlite3"
	}

	db, err := sqlx.ConnectContext(ctx, driverName, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if cfg.IsSQLite() {
		// One connection serializes writers and keeps a shared in-memory database alive.
		db.SetMaxOpenConns(1)

		if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
		}
	}

	return db, nil
}

// Migrate applies every pending migration found under dir (e.g. "migrations/sqlite").
// The database handle stays open after the call.
func Migrate(db *sqlx.DB, dbType config.DBType, dir string) error {
	m, err := NewMigrator(db, dbType, dir)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// NewMigrator wraps db in a migrate instance reading dir. Closing the
// instance closes db.
func NewMigrator(db *sqlx.DB, dbType config.DBType, dir string) (*migrate.Migrate, error) {
	var (
		driver database.Driver
		name   string
		err    error
	)

	switch dbType {
	case config.DBTypePostgreSQL:
		name = "postgres"
		driver, err = postgres.WithInstance(db.DB, &postgres.Config{})
	default:
		name = "sqlite3"
		driver, err = sqlite3.WithInstance(db.DB, &sqlite3.Config{})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+dir, name, driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migration instance: %w", err)
	}
	return m, nil
}

// MigrationsDir returns the migration directory for the dialect below root.
func MigrationsDir(root string, dbType config.DBType) string {
	if dbType == config.DBTypePostgreSQL {
		return root + "/postgres"
	}
	return root + "/sqlite"
}
