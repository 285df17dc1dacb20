package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/alexivanou/geonames-sync/internal/config"
	"github.com/alexivanou/geonames-sync/internal/model"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
)

// Store defines the bulk and marker operations the reconciliation engine runs
// against one table. Keys are natural keys (geoname_id / alternate_name_id).
type Store[T any] interface {
	// Insert adds rows, ignoring natural key conflicts.
	Insert(ctx context.Context, rows []T) (int64, error)
	// Upsert inserts rows or updates the updatable columns of existing ones.
	Upsert(ctx context.Context, rows []T) (int64, error)
	// Exists reports whether a row with (marked) or without (!marked) a sync marker exists in scope.
	Exists(ctx context.Context, marked bool, scope Scope) (bool, error)
	// ResetMarkers clears the marker of at most limit marked rows in scope.
	ResetMarkers(ctx context.Context, scope Scope, limit int) (int64, error)
	// DeleteUnmarked deletes at most limit unmarked rows in scope.
	DeleteUnmarked(ctx context.Context, scope Scope, limit int) (int64, error)
	ResetMarkersByKeys(ctx context.Context, keys []int64) (int64, error)
	DeleteUnmarkedByKeys(ctx context.Context, keys []int64) (int64, error)
	DeleteByKeys(ctx context.Context, keys []int64) (int64, error)
	Count(ctx context.Context) (int64, error)
	Truncate(ctx context.Context) error
	FindByKey(ctx context.Context, key int64) (*T, error)
	Table() Table
}

// EntityRepository defines the read side used by the status API
type EntityRepository interface {
	GetSummary(ctx context.Context, kind model.Kind, geonameID int64) (*model.EntitySummary, error)
	GetLocalizedName(ctx context.Context, kind model.Kind, entityID int64, lang string) (string, error)
	GetTranslations(ctx context.Context, kind model.Kind, entityID int64, lang string) ([]model.TranslationResult, error)
}

// Container holds all repositories
type Container struct {
	Continents   Store[model.Continent]
	Countries    Store[model.Country]
	Divisions    Store[model.Division]
	Cities       Store[model.City]
	Translations map[model.Kind]Store[model.Translation]
	Lookup       *Lookup
	Entity       EntityRepository
	Runs         *RunLog
}

// NewRepositories creates repository implementations based on DB type.
// updatable overrides the upsert column list per table name.
func NewRepositories(db *sqlx.DB, dbType config.DBType, updatable map[string][]string) *Container {
	var d dialect = sqliteDialect{}
	if dbType == config.DBTypePostgreSQL {
		d = postgresDialect{}
	}

	translations := make(map[model.Kind]Store[model.Translation], len(model.Kinds))
	for _, kind := range model.Kinds {
		translations[kind] = newStore[model.Translation](db, d, translationTable(kind).withUpdatable(updatable))
	}

	return &Container{
		Continents:   newStore[model.Continent](db, d, continentTable.withUpdatable(updatable)),
		Countries:    newStore[model.Country](db, d, countryTable.withUpdatable(updatable)),
		Divisions:    newStore[model.Division](db, d, divisionTable.withUpdatable(updatable)),
		Cities:       newStore[model.City](db, d, cityTable.withUpdatable(updatable)),
		Translations: translations,
		Lookup:       &Lookup{db: db, dialect: d},
		Entity:       &entityRepository{db: db},
		Runs:         NewRunLog(db),
	}
}

// Truncate empties every managed table in reverse dependency order.
func (c *Container) Truncate(ctx context.Context) error {
	for i := len(model.Kinds) - 1; i >= 0; i-- {
		if err := c.Translations[model.Kinds[i]].Truncate(ctx); err != nil {
			return err
		}
	}
	stores := []interface{ Truncate(context.Context) error }{c.Cities, c.Divisions, c.Countries, c.Continents}
	for _, s := range stores {
		if err := s.Truncate(ctx); err != nil {
			return err
		}
	}
	return nil
}

// IsDatabaseEmpty reports whether no continent is stored yet. A schema that
// has not been migrated counts as empty; any other error is returned.
func IsDatabaseEmpty(ctx context.Context, db *sqlx.DB) (bool, error) {
	var count int
	query := "SELECT COUNT(*) FROM continents"
	err := db.GetContext(ctx, &count, query)
	if err != nil {
		if isMissingTable(err) {
			return true, nil
		}
		return false, fmt.Errorf("failed to count continents: %w", err)
	}
	return count == 0, nil
}

// isMissingTable recognizes undefined_table on PostgreSQL and the matching
// SQLite message.
func isMissingTable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "42P01"
	}
	return strings.Contains(err.Error(), "no such table")
}
