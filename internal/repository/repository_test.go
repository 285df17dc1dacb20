package repository

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alexivanou/geonames-sync/internal/config"
	"github.com/alexivanou/geonames-sync/internal/database"
	"github.com/alexivanou/geonames-sync/internal/model"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var runAt = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func setupRepo(t *testing.T, updatable map[string][]string) (*Container, *sqlx.DB) {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	cfg := config.DBConfig{Type: config.DBTypeMemory, Name: name}
	db, err := database.Connect(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, database.Migrate(db, config.DBTypeMemory, "../../migrations/sqlite"))
	return NewRepositories(db, config.DBTypeMemory, updatable), db
}

func str(s string) *string { return &s }

func continent(geonameID int64, code, name string) model.Continent {
	c := model.Continent{Code: code, Place: model.Place{GeonameID: geonameID, Name: name, FeatureCode: "CONT"}}
	c.Stamp(runAt)
	return c
}

func country(geonameID int64, code string, continentID int64) model.Country {
	c := model.Country{Code: code, ContinentID: continentID, Place: model.Place{GeonameID: geonameID, Name: code, FeatureCode: "PCLI"}}
	c.Stamp(runAt)
	return c
}

func city(geonameID int64, name, countryCode string, countryID int64) model.City {
	c := model.City{CountryCode: countryCode, CountryID: countryID, Place: model.Place{GeonameID: geonameID, Name: name, FeatureCode: "PPL", Population: 1000}}
	c.Stamp(runAt)
	return c
}

func translation(altID, entityID int64, locale, name string) model.Translation {
	tr := model.Translation{AlternateNameID: altID, EntityID: entityID, Locale: str(locale), Name: name}
	tr.Stamp(runAt)
	return tr
}

// seedGeography stores EU, UA and PL plus one city in each country.
func seedGeography(t *testing.T, repos *Container) (ua, pl int64) {
	t.Helper()
	ctx := context.Background()

	_, err := repos.Continents.Insert(ctx, []model.Continent{continent(6255148, "EU", "Europe")})
	require.NoError(t, err)
	eu, err := repos.Continents.FindByKey(ctx, 6255148)
	require.NoError(t, err)

	_, err = repos.Countries.Insert(ctx, []model.Country{country(690791, "UA", eu.ID), country(798544, "PL", eu.ID)})
	require.NoError(t, err)
	ids, err := repos.Lookup.CountryIDs(ctx, nil)
	require.NoError(t, err)

	_, err = repos.Cities.Insert(ctx, []model.City{
		city(703448, "Kyiv", "UA", ids["UA"]),
		city(756135, "Warsaw", "PL", ids["PL"]),
	})
	require.NoError(t, err)
	return ids["UA"], ids["PL"]
}

func TestStore_InsertAndUpsert(t *testing.T) {
	repos, _ := setupRepo(t, nil)
	ctx := context.Background()

	n, err := repos.Continents.Insert(ctx, []model.Continent{continent(6255148, "EU", "Old Europe")})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	t.Run("Insert ignores natural key conflicts", func(t *testing.T) {
		n, err := repos.Continents.Insert(ctx, []model.Continent{continent(6255148, "EU", "Europe")})
		require.NoError(t, err)
		assert.Zero(t, n)

		row, err := repos.Continents.FindByKey(ctx, 6255148)
		require.NoError(t, err)
		assert.Equal(t, "Old Europe", row.Name)
	})

	t.Run("Upsert updates by natural key", func(t *testing.T) {
		before, err := repos.Continents.FindByKey(ctx, 6255148)
		require.NoError(t, err)

		later := continent(6255148, "EU", "Europe")
		later.Stamp(runAt.Add(time.Hour))
		_, err = repos.Continents.Upsert(ctx, []model.Continent{later, continent(6255146, "AF", "Africa")})
		require.NoError(t, err)

		row, err := repos.Continents.FindByKey(ctx, 6255148)
		require.NoError(t, err)
		assert.Equal(t, "Europe", row.Name)
		assert.Equal(t, before.ID, row.ID)
		assert.True(t, row.CreatedAt.Equal(runAt))
		assert.True(t, row.UpdatedAt.Equal(runAt.Add(time.Hour)))

		count, err := repos.Continents.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)
	})

	t.Run("Missing key", func(t *testing.T) {
		row, err := repos.Continents.FindByKey(ctx, 1)
		require.NoError(t, err)
		assert.Nil(t, row)
	})
}

func TestStore_UpdatableOverride(t *testing.T) {
	repos, _ := setupRepo(t, map[string][]string{"continents": {"population"}})
	ctx := context.Background()

	_, err := repos.Continents.Insert(ctx, []model.Continent{continent(6255148, "EU", "Europe")})
	require.NoError(t, err)

	changed := continent(6255148, "EU", "Renamed")
	changed.Population = 741000000
	_, err = repos.Continents.Upsert(ctx, []model.Continent{changed})
	require.NoError(t, err)

	row, err := repos.Continents.FindByKey(ctx, 6255148)
	require.NoError(t, err)
	assert.Equal(t, "Europe", row.Name)
	assert.Equal(t, int64(741000000), row.Population)
	assert.Equal(t, []string{"population", "synced_at", "updated_at"}, repos.Continents.Table().Updatable)
}

func TestStore_Markers(t *testing.T) {
	repos, _ := setupRepo(t, nil)
	ctx := context.Background()
	seedGeography(t, repos)

	t.Run("Chunked reset", func(t *testing.T) {
		n, err := repos.Countries.ResetMarkers(ctx, Scope{}, 1)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		marked, err := repos.Countries.Exists(ctx, true, Scope{})
		require.NoError(t, err)
		assert.True(t, marked)

		_, err = repos.Countries.ResetMarkers(ctx, Scope{}, 1)
		require.NoError(t, err)
		marked, err = repos.Countries.Exists(ctx, true, Scope{})
		require.NoError(t, err)
		assert.False(t, marked)
	})

	t.Run("Scoped sweep", func(t *testing.T) {
		_, err := repos.Cities.ResetMarkers(ctx, Scope{}, 100)
		require.NoError(t, err)

		scope := CountryScope(model.KindCity, []string{"UA"})
		n, err := repos.Cities.DeleteUnmarked(ctx, scope, 100)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		kyiv, err := repos.Cities.FindByKey(ctx, 703448)
		require.NoError(t, err)
		assert.Nil(t, kyiv)

		warsaw, err := repos.Cities.FindByKey(ctx, 756135)
		require.NoError(t, err)
		assert.NotNil(t, warsaw)

		unmarked, err := repos.Cities.Exists(ctx, false, scope)
		require.NoError(t, err)
		assert.False(t, unmarked)
	})
}

func TestStore_ByKeys(t *testing.T) {
	repos, _ := setupRepo(t, nil)
	ctx := context.Background()
	seedGeography(t, repos)

	n, err := repos.Cities.ResetMarkersByKeys(ctx, []int64{703448, 1111111})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	warsaw, err := repos.Cities.FindByKey(ctx, 756135)
	require.NoError(t, err)
	assert.NotNil(t, warsaw.SyncedAt, "rows outside the key set keep their marker")

	n, err = repos.Cities.DeleteUnmarkedByKeys(ctx, []int64{703448, 756135})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = repos.Cities.DeleteByKeys(ctx, []int64{756135, 1111111})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	count, err := repos.Cities.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	n, err = repos.Cities.DeleteByKeys(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestStore_CascadeAndTruncate(t *testing.T) {
	repos, db := setupRepo(t, nil)
	ctx := context.Background()
	ua, _ := seedGeography(t, repos)

	_, err := repos.Translations[model.KindCountry].Insert(ctx, []model.Translation{translation(1, ua, "uk", "Україна")})
	require.NoError(t, err)

	_, err = repos.Countries.DeleteByKeys(ctx, []int64{690791})
	require.NoError(t, err)

	trCount, err := repos.Translations[model.KindCountry].Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, trCount, "translations follow their owner")

	cityCount, err := repos.Cities.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), cityCount, "cities follow their country")

	require.NoError(t, repos.Truncate(ctx))
	for _, s := range []interface {
		Count(context.Context) (int64, error)
	}{repos.Continents, repos.Countries, repos.Cities} {
		n, err := s.Count(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
	}

	empty, err := IsDatabaseEmpty(ctx, db)
	require.NoError(t, err)
	assert.True(t, empty)
}

func TestIsDatabaseEmpty(t *testing.T) {
	ctx := context.Background()

	t.Run("Unmigrated schema counts as empty", func(t *testing.T) {
		name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
		db, err := database.Connect(ctx, config.DBConfig{Type: config.DBTypeMemory, Name: name})
		require.NoError(t, err)
		defer db.Close()

		empty, err := IsDatabaseEmpty(ctx, db)
		require.NoError(t, err)
		assert.True(t, empty)
	})

	t.Run("Stored continent", func(t *testing.T) {
		repos, db := setupRepo(t, nil)
		_, err := repos.Continents.Insert(ctx, []model.Continent{continent(6255148, "EU", "Europe")})
		require.NoError(t, err)

		empty, err := IsDatabaseEmpty(ctx, db)
		require.NoError(t, err)
		assert.False(t, empty)
	})

	t.Run("Unreachable store is an error", func(t *testing.T) {
		_, db := setupRepo(t, nil)
		require.NoError(t, db.Close())

		empty, err := IsDatabaseEmpty(ctx, db)
		require.Error(t, err)
		assert.False(t, empty)
	})

	t.Run("Postgres undefined table", func(t *testing.T) {
		assert.True(t, isMissingTable(&pgconn.PgError{Code: "42P01"}))
		assert.False(t, isMissingTable(&pgconn.PgError{Code: "57P01"}))
		assert.False(t, isMissingTable(errors.New("connection refused")))
	})
}

func TestStore_IDsAreNotReused(t *testing.T) {
	repos, _ := setupRepo(t, nil)
	ctx := context.Background()

	_, err := repos.Continents.Insert(ctx, []model.Continent{continent(6255148, "EU", "Europe")})
	require.NoError(t, err)
	first, err := repos.Continents.FindByKey(ctx, 6255148)
	require.NoError(t, err)

	require.NoError(t, repos.Continents.Truncate(ctx))
	_, err = repos.Continents.Insert(ctx, []model.Continent{continent(6255146, "AF", "Africa")})
	require.NoError(t, err)
	second, err := repos.Continents.FindByKey(ctx, 6255146)
	require.NoError(t, err)

	assert.Greater(t, second.ID, first.ID)
}
