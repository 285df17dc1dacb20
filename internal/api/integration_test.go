package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alexivanou/geonames-sync/internal/config"
	"github.com/alexivanou/geonames-sync/internal/database"
	"github.com/alexivanou/geonames-sync/internal/metrics"
	"github.com/alexivanou/geonames-sync/internal/model"
	"github.com/alexivanou/geonames-sync/internal/repository"
	"github.com/alexivanou/geonames-sync/internal/service"
	"github.com/alexivanou/geonames-sync/internal/stats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func str(s string) *string { return &s }

func setupIntegrationStack(t *testing.T) http.Handler {
	cfg := config.DBConfig{
		Type: config.DBTypeMemory,
		Name: strings.NewReplacer("/", "_", " ", "_").Replace(t.Name()),
	}

	db, err := database.Connect(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(db, cfg.Type, "../../migrations/sqlite"))

	ctx := context.Background()
	runAt := time.Date(2024, 3, 1, 2, 0, 0, 0, time.UTC)
	repos := repository.NewRepositories(db, cfg.Type, nil)

	eu := model.Continent{Code: "EU", Place: model.Place{GeonameID: 6255148, Name: "Europe", FeatureCode: "CONT"}}
	eu.Stamp(runAt)
	_, err = repos.Continents.Insert(ctx, []model.Continent{eu})
	require.NoError(t, err)
	ids, err := repos.Lookup.ContinentIDs(ctx)
	require.NoError(t, err)

	ie := model.Country{Code: "IE", ContinentID: ids["EU"], Place: model.Place{GeonameID: 2963597, Name: "Ireland", FeatureCode: "PCLI"}}
	ie.Stamp(runAt)
	_, err = repos.Countries.Insert(ctx, []model.Country{ie})
	require.NoError(t, err)
	countries, err := repos.Lookup.CountryIDs(ctx, nil)
	require.NoError(t, err)

	dublin := model.City{CountryCode: "IE", CountryID: countries["IE"], Place: model.Place{
		GeonameID: 2964574, Name: "Dublin", Latitude: 53.3498, Longitude: -6.2603,
		Population: 544000, FeatureCode: "PPLC", Timezone: str("Europe/Dublin"),
	}}
	dublin.Stamp(runAt)
	_, err = repos.Cities.Insert(ctx, []model.City{dublin})
	require.NoError(t, err)
	stored, err := repos.Cities.FindByKey(ctx, 2964574)
	require.NoError(t, err)

	translations := []model.Translation{
		{AlternateNameID: 1, EntityID: stored.ID, Locale: str("ga"), Name: "Baile Átha Cliath", IsPreferred: true},
		{AlternateNameID: 2, EntityID: stored.ID, Locale: str("en"), Name: "Dublin City", IsHistoric: true, IsArchived: true},
	}
	for i := range translations {
		translations[i].Stamp(runAt)
	}
	_, err = repos.Translations[model.KindCity].Insert(ctx, translations)
	require.NoError(t, err)

	svc := service.NewService(repos.Entity)
	statsCollector := stats.NewCollector(db, cfg)
	recorder := metrics.MustNew()
	recorder.Run("seed", "success")

	return NewRouter(svc, statsCollector, recorder, zap.NewNop())
}

func TestAPI_Integration_Entity(t *testing.T) {
	handler := setupIntegrationStack(t)

	t.Run("Localized", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/v1/cities/2964574?lang=ga", nil)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		var resp model.EntityDetailResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, "Baile Átha Cliath", resp.Name)
		assert.Equal(t, "Dublin", resp.DefaultName)
		assert.Equal(t, model.KindCity, resp.Kind)
		require.Len(t, resp.Translations, 1, "archived names are hidden")
	})

	t.Run("Fallback to default name", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/v1/cities/2964574?lang=en", nil)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		var resp model.EntityDetailResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, "Dublin", resp.Name)
	})

	t.Run("Not found", func(t *testing.T) {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest("GET", "/api/v1/countries/1", nil))
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestAPI_Integration_StatsAndMetrics(t *testing.T) {
	handler := setupIntegrationStack(t)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/api/v1/stats", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var resp stats.Stats
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, int64(5), resp.Database.TotalRecords)

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "geosync_runs_total")

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}
