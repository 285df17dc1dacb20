package repository

import (
	"context"
	"testing"

	"github.com/alexivanou/geonames-sync/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	repos, _ := setupRepo(t, nil)
	ctx := context.Background()
	ua, pl := seedGeography(t, repos)

	_, err := repos.Divisions.Insert(ctx, []model.Division{func() model.Division {
		d := model.Division{CountryCode: "UA", Code: "12", CountryID: ua, Place: model.Place{GeonameID: 703446, Name: "Kyiv City", FeatureCode: "ADM1"}}
		d.Stamp(runAt)
		return d
	}()})
	require.NoError(t, err)

	t.Run("Continents", func(t *testing.T) {
		ids, err := repos.Lookup.ContinentIDs(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, "EU")
	})

	t.Run("Countries narrowed", func(t *testing.T) {
		ids, err := repos.Lookup.CountryIDs(ctx, []string{"PL", "DE"})
		require.NoError(t, err)
		assert.Equal(t, map[string]int64{"PL": pl}, ids)
	})

	t.Run("Divisions by composite key", func(t *testing.T) {
		ids, err := repos.Lookup.DivisionIDs(ctx, nil)
		require.NoError(t, err)
		assert.Len(t, ids, 1)

		ids, err = repos.Lookup.DivisionIDs(ctx, []string{"UA.12"})
		require.NoError(t, err)
		assert.Contains(t, ids, "UA.12")
	})

	t.Run("Owners", func(t *testing.T) {
		ids, err := repos.Lookup.OwnerIDs(ctx, model.KindCity, []int64{703448, 1})
		require.NoError(t, err)
		assert.Len(t, ids, 1)
		assert.Contains(t, ids, int64(703448))

		all, err := repos.Lookup.OwnerIDs(ctx, model.KindCountry, nil)
		require.NoError(t, err)
		assert.Equal(t, map[int64]int64{690791: ua, 798544: pl}, all)

		_, err = repos.Lookup.OwnerIDs(ctx, model.Kind("planets"), nil)
		assert.Error(t, err)
	})
}

func TestScopes(t *testing.T) {
	assert.True(t, CountryScope(model.KindCity, nil).IsZero())
	assert.True(t, CountryScope(model.KindContinent, []string{"UA"}).IsZero())
	assert.True(t, TranslationScope(model.KindContinent, []string{"UA"}).IsZero())

	s := CountryScope(model.KindCountry, []string{"UA", "PL"})
	assert.Equal(t, "code IN (?, ?)", s.Clause)
	assert.Equal(t, []interface{}{"UA", "PL"}, s.Args)

	s = TranslationScope(model.KindCity, []string{"UA"})
	assert.Equal(t, "entity_id IN (SELECT id FROM cities WHERE country_code IN (?))", s.Clause)
	assert.Equal(t, []interface{}{"UA"}, s.Args)
}

func TestScopes_AgainstStore(t *testing.T) {
	repos, _ := setupRepo(t, nil)
	ctx := context.Background()
	ua, pl := seedGeography(t, repos)
	store := repos.Translations[model.KindCountry]

	_, err := store.Insert(ctx, []model.Translation{
		translation(1, ua, "en", "Ukraine"),
		translation(2, pl, "en", "Poland"),
	})
	require.NoError(t, err)

	_, err = store.ResetMarkers(ctx, TranslationScope(model.KindCountry, []string{"PL"}), 10)
	require.NoError(t, err)

	unmarked, err := store.Exists(ctx, false, Scope{})
	require.NoError(t, err)
	assert.True(t, unmarked)

	n, err := store.DeleteUnmarked(ctx, Scope{}, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	left, err := store.FindByKey(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, left)
	assert.Equal(t, "Ukraine", left.Name)
}

func TestEntityRepository(t *testing.T) {
	repos, _ := setupRepo(t, nil)
	ctx := context.Background()
	_, _ = seedGeography(t, repos)

	kyiv, err := repos.Entity.GetSummary(ctx, model.KindCity, 703448)
	require.NoError(t, err)
	require.NotNil(t, kyiv)
	assert.Equal(t, "Kyiv", kyiv.Name)

	historic := translation(3, kyiv.ID, "en", "Kiev")
	historic.IsHistoric = true
	historic.IsArchived = true
	preferred := translation(4, kyiv.ID, "en", "Kyiv")
	preferred.IsPreferred = true
	_, err = repos.Translations[model.KindCity].Insert(ctx, []model.Translation{
		historic,
		preferred,
		translation(5, kyiv.ID, "uk", "Київ"),
	})
	require.NoError(t, err)

	t.Run("Localized name", func(t *testing.T) {
		name, err := repos.Entity.GetLocalizedName(ctx, model.KindCity, kyiv.ID, "uk")
		require.NoError(t, err)
		assert.Equal(t, "Київ", name)

		name, err = repos.Entity.GetLocalizedName(ctx, model.KindCity, kyiv.ID, "fr")
		require.NoError(t, err)
		assert.Equal(t, "Kyiv", name)
	})

	t.Run("Archived translations are hidden", func(t *testing.T) {
		results, err := repos.Entity.GetTranslations(ctx, model.KindCity, kyiv.ID, "en")
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "Kyiv", results[0].Name)
		assert.True(t, results[0].IsPreferred)

		all, err := repos.Entity.GetTranslations(ctx, model.KindCity, kyiv.ID, "")
		require.NoError(t, err)
		assert.Len(t, all, 2)
	})

	t.Run("Unknown entity", func(t *testing.T) {
		missing, err := repos.Entity.GetSummary(ctx, model.KindCity, 1)
		require.NoError(t, err)
		assert.Nil(t, missing)

		_, err = repos.Entity.GetSummary(ctx, model.Kind("planets"), 1)
		assert.Error(t, err)
	})
}
