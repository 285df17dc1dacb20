package reconcile

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/alexivanou/geonames-sync/internal/config"
	"github.com/alexivanou/geonames-sync/internal/database"
	"github.com/alexivanou/geonames-sync/internal/repository"
	"github.com/alexivanou/geonames-sync/internal/source"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var (
	seedAt  = time.Date(2024, 3, 1, 2, 0, 0, 0, time.UTC)
	dailyAt = time.Date(2024, 3, 2, 2, 0, 0, 0, time.UTC)
)

// place renders one allCountries line.
func place(id int64, name, class, code, cc, admin1 string, population int64) string {
	return strings.Join([]string{
		strconv.FormatInt(id, 10), name, name, "",
		"50.45", "30.52", class, code, cc, "", admin1, "", "", "",
		strconv.FormatInt(population, 10), "", "120", "Europe/Kyiv", "2024-01-15",
	}, "\t")
}

func altName(id, geonameID int64, locale, name string, flags ...string) string {
	fields := []string{strconv.FormatInt(id, 10), strconv.FormatInt(geonameID, 10), locale, name}
	for len(flags) < 4 {
		flags = append(flags, "")
	}
	fields = append(fields, flags...)
	fields = append(fields, "", "")
	return strings.Join(fields, "\t")
}

var (
	europe   = place(6255148, "Europe", "L", "CONT", "", "", 0)
	ukraine  = place(690791, "Ukraine", "A", "PCLI", "UA", "00", 41762138)
	poland   = place(798544, "Poland", "A", "PCLI", "PL", "00", 38500000)
	kyivCity = place(703447, "Kyiv City", "A", "ADM1", "UA", "12", 2797553)
	masovia  = place(858787, "Masovia", "A", "ADM1", "PL", "78", 5400000)
	kyiv     = place(703448, "Kyiv", "P", "PPLC", "UA", "12", 2797553)
	odesa    = place(698740, "Odesa", "P", "PPLA", "UA", "", 1015826)
	warsaw   = place(756135, "Warsaw", "P", "PPLC", "PL", "78", 1702139)
	doomed   = place(1111111, "Doomed", "P", "PPL", "UA", "12", 9000)
	hamlet   = place(1000001, "Hamlet", "P", "PPL", "UA", "12", 100)
	mountain = place(1000002, "Hoverla", "T", "MT", "UA", "", 0)
)

var baseDump = []string{europe, ukraine, poland, kyivCity, masovia, kyiv, odesa, warsaw, doomed, hamlet, mountain}

var countryInfo = []string{
	"#ISO\tISO3\tISO-Numeric\tfips\tCountry\tCapital\tArea(in sq km)\tPopulation\tContinent\ttld\tCurrencyCode\tCurrencyName\tPhone\tPostal Code Format\tPostal Code Regex\tLanguages\tgeonameid\tneighbours\tEquivalentFipsCode",
	"UA\tUKR\t804\tUP\tUkraine\tKyiv\t603700\t41762138\tEU\t.ua\tUAH\tHryvnia\t380\t#####\t^(\\d{5})$\tuk,ru-UA\t690791\tPL,MD\t",
	"PL\tPOL\t616\tPL\tPoland\tWarsaw\t312685\t38500000\tEU\t.pl\tPLN\tZloty\t48\t##-###\t^\\d{2}-\\d{3}$\tpl\t798544\tUA,DE\t",
}

var baseAltNames = []string{
	altName(1, 6255148, "en", "Europe", "1"),
	altName(2, 690791, "uk", "Україна", "1"),
	altName(3, 703448, "uk", "Київ", "1"),
	altName(4, 703448, "en", "Kiev", "", "", "", "1"),
	altName(5, 9999999, "en", "Nowhere", "1"),
	altName(6, 756135, "", "Warszawa"),
	altName(7, 756135, "pl", "Warszawa", "1"),
	altName(8, 1111111, "en", "Doomed Town"),
}

// fixture is a source directory plus a migrated in-memory store.
type fixture struct {
	t     *testing.T
	dir   string
	db    *sqlx.DB
	repos *repository.Container
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.Connect(context.Background(), config.DBConfig{Type: config.DBTypeMemory, Name: name})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(db, config.DBTypeMemory, "../../migrations/sqlite"))

	f := &fixture{t: t, dir: t.TempDir(), db: db, repos: repository.NewRepositories(db, config.DBTypeMemory, nil)}
	f.write("allCountries.txt", baseDump...)
	f.write("countryInfo.txt", countryInfo...)
	f.write("alternateNamesV2.txt", baseAltNames...)
	return f
}

func (f *fixture) write(name string, lines ...string) {
	f.t.Helper()
	content := strings.Join(lines, "\n")
	if len(lines) > 0 {
		content += "\n"
	}
	require.NoError(f.t, os.WriteFile(filepath.Join(f.dir, name), []byte(content), 0644))
}

func syncConfig() config.SyncConfig {
	return config.SyncConfig{
		BatchSize:        2,
		ChunkSize:        2,
		MinPopulation:    500,
		Locales:          []string{"*"},
		ExcludedLocales:  config.DefaultExcludedLocales,
		NullableLocale:   true,
		CityFeatureCodes: config.DefaultCityFeatureCodes,
		Kinds:            config.AllKinds,
		Translations:     true,
		StrictReferences: true,
		ProgressEvery:    1000,
		CountLines:       true,
	}
}

func (f *fixture) engine(at time.Time, cfg config.SyncConfig, opts ...Option) *Engine {
	src := source.NewDirectory(f.dir)
	// daily files are named after the day before the run
	src.Now = func() time.Time { return at }
	opts = append([]Option{WithClock(func() time.Time { return at })}, opts...)
	return New(f.repos, src, cfg, zaptest.NewLogger(f.t), opts...)
}

func (f *fixture) count(table string) int {
	f.t.Helper()
	var n int
	require.NoError(f.t, f.db.Get(&n, "SELECT COUNT(*) FROM "+table))
	return n
}

func (f *fixture) geonameIDs(table string) []int64 {
	f.t.Helper()
	var ids []int64
	require.NoError(f.t, f.db.Select(&ids, "SELECT geoname_id FROM "+table+" ORDER BY geoname_id"))
	return ids
}

func (f *fixture) altIDs(table string) []int64 {
	f.t.Helper()
	var ids []int64
	require.NoError(f.t, f.db.Select(&ids, "SELECT alternate_name_id FROM "+table+" ORDER BY alternate_name_id"))
	return ids
}
