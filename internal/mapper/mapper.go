// Package mapper turns filtered GeoNames records into rows ready to be written.
package mapper

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/alexivanou/geonames-sync/internal/cache"
	"github.com/alexivanou/geonames-sync/internal/filter"
	"github.com/alexivanou/geonames-sync/internal/geonames"
	"github.com/alexivanou/geonames-sync/internal/model"
	"golang.org/x/text/unicode/norm"
)

var (
	// ErrUnresolvedReference means a required parent row is not in the cache.
	ErrUnresolvedReference = errors.New("unresolved reference")
	// ErrMissingKey means the record has no usable natural key.
	ErrMissingKey = errors.New("missing natural key")
)

// ContinentCodes maps the continent geoname ids to their two letter codes.
var ContinentCodes = map[int64]string{
	6255146: "AF",
	6255147: "AS",
	6255148: "EU",
	6255149: "NA",
	6255150: "SA",
	6255151: "OC",
	6255152: "AN",
}

// Mapper resolves foreign keys through a pass-scoped cache and stamps every
// row with the start time of the run.
type Mapper struct {
	cache *cache.Cache
	info  filter.CountryInfo
	runAt time.Time
}

// New creates a Mapper. info may be nil when no country is mapped.
func New(c *cache.Cache, info filter.CountryInfo, runAt time.Time) *Mapper {
	return &Mapper{cache: c, info: info, runAt: runAt}
}

// Continent maps a CONT record.
func (m *Mapper) Continent(rec geonames.Record) (model.Continent, error) {
	place, err := m.place(rec)
	if err != nil {
		return model.Continent{}, err
	}

	code, ok := ContinentCodes[place.GeonameID]
	if !ok {
		return model.Continent{}, fmt.Errorf("%w: no continent code for geoname %d", ErrUnresolvedReference, place.GeonameID)
	}

	row := model.Continent{Code: code, Place: place}
	row.Stamp(m.runAt)
	return row, nil
}

// Country maps a political entity joined with its country-info row.
func (m *Mapper) Country(rec geonames.Record) (model.Country, error) {
	place, err := m.place(rec)
	if err != nil {
		return model.Country{}, err
	}

	info, ok := m.info.ByGeonameID(place.GeonameID)
	if !ok {
		return model.Country{}, fmt.Errorf("%w: no country info for geoname %d", ErrUnresolvedReference, place.GeonameID)
	}

	continent := info.Get(geonames.FieldContinent)
	continentID, ok := m.cache.Lookup(cache.Continents, continent)
	if !ok {
		return model.Country{}, fmt.Errorf("%w: continent %q of country %s", ErrUnresolvedReference, continent, info.Get(geonames.FieldISO))
	}

	row := model.Country{
		Code:             info.Get(geonames.FieldISO),
		ISO3:             info.StringPtr(geonames.FieldISO3),
		ISONumeric:       info.StringPtr(geonames.FieldISONumeric),
		Fips:             info.StringPtr(geonames.FieldFips),
		Capital:          info.StringPtr(geonames.FieldCapital),
		Area:             info.Float64Ptr(geonames.FieldArea),
		TLD:              info.StringPtr(geonames.FieldTLD),
		CurrencyCode:     info.StringPtr(geonames.FieldCurrencyCode),
		CurrencyName:     info.StringPtr(geonames.FieldCurrencyName),
		PhoneCode:        info.StringPtr(geonames.FieldPhone),
		PostalCodeFormat: info.StringPtr(geonames.FieldPostalCodeFormat),
		PostalCodeRegex:  info.StringPtr(geonames.FieldPostalCodeRegex),
		Languages:        info.StringPtr(geonames.FieldLanguages),
		Neighbours:       info.StringPtr(geonames.FieldNeighbours),
		ContinentID:      continentID,
		Place:            place,
	}
	row.Stamp(m.runAt)
	return row, nil
}

// Division maps an ADM1 record.
func (m *Mapper) Division(rec geonames.Record) (model.Division, error) {
	place, err := m.place(rec)
	if err != nil {
		return model.Division{}, err
	}

	countryCode := rec.Get(geonames.FieldCountryCode)
	countryID, ok := m.cache.Lookup(cache.Countries, countryCode)
	if !ok {
		return model.Division{}, fmt.Errorf("%w: country %q of division %d", ErrUnresolvedReference, countryCode, place.GeonameID)
	}

	row := model.Division{
		CountryCode: countryCode,
		Code:        rec.Get(geonames.FieldAdmin1Code),
		CountryID:   countryID,
		Place:       place,
	}
	row.Stamp(m.runAt)
	return row, nil
}

// City maps a populated place. The division is optional.
func (m *Mapper) City(rec geonames.Record) (model.City, error) {
	place, err := m.place(rec)
	if err != nil {
		return model.City{}, err
	}

	countryCode := rec.Get(geonames.FieldCountryCode)
	countryID, ok := m.cache.Lookup(cache.Countries, countryCode)
	if !ok {
		return model.City{}, fmt.Errorf("%w: country %q of city %d", ErrUnresolvedReference, countryCode, place.GeonameID)
	}

	row := model.City{
		CountryCode: countryCode,
		Admin1Code:  rec.StringPtr(geonames.FieldAdmin1Code),
		CountryID:   countryID,
		Place:       place,
	}
	if row.Admin1Code != nil {
		if id, ok := m.cache.Lookup(cache.Divisions, cache.DivisionKey(countryCode, *row.Admin1Code)); ok {
			row.DivisionID = &id
		}
	}
	row.Stamp(m.runAt)
	return row, nil
}

// Translation maps an alternate name owned by an entity of kind. It reports
// false when the owner is not stored, which drops the record.
func (m *Mapper) Translation(kind model.Kind, rec geonames.Record) (model.Translation, bool, error) {
	id, ok := rec.Int64(geonames.FieldAlternateNameID)
	if !ok {
		return model.Translation{}, false, ErrMissingKey
	}

	ownerID, ok := m.cache.Lookup(cache.Owners(kind), rec.Get(geonames.FieldGeonameID))
	if !ok {
		return model.Translation{}, false, nil
	}

	row := model.Translation{
		AlternateNameID: id,
		EntityID:        ownerID,
		Locale:          rec.StringPtr(geonames.FieldISOLanguage),
		Name:            norm.NFC.String(rec.Get(geonames.FieldAlternateName)),
		IsPreferred:     rec.Bool(geonames.FieldIsPreferredName),
		IsShort:         rec.Bool(geonames.FieldIsShortName),
		IsColloquial:    rec.Bool(geonames.FieldIsColloquial),
		IsHistoric:      rec.Bool(geonames.FieldIsHistoric),
	}
	row.IsArchived = Archived(row.Locale, row.IsPreferred, row.IsShort, row.IsColloquial, row.IsHistoric)
	row.Stamp(m.runAt)
	return row, true, nil
}

// Archived derives the archived flag of a translation. The first matching rule wins.
func Archived(locale *string, preferred, short, colloquial, historic bool) bool {
	switch {
	case locale == nil:
		return true
	case preferred:
		return false
	case short:
		return false
	case colloquial:
		return true
	case historic:
		return true
	}
	return false
}

// Key returns the natural key of a main dump or deletes record.
func Key(rec geonames.Record, field string) (int64, error) {
	id, ok := rec.Int64(field)
	if !ok {
		return 0, fmt.Errorf("%w: %s=%q", ErrMissingKey, field, rec.Get(field))
	}
	return id, nil
}

func (m *Mapper) place(rec geonames.Record) (model.Place, error) {
	id, err := Key(rec, geonames.FieldGeonameID)
	if err != nil {
		return model.Place{}, err
	}

	population, _ := rec.Int64(geonames.FieldPopulation)
	return model.Place{
		GeonameID:   id,
		Name:        rec.Get(geonames.FieldName),
		ASCIIName:   rec.StringPtr(geonames.FieldASCIIName),
		Latitude:    rec.Float64(geonames.FieldLatitude),
		Longitude:   rec.Float64(geonames.FieldLongitude),
		Population:  population,
		Elevation:   rec.IntPtr(geonames.FieldElevation),
		Dem:         rec.IntPtr(geonames.FieldDem),
		Timezone:    rec.StringPtr(geonames.FieldTimezone),
		FeatureCode: rec.Get(geonames.FieldFeatureCode),
		ModifiedAt:  rec.Date(geonames.FieldModificationDate),
	}, nil
}

// GeonameKey formats a geoname id the way owner lookups store it.
func GeonameKey(id int64) string {
	return strconv.FormatInt(id, 10)
}
