// Package filter decides which decoded GeoNames records take part in a run.
package filter

import (
	"strings"

	"github.com/alexivanou/geonames-sync/internal/config"
	"github.com/alexivanou/geonames-sync/internal/geonames"
)

// CountryFeatureCodes are the political entity codes accepted as countries.
var CountryFeatureCodes = []string{"PCLI", "PCLD", "PCLF", "PCLS", "PCLIX", "PCL", "TERR"}

const (
	continentFeatureCode = "CONT"
	divisionFeatureCode  = "ADM1"
	wildcardLocale       = "*"
)

// Filter holds the classification settings of a run. All methods are pure.
type Filter struct {
	countries      map[string]bool
	cityCodes      map[string]bool
	minPopulation  int64
	locales        map[string]bool
	anyLocale      bool
	excluded       map[string]bool
	nullableLocale bool
}

// New builds a Filter from the sync settings.
func New(cfg config.SyncConfig) *Filter {
	f := &Filter{
		countries:      toSet(cfg.Countries, strings.ToUpper),
		cityCodes:      toSet(cfg.CityFeatureCodes, strings.ToUpper),
		minPopulation:  cfg.MinPopulation,
		locales:        make(map[string]bool),
		excluded:       toSet(cfg.ExcludedLocales, nil),
		nullableLocale: cfg.NullableLocale,
	}
	for _, locale := range cfg.Locales {
		if locale == wildcardLocale {
			f.anyLocale = true
			continue
		}
		f.locales[locale] = true
	}
	return f
}

// Countries returns the configured country allow-list, empty when every country is allowed.
func (f *Filter) Countries() []string {
	out := make([]string, 0, len(f.countries))
	for code := range f.countries {
		out = append(out, code)
	}
	return out
}

// CountryAllowed reports whether the allow-list admits code.
func (f *Filter) CountryAllowed(code string) bool {
	return len(f.countries) == 0 || f.countries[strings.ToUpper(code)]
}

// Continent accepts continent records.
func (f *Filter) Continent(rec geonames.Record) bool {
	return rec.Get(geonames.FieldFeatureCode) == continentFeatureCode
}

// Country accepts political entities that also appear in the country-info table.
func (f *Filter) Country(rec geonames.Record, info CountryInfo) bool {
	if !contains(CountryFeatureCodes, rec.Get(geonames.FieldFeatureCode)) {
		return false
	}
	id, ok := rec.Int64(geonames.FieldGeonameID)
	if !ok {
		return false
	}
	row, ok := info.ByGeonameID(id)
	if !ok {
		return false
	}
	return f.CountryAllowed(row.Get(geonames.FieldISO))
}

// Division accepts first-order administrative divisions of allowed countries.
func (f *Filter) Division(rec geonames.Record) bool {
	if rec.Get(geonames.FieldFeatureCode) != divisionFeatureCode {
		return false
	}
	return f.CountryAllowed(rec.Get(geonames.FieldCountryCode))
}

// City accepts populated places above the population threshold.
func (f *Filter) City(rec geonames.Record) bool {
	if !f.cityCodes[rec.Get(geonames.FieldFeatureCode)] {
		return false
	}
	population, _ := rec.Int64(geonames.FieldPopulation)
	if population < f.minPopulation {
		return false
	}
	return f.CountryAllowed(rec.Get(geonames.FieldCountryCode))
}

// Locale accepts a translation locale. A nil locale is accepted only when
// nullable locales are enabled.
func (f *Filter) Locale(locale *string) bool {
	if locale == nil {
		return f.nullableLocale
	}
	if f.excluded[*locale] {
		return false
	}
	return f.anyLocale || f.locales[*locale]
}

func toSet(values []string, normalize func(string) string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		if normalize != nil {
			v = normalize(v)
		}
		set[v] = true
	}
	return set
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
