package repository

import (
	"github.com/alexivanou/geonames-sync/internal/model"
)

// Table describes how a model type is persisted.
type Table struct {
	Name      string
	Key       string
	Columns   []string
	Updatable []string
}

var placeColumns = []string{
	"geoname_id", "name", "ascii_name", "latitude", "longitude", "population",
	"elevation", "dem", "timezone", "feature_code", "modified_at",
}

var syncColumns = []string{"synced_at", "created_at", "updated_at"}

func columns(groups ...[]string) []string {
	var out []string
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

var continentTable = Table{
	Name:    "continents",
	Key:     "geoname_id",
	Columns: columns([]string{"code"}, placeColumns, syncColumns),
}

var countryTable = Table{
	Name: "countries",
	Key:  "geoname_id",
	Columns: columns([]string{
		"code", "iso3", "iso_numeric", "fips", "capital", "area", "tld", "currency_code",
		"currency_name", "phone_code", "postal_code_format", "postal_code_regex",
		"languages", "neighbours", "continent_id",
	}, placeColumns, syncColumns),
}

var divisionTable = Table{
	Name:    "divisions",
	Key:     "geoname_id",
	Columns: columns([]string{"country_code", "code", "country_id"}, placeColumns, syncColumns),
}

var cityTable = Table{
	Name:    "cities",
	Key:     "geoname_id",
	Columns: columns([]string{"country_code", "admin1_code", "country_id", "division_id"}, placeColumns, syncColumns),
}

func translationTable(kind model.Kind) Table {
	return Table{
		Name: kind.TranslationTable(),
		Key:  "alternate_name_id",
		Columns: columns([]string{
			"alternate_name_id", "entity_id", "locale", "name",
			"is_preferred", "is_short", "is_colloquial", "is_historic", "is_archived",
		}, syncColumns),
	}
}

// withUpdatable returns a copy of t with its upsert column list resolved.
// Without an override every column except the natural key and created_at is
// updated. The marker columns are always updated.
func (t Table) withUpdatable(overrides map[string][]string) Table {
	var updatable []string
	if cols, ok := overrides[t.Name]; ok {
		for _, c := range cols {
			if t.has(c) && c != t.Key && c != "created_at" {
				updatable = append(updatable, c)
			}
		}
		for _, c := range []string{"synced_at", "updated_at"} {
			if !contains(updatable, c) {
				updatable = append(updatable, c)
			}
		}
	} else {
		for _, c := range t.Columns {
			if c != t.Key && c != "created_at" {
				updatable = append(updatable, c)
			}
		}
	}

	t.Updatable = updatable
	return t
}

func (t Table) has(column string) bool {
	return contains(t.Columns, column)
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
