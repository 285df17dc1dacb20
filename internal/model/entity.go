package model

import "time"

// Kind identifies an entity table and its translation partition
type Kind string

const (
	KindContinent Kind = "continents"
	KindCountry   Kind = "countries"
	KindDivision  Kind = "divisions"
	KindCity      Kind = "cities"
)

// Kinds lists all entity kinds in dependency order
var Kinds = []Kind{KindContinent, KindCountry, KindDivision, KindCity}

// Table returns the entity table name for the kind
func (k Kind) Table() string {
	return string(k)
}

// TranslationTable returns the translation partition for the kind
func (k Kind) TranslationTable() string {
	switch k {
	case KindContinent:
		return "continent_translations"
	case KindCountry:
		return "country_translations"
	case KindDivision:
		return "division_translations"
	case KindCity:
		return "city_translations"
	}
	return ""
}

// Valid reports whether k is a known kind
func (k Kind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// Sync holds the columns shared by every reconciled row
type Sync struct {
	SyncedAt  *time.Time `db:"synced_at"`
	CreatedAt time.Time  `db:"created_at"`
	UpdatedAt time.Time  `db:"updated_at"`
}

// Stamp marks the row as confirmed by the run that started at runAt
func (s *Sync) Stamp(runAt time.Time) {
	at := runAt
	s.SyncedAt = &at
	s.CreatedAt = runAt
	s.UpdatedAt = runAt
}

// Place holds the descriptive GeoNames fields shared by all entity kinds
type Place struct {
	GeonameID   int64      `db:"geoname_id"`
	Name        string     `db:"name"`
	ASCIIName   *string    `db:"ascii_name"`
	Latitude    float64    `db:"latitude"`
	Longitude   float64    `db:"longitude"`
	Population  int64      `db:"population"`
	Elevation   *int       `db:"elevation"`
	Dem         *int       `db:"dem"`
	Timezone    *string    `db:"timezone"`
	FeatureCode string     `db:"feature_code"`
	ModifiedAt  *time.Time `db:"modified_at"`
}

// Continent represents a continent row
type Continent struct {
	ID   int64  `db:"id"`
	Code string `db:"code"`
	Place
	Sync
}

// Country represents a country row, joined from the main dump and countryInfo.txt
type Country struct {
	ID               int64    `db:"id"`
	Code             string   `db:"code"`
	ISO3             *string  `db:"iso3"`
	ISONumeric       *string  `db:"iso_numeric"`
	Fips             *string  `db:"fips"`
	Capital          *string  `db:"capital"`
	Area             *float64 `db:"area"`
	TLD              *string  `db:"tld"`
	CurrencyCode     *string  `db:"currency_code"`
	CurrencyName     *string  `db:"currency_name"`
	PhoneCode        *string  `db:"phone_code"`
	PostalCodeFormat *string  `db:"postal_code_format"`
	PostalCodeRegex  *string  `db:"postal_code_regex"`
	Languages        *string  `db:"languages"`
	Neighbours       *string  `db:"neighbours"`
	ContinentID      int64    `db:"continent_id"`
	Place
	Sync
}

// Division represents a first-order administrative division row
type Division struct {
	ID          int64  `db:"id"`
	CountryCode string `db:"country_code"`
	Code        string `db:"code"`
	CountryID   int64  `db:"country_id"`
	Place
	Sync
}

// City represents a populated place row
type City struct {
	ID          int64   `db:"id"`
	CountryCode string  `db:"country_code"`
	Admin1Code  *string `db:"admin1_code"`
	CountryID   int64   `db:"country_id"`
	DivisionID  *int64  `db:"division_id"`
	Place
	Sync
}

// Translation represents one alternate name attached to an entity
type Translation struct {
	ID              int64   `db:"id"`
	AlternateNameID int64   `db:"alternate_name_id"`
	EntityID        int64   `db:"entity_id"`
	Locale          *string `db:"locale"`
	Name            string  `db:"name"`
	IsPreferred     bool    `db:"is_preferred"`
	IsShort         bool    `db:"is_short"`
	IsColloquial    bool    `db:"is_colloquial"`
	IsHistoric      bool    `db:"is_historic"`
	IsArchived      bool    `db:"is_archived"`
	Sync
}
