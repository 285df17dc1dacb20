package model

// Coordinate represents geographic coordinates
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// EntitySummary is the kind-independent projection of an entity row
type EntitySummary struct {
	ID         int64   `json:"-" db:"id"`
	GeonameID  int64   `json:"geoname_id" db:"geoname_id"`
	Name       string  `json:"name" db:"name"`
	Latitude   float64 `json:"-" db:"latitude"`
	Longitude  float64 `json:"-" db:"longitude"`
	Population int64   `json:"population" db:"population"`
	Timezone   *string `json:"timezone" db:"timezone"`
}

// TranslationResult is a translation as exposed by the API
type TranslationResult struct {
	Locale      *string `json:"locale" db:"locale"`
	Name        string  `json:"name" db:"name"`
	IsPreferred bool    `json:"is_preferred" db:"is_preferred"`
	IsShort     bool    `json:"is_short" db:"is_short"`
}

// EntityDetailResponse represents detailed information about an entity
type EntityDetailResponse struct {
	Kind         Kind                `json:"kind"`
	GeonameID    int64               `json:"geoname_id"`
	Name         string              `json:"name"`
	DefaultName  string              `json:"default_name"`
	Coordinates  Coordinate          `json:"coordinates"`
	Population   int64               `json:"population"`
	Timezone     *string             `json:"timezone"`
	Translations []TranslationResult `json:"translations"`
}
