package geonames

// Field names shared by several schemas.
const (
	FieldGeonameID        = "geonameid"
	FieldName             = "name"
	FieldASCIIName        = "asciiname"
	FieldLatitude         = "latitude"
	FieldLongitude        = "longitude"
	FieldFeatureClass     = "feature_class"
	FieldFeatureCode      = "feature_code"
	FieldCountryCode      = "country_code"
	FieldAdmin1Code       = "admin1_code"
	FieldPopulation       = "population"
	FieldElevation        = "elevation"
	FieldDem              = "dem"
	FieldTimezone         = "timezone"
	FieldModificationDate = "modification_date"

	FieldISO              = "iso"
	FieldISO3             = "iso3"
	FieldISONumeric       = "iso_numeric"
	FieldFips             = "fips"
	FieldCountry          = "country"
	FieldCapital          = "capital"
	FieldArea             = "area"
	FieldContinent        = "continent"
	FieldTLD              = "tld"
	FieldCurrencyCode     = "currency_code"
	FieldCurrencyName     = "currency_name"
	FieldPhone            = "phone"
	FieldPostalCodeFormat = "postal_code_format"
	FieldPostalCodeRegex  = "postal_code_regex"
	FieldLanguages        = "languages"
	FieldNeighbours       = "neighbours"

	FieldAlternateNameID = "alternate_name_id"
	FieldISOLanguage     = "isolanguage"
	FieldAlternateName   = "alternate_name"
	FieldIsPreferredName = "is_preferred_name"
	FieldIsShortName     = "is_short_name"
	FieldIsColloquial    = "is_colloquial"
	FieldIsHistoric      = "is_historic"

	FieldComment = "comment"
)

// Schema names the positional columns of one dump file.
type Schema struct {
	Name   string
	Fields []string
}

// AllCountries is the layout of allCountries.txt and the daily modifications file.
var AllCountries = Schema{
	Name: "allCountries",
	Fields: []string{
		FieldGeonameID, FieldName, FieldASCIIName, "alternatenames",
		FieldLatitude, FieldLongitude, FieldFeatureClass, FieldFeatureCode,
		FieldCountryCode, "cc2", FieldAdmin1Code, "admin2_code", "admin3_code", "admin4_code",
		FieldPopulation, FieldElevation, FieldDem, FieldTimezone, FieldModificationDate,
	},
}

// CountryInfo is the layout of countryInfo.txt.
var CountryInfo = Schema{
	Name: "countryInfo",
	Fields: []string{
		FieldISO, FieldISO3, FieldISONumeric, FieldFips, FieldCountry, FieldCapital,
		FieldArea, FieldPopulation, FieldContinent, FieldTLD, FieldCurrencyCode, FieldCurrencyName,
		FieldPhone, FieldPostalCodeFormat, FieldPostalCodeRegex, FieldLanguages,
		FieldGeonameID, FieldNeighbours, "equivalent_fips_code",
	},
}

// AlternateNames is the V2 layout of alternateNamesV2.txt and its modifications file.
var AlternateNames = Schema{
	Name: "alternateNames",
	Fields: []string{
		FieldAlternateNameID, FieldGeonameID, FieldISOLanguage, FieldAlternateName,
		FieldIsPreferredName, FieldIsShortName, FieldIsColloquial, FieldIsHistoric,
		"from", "to",
	},
}

// Deletes is the layout of the daily deletes file.
var Deletes = Schema{
	Name:   "deletes",
	Fields: []string{FieldGeonameID, FieldName, FieldComment},
}

// AlternateNamesDeletes is the layout of the daily alternate names deletes file.
var AlternateNamesDeletes = Schema{
	Name:   "alternateNamesDeletes",
	Fields: []string{FieldAlternateNameID, FieldGeonameID, FieldComment},
}

// Key returns the name of the natural key column, always the first field.
func (s Schema) Key() string {
	return s.Fields[0]
}
