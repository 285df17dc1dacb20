package filter

import (
	"fmt"

	"github.com/alexivanou/geonames-sync/internal/geonames"
)

// CountryInfo is the countryInfo.txt table indexed by geoname id.
type CountryInfo map[int64]geonames.Record

// ByGeonameID returns the country-info row of a country geoname id.
func (c CountryInfo) ByGeonameID(id int64) (geonames.Record, bool) {
	rec, ok := c[id]
	return rec, ok
}

// LoadCountryInfo reads countryInfo.txt into memory. The file has about 250
// rows, so it is the only dump file held in full.
func LoadCountryInfo(path string) (CountryInfo, error) {
	info := make(CountryInfo)
	err := geonames.ForEachLine(path, func(_ int, line string) error {
		rec, ok := geonames.CountryInfo.Decode(line)
		if !ok {
			return nil
		}
		id, ok := rec.Int64(geonames.FieldGeonameID)
		if !ok {
			return nil
		}
		info[id] = rec
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load country info: %w", err)
	}
	return info, nil
}
