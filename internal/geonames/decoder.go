package geonames

import (
	"strconv"
	"strings"
	"time"
)

// Record is one decoded line. Empty columns are absent from the map.
type Record map[string]string

// Decode splits a tab separated line into a Record. It reports false for
// blank lines, comments and repeated header rows.
func (s Schema) Decode(line string) (Record, bool) {
	if line == "" || strings.HasPrefix(line, "#") {
		return nil, false
	}
	line = strings.TrimRight(line, "\r")

	parts := strings.Split(line, "\t")
	if parts[0] == s.Fields[0] {
		return nil, false
	}

	rec := make(Record, len(s.Fields))
	for i, value := range parts {
		if i >= len(s.Fields) {
			break
		}
		if value == "" {
			continue
		}
		rec[s.Fields[i]] = value
	}
	if len(rec) == 0 {
		return nil, false
	}
	return rec, true
}

// Get returns the value of field or "" when absent.
func (r Record) Get(field string) string {
	return r[field]
}

// Has reports whether field carries a value.
func (r Record) Has(field string) bool {
	_, ok := r[field]
	return ok
}

// Int64 parses field as an integer.
func (r Record) Int64(field string) (int64, bool) {
	v, ok := r[field]
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Float64 parses field as a float, zero when absent or malformed.
func (r Record) Float64(field string) float64 {
	f, err := strconv.ParseFloat(r[field], 64)
	if err != nil {
		return 0
	}
	return f
}

// Bool reports whether field equals "1".
func (r Record) Bool(field string) bool {
	return r[field] == "1"
}

// StringPtr returns a pointer to the value of field, nil when absent.
func (r Record) StringPtr(field string) *string {
	v, ok := r[field]
	if !ok {
		return nil
	}
	return &v
}

// IntPtr parses field as an int, nil when absent or malformed.
func (r Record) IntPtr(field string) *int {
	v, ok := r[field]
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil
	}
	return &n
}

// Float64Ptr parses field as a float, nil when absent or malformed.
func (r Record) Float64Ptr(field string) *float64 {
	v, ok := r[field]
	if !ok {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil
	}
	return &f
}

// Date parses a yyyy-MM-dd field, nil when absent or malformed.
func (r Record) Date(field string) *time.Time {
	v, ok := r[field]
	if !ok {
		return nil
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return nil
	}
	return &t
}
