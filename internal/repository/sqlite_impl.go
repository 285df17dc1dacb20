package repository

import "fmt"

type dialect interface {
	maxParams() int
	truncate(table string) string
}

// sqliteDialect targets both file-backed and in-memory SQLite.
type sqliteDialect struct{}

// maxParams matches SQLITE_MAX_VARIABLE_NUMBER of the bundled SQLite (3.32+).
func (sqliteDialect) maxParams() int {
	return 32766
}

// truncate relies on AUTOINCREMENT keeping sqlite_sequence, so ids are never reused.
func (sqliteDialect) truncate(table string) string {
	return fmt.Sprintf("DELETE FROM %s", table)
}
