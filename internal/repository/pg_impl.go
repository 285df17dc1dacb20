package repository

import "fmt"

// --- PostgreSQL Implementation ---

// postgresDialect targets PostgreSQL through the pgx stdlib driver.
type postgresDialect struct{}

// maxParams is the wire protocol limit of bind parameters per statement.
func (postgresDialect) maxParams() int {
	return 65535
}

// truncate keeps the identity sequence running so ids are never handed out twice.
func (postgresDialect) truncate(table string) string {
	return fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table)
}
