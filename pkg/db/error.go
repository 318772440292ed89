package db

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// IsDuplicateKeyErr reports whether err is a unique-constraint violation on
// any supported dialect.
func IsDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	// PostgreSQL (error code 23505)
	if strings.Contains(err.Error(), "duplicate key value violates unique constraint") {
		return true
	}

	// MySQL (error code 1062)
	if strings.Contains(err.Error(), "Error 1062") {
		return true
	}

	// SQLite (error code 2067)
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return true
	}

	return false
}

// IsExclusionErr reports whether err is a PostgreSQL exclusion-constraint
// violation (error code 23P01). The sales_periods table carries a gist
// exclusion constraint over (contract_id, daterange) as the last line of
// defense against concurrent overlapping inserts; other dialects rely on the
// transactional re-check in the repository.
func IsExclusionErr(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "conflicting key value violates exclusion constraint") ||
		strings.Contains(msg, "23P01")
}
