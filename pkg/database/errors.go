package database

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"
)

const (
	uniqueViolation           = "23505"
	invalidTextRepresentation = "22P02"
)

// IsUniqueViolation reports whether err is a PostgreSQL unique_violation.
// When constraint is non-empty the violated constraint must match too.
func IsUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	if pqErr.Code != uniqueViolation {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}

// IsInvalidText reports whether PostgreSQL rejected a parameter it could not
// parse, such as a malformed UUID.
func IsInvalidText(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == invalidTextRepresentation
}

// NoRowsOnInvalidText turns a malformed-key error into sql.ErrNoRows, since
// no row can carry a key the column type cannot hold.
func NoRowsOnInvalidText(err error) error {
	if IsInvalidText(err) {
		return sql.ErrNoRows
	}
	return err
}
