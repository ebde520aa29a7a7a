package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

const (
	pgUniqueViolation      = "23505"
	pgIntegrityClassPrefix = "23"
	pgInvalidTextRep       = "22P02"
)

// IsUniqueViolation reports whether err is a unique constraint violation from
// postgres (pgx or pq) or sqlite. When constraintName is provided the violated
// constraint must match it.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}

	if code, constraint, ok := pgCode(err); ok {
		if code != pgUniqueViolation {
			return false
		}
		return constraintName == "" || constraint == constraintName
	}

	msg := err.Error()
	if strings.Contains(msg, "UNIQUE constraint failed") {
		return constraintName == "" || strings.Contains(msg, constraintName)
	}
	if strings.Contains(msg, "duplicate key value") {
		return constraintName == "" || strings.Contains(msg, constraintName)
	}
	return false
}

// IsConstraintViolation reports whether storage rejected the write for data
// integrity reasons: SQLSTATE class 23, an invalid enum literal, or any sqlite
// constraint failure.
func IsConstraintViolation(err error) bool {
	if err == nil {
		return false
	}

	if code, _, ok := pgCode(err); ok {
		return strings.HasPrefix(code, pgIntegrityClassPrefix) || code == pgInvalidTextRep
	}

	msg := err.Error()
	return strings.Contains(msg, "constraint failed") ||
		strings.Contains(msg, "violates check constraint") ||
		strings.Contains(msg, "violates foreign key constraint")
}

func pgCode(err error) (string, string, bool) {
	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return pgxErr.Code, pgxErr.ConstraintName, true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code), pqErr.Constraint, true
	}
	return "", "", false
}
