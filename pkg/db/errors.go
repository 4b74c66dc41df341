package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgUniqueViolation      = "23505"
	pgCheckViolation       = "23514"
)

// IsUniqueViolation reports whether the provided error references a Postgres
// unique violation. When constraintName is provided, the helper also requires
// the constraint to match.
func IsUniqueViolation(err error, constraintName string) bool {
	code, constraint := pgErrorCode(err)
	if code != pgUniqueViolation {
		// The simple-protocol path can surface the error as plain text.
		if err == nil || !strings.Contains(err.Error(), "duplicate key value") {
			return false
		}
	}
	if constraintName == "" {
		return true
	}
	if constraint == constraintName {
		return true
	}
	return err != nil && strings.Contains(err.Error(), constraintName)
}

// IsSerializationFailure reports whether the error is a transient transaction
// abort (serialization failure or deadlock) that is safe to retry.
func IsSerializationFailure(err error) bool {
	code, _ := pgErrorCode(err)
	return code == pgSerializationFailure || code == pgDeadlockDetected
}

// IsCheckViolation reports whether the error is a CHECK constraint violation,
// optionally matching the constraint name.
func IsCheckViolation(err error, constraintName string) bool {
	code, constraint := pgErrorCode(err)
	if code != pgCheckViolation {
		return false
	}
	return constraintName == "" || constraint == constraintName
}

func pgErrorCode(err error) (code, constraint string) {
	if err == nil {
		return "", ""
	}
	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return pgxErr.Code, pgxErr.ConstraintName
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code), pqErr.Constraint
	}
	return "", ""
}
