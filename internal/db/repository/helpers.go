// Package repository implements the resolver, hierarchy, and permission
// data access for the gateway configuration store. Every repository runs
// against a db.DBTX so calls compose under one unit of work.
package repository

import (
	"database/sql"
	"errors"
	"strings"

	"guacaman/internal/domain"
)

// mapDBError classifies driver errors into the domain taxonomy. Unique-key
// violations become business-rule errors; anything else from the driver is
// a system error.
func mapDBError(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrBusinessRule("%s not found", what)
	}
	msg := err.Error()
	if strings.Contains(msg, "UNIQUE constraint failed") || // sqlite
		strings.Contains(msg, "Error 1062") || // mysql duplicate entry
		strings.Contains(msg, "Duplicate entry") {
		return domain.ErrBusinessRule("%s already exists", what)
	}
	return domain.ErrSystem(err, "database error on %s", what)
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func nullStr(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullID(id *int64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}
