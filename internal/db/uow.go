package db

import (
	"context"
	"database/sql"

	"guacaman/internal/domain"
)

// DBTX is the statement surface shared by *sql.DB and *sql.Tx. Repositories
// are written against it so they compose under a unit of work.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// WithinTx runs fn inside a single transaction — the unit of work bounding
// one logical CLI operation. On success the transaction commits exactly
// once; on any error it rolls back and the original error is returned
// unchanged. fn must route every statement through tx and never commit or
// roll back itself.
func (s *Store) WithinTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.ErrSystem(err, "begin transaction")
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return domain.ErrSystem(err, "commit transaction")
	}
	return nil
}
