package db

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countEntities(t *testing.T, store *Store) int {
	t.Helper()
	var n int
	err := store.DB.QueryRowContext(context.Background(),
		`SELECT COUNT(*) FROM guacamole_entity`).Scan(&n)
	require.NoError(t, err)
	return n
}

func TestWithinTxCommits(t *testing.T) {
	store := OpenTestStore(t)

	err := store.WithinTx(context.Background(), func(tx *sql.Tx) error {
		_, err := tx.Exec(`INSERT INTO guacamole_entity (name, type) VALUES ('alice', 'USER')`)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 1, countEntities(t, store))
}

func TestWithinTxRollsBackAndPreservesError(t *testing.T) {
	store := OpenTestStore(t)
	boom := errors.New("boom")

	err := store.WithinTx(context.Background(), func(tx *sql.Tx) error {
		if _, err := tx.Exec(`INSERT INTO guacamole_entity (name, type) VALUES ('alice', 'USER')`); err != nil {
			return err
		}
		return boom
	})

	// The callback's error comes back unchanged and nothing persists.
	require.ErrorIs(t, err, boom)
	assert.Zero(t, countEntities(t, store))
}

func TestLockSuffix(t *testing.T) {
	assert.Equal(t, " FOR UPDATE", DialectMySQL.LockSuffix())
	assert.Equal(t, "", DialectSQLite.LockSuffix())
}
