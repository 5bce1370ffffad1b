package db

import (
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3" // test store driver
)

// sqliteSchema mirrors the MySQL migrations in SQLite dialect so the
// repositories can be tested without a live gateway database. Table and
// column names match migrations/00001_create_schema.sql exactly.
const sqliteSchema = `
CREATE TABLE guacamole_entity (
  entity_id INTEGER PRIMARY KEY AUTOINCREMENT,
  name      TEXT NOT NULL,
  type      TEXT NOT NULL CHECK (type IN ('USER','USER_GROUP')),
  UNIQUE (type, name)
);

CREATE TABLE guacamole_user (
  user_id             INTEGER PRIMARY KEY AUTOINCREMENT,
  entity_id           INTEGER NOT NULL UNIQUE REFERENCES guacamole_entity (entity_id) ON DELETE CASCADE,
  password_hash       BLOB NOT NULL,
  password_salt       BLOB,
  password_date       TIMESTAMP NOT NULL,
  disabled            INTEGER NOT NULL DEFAULT 0,
  expired             INTEGER NOT NULL DEFAULT 0,
  full_name           TEXT,
  email_address       TEXT,
  organization        TEXT,
  organizational_role TEXT,
  timezone            TEXT
);

CREATE TABLE guacamole_user_group (
  user_group_id INTEGER PRIMARY KEY AUTOINCREMENT,
  entity_id     INTEGER NOT NULL UNIQUE REFERENCES guacamole_entity (entity_id) ON DELETE CASCADE,
  disabled      INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE guacamole_user_group_member (
  user_group_id    INTEGER NOT NULL REFERENCES guacamole_user_group (user_group_id) ON DELETE CASCADE,
  member_entity_id INTEGER NOT NULL REFERENCES guacamole_entity (entity_id) ON DELETE CASCADE,
  PRIMARY KEY (user_group_id, member_entity_id)
);

CREATE TABLE guacamole_connection_group (
  connection_group_id   INTEGER PRIMARY KEY AUTOINCREMENT,
  parent_id             INTEGER REFERENCES guacamole_connection_group (connection_group_id),
  connection_group_name TEXT NOT NULL UNIQUE,
  type                  TEXT NOT NULL DEFAULT 'ORGANIZATIONAL'
);

CREATE TABLE guacamole_connection (
  connection_id   INTEGER PRIMARY KEY AUTOINCREMENT,
  connection_name TEXT NOT NULL UNIQUE,
  parent_id       INTEGER REFERENCES guacamole_connection_group (connection_group_id),
  protocol        TEXT NOT NULL,
  max_connections INTEGER,
  max_connections_per_user INTEGER
);

CREATE TABLE guacamole_connection_parameter (
  connection_id   INTEGER NOT NULL REFERENCES guacamole_connection (connection_id) ON DELETE CASCADE,
  parameter_name  TEXT NOT NULL,
  parameter_value TEXT NOT NULL,
  PRIMARY KEY (connection_id, parameter_name)
);

CREATE TABLE guacamole_connection_permission (
  entity_id     INTEGER NOT NULL REFERENCES guacamole_entity (entity_id) ON DELETE CASCADE,
  connection_id INTEGER NOT NULL REFERENCES guacamole_connection (connection_id) ON DELETE CASCADE,
  permission    TEXT NOT NULL,
  PRIMARY KEY (entity_id, connection_id, permission)
);

CREATE TABLE guacamole_connection_group_permission (
  entity_id           INTEGER NOT NULL REFERENCES guacamole_entity (entity_id) ON DELETE CASCADE,
  connection_group_id INTEGER NOT NULL REFERENCES guacamole_connection_group (connection_group_id) ON DELETE CASCADE,
  permission          TEXT NOT NULL,
  PRIMARY KEY (entity_id, connection_group_id, permission)
);
`

// OpenTestStore opens a SQLite store in t.TempDir(), applies the test
// schema, and registers cleanup. Callers drive it exactly like the MySQL
// store, including WithinTx.
func OpenTestStore(t *testing.T) *Store {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.sqlite")
	pool, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		t.Fatalf("open test sqlite: %v", err)
	}
	pool.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = pool.Close() })

	if _, err := pool.Exec(sqliteSchema); err != nil {
		t.Fatalf("apply test schema: %v", err)
	}

	return &Store{DB: pool, Dialect: DialectSQLite}
}
