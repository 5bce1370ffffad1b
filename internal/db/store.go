// Package db provides database connectivity, the unit-of-work transaction
// boundary, and migration support for the gateway configuration store.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
)

// Dialect distinguishes the production MySQL store from the SQLite store
// used by tests. The SQL issued by the repositories is shared; only row
// locking differs.
type Dialect int

const (
	DialectMySQL Dialect = iota
	DialectSQLite
)

// LockSuffix returns the clause appended to SELECTs that must hold their
// rows until commit. SQLite serializes writers instead, so it gets none.
func (d Dialect) LockSuffix() string {
	if d == DialectMySQL {
		return " FOR UPDATE"
	}
	return ""
}

// Store is an open connection pool plus the dialect it speaks.
type Store struct {
	DB      *sql.DB
	Dialect Dialect
}

// Close closes the underlying pool.
func (s *Store) Close() error { return s.DB.Close() }

// MySQLConfig carries what is needed to reach the gateway's MySQL store.
// Host and Port may point at a local tunnel endpoint instead of the real
// server.
type MySQLConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
}

// OpenMySQL opens a *sql.DB pool for the gateway configuration database and
// verifies it is reachable. A CLI invocation is one logical operation, so
// the pool is kept at a single connection.
func OpenMySQL(cfg MySQLConfig) (*Store, error) {
	mc := mysql.NewConfig()
	mc.Net = "tcp"
	mc.Addr = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	mc.User = cfg.User
	mc.Passwd = cfg.Password
	mc.DBName = cfg.Database
	mc.ParseTime = true
	mc.Collation = "utf8mb4_general_ci"

	connector, err := mysql.NewConnector(mc)
	if err != nil {
		return nil, fmt.Errorf("mysql config: %w", err)
	}

	pool := sql.OpenDB(connector)
	pool.SetMaxOpenConns(1)
	pool.SetMaxIdleConns(1)
	pool.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := pool.PingContext(ctx); err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("ping mysql at %s: %w", mc.Addr, err)
	}

	return &Store{DB: pool, Dialect: DialectMySQL}, nil
}
