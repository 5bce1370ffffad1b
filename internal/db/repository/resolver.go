package repository

import (
	"context"
	"database/sql"
	"errors"

	"guacaman/internal/db"
	"guacaman/internal/domain"
)

// kindQueries holds the per-kind lookup statements the resolver runs. Each
// takes exactly one argument and yields the canonical numeric ID.
type kindQueries struct {
	byID   string
	byName string
}

var resolverQueries = map[domain.Kind]kindQueries{
	domain.KindUser: {
		byID:   `SELECT entity_id FROM guacamole_entity WHERE entity_id = ? AND type = 'USER'`,
		byName: `SELECT entity_id FROM guacamole_entity WHERE name = ? AND type = 'USER'`,
	},
	domain.KindUserGroup: {
		byID:   `SELECT entity_id FROM guacamole_entity WHERE entity_id = ? AND type = 'USER_GROUP'`,
		byName: `SELECT entity_id FROM guacamole_entity WHERE name = ? AND type = 'USER_GROUP'`,
	},
	domain.KindConn: {
		byID:   `SELECT connection_id FROM guacamole_connection WHERE connection_id = ?`,
		byName: `SELECT connection_id FROM guacamole_connection WHERE connection_name = ?`,
	},
	domain.KindConnGroup: {
		byID:   `SELECT connection_group_id FROM guacamole_connection_group WHERE connection_group_id = ?`,
		byName: `SELECT connection_group_id FROM guacamole_connection_group WHERE connection_group_name = ?`,
	},
}

// Resolver turns a (name, id) selector into a canonical ID under the
// exactly-one-of contract. It performs reads only and is safe to call any
// number of times within one transaction.
type Resolver struct {
	tx db.DBTX
}

// NewResolver creates a Resolver bound to the given transaction.
func NewResolver(tx db.DBTX) *Resolver {
	return &Resolver{tx: tx}
}

// Resolve validates the selector, then verifies the ID exists or looks the
// name up with an exact, case-sensitive, kind-scoped match.
func (r *Resolver) Resolve(ctx context.Context, kind domain.Kind, sel domain.Selector) (int64, error) {
	if err := sel.Validate(kind); err != nil {
		return 0, err
	}
	q, ok := resolverQueries[kind]
	if !ok {
		return 0, domain.ErrUsage("unknown entity kind %q", kind)
	}

	var id int64
	var err error
	if sel.ID != 0 {
		err = r.tx.QueryRowContext(ctx, q.byID, sel.ID).Scan(&id)
	} else {
		err = r.tx.QueryRowContext(ctx, q.byName, sel.Name).Scan(&id)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return 0, domain.ErrNotFound(kind, sel.String())
	}
	if err != nil {
		return 0, domain.ErrSystem(err, "resolve %s '%s'", kind, sel)
	}
	return id, nil
}

// Exists reports whether the selected entity exists. Usage errors still
// propagate; only not-found collapses to false.
func (r *Resolver) Exists(ctx context.Context, kind domain.Kind, sel domain.Selector) (bool, error) {
	_, err := r.Resolve(ctx, kind, sel)
	if err != nil {
		var nf *domain.NotFoundError
		if errors.As(err, &nf) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
