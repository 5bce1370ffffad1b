package repository

import (
	"context"
	"database/sql"
	"errors"

	"guacaman/internal/db"
	"guacaman/internal/domain"
)

// ConnGroupRepo owns the connection-group hierarchy: creation, reparenting
// with cycle detection, and data-preserving deletion.
type ConnGroupRepo struct {
	tx       db.DBTX
	dialect  db.Dialect
	resolver *Resolver
}

// NewConnGroupRepo creates a ConnGroupRepo bound to the given transaction.
func NewConnGroupRepo(tx db.DBTX, dialect db.Dialect) *ConnGroupRepo {
	return &ConnGroupRepo{tx: tx, dialect: dialect, resolver: NewResolver(tx)}
}

// Create inserts a group under the given parent, or under the implicit root
// when parentSel is nil. A fresh node has no children, so no cycle check is
// needed.
func (r *ConnGroupRepo) Create(ctx context.Context, name string, parentSel *domain.Selector) (int64, error) {
	var parentID interface{}
	if parentSel != nil {
		id, err := r.resolver.Resolve(ctx, domain.KindConnGroup, *parentSel)
		if err != nil {
			return 0, err
		}
		parentID = id
	}

	res, err := r.tx.ExecContext(ctx, `
		INSERT INTO guacamole_connection_group (connection_group_name, parent_id)
		VALUES (?, ?)`,
		name, parentID)
	if err != nil {
		return 0, mapDBError(err, "connection group '"+name+"'")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, domain.ErrSystem(err, "create connection group '%s'", name)
	}
	return id, nil
}

// Reparent moves the group under a new parent, or detaches it to the root
// when parentSel is nil. The cycle check walks the proposed ancestor chain
// upward, holding row locks where the dialect supports them, and fails
// before any write if the moved node appears in the chain.
func (r *ConnGroupRepo) Reparent(ctx context.Context, sel domain.Selector, parentSel *domain.Selector) error {
	nodeID, err := r.resolver.Resolve(ctx, domain.KindConnGroup, sel)
	if err != nil {
		return err
	}

	var parentID interface{}
	if parentSel != nil {
		pid, err := r.resolver.Resolve(ctx, domain.KindConnGroup, *parentSel)
		if err != nil {
			return err
		}
		if err := r.checkCycle(ctx, nodeID, pid); err != nil {
			return err
		}
		parentID = pid
	}

	// No RowsAffected check: the node was resolved in this transaction, and
	// the MySQL driver reports changed rows, so a move to the current parent
	// affects none.
	_, err = r.tx.ExecContext(ctx,
		`UPDATE guacamole_connection_group SET parent_id = ? WHERE connection_group_id = ?`,
		parentID, nodeID)
	if err != nil {
		return mapDBError(err, "connection group '"+sel.String()+"'")
	}
	return nil
}

// checkCycle fails when newParentID equals nodeID or is one of its
// descendants. The walk is bounded by the total group count so corrupted
// data cannot spin it forever.
func (r *ConnGroupRepo) checkCycle(ctx context.Context, nodeID, newParentID int64) error {
	if newParentID == nodeID {
		return domain.ErrCycle(nodeID, newParentID)
	}

	var total int64
	if err := r.tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM guacamole_connection_group`).Scan(&total); err != nil {
		return domain.ErrSystem(err, "count connection groups")
	}

	// Lock each visited row so a concurrent reparent cannot splice the
	// chain between this check and the update.
	step := `SELECT parent_id FROM guacamole_connection_group WHERE connection_group_id = ?` +
		r.dialect.LockSuffix()

	current := newParentID
	for hops := int64(0); hops <= total; hops++ {
		var parent sql.NullInt64
		err := r.tx.QueryRowContext(ctx, step, current).Scan(&parent)
		if errors.Is(err, sql.ErrNoRows) {
			return nil // chain ended at a deleted node; treat as root
		}
		if err != nil {
			return domain.ErrSystem(err, "walk ancestor chain of group %d", current)
		}
		if !parent.Valid {
			return nil // reached the implicit root
		}
		if parent.Int64 == nodeID {
			return domain.ErrCycle(nodeID, newParentID)
		}
		current = parent.Int64
	}
	return domain.ErrBusinessRule("ancestor chain of group %d exceeds group count; hierarchy is corrupt", newParentID)
}

// Delete detaches member connections and child groups to the root, drops
// the group's permission rows, then removes the group. Reparenting children
// to the root (rather than the grandparent or refusing) is the explicit
// policy here; it preserves all data and matches what operators expect from
// the detach-on-delete rule for connections.
func (r *ConnGroupRepo) Delete(ctx context.Context, sel domain.Selector) error {
	groupID, err := r.resolver.Resolve(ctx, domain.KindConnGroup, sel)
	if err != nil {
		return err
	}

	steps := []string{
		`UPDATE guacamole_connection_group SET parent_id = NULL WHERE parent_id = ?`,
		`UPDATE guacamole_connection SET parent_id = NULL WHERE parent_id = ?`,
		`DELETE FROM guacamole_connection_group_permission WHERE connection_group_id = ?`,
		`DELETE FROM guacamole_connection_group WHERE connection_group_id = ?`,
	}
	for _, stmt := range steps {
		if _, err := r.tx.ExecContext(ctx, stmt, groupID); err != nil {
			return mapDBError(err, "connection group '"+sel.String()+"'")
		}
	}
	return nil
}

// ListChildren returns the IDs of groups directly under parentID, or the
// root-level groups when parentID is nil.
func (r *ConnGroupRepo) ListChildren(ctx context.Context, parentID *int64) ([]int64, error) {
	query := `SELECT connection_group_id FROM guacamole_connection_group WHERE parent_id IS NULL ORDER BY connection_group_id`
	var args []interface{}
	if parentID != nil {
		query = `SELECT connection_group_id FROM guacamole_connection_group WHERE parent_id = ? ORDER BY connection_group_id`
		args = append(args, *parentID)
	}

	rows, err := r.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, domain.ErrSystem(err, "list child groups")
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, domain.ErrSystem(err, "list child groups")
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListAncestors returns the chain from nodeID's parent up to the root.
func (r *ConnGroupRepo) ListAncestors(ctx context.Context, nodeID int64) ([]int64, error) {
	var total int64
	if err := r.tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM guacamole_connection_group`).Scan(&total); err != nil {
		return nil, domain.ErrSystem(err, "count connection groups")
	}

	var chain []int64
	current := nodeID
	for hops := int64(0); hops <= total; hops++ {
		var parent sql.NullInt64
		err := r.tx.QueryRowContext(ctx,
			`SELECT parent_id FROM guacamole_connection_group WHERE connection_group_id = ?`,
			current).Scan(&parent)
		if errors.Is(err, sql.ErrNoRows) {
			if current == nodeID {
				return nil, domain.ErrNotFound(domain.KindConnGroup, domain.ByID(nodeID).String())
			}
			return chain, nil
		}
		if err != nil {
			return nil, domain.ErrSystem(err, "walk ancestor chain of group %d", current)
		}
		if !parent.Valid {
			return chain, nil
		}
		chain = append(chain, parent.Int64)
		current = parent.Int64
	}
	return nil, domain.ErrBusinessRule("ancestor chain of group %d exceeds group count; hierarchy is corrupt", nodeID)
}

// Get returns one group with its member connections, or NotFound.
func (r *ConnGroupRepo) Get(ctx context.Context, id int64) (*domain.ConnectionGroup, error) {
	groups, err := r.list(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(groups) == 0 {
		return nil, domain.ErrNotFound(domain.KindConnGroup, domain.ByID(id).String())
	}
	return &groups[0], nil
}

// List returns every group, ordered by name, with canonical IDs exposed.
func (r *ConnGroupRepo) List(ctx context.Context) ([]domain.ConnectionGroup, error) {
	return r.list(ctx, 0)
}

func (r *ConnGroupRepo) list(ctx context.Context, onlyID int64) ([]domain.ConnectionGroup, error) {
	query := `
		SELECT cg.connection_group_id, cg.connection_group_name, cg.parent_id,
		       p.connection_group_name, c.connection_name
		FROM guacamole_connection_group cg
		LEFT JOIN guacamole_connection_group p ON p.connection_group_id = cg.parent_id
		LEFT JOIN guacamole_connection c ON c.parent_id = cg.connection_group_id`
	var args []interface{}
	if onlyID != 0 {
		query += ` WHERE cg.connection_group_id = ?`
		args = append(args, onlyID)
	}
	query += ` ORDER BY cg.connection_group_name, c.connection_name`

	rows, err := r.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, domain.ErrSystem(err, "list connection groups")
	}
	defer rows.Close()

	var groups []domain.ConnectionGroup
	byID := map[int64]int{}
	for rows.Next() {
		var g domain.ConnectionGroup
		var parentName, connName *string
		if err := rows.Scan(&g.ID, &g.Name, &g.ParentID, &parentName, &connName); err != nil {
			return nil, domain.ErrSystem(err, "list connection groups")
		}
		idx, seen := byID[g.ID]
		if !seen {
			if parentName != nil {
				g.ParentName = *parentName
			} else {
				g.ParentName = domain.RootGroupName
			}
			groups = append(groups, g)
			idx = len(groups) - 1
			byID[g.ID] = idx
		}
		if connName != nil {
			groups[idx].Connections = append(groups[idx].Connections, *connName)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrSystem(err, "list connection groups")
	}
	return groups, nil
}
