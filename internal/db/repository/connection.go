package repository

import (
	"context"
	"database/sql"
	"errors"

	"guacaman/internal/db"
	"guacaman/internal/domain"
)

// ConnRepo manages connection resources and their parameters.
type ConnRepo struct {
	tx       db.DBTX
	resolver *Resolver
}

// NewConnRepo creates a ConnRepo bound to the given transaction.
func NewConnRepo(tx db.DBTX) *ConnRepo {
	return &ConnRepo{tx: tx, resolver: NewResolver(tx)}
}

// Create inserts a connection and its parameter rows and returns the
// canonical connection ID. An empty password stores no password parameter.
func (r *ConnRepo) Create(ctx context.Context, name, protocol, hostname, port, password string) (int64, error) {
	if !domain.KnownProtocol(protocol) {
		return 0, domain.ErrUsage("unknown protocol %q (expected vnc, rdp, or ssh)", protocol)
	}

	res, err := r.tx.ExecContext(ctx,
		`INSERT INTO guacamole_connection (connection_name, protocol) VALUES (?, ?)`,
		name, protocol)
	if err != nil {
		return 0, mapDBError(err, "connection '"+name+"'")
	}
	connID, err := res.LastInsertId()
	if err != nil {
		return 0, domain.ErrSystem(err, "create connection '%s'", name)
	}

	params := []domain.ConnParameter{
		{Name: "hostname", Value: hostname},
		{Name: "port", Value: port},
	}
	if password != "" {
		params = append(params, domain.ConnParameter{Name: "password", Value: password})
	}
	for _, p := range params {
		_, err := r.tx.ExecContext(ctx, `
			INSERT INTO guacamole_connection_parameter (connection_id, parameter_name, parameter_value)
			VALUES (?, ?, ?)`,
			connID, p.Name, p.Value)
		if err != nil {
			return 0, mapDBError(err, "connection parameter "+p.Name)
		}
	}
	return connID, nil
}

// Delete removes the connection, its parameters, and every permission row
// that points at it.
func (r *ConnRepo) Delete(ctx context.Context, sel domain.Selector) error {
	connID, err := r.resolver.Resolve(ctx, domain.KindConn, sel)
	if err != nil {
		return err
	}

	steps := []string{
		`DELETE FROM guacamole_connection_parameter WHERE connection_id = ?`,
		`DELETE FROM guacamole_connection_permission WHERE connection_id = ?`,
		`DELETE FROM guacamole_connection WHERE connection_id = ?`,
	}
	for _, stmt := range steps {
		if _, err := r.tx.ExecContext(ctx, stmt, connID); err != nil {
			return mapDBError(err, "connection '"+sel.String()+"'")
		}
	}
	return nil
}

// SetParent attaches the connection to a connection group, or to the root
// when parentID is nil.
func (r *ConnRepo) SetParent(ctx context.Context, sel domain.Selector, parentID *int64) error {
	connID, err := r.resolver.Resolve(ctx, domain.KindConn, sel)
	if err != nil {
		return err
	}
	_, err = r.tx.ExecContext(ctx,
		`UPDATE guacamole_connection SET parent_id = ? WHERE connection_id = ?`,
		nullID(parentID), connID)
	if err != nil {
		return mapDBError(err, "connection '"+sel.String()+"'")
	}
	return nil
}

// SetAttribute updates one whitelisted connection setting, either a column
// of the connection row or an upserted parameter row.
func (r *ConnRepo) SetAttribute(ctx context.Context, sel domain.Selector, attr, value string) error {
	spec, ok := domain.ConnAttributes[attr]
	if !ok {
		return domain.ErrUsage("invalid connection parameter %q", attr)
	}
	connID, err := r.resolver.Resolve(ctx, domain.KindConn, sel)
	if err != nil {
		return err
	}

	if spec.Table == "connection" {
		// attr comes from the whitelist, never from user input.
		_, err = r.tx.ExecContext(ctx,
			`UPDATE guacamole_connection SET `+attr+` = ? WHERE connection_id = ?`,
			nullStr(value), connID)
		if err != nil {
			return mapDBError(err, "connection '"+sel.String()+"'")
		}
		return nil
	}

	// Branch on existence, not RowsAffected: the MySQL driver reports
	// changed rows, so setting a parameter to its current value affects
	// none and would steer a RowsAffected upsert into a duplicate INSERT.
	var one int
	err = r.tx.QueryRowContext(ctx, `
		SELECT 1 FROM guacamole_connection_parameter
		WHERE connection_id = ? AND parameter_name = ?`,
		connID, attr).Scan(&one)
	switch {
	case err == nil:
		_, err = r.tx.ExecContext(ctx, `
			UPDATE guacamole_connection_parameter SET parameter_value = ?
			WHERE connection_id = ? AND parameter_name = ?`,
			value, connID, attr)
	case errors.Is(err, sql.ErrNoRows):
		_, err = r.tx.ExecContext(ctx, `
			INSERT INTO guacamole_connection_parameter (connection_id, parameter_name, parameter_value)
			VALUES (?, ?, ?)`,
			connID, attr, value)
	default:
		return domain.ErrSystem(err, "check connection parameter %s", attr)
	}
	if err != nil {
		return mapDBError(err, "connection parameter "+attr)
	}
	return nil
}

// Get returns one connection with parameters, parent, and permission
// holders, or NotFound.
func (r *ConnRepo) Get(ctx context.Context, id int64) (*domain.Connection, error) {
	conns, err := r.list(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(conns) == 0 {
		return nil, domain.ErrNotFound(domain.KindConn, domain.ByID(id).String())
	}
	return &conns[0], nil
}

// List returns every connection, ordered by name, with the canonical ID
// exposed so listings round-trip into ID selectors.
func (r *ConnRepo) List(ctx context.Context) ([]domain.Connection, error) {
	return r.list(ctx, 0)
}

func (r *ConnRepo) list(ctx context.Context, onlyID int64) ([]domain.Connection, error) {
	query := `
		SELECT c.connection_id, c.connection_name, c.protocol, c.parent_id, pg.connection_group_name
		FROM guacamole_connection c
		LEFT JOIN guacamole_connection_group pg ON pg.connection_group_id = c.parent_id`
	var args []interface{}
	if onlyID != 0 {
		query += ` WHERE c.connection_id = ?`
		args = append(args, onlyID)
	}
	query += ` ORDER BY c.connection_name`

	rows, err := r.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, domain.ErrSystem(err, "list connections")
	}
	defer rows.Close()

	var conns []domain.Connection
	byID := map[int64]int{}
	for rows.Next() {
		var c domain.Connection
		var parentName *string
		if err := rows.Scan(&c.ID, &c.Name, &c.Protocol, &c.ParentID, &parentName); err != nil {
			return nil, domain.ErrSystem(err, "list connections")
		}
		if parentName != nil {
			c.ParentName = *parentName
		}
		byID[c.ID] = len(conns)
		conns = append(conns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrSystem(err, "list connections")
	}
	if len(conns) == 0 {
		return conns, nil
	}

	if err := r.fillParameters(ctx, conns, byID, onlyID); err != nil {
		return nil, err
	}
	if err := r.fillPermissions(ctx, conns, byID, onlyID); err != nil {
		return nil, err
	}
	return conns, nil
}

func (r *ConnRepo) fillParameters(ctx context.Context, conns []domain.Connection, byID map[int64]int, onlyID int64) error {
	query := `
		SELECT connection_id, parameter_name, parameter_value
		FROM guacamole_connection_parameter
		WHERE parameter_name IN ('hostname', 'port')`
	var args []interface{}
	if onlyID != 0 {
		query += ` AND connection_id = ?`
		args = append(args, onlyID)
	}

	rows, err := r.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return domain.ErrSystem(err, "load connection parameters")
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var name, value string
		if err := rows.Scan(&id, &name, &value); err != nil {
			return domain.ErrSystem(err, "load connection parameters")
		}
		idx, ok := byID[id]
		if !ok {
			continue
		}
		switch name {
		case "hostname":
			conns[idx].Hostname = value
		case "port":
			conns[idx].Port = value
		}
	}
	return rows.Err()
}

func (r *ConnRepo) fillPermissions(ctx context.Context, conns []domain.Connection, byID map[int64]int, onlyID int64) error {
	query := `
		SELECT cp.connection_id, e.name, e.type
		FROM guacamole_connection_permission cp
		JOIN guacamole_entity e ON e.entity_id = cp.entity_id`
	var args []interface{}
	if onlyID != 0 {
		query += ` WHERE cp.connection_id = ?`
		args = append(args, onlyID)
	}
	query += ` ORDER BY e.name`

	rows, err := r.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return domain.ErrSystem(err, "load connection permissions")
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var name, typ string
		if err := rows.Scan(&id, &name, &typ); err != nil {
			return domain.ErrSystem(err, "load connection permissions")
		}
		idx, ok := byID[id]
		if !ok {
			continue
		}
		if typ == string(domain.SubjectUserGroup) {
			conns[idx].Groups = append(conns[idx].Groups, name)
		} else {
			conns[idx].Users = append(conns[idx].Users, name)
		}
	}
	return rows.Err()
}
