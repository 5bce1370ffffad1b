package repository

import (
	"context"
	"database/sql"
	"errors"

	"guacaman/internal/db"
	"guacaman/internal/domain"
)

// UserGroupRepo manages user-groups and their memberships.
type UserGroupRepo struct {
	tx       db.DBTX
	resolver *Resolver
}

// NewUserGroupRepo creates a UserGroupRepo bound to the given transaction.
func NewUserGroupRepo(tx db.DBTX) *UserGroupRepo {
	return &UserGroupRepo{tx: tx, resolver: NewResolver(tx)}
}

// Create inserts the entity and group rows and returns the canonical
// entity ID.
func (r *UserGroupRepo) Create(ctx context.Context, name string) (int64, error) {
	res, err := r.tx.ExecContext(ctx,
		`INSERT INTO guacamole_entity (name, type) VALUES (?, 'USER_GROUP')`, name)
	if err != nil {
		return 0, mapDBError(err, "usergroup '"+name+"'")
	}
	entityID, err := res.LastInsertId()
	if err != nil {
		return 0, domain.ErrSystem(err, "create usergroup '%s'", name)
	}
	if _, err := r.tx.ExecContext(ctx,
		`INSERT INTO guacamole_user_group (entity_id) VALUES (?)`, entityID); err != nil {
		return 0, mapDBError(err, "usergroup '"+name+"'")
	}
	return entityID, nil
}

// Delete removes the group, its memberships, and every permission row it
// holds, all within the caller's transaction.
func (r *UserGroupRepo) Delete(ctx context.Context, sel domain.Selector) error {
	entityID, err := r.resolver.Resolve(ctx, domain.KindUserGroup, sel)
	if err != nil {
		return err
	}

	steps := []string{
		`DELETE FROM guacamole_user_group_member
		 WHERE user_group_id IN (SELECT user_group_id FROM guacamole_user_group WHERE entity_id = ?)`,
		`DELETE FROM guacamole_connection_permission WHERE entity_id = ?`,
		`DELETE FROM guacamole_connection_group_permission WHERE entity_id = ?`,
		`DELETE FROM guacamole_user_group WHERE entity_id = ?`,
		`DELETE FROM guacamole_entity WHERE entity_id = ?`,
	}
	for _, stmt := range steps {
		if _, err := r.tx.ExecContext(ctx, stmt, entityID); err != nil {
			return mapDBError(err, "usergroup '"+sel.String()+"'")
		}
	}
	return nil
}

// groupRowID maps a group's entity ID to its user_group_id row key.
func (r *UserGroupRepo) groupRowID(ctx context.Context, entityID int64) (int64, error) {
	var id int64
	err := r.tx.QueryRowContext(ctx,
		`SELECT user_group_id FROM guacamole_user_group WHERE entity_id = ?`, entityID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, domain.ErrSystem(err, "usergroup row missing for entity %d", entityID)
	}
	if err != nil {
		return 0, domain.ErrSystem(err, "lookup usergroup row")
	}
	return id, nil
}

// AddMember adds the named user to the group. Adding a user twice is a
// business-rule violation, not a silent no-op.
func (r *UserGroupRepo) AddMember(ctx context.Context, groupSel domain.Selector, username string) error {
	groupEntityID, err := r.resolver.Resolve(ctx, domain.KindUserGroup, groupSel)
	if err != nil {
		return err
	}
	userEntityID, err := r.resolver.Resolve(ctx, domain.KindUser, domain.ByName(username))
	if err != nil {
		return err
	}
	groupID, err := r.groupRowID(ctx, groupEntityID)
	if err != nil {
		return err
	}

	var one int
	err = r.tx.QueryRowContext(ctx, `
		SELECT 1 FROM guacamole_user_group_member
		WHERE user_group_id = ? AND member_entity_id = ?`,
		groupID, userEntityID).Scan(&one)
	if err == nil {
		return domain.ErrBusinessRule("user '%s' is already a member of usergroup '%s'", username, groupSel)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return domain.ErrSystem(err, "check membership of '%s'", username)
	}

	_, err = r.tx.ExecContext(ctx, `
		INSERT INTO guacamole_user_group_member (user_group_id, member_entity_id)
		VALUES (?, ?)`,
		groupID, userEntityID)
	if err != nil {
		return mapDBError(err, "membership of '"+username+"'")
	}
	return nil
}

// RemoveMember removes the named user from the group; removing a non-member
// fails.
func (r *UserGroupRepo) RemoveMember(ctx context.Context, groupSel domain.Selector, username string) error {
	groupEntityID, err := r.resolver.Resolve(ctx, domain.KindUserGroup, groupSel)
	if err != nil {
		return err
	}
	userEntityID, err := r.resolver.Resolve(ctx, domain.KindUser, domain.ByName(username))
	if err != nil {
		return err
	}
	groupID, err := r.groupRowID(ctx, groupEntityID)
	if err != nil {
		return err
	}

	res, err := r.tx.ExecContext(ctx, `
		DELETE FROM guacamole_user_group_member
		WHERE user_group_id = ? AND member_entity_id = ?`,
		groupID, userEntityID)
	if err != nil {
		return mapDBError(err, "membership of '"+username+"'")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return domain.ErrSystem(err, "remove member '%s'", username)
	}
	if n == 0 {
		return domain.ErrBusinessRule("user '%s' is not a member of usergroup '%s'", username, groupSel)
	}
	return nil
}

// List returns all user-groups with their members, ordered by name.
func (r *UserGroupRepo) List(ctx context.Context) ([]domain.UserGroup, error) {
	rows, err := r.tx.QueryContext(ctx, `
		SELECT e.entity_id, e.name, u.name
		FROM guacamole_entity e
		JOIN guacamole_user_group ug ON ug.entity_id = e.entity_id
		LEFT JOIN guacamole_user_group_member m ON m.user_group_id = ug.user_group_id
		LEFT JOIN guacamole_entity u ON u.entity_id = m.member_entity_id
		WHERE e.type = 'USER_GROUP'
		ORDER BY e.name, u.name`)
	if err != nil {
		return nil, domain.ErrSystem(err, "list usergroups")
	}
	defer rows.Close()

	var groups []domain.UserGroup
	byID := map[int64]int{}
	for rows.Next() {
		var id int64
		var name string
		var member *string
		if err := rows.Scan(&id, &name, &member); err != nil {
			return nil, domain.ErrSystem(err, "list usergroups")
		}
		idx, seen := byID[id]
		if !seen {
			groups = append(groups, domain.UserGroup{EntityID: id, Name: name})
			idx = len(groups) - 1
			byID[id] = idx
		}
		if member != nil {
			groups[idx].Members = append(groups[idx].Members, *member)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrSystem(err, "list usergroups")
	}
	return groups, nil
}
