package repository

import (
	"context"
	"strings"

	"guacaman/internal/db"
	"guacaman/internal/db/crypto"
	"guacaman/internal/domain"
)

// UserRepo manages user accounts and their credentials.
type UserRepo struct {
	tx       db.DBTX
	resolver *Resolver
}

// NewUserRepo creates a UserRepo bound to the given transaction.
func NewUserRepo(tx db.DBTX) *UserRepo {
	return &UserRepo{tx: tx, resolver: NewResolver(tx)}
}

// Create inserts the entity and user rows for a new account and returns the
// canonical entity ID. The password is salted and hashed with the store's
// native scheme.
func (r *UserRepo) Create(ctx context.Context, name, password string) (int64, error) {
	res, err := r.tx.ExecContext(ctx,
		`INSERT INTO guacamole_entity (name, type) VALUES (?, 'USER')`, name)
	if err != nil {
		return 0, mapDBError(err, "user '"+name+"'")
	}
	entityID, err := res.LastInsertId()
	if err != nil {
		return 0, domain.ErrSystem(err, "create user '%s'", name)
	}

	hash, salt, err := crypto.HashPassword(password)
	if err != nil {
		return 0, domain.ErrSystem(err, "hash password for '%s'", name)
	}

	_, err = r.tx.ExecContext(ctx, `
		INSERT INTO guacamole_user (entity_id, password_hash, password_salt, password_date)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)`,
		entityID, hash, salt)
	if err != nil {
		return 0, mapDBError(err, "user '"+name+"'")
	}
	return entityID, nil
}

// Delete removes the account plus everything hanging off it: group
// memberships and permission rows go in the same transaction so no grant
// survives its subject.
func (r *UserRepo) Delete(ctx context.Context, name string) error {
	entityID, err := r.resolver.Resolve(ctx, domain.KindUser, domain.ByName(name))
	if err != nil {
		return err
	}

	steps := []string{
		`DELETE FROM guacamole_user_group_member WHERE member_entity_id = ?`,
		`DELETE FROM guacamole_connection_permission WHERE entity_id = ?`,
		`DELETE FROM guacamole_connection_group_permission WHERE entity_id = ?`,
		`DELETE FROM guacamole_user WHERE entity_id = ?`,
		`DELETE FROM guacamole_entity WHERE entity_id = ?`,
	}
	for _, stmt := range steps {
		if _, err := r.tx.ExecContext(ctx, stmt, entityID); err != nil {
			return mapDBError(err, "user '"+name+"'")
		}
	}
	return nil
}

// SetPassword replaces the stored credential with a freshly salted hash.
func (r *UserRepo) SetPassword(ctx context.Context, name, password string) error {
	entityID, err := r.resolver.Resolve(ctx, domain.KindUser, domain.ByName(name))
	if err != nil {
		return err
	}
	hash, salt, err := crypto.HashPassword(password)
	if err != nil {
		return domain.ErrSystem(err, "hash password for '%s'", name)
	}
	_, err = r.tx.ExecContext(ctx, `
		UPDATE guacamole_user
		SET password_hash = ?, password_salt = ?, password_date = CURRENT_TIMESTAMP
		WHERE entity_id = ?`,
		hash, salt, entityID)
	if err != nil {
		return mapDBError(err, "user '"+name+"'")
	}
	return nil
}

// SetAttribute updates one whitelisted account column. The attribute name
// is checked against domain.UserAttributes before any statement is built.
func (r *UserRepo) SetAttribute(ctx context.Context, name, attr, value string) error {
	spec, ok := domain.UserAttributes[attr]
	if !ok {
		return domain.ErrUsage("invalid user parameter %q", attr)
	}
	entityID, err := r.resolver.Resolve(ctx, domain.KindUser, domain.ByName(name))
	if err != nil {
		return err
	}

	var arg interface{} = value
	if spec.Type == "boolean" {
		b, err := parseBool(value)
		if err != nil {
			return domain.ErrUsage("parameter %q expects a boolean, got %q", attr, value)
		}
		arg = boolToInt(b)
	}

	// spec.Column comes from the whitelist, never from user input.
	_, err = r.tx.ExecContext(ctx,
		`UPDATE guacamole_user SET `+spec.Column+` = ? WHERE entity_id = ?`,
		arg, entityID)
	if err != nil {
		return mapDBError(err, "user '"+name+"'")
	}
	return nil
}

// List returns all users with their group memberships, ordered by name.
func (r *UserRepo) List(ctx context.Context) ([]domain.User, error) {
	rows, err := r.tx.QueryContext(ctx, `
		SELECT e.entity_id, e.name, g.name
		FROM guacamole_entity e
		LEFT JOIN guacamole_user_group_member m ON m.member_entity_id = e.entity_id
		LEFT JOIN guacamole_user_group ug ON ug.user_group_id = m.user_group_id
		LEFT JOIN guacamole_entity g ON g.entity_id = ug.entity_id
		WHERE e.type = 'USER'
		ORDER BY e.name, g.name`)
	if err != nil {
		return nil, domain.ErrSystem(err, "list users")
	}
	defer rows.Close()

	var users []domain.User
	byID := map[int64]int{}
	for rows.Next() {
		var id int64
		var name string
		var group *string
		if err := rows.Scan(&id, &name, &group); err != nil {
			return nil, domain.ErrSystem(err, "list users")
		}
		idx, seen := byID[id]
		if !seen {
			users = append(users, domain.User{EntityID: id, Name: name})
			idx = len(users) - 1
			byID[id] = idx
		}
		if group != nil {
			users[idx].Groups = append(users[idx].Groups, *group)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrSystem(err, "list users")
	}
	return users, nil
}

func parseBool(v string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off":
		return false, nil
	}
	return false, domain.ErrUsage("not a boolean: %q", v)
}
