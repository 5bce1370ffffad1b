package repository

import (
	"context"
	"database/sql"
	"errors"

	"guacaman/internal/db"
	"guacaman/internal/domain"
)

// permissionTables maps a resource kind to the permission table holding its
// grants. Subject kind needs no mapping: both principal kinds share the
// entity table, so one implementation covers all four combinations.
var permissionTables = map[domain.ResourceKind]struct {
	table string
	idCol string
}{
	domain.ResourceConn:      {table: "guacamole_connection_permission", idCol: "connection_id"},
	domain.ResourceConnGroup: {table: "guacamole_connection_group_permission", idCol: "connection_group_id"},
}

// PermissionRepo grants, revokes, and lists access-control relationships
// between principals and resources.
type PermissionRepo struct {
	tx       db.DBTX
	resolver *Resolver
}

// NewPermissionRepo creates a PermissionRepo bound to the given transaction.
func NewPermissionRepo(tx db.DBTX) *PermissionRepo {
	return &PermissionRepo{tx: tx, resolver: NewResolver(tx)}
}

// subjectKind maps the entity type discriminator to a resolver kind.
func subjectKind(st domain.SubjectType) domain.Kind {
	if st == domain.SubjectUserGroup {
		return domain.KindUserGroup
	}
	return domain.KindUser
}

// Grant inserts exactly one READ permission record. Granting a triple that
// already exists is a business-rule violation, not a silent no-op.
func (r *PermissionRepo) Grant(ctx context.Context, subject string, st domain.SubjectType,
	resource domain.Selector, rk domain.ResourceKind) error {

	entityID, err := r.resolver.Resolve(ctx, subjectKind(st), domain.ByName(subject))
	if err != nil {
		return err
	}
	kind := resourceKind(rk)
	resourceID, err := r.resolver.Resolve(ctx, kind, resource)
	if err != nil {
		return err
	}
	t := permissionTables[rk]

	var one int
	err = r.tx.QueryRowContext(ctx,
		`SELECT 1 FROM `+t.table+` WHERE entity_id = ? AND `+t.idCol+` = ?`,
		entityID, resourceID).Scan(&one)
	if err == nil {
		return domain.ErrBusinessRule("%s '%s' already has permission for %s '%s'",
			subjectKind(st), subject, rk, resource)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return domain.ErrSystem(err, "check permission of '%s' on %s '%s'", subject, rk, resource)
	}

	_, err = r.tx.ExecContext(ctx,
		`INSERT INTO `+t.table+` (entity_id, `+t.idCol+`, permission) VALUES (?, ?, ?)`,
		entityID, resourceID, domain.PermissionRead)
	if err != nil {
		return mapDBError(err, "permission of '"+subject+"'")
	}
	return nil
}

// Revoke deletes exactly one permission record; revoking a triple that does
// not exist fails.
func (r *PermissionRepo) Revoke(ctx context.Context, subject string, st domain.SubjectType,
	resource domain.Selector, rk domain.ResourceKind) error {

	entityID, err := r.resolver.Resolve(ctx, subjectKind(st), domain.ByName(subject))
	if err != nil {
		return err
	}
	kind := resourceKind(rk)
	resourceID, err := r.resolver.Resolve(ctx, kind, resource)
	if err != nil {
		return err
	}
	t := permissionTables[rk]

	res, err := r.tx.ExecContext(ctx,
		`DELETE FROM `+t.table+` WHERE entity_id = ? AND `+t.idCol+` = ?`,
		entityID, resourceID)
	if err != nil {
		return mapDBError(err, "permission of '"+subject+"'")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return domain.ErrSystem(err, "revoke permission of '%s'", subject)
	}
	if n == 0 {
		return domain.ErrBusinessRule("%s '%s' has no permission for %s '%s'",
			subjectKind(st), subject, rk, resource)
	}
	return nil
}

// List returns every subject holding a permission on the resource,
// partitioned by subject kind.
func (r *PermissionRepo) List(ctx context.Context, resource domain.Selector, rk domain.ResourceKind) (*domain.PermissionList, error) {
	resourceID, err := r.resolver.Resolve(ctx, resourceKind(rk), resource)
	if err != nil {
		return nil, err
	}
	t := permissionTables[rk]

	rows, err := r.tx.QueryContext(ctx, `
		SELECT e.name, e.type
		FROM `+t.table+` p
		JOIN guacamole_entity e ON e.entity_id = p.entity_id
		WHERE p.`+t.idCol+` = ?
		ORDER BY e.name`,
		resourceID)
	if err != nil {
		return nil, domain.ErrSystem(err, "list permissions on %s '%s'", rk, resource)
	}
	defer rows.Close()

	list := &domain.PermissionList{}
	for rows.Next() {
		var name, typ string
		if err := rows.Scan(&name, &typ); err != nil {
			return nil, domain.ErrSystem(err, "list permissions on %s '%s'", rk, resource)
		}
		if typ == string(domain.SubjectUserGroup) {
			list.Groups = append(list.Groups, name)
		} else {
			list.Users = append(list.Users, name)
		}
	}
	return list, rows.Err()
}

func resourceKind(rk domain.ResourceKind) domain.Kind {
	if rk == domain.ResourceConnGroup {
		return domain.KindConnGroup
	}
	return domain.KindConn
}
