package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"guacaman/internal/db"
	"guacaman/internal/domain"
)

func mkGroup(t *testing.T, repo *ConnGroupRepo, name string, parent *domain.Selector) int64 {
	t.Helper()
	id, err := repo.Create(context.Background(), name, parent)
	require.NoError(t, err)
	return id
}

func sel(name string) *domain.Selector {
	s := domain.ByName(name)
	return &s
}

func TestConnGroupCreateAndList(t *testing.T) {
	store := db.OpenTestStore(t)
	ctx := context.Background()
	repo := NewConnGroupRepo(store.DB, store.Dialect)

	top := mkGroup(t, repo, "datacenter", nil)
	mkGroup(t, repo, "rack1", sel("datacenter"))

	groups, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 2)

	assert.Equal(t, "datacenter", groups[0].Name)
	assert.Equal(t, domain.RootGroupName, groups[0].ParentName)
	assert.Equal(t, "rack1", groups[1].Name)
	assert.Equal(t, "datacenter", groups[1].ParentName)
	require.NotNil(t, groups[1].ParentID)
	assert.Equal(t, top, *groups[1].ParentID)
}

func TestConnGroupDuplicateName(t *testing.T) {
	store := db.OpenTestStore(t)
	repo := NewConnGroupRepo(store.DB, store.Dialect)

	mkGroup(t, repo, "dup", nil)
	_, err := repo.Create(context.Background(), "dup", nil)

	var br *domain.BusinessRuleError
	require.ErrorAs(t, err, &br)
	assert.Contains(t, err.Error(), "already exists")
}

func TestConnGroupReparentRejectsSelf(t *testing.T) {
	store := db.OpenTestStore(t)
	repo := NewConnGroupRepo(store.DB, store.Dialect)

	mkGroup(t, repo, "a", nil)

	err := repo.Reparent(context.Background(), domain.ByName("a"), sel("a"))
	var br *domain.BusinessRuleError
	require.ErrorAs(t, err, &br)
	assert.Contains(t, err.Error(), "cycle")
}

func TestConnGroupReparentRejectsDescendant(t *testing.T) {
	store := db.OpenTestStore(t)
	ctx := context.Background()
	repo := NewConnGroupRepo(store.DB, store.Dialect)

	// a -> b -> c; moving a under c would close a loop.
	mkGroup(t, repo, "a", nil)
	mkGroup(t, repo, "b", sel("a"))
	mkGroup(t, repo, "c", sel("b"))

	err := repo.Reparent(ctx, domain.ByName("a"), sel("c"))
	var br *domain.BusinessRuleError
	require.ErrorAs(t, err, &br)
	assert.Contains(t, err.Error(), "cycle")

	// The failed move must leave the tree untouched.
	groups, err := repo.List(ctx)
	require.NoError(t, err)
	for _, g := range groups {
		if g.Name == "a" {
			assert.Nil(t, g.ParentID)
		}
	}
}

func TestConnGroupReparentAndDetach(t *testing.T) {
	store := db.OpenTestStore(t)
	ctx := context.Background()
	repo := NewConnGroupRepo(store.DB, store.Dialect)

	aID := mkGroup(t, repo, "a", nil)
	bID := mkGroup(t, repo, "b", nil)

	require.NoError(t, repo.Reparent(ctx, domain.ByName("b"), sel("a")))
	chain, err := repo.ListAncestors(ctx, bID)
	require.NoError(t, err)
	assert.Equal(t, []int64{aID}, chain)

	// nil parent detaches back to the root.
	require.NoError(t, repo.Reparent(ctx, domain.ByID(bID), nil))
	chain, err = repo.ListAncestors(ctx, bID)
	require.NoError(t, err)
	assert.Empty(t, chain)
}

func TestConnGroupReparentToCurrentParent(t *testing.T) {
	store := db.OpenTestStore(t)
	ctx := context.Background()
	repo := NewConnGroupRepo(store.DB, store.Dialect)

	aID := mkGroup(t, repo, "a", nil)
	bID := mkGroup(t, repo, "b", sel("a"))

	// Moving to the parent the group already has is a valid no-op, even
	// though the UPDATE changes nothing.
	require.NoError(t, repo.Reparent(ctx, domain.ByName("b"), sel("a")))
	chain, err := repo.ListAncestors(ctx, bID)
	require.NoError(t, err)
	assert.Equal(t, []int64{aID}, chain)

	// Same for detaching a group that already sits at the root.
	require.NoError(t, repo.Reparent(ctx, domain.ByName("a"), nil))
	chain, err = repo.ListAncestors(ctx, aID)
	require.NoError(t, err)
	assert.Empty(t, chain)
}

func TestConnGroupDeleteDetachesChildren(t *testing.T) {
	store := db.OpenTestStore(t)
	ctx := context.Background()
	groups := NewConnGroupRepo(store.DB, store.Dialect)
	conns := NewConnRepo(store.DB)

	parentID := mkGroup(t, groups, "parent", nil)
	childID := mkGroup(t, groups, "child", sel("parent"))

	connID, err := conns.Create(ctx, "vm1", "vnc", "10.0.0.1", "5901", "")
	require.NoError(t, err)
	require.NoError(t, conns.SetParent(ctx, domain.ByID(connID), &parentID))

	require.NoError(t, groups.Delete(ctx, domain.ByName("parent")))

	// Both the child group and the connection survive, reattached to root.
	chain, err := groups.ListAncestors(ctx, childID)
	require.NoError(t, err)
	assert.Empty(t, chain)

	c, err := conns.Get(ctx, connID)
	require.NoError(t, err)
	assert.Nil(t, c.ParentID)
}

func TestConnGroupDeleteRemovesPermissions(t *testing.T) {
	store := db.OpenTestStore(t)
	ctx := context.Background()
	groups := NewConnGroupRepo(store.DB, store.Dialect)
	perms := NewPermissionRepo(store.DB)

	mkGroup(t, groups, "secured", nil)
	_, err := NewUserRepo(store.DB).Create(ctx, "alice", "pw")
	require.NoError(t, err)
	require.NoError(t, perms.Grant(ctx, "alice", domain.SubjectUser,
		domain.ByName("secured"), domain.ResourceConnGroup))

	require.NoError(t, groups.Delete(ctx, domain.ByName("secured")))

	var n int
	err = store.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM guacamole_connection_group_permission`).Scan(&n)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestConnGroupListChildren(t *testing.T) {
	store := db.OpenTestStore(t)
	ctx := context.Background()
	repo := NewConnGroupRepo(store.DB, store.Dialect)

	aID := mkGroup(t, repo, "a", nil)
	bID := mkGroup(t, repo, "b", sel("a"))
	cID := mkGroup(t, repo, "c", sel("a"))

	kids, err := repo.ListChildren(ctx, &aID)
	require.NoError(t, err)
	assert.Equal(t, []int64{bID, cID}, kids)

	roots, err := repo.ListChildren(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, []int64{aID}, roots)
}
