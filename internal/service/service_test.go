package service

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"guacaman/internal/db"
	"guacaman/internal/domain"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	return New(db.OpenTestStore(t), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestCreateUserWithGroups(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.CreateUserGroup(ctx, "ops", nil))
	require.NoError(t, svc.CreateUser(ctx, "alice", "pw", []string{"ops"}))

	users, err := svc.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, []string{"ops"}, users[0].Groups)
}

func TestCreateUserUnknownGroupLeavesNoAccount(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	err := svc.CreateUser(ctx, "alice", "pw", []string{"ghost"})
	var nf *domain.NotFoundError
	require.ErrorAs(t, err, &nf)

	exists, err := svc.UserExists(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestModifyUserGroupBatchIsAtomic(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.CreateUserGroup(ctx, "ops", nil))
	require.NoError(t, svc.CreateUser(ctx, "alice", "pw", nil))
	require.NoError(t, svc.CreateUser(ctx, "bob", "pw", nil))

	// "ghost" fails resolution, so neither alice nor bob is added.
	err := svc.ModifyUserGroup(ctx, domain.ByName("ops"), UserGroupChanges{
		AddUsers: []string{"alice", "bob", "ghost"},
	})
	var nf *domain.NotFoundError
	require.ErrorAs(t, err, &nf)

	groups, err := svc.ListUserGroups(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Empty(t, groups[0].Members)
}

func TestModifyUserPasswordAndAttributes(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.CreateUser(ctx, "alice", "old", nil))

	pw := "new"
	err := svc.ModifyUser(ctx, "alice", UserChanges{
		Password:   &pw,
		Attributes: map[string]string{"full_name": "Alice Doe"},
	})
	require.NoError(t, err)

	err = svc.ModifyUser(ctx, "alice", UserChanges{
		Attributes: map[string]string{"shoe_size": "42"},
	})
	var ue *domain.UsageError
	require.ErrorAs(t, err, &ue)
}

func TestCreateConnWithPermitGroups(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.CreateUserGroup(ctx, "ops", nil))
	require.NoError(t, svc.CreateConn(ctx, NewConnParams{
		Name: "vm1", Protocol: "vnc", Hostname: "10.0.0.1", Port: "5901",
		PermitGroups: []string{"ops"},
	}))

	conns, err := svc.ListConns(ctx)
	require.NoError(t, err)
	require.Len(t, conns, 1)
	assert.Equal(t, []string{"ops"}, conns[0].Groups)

	// An unknown group leaves no connection behind.
	err = svc.CreateConn(ctx, NewConnParams{
		Name: "vm2", Protocol: "vnc", Hostname: "h", Port: "5902",
		PermitGroups: []string{"ghost"},
	})
	var nf *domain.NotFoundError
	require.ErrorAs(t, err, &nf)
	exists, err := svc.ConnExists(ctx, domain.ByName("vm2"))
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestModifyConnParent(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.CreateConnGroup(ctx, "rack1", nil))
	require.NoError(t, svc.CreateConn(ctx, NewConnParams{
		Name: "vm1", Protocol: "vnc", Hostname: "10.0.0.1", Port: "5901",
	}))

	parent := domain.ByName("rack1")
	require.NoError(t, svc.ModifyConn(ctx, domain.ByName("vm1"), ConnChanges{
		SetParent: true, Parent: &parent,
	}))

	conn, err := svc.GetConn(ctx, domain.ByName("vm1"))
	require.NoError(t, err)
	assert.Equal(t, "rack1", conn.ParentName)

	// SetParent with no parent detaches back to the root.
	require.NoError(t, svc.ModifyConn(ctx, domain.ByName("vm1"), ConnChanges{
		SetParent: true,
	}))
	conn, err = svc.GetConn(ctx, domain.ByName("vm1"))
	require.NoError(t, err)
	assert.Nil(t, conn.ParentID)
}

func TestModifyConnPermitAndDeny(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.CreateUser(ctx, "alice", "pw", nil))
	require.NoError(t, svc.CreateConn(ctx, NewConnParams{
		Name: "vm1", Protocol: "ssh", Hostname: "h", Port: "22",
	}))

	require.NoError(t, svc.ModifyConn(ctx, domain.ByName("vm1"), ConnChanges{
		Permit: "alice", SubjectKind: domain.SubjectUser,
	}))

	list, err := svc.ListPermissions(ctx, domain.ByName("vm1"), domain.ResourceConn)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, list.Users)

	// Granting again is rejected and reported as a rule violation.
	err = svc.ModifyConn(ctx, domain.ByName("vm1"), ConnChanges{
		Permit: "alice", SubjectKind: domain.SubjectUser,
	})
	var br *domain.BusinessRuleError
	require.ErrorAs(t, err, &br)

	require.NoError(t, svc.ModifyConn(ctx, domain.ByName("vm1"), ConnChanges{
		Deny: "alice", SubjectKind: domain.SubjectUser,
	}))
	list, err = svc.ListPermissions(ctx, domain.ByName("vm1"), domain.ResourceConn)
	require.NoError(t, err)
	assert.Empty(t, list.Users)
}

func TestModifyConnGroupBatchIsAtomic(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.CreateConnGroup(ctx, "rack1", nil))
	require.NoError(t, svc.CreateConn(ctx, NewConnParams{
		Name: "vm1", Protocol: "vnc", Hostname: "h", Port: "5901",
	}))

	err := svc.ModifyConnGroup(ctx, domain.ByName("rack1"), ConnGroupChanges{
		AddConns: []domain.Selector{domain.ByName("vm1"), domain.ByName("ghost")},
	})
	var nf *domain.NotFoundError
	require.ErrorAs(t, err, &nf)

	conns, err := svc.ListConns(ctx)
	require.NoError(t, err)
	require.Len(t, conns, 1)
	assert.Nil(t, conns[0].ParentID)
}

func TestModifyConnGroupReparentCycleRollsBack(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.CreateConnGroup(ctx, "a", nil))
	parentA := domain.ByName("a")
	require.NoError(t, svc.CreateConnGroup(ctx, "b", &parentA))

	parentB := domain.ByName("b")
	err := svc.ModifyConnGroup(ctx, domain.ByName("a"), ConnGroupChanges{
		SetParent: true, Parent: &parentB,
	})
	var br *domain.BusinessRuleError
	require.ErrorAs(t, err, &br)
	assert.Contains(t, err.Error(), "cycle")
}

func TestDumpAll(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.CreateUserGroup(ctx, "ops", nil))
	require.NoError(t, svc.CreateUser(ctx, "alice", "pw", []string{"ops"}))
	require.NoError(t, svc.CreateConnGroup(ctx, "rack1", nil))
	require.NoError(t, svc.CreateConn(ctx, NewConnParams{
		Name: "vm1", Protocol: "rdp", Hostname: "h", Port: "3389",
	}))
	rack := domain.ByName("rack1")
	require.NoError(t, svc.ModifyConn(ctx, domain.ByName("vm1"), ConnChanges{
		SetParent: true, Parent: &rack,
	}))

	d, err := svc.DumpAll(ctx)
	require.NoError(t, err)

	require.Len(t, d.Users, 1)
	assert.Equal(t, []string{"ops"}, d.Users[0].Groups)
	require.Len(t, d.Groups, 1)
	assert.Equal(t, []string{"alice"}, d.Groups[0].Members)

	// Principal listings carry the canonical entity IDs so they round-trip
	// into ID selectors, like the resource listings do.
	users, err := svc.ListUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, users[0].EntityID, d.Users[0].ID)
	assert.NotZero(t, d.Users[0].ID)
	groups, err := svc.ListUserGroups(ctx)
	require.NoError(t, err)
	assert.Equal(t, groups[0].EntityID, d.Groups[0].ID)
	assert.NotZero(t, d.Groups[0].ID)
	require.Len(t, d.Conns, 1)
	assert.Equal(t, "rack1", d.Conns[0].Parent)
	require.Len(t, d.ConnGroups, 1)
	assert.Equal(t, domain.RootGroupName, d.ConnGroups[0].Parent)
	assert.Equal(t, []string{"vm1"}, d.ConnGroups[0].Connections)
}
