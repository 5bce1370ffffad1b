package service

import (
	"context"
	"database/sql"

	"guacaman/internal/db/repository"
	"guacaman/internal/domain"
)

// NewConnParams carries the inputs of `conn new`. PermitGroups names
// usergroups granted access at creation.
type NewConnParams struct {
	Name         string
	Protocol     string
	Hostname     string
	Port         string
	Password     string
	PermitGroups []string
}

// CreateConn creates a connection and grants the listed usergroups access.
// Every group is resolved before anything is written.
func (s *Service) CreateConn(ctx context.Context, p NewConnParams) error {
	if p.Name == "" {
		return domain.ErrUsage("connection name is required")
	}
	return s.store.WithinTx(ctx, func(tx *sql.Tx) error {
		resolver := repository.NewResolver(tx)
		for _, g := range p.PermitGroups {
			if _, err := resolver.Resolve(ctx, domain.KindUserGroup, domain.ByName(g)); err != nil {
				return err
			}
		}

		connID, err := repository.NewConnRepo(tx).Create(ctx, p.Name, p.Protocol, p.Hostname, p.Port, p.Password)
		if err != nil {
			return err
		}

		perms := repository.NewPermissionRepo(tx)
		for _, g := range p.PermitGroups {
			if err := perms.Grant(ctx, g, domain.SubjectUserGroup, domain.ByID(connID), domain.ResourceConn); err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteConn removes the connection, its parameters, and its permissions.
func (s *Service) DeleteConn(ctx context.Context, sel domain.Selector) error {
	return s.store.WithinTx(ctx, func(tx *sql.Tx) error {
		return repository.NewConnRepo(tx).Delete(ctx, sel)
	})
}

// ConnExists reports whether the selected connection exists.
func (s *Service) ConnExists(ctx context.Context, sel domain.Selector) (bool, error) {
	var exists bool
	err := s.store.WithinTx(ctx, func(tx *sql.Tx) error {
		var err error
		exists, err = repository.NewResolver(tx).Exists(ctx, domain.KindConn, sel)
		return err
	})
	return exists, err
}

// ListConns returns all connections with parameters and permission holders.
func (s *Service) ListConns(ctx context.Context) ([]domain.Connection, error) {
	var conns []domain.Connection
	err := s.store.WithinTx(ctx, func(tx *sql.Tx) error {
		var err error
		conns, err = repository.NewConnRepo(tx).List(ctx)
		return err
	})
	return conns, err
}

// GetConn returns one connection by selector.
func (s *Service) GetConn(ctx context.Context, sel domain.Selector) (*domain.Connection, error) {
	var conn *domain.Connection
	err := s.store.WithinTx(ctx, func(tx *sql.Tx) error {
		id, err := repository.NewResolver(tx).Resolve(ctx, domain.KindConn, sel)
		if err != nil {
			return err
		}
		conn, err = repository.NewConnRepo(tx).Get(ctx, id)
		return err
	})
	return conn, err
}

// ConnChanges collects everything `conn modify` may do in one invocation.
// SetParent says whether a placement change was requested at all; a nil
// Parent with SetParent true detaches the connection to the root. Permit and
// Deny name a subject each; SubjectKind says whether those subjects are
// users or usergroups.
type ConnChanges struct {
	Attributes  map[string]string
	SetParent   bool
	Parent      *domain.Selector
	Permit      string
	Deny        string
	SubjectKind domain.SubjectType
}

// ModifyConn applies attribute, placement, and permission changes atomically.
func (s *Service) ModifyConn(ctx context.Context, sel domain.Selector, ch ConnChanges) error {
	return s.store.WithinTx(ctx, func(tx *sql.Tx) error {
		resolver := repository.NewResolver(tx)
		if _, err := resolver.Resolve(ctx, domain.KindConn, sel); err != nil {
			return err
		}

		repo := repository.NewConnRepo(tx)
		for attr, value := range ch.Attributes {
			if err := repo.SetAttribute(ctx, sel, attr, value); err != nil {
				return err
			}
		}

		if ch.SetParent {
			var parentID *int64
			if ch.Parent != nil {
				id, err := resolver.Resolve(ctx, domain.KindConnGroup, *ch.Parent)
				if err != nil {
					return err
				}
				parentID = &id
			}
			if err := repo.SetParent(ctx, sel, parentID); err != nil {
				return err
			}
		}

		perms := repository.NewPermissionRepo(tx)
		if ch.Permit != "" {
			if err := perms.Grant(ctx, ch.Permit, ch.SubjectKind, sel, domain.ResourceConn); err != nil {
				return err
			}
		}
		if ch.Deny != "" {
			if err := perms.Revoke(ctx, ch.Deny, ch.SubjectKind, sel, domain.ResourceConn); err != nil {
				return err
			}
		}
		return nil
	})
}
