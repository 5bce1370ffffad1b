package service

import (
	"context"
	"database/sql"

	"guacaman/internal/db/repository"
)

// Dump is a point-in-time snapshot of the whole store, taken inside one
// transaction so the sections are mutually consistent.
type Dump struct {
	Users      []DumpUser      `yaml:"users"`
	Groups     []DumpGroup     `yaml:"groups"`
	Conns      []DumpConn      `yaml:"connections"`
	ConnGroups []DumpConnGroup `yaml:"connection_groups"`
}

type DumpUser struct {
	ID     int64    `yaml:"id"`
	Name   string   `yaml:"name"`
	Groups []string `yaml:"groups,omitempty"`
}

type DumpGroup struct {
	ID      int64    `yaml:"id"`
	Name    string   `yaml:"name"`
	Members []string `yaml:"members,omitempty"`
}

type DumpConn struct {
	ID       int64    `yaml:"id"`
	Name     string   `yaml:"name"`
	Protocol string   `yaml:"protocol"`
	Hostname string   `yaml:"hostname,omitempty"`
	Port     string   `yaml:"port,omitempty"`
	Parent   string   `yaml:"parent,omitempty"`
	Users    []string `yaml:"users,omitempty"`
	Groups   []string `yaml:"groups,omitempty"`
}

type DumpConnGroup struct {
	ID          int64    `yaml:"id"`
	Name        string   `yaml:"name"`
	Parent      string   `yaml:"parent"`
	Connections []string `yaml:"connections,omitempty"`
}

// DumpAll reads every section of the store in one transaction.
func (s *Service) DumpAll(ctx context.Context) (*Dump, error) {
	var d Dump
	err := s.store.WithinTx(ctx, func(tx *sql.Tx) error {
		users, err := repository.NewUserRepo(tx).List(ctx)
		if err != nil {
			return err
		}
		for _, u := range users {
			d.Users = append(d.Users, DumpUser{ID: u.EntityID, Name: u.Name, Groups: u.Groups})
		}

		groups, err := repository.NewUserGroupRepo(tx).List(ctx)
		if err != nil {
			return err
		}
		for _, g := range groups {
			d.Groups = append(d.Groups, DumpGroup{ID: g.EntityID, Name: g.Name, Members: g.Members})
		}

		conns, err := repository.NewConnRepo(tx).List(ctx)
		if err != nil {
			return err
		}
		for _, c := range conns {
			d.Conns = append(d.Conns, DumpConn{
				ID:       c.ID,
				Name:     c.Name,
				Protocol: c.Protocol,
				Hostname: c.Hostname,
				Port:     c.Port,
				Parent:   c.ParentName,
				Users:    c.Users,
				Groups:   c.Groups,
			})
		}

		cgroups, err := repository.NewConnGroupRepo(tx, s.store.Dialect).List(ctx)
		if err != nil {
			return err
		}
		for _, g := range cgroups {
			d.ConnGroups = append(d.ConnGroups, DumpConnGroup{
				ID:          g.ID,
				Name:        g.Name,
				Parent:      g.ParentName,
				Connections: g.Connections,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &d, nil
}
