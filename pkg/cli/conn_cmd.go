package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"guacaman/internal/domain"
	"guacaman/internal/service"
)

func newConnCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "conn",
		Short: "Manage connections",
	}
	cmd.AddCommand(newConnNewCmd(opts))
	cmd.AddCommand(newConnListCmd(opts))
	cmd.AddCommand(newConnExistsCmd(opts))
	cmd.AddCommand(newConnDelCmd(opts))
	cmd.AddCommand(newConnModifyCmd(opts))
	return cmd
}

func dumpConn(c domain.Connection) service.DumpConn {
	return service.DumpConn{
		ID:       c.ID,
		Name:     c.Name,
		Protocol: c.Protocol,
		Hostname: c.Hostname,
		Port:     c.Port,
		Parent:   c.ParentName,
		Users:    c.Users,
		Groups:   c.Groups,
	}
}

func newConnNewCmd(opts *rootOptions) *cobra.Command {
	var (
		name     string
		protocol string
		hostname string
		port     string
		password string
		groups   []string
	)
	cmd := &cobra.Command{
		Use:   "new",
		Short: "Create a connection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withService(cmd, opts, func(ctx context.Context, svc *service.Service) error {
				return svc.CreateConn(ctx, service.NewConnParams{
					Name:         name,
					Protocol:     protocol,
					Hostname:     hostname,
					Port:         port,
					Password:     password,
					PermitGroups: groups,
				})
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Name of the new connection")
	cmd.Flags().StringVar(&protocol, "type", "", "Protocol: vnc, rdp, or ssh")
	cmd.Flags().StringVar(&hostname, "hostname", "", "Remote server hostname or IP")
	cmd.Flags().StringVar(&port, "port", "", "Remote server port")
	cmd.Flags().StringVar(&password, "password", "", "Remote server password (optional)")
	cmd.Flags().StringSliceVar(&groups, "usergroup", nil, "Usergroup granted access (repeatable)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("hostname")
	_ = cmd.MarkFlagRequired("port")
	return cmd
}

func newConnListCmd(opts *rootOptions) *cobra.Command {
	var id int64
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List connections with parameters and permission holders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withService(cmd, opts, func(ctx context.Context, svc *service.Service) error {
				var out []service.DumpConn
				if cmd.Flags().Changed("id") {
					c, err := svc.GetConn(ctx, domain.ByID(id))
					if err != nil {
						return err
					}
					out = append(out, dumpConn(*c))
				} else {
					conns, err := svc.ListConns(ctx)
					if err != nil {
						return err
					}
					for _, c := range conns {
						out = append(out, dumpConn(c))
					}
				}
				return printYAML(os.Stdout, map[string]interface{}{"connections": out})
			})
		},
	}
	cmd.Flags().Int64Var(&id, "id", 0, "Show only the connection with this ID")
	return cmd
}

func newConnExistsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exists",
		Short: "Exit 0 when the connection exists, 1 otherwise",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sel, err := selectorFromFlags(cmd, domain.KindConn)
			if err != nil {
				return err
			}
			return withService(cmd, opts, func(ctx context.Context, svc *service.Service) error {
				ok, err := svc.ConnExists(ctx, sel)
				if err != nil {
					return err
				}
				if !ok {
					return errExistsMiss
				}
				fmt.Fprintf(os.Stdout, "connection '%s' exists\n", sel)
				return nil
			})
		},
	}
	addSelectorFlags(cmd, domain.KindConn)
	return cmd
}

func newConnDelCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "del",
		Short: "Delete a connection, its parameters, and its permissions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sel, err := selectorFromFlags(cmd, domain.KindConn)
			if err != nil {
				return err
			}
			return withService(cmd, opts, func(ctx context.Context, svc *service.Service) error {
				return svc.DeleteConn(ctx, sel)
			})
		},
	}
	addSelectorFlags(cmd, domain.KindConn)
	return cmd
}

func newConnModifyCmd(opts *rootOptions) *cobra.Command {
	var (
		sets   []string
		parent string
	)
	cmd := &cobra.Command{
		Use:   "modify",
		Short: "Change connection parameters, placement, or access",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sel, err := selectorFromFlags(cmd, domain.KindConn)
			if err != nil {
				return err
			}
			attrs, err := parseSetFlags(sets)
			if err != nil {
				return err
			}
			subject, err := subjectFromFlags(cmd)
			if err != nil {
				return err
			}

			ch := service.ConnChanges{
				Attributes:  attrs,
				Permit:      subject.Permit,
				Deny:        subject.Deny,
				SubjectKind: subject.SubjectKind,
			}
			// --parent "" detaches the connection to the root.
			if cmd.Flags().Changed("parent") {
				ch.SetParent = true
				if parent != "" {
					s := domain.ByName(parent)
					ch.Parent = &s
				}
			}

			return withService(cmd, opts, func(ctx context.Context, svc *service.Service) error {
				return svc.ModifyConn(ctx, sel, ch)
			})
		},
	}
	addSelectorFlags(cmd, domain.KindConn)
	cmd.Flags().StringSliceVar(&sets, "set", nil, "Connection parameter as key=value (repeatable)")
	cmd.Flags().StringVar(&parent, "parent", "", "Connection group to move into (\"\" for the root)")
	addSubjectFlags(cmd)
	return cmd
}
