package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"guacaman/internal/domain"
	"guacaman/internal/service"
)

func newConnGroupCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "conngroup",
		Short: "Manage connection groups",
	}
	cmd.AddCommand(newConnGroupNewCmd(opts))
	cmd.AddCommand(newConnGroupListCmd(opts))
	cmd.AddCommand(newConnGroupExistsCmd(opts))
	cmd.AddCommand(newConnGroupDelCmd(opts))
	cmd.AddCommand(newConnGroupModifyCmd(opts))
	return cmd
}

func newConnGroupNewCmd(opts *rootOptions) *cobra.Command {
	var (
		name   string
		parent string
	)
	cmd := &cobra.Command{
		Use:   "new",
		Short: "Create a connection group",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var parentSel *domain.Selector
			if parent != "" {
				s := domain.ByName(parent)
				parentSel = &s
			}
			return withService(cmd, opts, func(ctx context.Context, svc *service.Service) error {
				return svc.CreateConnGroup(ctx, name, parentSel)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Name of the new connection group")
	cmd.Flags().StringVar(&parent, "parent", "", "Parent connection group (root when omitted)")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func dumpConnGroup(g domain.ConnectionGroup) service.DumpConnGroup {
	return service.DumpConnGroup{
		ID:          g.ID,
		Name:        g.Name,
		Parent:      g.ParentName,
		Connections: g.Connections,
	}
}

func newConnGroupListCmd(opts *rootOptions) *cobra.Command {
	var id int64
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List connection groups with parents and member connections",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withService(cmd, opts, func(ctx context.Context, svc *service.Service) error {
				var out []service.DumpConnGroup
				if cmd.Flags().Changed("id") {
					g, err := svc.GetConnGroup(ctx, domain.ByID(id))
					if err != nil {
						return err
					}
					out = append(out, dumpConnGroup(*g))
				} else {
					groups, err := svc.ListConnGroups(ctx)
					if err != nil {
						return err
					}
					for _, g := range groups {
						out = append(out, dumpConnGroup(g))
					}
				}
				return printYAML(os.Stdout, map[string]interface{}{"connection_groups": out})
			})
		},
	}
	cmd.Flags().Int64Var(&id, "id", 0, "Show only the group with this ID")
	return cmd
}

func newConnGroupExistsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exists",
		Short: "Exit 0 when the connection group exists, 1 otherwise",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sel, err := selectorFromFlags(cmd, domain.KindConnGroup)
			if err != nil {
				return err
			}
			return withService(cmd, opts, func(ctx context.Context, svc *service.Service) error {
				ok, err := svc.ConnGroupExists(ctx, sel)
				if err != nil {
					return err
				}
				if !ok {
					return errExistsMiss
				}
				fmt.Fprintf(os.Stdout, "connection group '%s' exists\n", sel)
				return nil
			})
		},
	}
	addSelectorFlags(cmd, domain.KindConnGroup)
	return cmd
}

func newConnGroupDelCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "del",
		Short: "Delete a connection group, reattaching its contents to the root",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sel, err := selectorFromFlags(cmd, domain.KindConnGroup)
			if err != nil {
				return err
			}
			return withService(cmd, opts, func(ctx context.Context, svc *service.Service) error {
				return svc.DeleteConnGroup(ctx, sel)
			})
		},
	}
	addSelectorFlags(cmd, domain.KindConnGroup)
	return cmd
}

func newConnGroupModifyCmd(opts *rootOptions) *cobra.Command {
	var (
		parent   string
		addConns []string
		rmConns  []string
	)
	cmd := &cobra.Command{
		Use:   "modify",
		Short: "Move the group, edit member connections, or change access",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sel, err := selectorFromFlags(cmd, domain.KindConnGroup)
			if err != nil {
				return err
			}
			subject, err := subjectFromFlags(cmd)
			if err != nil {
				return err
			}

			ch := service.ConnGroupChanges{
				Permit:      subject.Permit,
				Deny:        subject.Deny,
				SubjectKind: subject.SubjectKind,
			}
			// --parent "" detaches the group to the root.
			if cmd.Flags().Changed("parent") {
				ch.SetParent = true
				if parent != "" {
					s := domain.ByName(parent)
					ch.Parent = &s
				}
			}
			for _, c := range addConns {
				ch.AddConns = append(ch.AddConns, domain.ByName(c))
			}
			for _, c := range rmConns {
				ch.RmConns = append(ch.RmConns, domain.ByName(c))
			}

			return withService(cmd, opts, func(ctx context.Context, svc *service.Service) error {
				return svc.ModifyConnGroup(ctx, sel, ch)
			})
		},
	}
	addSelectorFlags(cmd, domain.KindConnGroup)
	cmd.Flags().StringVar(&parent, "parent", "", "New parent connection group (\"\" for the root)")
	cmd.Flags().StringSliceVar(&addConns, "addconn", nil, "Connection to attach (repeatable)")
	cmd.Flags().StringSliceVar(&rmConns, "rmconn", nil, "Connection to detach to the root (repeatable)")
	addSubjectFlags(cmd)
	return cmd
}
