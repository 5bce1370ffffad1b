package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"guacaman/internal/domain"
	"guacaman/internal/service"
)

func newGroupCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "group",
		Short: "Manage usergroups",
	}
	cmd.AddCommand(newGroupNewCmd(opts))
	cmd.AddCommand(newGroupListCmd(opts))
	cmd.AddCommand(newGroupExistsCmd(opts))
	cmd.AddCommand(newGroupDelCmd(opts))
	cmd.AddCommand(newGroupModifyCmd(opts))
	return cmd
}

func newGroupNewCmd(opts *rootOptions) *cobra.Command {
	var (
		name    string
		members []string
	)
	cmd := &cobra.Command{
		Use:   "new",
		Short: "Create a usergroup",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withService(cmd, opts, func(ctx context.Context, svc *service.Service) error {
				return svc.CreateUserGroup(ctx, name, members)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Name of the new usergroup")
	cmd.Flags().StringSliceVar(&members, "user", nil, "Existing user to enroll (repeatable)")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newGroupListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List usergroups with their members",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withService(cmd, opts, func(ctx context.Context, svc *service.Service) error {
				groups, err := svc.ListUserGroups(ctx)
				if err != nil {
					return err
				}
				out := make([]service.DumpGroup, 0, len(groups))
				for _, g := range groups {
					out = append(out, service.DumpGroup{ID: g.EntityID, Name: g.Name, Members: g.Members})
				}
				return printYAML(os.Stdout, map[string]interface{}{"groups": out})
			})
		},
	}
}

func newGroupExistsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exists",
		Short: "Exit 0 when the usergroup exists, 1 otherwise",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sel, err := selectorFromFlags(cmd, domain.KindUserGroup)
			if err != nil {
				return err
			}
			return withService(cmd, opts, func(ctx context.Context, svc *service.Service) error {
				ok, err := svc.UserGroupExists(ctx, sel)
				if err != nil {
					return err
				}
				if !ok {
					return errExistsMiss
				}
				fmt.Fprintf(os.Stdout, "usergroup '%s' exists\n", sel)
				return nil
			})
		},
	}
	addSelectorFlags(cmd, domain.KindUserGroup)
	return cmd
}

func newGroupDelCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "del",
		Short: "Delete a usergroup, keeping its member users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sel, err := selectorFromFlags(cmd, domain.KindUserGroup)
			if err != nil {
				return err
			}
			return withService(cmd, opts, func(ctx context.Context, svc *service.Service) error {
				return svc.DeleteUserGroup(ctx, sel)
			})
		},
	}
	addSelectorFlags(cmd, domain.KindUserGroup)
	return cmd
}

func newGroupModifyCmd(opts *rootOptions) *cobra.Command {
	var (
		addUsers []string
		rmUsers  []string
	)
	cmd := &cobra.Command{
		Use:   "modify",
		Short: "Add or remove members",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sel, err := selectorFromFlags(cmd, domain.KindUserGroup)
			if err != nil {
				return err
			}
			return withService(cmd, opts, func(ctx context.Context, svc *service.Service) error {
				return svc.ModifyUserGroup(ctx, sel, service.UserGroupChanges{
					AddUsers: addUsers,
					RmUsers:  rmUsers,
				})
			})
		},
	}
	addSelectorFlags(cmd, domain.KindUserGroup)
	cmd.Flags().StringSliceVar(&addUsers, "adduser", nil, "User to enroll (repeatable)")
	cmd.Flags().StringSliceVar(&rmUsers, "rmuser", nil, "User to remove (repeatable)")
	return cmd
}
