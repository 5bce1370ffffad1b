package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"guacaman/internal/service"
)

func newUserCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user accounts",
	}
	cmd.AddCommand(newUserNewCmd(opts))
	cmd.AddCommand(newUserListCmd(opts))
	cmd.AddCommand(newUserExistsCmd(opts))
	cmd.AddCommand(newUserDelCmd(opts))
	cmd.AddCommand(newUserModifyCmd(opts))
	return cmd
}

func newUserNewCmd(opts *rootOptions) *cobra.Command {
	var (
		name     string
		password string
		groups   []string
	)
	cmd := &cobra.Command{
		Use:   "new",
		Short: "Create a user account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("password") {
				var err error
				password, err = promptPassword("user " + name)
				if err != nil {
					return err
				}
			}
			return withService(cmd, opts, func(ctx context.Context, svc *service.Service) error {
				return svc.CreateUser(ctx, name, password, groups)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Name of the new user")
	cmd.Flags().StringVar(&password, "password", "", "Password (prompted when omitted)")
	cmd.Flags().StringSliceVar(&groups, "usergroup", nil, "Usergroup to join (repeatable)")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newUserListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List user accounts with their usergroups",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withService(cmd, opts, func(ctx context.Context, svc *service.Service) error {
				users, err := svc.ListUsers(ctx)
				if err != nil {
					return err
				}
				out := make([]service.DumpUser, 0, len(users))
				for _, u := range users {
					out = append(out, service.DumpUser{ID: u.EntityID, Name: u.Name, Groups: u.Groups})
				}
				return printYAML(os.Stdout, map[string]interface{}{"users": out})
			})
		},
	}
}

func newUserExistsCmd(opts *rootOptions) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "exists",
		Short: "Exit 0 when the user exists, 1 otherwise",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withService(cmd, opts, func(ctx context.Context, svc *service.Service) error {
				ok, err := svc.UserExists(ctx, name)
				if err != nil {
					return err
				}
				if !ok {
					return errExistsMiss
				}
				fmt.Fprintf(os.Stdout, "user '%s' exists\n", name)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Name of the user")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newUserDelCmd(opts *rootOptions) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "del",
		Short: "Delete a user account and its permissions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withService(cmd, opts, func(ctx context.Context, svc *service.Service) error {
				return svc.DeleteUser(ctx, name)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Name of the user")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newUserModifyCmd(opts *rootOptions) *cobra.Command {
	var (
		name      string
		password  string
		sets      []string
		addGroups []string
		rmGroups  []string
	)
	cmd := &cobra.Command{
		Use:   "modify",
		Short: "Change password, account parameters, or memberships",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			attrs, err := parseSetFlags(sets)
			if err != nil {
				return err
			}

			ch := service.UserChanges{
				Attributes: attrs,
				AddGroups:  addGroups,
				RmGroups:   rmGroups,
			}
			if cmd.Flags().Changed("password") {
				if password == "" {
					password, err = promptPassword("user " + name)
					if err != nil {
						return err
					}
				}
				ch.Password = &password
			}

			return withService(cmd, opts, func(ctx context.Context, svc *service.Service) error {
				return svc.ModifyUser(ctx, name, ch)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Name of the user")
	cmd.Flags().StringVar(&password, "password", "", "New password (prompted when given empty)")
	cmd.Flags().StringSliceVar(&sets, "set", nil, "Account parameter as key=value (repeatable)")
	cmd.Flags().StringSliceVar(&addGroups, "addgroup", nil, "Usergroup to join (repeatable)")
	cmd.Flags().StringSliceVar(&rmGroups, "rmgroup", nil, "Usergroup to leave (repeatable)")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}
