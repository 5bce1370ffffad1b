package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"guacaman/internal/service"
)

func newDumpCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "dump",
		Short: "Dump the whole store as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withService(cmd, opts, func(ctx context.Context, svc *service.Service) error {
				d, err := svc.DumpAll(ctx)
				if err != nil {
					return err
				}
				return printYAML(os.Stdout, d)
			})
		},
	}
}
