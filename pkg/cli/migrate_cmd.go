package cli

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"guacaman/internal/db"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the gateway schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd, opts, func(ctx context.Context, store *db.Store, log *slog.Logger) error {
				if err := db.RunMigrations(store.DB); err != nil {
					return err
				}
				log.Info("schema up to date")
				return nil
			})
		},
	}
}
