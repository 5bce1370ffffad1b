// Package cli implements the guacaman command tree.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"guacaman/internal/config"
	"guacaman/internal/db"
	"guacaman/internal/domain"
	"guacaman/internal/service"
	"guacaman/internal/tunnel"
)

var (
	version = "dev"
	commit  = "none"
)

// errExistsMiss signals an `exists` probe that found nothing. It carries no
// message: the command already reported, only the exit code differs.
var errExistsMiss = errors.New("not found")

// Execute runs the CLI and maps the error taxonomy to exit codes: 0 success,
// 2 for malformed invocations, 1 for everything else.
func Execute() int {
	rootCmd := newRootCmd()
	err := rootCmd.Execute()
	if err != nil && !errors.Is(err, errExistsMiss) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return exitCode(err)
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var ue *domain.UsageError
	if errors.As(err, &ue) {
		return 2
	}
	return 1
}

type rootOptions struct {
	configPath string
	debug      bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "guacaman",
		Short:         "Administer a Guacamole gateway's configuration database",
		Long:          "guacaman manages users, usergroups, connections, and connection groups\nin an Apache Guacamole MySQL configuration database.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "",
		"Credentials file (default $GUACAMAN_CONFIG, then ~/"+config.DefaultFileName+")")
	rootCmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "Log at debug level")

	rootCmd.AddCommand(newUserCmd(opts))
	rootCmd.AddCommand(newGroupCmd(opts))
	rootCmd.AddCommand(newConnCmd(opts))
	rootCmd.AddCommand(newConnGroupCmd(opts))
	rootCmd.AddCommand(newDumpCmd(opts))
	rootCmd.AddCommand(newMigrateCmd(opts))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// loadConfig reads the credentials file named by --config or the per-user
// default.
func loadConfig(opts *rootOptions) (*config.Config, error) {
	path := opts.configPath
	if path == "" {
		path = os.Getenv("GUACAMAN_CONFIG")
	}
	if path == "" {
		var err error
		path, err = config.DefaultPath()
		if err != nil {
			return nil, err
		}
	}
	return config.Load(path)
}

// withStore opens the database named by the credentials file, tunneling
// through SSH when configured, and hands the open store to fn.
func withStore(cmd *cobra.Command, opts *rootOptions, fn func(ctx context.Context, store *db.Store, log *slog.Logger) error) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	level := cfg.SlogLevel()
	if opts.debug {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	ctx := cmd.Context()

	mysqlCfg := db.MySQLConfig{
		Host:     cfg.MySQL.Host,
		Port:     cfg.MySQL.Port,
		User:     cfg.MySQL.User,
		Password: cfg.MySQL.Password,
		Database: cfg.MySQL.Database,
	}

	if cfg.SSHTunnel.Enabled {
		target := net.JoinHostPort(cfg.MySQL.Host, strconv.Itoa(cfg.MySQL.Port))
		tun, err := tunnel.Open(ctx, cfg.SSHTunnel, target)
		if err != nil {
			return err
		}
		defer tun.Close()

		host, portStr, err := net.SplitHostPort(tun.LocalAddr())
		if err != nil {
			return err
		}
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return err
		}
		mysqlCfg.Host, mysqlCfg.Port = host, port
		log.Debug("ssh tunnel up", "local", tun.LocalAddr(), "target", target)
	}

	store, err := db.OpenMySQL(mysqlCfg)
	if err != nil {
		return err
	}
	defer store.Close()

	return fn(ctx, store, log)
}

// withService is withStore plus the service wiring every data command needs.
func withService(cmd *cobra.Command, opts *rootOptions, fn func(ctx context.Context, svc *service.Service) error) error {
	return withStore(cmd, opts, func(ctx context.Context, store *db.Store, log *slog.Logger) error {
		return fn(ctx, service.New(store, log))
	})
}
