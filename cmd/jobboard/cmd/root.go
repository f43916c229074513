// Package cmd implements the jobboard command-line interface.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jmcleod/jobboard/internal/config"
	"github.com/jmcleod/jobboard/internal/logging"
)

// rootOptions carries the persistent flags and the configuration resolved
// from them before any subcommand runs.
type rootOptions struct {
	configFile  string
	envFile     string
	apiURL      string
	store       string
	dataDir     string
	postgresDSN string
	logLevel    string
	logFormat   string
	output      string

	cfg    config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "jobboard",
		Short: "jobboard is a command-line client for the job board",
		Long: `Browse jobs, apply and manage your job board session from the terminal.

The session (access and refresh tokens) is stored locally and renewed
automatically when the access token expires.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.resolve(cmd)
		},
	}

	f := root.PersistentFlags()
	f.StringVar(&opts.configFile, "config", "", "Path to a YAML config file")
	f.StringVar(&opts.envFile, "env-file", config.DefaultEnvFile, "Path to a .env file")
	f.StringVar(&opts.apiURL, "api-url", "", "Backend base URL")
	f.StringVar(&opts.store, "store", "", "Token store: memory, bbolt or postgres")
	f.StringVar(&opts.dataDir, "data-dir", "", "Directory for the bbolt token store")
	f.StringVar(&opts.postgresDSN, "postgres-dsn", "", "Postgres connection string for the postgres token store")
	f.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn or error")
	f.StringVar(&opts.logFormat, "log-format", "", "Log format: json or text")
	f.StringVarP(&opts.output, "output", "o", "text", "Output format: text, json or yaml")

	root.AddCommand(
		newLoginCmd(opts),
		newSignupCmd(opts),
		newLogoutCmd(opts),
		newWhoamiCmd(opts),
		newStatusCmd(opts),
		newRefreshCmd(opts),
		newJobsCmd(opts),
		newApplyCmd(opts),
		newApplicationsCmd(opts),
		newBookmarkCmd(opts),
		newAdminCmd(opts),
		newServeCmd(opts),
		newVersionCmd(),
	)
	return root
}

// resolve layers flags over the loaded configuration and builds the logger.
func (o *rootOptions) resolve(cmd *cobra.Command) error {
	cfg, err := config.Load(o.configFile, o.envFile)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("api-url") {
		cfg.APIURL = o.apiURL
	}
	if flags.Changed("store") {
		cfg.Store = config.StoreKind(o.store)
	}
	if flags.Changed("data-dir") {
		cfg.DataDir = o.dataDir
	}
	if flags.Changed("postgres-dsn") {
		cfg.PostgresDSN = o.postgresDSN
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = o.logLevel
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = o.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	switch o.output {
	case "text", "json", "yaml":
	default:
		return fmt.Errorf("unknown output format %q (want text, json or yaml)", o.output)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	o.cfg = cfg
	o.logger = logger
	return nil
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
