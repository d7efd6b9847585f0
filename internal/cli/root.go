package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/me/argowf/internal/argo"
	"github.com/me/argowf/internal/config"
	"github.com/me/argowf/internal/logging"
	"github.com/me/argowf/internal/store"
)

var (
	flagConfig    string
	flagEndpoint  string
	flagNamespace string
	flagHistoryDB string
	flagDebug     bool
	flagLogLevel  string
	flagLogFormat string

	cfg    config.Config
	logger *slog.Logger
)

// NewRootCmd creates the root cobra command for the argowf CLI.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "argowf",
		Short: "argowf runs CWL workflows on Argo Workflows",
		Long: `argowf compiles a CWL workflow into an Argo Workflow that delegates
execution to a CWL runner template, submits it to an Argo server and
follows it to completion.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load(flagConfig)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("endpoint") {
				loaded.Engine.Endpoint = flagEndpoint
			}
			if flags.Changed("namespace") {
				loaded.Engine.Namespace = flagNamespace
			}
			if flags.Changed("history-db") {
				loaded.HistoryDB = flagHistoryDB
			}
			if flags.Changed("log-level") {
				loaded.LogLevel = flagLogLevel
			}
			if flags.Changed("log-format") {
				loaded.LogFormat = flagLogFormat
			}
			if flagDebug {
				loaded.LogLevel = "debug"
			}
			l, err := logging.FromSettings(cmd.ErrOrStderr(), loaded.LogLevel, loaded.LogFormat)
			if err != nil {
				return err
			}
			cfg = loaded
			logger = l
			return nil
		},
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flagConfig, "config", "", "Config file (YAML)")
	pf.StringVar(&flagEndpoint, "endpoint", config.DefaultEndpoint, "Argo server URL (or ARGO_WF_ENDPOINT env)")
	pf.StringVarP(&flagNamespace, "namespace", "n", "default", "Namespace (or ARGO_WF_NAMESPACE env)")
	pf.StringVar(&flagHistoryDB, "history-db", "", "SQLite file recording submitted executions (or ARGO_WF_HISTORY_DB env)")
	pf.BoolVar(&flagDebug, "debug", false, "Enable debug logging")
	pf.StringVar(&flagLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	pf.StringVar(&flagLogFormat, "log-format", "text", "Log format (text, json)")

	root.AddCommand(
		newCompileCmd(),
		newRunCmd(),
		newStatusCmd(),
		newOutputsCmd(),
		newToolLogsCmd(),
		newHistoryCmd(),
	)

	return root
}

// newClient builds an Argo client from the loaded settings.
func newClient() (*argo.Client, error) {
	if err := cfg.Engine.Validate(); err != nil {
		return nil, err
	}
	return argo.NewClient(argo.ClientConfig{
		BaseURL:            cfg.Engine.Endpoint,
		Token:              cfg.Engine.Token,
		InsecureSkipVerify: cfg.Engine.InsecureSkipVerify,
		Timeout:            cfg.Engine.Timeout,
	}, logging.Component(logger, "argo")), nil
}

// openHistory opens the history ledger, or returns nil when none is
// configured.
func openHistory(ctx context.Context) (*store.SQLiteStore, error) {
	if cfg.HistoryDB == "" {
		return nil, nil
	}
	st, err := store.NewSQLiteStore(cfg.HistoryDB, logger)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, fmt.Errorf("migrate history: %w", err)
	}
	return st, nil
}
