package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sawpanic/pricecast/internal/config"
	"github.com/sawpanic/pricecast/internal/domain"
	logsetup "github.com/sawpanic/pricecast/internal/log"
)

// rootOptions are the persistent flags shared by every command.
type rootOptions struct {
	configPath  string
	dataPath    string
	cohort      string
	logLevel    string
	logFormat   string
	showMetrics bool

	cfg *config.Config
	app *app
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "Price elasticity scenario simulator and decision ranker",
		Version: version,
		Long: `pricecast forecasts the impact of price and promotion changes on a tiered
membership product and ranks saved scenarios against a business objective.

Reference data (tiers, elasticity tables, segment KPIs, cohorts, scenarios)
is read from the document named by --data or PRICECAST_DATA. Results are
written to stdout as JSON; logs go to stderr.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.showMetrics && opts.app != nil {
				opts.app.writeMetrics(cmd.ErrOrStderr())
			}
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "Config file (defaults to PRICECAST_CONFIG)")
	pf.StringVar(&opts.dataPath, "data", "", "Reference data document (overrides config and PRICECAST_DATA)")
	pf.StringVar(&opts.cohort, "cohort", domain.BaselineCohort, "Active customer-mix cohort")
	pf.StringVar(&opts.logLevel, "log-level", "", "Log level (overrides config and PRICECAST_LOG_LEVEL)")
	pf.StringVar(&opts.logFormat, "log-format", "", "Log format (auto|console|json)")
	pf.BoolVar(&opts.showMetrics, "metrics", false, "Write collected metrics to stderr when the command finishes")

	rootCmd.AddCommand(
		newSimulateCmd(opts),
		newRankCmd(opts),
		newSegmentsCmd(opts),
		newCohortsCmd(opts),
		newObjectivesCmd(opts),
	)
	return rootCmd
}

// load resolves configuration and logging before any command runs.
func (o *rootOptions) load(cmd *cobra.Command) error {
	cfg, err := config.FromEnv(o.configPath)
	if err != nil {
		return err
	}
	if o.dataPath != "" {
		cfg.Data = o.dataPath
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if o.logFormat != "" {
		cfg.Log.Format = o.logFormat
	}
	if err := logsetup.Setup(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr()); err != nil {
		return err
	}
	o.cfg = cfg
	log.Debug().Str("command", cmd.Name()).Str("data", cfg.Data).Str("cohort", o.cohort).Msg("Configuration loaded")
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return nil
}
