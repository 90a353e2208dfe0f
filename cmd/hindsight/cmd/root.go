// Package cmd holds the hindsight CLI commands.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/quantlab/hindsight/config"
	"github.com/quantlab/hindsight/journal"
	"github.com/quantlab/hindsight/market"
)

var (
	cfgPath string
	dataDir string
	verbose bool

	cfg *config.Config
	log *zap.Logger
)

var CMDRoot = &cobra.Command{
	Use:   "hindsight",
	Short: "Backtest trading systems on stock index history",
	Long: `hindsight fetches index price history, runs indicator analyses over
it, backtests trading systems against what actually happened, and keeps
a journal of every run.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if log, err = newLogger(verbose); err != nil {
			return err
		}

		if cfgPath != "" {
			if cfg, err = config.LoadFromFile(cfgPath); err != nil {
				return err
			}
		} else {
			cfg = config.Default()
		}
		if dataDir != "" {
			cfg.Data.Dir = dataDir
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			_ = log.Sync()
		}
	},
}

func init() {
	CMDRoot.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file (YAML or JSON)")
	CMDRoot.PersistentFlags().StringVar(&dataDir, "data", "", "market data directory (overrides config)")
	CMDRoot.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	CMDRoot.AddCommand(CMDVersion)
	CMDRoot.AddCommand(CMDSummary)
	CMDRoot.AddCommand(CMDFetch)
	CMDRoot.AddCommand(CMDTickers)
	CMDRoot.AddCommand(CMDAnalyze)
	CMDRoot.AddCommand(CMDRun)
	CMDRoot.AddCommand(CMDReport)
	CMDRoot.AddCommand(CMDMonteCarlo)
	CMDRoot.AddCommand(CMDOptimize)
	CMDRoot.AddCommand(CMDWatch)
	CMDRoot.AddCommand(CMDConfig)
}

func Execute() error {
	if err := CMDRoot.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return err
	}
	return nil
}

func newLogger(debug bool) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if debug {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.DisableStacktrace = true
	return zcfg.Build()
}

func openStore() (*market.Store, error) {
	return market.NewStore(cfg.Data.Dir)
}

func openJournal() (journal.Journal, error) {
	switch cfg.Journal.Type {
	case "sqlite":
		return journal.NewSQLite(cfg.Journal.DBPath)
	case "csv":
		return journal.NewCSV(cfg.Journal.RunsFile, cfg.Journal.TradesFile, cfg.Journal.EquityFile)
	default:
		return nil, fmt.Errorf("unknown journal type %q", cfg.Journal.Type)
	}
}
