package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/quantlab/hindsight/analysis"
	"github.com/quantlab/hindsight/runlist"
)

var (
	analyzeTypes []string
	analyzeForce bool
)

var CMDAnalyze = &cobra.Command{
	Use:   "analyze TICKER...",
	Short: "Compute and cache indicator series for tickers",
	Long: `Analyze runs the configured indicator sweeps over each ticker's
stored history and caches the results as CSV in the data directory.
Cached frames are reused on later runs unless --force is given.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}

		types := analyzeTypes
		if len(types) == 0 {
			types = analysis.Types()
		}

		rl := runlist.New(log)
		var keys []string
		for _, ticker := range args {
			for _, typ := range types {
				an, err := analysis.NewSeriesAnalysis(store, ticker, strings.ToUpper(typ), cfg.Analysis.Lookbacks)
				if err != nil {
					return err
				}
				an.Force = analyzeForce
				rl.Add(an)
				keys = append(keys, an.Key())
			}
		}

		env := runlist.NewEnv()
		if err := rl.Run(cmd.Context(), env); err != nil {
			return err
		}

		for _, key := range keys {
			frame, err := env.Get(key)
			if err != nil {
				return err
			}
			fmt.Printf("%s: %d rows, columns %s\n", key, frame.Len(),
				strings.Join(frame.Columns(), " "))
		}
		return nil
	},
}

func init() {
	CMDAnalyze.Flags().StringSliceVarP(&analyzeTypes, "type", "t", nil, "analysis types to run (default all)")
	CMDAnalyze.Flags().BoolVar(&analyzeForce, "force", false, "recompute even when a cached frame exists")
}
