package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/quantlab/hindsight/optimize"
)

var (
	optSystem string
	optMetric string
	optAxes   []string
	optTop    int
)

var CMDOptimize = &cobra.Command{
	Use:   "optimize TICKER",
	Short: "Sweep system parameters over a grid and rank the results",
	Long: `Optimize backtests every combination of the given parameter axes on
one ticker and prints the points ranked by the chosen metric.

An axis is NAME=LO:HI:STEP for a range or NAME=V1,V2,... for explicit
values, for example:

  hindsight optimize DJI -s dualma -a fast=10:50:10 -a slow=100:400:50`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(optAxes) == 0 {
			return fmt.Errorf("at least one --axis is required")
		}
		axes, err := parseAxes(optAxes)
		if err != nil {
			return err
		}

		store, err := openStore()
		if err != nil {
			return err
		}
		series, err := store.LoadSeries(args[0])
		if err != nil {
			return err
		}

		system := optSystem
		if system == "" {
			system = cfg.Backtest.System
		}

		opt := optimize.New(system, optimize.Metric(optMetric), log)
		opt.InitialEquity = cfg.Backtest.InitialEquity
		points, err := opt.Run(cmd.Context(), series, axes)
		if err != nil {
			return err
		}
		if optTop > 0 && len(points) > optTop {
			points = points[:optTop]
		}

		names := make([]string, 0, len(axes))
		for _, ax := range axes {
			names = append(names, ax.Name)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
		fmt.Fprintf(w, "SCORE\t%s\tCAGR\tMAXDD\tTRADES\n", strings.ToUpper(strings.Join(names, "\t")))
		for _, p := range points {
			row := make([]string, 0, len(names))
			for _, name := range names {
				row = append(row, strconv.FormatFloat(p.Params[name], 'g', -1, 64))
			}
			fmt.Fprintf(w, "%.4f\t%s\t%.2f%%\t%.2f%%\t%d\n",
				p.Score, strings.Join(row, "\t"),
				p.Summary.CAGR*100, p.Summary.MaxDrawdown*100, p.Summary.TradeCount)
		}
		return w.Flush()
	},
}

func parseAxes(specs []string) ([]optimize.Axis, error) {
	axes := make([]optimize.Axis, 0, len(specs))
	for _, spec := range specs {
		name, rest, ok := strings.Cut(spec, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("bad axis %q, want NAME=LO:HI:STEP or NAME=V1,V2,...", spec)
		}
		if strings.Contains(rest, ":") {
			parts := strings.Split(rest, ":")
			if len(parts) != 3 {
				return nil, fmt.Errorf("bad axis range %q, want LO:HI:STEP", spec)
			}
			var bounds [3]float64
			for i, part := range parts {
				v, err := strconv.ParseFloat(part, 64)
				if err != nil {
					return nil, fmt.Errorf("bad axis %q: %w", spec, err)
				}
				bounds[i] = v
			}
			ax, err := optimize.Range(name, bounds[0], bounds[1], bounds[2])
			if err != nil {
				return nil, err
			}
			axes = append(axes, ax)
			continue
		}
		var vals []float64
		for _, part := range strings.Split(rest, ",") {
			v, err := strconv.ParseFloat(part, 64)
			if err != nil {
				return nil, fmt.Errorf("bad axis %q: %w", spec, err)
			}
			vals = append(vals, v)
		}
		axes = append(axes, optimize.Axis{Name: name, Values: vals})
	}
	return axes, nil
}

func init() {
	CMDOptimize.Flags().StringVarP(&optSystem, "system", "s", "", "system to sweep (defaults to config)")
	CMDOptimize.Flags().StringVarP(&optMetric, "metric", "m", "mar", "ranking metric: mar, cagr, sharpe or rar")
	CMDOptimize.Flags().StringArrayVarP(&optAxes, "axis", "a", nil, "parameter axis, repeatable")
	CMDOptimize.Flags().IntVar(&optTop, "top", 20, "show only the best N points, 0 for all")
}
