// Package optimize sweeps a system's parameter grid and ranks the
// points by a performance metric.
package optimize

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/quantlab/hindsight/market"
	"github.com/quantlab/hindsight/report"
	"github.com/quantlab/hindsight/strategy"
)

// Axis is one swept parameter and the values it takes.
type Axis struct {
	Name   string
	Values []float64
}

// Range builds an axis from lo to hi inclusive with the given step.
func Range(name string, lo, hi, step float64) (Axis, error) {
	if step <= 0 || hi < lo {
		return Axis{}, fmt.Errorf("optimize: bad range for %s: [%g, %g] step %g", name, lo, hi, step)
	}
	var vals []float64
	for v := lo; v <= hi+step/1e9; v += step {
		vals = append(vals, v)
	}
	return Axis{Name: name, Values: vals}, nil
}

// Grid expands axes into the full cartesian product of param sets.
func Grid(axes []Axis) []strategy.Params {
	if len(axes) == 0 {
		return nil
	}
	out := []strategy.Params{{}}
	for _, ax := range axes {
		next := make([]strategy.Params, 0, len(out)*len(ax.Values))
		for _, base := range out {
			for _, v := range ax.Values {
				p := base.Clone()
				p[ax.Name] = v
				next = append(next, p)
			}
		}
		out = next
	}
	return out
}

// Metric selects the score a sweep ranks by.
type Metric string

const (
	MetricMAR    Metric = "mar"
	MetricCAGR   Metric = "cagr"
	MetricSharpe Metric = "sharpe"
	MetricRAR    Metric = "rar"
)

func score(s *report.Summary, m Metric) (float64, error) {
	switch m {
	case MetricMAR, "":
		return s.MAR, nil
	case MetricCAGR:
		return s.CAGR, nil
	case MetricSharpe:
		return s.SharpeRFR, nil
	case MetricRAR:
		return s.RAR, nil
	default:
		return 0, fmt.Errorf("optimize: unknown metric %q", m)
	}
}

// Point is one evaluated grid point.
type Point struct {
	Params  strategy.Params
	Score   float64
	Summary *report.Summary
}

// Optimizer evaluates every grid point of one system on one series.
type Optimizer struct {
	// System is the registered system name to sweep.
	System string

	// Metric ranks the points, MAR when empty.
	Metric Metric

	// InitialEquity seeds each backtest, the engine default when zero.
	InitialEquity float64

	// Workers bounds the parallel evaluations, NumCPU when zero.
	Workers int

	log *zap.Logger
}

func New(system string, metric Metric, log *zap.Logger) *Optimizer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Optimizer{System: system, Metric: metric, log: log}
}

// Run evaluates the grid over the series and returns the points best
// first. Points whose params fail validation or whose backtest has no
// defined score are dropped, not fatal; an empty result is an error.
func (o *Optimizer) Run(ctx context.Context, series *market.Series, axes []Axis) ([]Point, error) {
	grid := Grid(axes)
	if len(grid) == 0 {
		return nil, errors.New("optimize: empty parameter grid")
	}
	if _, err := score(&report.Summary{}, o.Metric); err != nil {
		return nil, err
	}

	workers := o.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	var mu sync.Mutex
	var points []Point
	dropped := 0

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, params := range grid {
		g.Go(func() error {
			pt, err := o.evaluate(ctx, series, params)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				mu.Lock()
				dropped++
				mu.Unlock()
				o.log.Debug("grid point dropped",
					zap.String("system", o.System),
					zap.Any("params", params),
					zap.Error(err))
				return nil
			}
			mu.Lock()
			points = append(points, *pt)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if dropped > 0 {
		o.log.Info("grid points dropped during sweep",
			zap.Int("dropped", dropped), zap.Int("grid", len(grid)))
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("optimize: no scorable points in a grid of %d", len(grid))
	}

	sort.Slice(points, func(i, j int) bool { return points[i].Score > points[j].Score })
	return points, nil
}

func (o *Optimizer) evaluate(ctx context.Context, series *market.Series, params strategy.Params) (*Point, error) {
	rules, err := strategy.New(o.System, params)
	if err != nil {
		return nil, err
	}
	res, err := strategy.NewEngine(o.InitialEquity, nil).Run(ctx, rules, series)
	if err != nil {
		return nil, err
	}
	summary, err := report.Summarize(res, report.Options{})
	if err != nil {
		return nil, err
	}
	sc, err := score(summary, o.Metric)
	if err != nil {
		return nil, err
	}
	return &Point{Params: params, Score: sc, Summary: summary}, nil
}
