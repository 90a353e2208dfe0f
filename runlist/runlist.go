// Package runlist tracks which analyses must run before others and runs
// each of them exactly once. Analyses declare their prerequisites; the
// runlist resolves a dependency order, rejects cycles, and executes
// independent branches concurrently, memoising results in a shared Env.
package runlist

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/quantlab/hindsight/dataset"
)

// ErrCycle is returned by Resolve when the dependency graph is not a DAG.
var ErrCycle = errors.New("runlist: dependency cycle")

// Task is one analysis in the runlist. Tasks with equal keys are treated
// as the same analysis and run once.
type Task interface {
	// Key is a stable identifier, e.g. "FTSE_EWMA".
	Key() string

	// Requires lists the analyses that must complete first.
	Requires() []Task

	// Run computes the analysis and stores its output in env under Key.
	Run(ctx context.Context, env *Env) error
}

// Env is the shared result cache tasks read their prerequisites from.
type Env struct {
	mu     sync.RWMutex
	frames map[string]*dataset.Frame
}

func NewEnv() *Env {
	return &Env{frames: make(map[string]*dataset.Frame)}
}

// Put stores a task's output frame.
func (e *Env) Put(key string, f *dataset.Frame) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.frames[key] = f
}

// Get returns a stored frame, or an error if the analysis has not run.
func (e *Env) Get(key string) (*dataset.Frame, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	f, ok := e.frames[key]
	if !ok {
		return nil, fmt.Errorf("runlist: no result for %q", key)
	}
	return f, nil
}

// Has reports whether a result is cached for key.
func (e *Env) Has(key string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.frames[key]
	return ok
}

// Keys returns the cached keys in sorted order.
func (e *Env) Keys() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	keys := make([]string, 0, len(e.frames))
	for k := range e.frames {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Runlist is a set of tasks plus their transitive prerequisites.
type Runlist struct {
	tasks map[string]Task
	deps  map[string][]string // key -> prerequisite keys
	added []string            // insertion order, for stable Resolve output

	log *zap.Logger
}

func New(log *zap.Logger) *Runlist {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runlist{
		tasks: make(map[string]Task),
		deps:  make(map[string][]string),
		log:   log,
	}
}

// Add registers a task and, transitively, everything it requires.
// A key seen twice coalesces to the first registration, which is what
// guarantees no analysis is repeated.
func (r *Runlist) Add(t Task) {
	key := t.Key()
	if _, ok := r.tasks[key]; ok {
		return
	}
	r.tasks[key] = t
	r.added = append(r.added, key)

	var depKeys []string
	for _, req := range t.Requires() {
		depKeys = append(depKeys, req.Key())
		r.Add(req)
	}
	r.deps[key] = depKeys
}

// Len returns the number of distinct tasks tracked.
func (r *Runlist) Len() int { return len(r.tasks) }

// Resolve returns a valid execution order: every task after all of its
// prerequisites. A cycle is reported with its path.
func (r *Runlist) Resolve() ([]string, error) {
	const (
		white = 0 // unvisited
		grey  = 1 // on the current path
		black = 2 // done
	)
	color := make(map[string]int, len(r.tasks))
	var order []string

	var visit func(key string, path []string) error
	visit = func(key string, path []string) error {
		switch color[key] {
		case black:
			return nil
		case grey:
			cycle := append(path, key)
			return fmt.Errorf("%w: %s", ErrCycle, strings.Join(cycle, " -> "))
		}
		color[key] = grey
		for _, dep := range r.deps[key] {
			if err := visit(dep, append(path, key)); err != nil {
				return err
			}
		}
		color[key] = black
		order = append(order, key)
		return nil
	}

	for _, key := range r.added {
		if err := visit(key, nil); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// Run executes every task exactly once, prerequisites first. Tasks whose
// prerequisites are all satisfied run concurrently. A task whose result
// is already in env is skipped, which lets cached frames short-circuit
// recomputation.
func (r *Runlist) Run(ctx context.Context, env *Env) error {
	order, err := r.Resolve()
	if err != nil {
		return err
	}

	pending := make(map[string]bool, len(order))
	for _, key := range order {
		pending[key] = true
	}

	for len(pending) > 0 {
		// collect the wave of tasks whose prerequisites are done
		var wave []string
		for _, key := range order {
			if !pending[key] {
				continue
			}
			ready := true
			for _, dep := range r.deps[key] {
				if pending[dep] {
					ready = false
					break
				}
			}
			if ready {
				wave = append(wave, key)
			}
		}
		if len(wave) == 0 {
			return fmt.Errorf("runlist: no runnable task among %d pending", len(pending))
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(runtime.NumCPU())
		for _, key := range wave {
			t := r.tasks[key]
			g.Go(func() error {
				if env.Has(t.Key()) {
					r.log.Debug("skipping cached analysis", zap.String("key", t.Key()))
					return nil
				}
				r.log.Debug("running analysis", zap.String("key", t.Key()))
				if err := t.Run(gctx, env); err != nil {
					return fmt.Errorf("runlist: %s: %w", t.Key(), err)
				}
				if !env.Has(t.Key()) {
					return fmt.Errorf("runlist: %s finished without storing a result", t.Key())
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		for _, key := range wave {
			delete(pending, key)
		}
	}
	return nil
}
