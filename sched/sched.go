// Package sched keeps the market data store fresh on a cron schedule.
package sched

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// SyncFunc refreshes the data store, typically a yahoo.Syncer.Sync.
type SyncFunc func(ctx context.Context) error

// Refresher runs the sync on a six-field cron spec, seconds included,
// e.g. "0 30 17 * * MON-FRI" for half past five on weekdays.
type Refresher struct {
	cron    *cron.Cron
	entryID cron.EntryID
	syncFn  SyncFunc
	timeout time.Duration
	log     *zap.Logger

	mu      sync.Mutex
	running bool
	busy    bool
	lastErr error
	lastRun time.Time
}

func NewRefresher(spec string, syncFn SyncFunc, log *zap.Logger) (*Refresher, error) {
	if syncFn == nil {
		return nil, errors.New("sched: nil sync function")
	}
	if log == nil {
		log = zap.NewNop()
	}
	r := &Refresher{
		cron:    cron.New(cron.WithSeconds()),
		syncFn:  syncFn,
		timeout: 30 * time.Minute,
		log:     log,
	}
	id, err := r.cron.AddFunc(spec, r.fire)
	if err != nil {
		return nil, err
	}
	r.entryID = id
	return r, nil
}

// fire runs one scheduled refresh. The cron library fires each tick in
// its own goroutine, so a sync slower than the schedule interval would
// overlap the next one; those ticks are skipped instead.
func (r *Refresher) fire() {
	r.mu.Lock()
	if r.busy {
		r.mu.Unlock()
		r.log.Warn("previous refresh still running, skipping this fire")
		return
	}
	r.busy = true
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.busy = false
		r.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	r.log.Info("scheduled data refresh starting")
	err := r.syncFn(ctx)

	r.mu.Lock()
	r.lastErr = err
	r.lastRun = time.Now()
	r.mu.Unlock()

	if err != nil {
		r.log.Error("scheduled data refresh failed", zap.Error(err))
		return
	}
	r.log.Info("scheduled data refresh complete")
}

// Start begins firing on schedule. It returns immediately.
func (r *Refresher) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return
	}
	r.running = true
	r.cron.Start()
	r.log.Info("refresher started",
		zap.Time("next", r.cron.Entry(r.entryID).Next))
}

// Stop halts the schedule and waits for a running refresh to finish.
func (r *Refresher) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	r.mu.Unlock()

	<-r.cron.Stop().Done()
	r.log.Info("refresher stopped")
}

// RunNow refreshes immediately, outside the schedule.
func (r *Refresher) RunNow(ctx context.Context) error {
	err := r.syncFn(ctx)
	r.mu.Lock()
	r.lastErr = err
	r.lastRun = time.Now()
	r.mu.Unlock()
	return err
}

// Last reports the time and outcome of the most recent refresh. The
// zero time means no refresh has run yet.
func (r *Refresher) Last() (time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastRun, r.lastErr
}
