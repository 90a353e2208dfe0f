package sched

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRefresherValidation(t *testing.T) {
	_, err := NewRefresher("0 30 17 * * MON-FRI", nil, nil)
	assert.Error(t, err)

	_, err = NewRefresher("not a cron spec", func(context.Context) error { return nil }, nil)
	assert.Error(t, err)

	_, err = NewRefresher("0 30 17 * * MON-FRI", func(context.Context) error { return nil }, nil)
	assert.NoError(t, err)
}

func TestRefresherFiresOnSchedule(t *testing.T) {
	var calls atomic.Int32
	r, err := NewRefresher("* * * * * *", func(context.Context) error {
		calls.Add(1)
		return nil
	}, nil)
	require.NoError(t, err)

	r.Start()
	defer r.Stop()

	require.Eventually(t, func() bool {
		return calls.Load() >= 1
	}, 3*time.Second, 50*time.Millisecond)

	last, lastErr := r.Last()
	assert.False(t, last.IsZero())
	assert.NoError(t, lastErr)
}

func TestSlowRefreshSkipsOverlappingFires(t *testing.T) {
	var active, peak atomic.Int32
	r, err := NewRefresher("* * * * * *", func(context.Context) error {
		if cur := active.Add(1); cur > peak.Load() {
			peak.Store(cur)
		}
		defer active.Add(-1)
		time.Sleep(2500 * time.Millisecond)
		return nil
	}, nil)
	require.NoError(t, err)

	r.Start()
	time.Sleep(3500 * time.Millisecond)
	r.Stop()

	assert.Equal(t, int32(1), peak.Load())
}

func TestRunNow(t *testing.T) {
	boom := errors.New("fetch failed")
	r, err := NewRefresher("0 30 17 * * MON-FRI", func(context.Context) error {
		return boom
	}, nil)
	require.NoError(t, err)

	assert.ErrorIs(t, r.RunNow(context.Background()), boom)
	_, lastErr := r.Last()
	assert.ErrorIs(t, lastErr, boom)
}

func TestStopIsIdempotent(t *testing.T) {
	r, err := NewRefresher("* * * * * *", func(context.Context) error { return nil }, nil)
	require.NoError(t, err)

	r.Start()
	r.Start()
	r.Stop()
	r.Stop()
}
