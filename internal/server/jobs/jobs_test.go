package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/reforest/internal/logging"
	"github.com/dmitrijs2005/reforest/internal/server/clustering"
	"github.com/dmitrijs2005/reforest/internal/server/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type fakeRefresher struct{ calls atomic.Int32 }

func (f *fakeRefresher) RefreshAll(ctx context.Context) (*services.RefreshReport, error) {
	f.calls.Add(1)
	return &services.RefreshReport{}, nil
}

type fakeRebuilder struct {
	radius float64
	min    int
	calls  atomic.Int32
}

func (f *fakeRebuilder) RebuildAll(ctx context.Context, radius float64, minMembers int) (*clustering.RebuildReport, error) {
	f.radius, f.min = radius, minMembers
	f.calls.Add(1)
	return nil, errors.New("rebuild failed")
}

func TestRunner_RunsImmediateTasksUntilCancelled(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	r, err := NewRunner(logging.Nop())
	require.NoError(t, err)

	ref := &fakeRefresher{}
	reb := &fakeRebuilder{}

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, r.Add(ctx, ImpactRefreshTask(ref, time.Hour), true))
	require.NoError(t, r.Add(ctx, ZoneRebuildTask(reb, time.Hour, 0.8, 12), true))
	assert.Equal(t, 2, r.Jobs())

	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	require.Eventually(t, func() bool {
		return ref.calls.Load() == 1 && reb.calls.Load() == 1
	}, 5*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("runner did not stop")
	}

	assert.Equal(t, 0.8, reb.radius)
	assert.Equal(t, 12, reb.min)
}

func TestRunner_ZeroIntervalIsDisabled(t *testing.T) {
	r, err := NewRunner(logging.Nop())
	require.NoError(t, err)

	require.NoError(t, r.Add(context.Background(), ZoneRebuildTask(&fakeRebuilder{}, 0, 1, 10), true))
	assert.Zero(t, r.Jobs())
}

func TestRunner_WaitsForInterval(t *testing.T) {
	r, err := NewRunner(logging.Nop())
	require.NoError(t, err)

	ref := &fakeRefresher{}
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, r.Add(ctx, ImpactRefreshTask(ref, time.Hour), false))

	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()
	time.Sleep(50 * time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	assert.Zero(t, ref.calls.Load())
}
