package gateway

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/confbridge/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/confbridge/internal/shared/types"
)

func TestInvokeSynchronousResolve(t *testing.T) {
	g := New()

	v, err := g.Invoke(context.Background(), KindSnapshot, func(c *Call) {
		c.Resolve("state")
	})

	require.NoError(t, err)
	assert.Equal(t, "state", v)
	assert.Equal(t, Stats{Issued: 1, Resolved: 1}, g.Stats())
}

func TestInvokeDeferredCompletion(t *testing.T) {
	g := New()

	v, err := g.Invoke(context.Background(), KindOpen, func(c *Call) {
		go func() {
			time.Sleep(5 * time.Millisecond)
			c.Resolve(42)
		}()
	})

	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Zero(t, g.Pending())
}

func TestCallCompletesOnce(t *testing.T) {
	g := New()
	c := g.Begin(KindConnect)

	assert.True(t, c.Reject(types.ErrInvalidState))
	assert.False(t, c.Resolve(nil))
	assert.False(t, c.Reject(errors.New("late")))
	assert.True(t, c.Completed())

	_, err := c.Result()
	assert.ErrorIs(t, err, types.ErrInvalidState)
	assert.Equal(t, Stats{Issued: 1, Rejected: 1}, g.Stats())
}

func TestConcurrentCompletionIsExactlyOnce(t *testing.T) {
	g := New()
	c := g.Begin(KindDisconnect)

	var wg sync.WaitGroup
	wins := make(chan bool, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				wins <- c.Resolve(i)
			} else {
				wins <- c.Reject(types.ErrClosed)
			}
		}(i)
	}
	wg.Wait()
	close(wins)

	won := 0
	for w := range wins {
		if w {
			won++
		}
	}
	assert.Equal(t, 1, won)
	stats := g.Stats()
	assert.Equal(t, uint64(1), stats.Resolved+stats.Rejected)
}

func TestInvokeRecoversPanic(t *testing.T) {
	g := New()

	_, err := g.Invoke(context.Background(), KindCycleCamera, func(*Call) {
		panic("engine exploded")
	})

	assert.ErrorIs(t, err, types.ErrOperationFailed)
	assert.Contains(t, err.Error(), "engine exploded")
}

func TestInvokeContextCancelled(t *testing.T) {
	g := New()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	var held *Call
	_, err := g.Invoke(ctx, KindOpen, func(c *Call) { held = c })

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, held.Resolve(nil))
	assert.Zero(t, g.Pending())
}

func TestSettleStaleGeneration(t *testing.T) {
	g := New()

	_, err := g.Invoke(context.Background(), KindConnect, func(c *Call) {
		c.Bind(3)
		g.Settle(c, 4, "too late", nil)
	})

	assert.ErrorIs(t, err, types.ErrClosed)
	assert.NotErrorIs(t, err, types.ErrStaleSession)
}

func TestSettleLiveGeneration(t *testing.T) {
	g := New()

	c := g.Begin(KindConnect)
	c.Bind(7)
	assert.True(t, g.Settle(c, 7, nil, types.NewOperationFailed("refused")))

	_, err := c.Result()
	assert.ErrorIs(t, err, types.ErrOperationFailed)
}

func TestCancelGeneration(t *testing.T) {
	g := New()

	a := g.Begin(KindOpen)
	a.Bind(1)
	b := g.Begin(KindConnect)
	b.Bind(1)
	other := g.Begin(KindConnect)
	other.Bind(2)
	unbound := g.Begin(KindSnapshot)

	assert.Equal(t, 2, g.CancelGeneration(1))
	assert.Equal(t, 0, g.CancelGeneration(1))

	for _, c := range []*Call{a, b} {
		_, err := c.Result()
		assert.ErrorIs(t, err, types.ErrClosed)
	}
	assert.False(t, other.Completed())
	assert.False(t, unbound.Completed())
	assert.Equal(t, 2, g.Pending())
}

func TestMetricsRecorded(t *testing.T) {
	metrics := monitoring.NewMetrics(prometheus.NewRegistry())
	g := New().WithMetrics(metrics)

	_, _ = g.Invoke(context.Background(), KindSnapshot, func(c *Call) { c.Resolve(nil) })
	_, _ = g.Invoke(context.Background(), KindConnect, func(c *Call) { c.Reject(types.ErrInvalidState) })

	snap := metrics.GetSnapshot()
	assert.Equal(t, int64(2), snap.OperationsTotal)
	assert.Equal(t, int64(1), snap.OperationErrors)
}

func TestOutcomeLabel(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{types.ErrPermissionDenied, "permission_denied"},
		{types.ErrAlreadyOpen, "already_open"},
		{types.ErrInvalidState, "invalid_state"},
		{types.ErrNoActiveSession, "no_active_session"},
		{types.ErrEngineInitFailed, "engine_init_failed"},
		{types.ErrStaleSession, "closed"},
		{types.ErrClosed, "closed"},
		{types.ErrUnknownDevice, "invalid_argument"},
		{types.NewOperationFailed("x"), "operation_failed"},
		{context.Canceled, "cancelled"},
		{errors.New("boom"), "error"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, OutcomeLabel(tt.err))
		})
	}
}
