package resilience

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestBreaker(threshold int) (*Breaker, *fakeClock, *[]string) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	var changes []string
	b := New("test", Settings{
		FailureThreshold: threshold,
		Cooldown:         time.Second,
		Now:              clock.Now,
		OnStateChange: func(name string, from, to State) {
			changes = append(changes, from.String()+"->"+to.String())
		},
	})
	return b, clock, &changes
}

func fail() error    { return errBoom }
func succeed() error { return nil }

func TestBreakerStateTransitions(t *testing.T) {
	tests := []struct {
		name     string
		results  []bool // true = success
		expected State
	}{
		{"stays closed on successes", []bool{true, true, true}, StateClosed},
		{"stays closed below threshold", []bool{false, false}, StateClosed},
		{"success resets the run", []bool{false, false, true, false, false}, StateClosed},
		{"opens at threshold", []bool{false, false, false}, StateOpen},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, _, _ := newTestBreaker(3)
			for _, ok := range tt.results {
				if ok {
					_ = b.Do(succeed)
				} else {
					_ = b.Do(fail)
				}
			}
			assert.Equal(t, tt.expected, b.State())
		})
	}
}

func TestBreakerRejectsWhileOpen(t *testing.T) {
	b, _, _ := newTestBreaker(1)
	require.ErrorIs(t, b.Do(fail), errBoom)

	called := false
	err := b.Do(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
	assert.Equal(t, uint64(1), b.Counts().Rejected)
}

func TestBreakerRecoversThroughProbe(t *testing.T) {
	b, clock, changes := newTestBreaker(1)
	_ = b.Do(fail)

	clock.Advance(time.Second)
	assert.Equal(t, StateHalfOpen, b.State())

	require.NoError(t, b.Do(succeed))
	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, []string{"closed->open", "open->half-open", "half-open->closed"}, *changes)
}

func TestBreakerFailedProbeReopens(t *testing.T) {
	b, clock, _ := newTestBreaker(3)
	for i := 0; i < 3; i++ {
		_ = b.Do(fail)
	}
	clock.Advance(time.Second)

	assert.ErrorIs(t, b.Do(fail), errBoom)
	assert.Equal(t, StateOpen, b.State())

	clock.Advance(500 * time.Millisecond)
	assert.ErrorIs(t, b.Do(succeed), ErrCircuitOpen)
}

func TestBreakerSingleProbe(t *testing.T) {
	b, clock, _ := newTestBreaker(1)
	_ = b.Do(fail)
	clock.Advance(time.Second)

	entered := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- b.Do(func() error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered

	assert.ErrorIs(t, b.Do(succeed), ErrProbeInFlight)
	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, StateClosed, b.State())
}

func TestBreakerPanicCountsAsFailure(t *testing.T) {
	b, _, _ := newTestBreaker(1)

	assert.Panics(t, func() {
		_ = b.Do(func() error { panic("engine exploded") })
	})
	assert.Equal(t, StateOpen, b.State())
	assert.Equal(t, uint64(1), b.Counts().Failures)
}
