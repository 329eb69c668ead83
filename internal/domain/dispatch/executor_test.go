package dispatch

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostRunsInOrder(t *testing.T) {
	e := New("test", nil)
	defer e.Close()

	var got []int
	for i := 0; i < 100; i++ {
		i := i
		require.True(t, e.Post(func() { got = append(got, i) }))
	}
	require.NoError(t, e.Flush(context.Background()))

	require.Len(t, got, 100)
	for i, v := range got {
		assert.Equal(t, i, v)
	}
}

func TestTasksNeverOverlap(t *testing.T) {
	e := New("test", nil)
	defer e.Close()

	var (
		mu      sync.Mutex
		running int
		maxSeen int
	)

	var wg sync.WaitGroup
	for p := 0; p < 8; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				e.Post(func() {
					mu.Lock()
					running++
					if running > maxSeen {
						maxSeen = running
					}
					mu.Unlock()

					time.Sleep(10 * time.Microsecond)

					mu.Lock()
					running--
					mu.Unlock()
				})
			}
		}()
	}
	wg.Wait()
	require.NoError(t, e.Flush(context.Background()))

	assert.Equal(t, 1, maxSeen)
}

func TestPanicDoesNotStopExecutor(t *testing.T) {
	e := New("test", nil)
	defer e.Close()

	ran := false
	e.Post(func() { panic("boom") })
	e.Post(func() { ran = true })
	require.NoError(t, e.Flush(context.Background()))

	assert.True(t, ran)
}

func TestCloseDrainsQueueAndRejectsNewWork(t *testing.T) {
	e := New("test", nil)

	count := 0
	for i := 0; i < 10; i++ {
		e.Post(func() { count++ })
	}
	e.Close()

	assert.Equal(t, 10, count)
	assert.False(t, e.Post(func() {}))
	assert.ErrorIs(t, e.Flush(context.Background()), ErrStopped)

	select {
	case <-e.Done():
	default:
		t.Fatal("Done should be closed after Close")
	}
}

func TestFlushHonoursContext(t *testing.T) {
	e := New("test", nil)
	defer e.Close()

	release := make(chan struct{})
	e.Post(func() { <-release })

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, e.Flush(ctx), context.DeadlineExceeded)
	close(release)
}
