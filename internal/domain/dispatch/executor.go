// Package dispatch provides the serial executor used as a designated
// delivery context: every function posted to an Executor runs on the same
// goroutine, one at a time, in the order Post was called.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/confbridge/internal/infrastructure/logging"
)

// ErrStopped is returned when work is submitted to a closed executor.
var ErrStopped = errors.New("executor stopped")

// Executor runs posted functions sequentially on a single goroutine.
// The queue is unbounded so Post never blocks the caller.
type Executor struct {
	name   string
	logger *logging.Logger

	mu     sync.Mutex
	queue  []func()
	closed bool

	wake chan struct{}
	done chan struct{}
}

// New starts an executor goroutine.
func New(name string, logger *logging.Logger) *Executor {
	if logger == nil {
		logger = logging.NewNop()
	}
	e := &Executor{
		name:   name,
		logger: logger.Named(name),
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	go e.loop()
	return e
}

// Name returns the executor name used in logs.
func (e *Executor) Name() string {
	return e.name
}

// Post queues fn for execution. It returns false if the executor is closed.
func (e *Executor) Post(fn func()) bool {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return false
	}
	e.queue = append(e.queue, fn)
	e.mu.Unlock()

	select {
	case e.wake <- struct{}{}:
	default:
	}
	return true
}

// Flush waits until every function posted before the call has run.
// It must not be called from the executor goroutine.
func (e *Executor) Flush(ctx context.Context) error {
	barrier := make(chan struct{})
	if !e.Post(func() { close(barrier) }) {
		return ErrStopped
	}
	select {
	case <-barrier:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting work, runs what is already queued and waits for the
// goroutine to exit. It must not be called from the executor goroutine.
func (e *Executor) Close() {
	e.mu.Lock()
	if !e.closed {
		e.closed = true
		select {
		case e.wake <- struct{}{}:
		default:
		}
	}
	e.mu.Unlock()
	<-e.done
}

// Done is closed once the executor goroutine has exited.
func (e *Executor) Done() <-chan struct{} {
	return e.done
}

func (e *Executor) loop() {
	defer close(e.done)
	for {
		e.mu.Lock()
		for len(e.queue) == 0 {
			if e.closed {
				e.mu.Unlock()
				return
			}
			e.mu.Unlock()
			<-e.wake
			e.mu.Lock()
		}
		batch := e.queue
		e.queue = nil
		e.mu.Unlock()

		for _, fn := range batch {
			e.run(fn)
		}
	}
}

// run isolates a panicking task so later tasks still execute.
func (e *Executor) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Task panicked", zap.String("panic", fmt.Sprint(r)), zap.Stack("stack"))
		}
	}()
	fn()
}
