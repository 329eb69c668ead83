package engine

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/GriffinCanCode/confbridge/internal/infrastructure/logging"
	"github.com/GriffinCanCode/confbridge/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/confbridge/internal/shared/types"
)

const initKey = "engine-init"

// Lifecycle gates access to the engine runtime behind a single bring-up
type Lifecycle struct {
	runtime Runtime
	group   singleflight.Group
	logger  *logging.Logger
	metrics *monitoring.Metrics

	mu       sync.Mutex
	state    types.EngineState
	err      error
	attempts int
}

var (
	defaultLifecycle *Lifecycle
	defaultOnce      sync.Once
)

// DefaultLifecycle returns the process-wide lifecycle, creating it around rt
// on first use. Later calls ignore rt.
func DefaultLifecycle(rt Runtime) *Lifecycle {
	defaultOnce.Do(func() {
		defaultLifecycle = NewLifecycle(rt)
	})
	return defaultLifecycle
}

// NewLifecycle creates a lifecycle for rt in the Uninitialized state
func NewLifecycle(rt Runtime) *Lifecycle {
	return &Lifecycle{
		runtime: rt,
		state:   types.EngineUninitialized,
		logger:  logging.NewNop(),
	}
}

// WithLogger sets the logger
func (l *Lifecycle) WithLogger(logger *logging.Logger) *Lifecycle {
	l.logger = logger.Named("engine")
	return l
}

// WithMetrics enables bring-up metrics
func (l *Lifecycle) WithMetrics(metrics *monitoring.Metrics) *Lifecycle {
	l.metrics = metrics
	return l
}

// Runtime returns the wrapped runtime
func (l *Lifecycle) Runtime() Runtime {
	return l.runtime
}

// State returns the current engine state
func (l *Lifecycle) State() types.EngineState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Attempts returns how many times Initialize has been invoked (0 or 1)
func (l *Lifecycle) Attempts() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.attempts
}

// EnsureReady brings the runtime up if needed. Concurrent callers share one
// attempt. A cancelled ctx abandons the wait but not the attempt.
func (l *Lifecycle) EnsureReady(ctx context.Context) error {
	if done, err := l.terminal(); done {
		return err
	}

	ch := l.group.DoChan(initKey, func() (interface{}, error) {
		return nil, l.initialize()
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Lifecycle) terminal() (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch l.state {
	case types.EngineReady:
		return true, nil
	case types.EngineFailed:
		return true, l.err
	}
	return false, nil
}

// initialize runs inside the single flight. A flight that starts after an
// earlier one finished sees the terminal state and does not re-run.
func (l *Lifecycle) initialize() (err error) {
	l.mu.Lock()
	switch l.state {
	case types.EngineReady:
		l.mu.Unlock()
		return nil
	case types.EngineFailed:
		err = l.err
		l.mu.Unlock()
		return err
	}
	l.state = types.EngineInitializing
	l.attempts++
	l.mu.Unlock()

	l.logger.Info("Initializing engine runtime")

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", types.ErrEngineInitFailed, r)
		}

		l.mu.Lock()
		if err != nil {
			l.state = types.EngineFailed
			l.err = err
		} else {
			l.state = types.EngineReady
		}
		l.mu.Unlock()

		if err != nil {
			l.logger.Error("Engine runtime failed to initialize", zap.Error(err))
			l.record("failed")
		} else {
			l.logger.Info("Engine runtime ready")
			l.record("ready")
		}
	}()

	if initErr := l.runtime.Initialize(); initErr != nil {
		return fmt.Errorf("%w: %v", types.ErrEngineInitFailed, initErr)
	}
	return nil
}

func (l *Lifecycle) record(result string) {
	if l.metrics != nil {
		l.metrics.RecordEngineInit(result)
	}
}
