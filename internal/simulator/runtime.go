// Package simulator provides a scripted engine runtime. Callbacks run on a
// dedicated engine goroutine, just like the native SDK's worker threads, so
// they race with host operations the same way.
package simulator

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/confbridge/internal/domain/dispatch"
	"github.com/GriffinCanCode/confbridge/internal/domain/engine"
	"github.com/GriffinCanCode/confbridge/internal/infrastructure/logging"
	"github.com/GriffinCanCode/confbridge/internal/shared/types"
)

// ErrDisabled is returned by connector calls made after Disable
var ErrDisabled = errors.New("connector disabled")

// Option configures a Runtime
type Option func(*Runtime)

// WithInitError makes Initialize fail with err
func WithInitError(err error) Option {
	return func(r *Runtime) { r.initErr = err }
}

// WithInitDelay makes Initialize block for d
func WithInitDelay(d time.Duration) Option {
	return func(r *Runtime) { r.initDelay = d }
}

// WithConnectorError makes NewConnector fail with err
func WithConnectorError(err error) Option {
	return func(r *Runtime) { r.connectorErr = err }
}

// WithConnectLatency delays the automatic connect and disconnect results
func WithConnectLatency(d time.Duration) Option {
	return func(r *Runtime) { r.latency = d }
}

// WithManualConnect disables automatic connect and disconnect results;
// tests drive them with the Emit methods instead.
func WithManualConnect() Option {
	return func(r *Runtime) { r.manual = true }
}

// WithRoster lists remote participants that join after every connect
func WithRoster(names ...string) Option {
	return func(r *Runtime) { r.roster = names }
}

// WithLogger sets the logger
func WithLogger(logger *logging.Logger) Option {
	return func(r *Runtime) { r.logger = logger }
}

// Runtime implements engine.Runtime
type Runtime struct {
	initErr      error
	initDelay    time.Duration
	connectorErr error
	latency      time.Duration
	manual       bool
	roster       []string
	logger       *logging.Logger

	thread *dispatch.Executor

	mu         sync.Mutex
	initCalls  int
	connectors []*Connector
}

var _ engine.Runtime = (*Runtime)(nil)

// New creates a simulated runtime
func New(opts ...Option) *Runtime {
	r := &Runtime{}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = logging.NewNop()
	}
	r.logger = r.logger.Named("simulator")
	r.thread = dispatch.New("engine", r.logger)
	return r
}

// Initialize implements engine.Runtime
func (r *Runtime) Initialize() error {
	r.mu.Lock()
	r.initCalls++
	r.mu.Unlock()

	if r.initDelay > 0 {
		time.Sleep(r.initDelay)
	}
	if r.initErr != nil {
		r.logger.Warn("Runtime initialization failed", zap.Error(r.initErr))
		return r.initErr
	}
	r.logger.Info("Runtime initialized")
	return nil
}

// NewConnector implements engine.Runtime
func (r *Runtime) NewConnector(surface types.Surface, opts engine.ConnectorOptions, cb engine.Callbacks) (engine.Connector, error) {
	if r.connectorErr != nil {
		return nil, r.connectorErr
	}

	conn := &Connector{
		rt:      r,
		cb:      cb,
		opts:    opts,
		surface: surface,
		mode:    engine.ModeForeground,
	}
	r.mu.Lock()
	r.connectors = append(r.connectors, conn)
	r.mu.Unlock()

	r.logger.Debug("Connector created",
		zap.String("surface_id", surface.ID),
		zap.Int("max_participants", opts.MaxParticipants),
		zap.String("log_filter", opts.LogFilter))
	return conn, nil
}

// InitCalls returns how many times Initialize ran
func (r *Runtime) InitCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.initCalls
}

// Connectors returns every connector created so far
func (r *Runtime) Connectors() []*Connector {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*Connector(nil), r.connectors...)
}

// LastConnector returns the most recently created connector
func (r *Runtime) LastConnector() *Connector {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.connectors) == 0 {
		return nil
	}
	return r.connectors[len(r.connectors)-1]
}

// Sync waits until every callback scheduled so far has run
func (r *Runtime) Sync(ctx context.Context) error {
	return r.thread.Flush(ctx)
}

// Close stops the engine goroutine
func (r *Runtime) Close() {
	r.thread.Close()
}

func (r *Runtime) schedule(fn func()) {
	if r.latency <= 0 {
		r.thread.Post(fn)
		return
	}
	time.AfterFunc(r.latency, func() { r.thread.Post(fn) })
}
