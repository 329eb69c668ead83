// Package gateway turns host operations into single-use pending calls and
// guarantees each one completes exactly once.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/confbridge/internal/infrastructure/logging"
	"github.com/GriffinCanCode/confbridge/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/confbridge/internal/shared/id"
	"github.com/GriffinCanCode/confbridge/internal/shared/types"
)

// Stats counts calls by terminal outcome
type Stats struct {
	Issued   uint64 `json:"issued"`
	Resolved uint64 `json:"resolved"`
	Rejected uint64 `json:"rejected"`
	Pending  int    `json:"pending"`
}

// Gateway tracks pending calls
type Gateway struct {
	mu       sync.Mutex
	pending  map[id.CallID]*Call
	timers   map[id.CallID]*monitoring.Timer
	issued   uint64
	resolved uint64
	rejected uint64

	logger  *logging.Logger
	metrics *monitoring.Metrics
}

// New creates an empty gateway
func New() *Gateway {
	return &Gateway{
		pending: make(map[id.CallID]*Call),
		timers:  make(map[id.CallID]*monitoring.Timer),
		logger:  logging.NewNop(),
	}
}

// WithLogger sets the logger
func (g *Gateway) WithLogger(logger *logging.Logger) *Gateway {
	g.logger = logger.Named("gateway")
	return g
}

// WithMetrics enables operation metrics
func (g *Gateway) WithMetrics(metrics *monitoring.Metrics) *Gateway {
	g.metrics = metrics
	return g
}

// Begin registers a new pending call
func (g *Gateway) Begin(kind Kind) *Call {
	call := newCall(kind, g.finish)

	g.mu.Lock()
	g.pending[call.id] = call
	g.timers[call.id] = monitoring.NewTimer(g.metrics, string(kind))
	g.issued++
	pending := len(g.pending)
	g.mu.Unlock()

	if g.metrics != nil {
		g.metrics.SetPending(pending)
	}
	return call
}

// Invoke registers a call, hands it to fn and waits for its completion.
// fn may complete the call before returning or pass it on to be completed
// later. A panic in fn rejects the call; so does ctx ending first.
func (g *Gateway) Invoke(ctx context.Context, kind Kind, fn func(*Call)) (any, error) {
	call := g.Begin(kind)
	g.run(call, fn)

	select {
	case <-call.Done():
	case <-ctx.Done():
		call.Reject(ctx.Err())
	}

	v, err := call.Result()
	if errors.Is(err, types.ErrStaleSession) {
		return nil, fmt.Errorf("%w: %s superseded", types.ErrClosed, kind)
	}
	return v, err
}

func (g *Gateway) run(call *Call, fn func(*Call)) {
	defer func() {
		if r := recover(); r != nil {
			g.logger.Error("Operation panicked",
				zap.String("call_id", call.id.String()),
				zap.String("kind", string(call.kind)),
				zap.Any("panic", r))
			call.Reject(types.NewOperationFailed("%s: %v", call.kind, r))
		}
	}()
	fn(call)
}

// Settle completes call with the given result unless live differs from the
// generation the call was bound to, in which case the call is rejected as
// stale.
func (g *Gateway) Settle(call *Call, live uint64, v any, err error) bool {
	if gen, bound := call.Generation(); bound && gen != live {
		return call.Reject(fmt.Errorf("%w: generation %d, live %d", types.ErrStaleSession, gen, live))
	}
	if err != nil {
		return call.Reject(err)
	}
	return call.Resolve(v)
}

// CancelGeneration rejects every pending call bound to generation with
// types.ErrClosed and returns how many it rejected.
func (g *Gateway) CancelGeneration(generation uint64) int {
	g.mu.Lock()
	var victims []*Call
	for _, call := range g.pending {
		if gen, bound := call.Generation(); bound && gen == generation {
			victims = append(victims, call)
		}
	}
	g.mu.Unlock()

	cancelled := 0
	for _, call := range victims {
		if call.Reject(types.ErrClosed) {
			cancelled++
		}
	}
	if cancelled > 0 {
		g.logger.Debug("Cancelled pending calls",
			zap.Uint64("generation", generation),
			zap.Int("count", cancelled))
	}
	return cancelled
}

// Pending returns the number of calls not yet completed
func (g *Gateway) Pending() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.pending)
}

// Stats returns call counters
func (g *Gateway) Stats() Stats {
	g.mu.Lock()
	defer g.mu.Unlock()
	return Stats{
		Issued:   g.issued,
		Resolved: g.resolved,
		Rejected: g.rejected,
		Pending:  len(g.pending),
	}
}

func (g *Gateway) finish(call *Call) {
	_, err := call.Result()

	g.mu.Lock()
	delete(g.pending, call.id)
	timer := g.timers[call.id]
	delete(g.timers, call.id)
	if err != nil {
		g.rejected++
	} else {
		g.resolved++
	}
	pending := len(g.pending)
	g.mu.Unlock()

	if timer != nil {
		timer.Stop(OutcomeLabel(err))
	}
	if g.metrics != nil {
		g.metrics.SetPending(pending)
	}
}

// OutcomeLabel maps an operation result onto a metrics label
func OutcomeLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, types.ErrPermissionDenied):
		return "permission_denied"
	case errors.Is(err, types.ErrAlreadyOpen):
		return "already_open"
	case errors.Is(err, types.ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, types.ErrNoActiveSession):
		return "no_active_session"
	case errors.Is(err, types.ErrEngineInitFailed):
		return "engine_init_failed"
	case errors.Is(err, types.ErrStaleSession), errors.Is(err, types.ErrClosed):
		return "closed"
	case errors.Is(err, types.ErrInvalidParams), errors.Is(err, types.ErrUnknownDevice):
		return "invalid_argument"
	case errors.Is(err, types.ErrOperationFailed):
		return "operation_failed"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "error"
	}
}
