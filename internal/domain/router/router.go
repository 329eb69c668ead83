// Package router delivers session events to the host listener.
//
// Events may be published from any goroutine (engine threads, the session
// actor, the host bridge). The router delivers them on its own executor in
// the global order Publish was called, to at most one listener. Each event
// is stamped with the subscription token current at publish time and is
// dropped at delivery if that token is no longer current, so a superseded
// or unsubscribed listener never sees events that were still in transit.
// Delivery is best effort: without a listener events are dropped, never
// buffered.
package router

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/confbridge/internal/domain/dispatch"
	"github.com/GriffinCanCode/confbridge/internal/infrastructure/logging"
	"github.com/GriffinCanCode/confbridge/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/confbridge/internal/shared/types"
)

// Listener receives events on the router's delivery goroutine
type Listener func(types.Event)

// Subscription identifies a listener registration. The zero value means
// "no listener".
type Subscription uint64

// Router serializes event delivery onto one goroutine
type Router struct {
	exec    *dispatch.Executor
	logger  *logging.Logger
	metrics *monitoring.Metrics

	// delivering is held for the whole of a delivery; Subscribe and
	// Unsubscribe take it first so they return only between deliveries.
	delivering sync.Mutex

	mu       sync.Mutex
	current  Subscription
	last     Subscription
	listener Listener
}

// New creates a router with its own delivery goroutine
func New(logger *logging.Logger) *Router {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logger.Named("router")
	return &Router{
		exec:   dispatch.New("delivery", logger),
		logger: logger,
	}
}

// WithMetrics enables router metrics
func (r *Router) WithMetrics(metrics *monitoring.Metrics) *Router {
	r.metrics = metrics
	return r
}

// Subscribe registers l as the only listener, superseding any previous one.
// The previous listener receives nothing once Subscribe returns. Must not be
// called from a listener.
func (r *Router) Subscribe(l Listener) Subscription {
	r.delivering.Lock()
	defer r.delivering.Unlock()
	r.mu.Lock()
	defer r.mu.Unlock()

	r.last++
	r.current = r.last
	r.listener = l
	r.logger.Debug("Listener subscribed", zap.Uint64("subscription", uint64(r.current)))
	return r.current
}

// Unsubscribe removes the listener registered under sub. It returns false if
// sub was already superseded. A delivery in progress finishes before it
// returns; none follows. Must not be called from a listener.
func (r *Router) Unsubscribe(sub Subscription) bool {
	r.delivering.Lock()
	defer r.delivering.Unlock()
	r.mu.Lock()
	defer r.mu.Unlock()

	if sub == 0 || sub != r.current {
		return false
	}
	r.current = 0
	r.listener = nil
	r.logger.Debug("Listener unsubscribed", zap.Uint64("subscription", uint64(sub)))
	return true
}

// Publish queues ev for delivery. Safe for concurrent use.
func (r *Router) Publish(ev types.Event) {
	if r.metrics != nil {
		r.metrics.RecordEventPublished(string(ev.Type))
	}

	// Stamping and enqueueing under one lock makes publish order and
	// delivery order identical across publishers.
	r.mu.Lock()
	stamp := r.current
	queued := stamp != 0 && r.exec.Post(func() { r.deliver(stamp, ev) })
	r.mu.Unlock()

	if !queued {
		r.dropped(ev)
	}
}

// Flush waits until every event published before the call has been
// delivered or dropped. Must not be called from a listener.
func (r *Router) Flush(ctx context.Context) error {
	return r.exec.Flush(ctx)
}

// Close stops the delivery goroutine after draining queued events
func (r *Router) Close() {
	r.exec.Close()
}

func (r *Router) deliver(stamp Subscription, ev types.Event) {
	r.delivering.Lock()
	defer r.delivering.Unlock()

	r.mu.Lock()
	l := r.listener
	current := r.current
	r.mu.Unlock()

	if stamp != current || l == nil {
		r.dropped(ev)
		return
	}

	l(ev)
	if r.metrics != nil {
		r.metrics.RecordEventDelivered(string(ev.Type))
	}
}

func (r *Router) dropped(ev types.Event) {
	r.logger.Debug("Event dropped", zap.String("type", string(ev.Type)), zap.Uint64("generation", ev.Generation))
	if r.metrics != nil {
		r.metrics.RecordEventDropped(string(ev.Type))
	}
}
