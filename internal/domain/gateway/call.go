package gateway

import (
	"sync"

	"github.com/GriffinCanCode/confbridge/internal/shared/id"
)

// Kind names a host operation
type Kind string

const (
	KindOpen        Kind = "open"
	KindConnect     Kind = "connect"
	KindDisconnect  Kind = "disconnect"
	KindSetPrivacy  Kind = "set_privacy"
	KindCycleCamera Kind = "cycle_camera"
	KindSetMode     Kind = "set_mode"
	KindResize      Kind = "resize"
	KindClose       Kind = "close"
	KindSnapshot    Kind = "snapshot"
)

// Call is a single-use completion handle for one host operation
type Call struct {
	id   id.CallID
	kind Kind

	mu         sync.Mutex
	generation uint64
	bound      bool
	completed  bool
	value      any
	err        error
	done       chan struct{}

	onComplete func(*Call)
}

func newCall(kind Kind, onComplete func(*Call)) *Call {
	return &Call{
		id:         id.NewCallID(),
		kind:       kind,
		done:       make(chan struct{}),
		onComplete: onComplete,
	}
}

// ID returns the call identifier
func (c *Call) ID() id.CallID { return c.id }

// Kind returns the operation kind
func (c *Call) Kind() Kind { return c.kind }

// Bind associates the call with a session generation. Results settled for
// any other generation are stale.
func (c *Call) Bind(generation uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation = generation
	c.bound = true
}

// Generation returns the bound generation
func (c *Call) Generation() (uint64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation, c.bound
}

// Resolve completes the call successfully. It returns false if the call was
// already completed.
func (c *Call) Resolve(v any) bool {
	return c.complete(v, nil)
}

// Reject completes the call with err. It returns false if the call was
// already completed.
func (c *Call) Reject(err error) bool {
	return c.complete(nil, err)
}

func (c *Call) complete(v any, err error) bool {
	c.mu.Lock()
	if c.completed {
		c.mu.Unlock()
		return false
	}
	c.completed = true
	c.value = v
	c.err = err
	c.mu.Unlock()

	// Bookkeeping settles before waiters wake so counters never lag behind
	// a returned result.
	if c.onComplete != nil {
		c.onComplete(c)
	}
	close(c.done)
	return true
}

// Completed reports whether Resolve or Reject already took effect
func (c *Call) Completed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.completed
}

// Done is closed once the call completes
func (c *Call) Done() <-chan struct{} { return c.done }

// Result returns the completion value. Valid only after Done is closed.
func (c *Call) Result() (any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value, c.err
}
