// Package session implements the conference session lifecycle.
//
// A Controller owns at most one session. Every state transition runs on a
// single actor goroutine: host operations are posted there by the call
// gateway and engine callbacks are posted there by a generation-bound
// adapter. Close bumps the generation before releasing anything, so results
// that arrive late for a previous session are recognised and discarded.
package session

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/confbridge/internal/domain/dispatch"
	"github.com/GriffinCanCode/confbridge/internal/domain/engine"
	"github.com/GriffinCanCode/confbridge/internal/domain/gateway"
	"github.com/GriffinCanCode/confbridge/internal/domain/permission"
	"github.com/GriffinCanCode/confbridge/internal/domain/router"
	"github.com/GriffinCanCode/confbridge/internal/domain/view"
	"github.com/GriffinCanCode/confbridge/internal/infrastructure/logging"
	"github.com/GriffinCanCode/confbridge/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/confbridge/internal/shared/types"
)

// Config tunes controller behaviour
type Config struct {
	// DebugLogFilter applies to debug sessions that do not name a log level.
	DebugLogFilter string
	// ReleaseLogFilter applies to every non-debug session.
	ReleaseLogFilter string
	// Capabilities must be granted before the engine is initialized.
	Capabilities []permission.Capability
}

// DefaultConfig returns the filters the engine ships with
func DefaultConfig() Config {
	return Config{
		DebugLogFilter:   "debug@VidyoClient debug@VidyoConnector info warning",
		ReleaseLogFilter: "info@VidyoClient info@VidyoConnector info warning",
		Capabilities:     permission.DefaultCapabilities,
	}
}

// Deps are the collaborators a Controller drives
type Deps struct {
	Router      *router.Router
	Gateway     *gateway.Gateway
	Lifecycle   *engine.Lifecycle
	Permissions *permission.Gate
	Views       *view.Manager
	Logger      *logging.Logger
	Metrics     *monitoring.Metrics
}

// Controller serializes the session state machine
type Controller struct {
	exec        *dispatch.Executor
	router      *router.Router
	gateway     *gateway.Gateway
	lifecycle   *engine.Lifecycle
	permissions *permission.Gate
	views       *view.Manager
	logger      *logging.Logger
	metrics     *monitoring.Metrics
	cfg         Config

	// Owned by the actor goroutine.
	generation uint64
	sess       *session
}

// NewController creates a controller and starts its actor goroutine
func NewController(deps Deps, cfg Config) (*Controller, error) {
	switch {
	case deps.Router == nil:
		return nil, fmt.Errorf("session controller: router is required")
	case deps.Lifecycle == nil:
		return nil, fmt.Errorf("session controller: engine lifecycle is required")
	case deps.Permissions == nil:
		return nil, fmt.Errorf("session controller: permission gate is required")
	}

	logger := deps.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logger.Named("session")

	gw := deps.Gateway
	if gw == nil {
		gw = gateway.New().WithLogger(logger).WithMetrics(deps.Metrics)
	}
	views := deps.Views
	if views == nil {
		views = view.NewManager(logger)
	}
	if len(cfg.Capabilities) == 0 {
		cfg.Capabilities = permission.DefaultCapabilities
	}

	c := &Controller{
		exec:        dispatch.New("session", logger),
		router:      deps.Router,
		gateway:     gw,
		lifecycle:   deps.Lifecycle,
		permissions: deps.Permissions,
		views:       views,
		logger:      logger,
		metrics:     deps.Metrics,
		cfg:         cfg,
	}
	if c.metrics != nil {
		c.metrics.SetSessionState(string(types.StateClosed))
	}
	return c, nil
}

// Open starts a session with params. It returns once the engine is ready
// and the surface attached, or with the reason the session could not open.
func (c *Controller) Open(ctx context.Context, params types.ConnectionParams) error {
	_, err := c.run(ctx, gateway.KindOpen, func(call *gateway.Call) {
		c.open(call, params)
	})
	return err
}

// Connect asks the engine to join the room. A nil error means the request
// was accepted; the outcome is published as a connected or failed event.
func (c *Controller) Connect(ctx context.Context) error {
	_, err := c.run(ctx, gateway.KindConnect, c.connect)
	return err
}

// Disconnect asks the engine to leave the room. Completion is published as
// a disconnected event.
func (c *Controller) Disconnect(ctx context.Context) error {
	_, err := c.run(ctx, gateway.KindDisconnect, c.disconnect)
	return err
}

// SetPrivacy mutes or unmutes a local capture device
func (c *Controller) SetPrivacy(ctx context.Context, device types.Device, private bool) error {
	_, err := c.run(ctx, gateway.KindSetPrivacy, func(call *gateway.Call) {
		c.setPrivacy(call, device, private)
	})
	return err
}

// CycleCamera switches to the next local camera
func (c *Controller) CycleCamera(ctx context.Context) error {
	_, err := c.run(ctx, gateway.KindCycleCamera, c.cycleCamera)
	return err
}

// SetMode tells the engine whether the host application is in the
// foreground or the background
func (c *Controller) SetMode(ctx context.Context, mode engine.Mode) error {
	_, err := c.run(ctx, gateway.KindSetMode, func(call *gateway.Call) {
		c.setMode(call, mode)
	})
	return err
}

// Resize reports new geometry for the attached surface
func (c *Controller) Resize(ctx context.Context, width, height int) error {
	_, err := c.run(ctx, gateway.KindResize, func(call *gateway.Call) {
		c.resize(call, width, height)
	})
	return err
}

// Close tears the session down from any state. Closing with no session is
// a no-op.
func (c *Controller) Close(ctx context.Context) error {
	_, err := c.run(ctx, gateway.KindClose, c.close)
	return err
}

// Snapshot returns the current session state
func (c *Controller) Snapshot(ctx context.Context) (Snapshot, error) {
	v, err := c.run(ctx, gateway.KindSnapshot, func(call *gateway.Call) {
		call.Resolve(c.snapshot())
	})
	if err != nil {
		return Snapshot{}, err
	}
	return v.(Snapshot), nil
}

// Subscribe registers the host listener, superseding any previous one
func (c *Controller) Subscribe(l router.Listener) router.Subscription {
	return c.router.Subscribe(l)
}

// Unsubscribe removes the host listener registered under sub
func (c *Controller) Unsubscribe(sub router.Subscription) bool {
	return c.router.Unsubscribe(sub)
}

// Shutdown closes any live session and stops the actor. Operations issued
// afterwards fail with types.ErrClosed.
func (c *Controller) Shutdown(ctx context.Context) error {
	err := c.Close(ctx)
	c.exec.Close()
	return err
}

// run routes an operation through the gateway onto the actor goroutine
func (c *Controller) run(ctx context.Context, kind gateway.Kind, fn func(*gateway.Call)) (any, error) {
	return c.gateway.Invoke(ctx, kind, func(call *gateway.Call) {
		posted := c.exec.Post(func() {
			if call.Completed() {
				return
			}
			defer func() {
				if r := recover(); r != nil {
					c.logger.Error("Operation panicked",
						zap.String("kind", string(kind)),
						zap.Any("panic", r))
					call.Reject(types.NewOperationFailed("%s: %v", kind, r))
				}
			}()
			fn(call)
		})
		if !posted {
			call.Reject(fmt.Errorf("%w: controller stopped", types.ErrClosed))
		}
	})
}
