package session

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/confbridge/internal/domain/engine"
	"github.com/GriffinCanCode/confbridge/internal/domain/gateway"
	"github.com/GriffinCanCode/confbridge/internal/shared/types"
)

// Everything in this file runs on the actor goroutine.

func (c *Controller) open(call *gateway.Call, params types.ConnectionParams) {
	if err := params.Validate(); err != nil {
		call.Reject(err)
		return
	}
	if s := c.sess; s != nil {
		call.Reject(fmt.Errorf("%w: session %s is %s", types.ErrAlreadyOpen, s.id, s.state))
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &session{
		id:           uuid.NewString(),
		generation:   c.generation,
		params:       params,
		ctx:          ctx,
		cancel:       cancel,
		participants: make(map[string]types.Participant),
		mode:         engine.ModeForeground,
		openCall:     call,
	}
	s.logger = c.logger.ForSession(s.id, s.generation)
	c.sess = s
	call.Bind(s.generation)
	c.setState(s, types.StateOpening)

	if c.metrics != nil {
		c.metrics.IncSessionsOpened()
		c.metrics.SetGeneration(s.generation)
	}
	s.logger.Info("Opening conference",
		zap.String("portal", params.Portal),
		zap.Int("max_participants", params.MaxParticipants),
		zap.Bool("debug", params.Debug))

	go c.prepare(s)
}

// prepare runs the blocking permission and engine steps off the actor.
// The engine is never touched when permission is refused.
// A caller that stops waiting for the open call abandons the attempt.
func (c *Controller) prepare(s *session) {
	ctx, stop := context.WithCancel(s.ctx)
	defer stop()
	go func() {
		select {
		case <-s.openCall.Done():
			stop()
		case <-ctx.Done():
		}
	}()

	err := c.permissions.Ensure(ctx, c.cfg.Capabilities...)
	if err == nil {
		err = c.lifecycle.EnsureReady(ctx)
	}
	if !c.exec.Post(func() { c.finishOpen(s, err) }) {
		s.openCall.Reject(fmt.Errorf("%w: controller stopped", types.ErrClosed))
	}
}

func (c *Controller) finishOpen(s *session, err error) {
	if c.sess != s || s.state != types.StateOpening {
		// Closed while preparing; Close already completed the call.
		c.stale("open_result", s.generation)
		c.gateway.Settle(s.openCall, c.generation, nil, err)
		return
	}
	if err == nil && s.openCall.Completed() {
		if _, err = s.openCall.Result(); err == nil {
			err = context.Canceled
		}
		err = fmt.Errorf("open abandoned by caller: %w", err)
	}
	if err != nil {
		c.abortOpen(s, err)
		return
	}

	generation := s.generation
	surface, err := c.views.Attach(func(surface types.Surface) {
		c.exec.Post(func() { c.onGeometry(generation, surface) })
	})
	if err != nil {
		c.abortOpen(s, err)
		return
	}
	s.surface = surface
	s.attached = true

	opts := engine.ConnectorOptions{
		MaxParticipants:        s.params.MaxParticipants,
		LogFilter:              c.logFilter(s.params),
		Debug:                  s.params.Debug,
		ReportLocalParticipant: true,
	}
	cb := &callbacks{c: c, generation: generation, debug: s.params.Debug, logger: s.logger.Named("engine")}
	connector, err := c.lifecycle.Runtime().NewConnector(surface, opts, cb)
	if err != nil {
		c.abortOpen(s, fmt.Errorf("%w: create connector: %v", types.ErrEngineInitFailed, err))
		return
	}
	s.connector = connector
	connector.ShowViewAt(surface, 0, 0, surface.Width, surface.Height)

	c.setState(s, types.StateInitialized)
	c.router.Publish(types.NewInitEvent(generation, true))
	c.gateway.Settle(s.openCall, c.generation, nil, nil)
	s.logger.Info("Conference opened", zap.String("surface_id", surface.ID))
}

// abortOpen returns to Closed without retaining anything from the attempt
func (c *Controller) abortOpen(s *session, err error) {
	s.logger.Warn("Conference open failed", zap.Error(err))

	c.teardown(s)
	c.router.Publish(types.NewInitEvent(s.generation, false))
	s.openCall.Reject(err)
}

func (c *Controller) logFilter(p types.ConnectionParams) string {
	if !p.Debug {
		return c.cfg.ReleaseLogFilter
	}
	if p.LogLevel != "" {
		return p.LogLevel
	}
	return c.cfg.DebugLogFilter
}

func (c *Controller) connect(call *gateway.Call) {
	s := c.sess
	if s == nil {
		call.Reject(fmt.Errorf("%w: connect with no session", types.ErrInvalidState))
		return
	}
	if s.state != types.StateInitialized && s.state != types.StateFailed {
		call.Reject(fmt.Errorf("%w: connect while %s", types.ErrInvalidState, s.state))
		return
	}

	prev := s.state
	c.setState(s, types.StateConnecting)
	p := s.params
	if err := s.connector.ConnectToRoomAsGuest(p.Portal, p.Name, p.RoomKey, p.Pin); err != nil {
		c.setState(s, prev)
		call.Reject(types.NewOperationFailed("connect: %v", err))
		return
	}
	call.Resolve(nil)
}

func (c *Controller) disconnect(call *gateway.Call) {
	s := c.sess
	if s == nil {
		call.Reject(fmt.Errorf("%w: disconnect with no session", types.ErrInvalidState))
		return
	}
	if s.state != types.StateConnected && s.state != types.StateConnecting {
		call.Reject(fmt.Errorf("%w: disconnect while %s", types.ErrInvalidState, s.state))
		return
	}

	prev := s.state
	c.setState(s, types.StateDisconnecting)
	if err := s.connector.Disconnect(); err != nil {
		c.setState(s, prev)
		call.Reject(types.NewOperationFailed("disconnect: %v", err))
		return
	}
	call.Resolve(nil)
}

func (c *Controller) setPrivacy(call *gateway.Call, device types.Device, private bool) {
	if device != types.DeviceCamera && device != types.DeviceMicrophone {
		call.Reject(fmt.Errorf("%w: %q", types.ErrUnknownDevice, device))
		return
	}
	s, ok := c.withConnector(call)
	if !ok {
		return
	}

	switch device {
	case types.DeviceCamera:
		s.connector.SetCameraPrivacy(private)
		s.cameraPrivate = private
	case types.DeviceMicrophone:
		s.connector.SetMicrophonePrivacy(private)
		s.microphonePrivate = private
	}
	s.logger.Debug("Privacy changed", zap.String("device", string(device)), zap.Bool("private", private))
	call.Resolve(nil)
}

func (c *Controller) cycleCamera(call *gateway.Call) {
	s, ok := c.withConnector(call)
	if !ok {
		return
	}
	s.connector.CycleCamera()
	call.Resolve(nil)
}

func (c *Controller) setMode(call *gateway.Call, mode engine.Mode) {
	if mode != engine.ModeForeground && mode != engine.ModeBackground {
		call.Reject(fmt.Errorf("%w: unknown mode %q", types.ErrInvalidParams, mode))
		return
	}
	s, ok := c.withConnector(call)
	if !ok {
		return
	}

	switch mode {
	case engine.ModeBackground:
		if s.state.InCall() {
			// Keep the call alive but stop sending video.
			s.connector.SetCameraPrivacy(true)
		} else {
			s.connector.ReleaseDevices()
			s.devicesReleased = true
		}
		s.connector.SetMode(engine.ModeBackground)
	case engine.ModeForeground:
		if s.devicesReleased {
			s.connector.SelectDefaultDevices()
			s.devicesReleased = false
		}
		s.connector.SetMode(engine.ModeForeground)
		s.connector.SetCameraPrivacy(s.cameraPrivate)
	}
	s.mode = mode
	s.logger.Debug("Mode changed", zap.String("mode", string(mode)))
	call.Resolve(nil)
}

func (c *Controller) resize(call *gateway.Call, width, height int) {
	s := c.sess
	if s == nil || !s.attached {
		call.Reject(types.ErrNoActiveSession)
		return
	}
	if width <= 0 || height <= 0 {
		call.Reject(fmt.Errorf("%w: surface size %dx%d", types.ErrInvalidParams, width, height))
		return
	}
	c.views.UpdateGeometry(s.surface.ID, width, height)
	call.Resolve(nil)
}

func (c *Controller) close(call *gateway.Call) {
	s := c.sess
	if s == nil {
		call.Resolve(nil)
		return
	}

	prev := s.state
	c.teardown(s)
	cancelled := c.gateway.CancelGeneration(s.generation)
	s.logger.Info("Conference closed",
		zap.String("from", string(prev)),
		zap.Int("cancelled_calls", cancelled))
	call.Resolve(nil)
}

// teardown retires s: the generation moves on first, then the view is
// detached and the engine released.
func (c *Controller) teardown(s *session) {
	c.generation++
	c.sess = nil

	if s.attached {
		c.views.Detach()
		s.attached = false
	}
	if s.connector != nil {
		s.connector.HideView(s.surface)
		s.connector.Disable()
		s.connector = nil
	}
	s.cancel()
	s.clearParticipants()

	c.setState(s, types.StateClosed)
	if c.metrics != nil {
		c.metrics.SetGeneration(c.generation)
		c.metrics.SetParticipants(0)
	}
}

func (c *Controller) withConnector(call *gateway.Call) (*session, bool) {
	s := c.sess
	if s == nil || s.connector == nil {
		call.Reject(types.ErrNoActiveSession)
		return nil, false
	}
	return s, true
}

func (c *Controller) setState(s *session, state types.SessionState) {
	prev := s.state
	s.state = state
	if c.metrics != nil {
		c.metrics.SetSessionState(string(state))
	}
	if prev != "" {
		s.logger.Debug("State transition",
			zap.String("from", string(prev)),
			zap.String("to", string(state)))
	}
}

// live returns the session if generation is still current
func (c *Controller) live(generation uint64) *session {
	if c.sess == nil || c.sess.generation != generation {
		return nil
	}
	return c.sess
}

func (c *Controller) stale(callback string, generation uint64) {
	c.logger.Debug("Discarding stale result",
		zap.String("callback", callback),
		zap.Uint64("generation", generation),
		zap.Uint64("live_generation", c.generation))
	if c.metrics != nil {
		c.metrics.RecordStaleCallback(callback)
	}
}
