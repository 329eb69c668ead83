package session

import (
	"go.uber.org/zap"

	"github.com/GriffinCanCode/confbridge/internal/domain/engine"
	"github.com/GriffinCanCode/confbridge/internal/infrastructure/logging"
	"github.com/GriffinCanCode/confbridge/internal/shared/types"
)

// callbacks adapts engine notifications for one generation. Methods run on
// engine goroutines and only post to the actor; they never block.
type callbacks struct {
	c          *Controller
	generation uint64
	debug      bool
	logger     *logging.Logger
}

var _ engine.Callbacks = (*callbacks)(nil)

func (cb *callbacks) post(name string, fn func(*Controller, *session)) {
	c := cb.c
	c.exec.Post(func() {
		s := c.live(cb.generation)
		if s == nil {
			c.stale(name, cb.generation)
			return
		}
		fn(c, s)
	})
}

func (cb *callbacks) OnConnectSuccess() {
	cb.post("connect_success", (*Controller).onConnected)
}

func (cb *callbacks) OnConnectFailure(reason string) {
	cb.post("connect_failure", func(c *Controller, s *session) { c.onConnectFailure(s, reason) })
}

func (cb *callbacks) OnDisconnected(reason string) {
	cb.post("disconnected", func(c *Controller, s *session) { c.onDisconnected(s, reason) })
}

func (cb *callbacks) OnParticipantJoined(p types.Participant) {
	cb.post("participant_joined", func(c *Controller, s *session) { c.onParticipant(s, p, types.ParticipantJoined) })
}

func (cb *callbacks) OnParticipantLeft(p types.Participant) {
	cb.post("participant_left", func(c *Controller, s *session) { c.onParticipant(s, p, types.ParticipantLeft) })
}

// OnLog writes engine log records straight to the logger; nothing changes
// state so there is no need to go through the actor.
func (cb *callbacks) OnLog(rec engine.LogRecord) {
	if !cb.debug {
		return
	}
	cb.logger.Debug(rec.Message,
		zap.String("engine_level", rec.Level),
		zap.String("category", rec.Category),
		zap.Time("engine_time", rec.Time))
}

func (c *Controller) onConnected(s *session) {
	if s.state != types.StateConnecting {
		s.logger.Debug("Ignoring connect success", zap.String("state", string(s.state)))
		return
	}
	c.setState(s, types.StateConnected)
	c.router.Publish(types.NewConnectedEvent(s.generation))
	s.logger.Info("Connected to room")
}

func (c *Controller) onConnectFailure(s *session, reason string) {
	if s.state != types.StateConnecting {
		s.logger.Debug("Ignoring connect failure",
			zap.String("state", string(s.state)),
			zap.String("reason", reason))
		return
	}
	c.setState(s, types.StateFailed)
	c.resetParticipants(s)
	c.router.Publish(types.NewFailedEvent(s.generation, reason))
	s.logger.Warn("Connection failed", zap.String("reason", reason))
}

func (c *Controller) onDisconnected(s *session, reason string) {
	switch s.state {
	case types.StateConnected, types.StateConnecting:
		// Engine initiated; pass through Disconnecting like a host request.
		c.setState(s, types.StateDisconnecting)
	case types.StateDisconnecting:
	default:
		s.logger.Debug("Ignoring disconnect",
			zap.String("state", string(s.state)),
			zap.String("reason", reason))
		return
	}
	c.setState(s, types.StateInitialized)
	c.resetParticipants(s)
	c.router.Publish(types.NewDisconnectedEvent(s.generation, reason))
	s.logger.Info("Disconnected from room", zap.String("reason", reason))
}

func (c *Controller) onParticipant(s *session, p types.Participant, action types.ParticipantAction) {
	if s.state != types.StateConnected {
		s.logger.Debug("Ignoring participant change",
			zap.String("state", string(s.state)),
			zap.String("action", string(action)))
		return
	}

	key := p.ID
	if key == "" {
		key = p.Name
	}
	switch action {
	case types.ParticipantJoined:
		s.participants[key] = p
	case types.ParticipantLeft:
		delete(s.participants, key)
	}
	if c.metrics != nil {
		c.metrics.SetParticipants(len(s.participants))
	}
	c.router.Publish(types.NewParticipantEvent(s.generation, action, p.Name))
}

func (c *Controller) onGeometry(generation uint64, surface types.Surface) {
	s := c.live(generation)
	if s == nil {
		c.stale("geometry", generation)
		return
	}
	if !s.attached || s.surface.ID != surface.ID {
		return
	}
	s.surface = surface
	if s.connector != nil {
		s.connector.ShowViewAt(surface, 0, 0, surface.Width, surface.Height)
	}
}

func (c *Controller) resetParticipants(s *session) {
	s.clearParticipants()
	if c.metrics != nil {
		c.metrics.SetParticipants(0)
	}
}
