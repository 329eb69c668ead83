package session

import (
	"context"
	"sort"

	"github.com/GriffinCanCode/confbridge/internal/domain/engine"
	"github.com/GriffinCanCode/confbridge/internal/domain/gateway"
	"github.com/GriffinCanCode/confbridge/internal/infrastructure/logging"
	"github.com/GriffinCanCode/confbridge/internal/shared/types"
)

// session is the single live conferencing attempt. Only the actor
// goroutine touches it.
type session struct {
	id         string
	generation uint64
	params     types.ConnectionParams
	state      types.SessionState

	ctx    context.Context
	cancel context.CancelFunc

	surface   types.Surface
	attached  bool
	connector engine.Connector

	participants map[string]types.Participant

	cameraPrivate     bool
	microphonePrivate bool
	devicesReleased   bool
	mode              engine.Mode

	openCall *gateway.Call
	logger   *logging.Logger
}

func (s *session) clearParticipants() {
	for k := range s.participants {
		delete(s.participants, k)
	}
}

func (s *session) roster() []types.Participant {
	out := make([]types.Participant, 0, len(s.participants))
	for _, p := range s.participants {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Snapshot is a point-in-time view of the controller
type Snapshot struct {
	SessionID         string                  `json:"sessionId,omitempty"`
	State             types.SessionState      `json:"state"`
	Generation        uint64                  `json:"generation"`
	Params            *types.ConnectionParams `json:"params,omitempty"`
	Surface           *types.Surface          `json:"surface,omitempty"`
	Participants      []types.Participant     `json:"participants"`
	CameraPrivate     bool                    `json:"cameraPrivate"`
	MicrophonePrivate bool                    `json:"microphonePrivate"`
	Mode              engine.Mode             `json:"mode,omitempty"`
	Engine            types.EngineState       `json:"engine"`
	Calls             gateway.Stats           `json:"calls"`
}

func (c *Controller) snapshot() Snapshot {
	snap := Snapshot{
		State:        types.StateClosed,
		Generation:   c.generation,
		Participants: []types.Participant{},
		Engine:       c.lifecycle.State(),
		Calls:        c.gateway.Stats(),
	}
	s := c.sess
	if s == nil {
		return snap
	}

	params := s.params
	snap.SessionID = s.id
	snap.State = s.state
	snap.Params = &params
	snap.Participants = s.roster()
	snap.CameraPrivate = s.cameraPrivate
	snap.MicrophonePrivate = s.microphonePrivate
	snap.Mode = s.mode
	if s.attached {
		surface := s.surface
		snap.Surface = &surface
	}
	return snap
}
