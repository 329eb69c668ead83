package types

import (
	"fmt"
	"strings"
)

// SessionState represents the controller lifecycle states
type SessionState string

const (
	StateClosed        SessionState = "closed"
	StateOpening       SessionState = "opening"
	StateInitialized   SessionState = "initialized"
	StateConnecting    SessionState = "connecting"
	StateConnected     SessionState = "connected"
	StateDisconnecting SessionState = "disconnecting"
	StateFailed        SessionState = "failed"
)

// InCall reports whether the engine holds (or is acquiring) a room connection
func (s SessionState) InCall() bool {
	return s == StateConnecting || s == StateConnected || s == StateDisconnecting
}

// EngineState represents the process-wide runtime bring-up state
type EngineState string

const (
	EngineUninitialized EngineState = "uninitialized"
	EngineInitializing  EngineState = "initializing"
	EngineReady         EngineState = "ready"
	EngineFailed        EngineState = "failed"
)

// Device identifies a local capture device that supports privacy
type Device string

const (
	DeviceCamera     Device = "camera"
	DeviceMicrophone Device = "microphone"
)

// ParseDevice validates a device name coming from the host
func ParseDevice(s string) (Device, error) {
	switch Device(strings.ToLower(strings.TrimSpace(s))) {
	case DeviceCamera:
		return DeviceCamera, nil
	case DeviceMicrophone:
		return DeviceMicrophone, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownDevice, s)
	}
}

// DefaultMaxParticipants applies when the host leaves maxParticipants unset
const DefaultMaxParticipants = 4

// ConnectionParams holds the room coordinates captured at open time
type ConnectionParams struct {
	Portal          string `json:"portal" yaml:"portal" toml:"portal"`
	RoomKey         string `json:"roomKey" yaml:"roomKey" toml:"roomKey"`
	Pin             string `json:"pin" yaml:"pin" toml:"pin"`
	Name            string `json:"name" yaml:"name" toml:"name"`
	MaxParticipants int    `json:"maxParticipants" yaml:"maxParticipants" toml:"maxParticipants"`
	LogLevel        string `json:"logLevel" yaml:"logLevel" toml:"logLevel"`
	Debug           bool   `json:"debug" yaml:"debug" toml:"debug"`
}

// Validate checks the fields the engine cannot work without
func (p ConnectionParams) Validate() error {
	switch {
	case strings.TrimSpace(p.Portal) == "":
		return fmt.Errorf("%w: portal is required", ErrInvalidParams)
	case strings.TrimSpace(p.RoomKey) == "":
		return fmt.Errorf("%w: roomKey is required", ErrInvalidParams)
	case strings.TrimSpace(p.Name) == "":
		return fmt.Errorf("%w: name is required", ErrInvalidParams)
	case p.MaxParticipants < 1:
		return fmt.Errorf("%w: maxParticipants must be at least 1, got %d", ErrInvalidParams, p.MaxParticipants)
	}
	return nil
}

// Participant represents a member of the conference room
type Participant struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Local bool   `json:"local,omitempty"`
}

// Surface represents the shared presentation surface and its geometry
type Surface struct {
	ID     string `json:"id"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}
