package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/GriffinCanCode/confbridge/internal/shared/types"
)

// Mode mirrors the host application's foreground/background state
type Mode string

const (
	ModeForeground Mode = "foreground"
	ModeBackground Mode = "background"
)

// ParseMode validates a mode name coming from the host
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeForeground:
		return ModeForeground, nil
	case ModeBackground:
		return ModeBackground, nil
	default:
		return "", fmt.Errorf("%w: unknown mode %q", types.ErrInvalidParams, s)
	}
}

// ConnectorOptions configures a connector at creation
type ConnectorOptions struct {
	MaxParticipants int
	// LogFilter is the engine specific verbosity filter, e.g.
	// "info@VidyoClient info@VidyoConnector info warning".
	LogFilter string
	// Debug registers a log listener so engine log records reach Callbacks.OnLog.
	Debug bool
	// ReportLocalParticipant makes the engine announce the local user on join.
	ReportLocalParticipant bool
}

// LogRecord is a single engine log line
type LogRecord struct {
	Level    string
	Category string
	Message  string
	Time     time.Time
}

// Callbacks receives asynchronous engine notifications. Implementations
// must return promptly.
type Callbacks interface {
	OnConnectSuccess()
	OnConnectFailure(reason string)
	OnDisconnected(reason string)
	OnParticipantJoined(p types.Participant)
	OnParticipantLeft(p types.Participant)
	OnLog(rec LogRecord)
}

// Connector is an engine handle bound to one presentation surface
type Connector interface {
	// ConnectToRoomAsGuest starts joining a room. A nil error means the
	// request was accepted; the outcome arrives through Callbacks.
	ConnectToRoomAsGuest(portal, displayName, roomKey, pin string) error
	// Disconnect starts leaving the room; Callbacks.OnDisconnected follows.
	Disconnect() error

	SetCameraPrivacy(private bool)
	SetMicrophonePrivacy(private bool)
	CycleCamera()

	SetMode(mode Mode)
	SelectDefaultDevices()
	ReleaseDevices()

	ShowViewAt(surface types.Surface, x, y, width, height int)
	HideView(surface types.Surface)

	// Disable releases the connector. No other method may be called after.
	Disable()
}

// Runtime is the engine SDK entry point
type Runtime interface {
	// Initialize performs the one-time native runtime bring-up.
	Initialize() error
	// NewConnector creates an engine handle rendering into surface.
	NewConnector(surface types.Surface, opts ConnectorOptions, cb Callbacks) (Connector, error)
}
