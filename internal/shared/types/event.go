package types

import "time"

// EventType identifies a host notification
type EventType string

const (
	EventInit         EventType = "init"
	EventConnected    EventType = "connected"
	EventDisconnected EventType = "disconnected"
	EventFailed       EventType = "failed"
	EventParticipant  EventType = "participant"
)

// ParticipantAction describes a membership change
type ParticipantAction string

const (
	ParticipantJoined ParticipantAction = "joined"
	ParticipantLeft   ParticipantAction = "left"
)

// Event is a single notification delivered to the host listener.
// Only the fields relevant to Type are populated.
type Event struct {
	Type       EventType         `json:"type"`
	Status     *bool             `json:"status,omitempty"`
	Reason     string            `json:"reason,omitempty"`
	Action     ParticipantAction `json:"action,omitempty"`
	Name       string            `json:"name,omitempty"`
	Generation uint64            `json:"generation"`
	Timestamp  time.Time         `json:"timestamp"`
}

// NewInitEvent reports the outcome of opening a session
func NewInitEvent(generation uint64, ok bool) Event {
	return Event{Type: EventInit, Status: &ok, Generation: generation, Timestamp: time.Now()}
}

// NewConnectedEvent reports a successful room connection
func NewConnectedEvent(generation uint64) Event {
	return Event{Type: EventConnected, Generation: generation, Timestamp: time.Now()}
}

// NewDisconnectedEvent reports the end of a room connection
func NewDisconnectedEvent(generation uint64, reason string) Event {
	return Event{Type: EventDisconnected, Reason: reason, Generation: generation, Timestamp: time.Now()}
}

// NewFailedEvent reports a failed connection attempt
func NewFailedEvent(generation uint64, reason string) Event {
	return Event{Type: EventFailed, Reason: reason, Generation: generation, Timestamp: time.Now()}
}

// NewParticipantEvent reports a membership change
func NewParticipantEvent(generation uint64, action ParticipantAction, name string) Event {
	return Event{Type: EventParticipant, Action: action, Name: name, Generation: generation, Timestamp: time.Now()}
}
