// Package types provides shared data structures for the conference bridge.
//
// This package defines the value types exchanged between the host bridge,
// the session controller and the engine adapter, plus the error taxonomy
// every layer agrees on.
//
// Core Types:
//   - ConnectionParams: Room coordinates captured when a session is opened
//   - SessionState: Controller lifecycle enum (closed, opening, ...)
//   - EngineState: One-time runtime bring-up enum
//   - Participant: Remote or local member of the room
//   - Surface: The single shared presentation surface
//   - Event: Notification delivered to the host listener
//
// Errors:
//   - Sentinels (ErrAlreadyOpen, ErrInvalidState, ...) for precondition failures
//   - OperationFailedError for engine refusals carrying a reason
//
// Example Usage:
//
//	params := types.ConnectionParams{
//	    Portal:          "portal.example.com",
//	    RoomKey:         "abc123",
//	    Name:            "Guest",
//	    MaxParticipants: 4,
//	}
//	if err := params.Validate(); err != nil {
//	    return err
//	}
package types
