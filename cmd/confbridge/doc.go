// Command confbridge runs the conference session bridge.
//
// It exposes the session controller to host applications over HTTP and
// streams engine events over WebSocket, or runs a scripted demo call
// against the engine simulator.
//
// Usage:
//
//	# Serve the host bridge (configuration from the environment)
//	confbridge serve --port 8000
//
//	# Development mode (coloured logs, debug level)
//	confbridge serve --dev
//
//	# Scripted call against the simulator
//	confbridge demo --profile room.yaml --roster Alice,Bob
//
// Signals:
//   - SIGINT, SIGTERM: graceful shutdown, closing any live session
package main
