// Package ws streams conference events to host clients over WebSocket.
//
// The Hub is the router's single listener. Each event is encoded once and
// fanned out to every connected client through a buffered send queue;
// clients that cannot keep up are disconnected rather than allowed to stall
// delivery.
//
// Message types (server → client):
//   - hello: sent on connect with the client id
//   - event: a conference event (init, connected, disconnected, failed,
//     participant)
//
// Message types (client → server):
//   - ping: answered with pong
package ws
