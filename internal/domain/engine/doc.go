// Package engine defines the boundary to the real-time communication engine
// and the process-wide runtime bring-up gate.
//
// The engine SDK is opaque: it is reached only through Runtime and
// Connector, and it reports results through Callbacks from its own
// goroutines, possibly concurrently with calls made into it. Callbacks must
// never block the engine; the session controller converts them into
// messages for its own serialized goroutine.
//
// Lifecycle performs Runtime.Initialize exactly once. Concurrent callers of
// EnsureReady collapse into that single attempt and all observe its result;
// a failure is remembered and never retried automatically.
package engine
