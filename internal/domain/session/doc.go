// Package session drives a single conference session on behalf of the host.
//
// The Controller owns all session state and mutates it on one actor
// goroutine. Host operations enter through the gateway, engine callbacks
// are posted back onto the actor, and events leave through the router.
//
// Lifecycle:
//
//	Closed -> Opening -> Initialized -> Connecting -> Connected
//	                         ^              |             |
//	                         |            Failed     Disconnecting
//	                         +--------------+-------------+
//
// Any state returns to Closed on Close. Closing bumps the generation, and a
// callback carrying an older generation is logged and ignored.
//
// Example Usage:
//
//	ctrl, err := session.NewController(session.Deps{
//	    Router:      router.New(logger),
//	    Lifecycle:   engine.NewLifecycle(runtime),
//	    Permissions: permission.NewGate(prompter, logger),
//	}, session.DefaultConfig())
//	ctrl.Subscribe(func(ev types.Event) { ... })
//	err = ctrl.Open(ctx, params)
//	err = ctrl.Connect(ctx)
package session
