/*
Package resilience guards outbound deliveries with a circuit breaker.

The breaker trips after a run of consecutive failures, rejects calls for a
cooldown period, then lets a single probe through. A successful probe closes
the circuit again; a failed one reopens it.

	Closed --[threshold failures]-> Open --[cooldown]-> HalfOpen --[success]-> Closed
	                                  ^                    |
	                                  +-----[failure]------+

# Usage

	breaker := resilience.New("webhook", resilience.Settings{
		FailureThreshold: 5,
		Cooldown:         30 * time.Second,
		OnStateChange: func(name string, from, to resilience.State) {
			metrics.SetWebhookBreaker(to.String())
		},
	})

	err := breaker.Do(func() error {
		return post(ctx, payload)
	})
*/
package resilience
