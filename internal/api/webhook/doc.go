/*
Package webhook forwards session events to a host-supplied HTTP endpoint.

Events are queued without blocking the router's delivery goroutine and
POSTed in order by a single worker. Transient failures are retried by the
HTTP client; a run of failed deliveries opens a circuit breaker so a dead
endpoint costs one rejected call per event instead of a full retry cycle.
Events that arrive while the queue is full are dropped.

	POST <url>
	Content-Type: application/json
	X-Confbridge-Event: connected

	{"type":"event","event":{"type":"connected","generation":1,...}}
*/
package webhook
