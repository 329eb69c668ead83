package webhook

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/confbridge/internal/infrastructure/logging"
	"github.com/GriffinCanCode/confbridge/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/confbridge/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/confbridge/internal/shared/types"
)

// EventHeader carries the event type so receivers can route without parsing
const EventHeader = "X-Confbridge-Event"

// Config controls delivery
type Config struct {
	URL              string
	Timeout          time.Duration
	Retries          int
	RetryWait        time.Duration
	QueueSize        int
	FailureThreshold int
	Cooldown         time.Duration
}

// DefaultConfig returns production delivery settings for url
func DefaultConfig(url string) Config {
	return Config{
		URL:              url,
		Timeout:          5 * time.Second,
		Retries:          2,
		RetryWait:        500 * time.Millisecond,
		QueueSize:        256,
		FailureThreshold: 5,
		Cooldown:         30 * time.Second,
	}
}

// Message is the body of every POST
type Message struct {
	Type  string      `json:"type"`
	Event types.Event `json:"event"`
}

// Stats reports delivery counters
type Stats struct {
	Delivered uint64 `json:"delivered"`
	Failed    uint64 `json:"failed"`
	Rejected  uint64 `json:"rejected"`
	Dropped   uint64 `json:"dropped"`
}

// Notifier posts events to a webhook endpoint
type Notifier struct {
	cfg     Config
	client  *resty.Client
	breaker *resilience.Breaker
	logger  *logging.Logger
	metrics *monitoring.Metrics

	queue  chan types.Event
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool

	delivered atomic.Uint64
	failed    atomic.Uint64
	rejected  atomic.Uint64
	dropped   atomic.Uint64
}

// New creates a notifier and starts its worker
func New(cfg Config, logger *logging.Logger, metrics *monitoring.Metrics) (*Notifier, error) {
	if cfg.URL == "" {
		return nil, errors.New("webhook url is required")
	}
	defaults := DefaultConfig(cfg.URL)
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}
	if cfg.RetryWait <= 0 {
		cfg.RetryWait = defaults.RetryWait
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaults.QueueSize
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logger.Named("webhook")

	// Pooled transport and retry policy from retryablehttp, request plumbing from resty
	retryClient := retryablehttp.NewClient()
	retryClient.Logger = nil

	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.Retries).
		SetRetryWaitTime(cfg.RetryWait).
		SetRetryMaxWaitTime(4*cfg.RetryWait).
		SetJSONMarshaler(sonic.Marshal).
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", "confbridge-webhook/1.0").
		SetTransport(retryClient.HTTPClient.Transport).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			ctx := context.Background()
			var raw *http.Response
			if r != nil {
				raw = r.RawResponse
				if r.Request != nil {
					ctx = r.Request.Context()
				}
			}
			retry, _ := retryablehttp.DefaultRetryPolicy(ctx, raw, err)
			return retry
		})

	n := &Notifier{
		cfg:     cfg,
		client:  client,
		logger:  logger,
		metrics: metrics,
		queue:   make(chan types.Event, cfg.QueueSize),
	}
	n.breaker = resilience.New("webhook", resilience.Settings{
		FailureThreshold: cfg.FailureThreshold,
		Cooldown:         cfg.Cooldown,
		OnStateChange: func(name string, from, to resilience.State) {
			logger.Warn("Webhook circuit changed",
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			if metrics != nil {
				metrics.SetWebhookBreaker(to.String())
			}
		},
	})
	if metrics != nil {
		metrics.SetWebhookBreaker(resilience.StateClosed.String())
	}

	n.ctx, n.cancel = context.WithCancel(context.Background())
	n.wg.Add(1)
	go n.run()

	logger.Info("Webhook notifier started", zap.String("url", cfg.URL))
	return n, nil
}

// Publish queues ev without blocking. Safe for concurrent use.
func (n *Notifier) Publish(ev types.Event) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	if n.closed {
		return
	}
	select {
	case n.queue <- ev:
	default:
		n.dropped.Add(1)
		n.record("dropped")
		n.logger.Warn("Webhook queue full, event dropped", zap.String("event", string(ev.Type)))
	}
}

// Close stops accepting events and waits for the worker. Queued events are
// still attempted until ctx expires.
func (n *Notifier) Close(ctx context.Context) {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return
	}
	n.closed = true
	close(n.queue)
	n.mu.Unlock()

	done := make(chan struct{})
	go func() {
		n.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		n.cancel()
		<-done
	}
	n.cancel()
}

// Stats returns the delivery counters
func (n *Notifier) Stats() Stats {
	return Stats{
		Delivered: n.delivered.Load(),
		Failed:    n.failed.Load(),
		Rejected:  n.rejected.Load(),
		Dropped:   n.dropped.Load(),
	}
}

// Breaker exposes the delivery circuit state
func (n *Notifier) Breaker() resilience.State {
	return n.breaker.State()
}

func (n *Notifier) run() {
	defer n.wg.Done()
	for ev := range n.queue {
		n.deliver(ev)
	}
}

func (n *Notifier) deliver(ev types.Event) {
	err := n.breaker.Do(func() error {
		return n.post(ev)
	})

	switch {
	case err == nil:
		n.delivered.Add(1)
		n.record("ok")
	case errors.Is(err, resilience.ErrCircuitOpen), errors.Is(err, resilience.ErrProbeInFlight):
		n.rejected.Add(1)
		n.record("rejected")
		n.logger.Debug("Webhook circuit open, event skipped", zap.String("event", string(ev.Type)))
	default:
		n.failed.Add(1)
		n.record("error")
		n.logger.Warn("Webhook delivery failed", zap.String("event", string(ev.Type)), zap.Error(err))
	}
}

func (n *Notifier) post(ev types.Event) error {
	resp, err := n.client.R().
		SetContext(n.ctx).
		SetHeader(EventHeader, string(ev.Type)).
		SetBody(Message{Type: "event", Event: ev}).
		Post(n.cfg.URL)
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("webhook responded %d", resp.StatusCode())
	}
	return nil
}

func (n *Notifier) record(result string) {
	if n.metrics != nil {
		n.metrics.RecordWebhookDelivery(result)
	}
}
