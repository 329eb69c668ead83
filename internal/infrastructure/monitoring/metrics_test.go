package monitoring

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestSetSessionStateIsExclusive(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.SetSessionState("connected")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.SessionState.WithLabelValues("connected")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.SessionState.WithLabelValues("closed")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.SessionState.WithLabelValues("initialized")))
}

func TestRecordOperationUpdatesSnapshot(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordOperation("open", "ok", time.Millisecond)
	m.RecordOperation("connect", "invalid_state", time.Millisecond)

	snap := m.GetSnapshot()
	assert.Equal(t, int64(2), snap.OperationsTotal)
	assert.Equal(t, int64(1), snap.OperationErrors)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OperationsTotal.WithLabelValues("connect", "invalid_state")))
}

func TestEventCounters(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordEventPublished("init")
	m.RecordEventPublished("connected")
	m.RecordEventDropped("connected")
	m.RecordStaleCallback("connect_success")

	snap := m.GetSnapshot()
	assert.Equal(t, int64(2), snap.EventsPublished)
	assert.Equal(t, int64(1), snap.EventsDropped)
	assert.Equal(t, int64(1), snap.StaleCallbacks)
}

func TestSeparateRegistriesDoNotCollide(t *testing.T) {
	assert.NotPanics(t, func() {
		NewMetrics(prometheus.NewRegistry())
		NewMetrics(prometheus.NewRegistry())
	})
}

func TestTimerWithoutMetrics(t *testing.T) {
	assert.NotPanics(t, func() {
		NewTimer(nil, "close").Stop("ok")
	})
}

func TestWebhookMetrics(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.SetWebhookBreaker("open")
	m.RecordWebhookDelivery("ok")
	m.RecordWebhookDelivery("ok")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.WebhookBreaker.WithLabelValues("open")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.WebhookBreaker.WithLabelValues("closed")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.WebhookDeliveries.WithLabelValues("ok")))
}
