package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/GriffinCanCode/confbridge/internal/infrastructure/monitoring"
)

// MetricsHandlers serves collected metrics
type MetricsHandlers struct {
	metrics    *monitoring.Metrics
	prometheus http.Handler
}

// NewMetricsHandlers creates handlers exposing metrics gathered from g
func NewMetricsHandlers(metrics *monitoring.Metrics, g prometheus.Gatherer) *MetricsHandlers {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	return &MetricsHandlers{
		metrics:    metrics,
		prometheus: promhttp.HandlerFor(g, promhttp.HandlerOpts{}),
	}
}

// Register mounts the metrics routes on r
func (m *MetricsHandlers) Register(r gin.IRouter) {
	r.GET("/metrics", m.Prometheus)
	r.GET("/metrics/json", m.JSON)
}

// Prometheus serves the text exposition format
func (m *MetricsHandlers) Prometheus(c *gin.Context) {
	m.metrics.UpdateUptime()
	m.prometheus.ServeHTTP(c.Writer, c.Request)
}

// MetricsSnapshot is the JSON metrics summary
type MetricsSnapshot struct {
	Timestamp time.Time           `json:"timestamp"`
	Backend   monitoring.Snapshot `json:"backend"`
}

// JSON serves a compact summary for dashboards
func (m *MetricsHandlers) JSON(c *gin.Context) {
	c.JSON(http.StatusOK, MetricsSnapshot{
		Timestamp: time.Now(),
		Backend:   m.metrics.GetSnapshot(),
	})
}
