/*
Package monitoring provides Prometheus metrics for the conference bridge.

# Overview

Metrics cover the host bridge HTTP surface, host operations and their
terminal outcomes, router traffic (published, delivered, dropped), the
session state machine and the websocket event stream.

# Usage

	reg := prometheus.NewRegistry()
	metrics := monitoring.NewMetrics(reg)

	router.Use(monitoring.Middleware(metrics))

	timer := monitoring.NewTimer(metrics, "connect")
	// ... perform operation ...
	timer.Stop("ok")

Every collector is registered on the Registerer passed to NewMetrics, so
tests can build as many collectors as they like on private registries.

# Metrics Endpoint

	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
*/
package monitoring
