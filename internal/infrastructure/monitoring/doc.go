/*
Package monitoring provides Prometheus metrics for the sidebar server.

# Overview

Each Metrics value owns a private registry. The server exposes it at /metrics
and summarizes it in /health.

# Features

- Sidebar API request metrics (count, latency)
- FaultMaven backend call metrics (count by status, latency, circuit breaker state)
- Formatter latency and input size
- Conversation items and captures by kind
- WebSocket stream connections and messages

# Usage

	metrics := monitoring.NewMetrics()
	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	timer := monitoring.NewTimer(metrics, "/query")
	// ... call the backend ...
	timer.Stop("success")
*/
package monitoring
