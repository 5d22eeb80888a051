// Package metric provides Prometheus metrics for snakeview.
//
// This package implements metrics collection and exposition:
//
//   - prometheus.go: registry of push-style metrics and the HTTP handler
//   - collector.go: pull-style collector over the shared region's control block
//
// Metrics include:
//
//   - Poll, snapshot, timeout and violation counters of the live channel
//   - Connection and iteration gauges
//   - Replay clock and seek latency
//   - Relayed and dropped frames per sink
//
// Metrics are exposed at /metrics in Prometheus format when enabled.
package metric
