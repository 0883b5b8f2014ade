// Package metrics provides Prometheus metrics for monitoring.
//
// Key metrics:
//   - Feed connection state and message routing counts
//   - Story and quote writer throughput
//   - Buffer utilization
//   - Database connection pool stats
//
// Instruments are set from periodic stats snapshots rather than inline from
// hot paths, so the feed read loop never touches a metric.
package metrics
