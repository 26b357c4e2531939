// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package observability provides metrics and instrumentation for the dashboard.
//
// # Description
//
// This package implements Prometheus metrics for monitoring inventory
// operations. Metrics include:
//   - Refresh counters (by outcome: cached, refreshed, degraded, error)
//   - Refresh latency histograms
//   - Pull/delete operation counters (by status)
//   - Daemon reachability and installed-model gauges
//
// # Integration
//
// Metrics are exposed via the /metrics endpoint. Use with Prometheus +
// Grafana for dashboards and alerting.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal locking.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Metric Definitions
// =============================================================================

// Namespace for all metrics
const metricsNamespace = "llmdash"

// Subsystem for inventory metrics
const inventorySubsystem = "inventory"

// Metrics holds all Prometheus metrics for inventory operations.
//
// # Description
//
// Provides counters, histograms, and gauges for monitoring cache behavior
// and daemon health. Initialize once at startup via InitMetrics(), or with
// NewMetrics(registry) when an isolated registry is needed (tests).
//
// # Fields
//
//   - RefreshesTotal: Counter of snapshot reads by outcome
//   - RefreshDurationSeconds: Histogram of refresh latency
//   - PullsTotal: Counter of model pulls by status
//   - DeletesTotal: Counter of model deletions by status
//   - DaemonReachable: Gauge, 1 when the daemon answered the last heartbeat
//   - InstalledModels: Gauge of models in the current snapshot
//
// # Thread Safety
//
// All operations are thread-safe.
type Metrics struct {
	// RefreshesTotal counts snapshot reads by outcome.
	// Labels: outcome (cached, refreshed, degraded, error)
	RefreshesTotal *prometheus.CounterVec

	// RefreshDurationSeconds measures the latency of cache refreshes.
	RefreshDurationSeconds prometheus.Histogram

	// PullsTotal counts model pull operations.
	// Labels: status (success, error)
	PullsTotal *prometheus.CounterVec

	// DeletesTotal counts model delete operations.
	// Labels: status (success, error)
	DeletesTotal *prometheus.CounterVec

	// DaemonReachable is 1 when the daemon answered the last heartbeat.
	DaemonReachable prometheus.Gauge

	// InstalledModels tracks the model count in the current snapshot.
	InstalledModels prometheus.Gauge
}

// DefaultMetrics is the singleton instance of Metrics.
// Initialized by InitMetrics().
var DefaultMetrics *Metrics

// InitMetrics initializes the default metrics instance.
//
// # Description
//
// Creates and registers all Prometheus metrics on the default registry.
// Should be called once at application startup.
//
// # Outputs
//
//   - *Metrics: The initialized metrics instance.
//
// # Limitations
//
//   - Panics if called twice (duplicate registration).
func InitMetrics() *Metrics {
	DefaultMetrics = NewMetrics(prometheus.DefaultRegisterer)
	return DefaultMetrics
}

// NewMetrics creates a Metrics instance on the given registerer.
//
// # Inputs
//
//   - reg: Target registry. Tests pass prometheus.NewRegistry() to avoid
//     duplicate-registration panics across cases.
//
// # Outputs
//
//   - *Metrics: The registered metrics instance.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		RefreshesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: inventorySubsystem,
				Name:      "refreshes_total",
				Help:      "Total snapshot reads by outcome",
			},
			[]string{"outcome"},
		),

		RefreshDurationSeconds: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: inventorySubsystem,
				Name:      "refresh_duration_seconds",
				Help:      "Latency of inventory cache refreshes in seconds",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
		),

		PullsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: inventorySubsystem,
				Name:      "pulls_total",
				Help:      "Total model pull operations by status",
			},
			[]string{"status"},
		),

		DeletesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: inventorySubsystem,
				Name:      "deletes_total",
				Help:      "Total model delete operations by status",
			},
			[]string{"status"},
		),

		DaemonReachable: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: inventorySubsystem,
				Name:      "daemon_reachable",
				Help:      "1 when the Ollama daemon answered the last heartbeat, 0 otherwise",
			},
		),

		InstalledModels: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: inventorySubsystem,
				Name:      "installed_models",
				Help:      "Number of models in the current inventory snapshot",
			},
		),
	}
}

// =============================================================================
// Outcome Labels
// =============================================================================

// Outcome categorizes a snapshot read for metrics labeling.
type Outcome string

const (
	// OutcomeCached means the read was served from a fresh snapshot.
	OutcomeCached Outcome = "cached"

	// OutcomeRefreshed means a new snapshot was fetched from the daemon.
	OutcomeRefreshed Outcome = "refreshed"

	// OutcomeDegraded means a refresh produced a snapshot without
	// daemon data (daemon unreachable).
	OutcomeDegraded Outcome = "degraded"

	// OutcomeError means the refresh failed outright.
	OutcomeError Outcome = "error"
)

// =============================================================================
// Helper Methods
// =============================================================================

// RecordRead records a snapshot read and its outcome.
//
// # Inputs
//
//   - outcome: How the read was served.
func (m *Metrics) RecordRead(outcome Outcome) {
	m.RefreshesTotal.WithLabelValues(string(outcome)).Inc()
}

// RecordRefreshDuration records how long a refresh took.
//
// # Inputs
//
//   - seconds: Refresh latency in seconds.
func (m *Metrics) RecordRefreshDuration(seconds float64) {
	m.RefreshDurationSeconds.Observe(seconds)
}

// RecordPull records a completed pull operation.
//
// # Inputs
//
//   - success: Whether the pull succeeded.
func (m *Metrics) RecordPull(success bool) {
	m.PullsTotal.WithLabelValues(statusLabel(success)).Inc()
}

// RecordDelete records a completed delete operation.
//
// # Inputs
//
//   - success: Whether the delete succeeded.
func (m *Metrics) RecordDelete(success bool) {
	m.DeletesTotal.WithLabelValues(statusLabel(success)).Inc()
}

// RecordSnapshot updates the gauges from the latest snapshot.
//
// # Inputs
//
//   - reachable: Whether the daemon answered the heartbeat.
//   - modelCount: Models in the snapshot.
func (m *Metrics) RecordSnapshot(reachable bool, modelCount int) {
	if reachable {
		m.DaemonReachable.Set(1)
	} else {
		m.DaemonReachable.Set(0)
	}
	m.InstalledModels.Set(float64(modelCount))
}

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "error"
}
