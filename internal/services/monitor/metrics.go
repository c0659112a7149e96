package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	mDue = promauto.NewCounter(prometheus.CounterOpts{
		Name: "monitor_checks_due_total", Help: "Checks found due for execution",
	})
	mDispatched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "monitor_probes_started_total", Help: "Probes started",
	})
	mSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "monitor_probes_skipped_total", Help: "Due checks not started on this tick",
	}, []string{"reason"})
	mOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "monitor_probe_outcomes_total", Help: "Probe outcomes",
	}, []string{"outcome"})
	mProbeLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name: "monitor_probe_latency_seconds", Help: "Probe latency",
		Buckets: prometheus.DefBuckets,
	})
	mTickDur = promauto.NewHistogram(prometheus.HistogramOpts{
		Name: "monitor_tick_duration_seconds", Help: "Scheduler tick duration",
		Buckets: prometheus.DefBuckets,
	})
	mTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "monitor_state_transitions_total", Help: "Persisted state changes",
	}, []string{"from", "to"})
	mAlerts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "monitor_alerts_total", Help: "Alert dispatch attempts",
	}, []string{"result"})
	mStorageErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "monitor_storage_errors_total", Help: "Failed state writes",
	})
	mDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "monitor_results_dropped_total", Help: "Results discarded because the check was removed",
	})
	mInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "monitor_probes_in_flight", Help: "Probes currently running",
	})
)
