// Package metrics exposes run counters as prometheus metrics and writes them
// to a node-exporter textfile.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aatumaykin/profsweep/internal/profile"
	"github.com/aatumaykin/profsweep/internal/report"
	"github.com/aatumaykin/profsweep/internal/workers"
)

type RunMetrics struct {
	registry          *prometheus.Registry
	hostsQueried      prometheus.Gauge
	hostsSkipped      *prometheus.GaugeVec
	profiles          *prometheus.GaugeVec
	eligibleBytes     prometheus.Gauge
	deletions         *prometheus.CounterVec
	phaseDuration     *prometheus.GaugeVec
	remoteTasks       *prometheus.CounterVec
	remoteTaskSeconds *prometheus.HistogramVec
	lastRun           prometheus.Gauge
	lastRunSuccess    prometheus.Gauge
}

// New builds the metric set on a private registry.
func New(namespace string) *RunMetrics {
	reg := prometheus.NewRegistry()

	m := &RunMetrics{
		registry: reg,
		hostsQueried: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "hosts_queried",
				Help:      "Hosts targeted by the last run",
			},
		),
		hostsSkipped: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "hosts_skipped",
				Help:      "Hosts skipped by the last run, by reason",
			},
			[]string{"reason"},
		),
		profiles: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "profiles",
				Help:      "Profiles seen by the last run, by stage (analyzed, evaluated, eligible)",
			},
			[]string{"stage"},
		),
		eligibleBytes: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "eligible_bytes",
				Help:      "Known size of eligible profiles in bytes",
			},
		),
		deletions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "deletions_total",
				Help:      "Deletion outcomes (deleted, skipped, failed)",
			},
			[]string{"outcome"},
		),
		phaseDuration: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "phase_duration_seconds",
				Help:      "Wall time of each phase of the last run",
			},
			[]string{"phase"},
		),
		remoteTasks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "remote_tasks_total",
				Help:      "Remote tasks by type and status",
			},
			[]string{"type", "status"},
		),
		remoteTaskSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "remote_task_duration_seconds",
				Help:      "Duration of remote tasks",
				Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			},
			[]string{"type"},
		),
		lastRun: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_run_timestamp_seconds",
				Help:      "Unix time the last run finished",
			},
		),
		lastRunSuccess: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_run_success",
				Help:      "1 if the last run completed, 0 if it aborted",
			},
		),
	}

	reg.MustRegister(
		m.hostsQueried,
		m.hostsSkipped,
		m.profiles,
		m.eligibleBytes,
		m.deletions,
		m.phaseDuration,
		m.remoteTasks,
		m.remoteTaskSeconds,
		m.lastRun,
		m.lastRunSuccess,
	)

	return m
}

// Registry exposes the underlying registry.
func (m *RunMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObservePhase records how long a phase took.
func (m *RunMetrics) ObservePhase(phase string, d time.Duration) {
	m.phaseDuration.WithLabelValues(phase).Set(d.Seconds())
}

// TaskObserver returns a worker pool hook recording remote task results.
func (m *RunMetrics) TaskObserver() workers.Observer {
	return func(r workers.Result) {
		status := "ok"
		if r.Error != nil {
			status = "error"
		}
		m.remoteTasks.WithLabelValues(r.Type, status).Inc()
		m.remoteTaskSeconds.WithLabelValues(r.Type).Observe(r.Duration.Seconds())
	}
}

// Record copies a run summary into the gauges.
func (m *RunMetrics) Record(s report.Summary, success bool, at time.Time) {
	m.hostsQueried.Set(float64(s.HostsQueried))
	by := s.SkippedBy()
	for _, reason := range profile.SkipReasons {
		m.hostsSkipped.WithLabelValues(reason).Set(float64(by[reason]))
	}
	m.profiles.WithLabelValues("analyzed").Set(float64(s.Analyzed))
	m.profiles.WithLabelValues("evaluated").Set(float64(s.Evaluated))
	m.profiles.WithLabelValues("eligible").Set(float64(s.Eligible))
	m.eligibleBytes.Set(float64(s.KnownBytes))

	m.deletions.WithLabelValues("deleted").Add(float64(s.Deleted))
	m.deletions.WithLabelValues("skipped").Add(float64(s.DeleteSkipped))
	m.deletions.WithLabelValues("failed").Add(float64(s.DeleteFailed))

	m.lastRun.Set(float64(at.Unix()))
	if success {
		m.lastRunSuccess.Set(1)
	} else {
		m.lastRunSuccess.Set(0)
	}
}

// WriteTextfile writes every metric to path in the text exposition format.
// The file is replaced atomically.
func (m *RunMetrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
