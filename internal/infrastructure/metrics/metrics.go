package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics of the entry engine.
type Metrics struct {
	// Entry write path
	EntriesSaved    *prometheus.CounterVec
	EntriesDeleted  prometheus.Counter
	EntriesRejected *prometheus.CounterVec
	SaveDuration    prometheus.Histogram

	// Balance maintenance
	RemediationsApplied prometheus.Counter
	RemediationsSkipped prometheus.Counter
	RecomputeDuration   prometheus.Histogram
	RecomputeScanned    prometheus.Gauge
	DriftsDetected      *prometheus.CounterVec

	// Group dissolution
	SettlementsDissolved   prometheus.Counter
	ConciliationsDissolved prometheus.Counter

	// Audit
	AuditLogsCreated *prometheus.CounterVec
}

// New creates and registers all metrics on the default registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith creates the metrics and registers them on r. Tests pass a fresh
// registry to avoid duplicate registration on the global one.
func NewWith(r prometheus.Registerer) *Metrics {
	factory := promauto.With(r)

	return &Metrics{
		EntriesSaved: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "openbook_entries_saved_total",
				Help: "Total entries persisted, by ledger and status",
			},
			[]string{"ledger", "status"},
		),
		EntriesDeleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "openbook_entries_deleted_total",
			Help: "Total entries deleted",
		}),
		EntriesRejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "openbook_entries_rejected_total",
				Help: "Total drafts rejected by validation, by field",
			},
			[]string{"field"},
		),
		SaveDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "openbook_entry_save_duration_seconds",
			Help:    "Duration of the validate-persist-remediate transaction",
			Buckets: prometheus.DefBuckets,
		}),

		RemediationsApplied: factory.NewCounter(prometheus.CounterOpts{
			Name: "openbook_remediations_applied_total",
			Help: "Total incremental aggregate updates written",
		}),
		RemediationsSkipped: factory.NewCounter(prometheus.CounterOpts{
			Name: "openbook_remediations_skipped_total",
			Help: "Total remediations skipped because nothing changed",
		}),
		RecomputeDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "openbook_recompute_duration_seconds",
			Help:    "Duration of full aggregate rebuilds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		}),
		RecomputeScanned: factory.NewGauge(prometheus.GaugeOpts{
			Name: "openbook_recompute_entries_scanned",
			Help: "Entries scanned by the last full aggregate rebuild",
		}),
		DriftsDetected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "openbook_balance_drifts_total",
				Help: "Aggregate drifts detected by consistency checks, by ledger",
			},
			[]string{"ledger"},
		),

		SettlementsDissolved: factory.NewCounter(prometheus.CounterOpts{
			Name: "openbook_settlements_dissolved_total",
			Help: "Total settlement groups dissolved by cascade deletes",
		}),
		ConciliationsDissolved: factory.NewCounter(prometheus.CounterOpts{
			Name: "openbook_conciliations_dissolved_total",
			Help: "Total conciliation groups dissolved by cascade deletes",
		}),

		AuditLogsCreated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "openbook_audit_logs_total",
				Help: "Total audit logs created, by action",
			},
			[]string{"action"},
		),
	}
}
