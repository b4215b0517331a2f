package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the Prometheus collectors for reporting. A nil *Metrics
// records nothing.
type Metrics struct {
	summaries       *prometheus.CounterVec
	summaryDuration prometheus.Histogram
	rowsReported    prometheus.Gauge
	marks           *prometheus.CounterVec
	exports         *prometheus.CounterVec
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		summaries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "attendance",
			Name:      "summaries_total",
			Help:      "Attendance summaries served, by source.",
		}, []string{"source"}),
		summaryDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "attendance",
			Name:      "summary_duration_seconds",
			Help:      "Time spent loading and aggregating a summary.",
			Buckets:   prometheus.DefBuckets,
		}),
		rowsReported: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "attendance",
			Name:      "summary_rows",
			Help:      "Rows in the most recently computed summary.",
		}),
		marks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "attendance",
			Name:      "marks_total",
			Help:      "Clock marks received, by result.",
		}, []string{"result"}),
		exports: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "attendance",
			Name:      "exports_total",
			Help:      "Summary exports, by format and status.",
		}, []string{"format", "status"}),
	}
}

// ObserveSummary records a served summary. source is "computed", "cache"
// or "error".
func (m *Metrics) ObserveSummary(source string, rows int, took time.Duration) {
	if m == nil {
		return
	}
	m.summaries.WithLabelValues(source).Inc()
	if source == "computed" {
		m.summaryDuration.Observe(took.Seconds())
		m.rowsReported.Set(float64(rows))
	}
}

// ObserveMark records a clock mark result.
func (m *Metrics) ObserveMark(result string) {
	if m == nil {
		return
	}
	m.marks.WithLabelValues(result).Inc()
}

// ObserveExport records an export attempt.
func (m *Metrics) ObserveExport(format, status string) {
	if m == nil {
		return
	}
	m.exports.WithLabelValues(format, status).Inc()
}
