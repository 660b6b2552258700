package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"dataendpoint/internal/model"
)

const (
	MetricNameProbesTotal   = "sparql_endpoint_probes_total"
	MetricNameProbeDuration = "sparql_endpoint_probe_duration_seconds"
	MetricNameReportRuns    = "sparql_report_runs_total"
	MetricNameLastRun       = "sparql_report_last_run_timestamp_seconds"

	LabelStatus = "status"
	LabelResult = "result"
)

// ProbeBuckets covers sub-second answers up to probes cut off by the timeout.
var ProbeBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5, 10}

// Probe holds the collectors describing endpoint probes and report runs.
type Probe struct {
	probes      *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	runs        *prometheus.CounterVec
	lastRunTime prometheus.Gauge
}

// NewProbe creates the probe collectors and registers them with reg.
func NewProbe(reg prometheus.Registerer) (*Probe, error) {
	m := &Probe{
		probes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricNameProbesTotal,
				Help: "Total number of SPARQL endpoint probes by resulting status.",
			},
			[]string{LabelStatus},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    MetricNameProbeDuration,
				Help:    "Duration of SPARQL endpoint probes.",
				Buckets: ProbeBuckets,
			},
			[]string{LabelStatus},
		),
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricNameReportRuns,
				Help: "Total number of report runs by result.",
			},
			[]string{LabelResult},
		),
		lastRunTime: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: MetricNameLastRun,
				Help: "Unix time of the last successful report run.",
			},
		),
	}
	for _, c := range []prometheus.Collector{m.probes, m.duration, m.runs, m.lastRunTime} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// ObserveProbe records one probe outcome.
func (m *Probe) ObserveProbe(status model.EndpointStatus, d time.Duration) {
	if m == nil {
		return
	}
	m.probes.WithLabelValues(string(status)).Inc()
	m.duration.WithLabelValues(string(status)).Observe(d.Seconds())
}

// ObserveRun records the end of a report run.
func (m *Probe) ObserveRun(err error, at time.Time) {
	if m == nil {
		return
	}
	if err != nil {
		m.runs.WithLabelValues("error").Inc()
		return
	}
	m.runs.WithLabelValues("success").Inc()
	m.lastRunTime.Set(float64(at.Unix()))
}
