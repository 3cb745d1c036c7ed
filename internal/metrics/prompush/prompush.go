// Package prompush implements a Prometheus Pushgateway backend for the
// metrics package. A cleaning run is a batch job with nothing to scrape, so
// the collected registry is pushed once when the run finishes.
package prompush

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/nishtha161122/NYC-yellow-taxi-trip-assign/internal/metrics"
)

// Backend is a Prometheus Pushgateway metrics backend. The job label is
// carried by the Pushgateway grouping key, not by the collectors.
type Backend struct {
	gatewayURL string
	jobName    string
	reg        *prometheus.Registry

	stepCounter    *prometheus.CounterVec // step, status
	stepDuration   *prometheus.SummaryVec // step, status
	recordCounter  *prometheus.CounterVec // kind
	outlierCounter *prometheus.CounterVec // field
	batchCounter   prometheus.Counter
}

// NewBackend constructs a Pushgateway backend pushing under jobName
// (default "tripclean") to gatewayURL.
func NewBackend(jobName, gatewayURL string) (*Backend, error) {
	if gatewayURL == "" {
		return nil, fmt.Errorf("prompush: gateway URL is required")
	}
	if jobName == "" {
		jobName = "tripclean"
	}

	b := &Backend{
		gatewayURL: gatewayURL,
		jobName:    jobName,
		reg:        prometheus.NewRegistry(),
		stepCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metrics.StepTotal,
			Help: "Pipeline step executions by step and status.",
		}, []string{"step", "status"}),
		stepDuration: prometheus.NewSummaryVec(prometheus.SummaryOpts{
			Name:       metrics.StepDuration,
			Help:       "Pipeline step duration in seconds by step and status.",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		}, []string{"step", "status"}),
		recordCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metrics.RecordsTotal,
			Help: "Trip rows by accounting kind (rows_in, nulls_removed, rows_out, ...).",
		}, []string{"kind"}),
		outlierCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metrics.OutliersRemoved,
			Help: "Trip rows removed by the IQR filter, per field.",
		}, []string{"field"}),
		batchCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Name: metrics.BatchesTotal,
			Help: "Source batches processed.",
		}),
	}

	for name, c := range map[string]prometheus.Collector{
		"step counter":    b.stepCounter,
		"step summary":    b.stepDuration,
		"record counter":  b.recordCounter,
		"outlier counter": b.outlierCounter,
		"batch counter":   b.batchCounter,
	} {
		if err := b.reg.Register(c); err != nil {
			return nil, fmt.Errorf("prompush: register %s: %w", name, err)
		}
	}
	return b, nil
}

func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	switch name {
	case metrics.StepTotal:
		if b.stepCounter != nil {
			b.stepCounter.WithLabelValues(labels["step"], labels["status"]).Add(delta)
		}
	case metrics.RecordsTotal:
		if b.recordCounter != nil {
			b.recordCounter.WithLabelValues(labels["kind"]).Add(delta)
		}
	case metrics.OutliersRemoved:
		if b.outlierCounter != nil {
			b.outlierCounter.WithLabelValues(labels["field"]).Add(delta)
		}
	case metrics.BatchesTotal:
		if b.batchCounter != nil {
			b.batchCounter.Add(delta)
		}
	}
}

func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if name != metrics.StepDuration || b.stepDuration == nil {
		return
	}
	b.stepDuration.WithLabelValues(labels["step"], labels["status"]).Observe(value)
}

// Flush pushes the current registry to the Pushgateway, replacing the
// previous push of the same job.
func (b *Backend) Flush() error {
	return push.New(b.gatewayURL, b.jobName).
		Gatherer(b.reg).
		Push()
}
