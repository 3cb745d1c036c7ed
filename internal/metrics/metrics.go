// Package metrics records operational metrics of trip cleaning runs through a
// pluggable Backend.
//
// The default backend is a no-op, so recording is always safe. Concrete
// systems live in subpackages (prompush, datadog) and are installed with
// SetBackend or bound to a Recorder.
package metrics

import "time"

// Metric names understood by every backend.
const (
	StepTotal       = "tripclean_step_total"
	StepDuration    = "tripclean_step_duration_seconds"
	RecordsTotal    = "tripclean_records_total"
	BatchesTotal    = "tripclean_batches_total"
	OutliersRemoved = "tripclean_outliers_removed_total"
)

// Record kinds used with RecordsTotal.
const (
	KindMalformed    = "malformed_skipped"
	KindRowsIn       = "rows_in"
	KindNulls        = "nulls_removed"
	KindOutliers     = "outliers_removed"
	KindZeroDuration = "zero_duration_removed"
	KindRowsOut      = "rows_out"
	KindWritten      = "written"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a latency/duration style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it (e.g. Pushgateway).
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(name string, delta float64, labels Labels)       {}
func (nopBackend) ObserveHistogram(name string, value float64, labels Labels) {}
func (nopBackend) Flush() error                                               { return nil }

var backend Backend = nopBackend{}

// SetBackend installs a concrete backend. Passing nil keeps the existing backend.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	backend = b
}

// Flush delegates to the current backend.
func Flush() error {
	return backend.Flush()
}

// Recorder records metrics for one job. A zero Backend uses the backend
// installed with SetBackend at call time.
type Recorder struct {
	Job     string
	Backend Backend
}

func (r Recorder) backend() Backend {
	if r.Backend != nil {
		return r.Backend
	}
	return backend
}

// Step counts one execution of step and observes its duration, labelled
// success or failure by err.
func (r Recorder) Step(step string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	lbls := Labels{"job": r.Job, "step": step, "status": status}
	b := r.backend()
	b.IncCounter(StepTotal, 1, lbls)
	b.ObserveHistogram(StepDuration, d.Seconds(), lbls)
}

// Rows adds delta to the record counter of kind. Non-positive deltas are
// dropped.
func (r Recorder) Rows(kind string, delta int64) {
	if delta <= 0 {
		return
	}
	r.backend().IncCounter(RecordsTotal, float64(delta), Labels{"job": r.Job, "kind": kind})
}

// Outliers adds delta to the per-field outlier counter.
func (r Recorder) Outliers(field string, delta int64) {
	if delta <= 0 {
		return
	}
	r.backend().IncCounter(OutliersRemoved, float64(delta), Labels{"job": r.Job, "field": field})
}

// Batches adds delta to the batch counter.
func (r Recorder) Batches(delta int64) {
	if delta <= 0 {
		return
	}
	r.backend().IncCounter(BatchesTotal, float64(delta), Labels{"job": r.Job})
}

// RecordStep is Recorder{Job: job}.Step on the installed backend.
func RecordStep(job, step string, err error, d time.Duration) {
	Recorder{Job: job}.Step(step, err, d)
}

// RecordRow is Recorder{Job: job}.Rows on the installed backend.
func RecordRow(job, kind string, delta int64) {
	Recorder{Job: job}.Rows(kind, delta)
}
