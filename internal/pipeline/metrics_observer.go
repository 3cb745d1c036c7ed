package pipeline

import "github.com/nishtha161122/NYC-yellow-taxi-trip-assign/internal/metrics"

// MetricsObserver forwards run progress to a metrics.Recorder. Batch
// latency is observed as it happens; row totals are recorded once at the
// end so a failed run still reports what it processed.
type MetricsObserver struct {
	Recorder metrics.Recorder
}

func (m MetricsObserver) BatchDone(s BatchStats) {
	m.Recorder.Step("batch", nil, s.Elapsed)
}

func (m MetricsObserver) RunFinished(s Summary) {
	r := m.Recorder
	r.Batches(int64(s.Batches))
	r.Rows(metrics.KindMalformed, int64(s.MalformedSkipped))
	r.Rows(metrics.KindRowsIn, int64(s.RowsIn))
	r.Rows(metrics.KindNulls, int64(s.NullsRemoved))
	r.Rows(metrics.KindOutliers, int64(s.OutliersRemoved()))
	r.Rows(metrics.KindZeroDuration, int64(s.ZeroDurationRemoved))
	r.Rows(metrics.KindRowsOut, int64(s.RowsOut))
	for _, f := range s.Outliers {
		r.Outliers(f.Field, int64(f.Removed))
	}
	if s.Err == nil {
		r.Rows(metrics.KindWritten, s.Outcome.Rows)
	}
	r.Step("run", s.Err, s.Elapsed)
}
