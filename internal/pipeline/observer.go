package pipeline

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/nishtha161122/NYC-yellow-taxi-trip-assign/internal/sink"
	"github.com/nishtha161122/NYC-yellow-taxi-trip-assign/internal/transformer"
	"github.com/nishtha161122/NYC-yellow-taxi-trip-assign/internal/trip"
)

// BatchStats describes one processed source batch.
type BatchStats struct {
	Seq                 int
	RowsIn              int
	NullsRemoved        int
	Outliers            []transformer.FieldResult
	ZeroDurationRemoved int
	RowsOut             int
	Elapsed             time.Duration

	// Deferred is set under global outlier scope: only sanitization ran and
	// RowsOut counts sanitized rows awaiting the whole-dataset stages.
	Deferred bool
}

// FieldTotal is the per-field outlier removal count over a run.
type FieldTotal struct {
	Field   string
	Removed int
	// Skipped counts batches where the field had no data to compute quartiles.
	Skipped int
}

// Summary is the run-level report handed to Observer.RunFinished and
// returned from Runner.Run.
type Summary struct {
	Job                 string
	Batches             int
	RowsIn              int
	NullsRemoved        int
	Outliers            []FieldTotal
	ZeroDurationRemoved int
	RowsOut             int
	Elapsed             time.Duration

	// MalformedSkipped counts records the source could not parse. They are
	// not part of RowsIn.
	MalformedSkipped int

	// Result is the cleaned data. It is empty when Err is set.
	Result  trip.ResultSet
	Outcome sink.Outcome
	Err     error
}

// OutliersRemoved sums removals over all fields.
func (s Summary) OutliersRemoved() int {
	n := 0
	for _, f := range s.Outliers {
		n += f.Removed
	}
	return n
}

// Balanced reports whether every input row is accounted for:
// rows_in = nulls + outliers + zero_duration + rows_out.
func (s Summary) Balanced() bool {
	return s.RowsIn == s.NullsRemoved+s.OutliersRemoved()+s.ZeroDurationRemoved+s.RowsOut
}

// Observer receives progress from a Runner. Calls are serialized.
type Observer interface {
	BatchDone(BatchStats)
	// RunFinished is called exactly once per Run, on success and failure.
	RunFinished(Summary)
}

// NopObserver discards everything.
type NopObserver struct{}

func (NopObserver) BatchDone(BatchStats) {}
func (NopObserver) RunFinished(Summary) {}

// MultiObserver fans out to several observers in order.
type MultiObserver []Observer

func (m MultiObserver) BatchDone(s BatchStats) {
	for _, o := range m {
		o.BatchDone(s)
	}
}

func (m MultiObserver) RunFinished(s Summary) {
	for _, o := range m {
		o.RunFinished(s)
	}
}

// sampleRows is how many leading records LogObserver prints when verbose.
const sampleRows = 5

// LogObserver writes progress lines with the standard logger.
type LogObserver struct {
	// Verbose adds per-field outlier bounds and, at the end, a sample of the
	// cleaned data with its column types.
	Verbose bool
}

func (l LogObserver) BatchDone(s BatchStats) {
	if s.Deferred {
		log.Printf("batch #%d: rows_in=%d nulls_removed=%d sanitized=%d (outlier and feature stages deferred)",
			s.Seq, s.RowsIn, s.NullsRemoved, s.RowsOut)
		return
	}
	log.Printf("batch #%d: rows_in=%d nulls_removed=%d outliers_removed=%d zero_duration_removed=%d rows_out=%d elapsed=%s",
		s.Seq, s.RowsIn, s.NullsRemoved, sumRemoved(s.Outliers), s.ZeroDurationRemoved, s.RowsOut,
		s.Elapsed.Truncate(time.Millisecond))
	if l.Verbose {
		for _, f := range s.Outliers {
			if f.Skipped {
				log.Printf("batch #%d: %s skipped (no data)", s.Seq, f.Field)
				continue
			}
			log.Printf("batch #%d: %s bounds=[%g, %g] removed=%d", s.Seq, f.Field, f.Bounds.Lower, f.Bounds.Upper, f.Removed)
		}
	}
}

func (l LogObserver) RunFinished(s Summary) {
	log.Printf(
		"summary: job=%s batches=%d malformed_skipped=%d rows_in=%d nulls_removed=%d outliers_removed=%d zero_duration_removed=%d rows_out=%d elapsed=%s",
		s.Job, s.Batches, s.MalformedSkipped, s.RowsIn, s.NullsRemoved, s.OutliersRemoved(), s.ZeroDurationRemoved, s.RowsOut,
		s.Elapsed.Truncate(time.Millisecond),
	)
	for _, f := range s.Outliers {
		log.Printf("summary: outliers field=%s removed=%d skipped_batches=%d", f.Field, f.Removed, f.Skipped)
	}
	if !s.Balanced() {
		accounted := s.NullsRemoved + s.OutliersRemoved() + s.ZeroDurationRemoved + s.RowsOut
		log.Printf("WARNING: row accounting mismatch: total=%d accounted=%d (delta=%d)",
			s.RowsIn, accounted, s.RowsIn-accounted)
	}
	if s.Err != nil {
		log.Printf("run failed: %v", s.Err)
		return
	}
	if s.Outcome.NoOp {
		log.Printf("sink: nothing to persist (empty result)")
	} else {
		log.Printf("sink: wrote %d rows", s.Outcome.Rows)
	}
	if l.Verbose && !s.Result.Empty() {
		logSample(s.Result)
	}
}

func logSample(rs trip.ResultSet) {
	cols := rs.Columns()
	first := rs.Records[0].Values()
	types := make([]string, len(cols))
	for i, c := range cols {
		types[i] = fmt.Sprintf("%s:%T", c, first[i])
	}
	log.Printf("sample: columns %s", strings.Join(types, " "))
	for i, r := range rs.Head(sampleRows) {
		log.Printf("sample[%d]: %s", i, strings.Join(r.Strings(), ", "))
	}
}

func sumRemoved(fs []transformer.FieldResult) int {
	n := 0
	for _, f := range fs {
		n += f.Removed
	}
	return n
}
