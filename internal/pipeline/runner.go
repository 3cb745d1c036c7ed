// Package pipeline runs the trip cleaning stages over a batched source:
// sanitize, drop IQR outliers, derive features, accumulate, persist.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nishtha161122/NYC-yellow-taxi-trip-assign/internal/config"
	"github.com/nishtha161122/NYC-yellow-taxi-trip-assign/internal/sink"
	"github.com/nishtha161122/NYC-yellow-taxi-trip-assign/internal/source"
	"github.com/nishtha161122/NYC-yellow-taxi-trip-assign/internal/transformer"
	"github.com/nishtha161122/NYC-yellow-taxi-trip-assign/internal/trip"
)

// Runner wires one run. Zero values: Filter nil disables outlier removal,
// Scope "" means config.ScopeBatch, Workers <= 1 is sequential, Target nil
// skips persistence, Observer nil discards progress.
type Runner struct {
	Job      string
	Source   source.Source
	Filter   *transformer.OutlierFilter
	Scope    string
	Workers  int
	Target   sink.Target
	Observer Observer
}

// run holds the mutable state of a single Run call.
type run struct {
	r   *Runner
	obs Observer
	mu  sync.Mutex // serializes obs and totals
	sum Summary
	idx map[string]int // field -> index in sum.Outliers
}

// Run executes the pipeline. On failure the returned Summary carries no
// result and err is a *StageError. Observer.RunFinished is called exactly
// once before Run returns.
func (r *Runner) Run(ctx context.Context) (sum Summary, err error) {
	st := &run{r: r, obs: r.Observer, idx: map[string]int{}}
	if st.obs == nil {
		st.obs = NopObserver{}
	}
	st.sum.Job = r.Job
	if r.Filter != nil {
		for i, f := range r.Filter.Fields() {
			st.sum.Outliers = append(st.sum.Outliers, FieldTotal{Field: f})
			st.idx[f] = i
		}
	}

	start := time.Now()
	defer func() {
		st.sum.Elapsed = time.Since(start)
		if err != nil {
			st.sum.Result = trip.ResultSet{}
			st.sum.Err = err
		}
		sum = st.sum
		st.obs.RunFinished(sum)
	}()

	if r.Source == nil {
		return sum, &StageError{Stage: StageSource, Err: errors.New("no source configured")}
	}
	rd, err := r.Source.Open(ctx)
	if err != nil {
		return sum, &StageError{Stage: StageSource, Err: err}
	}
	defer rd.Close()

	var result trip.ResultSet
	switch {
	case r.Filter != nil && r.Scope == config.ScopeGlobal:
		result, err = st.runGlobal(ctx, rd)
	case r.Workers > 1:
		result, err = st.runParallel(ctx, rd)
	default:
		result, err = st.runSequential(ctx, rd)
	}
	if mc, ok := rd.(source.MalformedCounter); ok {
		st.sum.MalformedSkipped = mc.Malformed()
	}
	if err != nil {
		return sum, &StageError{Stage: StageSource, Err: err}
	}
	st.sum.Result = result

	if r.Target != nil {
		out, err := sink.Persist(ctx, result, r.Target)
		if err != nil {
			return sum, &StageError{Stage: StageSink, Err: err}
		}
		st.sum.Outcome = out
	} else {
		st.sum.Outcome = sink.Outcome{NoOp: result.Empty()}
	}
	return sum, nil
}

// process runs the per-batch stages.
func (st *run) process(raw trip.RawBatch) (trip.Batch, BatchStats) {
	t0 := time.Now()
	bs := BatchStats{Seq: raw.Seq, RowsIn: len(raw.Rows)}

	b, nulls := transformer.Sanitize(raw)
	bs.NullsRemoved = nulls
	if st.r.Filter != nil {
		b, bs.Outliers = st.r.Filter.Apply(b)
	}
	b, bs.ZeroDurationRemoved = transformer.Derive(b)
	bs.RowsOut = b.Len()
	bs.Elapsed = time.Since(t0)
	return b, bs
}

// record folds bs into the run totals and notifies the observer.
func (st *run) record(bs BatchStats) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.sum.Batches++
	st.sum.RowsIn += bs.RowsIn
	st.sum.NullsRemoved += bs.NullsRemoved
	if !bs.Deferred {
		st.addOutliers(bs.Outliers)
		st.sum.ZeroDurationRemoved += bs.ZeroDurationRemoved
		st.sum.RowsOut += bs.RowsOut
	}
	st.obs.BatchDone(bs)
}

func (st *run) addOutliers(fs []transformer.FieldResult) {
	for _, f := range fs {
		i, ok := st.idx[f.Field]
		if !ok {
			continue
		}
		st.sum.Outliers[i].Removed += f.Removed
		if f.Skipped {
			st.sum.Outliers[i].Skipped++
		}
	}
}

func (st *run) runSequential(ctx context.Context, rd source.Reader) (trip.ResultSet, error) {
	acc := NewAccumulator()
	for {
		raw, err := rd.Next(ctx)
		if errors.Is(err, io.EOF) {
			return acc.Result(), nil
		}
		if err != nil {
			return trip.ResultSet{}, err
		}
		b, bs := st.process(raw)
		acc.Add(b)
		st.record(bs)
	}
}

// runParallel reads batches on the calling goroutine and processes them on
// up to Workers goroutines; AddAt restores source order.
func (st *run) runParallel(ctx context.Context, rd source.Reader) (trip.ResultSet, error) {
	acc := NewAccumulator()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(st.r.Workers)

	var readErr error
	for {
		raw, err := rd.Next(gctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			readErr = err
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			b, bs := st.process(raw)
			acc.AddAt(b)
			st.record(bs)
			return nil
		})
	}
	werr := g.Wait()
	if readErr != nil {
		return trip.ResultSet{}, readErr
	}
	if werr != nil {
		return trip.ResultSet{}, werr
	}
	if n := acc.Pending(); n > 0 {
		return trip.ResultSet{}, fmt.Errorf("%d batches left unmerged", n)
	}
	return acc.Result(), nil
}

// runGlobal sanitizes every batch, then filters and derives once over the
// concatenation so quartiles describe the whole dataset.
func (st *run) runGlobal(ctx context.Context, rd source.Reader) (trip.ResultSet, error) {
	acc := NewAccumulator()
	for {
		raw, err := rd.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return trip.ResultSet{}, err
		}
		t0 := time.Now()
		b, nulls := transformer.Sanitize(raw)
		acc.Add(b)
		st.record(BatchStats{
			Seq: raw.Seq, RowsIn: len(raw.Rows), NullsRemoved: nulls, RowsOut: b.Len(),
			Elapsed: time.Since(t0), Deferred: true,
		})
	}

	all := trip.Batch{Records: acc.Result().Records}
	filtered, fields := st.r.Filter.Apply(all)
	derived, zero := transformer.Derive(filtered)

	st.mu.Lock()
	st.addOutliers(fields)
	st.sum.ZeroDurationRemoved += zero
	st.sum.RowsOut += derived.Len()
	st.mu.Unlock()

	if derived.Len() == 0 {
		return trip.ResultSet{}, nil
	}
	return trip.ResultSet{Records: derived.Records}, nil
}
