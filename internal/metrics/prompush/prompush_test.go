package prompush

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"

	"github.com/nishtha161122/NYC-yellow-taxi-trip-assign/internal/metrics"
)

// gathered collects the backend registry into name -> family.
func gathered(t *testing.T, b *Backend) map[string]*dto.MetricFamily {
	t.Helper()

	mfs, err := b.reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	out := make(map[string]*dto.MetricFamily, len(mfs))
	for _, mf := range mfs {
		out[mf.GetName()] = mf
	}
	return out
}

// find returns the metric of family name whose labels include want.
func find(t *testing.T, fams map[string]*dto.MetricFamily, name string, want map[string]string) *dto.Metric {
	t.Helper()

	mf, ok := fams[name]
	if !ok {
		t.Fatalf("family %s not gathered", name)
	}
	for _, m := range mf.GetMetric() {
		got := map[string]string{}
		for _, lp := range m.GetLabel() {
			got[lp.GetName()] = lp.GetValue()
		}
		match := true
		for k, v := range want {
			if got[k] != v {
				match = false
				break
			}
		}
		if match {
			return m
		}
	}
	t.Fatalf("no %s metric with labels %v", name, want)
	return nil
}

func TestNewBackend(t *testing.T) {
	t.Parallel()

	if _, err := NewBackend("tripclean", ""); err == nil {
		t.Fatal("NewBackend() with empty gateway URL must fail")
	}

	b, err := NewBackend("", "http://pushgateway:9091")
	if err != nil {
		t.Fatalf("NewBackend() error = %v", err)
	}
	if b.jobName != "tripclean" {
		t.Errorf("jobName = %q, want tripclean", b.jobName)
	}

	// Unlabelled batch counter is exported right away; vectors appear once used.
	fams := gathered(t, b)
	if _, ok := fams[metrics.BatchesTotal]; !ok {
		t.Errorf("family %s missing from a fresh registry", metrics.BatchesTotal)
	}
}

// TestRecorderRun drives the backend the way the pipeline's metrics
// observer does for a three-batch run and checks every family it touches.
func TestRecorderRun(t *testing.T) {
	t.Parallel()

	b, err := NewBackend("", "http://unused")
	if err != nil {
		t.Fatal(err)
	}
	rec := metrics.Recorder{Job: "nyc_yellow", Backend: b}

	for range 3 {
		rec.Step("batch", nil, 20*time.Millisecond)
	}
	rec.Batches(3)
	rec.Rows(metrics.KindRowsIn, 45)
	rec.Rows(metrics.KindNulls, 2)
	rec.Rows(metrics.KindOutliers, 5)
	rec.Rows(metrics.KindZeroDuration, 1)
	rec.Rows(metrics.KindRowsOut, 37)
	rec.Outliers("fare_amount", 4)
	rec.Outliers("trip_distance", 1)
	rec.Outliers("passenger_count", 0)
	rec.Step("run", errors.New("sink: disk full"), 2*time.Second)

	fams := gathered(t, b)

	if got := fams[metrics.BatchesTotal].GetMetric()[0].GetCounter().GetValue(); got != 3 {
		t.Errorf("%s = %v, want 3", metrics.BatchesTotal, got)
	}

	rows := map[string]float64{
		metrics.KindRowsIn:       45,
		metrics.KindNulls:        2,
		metrics.KindOutliers:     5,
		metrics.KindZeroDuration: 1,
		metrics.KindRowsOut:      37,
	}
	for kind, want := range rows {
		m := find(t, fams, metrics.RecordsTotal, map[string]string{"kind": kind})
		if got := m.GetCounter().GetValue(); got != want {
			t.Errorf("%s{kind=%s} = %v, want %v", metrics.RecordsTotal, kind, got, want)
		}
	}

	outliers := fams[metrics.OutliersRemoved].GetMetric()
	if len(outliers) != 2 {
		t.Fatalf("%s has %d series, want 2 (zero deltas dropped)", metrics.OutliersRemoved, len(outliers))
	}
	if got := find(t, fams, metrics.OutliersRemoved, map[string]string{"field": "fare_amount"}).GetCounter().GetValue(); got != 4 {
		t.Errorf("fare_amount outliers = %v, want 4", got)
	}

	batch := find(t, fams, metrics.StepTotal, map[string]string{"step": "batch", "status": "success"})
	if got := batch.GetCounter().GetValue(); got != 3 {
		t.Errorf("batch steps = %v, want 3", got)
	}
	run := find(t, fams, metrics.StepDuration, map[string]string{"step": "run", "status": "failure"})
	if got := run.GetSummary().GetSampleCount(); got != 1 {
		t.Errorf("run duration samples = %d, want 1", got)
	}
	if got := run.GetSummary().GetSampleSum(); got != 2 {
		t.Errorf("run duration sum = %v, want 2", got)
	}

	// The job label belongs to the grouping key, never to a series.
	for _, mf := range fams {
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == "job" {
					t.Fatalf("%s carries a job label", mf.GetName())
				}
			}
		}
	}
}

func TestIgnoredUpdates(t *testing.T) {
	t.Parallel()

	var zero Backend
	zero.IncCounter(metrics.RecordsTotal, 1, metrics.Labels{"kind": metrics.KindRowsIn})
	zero.IncCounter(metrics.OutliersRemoved, 1, metrics.Labels{"field": "fare_amount"})
	zero.ObserveHistogram(metrics.StepDuration, 1, metrics.Labels{"step": "run"})

	b, err := NewBackend("", "http://unused")
	if err != nil {
		t.Fatal(err)
	}
	b.IncCounter("tripclean_unknown_total", 1, nil)
	b.ObserveHistogram(metrics.StepTotal, 1, metrics.Labels{"step": "run", "status": "success"})

	fams := gathered(t, b)
	if _, ok := fams["tripclean_unknown_total"]; ok {
		t.Error("unknown counter name was exported")
	}
	if _, ok := fams[metrics.StepDuration]; ok {
		t.Error("histogram observation under a counter name reached the summary")
	}
}

func TestFlush(t *testing.T) {
	t.Parallel()

	type pushed struct {
		method, path string
		body         []byte
	}
	reqCh := make(chan pushed, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		reqCh <- pushed{method: r.Method, path: r.URL.Path, body: body}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	b, err := NewBackend("", server.URL)
	if err != nil {
		t.Fatal(err)
	}
	metrics.Recorder{Backend: b}.Outliers("trip_distance", 2)

	if err := b.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	var got pushed
	select {
	case got = <-reqCh:
	default:
		t.Fatal("Flush() sent nothing to the Pushgateway")
	}
	if got.method != http.MethodPut {
		t.Errorf("method = %s, want PUT (replace the job's group)", got.method)
	}
	if got.path != "/metrics/job/tripclean" {
		t.Errorf("path = %s, want /metrics/job/tripclean", got.path)
	}
	if !bytes.Contains(got.body, []byte(metrics.OutliersRemoved)) {
		t.Errorf("pushed body does not mention %s", metrics.OutliersRemoved)
	}
}

func TestFlush_GatewayError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer server.Close()

	b, err := NewBackend("", server.URL)
	if err != nil {
		t.Fatal(err)
	}
	if err := b.Flush(); err == nil {
		t.Fatal("Flush() must report a failed push")
	}
}

func BenchmarkRecorderRows(b *testing.B) {
	be, err := NewBackend("", "http://unused")
	if err != nil {
		b.Fatal(err)
	}
	rec := metrics.Recorder{Backend: be}
	b.ReportAllocs()
	for b.Loop() {
		rec.Rows(metrics.KindRowsIn, 100000)
	}
}
