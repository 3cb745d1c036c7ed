package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nishtha161122/NYC-yellow-taxi-trip-assign/internal/config"
	"github.com/nishtha161122/NYC-yellow-taxi-trip-assign/internal/metrics"
	"github.com/nishtha161122/NYC-yellow-taxi-trip-assign/internal/pipeline"
	"github.com/nishtha161122/NYC-yellow-taxi-trip-assign/internal/sink"
	"github.com/nishtha161122/NYC-yellow-taxi-trip-assign/internal/source"
	"github.com/nishtha161122/NYC-yellow-taxi-trip-assign/internal/storage"
	_ "github.com/nishtha161122/NYC-yellow-taxi-trip-assign/internal/storage/sqlite" // register "sqlite" backend for tests
	"github.com/nishtha161122/NYC-yellow-taxi-trip-assign/internal/trip"
)

const csvHeader = "pickup_datetime,dropoff_datetime,passenger_count,trip_distance,fare_amount,payment_type,total_amount\n"

// makeTripCSV writes n valid trips plus one row with a missing fare.
func makeTripCSV(tb testing.TB, n int) string {
	tb.Helper()
	var b strings.Builder
	b.WriteString(csvHeader)
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "2023-01-05 08:00:00,2023-01-05 08:%02d:00,1,%d,%d,1,15\n", 10+i%30, 1+i%5, 6+i%4)
	}
	b.WriteString("2023-01-05 08:00:00,2023-01-05 08:20:00,1,2,,1,15\n")
	p := filepath.Join(tb.TempDir(), "trips.csv")
	if err := os.WriteFile(p, []byte(b.String()), 0o644); err != nil {
		tb.Fatalf("write csv: %v", err)
	}
	return p
}

func csvPipeline(path string) config.Pipeline {
	return config.Pipeline{
		Job:    "nyc_test",
		Source: config.Source{Kind: "csv", File: config.SourceFile{Path: path}},
	}
}

// TestGetenvIntAndPickInt verifies env fallback and pick semantics.
func TestGetenvIntAndPickInt(t *testing.T) {
	t.Setenv("TRIPCLEAN_TEST_INT", "")
	if v := getenvInt("TRIPCLEAN_TEST_INT", 7); v != 7 {
		t.Fatalf("getenvInt unset = %d, want 7", v)
	}
	t.Setenv("TRIPCLEAN_TEST_INT", "42")
	if v := getenvInt("TRIPCLEAN_TEST_INT", 7); v != 42 {
		t.Fatalf("getenvInt set = %d, want 42", v)
	}
	t.Setenv("TRIPCLEAN_TEST_INT", "x")
	if v := getenvInt("TRIPCLEAN_TEST_INT", 7); v != 7 {
		t.Fatalf("getenvInt invalid = %d, want 7", v)
	}
	if v := pickInt(5, 9); v != 5 {
		t.Fatalf("pickInt(5,9) = %d, want 5", v)
	}
	if v := pickInt(0, 9); v != 9 {
		t.Fatalf("pickInt(0,9) = %d, want 9", v)
	}
}

func TestNewRuntimeConfig_Precedence(t *testing.T) {
	t.Setenv("TRIPCLEAN_BATCH_SIZE", "500")
	t.Setenv("TRIPCLEAN_WORKERS", "3")

	p := config.Pipeline{}
	if rt := newRuntimeConfig(p, 0); rt.batchSize != 500 || rt.workers != 3 {
		t.Fatalf("env: %+v", rt)
	}
	p.Runtime = config.RuntimeConfig{BatchSize: 200, Workers: 2}
	if rt := newRuntimeConfig(p, 0); rt.batchSize != 200 || rt.workers != 2 {
		t.Fatalf("config: %+v", rt)
	}
	if rt := newRuntimeConfig(p, 50); rt.batchSize != 50 {
		t.Fatalf("flag: %+v", rt)
	}

	t.Setenv("TRIPCLEAN_BATCH_SIZE", "")
	t.Setenv("TRIPCLEAN_WORKERS", "")
	if rt := newRuntimeConfig(config.Pipeline{}, 0); rt.batchSize != config.DefaultBatchSize || rt.workers != 1 {
		t.Fatalf("default: %+v", rt)
	}
}

func TestAgentAddr(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"":                    "",
		"datadog-agent":       "datadog-agent:8125",
		"10.0.0.5:9125":       "10.0.0.5:9125",
		"unix:///var/run/dsd": "unix:///var/run/dsd",
	}
	for in, want := range cases {
		if got := agentAddr(in); got != want {
			t.Errorf("agentAddr(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNewMetricsBackend(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"", "none"} {
		b, err := newMetricsBackend(metricsConfig{backend: name})
		if err != nil || b != nil {
			t.Fatalf("%q: backend=%v err=%v, want disabled", name, b, err)
		}
	}
	if _, err := newMetricsBackend(metricsConfig{backend: "statsd"}); err == nil {
		t.Fatal("expected error for unknown backend")
	}
	if b, err := newMetricsBackend(metricsConfig{backend: "pushgateway"}); err == nil || b != nil {
		t.Fatalf("pushgateway without URL: backend=%v err=%v", b, err)
	}
	b, err := newMetricsBackend(metricsConfig{backend: "pushgateway", pushGatewayURL: "http://localhost:9091", job: "x"})
	if err != nil || b == nil {
		t.Fatalf("pushgateway: backend=%v err=%v", b, err)
	}
}

func TestBuildRunner(t *testing.T) {
	t.Parallel()

	off := false
	p := csvPipeline(makeTripCSV(t, 3))
	p.Output.File = &config.FileOutput{Path: filepath.Join(t.TempDir(), "out.csv")}
	p.Outlier = config.Outlier{Enabled: &off}

	r, err := buildRunner(p, runtimeConfig{batchSize: 10, workers: 2}, nil)
	if err != nil {
		t.Fatalf("buildRunner: %v", err)
	}
	if r.Filter != nil || r.Workers != 2 || r.Job != "nyc_test" {
		t.Fatalf("runner = %+v", r)
	}
	if _, ok := r.Target.(sink.FileExport); !ok {
		t.Fatalf("target = %T, want FileExport", r.Target)
	}

	p.Outlier = config.Outlier{Fields: []string{"pickup_datetime"}}
	if _, err := buildRunner(p, runtimeConfig{batchSize: 10}, nil); !errors.Is(err, config.ErrInvalid) {
		t.Fatalf("bad outlier field: err = %v, want ErrInvalid", err)
	}

	p.Outlier = config.Outlier{}
	p.Output = config.Output{}
	if _, err := buildRunner(p, runtimeConfig{batchSize: 10}, nil); !errors.Is(err, config.ErrInvalid) {
		t.Fatalf("no output: err = %v, want ErrInvalid", err)
	}
}

func TestRun_CSVToFile(t *testing.T) {
	t.Parallel()

	out := filepath.Join(t.TempDir(), "cleaned_taxi_data.csv")
	p := csvPipeline(makeTripCSV(t, 40))
	p.Output.File = &config.FileOutput{Path: out}

	sum, err := run(context.Background(), p, runtimeConfig{batchSize: 16, workers: 1}, false)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if sum.RowsIn != 41 || sum.NullsRemoved != 1 || !sum.Balanced() {
		t.Fatalf("summary = %+v", sum)
	}
	back, err := sink.ReadCSV(out)
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if back.Fingerprint() != sum.Result.Fingerprint() {
		t.Fatal("exported file does not match the run result")
	}

	var buf bytes.Buffer
	printShape(&buf, sum)
	want := fmt.Sprintf("cleaned rows: %d\nshape: (%d, 11)\n", sum.Result.Len(), sum.Result.Len())
	if buf.String() != want {
		t.Fatalf("printShape = %q, want %q", buf.String(), want)
	}
}

// TestRun_CSVToSQLite exercises the table sink through the storage factory
// against a temp-file sqlite database.
func TestRun_CSVToSQLite(t *testing.T) {
	t.Parallel()

	dsn := filepath.Join(t.TempDir(), "trips.db")
	p := csvPipeline(makeTripCSV(t, 25))
	p.Output.Table = &config.TableOutput{
		Name: "cleaned_yellow_taxi_trips",
		DB:   &config.DBConfig{Kind: "sqlite", DSN: dsn},
	}

	sum, err := run(context.Background(), p, runtimeConfig{batchSize: 10, workers: 2}, false)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if sum.Outcome.Rows != int64(sum.Result.Len()) || sum.Outcome.Rows == 0 {
		t.Fatalf("outcome = %+v (result %d)", sum.Outcome, sum.Result.Len())
	}

	ctx := context.Background()
	repo, err := storage.New(ctx, storage.Config{Kind: "sqlite", DSN: dsn})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer repo.Close()
	cols, err := repo.Columns(ctx, "cleaned_yellow_taxi_trips")
	if err != nil {
		t.Fatalf("Columns: %v", err)
	}
	if len(cols) != len(trip.OutputColumns()) {
		t.Fatalf("columns = %v", cols)
	}
}

func TestRun_SourceFailure(t *testing.T) {
	t.Parallel()

	p := csvPipeline(filepath.Join(t.TempDir(), "missing.csv"))
	p.Output.File = &config.FileOutput{Path: filepath.Join(t.TempDir(), "out.csv")}

	sum, err := run(context.Background(), p, runtimeConfig{batchSize: 10}, false)
	var se *pipeline.StageError
	if !errors.As(err, &se) || se.Stage != pipeline.StageSource || !errors.Is(err, source.ErrUnavailable) {
		t.Fatalf("err = %v, want source StageError", err)
	}
	if !sum.Result.Empty() {
		t.Fatal("result must be empty on failure")
	}
}

// TestRun_PushesMetrics installs a Pushgateway backend pointed at a fake
// server and checks that flushing after a run pushes the trip counters.
func TestRun_PushesMetrics(t *testing.T) {
	bodies := make(chan []byte, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		body, _ := io.ReadAll(r.Body)
		bodies <- body
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	b, err := newMetricsBackend(metricsConfig{backend: "pushgateway", pushGatewayURL: srv.URL, job: "nyc_test"})
	if err != nil {
		t.Fatalf("newMetricsBackend: %v", err)
	}

	p := csvPipeline(makeTripCSV(t, 10))
	p.Output.File = &config.FileOutput{Path: filepath.Join(t.TempDir(), "out.csv")}
	r, err := buildRunner(p, runtimeConfig{batchSize: 4}, pipeline.MetricsObserver{
		Recorder: metrics.Recorder{Job: "nyc_test", Backend: b},
	})
	if err != nil {
		t.Fatalf("buildRunner: %v", err)
	}
	if _, err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if err := b.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	body := <-bodies
	if len(body) == 0 {
		t.Fatal("pushgateway received an empty body")
	}
	if !bytes.Contains(body, []byte(metrics.RecordsTotal)) {
		t.Fatalf("push body lacks %s", metrics.RecordsTotal)
	}
}
