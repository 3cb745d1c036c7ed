// Package main wires the trip cleaning pipeline end-to-end. This file keeps
// the CLI layer thin: it depends only on the source, sink and pipeline
// abstractions and never imports database drivers directly.
package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/nishtha161122/NYC-yellow-taxi-trip-assign/internal/config"
	"github.com/nishtha161122/NYC-yellow-taxi-trip-assign/internal/metrics"
	"github.com/nishtha161122/NYC-yellow-taxi-trip-assign/internal/metrics/datadog"
	"github.com/nishtha161122/NYC-yellow-taxi-trip-assign/internal/metrics/prompush"
	"github.com/nishtha161122/NYC-yellow-taxi-trip-assign/internal/pipeline"
	"github.com/nishtha161122/NYC-yellow-taxi-trip-assign/internal/sink"
	"github.com/nishtha161122/NYC-yellow-taxi-trip-assign/internal/source"
	"github.com/nishtha161122/NYC-yellow-taxi-trip-assign/internal/transformer"
)

const defaultJob = "tripclean"

// runtimeConfig is the resolved batching and concurrency for one run.
type runtimeConfig struct {
	batchSize int
	workers   int
}

// Function variables used to introduce test seams.
var (
	newSourceFn = source.New
	observerFn  = defaultObserver
)

// newRuntimeConfig resolves flag → config → env → default.
func newRuntimeConfig(p config.Pipeline, batchSizeFlag int) runtimeConfig {
	return runtimeConfig{
		batchSize: pickInt(batchSizeFlag, pickInt(p.Runtime.BatchSize, getenvInt("TRIPCLEAN_BATCH_SIZE", config.DefaultBatchSize))),
		workers:   pickInt(p.Runtime.Workers, getenvInt("TRIPCLEAN_WORKERS", 1)),
	}
}

// buildRunner turns a validated pipeline into a Runner. Nothing is opened.
func buildRunner(p config.Pipeline, rt runtimeConfig, obs pipeline.Observer) (*pipeline.Runner, error) {
	src, err := newSourceFn(p.Source, rt.batchSize)
	if err != nil {
		return nil, fmt.Errorf("source: %w", err)
	}
	target, err := sink.TargetFromConfig(p.Output, p.Source)
	if err != nil {
		return nil, err
	}

	r := &pipeline.Runner{
		Job:      jobName(p),
		Source:   src,
		Scope:    p.Outlier.ScopeOrDefault(),
		Workers:  rt.workers,
		Target:   target,
		Observer: obs,
	}
	if p.Outlier.IsEnabled() {
		f, err := transformer.NewOutlierFilter(p.Outlier.Fields, p.Outlier.Multiplier)
		if err != nil {
			return nil, fmt.Errorf("%w: outlier: %w", config.ErrInvalid, err)
		}
		r.Filter = f
	}
	return r, nil
}

// run executes one pipeline with the default log and metrics observers.
func run(ctx context.Context, p config.Pipeline, rt runtimeConfig, verbose bool) (pipeline.Summary, error) {
	r, err := buildRunner(p, rt, observerFn(jobName(p), verbose))
	if err != nil {
		return pipeline.Summary{}, err
	}
	return r.Run(ctx)
}

func defaultObserver(job string, verbose bool) pipeline.Observer {
	return pipeline.MultiObserver{
		pipeline.LogObserver{Verbose: verbose},
		pipeline.MetricsObserver{Recorder: metrics.Recorder{Job: job}},
	}
}

// printShape prints the final row count and the (rows, columns) shape.
func printShape(w io.Writer, sum pipeline.Summary) {
	fmt.Fprintf(w, "cleaned rows: %d\n", sum.Result.Len())
	fmt.Fprintf(w, "shape: (%d, %d)\n", sum.Result.Len(), len(sum.Result.Columns()))
	if sum.Outcome.NoOp {
		fmt.Fprintln(w, "nothing persisted: result is empty")
	}
}

// metricsConfig is the resolved metrics selection.
type metricsConfig struct {
	backend        string
	pushGatewayURL string
	dogStatsdAddr  string
	job            string
}

// newMetricsBackend returns the configured backend, or nil when metrics are
// disabled.
func newMetricsBackend(c metricsConfig) (metrics.Backend, error) {
	switch c.backend {
	case "pushgateway":
		b, err := prompush.NewBackend(c.job, c.pushGatewayURL)
		if err != nil {
			return nil, err
		}
		return b, nil
	case "datadog":
		b, err := datadog.NewBackend(datadog.Config{
			Addr:       c.dogStatsdAddr,
			Namespace:  "tripclean.",
			GlobalTags: []string{"job:" + c.job},
		})
		if err != nil {
			return nil, err
		}
		return b, nil
	case "", "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown backend %q", c.backend)
	}
}

// agentAddr turns DD_AGENT_HOST into a DogStatsD address, adding the
// default port when none is given.
func agentAddr(host string) string {
	host = strings.TrimSpace(host)
	if host == "" || strings.HasPrefix(host, "unix://") {
		return host
	}
	if _, _, err := net.SplitHostPort(host); err == nil {
		return host
	}
	return net.JoinHostPort(host, "8125")
}

func jobName(p config.Pipeline) string {
	return firstNonEmpty(strings.TrimSpace(p.Job), defaultJob)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// getenvInt reads an int from environment, returning def when unset/invalid.
func getenvInt(k string, def int) int {
	if s := os.Getenv(k); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	}
	return def
}

// pickInt chooses the first positive value 'a', otherwise returns 'b'.
func pickInt(a, b int) int {
	if a > 0 {
		return a
	}
	return b
}
