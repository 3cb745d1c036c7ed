package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/nishtha161122/NYC-yellow-taxi-trip-assign/internal/config"
	"github.com/nishtha161122/NYC-yellow-taxi-trip-assign/internal/metrics"

	// register all backends with the storage factory.
	// config specifies which to use but we need to build in support for all of them.
	_ "github.com/nishtha161122/NYC-yellow-taxi-trip-assign/internal/storage/all"
)

// main loads the pipeline config, optionally initializes a metrics backend,
// and runs the cleaning pipeline once.
func main() {
	var (
		cfgPath           string
		metricsBackendFlg string
		pushGatewayURLFlg string
		dogStatsdAddrFlg  string
		batchSizeFlg      int
		validate          bool
	)

	flag.StringVar(&cfgPath, "config", "configs/pipelines/nyc_yellow.json", "pipeline config JSON path")
	flag.StringVar(&metricsBackendFlg, "metrics-backend", "", "metrics backend: pushgateway, datadog or none (overrides env METRICS_BACKEND)")
	flag.StringVar(&pushGatewayURLFlg, "pushgateway-url", "", "Pushgateway base URL (overrides env PUSHGATEWAY_URL)")
	flag.StringVar(&dogStatsdAddrFlg, "dogstatsd-addr", "", "DogStatsD address (overrides env DD_AGENT_HOST)")
	flag.IntVar(&batchSizeFlg, "batch-size", 0, "rows per source batch (overrides config and env TRIPCLEAN_BATCH_SIZE)")
	flag.BoolVar(&validate, "validate", false, "validate the configuration and exit")
	verbose := flag.Bool("v", false, "enable verbose logs")

	flag.Parse()

	p, err := config.Load(cfgPath)
	if err != nil {
		fatalf("%v", err)
	}

	issues := config.ValidatePipeline(p)
	for _, iss := range issues {
		fmt.Fprintf(os.Stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if err := issues.Err(); err != nil {
		log.Printf("Configuration is invalid: %v", cfgPath)
		os.Exit(1)
	}
	if validate {
		log.Printf("Configuration is valid: %v", cfgPath)
		os.Exit(0)
	}

	mcfg := metricsConfig{
		backend:        firstNonEmpty(metricsBackendFlg, os.Getenv("METRICS_BACKEND"), "none"),
		pushGatewayURL: firstNonEmpty(pushGatewayURLFlg, os.Getenv("PUSHGATEWAY_URL"), "http://localhost:9091"),
		dogStatsdAddr:  firstNonEmpty(dogStatsdAddrFlg, agentAddr(os.Getenv("DD_AGENT_HOST")), "127.0.0.1:8125"),
		job:            jobName(p),
	}
	b, err := newMetricsBackend(mcfg)
	if err != nil {
		log.Printf("metrics: %v; metrics disabled", err)
	} else if b != nil {
		log.Printf("metrics: backend=%s job_name=%s", mcfg.backend, mcfg.job)
		metrics.SetBackend(b)
		defer func() {
			if err := metrics.Flush(); err != nil {
				log.Printf("metrics: flush error: %v", err)
			}
		}()
	} else if *verbose {
		log.Printf("metrics: disabled (backend=%q)", mcfg.backend)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	start := time.Now()

	rt := newRuntimeConfig(p, batchSizeFlg)
	if *verbose {
		log.Printf("pipeline: source=%s batch_size=%d workers=%d outlier_scope=%s",
			p.Source.Kind, rt.batchSize, rt.workers, p.Outlier.ScopeOrDefault())
	}

	sum, err := run(ctx, p, rt, *verbose)
	if err != nil {
		stop()
		log.Printf("run failed: %v", err)
		if b != nil {
			_ = metrics.Flush()
		}
		os.Exit(1)
	}
	printShape(os.Stdout, sum)

	if *verbose {
		log.Printf("completed in %s", time.Since(start).Truncate(time.Millisecond))
	}
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
