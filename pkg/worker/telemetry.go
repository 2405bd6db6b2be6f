package worker

import (
	"log"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

var (
	jobsProcessed metric.Int64Counter
	jobErrors     metric.Int64Counter
	jobDuration   metric.Float64Histogram
)

func init() {
	meter := otel.Meter("assetworker/worker")

	var err error

	jobsProcessed, err = meter.Int64Counter(
		"assetworker.jobs.processed",
		metric.WithDescription("Number of jobs processed successfully"),
	)
	if err != nil {
		log.Fatalf("failed to create jobs.processed counter: %v", err)
	}

	jobErrors, err = meter.Int64Counter(
		"assetworker.jobs.errors",
		metric.WithDescription("Number of job attempts that failed"),
	)
	if err != nil {
		log.Fatalf("failed to create jobs.errors counter: %v", err)
	}

	jobDuration, err = meter.Float64Histogram(
		"assetworker.jobs.duration",
		metric.WithDescription("Job processing time in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1, 2, 5, 10),
	)
	if err != nil {
		log.Fatalf("failed to create jobs.duration histogram: %v", err)
	}
}
