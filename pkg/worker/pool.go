// Package worker runs a bounded pool of job executions over the queue.
// Each execution is isolated: a panic in one job is converted into a job
// failure and never takes down the pool.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"assetworker/pkg/asset"
	"assetworker/pkg/pipeline"
	"assetworker/pkg/queue"
)

// DefaultConcurrency is the pool size when none is configured.
const DefaultConcurrency = 5

// Processor is the derivation pipeline's contract as the pool sees it.
type Processor interface {
	Process(ctx context.Context, job asset.ProcessingJob) (*pipeline.Outcome, error)
}

// Pool maintains N concurrent job executions drawn from one delivery
// channel. It applies no retry of its own; failed deliveries are handed
// back to the queue's retry/dead-letter policy.
type Pool struct {
	processor   Processor
	concurrency int
}

func New(processor Processor, concurrency int) *Pool {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Pool{processor: processor, concurrency: concurrency}
}

func (p *Pool) Concurrency() int { return p.concurrency }

// Run processes deliveries until the channel closes or ctx is cancelled.
func (p *Pool) Run(ctx context.Context, jobs <-chan queue.Delivery) {
	var wg sync.WaitGroup
	for i := 0; i < p.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for d := range jobs {
				p.handle(ctx, d)
			}
		}()
	}
	wg.Wait()
}

func (p *Pool) handle(ctx context.Context, d queue.Delivery) {
	logger := log.With().
		Str("assetId", d.Job.AssetID).
		Str("mimeType", d.Job.MimeType).
		Int("attempt", d.Attempt).
		Logger()
	logger.Info().Msg("job started")

	start := time.Now()
	err := p.invoke(ctx, d.Job)
	elapsed := time.Since(start)
	jobDuration.Record(ctx, elapsed.Seconds())

	if err != nil {
		jobErrors.Add(ctx, 1)
		logger.Error().Err(err).Dur("elapsed", elapsed).Msg("job failed")
		if ferr := d.Fail(ctx, err); ferr != nil {
			logger.Error().Err(ferr).Msg("failed to hand the job back to the queue")
		}
		return
	}

	jobsProcessed.Add(ctx, 1)
	if aerr := d.Ack(); aerr != nil {
		logger.Error().Err(aerr).Msg("failed to ack the job")
		return
	}
	logger.Info().Dur("elapsed", elapsed).Msg("job completed")
}

// invoke shields the pool from panics inside a strategy.
func (p *Pool) invoke(ctx context.Context, job asset.ProcessingJob) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	_, err = p.processor.Process(ctx, job)
	return err
}
