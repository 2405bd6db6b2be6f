// Package queue carries processing jobs from the ingestion path to the
// worker pool over RabbitMQ, with at-least-once delivery, priority
// scheduling, exponential retry backoff, and a dead-letter queue for jobs
// that exhaust their attempts.
package queue

import (
	"context"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"assetworker/pkg/asset"
)

const (
	// QueueName is the main work queue.
	QueueName = "asset-processing"
	// RetryQueueName parks failed jobs until their backoff expires, then
	// dead-letters them back onto the main queue.
	RetryQueueName = "asset-processing.retry"
	// DeadQueueName holds jobs that exhausted all attempts or carried a
	// malformed payload. Nothing consumes it automatically.
	DeadQueueName = "asset-processing.dead"

	// MaxAttempts is the total number of tries a job gets before it is
	// dead-lettered.
	MaxAttempts = 3

	attemptsHeader = "x-attempts"
	reasonHeader   = "x-dead-reason"

	maxPriority = 10
)

const baseBackoff = 2 * time.Second

// Backoff returns how long a job waits before its next try after failing
// the given attempt (1-based): 2s after the first attempt, doubling each
// attempt after that.
func Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return baseBackoff << (attempt - 1)
}

// DeclareTopology declares the three queues. Idempotent; both the publisher
// and the consumer call it so either side can start first.
func DeclareTopology(ch *amqp.Channel) error {
	if _, err := ch.QueueDeclare(QueueName, true, false, false, false, amqp.Table{
		"x-max-priority": int32(maxPriority),
	}); err != nil {
		return err
	}
	if _, err := ch.QueueDeclare(RetryQueueName, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": QueueName,
	}); err != nil {
		return err
	}
	_, err := ch.QueueDeclare(DeadQueueName, true, false, false, false, nil)
	return err
}

// amqpPriority maps the job contract's priority (1 = image, most urgent) to
// RabbitMQ's scale, where higher numbers are scheduled first.
func amqpPriority(p int) uint8 {
	if p == asset.PriorityImage {
		return 2
	}
	return 1
}

// Delivery is one dequeued job. Ack removes it from the queue; Fail hands it
// to the retry/dead-letter policy. Exactly one of the two must be called.
type Delivery struct {
	Job     asset.ProcessingJob
	Attempt int

	ack  func() error
	fail func(ctx context.Context, cause error) error
}

// NewDelivery builds a Delivery with explicit ack/fail behavior, for
// alternate job sources and tests.
func NewDelivery(job asset.ProcessingJob, attempt int, ack func() error, fail func(context.Context, error) error) Delivery {
	return Delivery{Job: job, Attempt: attempt, ack: ack, fail: fail}
}

func (d Delivery) Ack() error {
	if d.ack == nil {
		return nil
	}
	return d.ack()
}

func (d Delivery) Fail(ctx context.Context, cause error) error {
	if d.fail == nil {
		return nil
	}
	return d.fail(ctx, cause)
}
