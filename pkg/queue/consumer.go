package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"

	"assetworker/pkg/asset"
)

// Consumer pulls jobs off the main queue and applies the retry policy when
// a delivery fails. Malformed payloads go straight to the dead-letter queue
// without redelivery.
type Consumer struct {
	ch *amqp.Channel
}

// NewConsumer opens a channel with the given prefetch window. Prefetch
// should match the worker pool's concurrency so the broker never hands this
// process more jobs than it can run.
func NewConsumer(conn *amqp.Connection, prefetch int) (*Consumer, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := DeclareTopology(ch); err != nil {
		ch.Close()
		return nil, fmt.Errorf("declare queues: %w", err)
	}
	if err := ch.Qos(prefetch, 0, false); err != nil {
		ch.Close()
		return nil, fmt.Errorf("set qos: %w", err)
	}
	return &Consumer{ch: ch}, nil
}

func (c *Consumer) Close() error { return c.ch.Close() }

// Deliveries starts consuming and returns a channel of validated jobs. The
// channel closes when ctx is cancelled or the broker connection drops.
func (c *Consumer) Deliveries(ctx context.Context) (<-chan Delivery, error) {
	msgs, err := c.ch.ConsumeWithContext(ctx, QueueName, "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("consume %s: %w", QueueName, err)
	}

	out := make(chan Delivery)
	go func() {
		defer close(out)
		for msg := range msgs {
			d, ok := c.decode(msg)
			if !ok {
				continue
			}
			select {
			case out <- d:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (c *Consumer) decode(msg amqp.Delivery) (Delivery, bool) {
	var job asset.ProcessingJob
	if err := json.Unmarshal(msg.Body, &job); err != nil {
		c.bury(msg, fmt.Errorf("unmarshal payload: %w", err))
		return Delivery{}, false
	}
	if err := job.Validate(); err != nil {
		c.bury(msg, err)
		return Delivery{}, false
	}

	attempt := attemptFrom(msg.Headers)
	return Delivery{
		Job:     job,
		Attempt: attempt,
		ack:     func() error { return msg.Ack(false) },
		fail: func(ctx context.Context, cause error) error {
			return c.retryOrBury(ctx, msg, attempt, cause)
		},
	}, true
}

// retryOrBury republishes a failed job to the retry queue with its backoff
// as a per-message TTL, or to the dead-letter queue once attempts run out.
// The original delivery is acked either way; redelivery happens through the
// retry queue's dead-letter routing, not a broker requeue.
func (c *Consumer) retryOrBury(ctx context.Context, msg amqp.Delivery, attempt int, cause error) error {
	var perm interface{ Permanent() bool }
	if errors.As(cause, &perm) && perm.Permanent() {
		c.bury(msg, cause)
		return nil
	}
	if attempt >= MaxAttempts {
		c.bury(msg, fmt.Errorf("attempts exhausted: %w", cause))
		return nil
	}

	// RabbitMQ expires only the head of a queue, so a longer-TTL message
	// ahead of a shorter one can hold it past its backoff. With a single
	// retry queue and a 2s/4s/8s ladder that means late, never lost. Split
	// into per-delay retry queues if the ladder grows.
	delay := Backoff(attempt)
	err := c.ch.PublishWithContext(ctx, "", RetryQueueName, false, false, amqp.Publishing{
		ContentType:  msg.ContentType,
		DeliveryMode: amqp.Persistent,
		Priority:     msg.Priority,
		Expiration:   strconv.FormatInt(delay.Milliseconds(), 10),
		Body:         msg.Body,
		Headers:      amqp.Table{attemptsHeader: int32(attempt + 1)},
	})
	if err != nil {
		// Leave the message unacked so the broker redelivers it; better a
		// prompt retry than a lost job.
		return fmt.Errorf("schedule retry: %w", err)
	}
	if err := msg.Ack(false); err != nil {
		return fmt.Errorf("ack after retry publish: %w", err)
	}
	log.Warn().Int("attempt", attempt).Dur("backoff", delay).Err(cause).Msg("job scheduled for retry")
	return nil
}

func (c *Consumer) bury(msg amqp.Delivery, reason error) {
	err := c.ch.PublishWithContext(context.Background(), "", DeadQueueName, false, false, amqp.Publishing{
		ContentType:  msg.ContentType,
		DeliveryMode: amqp.Persistent,
		Body:         msg.Body,
		Headers:      amqp.Table{reasonHeader: reason.Error()},
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to publish to the dead-letter queue")
		if nackErr := msg.Nack(false, true); nackErr != nil {
			log.Error().Err(nackErr).Msg("failed to nack the message")
		}
		return
	}
	if err := msg.Ack(false); err != nil {
		log.Error().Err(err).Msg("failed to ack the buried message")
	}
	log.Error().Err(reason).Msg("job dead-lettered")
}

func attemptFrom(headers amqp.Table) int {
	v, ok := headers[attemptsHeader]
	if !ok {
		return 1
	}
	switch n := v.(type) {
	case int32:
		return int(n)
	case int64:
		return int(n)
	case int:
		return n
	default:
		return 1
	}
}
