package queue

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"assetworker/pkg/asset"
)

// Publisher enqueues processing jobs on the main queue.
type Publisher struct {
	ch *amqp.Channel
}

func NewPublisher(conn *amqp.Connection) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := DeclareTopology(ch); err != nil {
		ch.Close()
		return nil, fmt.Errorf("declare queues: %w", err)
	}
	return &Publisher{ch: ch}, nil
}

func (p *Publisher) Close() error { return p.ch.Close() }

// Enqueue publishes one job. Image jobs are scheduled ahead of everything
// else; delivery is persistent so a broker restart does not lose work.
func (p *Publisher) Enqueue(ctx context.Context, job asset.ProcessingJob) error {
	if err := job.Validate(); err != nil {
		return fmt.Errorf("invalid job: %w", err)
	}
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	err = p.ch.PublishWithContext(ctx, "", QueueName, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Priority:     amqpPriority(job.Priority()),
		Body:         body,
		Headers:      amqp.Table{attemptsHeader: int32(1)},
	})
	if err != nil {
		return fmt.Errorf("publish job for asset %s: %w", job.AssetID, err)
	}
	return nil
}
