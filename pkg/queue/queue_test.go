package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"assetworker/pkg/asset"
)

func TestBackoff(t *testing.T) {
	assert.Equal(t, 2*time.Second, Backoff(1))
	assert.Equal(t, 4*time.Second, Backoff(2))
	assert.Equal(t, 8*time.Second, Backoff(3))
	assert.Equal(t, 2*time.Second, Backoff(0), "attempt clamps to 1")
}

func TestAmqpPriority(t *testing.T) {
	image := asset.ProcessingJob{MimeType: "image/png"}
	video := asset.ProcessingJob{MimeType: "video/mp4"}
	doc := asset.ProcessingJob{MimeType: "application/pdf"}

	assert.Equal(t, asset.PriorityImage, image.Priority())
	assert.Equal(t, asset.PriorityDefault, video.Priority())
	assert.Equal(t, asset.PriorityDefault, doc.Priority())

	// RabbitMQ schedules higher numbers first, so images must map above
	// everything else.
	assert.Greater(t, amqpPriority(image.Priority()), amqpPriority(video.Priority()))
}

func TestPayloadWireFormat(t *testing.T) {
	job := asset.ProcessingJob{
		AssetID:     "abc",
		StoragePath: "assets/abc.png",
		MimeType:    "image/png",
		Filename:    "abc.png",
		TeamID:      "team-1",
	}
	body, err := json.Marshal(job)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(body, &raw))
	assert.Equal(t, "abc", raw["assetId"])
	assert.Equal(t, "assets/abc.png", raw["storagePath"])
	assert.Equal(t, "image/png", raw["mimeType"])
	assert.Equal(t, "abc.png", raw["filename"])
	assert.Equal(t, "team-1", raw["teamId"])
	assert.NotContains(t, raw, "projectId", "empty optional fields stay off the wire")
}

func TestAttemptFrom(t *testing.T) {
	assert.Equal(t, 1, attemptFrom(nil))
	assert.Equal(t, 1, attemptFrom(amqp.Table{}))
	assert.Equal(t, 2, attemptFrom(amqp.Table{attemptsHeader: int32(2)}))
	assert.Equal(t, 3, attemptFrom(amqp.Table{attemptsHeader: int64(3)}))
	assert.Equal(t, 1, attemptFrom(amqp.Table{attemptsHeader: "bogus"}))
}

func TestDeliveryCallbacks(t *testing.T) {
	var acked bool
	var failedWith error
	d := NewDelivery(asset.ProcessingJob{AssetID: "a"}, 1,
		func() error { acked = true; return nil },
		func(_ context.Context, cause error) error { failedWith = cause; return nil },
	)

	require.NoError(t, d.Ack())
	assert.True(t, acked)

	cause := errors.New("boom")
	require.NoError(t, d.Fail(context.Background(), cause))
	assert.Equal(t, cause, failedWith)

	// A zero Delivery is inert, not a panic.
	var zero Delivery
	assert.NoError(t, zero.Ack())
	assert.NoError(t, zero.Fail(context.Background(), cause))
}
