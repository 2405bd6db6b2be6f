// Package notify publishes per-asset status transitions over Redis pub/sub
// so interested listeners (UI pushers, audit tooling) can follow a job
// without polling the metadata store.
package notify

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"assetworker/pkg/asset"
)

type notification struct {
	AssetID string       `json:"assetId"`
	Status  asset.Status `json:"status"`
}

// Notifier publishes to one Redis channel. A nil Notifier is valid and
// publishes nothing, so callers without Redis configured can skip the wiring.
type Notifier struct {
	client  *redis.Client
	channel string
}

// New returns nil when dsn is empty; notifications are optional.
func New(dsn, channel string) *Notifier {
	if dsn == "" {
		return nil
	}
	return &Notifier{
		client:  redis.NewClient(&redis.Options{Addr: dsn}),
		channel: channel,
	}
}

func (n *Notifier) Publish(ctx context.Context, assetID string, status asset.Status) error {
	if n == nil {
		return nil
	}
	payload, err := json.Marshal(notification{AssetID: assetID, Status: status})
	if err != nil {
		return err
	}
	return n.client.Publish(ctx, n.channel, payload).Err()
}

func (n *Notifier) Close() error {
	if n == nil {
		return nil
	}
	return n.client.Close()
}
