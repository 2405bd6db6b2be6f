// Package pipeline derives previews from uploaded assets: thumbnails for
// images and videos, transcoded renditions for videos, text extracts for
// PDFs. Each job ends with exactly one terminal metadata write, ready or
// failed, and reruns of the same job overwrite the same derived fields.
package pipeline

import (
	"context"
	"os"
	"path"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"assetworker/pkg/asset"
	"assetworker/pkg/objectstore"
)

const (
	thumbMaxEdge     = 300
	thumbJPEGQuality = 80

	// defaultPresignTTL is the working read window handed to ffmpeg, not
	// the 7-day TTL the serving layer uses for browse links.
	defaultPresignTTL = time.Hour
)

// Notifier publishes per-asset status transitions for external listeners.
// Notifications are best-effort and never gate control flow.
type Notifier interface {
	Publish(ctx context.Context, assetID string, status asset.Status) error
}

// Outcome reports what one successful job produced.
type Outcome struct {
	Kind    Kind
	Derived asset.Derived
}

// Pipeline runs the per-media-kind derivation strategies. All collaborators
// are injected; nothing global.
type Pipeline struct {
	blobs      objectstore.Client
	store      asset.Store
	media      Backend
	notify     Notifier
	presignTTL time.Duration
	tempDir    string
}

// Option adjusts optional Pipeline collaborators and knobs.
type Option func(*Pipeline)

// WithNotifier attaches a status notifier.
func WithNotifier(n Notifier) Option {
	return func(p *Pipeline) { p.notify = n }
}

// WithTempDir overrides where video strategies place intermediate files.
func WithTempDir(dir string) Option {
	return func(p *Pipeline) { p.tempDir = dir }
}

// WithPresignTTL overrides the read-URL lifetime handed to the media tools.
func WithPresignTTL(ttl time.Duration) Option {
	return func(p *Pipeline) { p.presignTTL = ttl }
}

func New(blobs objectstore.Client, store asset.Store, media Backend, opts ...Option) *Pipeline {
	p := &Pipeline{
		blobs:      blobs,
		store:      store,
		media:      media,
		presignTTL: defaultPresignTTL,
		tempDir:    os.TempDir(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process runs one job to its terminal state. On success the asset record
// holds the fresh derived fields and status ready; on any failure the record
// is moved to failed before the error propagates to the worker pool.
func (p *Pipeline) Process(ctx context.Context, job asset.ProcessingJob) (*Outcome, error) {
	if err := job.Validate(); err != nil {
		return nil, &ValidationError{Reason: err.Error()}
	}

	logger := log.With().Str("assetId", job.AssetID).Str("mimeType", job.MimeType).Logger()

	// Explicit in-flight marker so external viewers can tell "never
	// started" from "being worked" after a crash.
	if err := p.store.SetStatus(ctx, job.AssetID, asset.StatusProcessing); err != nil {
		return nil, transient("mark processing", err)
	}
	p.publish(ctx, job.AssetID, asset.StatusProcessing)

	kind := Classify(job.MimeType)
	var (
		derived asset.Derived
		err     error
	)
	switch kind {
	case KindImage:
		derived, err = p.processImage(ctx, job)
	case KindVideo:
		derived, err = p.processVideo(ctx, job)
	case KindDocument:
		derived, err = p.processDocument(ctx, job)
	}
	if err != nil {
		logger.Error().Err(err).Stringer("kind", kind).Msg("derivation failed")
		if serr := p.store.SetStatus(ctx, job.AssetID, asset.StatusFailed); serr != nil {
			logger.Error().Err(serr).Msg("failed to record the failed state")
		}
		p.publish(ctx, job.AssetID, asset.StatusFailed)
		return nil, err
	}

	derived.Status = asset.StatusReady
	if err := p.store.UpdateDerived(ctx, job.AssetID, derived); err != nil {
		if serr := p.store.SetStatus(ctx, job.AssetID, asset.StatusFailed); serr != nil {
			logger.Error().Err(serr).Msg("failed to record the failed state")
		}
		p.publish(ctx, job.AssetID, asset.StatusFailed)
		return nil, transient("persist derived fields", err)
	}
	p.publish(ctx, job.AssetID, asset.StatusReady)

	logger.Info().Stringer("kind", kind).Msg("asset ready")
	return &Outcome{Kind: kind, Derived: derived}, nil
}

func (p *Pipeline) publish(ctx context.Context, assetID string, status asset.Status) {
	if p.notify == nil {
		return
	}
	if err := p.notify.Publish(ctx, assetID, status); err != nil {
		log.Warn().Err(err).Str("assetId", assetID).Msg("failed to publish the status notification")
	}
}

// ThumbnailKey is the deterministic derived key for an asset's thumbnail.
func ThumbnailKey(filename string) string {
	base := strings.TrimSuffix(filename, path.Ext(filename))
	return "thumbnails/thumb_" + base + ".jpg"
}
