// Package ingest is the producer side of the pipeline: it stores the
// original bytes, creates the asset record in its initial state, and
// enqueues exactly one processing job. The HTTP surface that calls it lives
// elsewhere.
package ingest

import (
	"context"
	"fmt"
	"io"
	"path"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"assetworker/pkg/asset"
	"assetworker/pkg/objectstore"
)

// Enqueuer is the queue's producer contract.
type Enqueuer interface {
	Enqueue(ctx context.Context, job asset.ProcessingJob) error
}

// Upload describes one incoming file and its ownership.
type Upload struct {
	OriginalName string
	MimeType     string
	Size         int64
	Body         io.Reader

	UserID    string
	TeamID    string
	ProjectID string
	Channels  []string
}

type Ingestor struct {
	blobs objectstore.Client
	store asset.Store
	jobs  Enqueuer
}

func New(blobs objectstore.Client, store asset.Store, jobs Enqueuer) *Ingestor {
	return &Ingestor{blobs: blobs, store: store, jobs: jobs}
}

// Ingest writes the original object under assets/<uuid><ext>, creates the
// metadata record in state uploading, and enqueues the processing job. The
// returned record is what the pipeline will later finish or fail.
func (i *Ingestor) Ingest(ctx context.Context, up Upload) (*asset.Asset, error) {
	id := uuid.NewString()
	filename := id + path.Ext(up.OriginalName)
	storagePath := "assets/" + filename

	if err := i.blobs.Put(ctx, storagePath, up.Body, up.Size, up.MimeType); err != nil {
		return nil, fmt.Errorf("store original: %w", err)
	}

	record := &asset.Asset{
		ID:           id,
		Filename:     filename,
		OriginalName: up.OriginalName,
		MimeType:     up.MimeType,
		Size:         up.Size,
		StoragePath:  storagePath,
		Status:       asset.StatusUploading,
		Tags:         GenerateTags(up.OriginalName, up.MimeType),
		UserID:       up.UserID,
		TeamID:       up.TeamID,
		ProjectID:    up.ProjectID,
		Channels:     lowercaseAll(up.Channels),
	}
	if err := i.store.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("create asset record: %w", err)
	}

	job := asset.ProcessingJob{
		AssetID:     id,
		StoragePath: storagePath,
		MimeType:    up.MimeType,
		Filename:    filename,
		TeamID:      up.TeamID,
		ProjectID:   up.ProjectID,
	}
	if err := i.jobs.Enqueue(ctx, job); err != nil {
		return nil, fmt.Errorf("enqueue processing job: %w", err)
	}

	log.Info().Str("assetId", id).Str("mimeType", up.MimeType).Int64("size", up.Size).Msg("asset ingested")
	return record, nil
}
