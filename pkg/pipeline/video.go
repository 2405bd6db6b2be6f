package pipeline

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"assetworker/pkg/asset"
)

// thumbnailOffset is where the thumbnail frame is grabbed from.
const thumbnailOffset = time.Second

type rung struct {
	name   string
	height int
}

// ladderRungs lists the fixed resolution ladder, tallest first.
var ladderRungs = []rung{
	{name: "1080p", height: 1080},
	{name: "720p", height: 720},
}

// ladderFor selects the rungs whose target height does not exceed the
// source. A source below the lowest rung gets a single "original" rendition
// at its native resolution (height 0 means no scaling).
func ladderFor(srcHeight int) []rung {
	var out []rung
	for _, r := range ladderRungs {
		if r.height <= srcHeight {
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		out = []rung{{name: "original", height: 0}}
	}
	return out
}

// RenditionKey is the deterministic derived key for one transcoded rung.
// Keying by asset id keeps redeliveries writing over the same objects.
func RenditionKey(assetID, rungName string) string {
	return fmt.Sprintf("videos/%s_%s.mp4", assetID, rungName)
}

// processVideo hands ffmpeg a presigned read URL instead of streaming the
// original through the worker: the tooling wants a seekable source. All
// intermediate files live in one temp directory removed on every exit path.
// Rendition failure is all-or-nothing: one failed rung fails the job and no
// partial quality map is persisted.
func (p *Pipeline) processVideo(ctx context.Context, job asset.ProcessingJob) (asset.Derived, error) {
	url, err := p.blobs.PresignGet(ctx, job.StoragePath, p.presignTTL)
	if err != nil {
		return asset.Derived{}, transient("presign original", err)
	}

	probe, err := p.media.Probe(ctx, url)
	if err != nil {
		return asset.Derived{}, derivation("probe source", err)
	}

	tmpDir, err := os.MkdirTemp(p.tempDir, "assetworker-")
	if err != nil {
		return asset.Derived{}, transient("create temp dir", err)
	}
	defer os.RemoveAll(tmpDir)

	framePath := filepath.Join(tmpDir, "thumb.jpg")
	if err := p.media.ExtractFrame(ctx, url, thumbnailOffset, thumbMaxEdge, framePath); err != nil {
		return asset.Derived{}, derivation("extract thumbnail frame", err)
	}
	thumbKey := ThumbnailKey(job.Filename)
	if err := p.uploadFile(ctx, framePath, thumbKey, "image/jpeg"); err != nil {
		return asset.Derived{}, err
	}

	transcoded := make(map[string]string)
	for _, r := range ladderFor(probe.Height) {
		outPath := filepath.Join(tmpDir, r.name+".mp4")
		if err := p.media.Transcode(ctx, url, r.height, outPath); err != nil {
			return asset.Derived{}, derivation("transcode "+r.name, err)
		}
		key := RenditionKey(job.AssetID, r.name)
		if err := p.uploadFile(ctx, outPath, key, "video/mp4"); err != nil {
			return asset.Derived{}, err
		}
		if err := os.Remove(outPath); err != nil {
			return asset.Derived{}, transient("remove rendition temp file", err)
		}
		transcoded[r.name] = key
	}

	return asset.Derived{
		ThumbnailPath: thumbKey,
		Transcoded:    transcoded,
		Metadata: &asset.Metadata{
			Width:    asset.Int(probe.Width),
			Height:   asset.Int(probe.Height),
			Duration: asset.Int(int(math.Round(probe.Duration))),
		},
	}, nil
}

func (p *Pipeline) uploadFile(ctx context.Context, path, key, contentType string) error {
	f, err := os.Open(path)
	if err != nil {
		return transient("open derivative "+filepath.Base(path), err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return transient("stat derivative "+filepath.Base(path), err)
	}
	if err := p.blobs.Put(ctx, key, f, info.Size(), contentType); err != nil {
		return transient("upload "+key, err)
	}
	return nil
}
