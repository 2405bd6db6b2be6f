package pipeline

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"
	"io"

	"golang.org/x/image/draw"

	// Decoders for the formats uploads actually arrive in.
	_ "image/gif"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"assetworker/pkg/asset"
)

// processImage decodes the original fully in memory (the upload size
// ceiling is enforced upstream), produces one bounded thumbnail, and
// records the source dimensions. Duration stays null for images.
func (p *Pipeline) processImage(ctx context.Context, job asset.ProcessingJob) (asset.Derived, error) {
	rc, err := p.blobs.Get(ctx, job.StoragePath)
	if err != nil {
		return asset.Derived{}, transient("download original", err)
	}
	data, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		return asset.Derived{}, transient("read original", err)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return asset.Derived{}, derivation("decode image", err)
	}

	bounds := img.Bounds()
	srcW, srcH := bounds.Dx(), bounds.Dy()

	thumbW, thumbH := fitWithin(srcW, srcH, thumbMaxEdge)
	thumb := img
	if thumbW != srcW || thumbH != srcH {
		dst := image.NewRGBA(image.Rect(0, 0, thumbW, thumbH))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		thumb = dst
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: thumbJPEGQuality}); err != nil {
		return asset.Derived{}, derivation("encode thumbnail", err)
	}

	key := ThumbnailKey(job.Filename)
	if err := p.blobs.Put(ctx, key, &buf, int64(buf.Len()), "image/jpeg"); err != nil {
		return asset.Derived{}, transient("upload thumbnail", err)
	}

	return asset.Derived{
		ThumbnailPath: key,
		Metadata: &asset.Metadata{
			Width:  asset.Int(srcW),
			Height: asset.Int(srcH),
		},
	}, nil
}

// fitWithin shrinks w×h to fit inside a max×max box, preserving aspect
// ratio and never upscaling.
func fitWithin(w, h, max int) (int, int) {
	if w <= max && h <= max {
		return w, h
	}
	if w >= h {
		scaled := (h*max + w/2) / w
		if scaled < 1 {
			scaled = 1
		}
		return max, scaled
	}
	scaled := (w*max + h/2) / h
	if scaled < 1 {
		scaled = 1
	}
	return scaled, max
}
