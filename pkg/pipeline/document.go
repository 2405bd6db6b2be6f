package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/ledongthuc/pdf"

	"assetworker/pkg/asset"
)

const textPreviewLimit = 1000

// processDocument gives PDFs a text extract; every other document type is
// intentional passthrough, accepted with no derivative and moved straight
// to ready.
func (p *Pipeline) processDocument(ctx context.Context, job asset.ProcessingJob) (asset.Derived, error) {
	if job.MimeType != "application/pdf" {
		return asset.Derived{}, nil
	}

	rc, err := p.blobs.Get(ctx, job.StoragePath)
	if err != nil {
		return asset.Derived{}, transient("download original", err)
	}
	data, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		return asset.Derived{}, transient("read original", err)
	}

	pages, text, err := extractPDF(data)
	if err != nil {
		return asset.Derived{}, derivation("extract pdf", err)
	}

	preview, length := previewOf(text)
	return asset.Derived{
		Metadata: &asset.Metadata{
			Pages:       asset.Int(pages),
			TextLength:  asset.Int(length),
			TextPreview: preview,
		},
	}, nil
}

// previewOf bounds the stored text to the first textPreviewLimit characters
// and reports the full extracted length. Counting is by rune so multi-byte
// text is not cut mid-character.
func previewOf(text string) (string, int) {
	runes := []rune(text)
	if len(runes) <= textPreviewLimit {
		return text, len(runes)
	}
	return string(runes[:textPreviewLimit]), len(runes)
}

// extractPDF returns the page count and full plain text. The pdf package
// panics on some malformed files, so the recover converts that into a
// normal extraction error.
func extractPDF(data []byte) (pages int, text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf parse panic: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, "", fmt.Errorf("open pdf: %w", err)
	}
	pages = reader.NumPage()

	textReader, err := reader.GetPlainText()
	if err != nil {
		return 0, "", fmt.Errorf("extract text: %w", err)
	}
	raw, err := io.ReadAll(textReader)
	if err != nil {
		return 0, "", fmt.Errorf("read extracted text: %w", err)
	}
	return pages, string(raw), nil
}
