package pipeline

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"assetworker/pkg/asset"
	"assetworker/pkg/objectstore"
)

func TestDocumentStrategyPassthrough(t *testing.T) {
	blobs := objectstore.NewMemory()
	store := asset.NewMemoryStore()
	p := New(blobs, store, nil)

	job := seedAsset(t, store, blobs, "d1", "archive.zip", "application/zip", []byte{0x50, 0x4b, 0x03, 0x04})

	out, err := p.Process(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, KindDocument, out.Kind)

	a, err := store.Get(context.Background(), "d1")
	require.NoError(t, err)
	assert.Equal(t, asset.StatusReady, a.Status)
	assert.Empty(t, a.ThumbnailPath)
	assert.Empty(t, a.Transcoded)
	assert.Nil(t, a.Metadata)

	// No derivative artifacts: the only stored object is the original.
	assert.Equal(t, []string{job.StoragePath}, blobs.Keys())
}

func TestDocumentStrategyCorruptPDFFails(t *testing.T) {
	blobs := objectstore.NewMemory()
	store := asset.NewMemoryStore()
	p := New(blobs, store, nil)

	job := seedAsset(t, store, blobs, "d2", "report.pdf", "application/pdf", []byte("%PDF-1.4 truncated garbage"))

	_, err := p.Process(context.Background(), job)
	require.Error(t, err)
	var derr *DerivationError
	assert.ErrorAs(t, err, &derr)

	a, err := store.Get(context.Background(), "d2")
	require.NoError(t, err)
	assert.Equal(t, asset.StatusFailed, a.Status)
	assert.Nil(t, a.Metadata)
}

func TestPreviewOf(t *testing.T) {
	short, n := previewOf("hello")
	assert.Equal(t, "hello", short)
	assert.Equal(t, 5, n)

	// The cap counts runes, not bytes, so multi-byte text is not cut
	// mid-character.
	long := strings.Repeat("é", 1500)
	preview, length := previewOf(long)
	assert.Equal(t, 1500, length)
	assert.Equal(t, strings.Repeat("é", textPreviewLimit), preview)
}
