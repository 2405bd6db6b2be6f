package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"assetworker/pkg/asset"
	"assetworker/pkg/objectstore"
)

// fakeBackend stands in for ffmpeg: it writes marker bytes to the requested
// output paths and records everything it touched.
type fakeBackend struct {
	probe ProbeResult

	probeErr   error
	frameErr   error
	failRung   int // height whose transcode fails, 0 disables

	created    []string
	transcodes []int
}

func (f *fakeBackend) Available() error { return nil }

func (f *fakeBackend) Probe(context.Context, string) (ProbeResult, error) {
	if f.probeErr != nil {
		return ProbeResult{}, f.probeErr
	}
	return f.probe, nil
}

func (f *fakeBackend) ExtractFrame(_ context.Context, _ string, _ time.Duration, _ int, outPath string) error {
	if f.frameErr != nil {
		return f.frameErr
	}
	f.created = append(f.created, outPath)
	return os.WriteFile(outPath, []byte("jpeg-frame"), 0o644)
}

func (f *fakeBackend) Transcode(_ context.Context, _ string, height int, outPath string) error {
	if f.failRung != 0 && height == f.failRung {
		return errors.New("codec blew up")
	}
	f.transcodes = append(f.transcodes, height)
	f.created = append(f.created, outPath)
	return os.WriteFile(outPath, []byte(fmt.Sprintf("mp4-%d", height)), 0o644)
}

func assertNoLeftovers(t *testing.T, fake *fakeBackend, tempDir string) {
	t.Helper()
	for _, path := range fake.created {
		_, err := os.Stat(path)
		assert.True(t, os.IsNotExist(err), "temp file left behind: %s", path)
	}
	entries, err := os.ReadDir(tempDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "temp dir not empty after run")
}

func TestLadderFor(t *testing.T) {
	cases := []struct {
		srcHeight int
		want      []string
	}{
		{2160, []string{"1080p", "720p"}},
		{1080, []string{"1080p", "720p"}},
		{1000, []string{"720p"}},
		{720, []string{"720p"}},
		{480, []string{"original"}},
		{1, []string{"original"}},
	}
	for _, tc := range cases {
		var got []string
		for _, r := range ladderFor(tc.srcHeight) {
			got = append(got, r.name)
		}
		assert.Equal(t, tc.want, got, "source height %d", tc.srcHeight)
	}
}

func TestVideoStrategyFullLadder(t *testing.T) {
	blobs := objectstore.NewMemory()
	store := asset.NewMemoryStore()
	fake := &fakeBackend{probe: ProbeResult{Width: 1920, Height: 1080, Duration: 13.6}}
	tempDir := t.TempDir()
	p := New(blobs, store, fake, WithTempDir(tempDir))

	job := seedAsset(t, store, blobs, "v1", "clip.mov", "video/quicktime", []byte("raw video bytes"))

	out, err := p.Process(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, KindVideo, out.Kind)

	a, err := store.Get(context.Background(), "v1")
	require.NoError(t, err)
	assert.Equal(t, asset.StatusReady, a.Status)
	assert.Equal(t, "thumbnails/thumb_clip.jpg", a.ThumbnailPath)
	assert.True(t, blobs.Exists(a.ThumbnailPath))

	require.Len(t, a.Transcoded, 2)
	assert.Equal(t, "videos/v1_1080p.mp4", a.Transcoded["1080p"])
	assert.Equal(t, "videos/v1_720p.mp4", a.Transcoded["720p"])
	assert.True(t, blobs.Exists(a.Transcoded["1080p"]))
	assert.True(t, blobs.Exists(a.Transcoded["720p"]))
	assert.Equal(t, "video/mp4", blobs.ContentType(a.Transcoded["720p"]))
	assert.Equal(t, []int{1080, 720}, fake.transcodes)

	require.NotNil(t, a.Metadata)
	assert.Equal(t, 1920, *a.Metadata.Width)
	assert.Equal(t, 1080, *a.Metadata.Height)
	require.NotNil(t, a.Metadata.Duration)
	assert.Equal(t, 14, *a.Metadata.Duration) // rounded to the nearest second

	assertNoLeftovers(t, fake, tempDir)
}

func TestVideoStrategyLowResFallsBackToOriginal(t *testing.T) {
	blobs := objectstore.NewMemory()
	store := asset.NewMemoryStore()
	fake := &fakeBackend{probe: ProbeResult{Width: 640, Height: 480, Duration: 5.2}}
	tempDir := t.TempDir()
	p := New(blobs, store, fake, WithTempDir(tempDir))

	job := seedAsset(t, store, blobs, "v2", "tiny.mp4", "video/mp4", []byte("raw"))

	_, err := p.Process(context.Background(), job)
	require.NoError(t, err)

	a, err := store.Get(context.Background(), "v2")
	require.NoError(t, err)
	require.Len(t, a.Transcoded, 1)
	assert.Equal(t, "videos/v2_original.mp4", a.Transcoded["original"])
	// height 0 means native resolution, no scale filter.
	assert.Equal(t, []int{0}, fake.transcodes)

	assertNoLeftovers(t, fake, tempDir)
}

func TestVideoStrategyProbeFailureIsHard(t *testing.T) {
	blobs := objectstore.NewMemory()
	store := asset.NewMemoryStore()
	fake := &fakeBackend{probeErr: errors.New("moov atom not found")}
	tempDir := t.TempDir()
	p := New(blobs, store, fake, WithTempDir(tempDir))

	job := seedAsset(t, store, blobs, "v3", "bad.mp4", "video/mp4", []byte("raw"))

	_, err := p.Process(context.Background(), job)
	require.Error(t, err)
	var derr *DerivationError
	assert.ErrorAs(t, err, &derr)

	a, err := store.Get(context.Background(), "v3")
	require.NoError(t, err)
	assert.Equal(t, asset.StatusFailed, a.Status)
	assert.Empty(t, a.ThumbnailPath)
	assertNoLeftovers(t, fake, tempDir)
}

func TestVideoStrategyThumbnailIsMandatory(t *testing.T) {
	blobs := objectstore.NewMemory()
	store := asset.NewMemoryStore()
	fake := &fakeBackend{
		probe:    ProbeResult{Width: 1920, Height: 1080, Duration: 60},
		frameErr: errors.New("cannot seek"),
	}
	tempDir := t.TempDir()
	p := New(blobs, store, fake, WithTempDir(tempDir))

	job := seedAsset(t, store, blobs, "v4", "clip.mp4", "video/mp4", []byte("raw"))

	_, err := p.Process(context.Background(), job)
	require.Error(t, err)

	a, err := store.Get(context.Background(), "v4")
	require.NoError(t, err)
	assert.Equal(t, asset.StatusFailed, a.Status)
	assert.Empty(t, fake.transcodes, "no transcodes after a failed thumbnail")
	assertNoLeftovers(t, fake, tempDir)
}

func TestVideoStrategyRungFailureFailsWholeJob(t *testing.T) {
	blobs := objectstore.NewMemory()
	store := asset.NewMemoryStore()
	fake := &fakeBackend{
		probe:    ProbeResult{Width: 1920, Height: 1080, Duration: 60},
		failRung: 720,
	}
	tempDir := t.TempDir()
	p := New(blobs, store, fake, WithTempDir(tempDir))

	job := seedAsset(t, store, blobs, "v5", "clip.mp4", "video/mp4", []byte("raw"))

	_, err := p.Process(context.Background(), job)
	require.Error(t, err)
	assert.ErrorContains(t, err, "transcode 720p")

	// All-or-nothing: the 1080p rendition succeeded but must not be
	// persisted on the record.
	a, err := store.Get(context.Background(), "v5")
	require.NoError(t, err)
	assert.Equal(t, asset.StatusFailed, a.Status)
	assert.Empty(t, a.Transcoded)
	assertNoLeftovers(t, fake, tempDir)
}
