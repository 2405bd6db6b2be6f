package asset

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessingJobValidate(t *testing.T) {
	good := ProcessingJob{
		AssetID:     "a",
		StoragePath: "assets/a.png",
		MimeType:    "image/png",
		Filename:    "a.png",
	}
	assert.NoError(t, good.Validate())

	for _, tc := range []struct {
		name string
		job  ProcessingJob
	}{
		{"missing assetId", ProcessingJob{StoragePath: "p", MimeType: "m", Filename: "f"}},
		{"missing storagePath", ProcessingJob{AssetID: "a", MimeType: "m", Filename: "f"}},
		{"missing mimeType", ProcessingJob{AssetID: "a", StoragePath: "p", Filename: "f"}},
		{"missing filename", ProcessingJob{AssetID: "a", StoragePath: "p", MimeType: "m"}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			assert.Error(t, tc.job.Validate())
		})
	}
}

func TestMemoryStoreDerivedOverwrite(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Create(ctx, &Asset{
		ID:          "a1",
		StoragePath: "assets/a1.mp4",
		Status:      StatusUploading,
		UserID:      "u1",
		TeamID:      "t1",
		Channels:    []string{"marketing"},
	}))

	require.NoError(t, store.UpdateDerived(ctx, "a1", Derived{
		ThumbnailPath: "thumbnails/thumb_a1.jpg",
		Transcoded:    map[string]string{"720p": "videos/a1_720p.mp4"},
		Metadata:      &Metadata{Width: Int(1280), Height: Int(720), Duration: Int(9)},
		Status:        StatusReady,
	}))

	a, err := store.Get(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, StatusReady, a.Status)
	assert.Equal(t, "thumbnails/thumb_a1.jpg", a.ThumbnailPath)

	// Ownership fields survive a derived write untouched.
	assert.Equal(t, "u1", a.UserID)
	assert.Equal(t, "t1", a.TeamID)
	assert.Equal(t, []string{"marketing"}, a.Channels)

	// A second derived write replaces, never accumulates.
	require.NoError(t, store.UpdateDerived(ctx, "a1", Derived{
		Metadata: &Metadata{Pages: Int(3)},
		Status:   StatusReady,
	}))
	a, err = store.Get(ctx, "a1")
	require.NoError(t, err)
	assert.Empty(t, a.ThumbnailPath)
	assert.Empty(t, a.Transcoded)
	assert.Nil(t, a.Metadata.Width)
}

func TestMemoryStoreNotFound(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.Get(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.SetStatus(ctx, "nope", StatusReady), ErrNotFound)
	assert.ErrorIs(t, store.UpdateDerived(ctx, "nope", Derived{}), ErrNotFound)
}
