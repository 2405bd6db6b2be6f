package asset

import "time"

// Status tracks an asset through its processing lifecycle. The ingestion
// path sets Uploading; the derivation pipeline owns the two terminal states.
type Status string

const (
	StatusUploading  Status = "uploading"
	StatusProcessing Status = "processing"
	StatusReady      Status = "ready"
	StatusFailed     Status = "failed"
)

// Metadata holds the derived facts about an asset. Which fields are set
// depends on the media kind: width/height for images and videos, duration
// for videos, pages and text for PDFs. Duration serializes as null when not
// applicable so consumers can tell "no duration" from "zero duration".
type Metadata struct {
	Width       *int   `json:"width,omitempty"`
	Height      *int   `json:"height,omitempty"`
	Duration    *int   `json:"duration"`
	Pages       *int   `json:"pages,omitempty"`
	TextLength  *int   `json:"textLength,omitempty"`
	TextPreview string `json:"textPreview,omitempty"`
}

// Asset is the persisted record for one uploaded file.
//
// StoragePath is set once at creation and never touched afterwards. The
// pipeline owns only the derived fields (ThumbnailPath, Transcoded, Metadata,
// Status); ownership and classification fields pass through untouched.
type Asset struct {
	ID            string            `json:"id"`
	Filename      string            `json:"filename"`
	OriginalName  string            `json:"originalName"`
	MimeType      string            `json:"mimeType"`
	Size          int64             `json:"size"`
	StoragePath   string            `json:"storagePath"`
	ThumbnailPath string            `json:"thumbnailPath,omitempty"`
	Transcoded    map[string]string `json:"transcoded,omitempty"`
	Metadata      *Metadata         `json:"metadata,omitempty"`
	Status        Status            `json:"status"`
	Tags          []string          `json:"tags,omitempty"`
	Description   string            `json:"description,omitempty"`
	DownloadCount int64             `json:"downloadCount"`
	UserID        string            `json:"userId"`
	TeamID        string            `json:"teamId,omitempty"`
	ProjectID     string            `json:"projectId,omitempty"`
	Channels      []string          `json:"channels,omitempty"`
	CreatedAt     time.Time         `json:"createdAt"`
	UpdatedAt     time.Time         `json:"updatedAt"`
}

// Derived is the complete replacement value for the pipeline-owned fields.
// Every run writes the whole set, so reapplying the same job is a no-op in
// effect (at-least-once delivery safety).
type Derived struct {
	ThumbnailPath string
	Transcoded    map[string]string
	Metadata      *Metadata
	Status        Status
}

// Int returns a pointer to v, for building Metadata values.
func Int(v int) *int { return &v }
