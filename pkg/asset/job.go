package asset

import (
	"errors"
	"fmt"
	"strings"
)

// Queue scheduling hints. Image jobs jump the line because thumbnailing is
// cheap and latency-sensitive; everything else shares one priority class.
const (
	PriorityImage   = 1
	PriorityDefault = 2
)

// ProcessingJob is the queue payload linking a queued job back to its asset
// record and original object. Team/project ids are propagated for downstream
// consumers; the pipeline itself never interprets them.
type ProcessingJob struct {
	AssetID     string `json:"assetId"`
	StoragePath string `json:"storagePath"`
	MimeType    string `json:"mimeType"`
	Filename    string `json:"filename"`
	TeamID      string `json:"teamId,omitempty"`
	ProjectID   string `json:"projectId,omitempty"`
}

var errMissingField = errors.New("missing required field")

// Validate rejects payloads that cannot be processed. Malformed jobs are
// dead-lettered at dequeue time instead of failing deep inside a strategy.
func (j ProcessingJob) Validate() error {
	switch {
	case j.AssetID == "":
		return fmt.Errorf("%w: assetId", errMissingField)
	case j.StoragePath == "":
		return fmt.Errorf("%w: storagePath", errMissingField)
	case j.MimeType == "":
		return fmt.Errorf("%w: mimeType", errMissingField)
	case j.Filename == "":
		return fmt.Errorf("%w: filename", errMissingField)
	}
	return nil
}

// Priority returns the enqueue priority for the job's media kind.
func (j ProcessingJob) Priority() int {
	if strings.HasPrefix(j.MimeType, "image/") {
		return PriorityImage
	}
	return PriorityDefault
}
