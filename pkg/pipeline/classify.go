package pipeline

import "strings"

// Kind is the closed set of media kinds the pipeline knows how to derive
// from. Adding a kind means adding a strategy arm, not registering a handler.
type Kind int

const (
	KindImage Kind = iota
	KindVideo
	KindDocument
)

func (k Kind) String() string {
	switch k {
	case KindImage:
		return "image"
	case KindVideo:
		return "video"
	default:
		return "document"
	}
}

// Classify picks a strategy from the declared MIME type's top-level token.
// Everything that is not an image or a video falls through to the document
// strategy, which passes non-PDF inputs straight to ready.
func Classify(mimeType string) Kind {
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return KindImage
	case strings.HasPrefix(mimeType, "video/"):
		return KindVideo
	default:
		return KindDocument
	}
}
