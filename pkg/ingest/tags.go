package ingest

import "strings"

const maxNameTags = 5

// GenerateTags derives searchable tags from the original filename and MIME
// type: a kind tag, the format, and up to five words from the name.
func GenerateTags(filename, mimeType string) []string {
	var tags []string

	switch {
	case strings.HasPrefix(mimeType, "image/"):
		tags = append(tags, "image")
	case strings.HasPrefix(mimeType, "video/"):
		tags = append(tags, "video")
	case strings.HasPrefix(mimeType, "audio/"):
		tags = append(tags, "audio")
	default:
		tags = append(tags, "document")
	}

	if _, format, ok := strings.Cut(mimeType, "/"); ok && format != "" {
		tags = append(tags, format)
	}

	cleaned := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}
		return ' '
	}, strings.ToLower(filename))

	count := 0
	for _, word := range strings.Fields(cleaned) {
		if len(word) <= 2 {
			continue
		}
		tags = append(tags, word)
		count++
		if count == maxNameTags {
			break
		}
	}

	return dedupe(tags)
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := in[:0]
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func lowercaseAll(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	return out
}
