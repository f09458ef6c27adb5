// Package artifact owns the files produced by the extractor: their names,
// the per-request scratch directories they live in and their tags.
package artifact

import "strings"

const (
	// FallbackToken is used when a title leaves nothing to build a name from
	FallbackToken = "audio"
	// MaxTokenLength caps the sanitized token in bytes
	MaxTokenLength = 120
	// Extension of every delivered artifact
	Extension = "mp3"
)

// Sanitize maps a media title to a filesystem-safe token: every rune outside
// [a-zA-Z0-9] becomes '_' and the result is lower-cased.
func Sanitize(title string) string {
	var b strings.Builder
	b.Grow(len(title))

	for _, r := range title {
		if b.Len() >= MaxTokenLength {
			break
		}
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		default:
			b.WriteByte('_')
		}
	}

	if b.Len() == 0 {
		return FallbackToken
	}
	return b.String()
}

// FileName returns the artifact file name for token
func FileName(token string) string {
	return token + "." + Extension
}
