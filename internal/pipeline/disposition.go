package pipeline

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/deemusic/ytmp3-go/internal/artifact"
	"github.com/deemusic/ytmp3-go/internal/security"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ContentDisposition builds the attachment header for an artifact titled
// title. The plain filename parameter is always ASCII; titles that need more
// also carry an RFC 5987 filename* parameter.
func ContentDisposition(title string) string {
	name := security.SanitizeInput(strings.TrimSpace(title))
	if name == "" {
		name = artifact.FallbackToken
	}
	name += "." + artifact.Extension

	fallback := asciiFallback(name)
	value := `attachment; filename="` + quoteEscape(fallback) + `"`
	if fallback != name {
		value += "; filename*=UTF-8''" + encodeExtValue(name)
	}
	return value
}

// asciiFallback strips accents and replaces whatever is still not ASCII
func asciiFallback(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}

	var b strings.Builder
	b.Grow(len(stripped))
	for _, r := range stripped {
		if r > unicode.MaxASCII {
			b.WriteByte('_')
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func quoteEscape(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}

// encodeExtValue percent-encodes every byte outside RFC 5987 attr-char
func encodeExtValue(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isAttrChar(c) {
			b.WriteByte(c)
			continue
		}
		fmt.Fprintf(&b, "%%%02X", c)
	}
	return b.String()
}

func isAttrChar(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	}
	return strings.IndexByte("!#$&+-.^_`|~", c) >= 0
}
