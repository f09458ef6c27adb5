// Package source prepares user supplied media URLs for the extractor.
package source

import "strings"

// Query markers that put a single-item link into a playlist or radio context.
var collectionMarkers = []string{
	"&list=",
	"&start_radio=",
}

// Normalize strips playlist and radio parameters from rawURL so the extractor
// targets a single item. When a marker is present everything from the first
// '&' onwards is dropped; otherwise rawURL is returned unchanged.
func Normalize(rawURL string) string {
	if !HasCollectionMarker(rawURL) {
		return rawURL
	}
	if i := strings.IndexByte(rawURL, '&'); i >= 0 {
		return rawURL[:i]
	}
	return rawURL
}

// HasCollectionMarker reports whether rawURL carries a playlist or radio marker
func HasCollectionMarker(rawURL string) bool {
	for _, marker := range collectionMarkers {
		if strings.Contains(rawURL, marker) {
			return true
		}
	}
	return false
}
