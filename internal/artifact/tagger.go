package artifact

import (
	"fmt"

	"github.com/bogem/id3v2/v2"
)

// Tagger writes the human readable title into an artifact's ID3v2 tag
type Tagger struct {
	enabled bool
}

// NewTagger returns a tagger; a disabled tagger leaves files untouched
func NewTagger(enabled bool) *Tagger {
	return &Tagger{enabled: enabled}
}

// Enabled reports whether tagging is switched on
func (t *Tagger) Enabled() bool {
	return t != nil && t.enabled
}

// SetTitle stores title as the TIT2 frame of the MP3 at filePath
func (t *Tagger) SetTitle(filePath, title string) error {
	if !t.Enabled() || title == "" {
		return nil
	}

	tag, err := id3v2.Open(filePath, id3v2.Options{Parse: true})
	if err != nil {
		return fmt.Errorf("failed to open MP3 file: %w", err)
	}
	defer tag.Close()

	tag.SetDefaultEncoding(id3v2.EncodingUTF8)
	tag.SetTitle(title)

	if err := tag.Save(); err != nil {
		return fmt.Errorf("failed to save ID3 tags: %w", err)
	}
	return nil
}

// Title reads the TIT2 frame back from filePath
func Title(filePath string) (string, error) {
	tag, err := id3v2.Open(filePath, id3v2.Options{Parse: true})
	if err != nil {
		return "", fmt.Errorf("failed to open MP3 file: %w", err)
	}
	defer tag.Close()
	return tag.Title(), nil
}
