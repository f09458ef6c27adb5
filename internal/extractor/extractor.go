// Package extractor wraps the external media extraction tool. Callers see two
// operations, title lookup and audio extraction, each run as one subprocess
// bound to the caller's context.
package extractor

import (
	"context"
	"errors"
	"path/filepath"

	"github.com/deemusic/ytmp3-go/internal/identity"
)

// AudioJob describes one audio extraction
type AudioJob struct {
	SourceURL string
	OutputDir string
	// BaseName is the file name without extension
	BaseName string
	// Format is the target audio codec, "mp3" unless set otherwise
	Format string
}

// OutputTemplate returns the output path with the extension left to the tool
func (j AudioJob) OutputTemplate() string {
	return filepath.Join(j.OutputDir, j.BaseName+".%(ext)s")
}

// Extractor is the contract the pipeline relies on
type Extractor interface {
	// Title returns the media title of url using profile's fingerprint
	Title(ctx context.Context, url string, profile identity.Profile) (string, error)
	// ExtractAudio downloads and transcodes the audio of job.SourceURL
	ExtractAudio(ctx context.Context, job AudioJob, profile identity.Profile) error
}

var (
	// ErrEmptyTitle is returned when the tool exits cleanly without printing a title
	ErrEmptyTitle = errors.New("extractor returned an empty title")
	// ErrNotInstalled is returned by Probe when the binary cannot be found
	ErrNotInstalled = errors.New("extractor binary not found")
)
