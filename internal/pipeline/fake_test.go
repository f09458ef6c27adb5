package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/deemusic/ytmp3-go/internal/artifact"
	"github.com/deemusic/ytmp3-go/internal/extractor"
	"github.com/deemusic/ytmp3-go/internal/identity"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const fakeAudio = "fake mp3 frames"

// fakeExtractor records every invocation and delegates to optional hooks
type fakeExtractor struct {
	mu         sync.Mutex
	titleCalls []string
	audioCalls []string
	titleURLs  []string
	audioJobs  []extractor.AudioJob
	titleFn    func(ctx context.Context, url string, p identity.Profile) (string, error)
	audioFn    func(ctx context.Context, job extractor.AudioJob, p identity.Profile) error
}

func (f *fakeExtractor) Title(ctx context.Context, url string, p identity.Profile) (string, error) {
	f.mu.Lock()
	f.titleCalls = append(f.titleCalls, p.Name)
	f.titleURLs = append(f.titleURLs, url)
	f.mu.Unlock()

	if f.titleFn != nil {
		return f.titleFn(ctx, url, p)
	}
	return "My Song", nil
}

func (f *fakeExtractor) ExtractAudio(ctx context.Context, job extractor.AudioJob, p identity.Profile) error {
	f.mu.Lock()
	f.audioCalls = append(f.audioCalls, p.Name)
	f.audioJobs = append(f.audioJobs, job)
	f.mu.Unlock()

	if f.audioFn != nil {
		return f.audioFn(ctx, job, p)
	}
	return writeArtifact(job)
}

func (f *fakeExtractor) calls() (title, audio int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.titleCalls), len(f.audioCalls)
}

func writeArtifact(job extractor.AudioJob) error {
	return os.WriteFile(filepath.Join(job.OutputDir, job.BaseName+"."+job.Format), []byte(fakeAudio), 0644)
}

func testProfiles() identity.Set {
	return identity.MustSet(
		identity.Profile{
			Name:               "first",
			UserAgent:          "UA/1",
			MinDelaySeconds:    2,
			MaxDelaySeconds:    5,
			MetadataTimeout:    time.Second,
			AcquisitionTimeout: 2 * time.Second,
		},
		identity.Profile{
			Name:               "second",
			UserAgent:          "UA/2",
			MinDelaySeconds:    3,
			MaxDelaySeconds:    7,
			MetadataTimeout:    time.Second,
			AcquisitionTimeout: 2 * time.Second,
		},
	)
}

func shortTimeoutProfiles() identity.Set {
	return identity.MustSet(
		identity.Profile{
			Name:               "first",
			UserAgent:          "UA/1",
			MetadataTimeout:    20 * time.Millisecond,
			AcquisitionTimeout: 20 * time.Millisecond,
		},
		identity.Profile{
			Name:               "second",
			UserAgent:          "UA/2",
			MetadataTimeout:    30 * time.Millisecond,
			AcquisitionTimeout: 30 * time.Millisecond,
		},
	)
}

type testEnv struct {
	service *Service
	fake    *fakeExtractor
	pool    *artifact.Pool
}

func newTestEnv(t *testing.T, profiles identity.Set, fake *fakeExtractor, tagTitle bool) *testEnv {
	t.Helper()
	pool, err := artifact.NewPool(filepath.Join(t.TempDir(), "downloads"), zap.NewNop())
	require.NoError(t, err)

	if fake == nil {
		fake = &fakeExtractor{}
	}
	return &testEnv{
		service: New(Options{
			Extractor: fake,
			Profiles:  profiles,
			Pool:      pool,
			Tagger:    artifact.NewTagger(tagTitle),
			Logger:    zap.NewNop(),
		}),
		fake: fake,
		pool: pool,
	}
}

func (e *testEnv) folderEntries(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(e.pool.Root())
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return names
}
