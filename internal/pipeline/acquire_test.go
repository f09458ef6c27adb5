package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/deemusic/ytmp3-go/internal/artifact"
	apperrors "github.com/deemusic/ytmp3-go/internal/errors"
	"github.com/deemusic/ytmp3-go/internal/extractor"
	"github.com/deemusic/ytmp3-go/internal/identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestAcquire_Success(t *testing.T) {
	env := newTestEnv(t, testProfiles(), nil, false)

	art, err := env.service.Acquire(context.Background(), zap.NewNop(), "req-1", "https://youtu.be/abc123", "My Song", "my_song")
	require.NoError(t, err)

	_, err = os.Stat(art.Path)
	assert.NoError(t, err)
	assert.Equal(t, "my_song.mp3", filepath.Base(art.Path))
	assert.Equal(t, []string{"first"}, env.fake.audioCalls)
	assert.Equal(t, 1, env.pool.Active())
}

func TestAcquire_FallsBackToNextProfile(t *testing.T) {
	fake := &fakeExtractor{
		audioFn: func(ctx context.Context, job extractor.AudioJob, p identity.Profile) error {
			if p.Name == "first" {
				return errors.New("HTTP Error 403: Forbidden")
			}
			return writeArtifact(job)
		},
	}
	env := newTestEnv(t, testProfiles(), fake, false)

	art, err := env.service.Acquire(context.Background(), zap.NewNop(), "req-1", "https://youtu.be/abc123", "My Song", "my_song")
	require.NoError(t, err)

	assert.Equal(t, []string{"first", "second"}, fake.audioCalls)
	assert.Equal(t, "my_song", art.Token)
}

func TestAcquire_ExhaustedReleasesSlot(t *testing.T) {
	fake := &fakeExtractor{
		audioFn: func(ctx context.Context, job extractor.AudioJob, p identity.Profile) error {
			// Leave a partial file behind like an interrupted download would.
			_ = os.WriteFile(filepath.Join(job.OutputDir, job.BaseName+".webm.part"), []byte("x"), 0644)
			return errors.New("exit status 1")
		},
	}
	env := newTestEnv(t, testProfiles(), fake, false)

	_, err := env.service.Acquire(context.Background(), zap.NewNop(), "req-1", "https://youtu.be/abc123", "My Song", "my_song")

	assert.ErrorIs(t, err, apperrors.ErrAcquisitionExhausted)
	assert.Equal(t, "Download failed", apperrors.PublicMessage(err))
	assert.Len(t, fake.audioCalls, testProfiles().Len())
	assert.Empty(t, env.folderEntries(t))
	assert.Equal(t, 0, env.pool.Active())
}

func TestAcquire_ArtifactMissingIsTerminal(t *testing.T) {
	fake := &fakeExtractor{
		audioFn: func(ctx context.Context, job extractor.AudioJob, p identity.Profile) error {
			return nil
		},
	}
	env := newTestEnv(t, testProfiles(), fake, false)

	art, err := env.service.Acquire(context.Background(), zap.NewNop(), "req-1", "https://youtu.be/abc123", "My Song", "my_song")

	assert.Nil(t, art)
	assert.ErrorIs(t, err, apperrors.ErrArtifactMissing)
	assert.NotErrorIs(t, err, apperrors.ErrAcquisitionExhausted)
	assert.Equal(t, []string{"first"}, fake.audioCalls)
	assert.Empty(t, env.folderEntries(t))
}

func TestAcquire_TimeoutLeavesFolderUnchanged(t *testing.T) {
	fake := &fakeExtractor{
		audioFn: func(ctx context.Context, job extractor.AudioJob, p identity.Profile) error {
			<-ctx.Done()
			return ctx.Err()
		},
	}
	env := newTestEnv(t, shortTimeoutProfiles(), fake, false)
	before := env.folderEntries(t)

	_, err := env.service.Acquire(context.Background(), zap.NewNop(), "req-1", "https://youtu.be/abc123", "My Song", "my_song")

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.True(t, appErr.TimedOut)
	assert.Equal(t, before, env.folderEntries(t))
}

func TestAcquire_DuplicateRequestID(t *testing.T) {
	env := newTestEnv(t, testProfiles(), nil, false)

	_, err := env.service.Acquire(context.Background(), zap.NewNop(), "req-1", "https://youtu.be/abc123", "My Song", "my_song")
	require.NoError(t, err)

	_, err = env.service.Acquire(context.Background(), zap.NewNop(), "req-1", "https://youtu.be/abc123", "My Song", "my_song")
	assert.Equal(t, apperrors.ErrTypeFileSystem, apperrors.GetErrorType(err))
	assert.Len(t, env.fake.audioCalls, 1)
}

func TestAcquire_TagsTitle(t *testing.T) {
	env := newTestEnv(t, testProfiles(), nil, true)

	art, err := env.service.Acquire(context.Background(), zap.NewNop(), "req-1", "https://youtu.be/abc123", "Café Song", "caf__song")
	require.NoError(t, err)

	title, err := artifact.Title(art.Path)
	require.NoError(t, err)
	assert.Equal(t, "Café Song", title)
}
