package pipeline

import (
	"context"
	"os"
	"time"

	"github.com/deemusic/ytmp3-go/internal/artifact"
	apperrors "github.com/deemusic/ytmp3-go/internal/errors"
	"github.com/deemusic/ytmp3-go/internal/extractor"
	"github.com/deemusic/ytmp3-go/internal/identity"
	"github.com/deemusic/ytmp3-go/internal/monitoring"
	"go.uber.org/zap"
)

// Artifact is an acquired MP3 waiting for delivery
type Artifact struct {
	Path  string
	Title string
	Token string
	slot  artifact.Slot
}

// Acquire extracts the audio of url into a fresh scratch slot, trying each
// profile in order under its acquisition timeout. On success the artifact is
// known to exist; on failure the slot is gone.
func (s *Service) Acquire(ctx context.Context, logger *zap.Logger, requestID, url, title, token string) (*Artifact, error) {
	start := time.Now()
	defer func() { monitoring.RecordStage(StageAcquire, time.Since(start)) }()

	slot, err := s.pool.Allocate(requestID)
	if err != nil {
		return nil, err
	}

	job := extractor.AudioJob{
		SourceURL: url,
		OutputDir: slot.Dir,
		BaseName:  token,
		Format:    artifact.Extension,
	}

	chain := s.profileChain(ctx, logger, "audio", func(p identity.Profile) time.Duration {
		return p.AcquisitionTimeout
	})

	_, err = apperrors.RunFallback(ctx, chain, func(ctx context.Context, p identity.Profile) (struct{}, error) {
		return struct{}{}, s.extractor.ExtractAudio(ctx, job, p)
	})
	if err != nil {
		s.releaseSlot(logger, slot)
		return nil, apperrors.NewAcquisitionError(err)
	}

	path := slot.Path(token)
	if _, err := os.Stat(path); err != nil {
		s.releaseSlot(logger, slot)
		return nil, apperrors.NewArtifactMissingError(path, err)
	}

	if s.tagger.Enabled() {
		if err := s.tagger.SetTitle(path, title); err != nil {
			logger.Warn("Failed to tag artifact", zap.String("path", path), zap.Error(err))
		}
	}

	return &Artifact{
		Path:  path,
		Title: title,
		Token: token,
		slot:  slot,
	}, nil
}

func (s *Service) releaseSlot(logger *zap.Logger, slot artifact.Slot) {
	if err := s.pool.Release(slot); err != nil {
		monitoring.RecordCleanupFailure()
		logger.Warn("Failed to release scratch slot", zap.String("slot", slot.Dir), zap.Error(err))
	}
}
