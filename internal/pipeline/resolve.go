package pipeline

import (
	"context"
	"time"

	apperrors "github.com/deemusic/ytmp3-go/internal/errors"
	"github.com/deemusic/ytmp3-go/internal/identity"
	"github.com/deemusic/ytmp3-go/internal/monitoring"
	"go.uber.org/zap"
)

// ResolveTitle asks the extractor for the media title of url, trying each
// profile in order under its metadata timeout.
func (s *Service) ResolveTitle(ctx context.Context, logger *zap.Logger, url string) (string, error) {
	start := time.Now()
	defer func() { monitoring.RecordStage(StageResolve, time.Since(start)) }()

	chain := s.profileChain(ctx, logger, "title", func(p identity.Profile) time.Duration {
		return p.MetadataTimeout
	})

	title, err := apperrors.RunFallback(ctx, chain, func(ctx context.Context, p identity.Profile) (string, error) {
		return s.extractor.Title(ctx, url, p)
	})
	if err != nil {
		return "", apperrors.NewResolutionError(err)
	}
	return title, nil
}
