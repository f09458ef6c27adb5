package pipeline

import (
	"context"
	"time"

	apperrors "github.com/deemusic/ytmp3-go/internal/errors"
	"github.com/deemusic/ytmp3-go/internal/identity"
	"github.com/deemusic/ytmp3-go/internal/monitoring"
	"go.uber.org/zap"
)

// profileChain builds a fallback chain over the service's profiles
func (s *Service) profileChain(ctx context.Context, logger *zap.Logger, operation string, timeout func(identity.Profile) time.Duration) apperrors.FallbackChain[identity.Profile] {
	return apperrors.FallbackChain[identity.Profile]{
		Operation:  operation,
		Candidates: s.profiles.Profiles(),
		Timeout:    timeout,
		Label:      func(p identity.Profile) string { return p.Name },
		OnAttempt:  attemptObserver(ctx, logger, operation),
	}
}

// attemptObserver logs and counts every extractor attempt
func attemptObserver(ctx context.Context, logger *zap.Logger, operation string) func(apperrors.Attempt) {
	return func(a apperrors.Attempt) {
		result := attemptResult(ctx, a)
		monitoring.RecordAttempt(operation, a.Label, result)

		fields := []zap.Field{
			zap.String("operation", operation),
			zap.String("profile", a.Label),
			zap.Int("attempt", a.Index+1),
			zap.Duration("duration", a.Duration),
			zap.Bool("timed_out", a.TimedOut),
		}
		if a.Err == nil {
			logger.Debug("Extractor attempt succeeded", fields...)
			return
		}
		logger.Warn("Extractor attempt failed", append(fields, zap.Error(a.Err))...)
	}
}

func attemptResult(ctx context.Context, a apperrors.Attempt) string {
	switch {
	case a.Err == nil:
		return monitoring.AttemptOK
	case a.TimedOut:
		return monitoring.AttemptTimeout
	case ctx.Err() != nil:
		return monitoring.AttemptCancelled
	default:
		return monitoring.AttemptFailed
	}
}
