// Package pipeline turns a source URL into a delivered MP3: it resolves the
// media title, acquires the audio through the extractor and streams the
// artifact back, removing it afterwards.
package pipeline

import (
	"context"
	"net/http"
	"time"

	"github.com/deemusic/ytmp3-go/internal/artifact"
	apperrors "github.com/deemusic/ytmp3-go/internal/errors"
	"github.com/deemusic/ytmp3-go/internal/extractor"
	"github.com/deemusic/ytmp3-go/internal/identity"
	"github.com/deemusic/ytmp3-go/internal/monitoring"
	"github.com/deemusic/ytmp3-go/internal/security"
	"github.com/deemusic/ytmp3-go/internal/source"
	"go.uber.org/zap"
)

// Stage names used in logs and metrics
const (
	StageResolve = "resolve"
	StageAcquire = "acquire"
	StageDeliver = "deliver"
)

// Request outcomes recorded in metrics
const (
	OutcomeSuccess     = "success"
	OutcomeValidation  = "validation_error"
	OutcomeResolution  = "resolution_error"
	OutcomeAcquisition = "acquisition_error"
	OutcomeDelivery    = "delivery_error"
	OutcomeCancelled   = "cancelled"
	OutcomeInternal    = "internal_error"
)

// Request is one download request
type Request struct {
	// ID keys the request's scratch slot and log lines
	ID        string
	SourceURL string
}

// Options wires a Service
type Options struct {
	Extractor extractor.Extractor
	Profiles  identity.Set
	Pool      *artifact.Pool
	Tagger    *artifact.Tagger
	Logger    *zap.Logger
}

// Service runs download requests through the pipeline stages
type Service struct {
	extractor extractor.Extractor
	profiles  identity.Set
	pool      *artifact.Pool
	tagger    *artifact.Tagger
	logger    *zap.Logger
}

// New creates a Service
func New(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	tagger := opts.Tagger
	if tagger == nil {
		tagger = artifact.NewTagger(false)
	}

	return &Service{
		extractor: opts.Extractor,
		profiles:  opts.Profiles,
		pool:      opts.Pool,
		tagger:    tagger,
		logger:    logger,
	}
}

// Profiles returns the identity profiles the service falls back through
func (s *Service) Profiles() identity.Set {
	return s.profiles
}

// Run executes every stage for req and streams the artifact to w.
//
// A returned error after w has been committed can no longer reach the client
// as a status; callers check their own writer state before reporting it.
func (s *Service) Run(ctx context.Context, req Request, w http.ResponseWriter) (err error) {
	start := time.Now()
	monitoring.RecordRequestStart()
	defer func() {
		monitoring.RecordRequestFinished(Outcome(err), time.Since(start))
	}()

	rawURL := security.CleanURLInput(req.SourceURL)
	if rawURL == "" {
		return apperrors.NewMissingURLError()
	}

	url := source.Normalize(rawURL)
	logger := monitoring.RequestLogger(s.logger, req.ID, url)
	if url != rawURL {
		logger.Debug("Stripped collection parameters", zap.String("original_url", rawURL))
	}

	title, err := s.ResolveTitle(ctx, logger, url)
	if err != nil {
		logStageFailure(logger, StageResolve, err)
		return err
	}

	token := artifact.Sanitize(title)
	logger.Info("Resolved title",
		zap.String("title", title),
		zap.String("token", token))

	art, err := s.Acquire(ctx, logger, req.ID, url, title, token)
	if err != nil {
		logStageFailure(logger, StageAcquire, err)
		return err
	}

	if err := s.Deliver(ctx, logger, art, w); err != nil {
		logStageFailure(logger, StageDeliver, err)
		return err
	}

	logger.Info("Request completed",
		zap.String("title", title),
		zap.Duration("duration", time.Since(start)))
	return nil
}

// Outcome maps a Run result to its metrics label
func Outcome(err error) string {
	if err == nil {
		return OutcomeSuccess
	}
	if apperrors.IsCancelled(err) {
		return OutcomeCancelled
	}
	switch apperrors.GetErrorType(err) {
	case apperrors.ErrTypeValidation:
		return OutcomeValidation
	case apperrors.ErrTypeResolution:
		return OutcomeResolution
	case apperrors.ErrTypeAcquisition:
		return OutcomeAcquisition
	case apperrors.ErrTypeDelivery:
		return OutcomeDelivery
	default:
		return OutcomeInternal
	}
}

func logStageFailure(logger *zap.Logger, stage string, err error) {
	if apperrors.IsCancelled(err) {
		logger.Info("Request cancelled by client", zap.String("stage", stage), zap.Error(err))
		return
	}
	logger.Error("Stage failed",
		zap.String("stage", stage),
		zap.String("error_type", string(apperrors.GetErrorType(err))),
		zap.String("reason", string(apperrors.GetReason(err))),
		zap.Error(err))
}
