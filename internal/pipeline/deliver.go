package pipeline

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	apperrors "github.com/deemusic/ytmp3-go/internal/errors"
	"github.com/deemusic/ytmp3-go/internal/monitoring"
	"go.uber.org/zap"
)

const streamBufferSize = 32 * 1024

// Deliver streams art to w as an MP3 attachment named after its title. The
// artifact and its slot are removed however delivery ends.
func (s *Service) Deliver(_ context.Context, logger *zap.Logger, art *Artifact, w http.ResponseWriter) error {
	start := time.Now()
	defer func() { monitoring.RecordStage(StageDeliver, time.Since(start)) }()
	defer s.removeArtifact(logger, art)

	f, err := os.Open(art.Path)
	if err != nil {
		return apperrors.NewDeliveryError(err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return apperrors.NewDeliveryError(err)
	}

	h := w.Header()
	h.Set("Content-Type", "audio/mpeg")
	h.Set("Content-Length", strconv.FormatInt(info.Size(), 10))
	h.Set("Content-Disposition", ContentDisposition(art.Title))
	if h.Get("Access-Control-Expose-Headers") == "" {
		h.Set("Access-Control-Expose-Headers", "Content-Disposition")
	}
	w.WriteHeader(http.StatusOK)

	written, err := io.CopyBuffer(w, f, make([]byte, streamBufferSize))
	monitoring.RecordDelivered(written)
	if err != nil {
		return apperrors.NewDeliveryError(err)
	}
	if written != info.Size() {
		return apperrors.NewDeliveryError(fmt.Errorf("short write: %d of %d bytes", written, info.Size()))
	}
	logger.Debug("Artifact streamed",
		zap.Int64("bytes", written),
		zap.Duration("duration", time.Since(start)))
	return nil
}

func (s *Service) removeArtifact(logger *zap.Logger, art *Artifact) {
	if err := os.Remove(art.Path); err != nil && !os.IsNotExist(err) {
		monitoring.RecordCleanupFailure()
		logger.Warn("Failed to delete artifact", zap.String("path", art.Path), zap.Error(err))
	}
	s.releaseSlot(logger, art.slot)
}
