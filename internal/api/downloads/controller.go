package downloads

import (
	"context"
	"net/http"
	"sync/atomic"

	apperrors "github.com/deemusic/ytmp3-go/internal/errors"
	"github.com/deemusic/ytmp3-go/internal/pipeline"
	"github.com/deemusic/ytmp3-go/internal/security"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type (
	// DownloadRequest is the body of POST /api/download
	DownloadRequest struct {
		URL string `json:"url" validate:"required"`
	}

	// Runner executes one download request and streams the result to w
	Runner interface {
		Run(ctx context.Context, req pipeline.Request, w http.ResponseWriter) error
	}

	Controller struct {
		runner   Runner
		validate *validator.Validate
		logger   *zap.Logger
		inFlight atomic.Int64
	}
)

func New(validate *validator.Validate, runner Runner, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{runner: runner, validate: validate, logger: logger}
}

func (controller *Controller) SetRoutes(eg *echo.Group) {
	eg.POST("/download", controller.download)
}

// InFlight returns the number of download requests being served
func (controller *Controller) InFlight() int {
	return int(controller.inFlight.Load())
}

func (controller *Controller) download(ec echo.Context) error {
	var request DownloadRequest
	if err := ec.Bind(&request); err != nil {
		controller.logger.Debug("Rejected download body", zap.Error(err))
		return apperrors.NewValidationError(apperrors.ReasonInvalidBody, apperrors.MsgInvalidBody)
	}

	request.URL = security.CleanURLInput(request.URL)
	if err := controller.validate.Struct(request); err != nil {
		return apperrors.NewMissingURLError()
	}

	controller.inFlight.Add(1)
	defer controller.inFlight.Add(-1)

	err := controller.runner.Run(ec.Request().Context(), pipeline.Request{
		ID:        slotID(ec),
		SourceURL: request.URL,
	}, ec.Response())
	if err != nil && ec.Response().Committed {
		// Headers are gone; the pipeline already logged the failure.
		return nil
	}
	return err
}

// slotID reuses the request id when it is a UUID and mints a new one otherwise
func slotID(ec echo.Context) string {
	id := ec.Response().Header().Get(echo.HeaderXRequestID)
	if parsed, err := uuid.Parse(id); err == nil {
		return parsed.String()
	}
	return uuid.NewString()
}
