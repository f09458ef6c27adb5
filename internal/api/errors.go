package api

import (
	stderrors "errors"
	"fmt"
	"net/http"

	apperrors "github.com/deemusic/ytmp3-go/internal/errors"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ErrorResponse is the body of every error answer
type ErrorResponse struct {
	Error string `json:"error"`
}

// httpErrorHandler renders application and echo errors as ErrorResponse.
// Responses that already started streaming are left alone.
func httpErrorHandler(logger *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, ec echo.Context) {
		if ec.Response().Committed {
			return
		}

		status := apperrors.StatusCode(err)
		message := apperrors.PublicMessage(err)

		var httpErr *echo.HTTPError
		if stderrors.As(err, &httpErr) {
			status = httpErr.Code
			message = fmt.Sprint(httpErr.Message)
			if status >= http.StatusInternalServerError {
				message = apperrors.MsgInternal
			}
		}

		if ec.Request().Method == http.MethodHead {
			err = ec.NoContent(status)
		} else {
			err = ec.JSON(status, ErrorResponse{Error: message})
		}
		if err != nil {
			logger.Warn("Failed to write error response", zap.Error(err))
		}
	}
}
