package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/deemusic/ytmp3-go/internal/api/downloads"
	"github.com/deemusic/ytmp3-go/internal/api/system"
	"github.com/deemusic/ytmp3-go/internal/monitoring"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

type (
	RestConfig struct {
		HostAddr        string
		ShutdownTimeout time.Duration
	}

	controller interface {
		SetRoutes(*echo.Group)
	}

	// The RestGateway is a thin wrapper around the Echo router. It owns the
	// middleware chain and mounts the download and system controllers.
	RestGateway struct {
		config             *RestConfig
		ec                 *echo.Echo
		logger             *zap.Logger
		downloadController *downloads.Controller
		systemController   controller
	}
)

// NewRestGateway constructs the Echo router with every route the service exposes
func NewRestGateway(config *RestConfig, runner downloads.Runner, health *monitoring.HealthChecker, logger *zap.Logger) *RestGateway {
	if logger == nil {
		logger = zap.NewNop()
	}

	ec := echo.New()
	ec.HidePort = true
	ec.HideBanner = true
	ec.HTTPErrorHandler = httpErrorHandler(logger)
	ec.OnAddRouteHandler = func(host string, route echo.Route, handler echo.HandlerFunc, middleware []echo.MiddlewareFunc) {
		logger.Debug("Registered route", zap.String("method", route.Method), zap.String("path", route.Path))
	}

	validate := validator.New()
	downloadController := downloads.New(validate, runner, logger)
	gateway := &RestGateway{
		config:             config,
		ec:                 ec,
		logger:             logger,
		downloadController: downloadController,
		systemController:   system.New(health, downloadController.InFlight),
	}

	ec.Use(middleware.Recover())
	ec.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	ec.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:  []string{echo.HeaderContentType, echo.HeaderXRequestID},
		ExposeHeaders: []string{echo.HeaderContentDisposition, echo.HeaderXRequestID},
	}))
	ec.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogRemoteIP:  true,
		LogValuesFunc: func(ec echo.Context, v middleware.RequestLoggerValues) error {
			logger.Info("HTTP request",
				zap.String("request_id", v.RequestID),
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("remote_ip", v.RemoteIP))
			return nil
		},
	}))

	gateway.downloadController.SetRoutes(ec.Group("/api"))
	gateway.systemController.SetRoutes(ec.Group(""))

	return gateway
}

// ServeHTTP lets the gateway be mounted or tested as a plain http.Handler
func (gateway *RestGateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	gateway.ec.ServeHTTP(w, r)
}

// Run serves until ctx is cancelled, then drains in-flight requests for up
// to the configured shutdown timeout.
func (gateway *RestGateway) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		gateway.logger.Info("HTTP server listening", zap.String("addr", gateway.config.HostAddr))
		errCh <- gateway.ec.Start(gateway.config.HostAddr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	timeout := gateway.config.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	gateway.logger.Info("Shutting down HTTP server", zap.Int("in_flight", gateway.downloadController.InFlight()))
	if err := gateway.ec.Shutdown(shutdownCtx); err != nil {
		gateway.ec.Close()
		return err
	}
	return nil
}
