package system

import (
	"net/http"

	"github.com/deemusic/ytmp3-go/internal/monitoring"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Controller serves health and metrics endpoints
type Controller struct {
	health   *monitoring.HealthChecker
	inFlight func() int
}

func New(health *monitoring.HealthChecker, inFlight func() int) *Controller {
	if inFlight == nil {
		inFlight = func() int { return 0 }
	}
	return &Controller{health: health, inFlight: inFlight}
}

func (controller *Controller) SetRoutes(eg *echo.Group) {
	eg.GET("/healthz", controller.healthz)
	eg.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

func (controller *Controller) healthz(ec echo.Context) error {
	if controller.health == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "health checks not configured")
	}

	check := controller.health.Check(ec.Request().Context(), controller.inFlight())
	status := http.StatusOK
	if check.Status == monitoring.HealthStatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	return ec.JSON(status, check)
}
