package server

import (
	"net/http"
	"time"

	"icomm2mqtt/internal/core/domain"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) RegisterRoutes() http.Handler {
	e := echo.New()
	if s.httpLog {
		e.Use(middleware.Logger())
	}
	e.Use(middleware.Recover())

	e.GET("/healthcheck", s.HealthCheckHandler)
	e.POST("/refresh", s.RefreshHandler)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	return e
}

func (s *Server) HealthCheckHandler(c echo.Context) error {
	res, err := s.rootContext.RequestFuture(s.masterActor, domain.ActorHealthRequest{}, 10*time.Second).Result()
	if err != nil {
		return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
	}
	if response, ok := res.(domain.ActorHealthResponse); ok && response.Healthy {
		return c.String(http.StatusOK, "health_check: OK")
	}
	return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
}

// RefreshHandler triggers an out-of-cycle poll.
func (s *Server) RefreshHandler(c echo.Context) error {
	s.rootContext.Send(s.masterActor, domain.RefreshRequest{})
	return c.String(http.StatusAccepted, "refresh: scheduled")
}
