// Package http provides the weekpulse HTTP API.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/weekpulse/internal/logging"
	"github.com/fyrsmithlabs/weekpulse/internal/services"
)

// Server provides HTTP endpoints for weekpulse.
type Server struct {
	echo     *echo.Echo
	registry services.Registry
	logger   *zap.Logger
	config   *Config
}

// Config holds HTTP server configuration.
type Config struct {
	Host        string
	Port        int
	CORSOrigins []string
	Version     string
}

// NewServer creates a new HTTP server.
func NewServer(reg services.Registry, logger *zap.Logger, cfg *Config) (*Server, error) {
	if reg == nil || reg.Weekly() == nil {
		return nil, fmt.Errorf("registry with a weekly service is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{
			Host: "localhost",
			Port: 9191,
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(requestContext(logging.Wrap(logger)))
	if len(cfg.CORSOrigins) > 0 {
		c := cors.New(cors.Options{
			AllowedOrigins: cfg.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
			AllowedHeaders: []string{"Content-Type"},
		})
		e.Use(echo.WrapMiddleware(c.Handler))
	}
	e.Use(NewHTTPMetrics(logger).MetricsMiddleware())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			ctx := c.Request().Context()
			logging.FromContext(ctx).Info(ctx, "http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
			)
			return nil
		}
	})

	s := &Server{
		echo:     e,
		registry: reg,
		logger:   logger,
		config:   cfg,
	}
	s.registerRoutes()
	return s, nil
}

// requestContext carries the request ID and a request-scoped logger on the
// request context so services log with the same correlation fields.
func requestContext(base *logging.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			ctx := logging.WithRequestID(req.Context(), c.Response().Header().Get(echo.HeaderXRequestID))
			ctx = logging.WithLogger(ctx, base)
			c.SetRequest(req.WithContext(ctx))
			return next(c)
		}
	}
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.echo.Group("/api/v1")
	v1.POST("/snapshot", s.handleSnapshot)
	v1.POST("/insights", s.handleInsight)

	v1.GET("/history", s.handleListHistory)
	v1.DELETE("/history", s.handleClearHistory)
	v1.GET("/history/:year/:week", s.handleGetWeek)
	v1.PUT("/history/:year/:week", s.handleSaveWeek)
	v1.POST("/history/:year/:week/insight", s.handleRegenerateInsight)

	v1.GET("/analytics", s.handleAnalytics)

	v1.GET("/profile", s.handleGetProfile)
	v1.PUT("/profile", s.handleUpdateProfile)

	v1.GET("/goals", s.handleGetGoals)
	v1.PUT("/goals", s.handleUpdateGoals)
	v1.GET("/goals/history", s.handleGoalsHistory)
	v1.GET("/goals/roadmap", s.handleGetRoadmap)
	v1.PUT("/goals/roadmap/current", s.handleSetCurrentPhase)
	v1.PUT("/goals/roadmap/:phase/:goal", s.handleSetMilestone)
	v1.POST("/goals/roadmap/:phase/:goal/toggle", s.handleToggleMilestone)

	v1.GET("/export", s.handleExport)
	v1.POST("/import", s.handleImport)
}

// Handler returns the server's root handler.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start starts the HTTP server. It returns nil after Shutdown.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting http server", zap.String("addr", addr))
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}
