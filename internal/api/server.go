// Package api exposes the relay's health, status, and manual-trigger endpoints.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/oharling/newsrelay/internal/dedupe"
	"github.com/oharling/newsrelay/internal/poller"
)

// CycleRunner is the slice of the scheduler the API needs.
type CycleRunner interface {
	RunNow(ctx context.Context) (poller.CycleSummary, error)
	LastSummary() *poller.CycleSummary
	NextRun() time.Time
}

type Server struct {
	echo   *echo.Echo
	runner CycleRunner
	store  dedupe.SeenStore
	logger *slog.Logger
}

func NewServer(runner CycleRunner, store dedupe.SeenStore, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	server := &Server{
		echo:   e,
		runner: runner,
		store:  store,
		logger: logger,
	}
	server.setupRoutes()
	return server
}

func (s *Server) setupRoutes() {
	s.echo.GET("/healthz", s.handleHealth)

	api := s.echo.Group("/api/v1")
	api.GET("/status", s.handleStatus)
	api.POST("/cycles/run", s.handleRunCycle)
}

func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"service": "newsrelay",
	})
}

func (s *Server) handleStatus(c echo.Context) error {
	status := map[string]interface{}{
		"last_cycle": s.runner.LastSummary(),
	}
	if next := s.runner.NextRun(); !next.IsZero() {
		status["next_run"] = next
	}
	if size, err := s.store.Size(c.Request().Context()); err == nil {
		status["store_size"] = size
	} else {
		s.logger.Warn("store size unavailable", "error", err)
	}
	return c.JSON(http.StatusOK, status)
}

// handleRunCycle triggers one cycle synchronously. It shares the scheduler's
// serialization: a request arriving while a cycle runs is rejected, not queued.
func (s *Server) handleRunCycle(c echo.Context) error {
	summary, err := s.runner.RunNow(c.Request().Context())
	if err != nil {
		if errors.Is(err, poller.ErrCycleRunning) {
			return c.JSON(http.StatusConflict, map[string]interface{}{
				"error": err.Error(),
			})
		}
		return c.JSON(http.StatusBadGateway, map[string]interface{}{
			"error":   err.Error(),
			"summary": summary,
		})
	}
	return c.JSON(http.StatusOK, summary)
}
