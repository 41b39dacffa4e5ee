// Package http exposes the orchestrator over HTTP.
//
// Endpoints:
//
//	GET  /health          liveness
//	GET  /api/v1/goals    every command submitted so far
//	POST /api/v1/process  run a command and return its output log
//	GET  /api/v1/anomalies  recall stored anomalies similar to ?q=
//	GET  /metrics         Prometheus metrics
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fyrsmithlabs/sovereign/internal/logging"
	"github.com/fyrsmithlabs/sovereign/internal/memory"
	"github.com/fyrsmithlabs/sovereign/internal/orchestrator"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Processor runs commands and keeps their history.
type Processor interface {
	Run(ctx context.Context, command, contextID string) *orchestrator.Session
	ActiveGoals() []string
}

// Searcher recalls stored context by similarity.
type Searcher interface {
	SearchSimilar(ctx context.Context, query string, limit int) ([]memory.Record, error)
}

const (
	defaultAnomalyLimit = 10
	maxAnomalyLimit     = 100
)

// Server provides HTTP endpoints for the orchestrator.
type Server struct {
	echo   *echo.Echo
	orch   Processor
	memory Searcher
	logger *logging.Logger
	config *Config
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
}

// NewServer creates a new HTTP server. mem may be nil, in which case the
// anomalies endpoint answers 503.
func NewServer(orch Processor, mem Searcher, logger *logging.Logger, cfg *Config) (*Server, error) {
	if orch == nil {
		return nil, fmt.Errorf("orchestrator cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{
			Host: "localhost",
			Port: 9090,
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(NewHTTPMetrics().MetricsMiddleware())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			logger.Info(c.Request().Context(), "http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)
			return err
		}
	})

	s := &Server{
		echo:   e,
		orch:   orch,
		memory: mem,
		logger: logger,
		config: cfg,
	}
	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.echo.Group("/api/v1")
	v1.GET("/goals", s.handleGoals)
	v1.POST("/process", s.handleProcess)
	v1.GET("/anomalies", s.handleAnomalies)
}

// ProcessRequest is the request body for POST /api/v1/process.
type ProcessRequest struct {
	Command   string `json:"command"`
	ContextID string `json:"context_id,omitempty"`
	// NL marks the command as natural language without the --nl prefix.
	NL bool `json:"nl,omitempty"`
}

// ProcessResponse is the response body for POST /api/v1/process.
type ProcessResponse struct {
	ContextID string   `json:"context_id"`
	Outputs   []string `json:"outputs"`
	Aborted   bool     `json:"aborted"`
	Canceled  bool     `json:"canceled,omitempty"`
}

// GoalsResponse is the response body for GET /api/v1/goals.
type GoalsResponse struct {
	Goals []string `json:"goals"`
}

// Anomaly is one recalled memory entry.
type Anomaly struct {
	Message   string  `json:"message"`
	ContextID string  `json:"context_id"`
	Score     float32 `json:"score"`
}

// AnomaliesResponse is the response body for GET /api/v1/anomalies.
type AnomaliesResponse struct {
	Query     string    `json:"query"`
	Anomalies []Anomaly `json:"anomalies"`
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

func (s *Server) handleGoals(c echo.Context) error {
	return c.JSON(http.StatusOK, GoalsResponse{Goals: s.orch.ActiveGoals()})
}

func (s *Server) handleProcess(c echo.Context) error {
	var req ProcessRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn(c.Request().Context(), "invalid process request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	command := strings.TrimSpace(req.Command)
	if command == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "command field is required")
	}
	if req.NL && !orchestrator.IsNaturalLanguage(command) {
		command = orchestrator.NLMarker + " " + command
	}

	sess := s.orch.Run(c.Request().Context(), command, req.ContextID)
	return c.JSON(http.StatusOK, ProcessResponse{
		ContextID: sess.ContextID,
		Outputs:   sess.Outputs(),
		Aborted:   sess.Aborted,
		Canceled:  sess.Canceled,
	})
}

func (s *Server) handleAnomalies(c echo.Context) error {
	if s.memory == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "memory store not configured")
	}

	query := strings.TrimSpace(c.QueryParam("q"))
	if query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "q parameter is required")
	}
	limit := defaultAnomalyLimit
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxAnomalyLimit {
			return echo.NewHTTPError(http.StatusBadRequest,
				fmt.Sprintf("limit must be between 1 and %d", maxAnomalyLimit))
		}
		limit = n
	}

	ctx := c.Request().Context()
	records, err := s.memory.SearchSimilar(ctx, query, limit)
	if err != nil {
		s.logger.Error(ctx, "anomaly search failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadGateway, "memory search failed")
	}

	resp := AnomaliesResponse{Query: query, Anomalies: make([]Anomaly, 0, len(records))}
	for _, r := range records {
		resp.Anomalies = append(resp.Anomalies, Anomaly{
			Message:   r.Message,
			ContextID: r.ContextID,
			Score:     r.Score,
		})
	}
	return c.JSON(http.StatusOK, resp)
}

// Start starts the HTTP server. It returns nil after Shutdown.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info(context.Background(), "starting http server", zap.String("addr", addr))
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "shutting down http server")
	return s.echo.Shutdown(ctx)
}
