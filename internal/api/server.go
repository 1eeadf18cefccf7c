// Package api hosts the search endpoint and the MCP tools over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/phuslu/log"

	"github.com/docsmcp/docs-mcp-server/internal/engine"
	"github.com/docsmcp/docs-mcp-server/internal/query"
	"github.com/docsmcp/docs-mcp-server/internal/search"
)

const healthTimeout = 2 * time.Second

// Searcher runs validated search requests
type Searcher interface {
	Search(ctx context.Context, req query.Request) (*search.Response, error)
}

// HealthChecker is the part of the engine /health looks at
type HealthChecker interface {
	Healthy(ctx context.Context) error
	DocumentCount(ctx context.Context) (int64, error)
}

// Options wires the server's collaborators. MCP may be nil.
type Options struct {
	Search   Searcher
	Health   HealthChecker
	Defaults query.Defaults
	MCP      http.Handler
	Logger   *log.Logger
}

// Server is the HTTP query API
type Server struct {
	echo     *echo.Echo
	search   Searcher
	health   HealthChecker
	defaults query.Defaults
	logger   *log.Logger
}

// ErrorResponse is the body of every non-2xx answer
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// HealthResponse is the body of /health
type HealthResponse struct {
	Status    string `json:"status"`
	Documents int64  `json:"documents"`
	Error     string `json:"error,omitempty"`
}

// New builds the echo instance and registers the routes
func New(opts Options) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:     e,
		search:   opts.Search,
		health:   opts.Health,
		defaults: opts.Defaults,
		logger:   opts.Logger,
	}

	e.Use(echoMiddleware.Recover())
	e.Use(requestLogger(opts.Logger))

	e.GET("/search", s.handleSearchQuery)
	e.POST("/search", s.handleSearchBody)
	e.GET("/health", s.handleHealth)
	if opts.MCP != nil {
		e.Any("/mcp", echo.WrapHandler(opts.MCP))
	}

	return s
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start serves on addr until ctx is done, then shuts down gracefully
func (s *Server) Start(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("✓ HTTP server listening")
		errCh <- s.echo.Start(addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info().Msg("shutting down HTTP server")
	return s.echo.Shutdown(shutdownCtx)
}

func (s *Server) handleSearchQuery(c echo.Context) error {
	args := map[string]any{}
	for _, key := range []string{"q", "query", "strategy", "limit", "module"} {
		if v := c.QueryParam(key); v != "" {
			args[key] = v
		}
	}
	return s.runSearch(c, args)
}

func (s *Server) handleSearchBody(c echo.Context) error {
	args := map[string]any{}
	if err := (&echo.DefaultBinder{}).BindBody(c, &args); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid JSON body", Kind: "invalid_request"})
	}
	return s.runSearch(c, args)
}

func (s *Server) runSearch(c echo.Context, args map[string]any) error {
	req, err := query.FromArgs(args, s.defaults)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Kind: "invalid_request"})
	}

	resp, err := s.search.Search(c.Request().Context(), req)
	if err != nil {
		return s.searchError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) searchError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, query.ErrInvalidRequest):
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Kind: "invalid_request"})
	case errors.Is(err, engine.ErrUnavailable):
		s.logger.Error().Err(err).Msg("search engine unavailable")
		return c.JSON(http.StatusBadGateway, ErrorResponse{Error: err.Error(), Kind: "engine_unavailable"})
	default:
		s.logger.Error().Err(err).Msg("search failed")
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Kind: "internal"})
	}
}

func (s *Server) handleHealth(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), healthTimeout)
	defer cancel()

	if err := s.health.Healthy(ctx); err != nil {
		return c.JSON(http.StatusServiceUnavailable, HealthResponse{Status: "unavailable", Error: err.Error()})
	}

	count, err := s.health.DocumentCount(ctx)
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, HealthResponse{Status: "unavailable", Error: err.Error()})
	}

	return c.JSON(http.StatusOK, HealthResponse{Status: "ok", Documents: count})
}

func requestLogger(logger *log.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			logger.Debug().
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", c.Response().Status).
				Dur("elapsed", time.Since(start)).
				Msg("request")
			return nil
		}
	}
}
