// Package server exposes the sentichart pipeline over HTTP.
//
// Routes:
//
//	GET  /healthz
//	GET  /api/tickers/{ticker}/layout     RenderModel JSON
//	GET  /api/tickers/{ticker}/chart.svg  rendered chart
//	GET  /api/tickers/{ticker}/summary    metrics and market mood
//	GET  /api/tickers/{ticker}/status     fetch lifecycle state
//	POST /api/layout                      layout for a posted backend response
//
// Ticker routes accept start and end (YYYY-MM-DD) and the layout and chart
// routes also accept width, height and style. Failures are reported as
//
//	{"error": {"code": "TICKER_NOT_FOUND", "message": "..."}}
package server

import (
	"context"
	stderrors "errors"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/sentichart/pkg/chart"
	"github.com/matzehuels/sentichart/pkg/pipeline"
)

// maxBodySize bounds POST bodies; matches the backend response limit.
const maxBodySize = 32 << 20

// Server serves charts built by a pipeline.Runner.
type Server struct {
	runner   *pipeline.Runner
	tracker  *pipeline.Tracker
	logger   *log.Logger
	viewport chart.Viewport
	style    string
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithViewport sets the viewport used when a request names no size.
func WithViewport(vp chart.Viewport) Option {
	return func(s *Server) { s.viewport = vp }
}

// WithStyle sets the default chart style.
func WithStyle(style string) Option {
	return func(s *Server) { s.style = style }
}

// New creates a server around runner.
func New(runner *pipeline.Runner, opts ...Option) *Server {
	s := &Server{
		runner:   runner,
		tracker:  pipeline.NewTracker(),
		logger:   log.New(io.Discard),
		viewport: chart.DefaultViewport(),
		style:    pipeline.DefaultStyle,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(cors)

	r.Get("/healthz", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Post("/layout", s.handlePostLayout)
		r.Route("/tickers/{ticker}", func(r chi.Router) {
			r.Get("/layout", s.handleLayout)
			r.Get("/chart.svg", s.handleChartSVG)
			r.Get("/summary", s.handleSummary)
			r.Get("/status", s.handleStatus)
		})
	})
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "no such route")
	})
	return r
}

// Timeouts bound a single connection.
type Timeouts struct {
	Read  time.Duration
	Write time.Duration
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string, t Timeouts) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       t.Read,
		WriteTimeout:      t.Write,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if stderrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
