// Package webui serves the browser front end and JSON API for the diagram
// pipeline, plus a websocket feed of run progress.
package webui

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server wires the API, progress hub, static assets and output directory
// onto one mux.
//
// Routes:
//   - GET  /                  - generator page
//   - GET  /static/...        - embedded assets
//   - GET  /output/...        - generated run directories
//   - GET  /api/slide-formats - slide format presets
//   - POST /api/generate      - run the pipeline
//   - GET  /api/runs          - recent runs
//   - GET  /health            - service status
//   - GET  /metrics           - prometheus exposition
//   - GET  /style-guide       - rendered style guide
//   - GET  /ws                - progress websocket
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	config     ServerConfig
	logger     *zap.Logger
}

// ServerConfig configures the Server.
type ServerConfig struct {
	Host string
	Port int

	// OutputDir is served under /output/
	OutputDir string

	ReadTimeout time.Duration
	// WriteTimeout must exceed the run timeout; generate requests stay open
	// for the whole run. Zero disables it.
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// LogSkipPaths are not request-logged
	LogSkipPaths []string
}

// DefaultServerConfig returns a ServerConfig with the default bind address.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:         "0.0.0.0",
		Port:         8000,
		OutputDir:    "output",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
		LogSkipPaths: []string{"/health", "/metrics"},
	}
}

// Handlers are the components mounted by the Server. Hub, StyleGuide and
// Gatherer are optional.
type Handlers struct {
	API        *API
	Hub        *ProgressHub
	StyleGuide TextSource
	Gatherer   prometheus.Gatherer
	Static     *StaticAssetHandler
}

// NewServer creates the server and its routes.
func NewServer(config ServerConfig, h Handlers, logger *zap.Logger) (*Server, error) {
	if h.API == nil {
		return nil, errors.New("webui: API handler is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("webui")
	if h.Static == nil {
		h.Static = NewStaticAssetHandler("/static", 3600)
	}

	s := &Server{
		mux:    http.NewServeMux(),
		config: config,
		logger: logger,
	}

	s.mux.HandleFunc("/{$}", h.Static.ServeIndex)
	s.mux.Handle("/static/", h.Static)
	s.mux.Handle("/output/", http.StripPrefix("/output/", http.FileServer(http.Dir(config.OutputDir))))

	s.mux.HandleFunc("/api/slide-formats", h.API.HandleSlideFormats)
	s.mux.HandleFunc("/api/generate", h.API.HandleGenerate)
	s.mux.HandleFunc("/api/runs", h.API.HandleRuns)
	s.mux.HandleFunc("/health", h.API.HandleHealth)

	if h.Gatherer != nil {
		s.mux.Handle("/metrics", promhttp.HandlerFor(h.Gatherer, promhttp.HandlerOpts{}))
	}
	if h.StyleGuide != nil {
		s.mux.HandleFunc("/style-guide", StyleGuideHandler(h.StyleGuide, logger))
	}
	if h.Hub != nil {
		s.mux.HandleFunc("/ws", h.Hub.HandleConnection)
	}

	addr := net.JoinHostPort(config.Host, fmt.Sprint(config.Port))
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      NewLoggingMiddleware(logger, config.LogSkipPaths...).Handler(s.mux),
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}
	return s, nil
}

// Handler returns the root handler including middleware.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// HTTPServer exposes the underlying server for shutdown registration.
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Start listens until the server is shut down. A clean shutdown returns nil.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("webui: listen %s: %w", s.httpServer.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln. When ctx ends the server is shut down
// gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.logger.Info("HTTP server listening", zap.String("addr", ln.Addr().String()))

	stop := context.AfterFunc(ctx, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.httpServer.Shutdown(shutdownCtx)
	})
	defer stop()

	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("webui: serve: %w", err)
	}
	return nil
}
