// Package server exposes the profile engine, stored runs and a live
// rolling stream over HTTP.
package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"pbv-lab/internal/config"
	"pbv-lab/internal/observability"
	"pbv-lab/internal/pipeline"
	"pbv-lab/internal/profile"
	"pbv-lab/internal/storage"
)

// Deps holds the collaborators the handlers use.
// Series and Job are optional; their endpoints answer 503 when unset.
type Deps struct {
	Series   storage.SeriesStore
	Job      *pipeline.Job
	Engine   *profile.Engine
	Metrics  *observability.Metrics
	Defaults profile.Params
	Log      logrus.FieldLogger
}

// Server represents the HTTP API server.
type Server struct {
	cfg        config.HTTPConfig
	limits     limits
	deps       Deps
	log        logrus.FieldLogger
	router     *mux.Router
	httpServer *http.Server
	upgrader   websocket.Upgrader

	// closed when the server shuts down so hijacked stream connections exit
	shutdownOnce sync.Once
	shutdown     chan struct{}
}

// New creates a server and registers its routes.
func New(cfg config.HTTPConfig, deps Deps) *Server {
	if deps.Engine == nil {
		deps.Engine = profile.NewEngine(profile.Parallel{})
	}
	if deps.Log == nil {
		deps.Log = logrus.StandardLogger()
	}

	s := &Server{
		cfg:    cfg,
		limits: newLimits(cfg.MaxWindow, cfg.MaxBins, cfg.MaxN),
		deps:   deps,
		log:    deps.Log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
		shutdown: make(chan struct{}),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router = mux.NewRouter()
	s.router.Use(s.loggingMiddleware)
	s.router.Use(s.recoveryMiddleware)

	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	s.router.Handle("/metrics", observability.Handler()).Methods(http.MethodGet)

	v1 := s.router.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/profile", s.handleProfile).Methods(http.MethodPost)
	v1.HandleFunc("/symbols", s.handleListSymbols).Methods(http.MethodGet)
	v1.HandleFunc("/symbols/{symbol}/profile", s.handleSymbolProfile).Methods(http.MethodGet)
	v1.HandleFunc("/symbols/{symbol}/runs", s.handleCreateRun).Methods(http.MethodPost)
	v1.HandleFunc("/symbols/{symbol}/runs", s.handleListRuns).Methods(http.MethodGet)
	v1.HandleFunc("/runs/{id}", s.handleGetRun).Methods(http.MethodGet)
	v1.HandleFunc("/runs/{id}/report", s.handleRunReport).Methods(http.MethodGet)
	v1.HandleFunc("/stream", s.handleStream).Methods(http.MethodGet)
}

// Handler returns the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on cfg.Addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}
	s.httpServer.RegisterOnShutdown(s.closeStreams)

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("address", s.cfg.Addr).Info("Starting HTTP server")
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen on %s: %w", s.cfg.Addr, err)
	case <-ctx.Done():
	}

	s.log.Info("Stopping HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) closeStreams() {
	s.shutdownOnce.Do(func() { close(s.shutdown) })
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		s.log.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   wrapped.statusCode,
			"duration": time.Since(start),
			"remote":   r.RemoteAddr,
		}).Debug("HTTP request")
	})
}

func (s *Server) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				s.log.WithFields(logrus.Fields{
					"error": err,
					"path":  r.URL.Path,
				}).Error("Panic recovered")
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// responseWriter captures the status code and still allows websocket upgrades.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	rw.statusCode = http.StatusSwitchingProtocols
	return h.Hijack()
}
