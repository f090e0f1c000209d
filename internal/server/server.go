// Package server exposes the profile scraper over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/semaphore"

	"ttscraper/pkg/config"
	"ttscraper/pkg/logger"
	"ttscraper/pkg/models"
)

// ProfileScraper runs one scrape. *scraper.Scraper implements it.
type ProfileScraper interface {
	ScrapeProfile(ctx context.Context, handle string) models.ProfileResult
}

// Server is the HTTP front end of the scraper
type Server struct {
	cfg        config.ServerConfig
	router     *chi.Mux
	httpServer *http.Server
	scraper    ProfileScraper
	sessions   *semaphore.Weighted
	logger     logger.Logger

	baseCtx    context.Context
	cancelBase context.CancelFunc
}

// New creates the server and registers its routes
func New(cfg config.ServerConfig, s ProfileScraper, log logger.Logger) *Server {
	if log == nil {
		log = logger.GetLogger()
	}
	maxSessions := cfg.MaxSessions
	if maxSessions <= 0 {
		maxSessions = 1
	}

	baseCtx, cancel := context.WithCancel(context.Background())
	srv := &Server{
		cfg:        cfg,
		router:     chi.NewRouter(),
		scraper:    s,
		sessions:   semaphore.NewWeighted(int64(maxSessions)),
		logger:     log,
		baseCtx:    baseCtx,
		cancelBase: cancel,
	}

	srv.router.Use(requestID)
	srv.router.Use(middleware.RealIP)
	srv.router.Use(requestLogger(log))
	srv.router.Use(middleware.Recoverer)
	srv.registerRoutes()

	srv.httpServer = &http.Server{
		Addr:         cfg.Address(),
		Handler:      srv.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
		BaseContext:  func(net.Listener) context.Context { return baseCtx },
	}

	return srv
}

func (s *Server) registerRoutes() {
	s.router.Get("/health", s.healthHandler)
	s.router.Post("/scrape", s.scrapeHandler)
}

// Handler returns the root handler, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Run serves until ctx is done or SIGINT/SIGTERM arrives, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.WithField("addr", s.httpServer.Addr).Info("Starting HTTP server")
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		s.logger.WithField("signal", sig.String()).Info("Received shutdown signal")
	case <-ctx.Done():
		s.logger.Info("Context cancelled")
	}

	return s.Shutdown(context.Background())
}

// Shutdown stops accepting requests and waits for running scrapes. Scrapes still
// running when the shutdown timeout expires are cancelled.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
	defer cancel()

	err := s.httpServer.Shutdown(shutdownCtx)
	s.cancelBase()
	if err != nil {
		_ = s.httpServer.Close()
		return fmt.Errorf("shutting down HTTP server: %w", err)
	}

	s.logger.Info("Shutdown complete")
	return nil
}
