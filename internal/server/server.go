package server

import (
	"context"
	"fmt"
	"net/http"

	"WardMonitorAPI/internal/config"
	"WardMonitorAPI/internal/handler"
	"WardMonitorAPI/internal/logger"
	"WardMonitorAPI/internal/middleware"

	"github.com/gorilla/mux"
)

type Server struct {
	httpServer *http.Server
	router     *mux.Router
	cfg        *config.Config
	log        *logger.Logger
}

func New(cfg *config.Config, log *logger.Logger) *Server {
	router := mux.NewRouter()

	return &Server{
		router: router,
		cfg:    cfg,
		log:    log,
		httpServer: &http.Server{
			Addr:           fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
			Handler:        router,
			ReadTimeout:    cfg.Server.ReadTimeout,
			WriteTimeout:   cfg.Server.WriteTimeout,
			MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
		},
	}
}

// RegisterHandlers mounts everything under /api/v1. Login and the
// websocket upgrade stay outside the token check; health endpoints live
// on the root router for load balancers.
func (s *Server) RegisterHandlers(
	authHandler *handler.AuthHandler,
	readingHandler *handler.ReadingHandler,
	alertHandler *handler.AlertHandler,
	subjectHandler *handler.SubjectHandler,
	reportHandler *handler.ReportHandler,
	wsHandler *handler.WSHandler,
	healthHandler *handler.HealthHandler,
) {
	public := s.router.PathPrefix("/api/v1").Subrouter()
	s.useCommon(public)

	authHandler.RegisterRoutes(public)
	wsHandler.RegisterRoutes(public)

	api := s.router.PathPrefix("/api/v1").Subrouter()
	s.useCommon(api)

	if s.cfg.Security.EnableAuth {
		api.Use(middleware.JWTAuth(s.cfg.Security.JWTSecret, s.log))
	}

	authHandler.RegisterProtectedRoutes(api)
	readingHandler.RegisterRoutes(api)
	alertHandler.RegisterRoutes(api)
	subjectHandler.RegisterRoutes(api)
	reportHandler.RegisterRoutes(api)

	healthHandler.RegisterRoutes(s.router)

	s.log.Info("All handlers registered")
}

func (s *Server) useCommon(r *mux.Router) {
	r.Use(middleware.RequestLogger(s.log))
	r.Use(middleware.CORS(s.cfg.Security.CORSAllowedOrigins, s.cfg.Security.CORSAllowedMethods))
	r.Use(middleware.Recovery(s.log))

	if s.cfg.Security.EnableRateLimit {
		r.Use(middleware.RateLimit(s.cfg.Security.RateLimitPerMinute))
	}
}

func (s *Server) Start() error {
	s.log.Info("Starting HTTP server on %s", s.httpServer.Addr)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed to start: %w", err)
	}

	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Shutting down HTTP server...")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.log.Info("HTTP server stopped")
	return nil
}
