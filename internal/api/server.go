// Package api exposes a minimal, read-only HTTP surface over the engine's
// state: health, a status snapshot, and Prometheus metrics. It never
// accepts trading commands — the engine task is the only writer of
// trading state; this package only reads it. The gin+cors+http.Server
// construction and graceful Shutdown follow the teacher's API server.
package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"xauengine/internal/circuit"
	"xauengine/internal/gateway"
	"xauengine/internal/performance"
	"xauengine/internal/rules"
)

// Config holds the HTTP server's fixed operating parameters.
type Config struct {
	Port           int
	Host           string
	AllowedOrigins string // comma-separated; empty means allow all
}

// Status bundles the read-only collaborators the status/health endpoints
// report on.
type Status struct {
	Symbol      string
	Breaker     *circuit.Breaker
	Rules       *rules.Engine
	Performance *performance.Tracker
	Gateway     gateway.BrokerGateway
}

// Server is the engine's HTTP surface.
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	cfg        Config
	status     Status
}

// NewServer constructs a Server and registers its routes.
func NewServer(cfg Config, status Status) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if cfg.AllowedOrigins == "" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = strings.Split(cfg.AllowedOrigins, ",")
	}
	corsConfig.AllowMethods = []string{"GET"}
	router.Use(cors.New(corsConfig))

	s := &Server{router: router, cfg: cfg, status: status}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)
	s.router.GET("/status", s.handleStatus)
	s.router.GET("/status/rules", s.handleRuleStates)
	s.router.GET("/status/performance", s.handlePerformance)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// Start runs the HTTP server until it errors or is shut down.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("api server: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
