// Package router assembles the gin engine, the middleware pipeline and the
// HTTP server lifecycle.
package router

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/careplane/careplane/internal/config"
	domainservice "github.com/careplane/careplane/internal/domain/service"
	"github.com/careplane/careplane/internal/infrastructure/monitoring"
	"github.com/careplane/careplane/internal/interfaces/http/handlers"
	"github.com/careplane/careplane/internal/interfaces/http/middleware"
	"github.com/careplane/careplane/pkg/logger"
)

// Dependencies carries everything the router wires together.
type Dependencies struct {
	Config     *config.Config
	Logger     logger.Logger
	Metrics    *monitoring.Metrics
	Registry   *prometheus.Registry
	Resolver   *domainservice.TenantContextResolver
	Validator  *domainservice.IsolationValidator
	Scanner    *domainservice.ThreatPatternScanner
	Limiter    domainservice.RateLimiter
	Audit      domainservice.AuditService
	Compliance *handlers.ComplianceHandler
	Assistant  *handlers.AssistantHandler
	Permission *handlers.PermissionHandler
	Health     *handlers.HealthHandler
}

// Server owns the HTTP listener.
type Server struct {
	engine *gin.Engine
	server *http.Server
	logger logger.Logger
}

// New builds the engine and routes. Health, metrics and profiling stay
// outside the tenant boundary; everything under /api/v1 runs the full
// pipeline.
func New(deps Dependencies) *Server {
	if deps.Config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(cors.Default())
	engine.Use(middleware.RequestID())

	engine.GET("/health/live", deps.Health.Live)
	engine.GET("/health/ready", deps.Health.Ready)
	engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Registry,
		promhttp.HandlerOpts{})))
	pprof.Register(engine)

	api := engine.Group("/api/v1")
	api.Use(middleware.PrincipalAuth(deps.Config.Security.JWTSecret))
	api.Use(middleware.TenantContext(deps.Resolver))
	api.Use(middleware.Isolation(deps.Validator, deps.Audit, deps.Metrics, deps.Logger))
	{
		organizations := api.Group("/organizations")
		organizations.POST("/:orgID/assessments", deps.Compliance.RunAssessment)
		organizations.GET("/:orgID/assessments", deps.Compliance.History)

		assistant := api.Group("/assistant")
		assistant.Use(middleware.RateLimit(deps.Limiter,
			deps.Config.Assistant.RateLimitPerMinute, deps.Audit, deps.Metrics, deps.Logger))
		assistant.Use(middleware.ThreatScan(deps.Scanner, deps.Audit, deps.Metrics, deps.Logger))
		assistant.POST("/query", deps.Assistant.Query)

		permissions := api.Group("/permissions")
		permissions.POST("", deps.Permission.Grant)
		permissions.GET("", deps.Permission.List)
		permissions.DELETE("/:id", deps.Permission.Revoke)
	}

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", deps.Config.Server.Host, deps.Config.Server.Port),
		Handler:      engine,
		ReadTimeout:  time.Duration(deps.Config.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(deps.Config.Server.WriteTimeout) * time.Second,
	}

	return &Server{
		engine: engine,
		server: server,
		logger: deps.Logger.WithComponent("http_server"),
	}
}

// Engine exposes the gin engine for tests.
func (s *Server) Engine() *gin.Engine { return s.engine }

// Start serves until the listener closes.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info(ctx, "http server listening", logger.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
