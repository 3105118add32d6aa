package server

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/abduss/artifactdrive/internal/auth"
	"github.com/abduss/artifactdrive/internal/config"
	"github.com/abduss/artifactdrive/internal/logger"
	"github.com/abduss/artifactdrive/internal/metrics"
	"github.com/abduss/artifactdrive/internal/release"
	"github.com/abduss/artifactdrive/internal/ticket"
)

// Dependencies groups the services required by the HTTP router.
type Dependencies struct {
	Config         config.Config
	DB             Pinger
	ObjectStore    Pinger
	KeyVerifier    *auth.KeyVerifier
	TokenService   *auth.TokenService
	ReleaseService *release.Service
	TicketService  *ticket.Service
	Logger         *zap.Logger
}

// NewRouter builds a Gin engine with foundational middleware and routes.
func NewRouter(deps Dependencies) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(logger.Middleware())
	router.Use(metrics.Middleware())
	if deps.Config.Server.MaxUploadBytes > 0 {
		router.MaxMultipartMemory = deps.Config.Server.MaxUploadBytes
	}

	registerHealthRoutes(router, deps)
	metrics.Register(router, deps.Config.Metrics.PrometheusPath)

	public := router.Group("/v1")
	publisher := router.Group("/v1")
	publisher.Use(auth.RequireAPIKey(deps.KeyVerifier, deps.Logger))
	staff := router.Group("/v1")
	staff.Use(auth.RequireStaffToken(deps.TokenService, deps.Logger))

	auth.RegisterRoutes(public, deps.TokenService, deps.Logger)
	if deps.ReleaseService != nil {
		release.RegisterRoutes(public, publisher, deps.ReleaseService)
	}
	if deps.TicketService != nil {
		ticket.RegisterRoutes(public, staff, deps.TicketService)
	}

	return router
}
