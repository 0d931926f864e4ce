// Package router assembles the gin engine.
package router

import (
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/fleet-service-api/api/swagger"
	"github.com/noah-isme/fleet-service-api/internal/handler"
	"github.com/noah-isme/fleet-service-api/internal/middleware"
	"github.com/noah-isme/fleet-service-api/internal/models"
	"github.com/noah-isme/fleet-service-api/pkg/config"
	"github.com/noah-isme/fleet-service-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/fleet-service-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/fleet-service-api/pkg/middleware/requestid"
)

// Options configures the engine.
type Options struct {
	Env            string
	APIPrefix      string
	AllowedOrigins []string
	Logger         *zap.Logger
	Observer       middleware.HTTPObserver
	Auth           middleware.TokenValidator
}

// Handlers groups the HTTP handlers.
type Handlers struct {
	Requests    *handler.ServiceRequestHandler
	Bulk        *handler.BulkHandler
	Technicians *handler.TechnicianHandler
	Metrics     *handler.MetricsHandler
}

// New builds the engine with every route registered.
func New(opts Options, h Handlers) *gin.Engine {
	if opts.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.APIPrefix == "" {
		opts.APIPrefix = "/api/v1"
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(opts.Logger))
	r.Use(corsmiddleware.New(opts.AllowedOrigins))
	r.Use(middleware.Metrics(opts.Observer))
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	r.GET("/health", h.Metrics.Health)
	r.GET("/metrics", h.Metrics.Prometheus)
	if opts.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(opts.APIPrefix, middleware.JWT(opts.Auth))

	requests := api.Group("/requests")
	requests.POST("", middleware.RequireRoles(models.RoleCustomer, models.RoleOffice, models.RoleDispatch, models.RoleAdmin), h.Requests.Create)
	requests.POST("/bulk", middleware.RequireRoles(models.RoleDispatch, models.RoleOffice, models.RoleAdmin), h.Bulk.Apply)
	requests.GET("/:id", h.Requests.Get)
	requests.DELETE("/:id", h.Requests.Delete)
	requests.POST("/:id/transitions", h.Requests.Transition)
	requests.PUT("/:id/schedule", middleware.RequireRoles(models.RoleDispatch, models.RoleAdmin), h.Requests.Schedule)

	technicians := api.Group("/technicians")
	technicians.GET("/:id/schedule", middleware.RequireRoles(models.RoleDispatch, models.RoleOffice, models.RoleTechnician, models.RoleAdmin), h.Technicians.Schedule)
	technicians.PUT("/:id", middleware.RequireRoles(models.RoleAdmin), h.Technicians.Upsert)

	return r
}
