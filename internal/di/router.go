package di

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/prohmpiriya/eventic-admission/pkg/logger"
	"github.com/prohmpiriya/eventic-admission/pkg/middleware"
	"github.com/prohmpiriya/eventic-admission/pkg/telemetry"
)

// RouterConfig holds the HTTP surface options
type RouterConfig struct {
	JWT            *middleware.JWTConfig
	AllowedOrigins []string
	// Idempotency is disabled when nil
	Idempotency *middleware.IdempotencyConfig
	Version     string
	Log         *logger.Logger
}

// NewRouter builds the gin engine with middleware and routes
func (c *Container) NewRouter(cfg *RouterConfig) *gin.Engine {
	log := cfg.Log
	if log == nil {
		log = logger.Get()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(telemetry.TracingMiddleware())
	router.Use(middleware.Logger(log))
	router.Use(cors.New(corsConfig(cfg.AllowedOrigins)))

	// Health check endpoints
	router.GET("/health", c.HealthHandler.Health)
	router.GET("/ready", c.HealthHandler.Ready)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/status", func(ctx *gin.Context) {
			ctx.JSON(http.StatusOK, gin.H{
				"status":  "ok",
				"version": cfg.Version,
				"service": "admission-service",
			})
		})

		authed := v1.Group("")
		authed.Use(middleware.JWTMiddleware(cfg.JWT))

		admit := []gin.HandlerFunc{c.AdmissionHandler.Validate}
		if cfg.Idempotency != nil {
			admit = append([]gin.HandlerFunc{middleware.IdempotencyMiddleware(cfg.Idempotency)}, admit...)
		}
		authed.POST("/admissions", admit...)
		authed.POST("/location-requests/:id", c.AdmissionHandler.AnswerLocation)

		tickets := authed.Group("/tickets")
		{
			tickets.GET("/:id", c.TicketHandler.GetTicket)
			tickets.POST("/:id/credentials", c.TicketHandler.IssueCredential)
		}

		validators := authed.Group("/events/:id/validators")
		{
			validators.GET("", c.ValidatorHandler.List)
			validators.POST("", c.ValidatorHandler.Add)
			validators.DELETE("/:user_id", c.ValidatorHandler.Remove)
		}
	}

	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader, middleware.IdempotencyKeyHeader},
		ExposeHeaders:    []string{middleware.RequestIDHeader, telemetry.TraceIDHeader, "Idempotent-Replayed"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}

	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	cfg.AllowOrigins = origins
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	}
	return cfg
}
