package router

import (
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/clinic-scheduler/internal/handler/prometheus"
	"github.com/jwalitptl/clinic-scheduler/internal/middleware"
	"github.com/jwalitptl/clinic-scheduler/internal/repository"
	"github.com/jwalitptl/clinic-scheduler/pkg/logger"
)

type Handler interface {
	RegisterRoutes(gin.IRouter)
}

type Router struct {
	engine   *gin.Engine
	auth     *middleware.AuthMiddleware
	catalog  repository.CatalogRepository
	health   Handler
	metrics  *prometheus.Handler
	handlers []Handler
	config   RouterConfig
}

type RouterConfig struct {
	RateLimit  rate.Limit
	RateBurst  int
	CORSConfig middleware.CORSConfig
	Timeout    middleware.TimeoutConfig
	Logger     *logger.Logger

	// MaxBodyBytes defaults to middleware.DefaultMaxBodyBytes.
	MaxBodyBytes int64
}

// NewRouter wires the middleware chain. handlers are mounted under
// /api/v1 behind authentication.
func NewRouter(
	auth *middleware.AuthMiddleware,
	catalog repository.CatalogRepository,
	health Handler,
	metrics *prometheus.Handler,
	config RouterConfig,
	handlers ...Handler,
) *Router {
	// Set production mode
	gin.SetMode(gin.ReleaseMode)

	if config.Logger == nil {
		config.Logger = logger.Nop()
	}
	if config.Timeout.Duration <= 0 {
		config.Timeout = middleware.DefaultTimeoutConfig()
	}

	engine := gin.New()
	engine.Use(
		middleware.Recovery(config.Logger),
		middleware.RequestID(),
		middleware.Logger(config.Logger),
		metrics.Middleware(),
		middleware.ErrorHandler(config.Logger),
		middleware.Timeout(config.Timeout),
		middleware.CORS(config.CORSConfig),
		middleware.SecurityHeaders(middleware.DefaultSecurityConfig()),
		middleware.BodyLimit(config.MaxBodyBytes),
	)

	return &Router{
		engine:   engine,
		auth:     auth,
		catalog:  catalog,
		health:   health,
		metrics:  metrics,
		handlers: handlers,
		config:   config,
	}
}

func (r *Router) Setup() {
	r.engine.GET("/metrics", r.metrics.Handler())

	api := r.engine.Group("/api/v1")
	api.Use(func(c *gin.Context) {
		c.Header("X-API-Version", "1.0")
		c.Next()
	})

	// Probes stay public; everything registered below is authenticated.
	r.health.RegisterRoutes(api)

	rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		Rate:  r.config.RateLimit,
		Burst: r.config.RateBurst,
	})

	api.Use(
		r.auth.Authenticate(),
		rateLimiter.RateLimit(),
		middleware.Loaders(r.catalog),
	)
	for _, h := range r.handlers {
		h.RegisterRoutes(api)
	}
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
