package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	promhandler "github.com/nahuelfrank/proyectogestiondesalud-sub001/internal/handler/prometheus"
	"github.com/nahuelfrank/proyectogestiondesalud-sub001/internal/middleware"
)

type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

type Router struct {
	engine   *gin.Engine
	health   Handler
	handlers []Handler
}

type RouterConfig struct {
	Mode           string
	RateLimit      rate.Limit
	RateBurst      int
	RequestTimeout time.Duration
	CORSConfig     middleware.CORSConfig
}

// NewRouter builds the engine with the shared middleware chain. Health
// routes skip the rate limiter so probes are never throttled.
func NewRouter(config RouterConfig, metrics *promhandler.Handler, health Handler, handlers ...Handler) *Router {
	if config.Mode != "" {
		gin.SetMode(config.Mode)
	}

	engine := gin.New()
	engine.Use(
		middleware.RequestID(),
		middleware.Recovery(),
		middleware.Logger(),
		metrics.Middleware(),
		middleware.CORS(config.CORSConfig),
	)
	if config.RequestTimeout > 0 {
		engine.Use(middleware.Timeout(middleware.TimeoutConfig{Duration: config.RequestTimeout}))
	}

	r := &Router{
		engine:   engine,
		health:   health,
		handlers: handlers,
	}
	r.setup(config)
	return r
}

func (r *Router) setup(config RouterConfig) {
	api := r.engine.Group("/api/v1")
	r.health.RegisterRoutes(api)

	limited := api.Group("")
	if config.RateLimit > 0 {
		limiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Rate:  config.RateLimit,
			Burst: config.RateBurst,
		})
		limited.Use(limiter.RateLimit())
	}
	for _, h := range r.handlers {
		h.RegisterRoutes(limited)
	}
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
