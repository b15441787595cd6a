// Package router assembles the gin engine of the manufacturing API.
package router

import (
	"context"
	"net/http"

	"github.com/erp/manufacturing/internal/infrastructure/logger"
	"github.com/erp/manufacturing/internal/interfaces/http/dto"
	"github.com/erp/manufacturing/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// DefaultMaxBodyBytes caps request bodies when Options leaves it unset
const DefaultMaxBodyBytes int64 = 1 << 20

// RouteRegistrar is implemented by every handler
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// HealthCheck reports whether a dependency is reachable
type HealthCheck func(ctx context.Context) error

// Options configures the engine middleware
type Options struct {
	ServiceName    string
	Logger         *zap.Logger
	CORS           middleware.CORSConfig
	MaxBodyBytes   int64
	TrustedProxies []string
	// RateLimit is installed when non-nil
	RateLimit *middleware.RateLimitConfig
	// Meter records HTTP metrics when non-nil
	Meter metric.Meter
	// Profiling labels requests for the continuous profiler
	Profiling bool
	Health    map[string]HealthCheck
}

// Router manages HTTP route registration
type Router struct {
	engine     *gin.Engine
	apiVersion string
	registrars []RouteRegistrar
}

// RouterOption is a functional option for Router configuration
type RouterOption func(*Router)

// WithAPIVersion sets the API version prefix (e.g., "v1", "v2")
func WithAPIVersion(version string) RouterOption {
	return func(r *Router) {
		r.apiVersion = version
	}
}

// NewRouter creates a new Router instance
func NewRouter(engine *gin.Engine, opts ...RouterOption) *Router {
	r := &Router{
		engine:     engine,
		apiVersion: "v1",
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a RouteRegistrar to be registered by Setup
func (r *Router) Register(registrars ...RouteRegistrar) *Router {
	r.registrars = append(r.registrars, registrars...)
	return r
}

// Setup mounts every registrar under /api/<version>
func (r *Router) Setup() {
	api := r.engine.Group("/api/" + r.apiVersion)
	for _, registrar := range r.registrars {
		registrar.RegisterRoutes(api)
	}
}

// NewEngine builds a gin engine with the middleware chain in order:
// recovery, request logging, tracing, security headers, CORS, body limit,
// rate limit, HTTP metrics and profiling labels. It also serves /health
// and answers unknown routes with the error envelope.
func NewEngine(opts Options) (*gin.Engine, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if err := middleware.SetupValidator(); err != nil {
		return nil, err
	}

	engine := gin.New()
	if err := engine.SetTrustedProxies(opts.TrustedProxies); err != nil {
		return nil, err
	}

	maxBody := opts.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = DefaultMaxBodyBytes
	}
	engine.Use(
		logger.Recovery(log),
		logger.GinMiddleware(log),
		middleware.Tracing(opts.ServiceName),
		middleware.SpanEnricher(),
		middleware.Secure(),
		middleware.CORS(opts.CORS),
		middleware.BodyLimit(maxBody),
	)
	if opts.RateLimit != nil {
		limit, err := middleware.RateLimit(*opts.RateLimit)
		if err != nil {
			return nil, err
		}
		engine.Use(limit)
	}
	if opts.Meter != nil {
		metrics, err := middleware.HTTPMetrics(opts.Meter)
		if err != nil {
			return nil, err
		}
		engine.Use(metrics)
	}
	if opts.Profiling {
		engine.Use(middleware.Profiling())
	}

	engine.GET("/health", healthHandler(opts.Health))
	engine.NoRoute(middleware.NoRoute())
	return engine, nil
}

type healthStatus struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func healthHandler(checks map[string]HealthCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := healthStatus{Status: "ok", Checks: make(map[string]string, len(checks))}
		code := http.StatusOK
		for name, check := range checks {
			if err := check(c.Request.Context()); err != nil {
				status.Status = "degraded"
				status.Checks[name] = err.Error()
				code = http.StatusServiceUnavailable
				continue
			}
			status.Checks[name] = "ok"
		}
		c.JSON(code, dto.Response{Success: code == http.StatusOK, Data: status})
	}
}
