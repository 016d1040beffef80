package server

import (
	"github.com/gin-gonic/gin"

	"smartcv-backend/internal/shared/config"
	"smartcv-backend/internal/shared/metrics"
	"smartcv-backend/internal/shared/server/middleware"
)

// Rate limit groups.
const (
	GroupPipeline = "PIPELINE"
	GroupPayment  = "PAYMENT"
	GroupDefault  = "DEFAULT"
)

// Routes is implemented by every handler mounted under /api.
type Routes interface {
	RegisterRoutes(rg gin.IRoutes)
}

// RouterDeps carries the handlers built by bootstrap.
type RouterDeps struct {
	Config    config.Config
	Pipeline  Routes
	Payments  Routes
	Coupons   Routes
	Analytics Routes
	Health    Routes
	Limiter   *middleware.RateLimiter
}

var routeGroups = map[string]string{
	"/api/analyze-cv":              GroupPipeline,
	"/api/analyze-only":            GroupPipeline,
	"/api/improve-only":            GroupPipeline,
	"/api/create-checkout-session": GroupPayment,
	"/api/verify-session":          GroupPayment,
	"/api/webhook":                 GroupPayment,
	"/api/validate-coupon":         GroupPayment,
}

// RateLimitRules are the per-group token buckets.
func RateLimitRules() map[string]middleware.RateLimitRule {
	return map[string]middleware.RateLimitRule{
		GroupPipeline: {Rate: 0.2, Burst: 3},
		GroupPayment:  {Rate: 2, Burst: 10},
		GroupDefault:  {Rate: 5, Burst: 20},
	}
}

func groupFor(c *gin.Context) string {
	if g, ok := routeGroups[c.FullPath()]; ok {
		return g
	}
	return GroupDefault
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
		middleware.RateLimit(middleware.RateLimitConfig{
			Rules:        RateLimitRules(),
			DefaultGroup: GroupDefault,
			GroupFor:     groupFor,
			Limiter:      deps.Limiter,
		}),
	)

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api")
	for _, h := range []Routes{deps.Health, deps.Pipeline, deps.Coupons, deps.Payments, deps.Analytics} {
		if h != nil {
			h.RegisterRoutes(api)
		}
	}
	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":5001"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
