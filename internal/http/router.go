// README: HTTP router registration.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"cargo/internal/config"
	"cargo/internal/http/handlers"
	"cargo/internal/http/middleware"
	"cargo/internal/infra"
	"cargo/internal/ratelimit"
)

type RouterDeps struct {
	Quote    *handlers.QuoteHandler
	Vehicles *handlers.VehicleHandler
	Config   *handlers.ConfigHandler
	Health   *handlers.HealthHandler
	// Proxy and Orders are nil when not configured.
	Proxy    *handlers.ProxyHandler
	Orders   *handlers.OrderHandler
	Limiter  *ratelimit.Limiter
	Limits   func(name string) config.Limit
	Verifier infra.TokenVerifier
}

// NewRouter registers every route. Global middleware runs before each handler chain.
func NewRouter(deps RouterDeps, global ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(global...)
	limit := func(name string) gin.HandlerFunc {
		return middleware.RateLimit(deps.Limiter, name, deps.Limits(name))
	}
	admin := []gin.HandlerFunc{middleware.Auth(deps.Verifier), middleware.RequireRole(middleware.RoleAdmin)}

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	api := r.Group("/api/v2")
	api.GET("/health", deps.Health.Health)

	calc := api.Group("/calculator")
	calc.POST("/step1", limit("step1"), deps.Quote.Step1)
	calc.POST("/step2", limit("step2"), deps.Quote.Step2)
	calc.POST("/step3", limit("step3"), deps.Quote.Step3)
	calc.POST("/complete", limit("complete"), deps.Quote.Complete)
	calc.POST("/zone-analysis", limit("zone"), deps.Quote.ZoneAnalysis)
	calc.POST("/zone-pricing", limit("zone"), deps.Quote.ZonePricing)
	calc.POST("/loaders-cost", limit("loaders_cost"), deps.Quote.LoadersCost)
	calc.GET("/rate-limit-status", deps.Quote.RateLimitStatus)
	api.POST("/calculate-price", limit("calculate_price"), deps.Quote.CalculatePrice)

	api.GET("/vehicles", limit("vehicles"), deps.Vehicles.List)
	api.GET("/vehicles/:id", limit("vehicles"), deps.Vehicles.Get)

	cfg := api.Group("/config")
	cfg.GET("/calculator", limit("config_read"), deps.Config.Calculator)
	cfg.GET("/kad-polygon", limit("config_read"), deps.Config.KadPolygon)
	cfg.Group("", admin...).POST("/reload", limit("config_reload"), deps.Config.Reload)

	if deps.Proxy != nil {
		api.GET("/proxy/osrm", limit("proxy"), deps.Proxy.OSRM)
		api.GET("/proxy/nominatim", limit("proxy"), deps.Proxy.Nominatim)
	}

	if deps.Orders != nil {
		orders := api.Group("/orders")
		orders.POST("", limit("orders_create"), deps.Orders.Create)
		orders.GET("/:id", limit("orders_read"), deps.Orders.Get)

		manage := orders.Group("", admin...)
		manage.GET("", deps.Orders.List)
		manage.GET("/stats", deps.Orders.Stats)
		manage.PUT("/:id/status", limit("orders_status"), deps.Orders.UpdateStatus)
	}
	return r
}
