// README: Liveness and dependency health.
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"cargo/internal/cache"
	"cargo/internal/catalog"
)

const apiVersion = "2.0"

type HealthHandler struct {
	cache   cache.Cache
	catalog *catalog.Provider
}

func NewHealthHandler(c cache.Cache, cat *catalog.Provider) *HealthHandler {
	return &HealthHandler{cache: c, catalog: cat}
}

func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	cacheStatus := "healthy"
	if err := h.cache.Ping(ctx); err != nil {
		_ = c.Error(err)
		cacheStatus = "unhealthy"
	}
	snap := h.catalog.Snapshot()
	catalogStatus := "healthy"
	if snap == nil || len(snap.Vehicles) == 0 {
		catalogStatus = "unhealthy"
	}

	status, code := "healthy", http.StatusOK
	if cacheStatus != "healthy" || catalogStatus != "healthy" {
		status, code = "degraded", http.StatusServiceUnavailable
	}
	count := 0
	if snap != nil {
		count = len(snap.AvailableVehicles())
	}
	writeJSON(c, code, gin.H{
		"status":    status,
		"version":   apiVersion,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"services": gin.H{
			"cache":            cacheStatus,
			"vehicle_database": catalogStatus,
		},
		"metrics": gin.H{"vehicles_count": count},
	})
}
