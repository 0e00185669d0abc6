// README: Calculator configuration export, hot reload and zone polygon handlers.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"cargo/internal/catalog"
	"cargo/internal/modules/zone"
)

type ConfigHandler struct {
	catalog *catalog.Provider
	zones   *zone.Classifier
}

func NewConfigHandler(cat *catalog.Provider, zones *zone.Classifier) *ConfigHandler {
	return &ConfigHandler{catalog: cat, zones: zones}
}

// Calculator exports what the public form needs: rates, vehicles, limits and services.
func (h *ConfigHandler) Calculator(c *gin.Context) {
	s := h.catalog.Snapshot()
	writeData(c, gin.H{
		"pricing":             s.Pricing,
		"vehicles":            s.AvailableVehicles(),
		"calculator_limits":   s.Limits,
		"additional_services": s.AdditionalServices,
	})
}

func (h *ConfigHandler) Reload(c *gin.Context) {
	if err := h.catalog.Reload(); err != nil {
		_ = c.Error(err)
		writeError(c, http.StatusBadRequest, "Configuration reload failed: "+err.Error())
		return
	}
	writeData(c, gin.H{
		"message":        "Configuration reloaded",
		"vehicles_count": len(h.catalog.Snapshot().Vehicles),
	})
}

// KadPolygon returns the ring-road outline as GeoJSON-ordered [lng, lat] pairs.
func (h *ConfigHandler) KadPolygon(c *gin.Context) {
	p, err := h.zones.Polygon()
	if err != nil {
		_ = c.Error(err)
		writeError(c, http.StatusNotFound, "KAD polygon is not available")
		return
	}
	ring := p.Ring()
	coords := make([][2]float64, len(ring))
	for i, pt := range ring {
		coords[i] = [2]float64{pt.Lng, pt.Lat}
	}
	writeData(c, gin.H{
		"type":        "Polygon",
		"coordinates": [][][2]float64{coords},
		"points":      len(coords),
	})
}
