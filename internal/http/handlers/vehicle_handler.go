// README: Vehicle catalog handlers.
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"cargo/internal/catalog"
)

type VehicleHandler struct {
	catalog *catalog.Provider
}

func NewVehicleHandler(cat *catalog.Provider) *VehicleHandler {
	return &VehicleHandler{catalog: cat}
}

func (h *VehicleHandler) List(c *gin.Context) {
	vehicles := h.catalog.Snapshot().AvailableVehicles()
	writeData(c, gin.H{"vehicles": vehicles, "count": len(vehicles)})
}

func (h *VehicleHandler) Get(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		writeError(c, http.StatusBadRequest, "Valid vehicle ID is required")
		return
	}
	v, ok := h.catalog.Snapshot().VehicleByID(id)
	if !ok {
		writeError(c, http.StatusNotFound, "Vehicle not found")
		return
	}
	writeData(c, v)
}
