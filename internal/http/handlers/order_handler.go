// README: Order handlers (create with server-side pricing, lookup, admin listing and status).
package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"cargo/internal/http/middleware"
	"cargo/internal/modules/order"
	"cargo/internal/types"
)

type OrderHandler struct {
	orders *order.Service
}

func NewOrderHandler(orders *order.Service) *OrderHandler {
	return &OrderHandler{orders: orders}
}

type createOrderRequest struct {
	CustomerName  string `json:"customer_name"`
	CustomerPhone string `json:"customer_phone"`
	OrderNotes    string `json:"order_notes"`
	PaymentMethod string `json:"payment_method"`
	routeFields
	vehicleFields
	extraFields
}

// pickupLayouts are the formats the booking form is known to send.
var pickupLayouts = []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02 15:04", "2006-01-02T15:04:05"}

func parsePickup(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range pickupLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func (h *OrderHandler) Create(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "No data provided")
		return
	}
	pickup, ok := parsePickup(req.PickupTime)
	if !ok {
		writeError(c, http.StatusBadRequest, "Invalid pickup time")
		return
	}
	vr := req.vehicleFields.request()
	o, err := h.orders.Create(c.Request.Context(), order.CreateCommand{
		CustomerName:      req.CustomerName,
		CustomerPhone:     req.CustomerPhone,
		FromAddress:       strings.TrimSpace(req.FromAddress),
		ToAddress:         strings.TrimSpace(req.ToAddress),
		PickupTime:        pickup,
		DurationHours:     req.DurationHours.Or(1),
		Passengers:        vr.Passengers,
		Loaders:           vr.Loaders,
		Vehicle:           vr,
		SelectedVehicleID: req.SelectedVehicleID.Or(0),
		Urgent:            bool(req.UrgentPickup),
		PaymentMethod:     strings.ToLower(strings.TrimSpace(req.PaymentMethod)),
		ExtraServices:     req.AdditionalServices,
		ExtraServicesCost: req.AdditionalServicesCost.V,
		Notes:             req.OrderNotes,
	})
	if err != nil {
		writeOrderError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, gin.H{
		"success":    true,
		"order_id":   o.ID,
		"total_cost": o.TotalCost,
		"order":      o,
		"message":    "Order created",
	})
}

func (h *OrderHandler) Get(c *gin.Context) {
	o, err := h.orders.Get(c.Request.Context(), types.ID(c.Param("id")))
	if err != nil {
		writeOrderError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"success": true, "order": o})
}

func (h *OrderHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))
	f := order.NormalizeFilter(order.Filter{
		Status: order.Status(c.Query("status")),
		Phone:  c.Query("customer_phone"),
		Limit:  limit,
		Offset: offset,
	})
	orders, err := h.orders.List(c.Request.Context(), f)
	if err != nil {
		writeOrderError(c, err)
		return
	}
	if orders == nil {
		orders = []order.Order{}
	}
	writeJSON(c, http.StatusOK, gin.H{
		"success":     true,
		"orders":      orders,
		"total_count": len(orders),
		"limit":       f.Limit,
		"offset":      f.Offset,
	})
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Status) == "" {
		writeError(c, http.StatusBadRequest, "Status is required")
		return
	}
	o, err := h.orders.UpdateStatus(c.Request.Context(), order.UpdateStatusCommand{
		OrderID:   types.ID(c.Param("id")),
		To:        order.Status(strings.TrimSpace(req.Status)),
		ActorType: "admin:" + middleware.CallerUID(c),
	})
	if err != nil {
		writeOrderError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"success": true, "order": o})
}

func (h *OrderHandler) Stats(c *gin.Context) {
	s, err := h.orders.Stats(c.Request.Context())
	if err != nil {
		writeOrderError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"success": true, "stats": s})
}
