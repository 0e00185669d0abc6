// README: Calculator handlers for the staged quote flow and its helpers.
package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"cargo/internal/catalog"
	"cargo/internal/config"
	"cargo/internal/http/middleware"
	"cargo/internal/modules/pricing"
	"cargo/internal/ratelimit"
	"cargo/internal/types"
)

type QuoteHandler struct {
	pricing *pricing.Service
	catalog *catalog.Provider
	limiter *ratelimit.Limiter
	limits  func(string) config.Limit
}

// NewQuoteHandler builds the quote endpoints. limits resolves the budget of a
// rate-limited endpoint group and must match the one given to the router.
func NewQuoteHandler(svc *pricing.Service, cat *catalog.Provider, limiter *ratelimit.Limiter, limits func(string) config.Limit) *QuoteHandler {
	return &QuoteHandler{pricing: svc, catalog: cat, limiter: limiter, limits: limits}
}

type routeFields struct {
	FromAddress   string   `json:"from_address"`
	ToAddress     string   `json:"to_address"`
	Distance      optFloat `json:"distance"`
	PickupTime    string   `json:"pickup_time"`
	DurationHours optInt   `json:"duration_hours"`
	UrgentPickup  optBool  `json:"urgent_pickup"`
}

func (r routeFields) request() pricing.RouteRequest {
	return pricing.RouteRequest{
		From:             strings.TrimSpace(r.FromAddress),
		To:               strings.TrimSpace(r.ToAddress),
		DistanceOverride: r.Distance.Ptr(),
	}
}

type vehicleFields struct {
	Passengers optInt   `json:"passengers"`
	Loaders    optInt   `json:"loaders"`
	Height     optFloat `json:"height"`
	Length     optFloat `json:"length"`
	BodyType   string   `json:"body_type"`
}

func (v vehicleFields) request() pricing.VehicleRequest {
	return pricing.VehicleRequest{
		Passengers: v.Passengers.Or(0),
		Loaders:    v.Loaders.Or(0),
		BodyType:   catalog.ParseBodyType(v.BodyType),
		Height:     v.Height.Ptr(),
		Length:     v.Length.Ptr(),
	}
}

type extraFields struct {
	SelectedVehicleID      optInt   `json:"selected_vehicle_id"`
	AdditionalServices     []string `json:"additional_services"`
	AdditionalServicesCost optFloat `json:"additional_services_cost"`
}

// validateRoute checks the fields every route-priced request needs.
func (h *QuoteHandler) validateRoute(c *gin.Context, r routeFields) bool {
	if strings.TrimSpace(r.FromAddress) == "" || strings.TrimSpace(r.ToAddress) == "" {
		writeError(c, http.StatusBadRequest, "From and to addresses are required")
		return false
	}
	if strings.TrimSpace(r.PickupTime) == "" {
		writeError(c, http.StatusBadRequest, "Pickup time is required")
		return false
	}
	if err := h.pricing.ValidateDuration(r.DurationHours.Or(1)); err != nil {
		writeQuoteError(c, err, http.StatusBadRequest)
		return false
	}
	return true
}

func (h *QuoteHandler) validateVehicle(c *gin.Context, v pricing.VehicleRequest) bool {
	l := h.catalog.Snapshot().Limits
	if v.Passengers < 0 || v.Passengers > l.MaxPassengers {
		writeError(c, http.StatusBadRequest, "Passengers must be between 0 and "+strconv.Itoa(l.MaxPassengers))
		return false
	}
	if v.Loaders < 0 || v.Loaders > l.MaxLoaders {
		writeError(c, http.StatusBadRequest, "Loaders must be between 0 and "+strconv.Itoa(l.MaxLoaders))
		return false
	}
	return true
}

func (h *QuoteHandler) Step1(c *gin.Context) {
	var req routeFields
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "No data provided")
		return
	}
	if !h.validateRoute(c, req) {
		return
	}
	q, err := h.pricing.QuoteRoute(c.Request.Context(), req.request(), req.DurationHours.Or(1), bool(req.UrgentPickup))
	if err != nil {
		writeQuoteError(c, err, http.StatusBadRequest)
		return
	}
	writeData(c, q)
}

func (h *QuoteHandler) Step2(c *gin.Context) {
	var req vehicleFields
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "No data provided")
		return
	}
	vr := req.request()
	if !h.validateVehicle(c, vr) {
		return
	}
	vehicles, err := h.pricing.FilterVehicles(c.Request.Context(), vr)
	if err != nil {
		writeQuoteError(c, err, http.StatusBadRequest)
		return
	}
	writeData(c, gin.H{"vehicles": vehicles, "count": len(vehicles)})
}

type step3Request struct {
	Step1Result *struct {
		Total optFloat `json:"total"`
	} `json:"step1_result"`
	Loaders       optInt `json:"loaders"`
	DurationHours optInt `json:"duration_hours"`
	extraFields
}

func (h *QuoteHandler) Step3(c *gin.Context) {
	var req step3Request
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "No data provided")
		return
	}
	if req.Step1Result == nil || !req.Step1Result.Total.Set {
		writeError(c, http.StatusBadRequest, "Step1 result is required")
		return
	}
	if req.SelectedVehicleID.Or(0) <= 0 {
		writeError(c, http.StatusBadRequest, "Valid vehicle ID is required")
		return
	}
	b, v, err := h.pricing.Finalize(
		types.RoundHalfUp(req.Step1Result.Total.V),
		req.SelectedVehicleID.V,
		req.Loaders.Or(0),
		req.DurationHours.Or(1),
		req.AdditionalServices,
		max(req.AdditionalServicesCost.V, 0),
	)
	if err != nil {
		writeQuoteError(c, err, http.StatusNotFound)
		return
	}
	writeData(c, gin.H{"breakdown": b, "selected_vehicle": v})
}

type completeRequest struct {
	routeFields
	vehicleFields
	extraFields
}

func (h *QuoteHandler) complete(c *gin.Context) (pricing.CompleteResult, bool) {
	var req completeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "No data provided")
		return pricing.CompleteResult{}, false
	}
	if req.SelectedVehicleID.Or(0) <= 0 {
		writeError(c, http.StatusBadRequest, "Missing required fields")
		return pricing.CompleteResult{}, false
	}
	if !h.validateRoute(c, req.routeFields) {
		return pricing.CompleteResult{}, false
	}
	vr := req.vehicleFields.request()
	if !h.validateVehicle(c, vr) {
		return pricing.CompleteResult{}, false
	}
	res, err := h.pricing.Complete(c.Request.Context(), pricing.CompleteRequest{
		Route:             req.routeFields.request(),
		DurationHours:     req.DurationHours.Or(1),
		Urgent:            bool(req.UrgentPickup),
		Vehicle:           vr,
		SelectedVehicleID: req.SelectedVehicleID.V,
		ExtraServices:     req.AdditionalServices,
		ExtraServicesCost: max(req.AdditionalServicesCost.V, 0),
	})
	if err != nil {
		writeQuoteError(c, err, http.StatusBadRequest)
		return pricing.CompleteResult{}, false
	}
	return res, true
}

func (h *QuoteHandler) Complete(c *gin.Context) {
	if res, ok := h.complete(c); ok {
		writeData(c, res)
	}
}

// CalculatePrice is the price refresh used by the order form.
func (h *QuoteHandler) CalculatePrice(c *gin.Context) {
	res, ok := h.complete(c)
	if !ok {
		return
	}
	writeData(c, gin.H{
		"total_cost":          res.Breakdown.Total,
		"breakdown":           res.Breakdown,
		"route_analysis":      res.Quote.Route,
		"step1":               res.Quote.Cost,
		"selected_vehicle":    res.Vehicle,
		"available_vehicles":  len(res.Vehicles),
		"extra_services_cost": res.Breakdown.ExtraServicesCost,
	})
}

type addressPair struct {
	FromAddress string `json:"from_address"`
	ToAddress   string `json:"to_address"`
}

func (h *QuoteHandler) ZoneAnalysis(c *gin.Context) {
	var req addressPair
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "No data provided")
		return
	}
	from, to := strings.TrimSpace(req.FromAddress), strings.TrimSpace(req.ToAddress)
	if from == "" || to == "" {
		writeError(c, http.StatusBadRequest, "From and to addresses are required")
		return
	}
	a, err := h.pricing.ZoneAnalysis(c.Request.Context(), from, to)
	if err != nil {
		writeQuoteError(c, err, http.StatusBadRequest)
		return
	}
	writeData(c, a)
}

func (h *QuoteHandler) ZonePricing(c *gin.Context) {
	var req routeFields
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "No data provided")
		return
	}
	rr := req.request()
	if rr.From == "" || rr.To == "" {
		writeError(c, http.StatusBadRequest, "From and to addresses are required")
		return
	}
	hours := req.DurationHours.Or(1)
	if err := h.pricing.ValidateDuration(hours); err != nil {
		writeQuoteError(c, err, http.StatusBadRequest)
		return
	}
	q, err := h.pricing.QuoteRoute(c.Request.Context(), rr, hours, bool(req.UrgentPickup))
	if err != nil {
		writeQuoteError(c, err, http.StatusBadRequest)
		return
	}
	p := h.catalog.Snapshot().Pricing
	writeData(c, gin.H{
		"zone_analysis": q.Route,
		"pricing":       q.Cost,
		"rates": gin.H{
			"city_cost_per_km":    p.CityCostPerKm,
			"outside_cost_per_km": p.OutsideCostPerKm,
			"kad_toll_cost":       p.KadTollCost,
		},
	})
}

type loadersRequest struct {
	Loaders       optInt `json:"loaders"`
	DurationHours optInt `json:"duration_hours"`
}

func (h *QuoteHandler) LoadersCost(c *gin.Context) {
	var req loadersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "No data provided")
		return
	}
	loaders, hours := req.Loaders.Or(0), req.DurationHours.Or(1)
	if limit := h.catalog.Snapshot().Limits.MaxLoaders; loaders < 0 || loaders > limit {
		writeError(c, http.StatusBadRequest, "Loaders must be between 0 and "+strconv.Itoa(limit))
		return
	}
	if err := h.pricing.ValidateDuration(hours); err != nil {
		writeQuoteError(c, err, http.StatusBadRequest)
		return
	}
	writeData(c, h.pricing.LoadersCost(loaders, hours))
}

// RateLimitStatus reports the caller's remaining budget on the endpoint group
// named by ?endpoint=, step1 by default.
func (h *QuoteHandler) RateLimitStatus(c *gin.Context) {
	id := middleware.ClientID(c)
	endpoint := c.DefaultQuery("endpoint", "step1")
	limit := h.limits(endpoint)
	remaining, err := h.limiter.Remaining(c.Request.Context(), middleware.LimitKey(endpoint, id), limit.MaxRequests, limit.Window)
	if err != nil {
		_ = c.Error(err)
	}
	writeData(c, gin.H{
		"client_id":          id,
		"endpoint":           endpoint,
		"remaining_requests": remaining,
		"max_requests":       limit.MaxRequests,
		"window_seconds":     int(limit.Window.Seconds()),
	})
}
