// README: Pricing records for the three quote stages.
package pricing

import (
	"cargo/internal/catalog"
	"cargo/internal/modules/route"
)

// RouteTimeCost is the stage 1 result: the price of the route and time window before a vehicle is chosen.
type RouteTimeCost struct {
	DistanceKm       float64 `json:"distance_km"`
	CityKm           float64 `json:"city_distance_km"`
	OutsideKm        float64 `json:"outside_distance_km"`
	DurationHours    int     `json:"duration_hours"`
	CityCost         float64 `json:"city_cost"`
	OutsideCost      float64 `json:"outside_cost"`
	DistanceCost     float64 `json:"distance_cost"`
	DurationCost     float64 `json:"duration_cost"`
	TollCost         float64 `json:"toll_cost"`
	Urgent           bool    `json:"urgent"`
	UrgentMultiplier float64 `json:"urgent_multiplier"`
	BaseTotal        float64 `json:"base_total"`
	Total            int64   `json:"total"`
}

type RouteRequest struct {
	From string
	To   string
	// DistanceOverride replaces the measured distance when positive; zone proportions are kept.
	DistanceOverride *float64
}

// Quote pairs a route analysis with its stage 1 cost.
type Quote struct {
	Route route.Analysis `json:"route_analysis"`
	Cost  RouteTimeCost  `json:"cost"`
}

// VehicleRequest is the stage 2 constraint set. Nil dimensions are unconstrained.
type VehicleRequest struct {
	Passengers int              `json:"passengers"`
	Loaders    int              `json:"loaders"`
	BodyType   catalog.BodyType `json:"body_type"`
	Height     *float64         `json:"height,omitempty"`
	Length     *float64         `json:"length,omitempty"`
}

// Breakdown is the stage 3 result.
type Breakdown struct {
	RouteCost         int64   `json:"route_cost"`
	VehicleCost       float64 `json:"vehicle_cost"`
	LoadersCost       float64 `json:"loaders_cost"`
	ExtraServicesCost float64 `json:"extra_services_cost"`
	ExtraHours        float64 `json:"extra_hours"`
	Total             int64   `json:"total"`
}

type CompleteRequest struct {
	Route             RouteRequest
	DurationHours     int
	Urgent            bool
	Vehicle           VehicleRequest
	SelectedVehicleID int
	ExtraServices     []string
	ExtraServicesCost float64
}

type CompleteResult struct {
	Quote     Quote             `json:"step1"`
	Vehicles  []catalog.Vehicle `json:"available_vehicles"`
	Vehicle   catalog.Vehicle   `json:"selected_vehicle"`
	Breakdown Breakdown         `json:"breakdown"`
}

type LoadersQuote struct {
	Loaders       int     `json:"loaders"`
	DurationHours int     `json:"duration_hours"`
	PricePerHour  float64 `json:"price_per_hour"`
	Total         float64 `json:"total_cost"`
}
