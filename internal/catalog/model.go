// README: Pricing catalog records: rates, zone detection parameters, vehicles and limits.
package catalog

import "cargo/internal/types"

type BodyType string

const (
	BodyTent  BodyType = "tent"
	BodyVan   BodyType = "van"
	BodyBoard BodyType = "board"
	BodyAny   BodyType = "any"
)

// ParseBodyType maps unknown or empty values to BodyAny.
func ParseBodyType(s string) BodyType {
	switch BodyType(s) {
	case BodyTent, BodyVan, BodyBoard:
		return BodyType(s)
	default:
		return BodyAny
	}
}

type ZoneDetection struct {
	CityCenter   types.Point `mapstructure:"city_center" json:"city_center"`
	CityRadiusKm float64     `mapstructure:"city_radius_km" json:"city_radius_km"`
	KadKeywords  []string    `mapstructure:"kad_keywords" json:"kad_keywords"`
	CityKeywords []string    `mapstructure:"city_keywords" json:"city_keywords"`
}

type Pricing struct {
	BaseCostPerKm          float64       `mapstructure:"base_cost_per_km" json:"base_cost_per_km"`
	CityCostPerKm          float64       `mapstructure:"city_cost_per_km" json:"city_cost_per_km"`
	OutsideCostPerKm       float64       `mapstructure:"outside_cost_per_km" json:"outside_cost_per_km"`
	DurationCostPerHour    float64       `mapstructure:"duration_cost_per_hour" json:"duration_cost_per_hour"`
	UrgentPickupMultiplier float64       `mapstructure:"urgent_pickup_multiplier" json:"urgent_pickup_multiplier"`
	LoaderPricePerHour     float64       `mapstructure:"loader_price_per_hour" json:"loader_price_per_hour"`
	KadTollCost            float64       `mapstructure:"kad_toll_cost" json:"kad_toll_cost"`
	ZoneDetection          ZoneDetection `mapstructure:"zone_detection" json:"zone_detection"`
}

type Dimensions struct {
	Height float64 `mapstructure:"height" json:"height"`
	Length float64 `mapstructure:"length" json:"length"`
	Width  float64 `mapstructure:"width" json:"width"`
}

type Vehicle struct {
	ID                   int        `mapstructure:"id" json:"id"`
	Name                 string     `mapstructure:"name" json:"name"`
	Type                 string     `mapstructure:"type" json:"type"`
	BodyType             BodyType   `mapstructure:"body_type" json:"body_type"`
	PricePerHour         float64    `mapstructure:"price_per_hour" json:"price_per_hour"`
	PricePerKm           float64    `mapstructure:"price_per_km" json:"price_per_km"`
	BasePrice            float64    `mapstructure:"base_price" json:"base_price"`
	MinBaseDurationHours float64    `mapstructure:"min_base_duration_hours" json:"min_base_duration_hours"`
	MaxPassengers        int        `mapstructure:"max_passengers" json:"max_passengers"`
	MaxLoaders           int        `mapstructure:"max_loaders" json:"max_loaders"`
	Dimensions           Dimensions `mapstructure:"dimensions" json:"dimensions"`
	Capacity             float64    `mapstructure:"capacity" json:"capacity"`
	ImageURL             string     `mapstructure:"image_url" json:"image_url"`
	Description          string     `mapstructure:"description" json:"description"`
	// Available is nil when the catalog omits is_available; Decode normalizes it to true.
	Available *bool `mapstructure:"is_available" json:"is_available"`
}

// IsAvailable reports whether the vehicle can be offered.
func (v Vehicle) IsAvailable() bool {
	return v.Available == nil || *v.Available
}

type Limits struct {
	MinDurationHours int `mapstructure:"min_duration_hours" json:"min_duration_hours"`
	MaxDurationHours int `mapstructure:"max_duration_hours" json:"max_duration_hours"`
	MaxPassengers    int `mapstructure:"max_passengers" json:"max_passengers"`
	MaxLoaders       int `mapstructure:"max_loaders" json:"max_loaders"`
}

type Service struct {
	Name  string  `mapstructure:"name" json:"name"`
	Price float64 `mapstructure:"price" json:"price"`
}

// Snapshot is one immutable, validated version of the calculator configuration.
type Snapshot struct {
	Pricing            Pricing            `mapstructure:"pricing" json:"pricing"`
	Vehicles           []Vehicle          `mapstructure:"vehicles" json:"vehicles"`
	Limits             Limits             `mapstructure:"calculator_limits" json:"calculator_limits"`
	AdditionalServices map[string]Service `mapstructure:"additional_services" json:"additional_services"`
}

// VehicleByID returns the vehicle with the given id, if any.
func (s *Snapshot) VehicleByID(id int) (Vehicle, bool) {
	for _, v := range s.Vehicles {
		if v.ID == id {
			return v, true
		}
	}
	return Vehicle{}, false
}

// AvailableVehicles returns available vehicles in catalog order.
func (s *Snapshot) AvailableVehicles() []Vehicle {
	out := make([]Vehicle, 0, len(s.Vehicles))
	for _, v := range s.Vehicles {
		if v.IsAvailable() {
			out = append(out, v)
		}
	}
	return out
}
