// README: Catalog provider; loads, validates and hot-reloads the calculator configuration file.
package catalog

import (
	"errors"
	"io"
	"sync"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var ErrInvalidConfig = errors.New("invalid calculator configuration")

var requiredPricingKeys = []string{
	"pricing.base_cost_per_km",
	"pricing.duration_cost_per_hour",
	"pricing.urgent_pickup_multiplier",
	"pricing.loader_price_per_hour",
}

// Provider serves the current catalog snapshot. Reload swaps the snapshot
// atomically; readers holding an older snapshot keep a consistent view.
type Provider struct {
	path   string
	logger *zap.Logger

	mu   sync.RWMutex
	snap *Snapshot
}

// Open loads and validates the catalog at path. A broken catalog is fatal.
func Open(path string, logger *zap.Logger) (*Provider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Provider{path: path, logger: logger}
	snap, err := loadFile(path)
	if err != nil {
		return nil, err
	}
	p.snap = snap
	logger.Info("catalog loaded", zap.String("path", path), zap.Int("vehicles", len(snap.Vehicles)))
	return p, nil
}

// NewStatic wraps an already decoded snapshot, mainly for tests and the CLI.
func NewStatic(snap *Snapshot) *Provider {
	return &Provider{logger: zap.NewNop(), snap: snap}
}

func (p *Provider) Snapshot() *Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snap
}

// Reload re-reads the catalog file. On failure the previous snapshot stays active.
func (p *Provider) Reload() error {
	if p.path == "" {
		return eris.New("catalog: static catalog cannot be reloaded")
	}
	snap, err := loadFile(p.path)
	if err != nil {
		p.logger.Error("catalog reload failed", zap.String("path", p.path), zap.Error(err))
		return err
	}
	p.mu.Lock()
	p.snap = snap
	p.mu.Unlock()
	p.logger.Info("catalog reloaded", zap.String("path", p.path), zap.Int("vehicles", len(snap.Vehicles)))
	return nil
}

func loadFile(path string) (*Snapshot, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil {
		return nil, eris.Wrapf(ErrInvalidConfig, "catalog: read %s: %v", path, err)
	}
	return decode(v)
}

// Decode parses a JSON catalog document.
func Decode(r io.Reader) (*Snapshot, error) {
	v := viper.New()
	v.SetConfigType("json")
	if err := v.ReadConfig(r); err != nil {
		return nil, eris.Wrapf(ErrInvalidConfig, "catalog: parse: %v", err)
	}
	return decode(v)
}

func decode(v *viper.Viper) (*Snapshot, error) {
	for _, section := range []string{"pricing", "vehicles"} {
		if !v.IsSet(section) {
			return nil, eris.Wrapf(ErrInvalidConfig, "catalog: missing section %q", section)
		}
	}
	for _, key := range requiredPricingKeys {
		if !v.IsSet(key) {
			return nil, eris.Wrapf(ErrInvalidConfig, "catalog: missing %s", key)
		}
	}

	var snap Snapshot
	if err := v.Unmarshal(&snap); err != nil {
		return nil, eris.Wrapf(ErrInvalidConfig, "catalog: decode: %v", err)
	}
	normalize(&snap)
	if err := Validate(&snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func normalize(s *Snapshot) {
	p := &s.Pricing
	if p.CityCostPerKm == 0 {
		p.CityCostPerKm = p.BaseCostPerKm
	}
	if p.OutsideCostPerKm == 0 {
		p.OutsideCostPerKm = p.BaseCostPerKm
	}
	if p.ZoneDetection.CityRadiusKm == 0 {
		p.ZoneDetection.CityRadiusKm = 25
	}
	if len(p.ZoneDetection.CityKeywords) == 0 {
		p.ZoneDetection.CityKeywords = []string{"спб", "санкт-петербург", "петербург"}
	}
	if len(p.ZoneDetection.KadKeywords) == 0 {
		p.ZoneDetection.KadKeywords = []string{"область", "кад", "кольцевая"}
	}
	if s.Limits.MinDurationHours == 0 {
		s.Limits.MinDurationHours = 1
	}
	if s.Limits.MaxDurationHours == 0 {
		s.Limits.MaxDurationHours = 24
	}
	if s.Limits.MaxPassengers == 0 {
		s.Limits.MaxPassengers = 20
	}
	if s.Limits.MaxLoaders == 0 {
		s.Limits.MaxLoaders = 10
	}
	for i := range s.Vehicles {
		if s.Vehicles[i].Available == nil {
			t := true
			s.Vehicles[i].Available = &t
		}
		s.Vehicles[i].BodyType = ParseBodyType(string(s.Vehicles[i].BodyType))
	}
	if s.AdditionalServices == nil {
		s.AdditionalServices = map[string]Service{}
	}
}

// Validate checks the invariants the pricing engine relies on.
func Validate(s *Snapshot) error {
	p := s.Pricing
	rates := map[string]float64{
		"base_cost_per_km":       p.BaseCostPerKm,
		"city_cost_per_km":       p.CityCostPerKm,
		"outside_cost_per_km":    p.OutsideCostPerKm,
		"duration_cost_per_hour": p.DurationCostPerHour,
		"loader_price_per_hour":  p.LoaderPricePerHour,
		"kad_toll_cost":          p.KadTollCost,
	}
	for name, rate := range rates {
		if rate < 0 {
			return eris.Wrapf(ErrInvalidConfig, "catalog: negative %s", name)
		}
	}
	if p.UrgentPickupMultiplier < 1 {
		return eris.Wrapf(ErrInvalidConfig, "catalog: urgent_pickup_multiplier must be >= 1, got %v", p.UrgentPickupMultiplier)
	}
	if p.ZoneDetection.CityRadiusKm <= 0 {
		return eris.Wrap(ErrInvalidConfig, "catalog: city_radius_km must be positive")
	}
	if s.Limits.MinDurationHours > s.Limits.MaxDurationHours {
		return eris.Wrapf(ErrInvalidConfig, "catalog: min_duration_hours %d exceeds max_duration_hours %d",
			s.Limits.MinDurationHours, s.Limits.MaxDurationHours)
	}
	if len(s.Vehicles) == 0 {
		return eris.Wrap(ErrInvalidConfig, "catalog: vehicles must be a non-empty list")
	}
	seen := make(map[int]struct{}, len(s.Vehicles))
	for _, v := range s.Vehicles {
		if v.ID <= 0 || v.Name == "" {
			return eris.Wrapf(ErrInvalidConfig, "catalog: vehicle %d missing id or name", v.ID)
		}
		if _, dup := seen[v.ID]; dup {
			return eris.Wrapf(ErrInvalidConfig, "catalog: duplicate vehicle id %d", v.ID)
		}
		seen[v.ID] = struct{}{}
		if v.PricePerHour < 0 || v.PricePerKm < 0 || v.BasePrice < 0 || v.MinBaseDurationHours < 0 {
			return eris.Wrapf(ErrInvalidConfig, "catalog: vehicle %d has a negative price", v.ID)
		}
	}
	return nil
}
