// README: Pricing service computes route/time cost, candidate vehicles and the final breakdown.
package pricing

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"cargo/internal/cache"
	"cargo/internal/catalog"
	"cargo/internal/metrics"
	"cargo/internal/modules/route"
	"cargo/internal/modules/zone"
	"cargo/internal/types"
)

var (
	ErrVehicleNotFound = errors.New("vehicle not found")
	ErrInvalidDuration = errors.New("duration out of range")
)

const stageTTL = 5 * time.Minute

type RouteAnalyzer interface {
	Analyze(ctx context.Context, from, to string) (route.Analysis, error)
}

type Service struct {
	catalog  zone.Snapshotter
	routes   RouteAnalyzer
	stage1   *cache.Memo[RouteTimeCost]
	stage2   *cache.Memo[[]catalog.Vehicle]
	logger   *zap.Logger
	recorder metrics.Recorder
}

func NewService(cat zone.Snapshotter, routes RouteAnalyzer, c cache.Cache, logger *zap.Logger, rec metrics.Recorder) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	rec = metrics.OrNop(rec)
	return &Service{
		catalog:  cat,
		routes:   routes,
		stage1:   cache.NewMemo[RouteTimeCost](c, "stage1", stageTTL, logger, rec),
		stage2:   cache.NewMemo[[]catalog.Vehicle](c, "stage2", stageTTL, logger, rec),
		logger:   logger,
		recorder: rec,
	}
}

// ValidateDuration checks hours against the catalog limits.
func (s *Service) ValidateDuration(hours int) error {
	l := s.catalog.Snapshot().Limits
	if hours < l.MinDurationHours || hours > l.MaxDurationHours {
		return eris.Wrapf(ErrInvalidDuration, "duration %dh outside [%d, %d]", hours, l.MinDurationHours, l.MaxDurationHours)
	}
	return nil
}

// ZoneAnalysis returns the route analysis for an address pair.
func (s *Service) ZoneAnalysis(ctx context.Context, from, to string) (route.Analysis, error) {
	return s.routes.Analyze(ctx, from, to)
}

// RouteTimeCost is stage 1.
func (s *Service) RouteTimeCost(ctx context.Context, a route.Analysis, hours int, urgent bool) (RouteTimeCost, error) {
	start := time.Now()
	defer func() { s.recorder.ObserveDuration(metrics.Step1Duration, time.Since(start), nil) }()

	key := s.stage1.Key(a.TotalKm, a.CityKm, a.OutsideKm, a.TollApplied, hours, urgent)
	return s.stage1.Do(ctx, key, func(context.Context) (RouteTimeCost, error) {
		return s.routeTimeCost(a, hours, urgent), nil
	})
}

func (s *Service) routeTimeCost(a route.Analysis, hours int, urgent bool) RouteTimeCost {
	p := s.catalog.Snapshot().Pricing
	c := RouteTimeCost{
		DistanceKm:       a.TotalKm,
		CityKm:           a.CityKm,
		OutsideKm:        a.OutsideKm,
		DurationHours:    hours,
		Urgent:           urgent,
		UrgentMultiplier: 1,
	}
	if a.TotalKm <= 0 {
		s.logger.Info("zero distance route, pricing duration only", zap.Int("hours", hours))
	} else {
		c.CityCost = a.CityKm * p.CityCostPerKm
		c.OutsideCost = a.OutsideKm * p.OutsideCostPerKm
		c.DistanceCost = c.CityCost + c.OutsideCost
		if a.TollApplied {
			c.TollCost = p.KadTollCost
		}
	}
	c.DurationCost = float64(hours) * p.DurationCostPerHour
	if urgent {
		c.UrgentMultiplier = p.UrgentPickupMultiplier
	}
	c.BaseTotal = c.CityCost + c.OutsideCost + c.DurationCost + c.TollCost
	c.Total = types.RoundHalfUp(c.BaseTotal * c.UrgentMultiplier)
	return c
}

// QuoteRoute analyzes the route and prices it.
func (s *Service) QuoteRoute(ctx context.Context, req RouteRequest, hours int, urgent bool) (Quote, error) {
	a, err := s.routes.Analyze(ctx, req.From, req.To)
	if err != nil {
		return Quote{}, eris.Wrap(err, "analyze route")
	}
	if req.DistanceOverride != nil && *req.DistanceOverride > 0 {
		a = a.WithDistance(*req.DistanceOverride)
	}
	cost, err := s.RouteTimeCost(ctx, a, hours, urgent)
	if err != nil {
		return Quote{}, err
	}
	return Quote{Route: a, Cost: cost}, nil
}

// FilterVehicles is stage 2. Catalog order is preserved.
func (s *Service) FilterVehicles(ctx context.Context, req VehicleRequest) ([]catalog.Vehicle, error) {
	start := time.Now()
	defer func() { s.recorder.ObserveDuration(metrics.Step2Duration, time.Since(start), nil) }()

	req.BodyType = catalog.ParseBodyType(string(req.BodyType))
	return s.stage2.Do(ctx, s.stage2.Key(req), func(context.Context) ([]catalog.Vehicle, error) {
		return filterVehicles(s.catalog.Snapshot().Vehicles, req), nil
	})
}

func filterVehicles(all []catalog.Vehicle, req VehicleRequest) []catalog.Vehicle {
	out := make([]catalog.Vehicle, 0, len(all))
	for _, v := range all {
		if !v.IsAvailable() || v.MaxPassengers < req.Passengers || v.MaxLoaders < req.Loaders {
			continue
		}
		if req.BodyType != catalog.BodyAny && v.BodyType != req.BodyType {
			continue
		}
		if req.Height != nil && v.Dimensions.Height < *req.Height {
			continue
		}
		if req.Length != nil && v.Dimensions.Length < *req.Length {
			continue
		}
		out = append(out, v)
	}
	return out
}

// FinalBreakdown is stage 3. It is cheap and never cached.
func FinalBreakdown(p catalog.Pricing, stage1Total int64, v *catalog.Vehicle, loaders, hours int, extraCost float64) Breakdown {
	b := Breakdown{
		RouteCost:         stage1Total,
		LoadersCost:       float64(loaders) * p.LoaderPricePerHour * float64(hours),
		ExtraServicesCost: extraCost,
	}
	if v != nil {
		b.ExtraHours = max(0, float64(hours)-v.MinBaseDurationHours)
		b.VehicleCost = v.BasePrice + v.PricePerHour*b.ExtraHours
	}
	b.Total = types.RoundHalfUp(float64(stage1Total) + b.VehicleCost + b.LoadersCost + b.ExtraServicesCost)
	return b
}

// Finalize looks up the vehicle and runs stage 3. Extra cost is the sum of the
// named additional services plus extraCost.
func (s *Service) Finalize(stage1Total int64, vehicleID, loaders, hours int, services []string, extraCost float64) (Breakdown, catalog.Vehicle, error) {
	start := time.Now()
	defer func() { s.recorder.ObserveDuration(metrics.Step3Duration, time.Since(start), nil) }()

	snap := s.catalog.Snapshot()
	v, ok := snap.VehicleByID(vehicleID)
	if !ok {
		return Breakdown{}, catalog.Vehicle{}, eris.Wrapf(ErrVehicleNotFound, "vehicle %d", vehicleID)
	}
	return FinalBreakdown(snap.Pricing, stage1Total, &v, loaders, hours, extraCost+s.servicesCost(snap, services)), v, nil
}

func (s *Service) servicesCost(snap *catalog.Snapshot, keys []string) float64 {
	var total float64
	for _, k := range keys {
		svc, ok := snap.AdditionalServices[k]
		if !ok {
			s.logger.Warn("unknown additional service ignored", zap.String("service", k))
			continue
		}
		total += svc.Price
	}
	return total
}

// Complete runs all three stages for a fully specified request.
func (s *Service) Complete(ctx context.Context, req CompleteRequest) (CompleteResult, error) {
	if err := s.ValidateDuration(req.DurationHours); err != nil {
		return CompleteResult{}, err
	}
	q, err := s.QuoteRoute(ctx, req.Route, req.DurationHours, req.Urgent)
	if err != nil {
		return CompleteResult{}, err
	}
	vehicles, err := s.FilterVehicles(ctx, req.Vehicle)
	if err != nil {
		return CompleteResult{}, err
	}
	b, v, err := s.Finalize(q.Cost.Total, req.SelectedVehicleID, req.Vehicle.Loaders, req.DurationHours, req.ExtraServices, req.ExtraServicesCost)
	if err != nil {
		return CompleteResult{}, err
	}
	return CompleteResult{Quote: q, Vehicles: vehicles, Vehicle: v, Breakdown: b}, nil
}

// LoadersCost prices loaders alone.
func (s *Service) LoadersCost(loaders, hours int) LoadersQuote {
	rate := s.catalog.Snapshot().Pricing.LoaderPricePerHour
	return LoadersQuote{
		Loaders:       loaders,
		DurationHours: hours,
		PricePerHour:  rate,
		Total:         float64(loaders) * rate * float64(hours),
	}
}
