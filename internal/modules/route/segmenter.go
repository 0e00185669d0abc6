// README: Resolves an address pair into a zone-segmented route with three fallback tiers.
package route

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"cargo/internal/cache"
	"cargo/internal/maps"
	"cargo/internal/metrics"
	"cargo/internal/modules/zone"
	"cargo/internal/types"
)

const (
	cacheTTL = time.Hour
	// Bounds one analysis, which runs detached from the caller's cancellation.
	lookupTimeout = 30 * time.Second

	// Share of a route attributed to the city when only the endpoint zones are known.
	mixedCityShare = 0.6

	keywordCityKm    = 15.0
	keywordOutsideKm = 45.0
	keywordDefaultKm = 30.0
)

type Classifier interface {
	Classify(p types.Point, address string) zone.Label
}

type Deps struct {
	Geocoder maps.Geocoder
	// Router may be nil, in which case geocoded routes are approximated.
	Router   maps.Router
	Zones    Classifier
	Catalog  zone.Snapshotter
	Cache    cache.Cache
	Logger   *zap.Logger
	Recorder metrics.Recorder
}

type Segmenter struct {
	geocoder maps.Geocoder
	router   maps.Router
	zones    Classifier
	catalog  zone.Snapshotter
	memo     *cache.Memo[Analysis]
	logger   *zap.Logger
	recorder metrics.Recorder
}

func NewSegmenter(d Deps) *Segmenter {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	rec := metrics.OrNop(d.Recorder)
	return &Segmenter{
		geocoder: d.Geocoder,
		router:   d.Router,
		zones:    d.Zones,
		catalog:  d.Catalog,
		memo:     cache.NewMemo[Analysis](d.Cache, "route", cacheTTL, d.Logger, rec),
		logger:   d.Logger,
		recorder: rec,
	}
}

// Normalize lower-cases an address and collapses whitespace.
func Normalize(address string) string {
	return strings.Join(strings.Fields(strings.ToLower(address)), " ")
}

// Analyze returns the route analysis for an address pair. It never fails
// because of lookup errors; those degrade the result to a coarser tier.
func (s *Segmenter) Analyze(ctx context.Context, from, to string) (Analysis, error) {
	nf, nt := Normalize(from), Normalize(to)
	if nf == nt {
		return Identity(), nil
	}
	return s.memo.Do(ctx, s.memo.Key(nf, nt), func(ctx context.Context) (Analysis, error) {
		// Waiters share this computation, so one caller going away must not
		// degrade the result for the others.
		lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), lookupTimeout)
		defer cancel()
		a := s.analyze(lookupCtx, from, to)
		s.recorder.Inc(metrics.RouteTier, metrics.Labels{"tier": string(a.Tier)})
		s.logger.Info("route analyzed",
			zap.String("tier", string(a.Tier)),
			zap.String("route_type", string(a.RouteType)),
			zap.Float64("total_km", a.TotalKm),
		)
		return a, nil
	})
}

func (s *Segmenter) analyze(ctx context.Context, from, to string) Analysis {
	fp, ok := s.geocoder.Geocode(ctx, from)
	if !ok {
		return s.keywordTier(from, to)
	}
	tp, ok := s.geocoder.Geocode(ctx, to)
	if !ok {
		return s.keywordTier(from, to)
	}

	fromZone := s.zones.Classify(fp, from)
	toZone := s.zones.Classify(tp, to)

	var a Analysis
	if g, ok := s.route(ctx, fp, tp); ok {
		a = s.preciseTier(g)
	} else {
		a = approximateTier(fp, tp, fromZone, toZone)
	}
	a.FromZone, a.ToZone = fromZone, toZone
	a.From, a.To = &fp, &tp
	return a
}

func (s *Segmenter) route(ctx context.Context, from, to types.Point) (maps.Geometry, bool) {
	if s.router == nil {
		return nil, false
	}
	g, ok := s.router.Route(ctx, from, to)
	if !ok || len(g) < 2 {
		return nil, false
	}
	return g, true
}

// preciseTier classifies every segment of the route by its midpoint.
func (s *Segmenter) preciseTier(g maps.Geometry) Analysis {
	var total, city float64
	for i := 1; i < len(g); i++ {
		d := zone.HaversineKm(g[i-1], g[i])
		total += d
		if s.zones.Classify(types.Midpoint(g[i-1], g[i]), "") == zone.City {
			city += d
		}
	}
	a := split(total, city)
	a.Tier = TierPrecise
	return a
}

func approximateTier(from, to types.Point, fromZone, toZone zone.Label) Analysis {
	d := zone.HaversineKm(from, to)
	var a Analysis
	switch {
	case fromZone != toZone:
		a = splitCrossing(d, d*mixedCityShare)
	case fromZone == zone.City:
		a = split(d, d)
	default:
		a = split(d, 0)
	}
	a.Tier = TierApproximate
	return a
}

func (s *Segmenter) keywordTier(from, to string) Analysis {
	zd := s.catalog.Snapshot().Pricing.ZoneDetection
	inCity := func(addr string) bool { return zone.ContainsKeyword(addr, zd.CityKeywords) }
	outside := func(addr string) bool { return zone.ContainsKeyword(addr, zd.KadKeywords) }

	var a Analysis
	switch {
	case inCity(from) || inCity(to):
		a = split(keywordCityKm, keywordCityKm)
		a.FromZone, a.ToZone = zone.City, zone.City
	case outside(from) || outside(to):
		a = split(keywordOutsideKm, 0)
		a.FromZone, a.ToZone = zone.Outside, zone.Outside
	default:
		a = splitCrossing(keywordDefaultKm, keywordDefaultKm*mixedCityShare)
		a.FromZone, a.ToZone = zone.City, zone.Outside
	}
	a.Tier = TierKeyword
	return a
}
