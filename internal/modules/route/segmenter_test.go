package route

import (
	"context"
	"math"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cargo/internal/cache"
	"cargo/internal/catalog"
	"cargo/internal/maps"
	"cargo/internal/modules/zone"
	"cargo/internal/types"
)

var (
	nevsky   = types.Point{Lat: 59.9343, Lng: 30.3351}
	vasilyev = types.Point{Lat: 59.9420, Lng: 30.2600}
	gatchina = types.Point{Lat: 59.5650, Lng: 30.1280}
)

type stubGeocoder struct {
	points map[string]types.Point
	calls  atomic.Int32
}

func (g *stubGeocoder) Geocode(_ context.Context, address string) (types.Point, bool) {
	g.calls.Add(1)
	p, ok := g.points[address]
	return p, ok
}

type stubRouter struct {
	geometry maps.Geometry
}

func (r stubRouter) Route(context.Context, types.Point, types.Point) (maps.Geometry, bool) {
	return r.geometry, r.geometry != nil
}

func testCatalog() *catalog.Provider {
	return catalog.NewStatic(&catalog.Snapshot{
		Pricing: catalog.Pricing{
			ZoneDetection: catalog.ZoneDetection{
				CityCenter:   nevsky,
				CityRadiusKm: 25,
				KadKeywords:  []string{"область", "кад"},
				CityKeywords: []string{"спб", "петербург"},
			},
		},
	})
}

func newSegmenter(g maps.Geocoder, r maps.Router) *Segmenter {
	cat := testCatalog()
	return NewSegmenter(Deps{
		Geocoder: g,
		Router:   r,
		Zones:    zone.NewClassifier(cat, "", nil),
		Catalog:  cat,
		Cache:    cache.NewMemory(),
	})
}

func assertInvariants(t *testing.T, a Analysis) {
	t.Helper()
	assert.InDelta(t, a.TotalKm, a.CityKm+a.OutsideKm, 0.1001)
	assert.Equal(t, a.OutsideKm > 0, a.TollApplied)
	switch a.RouteType {
	case CityOnly:
		assert.Zero(t, a.OutsideKm)
	case OutsideOnly:
		assert.Zero(t, a.CityKm)
		assert.Positive(t, a.OutsideKm)
	case Mixed:
		assert.Positive(t, a.CityKm)
		assert.Positive(t, a.OutsideKm)
	default:
		t.Fatalf("unknown route type %q", a.RouteType)
	}
}

func TestAnalyze_Identity(t *testing.T) {
	g := &stubGeocoder{}
	s := newSegmenter(g, nil)
	for _, addr := range []string{"Невский 1", "  НЕВСКИЙ   1 ", ""} {
		a, err := s.Analyze(context.Background(), addr, "невский 1")
		require.NoError(t, err)
		if Normalize(addr) != "невский 1" {
			continue
		}
		assert.Zero(t, a.TotalKm)
		assert.Equal(t, CityOnly, a.RouteType)
		assert.False(t, a.TollApplied)
		assert.Equal(t, TierIdentity, a.Tier)
	}
}

func TestAnalyze_PreciseSameCity(t *testing.T) {
	g := &stubGeocoder{points: map[string]types.Point{"a": nevsky, "b": vasilyev}}
	r := stubRouter{geometry: maps.Geometry{nevsky, types.Midpoint(nevsky, vasilyev), vasilyev}}
	a, err := newSegmenter(g, r).Analyze(context.Background(), "a", "b")
	require.NoError(t, err)

	assert.Equal(t, TierPrecise, a.Tier)
	assert.Equal(t, CityOnly, a.RouteType)
	assert.False(t, a.TollApplied)
	assert.InDelta(t, zone.HaversineKm(nevsky, vasilyev), a.TotalKm, 0.1)
	assertInvariants(t, a)
}

func TestAnalyze_PreciseMixed(t *testing.T) {
	g := &stubGeocoder{points: map[string]types.Point{"a": nevsky, "b": gatchina}}
	r := stubRouter{geometry: maps.Geometry{nevsky, {Lat: 59.8, Lng: 30.3}, {Lat: 59.7, Lng: 30.2}, gatchina}}
	a, err := newSegmenter(g, r).Analyze(context.Background(), "a", "b")
	require.NoError(t, err)

	assert.Equal(t, TierPrecise, a.Tier)
	assert.Equal(t, Mixed, a.RouteType)
	assert.Equal(t, zone.City, a.FromZone)
	assert.Equal(t, zone.Outside, a.ToZone)
	assertInvariants(t, a)
}

func TestAnalyze_UnroutableMixedSplitsSixtyForty(t *testing.T) {
	// Both endpoints geocode near the center, one is labelled outside by keyword.
	g := &stubGeocoder{points: map[string]types.Point{
		"Невский проспект":               nevsky,
		"Ленинградская область, Кудрово": vasilyev,
	}}
	a, err := newSegmenter(g, stubRouter{}).Analyze(context.Background(), "Невский проспект", "Ленинградская область, Кудрово")
	require.NoError(t, err)

	assert.Equal(t, TierApproximate, a.Tier)
	assert.Equal(t, Mixed, a.RouteType)
	assert.True(t, a.TollApplied)
	assert.InDelta(t, a.TotalKm*0.6, a.CityKm, 0.1)
	assertInvariants(t, a)
}

func TestAnalyze_ApproximateSameZone(t *testing.T) {
	g := &stubGeocoder{points: map[string]types.Point{"a": nevsky, "b": vasilyev}}
	a, err := newSegmenter(g, nil).Analyze(context.Background(), "a", "b")
	require.NoError(t, err)
	assert.Equal(t, TierApproximate, a.Tier)
	assert.Equal(t, CityOnly, a.RouteType)
	assert.Equal(t, a.TotalKm, a.CityKm)
	assertInvariants(t, a)
}

func TestAnalyze_KeywordTier(t *testing.T) {
	tests := []struct {
		name      string
		from, to  string
		wantTotal float64
		wantType  Type
	}{
		{"city keyword", "СПб, Невский 1", "somewhere", 15, CityOnly},
		{"outside keyword", "Ленинградская область", "Тосно", 45, OutsideOnly},
		{"nothing known", "Foo street", "Bar avenue", 30, Mixed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := newSegmenter(&stubGeocoder{}, nil).Analyze(context.Background(), tt.from, tt.to)
			require.NoError(t, err)
			assert.Equal(t, TierKeyword, a.Tier)
			assert.Equal(t, tt.wantTotal, a.TotalKm)
			assert.Equal(t, tt.wantType, a.RouteType)
			assertInvariants(t, a)
		})
	}

	a, _ := newSegmenter(&stubGeocoder{}, nil).Analyze(context.Background(), "Foo", "Bar")
	assert.Equal(t, 18.0, a.CityKm)
	assert.Equal(t, 12.0, a.OutsideKm)
	assert.True(t, a.TollApplied)
}

func TestAnalyze_MemoizedByNormalizedPair(t *testing.T) {
	g := &stubGeocoder{points: map[string]types.Point{"a b": nevsky, "c": vasilyev, "A  B": nevsky}}
	s := newSegmenter(g, nil)
	first, err := s.Analyze(context.Background(), "a b", "c")
	require.NoError(t, err)
	calls := g.calls.Load()

	second, err := s.Analyze(context.Background(), "A  B", " C ")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, calls, g.calls.Load(), "second lookup must be served from cache")
}

// ctxGeocoder fails lookups on a done context, as the HTTP adapters do.
type ctxGeocoder struct{ stubGeocoder }

func (g *ctxGeocoder) Geocode(ctx context.Context, address string) (types.Point, bool) {
	if ctx.Err() != nil {
		return types.Point{}, false
	}
	return g.stubGeocoder.Geocode(ctx, address)
}

func TestAnalyze_CallerCancellationDoesNotDegradeCachedTier(t *testing.T) {
	g := &ctxGeocoder{stubGeocoder{points: map[string]types.Point{"a": nevsky, "b": vasilyev}}}
	s := newSegmenter(g, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	first, err := s.Analyze(ctx, "a", "b")
	require.NoError(t, err)
	assert.Equal(t, TierApproximate, first.Tier)

	second, err := s.Analyze(context.Background(), "a", "b")
	require.NoError(t, err)
	assert.Equal(t, TierApproximate, second.Tier)
}

func TestApproximateTier_ShortCrossingKeepsToll(t *testing.T) {
	near := types.Point{Lat: nevsky.Lat + 0.0009, Lng: nevsky.Lng}
	for _, to := range []types.Point{nevsky, near} {
		a := approximateTier(nevsky, to, zone.City, zone.Outside)
		assertInvariants(t, a)
		assert.True(t, a.TollApplied)
		assert.GreaterOrEqual(t, a.OutsideKm, 0.1)
		assert.InDelta(t, a.TotalKm, a.CityKm+a.OutsideKm, 1e-9)
	}
}

func TestSplitCrossing_AlwaysLeavesOutside(t *testing.T) {
	for total := 0.0; total < 5; total += 0.03 {
		a := splitCrossing(total, total*mixedCityShare)
		assert.GreaterOrEqual(t, a.OutsideKm, 0.1, "total %v", total)
		assert.GreaterOrEqual(t, a.CityKm, 0.0)
		assert.InDelta(t, a.TotalKm, a.CityKm+a.OutsideKm, 1e-9, "total %v", total)
		assert.True(t, a.TollApplied)
	}

	rescaled := Analysis{TotalKm: 30, CityKm: 18, OutsideKm: 12, FromZone: zone.City, ToZone: zone.Outside}.WithDistance(0.12)
	assert.True(t, rescaled.TollApplied)
	assert.Equal(t, 0.1, rescaled.OutsideKm)
}

func TestSplit_SumInvariantUnderRounding(t *testing.T) {
	for total := 0.0; total < 50; total += 0.37 {
		for _, share := range []float64{0, 0.13, 0.6, 0.77, 1} {
			a := split(total, total*share)
			assert.InDelta(t, a.TotalKm, a.CityKm+a.OutsideKm, 1e-9, "total %v share %v", total, share)
			assert.False(t, math.Signbit(a.OutsideKm))
		}
	}
}
