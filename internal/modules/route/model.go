// README: Route analysis records produced by the segmenter.
package route

import (
	"math"

	"cargo/internal/modules/zone"
	"cargo/internal/types"
)

type Type string

const (
	CityOnly    Type = "city_only"
	OutsideOnly Type = "outside_only"
	Mixed       Type = "mixed"
)

// Tier names the method that produced an analysis.
type Tier string

const (
	TierIdentity    Tier = "identity"
	TierPrecise     Tier = "precise"
	TierApproximate Tier = "approximate"
	TierKeyword     Tier = "keyword"
)

// Analysis splits a route into distance driven inside and outside the city.
// CityKm + OutsideKm always equals TotalKm, and TollApplied is set exactly
// when part of the route lies outside.
type Analysis struct {
	TotalKm     float64      `json:"total_distance_km"`
	CityKm      float64      `json:"city_distance_km"`
	OutsideKm   float64      `json:"outside_distance_km"`
	FromZone    zone.Label   `json:"from_zone"`
	ToZone      zone.Label   `json:"to_zone"`
	RouteType   Type         `json:"route_type"`
	TollApplied bool         `json:"toll_applied"`
	Tier        Tier         `json:"tier"`
	From        *types.Point `json:"from_coordinates,omitempty"`
	To          *types.Point `json:"to_coordinates,omitempty"`
}

// Identity is the analysis of a trip that starts and ends at the same address.
func Identity() Analysis {
	return Analysis{FromZone: zone.City, ToZone: zone.City, RouteType: CityOnly, Tier: TierIdentity}
}

// split builds an analysis from a total and its city share. Rounding is
// applied to the total and the city part; the outside part is the remainder.
func split(totalKm, cityKm float64) Analysis {
	total := types.Round1(totalKm)
	city := types.Round1(cityKm)
	if city > total {
		city = total
	}
	a := Analysis{TotalKm: total, CityKm: city, OutsideKm: types.Round1(total - city)}
	a.RouteType = typeOf(a.CityKm, a.OutsideKm)
	a.TollApplied = a.OutsideKm > 0
	return a
}

// splitCrossing is split for a route whose endpoints lie in different zones.
// Such a route always keeps at least 0.1 km outside, so the toll applies.
func splitCrossing(totalKm, cityKm float64) Analysis {
	total := math.Max(types.Round1(totalKm), 0.1)
	city := math.Max(types.Round1(cityKm), 0)
	if city > total-0.1 {
		city = types.Round1(total - 0.1)
	}
	a := Analysis{TotalKm: total, CityKm: city, OutsideKm: types.Round1(total - city)}
	a.RouteType = typeOf(a.CityKm, a.OutsideKm)
	a.TollApplied = true
	return a
}

func typeOf(cityKm, outsideKm float64) Type {
	switch {
	case outsideKm == 0:
		return CityOnly
	case cityKm == 0:
		return OutsideOnly
	default:
		return Mixed
	}
}

// WithDistance rescales the analysis to totalKm, keeping the city share.
// A zero-distance analysis becomes all city.
func (a Analysis) WithDistance(totalKm float64) Analysis {
	cityKm := totalKm
	if a.TotalKm > 0 {
		cityKm = totalKm * a.CityKm / a.TotalKm
	}
	var out Analysis
	if a.FromZone != a.ToZone && a.Tier != TierPrecise {
		out = splitCrossing(totalKm, cityKm)
	} else {
		out = split(totalKm, cityKm)
	}
	out.FromZone, out.ToZone = a.FromZone, a.ToZone
	out.Tier, out.From, out.To = a.Tier, a.From, a.To
	return out
}
