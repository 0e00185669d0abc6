// README: Geocoding and routing adapters. Failures are reported as ok=false, never as errors.
package maps

import (
	"context"

	"cargo/internal/types"
)

// Geometry is an ordered polyline; successful lookups return at least two points.
type Geometry []types.Point

type Geocoder interface {
	Geocode(ctx context.Context, address string) (types.Point, bool)
}

type Router interface {
	Route(ctx context.Context, from, to types.Point) (Geometry, bool)
}
