package maps

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"googlemaps.github.io/maps"

	"cargo/internal/metrics"
	"cargo/internal/types"
)

// Google geocodes and routes through the Google Maps web services.
type Google struct {
	client   *maps.Client
	timeout  time.Duration
	region   string
	logger   *zap.Logger
	recorder metrics.Recorder
}

type GoogleOptions struct {
	APIKey   string
	BaseURL  string
	Region   string
	Timeout  time.Duration
	Logger   *zap.Logger
	Recorder metrics.Recorder
}

func NewGoogle(opts GoogleOptions) (*Google, error) {
	clientOpts := []maps.ClientOption{maps.WithAPIKey(opts.APIKey)}
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, maps.WithBaseURL(opts.BaseURL))
	}
	client, err := maps.NewClient(clientOpts...)
	if err != nil {
		return nil, eris.Wrap(err, "failed to create maps client")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	return &Google{
		client:   client,
		timeout:  opts.Timeout,
		region:   opts.Region,
		logger:   opts.Logger,
		recorder: metrics.OrNop(opts.Recorder),
	}, nil
}

func (g *Google) Geocode(ctx context.Context, address string) (types.Point, bool) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	results, err := g.client.Geocode(ctx, &maps.GeocodingRequest{
		Address:  address,
		Region:   g.region,
		Language: "ru",
	})
	if err != nil || len(results) == 0 {
		g.fail("geocode", err, zap.String("address", address))
		return types.Point{}, false
	}
	loc := results[0].Geometry.Location
	return types.Point{Lat: loc.Lat, Lng: loc.Lng}, true
}

func (g *Google) Route(ctx context.Context, from, to types.Point) (Geometry, bool) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	routes, _, err := g.client.Directions(ctx, &maps.DirectionsRequest{
		Origin:      fmt.Sprintf("%f,%f", from.Lat, from.Lng),
		Destination: fmt.Sprintf("%f,%f", to.Lat, to.Lng),
		Mode:        maps.TravelModeDriving,
		Region:      g.region,
	})
	if err != nil || len(routes) == 0 {
		g.fail("directions", err)
		return nil, false
	}
	path, err := routes[0].OverviewPolyline.Decode()
	if err != nil || len(path) < 2 {
		g.fail("directions", err, zap.String("reason", "bad polyline"))
		return nil, false
	}
	out := make(Geometry, len(path))
	for i, p := range path {
		out[i] = types.Point{Lat: p.Lat, Lng: p.Lng}
	}
	return out, true
}

func (g *Google) fail(op string, err error, fields ...zap.Field) {
	g.recorder.Inc(metrics.LookupFailed, metrics.Labels{"provider": "google", "op": op})
	fields = append(fields, zap.String("op", op), zap.Error(err))
	g.logger.Warn("google maps lookup failed", fields...)
}
