package maps

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"cargo/internal/metrics"
	"cargo/internal/types"
)

// OSRM routes through an OSRM HTTP server and returns the full route geometry.
type OSRM struct {
	baseURL  string
	http     *http.Client
	logger   *zap.Logger
	recorder metrics.Recorder
}

func NewOSRM(baseURL string, timeout time.Duration, logger *zap.Logger, rec metrics.Recorder) *OSRM {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OSRM{
		baseURL:  baseURL,
		http:     &http.Client{Timeout: timeout},
		logger:   logger,
		recorder: metrics.OrNop(rec),
	}
}

type osrmResponse struct {
	Code   string `json:"code"`
	Routes []struct {
		Distance float64         `json:"distance"`
		Geometry json.RawMessage `json:"geometry"`
	} `json:"routes"`
}

func (o *OSRM) Route(ctx context.Context, from, to types.Point) (Geometry, bool) {
	g, err := o.route(ctx, from, to)
	if err != nil {
		o.recorder.Inc(metrics.LookupFailed, metrics.Labels{"provider": "osrm", "op": "route"})
		o.logger.Warn("osrm route failed", zap.Error(err))
		return nil, false
	}
	return g, true
}

func (o *OSRM) route(ctx context.Context, from, to types.Point) (Geometry, error) {
	endpoint := fmt.Sprintf("%s/route/v1/driving/%f,%f;%f,%f?overview=full&geometries=geojson",
		o.baseURL, from.Lng, from.Lat, to.Lng, to.Lat)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, eris.Wrap(err, "build osrm request")
	}
	resp, err := o.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "osrm request")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("osrm status %d", resp.StatusCode)
	}

	var body osrmResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, eris.Wrap(err, "decode osrm response")
	}
	if body.Code != "Ok" || len(body.Routes) == 0 {
		return nil, eris.Errorf("osrm code %q with %d routes", body.Code, len(body.Routes))
	}

	var g geom.T
	if err := geojson.Unmarshal(body.Routes[0].Geometry, &g); err != nil {
		return nil, eris.Wrap(err, "decode route geometry")
	}
	line, ok := g.(*geom.LineString)
	if !ok {
		return nil, eris.Errorf("unexpected geometry %T", g)
	}
	if line.NumCoords() < 2 {
		return nil, eris.Errorf("route has %d points", line.NumCoords())
	}
	out := make(Geometry, line.NumCoords())
	for i := 0; i < line.NumCoords(); i++ {
		c := line.Coord(i)
		out[i] = types.Point{Lat: c.Y(), Lng: c.X()}
	}
	return out, nil
}
