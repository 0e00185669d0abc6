package maps

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"cargo/internal/metrics"
	"cargo/internal/types"
)

// Nominatim geocodes through an OpenStreetMap Nominatim instance.
// Outbound calls are throttled to respect the public usage policy.
type Nominatim struct {
	baseURL      string
	userAgent    string
	countryCodes string
	http         *http.Client
	limiter      *rate.Limiter
	logger       *zap.Logger
	recorder     metrics.Recorder
}

type NominatimOptions struct {
	BaseURL      string
	UserAgent    string
	CountryCodes string
	Timeout      time.Duration
	// RPS caps outbound requests per second; zero disables throttling.
	RPS      float64
	Logger   *zap.Logger
	Recorder metrics.Recorder
}

func NewNominatim(opts NominatimOptions) *Nominatim {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RPS), 1)
	}
	return &Nominatim{
		baseURL:      opts.BaseURL,
		userAgent:    opts.UserAgent,
		countryCodes: opts.CountryCodes,
		http:         &http.Client{Timeout: opts.Timeout},
		limiter:      limiter,
		logger:       opts.Logger,
		recorder:     metrics.OrNop(opts.Recorder),
	}
}

type nominatimPlace struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

func (n *Nominatim) Geocode(ctx context.Context, address string) (types.Point, bool) {
	p, err := n.geocode(ctx, address)
	if err != nil {
		n.recorder.Inc(metrics.LookupFailed, metrics.Labels{"provider": "nominatim", "op": "geocode"})
		n.logger.Warn("nominatim geocode failed", zap.String("address", address), zap.Error(err))
		return types.Point{}, false
	}
	return p, true
}

func (n *Nominatim) geocode(ctx context.Context, address string) (types.Point, error) {
	if err := n.limiter.Wait(ctx); err != nil {
		return types.Point{}, eris.Wrap(err, "nominatim throttle")
	}
	q := url.Values{}
	q.Set("q", address)
	q.Set("format", "json")
	q.Set("limit", "1")
	if n.countryCodes != "" {
		q.Set("countrycodes", n.countryCodes)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.baseURL+"/search?"+q.Encode(), nil)
	if err != nil {
		return types.Point{}, eris.Wrap(err, "build nominatim request")
	}
	req.Header.Set("User-Agent", n.userAgent)

	resp, err := n.http.Do(req)
	if err != nil {
		return types.Point{}, eris.Wrap(err, "nominatim request")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return types.Point{}, eris.Errorf("nominatim status %d", resp.StatusCode)
	}

	var places []nominatimPlace
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		return types.Point{}, eris.Wrap(err, "decode nominatim response")
	}
	if len(places) == 0 {
		return types.Point{}, eris.New("no results")
	}
	lat, err := strconv.ParseFloat(places[0].Lat, 64)
	if err != nil {
		return types.Point{}, eris.Wrapf(err, "bad lat %q", places[0].Lat)
	}
	lng, err := strconv.ParseFloat(places[0].Lon, 64)
	if err != nil {
		return types.Point{}, eris.Wrapf(err, "bad lon %q", places[0].Lon)
	}
	return types.Point{Lat: lat, Lng: lng}, nil
}
