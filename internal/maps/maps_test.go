package maps

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"googlemaps.github.io/maps"

	"cargo/internal/types"
)

func pt(lat, lng float64) types.Point { return types.Point{Lat: lat, Lng: lng} }

func TestNominatim_Geocode(t *testing.T) {
	var gotUA, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotQuery = r.URL.Query().Get("q")
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		assert.Equal(t, "ru", r.URL.Query().Get("countrycodes"))
		fmt.Fprint(w, `[{"lat": "59.9343", "lon": "30.3351", "display_name": "Санкт-Петербург"}]`)
	}))
	defer srv.Close()

	n := NewNominatim(NominatimOptions{BaseURL: srv.URL, UserAgent: "cargo-test/1.0", CountryCodes: "ru"})
	p, ok := n.Geocode(context.Background(), "Невский проспект, 1")
	require.True(t, ok)
	assert.InDelta(t, 59.9343, p.Lat, 1e-9)
	assert.InDelta(t, 30.3351, p.Lng, 1e-9)
	assert.Equal(t, "cargo-test/1.0", gotUA)
	assert.Equal(t, "Невский проспект, 1", gotQuery)
}

func TestNominatim_Failures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		payload string
	}{
		{"empty result", http.StatusOK, `[]`},
		{"server error", http.StatusInternalServerError, `oops`},
		{"garbage", http.StatusOK, `{`},
		{"bad coordinate", http.StatusOK, `[{"lat": "north", "lon": "30"}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.payload)
			}))
			defer srv.Close()
			n := NewNominatim(NominatimOptions{BaseURL: srv.URL})
			_, ok := n.Geocode(context.Background(), "x")
			assert.False(t, ok)
			_, err := n.geocode(context.Background(), "x")
			assertTraced(t, err)
		})
	}
}

// assertTraced checks err carries an eris stack.
func assertTraced(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	u := eris.Unpack(err)
	assert.True(t, len(u.ErrRoot.Stack) > 0 || len(u.ErrChain) > 0, "error without stack: %v", err)
}

func TestOSRM_FailuresAreTraced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	o := NewOSRM(srv.URL, time.Second, nil, nil)
	_, err := o.route(context.Background(), pt(59.93, 30.33), pt(59.94, 30.26))
	assertTraced(t, err)

	srv.Close()
	_, err = o.route(context.Background(), pt(59.93, 30.33), pt(59.94, 30.26))
	assertTraced(t, err)
}

func TestNominatim_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		fmt.Fprint(w, `[]`)
	}))
	defer srv.Close()
	n := NewNominatim(NominatimOptions{BaseURL: srv.URL, Timeout: 20 * time.Millisecond})
	_, ok := n.Geocode(context.Background(), "x")
	assert.False(t, ok)
}

func TestOSRM_Route(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/route/v1/driving/30.300000,59.900000;30.500000,60.000000", r.URL.Path)
		assert.Equal(t, "geojson", r.URL.Query().Get("geometries"))
		fmt.Fprint(w, `{"code": "Ok", "routes": [{"distance": 1200,
			"geometry": {"type": "LineString", "coordinates": [[30.3, 59.9], [30.4, 59.95], [30.5, 60.0]]}}]}`)
	}))
	defer srv.Close()

	o := NewOSRM(srv.URL, time.Second, nil, nil)
	g, ok := o.Route(context.Background(), pt(59.9, 30.3), pt(60.0, 30.5))
	require.True(t, ok)
	require.Len(t, g, 3)
	assert.Equal(t, pt(59.95, 30.4), g[1])
}

func TestOSRM_NoRoute(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"code": "NoRoute", "routes": []}`)
	}))
	defer srv.Close()
	_, ok := NewOSRM(srv.URL, time.Second, nil, nil).Route(context.Background(), pt(0, 0), pt(1, 1))
	assert.False(t, ok)
}

func TestGoogle_GeocodeAndRoute(t *testing.T) {
	path := []maps.LatLng{{Lat: 59.9, Lng: 30.3}, {Lat: 59.95, Lng: 30.4}, {Lat: 60.0, Lng: 30.5}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/maps/api/geocode/json":
			fmt.Fprint(w, `{"status": "OK", "results": [{"geometry": {"location": {"lat": 59.93, "lng": 30.33}}}]}`)
		case "/maps/api/directions/json":
			fmt.Fprintf(w, `{"status": "OK", "routes": [{"overview_polyline": {"points": %q}, "legs": []}]}`, maps.Encode(path))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	g, err := NewGoogle(GoogleOptions{APIKey: "AIza-test", BaseURL: srv.URL})
	require.NoError(t, err)

	p, ok := g.Geocode(context.Background(), "Невский проспект")
	require.True(t, ok)
	assert.InDelta(t, 59.93, p.Lat, 1e-9)

	route, ok := g.Route(context.Background(), pt(59.9, 30.3), pt(60.0, 30.5))
	require.True(t, ok)
	require.Len(t, route, 3)
	assert.InDelta(t, 59.95, route[1].Lat, 1e-5)
}

func TestGoogle_ZeroResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status": "ZERO_RESULTS", "results": [], "routes": []}`)
	}))
	defer srv.Close()

	g, err := NewGoogle(GoogleOptions{APIKey: "AIza-test", BaseURL: srv.URL})
	require.NoError(t, err)
	_, ok := g.Geocode(context.Background(), "nowhere")
	assert.False(t, ok)
	_, ok = g.Route(context.Background(), pt(0, 0), pt(1, 1))
	assert.False(t, ok)
}

func TestOSRM_ProxyRoute(t *testing.T) {
	var gotPath, gotOverview string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotOverview = r.URL.Query().Get("overview")
		fmt.Fprint(w, `{"code":"Ok","routes":[]}`)
	}))
	defer srv.Close()

	o := NewOSRM(srv.URL, time.Second, nil, nil)
	res, err := o.ProxyRoute(context.Background(), "", "30.33,59.93;30.26,59.94", map[string][]string{"overview": {"false"}})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.Status)
	assert.JSONEq(t, `{"code":"Ok","routes":[]}`, string(res.Body))
	assert.Equal(t, "/route/v1/driving/30.33,59.93;30.26,59.94", gotPath)
	assert.Equal(t, "false", gotOverview)
}

func TestNominatim_ProxySearch(t *testing.T) {
	var gotPath, gotUA, gotLimit string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotUA, gotLimit = r.URL.Path, r.Header.Get("User-Agent"), r.URL.Query().Get("limit")
		w.WriteHeader(http.StatusBadGateway)
		fmt.Fprint(w, `[]`)
	}))
	defer srv.Close()

	n := NewNominatim(NominatimOptions{BaseURL: srv.URL, UserAgent: "cargo-test/1.0"})
	res, err := n.ProxySearch(context.Background(), "Невский", "", "", "")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadGateway, res.Status)
	assert.Equal(t, "/search", gotPath)
	assert.Equal(t, "cargo-test/1.0", gotUA)
	assert.Equal(t, "5", gotLimit)

	_, err = n.ProxySearch(context.Background(), "", "59.93", "30.33", "")
	require.NoError(t, err)
	assert.Equal(t, "/reverse", gotPath)
}

func TestProxy_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	o := NewOSRM(srv.URL, 20*time.Millisecond, nil, nil)
	_, err := o.ProxyRoute(context.Background(), "driving", "1,2;3,4", nil)
	assert.ErrorIs(t, err, ErrUpstreamTimeout)
}
