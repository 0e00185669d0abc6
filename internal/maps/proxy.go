package maps

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"
)

const maxProxyBody = 4 << 20

var (
	ErrUpstreamTimeout = errors.New("upstream timeout")
	ErrUpstream        = errors.New("upstream request failed")
)

// Passthrough is an upstream response relayed verbatim to the browser.
type Passthrough struct {
	Status int
	Body   []byte
}

// ProxyRoute relays an OSRM route query. coordinates is OSRM's "lng,lat;lng,lat" list.
func (o *OSRM) ProxyRoute(ctx context.Context, profile, coordinates string, query url.Values) (Passthrough, error) {
	if profile == "" {
		profile = "driving"
	}
	endpoint := o.baseURL + "/route/v1/" + url.PathEscape(profile) + "/" + coordinates
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	return relay(ctx, o.http, endpoint, "")
}

// ProxySearch relays a Nominatim search, or a reverse lookup when q is empty.
// The call goes through the same throttle as Geocode.
func (n *Nominatim) ProxySearch(ctx context.Context, q, lat, lon, format string) (Passthrough, error) {
	if err := n.limiter.Wait(ctx); err != nil {
		return Passthrough{}, eris.Wrap(ErrUpstreamTimeout, err.Error())
	}
	if format == "" {
		format = "json"
	}
	params := url.Values{}
	params.Set("format", format)
	params.Set("limit", "5")
	params.Set("addressdetails", "1")
	path := "/search"
	if strings.TrimSpace(q) != "" {
		params.Set("q", q)
	} else {
		params.Set("lat", lat)
		params.Set("lon", lon)
		path = "/reverse"
	}
	return relay(ctx, n.http, n.baseURL+path+"?"+params.Encode(), n.userAgent)
}

func relay(ctx context.Context, client *http.Client, endpoint, userAgent string) (Passthrough, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Passthrough{}, eris.Wrap(ErrUpstream, err.Error())
	}
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}
	resp, err := client.Do(req)
	if err != nil {
		var ne net.Error
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
			return Passthrough{}, eris.Wrap(ErrUpstreamTimeout, err.Error())
		}
		return Passthrough{}, eris.Wrap(ErrUpstream, err.Error())
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxProxyBody))
	if err != nil {
		return Passthrough{}, eris.Wrap(ErrUpstream, err.Error())
	}
	return Passthrough{Status: resp.StatusCode, Body: body}, nil
}
