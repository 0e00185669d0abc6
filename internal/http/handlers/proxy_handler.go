// README: Browser-facing OSRM and Nominatim passthrough.
package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"

	"cargo/internal/maps"
)

type ProxyHandler struct {
	osrm      *maps.OSRM
	nominatim *maps.Nominatim
}

func NewProxyHandler(osrm *maps.OSRM, nominatim *maps.Nominatim) *ProxyHandler {
	return &ProxyHandler{osrm: osrm, nominatim: nominatim}
}

func (h *ProxyHandler) OSRM(c *gin.Context) {
	coords := c.Query("coordinates")
	if coords == "" {
		writeError(c, http.StatusBadRequest, "Coordinates parameter is required")
		return
	}
	q := url.Values{}
	q.Set("overview", c.DefaultQuery("overview", "false"))
	q.Set("steps", c.DefaultQuery("steps", "false"))
	if g := c.Query("geometries"); g != "" {
		q.Set("geometries", g)
	}
	res, err := h.osrm.ProxyRoute(c.Request.Context(), c.DefaultQuery("profile", "driving"), coords, q)
	h.relay(c, "OSRM", res, err)
}

func (h *ProxyHandler) Nominatim(c *gin.Context) {
	q, lat, lon := c.Query("q"), c.Query("lat"), c.Query("lon")
	if q == "" && (lat == "" || lon == "") {
		writeError(c, http.StatusBadRequest, "Either q parameter or lat/lon parameters are required")
		return
	}
	res, err := h.nominatim.ProxySearch(c.Request.Context(), q, lat, lon, c.Query("format"))
	h.relay(c, "Nominatim", res, err)
}

func (h *ProxyHandler) relay(c *gin.Context, upstream string, res maps.Passthrough, err error) {
	switch {
	case errors.Is(err, maps.ErrUpstreamTimeout):
		_ = c.Error(err)
		writeError(c, http.StatusGatewayTimeout, upstream+" API timeout")
	case err != nil:
		_ = c.Error(err)
		writeError(c, http.StatusBadGateway, upstream+" API request failed")
	case res.Status != http.StatusOK:
		writeError(c, res.Status, upstream+" API error: "+strconv.Itoa(res.Status))
	default:
		c.Data(http.StatusOK, "application/json", res.Body)
	}
}
