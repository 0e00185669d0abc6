// README: Base handler utilities (JSON helpers, lenient field decoding, error mapping).
package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"cargo/internal/catalog"
	"cargo/internal/http/middleware"
	"cargo/internal/modules/order"
	"cargo/internal/modules/pricing"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

// writeData wraps a successful calculator payload.
func writeData(c *gin.Context, data any) {
	writeJSON(c, http.StatusOK, gin.H{
		"success":   true,
		"data":      data,
		"client_id": middleware.ClientID(c),
	})
}

// writeQuoteError maps pricing errors. notFound is the status used for unknown vehicles.
func writeQuoteError(c *gin.Context, err error, notFound int) {
	_ = c.Error(err)
	switch {
	case errors.Is(err, pricing.ErrInvalidDuration):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, pricing.ErrVehicleNotFound):
		writeError(c, notFound, "Vehicle not found")
	case errors.Is(err, catalog.ErrInvalidConfig):
		writeError(c, http.StatusBadRequest, err.Error())
	default:
		writeError(c, http.StatusInternalServerError, "Internal server error")
	}
}

func writeOrderError(c *gin.Context, err error) {
	_ = c.Error(err)
	switch {
	case errors.Is(err, order.ErrBadRequest), errors.Is(err, pricing.ErrInvalidDuration):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, pricing.ErrVehicleNotFound):
		writeError(c, http.StatusBadRequest, "Vehicle not found")
	case errors.Is(err, order.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, order.ErrInvalidState), errors.Is(err, order.ErrConflict):
		writeError(c, http.StatusConflict, err.Error())
	default:
		writeError(c, http.StatusInternalServerError, "Internal server error")
	}
}

// Form fields arrive as numbers, numeric strings, "" or "any". Unparseable
// values are treated as absent and fall back to defaults.

type optInt struct {
	V   int
	Set bool
}

func (o *optInt) UnmarshalJSON(b []byte) error {
	if f, ok := parseLenient(b); ok {
		o.V, o.Set = int(f), true
	}
	return nil
}

func (o optInt) Or(def int) int {
	if !o.Set {
		return def
	}
	return o.V
}

type optFloat struct {
	V   float64
	Set bool
}

func (o *optFloat) UnmarshalJSON(b []byte) error {
	if f, ok := parseLenient(b); ok {
		o.V, o.Set = f, true
	}
	return nil
}

func (o optFloat) Ptr() *float64 {
	if !o.Set {
		return nil
	}
	v := o.V
	return &v
}

type optBool bool

func (o *optBool) UnmarshalJSON(b []byte) error {
	switch strings.ToLower(strings.Trim(string(b), `"`)) {
	case "true", "1", "on", "yes":
		*o = true
	default:
		*o = false
	}
	return nil
}

func parseLenient(b []byte) (float64, bool) {
	s := strings.TrimSpace(strings.Trim(string(b), `"`))
	if s == "" || s == "null" || strings.EqualFold(s, "any") {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
