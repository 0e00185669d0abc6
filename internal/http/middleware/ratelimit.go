// README: Per-endpoint sliding-window rate limiting.
package middleware

import (
	"net"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"cargo/internal/config"
	"cargo/internal/ratelimit"
)

const ctxClientID = "client_id"

// ClientID fingerprints the caller and stores it on the context.
func ClientID(c *gin.Context) string {
	if id := c.GetString(ctxClientID); id != "" {
		return id
	}
	remote := c.Request.RemoteAddr
	if host, _, err := net.SplitHostPort(remote); err == nil {
		remote = host
	}
	id := ratelimit.Fingerprint(remote, c.GetHeader("X-Forwarded-For"), c.GetHeader("User-Agent"))
	c.Set(ctxClientID, id)
	return id
}

// LimitKey is the limiter key for a client on a named endpoint group.
func LimitKey(name, clientID string) string {
	return name + ":" + clientID
}

// RateLimit admits at most limit.MaxRequests per client per window for the named endpoint.
func RateLimit(l *ratelimit.Limiter, name string, limit config.Limit) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := LimitKey(name, ClientID(c))
		d, err := l.Allow(c.Request.Context(), key, limit.MaxRequests, limit.Window)
		if err != nil {
			_ = c.Error(err)
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(limit.MaxRequests))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		if !d.Allowed {
			retry := int(d.RetryAfter.Seconds())
			c.Header("Retry-After", strconv.Itoa(retry))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":              "Rate limit exceeded",
				"message":            "Too many requests. Maximum " + strconv.Itoa(limit.MaxRequests) + " requests per " + strconv.Itoa(int(limit.Window.Seconds())) + " seconds.",
				"retry_after":        retry,
				"remaining_requests": 0,
			})
			return
		}
		c.Next()
	}
}
