// README: Sliding-window request limiter stored in the shared cache.
package ratelimit

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"go.uber.org/zap"

	"cargo/internal/cache"
	"cargo/internal/metrics"
)

const keyPrefix = "rate_limit:"

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Limiter keeps, per client key, the unix-second timestamps of accepted requests.
// The read-modify-write against the cache is not atomic, so two concurrent
// requests may both be admitted at the boundary.
type Limiter struct {
	cache    cache.Cache
	logger   *zap.Logger
	recorder metrics.Recorder
	now      func() time.Time
}

func New(c cache.Cache, logger *zap.Logger, rec metrics.Recorder) *Limiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Limiter{cache: c, logger: logger, recorder: metrics.OrNop(rec), now: time.Now}
}

// WithClock replaces the time source; used by tests.
func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	l.now = now
	return l
}

// Allow records a request for clientKey if fewer than maxRequests were accepted
// within the trailing window. Cache failures admit the request.
func (l *Limiter) Allow(ctx context.Context, clientKey string, maxRequests int, window time.Duration) (Decision, error) {
	now := l.now().Unix()
	stamps, err := l.window(ctx, clientKey, now, window)
	if err != nil {
		l.logger.Warn("rate limit read failed, admitting", zap.String("client", clientKey), zap.Error(err))
		return Decision{Allowed: true, Remaining: maxRequests}, nil
	}

	if len(stamps) >= maxRequests {
		l.recorder.Inc(metrics.RateLimited, nil)
		return Decision{Allowed: false, Remaining: 0, RetryAfter: window}, nil
	}

	stamps = append(stamps, now)
	raw, err := json.Marshal(stamps)
	if err == nil {
		err = l.cache.Set(ctx, keyPrefix+clientKey, raw, window)
	}
	if err != nil {
		l.logger.Warn("rate limit write failed", zap.String("client", clientKey), zap.Error(err))
	}
	return Decision{Allowed: true, Remaining: maxRequests - len(stamps)}, nil
}

// Remaining reports how many more requests clientKey may make in the window.
func (l *Limiter) Remaining(ctx context.Context, clientKey string, maxRequests int, window time.Duration) (int, error) {
	stamps, err := l.window(ctx, clientKey, l.now().Unix(), window)
	if err != nil {
		return maxRequests, err
	}
	return max(0, maxRequests-len(stamps)), nil
}

func (l *Limiter) window(ctx context.Context, clientKey string, now int64, window time.Duration) ([]int64, error) {
	raw, ok, err := l.cache.Get(ctx, keyPrefix+clientKey)
	if err != nil || !ok {
		return nil, err
	}
	var stamps []int64
	if err := json.Unmarshal(raw, &stamps); err != nil {
		// A corrupt window starts over.
		return nil, nil
	}
	cutoff := now - int64(window/time.Second)
	kept := stamps[:0]
	for _, ts := range stamps {
		if ts > cutoff {
			kept = append(kept, ts)
		}
	}
	return kept, nil
}

// Fingerprint identifies a client by the md5 of "ip:user_agent". The first
// X-Forwarded-For entry wins over the peer address.
func Fingerprint(remoteAddr, forwardedFor, userAgent string) string {
	ip := remoteAddr
	if forwardedFor != "" {
		ip = strings.TrimSpace(strings.Split(forwardedFor, ",")[0])
	}
	sum := md5.Sum([]byte(ip + ":" + userAgent))
	return hex.EncodeToString(sum[:])
}
