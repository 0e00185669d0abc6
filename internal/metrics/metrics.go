// README: Observability hooks; every component holds a Recorder, never nil.
package metrics

import (
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	Step1Duration = "calculator_step1_duration_seconds"
	Step2Duration = "calculator_step2_duration_seconds"
	Step3Duration = "calculator_step3_duration_seconds"

	CacheHit     = "cache_hit_total"
	CacheMiss    = "cache_miss_total"
	RouteTier    = "route_tier_total"
	RateLimited  = "rate_limited_total"
	LookupFailed = "maps_lookup_failed_total"
)

type Labels map[string]string

type Recorder interface {
	ObserveDuration(name string, d time.Duration, labels Labels)
	Inc(name string, labels Labels)
}

// Nop discards everything.
type Nop struct{}

func (Nop) ObserveDuration(string, time.Duration, Labels) {}
func (Nop) Inc(string, Labels)                            {}

// OrNop returns r, or Nop when r is nil.
func OrNop(r Recorder) Recorder {
	if r == nil {
		return Nop{}
	}
	return r
}

// LogRecorder writes observations at debug level and keeps running counters.
type LogRecorder struct {
	logger *zap.Logger

	mu       sync.Mutex
	counters map[string]int64
}

func NewLogRecorder(logger *zap.Logger) *LogRecorder {
	return &LogRecorder{logger: logger, counters: make(map[string]int64)}
}

func (r *LogRecorder) ObserveDuration(name string, d time.Duration, labels Labels) {
	r.logger.Debug("metric",
		zap.String("name", name),
		zap.Float64("seconds", d.Seconds()),
		zap.Any("labels", labels),
	)
}

func (r *LogRecorder) Inc(name string, labels Labels) {
	r.mu.Lock()
	key := counterKey(name, labels)
	r.counters[key]++
	n := r.counters[key]
	r.mu.Unlock()
	r.logger.Debug("metric", zap.String("name", name), zap.Int64("count", n), zap.Any("labels", labels))
}

// Counter returns the current value of a counter, mostly for tests and the health endpoint.
func (r *LogRecorder) Counter(name string, labels Labels) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counters[counterKey(name, labels)]
}

// Snapshot copies all counters.
func (r *LogRecorder) Snapshot() map[string]int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]int64, len(r.counters))
	for k, v := range r.counters {
		out[k] = v
	}
	return out
}

func counterKey(name string, labels Labels) string {
	if len(labels) == 0 {
		return name
	}
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = k + "=" + labels[k]
	}
	return name + "{" + strings.Join(pairs, ",") + "}"
}
