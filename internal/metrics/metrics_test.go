package metrics

import (
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestLogRecorder_CountsByLabels(t *testing.T) {
	r := NewLogRecorder(zap.NewNop())
	r.Inc(CacheHit, Labels{"ns": "route"})
	r.Inc(CacheHit, Labels{"ns": "route"})
	r.Inc(CacheHit, Labels{"ns": "stage1"})
	r.Inc(CacheMiss, nil)
	r.ObserveDuration(Step1Duration, time.Millisecond, nil)

	if got := r.Counter(CacheHit, Labels{"ns": "route"}); got != 2 {
		t.Fatalf("route hits = %d, want 2", got)
	}
	if got := r.Counter(CacheMiss, nil); got != 1 {
		t.Fatalf("misses = %d, want 1", got)
	}
	if got := len(r.Snapshot()); got != 3 {
		t.Fatalf("snapshot size = %d, want 3", got)
	}
}

func TestCounterKey_StableOrder(t *testing.T) {
	a := counterKey("x", Labels{"b": "2", "a": "1"})
	b := counterKey("x", Labels{"a": "1", "b": "2"})
	if a != b || a != "x{a=1,b=2}" {
		t.Fatalf("keys differ: %q %q", a, b)
	}
}

func TestOrNop(t *testing.T) {
	if _, ok := OrNop(nil).(Nop); !ok {
		t.Fatal("expected Nop for nil recorder")
	}
}
