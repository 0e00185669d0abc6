package cache

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"cargo/internal/metrics"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestMemory_Expiry(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	m := NewMemory().WithClock(clock.now)

	require.NoError(t, m.Set(ctx, "k", []byte("v"), time.Minute))
	got, ok, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), got)

	clock.advance(59 * time.Second)
	_, ok, _ = m.Get(ctx, "k")
	assert.True(t, ok)

	clock.advance(time.Second)
	_, ok, _ = m.Get(ctx, "k")
	assert.False(t, ok, "entry must not be returned at expiry")
}

func TestMemory_DeleteAndSweep(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Unix(0, 0)}
	m := NewMemory().WithClock(clock.now)

	_ = m.Set(ctx, "a", []byte("1"), time.Second)
	_ = m.Set(ctx, "b", []byte("2"), time.Hour)
	require.NoError(t, m.Delete(ctx, "b"))
	_, ok, _ := m.Get(ctx, "b")
	assert.False(t, ok)

	clock.advance(2 * time.Second)
	assert.Equal(t, 1, m.Sweep())
}

func TestMemory_SweeperRunsUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	clock := &fakeClock{t: time.Unix(0, 0)}
	m := NewMemory().WithClock(clock.now)

	_ = m.Set(ctx, "a", []byte("1"), time.Second)
	_ = m.Set(ctx, "b", []byte("2"), time.Second)
	clock.advance(2 * time.Second)
	require.Equal(t, 2, m.Len())

	done := make(chan struct{})
	go func() {
		m.RunSweeper(ctx, 5*time.Millisecond)
		close(done)
	}()
	assert.Eventually(t, func() bool { return m.Len() == 0 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after cancel")
	}
}

func TestKey_Stable(t *testing.T) {
	type in struct {
		From string
		Hrs  int
	}
	a := Key("route", in{"a", 1}, map[string]int{"y": 2, "x": 1})
	b := Key("route", in{"a", 1}, map[string]int{"x": 1, "y": 2})
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, Key("route", in{"a", 2}))
	assert.NotEqual(t, a, Key("stage1", in{"a", 1}, map[string]int{"x": 1, "y": 2}))
}

func TestMemo_HitMissAndErrors(t *testing.T) {
	ctx := context.Background()
	rec := metrics.NewLogRecorder(zap.NewNop())
	memo := NewMemo[int](NewMemory(), "test", time.Minute, nil, rec)

	calls := 0
	compute := func(context.Context) (int, error) {
		calls++
		return 42, nil
	}
	key := memo.Key("x")
	v, err := memo.Do(ctx, key, compute)
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	v, err = memo.Do(ctx, key, compute)
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, 1, calls)
	assert.EqualValues(t, 1, rec.Counter(metrics.CacheHit, metrics.Labels{"namespace": "test"}))

	boom := errors.New("boom")
	failKey := memo.Key("fail")
	_, err = memo.Do(ctx, failKey, func(context.Context) (int, error) { return 0, boom })
	assert.ErrorIs(t, err, boom)
	v, err = memo.Do(ctx, failKey, compute)
	require.NoError(t, err)
	assert.Equal(t, 42, v, "errors must not be cached")
}

func TestMemo_CancelledComputeNotCached(t *testing.T) {
	memo := NewMemo[int](NewMemory(), "test", time.Minute, nil, nil)
	key := memo.Key("x")

	ctx, cancel := context.WithCancel(context.Background())
	v, err := memo.Do(ctx, key, func(context.Context) (int, error) {
		cancel()
		return 1, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	v, err = memo.Do(context.Background(), key, func(context.Context) (int, error) { return 2, nil })
	require.NoError(t, err)
	assert.Equal(t, 2, v, "a result computed after cancellation must not be cached")
}

func TestMemo_UndecodableEntryIsMiss(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()
	memo := NewMemo[int](c, "test", time.Minute, nil, nil)
	key := memo.Key("x")
	require.NoError(t, c.Set(ctx, key, []byte("not-json"), time.Minute))

	v, err := memo.Do(ctx, key, func(context.Context) (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestMemo_CoalescesConcurrentMisses(t *testing.T) {
	ctx := context.Background()
	memo := NewMemo[string](NewMemory(), "test", time.Minute, nil, nil)
	key := memo.Key("slow")

	var calls atomic.Int32
	release := make(chan struct{})
	compute := func(context.Context) (string, error) {
		calls.Add(1)
		<-release
		return "done", nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := memo.Do(ctx, key, compute)
			assert.NoError(t, err)
			assert.Equal(t, "done", v)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	assert.EqualValues(t, 1, calls.Load())
}

func TestRedis_RoundTrip(t *testing.T) {
	addr := os.Getenv("CARGO_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("CARGO_TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()
	r := NewRedis(client)
	require.NoError(t, r.Ping(ctx))

	key := Key("test", time.Now().UnixNano())
	require.NoError(t, r.Set(ctx, key, []byte("v"), time.Minute))
	got, ok, err := r.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), got)

	require.NoError(t, r.Delete(ctx, key))
	_, ok, err = r.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)
}
