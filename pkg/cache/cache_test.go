package cache

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGetSetRoundTrip(t *testing.T) {
	c := New[string]("t_roundtrip", time.Minute)

	_, ok := c.Get("k")
	require.False(t, ok)

	c.Set("k", "v")
	got, ok := c.Get("k")
	require.True(t, ok)
	require.Equal(t, "v", got)
}

func TestGetExpiresAfterTTL(t *testing.T) {
	c := New[int]("t_ttl", 10*time.Millisecond)

	c.Set("k", 42)
	time.Sleep(20 * time.Millisecond)

	_, ok := c.Get("k")
	require.False(t, ok)
}

func TestZeroTTLNeverExpires(t *testing.T) {
	c := New[int]("t_nottl", 0)

	c.Set("k", 1)
	time.Sleep(5 * time.Millisecond)

	got, ok := c.Get("k")
	require.True(t, ok)
	require.Equal(t, 1, got)
}

func TestInvalidate(t *testing.T) {
	c := New[string]("t_invalidate", time.Minute)

	c.Set("k", "v")
	c.Invalidate("k")

	_, ok := c.Get("k")
	require.False(t, ok)
}

func TestGetOrLoadCollapsesConcurrentLoads(t *testing.T) {
	c := New[string]("t_singleflight", time.Minute)

	var loads atomic.Int32
	release := make(chan struct{})
	loader := func() (string, error) {
		loads.Add(1)
		<-release
		return "loaded", nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := c.GetOrLoad("k", loader)
			require.NoError(t, err)
			require.Equal(t, "loaded", v)
		}()
	}

	time.Sleep(10 * time.Millisecond)
	close(release)
	wg.Wait()

	require.Equal(t, int32(1), loads.Load())
}

func TestGetOrLoadDoesNotCacheErrors(t *testing.T) {
	c := New[string]("t_loaderr", time.Minute)

	boom := errors.New("boom")
	_, err := c.GetOrLoad("k", func() (string, error) { return "", boom })
	require.ErrorIs(t, err, boom)

	v, err := c.GetOrLoad("k", func() (string, error) { return "ok", nil })
	require.NoError(t, err)
	require.Equal(t, "ok", v)
}

func TestSweepDropsOnlyExpiredEntries(t *testing.T) {
	c := New[int]("t_sweep", 15*time.Millisecond)

	c.Set("old", 1)
	time.Sleep(20 * time.Millisecond)
	c.Set("fresh", 2)

	c.Sweep()

	c.mu.RLock()
	_, hasOld := c.items["old"]
	_, hasFresh := c.items["fresh"]
	c.mu.RUnlock()
	require.False(t, hasOld)
	require.True(t, hasFresh)
}
