package lru

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRU_Basic(t *testing.T) {
	cache := New[string, int](Config{MaxSize: 100})
	defer cache.Close()

	cache.Set("key1", 100)
	val, ok := cache.Get("key1")
	require.True(t, ok)
	assert.Equal(t, 100, val)

	_, ok = cache.Get("nonexistent")
	assert.False(t, ok)

	cache.Delete("key1")
	_, ok = cache.Get("key1")
	assert.False(t, ok)

	cache.Set("a", 1)
	cache.Set("b", 2)
	assert.Equal(t, 2, cache.Len())

	cache.Clear()
	assert.Equal(t, 0, cache.Len())
}

func TestLRU_EvictsLeastRecentlyUsed(t *testing.T) {
	var evicted []string
	cache := New[string, int](Config{MaxSize: 3}, WithOnEvict(func(k string, _ int) {
		evicted = append(evicted, k)
	}))
	defer cache.Close()

	cache.Set("a", 1)
	cache.Set("b", 2)
	cache.Set("c", 3)
	cache.Get("a")
	cache.Set("d", 4)

	assert.Equal(t, []string{"b"}, evicted)
	_, ok := cache.Get("a")
	assert.True(t, ok)
}

func TestLRU_TTL(t *testing.T) {
	cache := New[string, int](Config{MaxSize: 10, DefaultTTL: 20 * time.Millisecond})
	defer cache.Close()

	cache.Set("short", 1)
	cache.SetWithTTL("forever", 2, 0)

	time.Sleep(40 * time.Millisecond)

	_, ok := cache.Get("short")
	assert.False(t, ok)
	v, ok := cache.Get("forever")
	assert.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestLRU_SlidingTTL(t *testing.T) {
	cache := New[string, int](Config{MaxSize: 10, DefaultTTL: 40 * time.Millisecond, Sliding: true})
	defer cache.Close()

	cache.Set("hot", 1)
	cache.Set("cold", 2)
	for i := 0; i < 8; i++ {
		time.Sleep(10 * time.Millisecond)
		_, ok := cache.Get("hot")
		require.True(t, ok, "access %d", i)
	}

	_, ok := cache.Get("cold")
	assert.False(t, ok)

	time.Sleep(60 * time.Millisecond)
	_, ok = cache.Get("hot")
	assert.False(t, ok)
}

func TestLRU_AbsoluteTTLIgnoresAccess(t *testing.T) {
	cache := New[string, int](Config{MaxSize: 10, DefaultTTL: 40 * time.Millisecond})
	defer cache.Close()

	cache.Set("a", 1)
	deadline := time.Now().Add(40 * time.Millisecond)
	for time.Now().Before(deadline) {
		cache.Get("a")
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(10 * time.Millisecond)

	_, ok := cache.Get("a")
	assert.False(t, ok)
}

func TestLRU_BackgroundCleanup(t *testing.T) {
	cache := New[string, int](Config{
		MaxSize:         10,
		DefaultTTL:      10 * time.Millisecond,
		CleanupInterval: 5 * time.Millisecond,
	})
	defer cache.Close()

	cache.Set("a", 1)
	assert.Eventually(t, func() bool { return cache.Len() == 0 }, time.Second, 5*time.Millisecond)
}

func TestLRU_GetOrCreateConcurrent(t *testing.T) {
	cache := New[int, *int](Config{MaxSize: 10})
	defer cache.Close()

	var (
		wg      sync.WaitGroup
		created int
		mu      sync.Mutex
	)
	results := make([]*int, 50)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = cache.GetOrCreate(1, func() *int {
				mu.Lock()
				created++
				mu.Unlock()
				v := 7
				return &v
			})
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	for _, r := range results {
		assert.Same(t, results[0], r)
	}
	require.NoError(t, cache.Close())
	require.NoError(t, cache.Close())
}
