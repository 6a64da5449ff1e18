package cache

import (
	"context"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSharded_BasicOps(t *testing.T) {
	t.Parallel()

	c := NewSharded(Options[string, int]{Name: "sh", Shards: 4})
	t.Cleanup(func() { _ = c.Close() })

	for i := 0; i < 100; i++ {
		c.SetWithCost("k"+strconv.Itoa(i), i, int64(i))
	}
	assert.Equal(t, 100, c.Len())
	assert.Equal(t, int64(99*100/2), c.TotalCost())
	assert.Equal(t, "sh", c.Name())

	v, ok := c.Get("k42")
	require.True(t, ok)
	assert.Equal(t, 42, v)

	assert.True(t, c.Remove("k42"))
	assert.False(t, c.Add("k1", -1, 0))
	assert.Equal(t, 99, c.Len())

	keys := c.KeysByCost()
	require.Len(t, keys, 99)
	assert.Equal(t, "k0", keys[0])
	assert.Equal(t, "k99", keys[len(keys)-1])

	s := c.Stats()
	assert.Equal(t, 99, s.Entries)
	assert.Equal(t, uint64(1), s.Removes)

	c.Clear()
	assert.Zero(t, c.Len())
	assert.Zero(t, c.TotalCost())
}

func TestSharded_LimitsSplitAcrossShards(t *testing.T) {
	t.Parallel()

	c := NewSharded(Options[int, int]{Shards: 4, CountLimit: 40, TotalCostLimit: 400}).(*sharded[int, int])
	require.Len(t, c.shards, 4)
	for _, sh := range c.shards {
		assert.Equal(t, 10, sh.CountLimit())
		assert.Equal(t, int64(100), sh.TotalCostLimit())
	}

	for i := 0; i < 1000; i++ {
		c.SetWithCost(i, i, 5)
	}
	assert.LessOrEqual(t, c.Len(), 40)
	assert.LessOrEqual(t, c.TotalCost(), int64(400))

	c.SetCountLimit(7) // ceil(7/4) = 2 per shard
	c.SetTotalCostLimit(0)
	assert.Equal(t, 7, c.CountLimit())
	assert.Zero(t, c.TotalCostLimit())
	for _, sh := range c.shards {
		assert.Equal(t, 2, sh.CountLimit())
		assert.Zero(t, sh.TotalCostLimit())
	}
}

func TestSharded_ObserverReceivesFrontEnd(t *testing.T) {
	t.Parallel()

	var (
		mu  sync.Mutex
		got []Cache[int, int]
	)
	obs := ObserverFunc[int, int](func(c Cache[int, int], _ int) {
		mu.Lock()
		got = append(got, c)
		mu.Unlock()
	})

	c := NewSharded(Options[int, int]{Shards: 2, CountLimit: 2, Observer: obs})
	for i := 0; i < 50; i++ {
		c.SetWithCost(i, i, int64(i))
	}
	require.NotEmpty(t, got)
	for _, g := range got {
		assert.Same(t, c.(*sharded[int, int]), g.(*sharded[int, int]))
	}

	c.SetObserver(nil)
	assert.Nil(t, c.Observer())
	n := len(got)
	for i := 50; i < 60; i++ {
		c.SetWithCost(i, i, int64(i))
	}
	assert.Len(t, got, n)
}

func TestSharded_CustomHash(t *testing.T) {
	t.Parallel()

	type point struct{ x, y int }
	c := NewSharded(Options[point, string]{
		Shards: 8,
		Hash:   func(p point) uint64 { return uint64(p.x*31 + p.y) },
	})
	c.Set(point{1, 2}, "a")
	v, ok := c.Get(point{1, 2})
	require.True(t, ok)
	assert.Equal(t, "a", v)
}

func TestSharded_GetOrLoad(t *testing.T) {
	t.Parallel()

	c := NewSharded(Options[string, int]{
		Shards: 4,
		Loader: func(_ context.Context, k string) (int, int64, error) {
			return len(k), int64(len(k)), nil
		},
	})
	v, err := c.GetOrLoad(context.Background(), "four")
	require.NoError(t, err)
	assert.Equal(t, 4, v)
	assert.Equal(t, int64(4), c.TotalCost())

	require.NoError(t, c.Close())
	_, err = c.GetOrLoad(context.Background(), "four")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestSharded_MetricsSizeIsCacheTotal(t *testing.T) {
	t.Parallel()

	m := &fakeMetrics{}
	c := NewSharded(Options[string, int]{Shards: 8, Metrics: m})
	t.Cleanup(func() { _ = c.Close() })

	for i := 0; i < 100; i++ {
		c.SetWithCost("k"+strconv.Itoa(i), i, 1)
	}
	assert.Equal(t, c.Len(), m.lastEntries)
	assert.Equal(t, c.TotalCost(), m.lastCost)
	assert.Equal(t, 100, m.lastEntries)

	require.True(t, c.Remove("k7"))
	assert.Equal(t, 99, m.lastEntries)
	assert.Equal(t, int64(99), m.lastCost)

	c.SetWithCost("k8", 8, 11)
	assert.Equal(t, int64(109), m.lastCost)

	c.Clear()
	assert.Zero(t, m.lastEntries)
	assert.Zero(t, m.lastCost)
}

func TestSharded_NamedKeyTypesHash(t *testing.T) {
	t.Parallel()

	type userID string
	c := NewSharded(Options[userID, int]{Shards: 4})
	t.Cleanup(func() { _ = c.Close() })

	assert.NotPanics(t, func() { c.Set("alice", 1) })
	v, ok := c.Get("alice")
	require.True(t, ok)
	assert.Equal(t, 1, v)
}
