package cache

import (
	"context"
	"math/rand"
	"runtime"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

// A mixed workload of concurrent writes, reads, limit changes and observer
// swaps. Should pass under `-race` without detector reports.
func TestRace_Mixed(t *testing.T) {
	for _, tc := range []struct {
		name string
		c    Cache[string, []byte]
	}{
		{"single", New(Options[string, []byte]{TotalCostLimit: 64 << 10, CountLimit: 2_048})},
		{"sharded", NewSharded(Options[string, []byte]{TotalCostLimit: 64 << 10, CountLimit: 2_048, Shards: 16})},
	} {
		t.Run(tc.name, func(t *testing.T) {
			c := tc.c
			t.Cleanup(func() { _ = c.Close() })

			var evicted atomic.Int64
			c.SetObserver(ObserverFunc[string, []byte](func(Cache[string, []byte], []byte) { evicted.Add(1) }))

			workers := 4 * runtime.GOMAXPROCS(0)
			keyspace := 20_000
			deadline := time.Now().Add(time.Second)

			var g errgroup.Group
			for w := 0; w < workers; w++ {
				g.Go(func() error {
					r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(w)*9973))
					for time.Now().Before(deadline) {
						k := "k:" + strconv.Itoa(r.Intn(keyspace))
						switch op := r.Intn(100); {
						case op < 5:
							c.Remove(k)
						case op == 5:
							c.SetTotalCostLimit(int64(32<<10 + r.Intn(64<<10)))
						case op == 6:
							c.Stats()
						case op < 30:
							c.SetWithCost(k, []byte("x"), int64(r.Intn(256)))
						default:
							c.Get(k)
						}
					}
					return nil
				})
			}
			require.NoError(t, g.Wait())

			assert.Positive(t, evicted.Load())
			assert.LessOrEqual(t, c.Len(), 2_048+16) // per-shard ceil rounding
		})
	}
}

// One hundred goroutines call GetOrLoad on the same key concurrently.
// The Loader should run at most once.
func TestRace_GetOrLoad(t *testing.T) {
	var calls atomic.Int64

	c := New(Options[string, string]{
		CountLimit: 1024,
		Loader: func(_ context.Context, k string) (string, int64, error) {
			calls.Add(1)
			time.Sleep(2 * time.Millisecond) // simulate I/O
			return "v:" + k, 1, nil
		},
	})
	t.Cleanup(func() { _ = c.Close() })

	const goroutines = 100
	key := "same-key"

	start := make(chan struct{})
	var g errgroup.Group
	for i := 0; i < goroutines; i++ {
		g.Go(func() error {
			<-start
			v, err := c.GetOrLoad(context.Background(), key)
			if err != nil {
				return err
			}
			assert.Equal(t, "v:"+key, v)
			return nil
		})
	}
	close(start)
	require.NoError(t, g.Wait())

	assert.Equal(t, int64(1), calls.Load())
}
