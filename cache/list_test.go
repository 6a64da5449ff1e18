package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func listKeys(l *costList[string, int]) []string {
	var out []string
	l.ascend(func(e *entry[string, int]) bool {
		out = append(out, e.key)
		return true
	})
	return out
}

func push(l *costList[string, int], k string, cost int64) int32 {
	i := l.alloc(k, 0, cost)
	l.insert(i)
	return i
}

func TestCostList_InsertOrder(t *testing.T) {
	t.Parallel()

	l := newCostList[string, int](4)
	push(&l, "m", 5)
	push(&l, "lo", 1)  // new head
	push(&l, "hi", 9)  // tail
	push(&l, "m2", 5)  // before existing 5
	push(&l, "lo2", 1) // equal to head: becomes head

	assert.Equal(t, []string{"lo2", "lo", "m2", "m", "hi"}, listKeys(&l))
	assert.Equal(t, 5, l.live)
}

func TestCostList_UnlinkHeadMiddleTail(t *testing.T) {
	t.Parallel()

	l := newCostList[string, int](4)
	a := push(&l, "a", 1)
	b := push(&l, "b", 2)
	c := push(&l, "c", 3)
	d := push(&l, "d", 4)

	l.unlink(b)
	assert.Equal(t, []string{"a", "c", "d"}, listKeys(&l))
	l.unlink(a)
	assert.Equal(t, c, l.head)
	assert.Equal(t, none, l.slots[c].prev)
	l.unlink(d)
	assert.Equal(t, []string{"c"}, listKeys(&l))
	assert.Equal(t, none, l.slots[c].next)
	l.unlink(c)
	assert.Equal(t, none, l.head)
	assert.Zero(t, l.live)
}

func TestCostList_ReleaseReusesSlots(t *testing.T) {
	t.Parallel()

	l := newCostList[string, int](2)
	a := push(&l, "a", 1)
	b := push(&l, "b", 2)
	l.unlink(a)
	l.release(a)
	l.unlink(b)
	l.release(b)

	// Freed slots are zeroed and handed out LIFO.
	assert.Equal(t, "", l.slots[a].key)
	require.Equal(t, b, l.alloc("x", 0, 0))
	require.Equal(t, a, l.alloc("y", 0, 0))
	assert.Len(t, l.slots, 2)
}

func TestCostList_Reset(t *testing.T) {
	t.Parallel()

	l := newCostList[string, int](2)
	push(&l, "a", 1)
	push(&l, "b", 2)
	l.reset()

	assert.Equal(t, none, l.head)
	assert.Equal(t, none, l.free)
	assert.Empty(t, l.slots)
	assert.Nil(t, listKeys(&l))

	push(&l, "c", 3)
	assert.Equal(t, []string{"c"}, listKeys(&l))
}

func TestCostList_AscendStops(t *testing.T) {
	t.Parallel()

	l := newCostList[string, int](4)
	for _, k := range []string{"a", "b", "c"} {
		push(&l, k, int64(len(k)))
	}
	n := 0
	l.ascend(func(*entry[string, int]) bool {
		n++
		return n < 2
	})
	assert.Equal(t, 2, n)
}
