package cache

// none marks an absent slot index (empty head, list ends).
const none int32 = -1

// entry is one arena slot. While live it sits in the cost-ordered list via
// prev/next slot indices; while free, next chains the free list.
type entry[K comparable, V any] struct {
	key  K
	val  V
	cost int64
	prev int32
	next int32
}

// costList is a doubly linked list of entries sorted by ascending cost,
// stored in a slice arena and addressed by stable int32 indices.
// Not safe for concurrent use; the owning cache serializes access.
type costList[K comparable, V any] struct {
	slots []entry[K, V]
	head  int32 // lowest cost, next eviction victim
	free  int32 // first free slot
	live  int
}

func newCostList[K comparable, V any](hint int) costList[K, V] {
	return costList[K, V]{
		slots: make([]entry[K, V], 0, hint),
		head:  none,
		free:  none,
	}
}

// alloc takes a slot from the free list (or grows the arena) and fills it.
// The slot is not linked yet.
func (l *costList[K, V]) alloc(k K, v V, cost int64) int32 {
	var i int32
	if l.free != none {
		i = l.free
		l.free = l.slots[i].next
	} else {
		l.slots = append(l.slots, entry[K, V]{})
		i = int32(len(l.slots) - 1)
	}
	l.slots[i] = entry[K, V]{key: k, val: v, cost: cost, prev: none, next: none}
	return i
}

// release zeroes an unlinked slot so its key/value can be collected and
// pushes it onto the free list.
func (l *costList[K, V]) release(i int32) {
	l.slots[i] = entry[K, V]{prev: none, next: l.free}
	l.free = i
}

// insert links slot i keeping the list sorted by cost. An entry goes in front
// of the head when its cost is <= the head's, otherwise right before the first
// entry whose cost is >= its own.
func (l *costList[K, V]) insert(i int32) {
	e := &l.slots[i]
	l.live++

	if l.head == none || e.cost <= l.slots[l.head].cost {
		e.prev = none
		e.next = l.head
		if l.head != none {
			l.slots[l.head].prev = i
		}
		l.head = i
		return
	}

	cur := l.head
	for {
		nx := l.slots[cur].next
		if nx == none || l.slots[nx].cost >= e.cost {
			break
		}
		cur = nx
	}

	nx := l.slots[cur].next
	e.prev = cur
	e.next = nx
	l.slots[cur].next = i
	if nx != none {
		l.slots[nx].prev = i
	}
}

// unlink detaches slot i from the list without releasing it.
func (l *costList[K, V]) unlink(i int32) {
	e := &l.slots[i]
	if e.prev != none {
		l.slots[e.prev].next = e.next
	}
	if e.next != none {
		l.slots[e.next].prev = e.prev
	}
	if l.head == i {
		l.head = e.next
	}
	e.prev, e.next = none, none
	l.live--
}

// reset drops every slot. Capacity is kept only for small arenas so a
// one-off burst does not pin memory after Clear.
func (l *costList[K, V]) reset() {
	if cap(l.slots) > 1024 {
		l.slots = nil
	} else {
		clear(l.slots)
		l.slots = l.slots[:0]
	}
	l.head, l.free, l.live = none, none, 0
}

// ascend calls fn for each live entry from lowest to highest cost until fn
// returns false.
func (l *costList[K, V]) ascend(fn func(e *entry[K, V]) bool) {
	for i := l.head; i != none; i = l.slots[i].next {
		if !fn(&l.slots[i]) {
			return
		}
	}
}
