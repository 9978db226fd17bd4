package queue

import (
	"fmt"
	"slices"
	"time"
)

type queueItem[V any] struct {
	time   time.Time
	value  V
	number uint64
}

func (item *queueItem[V]) expired(now time.Time, maxAge time.Duration) bool {
	return now.Sub(item.time) >= maxAge
}

func (item *queueItem[V]) before(other *queueItem[V]) bool {
	if !item.time.Equal(other.time) {
		return item.time.Before(other.time)
	}
	return item.number < other.number
}

// itemQueue implements heap.Interface for queueItems. The oldest item,
// the one with the smallest (time, number), is at the root (index 0).
type itemQueue[V any] []*queueItem[V]

func (pq itemQueue[V]) Len() int {
	return len(pq)
}

func (pq itemQueue[V]) Less(i, j int) bool {
	return pq[i].before(pq[j])
}

func (pq itemQueue[V]) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
}

// Push adds an item to the queue. Push should not be called directly;
// instead, use `heap.Push`.
func (pq *itemQueue[V]) Push(item *queueItem[V]) {
	*pq = append(*pq, item)
}

// Pop removes an item from the queue. Pop should not be called directly;
// instead, use `heap.Pop`.
func (pq *itemQueue[V]) Pop() (*queueItem[V], error) {
	n := len(*pq)
	if n == 0 {
		return nil, fmt.Errorf("queue is empty")
	}
	item := (*pq)[n-1]
	(*pq)[n-1] = nil
	*pq = (*pq)[0:(n - 1)]
	return item, nil
}

// Peek returns the oldest item without removing it. It is safe to call
// directly.
func (pq itemQueue[V]) Peek() (*queueItem[V], bool) {
	if len(pq) == 0 {
		return nil, false
	}
	return pq[0], true
}

// sorted returns a copy of the items in insertion order.
func (pq itemQueue[V]) sorted() itemQueue[V] {
	items := slices.Clone(pq)
	slices.SortFunc(items, func(left, right *queueItem[V]) int {
		switch {
		case left.before(right):
			return -1
		case right.before(left):
			return 1
		}
		return 0
	})
	return items
}
