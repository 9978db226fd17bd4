package queue

import (
	"cmp"
	"iter"
	"slices"
	"sync"
	"time"
)

// Locked guards a SumQueue with a single lock. Reads evict, so every
// method takes the lock exclusively, even when the locker is an RWMutex.
type Locked[V any] struct {
	lock  sync.Locker
	queue *SumQueue[V]
}

func NewLocked[V cmp.Ordered](maxAge time.Duration, opts ...Option) (*Locked[V], error) {
	return NewLockedWith[V](maxAge, ConstraintFor[V](), opts...)
}

func NewLockedWith[V any](maxAge time.Duration, constraint Constraint[V], opts ...Option) (*Locked[V], error) {
	q, err := NewWith[V](maxAge, constraint, opts...)
	if err != nil {
		return nil, err
	}
	return q.Locked(), nil
}

func (que *Locked[V]) Push(value V) {
	que.lock.Lock()
	defer que.lock.Unlock()
	que.queue.Push(value)
}

func (que *Locked[V]) PushAndStats(value V) Stats[V] {
	que.lock.Lock()
	defer que.lock.Unlock()
	return que.queue.PushAndStats(value)
}

func (que *Locked[V]) Pop() (V, bool) {
	que.lock.Lock()
	defer que.lock.Unlock()
	return que.queue.Pop()
}

func (que *Locked[V]) Peek() (V, bool) {
	que.lock.Lock()
	defer que.lock.Unlock()
	return que.queue.Peek()
}

func (que *Locked[V]) List() []V {
	que.lock.Lock()
	defer que.lock.Unlock()
	return que.queue.List()
}

// All snapshots the live values under the lock; ranging over the result
// does not hold it.
func (que *Locked[V]) All() iter.Seq[V] {
	return slices.Values(que.List())
}

func (que *Locked[V]) Stats() Stats[V] {
	que.lock.Lock()
	defer que.lock.Unlock()
	return que.queue.Stats()
}

func (que *Locked[V]) Len() int {
	que.lock.Lock()
	defer que.lock.Unlock()
	return que.queue.Len()
}

func (que *Locked[V]) Clear() {
	que.lock.Lock()
	defer que.lock.Unlock()
	que.queue.Clear()
}

func (que *Locked[V]) MaxAge() time.Duration {
	return que.queue.MaxAge()
}

// Do runs fn with the lock held, for sequences of calls that must not
// interleave with other goroutines. fn must not retain q.
func (que *Locked[V]) Do(fn func(q *SumQueue[V])) {
	que.lock.Lock()
	defer que.lock.Unlock()
	fn(que.queue)
}

var (
	_ Queue[int] = (*SumQueue[int])(nil)
	_ Queue[int] = (*Locked[int])(nil)
)
