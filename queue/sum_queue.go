package queue

import (
	"cmp"
	"errors"
	"fmt"
	"iter"
	"slices"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
	"k8s.io/utils/clock"

	"github.com/LiuYuuChen/timequeue/heap"
)

var ErrInvalidMaxAge = errors.New("max age must be positive")

// SumQueue keeps the values pushed during the last maxAge and aggregate
// stats over them. A value pushed at T is visible strictly before
// T+maxAge and gone from T+maxAge on.
//
// There is no background goroutine: every method, Len, Peek and Stats
// included, drops the expired entries before doing its own work. So a
// SumQueue is never read-only and is not safe for concurrent use; see
// Locked.
type SumQueue[V any] struct {
	maxAge time.Duration
	items  itemQueue[V]
	stats  aggregate[V]

	// number and last keep (time, number) in push order even if the
	// clock steps backwards.
	number uint64
	last   time.Time

	clock  clock.PassiveClock
	lock   sync.Locker
	logger logrus.FieldLogger
	// throttles eviction logs in queue time, so a fake clock drives it too
	logEvery *rate.Limiter
}

// New returns an empty queue over an ordered type. Integer kinds keep a
// running sum that is subtracted from on removal, see ConstraintFor.
func New[V cmp.Ordered](maxAge time.Duration, opts ...Option) (*SumQueue[V], error) {
	return NewWith[V](maxAge, ConstraintFor[V](), opts...)
}

// NewWith returns an empty queue whose values are compared, and summed if
// constraint is an Adder, by constraint.
func NewWith[V any](maxAge time.Duration, constraint Constraint[V], opts ...Option) (*SumQueue[V], error) {
	if err := ValidateMaxAge(maxAge); err != nil {
		return nil, err
	}
	if constraint == nil {
		return nil, fmt.Errorf("can not build a queue without a constraint")
	}
	return newSumQueue[V](maxAge, constraint, newConfig(opts)), nil
}

// ValidateMaxAge rejects windows that are empty or negative.
func ValidateMaxAge(maxAge time.Duration) error {
	if maxAge <= 0 {
		return fmt.Errorf("%w, got %v", ErrInvalidMaxAge, maxAge)
	}
	return nil
}

func newSumQueue[V any](maxAge time.Duration, constraint Constraint[V], cfg *config) *SumQueue[V] {
	return &SumQueue[V]{
		maxAge:   maxAge,
		items:    make(itemQueue[V], 0, cfg.capacity),
		stats:    newAggregate[V](constraint),
		clock:    cfg.clock,
		lock:     cfg.lock,
		logger:   cfg.logger,
		logEvery: rate.NewLimiter(rate.Every(time.Second), 1),
	}
}

// evict pops expired items off the front of the heap. Items behind the
// first live one are younger, so it stops there.
func (q *SumQueue[V]) evict(now time.Time) {
	evicted := 0
	for {
		item, ok := q.items.Peek()
		if !ok || !item.expired(now, q.maxAge) {
			break
		}
		if _, err := heap.Pop[*queueItem[V]](&q.items); err != nil {
			break
		}
		q.stats.exclude(item.value)
		evicted++
	}

	if evicted == 0 || !q.logEvery.AllowN(now, 1) {
		return
	}
	q.logger.WithFields(logrus.Fields{
		"evicted":   evicted,
		"remaining": q.items.Len(),
		"max_age":   q.maxAge,
	}).Debug("evicted expired entries")
}

func (q *SumQueue[V]) push(now time.Time, value V) {
	if now.Before(q.last) {
		now = q.last
	}
	q.last = now
	q.number++
	heap.Push[*queueItem[V]](&q.items, &queueItem[V]{
		time:   now,
		value:  value,
		number: q.number,
	})
	q.stats.include(value)
}

// Push adds value stamped with the current time.
func (q *SumQueue[V]) Push(value V) {
	now := q.clock.Now()
	q.evict(now)
	q.push(now, value)
}

// PushAndStats pushes value and returns the stats including it, reading
// the clock once for both.
func (q *SumQueue[V]) PushAndStats(value V) Stats[V] {
	now := q.clock.Now()
	q.evict(now)
	q.push(now, value)
	return q.stats.snapshot(q.items)
}

// Pop removes and returns the oldest live value.
func (q *SumQueue[V]) Pop() (V, bool) {
	q.evict(q.clock.Now())

	item, err := heap.Pop[*queueItem[V]](&q.items)
	if err != nil {
		var empty V
		return empty, false
	}
	q.stats.exclude(item.value)
	return item.value, true
}

// Peek returns the oldest live value without removing it.
func (q *SumQueue[V]) Peek() (V, bool) {
	q.evict(q.clock.Now())

	item, ok := q.items.Peek()
	if !ok {
		var empty V
		return empty, false
	}
	return item.value, true
}

// List returns the live values, oldest first.
func (q *SumQueue[V]) List() []V {
	q.evict(q.clock.Now())

	sorted := q.items.sorted()
	list := make([]V, 0, len(sorted))
	for _, item := range sorted {
		list = append(list, item.value)
	}
	return list
}

// All returns the live values, oldest first. Expiry is checked once, when
// All is called; ranging over the result later does not drop anything.
// Call All again for a fresh view.
func (q *SumQueue[V]) All() iter.Seq[V] {
	return slices.Values(q.List())
}

func (q *SumQueue[V]) Stats() Stats[V] {
	q.evict(q.clock.Now())
	return q.stats.snapshot(q.items)
}

// Len returns the number of live values. It is also the cheapest way to
// release the memory held by expired entries of an idle queue.
func (q *SumQueue[V]) Len() int {
	q.evict(q.clock.Now())
	return q.items.Len()
}

// Clear drops every entry, live or not.
func (q *SumQueue[V]) Clear() {
	clear(q.items)
	q.items = q.items[:0]
	q.stats.reset()
}

func (q *SumQueue[V]) MaxAge() time.Duration {
	return q.maxAge
}

// Locked wraps q behind the locker it was configured with. q must not be
// used directly afterwards.
func (q *SumQueue[V]) Locked() *Locked[V] {
	return &Locked[V]{lock: q.lock, queue: q}
}
