package queue

import (
	"cmp"
	"iter"
	"reflect"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"k8s.io/utils/clock"
)

// Queue is the behaviour shared by SumQueue and Locked. Every method,
// including the ones that only read, first drops the expired entries.
type Queue[V any] interface {
	Push(value V)
	PushAndStats(value V) Stats[V]
	Pop() (V, bool)
	Peek() (V, bool)
	All() iter.Seq[V]
	List() []V
	Stats() Stats[V]
	Len() int
	Clear()
	MaxAge() time.Duration
}

// Constraint orders values, it is what Stats uses for Min and Max.
type Constraint[V any] interface {
	Less(left, right V) bool
}

// Adder is implemented by constraints whose values can be summed. A
// constraint without it yields stats with no Sum.
type Adder[V any] interface {
	Add(left, right V) V
}

// Subtractor lets the running sum be updated in place when an entry
// leaves the window. Without it the sum is rebuilt on the next Stats call.
type Subtractor[V any] interface {
	Sub(left, right V) V
}

// Commutative is implemented by adders that may tell the sum does not
// depend on the order of the values. A dirty sum is then rebuilt straight
// from the heap instead of from a copy sorted by push order.
type Commutative interface {
	Commutative() bool
}

// Ordered covers every cmp.Ordered type. Strings are summed by
// concatenation.
type Ordered[V cmp.Ordered] struct{}

func (Ordered[V]) Less(left, right V) bool { return cmp.Less(left, right) }

func (Ordered[V]) Add(left, right V) V { return left + right }

func (Ordered[V]) Commutative() bool { return reflect.TypeFor[V]().Kind() != reflect.String }

// ConstraintFor returns the constraint New uses for V: Ordered, with
// wrapping subtraction added when V is an integer kind.
func ConstraintFor[V cmp.Ordered]() Constraint[V] {
	switch reflect.TypeFor[V]().Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return orderedInteger[V]{}
	}
	return Ordered[V]{}
}

// orderedInteger is only built by ConstraintFor, so V is always an
// integer kind here.
type orderedInteger[V cmp.Ordered] struct {
	Ordered[V]
}

func (orderedInteger[V]) Sub(left, right V) V {
	switch l := any(left).(type) {
	case int:
		return any(l - any(right).(int)).(V)
	case int64:
		return any(l - any(right).(int64)).(V)
	case int32:
		return any(l - any(right).(int32)).(V)
	case uint:
		return any(l - any(right).(uint)).(V)
	case uint64:
		return any(l - any(right).(uint64)).(V)
	case uint32:
		return any(l - any(right).(uint32)).(V)
	}

	// named and narrow kinds; SetInt/SetUint truncate, which wraps
	lv, rv := reflect.ValueOf(left), reflect.ValueOf(right)
	out := reflect.New(lv.Type()).Elem()
	if lv.CanInt() {
		out.SetInt(lv.Int() - rv.Int())
	} else {
		out.SetUint(lv.Uint() - rv.Uint())
	}
	return out.Interface().(V)
}

type integer interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr
}

// Integer is Ordered plus subtraction. Sums wrap on overflow, and because
// wrapping addition and subtraction cancel exactly the running sum stays
// equal to the sum of the live values modulo the type's width.
type Integer[V integer] struct{}

func (Integer[V]) Less(left, right V) bool { return left < right }

func (Integer[V]) Add(left, right V) V { return left + right }

func (Integer[V]) Sub(left, right V) V { return left - right }

func (Integer[V]) Commutative() bool { return true }

type config struct {
	lock     sync.Locker
	clock    clock.PassiveClock
	logger   logrus.FieldLogger
	capacity int
}

func newConfig(opts []Option) *config {
	cfg := &config{
		lock:   &sync.Mutex{},
		clock:  clock.RealClock{},
		logger: logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

type Option func(*config)

// WithLocker sets the lock Locked guards the queue with.
func WithLocker(lock sync.Locker) Option {
	return func(cfg *config) {
		if lock != nil {
			cfg.lock = lock
		}
	}
}

// WithClock replaces the wall clock, mostly for tests.
func WithClock(clk clock.PassiveClock) Option {
	return func(cfg *config) {
		if clk != nil {
			cfg.clock = clk
		}
	}
}

func WithLogger(logger logrus.FieldLogger) Option {
	return func(cfg *config) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// WithCapacity preallocates room for n entries.
func WithCapacity(n int) Option {
	return func(cfg *config) {
		if n > 0 {
			cfg.capacity = n
		}
	}
}
