package queue

import "fmt"

// Stats is a snapshot of the aggregates over the live values of a queue.
// Min, Max and Sum report false when Len is zero, so an empty window is
// never confused with one holding a zero value.
//
// Sum follows Go arithmetic: integer sums wrap on overflow and float sums
// may reach ±Inf. Widen V if the window can hold enough values for that
// to matter.
type Stats[V any] struct {
	Len int

	min, max, sum V
	summed        bool
}

func (s Stats[V]) Min() (V, bool) {
	return s.min, s.Len > 0
}

func (s Stats[V]) Max() (V, bool) {
	return s.max, s.Len > 0
}

// Sum is absent when the queue's constraint cannot add values.
func (s Stats[V]) Sum() (V, bool) {
	return s.sum, s.Len > 0 && s.summed
}

func (s Stats[V]) String() string {
	if s.Len == 0 {
		return "{len: 0}"
	}
	if !s.summed {
		return fmt.Sprintf("{min: %v, max: %v, len: %d}", s.min, s.max, s.Len)
	}
	return fmt.Sprintf("{min: %v, max: %v, sum: %v, len: %d}", s.min, s.max, s.sum, s.Len)
}

// aggregate caches min, max and sum over the live items. An extreme that
// leaves the window only marks the field dirty; dirty fields are rebuilt
// from the items when a snapshot is taken.
type aggregate[V any] struct {
	constraint Constraint[V]
	adder      Adder[V]
	subtractor Subtractor[V]
	// the sum is rebuilt in push order unless the adder says otherwise
	commutative bool

	count         int
	min, max, sum V

	minDirty, maxDirty, sumDirty bool
}

func newAggregate[V any](constraint Constraint[V]) aggregate[V] {
	agg := aggregate[V]{constraint: constraint}
	agg.adder, _ = constraint.(Adder[V])
	agg.subtractor, _ = constraint.(Subtractor[V])
	if c, ok := constraint.(Commutative); ok {
		agg.commutative = c.Commutative()
	}
	return agg
}

func (agg *aggregate[V]) include(value V) {
	if agg.count == 0 {
		agg.reset()
		agg.count = 1
		agg.min, agg.max, agg.sum = value, value, value
		return
	}
	agg.count++

	if !agg.minDirty && agg.constraint.Less(value, agg.min) {
		agg.min = value
	}
	if !agg.maxDirty && agg.constraint.Less(agg.max, value) {
		agg.max = value
	}
	if agg.adder != nil && !agg.sumDirty {
		agg.sum = agg.adder.Add(agg.sum, value)
	}
}

func (agg *aggregate[V]) exclude(value V) {
	agg.count--
	if agg.count <= 0 {
		agg.reset()
		return
	}

	// nothing live is below min, so "not greater" means equal
	if !agg.minDirty && !agg.constraint.Less(agg.min, value) {
		agg.minDirty = true
	}
	if !agg.maxDirty && !agg.constraint.Less(value, agg.max) {
		agg.maxDirty = true
	}
	if agg.adder != nil && !agg.sumDirty {
		if agg.subtractor != nil {
			agg.sum = agg.subtractor.Sub(agg.sum, value)
		} else {
			agg.sumDirty = true
		}
	}
}

func (agg *aggregate[V]) reset() {
	var empty V
	agg.count = 0
	agg.min, agg.max, agg.sum = empty, empty, empty
	agg.minDirty, agg.maxDirty, agg.sumDirty = false, false, false
}

func (agg *aggregate[V]) rebuild(items itemQueue[V]) {
	if !agg.minDirty && !agg.maxDirty && !agg.sumDirty {
		return
	}
	if agg.sumDirty && !agg.commutative {
		items = items.sorted()
	}
	for i, item := range items {
		value := item.value
		if i == 0 {
			if agg.minDirty {
				agg.min = value
			}
			if agg.maxDirty {
				agg.max = value
			}
			if agg.sumDirty {
				agg.sum = value
			}
			continue
		}
		if agg.minDirty && agg.constraint.Less(value, agg.min) {
			agg.min = value
		}
		if agg.maxDirty && agg.constraint.Less(agg.max, value) {
			agg.max = value
		}
		if agg.sumDirty {
			agg.sum = agg.adder.Add(agg.sum, value)
		}
	}
	agg.minDirty, agg.maxDirty, agg.sumDirty = false, false, false
}

func (agg *aggregate[V]) snapshot(items itemQueue[V]) Stats[V] {
	agg.rebuild(items)
	if agg.count == 0 {
		return Stats[V]{}
	}
	return Stats[V]{
		Len:    agg.count,
		min:    agg.min,
		max:    agg.max,
		sum:    agg.sum,
		summed: agg.adder != nil,
	}
}
