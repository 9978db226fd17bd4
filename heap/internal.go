package heap

import (
	"fmt"
	"sort"
)

// Interface is the storage a heap operates on. The element at index 0 is
// the minimum as long as elements only go in and out through Push and Pop
// of this package. The storage's own Push appends at Len() and its Pop
// removes the element at Len()-1.
type Interface[VALUE any] interface {
	sort.Interface
	Push(x VALUE)
	Pop() (VALUE, error)
}

// Push adds x and restores the heap order. O(log n).
func Push[VALUE any](heap Interface[VALUE], x VALUE) {
	heap.Push(x)
	heapifyUp(heap, heap.Len()-1)
}

// Pop removes and returns the minimum element. O(log n).
func Pop[VALUE any](heap Interface[VALUE]) (VALUE, error) {
	n := heap.Len() - 1

	if n < 0 {
		var empty VALUE
		return empty, fmt.Errorf("pop a empty heap")
	}

	heap.Swap(0, n)
	heapifyDown(heap, 0, n)
	return heap.Pop()
}

func heapifyUp[VALUE any](heap Interface[VALUE], i int) {
	for {
		parent := (i - 1) / 2
		if parent == i || !heap.Less(i, parent) {
			break
		}

		heap.Swap(parent, i)
		i = parent
	}
}

func heapifyDown[VALUE any](heap Interface[VALUE], i, n int) {
	for {
		left := 2*i + 1
		if left >= n || left < 0 { // left < 0 after int overflow
			break
		}

		minimum := left
		if right := left + 1; right < n && heap.Less(right, left) {
			minimum = right
		}

		if !heap.Less(minimum, i) {
			break
		}

		heap.Swap(i, minimum)
		i = minimum
	}
}
