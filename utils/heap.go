package utils

import "golang.org/x/exp/constraints"

// Heap is a binary min-heap over any ordered type. The zero value is
// an empty heap ready to use.
type Heap[T constraints.Ordered] struct {
	buf []T
}

func (h *Heap[T]) Len() int { return len(h.buf) }

// Push adds x in O(log n).
func (h *Heap[T]) Push(x T) {
	h.buf = append(h.buf, x)
	j := len(h.buf) - 1
	for j > 0 {
		i := (j - 1) / 2
		if h.buf[i] <= h.buf[j] {
			break
		}
		h.buf[i], h.buf[j] = h.buf[j], h.buf[i]
		j = i
	}
}

// Pop removes and returns the minimum in O(log n). The heap must not
// be empty.
func (h *Heap[T]) Pop() T {
	min := h.buf[0]
	n := len(h.buf) - 1
	h.buf[0] = h.buf[n]
	var zero T
	h.buf[n] = zero
	h.buf = h.buf[:n]
	h.sift(0)
	return min
}

func (h *Heap[T]) sift(i int) {
	n := len(h.buf)
	for {
		least := i
		if l := 2*i + 1; l < n && h.buf[l] < h.buf[least] {
			least = l
		}
		if r := 2*i + 2; r < n && h.buf[r] < h.buf[least] {
			least = r
		}
		if least == i {
			return
		}
		h.buf[i], h.buf[least] = h.buf[least], h.buf[i]
		i = least
	}
}
