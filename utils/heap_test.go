package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHeapOrdersAscending(t *testing.T) {
	h := Heap[uint64]{}
	for _, v := range []uint64{9, 3, 7, 3, 1, 40, 0} {
		h.Push(v)
	}
	assert.Equal(t, 7, h.Len())
	got := make([]uint64, 0, h.Len())
	for h.Len() > 0 {
		got = append(got, h.Pop())
	}
	assert.Equal(t, []uint64{0, 1, 3, 3, 7, 9, 40}, got)
}

func TestHeapInterleaved(t *testing.T) {
	h := Heap[string]{}
	h.Push("delta")
	h.Push("alpha")
	assert.Equal(t, "alpha", h.Pop())
	h.Push("bravo")
	assert.Equal(t, "bravo", h.Pop())
	assert.Equal(t, "delta", h.Pop())
	assert.Equal(t, 0, h.Len())
}
