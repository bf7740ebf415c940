package utils

import (
	"context"
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFDQueue_DrainFeed(t *testing.T) {
	const N = 1 << 8
	const K = 1 << 3

	queue := NewFDQueue[[][]byte](1024, time.Minute, 8)

	for k := 0; k < K; k++ {
		go func(k int) {
			i := uint64(k) << 32
			for n := uint64(0); n < N; n++ {
				var b [8]byte
				binary.LittleEndian.PutUint64(b[:], i|n)
				err := queue.Drain(context.Background(), [][]byte{b[:]})
				assert.Nil(t, err)
			}
		}(k)
	}

	check := [K]int{}
	for i := uint64(0); i < N*K; {
		nums, err := queue.Feed(context.Background())
		assert.Nil(t, err)
		for _, num := range nums {
			assert.Equal(t, 8, len(num))
			j := binary.LittleEndian.Uint64(num)
			k := int(j >> 32)
			n := int(j & 0xffffffff)
			assert.Equal(t, check[k], n)
			check[k] = n + 1
			i++
		}
	}

	assert.Nil(t, queue.Close())
	err := queue.Drain(context.Background(), [][]byte{{'a'}})
	assert.Equal(t, ErrClosed, err)
	_, err2 := queue.Feed(context.Background())
	assert.Equal(t, ErrClosed, err2)
}

func TestFDQueue_Overflow(t *testing.T) {
	queue := NewFDQueue[[][]byte](4, 10*time.Millisecond, 0)
	err := queue.Drain(context.Background(), [][]byte{{'a', 'b', 'c'}})
	assert.Nil(t, err)
	// does not fit and nobody reads: the queue poisons itself
	err = queue.Drain(context.Background(), [][]byte{{'d', 'e'}})
	assert.ErrorIs(t, err, ErrOverflow)
	_, err = queue.Feed(context.Background())
	assert.ErrorIs(t, err, ErrOverflow)
}

func TestFDQueue_FeedTimeout(t *testing.T) {
	queue := NewFDQueue[[][]byte](64, 10*time.Millisecond, 0)
	recs, err := queue.Feed(context.Background())
	assert.Nil(t, err)
	assert.Len(t, recs, 0)
}

func TestFDQueue_Size(t *testing.T) {
	queue := NewFDQueue[[][]byte](64, time.Minute, 3)
	assert.Equal(t, 0, queue.Size())

	err := queue.Drain(context.Background(), [][]byte{{'a', 'b'}, {'c'}})
	assert.Nil(t, err)
	assert.Equal(t, 3, queue.Size())

	recs, err := queue.Feed(context.Background())
	assert.Nil(t, err)
	assert.Equal(t, 2, len(recs))
	assert.Equal(t, 0, queue.Size())

	assert.Nil(t, queue.Close())
	assert.Equal(t, 0, queue.Size())
}
