package utils

import (
	"context"
	"errors"
	"sync"
	"time"
)

// FDQueue is a bounded feed/drain queue of record batches. Drain
// appends whole records while the buffered payload stays under the
// byte limit, Feed takes them out in arrival order; either side blocks
// up to the time limit. A Drain that times out poisons the queue, so a
// stuck consumer shows up as ErrOverflow on both ends.
type FDQueue[T ~[][]byte] struct {
	limit     int           // buffered payload bytes at most
	timelimit time.Duration // longest block on either side
	batch     int           // Feed stops past this many bytes, 0 takes all

	mu         sync.Mutex
	buf        T
	size       int
	bell       chan struct{} // closed and replaced on every state change
	closed     bool
	overflowed bool
}

var ErrClosed = errors.New("decksync: feed/drain queue is closed")
var ErrOverflow = errors.New("decksync: feed/drain queue is overflowed")

func NewFDQueue[T ~[][]byte](limit int, timelimit time.Duration, batch int) *FDQueue[T] {
	return &FDQueue[T]{
		limit:     limit,
		timelimit: timelimit,
		batch:     batch,
		bell:      make(chan struct{}),
	}
}

// ring wakes every waiter. Callers hold mu.
func (q *FDQueue[T]) ring() {
	close(q.bell)
	q.bell = make(chan struct{})
}

// gate reports whether the queue still moves records. Callers hold mu.
func (q *FDQueue[T]) gate() error {
	switch {
	case q.closed:
		return ErrClosed
	case q.overflowed:
		return ErrOverflow
	}
	return nil
}

func (q *FDQueue[T]) Close() error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		q.buf, q.size = nil, 0
		q.ring()
	}
	q.mu.Unlock()
	return nil
}

// Size reports the buffered payload bytes.
func (q *FDQueue[T]) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.size
}

// Drain appends recs, blocking while they do not fit. Hitting the time
// limit poisons the queue and returns ErrOverflow. A canceled ctx
// abandons the leftover records without error.
func (q *FDQueue[T]) Drain(ctx context.Context, recs T) error {
	deadline := time.NewTimer(q.timelimit)
	defer deadline.Stop()

	q.mu.Lock()
	for {
		if err := q.gate(); err != nil {
			q.mu.Unlock()
			return err
		}
		fit, bytes := 0, 0
		for _, rec := range recs {
			if q.size+bytes+len(rec) > q.limit {
				break
			}
			fit++
			bytes += len(rec)
		}
		if fit > 0 {
			q.buf = append(q.buf, recs[:fit]...)
			q.size += bytes
			recs = recs[fit:]
			q.ring()
		}
		if len(recs) == 0 {
			q.mu.Unlock()
			return nil
		}
		bell := q.bell
		q.mu.Unlock()

		select {
		case <-bell:
			q.mu.Lock()
		case <-ctx.Done():
			return nil
		case <-deadline.C:
			q.mu.Lock()
			q.overflowed = true
			q.ring()
			q.mu.Unlock()
			return ErrOverflow
		}
	}
}

// Feed blocks until records arrive, then takes them in arrival order,
// stopping early once the batch size is out. Hitting the time limit or
// a canceled ctx returns an empty batch with no error.
func (q *FDQueue[T]) Feed(ctx context.Context) (T, error) {
	deadline := time.NewTimer(q.timelimit)
	defer deadline.Stop()

	q.mu.Lock()
	for {
		if err := q.gate(); err != nil {
			q.mu.Unlock()
			return nil, err
		}
		if len(q.buf) > 0 {
			take, bytes := 0, 0
			for _, rec := range q.buf {
				take++
				bytes += len(rec)
				if q.batch > 0 && bytes >= q.batch {
					break
				}
			}
			recs := append(make(T, 0, take), q.buf[:take]...)
			q.buf = q.buf[take:]
			q.size -= bytes
			q.ring()
			q.mu.Unlock()
			return recs, nil
		}
		bell := q.bell
		q.mu.Unlock()

		select {
		case <-bell:
			q.mu.Lock()
		case <-ctx.Done():
			return nil, nil
		case <-deadline.C:
			return nil, nil
		}
	}
}
