package decksync

import (
	"github.com/drpcorg/decksync/game"
)

// HistoryEntry pins one committed revision: the snapshot at that
// revision and the action that produced it. The entry seeded by
// Initialize carries the zero Action.
type HistoryEntry struct {
	Revision uint64
	State    *game.State
	Action   game.Action
}

// ring is the fixed-capacity revision window. New entries land at the
// tail, the oldest one falls off once the window is full; eviction
// touches one slot only. Retained revisions are always contiguous.
type ring struct {
	buf  []HistoryEntry
	head int
	size int
}

func newRing(capacity int) *ring {
	return &ring{buf: make([]HistoryEntry, capacity)}
}

func (r *ring) len() int { return r.size }

// at returns the i-th oldest retained entry.
func (r *ring) at(i int) *HistoryEntry {
	return &r.buf[(r.head+i)%len(r.buf)]
}

func (r *ring) oldest() *HistoryEntry { return r.at(0) }
func (r *ring) newest() *HistoryEntry { return r.at(r.size - 1) }

// push appends an entry and reports whether the oldest one was
// evicted to make room.
func (r *ring) push(e HistoryEntry) bool {
	if r.size == len(r.buf) {
		r.buf[r.head] = e
		r.head = (r.head + 1) % len(r.buf)
		return true
	}
	r.buf[(r.head+r.size)%len(r.buf)] = e
	r.size++
	return false
}

// truncate drops entries from the tail so that only the n oldest
// remain. Dropped slots are zeroed so their snapshots can be
// collected.
func (r *ring) truncate(n int) {
	if n < 0 || n >= r.size {
		return
	}
	for i := n; i < r.size; i++ {
		r.buf[(r.head+i)%len(r.buf)] = HistoryEntry{}
	}
	r.size = n
}

// find locates the entry holding the given revision, nil if it was
// evicted or never committed.
func (r *ring) find(rev uint64) *HistoryEntry {
	if r.size == 0 {
		return nil
	}
	lo := r.oldest().Revision
	if rev < lo || rev > lo+uint64(r.size-1) {
		return nil
	}
	return r.at(int(rev - lo))
}
