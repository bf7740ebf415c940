package transform

// Tombstones tracks entities retired to terminal zones, keyed by
// entity id with the revision that retired them. Entries live for the
// whole session and are never pruned.
type Tombstones map[string]uint64

func NewTombstones() Tombstones {
	return make(Tombstones)
}

// Put records the retirement. The first retirement wins; re-burying an
// entity keeps its original revision.
func (t Tombstones) Put(id string, rev uint64) {
	if _, ok := t[id]; !ok {
		t[id] = rev
	}
}

func (t Tombstones) Get(id string) (rev uint64, ok bool) {
	rev, ok = t[id]
	return
}

func (t Tombstones) Has(id string) bool {
	_, ok := t[id]
	return ok
}

func (t Tombstones) Len() int {
	return len(t)
}
