// Package archive persists committed history entries to pebble, one
// record per revision. It implements the session persistence hook;
// the in-memory revision window stays authoritative for undo/redo and
// rebasing, the archive is for replay and audit past that window.
package archive

import (
	"encoding/binary"
	"encoding/json"

	"github.com/cockroachdb/pebble"
	"github.com/drpcorg/decksync"
	"github.com/drpcorg/decksync/game"
	"github.com/pkg/errors"
)

var ErrNotArchived = errors.New("archive: revision not archived")

var writeOptions = &pebble.WriteOptions{Sync: false}

// Key layout: lit H, session id, NUL, big-endian revision. Revisions
// of one session iterate in order.
func hKey(session string, rev uint64) []byte {
	key := make([]byte, 0, 1+len(session)+1+8)
	key = append(key, 'H')
	key = append(key, session...)
	key = append(key, 0)
	key = binary.BigEndian.AppendUint64(key, rev)
	return key
}

func hKeyRev(key []byte) uint64 {
	return binary.BigEndian.Uint64(key[len(key)-8:])
}

// sessionBounds returns the half-open key range holding one session.
func sessionBounds(session string) (lo, hi []byte) {
	lo = hKey(session, 0)[:1+len(session)+1]
	hi = append(append([]byte{'H'}, session...), 1)
	return
}

// record is the stored form of a HistoryEntry. The seed entry of a
// lineage has no action, hence the pointer.
type record struct {
	Revision uint64       `json:"revision"`
	State    *game.State  `json:"state"`
	Action   *game.Action `json:"action,omitempty"`
}

type Store struct {
	db  *pebble.DB
	dir string
}

func Open(dir string) (*Store, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, errors.Wrap(err, "archive: open failed")
	}
	return &Store{db: db, dir: dir}, nil
}

func (s *Store) Dir() string { return s.dir }

// Database exposes the underlying pebble handle for stats and metrics.
func (s *Store) Database() *pebble.DB { return s.db }

func (s *Store) Put(session string, e decksync.HistoryEntry) error {
	rec := record{Revision: e.Revision, State: e.State}
	if e.Action.Type != "" {
		a := e.Action
		rec.Action = &a
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrap(err, "archive: encode failed")
	}
	return errors.Wrap(s.db.Set(hKey(session, e.Revision), raw, writeOptions), "archive: put failed")
}

func (s *Store) Get(session string, rev uint64) (decksync.HistoryEntry, error) {
	raw, closer, err := s.db.Get(hKey(session, rev))
	if err == pebble.ErrNotFound {
		return decksync.HistoryEntry{}, ErrNotArchived
	}
	if err != nil {
		return decksync.HistoryEntry{}, errors.Wrap(err, "archive: get failed")
	}
	defer closer.Close()
	return decodeEntry(raw)
}

// List returns every archived entry of the session, oldest first.
func (s *Store) List(session string) ([]decksync.HistoryEntry, error) {
	lo, hi := sessionBounds(session)
	it, err := s.db.NewIter(&pebble.IterOptions{LowerBound: lo, UpperBound: hi})
	if err != nil {
		return nil, errors.Wrap(err, "archive: iterator failed")
	}
	defer it.Close()
	var out []decksync.HistoryEntry
	for valid := it.First(); valid; valid = it.Next() {
		e, err := decodeEntry(it.Value())
		if err != nil {
			return nil, errors.Wrapf(err, "archive: revision %d", hKeyRev(it.Key()))
		}
		out = append(out, e)
	}
	return out, nil
}

func decodeEntry(raw []byte) (decksync.HistoryEntry, error) {
	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return decksync.HistoryEntry{}, errors.Wrap(err, "archive: decode failed")
	}
	e := decksync.HistoryEntry{Revision: rec.Revision, State: rec.State}
	if rec.Action != nil {
		e.Action = *rec.Action
	}
	return e, nil
}

func (s *Store) Close() error {
	return errors.Wrap(s.db.Close(), "archive: close failed")
}

// HookFor adapts the store into a session hook that persists every
// committed entry.
func HookFor(store *Store, session string) decksync.Hook {
	return func(e decksync.HistoryEntry) error {
		return store.Put(session, e)
	}
}
