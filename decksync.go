package decksync

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/drpcorg/decksync/decksync_errors"
	"github.com/drpcorg/decksync/delta"
	"github.com/drpcorg/decksync/game"
	"github.com/drpcorg/decksync/protocol"
	"github.com/drpcorg/decksync/transform"
	"github.com/drpcorg/decksync/utils"
	"github.com/google/uuid"
)

type Options struct {
	// HistorySize bounds the revision window kept for rebasing,
	// undo/redo and delta sync.
	HistorySize int
	// TerminalZones are zone kinds that tombstone a card on entry.
	TerminalZones []string
	// CompressionThreshold is the delta-to-full size ratio above
	// which sync falls back to full snapshots. In (0, 1].
	CompressionThreshold float64
	DeltaCacheSize       int
	OutboxLimit          int
	OutboxTimeLimit      time.Duration
	Logger               utils.Logger
	Hooks                []Hook
}

func (o *Options) SetDefaults() {
	if o.HistorySize <= 0 {
		o.HistorySize = 100
	}
	if len(o.TerminalZones) == 0 {
		o.TerminalZones = []string{game.ZoneGraveyard, game.ZoneExile}
	}
	if o.CompressionThreshold <= 0 || o.CompressionThreshold > 1 {
		o.CompressionThreshold = delta.DefaultThreshold
	}
	if o.DeltaCacheSize <= 0 {
		o.DeltaCacheSize = 128
	}
	if o.OutboxLimit <= 0 {
		o.OutboxLimit = 1000
	}
	if o.OutboxTimeLimit <= 0 {
		o.OutboxTimeLimit = time.Second
	}
	if o.Logger == nil {
		o.Logger = utils.NewDefaultLogger(slog.LevelInfo)
	}
}

// Session is the authority over one match lineage: it folds incoming
// actions over the revisions they missed, applies them, and keeps the
// bounded history window that rebasing, undo/redo and delta sync run
// against. All mutation goes through one mutex; snapshots handed out
// are immutable and must not be modified by callers.
type Session struct {
	id  string
	log utils.Logger

	lock   sync.Mutex
	hist   *ring
	cursor int
	init   bool
	closed atomic.Bool
	tombs  transform.Tombstones

	engine *transform.Engine
	codec  *delta.Codec
	cache  *delta.Cache

	hooks []Hook
	hlock sync.Mutex

	// per-subscriber envelope queues, see sync.go
	outq    map[string]*utils.FDQueue[protocol.Records]
	outlock sync.Mutex
	recSize *utils.AvgVal

	opts Options
}

func New(opts Options) *Session {
	opts.SetDefaults()
	cache, _ := delta.NewCache(opts.DeltaCacheSize)
	return &Session{
		id:      uuid.NewString(),
		log:     opts.Logger,
		hist:    newRing(opts.HistorySize),
		tombs:   transform.NewTombstones(),
		engine:  transform.New(),
		codec:   delta.NewCodec(opts.CompressionThreshold),
		cache:   cache,
		hooks:   append([]Hook(nil), opts.Hooks...),
		outq:    make(map[string]*utils.FDQueue[protocol.Records]),
		recSize: &utils.AvgVal{},
		opts:    opts,
	}
}

func (s *Session) ID() string { return s.id }

// cur returns the entry at the undo/redo cursor. Callers hold the lock.
func (s *Session) cur() *HistoryEntry {
	return s.hist.at(s.cursor)
}

// Initialize seeds the lineage with revision 0. The seed is cloned;
// a second call fails until Clear.
func (s *Session) Initialize(seed *game.State) (*game.State, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.closed.Load() {
		return nil, decksync_errors.ErrClosed
	}
	if s.init {
		return nil, decksync_errors.ErrAlreadyInitialized
	}
	if seed == nil {
		return nil, fmt.Errorf("%w: nil initial state", decksync_errors.ErrValidation)
	}
	if err := seed.CheckShape(); err != nil {
		return nil, err
	}
	st := seed.Clone()
	st.Revision = 0
	st.Refresh()
	entry := HistoryEntry{Revision: 0, State: st}
	s.hist.push(entry)
	s.cursor = 0
	s.init = true
	s.log.Info("session initialized", "session", s.id, "players", len(st.Players), "checksum", st.Checksum)
	s.fireHooks(entry)
	s.publish(nil, st)
	return st, nil
}

// Apply folds one client action into the lineage. A stale action is
// rebased over everything committed after its base revision; the
// transformed action then replays over the current snapshot. Exactly
// one revision is consumed per accepted action, elided ones included.
func (s *Session) Apply(a game.Action) (*game.State, transform.Outcome, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.closed.Load() {
		return nil, 0, decksync_errors.ErrClosed
	}
	if !s.init {
		return nil, 0, decksync_errors.ErrNotInitialized
	}
	if err := a.Validate(); err != nil {
		return s.reject(a, err)
	}
	cur := s.cur()
	if a.BaseRevision > cur.Revision {
		return s.reject(a, fmt.Errorf("%w: base revision %d is ahead of %d",
			decksync_errors.ErrValidation, a.BaseRevision, cur.Revision))
	}
	applied, err := s.actionsSince(a.BaseRevision, cur.Revision)
	if err != nil {
		return s.reject(a, err)
	}
	out, outcome, err := s.engine.Transform(a, applied, s.tombs)
	if err != nil {
		return s.reject(a, err)
	}
	next, err := game.Apply(cur.State, out)
	if err != nil {
		return s.reject(a, err)
	}
	next.Revision = cur.Revision + 1
	next.Clock.Tick(out.Actor)
	next.Refresh()

	prev := cur.State
	s.hist.truncate(s.cursor + 1)
	entry := HistoryEntry{Revision: next.Revision, State: next, Action: out}
	if s.hist.push(entry) {
		EvictedTotal.Inc()
	}
	s.cursor = s.hist.len() - 1
	s.bury(prev, out, next.Revision)
	s.fireHooks(entry)
	s.publish(prev, next)
	AppliedTotal.WithLabelValues(string(out.Type), outcome.String()).Inc()
	s.log.Debug("action applied", "session", s.id, "action", a.ID,
		"type", out.Type, "outcome", outcome.String(), "rev", next.Revision)
	return next, outcome, nil
}

func (s *Session) reject(a game.Action, err error) (*game.State, transform.Outcome, error) {
	RejectedTotal.WithLabelValues(string(a.Type), errReason(err)).Inc()
	s.log.Debug("action rejected", "session", s.id, "action", a.ID, "type", a.Type, "err", err)
	return nil, 0, err
}

// actionsSince collects the actions that produced revisions
// (since, upto]. Callers hold the lock.
func (s *Session) actionsSince(since, upto uint64) ([]game.Action, error) {
	if oldest := s.hist.oldest().Revision; since+1 < oldest {
		return nil, fmt.Errorf("%w: base %d, oldest retained action is for revision %d",
			decksync_errors.ErrHistoryExpired, since, oldest)
	}
	var acts []game.Action
	for rev := since + 1; rev <= upto; rev++ {
		acts = append(acts, s.hist.find(rev).Action)
	}
	return acts, nil
}

// bury tombstones the card an action just landed in a terminal zone.
func (s *Session) bury(prev *game.State, a game.Action, rev uint64) {
	var card, to string
	switch p := a.Payload.(type) {
	case game.PlayPayload:
		card, to = p.Card, p.To
	case game.MoveZonePayload:
		card, to = p.Card, p.To
	case game.ResolveStackPayload:
		// the resolved card was on top of the stack before the apply
		if z := prev.Zone(game.ZoneStack); z != nil && len(z.Cards) > 0 {
			card = z.Cards[len(z.Cards)-1].ID
		}
		to = p.To
	default:
		return
	}
	if card == "" || !s.terminal(to) {
		return
	}
	s.tombs.Put(card, rev)
	s.log.Debug("card tombstoned", "session", s.id, "card", card, "zone", to, "rev", rev)
}

func (s *Session) terminal(zoneID string) bool {
	kind := game.ZoneKind(zoneID)
	for _, t := range s.opts.TerminalZones {
		if kind == t {
			return true
		}
	}
	return false
}

// Current returns the snapshot at the undo/redo cursor, nil before
// Initialize.
func (s *Session) Current() *game.State {
	s.lock.Lock()
	defer s.lock.Unlock()
	if !s.init {
		return nil
	}
	return s.cur().State
}

// Revision returns the revision at the cursor, 0 before Initialize.
func (s *Session) Revision() uint64 {
	s.lock.Lock()
	defer s.lock.Unlock()
	if !s.init {
		return 0
	}
	return s.cur().Revision
}

// Window reports the span of retained revisions. Redone-away entries
// past the cursor still count until the next Apply drops them.
func (s *Session) Window() (oldest, newest uint64, ok bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if !s.init || s.hist.len() == 0 {
		return 0, 0, false
	}
	return s.hist.oldest().Revision, s.hist.newest().Revision, true
}

// GetStateAt returns the retained snapshot for the revision, or false
// if it was evicted or never committed.
func (s *Session) GetStateAt(rev uint64) (*game.State, bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if !s.init {
		return nil, false
	}
	e := s.hist.find(rev)
	if e == nil {
		return nil, false
	}
	return e.State, true
}

// ActionsSince returns the actions committed after the given revision,
// oldest first.
func (s *Session) ActionsSince(rev uint64) ([]game.Action, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if !s.init {
		return nil, decksync_errors.ErrNotInitialized
	}
	cur := s.cur()
	if rev > cur.Revision {
		return nil, fmt.Errorf("%w: revision %d is ahead of %d",
			decksync_errors.ErrValidation, rev, cur.Revision)
	}
	return s.actionsSince(rev, cur.Revision)
}

// Undo moves the cursor back over retained history. When fewer than
// steps revisions are retained behind the cursor it stays put and
// reports false; running out of history is not an error.
func (s *Session) Undo(steps int) (*game.State, bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if !s.init {
		return nil, false
	}
	if steps <= 0 || steps > s.cursor {
		return s.cur().State, false
	}
	s.cursor -= steps
	s.log.Debug("undo", "session", s.id, "steps", steps, "rev", s.cur().Revision)
	return s.cur().State, true
}

// Redo moves the cursor forward over the tail kept by Undo. The tail
// is discarded by the next Apply.
func (s *Session) Redo(steps int) (*game.State, bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if !s.init {
		return nil, false
	}
	if steps <= 0 || s.cursor+steps > s.hist.len()-1 {
		return s.cur().State, false
	}
	s.cursor += steps
	s.log.Debug("redo", "session", s.id, "steps", steps, "rev", s.cur().Revision)
	return s.cur().State, true
}

// VerifyRemote checks a snapshot received from elsewhere: shape first,
// then the content digest. An integrity failure means the peer must
// full-resync.
func (s *Session) VerifyRemote(remote *game.State) error {
	if remote == nil {
		return fmt.Errorf("%w: nil state", decksync_errors.ErrValidation)
	}
	if err := remote.CheckShape(); err != nil {
		return err
	}
	return remote.VerifyChecksum()
}

// Tombstoned reports whether the entity is buried in this lineage.
func (s *Session) Tombstoned(id string) bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.tombs.Has(id)
}

// Clear resets the session to uninitialized. History, tombstones and
// cached deltas go; subscribers stay and will see the next lineage.
func (s *Session) Clear() {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.hist = newRing(s.opts.HistorySize)
	s.cursor = 0
	s.init = false
	s.tombs = transform.NewTombstones()
	s.cache.Purge()
	s.log.Info("session cleared", "session", s.id)
}

// Close shuts the session down and closes all subscriber queues.
func (s *Session) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return decksync_errors.ErrClosed
	}
	s.outlock.Lock()
	for name, q := range s.outq {
		_ = q.Close()
		delete(s.outq, name)
	}
	s.outlock.Unlock()
	s.log.Info("session closed", "session", s.id)
	return nil
}
