package decksync

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/drpcorg/decksync/decksync_errors"
	"github.com/drpcorg/decksync/delta"
	"github.com/drpcorg/decksync/game"
	"github.com/drpcorg/decksync/protocol"
	"github.com/drpcorg/decksync/utils"
)

// SyncSince packages the catch-up for a peer that last saw the given
// revision: a delta when the peer's base snapshot is still retained
// and the patch is small enough, the full current snapshot otherwise.
// Deltas are memoized per (base, target) pair.
func (s *Session) SyncSince(peerRev uint64) (protocol.Envelope, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.closed.Load() {
		return protocol.Envelope{}, decksync_errors.ErrClosed
	}
	if !s.init {
		return protocol.Envelope{}, decksync_errors.ErrNotInitialized
	}
	cur := s.cur()
	if peerRev > cur.Revision {
		return protocol.Envelope{}, fmt.Errorf("%w: peer revision %d is ahead of %d",
			decksync_errors.ErrValidation, peerRev, cur.Revision)
	}
	base := s.hist.find(peerRev)
	if base == nil {
		s.log.Debug("sync: base evicted, full resync", "session", s.id, "peer_rev", peerRev)
		return s.fullEnvelope(cur.State)
	}
	d, err := s.deltaBetween(base.State, cur.State)
	if err != nil {
		return protocol.Envelope{}, err
	}
	DeltaRatio.Observe(s.codec.Ratio(cur.State, d))
	if !s.codec.Prefer(cur.State, d) {
		s.log.Debug("sync: delta over threshold, full resync",
			"session", s.id, "peer_rev", peerRev, "rev", cur.Revision)
		return s.fullEnvelope(cur.State)
	}
	return s.deltaEnvelope(d)
}

// deltaBetween creates or recalls the patch base→target. Callers hold
// the lock.
func (s *Session) deltaBetween(base, target *game.State) (delta.Delta, error) {
	key := delta.Key{Session: s.id, Base: base.Revision, Target: target.Revision}
	if d, ok := s.cache.Get(key); ok {
		return d, nil
	}
	d, err := s.codec.Create(base, target)
	if err != nil {
		return delta.Delta{}, err
	}
	s.cache.Put(key, d)
	return d, nil
}

func (s *Session) fullEnvelope(st *game.State) (protocol.Envelope, error) {
	body, err := st.Encode()
	if err != nil {
		return protocol.Envelope{}, err
	}
	SyncEnvelopes.WithLabelValues(protocol.EnvelopeFull.String()).Inc()
	return protocol.Envelope{
		Session: s.id,
		Kind:    protocol.EnvelopeFull,
		SentAt:  time.Now(),
		Body:    body,
	}, nil
}

func (s *Session) deltaEnvelope(d delta.Delta) (protocol.Envelope, error) {
	body, err := json.Marshal(d)
	if err != nil {
		return protocol.Envelope{}, err
	}
	SyncEnvelopes.WithLabelValues(protocol.EnvelopeDelta.String()).Inc()
	return protocol.Envelope{
		Session: s.id,
		Kind:    protocol.EnvelopeDelta,
		SentAt:  time.Now(),
		Body:    body,
	}, nil
}

// AddOutbox registers a live subscriber and returns the feed side of
// its queue. A second subscriber under the same name displaces the
// first.
func (s *Session) AddOutbox(name string) protocol.FeedCloser {
	queue := utils.NewFDQueue[protocol.Records](s.opts.OutboxLimit, s.opts.OutboxTimeLimit, 0)
	s.outlock.Lock()
	q := s.outq[name]
	s.outq[name] = queue
	s.outlock.Unlock()
	if q != nil {
		s.log.Warn("closing the old outbox", "session", s.id, "name", name)
		_ = q.Close()
	}
	return queue
}

func (s *Session) RemoveOutbox(name string) error {
	s.outlock.Lock()
	q := s.outq[name]
	delete(s.outq, name)
	s.outlock.Unlock()
	if q != nil {
		_ = q.Close()
	}
	return nil
}

// Broadcast pushes records to every subscriber except the named one.
// A subscriber whose queue errors (closed, overflowed) is dropped.
func (s *Session) Broadcast(ctx context.Context, records protocol.Records, except string) {
	s.outlock.Lock()
	for name, q := range s.outq {
		if name == except {
			continue
		}
		if err := q.Drain(ctx, records); err != nil {
			s.log.Warn("dropping outbox", "session", s.id, "name", name, "err", err)
			_ = q.Close()
			delete(s.outq, name)
		}
	}
	s.outlock.Unlock()
}

// AvgRecordSize reports the mean size in bytes of the records published
// to subscribers over the session's lifetime.
func (s *Session) AvgRecordSize() float64 {
	return s.recSize.Val()
}

// publish pushes the committed revision to live subscribers: a delta
// against the previous revision when one exists and wins on size, the
// full snapshot otherwise. Callers hold the session lock; with no
// subscribers this is free.
func (s *Session) publish(prev, next *game.State) {
	s.outlock.Lock()
	idle := len(s.outq) == 0
	s.outlock.Unlock()
	if idle {
		return
	}
	var env protocol.Envelope
	var err error
	if prev != nil {
		var d delta.Delta
		if d, err = s.deltaBetween(prev, next); err == nil && s.codec.Prefer(next, d) {
			env, err = s.deltaEnvelope(d)
		} else if err == nil {
			env, err = s.fullEnvelope(next)
		}
	} else {
		env, err = s.fullEnvelope(next)
	}
	if err != nil {
		s.log.Error("publish: envelope failed", "session", s.id, "rev", next.Revision, "err", err)
		return
	}
	rec, err := env.Record()
	if err != nil {
		s.log.Error("publish: bad envelope", "session", s.id, "rev", next.Revision, "err", err)
		return
	}
	s.recSize.Add(float64(len(rec)))
	s.Broadcast(context.Background(), protocol.Records{rec}, "")
}
