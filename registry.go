package decksync

import (
	"context"

	"github.com/drpcorg/decksync/protocol"
	"github.com/puzpuzpuz/xsync/v3"
)

// Registry hosts the live sessions of one process. Constructing and
// tearing down lineages goes through it; everything per-match goes
// through the Session itself.
type Registry struct {
	sessions *xsync.MapOf[string, *Session]
	opts     Options
}

func NewRegistry(opts Options) *Registry {
	opts.SetDefaults()
	return &Registry{
		sessions: xsync.NewMapOf[string, *Session](),
		opts:     opts,
	}
}

// Open creates a fresh session and registers it under its id.
func (r *Registry) Open() *Session {
	s := New(r.opts)
	r.sessions.Store(s.id, s)
	LiveSessions.Inc()
	return s
}

func (r *Registry) Get(id string) (*Session, bool) {
	return r.sessions.Load(id)
}

// Drop closes the session and forgets it.
func (r *Registry) Drop(id string) {
	if s, ok := r.sessions.LoadAndDelete(id); ok {
		_ = s.Close()
		LiveSessions.Dec()
	}
}

func (r *Registry) Len() int {
	return r.sessions.Size()
}

func (r *Registry) Range(f func(s *Session) bool) {
	r.sessions.Range(func(_ string, s *Session) bool {
		return f(s)
	})
}

// Broadcast relays records to the subscribers of one hosted session.
func (r *Registry) Broadcast(ctx context.Context, session string, records protocol.Records, except string) {
	if s, ok := r.sessions.Load(session); ok {
		s.Broadcast(ctx, records, except)
	}
}

// Close drops every hosted session.
func (r *Registry) Close() {
	r.sessions.Range(func(id string, s *Session) bool {
		_ = s.Close()
		LiveSessions.Dec()
		r.sessions.Delete(id)
		return true
	})
}
