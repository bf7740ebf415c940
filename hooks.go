package decksync

// Hook observes committed history entries, the persistence boundary
// of a session. Hooks run in registration order right after an entry
// lands; a failing hook is logged and skipped, it cannot veto the
// commit.
type Hook func(e HistoryEntry) error

func (s *Session) AddHook(hook Hook) {
	s.hlock.Lock()
	s.hooks = append(s.hooks, hook)
	s.hlock.Unlock()
}

func (s *Session) fireHooks(e HistoryEntry) {
	s.hlock.Lock()
	hooks := s.hooks
	s.hlock.Unlock()
	for _, hook := range hooks {
		if err := hook(e); err != nil {
			HookFailures.Inc()
			s.log.Warn("hook failed", "session", s.id, "rev", e.Revision, "err", err)
		}
	}
}
