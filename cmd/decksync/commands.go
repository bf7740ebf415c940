package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/drpcorg/decksync"
	"github.com/drpcorg/decksync/archive"
	"github.com/drpcorg/decksync/delta"
	"github.com/drpcorg/decksync/game"
	"github.com/drpcorg/decksync/protocol"
	"github.com/google/uuid"
)

var ErrNoSession = errors.New("no session open, try: new")

var HelpNew = errors.New("new [{...seed snapshot json...}]")
var HelpOpen = errors.New("open <session id or unique prefix>")
var HelpAs = errors.New("as <player>")
var HelpSubmit = errors.New("submit <type> [{...payload json...}] [@base], e.g. submit change_life {\"player\":\"bob\",\"delta\":-3} @0")
var HelpDelta = errors.New("delta <base revision> [target revision]")
var HelpSync = errors.New("sync <peer revision>")

func (repl *REPL) CommandHelp(arg string) error {
	fmt.Print(`new [seed]        start a session (demo table when no seed json given)
open <id>         switch to a session
sessions          list open sessions
drop [id]         close and forget a session
clear             reset the current session lineage

as <player>       act as this player
submit <type> [payload] [@base]
state [rev]       print a snapshot
undo [n] / redo [n]
history [since]   actions after a revision

delta <a> [b]     patch between two retained revisions
sync <rev>        envelope a peer at that revision would receive
verify [snapshot] digest-check a snapshot against this replica
load [id]         audit the archived lineage
stats             session, archive and engine counters
exit
`)
	return nil
}

func (repl *REPL) current() (*decksync.Session, error) {
	if repl.session == nil {
		return nil, ErrNoSession
	}
	return repl.session, nil
}

// demoTable is the seed used when new is called without a snapshot.
func demoTable() *game.State {
	st := game.NewState()
	for _, id := range []string{"alice", "bob"} {
		st.Players[id] = &game.Player{ID: id, Life: 20}
		lib := st.EnsureZone(game.PlayerZone(game.ZoneLibrary, id))
		for i := 1; i <= 5; i++ {
			lib.Cards = append(lib.Cards, game.Card{
				ID:    fmt.Sprintf("%s-c%d", id, i),
				Name:  fmt.Sprintf("Card %d", i),
				Owner: id,
			})
		}
		st.EnsureZone(game.PlayerZone(game.ZoneHand, id))
		st.EnsureZone(game.PlayerZone(game.ZoneGraveyard, id))
	}
	st.EnsureZone(game.ZoneBattlefield)
	st.EnsureZone(game.ZoneStack)
	st.Active = "alice"
	st.Priority = "alice"
	return st
}

func (repl *REPL) CommandNew(arg string) error {
	seed := demoTable()
	if arg != "" {
		var err error
		seed, err = game.DecodeState([]byte(arg))
		if err != nil {
			return err
		}
	}
	s := repl.reg.Open()
	s.AddHook(archive.HookFor(repl.store, s.ID()))
	st, err := s.Initialize(seed)
	if err != nil {
		repl.reg.Drop(s.ID())
		return err
	}
	repl.session = s
	repl.actor = st.Active
	fmt.Printf("session %s at revision %d, acting as %q\n", s.ID(), st.Revision, repl.actor)
	return nil
}

func (repl *REPL) CommandOpen(arg string) error {
	if arg == "" {
		return HelpOpen
	}
	s, ok := repl.reg.Get(arg)
	if !ok {
		var hits []*decksync.Session
		repl.reg.Range(func(c *decksync.Session) bool {
			if strings.HasPrefix(c.ID(), arg) {
				hits = append(hits, c)
			}
			return true
		})
		if len(hits) != 1 {
			return fmt.Errorf("%d sessions match %q", len(hits), arg)
		}
		s = hits[0]
	}
	repl.session = s
	if st := s.Current(); st != nil {
		repl.actor = st.Active
	}
	fmt.Printf("session %s at revision %d\n", s.ID(), s.Revision())
	return nil
}

func (repl *REPL) CommandSessions(arg string) error {
	repl.reg.Range(func(s *decksync.Session) bool {
		mark := " "
		if s == repl.session {
			mark = "*"
		}
		fmt.Printf("%s %s revision %d\n", mark, s.ID(), s.Revision())
		return true
	})
	fmt.Printf("%d open\n", repl.reg.Len())
	return nil
}

func (repl *REPL) CommandDrop(arg string) error {
	id := arg
	if id == "" {
		s, err := repl.current()
		if err != nil {
			return err
		}
		id = s.ID()
	}
	repl.reg.Drop(id)
	if repl.session != nil && repl.session.ID() == id {
		repl.session = nil
	}
	fmt.Printf("session %s dropped\n", id)
	return nil
}

func (repl *REPL) CommandClear(arg string) error {
	s, err := repl.current()
	if err != nil {
		return err
	}
	s.Clear()
	fmt.Println("session reset, lineage forgotten")
	return nil
}

func (repl *REPL) CommandAs(arg string) error {
	if arg == "" {
		return HelpAs
	}
	s, err := repl.current()
	if err != nil {
		return err
	}
	if st := s.Current(); st != nil && st.Players[arg] == nil {
		return fmt.Errorf("no player %q at this table", arg)
	}
	repl.actor = arg
	fmt.Printf("acting as %q\n", arg)
	return nil
}

func (repl *REPL) CommandSubmit(arg string) error {
	s, err := repl.current()
	if err != nil {
		return err
	}
	verb, rest, _ := strings.Cut(arg, " ")
	if verb == "" {
		return HelpSubmit
	}
	rest = strings.TrimSpace(rest)

	base := s.Revision()
	if i := strings.LastIndex(rest, "@"); i >= 0 && (i == 0 || rest[i-1] == ' ') {
		n, perr := strconv.ParseUint(strings.TrimSpace(rest[i+1:]), 10, 64)
		if perr != nil {
			return HelpSubmit
		}
		base = n
		rest = strings.TrimSpace(rest[:i])
	}

	shell := map[string]any{
		"id":           uuid.NewString(),
		"type":         verb,
		"actor":        repl.actor,
		"baseRevision": base,
		"submittedAt":  time.Now(),
	}
	if rest != "" {
		shell["payload"] = json.RawMessage(rest)
	}
	raw, err := json.Marshal(shell)
	if err != nil {
		return err
	}
	var a game.Action
	if err = json.Unmarshal(raw, &a); err != nil {
		return err
	}

	st, outcome, err := s.Apply(a)
	if err != nil {
		return err
	}
	fmt.Printf("%s at revision %d, checksum %s\n", outcome, st.Revision, st.Checksum)
	return nil
}

func (repl *REPL) CommandState(arg string) error {
	s, err := repl.current()
	if err != nil {
		return err
	}
	st := s.Current()
	if arg != "" {
		rev, perr := strconv.ParseUint(arg, 10, 64)
		if perr != nil {
			return perr
		}
		var ok bool
		st, ok = s.GetStateAt(rev)
		if !ok {
			return fmt.Errorf("revision %d is not retained", rev)
		}
	}
	if st == nil {
		return ErrNoSession
	}
	pretty, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	fmt.Printf("%s\n", pretty)
	return nil
}

func (repl *REPL) CommandUndo(arg string) error {
	return repl.step(arg, true)
}

func (repl *REPL) CommandRedo(arg string) error {
	return repl.step(arg, false)
}

func (repl *REPL) step(arg string, back bool) error {
	s, err := repl.current()
	if err != nil {
		return err
	}
	steps := 1
	if arg != "" {
		steps, err = strconv.Atoi(arg)
		if err != nil {
			return err
		}
	}
	var st *game.State
	var ok bool
	if back {
		st, ok = s.Undo(steps)
	} else {
		st, ok = s.Redo(steps)
	}
	if !ok {
		fmt.Println("nothing there")
		return nil
	}
	fmt.Printf("at revision %d, checksum %s\n", st.Revision, st.Checksum)
	return nil
}

func (repl *REPL) CommandHistory(arg string) error {
	s, err := repl.current()
	if err != nil {
		return err
	}
	since := uint64(0)
	if arg != "" {
		since, err = strconv.ParseUint(arg, 10, 64)
		if err != nil {
			return err
		}
	}
	acts, err := s.ActionsSince(since)
	if err != nil {
		return err
	}
	for i, a := range acts {
		payload := ""
		if a.Payload != nil {
			if raw, merr := json.Marshal(a.Payload); merr == nil {
				payload = string(raw)
			}
		}
		fmt.Printf("r%-4d %-14s %-8s %s\n", since+1+uint64(i), a.Type, a.Actor, payload)
	}
	fmt.Printf("%d actions\n", len(acts))
	return nil
}

func (repl *REPL) CommandDelta(arg string) error {
	s, err := repl.current()
	if err != nil {
		return err
	}
	fields := strings.Fields(arg)
	if len(fields) < 1 {
		return HelpDelta
	}
	base, err := strconv.ParseUint(fields[0], 10, 64)
	if err != nil {
		return err
	}
	target := s.Revision()
	if len(fields) > 1 {
		target, err = strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			return err
		}
	}
	bst, ok := s.GetStateAt(base)
	if !ok {
		return fmt.Errorf("revision %d is not retained", base)
	}
	tst, ok := s.GetStateAt(target)
	if !ok {
		return fmt.Errorf("revision %d is not retained", target)
	}
	codec := delta.NewCodec(repl.cfg.Threshold)
	d, err := codec.Create(bst, tst)
	if err != nil {
		return err
	}
	pretty, err := json.MarshalIndent(json.RawMessage(d.Ops), "", "  ")
	if err != nil {
		return err
	}
	fmt.Printf("%s\nratio %.3f against threshold %.3f\n", pretty, codec.Ratio(tst, d), codec.Threshold)
	return nil
}

func (repl *REPL) CommandSync(arg string) error {
	s, err := repl.current()
	if err != nil {
		return err
	}
	if arg == "" {
		return HelpSync
	}
	rev, err := strconv.ParseUint(arg, 10, 64)
	if err != nil {
		return err
	}
	env, err := s.SyncSince(rev)
	if err != nil {
		return err
	}
	wire, err := env.Record()
	if err != nil {
		return err
	}
	fmt.Printf("%s envelope, %d body bytes, %d on the wire\n", env.Kind, len(env.Body), len(wire))
	switch env.Kind {
	case protocol.EnvelopeDelta:
		var d delta.Delta
		if err = json.Unmarshal(env.Body, &d); err != nil {
			return err
		}
		var ops []json.RawMessage
		_ = json.Unmarshal(d.Ops, &ops)
		fmt.Printf("revisions %d -> %d, %d ops\n", d.BaseRevision, d.TargetRevision, len(ops))
	case protocol.EnvelopeFull:
		st, derr := game.DecodeState(env.Body)
		if derr != nil {
			return derr
		}
		fmt.Printf("snapshot at revision %d, checksum %s\n", st.Revision, st.Checksum)
	}
	return nil
}

func (repl *REPL) CommandVerify(arg string) error {
	s, err := repl.current()
	if err != nil {
		return err
	}
	var remote *game.State
	if arg != "" {
		remote, err = game.DecodeState([]byte(arg))
	} else {
		// round-trip our own snapshot through the wire form
		st := s.Current()
		if st == nil {
			return ErrNoSession
		}
		var raw []byte
		raw, err = st.Encode()
		if err == nil {
			remote, err = game.DecodeState(raw)
		}
	}
	if err != nil {
		return err
	}
	if err = s.VerifyRemote(remote); err != nil {
		return err
	}
	fmt.Printf("digest match at revision %d\n", remote.Revision)
	return nil
}

func (repl *REPL) CommandLoad(arg string) error {
	id := arg
	if id == "" {
		s, err := repl.current()
		if err != nil {
			return err
		}
		id = s.ID()
	}
	entries, err := repl.store.List(id)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Printf("nothing archived for %s\n", id)
		return nil
	}
	for _, e := range entries {
		verdict := "ok"
		if e.State.VerifyChecksum() != nil {
			verdict = "CORRUPT"
		}
		desc := "seed"
		if e.Action.Type != "" {
			desc = fmt.Sprintf("%s by %s", e.Action.Type, e.Action.Actor)
		}
		fmt.Printf("r%-4d %-28s %s %s\n", e.Revision, desc, e.State.Checksum, verdict)
	}
	fmt.Printf("%d revisions archived\n", len(entries))
	return nil
}

func (repl *REPL) CommandStats(arg string) error {
	if s := repl.session; s != nil {
		if oldest, newest, ok := s.Window(); ok {
			fmt.Printf("session %s revision %d, retained %d..%d\n",
				s.ID(), s.Revision(), oldest, newest)
		}
		if avg := s.AvgRecordSize(); avg > 0 {
			fmt.Printf("published records average %.0f bytes\n", avg)
		}
	}
	if m := repl.store.Database().Metrics(); m != nil {
		fmt.Printf("archive %s, %d bytes on disk\n", repl.cfg.ArchiveDir, m.DiskSpaceUsage())
	}

	families, err := repl.gauges.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			labels := ""
			for _, lp := range m.GetLabel() {
				if labels != "" {
					labels += ","
				}
				labels += lp.GetName() + "=" + lp.GetValue()
			}
			if labels != "" {
				labels = "{" + labels + "}"
			}
			switch {
			case m.GetCounter() != nil:
				if v := m.GetCounter().GetValue(); v != 0 {
					fmt.Printf("%s%s %g\n", mf.GetName(), labels, v)
				}
			case m.GetGauge() != nil:
				if v := m.GetGauge().GetValue(); v != 0 {
					fmt.Printf("%s%s %g\n", mf.GetName(), labels, v)
				}
			case m.GetHistogram() != nil:
				h := m.GetHistogram()
				if h.GetSampleCount() != 0 {
					fmt.Printf("%s%s count %d sum %g\n",
						mf.GetName(), labels, h.GetSampleCount(), h.GetSampleSum())
				}
			}
		}
	}
	return nil
}
