package transform

import (
	"fmt"

	"github.com/drpcorg/decksync/decksync_errors"
	"github.com/drpcorg/decksync/game"
)

// Class of interaction between an incoming action and an already
// applied one.
type Class int

const (
	Independent Class = iota
	FirstWins
	Commutative
	Sequential
)

func (c Class) String() string {
	switch c {
	case FirstWins:
		return "first_wins"
	case Commutative:
		return "commutative"
	case Sequential:
		return "sequential"
	default:
		return "independent"
	}
}

// Outcome of folding an incoming action over the applied suffix.
type Outcome int

const (
	Passed Outcome = iota // applies as submitted
	Elided                // demoted to pass_priority by a first-wins rule
)

func (o Outcome) String() string {
	if o == Elided {
		return "elided"
	}
	return "passed"
}

// rules maps (incoming type, applied type) pairs to their interaction
// class. Pairs that only conflict when they touch the same entity are
// screened by a shared-ref check on top of this table; missing pairs
// are independent.
var rules = map[[2]game.Type]Class{
	{game.Tap, game.Tap}:     FirstWins,
	{game.Tap, game.Untap}:   FirstWins,
	{game.Untap, game.Tap}:   FirstWins,
	{game.Untap, game.Untap}: FirstWins,

	{game.MoveZone, game.MoveZone}: FirstWins,
	{game.Play, game.Play}:         FirstWins,
	{game.Play, game.MoveZone}:     FirstWins,
	{game.MoveZone, game.Play}:     FirstWins,
	{game.Draw, game.Draw}:         FirstWins,

	{game.ChangeLife, game.ChangeLife}:       Commutative,
	{game.AddCounter, game.AddCounter}:       Commutative,
	{game.AddCounter, game.RemoveCounter}:    Commutative,
	{game.RemoveCounter, game.AddCounter}:    Commutative,
	{game.RemoveCounter, game.RemoveCounter}: Commutative,
}

func sequential(t game.Type) bool {
	return t == game.AdvancePhase || t == game.ResolveStack
}

func exempt(t game.Type) bool {
	return t == game.PassPriority || t == game.Concede
}

func sharesRef(a, b game.Action) bool {
	refs := a.Refs()
	if len(refs) == 0 {
		return false
	}
	set := make(map[string]struct{}, len(refs))
	for _, r := range refs {
		set[r] = struct{}{}
	}
	for _, r := range b.Refs() {
		if _, ok := set[r]; ok {
			return true
		}
	}
	return false
}

// Classify names the interaction of an incoming action with one
// applied earlier.
func Classify(incoming, applied game.Action) Class {
	if sequential(incoming.Type) && sequential(applied.Type) {
		return Sequential
	}
	class, ok := rules[[2]game.Type{incoming.Type, applied.Type}]
	if !ok {
		return Independent
	}
	if !sharesRef(incoming, applied) {
		return Independent
	}
	return class
}

// Engine folds incoming actions over the applied suffix of a log. It
// keeps no state of its own; the log and the tombstone set come from
// the caller, so identical inputs always yield identical results.
type Engine struct{}

func New() *Engine {
	return &Engine{}
}

// Transform screens the incoming action against the tombstone set,
// then folds it over every action applied since its base revision, in
// log order.
//
// A first-wins hit demotes the action to pass_priority, so it still
// consumes exactly one revision. A pair of strictly ordered actions
// (phase advance, stack resolution) submitted concurrently cannot be
// reconciled and is rejected; the client must rebase and resubmit.
func (e *Engine) Transform(incoming game.Action, applied []game.Action, tombs Tombstones) (game.Action, Outcome, error) {
	if !exempt(incoming.Type) {
		for _, ref := range incoming.Refs() {
			if rev, dead := tombs.Get(ref); dead {
				return game.Action{}, Passed, fmt.Errorf("%w: %q since revision %d",
					decksync_errors.ErrTombstoned, ref, rev)
			}
		}
	}
	out := incoming
	for _, prior := range applied {
		switch Classify(out, prior) {
		case Independent, Commutative:
			// both effects stand
		case FirstWins:
			return out.Elide(), Elided, nil
		case Sequential:
			return game.Action{}, Passed, fmt.Errorf("%w: %s against applied %s",
				decksync_errors.ErrSequentialConflict, out.Type, prior.Type)
		}
	}
	return out, Passed, nil
}
