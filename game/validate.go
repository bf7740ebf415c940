package game

import (
	"fmt"

	"github.com/drpcorg/decksync/decksync_errors"
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", decksync_errors.ErrValidation, fmt.Sprintf(format, args...))
}

// Validate checks an action structurally: identity fields present and
// the payload shaped right for its type. Whether the action makes
// sense against the current board is decided later, at apply time.
func (a Action) Validate() error {
	if a.ID == "" {
		return invalid("action without id")
	}
	if a.Actor == "" {
		return invalid("action %s without actor", a.ID)
	}
	switch p := a.Payload.(type) {
	case DrawPayload:
		if a.Type != Draw {
			return mismatch(a)
		}
		if p.Player == "" {
			return invalid("draw without player")
		}
	case PlayPayload:
		if a.Type != Play {
			return mismatch(a)
		}
		if p.Card == "" || p.From == "" || p.To == "" {
			return invalid("play needs card, from and to")
		}
	case TapPayload:
		if a.Type != Tap {
			return mismatch(a)
		}
		if p.Card == "" {
			return invalid("tap without card")
		}
	case UntapPayload:
		if a.Type != Untap {
			return mismatch(a)
		}
		if p.Card == "" {
			return invalid("untap without card")
		}
	case MoveZonePayload:
		if a.Type != MoveZone {
			return mismatch(a)
		}
		if p.Card == "" || p.From == "" || p.To == "" {
			return invalid("move_zone needs card, from and to")
		}
		if p.From == p.To {
			return invalid("move_zone from %q to itself", p.From)
		}
	case ChangeLifePayload:
		if a.Type != ChangeLife {
			return mismatch(a)
		}
		if p.Player == "" {
			return invalid("change_life without player")
		}
	case AddCounterPayload:
		if a.Type != AddCounter {
			return mismatch(a)
		}
		if p.Target == "" || p.Kind == "" {
			return invalid("add_counter needs target and kind")
		}
		if p.Count <= 0 {
			return invalid("add_counter count must be positive")
		}
	case RemoveCounterPayload:
		if a.Type != RemoveCounter {
			return mismatch(a)
		}
		if p.Target == "" || p.Kind == "" {
			return invalid("remove_counter needs target and kind")
		}
		if p.Count <= 0 {
			return invalid("remove_counter count must be positive")
		}
	case AdvancePhasePayload:
		if a.Type != AdvancePhase {
			return mismatch(a)
		}
	case AddToStackPayload:
		if a.Type != AddToStack {
			return mismatch(a)
		}
		if p.Card == "" || p.From == "" {
			return invalid("add_to_stack needs card and from")
		}
	case ResolveStackPayload:
		if a.Type != ResolveStack {
			return mismatch(a)
		}
		if p.To == "" {
			return invalid("resolve_stack without destination")
		}
	case ConcedePayload:
		if a.Type != Concede {
			return mismatch(a)
		}
	case PassPriorityPayload:
		if a.Type != PassPriority {
			return mismatch(a)
		}
	case nil:
		return invalid("action %s of type %s without payload", a.ID, a.Type)
	default:
		return invalid("unknown payload kind %T", a.Payload)
	}
	return nil
}

func mismatch(a Action) error {
	return invalid("action type %s does not match payload %T", a.Type, a.Payload)
}
