package game

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/drpcorg/decksync/decksync_errors"
)

// Type is the closed action vocabulary. Anything else is rejected at
// the door.
type Type string

const (
	Draw          Type = "draw"
	Play          Type = "play"
	Tap           Type = "tap"
	Untap         Type = "untap"
	MoveZone      Type = "move_zone"
	ChangeLife    Type = "change_life"
	AddCounter    Type = "add_counter"
	RemoveCounter Type = "remove_counter"
	AdvancePhase  Type = "advance_phase"
	AddToStack    Type = "add_to_stack"
	ResolveStack  Type = "resolve_stack"
	Concede       Type = "concede"
	PassPriority  Type = "pass_priority"
)

// Payload is the typed body of an action, one concrete struct per
// action type. Refs lists the entity ids the payload touches, which
// drives both tombstone screening and same-entity conflict detection.
type Payload interface {
	Refs() []string
}

type DrawPayload struct {
	Player string `json:"player"`
}

func (p DrawPayload) Refs() []string { return []string{p.Player} }

type PlayPayload struct {
	Card string `json:"card"`
	From string `json:"from"`
	To   string `json:"to"`
}

func (p PlayPayload) Refs() []string { return []string{p.Card} }

type TapPayload struct {
	Card string `json:"card"`
}

func (p TapPayload) Refs() []string { return []string{p.Card} }

type UntapPayload struct {
	Card string `json:"card"`
}

func (p UntapPayload) Refs() []string { return []string{p.Card} }

type MoveZonePayload struct {
	Card string `json:"card"`
	From string `json:"from"`
	To   string `json:"to"`
}

func (p MoveZonePayload) Refs() []string { return []string{p.Card} }

type ChangeLifePayload struct {
	Player string `json:"player"`
	Delta  int    `json:"delta"`
}

func (p ChangeLifePayload) Refs() []string { return []string{p.Player} }

type AddCounterPayload struct {
	Target string `json:"target"` // card or player id
	Kind   string `json:"kind"`
	Count  int    `json:"count"`
}

func (p AddCounterPayload) Refs() []string { return []string{p.Target} }

type RemoveCounterPayload struct {
	Target string `json:"target"`
	Kind   string `json:"kind"`
	Count  int    `json:"count"`
}

func (p RemoveCounterPayload) Refs() []string { return []string{p.Target} }

type AdvancePhasePayload struct{}

func (p AdvancePhasePayload) Refs() []string { return nil }

type AddToStackPayload struct {
	Card string `json:"card"`
	From string `json:"from"`
}

func (p AddToStackPayload) Refs() []string { return []string{p.Card} }

type ResolveStackPayload struct {
	To string `json:"to"`
}

func (p ResolveStackPayload) Refs() []string { return nil }

type ConcedePayload struct{}

func (p ConcedePayload) Refs() []string { return nil }

type PassPriorityPayload struct{}

func (p PassPriorityPayload) Refs() []string { return nil }

// Action is one client-submitted mutation. BaseRevision names the
// snapshot the client saw when it decided to act; the gap between that
// and the current revision is what transformation folds over.
// SubmittedAt is advisory only, arrival order decides conflicts.
type Action struct {
	ID           string    `json:"id"`
	Type         Type      `json:"type"`
	Actor        string    `json:"actor"`
	BaseRevision uint64    `json:"baseRevision"`
	SubmittedAt  time.Time `json:"submittedAt"`
	Payload      Payload   `json:"payload,omitempty"`
}

// Refs is nil-payload safe.
func (a Action) Refs() []string {
	if a.Payload == nil {
		return nil
	}
	return a.Payload.Refs()
}

type actionShell struct {
	ID           string          `json:"id"`
	Type         Type            `json:"type"`
	Actor        string          `json:"actor"`
	BaseRevision uint64          `json:"baseRevision"`
	SubmittedAt  time.Time       `json:"submittedAt"`
	Payload      json.RawMessage `json:"payload,omitempty"`
}

func (a Action) MarshalJSON() ([]byte, error) {
	shell := actionShell{
		ID:           a.ID,
		Type:         a.Type,
		Actor:        a.Actor,
		BaseRevision: a.BaseRevision,
		SubmittedAt:  a.SubmittedAt,
	}
	if a.Payload != nil {
		raw, err := json.Marshal(a.Payload)
		if err != nil {
			return nil, err
		}
		shell.Payload = raw
	}
	return json.Marshal(shell)
}

func (a *Action) UnmarshalJSON(data []byte) error {
	var shell actionShell
	if err := json.Unmarshal(data, &shell); err != nil {
		return fmt.Errorf("%w: %s", decksync_errors.ErrValidation, err)
	}
	payload, err := decodePayload(shell.Type, shell.Payload)
	if err != nil {
		return err
	}
	a.ID = shell.ID
	a.Type = shell.Type
	a.Actor = shell.Actor
	a.BaseRevision = shell.BaseRevision
	a.SubmittedAt = shell.SubmittedAt
	a.Payload = payload
	return nil
}

func decodePayload(t Type, raw json.RawMessage) (Payload, error) {
	var p Payload
	switch t {
	case Draw:
		p = &DrawPayload{}
	case Play:
		p = &PlayPayload{}
	case Tap:
		p = &TapPayload{}
	case Untap:
		p = &UntapPayload{}
	case MoveZone:
		p = &MoveZonePayload{}
	case ChangeLife:
		p = &ChangeLifePayload{}
	case AddCounter:
		p = &AddCounterPayload{}
	case RemoveCounter:
		p = &RemoveCounterPayload{}
	case AdvancePhase:
		p = &AdvancePhasePayload{}
	case AddToStack:
		p = &AddToStackPayload{}
	case ResolveStack:
		p = &ResolveStackPayload{}
	case Concede:
		p = &ConcedePayload{}
	case PassPriority:
		p = &PassPriorityPayload{}
	default:
		return nil, fmt.Errorf("%w: unknown action type %q", decksync_errors.ErrValidation, t)
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, p); err != nil {
			return nil, fmt.Errorf("%w: %s", decksync_errors.ErrValidation, err)
		}
	}
	return deref(p), nil
}

// deref flattens the decode pointer back to the value form the rest of
// the code type-switches on.
func deref(p Payload) Payload {
	switch v := p.(type) {
	case *DrawPayload:
		return *v
	case *PlayPayload:
		return *v
	case *TapPayload:
		return *v
	case *UntapPayload:
		return *v
	case *MoveZonePayload:
		return *v
	case *ChangeLifePayload:
		return *v
	case *AddCounterPayload:
		return *v
	case *RemoveCounterPayload:
		return *v
	case *AddToStackPayload:
		return *v
	case *ResolveStackPayload:
		return *v
	case *AdvancePhasePayload:
		return *v
	case *ConcedePayload:
		return *v
	case *PassPriorityPayload:
		return *v
	default:
		return p
	}
}

// DecodeAction parses and structurally validates a wire action.
func DecodeAction(data []byte) (Action, error) {
	var a Action
	if err := json.Unmarshal(data, &a); err != nil {
		return Action{}, err
	}
	if err := a.Validate(); err != nil {
		return Action{}, err
	}
	return a, nil
}

// Elide demotes an action to pass_priority, keeping its identity and
// base revision. A demoted action still consumes a revision when
// applied, so every submission resolves to exactly one log entry.
func (a Action) Elide() Action {
	a.Type = PassPriority
	a.Payload = PassPriorityPayload{}
	return a
}
