package game

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/drpcorg/decksync/decksync_errors"
	"github.com/drpcorg/decksync/vclock"
)

// Card is a game object tracked by identity for its whole lifetime,
// no matter which zone it currently sits in.
type Card struct {
	ID       string         `json:"id"`
	Name     string         `json:"name,omitempty"`
	Owner    string         `json:"owner,omitempty"`
	Tapped   bool           `json:"tapped,omitempty"`
	Counters map[string]int `json:"counters,omitempty"`
}

func (c Card) Clone() Card {
	if c.Counters != nil {
		counters := make(map[string]int, len(c.Counters))
		for kind, count := range c.Counters {
			counters[kind] = count
		}
		c.Counters = counters
	}
	return c
}

// Zone is an ordered pile of cards. For the library the top is the
// first card, for the stack the top is the last one.
type Zone struct {
	ID    string `json:"id"`
	Cards []Card `json:"cards,omitempty"`
}

func (z *Zone) Clone() *Zone {
	cards := make([]Card, len(z.Cards))
	for i, c := range z.Cards {
		cards[i] = c.Clone()
	}
	return &Zone{ID: z.ID, Cards: cards}
}

func (z *Zone) indexOf(cardID string) int {
	for i, c := range z.Cards {
		if c.ID == cardID {
			return i
		}
	}
	return -1
}

func (z *Zone) removeAt(i int) Card {
	c := z.Cards[i]
	z.Cards = append(z.Cards[:i], z.Cards[i+1:]...)
	return c
}

type Player struct {
	ID       string         `json:"id"`
	Name     string         `json:"name,omitempty"`
	Life     int            `json:"life"`
	Counters map[string]int `json:"counters,omitempty"`
	Conceded bool           `json:"conceded,omitempty"`
}

func (p *Player) Clone() *Player {
	ret := *p
	if p.Counters != nil {
		counters := make(map[string]int, len(p.Counters))
		for kind, count := range p.Counters {
			counters[kind] = count
		}
		ret.Counters = counters
	}
	return &ret
}

// Well-known zone kinds. Per-player zones are addressed as
// "kind:player", shared zones by the bare kind.
const (
	ZoneLibrary     = "library"
	ZoneHand        = "hand"
	ZoneBattlefield = "battlefield"
	ZoneGraveyard   = "graveyard"
	ZoneExile       = "exile"
	ZoneStack       = "stack"
)

// PlayerZone builds the id of a per-player zone, e.g. "hand:alice".
func PlayerZone(kind, player string) string {
	return kind + ":" + player
}

// ZoneKind strips the owner suffix off a zone id.
func ZoneKind(zoneID string) string {
	kind, _, _ := strings.Cut(zoneID, ":")
	return kind
}

// Phases is the fixed turn structure. advance_phase walks it in order;
// wrapping past the last phase starts the next turn.
var Phases = []string{"untap", "upkeep", "draw", "main", "combat", "second_main", "end"}

// State is one full snapshot of a match. Replicas exchange whole
// snapshots or deltas between them, never partial field updates.
//
// Revision, Clock, Checksum and Priority are bookkeeping: they ride
// along with the snapshot but stay out of the content digest.
type State struct {
	Revision uint64             `json:"revision"`
	Checksum string             `json:"checksum,omitempty"`
	Clock    vclock.VV          `json:"clock"`
	Players  map[string]*Player `json:"players"`
	Zones    map[string]*Zone   `json:"zones"`
	Phase    string             `json:"phase"`
	Turn     uint64             `json:"turn"`
	Active   string             `json:"active,omitempty"`
	Priority string             `json:"priority,omitempty"`
}

func NewState() *State {
	return &State{
		Clock:   vclock.New(),
		Players: make(map[string]*Player),
		Zones:   make(map[string]*Zone),
		Phase:   Phases[0],
		Turn:    1,
	}
}

func (s *State) Clone() *State {
	next := &State{
		Revision: s.Revision,
		Checksum: s.Checksum,
		Clock:    s.Clock.Clone(),
		Players:  make(map[string]*Player, len(s.Players)),
		Zones:    make(map[string]*Zone, len(s.Zones)),
		Phase:    s.Phase,
		Turn:     s.Turn,
		Active:   s.Active,
		Priority: s.Priority,
	}
	for id, p := range s.Players {
		next.Players[id] = p.Clone()
	}
	for id, z := range s.Zones {
		next.Zones[id] = z.Clone()
	}
	return next
}

// Equal reports whether two snapshots carry the same content, bookkeeping
// fields included. Comparison runs over the canonical encoding.
func (s *State) Equal(o *State) bool {
	if s == nil || o == nil {
		return s == o
	}
	a, err := json.Marshal(s)
	if err != nil {
		return false
	}
	b, err := json.Marshal(o)
	if err != nil {
		return false
	}
	return bytes.Equal(a, b)
}

// Zone returns the zone or nil.
func (s *State) Zone(id string) *Zone {
	return s.Zones[id]
}

// EnsureZone returns the zone, creating an empty one on first use.
func (s *State) EnsureZone(id string) *Zone {
	z := s.Zones[id]
	if z == nil {
		z = &Zone{ID: id}
		s.Zones[id] = z
	}
	return z
}

// FindCard locates a card by id. A card lives in at most one zone.
func (s *State) FindCard(cardID string) (zoneID string, idx int, ok bool) {
	for id, z := range s.Zones {
		if i := z.indexOf(cardID); i >= 0 {
			return id, i, true
		}
	}
	return "", -1, false
}

// players in stable order, conceded ones skipped
func (s *State) turnOrder() []string {
	ids := make([]string, 0, len(s.Players))
	for id, p := range s.Players {
		if !p.Conceded {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}

// nextPlayer picks the player after cur in turn order, wrapping around.
func (s *State) nextPlayer(cur string) string {
	order := s.turnOrder()
	if len(order) == 0 {
		return ""
	}
	for i, id := range order {
		if id == cur {
			return order[(i+1)%len(order)]
		}
	}
	return order[0]
}

func (s *State) Encode() ([]byte, error) {
	return json.Marshal(s)
}

func DecodeState(data []byte) (*State, error) {
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: %s", decksync_errors.ErrValidation, err)
	}
	s.normalize()
	return &s, nil
}

func (s *State) normalize() {
	if s.Clock == nil {
		s.Clock = vclock.New()
	}
	if s.Players == nil {
		s.Players = make(map[string]*Player)
	}
	if s.Zones == nil {
		s.Zones = make(map[string]*Zone)
	}
}

// CheckShape verifies the structural invariants a snapshot must hold:
// map keys matching embedded ids and every card living in exactly one
// zone.
func (s *State) CheckShape() error {
	for id, p := range s.Players {
		if p == nil || p.ID != id {
			return fmt.Errorf("%w: player key %q does not match its id", decksync_errors.ErrValidation, id)
		}
	}
	seen := map[string]string{}
	for id, z := range s.Zones {
		if z == nil || z.ID != id {
			return fmt.Errorf("%w: zone key %q does not match its id", decksync_errors.ErrValidation, id)
		}
		for _, c := range z.Cards {
			if c.ID == "" {
				return fmt.Errorf("%w: card without id in zone %q", decksync_errors.ErrValidation, id)
			}
			if prev, dup := seen[c.ID]; dup {
				return fmt.Errorf("%w: card %q present in zones %q and %q", decksync_errors.ErrValidation, c.ID, prev, id)
			}
			seen[c.ID] = id
		}
	}
	return nil
}
