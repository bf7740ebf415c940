package game

import (
	"encoding/json"
	"fmt"

	"github.com/cespare/xxhash"
	"github.com/drpcorg/decksync/decksync_errors"
)

// content is the checksummed part of a snapshot. Bookkeeping fields
// (revision, clock, checksum itself, priority) stay out, so an action
// that only consumes a revision keeps the digest stable.
type content struct {
	Players map[string]*Player `json:"players"`
	Zones   map[string]*Zone   `json:"zones"`
	Phase   string             `json:"phase"`
	Turn    uint64             `json:"turn"`
	Active  string             `json:"active,omitempty"`
}

// ComputeChecksum digests the state content. encoding/json writes map
// keys in sorted order, so equal content always digests equally.
func (s *State) ComputeChecksum() string {
	raw, _ := json.Marshal(content{
		Players: s.Players,
		Zones:   s.Zones,
		Phase:   s.Phase,
		Turn:    s.Turn,
		Active:  s.Active,
	})
	return fmt.Sprintf("%016x", xxhash.Sum64(raw))
}

// Refresh recomputes and stores the content checksum.
func (s *State) Refresh() {
	s.Checksum = s.ComputeChecksum()
}

// VerifyChecksum recomputes the digest and compares it to the stored
// one. A mismatch means the snapshot diverged somewhere in flight.
func (s *State) VerifyChecksum() error {
	want := s.ComputeChecksum()
	if s.Checksum != want {
		return fmt.Errorf("%w: have %s, computed %s", decksync_errors.ErrIntegrity, s.Checksum, want)
	}
	return nil
}
