package game

import (
	"testing"

	"github.com/drpcorg/decksync/decksync_errors"
	"github.com/stretchr/testify/assert"
)

func testState() *State {
	s := NewState()
	s.Players["alice"] = &Player{ID: "alice", Life: 20}
	s.Players["bob"] = &Player{ID: "bob", Life: 20}
	s.Active = "alice"
	s.Zones["library:alice"] = &Zone{ID: "library:alice", Cards: []Card{
		{ID: "a1", Owner: "alice"},
		{ID: "a2", Owner: "alice"},
	}}
	s.Zones["hand:alice"] = &Zone{ID: "hand:alice", Cards: []Card{
		{ID: "a3", Owner: "alice"},
	}}
	s.Zones["battlefield"] = &Zone{ID: "battlefield", Cards: []Card{
		{ID: "b1", Owner: "bob"},
	}}
	s.Zones["stack"] = &Zone{ID: "stack"}
	s.Refresh()
	return s
}

func TestCloneIsDeep(t *testing.T) {
	s := testState()
	c := s.Clone()
	c.Players["alice"].Life = 1
	c.Zones["battlefield"].Cards[0].Tapped = true
	c.Clock.Tick("alice")

	assert.Equal(t, 20, s.Players["alice"].Life)
	assert.False(t, s.Zones["battlefield"].Cards[0].Tapped)
	assert.Equal(t, uint64(0), s.Clock.Get("alice"))
}

func TestEqual(t *testing.T) {
	s := testState()
	c := s.Clone()
	assert.True(t, s.Equal(c))

	c.Players["bob"].Life = 19
	assert.False(t, s.Equal(c))

	// bookkeeping counts too, unlike the checksum
	c = s.Clone()
	c.Revision = 9
	assert.False(t, s.Equal(c))

	assert.False(t, s.Equal(nil))
	var nils *State
	assert.True(t, nils.Equal(nil))
}

func TestChecksumCoversContentOnly(t *testing.T) {
	s := testState()
	sum := s.ComputeChecksum()

	s.Revision = 42
	s.Clock.Tick("alice")
	s.Priority = "bob"
	assert.Equal(t, sum, s.ComputeChecksum())

	s.Players["alice"].Life = 19
	assert.NotEqual(t, sum, s.ComputeChecksum())
}

func TestChecksumDeterministic(t *testing.T) {
	a := testState()
	b := testState()
	assert.Equal(t, a.ComputeChecksum(), b.ComputeChecksum())
}

func TestVerifyChecksum(t *testing.T) {
	s := testState()
	assert.Nil(t, s.VerifyChecksum())

	s.Players["bob"].Life = 3
	assert.ErrorIs(t, s.VerifyChecksum(), decksync_errors.ErrIntegrity)

	s.Refresh()
	assert.Nil(t, s.VerifyChecksum())
}

func TestEncodeDecode(t *testing.T) {
	s := testState()
	s.Revision = 7
	s.Clock.Tick("alice")
	raw, err := s.Encode()
	assert.Nil(t, err)

	back, err := DecodeState(raw)
	assert.Nil(t, err)
	assert.Equal(t, s.Revision, back.Revision)
	assert.Equal(t, s.Clock, back.Clock)
	assert.Equal(t, s.ComputeChecksum(), back.ComputeChecksum())
	assert.Nil(t, back.VerifyChecksum())
}

func TestDecodeNormalizes(t *testing.T) {
	s, err := DecodeState([]byte(`{"revision":0,"phase":"untap","turn":1}`))
	assert.Nil(t, err)
	assert.NotNil(t, s.Clock)
	assert.NotNil(t, s.Players)
	assert.NotNil(t, s.Zones)

	_, err = DecodeState([]byte(`{broken`))
	assert.ErrorIs(t, err, decksync_errors.ErrValidation)
}

func TestCheckShape(t *testing.T) {
	s := testState()
	assert.Nil(t, s.CheckShape())

	dup := testState()
	dup.Zones["hand:alice"].Cards = append(dup.Zones["hand:alice"].Cards, Card{ID: "b1"})
	assert.ErrorIs(t, dup.CheckShape(), decksync_errors.ErrValidation)

	bad := testState()
	bad.Players["carol"] = &Player{ID: "dave"}
	assert.ErrorIs(t, bad.CheckShape(), decksync_errors.ErrValidation)
}

func TestZoneHelpers(t *testing.T) {
	assert.Equal(t, "hand:alice", PlayerZone(ZoneHand, "alice"))
	assert.Equal(t, "hand", ZoneKind("hand:alice"))
	assert.Equal(t, "battlefield", ZoneKind("battlefield"))
}
