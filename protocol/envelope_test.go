package protocol

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	sent := time.Unix(1700000000, 12345).UTC()
	envs := []Envelope{
		{Session: "match-1", Kind: EnvelopeFull, SentAt: sent, Body: []byte(`{"revision":4}`)},
		{Session: "match-1", Kind: EnvelopeDelta, SentAt: sent, Body: []byte(`{"ops":[]}`)},
	}

	var buf []byte
	for _, e := range envs {
		rec, err := e.Record()
		assert.Nil(t, err)
		buf = append(buf, rec...)
	}

	for _, want := range envs {
		var got Envelope
		var err error
		got, buf, err = TakeEnvelope(buf)
		assert.Nil(t, err)
		assert.Equal(t, want, got)
	}
	assert.Equal(t, 0, len(buf))
}

func TestEnvelopeLargeBody(t *testing.T) {
	body := make([]byte, 1<<16)
	for i := range body {
		body[i] = byte(i)
	}
	e := Envelope{Session: "m", Kind: EnvelopeFull, SentAt: time.Unix(0, 0).UTC(), Body: body}
	rec, err := e.Record()
	assert.Nil(t, err)

	got, rest, err := TakeEnvelope(rec)
	assert.Nil(t, err)
	assert.Equal(t, 0, len(rest))
	assert.Equal(t, body, got.Body)
}

func TestEnvelopeRejects(t *testing.T) {
	_, err := Envelope{Kind: 'X', Session: "m"}.Record()
	assert.ErrorIs(t, err, ErrBadEnvelope)

	_, err = Envelope{Kind: EnvelopeFull}.Record()
	assert.ErrorIs(t, err, ErrBadEnvelope)

	// a well-formed TLV record of the wrong type
	rec := Record('M', []byte("hello"))
	_, _, err = TakeEnvelope(rec)
	assert.ErrorIs(t, err, ErrBadEnvelope)

	// truncation breaks the parse
	good, err := (Envelope{Session: "m", Kind: EnvelopeFull, SentAt: time.Now(), Body: []byte("x")}).Record()
	assert.Nil(t, err)
	_, _, err = TakeEnvelope(good[:len(good)-1])
	assert.NotNil(t, err)
}

func TestEnvelopeKindString(t *testing.T) {
	assert.Equal(t, "full", EnvelopeFull.String())
	assert.Equal(t, "delta", EnvelopeDelta.String())
}
