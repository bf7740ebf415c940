package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"
)

// Envelope is one synchronization message: a full snapshot or a delta,
// an opaque JSON body framed in TLV.
//
// Wire form: one 'F' (full) or 'D' (delta) record whose body holds an
// 'S' record (session id), a 'T' record (send time, unix nanoseconds,
// little-endian) and a 'B' record (the body).
type Envelope struct {
	Session string
	Kind    EnvelopeKind
	SentAt  time.Time
	Body    []byte
}

type EnvelopeKind byte

const (
	EnvelopeFull  EnvelopeKind = 'F'
	EnvelopeDelta EnvelopeKind = 'D'
)

func (k EnvelopeKind) String() string {
	if k == EnvelopeDelta {
		return "delta"
	}
	return "full"
}

var ErrBadEnvelope = errors.New("bad envelope record")

// Record encodes the envelope as a single TLV record.
func (e Envelope) Record() ([]byte, error) {
	if e.Kind != EnvelopeFull && e.Kind != EnvelopeDelta {
		return nil, fmt.Errorf("%w: kind %q", ErrBadEnvelope, e.Kind)
	}
	if e.Session == "" {
		return nil, fmt.Errorf("%w: no session", ErrBadEnvelope)
	}
	var ts [8]byte
	binary.LittleEndian.PutUint64(ts[:], uint64(e.SentAt.UnixNano()))
	inner := Join(
		Record('S', []byte(e.Session)),
		Record('T', ts[:]),
		Record('B', e.Body),
	)
	return Record(byte(e.Kind), inner), nil
}

// TakeEnvelope parses one envelope off the front of data and returns
// the remainder, so a buffer of concatenated envelopes parses in a
// loop.
func TakeEnvelope(data []byte) (e Envelope, rest []byte, err error) {
	lit, body, rest, err := TakeAny(data)
	if err != nil {
		return Envelope{}, data, err
	}
	if lit != byte(EnvelopeFull) && lit != byte(EnvelopeDelta) {
		return Envelope{}, data, fmt.Errorf("%w: record %q", ErrBadEnvelope, lit)
	}
	e.Kind = EnvelopeKind(lit)

	session, after, err := Take('S', body)
	if err != nil || len(session) == 0 {
		return Envelope{}, data, fmt.Errorf("%w: no session", ErrBadEnvelope)
	}
	e.Session = string(session)

	ts, after, err := Take('T', after)
	if err != nil || len(ts) != 8 {
		return Envelope{}, data, fmt.Errorf("%w: no timestamp", ErrBadEnvelope)
	}
	e.SentAt = time.Unix(0, int64(binary.LittleEndian.Uint64(ts))).UTC()

	payload, after, err := Take('B', after)
	if err != nil {
		return Envelope{}, data, fmt.Errorf("%w: no body", ErrBadEnvelope)
	}
	if len(after) != 0 {
		return Envelope{}, data, fmt.Errorf("%w: %d trailing bytes", ErrBadEnvelope, len(after))
	}
	e.Body = payload
	return e, rest, nil
}
