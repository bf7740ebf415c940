package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHeaderForms(t *testing.T) {
	var buf []byte
	buf = Append(buf, 'A', []byte{'A'})
	buf = Append(buf, 'b', []byte{'B', 'B'})
	assert.Equal(t, []byte{'a', 1, 'A', '2', 'B', 'B'}, buf)

	long := Record('C', make([]byte, 300))
	assert.Equal(t, byte('C'), long[0])
	assert.Equal(t, 5+300, len(long))
	assert.Equal(t, byte(44), long[1]) // 300 little-endian
	assert.Equal(t, byte(1), long[2])
}

func TestTakeRoundTrip(t *testing.T) {
	buf := Join(
		Record('S', []byte("one")),
		Record('T', []byte("two")),
	)
	body, rest, err := Take('S', buf)
	assert.Nil(t, err)
	assert.Equal(t, "one", string(body))

	lit, body, rest, err := TakeAny(rest)
	assert.Nil(t, err)
	assert.Equal(t, byte('T'), lit)
	assert.Equal(t, "two", string(body))
	assert.Len(t, rest, 0)
}

func TestTakeTiny(t *testing.T) {
	rec := Record('x', []byte("12"))
	assert.Equal(t, "212", string(rec))

	// the tiny form drops the type, so any type matches
	body, _, err := Take('Q', rec)
	assert.Nil(t, err)
	assert.Equal(t, "12", string(body))

	lit, body, _, err := TakeAny(rec)
	assert.Nil(t, err)
	assert.Equal(t, byte('0'), lit)
	assert.Equal(t, "12", string(body))
}

func TestTakeErrors(t *testing.T) {
	rec := Record('A', make([]byte, 300))

	_, rest, err := Take('A', rec[:10])
	assert.ErrorIs(t, err, ErrIncomplete)
	assert.Equal(t, rec[:10], rest)

	_, _, err = Take('B', rec)
	assert.ErrorIs(t, err, ErrBadRecord)

	_, _, _, err = TakeAny([]byte{0x01, 0x02})
	assert.ErrorIs(t, err, ErrBadRecord)

	_, _, _, err = TakeAny(nil)
	assert.ErrorIs(t, err, ErrIncomplete)
}

func TestRecordsTotalLen(t *testing.T) {
	recs := Records{[]byte("aa"), []byte("bbb"), []byte("c")}
	assert.Equal(t, int64(6), recs.TotalLen())
}
