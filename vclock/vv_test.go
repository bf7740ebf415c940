package vclock

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTick(t *testing.T) {
	vv := New()
	assert.Equal(t, uint64(1), vv.Tick("alice"))
	assert.Equal(t, uint64(2), vv.Tick("alice"))
	assert.Equal(t, uint64(1), vv.Tick("bob"))
	assert.Equal(t, uint64(2), vv.Get("alice"))
}

func TestMerge(t *testing.T) {
	a := VV{"alice": 3, "bob": 1}
	b := VV{"bob": 4, "carol": 2}
	a.Merge(b)
	assert.Equal(t, VV{"alice": 3, "bob": 4, "carol": 2}, a)
	// merge must not touch the argument
	assert.Equal(t, VV{"bob": 4, "carol": 2}, b)
}

func TestPut(t *testing.T) {
	vv := VV{"alice": 3}
	assert.False(t, vv.Put("alice", 2))
	assert.False(t, vv.Put("alice", 3))
	assert.True(t, vv.Put("alice", 4))
	assert.True(t, vv.Put("bob", 1))
}

func TestCompare(t *testing.T) {
	assert.Equal(t, Equal, VV{}.Compare(VV{}))
	assert.Equal(t, Equal, VV{"a": 1}.Compare(VV{"a": 1, "b": 0}))
	assert.Equal(t, After, VV{"a": 2}.Compare(VV{"a": 1}))
	assert.Equal(t, Before, VV{"a": 1}.Compare(VV{"a": 2}))
	assert.Equal(t, Before, VV{}.Compare(VV{"a": 1}))
	assert.Equal(t, Concurrent, VV{"a": 2, "b": 1}.Compare(VV{"a": 1, "b": 2}))
	assert.Equal(t, Concurrent, VV{"a": 1}.Compare(VV{"b": 1}))
}

func TestCompareAfterMerge(t *testing.T) {
	a := VV{"a": 1}
	b := VV{"b": 1}
	assert.Equal(t, Concurrent, a.Compare(b))
	a.Merge(b)
	a.Tick("a")
	assert.Equal(t, After, a.Compare(b))
	assert.Equal(t, Before, b.Compare(a))
}

func TestStringRoundTrip(t *testing.T) {
	vvs := []string{
		"",
		"alice:3",
		"alice:3,bob:17",
	}
	for _, str := range vvs {
		vv := VVFromString(str)
		assert.Equal(t, str, vv.String())
	}
}

func TestSeen(t *testing.T) {
	a := VV{"a": 3, "b": 2}
	assert.True(t, a.Seen(VV{"a": 3}))
	assert.True(t, a.Seen(VV{"a": 1, "b": 2}))
	assert.False(t, a.Seen(VV{"a": 4}))
	assert.False(t, a.Seen(VV{"c": 1}))
	assert.True(t, a.ProgressedOver(VV{"a": 2}))
	assert.False(t, VV{"a": 2}.ProgressedOver(a))
}
