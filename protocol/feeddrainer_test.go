package protocol

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

// chunkSource feeds one batch per call, the last one arriving together
// with io.EOF.
type chunkSource struct {
	batches []Records
	closed  bool
}

func (c *chunkSource) Feed(context.Context) (Records, error) {
	if len(c.batches) == 0 {
		return nil, io.EOF
	}
	next := c.batches[0]
	c.batches = c.batches[1:]
	if len(c.batches) == 0 {
		return next, io.EOF
	}
	return next, nil
}

func (c *chunkSource) Close() error {
	c.closed = true
	return nil
}

type sink struct {
	got    Records
	closed bool
}

func (s *sink) Drain(_ context.Context, recs Records) error {
	s.got = append(s.got, recs...)
	return nil
}

func (s *sink) Close() error {
	s.closed = true
	return nil
}

func TestPumpDrainsFinalBatch(t *testing.T) {
	src := &chunkSource{batches: []Records{
		{[]byte("a"), []byte("b")},
		{[]byte("c")},
	}}
	dst := &sink{}
	err := Pump(context.Background(), src, dst)
	assert.Equal(t, io.EOF, err)
	assert.Equal(t, Records{[]byte("a"), []byte("b"), []byte("c")}, dst.got)
}

func TestPumpThenCloseClosesBothEnds(t *testing.T) {
	src := &chunkSource{batches: []Records{{[]byte("x")}}}
	dst := &sink{}
	err := PumpThenClose(context.Background(), src, dst)
	assert.Equal(t, io.EOF, err)
	assert.True(t, src.closed)
	assert.True(t, dst.closed)
	assert.Equal(t, Records{[]byte("x")}, dst.got)
}

func TestPumpStopsOnContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	src := &chunkSource{batches: []Records{{[]byte("x")}, {[]byte("y")}, {[]byte("z")}}}
	dst := &sink{}
	err := Pump(ctx, src, dst)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, Records{[]byte("x")}, dst.got)
}
