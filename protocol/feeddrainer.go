package protocol

import (
	"context"
	"io"
)

// Feeder hands out batches of records. Following io.Reader, a source
// may return its last records together with the terminal error, or
// return them first and the error on the next call. An empty batch
// with a nil error means nothing arrived in time.
type Feeder interface {
	Feed(ctx context.Context) (recs Records, err error)
}

type FeedCloser interface {
	Feeder
	io.Closer
}

// Drainer accepts batches of records.
type Drainer interface {
	Drain(ctx context.Context, recs Records) error
}

type DrainCloser interface {
	Drainer
	io.Closer
}

type FeedDrainCloser interface {
	Feeder
	Drainer
	io.Closer
}

// Pump relays batches from feeder to drainer until either side fails
// or the context ends. Records returned alongside a feed error still
// get drained.
func Pump(ctx context.Context, feeder Feeder, drainer Drainer) error {
	for {
		recs, ferr := feeder.Feed(ctx)
		if len(recs) > 0 {
			if derr := drainer.Drain(ctx, recs); derr != nil && ferr == nil {
				return derr
			}
		}
		if ferr != nil {
			return ferr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
}

// PumpThenClose pumps until an error, then closes both ends.
func PumpThenClose(ctx context.Context, feed FeedCloser, drain DrainCloser) error {
	err := Pump(ctx, feed, drain)
	_ = feed.Close()
	_ = drain.Close()
	return err
}
