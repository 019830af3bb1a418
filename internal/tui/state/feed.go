package state

import (
	"context"
	"sync/atomic"

	"github.com/cristianoliveira/ancs-intray/internal/ancs"
)

// Feed is a Sink handing resolved notifications to the console. Emit never blocks the
// engine: when the console falls behind, notifications are counted and dropped.
type Feed struct {
	ch      chan ancs.Resolved
	dropped atomic.Int64
}

// NewFeed creates a feed buffering up to size notifications.
func NewFeed(size int) *Feed {
	if size <= 0 {
		size = 64
	}
	return &Feed{ch: make(chan ancs.Resolved, size)}
}

// Emit implements ancs.Sink.
func (f *Feed) Emit(_ context.Context, n ancs.Resolved) error {
	select {
	case f.ch <- n:
	default:
		f.dropped.Add(1)
	}
	return nil
}

// C returns the receive side of the feed.
func (f *Feed) C() <-chan ancs.Resolved {
	return f.ch
}

// Dropped returns how many notifications did not fit the buffer.
func (f *Feed) Dropped() int64 {
	return f.dropped.Load()
}
