package session

import (
	"context"
	"sync/atomic"
)

// PlaybackHandle controls one in-flight speech stream. Cancellation
// is cooperative: the speaking goroutine checks the handle between
// packets and stops without pushing further audio.
type PlaybackHandle struct {
	cancel    context.CancelFunc
	cancelled atomic.Bool
	done      chan struct{}
}

func newPlaybackHandle(cancel context.CancelFunc) *PlaybackHandle {
	return &PlaybackHandle{
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// Cancel stops the playback. It returns true only for the first
// caller, so side effects of cancellation (the wire clear frame)
// happen exactly once.
func (h *PlaybackHandle) Cancel() bool {
	if !h.cancelled.CompareAndSwap(false, true) {
		return false
	}
	h.cancel()
	return true
}

// Cancelled reports whether Cancel has been called.
func (h *PlaybackHandle) Cancelled() bool {
	return h.cancelled.Load()
}

// Done is closed when the speaking goroutine has fully stopped.
func (h *PlaybackHandle) Done() <-chan struct{} {
	return h.done
}

func (h *PlaybackHandle) finish() {
	close(h.done)
}
