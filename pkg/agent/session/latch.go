package session

import "sync/atomic"

// latch is a one-shot termination gate. Both the room-closed and the
// participant-disconnected paths race through TryClose; exactly one wins.
type latch struct {
	closed atomic.Bool
}

// TryClose reports whether this caller is the one that closed the latch.
func (l *latch) TryClose() bool {
	return l.closed.CompareAndSwap(false, true)
}

// Closed reports whether the latch has been closed by anyone.
func (l *latch) Closed() bool {
	return l.closed.Load()
}
