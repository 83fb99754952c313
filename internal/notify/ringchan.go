package notify

// RingChannel is a bounded channel with overwrite-oldest semantics.
// Producers never block; readers treat C() as a normal <-chan T.
//
// A RingChannel supports a single producer at a time; callers serialize Send and Close.
type RingChannel[T any] struct {
	ch chan T
}

// NewRingChannel creates a RingChannel with the given capacity.
func NewRingChannel[T any](capacity int) *RingChannel[T] {
	if capacity <= 0 {
		panic("ringchan: capacity must be > 0")
	}
	return &RingChannel[T]{ch: make(chan T, capacity)}
}

// C returns the underlying receive-only channel.
func (rc *RingChannel[T]) C() <-chan T {
	return rc.ch
}

// Send inserts v, discarding the oldest element if the buffer is full.
// It reports whether an element was discarded.
func (rc *RingChannel[T]) Send(v T) (dropped bool) {
	select {
	case rc.ch <- v:
		return false
	default:
	}
	select {
	case <-rc.ch:
		dropped = true
	default:
		// a reader drained the buffer in between
	}
	rc.ch <- v
	return dropped
}

// Len returns the number of buffered elements.
func (rc *RingChannel[T]) Len() int {
	return len(rc.ch)
}

// Close closes the underlying channel. Send must not be called afterwards.
func (rc *RingChannel[T]) Close() {
	close(rc.ch)
}
