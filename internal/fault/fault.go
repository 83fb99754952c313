// Package fault holds the single user-visible fault slot of a session.
package fault

import (
	"sync/atomic"
	"time"
)

// Fault is the last reported error.
type Fault struct {
	Message string
	Err     error
	At      time.Time
}

// Reporter receives faults from components that absorb their own errors.
type Reporter interface {
	Report(err error)
}

// Slot keeps only the most recent fault. It is safe for concurrent use;
// readers always see a whole Fault or none.
type Slot struct {
	current atomic.Pointer[Fault]
	now     func() time.Time
}

// Report overwrites the slot. A nil error is ignored.
func (s *Slot) Report(err error) {
	if err == nil {
		return
	}
	now := time.Now
	if s.now != nil {
		now = s.now
	}
	s.current.Store(&Fault{Message: err.Error(), Err: err, At: now()})
}

// Get returns the current fault, or nil.
func (s *Slot) Get() *Fault {
	return s.current.Load()
}

// Message returns the current fault message, or "".
func (s *Slot) Message() string {
	if f := s.current.Load(); f != nil {
		return f.Message
	}
	return ""
}

// Clear empties the slot.
func (s *Slot) Clear() {
	s.current.Store(nil)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(err error)

func (f ReporterFunc) Report(err error) { f(err) }
