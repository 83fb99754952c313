// Package notify turns Heart Rate Measurement notifications into a stream of
// decoded events.
//
// A Subscription decodes values in arrival order, keeps the most recent
// measurement and optionally queues events for a consumer. Decode failures
// go to the fault reporter and the sample is dropped; the subscription keeps
// running. After Unsubscribe returns, no further value reaches the decoder.
package notify

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/srg/pulse/internal/device"
	"github.com/srg/pulse/internal/fault"
	"github.com/srg/pulse/internal/groutine"
	"github.com/srg/pulse/internal/hrm"
)

// DefaultBufferSize is the queue length used when Options.BufferSize is zero.
const DefaultBufferSize = 16

// Event is one decoded notification.
type Event struct {
	Seq         uint64          `json:"seq"`
	At          time.Time       `json:"at"`
	Raw         []byte          `json:"raw"`
	Measurement hrm.Measurement `json:"measurement"`
}

// Stats counts notifications seen by a subscription.
type Stats struct {
	Received    uint64 `json:"received"`
	Decoded     uint64 `json:"decoded"`
	Dropped     uint64 `json:"dropped"`     // failed to decode
	Overwritten uint64 `json:"overwritten"` // evicted from a full queue
	Queued      int    `json:"queued"`      // waiting in C()
}

// Options configure a subscription.
type Options struct {
	// BufferSize is the capacity of C(). Negative disables queuing; only Latest is kept.
	BufferSize int
}

// Manager creates subscriptions that share a logger and a fault reporter.
type Manager struct {
	logger   *logrus.Logger
	reporter fault.Reporter
	now      func() time.Time
}

// NewManager creates a Manager. A nil reporter only logs decode failures.
func NewManager(logger *logrus.Logger, reporter fault.Reporter) *Manager {
	if logger == nil {
		logger = logrus.New()
	}
	return &Manager{logger: logger, reporter: reporter, now: time.Now}
}

// Subscription is a live notification stream.
type Subscription struct {
	char     device.Characteristic
	logger   *logrus.Entry
	reporter fault.Reporter
	now      func() time.Time

	// mu serializes decode+publish against close.
	mu     sync.Mutex
	closed atomic.Bool
	queue  *RingChannel[Event]
	done   chan struct{}
	once   sync.Once
	endErr error

	latest atomic.Pointer[Event]
	seq    uint64

	received    atomic.Uint64
	decoded     atomic.Uint64
	dropped     atomic.Uint64
	overwritten atomic.Uint64
}

// Subscribe enables notifications on char. The subscription ends when ctx is
// cancelled or Unsubscribe is called.
func (m *Manager) Subscribe(ctx context.Context, char device.Characteristic, opts Options) (*Subscription, error) {
	uuid := char.UUID()
	if !char.Properties().CanSubscribe() {
		return nil, &device.TransportCapabilityError{Capability: "notifications", Subject: "characteristic " + uuid}
	}

	size := opts.BufferSize
	if size == 0 {
		size = DefaultBufferSize
	}

	s := &Subscription{
		char:     char,
		logger:   m.logger.WithField("char_uuid", uuid),
		reporter: m.reporter,
		now:      m.now,
		done:     make(chan struct{}),
	}
	if size > 0 {
		s.queue = NewRingChannel[Event](size)
	}

	if err := char.StartNotifications(ctx, s.handle); err != nil {
		s.closed.Store(true)
		s.closeQueue()
		close(s.done)
		return nil, fmt.Errorf("failed to start notifications on %s: %w", uuid, err)
	}
	s.logger.Info("Subscribed to notifications")

	groutine.Go(ctx, "notify-"+uuid, func(ctx context.Context) {
		select {
		case <-ctx.Done():
			if err := s.Unsubscribe(); err != nil {
				s.logger.WithError(err).Warn("Failed to stop notifications")
			}
		case <-s.done:
		}
	})
	return s, nil
}

func (s *Subscription) handle(data []byte) {
	if s.closed.Load() {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	// re-check under the lock; Unsubscribe may have won the race
	if s.closed.Load() {
		return
	}

	s.received.Add(1)
	m, err := hrm.Decode(data)
	if err != nil {
		s.dropped.Add(1)
		s.logger.WithFields(logrus.Fields{
			"payload": fmt.Sprintf("% x", data),
			"error":   err,
		}).Warn("Dropped undecodable measurement")
		if s.reporter != nil {
			s.reporter.Report(err)
		}
		return
	}

	s.seq++
	ev := Event{Seq: s.seq, At: s.now(), Raw: append([]byte(nil), data...), Measurement: m}
	s.latest.Store(&ev)
	s.decoded.Add(1)
	if s.queue != nil && s.queue.Send(ev) {
		s.overwritten.Add(1)
	}
}

func (s *Subscription) closeQueue() {
	if s.queue != nil {
		s.queue.Close()
	}
}

// C returns the event queue, closed after Unsubscribe. It is nil when queuing is disabled.
func (s *Subscription) C() <-chan Event {
	if s.queue == nil {
		return nil
	}
	return s.queue.C()
}

// Latest returns the most recent decoded event.
func (s *Subscription) Latest() (Event, bool) {
	if ev := s.latest.Load(); ev != nil {
		return *ev, true
	}
	return Event{}, false
}

// Stats returns a snapshot of the counters.
func (s *Subscription) Stats() Stats {
	st := Stats{
		Received:    s.received.Load(),
		Decoded:     s.decoded.Load(),
		Dropped:     s.dropped.Load(),
		Overwritten: s.overwritten.Load(),
	}
	if s.queue != nil {
		st.Queued = s.queue.Len()
	}
	return st
}

// Done is closed when the subscription ends.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Characteristic returns the subscribed characteristic.
func (s *Subscription) Characteristic() device.Characteristic {
	return s.char
}

// Unsubscribe stops the stream. It is idempotent and safe to call from any goroutine;
// every call returns the result of the first.
func (s *Subscription) Unsubscribe() error {
	s.once.Do(func() {
		s.closed.Store(true)

		// wait for an in-flight decode, then close the queue
		s.mu.Lock()
		s.closeQueue()
		s.mu.Unlock()

		s.endErr = s.char.StopNotifications()
		close(s.done)

		st := s.Stats()
		s.logger.WithFields(logrus.Fields{
			"received": st.Received,
			"decoded":  st.Decoded,
			"dropped":  st.Dropped,
		}).Info("Unsubscribed from notifications")
	})
	return s.endErr
}
