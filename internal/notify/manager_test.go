package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/srg/pulse/internal/device"
	"github.com/srg/pulse/internal/fault"
	"github.com/srg/pulse/internal/hrm"
	"github.com/srg/pulse/internal/testutils"
)

type ManagerSuite struct {
	suite.Suite
	helper *testutils.TestHelper
	slot   *fault.Slot
	mgr    *Manager
	char   *testutils.FakeCharacteristic
}

func TestManagerSuite(t *testing.T) {
	suite.Run(t, new(ManagerSuite))
}

func (s *ManagerSuite) SetupTest() {
	s.helper = testutils.NewTestHelper(s.T())
	s.slot = &fault.Slot{}
	s.mgr = NewManager(s.helper.Logger, s.slot)
	s.char = testutils.CreateHeartRatePeripheral().Build().Characteristic(device.HeartRateMeasurementUUID)
	s.Require().NotNil(s.char)
}

func (s *ManagerSuite) subscribe(opts Options) *Subscription {
	sub, err := s.mgr.Subscribe(context.Background(), s.char, opts)
	s.Require().NoError(err)
	s.T().Cleanup(func() { _ = sub.Unsubscribe() })
	return sub
}

func (s *ManagerSuite) TestDecodesInArrivalOrder() {
	sub := s.subscribe(Options{})

	for _, bpm := range []byte{60, 61, 62} {
		s.True(s.char.Emit([]byte{0x00, bpm}))
	}

	for i, want := range []uint16{60, 61, 62} {
		select {
		case ev := <-sub.C():
			s.Equal(want, ev.Measurement.BeatsPerMinute)
			s.Equal(uint64(i+1), ev.Seq)
		case <-time.After(time.Second):
			s.FailNow("event not delivered")
		}
	}

	latest, ok := sub.Latest()
	s.Require().True(ok)
	s.Equal(uint16(62), latest.Measurement.BeatsPerMinute)
	s.Equal(Stats{Received: 3, Decoded: 3}, sub.Stats())
}

func (s *ManagerSuite) TestDecodeErrorUpdatesFaultAndKeepsStreaming() {
	sub := s.subscribe(Options{})

	s.char.Emit([]byte{0x00, 70})
	s.char.Emit([]byte{0x10, 0x4B, 0x00, 0x04, 0x01}) // dangling RR byte
	s.char.Emit([]byte{0x00, 72})

	s.Require().NotNil(s.slot.Get())
	var decErr *hrm.DecodeError
	s.True(errors.As(s.slot.Get().Err, &decErr))

	latest, ok := sub.Latest()
	s.Require().True(ok)
	s.Equal(uint16(72), latest.Measurement.BeatsPerMinute)
	s.Equal(Stats{Received: 3, Decoded: 2, Dropped: 1, Queued: 2}, sub.Stats())

	select {
	case <-sub.Done():
		s.Fail("subscription ended after a decode error")
	default:
	}
}

func (s *ManagerSuite) TestNoEventAfterUnsubscribe() {
	sub := s.subscribe(Options{})
	s.char.Emit([]byte{0x00, 60})

	late := s.char.LastHandler()
	s.Require().NoError(sub.Unsubscribe())

	// a transport that fires right after stop must not reach the decoder
	late([]byte{0x00, 99})
	late([]byte{0xFF})

	st := sub.Stats()
	s.Equal(uint64(1), st.Received)
	latest, _ := sub.Latest()
	s.Equal(uint16(60), latest.Measurement.BeatsPerMinute)
	s.Nil(s.slot.Get())

	var got []uint16
	for ev := range sub.C() {
		got = append(got, ev.Measurement.BeatsPerMinute)
	}
	s.Equal([]uint16{60}, got)
}

func (s *ManagerSuite) TestUnsubscribeIsIdempotent() {
	sub := s.subscribe(Options{})

	s.NoError(sub.Unsubscribe())
	s.NoError(sub.Unsubscribe())

	_, stops := s.char.Counts()
	s.Equal(1, stops)
	<-sub.Done()
}

func (s *ManagerSuite) TestConcurrentUnsubscribeAndDelivery() {
	sub := s.subscribe(Options{BufferSize: 4})
	handler := s.char.LastHandler()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				handler([]byte{0x00, 80})
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		time.Sleep(time.Millisecond)
		_ = sub.Unsubscribe()
	}()
	wg.Wait()

	after := sub.Stats().Received
	handler([]byte{0x00, 80})
	s.Equal(after, sub.Stats().Received)
}

func (s *ManagerSuite) TestQueueOverwritesOldest() {
	sub := s.subscribe(Options{BufferSize: 2})
	for _, bpm := range []byte{60, 61, 62, 63} {
		s.char.Emit([]byte{0x00, bpm})
	}
	s.Equal(uint64(2), sub.Stats().Overwritten)
	s.Equal(2, sub.Stats().Queued)

	ev := <-sub.C()
	s.Equal(uint16(62), ev.Measurement.BeatsPerMinute)
	s.Equal(1, sub.Stats().Queued)
}

func (s *ManagerSuite) TestLatestOnlyMode() {
	sub := s.subscribe(Options{BufferSize: -1})
	s.Nil(sub.C())
	s.char.Emit([]byte{0x00, 60})

	latest, ok := sub.Latest()
	s.True(ok)
	s.Equal(uint16(60), latest.Measurement.BeatsPerMinute)
}

func (s *ManagerSuite) TestContextCancelEndsSubscription() {
	ctx, cancel := context.WithCancel(context.Background())
	sub, err := s.mgr.Subscribe(ctx, s.char, Options{})
	s.Require().NoError(err)

	cancel()
	select {
	case <-sub.Done():
	case <-time.After(time.Second):
		s.FailNow("subscription did not end on cancel")
	}
	s.False(s.char.Emit([]byte{0x00, 60}))
}

func TestSubscribe_RejectsNonNotifyingCharacteristic(t *testing.T) {
	p := testutils.CreateHeartRatePeripheral().Build()
	char := p.Characteristic("00002a38-0000-1000-8000-00805f9b34fb")
	require.NotNil(t, char)

	_, err := NewManager(nil, nil).Subscribe(context.Background(), char, Options{})
	var capErr *device.TransportCapabilityError
	require.True(t, errors.As(err, &capErr))
	assert.Equal(t, "notifications", capErr.Capability)
}

func TestSubscribe_StartFailure(t *testing.T) {
	p := testutils.NewPeripheralBuilder().
		WithService("180d").
		WithCharacteristic("2a37", "notify").
		WithSubscribeError("cccd write failed").
		Build()

	_, err := NewManager(nil, nil).Subscribe(context.Background(), p.Characteristic("2a37"), Options{})
	assert.ErrorContains(t, err, "cccd write failed")
}
