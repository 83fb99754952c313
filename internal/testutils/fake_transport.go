package testutils

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/srg/pulse/internal/bledb"
	"github.com/srg/pulse/internal/device"
)

// FakeTransport hands out a single FakePeripheral.
type FakeTransport struct {
	Peripheral *FakePeripheral
	// RequestErr, when set, is returned from every RequestDevice and Scan call.
	RequestErr error
	// Candidates are returned by Scan. Empty means the peripheral alone.
	Candidates []device.Candidate

	mu      sync.Mutex
	filters []*device.RequestFilter
}

func (t *FakeTransport) RequestDevice(ctx context.Context, filter *device.RequestFilter) (device.DeviceHandle, error) {
	t.mu.Lock()
	t.filters = append(t.filters, filter)
	t.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if t.RequestErr != nil {
		return nil, t.RequestErr
	}
	if t.Peripheral == nil {
		return nil, &device.SelectionError{Reason: "no devices found", Err: device.ErrNoDevice}
	}
	return t.Peripheral, nil
}

// Scan returns Candidates, or a single candidate describing the peripheral.
func (t *FakeTransport) Scan(ctx context.Context, filter *device.RequestFilter) ([]device.Candidate, error) {
	t.mu.Lock()
	t.filters = append(t.filters, filter)
	t.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if t.RequestErr != nil {
		return nil, t.RequestErr
	}
	if len(t.Candidates) > 0 {
		return append([]device.Candidate(nil), t.Candidates...), nil
	}
	if t.Peripheral == nil {
		return []device.Candidate{}, nil
	}
	p := t.Peripheral
	services := make([]string, len(p.profile.Services))
	for i, svc := range p.profile.Services {
		services[i] = svc.UUID
	}
	return []device.Candidate{{
		ID:          p.ID(),
		Name:        p.Name(),
		RSSI:        -42,
		Connectable: p.SupportsGATT(),
		Services:    services,
	}}, nil
}

// Filters returns the filters passed to RequestDevice.
func (t *FakeTransport) Filters() []*device.RequestFilter {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]*device.RequestFilter(nil), t.filters...)
}

// FakePeripheral is an in-memory GATT device.
type FakePeripheral struct {
	profile  PeripheralProfile
	services []*fakeService
	chars    map[string][]*FakeCharacteristic

	connects      atomic.Int32
	disconnects   atomic.Int32
	serviceListed atomic.Int32
}

func (p *FakePeripheral) ID() string         { return p.profile.ID }
func (p *FakePeripheral) Name() string       { return p.profile.Name }
func (p *FakePeripheral) SupportsGATT() bool { return !p.profile.NoGATT }

func (p *FakePeripheral) ConnectGATT(ctx context.Context) (device.Server, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := errOrNil(p.profile.ConnectError); err != nil {
		return nil, err
	}
	p.connects.Add(1)
	return &fakeServer{p: p}, nil
}

// Connects returns the number of successful ConnectGATT calls.
func (p *FakePeripheral) Connects() int { return int(p.connects.Load()) }

// Disconnects returns the number of Disconnect calls.
func (p *FakePeripheral) Disconnects() int { return int(p.disconnects.Load()) }

// ServiceEnumerations returns the number of PrimaryServices calls.
func (p *FakePeripheral) ServiceEnumerations() int { return int(p.serviceListed.Load()) }

// Characteristic returns the first characteristic with the given UUID.
func (p *FakePeripheral) Characteristic(uuid string) *FakeCharacteristic {
	if list := p.chars[bledb.NormalizeUUID(uuid)]; len(list) > 0 {
		return list[0]
	}
	return nil
}

// Emit delivers a notification on the first characteristic with the given UUID.
// It reports whether a handler was registered.
func (p *FakePeripheral) Emit(uuid string, payload []byte) bool {
	c := p.Characteristic(uuid)
	if c == nil {
		return false
	}
	return c.Emit(payload)
}

type fakeServer struct {
	p *FakePeripheral
}

func (s *fakeServer) PrimaryServices(ctx context.Context) ([]device.Service, error) {
	s.p.serviceListed.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := errOrNil(s.p.profile.ServicesError); err != nil {
		return nil, err
	}
	out := make([]device.Service, len(s.p.services))
	for i, svc := range s.p.services {
		out[i] = svc
	}
	return out, nil
}

func (s *fakeServer) PrimaryService(ctx context.Context, uuid string) (device.Service, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	want := bledb.NormalizeUUID(uuid)
	for _, svc := range s.p.services {
		if bledb.NormalizeUUID(svc.cfg.UUID) == want {
			return svc, nil
		}
	}
	return nil, &device.NotFoundError{Resource: "service", UUIDs: []string{uuid}}
}

func (s *fakeServer) Disconnect() error {
	s.p.disconnects.Add(1)
	return nil
}

type fakeService struct {
	cfg   ServiceConfig
	chars []*FakeCharacteristic
}

func (s *fakeService) UUID() string { return s.cfg.UUID }

func (s *fakeService) Characteristics(ctx context.Context) ([]device.Characteristic, error) {
	if err := sleep(ctx, s.cfg.DelayMs); err != nil {
		return nil, err
	}
	if err := errOrNil(s.cfg.CharacteristicsError); err != nil {
		return nil, err
	}
	out := make([]device.Characteristic, len(s.chars))
	for i, c := range s.chars {
		out[i] = c
	}
	return out, nil
}

func (s *fakeService) Characteristic(ctx context.Context, uuid string) (device.Characteristic, error) {
	if err := errOrNil(s.cfg.CharacteristicsError); err != nil {
		return nil, err
	}
	want := bledb.NormalizeUUID(uuid)
	for _, c := range s.chars {
		if bledb.NormalizeUUID(c.cfg.UUID) == want {
			return c, nil
		}
	}
	return nil, &device.NotFoundError{Resource: "characteristic", UUIDs: []string{s.cfg.UUID, uuid}}
}

// FakeCharacteristic records notification handlers so tests can drive them.
type FakeCharacteristic struct {
	cfg   CharacteristicConfig
	props device.Properties
	descs []*fakeDescriptor

	mu          sync.Mutex
	handler     func([]byte)
	lastHandler func([]byte)
	starts      int
	stops       int
}

func (c *FakeCharacteristic) UUID() string                  { return c.cfg.UUID }
func (c *FakeCharacteristic) Properties() device.Properties { return c.props }

func (c *FakeCharacteristic) Descriptors(ctx context.Context) ([]device.Descriptor, error) {
	if err := sleep(ctx, c.cfg.DelayMs); err != nil {
		return nil, err
	}
	if err := errOrNil(c.cfg.DescriptorsError); err != nil {
		return nil, err
	}
	out := make([]device.Descriptor, len(c.descs))
	for i, d := range c.descs {
		out[i] = d
	}
	return out, nil
}

func (c *FakeCharacteristic) StartNotifications(ctx context.Context, handler func([]byte)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := errOrNil(c.cfg.SubscribeError); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler = handler
	c.lastHandler = handler
	c.starts++
	return nil
}

func (c *FakeCharacteristic) StopNotifications() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler = nil
	c.stops++
	return nil
}

// Emit calls the active handler. It reports whether one was registered.
func (c *FakeCharacteristic) Emit(payload []byte) bool {
	c.mu.Lock()
	h := c.handler
	c.mu.Unlock()
	if h == nil {
		return false
	}
	h(payload)
	return true
}

// LastHandler returns the most recently registered handler, even after StopNotifications.
// Tests use it to simulate a transport that fires late.
func (c *FakeCharacteristic) LastHandler() func([]byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastHandler
}

// Counts returns the number of StartNotifications and StopNotifications calls.
func (c *FakeCharacteristic) Counts() (starts, stops int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.starts, c.stops
}

type fakeDescriptor struct {
	cfg DescriptorConfig
}

func (d *fakeDescriptor) UUID() string { return d.cfg.UUID }

func (d *fakeDescriptor) ReadValue(ctx context.Context) ([]byte, error) {
	if err := sleep(ctx, d.cfg.DelayMs); err != nil {
		return nil, err
	}
	if err := errOrNil(d.cfg.Error); err != nil {
		return nil, err
	}
	if d.cfg.Raw != nil {
		return append([]byte(nil), d.cfg.Raw...), nil
	}
	return []byte(d.cfg.Value), nil
}

func sleep(ctx context.Context, ms int) error {
	if ms <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(time.Duration(ms) * time.Millisecond)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
