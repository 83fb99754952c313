// Package session drives one heart-rate monitor session: select a device,
// connect, then walk its attribute tree while streaming measurements.
//
// The controller owns three independently replaceable values: the device
// snapshot, the latest measurement and the fault slot. Readers always see a
// whole value, never a partially built one.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc"

	"github.com/srg/pulse/internal/device"
	"github.com/srg/pulse/internal/discovery"
	"github.com/srg/pulse/internal/fault"
	"github.com/srg/pulse/internal/notify"
)

// Progress phases reported through ProgressCallback.
const (
	PhaseScanning    = "Scanning"
	PhaseConnecting  = "Connecting"
	PhaseDiscovering = "Discovering"
	PhaseSubscribing = "Subscribing"
	PhaseReady       = "Ready"
	PhaseFailed      = "Failed"
)

// ProgressCallback is called when the session phase changes
type ProgressCallback func(phase string)

// Options configure a Controller.
type Options struct {
	// Filter selects the device. Nil accepts any device and allows DefaultOptionalServices.
	Filter *device.RequestFilter
	Walk   discovery.WalkOptions
	Notify notify.Options
	// SkipSubscription connects and walks without subscribing to heart rate measurements.
	SkipSubscription bool
}

// Controller runs a single session. It is not reusable after Close.
type Controller struct {
	transport device.Transport
	opts      Options
	logger    *logrus.Logger
	progress  ProgressCallback

	faults  fault.Slot
	walker  *discovery.Walker
	manager *notify.Manager

	started atomic.Bool
	mu      sync.Mutex // guards handle and server
	handle  device.DeviceHandle
	server  device.Server

	snapshot atomic.Pointer[discovery.DeviceSnapshot]
	sub      atomic.Pointer[notify.Subscription]

	closeOnce sync.Once
	closeErr  error
}

// New creates a controller. progress may be nil.
func New(transport device.Transport, opts Options, logger *logrus.Logger, progress ProgressCallback) *Controller {
	if logger == nil {
		logger = logrus.New()
	}
	if progress == nil {
		progress = func(string) {}
	}
	if opts.Filter == nil {
		opts.Filter = &device.RequestFilter{
			AcceptAllDevices: true,
			OptionalServices: device.DefaultOptionalServices,
		}
	}
	c := &Controller{
		transport: transport,
		opts:      opts,
		logger:    logger,
		progress:  progress,
	}
	c.walker = discovery.NewWalker(logger, opts.Walk, &c.faults)
	c.manager = notify.NewManager(logger, &c.faults)
	return c
}

// Start selects and connects to a device, then runs discovery and the heart
// rate subscription concurrently. It returns once both have finished starting.
//
// Selection, capability and connection failures are terminal: they are
// recorded in the fault slot and returned. A failed discovery or subscription
// is recorded but the session stays up with whatever did succeed.
// Notifications stop when ctx is cancelled or Close is called.
func (c *Controller) Start(ctx context.Context) error {
	if !c.started.CompareAndSwap(false, true) {
		return &device.ConnectionError{State: device.AlreadyConnected, Msg: "session already started"}
	}

	c.progress(PhaseScanning)
	handle, err := c.transport.RequestDevice(ctx, c.opts.Filter)
	if err != nil {
		return c.fail(err)
	}
	if !handle.SupportsGATT() {
		return c.fail(&device.TransportCapabilityError{Capability: "GATT", Subject: "device " + handle.ID()})
	}

	c.progress(PhaseConnecting)
	server, err := handle.ConnectGATT(ctx)
	if err != nil {
		var connErr *device.ConnectionError
		if !errors.As(err, &connErr) && ctx.Err() == nil {
			err = &device.ConnectionError{State: device.ConnectFailed, Msg: fmt.Sprintf("address %q", handle.ID()), Err: err}
		}
		return c.fail(err)
	}

	c.mu.Lock()
	c.handle, c.server = handle, server
	c.mu.Unlock()

	logger := c.logger.WithFields(logrus.Fields{
		"address": handle.ID(),
		"name":    handle.Name(),
	})
	logger.Info("Session connected")

	c.progress(PhaseDiscovering)
	var wg conc.WaitGroup
	wg.Go(func() {
		if _, err := c.discover(ctx); err != nil {
			logger.WithError(err).Warn("Discovery failed, notifications continue")
		}
	})
	if !c.opts.SkipSubscription {
		wg.Go(func() {
			c.progress(PhaseSubscribing)
			if err := c.subscribe(ctx, server); err != nil {
				c.faults.Report(err)
				logger.WithError(err).Warn("Heart rate subscription failed")
			}
		})
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		_ = c.Close()
		return err
	}
	c.progress(PhaseReady)
	return nil
}

func (c *Controller) fail(err error) error {
	c.progress(PhaseFailed)
	if !errors.Is(err, context.Canceled) {
		c.faults.Report(err)
	}
	c.logger.WithError(err).Error("Session failed")
	return err
}

func (c *Controller) discover(ctx context.Context) (*discovery.DeviceSnapshot, error) {
	c.mu.Lock()
	handle, server := c.handle, c.server
	c.mu.Unlock()
	if server == nil {
		return nil, device.ErrNotConnected
	}

	snap, err := c.walker.Discover(ctx, discovery.Identity{ID: handle.ID(), Name: handle.Name()}, server)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			c.faults.Report(err)
		}
		return nil, err
	}
	c.snapshot.Store(snap)
	return snap, nil
}

// subscribe locates the measurement characteristic directly rather than through the walk.
func (c *Controller) subscribe(ctx context.Context, server device.Server) error {
	svc, err := server.PrimaryService(ctx, device.HeartRateServiceUUID)
	if err != nil {
		return fmt.Errorf("heart rate service: %w", err)
	}
	char, err := svc.Characteristic(ctx, device.HeartRateMeasurementUUID)
	if err != nil {
		return fmt.Errorf("heart rate measurement: %w", err)
	}
	sub, err := c.manager.Subscribe(ctx, char, c.opts.Notify)
	if err != nil {
		return err
	}
	c.sub.Store(sub)
	return nil
}

// Refresh re-runs discovery and replaces the snapshot. On failure the
// previous snapshot is kept.
func (c *Controller) Refresh(ctx context.Context) (*discovery.DeviceSnapshot, error) {
	return c.discover(ctx)
}

// Snapshot returns the last completed discovery result, or nil.
func (c *Controller) Snapshot() *discovery.DeviceSnapshot {
	return c.snapshot.Load()
}

// Subscribed reports whether heart rate notifications are active.
func (c *Controller) Subscribed() bool {
	return c.sub.Load() != nil
}

// Measurements returns the decoded event stream, or nil without a subscription.
func (c *Controller) Measurements() <-chan notify.Event {
	if sub := c.sub.Load(); sub != nil {
		return sub.C()
	}
	return nil
}

// Latest returns the most recent measurement event.
func (c *Controller) Latest() (notify.Event, bool) {
	if sub := c.sub.Load(); sub != nil {
		return sub.Latest()
	}
	return notify.Event{}, false
}

// Stats returns the subscription counters.
func (c *Controller) Stats() notify.Stats {
	if sub := c.sub.Load(); sub != nil {
		return sub.Stats()
	}
	return notify.Stats{}
}

// Fault returns the last recorded fault, or nil.
func (c *Controller) Fault() *fault.Fault {
	return c.faults.Get()
}

// Device returns the selected device, or nil before selection.
func (c *Controller) Device() device.DeviceHandle {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handle
}

// Close stops notifications and disconnects. It is safe to call more than once.
func (c *Controller) Close() error {
	c.closeOnce.Do(func() {
		var errs []error
		if sub := c.sub.Load(); sub != nil {
			if err := sub.Unsubscribe(); err != nil {
				errs = append(errs, err)
			}
		}
		c.mu.Lock()
		server := c.server
		c.mu.Unlock()
		if server != nil {
			if err := server.Disconnect(); err != nil {
				errs = append(errs, err)
			}
			c.logger.Info("Session closed")
		}
		c.closeErr = errors.Join(errs...)
	})
	return c.closeErr
}
