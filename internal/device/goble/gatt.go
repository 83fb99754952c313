package goble

import (
	"context"
	"fmt"
	"sync"

	ble "github.com/go-ble/ble"
	"github.com/sirupsen/logrus"

	"github.com/srg/pulse/internal/bledb"
	"github.com/srg/pulse/internal/device"
	"github.com/srg/pulse/internal/groutine"
)

type deviceHandle struct {
	transport *Transport
	candidate device.Candidate
	allowed   map[string]struct{}
}

func (d *deviceHandle) ID() string         { return d.candidate.ID }
func (d *deviceHandle) Name() string       { return d.candidate.Name }
func (d *deviceHandle) SupportsGATT() bool { return d.candidate.Connectable }

// ConnectGATT dials the device within the transport's connect timeout.
func (d *deviceHandle) ConnectGATT(ctx context.Context) (device.Server, error) {
	logger := d.transport.logger
	address := d.candidate.ID

	connCtx, cancel := context.WithTimeout(ctx, d.transport.opts.ConnectTimeout)
	defer cancel()

	logger.WithFields(logrus.Fields{
		"address": address,
		"timeout": d.transport.opts.ConnectTimeout,
	}).Info("Connecting to BLE device...")

	client, err := d.transport.radio.Dial(connCtx, address)
	if err != nil {
		logger.WithFields(logrus.Fields{
			"address": address,
			"error":   err,
		}).Error("Failed to dial BLE device")
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &device.ConnectionError{State: device.ConnectFailed, Msg: fmt.Sprintf("address %q", address), Err: err}
	}

	s := &server{client: client, allowed: d.allowed, logger: logger, address: address, done: make(chan struct{})}

	// go-ble backends expose link loss via Disconnected() but not through ble.Client on every fork
	if dc, ok := client.(interface{ Disconnected() <-chan struct{} }); ok {
		groutine.Go(context.Background(), "ble-connection-monitor", func(context.Context) {
			select {
			case <-dc.Disconnected():
				logger.WithField("address", address).Warn("Peripheral disconnected")
			case <-s.done:
			}
		})
	}

	logger.WithField("address", address).Info("BLE device connected")
	return s, nil
}

type server struct {
	client  Client
	allowed map[string]struct{}
	logger  *logrus.Logger
	address string
	done    chan struct{}
	once    sync.Once
}

func (s *server) isAllowed(u ble.UUID) bool {
	if s.allowed == nil {
		return true
	}
	_, ok := s.allowed[bledb.NormalizeUUID(u.String())]
	return ok
}

func (s *server) PrimaryServices(ctx context.Context) ([]device.Service, error) {
	found, err := groutine.Await(ctx, "gatt-discover-services", func() ([]*ble.Service, error) {
		return s.client.DiscoverServices(nil)
	})
	if err != nil {
		return nil, NormalizeError(err)
	}

	out := make([]device.Service, 0, len(found))
	for _, svc := range found {
		if !s.isAllowed(svc.UUID) {
			s.logger.WithField("service_uuid", svc.UUID.String()).Debug("Service not in allow-list, hidden")
			continue
		}
		out = append(out, &service{client: s.client, svc: svc, logger: s.logger})
	}
	return out, nil
}

func (s *server) PrimaryService(ctx context.Context, uuid string) (device.Service, error) {
	u, err := parseUUID(uuid)
	if err != nil {
		return nil, fmt.Errorf("invalid service UUID %q: %w", uuid, err)
	}
	if !s.isAllowed(u) {
		return nil, &device.NotFoundError{Resource: "service", UUIDs: []string{uuid}}
	}

	found, err := groutine.Await(ctx, "gatt-discover-service", func() ([]*ble.Service, error) {
		return s.client.DiscoverServices([]ble.UUID{u})
	})
	if err != nil {
		return nil, NormalizeError(err)
	}
	for _, svc := range found {
		if sameUUID(svc.UUID, u) {
			return &service{client: s.client, svc: svc, logger: s.logger}, nil
		}
	}
	return nil, &device.NotFoundError{Resource: "service", UUIDs: []string{uuid}}
}

// Disconnect cancels the connection once; later calls return nil.
func (s *server) Disconnect() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		s.logger.WithField("address", s.address).Info("Disconnecting")
		err = NormalizeError(s.client.CancelConnection())
	})
	return err
}

// parseUUID parses uuid in its shortest form, so SIG base UUIDs become 16-bit.
func parseUUID(uuid string) (ble.UUID, error) {
	return ble.Parse(bledb.NormalizeUUID(uuid))
}

// sameUUID compares UUIDs regardless of 16-bit or 128-bit representation.
func sameUUID(a, b ble.UUID) bool {
	return bledb.NormalizeUUID(a.String()) == bledb.NormalizeUUID(b.String())
}

// canonical renders a go-ble UUID in 36-character form.
func canonical(u ble.UUID) string {
	if c, err := bledb.CanonicalUUID(u.String()); err == nil {
		return c
	}
	return u.String()
}

type service struct {
	client Client
	svc    *ble.Service
	logger *logrus.Logger
}

func (s *service) UUID() string { return canonical(s.svc.UUID) }

func (s *service) Characteristics(ctx context.Context) ([]device.Characteristic, error) {
	found, err := groutine.Await(ctx, "gatt-discover-characteristics", func() ([]*ble.Characteristic, error) {
		return s.client.DiscoverCharacteristics(nil, s.svc)
	})
	if err != nil {
		return nil, NormalizeError(err)
	}
	out := make([]device.Characteristic, len(found))
	for i, c := range found {
		out[i] = &characteristic{client: s.client, char: c}
	}
	return out, nil
}

func (s *service) Characteristic(ctx context.Context, uuid string) (device.Characteristic, error) {
	u, err := parseUUID(uuid)
	if err != nil {
		return nil, fmt.Errorf("invalid characteristic UUID %q: %w", uuid, err)
	}
	found, err := groutine.Await(ctx, "gatt-discover-characteristic", func() ([]*ble.Characteristic, error) {
		return s.client.DiscoverCharacteristics([]ble.UUID{u}, s.svc)
	})
	if err != nil {
		return nil, NormalizeError(err)
	}
	for _, c := range found {
		if sameUUID(c.UUID, u) {
			return &characteristic{client: s.client, char: c}, nil
		}
	}
	return nil, &device.NotFoundError{Resource: "characteristic", UUIDs: []string{s.UUID(), uuid}}
}

type characteristic struct {
	client Client
	char   *ble.Characteristic
}

func (c *characteristic) UUID() string { return canonical(c.char.UUID) }

func (c *characteristic) Properties() device.Properties {
	return device.Properties(c.char.Property & 0xff)
}

// indicate reports whether the subscription must use indications.
func (c *characteristic) indicate() bool {
	p := c.Properties()
	return !p.Has(device.PropNotify) && p.Has(device.PropIndicate)
}

func (c *characteristic) Descriptors(ctx context.Context) ([]device.Descriptor, error) {
	found, err := groutine.Await(ctx, "gatt-discover-descriptors", func() ([]*ble.Descriptor, error) {
		return c.client.DiscoverDescriptors(nil, c.char)
	})
	if err != nil {
		return nil, NormalizeError(err)
	}
	out := make([]device.Descriptor, len(found))
	for i, d := range found {
		out[i] = &descriptor{client: c.client, desc: d}
	}
	return out, nil
}

// cccdUUID is the Client Characteristic Configuration descriptor.
var cccdUUID = ble.UUID16(0x2902)

// ensureCCCD discovers descriptors when the characteristic was found through
// a filtered lookup; the linux backend refuses to subscribe without a CCCD.
func (c *characteristic) ensureCCCD(ctx context.Context) error {
	if c.char.CCCD != nil {
		return nil
	}
	found, err := groutine.Await(ctx, "gatt-discover-cccd", func() ([]*ble.Descriptor, error) {
		return c.client.DiscoverDescriptors(nil, c.char)
	})
	if err != nil {
		return NormalizeError(err)
	}
	if c.char.CCCD == nil {
		for _, d := range found {
			if sameUUID(d.UUID, cccdUUID) {
				c.char.CCCD = d
				break
			}
		}
	}
	return nil
}

func (c *characteristic) StartNotifications(ctx context.Context, handler func([]byte)) error {
	if err := c.ensureCCCD(ctx); err != nil {
		return fmt.Errorf("failed to discover CCCD: %w", err)
	}
	_, err := groutine.Await(ctx, "gatt-subscribe", func() (struct{}, error) {
		return struct{}{}, c.client.Subscribe(c.char, c.indicate(), ble.NotificationHandler(handler))
	})
	return NormalizeError(err)
}

func (c *characteristic) StopNotifications() error {
	return NormalizeError(c.client.Unsubscribe(c.char, c.indicate()))
}

type descriptor struct {
	client Client
	desc   *ble.Descriptor
}

func (d *descriptor) UUID() string { return canonical(d.desc.UUID) }

func (d *descriptor) ReadValue(ctx context.Context) ([]byte, error) {
	data, err := groutine.Await(ctx, "gatt-read-descriptor", func() ([]byte, error) {
		return d.client.ReadDescriptor(d.desc)
	})
	return data, NormalizeError(err)
}
