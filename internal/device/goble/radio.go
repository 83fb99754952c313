// Package goble implements the device transport port on top of github.com/go-ble/ble.
//
// Only a narrow slice of go-ble is used: scanning and dialing through Radio,
// and per-level GATT discovery, descriptor reads and subscriptions through
// Client. Both are interfaces so tests can mock them.
package goble

import (
	"context"

	ble "github.com/go-ble/ble"
)

// Advertisement is the part of a go-ble advertisement used for device selection.
type Advertisement struct {
	Address     string
	LocalName   string
	RSSI        int
	Connectable bool
	Services    []string
}

// Client is the subset of ble.Client used by the adapters.
type Client interface {
	DiscoverServices(filter []ble.UUID) ([]*ble.Service, error)
	DiscoverCharacteristics(filter []ble.UUID, s *ble.Service) ([]*ble.Characteristic, error)
	DiscoverDescriptors(filter []ble.UUID, c *ble.Characteristic) ([]*ble.Descriptor, error)
	ReadDescriptor(d *ble.Descriptor) ([]byte, error)
	Subscribe(c *ble.Characteristic, ind bool, h ble.NotificationHandler) error
	Unsubscribe(c *ble.Characteristic, ind bool) error
	CancelConnection() error
}

// Radio scans for and dials peripherals.
type Radio interface {
	Scan(ctx context.Context, allowDup bool, handler func(Advertisement)) error
	Dial(ctx context.Context, address string) (Client, error)
}

// DeviceFactory creates ble.Device instances (can be overridden in tests)
//
//nolint:revive // DeviceFactory name is intentional for test mocking
var DeviceFactory = defaultDevice

// bleRadio wraps ble.Device to implement Radio
type bleRadio struct {
	dev ble.Device
}

// NewRadio opens the host Bluetooth adapter.
func NewRadio() (Radio, error) {
	dev, err := DeviceFactory()
	if err != nil {
		return nil, NormalizeError(err)
	}
	return &bleRadio{dev: dev}, nil
}

// Scan converts ble.Advertisement to Advertisement for the handler.
func (r *bleRadio) Scan(ctx context.Context, allowDup bool, handler func(Advertisement)) error {
	err := r.dev.Scan(ctx, allowDup, func(adv ble.Advertisement) {
		handler(convertAdvertisement(adv))
	})
	return NormalizeError(err)
}

func (r *bleRadio) Dial(ctx context.Context, address string) (Client, error) {
	client, err := r.dev.Dial(ctx, ble.NewAddr(address))
	if err != nil {
		return nil, NormalizeError(err)
	}
	return client, nil
}

func convertAdvertisement(adv ble.Advertisement) Advertisement {
	services := make([]string, 0, len(adv.Services()))
	for _, u := range adv.Services() {
		services = append(services, u.String())
	}
	return Advertisement{
		Address:     adv.Addr().String(),
		LocalName:   adv.LocalName(),
		RSSI:        adv.RSSI(),
		Connectable: adv.Connectable(),
		Services:    services,
	}
}
