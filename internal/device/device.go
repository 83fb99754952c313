package device

import (
	"context"
	"strings"
)

// Well-known Heart Rate identifiers in canonical form.
const (
	HeartRateServiceUUID     = "0000180d-0000-1000-8000-00805f9b34fb"
	HeartRateMeasurementUUID = "00002a37-0000-1000-8000-00805f9b34fb"
	GenericAccessUUID        = "00001800-0000-1000-8000-00805f9b34fb"
	BatteryServiceUUID       = "0000180f-0000-1000-8000-00805f9b34fb"
	DeviceInformationUUID    = "0000180a-0000-1000-8000-00805f9b34fb"
)

// DefaultOptionalServices are requested in addition to the filter services so
// the attribute walk can see them.
var DefaultOptionalServices = []string{
	GenericAccessUUID,
	BatteryServiceUUID,
	DeviceInformationUUID,
	HeartRateServiceUUID,
}

// RequestFilter narrows device selection.
type RequestFilter struct {
	// AcceptAllDevices offers every advertising device to the picker.
	AcceptAllDevices bool
	// Address selects a single device and skips the picker.
	Address string
	// NamePrefix keeps devices whose advertised name starts with the prefix.
	NamePrefix string
	// Services keeps devices advertising at least one of the listed services.
	Services []string
	// OptionalServices are reachable after connect even if they were not advertised.
	OptionalServices []string
}

// AllowedServices is the union of Services and OptionalServices.
func (f *RequestFilter) AllowedServices() []string {
	if f == nil {
		return nil
	}
	out := make([]string, 0, len(f.Services)+len(f.OptionalServices))
	out = append(out, f.Services...)
	return append(out, f.OptionalServices...)
}

// Candidate is a device offered for selection.
type Candidate struct {
	ID          string
	Name        string
	RSSI        int
	Connectable bool
	Services    []string
}

// DisplayName returns the advertised name or a placeholder.
func (c Candidate) DisplayName() string {
	if strings.TrimSpace(c.Name) == "" {
		return "Unknown Device"
	}
	return c.Name
}

// Picker chooses one candidate. Returning an error cancels selection.
type Picker func(ctx context.Context, candidates []Candidate) (Candidate, error)

// Transport is the host Bluetooth stack as seen by pulse.
type Transport interface {
	// RequestDevice performs the device-selection flow.
	RequestDevice(ctx context.Context, filter *RequestFilter) (DeviceHandle, error)
}

// DeviceHandle is a selected but not necessarily connected device.
type DeviceHandle interface {
	ID() string
	Name() string
	SupportsGATT() bool
	ConnectGATT(ctx context.Context) (Server, error)
}

// Server is a connected GATT server.
type Server interface {
	PrimaryServices(ctx context.Context) ([]Service, error)
	PrimaryService(ctx context.Context, uuid string) (Service, error)
	Disconnect() error
}

// Service is a primary GATT service.
type Service interface {
	UUID() string
	Characteristics(ctx context.Context) ([]Characteristic, error)
	Characteristic(ctx context.Context, uuid string) (Characteristic, error)
}

// Characteristic is a GATT characteristic.
type Characteristic interface {
	UUID() string
	Properties() Properties
	Descriptors(ctx context.Context) ([]Descriptor, error)
	// StartNotifications enables notifications or indications and routes every
	// value to handler. The handler may run on a transport goroutine.
	StartNotifications(ctx context.Context, handler func([]byte)) error
	StopNotifications() error
}

// Descriptor is a GATT descriptor.
type Descriptor interface {
	UUID() string
	ReadValue(ctx context.Context) ([]byte, error)
}
