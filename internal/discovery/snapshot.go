package discovery

import (
	"github.com/srg/pulse/internal/bledb"
	"github.com/srg/pulse/internal/device"
)

// DefaultDeviceName is used when the device does not advertise a name.
const DefaultDeviceName = "Unknown Device"

// DeviceSnapshot is the result of one complete attribute walk. It is never
// mutated after Discover returns; a new walk produces a new snapshot.
type DeviceSnapshot struct {
	Name     string        `json:"name" yaml:"name" cbor:"name"`
	ID       string        `json:"id" yaml:"id" cbor:"id"`
	Services []ServiceInfo `json:"services" yaml:"services" cbor:"services"`
}

// ServiceInfo is a primary service and its characteristics in transport order.
type ServiceInfo struct {
	UUID            string               `json:"uuid" yaml:"uuid" cbor:"uuid"`
	Name            string               `json:"name,omitempty" yaml:"name,omitempty" cbor:"name,omitempty"`
	Characteristics []CharacteristicInfo `json:"characteristics" yaml:"characteristics" cbor:"characteristics"`
}

// CharacteristicInfo is a characteristic annotated with registry metadata.
type CharacteristicInfo struct {
	UUID        string           `json:"uuid" yaml:"uuid" cbor:"uuid"`
	Name        string           `json:"name" yaml:"name" cbor:"name"`
	Description string           `json:"description" yaml:"description" cbor:"description"`
	Properties  PropertySet      `json:"properties" yaml:"properties" cbor:"properties"`
	Descriptors []DescriptorInfo `json:"descriptors" yaml:"descriptors" cbor:"descriptors"`
}

// PropertySet is the subset of GATT properties shown to users.
type PropertySet struct {
	Read     bool `json:"read" yaml:"read" cbor:"read"`
	Write    bool `json:"write" yaml:"write" cbor:"write"`
	Notify   bool `json:"notify" yaml:"notify" cbor:"notify"`
	Indicate bool `json:"indicate" yaml:"indicate" cbor:"indicate"`
}

// NewPropertySet projects a property bitmask. Write-without-response counts as write.
func NewPropertySet(p device.Properties) PropertySet {
	return PropertySet{
		Read:     p.Has(device.PropRead),
		Write:    p.Has(device.PropWrite) || p.Has(device.PropWriteWithoutResponse),
		Notify:   p.Has(device.PropNotify),
		Indicate: p.Has(device.PropIndicate),
	}
}

// DescriptorInfo is a readable descriptor and its value decoded as text.
type DescriptorInfo struct {
	UUID  string `json:"uuid" yaml:"uuid" cbor:"uuid"`
	Name  string `json:"name,omitempty" yaml:"name,omitempty" cbor:"name,omitempty"`
	Value string `json:"value" yaml:"value" cbor:"value"`
}

// ShortID returns the assigned-number window of the characteristic UUID.
func (c CharacteristicInfo) ShortID() string {
	return bledb.ShortID(c.UUID)
}

// FindCharacteristic returns the first characteristic with the given UUID in walk order.
func (s *DeviceSnapshot) FindCharacteristic(uuid string) (ServiceInfo, CharacteristicInfo, bool) {
	if s == nil {
		return ServiceInfo{}, CharacteristicInfo{}, false
	}
	want := bledb.NormalizeUUID(uuid)
	for _, svc := range s.Services {
		for _, c := range svc.Characteristics {
			if bledb.NormalizeUUID(c.UUID) == want {
				return svc, c, true
			}
		}
	}
	return ServiceInfo{}, CharacteristicInfo{}, false
}

// Counts returns the number of services, characteristics and descriptors.
func (s *DeviceSnapshot) Counts() (services, characteristics, descriptors int) {
	if s == nil {
		return 0, 0, 0
	}
	services = len(s.Services)
	for _, svc := range s.Services {
		characteristics += len(svc.Characteristics)
		for _, c := range svc.Characteristics {
			descriptors += len(c.Descriptors)
		}
	}
	return services, characteristics, descriptors
}
