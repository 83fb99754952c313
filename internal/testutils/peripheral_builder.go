package testutils

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/srg/pulse/internal/bledb"
	"github.com/srg/pulse/internal/device"
)

// DescriptorConfig describes a fake descriptor. Error makes every read fail.
type DescriptorConfig struct {
	UUID    string `json:"uuid"`
	Value   string `json:"value,omitempty"`
	Raw     []byte `json:"raw,omitempty"`
	Error   string `json:"error,omitempty"`
	DelayMs int    `json:"delay_ms,omitempty"`
}

// CharacteristicConfig describes a fake characteristic.
type CharacteristicConfig struct {
	UUID             string             `json:"uuid"`
	Properties       string             `json:"properties,omitempty"` // e.g. "read,notify"
	Descriptors      []DescriptorConfig `json:"descriptors,omitempty"`
	DescriptorsError string             `json:"descriptors_error,omitempty"`
	SubscribeError   string             `json:"subscribe_error,omitempty"`
	DelayMs          int                `json:"delay_ms,omitempty"`
}

// ServiceConfig describes a fake primary service.
type ServiceConfig struct {
	UUID                 string                 `json:"uuid"`
	Characteristics      []CharacteristicConfig `json:"characteristics,omitempty"`
	CharacteristicsError string                 `json:"characteristics_error,omitempty"`
	DelayMs              int                    `json:"delay_ms,omitempty"`
}

// PeripheralProfile is the complete fake device.
type PeripheralProfile struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	NoGATT        bool            `json:"no_gatt,omitempty"`
	ConnectError  string          `json:"connect_error,omitempty"`
	ServicesError string          `json:"services_error,omitempty"`
	Services      []ServiceConfig `json:"services"`
}

// PeripheralBuilder builds an in-memory GATT peripheral.
type PeripheralBuilder struct {
	profile PeripheralProfile
}

// NewPeripheralBuilder creates a builder for an empty, connectable device.
func NewPeripheralBuilder() *PeripheralBuilder {
	return &PeripheralBuilder{
		profile: PeripheralProfile{
			ID:       "AA:BB:CC:DD:EE:FF",
			Name:     "Test HRM",
			Services: []ServiceConfig{},
		},
	}
}

// WithIdentity sets the device id and advertised name.
func (b *PeripheralBuilder) WithIdentity(id, name string) *PeripheralBuilder {
	b.profile.ID = id
	b.profile.Name = name
	return b
}

// WithoutGATT marks the device as not GATT-connectable.
func (b *PeripheralBuilder) WithoutGATT() *PeripheralBuilder {
	b.profile.NoGATT = true
	return b
}

// WithConnectError makes ConnectGATT fail.
func (b *PeripheralBuilder) WithConnectError(msg string) *PeripheralBuilder {
	b.profile.ConnectError = msg
	return b
}

// WithServicesError makes primary service enumeration fail.
func (b *PeripheralBuilder) WithServicesError(msg string) *PeripheralBuilder {
	b.profile.ServicesError = msg
	return b
}

// WithService adds a service to the device profile
func (b *PeripheralBuilder) WithService(uuid string) *PeripheralBuilder {
	b.profile.Services = append(b.profile.Services, ServiceConfig{UUID: uuid})
	return b
}

// WithCharacteristicsError makes characteristic enumeration of the last service fail.
func (b *PeripheralBuilder) WithCharacteristicsError(msg string) *PeripheralBuilder {
	b.lastService().CharacteristicsError = msg
	return b
}

// WithServiceDelay delays characteristic enumeration of the last service.
func (b *PeripheralBuilder) WithServiceDelay(d time.Duration) *PeripheralBuilder {
	b.lastService().DelayMs = int(d / time.Millisecond)
	return b
}

// WithCharacteristic adds a characteristic to the last added service
func (b *PeripheralBuilder) WithCharacteristic(uuid, properties string) *PeripheralBuilder {
	svc := b.lastService()
	svc.Characteristics = append(svc.Characteristics, CharacteristicConfig{UUID: uuid, Properties: properties})
	return b
}

// WithDescriptorsError makes descriptor enumeration of the last characteristic fail.
func (b *PeripheralBuilder) WithDescriptorsError(msg string) *PeripheralBuilder {
	b.lastCharacteristic().DescriptorsError = msg
	return b
}

// WithSubscribeError makes StartNotifications on the last characteristic fail.
func (b *PeripheralBuilder) WithSubscribeError(msg string) *PeripheralBuilder {
	b.lastCharacteristic().SubscribeError = msg
	return b
}

// WithDescriptor adds a readable descriptor to the last characteristic.
func (b *PeripheralBuilder) WithDescriptor(uuid string, value []byte) *PeripheralBuilder {
	c := b.lastCharacteristic()
	c.Descriptors = append(c.Descriptors, DescriptorConfig{UUID: uuid, Raw: value})
	return b
}

// WithSlowDescriptor adds a descriptor whose read takes delay.
func (b *PeripheralBuilder) WithSlowDescriptor(uuid string, value []byte, delay time.Duration) *PeripheralBuilder {
	c := b.lastCharacteristic()
	c.Descriptors = append(c.Descriptors, DescriptorConfig{UUID: uuid, Raw: value, DelayMs: int(delay / time.Millisecond)})
	return b
}

// WithFailingDescriptor adds a descriptor whose every read fails with msg.
func (b *PeripheralBuilder) WithFailingDescriptor(uuid, msg string) *PeripheralBuilder {
	c := b.lastCharacteristic()
	c.Descriptors = append(c.Descriptors, DescriptorConfig{UUID: uuid, Error: msg})
	return b
}

// FromJSON fills the device profile from JSON
func (b *PeripheralBuilder) FromJSON(jsonStrFmt string, args ...interface{}) *PeripheralBuilder {
	jsonStr := fmt.Sprintf(jsonStrFmt, args...)

	profile := b.profile
	profile.Services = nil
	if err := json.Unmarshal([]byte(jsonStr), &profile); err != nil {
		panic(fmt.Sprintf("PeripheralBuilder.FromJSON: failed to unmarshal: %v", err))
	}
	b.profile = profile
	return b
}

// Profile returns the configured profile.
func (b *PeripheralBuilder) Profile() PeripheralProfile {
	return b.profile
}

func (b *PeripheralBuilder) lastService() *ServiceConfig {
	if len(b.profile.Services) == 0 {
		panic("PeripheralBuilder: no service added yet, call WithService first")
	}
	return &b.profile.Services[len(b.profile.Services)-1]
}

func (b *PeripheralBuilder) lastCharacteristic() *CharacteristicConfig {
	svc := b.lastService()
	if len(svc.Characteristics) == 0 {
		panic("PeripheralBuilder: no characteristic added yet, call WithCharacteristic first")
	}
	return &svc.Characteristics[len(svc.Characteristics)-1]
}

// ParseProperties converts "read,notify" style strings to a property bitmask.
// An empty string means read|notify.
func ParseProperties(props string) device.Properties {
	if strings.TrimSpace(props) == "" {
		return device.PropRead | device.PropNotify
	}
	var p device.Properties
	for _, part := range strings.Split(props, ",") {
		switch strings.ToLower(strings.TrimSpace(part)) {
		case "broadcast":
			p |= device.PropBroadcast
		case "read":
			p |= device.PropRead
		case "write-without-response", "writewithoutresponse":
			p |= device.PropWriteWithoutResponse
		case "write":
			p |= device.PropWrite
		case "notify":
			p |= device.PropNotify
		case "indicate":
			p |= device.PropIndicate
		default:
			panic(fmt.Sprintf("ParseProperties: unknown property %q", part))
		}
	}
	return p
}

// Build creates the fake peripheral.
func (b *PeripheralBuilder) Build() *FakePeripheral {
	p := &FakePeripheral{
		profile: b.profile,
		chars:   make(map[string][]*FakeCharacteristic),
	}
	for _, sc := range b.profile.Services {
		svc := &fakeService{cfg: sc}
		for _, cc := range sc.Characteristics {
			c := &FakeCharacteristic{cfg: cc, props: ParseProperties(cc.Properties)}
			for _, dc := range cc.Descriptors {
				c.descs = append(c.descs, &fakeDescriptor{cfg: dc})
			}
			svc.chars = append(svc.chars, c)
			key := bledb.NormalizeUUID(cc.UUID)
			p.chars[key] = append(p.chars[key], c)
		}
		p.services = append(p.services, svc)
	}
	return p
}

// BuildTransport creates the fake peripheral behind a transport that always selects it.
func (b *PeripheralBuilder) BuildTransport() (*FakeTransport, *FakePeripheral) {
	p := b.Build()
	return &FakeTransport{Peripheral: p}, p
}

func errOrNil(msg string) error {
	if msg == "" {
		return nil
	}
	return errors.New(msg)
}
