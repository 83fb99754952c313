package device

import "strings"

// Properties is the GATT characteristic property bitmask.
type Properties uint8

const (
	PropBroadcast            Properties = 0x01
	PropRead                 Properties = 0x02
	PropWriteWithoutResponse Properties = 0x04
	PropWrite                Properties = 0x08
	PropNotify               Properties = 0x10
	PropIndicate             Properties = 0x20
	PropSignedWrite          Properties = 0x40
	PropExtended             Properties = 0x80
)

var propertyNames = []struct {
	flag Properties
	name string
}{
	{PropBroadcast, "broadcast"},
	{PropRead, "read"},
	{PropWriteWithoutResponse, "writeWithoutResponse"},
	{PropWrite, "write"},
	{PropNotify, "notify"},
	{PropIndicate, "indicate"},
	{PropSignedWrite, "authenticatedSignedWrites"},
	{PropExtended, "extendedProperties"},
}

// Has reports whether all bits of flag are set.
func (p Properties) Has(flag Properties) bool {
	return p&flag == flag
}

// CanSubscribe reports whether the characteristic supports notify or indicate.
func (p Properties) CanSubscribe() bool {
	return p&(PropNotify|PropIndicate) != 0
}

// Names lists the set properties in bit order.
func (p Properties) Names() []string {
	names := make([]string, 0, len(propertyNames))
	for _, pn := range propertyNames {
		if p.Has(pn.flag) {
			names = append(names, pn.name)
		}
	}
	return names
}

func (p Properties) String() string {
	if p == 0 {
		return "none"
	}
	return strings.Join(p.Names(), "|")
}
