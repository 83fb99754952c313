package bledb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeUUID(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "16-bit short form", input: "180d", expected: "180d"},
		{name: "16-bit with 0x prefix", input: "0x180D", expected: "180d"},
		{name: "Full SIG UUID with dashes", input: "0000180d-0000-1000-8000-00805f9b34fb", expected: "180d"},
		{name: "Full SIG UUID without dashes", input: "0000180d00001000800000805f9b34fb", expected: "180d"},
		{name: "Custom 128-bit UUID", input: "6e400001-b5a3-f393-e0a9-e50e24dcca9e", expected: "6e400001b5a3f393e0a9e50e24dcca9e"},
		{name: "UUID with braces", input: "{0000180D-0000-1000-8000-00805F9B34FB}", expected: "180d"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeUUID(tt.input))
		})
	}
}

func TestCanonicalUUID(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		wantErr  bool
	}{
		{name: "16-bit", input: "2a37", expected: "00002a37-0000-1000-8000-00805f9b34fb"},
		{name: "16-bit with prefix", input: "0x2A37", expected: "00002a37-0000-1000-8000-00805f9b34fb"},
		{name: "32-bit", input: "12345678", expected: "12345678-0000-1000-8000-00805f9b34fb"},
		{name: "already canonical", input: "0000180D-0000-1000-8000-00805F9B34FB", expected: "0000180d-0000-1000-8000-00805f9b34fb"},
		{name: "compact 128-bit", input: "6e400001b5a3f393e0a9e50e24dcca9e", expected: "6e400001-b5a3-f393-e0a9-e50e24dcca9e"},
		{name: "garbage", input: "not-a-uuid", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CanonicalUUID(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestShortID(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "heart rate measurement", input: "00002a37-0000-1000-8000-00805f9b34fb", expected: "2a37"},
		{name: "heart rate service", input: "0000180d-0000-1000-8000-00805f9b34fb", expected: "180d"},
		{name: "short form round trips", input: "2a19", expected: "2a19"},
		// Vendor UUIDs still yield the [4,8) window of their canonical form.
		{name: "vendor uuid", input: "6e400001-b5a3-f393-e0a9-e50e24dcca9e", expected: "0001"},
		{name: "invalid", input: "zz", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ShortID(tt.input))
		})
	}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name     string
		shortID  string
		expected string
	}{
		{name: "heart rate measurement", shortID: "2a37", expected: "Heart Rate Measurement"},
		{name: "body sensor location", shortID: "2a38", expected: "Body Sensor Location"},
		{name: "battery level", shortID: "2a19", expected: "Battery Level"},
		{name: "device name", shortID: "2a00", expected: "Device Name"},
		{name: "uppercase id", shortID: "2A29", expected: "Manufacturer Name String"},
		{name: "unknown", shortID: "ffff", expected: UnknownCharacteristic},
		{name: "empty", shortID: "", expected: UnknownCharacteristic},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := Resolve(tt.shortID)
			assert.Equal(t, tt.expected, info.Name)
		})
	}
}

func TestResolve_UnknownHasEmptyDescription(t *testing.T) {
	info := Resolve("beef")
	assert.Equal(t, Info{Name: UnknownCharacteristic}, info)
}

func TestResolve_KnownHasDescription(t *testing.T) {
	info := Resolve("2a37")
	assert.NotEmpty(t, info.Description)
}

func TestLookupService(t *testing.T) {
	tests := []struct {
		name     string
		uuid     string
		expected string
	}{
		{name: "short heart rate", uuid: "180d", expected: "Heart Rate"},
		{name: "full heart rate", uuid: "0000180d-0000-1000-8000-00805f9b34fb", expected: "Heart Rate"},
		{name: "battery", uuid: "0x180F", expected: "Battery Service"},
		{name: "device information", uuid: "180a", expected: "Device Information"},
		{name: "unknown", uuid: "6e400001-b5a3-f393-e0a9-e50e24dcca9e", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, LookupService(tt.uuid))
		})
	}
}

func TestLookupCharacteristicAndDescriptor(t *testing.T) {
	assert.Equal(t, "Heart Rate Measurement", LookupCharacteristic("00002a37-0000-1000-8000-00805f9b34fb"))
	assert.Equal(t, "Battery Level", LookupCharacteristic("2a19"))
	assert.Equal(t, "", LookupCharacteristic("ffff"))

	assert.Equal(t, "Client Characteristic Configuration", LookupDescriptor("2902"))
	assert.Equal(t, "Characteristic User Descriptor", LookupDescriptor("00002901-0000-1000-8000-00805f9b34fb"))
	assert.Equal(t, "", LookupDescriptor("ffff"))
}

func TestEntries_PreserveFileOrder(t *testing.T) {
	services := Default().Entries(KindService)
	require.NotEmpty(t, services)

	ids := make([]string, len(services))
	for i, e := range services {
		ids[i] = e.ID
	}
	assert.Equal(t, []string{"1800", "1801", "180a", "180d", "180f"}, ids)
	assert.Nil(t, Default().Entries(Kind("bogus")))
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr bool
	}{
		{
			name: "valid",
			data: "characteristics:\n  - id: \"0x2A37\"\n    name: HRM\n",
		},
		{
			name:    "duplicate id",
			data:    "characteristics:\n  - id: \"2a37\"\n    name: A\n  - id: \"2A37\"\n    name: B\n",
			wantErr: true,
		},
		{
			name:    "empty id",
			data:    "services:\n  - id: \"\"\n    name: A\n",
			wantErr: true,
		},
		{
			name:    "malformed yaml",
			data:    "services: [",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := Load([]byte(tt.data))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "HRM", r.Resolve("2a37").Name)
			assert.Equal(t, UnknownCharacteristic, r.Resolve("2a19").Name)
		})
	}
}

func TestPackageListings(t *testing.T) {
	assert.Len(t, Services(), 5)
	assert.Equal(t, "2a00", Characteristics()[0].ID)
	assert.Equal(t, "2900", Descriptors()[0].ID)
}
