package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/srg/pulse/internal/discovery"
	"github.com/srg/pulse/internal/hrm"
	"github.com/srg/pulse/internal/notify"
	"github.com/srg/pulse/internal/testutils"
)

func TestRendererMeasurement(t *testing.T) {
	at := time.Date(2024, 5, 1, 9, 30, 15, 250*int(time.Millisecond), time.UTC)
	energy := uint16(42)

	tests := []struct {
		name string
		m    hrm.Measurement
		want string
	}{
		{
			name: "bpm only",
			m:    hrm.Measurement{BeatsPerMinute: 64},
			want: "09:30:15.250   64 bpm\n",
		},
		{
			name: "contact lost",
			m:    hrm.Measurement{BeatsPerMinute: 120, SensorContactSupported: true},
			want: "09:30:15.250  120 bpm  no contact\n",
		},
		{
			name: "everything",
			m: hrm.Measurement{
				BeatsPerMinute:         58,
				SensorContactSupported: true,
				SensorContactDetected:  true,
				EnergyExpended:         &energy,
				RRIntervals:            []float64{1.0, 0.5},
			},
			want: "09:30:15.250   58 bpm  contact  42 kJ  rr 1000/500 ms\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			newRenderer(&buf, false).measurement(notify.Event{At: at, Measurement: tt.m})
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestRendererSnapshot(t *testing.T) {
	snap := &discovery.DeviceSnapshot{
		Name: "Strap",
		ID:   "AA:BB",
		Services: []discovery.ServiceInfo{
			{
				UUID: "0000180d-0000-1000-8000-00805f9b34fb",
				Name: "Heart Rate",
				Characteristics: []discovery.CharacteristicInfo{
					{
						UUID:        "00002a37-0000-1000-8000-00805f9b34fb",
						Name:        "Heart Rate Measurement",
						Description: "Heart rate samples",
						Properties:  discovery.PropertySet{Notify: true},
						Descriptors: []discovery.DescriptorInfo{
							{UUID: "00002902-0000-1000-8000-00805f9b34fb", Name: "Client Characteristic Configuration", Value: "\x01\x00"},
						},
					},
				},
			},
			{
				UUID: "6e400001-b5a3-f393-e0a9-e50e24dcca9e",
				Characteristics: []discovery.CharacteristicInfo{
					{UUID: "6e400002-b5a3-f393-e0a9-e50e24dcca9e", Name: "Unknown Characteristic"},
				},
			},
		},
	}

	var buf bytes.Buffer
	newRenderer(&buf, false).snapshot(snap)

	testutils.NewTextAsserter(t).Assert(buf.String(), `Device: Strap (AA:BB)
Services: 2, characteristics: 2, descriptors: 1

[1] Service 180d (Heart Rate)
  [1.1] Characteristic 2a37 (Heart Rate Measurement) [notify]
        Heart rate samples
        Descriptor 2902 (Client Characteristic Configuration): "\x01\x00"

[2] Service 6e400001b5a3f393e0a9e50e24dcca9e
  [2.1] Characteristic 0002 (Unknown Characteristic) [none]
`)
}

func TestRendererFault(t *testing.T) {
	var buf bytes.Buffer
	newRenderer(&buf, false).fault("heart rate measurement: truncated")
	assert.Equal(t, "! heart rate measurement: truncated\n", buf.String())
}

func TestEncodeSnapshotRejectsUnknownFormat(t *testing.T) {
	err := encodeSnapshot(&bytes.Buffer{}, &discovery.DeviceSnapshot{}, "xml")
	assert.ErrorContains(t, err, "invalid format 'xml'")
}

func TestPropertyList(t *testing.T) {
	assert.Equal(t, "none", propertyList(discovery.PropertySet{}))
	assert.Equal(t, "read,write,notify,indicate", propertyList(discovery.PropertySet{Read: true, Write: true, Notify: true, Indicate: true}))
}
