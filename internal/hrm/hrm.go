// Package hrm decodes the Heart Rate Measurement characteristic (0x2A37).
//
// The payload is a flags byte followed by fields whose presence and width the
// flags select:
//
//	bit 0  heart rate value is uint16 (else uint8)
//	bit 1  sensor contact feature supported
//	bit 2  sensor contact detected
//	bit 3  energy expended present (uint16, kJ)
//	bit 4  one or more RR intervals present (uint16 each, 1/1024 s)
//
// Bits 5-7 are reserved and ignored. All multi-byte fields are little-endian.
package hrm

import (
	"encoding/binary"
	"fmt"
	"strings"
	"time"
)

// Flag bits of the first payload byte.
const (
	FlagHeartRate16     byte = 0x01
	FlagContactSupport  byte = 0x02
	FlagContactDetected byte = 0x04
	FlagEnergyExpended  byte = 0x08
	FlagRRIntervals     byte = 0x10
)

// RRResolution is the number of RR-interval ticks per second.
const RRResolution = 1024.0

// Measurement is one decoded Heart Rate Measurement notification.
type Measurement struct {
	BeatsPerMinute         uint16    `json:"beats_per_minute" yaml:"beats_per_minute"`
	SensorContactSupported bool      `json:"sensor_contact_supported" yaml:"sensor_contact_supported"`
	SensorContactDetected  bool      `json:"sensor_contact_detected" yaml:"sensor_contact_detected"`
	EnergyExpended         *uint16   `json:"energy_expended_kj,omitempty" yaml:"energy_expended_kj,omitempty"`
	RRIntervals            []float64 `json:"rr_intervals,omitempty" yaml:"rr_intervals,omitempty"`
}

// DecodeError reports a payload that is shorter than its flags require,
// or has a trailing byte that cannot form an RR interval.
type DecodeError struct {
	Reason string
	Offset int
	Need   int
	Have   int
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("heart rate measurement: %s (offset %d: need %d bytes, have %d)", e.Reason, e.Offset, e.Need, e.Have)
}

// Decode parses a Heart Rate Measurement payload. It is pure and never panics.
func Decode(data []byte) (Measurement, error) {
	var m Measurement
	if len(data) < 1 {
		return m, &DecodeError{Reason: "missing flags", Need: 1, Have: 0}
	}

	flags := data[0]
	m.SensorContactSupported = flags&FlagContactSupport != 0
	m.SensorContactDetected = flags&FlagContactDetected != 0
	off := 1

	if flags&FlagHeartRate16 != 0 {
		if len(data)-off < 2 {
			return Measurement{}, &DecodeError{Reason: "truncated 16-bit heart rate", Offset: off, Need: 2, Have: len(data) - off}
		}
		m.BeatsPerMinute = binary.LittleEndian.Uint16(data[off:])
		off += 2
	} else {
		if len(data)-off < 1 {
			return Measurement{}, &DecodeError{Reason: "truncated 8-bit heart rate", Offset: off, Need: 1, Have: 0}
		}
		m.BeatsPerMinute = uint16(data[off])
		off++
	}

	if flags&FlagEnergyExpended != 0 {
		if len(data)-off < 2 {
			return Measurement{}, &DecodeError{Reason: "truncated energy expended", Offset: off, Need: 2, Have: len(data) - off}
		}
		energy := binary.LittleEndian.Uint16(data[off:])
		m.EnergyExpended = &energy
		off += 2
	}

	if flags&FlagRRIntervals != 0 {
		rest := data[off:]
		// a set RR flag promises at least one interval
		if len(rest) == 0 {
			return Measurement{}, &DecodeError{Reason: "RR flag set without intervals", Offset: off, Need: 2, Have: 0}
		}
		if len(rest)%2 != 0 {
			return Measurement{}, &DecodeError{Reason: "dangling RR-interval byte", Offset: len(data) - 1, Need: 2, Have: 1}
		}
		m.RRIntervals = make([]float64, 0, len(rest)/2)
		for i := 0; i < len(rest); i += 2 {
			m.RRIntervals = append(m.RRIntervals, float64(binary.LittleEndian.Uint16(rest[i:]))/RRResolution)
		}
	}

	return m, nil
}

// ContactLost reports whether the sensor can detect contact and currently has none.
func (m Measurement) ContactLost() bool {
	return m.SensorContactSupported && !m.SensorContactDetected
}

// RRDurations returns the RR intervals as durations.
func (m Measurement) RRDurations() []time.Duration {
	if len(m.RRIntervals) == 0 {
		return nil
	}
	out := make([]time.Duration, len(m.RRIntervals))
	for i, rr := range m.RRIntervals {
		out[i] = time.Duration(rr * float64(time.Second))
	}
	return out
}

func (m Measurement) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d bpm", m.BeatsPerMinute)
	if m.SensorContactSupported {
		if m.SensorContactDetected {
			sb.WriteString(" contact=yes")
		} else {
			sb.WriteString(" contact=no")
		}
	}
	if m.EnergyExpended != nil {
		fmt.Fprintf(&sb, " energy=%dkJ", *m.EnergyExpended)
	}
	if len(m.RRIntervals) > 0 {
		parts := make([]string, len(m.RRIntervals))
		for i, rr := range m.RRIntervals {
			parts[i] = fmt.Sprintf("%.3f", rr)
		}
		fmt.Fprintf(&sb, " rr=[%s]s", strings.Join(parts, " "))
	}
	return sb.String()
}
