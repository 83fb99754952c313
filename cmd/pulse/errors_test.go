package main

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/srg/pulse/internal/device"
	"github.com/srg/pulse/internal/hrm"
)

func TestFormatUserError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: ""},
		{name: "bluetooth off", err: fmt.Errorf("%w: powered off", device.ErrBluetoothOff), want: "Bluetooth is turned off; enable it and try again"},
		{name: "timeout", err: fmt.Errorf("scan: %w", context.DeadlineExceeded), want: "operation timed out"},
		{name: "selection", err: &device.SelectionError{Reason: "selection cancelled", Err: errors.New("^C")}, want: "no device selected: selection cancelled"},
		{name: "capability", err: &device.TransportCapabilityError{Capability: "GATT", Subject: "device AA"}, want: "device AA does not support GATT"},
		{name: "connect", err: &device.ConnectionError{State: device.ConnectFailed, Msg: `address "AA"`, Err: errors.New("refused")}, want: `could not connect: connect_failed: address "AA": refused`},
		{name: "connection lost", err: ErrConnectionLost, want: "connection to the device was lost"},
		{name: "discovery", err: &device.DiscoveryError{DeviceID: "AA", Err: errors.New("att: busy")}, want: "could not list services of AA: att: busy"},
		{name: "decode", err: &hrm.DecodeError{Reason: "dangling RR-interval byte"}, want: "malformed heart rate measurement: dangling RR-interval byte"},
		{name: "other", err: errors.New("boom"), want: "boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatUserError(tt.err))
		})
	}
}
