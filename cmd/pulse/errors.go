package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/srg/pulse/internal/device"
	"github.com/srg/pulse/internal/hrm"
)

// Command-level errors
var (
	// ErrConnectionLost indicates the BLE connection was unexpectedly lost during operation.
	// This is distinct from device.ErrNotConnected, which indicates an attempt to use
	// a device that was never connected or was already disconnected.
	ErrConnectionLost = errors.New("connection lost")
)

// FormatUserError turns the error taxonomy into a one-line message for the terminal.
func FormatUserError(err error) string {
	if err == nil {
		return ""
	}

	var (
		selErr   *device.SelectionError
		capErr   *device.TransportCapabilityError
		discErr  *device.DiscoveryError
		decErr   *hrm.DecodeError
		notFound *device.NotFoundError
	)
	switch {
	case errors.Is(err, device.ErrBluetoothOff):
		return "Bluetooth is turned off; enable it and try again"
	case errors.Is(err, context.DeadlineExceeded):
		return "operation timed out"
	case errors.As(err, &selErr):
		if selErr.Reason != "" {
			return "no device selected: " + selErr.Reason
		}
		return "no device selected"
	case errors.As(err, &capErr):
		return capErr.Error()
	case device.IsConnectionState(err, device.ConnectFailed):
		return "could not connect: " + err.Error()
	case errors.Is(err, ErrConnectionLost), errors.Is(err, device.ErrNotConnected):
		return "connection to the device was lost"
	case errors.As(err, &discErr):
		return fmt.Sprintf("could not list services of %s: %v", discErr.DeviceID, discErr.Err)
	case errors.As(err, &notFound):
		return err.Error()
	case errors.As(err, &decErr):
		return "malformed heart rate measurement: " + decErr.Reason
	default:
		return err.Error()
	}
}
