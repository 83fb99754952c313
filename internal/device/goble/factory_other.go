//go:build !darwin && !linux

package goble

import (
	"fmt"
	"runtime"

	ble "github.com/go-ble/ble"

	"github.com/srg/pulse/internal/device"
)

func defaultDevice() (ble.Device, error) {
	return nil, fmt.Errorf("%w: no Bluetooth backend for %s", device.ErrUnsupported, runtime.GOOS)
}
