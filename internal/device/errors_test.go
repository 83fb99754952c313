package device

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNotFoundError_Messages(t *testing.T) {
	tests := []struct {
		name     string
		err      *NotFoundError
		expected string
	}{
		{name: "no uuids", err: &NotFoundError{Resource: "service"}, expected: "service not found"},
		{name: "single", err: &NotFoundError{Resource: "service", UUIDs: []string{"180d"}}, expected: `service "180d" not found`},
		{
			name:     "characteristic in service",
			err:      &NotFoundError{Resource: "characteristic", UUIDs: []string{"180d", "2a37"}},
			expected: `characteristic "2a37" not found in service "180d"`,
		},
		{
			name:     "descriptor in characteristic",
			err:      &NotFoundError{Resource: "descriptor", UUIDs: []string{"2a37", "2902"}},
			expected: `descriptor "2902" not found in characteristic "2a37"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestConnectionError_IsByState(t *testing.T) {
	err := fmt.Errorf("dial: %w", &ConnectionError{State: NotConnected, Msg: "link lost"})

	assert.ErrorIs(t, err, ErrNotConnected)
	assert.NotErrorIs(t, err, ErrAlreadyConnected)
	assert.True(t, IsConnectionState(err, NotConnected))
	assert.False(t, IsConnectionState(errors.New("x"), NotConnected))
	assert.Equal(t, "not_connected: link lost", errors.Unwrap(err).Error())
}

func TestConnectionError_UnwrapsCause(t *testing.T) {
	cause := errors.New("hci: timeout")
	err := &ConnectionError{State: ConnectFailed, Err: cause}

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "connect_failed: hci: timeout", err.Error())
}

func TestTransportCapabilityError_IsUnsupported(t *testing.T) {
	err := &TransportCapabilityError{Capability: "notifications", Subject: "characteristic 2a38"}

	assert.ErrorIs(t, err, ErrUnsupported)
	assert.Equal(t, "characteristic 2a38 does not support notifications", err.Error())
	assert.Equal(t, "transport does not support GATT", (&TransportCapabilityError{Capability: "GATT"}).Error())
}

func TestPartialDiscoveryFault(t *testing.T) {
	cause := errors.New("att: read not permitted")
	err := &PartialDiscoveryFault{Resource: "descriptor", Op: "read", UUIDs: []string{"180d", "2a37", "2901"}, Err: cause}

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "180d/2a37/2901")
}

func TestIsTerminal(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{name: "nil", err: nil, expected: false},
		{name: "selection", err: &SelectionError{Reason: "cancelled"}, expected: true},
		{name: "capability", err: &TransportCapabilityError{Capability: "GATT"}, expected: true},
		{name: "connection wrapped", err: fmt.Errorf("start: %w", ErrNotConnected), expected: true},
		{name: "discovery", err: &DiscoveryError{Err: errors.New("boom")}, expected: false},
		{name: "partial", err: &PartialDiscoveryFault{Err: errors.New("boom")}, expected: false},
		{name: "plain", err: errors.New("boom"), expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsTerminal(tt.err))
		})
	}
}

func TestSelectionError_Unwrap(t *testing.T) {
	err := &SelectionError{Reason: "no devices found", Err: ErrNoDevice}
	assert.ErrorIs(t, err, ErrNoDevice)
	assert.Equal(t, "device selection failed: no devices found: no device selected", err.Error())
}
