package device

import (
	"errors"
	"fmt"
	"strings"
)

// NotFoundError represents an error when a GATT resource is not found
type NotFoundError struct {
	Resource string   // "service", "characteristic", "descriptor"
	UUIDs    []string // parent first, e.g. [serviceUUID, charUUID]
}

func (e *NotFoundError) Error() string {
	if len(e.UUIDs) == 0 {
		return fmt.Sprintf("%s not found", e.Resource)
	}
	if len(e.UUIDs) == 1 {
		return fmt.Sprintf("%s %q not found", e.Resource, e.UUIDs[0])
	}
	parent := "service"
	if e.Resource == "descriptor" {
		parent = "characteristic"
	}
	return fmt.Sprintf("%s %q not found in %s %q", e.Resource, e.UUIDs[len(e.UUIDs)-1], parent, e.UUIDs[0])
}

// ConnectionState represents the specific kind of connection failure
type ConnectionState string

const (
	NotConnected     ConnectionState = "not_connected"
	AlreadyConnected ConnectionState = "already_connected"
	ConnectFailed    ConnectionState = "connect_failed"
	BluetoothOff     ConnectionState = "bluetooth_off"
)

// ConnectionError is returned when the GATT connection cannot be established or is lost.
type ConnectionError struct {
	State ConnectionState
	Msg   string
	Err   error
}

func (e *ConnectionError) Error() string {
	if e == nil {
		return "<nil>"
	}
	s := string(e.State)
	if e.Msg != "" {
		s = fmt.Sprintf("%s: %s", s, e.Msg)
	}
	if e.Err != nil {
		s = fmt.Sprintf("%s: %v", s, e.Err)
	}
	return s
}

// Is allows errors.Is to compare ConnectionError values by State
func (e *ConnectionError) Is(target error) bool {
	if e == nil {
		return false
	}
	t, ok := target.(*ConnectionError)
	if !ok {
		return false
	}
	return e.State == t.State
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// Predefined sentinel errors
var (
	ErrNotConnected     = &ConnectionError{State: NotConnected}
	ErrAlreadyConnected = &ConnectionError{State: AlreadyConnected}
	ErrBluetoothOff     = &ConnectionError{State: BluetoothOff}

	ErrNoDevice    = errors.New("no device selected")
	ErrTimeout     = errors.New("timeout")
	ErrUnsupported = errors.New("unsupported")
)

// IsConnectionState reports whether err is a ConnectionError with the given state
func IsConnectionState(err error, state ConnectionState) bool {
	var cerr *ConnectionError
	if errors.As(err, &cerr) {
		return cerr.State == state
	}
	return false
}

// SelectionError means no device was chosen: nothing matched, or the user cancelled.
type SelectionError struct {
	Reason string
	Err    error
}

func (e *SelectionError) Error() string {
	msg := "device selection failed"
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SelectionError) Unwrap() error { return e.Err }

// TransportCapabilityError means the device or transport lacks a required capability,
// such as GATT connectivity or notifications on a characteristic.
type TransportCapabilityError struct {
	Capability string
	Subject    string
}

func (e *TransportCapabilityError) Error() string {
	if e.Subject == "" {
		return fmt.Sprintf("transport does not support %s", e.Capability)
	}
	return fmt.Sprintf("%s does not support %s", e.Subject, e.Capability)
}

func (e *TransportCapabilityError) Is(target error) bool {
	return target == ErrUnsupported
}

// DiscoveryError means the top-level service enumeration failed and no snapshot was produced.
type DiscoveryError struct {
	DeviceID string
	Err      error
}

func (e *DiscoveryError) Error() string {
	if e.DeviceID == "" {
		return fmt.Sprintf("service discovery failed: %v", e.Err)
	}
	return fmt.Sprintf("service discovery failed for %s: %v", e.DeviceID, e.Err)
}

func (e *DiscoveryError) Unwrap() error { return e.Err }

// PartialDiscoveryFault reports a node-level failure during an attribute walk.
// The walk continues; only the affected sequence is truncated.
type PartialDiscoveryFault struct {
	Resource string   // "characteristic" or "descriptor"
	Op       string   // "enumerate" or "read"
	UUIDs    []string // path from the service down to the failing node
	Err      error
}

func (e *PartialDiscoveryFault) Error() string {
	return fmt.Sprintf("partial discovery: %s %s failed at %s: %v",
		e.Resource, e.Op, strings.Join(e.UUIDs, "/"), e.Err)
}

func (e *PartialDiscoveryFault) Unwrap() error { return e.Err }

// IsTerminal reports whether err aborts a session before it produces anything:
// selection, capability and connection failures.
func IsTerminal(err error) bool {
	var (
		selErr  *SelectionError
		capErr  *TransportCapabilityError
		connErr *ConnectionError
	)
	switch {
	case err == nil:
		return false
	case errors.As(err, &selErr), errors.As(err, &capErr), errors.As(err, &connErr):
		return true
	default:
		return false
	}
}
