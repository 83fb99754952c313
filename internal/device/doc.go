// Package device defines the transport port pulse talks to: device selection,
// GATT connection and the service, characteristic and descriptor handles
// exposed by a connected peripheral.
//
// Implementations live in sub-packages (see goble). Everything above this
// package depends only on these interfaces and the error types declared here.
package device
