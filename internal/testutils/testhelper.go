package testutils

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"
)

type TestHelper struct {
	T      *testing.T
	Logger *logrus.Logger
	// Logs captures everything Logger writes.
	Logs *bytes.Buffer
}

// NewTestHelper creates a test helper with a debug logger writing to an in-memory buffer.
func NewTestHelper(t *testing.T) *TestHelper {
	buf := &bytes.Buffer{}
	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel) // enable debug logs to track execution flow
	logger.SetOutput(buf)
	logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true, DisableColors: true})

	t.Cleanup(func() {
		if t.Failed() {
			t.Logf("captured logs:\n%s", buf.String())
		}
	})
	return &TestHelper{T: t, Logger: logger, Logs: buf}
}

// CreateHeartRatePeripheral returns a builder for a typical heart-rate strap:
// generic access, battery and heart rate services.
func CreateHeartRatePeripheral() *PeripheralBuilder {
	return NewPeripheralBuilder().FromJSON(`
	{
		"id": "AA:BB:CC:DD:EE:FF",
		"name": "Test HRM",
		"services": [
			{
				"uuid": "00001800-0000-1000-8000-00805f9b34fb",
				"characteristics": [
					{ "uuid": "00002a00-0000-1000-8000-00805f9b34fb", "properties": "read" }
				]
			},
			{
				"uuid": "0000180d-0000-1000-8000-00805f9b34fb",
				"characteristics": [
					{
						"uuid": "00002a37-0000-1000-8000-00805f9b34fb",
						"properties": "notify",
						"descriptors": [
							{ "uuid": "00002902-0000-1000-8000-00805f9b34fb", "raw": [0, 0] }
						]
					},
					{ "uuid": "00002a38-0000-1000-8000-00805f9b34fb", "properties": "read" }
				]
			},
			{
				"uuid": "0000180f-0000-1000-8000-00805f9b34fb",
				"characteristics": [
					{ "uuid": "00002a19-0000-1000-8000-00805f9b34fb", "properties": "read,notify" }
				]
			}
		]
	}`)
}

// CreatePeripheralFromJSON returns a builder filled from JSON.
func CreatePeripheralFromJSON(jsonStrFmt string, args ...interface{}) *PeripheralBuilder {
	return NewPeripheralBuilder().FromJSON(jsonStrFmt, args...)
}
