package testutils

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srg/pulse/internal/device"
)

func TestPeripheralBuilder_Fluent(t *testing.T) {
	p := NewPeripheralBuilder().
		WithIdentity("11:22:33:44:55:66", "Strap").
		WithService("180d").
		WithCharacteristic("2a37", "notify").
		WithDescriptor("2902", []byte{1, 0}).
		WithFailingDescriptor("2901", "read not permitted").
		Build()

	ctx := context.Background()
	assert.Equal(t, "Strap", p.Name())
	assert.True(t, p.SupportsGATT())

	server, err := p.ConnectGATT(ctx)
	require.NoError(t, err)

	svc, err := server.PrimaryService(ctx, "0000180d-0000-1000-8000-00805f9b34fb")
	require.NoError(t, err)

	char, err := svc.Characteristic(ctx, "2A37")
	require.NoError(t, err)
	assert.Equal(t, device.PropNotify, char.Properties())

	descs, err := char.Descriptors(ctx)
	require.NoError(t, err)
	require.Len(t, descs, 2)

	v, err := descs[0].ReadValue(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 0}, v)

	_, err = descs[1].ReadValue(ctx)
	assert.EqualError(t, err, "read not permitted")

	_, err = server.PrimaryService(ctx, "180f")
	var nf *device.NotFoundError
	assert.True(t, errors.As(err, &nf))
}

func TestPeripheralBuilder_FromJSON(t *testing.T) {
	p := CreateHeartRatePeripheral().Build()
	server, err := p.ConnectGATT(context.Background())
	require.NoError(t, err)

	services, err := server.PrimaryServices(context.Background())
	require.NoError(t, err)
	assert.Len(t, services, 3)
	assert.Equal(t, 1, p.ServiceEnumerations())
	assert.Equal(t, 1, p.Connects())
}

func TestFakeCharacteristic_Notifications(t *testing.T) {
	p := CreateHeartRatePeripheral().Build()
	c := p.Characteristic(device.HeartRateMeasurementUUID)
	require.NotNil(t, c)

	assert.False(t, p.Emit(device.HeartRateMeasurementUUID, []byte{0, 60}))

	var got [][]byte
	require.NoError(t, c.StartNotifications(context.Background(), func(b []byte) { got = append(got, b) }))
	assert.True(t, p.Emit(device.HeartRateMeasurementUUID, []byte{0, 60}))
	require.NoError(t, c.StopNotifications())
	assert.False(t, c.Emit([]byte{0, 61}))

	assert.Equal(t, [][]byte{{0, 60}}, got)
	assert.NotNil(t, c.LastHandler())
	starts, stops := c.Counts()
	assert.Equal(t, 1, starts)
	assert.Equal(t, 1, stops)
}

func TestFakeDescriptor_DelayHonoursContext(t *testing.T) {
	p := NewPeripheralBuilder().
		WithService("180d").
		WithCharacteristic("2a37", "notify").
		WithSlowDescriptor("2901", []byte("slow"), time.Second).
		Build()

	server, _ := p.ConnectGATT(context.Background())
	svc, _ := server.PrimaryService(context.Background(), "180d")
	char, _ := svc.Characteristic(context.Background(), "2a37")
	descs, _ := char.Descriptors(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := descs[0].ReadValue(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestParseProperties(t *testing.T) {
	assert.Equal(t, device.PropRead|device.PropNotify, ParseProperties(""))
	assert.Equal(t, device.PropIndicate|device.PropWrite, ParseProperties("indicate, write"))
	assert.Panics(t, func() { ParseProperties("fly") })
}

func TestFakeTransport(t *testing.T) {
	transport, p := CreateHeartRatePeripheral().BuildTransport()
	filter := &device.RequestFilter{AcceptAllDevices: true}

	h, err := transport.RequestDevice(context.Background(), filter)
	require.NoError(t, err)
	assert.Same(t, p, h)
	assert.Equal(t, []*device.RequestFilter{filter}, transport.Filters())

	empty := &FakeTransport{}
	_, err = empty.RequestDevice(context.Background(), filter)
	assert.ErrorIs(t, err, device.ErrNoDevice)
}
