// Package mocks holds testify mocks for the go-ble types the transport adapter consumes.
package mocks

import (
	ble "github.com/go-ble/ble"
	"github.com/stretchr/testify/mock"
)

// MockClient mocks the GATT client operations used by the go-ble adapter.
type MockClient struct {
	mock.Mock
}

func (m *MockClient) DiscoverServices(filter []ble.UUID) ([]*ble.Service, error) {
	args := m.Called(filter)
	if v := args.Get(0); v != nil {
		return v.([]*ble.Service), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockClient) DiscoverCharacteristics(filter []ble.UUID, s *ble.Service) ([]*ble.Characteristic, error) {
	args := m.Called(filter, s)
	if v := args.Get(0); v != nil {
		return v.([]*ble.Characteristic), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockClient) DiscoverDescriptors(filter []ble.UUID, c *ble.Characteristic) ([]*ble.Descriptor, error) {
	args := m.Called(filter, c)
	if v := args.Get(0); v != nil {
		return v.([]*ble.Descriptor), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockClient) ReadDescriptor(d *ble.Descriptor) ([]byte, error) {
	args := m.Called(d)
	if v := args.Get(0); v != nil {
		return v.([]byte), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockClient) Subscribe(c *ble.Characteristic, ind bool, h ble.NotificationHandler) error {
	args := m.Called(c, ind, h)
	return args.Error(0)
}

func (m *MockClient) Unsubscribe(c *ble.Characteristic, ind bool) error {
	args := m.Called(c, ind)
	return args.Error(0)
}

func (m *MockClient) CancelConnection() error {
	args := m.Called()
	return args.Error(0)
}
