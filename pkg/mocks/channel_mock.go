// Package mocks provides testify mocks for the engine's collaborator
// interfaces.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/dripline/dripline/pkg/models"
	"github.com/dripline/dripline/pkg/protocol"
)

// MockChannelAdapter is a mock implementation of protocol.ChannelAdapter.
type MockChannelAdapter struct {
	mock.Mock

	AdapterID string
}

func (m *MockChannelAdapter) ID() string {
	return m.AdapterID
}

func (m *MockChannelAdapter) Deliver(ctx context.Context, lead *models.Lead, config map[string]any) protocol.DispatchResult {
	args := m.Called(ctx, lead, config)

	result, _ := args.Get(0).(protocol.DispatchResult)

	return result
}

// MockConnectionChecker is a mock implementation of
// protocol.ConnectionChecker.
type MockConnectionChecker struct {
	mock.Mock
}

func (m *MockConnectionChecker) ConnectionAccepted(ctx context.Context, lead *models.Lead) (bool, error) {
	args := m.Called(ctx, lead)

	return args.Bool(0), args.Error(1)
}
