// Package backendtest provides a testify mock of backend.Backend for workflow tests.
package backendtest

import (
	"context"

	"github.com/stretchr/testify/mock"

	"gotest-mcp/internal/backend"
)

// MockBackend is a mock backend.Backend.
type MockBackend struct {
	mock.Mock
}

var _ backend.Backend = (*MockBackend)(nil)

func (m *MockBackend) Collect(ctx context.Context, req backend.CollectRequest) (*backend.Collection, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*backend.Collection), args.Error(1)
}

func (m *MockBackend) Run(ctx context.Context, req backend.RunRequest) (*backend.RunReport, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*backend.RunReport), args.Error(1)
}
