package llm

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockProvider is a testify mock of Provider for use in tests and offline
// demos.
//
//	m := new(llm.MockProvider)
//	m.On("Invoke", mock.Anything, mock.Anything, "hi").Return("hello", nil)
type MockProvider struct {
	mock.Mock
}

// Invoke records the call and returns the configured response.
func (m *MockProvider) Invoke(ctx context.Context, system, user string) (string, error) {
	args := m.Called(ctx, system, user)
	return args.String(0), args.Error(1)
}

// Model returns "mock".
func (m *MockProvider) Model() string {
	return "mock"
}
