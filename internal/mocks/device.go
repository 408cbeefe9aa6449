package mocks

import (
	"context"

	"github.com/cradoe/walletguard/internal/device"
	"github.com/cradoe/walletguard/internal/token"
	"github.com/stretchr/testify/mock"
)

// MockDevice implements device.Contract for engine tests that need to script
// device responses without a simulator balance.
type MockDevice struct {
	mock.Mock
}

func (m *MockDevice) Transmit(ctx context.Context, tok *token.PaymentToken, amount float64, pin string) (*device.Result, error) {
	args := m.Called(tok, amount, pin)
	result, _ := args.Get(0).(*device.Result)
	return result, args.Error(1)
}

func (m *MockDevice) TopUp(ctx context.Context, tok *token.PaymentToken, amount float64, pin string) (*device.Result, error) {
	args := m.Called(tok, amount, pin)
	result, _ := args.Get(0).(*device.Result)
	return result, args.Error(1)
}

func (m *MockDevice) GetBalance(ctx context.Context, cardID string) (float64, error) {
	args := m.Called(cardID)
	return args.Get(0).(float64), args.Error(1)
}
