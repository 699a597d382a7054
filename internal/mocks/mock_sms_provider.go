package mocks

import (
	"context"

	"github.com/ruralshare/authflow/domain"
)

// MockSMSConfirmation implements domain.SMSConfirmation for testing
type MockSMSConfirmation struct {
	ConfirmFunc func(ctx context.Context, code string) error

	// Code is the accepted code when ConfirmFunc is not overridden.
	Code     string
	Confirms int
}

func (m *MockSMSConfirmation) Confirm(ctx context.Context, code string) error {
	m.Confirms++
	if m.ConfirmFunc != nil {
		return m.ConfirmFunc(ctx, code)
	}
	if code != m.Code {
		return domain.ErrCodeMismatch
	}
	return nil
}

// MockSMSProvider implements domain.SMSProvider for testing
type MockSMSProvider struct {
	SendOTPFunc func(ctx context.Context, e164Phone string) (domain.SMSConfirmation, error)

	// SentTo records every destination passed to SendOTP.
	SentTo []string
	// Confirmation is handed out by the default SendOTP behavior.
	Confirmation *MockSMSConfirmation
}

// NewMockSMSProvider creates a provider whose confirmations accept "123456"
func NewMockSMSProvider() *MockSMSProvider {
	return &MockSMSProvider{Confirmation: &MockSMSConfirmation{Code: "123456"}}
}

func (m *MockSMSProvider) SendOTP(ctx context.Context, e164Phone string) (domain.SMSConfirmation, error) {
	m.SentTo = append(m.SentTo, e164Phone)
	if m.SendOTPFunc != nil {
		return m.SendOTPFunc(ctx, e164Phone)
	}
	if m.Confirmation == nil {
		m.Confirmation = &MockSMSConfirmation{Code: "123456"}
	}
	return m.Confirmation, nil
}

// Compile-time interface compliance verification
var (
	_ domain.SMSProvider     = (*MockSMSProvider)(nil)
	_ domain.SMSConfirmation = (*MockSMSConfirmation)(nil)
)
