package mocks

import (
	"context"

	"github.com/ruralshare/authflow/domain"
)

// MockIdentityAPI implements domain.IdentityAPI for testing
type MockIdentityAPI struct {
	RegisterFunc         func(ctx context.Context, p domain.SignUpParams) (*domain.RegisterResult, error)
	LoginFunc            func(ctx context.Context, emailOrPhone, password string) (*domain.LoginResult, error)
	VerifyUserFunc       func(ctx context.Context, userID, bearer string) (*domain.User, error)
	OTPLoginFunc         func(ctx context.Context, phone string) (*domain.LoginResult, error)
	CheckPhoneExistsFunc func(ctx context.Context, phone string) (bool, error)

	// Calls records the order of invoked operations.
	Calls []string
}

// NewMockIdentityAPI creates a new MockIdentityAPI with default behaviors
func NewMockIdentityAPI() *MockIdentityAPI {
	return &MockIdentityAPI{}
}

func (m *MockIdentityAPI) Register(ctx context.Context, p domain.SignUpParams) (*domain.RegisterResult, error) {
	m.Calls = append(m.Calls, "Register")
	if m.RegisterFunc != nil {
		return m.RegisterFunc(ctx, p)
	}
	return &domain.RegisterResult{UserID: "u1", Token: "tok-u1", RequiresVerification: true}, nil
}

func (m *MockIdentityAPI) Login(ctx context.Context, emailOrPhone, password string) (*domain.LoginResult, error) {
	m.Calls = append(m.Calls, "Login")
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, emailOrPhone, password)
	}
	return &domain.LoginResult{
		Token: "tok-u1",
		User:  &domain.User{ID: "u1", Phone: emailOrPhone, Role: domain.RoleIndividual, IsVerified: true},
	}, nil
}

func (m *MockIdentityAPI) VerifyUser(ctx context.Context, userID, bearer string) (*domain.User, error) {
	m.Calls = append(m.Calls, "VerifyUser")
	if m.VerifyUserFunc != nil {
		return m.VerifyUserFunc(ctx, userID, bearer)
	}
	return &domain.User{ID: userID, Role: domain.RoleIndividual, IsVerified: true}, nil
}

func (m *MockIdentityAPI) OTPLogin(ctx context.Context, phone string) (*domain.LoginResult, error) {
	m.Calls = append(m.Calls, "OTPLogin")
	if m.OTPLoginFunc != nil {
		return m.OTPLoginFunc(ctx, phone)
	}
	return &domain.LoginResult{
		Token: "tok-otp",
		User:  &domain.User{ID: "u1", Phone: phone, Role: domain.RoleIndividual, IsVerified: true},
	}, nil
}

func (m *MockIdentityAPI) CheckPhoneExists(ctx context.Context, phone string) (bool, error) {
	m.Calls = append(m.Calls, "CheckPhoneExists")
	if m.CheckPhoneExistsFunc != nil {
		return m.CheckPhoneExistsFunc(ctx, phone)
	}
	return true, nil
}

// Compile-time interface compliance verification
var _ domain.IdentityAPI = (*MockIdentityAPI)(nil)
