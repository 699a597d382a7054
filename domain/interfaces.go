package domain

import (
	"context"
	"time"
)

// SignUpParams carries the fields required to register a new account.
type SignUpParams struct {
	Name     string
	Email    string
	Phone    string
	Password string
	Role     Role
}

// RegisterResult is the backend's answer to a successful registration.
type RegisterResult struct {
	UserID string
	// Token is the provisional bearer token used for the verify-user PATCH
	// once the phone is confirmed.
	Token string
	// RequiresVerification is true when the server-side verified flag must
	// still be updated after OTP confirmation.
	RequiresVerification bool
}

// LoginResult is the backend's answer to a credential or passwordless login.
// Either RequiresOTP is set (with UserID and the account's phone for OTP
// delivery), or Token and User are populated.
type LoginResult struct {
	RequiresOTP bool
	UserID      string
	Phone       string
	Token       string
	User        *User
}

// IdentityAPI is the remote identity backend consumed by the flow.
type IdentityAPI interface {
	Register(ctx context.Context, p SignUpParams) (*RegisterResult, error)
	Login(ctx context.Context, emailOrPhone, password string) (*LoginResult, error)
	VerifyUser(ctx context.Context, userID, bearer string) (*User, error)
	OTPLogin(ctx context.Context, phone string) (*LoginResult, error)
	CheckPhoneExists(ctx context.Context, phone string) (bool, error)
}

// SMSConfirmation is the opaque handle returned by an SMS OTP send. It is
// valid for exactly one verification attempt sequence.
type SMSConfirmation interface {
	Confirm(ctx context.Context, code string) error
}

// SMSProvider delivers OTP codes over SMS. Phone numbers must already be in
// E.164 form.
type SMSProvider interface {
	SendOTP(ctx context.Context, e164Phone string) (SMSConfirmation, error)
}

// WhatsAppProvider delivers OTP codes over a WhatsApp-style push channel.
// Results arrive out of band on the event stream: Init completion is signaled
// by EventReady, and no phone-auth call may be issued before that event has
// been observed.
type WhatsAppProvider interface {
	Init(ctx context.Context, appID string) error
	Subscribe(fn func(ChannelEvent)) (unsubscribe func())
	StartPhoneAuth(ctx context.Context, nationalNumber, countryCode string) error
	Verify(ctx context.Context, nationalNumber, countryCode, code string) error
}

// SessionStore persists the current session across process restarts.
type SessionStore interface {
	Save(ctx context.Context, s *Session) error
	Load(ctx context.Context) (*Session, error)
	Clear(ctx context.Context) error
}

// TokenInspector extracts claims from a backend bearer token without
// verifying it; signature verification is the backend's job.
type TokenInspector interface {
	ExpiryOf(token string) (time.Time, bool)
}

// AuthFlow is the contract the flow controller exposes to callers.
type AuthFlow interface {
	SignUp(ctx context.Context, p SignUpParams) error
	SignIn(ctx context.Context, emailOrPhone, password string) error
	StartForgotPassword(ctx context.Context, phone string) error
	RequestOTP(ctx context.Context, ch Channel) error
	VerifyOTP(ctx context.Context, code string) error
	ResendOTP(ctx context.Context) error
	Logout(ctx context.Context) error

	Phase() AuthPhase
	Session() *Session
	Pending() *PendingAuth
	CodeBuffer() string
}
