package domain

import "time"

// Role classifies a marketplace account.
type Role string

const (
	RoleIndividual Role = "individual"
	RoleSHG        Role = "SHG"
	RoleFPO        Role = "FPO"
	RoleAdmin      Role = "admin"
)

// KYCStatus is the backend's KYC review state for an account.
type KYCStatus string

const (
	KYCPending  KYCStatus = "pending"
	KYCApproved KYCStatus = "approved"
	KYCRejected KYCStatus = "rejected"
)

// User is the identity record as returned by the backend.
type User struct {
	ID         string
	Name       string
	Email      string
	Phone      string
	Role       Role
	IsVerified bool
	KYCStatus  KYCStatus
}

// Session represents the authenticated identity. A session exists if and
// only if the flow is in PhaseAuthenticated.
type Session struct {
	UserID     string    `json:"user_id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone"`
	Role       Role      `json:"role"`
	IsVerified bool      `json:"is_verified"`
	KYCStatus  KYCStatus `json:"kyc_status"`
	Token      string    `json:"token"`
	ExpiresAt  time.Time `json:"expires_at"`
	CreatedAt  time.Time `json:"created_at"`
}

// Expired reports whether the session's token lifetime has lapsed. Sessions
// without an expiry claim never expire client-side.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && s.ExpiresAt.Before(now)
}

// Channel is the OTP delivery mechanism.
type Channel string

const (
	ChannelNone     Channel = ""
	ChannelSMS      Channel = "sms"
	ChannelWhatsApp Channel = "whatsapp"
)

// Valid reports whether the channel is one a caller may request.
func (c Channel) Valid() bool {
	return c == ChannelSMS || c == ChannelWhatsApp
}

// AuthPhase enumerates the states of the authentication flow.
type AuthPhase int

const (
	PhaseSignedOut AuthPhase = iota
	PhaseSigningIn
	PhaseSigningUp
	PhaseAwaitingOTP
	PhaseVerifyingOTP
	PhaseUpdatingVerification
	PhaseAuthenticated
)

func (p AuthPhase) String() string {
	switch p {
	case PhaseSignedOut:
		return "signed_out"
	case PhaseSigningIn:
		return "signing_in"
	case PhaseSigningUp:
		return "signing_up"
	case PhaseAwaitingOTP:
		return "awaiting_otp"
	case PhaseVerifyingOTP:
		return "verifying_otp"
	case PhaseUpdatingVerification:
		return "updating_verification"
	case PhaseAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// PendingAuth is an in-flight authentication attempt awaiting OTP
// confirmation. At most one exists at a time and it is owned exclusively by
// the flow controller; AttemptID lets late events from a superseded attempt
// be discarded.
type PendingAuth struct {
	AttemptID      uint64
	Phone          string
	UserID         string
	Channel        Channel
	ForgotPassword bool

	// Confirmation is the opaque handle returned by the SMS provider for
	// the current send; nil until an SMS OTP has been dispatched.
	Confirmation SMSConfirmation

	// Token caches the provisional bearer the backend handed back at
	// sign-up or sign-in, used for the verify-user PATCH.
	Token string

	// NeedsVerificationUpdate marks accounts whose server-side verified
	// flag must still be patched after the code is confirmed.
	NeedsVerificationUpdate bool

	Attempts  int
	CreatedAt time.Time
}
