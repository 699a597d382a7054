package domain

import (
	"errors"
	"fmt"
)

// Flow state errors
var (
	ErrNoPendingAuth        = errors.New("no authentication attempt in progress")
	ErrNoOTPRequested       = errors.New("no OTP requested")
	ErrMissingConfirmation  = errors.New("sms confirmation handle missing")
	ErrOperationInFlight    = errors.New("another auth operation is in flight")
	ErrAlreadyAuthenticated = errors.New("already authenticated")
)

// Input validation errors
var (
	ErrInvalidOTPCode = errors.New("otp code must be exactly 6 digits")
	ErrWeakPassword   = errors.New("password must be at least 8 characters with upper, lower and digit")
	ErrInvalidChannel = errors.New("unknown otp channel")
)

// SMS channel errors
var (
	ErrCodeMismatch    = errors.New("invalid otp code")
	ErrCodeExpired     = errors.New("otp has expired")
	ErrTooManyAttempts = errors.New("maximum otp attempts exceeded")
	ErrResendThrottled = errors.New("otp resend limit exceeded")
)

// WhatsApp channel errors
var (
	ErrChannelNotReady = errors.New("whatsapp channel not initialized")
)

// Backend errors
var (
	ErrPhoneNotRegistered = errors.New("phone number is not registered")
	ErrSessionNotFound    = errors.New("session not found")
)

// ErrorCategory classifies a failure by how the caller should recover from it.
type ErrorCategory string

const (
	CategoryValidation   ErrorCategory = "validation"
	CategoryChannelInit  ErrorCategory = "channel_init"
	CategoryDelivery     ErrorCategory = "delivery"
	CategoryVerification ErrorCategory = "verification"
	CategoryBackend      ErrorCategory = "backend"
	CategoryState        ErrorCategory = "state"
)

// FlowError is an operation failure carrying a recovery category and a
// human-readable message. Server messages are passed through verbatim when
// available.
type FlowError struct {
	Category ErrorCategory
	Message  string
	Err      error
}

func (e *FlowError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Category, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Category, e.Message)
}

func (e *FlowError) Unwrap() error { return e.Err }

// NewFlowError builds a FlowError. An empty message falls back to the wrapped
// error's text, or a generic message when there is none.
func NewFlowError(cat ErrorCategory, msg string, err error) *FlowError {
	if msg == "" {
		if err != nil {
			msg = err.Error()
		} else {
			msg = "something went wrong, please try again"
		}
	}
	return &FlowError{Category: cat, Message: msg, Err: err}
}

// CategoryOf returns the category of err, or an empty category when err is
// not a FlowError.
func CategoryOf(err error) ErrorCategory {
	var fe *FlowError
	if errors.As(err, &fe) {
		return fe.Category
	}
	return ""
}

// IsCategory reports whether err is a FlowError of the given category.
func IsCategory(err error, cat ErrorCategory) bool {
	return CategoryOf(err) == cat
}
