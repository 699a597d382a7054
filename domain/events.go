package domain

// ChannelEventKind identifies an out-of-band event from the WhatsApp-style
// provider's push stream.
type ChannelEventKind string

const (
	// EventReady signals that the provider SDK finished initializing.
	// No phone-auth call may be issued before this event is observed.
	EventReady ChannelEventKind = "READY"
	// EventDeliveryStatus reports progress of an OTP delivery.
	EventDeliveryStatus ChannelEventKind = "DELIVERY_STATUS"
	// EventOTPAutoRead carries a code the provider detected on-device. The
	// flow fills its code buffer but never auto-submits.
	EventOTPAutoRead ChannelEventKind = "OTP_AUTO_READ"
	// EventOneTapSuccess carries a code confirmed by the provider's one-tap
	// variant; verification is still triggered explicitly.
	EventOneTapSuccess ChannelEventKind = "ONE_TAP_SUCCESS"
	// EventFailed reports a provider-side failure.
	EventFailed ChannelEventKind = "FAILED"
)

// ChannelEvent is a single push event from the WhatsApp-style provider.
type ChannelEvent struct {
	Kind   ChannelEventKind
	Code   string
	Status string
	Err    error
}

// AuditEventType labels an auth flow event in the audit log.
type AuditEventType string

const (
	SignUpEvent            AuditEventType = "SIGN_UP"
	SignUpFailureEvent     AuditEventType = "SIGN_UP_FAILED"
	SignInEvent            AuditEventType = "SIGN_IN"
	SignInFailureEvent     AuditEventType = "SIGN_IN_FAILED"
	ForgotPasswordEvent    AuditEventType = "FORGOT_PASSWORD_STARTED"
	OTPRequestEvent        AuditEventType = "OTP_REQUESTED"
	OTPRequestFailureEvent AuditEventType = "OTP_REQUEST_FAILED"
	OTPVerifyEvent         AuditEventType = "OTP_VERIFIED"
	OTPVerifyFailureEvent  AuditEventType = "OTP_VERIFICATION_FAILED"
	AuthenticatedEvent     AuditEventType = "AUTHENTICATED"
	LogoutEvent            AuditEventType = "LOGOUT"
)
