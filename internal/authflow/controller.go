// Package authflow drives the RuralShare authentication state machine: it
// turns user credentials into an authenticated session, coordinating with
// exactly one OTP delivery channel at a time.
package authflow

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/ruralshare/authflow/domain"
)

// Config carries controller tunables and optional collaborators.
type Config struct {
	// DefaultCountryCode is applied to bare national numbers ("91" when
	// empty).
	DefaultCountryCode string
	// WhatsAppAppID identifies this app to the WhatsApp-style provider.
	WhatsAppAppID string
	// ReadyTimeout bounds the wait for the provider's ready event.
	ReadyTimeout time.Duration

	// Sessions, when set, persists the session across restarts.
	Sessions domain.SessionStore
	// Tokens, when set, extracts the expiry claim from bearer tokens.
	Tokens domain.TokenInspector
	// Logger receives audit lines; log.Default() when nil.
	Logger *log.Logger
}

// Controller implements domain.AuthFlow. All mutable flow state is guarded by
// mu; collaborator calls happen outside the lock while the busy flag rejects
// overlapping operations as a client error.
type Controller struct {
	identity domain.IdentityAPI
	sms      domain.SMSProvider
	whatsapp domain.WhatsAppProvider
	cfg      Config
	logger   *log.Logger

	mu         sync.Mutex
	phase      domain.AuthPhase
	pending    *domain.PendingAuth
	session    *domain.Session
	codeBuf    string
	busy       bool
	attemptSeq uint64

	waReady       bool
	waInitStarted bool
	waInitErr     error
	waReadyCh     chan struct{}
	baseUnsub     func()
	attemptUnsub  func()
}

// New creates a flow controller over the given collaborators. Providers are
// injected rather than reached for globally so tests can substitute fakes.
func New(identity domain.IdentityAPI, sms domain.SMSProvider, whatsapp domain.WhatsAppProvider, cfg Config) *Controller {
	if cfg.DefaultCountryCode == "" {
		cfg.DefaultCountryCode = defaultCountryCode
	}
	if cfg.ReadyTimeout == 0 {
		cfg.ReadyTimeout = 15 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Controller{
		identity: identity,
		sms:      sms,
		whatsapp: whatsapp,
		cfg:      cfg,
		logger:   logger,
		phase:    domain.PhaseSignedOut,
	}
}

var _ domain.AuthFlow = (*Controller)(nil)

// SignUp registers a new account and dispatches the first OTP over the
// default SMS channel. On backend failure the flow returns to signed-out; on
// delivery failure it stays awaiting OTP so the user can retry.
func (c *Controller) SignUp(ctx context.Context, p domain.SignUpParams) error {
	if err := validateSignUp(p); err != nil {
		return err
	}

	c.mu.Lock()
	if err := c.guardStartLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	c.releaseAttemptLocked()
	c.phase = domain.PhaseSigningUp
	c.busy = true
	c.mu.Unlock()

	res, err := c.identity.Register(ctx, p)
	if err != nil {
		c.mu.Lock()
		c.phase = domain.PhaseSignedOut
		c.busy = false
		c.mu.Unlock()
		c.logger.Printf("%s: email=%s err=%v", domain.SignUpFailureEvent, p.Email, err)
		return flowErr(domain.CategoryBackend, err)
	}

	c.mu.Lock()
	c.installAttemptLocked(&domain.PendingAuth{
		Phone:                   p.Phone,
		UserID:                  res.UserID,
		Token:                   res.Token,
		NeedsVerificationUpdate: res.RequiresVerification,
	})
	c.mu.Unlock()
	c.logger.Printf("%s: user_id=%s phone=%s", domain.SignUpEvent, res.UserID, p.Phone)

	derr := c.dispatchOTP(ctx, domain.ChannelSMS)
	c.setIdle()
	return derr
}

// SignIn authenticates with credentials. If the backend demands OTP the flow
// moves to awaiting-OTP and dispatches over SMS; otherwise it authenticates
// directly.
func (c *Controller) SignIn(ctx context.Context, emailOrPhone, password string) error {
	if err := validateCredentials(emailOrPhone, password); err != nil {
		return err
	}

	c.mu.Lock()
	if err := c.guardStartLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	c.releaseAttemptLocked()
	c.phase = domain.PhaseSigningIn
	c.busy = true
	c.mu.Unlock()

	res, err := c.identity.Login(ctx, emailOrPhone, password)
	if err != nil {
		c.mu.Lock()
		c.phase = domain.PhaseSignedOut
		c.busy = false
		c.mu.Unlock()
		c.logger.Printf("%s: identifier=%s err=%v", domain.SignInFailureEvent, emailOrPhone, err)
		return flowErr(domain.CategoryBackend, err)
	}

	if !res.RequiresOTP {
		c.mu.Lock()
		s := c.completeAuthLocked(res.Token, res.User)
		c.busy = false
		c.mu.Unlock()
		c.persistSession(ctx, s)
		return nil
	}

	// The account's phone comes back with the OTP demand; signing in by
	// email still delivers the code to the registered number.
	phone := res.Phone
	if phone == "" {
		phone = emailOrPhone
	}
	c.mu.Lock()
	c.installAttemptLocked(&domain.PendingAuth{
		Phone:                   phone,
		UserID:                  res.UserID,
		Token:                   res.Token,
		NeedsVerificationUpdate: true,
	})
	c.mu.Unlock()
	c.logger.Printf("%s: user_id=%s otp_required=true", domain.SignInEvent, res.UserID)

	derr := c.dispatchOTP(ctx, domain.ChannelSMS)
	c.setIdle()
	return derr
}

// StartForgotPassword begins a passwordless recovery flow for a phone number
// that is already registered with the backend.
func (c *Controller) StartForgotPassword(ctx context.Context, phone string) error {
	if phone == "" {
		return domain.NewFlowError(domain.CategoryValidation, "phone is required", nil)
	}

	c.mu.Lock()
	if err := c.guardStartLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	c.releaseAttemptLocked()
	c.busy = true
	c.mu.Unlock()

	exists, err := c.identity.CheckPhoneExists(ctx, phone)
	if err != nil {
		c.setIdle()
		return flowErr(domain.CategoryBackend, err)
	}
	if !exists {
		c.setIdle()
		return domain.NewFlowError(domain.CategoryBackend, domain.ErrPhoneNotRegistered.Error(), domain.ErrPhoneNotRegistered)
	}

	c.mu.Lock()
	c.installAttemptLocked(&domain.PendingAuth{
		Phone:          phone,
		ForgotPassword: true,
	})
	c.mu.Unlock()
	c.logger.Printf("%s: phone=%s", domain.ForgotPasswordEvent, phone)

	derr := c.dispatchOTP(ctx, domain.ChannelSMS)
	c.setIdle()
	return derr
}

// RequestOTP dispatches (or re-dispatches) the OTP over the given channel.
// Failures leave the flow awaiting OTP so the caller can retry or switch
// channels.
func (c *Controller) RequestOTP(ctx context.Context, ch domain.Channel) error {
	if !ch.Valid() {
		return domain.NewFlowError(domain.CategoryValidation, domain.ErrInvalidChannel.Error(), domain.ErrInvalidChannel)
	}

	c.mu.Lock()
	if err := c.guardAttemptLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	c.busy = true
	c.mu.Unlock()

	err := c.dispatchOTP(ctx, ch)
	c.setIdle()
	return err
}

// ResendOTP re-dispatches over the current channel, defaulting to SMS when
// none has been selected yet. Any previously entered code is discarded.
func (c *Controller) ResendOTP(ctx context.Context) error {
	c.mu.Lock()
	if err := c.guardAttemptLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	ch := c.pending.Channel
	if ch == domain.ChannelNone {
		ch = domain.ChannelSMS
	}
	c.codeBuf = ""
	c.busy = true
	c.mu.Unlock()

	err := c.dispatchOTP(ctx, ch)
	c.setIdle()
	return err
}

// VerifyOTP submits the code to whichever channel the pending attempt used
// and reconciles the result into an authenticated session. A rejected code
// returns the flow to awaiting-OTP with the attempt preserved.
func (c *Controller) VerifyOTP(ctx context.Context, code string) error {
	if err := validateOTPCode(code); err != nil {
		return err
	}

	c.mu.Lock()
	if err := c.guardAttemptLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	snap := *c.pending
	if snap.Channel == domain.ChannelNone {
		c.mu.Unlock()
		return domain.NewFlowError(domain.CategoryState, domain.ErrNoOTPRequested.Error(), domain.ErrNoOTPRequested)
	}
	if snap.Channel == domain.ChannelSMS && snap.Confirmation == nil {
		c.mu.Unlock()
		return domain.NewFlowError(domain.CategoryState, domain.ErrMissingConfirmation.Error(), domain.ErrMissingConfirmation)
	}
	c.phase = domain.PhaseVerifyingOTP
	c.busy = true
	c.mu.Unlock()

	var verr error
	switch snap.Channel {
	case domain.ChannelSMS:
		verr = snap.Confirmation.Confirm(ctx, code)
	case domain.ChannelWhatsApp:
		national, cc := SplitCountryCode(snap.Phone, c.cfg.DefaultCountryCode)
		verr = c.whatsapp.Verify(ctx, national, cc, code)
	}
	if verr != nil {
		c.mu.Lock()
		if c.pending != nil && c.pending.AttemptID == snap.AttemptID {
			c.pending.Attempts++
		}
		c.phase = domain.PhaseAwaitingOTP
		c.busy = false
		c.mu.Unlock()
		c.logger.Printf("%s: phone=%s channel=%s err=%v", domain.OTPVerifyFailureEvent, snap.Phone, snap.Channel, verr)
		return flowErr(domain.CategoryVerification, verr)
	}
	c.logger.Printf("%s: phone=%s channel=%s", domain.OTPVerifyEvent, snap.Phone, snap.Channel)

	if snap.ForgotPassword {
		// Recovery path logs in passwordlessly; the verified flag is not
		// touched because the account was verified at registration.
		return c.finishWithOTPLogin(ctx, snap.Phone)
	}

	if snap.NeedsVerificationUpdate {
		c.mu.Lock()
		c.phase = domain.PhaseUpdatingVerification
		c.mu.Unlock()

		user, err := c.identity.VerifyUser(ctx, snap.UserID, snap.Token)
		if err != nil {
			c.mu.Lock()
			c.phase = domain.PhaseAwaitingOTP
			c.busy = false
			c.mu.Unlock()
			return flowErr(domain.CategoryBackend, err)
		}
		c.mu.Lock()
		s := c.completeAuthLocked(snap.Token, user)
		c.busy = false
		c.mu.Unlock()
		c.persistSession(ctx, s)
		return nil
	}

	// Accounts already verified server-side complete through the
	// passwordless login, same as recovery.
	return c.finishWithOTPLogin(ctx, snap.Phone)
}

// Logout clears the session and any pending attempt. The backend is not
// consulted; a stored session is removed best-effort.
func (c *Controller) Logout(ctx context.Context) error {
	c.mu.Lock()
	if c.busy {
		c.mu.Unlock()
		return domain.NewFlowError(domain.CategoryState, domain.ErrOperationInFlight.Error(), domain.ErrOperationInFlight)
	}
	userID := ""
	if c.session != nil {
		userID = c.session.UserID
	}
	c.session = nil
	c.releaseAttemptLocked()
	c.phase = domain.PhaseSignedOut
	c.mu.Unlock()

	if c.cfg.Sessions != nil {
		if err := c.cfg.Sessions.Clear(ctx); err != nil {
			c.logger.Printf("%s: clear stored session: %v", domain.LogoutEvent, err)
		}
	}
	c.logger.Printf("%s: user_id=%s", domain.LogoutEvent, userID)
	return nil
}

// Restore loads a persisted session, moving straight to authenticated when a
// live one exists. Expired sessions are discarded.
func (c *Controller) Restore(ctx context.Context) error {
	if c.cfg.Sessions == nil {
		return nil
	}
	c.mu.Lock()
	if c.busy || c.phase != domain.PhaseSignedOut {
		c.mu.Unlock()
		return domain.NewFlowError(domain.CategoryState, domain.ErrOperationInFlight.Error(), domain.ErrOperationInFlight)
	}
	c.mu.Unlock()

	s, err := c.cfg.Sessions.Load(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil
		}
		return flowErr(domain.CategoryState, err)
	}
	if s.Expired(time.Now()) {
		if cerr := c.cfg.Sessions.Clear(ctx); cerr != nil {
			c.logger.Printf("restore: clear expired session: %v", cerr)
		}
		return nil
	}

	c.mu.Lock()
	c.session = s
	c.phase = domain.PhaseAuthenticated
	c.mu.Unlock()
	return nil
}

// Close releases the provider event subscriptions held by the controller.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.releaseAttemptLocked()
	if c.baseUnsub != nil {
		c.baseUnsub()
		c.baseUnsub = nil
	}
}

// Phase returns the current flow state.
func (c *Controller) Phase() domain.AuthPhase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Session returns a snapshot of the authenticated session, or nil.
func (c *Controller) Session() *domain.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil
	}
	s := *c.session
	return &s
}

// Pending returns a snapshot of the in-flight attempt, or nil. The attempt is
// owned by the controller; callers must mutate it only through operations.
func (c *Controller) Pending() *domain.PendingAuth {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == nil {
		return nil
	}
	p := *c.pending
	return &p
}

// CodeBuffer returns the code accumulated so far, including codes auto-read
// by the WhatsApp provider.
func (c *Controller) CodeBuffer() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.codeBuf
}

// guardStartLocked admits operations that begin a fresh flow.
func (c *Controller) guardStartLocked() error {
	if c.busy {
		return domain.NewFlowError(domain.CategoryState, domain.ErrOperationInFlight.Error(), domain.ErrOperationInFlight)
	}
	if c.phase == domain.PhaseAuthenticated {
		return domain.NewFlowError(domain.CategoryState, domain.ErrAlreadyAuthenticated.Error(), domain.ErrAlreadyAuthenticated)
	}
	return nil
}

// guardAttemptLocked admits operations that act on the pending attempt.
func (c *Controller) guardAttemptLocked() error {
	if c.busy {
		return domain.NewFlowError(domain.CategoryState, domain.ErrOperationInFlight.Error(), domain.ErrOperationInFlight)
	}
	if c.pending == nil || c.phase != domain.PhaseAwaitingOTP {
		return domain.NewFlowError(domain.CategoryState, domain.ErrNoPendingAuth.Error(), domain.ErrNoPendingAuth)
	}
	return nil
}

// installAttemptLocked makes p the single pending attempt, tagging it with
// the next attempt id, and moves the flow to awaiting-OTP.
func (c *Controller) installAttemptLocked(p *domain.PendingAuth) {
	c.attemptSeq++
	p.AttemptID = c.attemptSeq
	p.CreatedAt = time.Now()
	c.pending = p
	c.codeBuf = ""
	c.phase = domain.PhaseAwaitingOTP
}

// releaseAttemptLocked drops the pending attempt and its event subscription
// so late-arriving provider events cannot leak into a newer attempt.
func (c *Controller) releaseAttemptLocked() {
	if c.attemptUnsub != nil {
		c.attemptUnsub()
		c.attemptUnsub = nil
	}
	c.pending = nil
	c.codeBuf = ""
}

func (c *Controller) setIdle() {
	c.mu.Lock()
	c.busy = false
	c.mu.Unlock()
}

// dispatchOTP sends the code over ch for the current attempt. The caller
// must hold the busy flag; the flow stays awaiting-OTP on failure.
func (c *Controller) dispatchOTP(ctx context.Context, ch domain.Channel) error {
	c.mu.Lock()
	if c.pending == nil {
		c.mu.Unlock()
		return domain.NewFlowError(domain.CategoryState, domain.ErrNoPendingAuth.Error(), domain.ErrNoPendingAuth)
	}
	phone := c.pending.Phone
	attemptID := c.pending.AttemptID
	c.mu.Unlock()

	switch ch {
	case domain.ChannelSMS:
		conf, err := c.sms.SendOTP(ctx, NormalizeE164(phone, c.cfg.DefaultCountryCode))
		if err != nil {
			c.logger.Printf("%s: phone=%s channel=sms err=%v", domain.OTPRequestFailureEvent, phone, err)
			return flowErr(domain.CategoryDelivery, err)
		}
		c.mu.Lock()
		if c.pending != nil && c.pending.AttemptID == attemptID {
			c.pending.Channel = domain.ChannelSMS
			c.pending.Confirmation = conf
		}
		c.mu.Unlock()

	case domain.ChannelWhatsApp:
		if err := c.ensureWhatsAppReady(ctx); err != nil {
			c.logger.Printf("%s: phone=%s channel=whatsapp err=%v", domain.OTPRequestFailureEvent, phone, err)
			return err
		}
		c.mu.Lock()
		if c.attemptUnsub == nil {
			c.attemptUnsub = c.whatsapp.Subscribe(func(ev domain.ChannelEvent) {
				c.handleAttemptEvent(attemptID, ev)
			})
		}
		c.mu.Unlock()

		national, cc := SplitCountryCode(phone, c.cfg.DefaultCountryCode)
		if err := c.whatsapp.StartPhoneAuth(ctx, national, cc); err != nil {
			c.logger.Printf("%s: phone=%s channel=whatsapp err=%v", domain.OTPRequestFailureEvent, phone, err)
			return flowErr(domain.CategoryDelivery, err)
		}
		c.mu.Lock()
		if c.pending != nil && c.pending.AttemptID == attemptID {
			c.pending.Channel = domain.ChannelWhatsApp
		}
		c.mu.Unlock()
	}

	c.logger.Printf("%s: phone=%s channel=%s attempt=%d", domain.OTPRequestEvent, phone, ch, attemptID)
	return nil
}

// ensureWhatsAppReady initializes the provider on first use and blocks until
// its ready event has been observed; the send is never raced against it.
func (c *Controller) ensureWhatsAppReady(ctx context.Context) error {
	c.mu.Lock()
	if c.waReady {
		c.mu.Unlock()
		return nil
	}
	if c.baseUnsub == nil {
		c.baseUnsub = c.whatsapp.Subscribe(c.handleBaseEvent)
	}
	if c.waReadyCh == nil {
		c.waReadyCh = make(chan struct{})
	}
	ready := c.waReadyCh
	started := c.waInitStarted
	c.waInitStarted = true
	c.mu.Unlock()

	if !started {
		if err := c.whatsapp.Init(ctx, c.cfg.WhatsAppAppID); err != nil {
			c.mu.Lock()
			c.waInitStarted = false
			c.mu.Unlock()
			return flowErr(domain.CategoryChannelInit, err)
		}
	}

	select {
	case <-ready:
		c.mu.Lock()
		ok := c.waReady
		ierr := c.waInitErr
		c.waInitErr = nil
		c.mu.Unlock()
		if !ok {
			return domain.NewFlowError(domain.CategoryChannelInit, "whatsapp channel init failed", ierr)
		}
		return nil
	case <-ctx.Done():
		return domain.NewFlowError(domain.CategoryChannelInit, "whatsapp channel init canceled", ctx.Err())
	case <-time.After(c.cfg.ReadyTimeout):
		c.mu.Lock()
		c.waInitStarted = false
		c.mu.Unlock()
		return domain.NewFlowError(domain.CategoryChannelInit, "whatsapp channel init timed out", domain.ErrChannelNotReady)
	}
}

// handleBaseEvent tracks provider readiness for the controller's lifetime.
// Both outcomes wake any sender blocked on the handshake; a failed handshake
// may be retried by the next send.
func (c *Controller) handleBaseEvent(ev domain.ChannelEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch ev.Kind {
	case domain.EventReady:
		c.waReady = true
		if c.waReadyCh != nil {
			close(c.waReadyCh)
			c.waReadyCh = nil
		}
	case domain.EventFailed:
		if !c.waReady {
			c.waInitStarted = false
			c.waInitErr = ev.Err
			if c.waReadyCh != nil {
				close(c.waReadyCh)
				c.waReadyCh = nil
			}
		}
	}
}

// handleAttemptEvent applies a provider push event to the attempt it was
// subscribed for; events for superseded attempts are discarded.
func (c *Controller) handleAttemptEvent(attemptID uint64, ev domain.ChannelEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == nil || c.pending.AttemptID != attemptID {
		return
	}
	switch ev.Kind {
	case domain.EventOTPAutoRead, domain.EventOneTapSuccess:
		// Fill the buffer; submission stays an explicit caller action.
		if ev.Code != "" {
			c.codeBuf = ev.Code
		}
	case domain.EventDeliveryStatus:
		c.logger.Printf("%s: phone=%s channel=whatsapp status=%s", domain.OTPRequestEvent, c.pending.Phone, ev.Status)
	case domain.EventFailed:
		c.logger.Printf("%s: phone=%s channel=whatsapp err=%v", domain.OTPRequestFailureEvent, c.pending.Phone, ev.Err)
	}
}

// finishWithOTPLogin completes the flow through the backend's passwordless
// login, used by the forgot-password path and by accounts that are already
// verified server-side.
func (c *Controller) finishWithOTPLogin(ctx context.Context, phone string) error {
	res, err := c.identity.OTPLogin(ctx, phone)
	if err != nil {
		c.mu.Lock()
		c.phase = domain.PhaseAwaitingOTP
		c.busy = false
		c.mu.Unlock()
		return flowErr(domain.CategoryBackend, err)
	}
	c.mu.Lock()
	s := c.completeAuthLocked(res.Token, res.User)
	c.busy = false
	c.mu.Unlock()
	c.persistSession(ctx, s)
	return nil
}

// completeAuthLocked builds the session, clears the attempt and moves to
// authenticated. The caller persists the returned session after unlocking;
// store I/O never runs under the flow lock.
func (c *Controller) completeAuthLocked(token string, user *domain.User) *domain.Session {
	s := &domain.Session{
		Token:     token,
		CreatedAt: time.Now(),
	}
	if user != nil {
		s.UserID = user.ID
		s.Name = user.Name
		s.Email = user.Email
		s.Phone = user.Phone
		s.Role = user.Role
		s.IsVerified = user.IsVerified
		s.KYCStatus = user.KYCStatus
	}
	if c.cfg.Tokens != nil && token != "" {
		if exp, ok := c.cfg.Tokens.ExpiryOf(token); ok {
			s.ExpiresAt = exp
		}
	}
	c.session = s
	c.releaseAttemptLocked()
	c.phase = domain.PhaseAuthenticated
	return s
}

// persistSession stores the session and emits the audit line.
func (c *Controller) persistSession(ctx context.Context, s *domain.Session) {
	if c.cfg.Sessions != nil {
		if err := c.cfg.Sessions.Save(ctx, s); err != nil {
			c.logger.Printf("%s: persist session: %v", domain.AuthenticatedEvent, err)
		}
	}
	c.logger.Printf("%s: user_id=%s verified=%t", domain.AuthenticatedEvent, s.UserID, s.IsVerified)
}

// flowErr passes existing FlowErrors through untouched and wraps anything
// else under the given category, keeping the collaborator's message.
func flowErr(cat domain.ErrorCategory, err error) error {
	var fe *domain.FlowError
	if errors.As(err, &fe) {
		return fe
	}
	return domain.NewFlowError(cat, "", err)
}
