// Package sms delivers OTP codes over Twilio SMS with a Redis-backed code
// store. The confirmation handle returned by a send is the only way to
// confirm that code.
package sms

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/ruralshare/authflow/domain"
)

type Config struct {
	CodeLength   int
	TTL          time.Duration
	MaxAttempts  int
	ResendWindow time.Duration
}

// Provider implements domain.SMSProvider.
type Provider struct {
	client     *twilio.RestClient
	fromNumber string
	redis      *redis.Client
	cfg        Config
}

// NewProvider creates a Twilio-backed SMS provider. With empty credentials
// the send is logged instead of dispatched, which keeps local development
// free of a Twilio account.
func NewProvider(accountSID, authToken, fromNumber string, rdb *redis.Client, cfg Config) *Provider {
	var client *twilio.RestClient
	if accountSID != "" {
		client = twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: accountSID,
			Password: authToken,
		})
	}
	if cfg.CodeLength == 0 {
		cfg.CodeLength = 6
	}
	if cfg.TTL == 0 {
		cfg.TTL = 5 * time.Minute
	}
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.ResendWindow == 0 {
		cfg.ResendWindow = 30 * time.Second
	}
	return &Provider{
		client:     client,
		fromNumber: fromNumber,
		redis:      rdb,
		cfg:        cfg,
	}
}

var _ domain.SMSProvider = (*Provider)(nil)

func codeKey(phone string) string     { return "otp:sms:" + phone }
func attemptsKey(phone string) string { return "otp:sms:att:" + phone }
func resendKey(phone string) string   { return "otp:sms:res:" + phone }

// SendOTP generates a fresh code for the phone, stores it with a TTL and
// dispatches it over Twilio. The previous code for the phone, if any, is
// replaced rather than duplicated.
func (p *Provider) SendOTP(ctx context.Context, e164Phone string) (domain.SMSConfirmation, error) {
	ttl, err := p.redis.TTL(ctx, resendKey(e164Phone)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to check resend throttle: %w", err)
	}
	if ttl > 0 {
		msg := fmt.Sprintf("please wait %d seconds before requesting a new code", int64(ttl.Seconds()))
		return nil, domain.NewFlowError(domain.CategoryDelivery, msg, domain.ErrResendThrottled)
	}

	code, err := p.generateCode()
	if err != nil {
		return nil, fmt.Errorf("failed to generate OTP code: %w", err)
	}

	if err := p.redis.Set(ctx, codeKey(e164Phone), code, p.cfg.TTL).Err(); err != nil {
		return nil, fmt.Errorf("failed to store OTP: %w", err)
	}
	if err := p.redis.Set(ctx, attemptsKey(e164Phone), 0, p.cfg.TTL).Err(); err != nil {
		return nil, fmt.Errorf("failed to initialize attempts counter: %w", err)
	}
	if err := p.redis.Set(ctx, resendKey(e164Phone), 1, p.cfg.ResendWindow).Err(); err != nil {
		return nil, fmt.Errorf("failed to set resend throttle: %w", err)
	}

	message := fmt.Sprintf("Your RuralShare verification code is %s. Valid for %d minutes.", code, int(p.cfg.TTL.Minutes()))
	if err := p.deliver(e164Phone, message); err != nil {
		p.redis.Del(ctx, codeKey(e164Phone), attemptsKey(e164Phone), resendKey(e164Phone))
		return nil, domain.NewFlowError(domain.CategoryDelivery, "", fmt.Errorf("failed to send OTP SMS: %w", err))
	}

	return &confirmation{provider: p, phone: e164Phone, id: uuid.NewString()}, nil
}

func (p *Provider) deliver(to, message string) error {
	if p.client == nil || p.fromNumber == "" {
		fmt.Printf("[MOCK SMS] To: %s, Message: %s\n", to, message)
		return nil
	}
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(p.fromNumber)
	params.SetBody(message)
	_, err := p.client.Api.CreateMessage(params)
	return err
}

// generateCode produces a cryptographically random numeric code.
func (p *Provider) generateCode() (string, error) {
	digits := make([]byte, p.cfg.CodeLength)
	for i := range digits {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		digits[i] = byte('0' + n.Int64())
	}
	return string(digits), nil
}

// confirmation is the opaque handle for one delivered code.
type confirmation struct {
	provider *Provider
	phone    string
	id       string
}

var _ domain.SMSConfirmation = (*confirmation)(nil)

// Confirm checks the submitted code against the stored one, counting
// attempts atomically. The stored code is consumed on success and destroyed
// after too many failures.
func (c *confirmation) Confirm(ctx context.Context, code string) error {
	rdb := c.provider.redis

	attempts, err := rdb.Incr(ctx, attemptsKey(c.phone)).Result()
	if err != nil {
		return fmt.Errorf("failed to count attempt: %w", err)
	}
	if attempts > int64(c.provider.cfg.MaxAttempts) {
		rdb.Del(ctx, codeKey(c.phone), attemptsKey(c.phone))
		return domain.ErrTooManyAttempts
	}

	stored, err := rdb.Get(ctx, codeKey(c.phone)).Result()
	if err == redis.Nil {
		return domain.ErrCodeExpired
	}
	if err != nil {
		return fmt.Errorf("failed to load stored code: %w", err)
	}
	if stored != code {
		return domain.ErrCodeMismatch
	}

	rdb.Del(ctx, codeKey(c.phone), attemptsKey(c.phone))
	return nil
}
