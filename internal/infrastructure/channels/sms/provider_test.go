package sms

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/ruralshare/authflow/domain"
)

// setupTestRedis creates an in-memory Redis instance for testing
func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return client, mr
}

func newTestProvider(t *testing.T) (*Provider, *miniredis.Miniredis) {
	t.Helper()
	client, mr := setupTestRedis(t)
	p := NewProvider("", "", "", client, Config{
		CodeLength:   6,
		TTL:          5 * time.Minute,
		MaxAttempts:  3,
		ResendWindow: 30 * time.Second,
	})
	return p, mr
}

func storedCode(t *testing.T, mr *miniredis.Miniredis, phone string) string {
	t.Helper()
	code, err := mr.Get(codeKey(phone))
	if err != nil {
		t.Fatalf("failed to read stored code: %v", err)
	}
	return code
}

func TestProvider_SendAndConfirm(t *testing.T) {
	p, mr := newTestProvider(t)
	ctx := context.Background()
	phone := "+919876543210"

	conf, err := p.SendOTP(ctx, phone)
	if err != nil {
		t.Fatalf("SendOTP failed: %v", err)
	}

	code := storedCode(t, mr, phone)
	if len(code) != 6 {
		t.Fatalf("expected 6-digit code, got %q", code)
	}

	if err := conf.Confirm(ctx, code); err != nil {
		t.Fatalf("Confirm with correct code failed: %v", err)
	}

	// The code is consumed on success.
	if mr.Exists(codeKey(phone)) {
		t.Error("expected stored code deleted after confirmation")
	}
	if err := conf.Confirm(ctx, code); !errors.Is(err, domain.ErrCodeExpired) {
		t.Errorf("expected ErrCodeExpired on reuse, got %v", err)
	}
}

func TestProvider_Confirm_WrongCode(t *testing.T) {
	p, mr := newTestProvider(t)
	ctx := context.Background()
	phone := "+919876543210"

	conf, err := p.SendOTP(ctx, phone)
	if err != nil {
		t.Fatalf("SendOTP failed: %v", err)
	}

	if err := conf.Confirm(ctx, "000001"); !errors.Is(err, domain.ErrCodeMismatch) {
		t.Fatalf("expected ErrCodeMismatch, got %v", err)
	}

	// A failed attempt does not destroy the code; the right one still works.
	if err := conf.Confirm(ctx, storedCode(t, mr, phone)); err != nil {
		t.Errorf("expected correct code to succeed after one failure, got %v", err)
	}
}

func TestProvider_Confirm_MaxAttempts(t *testing.T) {
	p, mr := newTestProvider(t)
	ctx := context.Background()
	phone := "+919876543210"

	conf, err := p.SendOTP(ctx, phone)
	if err != nil {
		t.Fatalf("SendOTP failed: %v", err)
	}
	code := storedCode(t, mr, phone)

	for i := 0; i < 3; i++ {
		if err := conf.Confirm(ctx, "000001"); !errors.Is(err, domain.ErrCodeMismatch) {
			t.Fatalf("attempt %d: expected ErrCodeMismatch, got %v", i+1, err)
		}
	}
	if err := conf.Confirm(ctx, code); !errors.Is(err, domain.ErrTooManyAttempts) {
		t.Fatalf("expected ErrTooManyAttempts after lockout, got %v", err)
	}
	if mr.Exists(codeKey(phone)) {
		t.Error("expected code destroyed after lockout")
	}
}

func TestProvider_SendOTP_ResendThrottle(t *testing.T) {
	p, mr := newTestProvider(t)
	ctx := context.Background()
	phone := "+919876543210"

	if _, err := p.SendOTP(ctx, phone); err != nil {
		t.Fatalf("first SendOTP failed: %v", err)
	}

	_, err := p.SendOTP(ctx, phone)
	if !errors.Is(err, domain.ErrResendThrottled) {
		t.Fatalf("expected ErrResendThrottled, got %v", err)
	}
	if !domain.IsCategory(err, domain.CategoryDelivery) {
		t.Errorf("expected delivery category, got %q", domain.CategoryOf(err))
	}

	mr.FastForward(31 * time.Second)
	if _, err := p.SendOTP(ctx, phone); err != nil {
		t.Errorf("expected resend allowed after window, got %v", err)
	}
}

func TestProvider_Confirm_ExpiredCode(t *testing.T) {
	p, mr := newTestProvider(t)
	ctx := context.Background()
	phone := "+919876543210"

	conf, err := p.SendOTP(ctx, phone)
	if err != nil {
		t.Fatalf("SendOTP failed: %v", err)
	}
	code := storedCode(t, mr, phone)

	mr.FastForward(6 * time.Minute)

	if err := conf.Confirm(ctx, code); !errors.Is(err, domain.ErrCodeExpired) {
		t.Errorf("expected ErrCodeExpired, got %v", err)
	}
}

func TestProvider_SendOTP_ReplacesPreviousCode(t *testing.T) {
	p, mr := newTestProvider(t)
	ctx := context.Background()
	phone := "+919876543210"

	if _, err := p.SendOTP(ctx, phone); err != nil {
		t.Fatalf("first SendOTP failed: %v", err)
	}
	first := storedCode(t, mr, phone)

	mr.FastForward(31 * time.Second)
	conf, err := p.SendOTP(ctx, phone)
	if err != nil {
		t.Fatalf("second SendOTP failed: %v", err)
	}
	second := storedCode(t, mr, phone)

	if err := conf.Confirm(ctx, second); err != nil {
		t.Errorf("expected latest code to confirm, got %v", err)
	}
	if first == second {
		t.Log("codes collided; acceptable for random 6-digit codes but rare")
	}
}
