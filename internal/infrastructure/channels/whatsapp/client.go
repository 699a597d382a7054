// Package whatsapp wraps a WhatsApp-style OTP vendor whose results arrive on
// an out-of-band event stream. Callers subscribe for the lifetime of an
// authentication attempt and release the subscription when the flow ends.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/ruralshare/authflow/domain"
)

type Config struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// Client implements domain.WhatsAppProvider over the vendor's REST API.
type Client struct {
	baseURL string
	apiKey  string
	httpc   *http.Client

	mu      sync.Mutex
	subs    map[int]func(domain.ChannelEvent)
	nextSub int
	ready   bool
}

func NewClient(cfg Config) *Client {
	httpc := cfg.HTTPClient
	if httpc == nil {
		httpc = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		httpc:   httpc,
		subs:    make(map[int]func(domain.ChannelEvent)),
	}
}

var _ domain.WhatsAppProvider = (*Client)(nil)

// Subscribe registers a listener for push events. The returned function
// releases the subscription; late events after release are not delivered.
func (c *Client) Subscribe(fn func(domain.ChannelEvent)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subs, id)
	}
}

// Init performs the app handshake asynchronously. Completion is signaled by
// EventReady on the event stream; failure by EventFailed. Send calls issued
// before the ready event are rejected.
func (c *Client) Init(ctx context.Context, appID string) error {
	if appID == "" {
		return domain.NewFlowError(domain.CategoryChannelInit, "whatsapp app id is not configured", nil)
	}
	go func() {
		var status struct {
			Active bool `json:"active"`
		}
		err := c.doJSON(ctx, http.MethodGet, "/v1/apps/"+appID, nil, &status)
		if err == nil && !status.Active {
			err = fmt.Errorf("app %s is not active", appID)
		}
		if err != nil {
			c.emit(domain.ChannelEvent{Kind: domain.EventFailed, Err: err})
			return
		}
		c.mu.Lock()
		c.ready = true
		c.mu.Unlock()
		c.emit(domain.ChannelEvent{Kind: domain.EventReady})
	}()
	return nil
}

// StartPhoneAuth asks the vendor to push an OTP to the number.
func (c *Client) StartPhoneAuth(ctx context.Context, nationalNumber, countryCode string) error {
	c.mu.Lock()
	ready := c.ready
	c.mu.Unlock()
	if !ready {
		return domain.NewFlowError(domain.CategoryChannelInit, domain.ErrChannelNotReady.Error(), domain.ErrChannelNotReady)
	}

	body := map[string]string{
		"phone_number": nationalNumber,
		"country_code": countryCode,
	}
	var resp struct {
		RequestID string `json:"request_id"`
		Status    string `json:"status"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/v1/otp/initiate", body, &resp); err != nil {
		return domain.NewFlowError(domain.CategoryDelivery, "", err)
	}
	c.emit(domain.ChannelEvent{Kind: domain.EventDeliveryStatus, Status: resp.Status})
	return nil
}

// Verify submits the code. A one-tap confirmation from the vendor is
// mirrored onto the event stream.
func (c *Client) Verify(ctx context.Context, nationalNumber, countryCode, code string) error {
	body := map[string]string{
		"phone_number": nationalNumber,
		"country_code": countryCode,
		"code":         code,
	}
	var resp struct {
		Status string `json:"status"`
		OneTap bool   `json:"one_tap"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/v1/otp/verify", body, &resp); err != nil {
		return domain.NewFlowError(domain.CategoryVerification, "", err)
	}
	if resp.Status != "verified" {
		return domain.NewFlowError(domain.CategoryVerification, "", domain.ErrCodeMismatch)
	}
	if resp.OneTap {
		c.emit(domain.ChannelEvent{Kind: domain.EventOneTapSuccess, Code: code})
	}
	return nil
}

func (c *Client) emit(ev domain.ChannelEvent) {
	c.mu.Lock()
	fns := make([]func(domain.ChannelEvent), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if derr := json.NewDecoder(resp.Body).Decode(&apiErr); derr == nil && apiErr.Error != "" {
			return fmt.Errorf("%s", apiErr.Error)
		}
		return fmt.Errorf("vendor returned status %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
