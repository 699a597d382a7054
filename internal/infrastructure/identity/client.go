// Package identity is the HTTP client for the RuralShare identity backend.
// Server error messages are surfaced verbatim so the UI can show them.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ruralshare/authflow/domain"
)

// Client implements domain.IdentityAPI.
type Client struct {
	baseURL string
	httpc   *http.Client
}

func NewClient(baseURL string, httpc *http.Client) *Client {
	if httpc == nil {
		httpc = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{baseURL: baseURL, httpc: httpc}
}

var _ domain.IdentityAPI = (*Client)(nil)

type userPayload struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Role       string `json:"role"`
	IsVerified bool   `json:"is_verified"`
	KYCStatus  string `json:"kyc_status"`
}

func (u *userPayload) toDomain() *domain.User {
	if u == nil {
		return nil
	}
	return &domain.User{
		ID:         u.ID,
		Name:       u.Name,
		Email:      u.Email,
		Phone:      u.Phone,
		Role:       domain.Role(u.Role),
		IsVerified: u.IsVerified,
		KYCStatus:  domain.KYCStatus(u.KYCStatus),
	}
}

// Register creates an account and returns the provisional credentials needed
// to finish phone verification.
func (c *Client) Register(ctx context.Context, p domain.SignUpParams) (*domain.RegisterResult, error) {
	body := map[string]string{
		"name":     p.Name,
		"email":    p.Email,
		"phone":    p.Phone,
		"password": p.Password,
		"role":     string(p.Role),
	}
	var resp struct {
		UserID               string `json:"user_id"`
		AccessToken          string `json:"access_token"`
		RequiresVerification bool   `json:"requires_verification"`
	}
	if err := c.do(ctx, http.MethodPost, "/auth/register", "", body, &resp); err != nil {
		return nil, err
	}
	return &domain.RegisterResult{
		UserID:               resp.UserID,
		Token:                resp.AccessToken,
		RequiresVerification: resp.RequiresVerification,
	}, nil
}

// Login exchanges credentials for either a session or an OTP requirement.
func (c *Client) Login(ctx context.Context, emailOrPhone, password string) (*domain.LoginResult, error) {
	body := map[string]string{
		"identifier": emailOrPhone,
		"password":   password,
	}
	var resp struct {
		RequiresOTP bool         `json:"requires_otp"`
		UserID      string       `json:"user_id"`
		Phone       string       `json:"phone"`
		AccessToken string       `json:"access_token"`
		User        *userPayload `json:"user"`
	}
	if err := c.do(ctx, http.MethodPost, "/auth/login", "", body, &resp); err != nil {
		return nil, err
	}
	return &domain.LoginResult{
		RequiresOTP: resp.RequiresOTP,
		UserID:      resp.UserID,
		Phone:       resp.Phone,
		Token:       resp.AccessToken,
		User:        resp.User.toDomain(),
	}, nil
}

// VerifyUser flips the server-side verified flag for the user.
func (c *Client) VerifyUser(ctx context.Context, userID, bearer string) (*domain.User, error) {
	body := map[string]bool{"is_verified": true}
	var resp struct {
		User *userPayload `json:"user"`
	}
	path := fmt.Sprintf("/users/%s/verify", userID)
	if err := c.do(ctx, http.MethodPatch, path, bearer, body, &resp); err != nil {
		return nil, err
	}
	return resp.User.toDomain(), nil
}

// OTPLogin performs a passwordless login for a phone whose possession was
// just proven.
func (c *Client) OTPLogin(ctx context.Context, phone string) (*domain.LoginResult, error) {
	body := map[string]string{"phone": phone}
	var resp struct {
		AccessToken string       `json:"access_token"`
		User        *userPayload `json:"user"`
	}
	if err := c.do(ctx, http.MethodPost, "/auth/otp-login", "", body, &resp); err != nil {
		return nil, err
	}
	return &domain.LoginResult{
		Token: resp.AccessToken,
		User:  resp.User.toDomain(),
	}, nil
}

// CheckPhoneExists reports whether the phone is registered.
func (c *Client) CheckPhoneExists(ctx context.Context, phone string) (bool, error) {
	body := map[string]string{"phone": phone}
	var resp struct {
		Exists bool `json:"exists"`
	}
	if err := c.do(ctx, http.MethodPost, "/auth/check-phone", "", body, &resp); err != nil {
		return false, err
	}
	return resp.Exists, nil
}

func (c *Client) do(ctx context.Context, method, path, bearer string, body, out any) error {
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
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return domain.NewFlowError(domain.CategoryBackend, "could not reach the server", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if derr := json.NewDecoder(resp.Body).Decode(&apiErr); derr == nil && apiErr.Error != "" {
			return domain.NewFlowError(domain.CategoryBackend, apiErr.Error, fmt.Errorf("status %d", resp.StatusCode))
		}
		return domain.NewFlowError(domain.CategoryBackend, "", fmt.Errorf("server returned status %d", resp.StatusCode))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
