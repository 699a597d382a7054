package identity

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ruralshare/authflow/domain"
	"github.com/ruralshare/authflow/internal/identitytest"
)

// flowMessage extracts the user-facing message from a FlowError.
func flowMessage(t *testing.T, err error) string {
	t.Helper()
	var fe *domain.FlowError
	if !errors.As(err, &fe) {
		t.Fatalf("expected a flow error, got %v", err)
	}
	return fe.Message
}

func newTestClient(t *testing.T) (*Client, *identitytest.Server) {
	t.Helper()
	backend := identitytest.NewServer()
	srv := httptest.NewServer(backend.Handler())
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, srv.Client()), backend
}

func TestClient_Register(t *testing.T) {
	c, _ := newTestClient(t)

	res, err := c.Register(context.Background(), domain.SignUpParams{
		Name:     "Asha",
		Email:    "asha@example.com",
		Phone:    "+919876543210",
		Password: "Secret123",
		Role:     domain.RoleIndividual,
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if res.UserID == "" || res.Token == "" {
		t.Fatalf("expected user id and token, got %+v", res)
	}
	if !res.RequiresVerification {
		t.Error("expected new account to require verification")
	}
}

func TestClient_Register_DuplicateEmailPassedThrough(t *testing.T) {
	c, backend := newTestClient(t)
	backend.Seed("Asha", "asha@example.com", "+919876543210", "Secret123", "individual", true)

	_, err := c.Register(context.Background(), domain.SignUpParams{
		Name:     "Asha Again",
		Email:    "asha@example.com",
		Phone:    "+919999999999",
		Password: "Secret123",
		Role:     domain.RoleIndividual,
	})
	if err == nil {
		t.Fatal("expected duplicate email to fail")
	}
	if !domain.IsCategory(err, domain.CategoryBackend) {
		t.Errorf("expected backend category, got %q", domain.CategoryOf(err))
	}
	// The server's message reaches the caller word for word.
	if msg := flowMessage(t, err); msg != "Email already registered" {
		t.Errorf("expected server message verbatim, got %q", msg)
	}
}

func TestClient_Login_RequiresOTPForUnverified(t *testing.T) {
	c, backend := newTestClient(t)
	id := backend.Seed("Asha", "asha@example.com", "+919876543210", "Secret123", "individual", false)

	res, err := c.Login(context.Background(), "asha@example.com", "Secret123")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if !res.RequiresOTP {
		t.Fatal("expected OTP requirement for unverified account")
	}
	if res.UserID != id {
		t.Errorf("expected user id %q, got %q", id, res.UserID)
	}
	if res.Phone != "+919876543210" {
		t.Errorf("expected registered phone for OTP delivery, got %q", res.Phone)
	}
	if res.Token == "" {
		t.Error("expected provisional token alongside OTP requirement")
	}
}

func TestClient_Login_VerifiedReturnsSession(t *testing.T) {
	c, backend := newTestClient(t)
	backend.Seed("Asha", "asha@example.com", "+919876543210", "Secret123", "individual", true)

	res, err := c.Login(context.Background(), "asha@example.com", "Secret123")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if res.RequiresOTP {
		t.Fatal("did not expect OTP requirement for verified account")
	}
	if res.Token == "" || res.User == nil {
		t.Fatalf("expected token and user, got %+v", res)
	}
	if res.User.Email != "asha@example.com" {
		t.Errorf("unexpected user: %+v", res.User)
	}
}

func TestClient_Login_BadCredentials(t *testing.T) {
	c, backend := newTestClient(t)
	backend.Seed("Asha", "asha@example.com", "+919876543210", "Secret123", "individual", true)

	_, err := c.Login(context.Background(), "asha@example.com", "wrong-password")
	if err == nil {
		t.Fatal("expected login to fail")
	}
	if msg := flowMessage(t, err); msg != "Invalid credentials" {
		t.Errorf("expected server message verbatim, got %q", msg)
	}
}

func TestClient_VerifyUser(t *testing.T) {
	c, backend := newTestClient(t)
	id := backend.Seed("Asha", "asha@example.com", "+919876543210", "Secret123", "individual", false)

	login, err := c.Login(context.Background(), "asha@example.com", "Secret123")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	user, err := c.VerifyUser(context.Background(), id, login.Token)
	if err != nil {
		t.Fatalf("VerifyUser failed: %v", err)
	}
	if !user.IsVerified {
		t.Error("expected user to come back verified")
	}

	// Subsequent logins no longer demand an OTP.
	again, err := c.Login(context.Background(), "asha@example.com", "Secret123")
	if err != nil {
		t.Fatalf("second Login failed: %v", err)
	}
	if again.RequiresOTP {
		t.Error("expected OTP requirement cleared after verification")
	}
}

func TestClient_VerifyUser_MissingBearer(t *testing.T) {
	c, backend := newTestClient(t)
	id := backend.Seed("Asha", "asha@example.com", "+919876543210", "Secret123", "individual", false)

	_, err := c.VerifyUser(context.Background(), id, "")
	if !domain.IsCategory(err, domain.CategoryBackend) {
		t.Fatalf("expected backend error without bearer, got %v", err)
	}
}

func TestClient_OTPLogin(t *testing.T) {
	c, backend := newTestClient(t)
	backend.Seed("Asha", "asha@example.com", "+919876543210", "Secret123", "individual", true)

	res, err := c.OTPLogin(context.Background(), "+919876543210")
	if err != nil {
		t.Fatalf("OTPLogin failed: %v", err)
	}
	if res.Token == "" || res.User == nil {
		t.Fatalf("expected token and user, got %+v", res)
	}
}

func TestClient_OTPLogin_UnknownPhone(t *testing.T) {
	c, _ := newTestClient(t)

	_, err := c.OTPLogin(context.Background(), "+910000000000")
	if err == nil {
		t.Fatal("expected unknown phone to fail")
	}
	if msg := flowMessage(t, err); msg != "Phone number not registered" {
		t.Errorf("expected server message verbatim, got %q", msg)
	}
}

func TestClient_CheckPhoneExists(t *testing.T) {
	c, backend := newTestClient(t)
	backend.Seed("Asha", "asha@example.com", "+919876543210", "Secret123", "individual", true)

	exists, err := c.CheckPhoneExists(context.Background(), "+919876543210")
	if err != nil {
		t.Fatalf("CheckPhoneExists failed: %v", err)
	}
	if !exists {
		t.Error("expected registered phone to exist")
	}

	exists, err = c.CheckPhoneExists(context.Background(), "+910000000000")
	if err != nil {
		t.Fatalf("CheckPhoneExists failed: %v", err)
	}
	if exists {
		t.Error("expected unknown phone to not exist")
	}
}

func TestClient_UnreachableServer(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClient(url, nil)
	_, err := c.CheckPhoneExists(context.Background(), "+919876543210")
	if !domain.IsCategory(err, domain.CategoryBackend) {
		t.Fatalf("expected backend error, got %v", err)
	}
	if msg := flowMessage(t, err); msg != "could not reach the server" {
		t.Errorf("expected friendly connectivity message, got %q", msg)
	}
}
