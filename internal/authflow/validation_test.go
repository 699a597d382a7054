package authflow

import (
	"testing"

	"github.com/ruralshare/authflow/domain"
)

func validSignUp() domain.SignUpParams {
	return domain.SignUpParams{
		Name:     "Asha",
		Email:    "asha@example.com",
		Phone:    "9876543210",
		Password: "Secret123",
		Role:     domain.RoleIndividual,
	}
}

func TestValidateSignUp(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*domain.SignUpParams)
		wantErr bool
	}{
		{"valid input", func(p *domain.SignUpParams) {}, false},
		{"SHG role accepted", func(p *domain.SignUpParams) { p.Role = domain.RoleSHG }, false},
		{"missing name", func(p *domain.SignUpParams) { p.Name = "" }, true},
		{"malformed email", func(p *domain.SignUpParams) { p.Email = "not-an-email" }, true},
		{"empty email", func(p *domain.SignUpParams) { p.Email = "" }, true},
		{"phone too short", func(p *domain.SignUpParams) { p.Phone = "12345" }, true},
		{"phone with letters", func(p *domain.SignUpParams) { p.Phone = "98765abc10" }, true},
		{"password too short", func(p *domain.SignUpParams) { p.Password = "Ab1" }, true},
		{"password missing upper", func(p *domain.SignUpParams) { p.Password = "secret123" }, true},
		{"password missing digit", func(p *domain.SignUpParams) { p.Password = "Secretabc" }, true},
		{"unknown role", func(p *domain.SignUpParams) { p.Role = "cooperative" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validSignUp()
			tt.mutate(&p)
			err := validateSignUp(p)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected validation error, got nil")
				}
				if !domain.IsCategory(err, domain.CategoryValidation) {
					t.Errorf("expected validation category, got %q", domain.CategoryOf(err))
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidateOTPCode(t *testing.T) {
	tests := []struct {
		code    string
		wantErr bool
	}{
		{"123456", false},
		{"000000", false},
		{"12345", true},
		{"1234567", true},
		{"12345a", true},
		{"", true},
	}

	for _, tt := range tests {
		err := validateOTPCode(tt.code)
		if tt.wantErr && err == nil {
			t.Errorf("code %q: expected error, got nil", tt.code)
		}
		if !tt.wantErr && err != nil {
			t.Errorf("code %q: unexpected error %v", tt.code, err)
		}
	}
}

func TestPasswordStrongEnough(t *testing.T) {
	if !passwordStrongEnough("Secret123") {
		t.Error("expected Secret123 to pass the policy")
	}
	for _, pw := range []string{"short1A", "alllower1", "ALLUPPER1", "NoDigitsHere"} {
		if passwordStrongEnough(pw) {
			t.Errorf("expected %q to fail the policy", pw)
		}
	}
}
