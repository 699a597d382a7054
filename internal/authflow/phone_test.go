package authflow

import "testing"

func TestNormalizeE164(t *testing.T) {
	tests := []struct {
		name  string
		phone string
		want  string
	}{
		{"plus passthrough", "+919876543210", "+919876543210"},
		{"ten digits gets country code", "9876543210", "+919876543210"},
		{"eleven digits gets bare plus", "19876543210", "+19876543210"},
		{"short number gets bare plus", "12345678", "+12345678"},
		{"whitespace trimmed", " 9876543210 ", "+919876543210"},
		{"non numeric ten chars gets bare plus", "98765X3210", "+98765X3210"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeE164(tt.phone, "91"); got != tt.want {
				t.Errorf("NormalizeE164(%q) = %q, want %q", tt.phone, got, tt.want)
			}
		})
	}
}

func TestNormalizeE164_Idempotent(t *testing.T) {
	inputs := []string{"9876543210", "19876543210", "+449876543210", "12345678"}
	for _, in := range inputs {
		once := NormalizeE164(in, "91")
		twice := NormalizeE164(once, "91")
		if once != twice {
			t.Errorf("normalization not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}

func TestSplitCountryCode(t *testing.T) {
	tests := []struct {
		name         string
		phone        string
		wantNational string
		wantCode     string
	}{
		{"bare national number", "9876543210", "9876543210", "91"},
		{"plus with two digit code", "+919876543210", "9876543210", "91"},
		{"plus with one digit code", "+19876543210", "9876543210", "1"},
		{"plus with three digit code", "+3589876543210", "9876543210", "358"},
		{"plus with short number keeps fallback", "+9876543210", "9876543210", "91"},
		{"overlong code clamped to three digits", "+12349876543210", "49876543210", "123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			national, code := SplitCountryCode(tt.phone, "91")
			if national != tt.wantNational || code != tt.wantCode {
				t.Errorf("SplitCountryCode(%q) = (%q, %q), want (%q, %q)",
					tt.phone, national, code, tt.wantNational, tt.wantCode)
			}
		})
	}
}
