package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return tok
}

func TestJWTInspector_ExpiryOf(t *testing.T) {
	inspector := NewJWTInspector()
	exp := time.Now().Add(time.Hour).Truncate(time.Second)

	tok := signedToken(t, jwt.MapClaims{"sub": "u1", "exp": exp.Unix()})

	got, ok := inspector.ExpiryOf(tok)
	if !ok {
		t.Fatal("expected expiry to be found")
	}
	if !got.Equal(exp) {
		t.Errorf("expected expiry %v, got %v", exp, got)
	}
}

func TestJWTInspector_ExpiryOf_NoExpClaim(t *testing.T) {
	inspector := NewJWTInspector()

	tok := signedToken(t, jwt.MapClaims{"sub": "u1"})

	if _, ok := inspector.ExpiryOf(tok); ok {
		t.Error("expected no expiry for token without exp claim")
	}
}

func TestJWTInspector_ExpiryOf_NotAJWT(t *testing.T) {
	inspector := NewJWTInspector()

	for _, tok := range []string{"", "opaque-token", "a.b"} {
		if _, ok := inspector.ExpiryOf(tok); ok {
			t.Errorf("expected no expiry for %q", tok)
		}
	}
}
