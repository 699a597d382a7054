// Package auth inspects backend-issued tokens. The app never validates
// signatures; the backend owns token integrity and this side only reads
// claims it needs for session bookkeeping.
package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ruralshare/authflow/domain"
)

// JWTInspector reads claims from JWTs without verifying them.
type JWTInspector struct {
	parser *jwt.Parser
}

func NewJWTInspector() *JWTInspector {
	return &JWTInspector{parser: jwt.NewParser()}
}

var _ domain.TokenInspector = (*JWTInspector)(nil)

// ExpiryOf returns the token's exp claim. The second return is false when the
// token is not a parseable JWT or carries no expiry.
func (i *JWTInspector) ExpiryOf(token string) (time.Time, bool) {
	parsed, _, err := i.parser.ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, false
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
