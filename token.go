package sessionkit

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// peekExpiry reads the exp claim of an access token without verifying the
// signature. The client only uses it to decide whether a proactive refresh
// is worthwhile; the server remains the authority on token validity.
// Opaque or malformed tokens yield a zero time.
func peekExpiry(token string) time.Time {
	if token == "" {
		return time.Time{}
	}

	var claims jwt.RegisteredClaims
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, &claims); err != nil {
		return time.Time{}
	}
	if claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}

// expiresWithin reports whether the token expires inside the leeway window.
// Tokens without a readable expiry never trigger proactive refresh.
func expiresWithin(token string, leeway time.Duration, now time.Time) bool {
	if leeway <= 0 {
		return false
	}
	exp := peekExpiry(token)
	if exp.IsZero() {
		return false
	}
	return now.Add(leeway).After(exp)
}

// TokenExpiry returns the expiry of the current access token, or the zero
// time when no token is held or the token is opaque. Purely local.
func (c *Client) TokenExpiry() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return peekExpiry(c.access)
}
