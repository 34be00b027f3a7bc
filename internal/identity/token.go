package identity

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/yourname/daybar/internal"
)

// TokenExpired inspects a cached session token's exp claim without verifying
// the signature; verification belongs to the identity service. Tokens that
// do not parse are treated as expired so session resume falls back to a
// fresh sign-in.
func TokenExpired(token string, now time.Time) bool {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return true
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return true
	}
	return now.After(exp.Time)
}

// SessionFromToken builds the cached session copy from a token's claims,
// again without verifying the signature. The subject claim is mandatory.
func SessionFromToken(token string) (*internal.AuthSession, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, err
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return nil, errors.New("token has no subject")
	}
	session := &internal.AuthSession{UserID: sub}
	if v, ok := claims["email"].(string); ok {
		session.Email = v
	}
	if v, ok := claims["given_name"].(string); ok {
		session.FirstName = v
	}
	if v, ok := claims["family_name"].(string); ok {
		session.LastName = v
	}
	return session, nil
}
