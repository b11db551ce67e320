package backend

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNoSubject is returned when an access token carries no sub claim.
var ErrNoSubject = errors.New("backend: access token has no subject")

// TokenInfo is what noxstat reads from an access token. The signature is
// not verified; the backend does that on every request.
type TokenInfo struct {
	Subject   string
	ExpiresAt time.Time
}

// Expired reports whether the token's exp claim is before now.
func (t TokenInfo) Expired(now time.Time) bool {
	return !t.ExpiresAt.IsZero() && t.ExpiresAt.Before(now)
}

// InspectToken decodes the claims of an access token without verifying it.
func InspectToken(token string) (TokenInfo, error) {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return TokenInfo{}, fmt.Errorf("backend: parsing access token: %w", err)
	}
	info := TokenInfo{Subject: claims.Subject}
	if claims.ExpiresAt != nil {
		info.ExpiresAt = claims.ExpiresAt.Time
	}
	if info.Subject == "" {
		return info, ErrNoSubject
	}
	return info, nil
}

// SubjectFromToken returns the user id (sub claim) of an access token.
func SubjectFromToken(token string) (string, error) {
	info, err := InspectToken(token)
	if err != nil {
		return "", err
	}
	return info.Subject, nil
}
