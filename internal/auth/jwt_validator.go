package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

var (
	errNoToken     = errors.New("auth: token is nil")
	errNoAlgorithm = errors.New("auth: token missing algorithm")
	errNoExpiry    = errors.New("auth: token has no expiry")
)

// TokenValidator checks the claims of an admin access token after its
// signature has been verified.
type TokenValidator struct {
	Issuer    string
	Audience  string
	// Subject pins tokens to the single configured admin account.
	Subject   string
	ClockSkew time.Duration
	Algorithm jwa.SignatureAlgorithm
}

// Validate rejects tokens signed with another algorithm, without an expiry,
// or whose time, issuer, audience or subject claims do not match.
func (v TokenValidator) Validate(tok jwt.Token, algorithm jwa.SignatureAlgorithm, now time.Time) error {
	switch {
	case tok == nil:
		return errNoToken
	case algorithm == "":
		return errNoAlgorithm
	case v.Algorithm != "" && algorithm != v.Algorithm:
		return fmt.Errorf("auth: unexpected token algorithm %s", algorithm)
	case tok.Expiration().IsZero():
		return errNoExpiry
	}

	opts := []jwt.ValidateOption{
		jwt.WithClock(jwt.ClockFunc(func() time.Time { return now })),
		jwt.WithAcceptableSkew(v.ClockSkew),
	}
	if v.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.Issuer))
	}
	if v.Audience != "" {
		opts = append(opts, jwt.WithAudience(v.Audience))
	}
	if v.Subject != "" {
		opts = append(opts, jwt.WithSubject(v.Subject))
	}
	return jwt.Validate(tok, opts...)
}
