package auth

import (
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/stretchr/testify/require"
)

func buildToken(t *testing.T, issuer string, issued, notBefore, expires time.Time) jwt.Token {
	t.Helper()
	return buildTokenFor(t, issuer, "admin", issued, notBefore, expires)
}

func buildTokenFor(t *testing.T, issuer, subject string, issued, notBefore, expires time.Time) jwt.Token {
	t.Helper()
	b := jwt.NewBuilder().
		Issuer(issuer).
		Audience([]string{"tienda-admin"}).
		Subject(subject).
		IssuedAt(issued).
		NotBefore(notBefore)
	if !expires.IsZero() {
		b = b.Expiration(expires)
	}
	token, err := b.Build()
	require.NoError(t, err)
	return token
}

func TestTokenValidator(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	validator := TokenValidator{Issuer: "tienda-api", Audience: "tienda-admin", Subject: "admin", ClockSkew: time.Second, Algorithm: jwa.HS256}

	tests := []struct {
		name    string
		token   jwt.Token
		alg     jwa.SignatureAlgorithm
		wantErr bool
	}{
		{name: "valid", token: buildToken(t, "tienda-api", now, now, now.Add(time.Minute)), alg: jwa.HS256},
		{name: "issuer mismatch", token: buildToken(t, "other", now, now, now.Add(time.Minute)), alg: jwa.HS256, wantErr: true},
		{name: "expired", token: buildToken(t, "tienda-api", now.Add(-2*time.Hour), now.Add(-2*time.Hour), now.Add(-time.Minute)), alg: jwa.HS256, wantErr: true},
		{name: "not yet valid", token: buildToken(t, "tienda-api", now, now.Add(5*time.Minute), now.Add(10*time.Minute)), alg: jwa.HS256, wantErr: true},
		{name: "algorithm mismatch", token: buildToken(t, "tienda-api", now, now, now.Add(time.Minute)), alg: jwa.RS256, wantErr: true},
		{name: "missing algorithm", token: buildToken(t, "tienda-api", now, now, now.Add(time.Minute)), wantErr: true},
		{name: "other subject", token: buildTokenFor(t, "tienda-api", "intruder", now, now, now.Add(time.Minute)), alg: jwa.HS256, wantErr: true},
		{name: "no expiry", token: buildTokenFor(t, "tienda-api", "admin", now, now, time.Time{}), alg: jwa.HS256, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.Validate(tt.token, tt.alg, now)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}

	require.Error(t, validator.Validate(nil, jwa.HS256, now))
}
