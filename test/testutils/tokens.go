package testutils

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TestSigningKey signs tokens minted by AccessToken
var TestSigningKey = []byte("test-signing-key")

// AccessToken mints an HS256 access token for subject expiring at exp.
// A zero exp leaves the claim out.
func AccessToken(subject string, exp time.Time) string {
	claims := jwt.MapClaims{
		"sub":  subject,
		"role": "authenticated",
		"iat":  time.Now().Unix(),
	}
	if !exp.IsZero() {
		claims["exp"] = exp.Unix()
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(TestSigningKey)
	if err != nil {
		panic(err)
	}
	return token
}

// ValidAccessToken mints a token valid for one hour
func ValidAccessToken(subject string) string {
	return AccessToken(subject, time.Now().Add(time.Hour))
}
