// Package pkce generates the random material for an authorization-code login with
// PKCE (RFC 7636): code verifiers, S256 challenges and opaque state tokens.
package pkce

import (
	"crypto/rand"
	"encoding/base64"

	"golang.org/x/oauth2"
)

// MethodS256 is the only challenge method this service sends.
const MethodS256 = "S256"

// tokenBytes is the entropy of every state, session and refresh token.
const tokenBytes = 32

// GenerateVerifier returns 32 random bytes, base64url encoded without padding.
func GenerateVerifier() string {
	return oauth2.GenerateVerifier()
}

// ChallengeFor returns BASE64URL(SHA256(verifier)) without padding.
func ChallengeFor(verifier string) string {
	return oauth2.S256ChallengeFromVerifier(verifier)
}

// GenerateState returns an unguessable CSRF state value.
func GenerateState() string {
	return GenerateToken()
}

// GenerateToken returns 32 random bytes, base64url encoded without padding.
// It panics if the system random source fails.
func GenerateToken() string {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		panic("pkce: crypto/rand failed: " + err.Error())
	}
	return base64.RawURLEncoding.EncodeToString(b)
}
