package pkce_test

import (
	"encoding/base64"
	"testing"

	"github.com/jrsteele09/mergington-activities/pkce"
	"github.com/stretchr/testify/require"
)

func TestChallengeFor(t *testing.T) {
	t.Run("RFC 7636 appendix B vector", func(t *testing.T) {
		require.Equal(t,
			"E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM",
			pkce.ChallengeFor("dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"))
	})

	t.Run("deterministic", func(t *testing.T) {
		v := pkce.GenerateVerifier()
		require.Equal(t, pkce.ChallengeFor(v), pkce.ChallengeFor(v))
	})

	t.Run("distinct verifiers give distinct challenges", func(t *testing.T) {
		require.NotEqual(t, pkce.ChallengeFor(pkce.GenerateVerifier()), pkce.ChallengeFor(pkce.GenerateVerifier()))
	})
}

func TestGenerateVerifierLength(t *testing.T) {
	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		v := pkce.GenerateVerifier()
		require.NotContains(t, v, "=")

		raw, err := base64.RawURLEncoding.DecodeString(v)
		require.NoError(t, err)
		require.Len(t, raw, 32)

		seen[v] = struct{}{}
	}
	require.Len(t, seen, 1000)
}

func TestGenerateState(t *testing.T) {
	s := pkce.GenerateState()
	raw, err := base64.RawURLEncoding.DecodeString(s)
	require.NoError(t, err)
	require.Len(t, raw, 32)
	require.NotEqual(t, s, pkce.GenerateState())
}
