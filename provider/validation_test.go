package provider_test

import (
	"testing"

	"github.com/jrsteele09/mergington-activities/provider"
	"github.com/stretchr/testify/require"
)

func validConfig() provider.Config {
	return provider.Config{
		ClientID:    "client-1",
		RedirectURL: "http://localhost:8000/auth/callback",
		Scopes:      []string{"user:email"},
		Endpoints: provider.Endpoints{
			AuthURL:     "https://github.com/login/oauth/authorize",
			TokenURL:    "https://github.com/login/oauth/access_token",
			UserInfoURL: "https://api.github.com/user",
		},
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		require.NoError(t, validConfig().Validate())
	})

	t.Run("redirect with fragment", func(t *testing.T) {
		cfg := validConfig()
		cfg.RedirectURL = "http://localhost:8000/auth/callback#frag"
		err := cfg.Validate()
		require.Error(t, err)
		require.Contains(t, err.Error(), "fragments")
	})

	t.Run("redirect missing", func(t *testing.T) {
		cfg := validConfig()
		cfg.RedirectURL = ""
		require.Error(t, cfg.Validate())
	})

	t.Run("relative token url", func(t *testing.T) {
		cfg := validConfig()
		cfg.Endpoints.TokenURL = "/login/oauth/access_token"
		err := cfg.Validate()
		require.Error(t, err)
		require.Contains(t, err.Error(), "token URL")
	})

	t.Run("userinfo without host", func(t *testing.T) {
		cfg := validConfig()
		cfg.Endpoints.UserInfoURL = "https://"
		require.Error(t, cfg.Validate())
	})

	t.Run("scope with whitespace", func(t *testing.T) {
		cfg := validConfig()
		cfg.Scopes = []string{"user:email read:org"}
		require.Error(t, cfg.Validate())
	})
}

func TestValidateRedirectURI(t *testing.T) {
	require.NoError(t, provider.ValidateRedirectURI("https://school.example/auth/callback"))
	require.Error(t, provider.ValidateRedirectURI("ftp://school.example/auth/callback"))
}
