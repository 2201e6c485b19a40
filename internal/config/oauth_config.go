package config

import (
	"strings"
	"time"
)

const (
	defaultAuthorizeURL = "https://github.com/login/oauth/authorize"
	defaultTokenURL     = "https://github.com/login/oauth/access_token"
	defaultUserInfoURL  = "https://api.github.com/user"
)

type OAuthConfig interface {
	GetClientID() string
	GetClientSecret() string
	GetRedirectURI() string
	GetAuthorizeURL() string
	GetTokenURL() string
	GetUserInfoURL() string
	GetIssuerURL() string
	GetScopes() []string
	GetProviderTimeout() time.Duration
	GetPendingAuthorizationExpiry() time.Duration
	GetAccessTokenExpiry() time.Duration
	GetRefreshTokenExpiry() time.Duration
}

type OAuth struct{}

var _ OAuthConfig = OAuth{}

func (OAuth) GetClientID() string {
	return GetEnv("OAUTH_CLIENT_ID", "")
}

func (OAuth) GetClientSecret() string {
	return GetEnv("OAUTH_CLIENT_SECRET", "")
}

func (OAuth) GetRedirectURI() string {
	return GetEnv("OAUTH_REDIRECT_URI", "http://localhost:8000/auth/callback")
}

func (OAuth) GetAuthorizeURL() string {
	return GetEnv("OAUTH_AUTHORIZE_URL", defaultAuthorizeURL)
}

func (OAuth) GetTokenURL() string {
	return GetEnv("OAUTH_TOKEN_URL", defaultTokenURL)
}

func (OAuth) GetUserInfoURL() string {
	return GetEnv("OAUTH_USERINFO_URL", defaultUserInfoURL)
}

// GetIssuerURL enables OpenID discovery of the three endpoints when set.
func (OAuth) GetIssuerURL() string {
	return GetEnv("OAUTH_ISSUER_URL", "")
}

func (OAuth) GetScopes() []string {
	return strings.Fields(strings.ReplaceAll(GetEnv("OAUTH_SCOPE", "user:email"), ",", " "))
}

func (OAuth) GetProviderTimeout() time.Duration {
	seconds := GetEnvInt("OAUTH_HTTP_TIMEOUT_SECONDS", 10)
	if seconds <= 0 {
		seconds = 10
	}
	return time.Duration(seconds) * time.Second
}

func (OAuth) GetPendingAuthorizationExpiry() time.Duration {
	return 10 * time.Minute
}

func (OAuth) GetAccessTokenExpiry() time.Duration {
	minutes := GetEnvInt("ACCESS_TOKEN_EXPIRE_MINUTES", 30)
	if minutes <= 0 {
		minutes = 30
	}
	return time.Duration(minutes) * time.Minute
}

func (OAuth) GetRefreshTokenExpiry() time.Duration {
	days := GetEnvInt("REFRESH_TOKEN_EXPIRE_DAYS", 7)
	if days <= 0 {
		days = 7
	}
	return time.Duration(days) * 24 * time.Hour
}
