package auth

import (
	"net/http"
	"time"
)

// Cookie names.
const (
	OAuthSessionCookie = "oauth_session"
	SessionCookie      = "session_token"
	RefreshCookie      = "refresh_token"
)

func (m *Manager) cookie(name, value string, ttl time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secureCookies,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(ttl / time.Second),
	}
}

// expiredCookie tells the browser to drop name immediately.
func (m *Manager) expiredCookie(name string) *http.Cookie {
	c := m.cookie(name, "", 0)
	c.MaxAge = -1
	return c
}
