package sessions

import (
	"crypto/subtle"
	"time"

	"github.com/jrsteele09/mergington-activities/users"
)

// PendingAuthorization is the PKCE and CSRF material of a login in flight, keyed by
// the oauth-session cookie value. It is consumed once at callback.
type PendingAuthorization struct {
	CodeVerifier string    `json:"code_verifier"`
	State        string    `json:"state"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Session is an authenticated browser session keyed by the session cookie value.
// ID is a public identifier that bearer tokens carry in place of the cookie value.
type Session struct {
	ID        string        `json:"id"`
	User      users.Profile `json:"user"`
	ExpiresAt time.Time     `json:"expires_at"`
}

// RefreshToken is keyed by the refresh cookie value. It only records the subject, so
// it cannot rebuild a Session on its own.
type RefreshToken struct {
	Subject   string    `json:"subject"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AccessGrant is keyed by a Session ID and lives exactly as long as that session.
// Bearer tokens naming the ID are honoured only while the grant exists.
type AccessGrant struct {
	ExpiresAt time.Time `json:"expires_at"`
}

func (p *PendingAuthorization) expiry() time.Time { return p.ExpiresAt }
func (s *Session) expiry() time.Time              { return s.ExpiresAt }
func (r *RefreshToken) expiry() time.Time         { return r.ExpiresAt }
func (g *AccessGrant) expiry() time.Time          { return g.ExpiresAt }

// checkState compares state in constant time.
func (p *PendingAuthorization) checkState(state string) error {
	if subtle.ConstantTimeCompare([]byte(p.State), []byte(state)) != 1 {
		return ErrStateMismatch
	}
	return nil
}
