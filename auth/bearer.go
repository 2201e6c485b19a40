package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jrsteele09/mergington-activities/sessions"
	"github.com/jrsteele09/mergington-activities/users"
	"github.com/rs/zerolog/log"
)

// TokenTypeBearer is the token_type of issued access tokens.
const TokenTypeBearer = "bearer"

// ErrBearerDisabled is returned when the manager has no token codec.
var ErrBearerDisabled = errors.New("bearer tokens are not configured")

// AccessToken is a signed bearer token for API clients.
type AccessToken struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// IssueAccessToken mints a bearer token for the user of a live session. The token
// names the session and expires no later than it.
func (m *Manager) IssueAccessToken(ctx context.Context, sessionToken string) (*AccessToken, error) {
	if m.codec == nil {
		return nil, ErrBearerDisabled
	}

	session, err := m.session(ctx, sessionToken)
	if err != nil {
		return nil, err
	}

	ttl := min(session.ExpiresAt.Sub(m.now()), m.accessTTL)
	if ttl < time.Second || session.ID == "" {
		return nil, ErrNotAuthenticated
	}

	signed, _, err := m.codec.Encode(session.User, session.ID, ttl)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	return &AccessToken{
		AccessToken: signed,
		TokenType:   TokenTypeBearer,
		ExpiresIn:   int(ttl / time.Second),
	}, nil
}

// ResolveBearer verifies a bearer token and returns the profile it carries. The token
// is honoured only while the session it names is live, so logout and refresh revoke it.
func (m *Manager) ResolveBearer(ctx context.Context, tokenString string) (*users.Profile, error) {
	if m.codec == nil || tokenString == "" {
		return nil, ErrNotAuthenticated
	}
	claims, err := m.codec.Decode(tokenString)
	if err != nil {
		log.Debug().Err(err).Msg("Rejected bearer token")
		return nil, ErrNotAuthenticated
	}

	if _, err := m.store.GetAccessGrant(ctx, claims.SessionID); err != nil {
		if errors.Is(err, sessions.ErrNotFound) {
			log.Debug().Str("sid", claims.SessionID).Msg("Rejected bearer token for ended session")
			return nil, ErrNotAuthenticated
		}
		return nil, fmt.Errorf("failed to get access grant: %w", err)
	}
	return claims.Profile(), nil
}
