package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/mergington-activities/internal/utils"
	"github.com/jrsteele09/mergington-activities/pkce"
	"github.com/jrsteele09/mergington-activities/provider"
	"github.com/jrsteele09/mergington-activities/sessions"
	"github.com/jrsteele09/mergington-activities/token"
	"github.com/jrsteele09/mergington-activities/users"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// Default lifetimes.
const (
	DefaultPendingTTL = 10 * time.Minute
	DefaultAccessTTL  = 30 * time.Minute
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

// SuccessRedirectURL is where the browser lands after a completed login.
const SuccessRedirectURL = "/"

// ErrorRedirectURL is where the browser lands after a failed login.
func ErrorRedirectURL(tag string) string {
	return "/?error=" + url.QueryEscape(tag)
}

// ExchangeClient talks to the identity provider.
type ExchangeClient interface {
	AuthorizationURL(state, challenge string) string
	ExchangeCode(ctx context.Context, code, verifier string) (*oauth2.Token, error)
	FetchUserInfo(ctx context.Context, accessToken string) (*provider.UserInfo, error)
}

var _ ExchangeClient = (*provider.Client)(nil)

// TokenCodec mints and verifies bearer access tokens.
type TokenCodec interface {
	Encode(profile users.Profile, sessionID string, ttl time.Duration) (string, time.Time, error)
	Decode(tokenString string) (*token.Claims, error)
}

var _ TokenCodec = (*token.Codec)(nil)

// Manager runs the login flow and owns the lifecycle of sessions and refresh tokens.
// Record expiries are stamped with sessions.NowTimeFunc, the clock the store checks
// them against.
type Manager struct {
	client ExchangeClient
	store  sessions.Store
	codec  TokenCodec

	pendingTTL    time.Duration
	accessTTL     time.Duration
	refreshTTL    time.Duration
	secureCookies bool
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

func WithPendingTTL(ttl time.Duration) ManagerOption {
	return func(m *Manager) {
		m.pendingTTL = ttl
	}
}

// WithAccessTTL sets the session lifetime, which is also the access token lifetime.
func WithAccessTTL(ttl time.Duration) ManagerOption {
	return func(m *Manager) {
		m.accessTTL = ttl
	}
}

func WithRefreshTTL(ttl time.Duration) ManagerOption {
	return func(m *Manager) {
		m.refreshTTL = ttl
	}
}

// WithSecureCookies marks every cookie Secure.
func WithSecureCookies(secure bool) ManagerOption {
	return func(m *Manager) {
		m.secureCookies = secure
	}
}

// WithTokenCodec enables bearer access tokens.
func WithTokenCodec(codec TokenCodec) ManagerOption {
	return func(m *Manager) {
		m.codec = codec
	}
}

func NewManager(client ExchangeClient, store sessions.Store, opts ...ManagerOption) *Manager {
	m := &Manager{
		client:     client,
		store:      store,
		pendingTTL: DefaultPendingTTL,
		accessTTL:  DefaultAccessTTL,
		refreshTTL: DefaultRefreshTTL,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) now() time.Time {
	return sessions.NowTimeFunc()
}

// LoginRedirect sends the browser to the provider.
type LoginRedirect struct {
	URL    string
	Cookie *http.Cookie
}

// InitiateLogin starts a login. A presented oauth-session key is reused, otherwise a
// new one is minted; either way it gets fresh PKCE material and state.
func (m *Manager) InitiateLogin(ctx context.Context, oauthSession string) (*LoginRedirect, error) {
	if oauthSession == "" {
		oauthSession = pkce.GenerateToken()
	}

	verifier := pkce.GenerateVerifier()
	state := pkce.GenerateState()

	pending := &sessions.PendingAuthorization{
		CodeVerifier: verifier,
		State:        state,
		ExpiresAt:    m.now().Add(m.pendingTTL),
	}
	if err := m.store.PutPending(ctx, oauthSession, pending); err != nil {
		return nil, fmt.Errorf("failed to store pending authorization: %w", err)
	}

	return &LoginRedirect{
		URL:    m.client.AuthorizationURL(state, pkce.ChallengeFor(verifier)),
		Cookie: m.cookie(OAuthSessionCookie, oauthSession, m.pendingTTL),
	}, nil
}

// CallbackRequest carries the query parameters of the provider redirect and the
// oauth-session cookie value.
type CallbackRequest struct {
	Code         string
	State        string
	Error        string
	OAuthSession string
}

// CallbackResult is a completed login.
type CallbackResult struct {
	RedirectURL string
	Cookies     []*http.Cookie
	User        users.Profile
}

// HandleCallback completes a login. Every failure is a *CallbackError.
func (m *Manager) HandleCallback(ctx context.Context, req CallbackRequest) (*CallbackResult, error) {
	if req.Error != "" {
		return nil, &CallbackError{Tag: req.Error}
	}
	if req.Code == "" || req.State == "" {
		return nil, &CallbackError{Tag: TagMissingParameters}
	}
	if req.OAuthSession == "" {
		return nil, &CallbackError{Tag: TagNoSession}
	}

	// The verifier is good for one exchange attempt only. A mismatched state leaves
	// the pending record in place.
	pending, err := m.store.ConsumePending(ctx, req.OAuthSession, req.State)
	if err != nil {
		if errors.Is(err, sessions.ErrNotFound) || errors.Is(err, sessions.ErrStateMismatch) {
			return nil, &CallbackError{Tag: TagInvalidState}
		}
		return nil, &CallbackError{Tag: TagServerError, Err: err}
	}

	tok, err := m.client.ExchangeCode(ctx, req.Code, pending.CodeVerifier)
	if err != nil {
		return nil, &CallbackError{Tag: TagTokenExchangeFailed, Err: err}
	}

	info, err := m.client.FetchUserInfo(ctx, tok.AccessToken)
	if err != nil {
		return nil, &CallbackError{Tag: TagUserInfoFailed, Err: err}
	}
	profile, err := ProfileFromUserInfo(info)
	if err != nil {
		return nil, &CallbackError{Tag: TagUserInfoFailed, Err: err}
	}

	cookies, err := m.startSession(ctx, profile)
	if err != nil {
		return nil, &CallbackError{Tag: TagServerError, Err: err}
	}

	return &CallbackResult{
		RedirectURL: SuccessRedirectURL,
		Cookies:     append([]*http.Cookie{m.expiredCookie(OAuthSessionCookie)}, cookies...),
		User:        profile,
	}, nil
}

// ProfileFromUserInfo builds the session profile. A missing email becomes
// "<login>@github.user" and a missing name becomes the login.
func ProfileFromUserInfo(info *provider.UserInfo) (users.Profile, error) {
	login := info.Username()
	email := info.Email
	if email == "" {
		if login == "" {
			return users.Profile{}, errors.New("user info has neither email nor login")
		}
		email = login + "@github.user"
	}

	name := info.Name
	if name == "" {
		name = login
	}

	return users.Profile{
		Email:     email,
		Name:      name,
		ID:        info.ExternalID(),
		AvatarURL: utils.NonEmpty(info.Avatar()),
	}, nil
}

// startSession stores a new session and refresh token for profile and returns their
// cookies. With bearer tokens enabled the session also gets an access grant.
func (m *Manager) startSession(ctx context.Context, profile users.Profile) ([]*http.Cookie, error) {
	now := m.now()
	sessionToken := pkce.GenerateToken()
	refreshToken := pkce.GenerateToken()

	session := &sessions.Session{ID: uuid.NewString(), User: profile, ExpiresAt: now.Add(m.accessTTL)}
	if err := m.store.PutSession(ctx, sessionToken, session); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}

	if m.codec != nil {
		grant := &sessions.AccessGrant{ExpiresAt: session.ExpiresAt}
		if err := m.store.PutAccessGrant(ctx, session.ID, grant); err != nil {
			_ = m.store.DeleteSession(ctx, sessionToken)
			return nil, fmt.Errorf("failed to store access grant: %w", err)
		}
	}

	refresh := &sessions.RefreshToken{Subject: profile.Subject(), ExpiresAt: now.Add(m.refreshTTL)}
	if err := m.store.PutRefreshToken(ctx, refreshToken, refresh); err != nil {
		m.endSession(ctx, sessionToken, session)
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return []*http.Cookie{
		m.cookie(SessionCookie, sessionToken, m.accessTTL),
		m.cookie(RefreshCookie, refreshToken, m.refreshTTL),
	}, nil
}

// endSession deletes a session and its access grant.
func (m *Manager) endSession(ctx context.Context, sessionToken string, session *sessions.Session) {
	if err := m.store.DeleteSession(ctx, sessionToken); err != nil {
		log.Warn().Err(err).Msg("Failed to delete session")
	}
	if session.ID == "" {
		return
	}
	if err := m.store.DeleteAccessGrant(ctx, session.ID); err != nil {
		log.Warn().Err(err).Msg("Failed to delete access grant")
	}
}

// CurrentUser resolves a session token to its profile.
func (m *Manager) CurrentUser(ctx context.Context, sessionToken string) (*users.Profile, error) {
	session, err := m.session(ctx, sessionToken)
	if err != nil {
		return nil, err
	}
	return &session.User, nil
}

func (m *Manager) session(ctx context.Context, sessionToken string) (*sessions.Session, error) {
	if sessionToken == "" {
		return nil, ErrNotAuthenticated
	}
	session, err := m.store.GetSession(ctx, sessionToken)
	if err != nil {
		if errors.Is(err, sessions.ErrNotFound) {
			return nil, ErrNotAuthenticated
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return session, nil
}

// RefreshResult carries the cookies of a renewed session.
type RefreshResult struct {
	Cookies []*http.Cookie
	User    users.Profile
}

// Refresh renews a live session. The refresh token is consumed up front, so of two
// concurrent refreshes with the same token only one succeeds. A refresh that fails after
// that puts the token back. Both the session and the
// refresh token are replaced and the superseded session ended.
func (m *Manager) Refresh(ctx context.Context, refreshToken, sessionToken string) (*RefreshResult, error) {
	if refreshToken == "" {
		return nil, ErrNoRefreshToken
	}

	refresh, err := m.store.ConsumeRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, sessions.ErrNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, fmt.Errorf("failed to consume refresh token: %w", err)
	}

	session, err := m.session(ctx, sessionToken)
	if err != nil {
		m.restoreRefreshToken(ctx, refreshToken, refresh)
		if errors.Is(err, ErrNotAuthenticated) {
			return nil, ErrSessionExpired
		}
		return nil, err
	}

	cookies, err := m.startSession(ctx, session.User)
	if err != nil {
		m.restoreRefreshToken(ctx, refreshToken, refresh)
		return nil, err
	}

	m.endSession(ctx, sessionToken, session)

	return &RefreshResult{Cookies: cookies, User: session.User}, nil
}

// restoreRefreshToken puts back a consumed refresh token after a refresh that did not
// go through. A refresh token outlives the session it was paired with.
func (m *Manager) restoreRefreshToken(ctx context.Context, key string, refresh *sessions.RefreshToken) {
	if err := m.store.PutRefreshToken(ctx, key, refresh); err != nil {
		log.Warn().Err(err).Msg("Failed to restore refresh token")
	}
}

// Logout deletes whatever records the tokens name, including the access grant of the
// session, and returns cookies that clear both. It never fails.
func (m *Manager) Logout(ctx context.Context, sessionToken, refreshToken string) []*http.Cookie {
	if sessionToken != "" {
		session, err := m.store.GetSession(ctx, sessionToken)
		if err != nil {
			if !errors.Is(err, sessions.ErrNotFound) {
				log.Warn().Err(err).Msg("Failed to read session on logout")
			}
			session = &sessions.Session{}
		}
		m.endSession(ctx, sessionToken, session)
	}
	if refreshToken != "" {
		if err := m.store.DeleteRefreshToken(ctx, refreshToken); err != nil {
			log.Warn().Err(err).Msg("Failed to delete refresh token on logout")
		}
	}
	return []*http.Cookie{
		m.expiredCookie(SessionCookie),
		m.expiredCookie(RefreshCookie),
	}
}
