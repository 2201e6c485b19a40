// Package provider talks to the third-party identity provider: it builds the
// authorization URL, trades an authorization code for an access token and fetches the
// signed-in user's profile. Every call is a single attempt bounded by an explicit timeout.
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jrsteele09/mergington-activities/pkce"
	"golang.org/x/oauth2"
)

// DefaultTimeout bounds each outbound provider call when Config.Timeout is zero.
const DefaultTimeout = 10 * time.Second

// maxUserInfoBytes caps the user-info body we are willing to decode.
const maxUserInfoBytes = 1 << 20

var (
	ErrTokenExchange = errors.New("token exchange failed")
	ErrUserInfo      = errors.New("user info request failed")
)

// Endpoints are the three provider URLs used by the login flow.
type Endpoints struct {
	AuthURL     string
	TokenURL    string
	UserInfoURL string
}

// Config holds the OAuth client registration and provider endpoints.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
	Endpoints    Endpoints

	// Timeout for each provider call (default: DefaultTimeout).
	Timeout time.Duration

	// HTTPClient is an optional custom HTTP client. Its Timeout is set when zero.
	HTTPClient *http.Client
}

// Client performs the code exchange and user-info calls.
type Client struct {
	oauth       *oauth2.Config
	userInfoURL string
	httpClient  *http.Client
}

func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if httpClient.Timeout == 0 {
		copied := *httpClient
		copied.Timeout = timeout
		httpClient = &copied
	}

	scopes := make([]string, len(cfg.Scopes))
	copy(scopes, cfg.Scopes)

	return &Client{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.Endpoints.AuthURL,
				TokenURL:  cfg.Endpoints.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		userInfoURL: cfg.Endpoints.UserInfoURL,
		httpClient:  httpClient,
	}
}

// AuthorizationURL is the provider URL the browser is redirected to at login.
func (c *Client) AuthorizationURL(state, challenge string) string {
	return c.oauth.AuthCodeURL(state,
		oauth2.SetAuthURLParam("code_challenge", challenge),
		oauth2.SetAuthURLParam("code_challenge_method", pkce.MethodS256),
	)
}

// ExchangeCode trades code and its PKCE verifier for a provider access token.
// Transport errors, non-200 responses and bodies without an access token all return
// an error wrapping ErrTokenExchange. No retry is attempted.
func (c *Client) ExchangeCode(ctx context.Context, code, verifier string) (*oauth2.Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)

	tok, err := c.oauth.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenExchange, err)
	}
	if tok.AccessToken == "" {
		return nil, fmt.Errorf("%w: response has no access_token", ErrTokenExchange)
	}
	return tok, nil
}

// FetchUserInfo requests the profile of the user owning accessToken.
// Any failure returns an error wrapping ErrUserInfo.
func (c *Client) FetchUserInfo(ctx context.Context, accessToken string) (*UserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUserInfo, err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUserInfo, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxUserInfoBytes))
		return nil, fmt.Errorf("%w: unexpected status %d", ErrUserInfo, resp.StatusCode)
	}

	var info UserInfo
	decoder := json.NewDecoder(io.LimitReader(resp.Body, maxUserInfoBytes))
	decoder.UseNumber()
	if err := decoder.Decode(&info); err != nil {
		return nil, fmt.Errorf("%w: malformed body: %w", ErrUserInfo, err)
	}
	return &info, nil
}
