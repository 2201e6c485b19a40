package auth

// Error is an authentication failure. Detail is the message served to clients.
type Error struct {
	Detail string
}

func (e *Error) Error() string {
	return e.Detail
}

var (
	ErrNotAuthenticated    = &Error{Detail: "Not authenticated"}
	ErrNoRefreshToken      = &Error{Detail: "No refresh token"}
	ErrInvalidRefreshToken = &Error{Detail: "Invalid refresh token"}
	ErrSessionExpired      = &Error{Detail: "Session expired"}
)

// Callback failure tags, sent back to the browser as /?error=<tag>. A provider
// supplied error is passed through as its own tag.
const (
	TagMissingParameters   = "missing_parameters"
	TagNoSession           = "no_session"
	TagInvalidState        = "invalid_state"
	TagTokenExchangeFailed = "token_exchange_failed"
	TagUserInfoFailed      = "user_info_failed"
	TagServerError         = "server_error"
)

// CallbackError reports why an authorization callback did not produce a session.
type CallbackError struct {
	Tag string
	Err error
}

func (e *CallbackError) Error() string {
	if e.Err != nil {
		return "oauth callback failed (" + e.Tag + "): " + e.Err.Error()
	}
	return "oauth callback failed (" + e.Tag + ")"
}

func (e *CallbackError) Unwrap() error {
	return e.Err
}

// RedirectURL is where the browser is sent after the failure.
func (e *CallbackError) RedirectURL() string {
	return ErrorRedirectURL(e.Tag)
}
