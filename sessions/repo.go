package sessions

import (
	"context"
	"errors"
	"time"

	apperrors "github.com/jrsteele09/mergington-activities/internal/errors"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
// Every record expiry is stamped and checked against this clock.
var NowTimeFunc = time.Now

// ErrNotFound is returned for keys that are absent or whose record has expired.
var ErrNotFound = apperrors.ErrNotFound

// ErrStateMismatch is returned by ConsumePending when the presented state differs
// from the stored one. The record is left in place.
var ErrStateMismatch = errors.New("state mismatch")

// Namespace separates the kinds of records held by a Store.
type Namespace string

const (
	NamespacePending  Namespace = "pending"
	NamespaceSessions Namespace = "sessions"
	NamespaceRefresh  Namespace = "refresh"
	NamespaceGrants   Namespace = "grants"
)

// Store holds login state for the life of the process (or of the shared backend).
// Records carry their own expiry: a put with an expiry in the past stores nothing and
// a get never returns an expired record.
type Store interface {
	PutPending(ctx context.Context, key string, pending *PendingAuthorization) error
	GetPending(ctx context.Context, key string) (*PendingAuthorization, error)
	// ConsumePending atomically removes and returns the pending authorization when
	// its state equals state. Of any number of concurrent calls at most one succeeds.
	ConsumePending(ctx context.Context, key, state string) (*PendingAuthorization, error)

	PutSession(ctx context.Context, key string, session *Session) error
	GetSession(ctx context.Context, key string) (*Session, error)
	DeleteSession(ctx context.Context, key string) error

	PutRefreshToken(ctx context.Context, key string, refresh *RefreshToken) error
	GetRefreshToken(ctx context.Context, key string) (*RefreshToken, error)
	// ConsumeRefreshToken atomically removes and returns the refresh token.
	ConsumeRefreshToken(ctx context.Context, key string) (*RefreshToken, error)
	DeleteRefreshToken(ctx context.Context, key string) error

	PutAccessGrant(ctx context.Context, sessionID string, grant *AccessGrant) error
	GetAccessGrant(ctx context.Context, sessionID string) (*AccessGrant, error)
	DeleteAccessGrant(ctx context.Context, sessionID string) error

	// SweepExpired removes every expired record in every namespace.
	SweepExpired(ctx context.Context) error

	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error

	Close() error
}
