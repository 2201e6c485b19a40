package server

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/jrsteele09/mergington-activities/auth"
	"github.com/jrsteele09/mergington-activities/users"
	"github.com/rs/zerolog/log"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

// ContextKeyUser stores the authenticated *users.Profile
const ContextKeyUser ContextKey = "user"

// UserFromContext returns the profile RequireUser stored on the request context.
func UserFromContext(ctx context.Context) (*users.Profile, bool) {
	user, ok := ctx.Value(ContextKeyUser).(*users.Profile)
	return user, ok && user != nil
}

// RequireUser rejects requests that carry neither a live session cookie nor a valid
// bearer access token.
func (s *Server) RequireUser() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			user, err := s.authenticate(r)
			if err != nil {
				if errors.Is(err, auth.ErrNotAuthenticated) {
					writeJSONError(w, "Authentication required", http.StatusUnauthorized)
					return
				}
				log.Error().Err(err).Msg("Failed to resolve session")
				writeJSONError(w, "Internal server error", http.StatusInternalServerError)
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyUser, user)
			next(w, r.WithContext(ctx))
		}
	}
}

// authenticate resolves the session cookie first and the Authorization header second.
func (s *Server) authenticate(r *http.Request) (*users.Profile, error) {
	user, err := s.auth.CurrentUser(r.Context(), cookieValue(r, auth.SessionCookie))
	if err == nil || !errors.Is(err, auth.ErrNotAuthenticated) {
		return user, err
	}

	bearer, ok := bearerToken(r)
	if !ok {
		return nil, auth.ErrNotAuthenticated
	}
	return s.auth.ResolveBearer(r.Context(), bearer)
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

func cookieValue(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}
