package server

import (
	"errors"
	"net/http"

	"github.com/jrsteele09/mergington-activities/auth"
	"github.com/rs/zerolog/log"
)

// LoginHandler starts the authorization code flow and redirects to the provider.
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		redirect, err := s.auth.InitiateLogin(r.Context(), cookieValue(r, auth.OAuthSessionCookie))
		if err != nil {
			log.Error().Err(err).Msg("Failed to initiate login")
			writeJSONError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		http.SetCookie(w, redirect.Cookie)
		http.Redirect(w, r, redirect.URL, http.StatusTemporaryRedirect)
	}
}

// CallbackHandler completes the login. Failures redirect to /?error=<tag>.
func (s *Server) CallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		result, err := s.auth.HandleCallback(r.Context(), auth.CallbackRequest{
			Code:         q.Get("code"),
			State:        q.Get("state"),
			Error:        q.Get("error"),
			OAuthSession: cookieValue(r, auth.OAuthSessionCookie),
		})
		if err != nil {
			var cbErr *auth.CallbackError
			if !errors.As(err, &cbErr) {
				cbErr = &auth.CallbackError{Tag: auth.TagServerError, Err: err}
			}
			if cbErr.Err != nil {
				log.Error().Err(cbErr.Err).Str("tag", cbErr.Tag).Msg("OAuth callback failed")
			} else {
				log.Warn().Str("tag", cbErr.Tag).Msg("OAuth callback rejected")
			}
			http.Redirect(w, r, cbErr.RedirectURL(), http.StatusTemporaryRedirect)
			return
		}

		for _, c := range result.Cookies {
			http.SetCookie(w, c)
		}
		log.Info().Str("user", result.User.Email).Msg("User logged in")
		http.Redirect(w, r, result.RedirectURL, http.StatusTemporaryRedirect)
	}
}

// CurrentUserHandler returns the profile of the session cookie's owner.
func (s *Server) CurrentUserHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := s.auth.CurrentUser(r.Context(), cookieValue(r, auth.SessionCookie))
		if err != nil {
			writeAuthError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, user)
	}
}

func (s *Server) RefreshHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := s.auth.Refresh(r.Context(), cookieValue(r, auth.RefreshCookie), cookieValue(r, auth.SessionCookie))
		if err != nil {
			writeAuthError(w, err)
			return
		}

		for _, c := range result.Cookies {
			http.SetCookie(w, c)
		}
		writeMessage(w, "Token refreshed")
	}
}

func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookies := s.auth.Logout(r.Context(), cookieValue(r, auth.SessionCookie), cookieValue(r, auth.RefreshCookie))
		for _, c := range cookies {
			http.SetCookie(w, c)
		}
		writeMessage(w, "Logged out successfully")
	}
}

// AccessTokenHandler exchanges a live session for a bearer access token.
func (s *Server) AccessTokenHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accessToken, err := s.auth.IssueAccessToken(r.Context(), cookieValue(r, auth.SessionCookie))
		if err != nil {
			if errors.Is(err, auth.ErrBearerDisabled) {
				writeJSONError(w, "Bearer tokens are not enabled", http.StatusNotImplemented)
				return
			}
			writeAuthError(w, err)
			return
		}

		w.Header().Set("Cache-Control", "no-store")
		writeJSON(w, http.StatusOK, accessToken)
	}
}

// writeAuthError maps *auth.Error to 401 with its detail and anything else to 500.
func writeAuthError(w http.ResponseWriter, err error) {
	var authErr *auth.Error
	if errors.As(err, &authErr) {
		writeJSONError(w, authErr.Detail, http.StatusUnauthorized)
		return
	}
	log.Error().Err(err).Msg("Authentication request failed")
	writeJSONError(w, "Internal server error", http.StatusInternalServerError)
}
