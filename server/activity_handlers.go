package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jrsteele09/mergington-activities/activities"
	"github.com/rs/zerolog/log"
)

const healthCheckTimeout = 2 * time.Second

func (s *Server) ListActivitiesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, s.catalog.List())
	}
}

// SignupHandler signs the authenticated user up for the named activity.
func (s *Server) SignupHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		if !ok {
			writeJSONError(w, "Authentication required", http.StatusUnauthorized)
			return
		}

		name := r.PathValue("name")
		if err := s.catalog.Signup(name, user.Email); err != nil {
			writeCatalogError(w, err)
			return
		}
		writeMessage(w, fmt.Sprintf("Signed up %s for %s", user.Email, name))
	}
}

// UnregisterHandler removes ?email= (default: the authenticated user) from the named activity.
func (s *Server) UnregisterHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		if !ok {
			writeJSONError(w, "Authentication required", http.StatusUnauthorized)
			return
		}

		email := r.URL.Query().Get("email")
		if email == "" {
			email = user.Email
		}

		name := r.PathValue("name")
		if err := s.catalog.Unregister(name, email); err != nil {
			writeCatalogError(w, err)
			return
		}
		writeMessage(w, fmt.Sprintf("Unregistered %s from %s", email, name))
	}
}

func writeCatalogError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, activities.ErrActivityNotFound):
		writeJSONError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, activities.ErrAlreadySignedUp), errors.Is(err, activities.ErrNotSignedUp):
		writeJSONError(w, err.Error(), http.StatusBadRequest)
	default:
		log.Error().Err(err).Msg("Catalog update failed")
		writeJSONError(w, "Internal server error", http.StatusInternalServerError)
	}
}

// HealthHandler reports 503 when any registered dependency fails its ping.
func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()

		for _, p := range s.health {
			if err := p.Ping(ctx); err != nil {
				log.Warn().Err(err).Msg("Health check failed")
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
