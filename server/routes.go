package server

import (
	"net/http"

	"github.com/rs/zerolog/log"
)

func (s *Server) initRoutes() {
	s.RegisterRouteHandler("GET /{$}", ChainMiddleware(s.IndexRedirectHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("GET "+RouteStatic, ChainMiddleware(s.serveFileHandler(), s.HTMLMiddleWare()...))

	// LOGIN
	s.RegisterRouteHandler("GET "+RouteAuthLogin, ChainMiddleware(s.LoginHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteAuthCallback, ChainMiddleware(s.CallbackHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteAuthUser, ChainMiddleware(s.CurrentUserHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteAuthRefresh, ChainMiddleware(s.RefreshHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteAuthLogout, ChainMiddleware(s.LogoutHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteAuthToken, ChainMiddleware(s.AccessTokenHandler(), s.APIMiddleware()...))

	// Activities
	s.RegisterRouteHandler("GET "+RouteActivities, ChainMiddleware(s.ListActivitiesHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteActivitySignup, ChainMiddleware(s.SignupHandler(), s.APIMiddleware(s.RequireUser())...))
	s.RegisterRouteHandler("DELETE "+RouteActivityUnregister, ChainMiddleware(s.UnregisterHandler(), s.APIMiddleware(s.RequireUser())...))

	s.RegisterRouteFunc("GET "+RouteHealth, ChainMiddleware(s.HealthHandler(), s.LoggingMiddleware, s.RecoverMiddleware))

	// Preflight for every API route; CorsMiddleware answers it.
	s.RegisterRouteFunc("OPTIONS /", ChainMiddleware(func(http.ResponseWriter, *http.Request) {}, s.APIMiddleware()...))
}

// IndexRedirectHandler sends the browser to the single page frontend, keeping the
// query so login errors reach it.
func (s *Server) IndexRedirectHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		target := RouteIndex
		if r.URL.RawQuery != "" {
			target += "?" + r.URL.RawQuery
		}
		http.Redirect(w, r, target, http.StatusTemporaryRedirect)
	}
}

func (s *Server) serveFileHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filePath := r.PathValue("file")
		if filePath == "" {
			http.Error(w, "404 - Page Not Found", http.StatusNotFound)
			return
		}
		if err := StreamFile(w, r, filePath); err != nil {
			log.Debug().Err(err).Str("file", filePath).Msg("Static file not served")
			http.Error(w, "404 - Page Not Found", http.StatusNotFound)
			return
		}
	}
}
