package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	RouteRoot  = "/"
	RouteIndex = "/static/index.html"

	// Auth Routes
	RouteAuthLogin    = "/auth/login"
	RouteAuthCallback = "/auth/callback"
	RouteAuthUser     = "/auth/user"
	RouteAuthRefresh  = "/auth/refresh"
	RouteAuthLogout   = "/auth/logout"
	RouteAuthToken    = "/auth/token"

	// Activity Routes
	RouteActivities         = "/activities"
	RouteActivitySignup     = "/activities/{name}/signup"
	RouteActivityUnregister = "/activities/{name}/unregister"

	RouteHealth = "/healthz"

	// Static Asset Routes (patterns)
	RouteStatic = "/static/{file...}"
)
