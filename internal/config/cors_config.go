package config

import "strings"

const appURLEnvVar = "APP_URL"

type Cors struct{}

var _ CorsConfig = Cors{}

type AllowedOrigins map[string]struct{}
type nullValue = struct{}

func (a AllowedOrigins) IsAllowedOrigin(origin string) bool {
	_, ok := a[origin]
	return ok
}

func (a AllowedOrigins) String() string {
	var origins []string
	for k := range a {
		origins = append(origins, k)
	}
	return strings.Join(origins, ", ")
}

// GetAppURL is the public base URL of the frontend, used as the CORS origin.
func (Cors) GetAppURL() string {
	return strings.TrimSuffix(GetEnv(appURLEnvVar, "http://localhost:8000"), "/")
}

func (c Cors) GetAllowedOrigins() AllowedOrigins {
	return AllowedOrigins{c.GetAppURL(): nullValue{}}
}

func (Cors) GetAllowedMethods() string {
	return "GET, POST, PUT, PATCH, DELETE, OPTIONS"
}

func (Cors) GetAllowedHeaders() string {
	return "Content-Type, Authorization"
}
