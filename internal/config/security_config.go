package config

const (
	defaultSecretKey     = "dev-secret-key-change-in-production"
	defaultSessionSecret = "dev-session-secret-change-in-production"
)

type SecurityConfig interface {
	GetSecretKey() string
	GetSessionSecret() string
	GetSecureCookies() bool
}

type Security struct{}

var _ SecurityConfig = Security{}

// GetSecretKey signs bearer access tokens.
func (Security) GetSecretKey() string {
	return GetEnv("SECRET_KEY", defaultSecretKey)
}

// GetSessionSecret keys the digests under which tokens are stored in shared backends.
func (Security) GetSessionSecret() string {
	return GetEnv("SESSION_SECRET", defaultSessionSecret)
}

// GetSecureCookies must be true behind HTTPS.
func (Security) GetSecureCookies() bool {
	return GetEnvBool("SECURE_COOKIES")
}
