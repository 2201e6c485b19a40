package provider

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate checks the registration and endpoints before any request is made.
func (cfg Config) Validate() error {
	if err := ValidateRedirectURI(cfg.RedirectURL); err != nil {
		return err
	}
	for name, endpoint := range map[string]string{
		"authorize URL": cfg.Endpoints.AuthURL,
		"token URL":     cfg.Endpoints.TokenURL,
		"userinfo URL":  cfg.Endpoints.UserInfoURL,
	} {
		if err := validateEndpoint(endpoint); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	for _, scope := range cfg.Scopes {
		if err := ValidateScope(scope); err != nil {
			return err
		}
	}
	return nil
}

// ValidateRedirectURI validates redirect URI format
func ValidateRedirectURI(uri string) error {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return errors.New("redirect_uri is required")
	}

	// Must start with http:// or https://
	if !strings.HasPrefix(uri, "http://") && !strings.HasPrefix(uri, "https://") {
		return errors.New("redirect_uri must use http or https scheme")
	}

	// Should not contain fragments
	if strings.Contains(uri, "#") {
		return errors.New("redirect_uri must not contain fragments")
	}

	return nil
}

// ValidateScope rejects a single scope token containing whitespace.
func ValidateScope(scope string) error {
	if scope == "" {
		return errors.New("scope must not be empty")
	}
	if strings.ContainsAny(scope, " \n\r\t") {
		return fmt.Errorf("scope %q contains whitespace", scope)
	}
	return nil
}

func validateEndpoint(endpoint string) error {
	u, err := url.Parse(endpoint)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("must use http or https scheme")
	}
	if u.Host == "" {
		return errors.New("host is required")
	}
	return nil
}
