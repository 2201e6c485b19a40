package provider

import (
	"context"
	"fmt"
	"net/http"

	"github.com/coreos/go-oidc/v3/oidc"
)

// Discover loads the authorization, token and user-info endpoints from the issuer's
// OpenID configuration document.
func Discover(ctx context.Context, issuerURL string, httpClient *http.Client) (Endpoints, error) {
	if httpClient != nil {
		ctx = oidc.ClientContext(ctx, httpClient)
	}

	p, err := oidc.NewProvider(ctx, issuerURL)
	if err != nil {
		return Endpoints{}, fmt.Errorf("[provider Discover] failed to discover %s: %w", issuerURL, err)
	}

	endpoint := p.Endpoint()
	endpoints := Endpoints{
		AuthURL:     endpoint.AuthURL,
		TokenURL:    endpoint.TokenURL,
		UserInfoURL: p.UserInfoEndpoint(),
	}
	if endpoints.UserInfoURL == "" {
		return Endpoints{}, fmt.Errorf("[provider Discover] %s does not advertise a userinfo_endpoint", issuerURL)
	}
	return endpoints, nil
}
