package oauthflow

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/coreos/go-oidc/v3/oidc"

	"github.com/MasterLKH180cm/keycloak-poc/internal/harness"
)

// Discover fetches the OpenID configuration of the realm the given endpoints point to.
// The issuer reported by the identity provider has to match the configured one.
func Discover(ctx context.Context, client *http.Client, endpoints harness.Endpoints) (map[string]any, error) {
	if client != nil {
		ctx = oidc.ClientContext(ctx, client)
	}
	provider, err := oidc.NewProvider(ctx, Issuer(endpoints))
	if err != nil {
		return nil, err
	}

	document := make(map[string]any)
	if err := provider.Claims(&document); err != nil {
		return nil, err
	}
	return document, nil
}

// IsTransportError reports whether a discovery failed without an answer from the identity provider.
// Any other failure (non-2xx status, unparsable document, issuer mismatch) stems from the answer itself.
func IsTransportError(err error) bool {
	var urlErr *url.Error
	return errors.As(err, &urlErr) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}
