package oauthflow

import (
	"net/url"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/MasterLKH180cm/keycloak-poc/internal/harness"
	"github.com/MasterLKH180cm/keycloak-poc/internal/random"
)

var (
	// Scopes is the fixed scope set requested from the identity provider
	Scopes = []string{oidc.ScopeOpenID, "profile", "email"}

	stateLength = 32
)

// Issuer returns the realm's issuer URL, i.e. '{idp}/realms/{realm}'
func Issuer(endpoints harness.Endpoints) string {
	return strings.TrimRight(endpoints.IdentityProviderURL, "/") + "/realms/" + url.PathEscape(endpoints.Realm)
}

// AuthEndpoint returns the authorization endpoint of the realm
func AuthEndpoint(endpoints harness.Endpoints) string {
	return Issuer(endpoints) + "/protocol/openid-connect/auth"
}

// AuthorizationURL builds the authorization-code request URL for the given endpoints.
// Empty fields are not rejected; the resulting URL is issued anyway and the identity provider decides.
func AuthorizationURL(endpoints harness.Endpoints, redirectURI, state string) string {
	config := &oauth2.Config{
		ClientID:    endpoints.ClientID,
		RedirectURL: redirectURI,
		Endpoint: oauth2.Endpoint{
			AuthURL: AuthEndpoint(endpoints),
		},
		Scopes: Scopes,
	}
	return config.AuthCodeURL(state)
}

// NewState generates a fresh anti-forgery state value
func NewState() (string, error) {
	return random.String(stateLength, random.CharsetState)
}

// Initiation is a prepared redirect to the identity provider
type Initiation struct {
	State string
	URL   string
}

// Initiate generates a fresh state and builds the matching authorization URL.
// The caller must store State before sending the browser to URL.
func Initiate(endpoints harness.Endpoints, redirectURI string) (*Initiation, error) {
	state, err := NewState()
	if err != nil {
		return nil, err
	}
	return &Initiation{
		State: state,
		URL:   AuthorizationURL(endpoints, redirectURI, state),
	}, nil
}
