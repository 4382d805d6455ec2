package harness

// Endpoints holds the user-editable addresses the harness talks to.
// No field is validated; empty or malformed values are only rejected by the remote side.
type Endpoints struct {
	BackendBaseURL      string `json:"backend_base_url"`
	IdentityProviderURL string `json:"identity_provider_url"`
	Realm               string `json:"realm"`
	ClientID            string `json:"client_id"`
}

// EndpointsUpdate is used to edit some fields of Endpoints
type EndpointsUpdate struct {
	BackendBaseURL      *string `json:"backend_base_url"`
	IdentityProviderURL *string `json:"identity_provider_url"`
	Realm               *string `json:"realm"`
	ClientID            *string `json:"client_id"`
}

// Apply returns a copy of endpoints with all fields present in the update replaced
func (update *EndpointsUpdate) Apply(endpoints Endpoints) Endpoints {
	if update.BackendBaseURL != nil {
		endpoints.BackendBaseURL = *update.BackendBaseURL
	}
	if update.IdentityProviderURL != nil {
		endpoints.IdentityProviderURL = *update.IdentityProviderURL
	}
	if update.Realm != nil {
		endpoints.Realm = *update.Realm
	}
	if update.ClientID != nil {
		endpoints.ClientID = *update.ClientID
	}
	return endpoints
}
