package console

import (
	"net/http"

	"github.com/MasterLKH180cm/keycloak-poc/internal/dispatch"
	"github.com/MasterLKH180cm/keycloak-poc/internal/harness"
	"github.com/MasterLKH180cm/keycloak-poc/internal/oauthflow"
	"github.com/rs/zerolog/log"
)

// EndpointLogin handles the 'GET /v1/auth/login' endpoint.
// The state is stored before the browser leaves; the endpoints are used as they are, even if empty.
func (service *Service) EndpointLogin(writer http.ResponseWriter, request *http.Request) {
	obj, state, err := fromContext(request)
	if err != nil {
		service.writer.WriteInternalError(writer, err)
		return
	}

	initiation, err := oauthflow.Initiate(state.Endpoints(), service.Config.RedirectURI())
	if err != nil {
		service.writer.WriteInternalError(writer, err)
		return
	}
	if err := service.Storage.SetPendingState(request.Context(), obj.ID, initiation.State); err != nil {
		service.writer.WriteInternalError(writer, err)
		return
	}

	log.Debug().Str("workspace", obj.ID).Msg("redirecting to the identity provider")
	http.Redirect(writer, request, initiation.URL, http.StatusFound)
}

// EndpointDiscovery handles the 'GET /v1/auth/discovery' endpoint
func (service *Service) EndpointDiscovery(writer http.ResponseWriter, request *http.Request) {
	_, state, err := fromContext(request)
	if err != nil {
		service.writer.WriteInternalError(writer, err)
		return
	}

	var result dispatch.Result
	document, err := oauthflow.Discover(request.Context(), service.DiscoveryClient, state.Endpoints())
	if err != nil {
		kind := dispatch.KindApplication
		if oauthflow.IsTransportError(err) {
			kind = dispatch.KindTransport
		}
		result = &dispatch.Failure{Kind: kind, Message: err.Error()}
	} else {
		result = &dispatch.Success{Status: http.StatusOK, Document: document}
	}
	service.presentResult(writer, state, harness.CategoryAuth, result)
}
