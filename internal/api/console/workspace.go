package console

import (
	"net/http"

	"github.com/MasterLKH180cm/keycloak-poc/internal/api/schema"
	"github.com/MasterLKH180cm/keycloak-poc/internal/harness"
)

type workspaceResponse struct {
	ID           string                      `json:"id"`
	Profile      harness.Profile             `json:"profile"`
	Endpoints    harness.Endpoints           `json:"endpoints"`
	TokenPresent bool                        `json:"token_present"`
	Pending      bool                        `json:"authorization_pending"`
	Panels       map[harness.Category]string `json:"panels"`
}

// EndpointGetWorkspace handles the 'GET /v1/workspace' endpoint
func (service *Service) EndpointGetWorkspace(writer http.ResponseWriter, request *http.Request) {
	obj, state, err := fromContext(request)
	if err != nil {
		service.writer.WriteInternalError(writer, err)
		return
	}

	endpoints, token := state.Snapshot()
	service.writer.WriteJSON(writer, &workspaceResponse{
		ID:           obj.ID,
		Profile:      state.Profile(),
		Endpoints:    endpoints,
		TokenPresent: token != "",
		Pending:      obj.PendingState != "",
		Panels:       state.Board().Snapshot(),
	})
}

// EndpointEditEndpoints handles the 'PUT /v1/workspace/endpoints' endpoint.
// Absent fields are left untouched; the values are not validated.
func (service *Service) EndpointEditEndpoints(writer http.ResponseWriter, request *http.Request) {
	_, state, err := fromContext(request)
	if err != nil {
		service.writer.WriteInternalError(writer, err)
		return
	}

	update, validationErrs, err := schema.UnmarshalBody[harness.EndpointsUpdate](request)
	if err != nil {
		service.writer.WriteInternalError(writer, err)
		return
	}
	if len(validationErrs) > 0 {
		service.writer.WriteErrors(writer, http.StatusBadRequest, validationErrs...)
		return
	}

	service.writer.WriteJSON(writer, state.UpdateEndpoints(update))
}
