package console

import (
	"net/http"

	"github.com/MasterLKH180cm/keycloak-poc/internal/api/schema"
	"github.com/MasterLKH180cm/keycloak-poc/internal/api/validation"
)

// EndpointGetPresets handles the 'GET /v1/presets?study={string?}' endpoint
func (service *Service) EndpointGetPresets(writer http.ResponseWriter, request *http.Request) {
	name, validationErr := validation.QueryString(request, "study", false, "")
	if validationErr != nil {
		service.writer.WriteErrors(writer, http.StatusBadRequest, validationErr)
		return
	}

	if name == "" {
		service.writer.WriteJSON(writer, service.Presets)
		return
	}

	study, ok := service.Presets.Lookup(name)
	if !ok {
		service.writer.WriteErrors(writer, http.StatusNotFound, schema.ErrNotFound)
		return
	}
	service.writer.WriteJSON(writer, study)
}
