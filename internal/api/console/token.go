package console

import (
	"net/http"
	"time"

	"github.com/MasterLKH180cm/keycloak-poc/internal/api/schema"
	"github.com/MasterLKH180cm/keycloak-poc/internal/harness"
	"github.com/MasterLKH180cm/keycloak-poc/internal/oauthflow"
)

type endpointSetTokenRequestPayload struct {
	Token string `json:"token" required:"true"`
}

type tokenReport struct {
	Token      string    `json:"token,omitempty"`
	CapturedAt time.Time `json:"captured_at"`
	Persisted  bool      `json:"persisted"`
	Present    bool      `json:"present"`
}

// EndpointSetToken handles the 'PUT /v1/workspace/token' endpoint
func (service *Service) EndpointSetToken(writer http.ResponseWriter, request *http.Request) {
	obj, state, err := fromContext(request)
	if err != nil {
		service.writer.WriteInternalError(writer, err)
		return
	}

	payload, validationErrs, err := schema.UnmarshalBody[endpointSetTokenRequestPayload](request)
	if err != nil {
		service.writer.WriteInternalError(writer, err)
		return
	}
	if len(validationErrs) > 0 {
		service.writer.WriteErrors(writer, http.StatusBadRequest, validationErrs...)
		return
	}

	record, err := state.SetToken(payload.Token, func(record *harness.TokenRecord) error {
		return service.Storage.SaveToken(request.Context(), obj.ID, record)
	})
	if err != nil {
		service.writer.WriteInternalError(writer, err)
		return
	}

	service.present(writer, state, harness.CategoryAuth, &tokenReport{
		Token:      oauthflow.Preview(record.Value),
		CapturedAt: record.CapturedAt,
		Persisted:  state.Profile().PersistsToken(),
		Present:    true,
	}, nil)
}

// EndpointForgetToken handles the 'DELETE /v1/workspace/token' endpoint.
// No backend call is made.
func (service *Service) EndpointForgetToken(writer http.ResponseWriter, request *http.Request) {
	obj, state, err := fromContext(request)
	if err != nil {
		service.writer.WriteInternalError(writer, err)
		return
	}

	err = state.ForgetToken(func() error {
		return service.Storage.ClearToken(request.Context(), obj.ID)
	})
	if err != nil {
		service.writer.WriteInternalError(writer, err)
		return
	}

	service.present(writer, state, harness.CategoryAuth, "token cleared", nil)
}
