package console

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"github.com/MasterLKH180cm/keycloak-poc/internal/api/schema"
	"github.com/MasterLKH180cm/keycloak-poc/internal/api/validation"
	"github.com/MasterLKH180cm/keycloak-poc/internal/backend"
	"github.com/MasterLKH180cm/keycloak-poc/internal/dispatch"
	"github.com/MasterLKH180cm/keycloak-poc/internal/harness"
	"github.com/rs/zerolog/log"
)

type endpointStudyRequestPayload struct {
	StudyID  string           `json:"study_id" required:"true"`
	Patient  *backend.Patient `json:"patient"`
	Metadata map[string]any   `json:"metadata"`
}

func (payload *endpointStudyRequestPayload) params() *backend.StudyParams {
	return &backend.StudyParams{
		StudyID:  payload.StudyID,
		Patient:  payload.Patient,
		Metadata: payload.Metadata,
	}
}

type endpointOpenWebSocketRequestPayload struct {
	ClientInfo map[string]any `json:"client_info"`
}

type endpointCustomCallRequestPayload struct {
	Path     string          `json:"path" required:"true"`
	Method   string          `json:"method"`
	Payload  json.RawMessage `json:"payload"`
	Category string          `json:"category"`
}

type logoutReport struct {
	Backend      *dispatch.Envelope `json:"backend"`
	TokenCleared bool               `json:"token_cleared"`
	Error        string             `json:"error,omitempty"`
}

// EndpointOpenStudy handles the 'POST /v1/actions/study/open' endpoint
func (service *Service) EndpointOpenStudy(writer http.ResponseWriter, request *http.Request) {
	_, state, err := fromContext(request)
	if err != nil {
		service.writer.WriteInternalError(writer, err)
		return
	}
	payload, ok := service.studyPayload(writer, request)
	if !ok {
		return
	}

	result := service.backendClient(state).OpenStudy(request.Context(), payload.params())
	service.presentResult(writer, state, harness.CategoryStudy, result)
}

// EndpointCloseStudy handles the 'POST /v1/actions/study/close' endpoint
func (service *Service) EndpointCloseStudy(writer http.ResponseWriter, request *http.Request) {
	_, state, err := fromContext(request)
	if err != nil {
		service.writer.WriteInternalError(writer, err)
		return
	}
	payload, ok := service.studyPayload(writer, request)
	if !ok {
		return
	}

	result := service.backendClient(state).CloseStudy(request.Context(), payload.params())
	service.presentResult(writer, state, harness.CategoryStudy, result)
}

// EndpointSessionState handles the 'GET /v1/actions/session' endpoint
func (service *Service) EndpointSessionState(writer http.ResponseWriter, request *http.Request) {
	_, state, err := fromContext(request)
	if err != nil {
		service.writer.WriteInternalError(writer, err)
		return
	}

	result := service.backendClient(state).SessionState(request.Context())
	service.presentResult(writer, state, harness.CategorySession, result)
}

// EndpointLogout handles the 'POST /v1/actions/logout' endpoint.
// The token is cleared whatever the backend answered; only a failure to erase the persisted copy keeps it.
func (service *Service) EndpointLogout(writer http.ResponseWriter, request *http.Request) {
	obj, state, err := fromContext(request)
	if err != nil {
		service.writer.WriteInternalError(writer, err)
		return
	}

	envelope := service.backendClient(state).Logout(request.Context()).Envelope()

	report := &logoutReport{Backend: envelope}
	// A browser disconnecting during the backend call must not cancel the erase
	eraseCtx := context.WithoutCancel(request.Context())
	err = state.ForgetToken(func() error {
		return service.Storage.ClearToken(eraseCtx, obj.ID)
	})
	if err != nil {
		log.Error().Err(err).Str("workspace", obj.ID).Msg("could not erase the persisted token on logout")
		report.Error = "the persisted token could not be erased, both copies were kept: " + err.Error()
	} else {
		report.TokenCleared = true
	}

	service.present(writer, state, harness.CategorySession, report, envelope)
}

// EndpointOpenWebSocket handles the 'POST /v1/actions/websocket/{appType}' endpoint
func (service *Service) EndpointOpenWebSocket(writer http.ResponseWriter, request *http.Request) {
	_, state, err := fromContext(request)
	if err != nil {
		service.writer.WriteInternalError(writer, err)
		return
	}
	appType, validationErr := validation.PathString(request, "appType")
	if validationErr != nil {
		service.writer.WriteErrors(writer, http.StatusBadRequest, validationErr)
		return
	}
	payload, validationErrs, err := schema.UnmarshalBody[endpointOpenWebSocketRequestPayload](request)
	if err != nil {
		service.writer.WriteInternalError(writer, err)
		return
	}
	if len(validationErrs) > 0 {
		service.writer.WriteErrors(writer, http.StatusBadRequest, validationErrs...)
		return
	}

	result := service.backendClient(state).OpenWebSocket(request.Context(), backend.AppType(appType), payload.ClientInfo)
	service.presentResult(writer, state, harness.CategoryWebSocket, result)
}

// EndpointWebSocketStatus handles the 'GET /v1/actions/websocket/{appType}' endpoint
func (service *Service) EndpointWebSocketStatus(writer http.ResponseWriter, request *http.Request) {
	_, state, err := fromContext(request)
	if err != nil {
		service.writer.WriteInternalError(writer, err)
		return
	}
	appType, validationErr := validation.PathString(request, "appType")
	if validationErr != nil {
		service.writer.WriteErrors(writer, http.StatusBadRequest, validationErr)
		return
	}

	result := service.backendClient(state).WebSocketStatus(request.Context(), backend.AppType(appType))
	service.presentResult(writer, state, harness.CategoryWebSocket, result)
}

// EndpointActiveConnections handles the 'GET /v1/actions/connections' endpoint
func (service *Service) EndpointActiveConnections(writer http.ResponseWriter, request *http.Request) {
	_, state, err := fromContext(request)
	if err != nil {
		service.writer.WriteInternalError(writer, err)
		return
	}

	result := service.backendClient(state).ActiveConnections(request.Context())
	service.presentResult(writer, state, harness.CategoryWebSocket, result)
}

// EndpointBackendHealth handles the 'GET /v1/actions/health' endpoint
func (service *Service) EndpointBackendHealth(writer http.ResponseWriter, request *http.Request) {
	_, state, err := fromContext(request)
	if err != nil {
		service.writer.WriteInternalError(writer, err)
		return
	}

	result := service.backendClient(state).Health(request.Context())
	service.presentResult(writer, state, harness.CategoryHealth, result)
}

// EndpointCustomCall handles the 'POST /v1/actions/custom' endpoint.
// It sends an arbitrary path, method and payload through the dispatcher and presents the outcome in the chosen panel
// (session if none is given).
func (service *Service) EndpointCustomCall(writer http.ResponseWriter, request *http.Request) {
	_, state, err := fromContext(request)
	if err != nil {
		service.writer.WriteInternalError(writer, err)
		return
	}
	payload, validationErrs, err := schema.UnmarshalBody[endpointCustomCallRequestPayload](request)
	if err != nil {
		service.writer.WriteInternalError(writer, err)
		return
	}
	if len(validationErrs) > 0 {
		service.writer.WriteErrors(writer, http.StatusBadRequest, validationErrs...)
		return
	}

	category := harness.CategorySession
	if payload.Category != "" {
		category = harness.Category(payload.Category)
		if !category.Valid() {
			service.writer.WriteErrors(writer, http.StatusBadRequest, errUnknownCategory(payload.Category))
			return
		}
	}

	call := dispatch.Request{
		Path:   payload.Path,
		Method: payload.Method,
	}
	if raw := bytes.TrimSpace(payload.Payload); len(raw) > 0 && !bytes.Equal(raw, []byte("null")) {
		call.Payload = json.RawMessage(raw)
	}

	result := service.backendClient(state).Call(request.Context(), call)
	service.presentResult(writer, state, category, result)
}

func (service *Service) studyPayload(writer http.ResponseWriter, request *http.Request) (*endpointStudyRequestPayload, bool) {
	payload, validationErrs, err := schema.UnmarshalBody[endpointStudyRequestPayload](request)
	if err != nil {
		service.writer.WriteInternalError(writer, err)
		return nil, false
	}
	if len(validationErrs) > 0 {
		service.writer.WriteErrors(writer, http.StatusBadRequest, validationErrs...)
		return nil, false
	}
	return payload, true
}
