package console

import (
	"net/http"

	"github.com/MasterLKH180cm/keycloak-poc/internal/backend"
	"github.com/MasterLKH180cm/keycloak-poc/internal/dispatch"
	"github.com/MasterLKH180cm/keycloak-poc/internal/harness"
)

// actionResponse is returned by every endpoint that writes a response panel.
// Failed backend calls are reported inside Result; the console request itself still succeeds.
type actionResponse struct {
	Category harness.Category   `json:"category"`
	Result   *dispatch.Envelope `json:"result,omitempty"`
	Panel    string             `json:"panel"`
}

// backendClient builds a backend client bound to the current endpoints and token of a workspace.
// The snapshot is taken once; the call itself runs without holding the state lock.
func (service *Service) backendClient(state *harness.State) *backend.Client {
	endpoints, token := state.Snapshot()
	routes := backend.RoutesLegacy
	if state.Profile().UsesViewerRoutes() {
		routes = backend.RoutesViewer
	}
	target := dispatch.Target{
		BaseURL: endpoints.BackendBaseURL,
		Token:   token,
	}
	return backend.NewClient(service.Dispatcher, target, routes)
}

// present writes a value to a response panel and answers with the panel's new text
func (service *Service) present(writer http.ResponseWriter, state *harness.State, category harness.Category, value any, envelope *dispatch.Envelope) {
	panel := state.Board().Present(category, value)
	service.writer.WriteJSON(writer, &actionResponse{
		Category: category,
		Result:   envelope,
		Panel:    panel,
	})
}

// presentResult writes the envelope of a dispatched call to a response panel
func (service *Service) presentResult(writer http.ResponseWriter, state *harness.State, category harness.Category, result dispatch.Result) {
	envelope := result.Envelope()
	service.present(writer, state, category, envelope, envelope)
}
