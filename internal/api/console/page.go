package console

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	"github.com/MasterLKH180cm/keycloak-poc/internal/backend"
	"github.com/MasterLKH180cm/keycloak-poc/internal/harness"
	"github.com/MasterLKH180cm/keycloak-poc/internal/oauthflow"
	"github.com/rs/zerolog/log"
)

//go:embed templates/*.html
var templates embed.FS

var pageTemplate = template.Must(template.ParseFS(templates, "templates/page.html"))

type panelView struct {
	Category harness.Category
	Text     string
}

type pageView struct {
	Profile   harness.Profile
	Endpoints harness.Endpoints
	HasToken  bool
	Panels    []panelView
	AppTypes  []backend.AppType
	StudyID   string
}

// EndpointPage handles the 'GET /' endpoint.
// A page load carrying an authorization response is surfaced in the auth panel and answered with a redirect to the
// same URL without the callback parameters; any other load renders the page.
func (service *Service) EndpointPage(writer http.ResponseWriter, request *http.Request) {
	obj, state, err := fromContext(request)
	if err != nil {
		service.writer.WriteInternalError(writer, err)
		return
	}

	callback := oauthflow.ParseCallback(request.URL.Query())
	if callback.Kind != oauthflow.CallbackNone {
		state.Board().Present(harness.CategoryAuth, callback.Report(obj.PendingState))
		if callback.Kind == oauthflow.CallbackCode {
			if err := service.Storage.ClearPendingState(request.Context(), obj.ID); err != nil {
				log.Warn().Err(err).Str("workspace", obj.ID).Msg("could not clear the pending authorization state")
			}
		}
		http.Redirect(writer, request, oauthflow.StripQuery(request.URL), http.StatusFound)
		return
	}

	endpoints, token := state.Snapshot()
	panels := state.Board().Snapshot()
	view := &pageView{
		Profile:   state.Profile(),
		Endpoints: endpoints,
		HasToken:  token != "",
		AppTypes:  service.Presets.AppTypes,
	}
	for _, category := range harness.Categories {
		view.Panels = append(view.Panels, panelView{
			Category: category,
			Text:     panels[category],
		})
	}
	if len(service.Presets.Studies) > 0 {
		view.StudyID = service.Presets.Studies[0].StudyID
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, view); err != nil {
		service.writer.WriteInternalError(writer, err)
		return
	}
	writer.Header().Set("Content-Type", "text/html; charset=utf-8")
	writer.Header().Set("Cache-Control", "no-store")
	writer.Write(buf.Bytes())
}
