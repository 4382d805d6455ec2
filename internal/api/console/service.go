package console

import (
	"net/http"

	"github.com/MasterLKH180cm/keycloak-poc/internal/api/console/workspace"
	"github.com/MasterLKH180cm/keycloak-poc/internal/api/schema"
	"github.com/MasterLKH180cm/keycloak-poc/internal/config"
	"github.com/MasterLKH180cm/keycloak-poc/internal/dispatch"
	"github.com/MasterLKH180cm/keycloak-poc/internal/harness"
	"github.com/MasterLKH180cm/keycloak-poc/internal/preset"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"
)

// Service represents the harness console: the test page and the JSON API driving it
type Service struct {
	server *http.Server

	Config *config.Config

	Registry   *harness.Registry
	Storage    workspace.Storage
	Dispatcher *dispatch.Dispatcher
	Presets    *preset.Set

	// DiscoveryClient is used to fetch OpenID configurations; nil means http.DefaultClient
	DiscoveryClient *http.Client

	writer *schema.Writer
}

// Router builds the HTTP router serving every console endpoint
func (service *Service) Router() http.Handler {
	// Create the HTTP schema writer
	service.writer = &schema.Writer{
		InternalErrorHook: func(err error) {
			log.Error().Err(err).Msg("the harness console experienced an unexpected error")
		},
	}

	// Create the HTTP router
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(middleware.RedirectSlashes)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{service.Config.AllowedOrigin},
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodDelete,
		},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))
	router.NotFound(func(writer http.ResponseWriter, _ *http.Request) {
		service.writer.WriteErrors(writer, http.StatusNotFound, schema.ErrNotFound)
	})
	router.MethodNotAllowed(func(writer http.ResponseWriter, _ *http.Request) {
		service.writer.WriteErrors(writer, http.StatusMethodNotAllowed, schema.ErrMethodNotAllowed)
	})

	// Register the page and liveness endpoints
	router.Get("/", service.withWorkspace(service.EndpointPage))
	router.Get("/healthz", service.EndpointHealthz)

	// Register the workspace endpoints
	router.Get("/v1/workspace", service.withWorkspace(service.EndpointGetWorkspace))
	router.Put("/v1/workspace/endpoints", service.withWorkspace(service.EndpointEditEndpoints))
	router.Put("/v1/workspace/token", service.withWorkspace(service.EndpointSetToken))
	router.Delete("/v1/workspace/token", service.withWorkspace(service.EndpointForgetToken))

	// Register the identity provider endpoints
	router.Get("/v1/auth/login", service.withWorkspace(service.EndpointLogin))
	router.Get("/v1/auth/discovery", service.withWorkspace(service.EndpointDiscovery))

	// Register the backend action endpoints
	router.Post("/v1/actions/study/open", service.withWorkspace(service.EndpointOpenStudy))
	router.Post("/v1/actions/study/close", service.withWorkspace(service.EndpointCloseStudy))
	router.Get("/v1/actions/session", service.withWorkspace(service.EndpointSessionState))
	router.Post("/v1/actions/logout", service.withWorkspace(service.EndpointLogout))
	router.Post("/v1/actions/websocket/{appType}", service.withWorkspace(service.EndpointOpenWebSocket))
	router.Get("/v1/actions/websocket/{appType}", service.withWorkspace(service.EndpointWebSocketStatus))
	router.Get("/v1/actions/connections", service.withWorkspace(service.EndpointActiveConnections))
	router.Get("/v1/actions/health", service.withWorkspace(service.EndpointBackendHealth))
	router.Post("/v1/actions/custom", service.withWorkspace(service.EndpointCustomCall))

	// Register the preset endpoint
	router.Get("/v1/presets", service.EndpointGetPresets)

	return router
}

// Startup starts up the harness console
func (service *Service) Startup() error {
	server := &http.Server{
		Addr:    service.Config.ListenAddress,
		Handler: service.Router(),
	}
	service.server = server
	return server.ListenAndServe()
}

// Shutdown shuts down the harness console
func (service *Service) Shutdown() {
	if service.server != nil {
		service.server.Close()
		service.server = nil
	}
}

// withWorkspace makes an endpoint resolve the requesting workspace first
func (service *Service) withWorkspace(end http.HandlerFunc) http.HandlerFunc {
	return withMiddlewares(end, service.MiddlewareWorkspace)
}

func withMiddlewares(end http.HandlerFunc, middlewares ...func(http.HandlerFunc) http.HandlerFunc) http.HandlerFunc {
	final := end
	for i := len(middlewares); i > 0; i-- {
		final = middlewares[i-1](final)
	}
	return final
}

// EndpointHealthz handles the 'GET /healthz' endpoint
func (service *Service) EndpointHealthz(writer http.ResponseWriter, _ *http.Request) {
	service.writer.WriteJSON(writer, map[string]any{
		"status": "ok",
	})
}
