package api

import (
	"errors"
	"net/http"

	"github.com/MasterLKH180cm/keycloak-poc/internal/api/console"
	"github.com/MasterLKH180cm/keycloak-poc/internal/api/console/workspace"
	"github.com/MasterLKH180cm/keycloak-poc/internal/config"
	"github.com/MasterLKH180cm/keycloak-poc/internal/dispatch"
	"github.com/MasterLKH180cm/keycloak-poc/internal/harness"
	"github.com/MasterLKH180cm/keycloak-poc/internal/preset"
)

// Service represents the harness API service
type Service struct {
	Config     *config.Config
	Registry   *harness.Registry
	Storage    workspace.Storage
	Dispatcher *dispatch.Dispatcher
	Presets    *preset.Set
	console    *console.Service
}

// Startup starts up the harness console in the background; unexpected errors are sent to errs
func (service *Service) Startup(errs chan<- error) {
	consoleService := &console.Service{
		Config:     service.Config,
		Registry:   service.Registry,
		Storage:    service.Storage,
		Dispatcher: service.Dispatcher,
		Presets:    service.Presets,
	}
	service.console = consoleService
	go func() {
		if err := consoleService.Startup(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
	}()
}

// Shutdown shuts down the harness console
func (service *Service) Shutdown() {
	if service.console != nil {
		service.console.Shutdown()
		service.console = nil
	}
}
