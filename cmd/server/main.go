package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/MasterLKH180cm/keycloak-poc/internal/api"
	"github.com/MasterLKH180cm/keycloak-poc/internal/config"
	"github.com/MasterLKH180cm/keycloak-poc/internal/dispatch"
	"github.com/MasterLKH180cm/keycloak-poc/internal/harness"
	"github.com/MasterLKH180cm/keycloak-poc/internal/preset"
	"github.com/MasterLKH180cm/keycloak-poc/internal/storage"
	"github.com/MasterLKH180cm/keycloak-poc/internal/task"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Set up zerolog to use pretty printing
	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out: os.Stderr,
	})
	log.Info().Msg("starting up...")

	// Load the application configuration
	log.Info().Msg("loading configuration...")
	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("could not load the configuration")
	}
	if cfg.IsEnvProduction() {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Debug().Str("config", fmt.Sprintf("%+v", cfg)).Msg("")

	// Resolve the harness profile and the test-call presets
	profile, err := harness.ProfileByName(cfg.Profile)
	if err != nil {
		log.Fatal().Err(err).Msg("could not resolve the harness profile")
	}
	presets := preset.Default()
	if cfg.PresetsFile != "" {
		presets, err = preset.Load(cfg.PresetsFile)
		if err != nil {
			log.Fatal().Err(err).Msg("could not load the presets file")
		}
	}

	// Initialize the workspace storage driver
	log.Info().Str("driver", cfg.StorageDriver).Msg("initializing workspace storage...")
	driver, err := storage.New(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("could not create the workspace storage driver")
	}
	if err := driver.Initialize(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("could not initialize the workspace storage driver")
	}
	defer driver.Close()

	// Schedule a task that terminates expired workspaces
	terminationTask := task.NewRepeating(func() {
		n, err := driver.TerminateExpired(context.Background())
		if err != nil {
			log.Error().Err(err).Msg("could not terminate expired workspaces")
		} else if n > 0 {
			log.Info().Int("amount", n).Msg("terminated expired workspaces")
		}
	}, time.Minute)
	terminationTask.Start()
	defer terminationTask.Stop(true)

	// Create the runtime state registry every workspace draws its endpoints from
	registry := harness.NewRegistry(harness.Endpoints{
		BackendBaseURL:      cfg.BackendBaseURL,
		IdentityProviderURL: cfg.IdentityProviderURL,
		Realm:               cfg.Realm,
		ClientID:            cfg.ClientID,
	}, profile, cfg.WorkspaceLifetime)
	registry.StartCleanup(time.Minute)
	defer registry.StopCleanup()

	// Start up the harness API
	log.Info().Str("address", cfg.ListenAddress).Str("profile", profile.Name).Msg("starting up the harness API...")
	apis := &api.Service{
		Config:     cfg,
		Registry:   registry,
		Storage:    driver,
		Dispatcher: dispatch.New(nil, cfg.DispatchTimeout),
		Presets:    presets,
	}
	apiErrs := make(chan error, 1)
	apis.Startup(apiErrs)
	go func() {
		err := <-apiErrs
		log.Fatal().Err(err).Msg("the API service raised an unexpected error")
	}()
	defer func() {
		log.Info().Msg("shutting down the harness API...")
		apis.Shutdown()
	}()

	log.Info().Msg("done!")
	defer log.Info().Msg("shutting down...")

	// Wait for the application to be terminated
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt)
	<-shutdown
}
