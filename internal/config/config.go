package config

import (
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config represents the application configuration structure
type Config struct {
	Environment string `default:"prod"`

	ListenAddress string `default:":3000" split_words:"true"`
	BaseAddress   string `default:"http://localhost:3000" split_words:"true"`
	AllowedOrigin string `default:"http://localhost:3000" split_words:"true"`

	// The defaults every new workspace starts with; each workspace may edit its own copy
	BackendBaseURL      string `default:"http://localhost:8000/session/api" envconfig:"BACKEND_BASE_URL"`
	IdentityProviderURL string `default:"http://localhost:8080" envconfig:"IDP_URL"`
	Realm               string `default:"hospital"`
	ClientID            string `default:"hospital-frontend" split_words:"true"`

	Profile string `default:"viewer"`

	StorageDriver string `default:"inmem" split_words:"true"`
	PostgresDSN   string `envconfig:"POSTGRES_DSN"`

	WorkspaceLifetime time.Duration `default:"12h" split_words:"true"`
	DispatchTimeout   time.Duration `default:"0s" split_words:"true"`

	PresetsFile string `split_words:"true"`
}

// LoadFromEnv loads a new configuration structure using environment variables and an optional .env file
func LoadFromEnv() (*Config, error) {
	// Load a .env file if it exists
	_ = godotenv.Overload()

	// Load a new configuration structure using environment variables
	config := new(Config)
	if err := envconfig.Process("kh", config); err != nil {
		return nil, err
	}
	return config, nil
}

// IsEnvProduction returns whether the application runs in production mode
func (config *Config) IsEnvProduction() bool {
	return strings.ToLower(config.Environment) == "prod"
}

// IsSecure returns whether the harness is served over HTTPS, judging by its base address
func (config *Config) IsSecure() bool {
	parsed, err := url.Parse(config.BaseAddress)
	if err != nil {
		return false
	}
	return parsed.Scheme == "https"
}

// RedirectURI returns the page's own origin which doubles as the OAuth redirect target
func (config *Config) RedirectURI() string {
	return strings.TrimRight(config.BaseAddress, "/") + "/"
}
