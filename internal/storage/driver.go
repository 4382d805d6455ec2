package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MasterLKH180cm/keycloak-poc/internal/api/console/workspace"
	"github.com/MasterLKH180cm/keycloak-poc/internal/api/console/workspace/storage/cache"
	"github.com/MasterLKH180cm/keycloak-poc/internal/api/console/workspace/storage/inmem"
	"github.com/MasterLKH180cm/keycloak-poc/internal/api/console/workspace/storage/postgres"
	"github.com/MasterLKH180cm/keycloak-poc/internal/config"
)

const (
	DriverInMemory = "inmem"
	DriverPostgres = "postgres"
)

// cacheLifetime is how long a workspace read from PostgreSQL is served from memory
var cacheLifetime = 5 * time.Minute

var (
	ErrMissingDSN = errors.New("the postgres storage driver requires a DSN")
)

// Driver represents a workspace storage driver
type Driver interface {
	workspace.Storage

	// Initialize initializes the storage driver (i.e. opens a database connection)
	Initialize(ctx context.Context) error

	// Close closes the storage driver (i.e. closes a database connection)
	Close()
}

var (
	_ Driver = (*inmem.Driver)(nil)
	_ Driver = (*postgres.Driver)(nil)
	_ Driver = (*cache.Driver)(nil)
)

// New creates the storage driver selected by the configuration.
// The PostgreSQL driver is always wrapped by the caching driver. The returned driver still has to be initialized.
func New(cfg *config.Config) (Driver, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.StorageDriver)) {
	case DriverInMemory:
		driver, err := inmem.New()
		if err != nil {
			return nil, err
		}
		return driver, nil
	case DriverPostgres:
		if cfg.PostgresDSN == "" {
			return nil, ErrMissingDSN
		}
		return cache.New(postgres.New(cfg.PostgresDSN), cacheLifetime), nil
	default:
		return nil, fmt.Errorf("unknown storage driver '%s'", cfg.StorageDriver)
	}
}
