package cache

import (
	"context"
	"sync"
	"time"

	"github.com/MasterLKH180cm/keycloak-poc/internal/api/console/workspace"
	"github.com/MasterLKH180cm/keycloak-poc/internal/harness"
	"github.com/MasterLKH180cm/keycloak-poc/internal/hashmap"
	"github.com/MasterLKH180cm/keycloak-poc/internal/secret"
)

// Driver represents a workspace storage implementation that wraps another one in order to implement in-memory caching.
// Cached workspaces are keyed by their token hash; every write invalidates the affected workspace
// while touching a workspace refreshes its cached copy.
type Driver struct {
	underlying workspace.Storage
	cache      *hashmap.ExpiringMap[string, *workspace.Workspace]

	// writes serializes writes with cache refreshes so a refresh never resurrects an invalidated copy
	writes sync.Mutex
}

var _ workspace.Storage = (*Driver)(nil)

// New returns a new caching workspace storage driver
func New(underlying workspace.Storage, lifetime time.Duration) *Driver {
	return &Driver{
		underlying: underlying,
		cache:      hashmap.NewExpiring[string, *workspace.Workspace](lifetime),
	}
}

// lifecycle is implemented by wrapped drivers that need to be initialized and closed
type lifecycle interface {
	Initialize(ctx context.Context) error
	Close()
}

// Initialize initializes the wrapped driver and schedules the removal of expired cache entries
func (driver *Driver) Initialize(ctx context.Context) error {
	if underlying, ok := driver.underlying.(lifecycle); ok {
		if err := underlying.Initialize(ctx); err != nil {
			return err
		}
	}
	driver.cache.ScheduleCleanupTask(10 * time.Second)
	return nil
}

// Close stops the cache cleanup, drops all cached workspaces and closes the wrapped driver
func (driver *Driver) Close() {
	driver.cache.StopCleanupTask()
	driver.cache.Clear()
	if underlying, ok := driver.underlying.(lifecycle); ok {
		underlying.Close()
	}
}

// GetByRawToken retrieves a workspace by its raw (prior hashing) token
func (driver *Driver) GetByRawToken(ctx context.Context, rawToken string) (*workspace.Workspace, error) {
	hash, err := secret.Hash(rawToken)
	if err != nil {
		return nil, nil
	}
	if cached, ok := driver.cache.Lookup(hash); ok {
		return cached.Copy(), nil
	}

	obj, err := driver.underlying.GetByRawToken(ctx, rawToken)
	if err != nil {
		return nil, err
	}
	if obj != nil {
		driver.cache.Set(obj.TokenHash, obj.Copy())
	}
	return obj, nil
}

// Create creates a new workspace and returns its raw token
func (driver *Driver) Create(ctx context.Context, expires int64) (string, *workspace.Workspace, error) {
	rawToken, obj, err := driver.underlying.Create(ctx, expires)
	if err != nil {
		return "", nil, err
	}
	driver.cache.Set(obj.TokenHash, obj.Copy())
	return rawToken, obj, nil
}

// Touch moves the expiry of a workspace and refreshes its cached copy
func (driver *Driver) Touch(ctx context.Context, id string, expires int64) error {
	driver.writes.Lock()
	defer driver.writes.Unlock()

	if err := driver.underlying.Touch(ctx, id, expires); err != nil {
		return driver.invalidate(id, err)
	}

	var touched []*workspace.Workspace
	driver.cache.DeleteFunc(func(_ string, obj *workspace.Workspace) bool {
		if obj.ID != id {
			return false
		}
		touched = append(touched, obj)
		return true
	})
	for _, obj := range touched {
		cpy := obj.Copy()
		cpy.Expires = expires
		driver.cache.Set(cpy.TokenHash, cpy)
	}
	return nil
}

// SetPendingState stores the state value of an authorization request that is about to be issued
func (driver *Driver) SetPendingState(ctx context.Context, id, state string) error {
	driver.writes.Lock()
	defer driver.writes.Unlock()
	return driver.invalidate(id, driver.underlying.SetPendingState(ctx, id, state))
}

// ClearPendingState removes the stored state value
func (driver *Driver) ClearPendingState(ctx context.Context, id string) error {
	driver.writes.Lock()
	defer driver.writes.Unlock()
	return driver.invalidate(id, driver.underlying.ClearPendingState(ctx, id))
}

// SaveToken persists the bearer token of a workspace, replacing any previous one
func (driver *Driver) SaveToken(ctx context.Context, id string, record *harness.TokenRecord) error {
	driver.writes.Lock()
	defer driver.writes.Unlock()
	return driver.invalidate(id, driver.underlying.SaveToken(ctx, id, record))
}

// ClearToken removes the persisted bearer token of a workspace
func (driver *Driver) ClearToken(ctx context.Context, id string) error {
	driver.writes.Lock()
	defer driver.writes.Unlock()
	return driver.invalidate(id, driver.underlying.ClearToken(ctx, id))
}

// TerminateExpired terminates all workspaces that are expired
func (driver *Driver) TerminateExpired(ctx context.Context) (int, error) {
	n, err := driver.underlying.TerminateExpired(ctx)
	if err != nil {
		return 0, err
	}
	now := time.Now()
	driver.cache.DeleteFunc(func(_ string, obj *workspace.Workspace) bool {
		return obj.Expired(now)
	})
	return n, nil
}

// invalidate drops the cached copy of a workspace regardless of the write's outcome and passes err through
func (driver *Driver) invalidate(id string, err error) error {
	driver.cache.DeleteFunc(func(_ string, obj *workspace.Workspace) bool {
		return obj.ID == id
	})
	return err
}
