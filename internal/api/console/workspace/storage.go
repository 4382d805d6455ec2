package workspace

import (
	"context"

	"github.com/MasterLKH180cm/keycloak-poc/internal/harness"
)

// Storage defines the workspace storage API
type Storage interface {
	// GetByRawToken retrieves a workspace by its raw (prior hashing) token
	GetByRawToken(ctx context.Context, rawToken string) (*Workspace, error)

	// Create creates a new workspace and returns its raw token
	Create(ctx context.Context, expires int64) (string, *Workspace, error)

	// Touch moves the expiry of a workspace to the given point in time (Unix nanoseconds)
	Touch(ctx context.Context, id string, expires int64) error

	// SetPendingState stores the state value of an authorization request that is about to be issued
	SetPendingState(ctx context.Context, id, state string) error

	// ClearPendingState removes the stored state value
	ClearPendingState(ctx context.Context, id string) error

	// SaveToken persists the bearer token of a workspace, replacing any previous one
	SaveToken(ctx context.Context, id string, record *harness.TokenRecord) error

	// ClearToken removes the persisted bearer token of a workspace
	ClearToken(ctx context.Context, id string) error

	// TerminateExpired terminates all workspaces that are expired
	TerminateExpired(ctx context.Context) (int, error)
}
