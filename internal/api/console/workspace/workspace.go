package workspace

import (
	"errors"
	"time"

	"github.com/MasterLKH180cm/keycloak-poc/internal/harness"
)

// TokenBytes is the amount of random bytes a raw workspace token is generated from
const TokenBytes = 32

var (
	// ErrUnknownWorkspace is returned when a workspace to update does not exist (anymore)
	ErrUnknownWorkspace = errors.New("unknown workspace")
)

// Workspace represents the persisted part of a harness workspace (the server-side counterpart of a browser tab).
// A workspace is identified by its token which is only ever stored as a hash.
type Workspace struct {
	ID           string
	TokenHash    string
	PendingState string
	Token        *harness.TokenRecord

	// Expires is the expiry as Unix nanoseconds; it moves forward whenever the workspace is used
	Expires int64
}

// Expired reports whether the workspace outlived its expiry at the given point in time
func (workspace *Workspace) Expired(now time.Time) bool {
	return workspace.Expires <= now.UnixNano()
}

// Copy returns a deep copy of the workspace
func (workspace *Workspace) Copy() *Workspace {
	cpy := *workspace
	if workspace.Token != nil {
		token := *workspace.Token
		cpy.Token = &token
	}
	return &cpy
}
