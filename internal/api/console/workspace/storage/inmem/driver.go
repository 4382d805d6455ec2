package inmem

import (
	"context"
	"time"

	"github.com/MasterLKH180cm/keycloak-poc/internal/api/console/workspace"
	"github.com/MasterLKH180cm/keycloak-poc/internal/harness"
	"github.com/MasterLKH180cm/keycloak-poc/internal/secret"
	"github.com/google/uuid"
	"github.com/hashicorp/go-memdb"
)

const table = "workspaces"

var dbSchema = &memdb.DBSchema{
	Tables: map[string]*memdb.TableSchema{
		table: {
			Name: table,
			Indexes: map[string]*memdb.IndexSchema{
				"id": {
					Name:         "id",
					Unique:       true,
					AllowMissing: false,
					Indexer:      &memdb.StringFieldIndex{Field: "ID"},
				},
				"token": {
					Name:         "token",
					Unique:       true,
					AllowMissing: false,
					Indexer:      &memdb.StringFieldIndex{Field: "TokenHash"},
				},
				"expires": {
					Name:         "expires",
					Unique:       false,
					AllowMissing: false,
					Indexer:      &memdb.IntFieldIndex{Field: "Expires"},
				},
			},
		},
	},
}

// Driver represents the in-memory workspace storage driver built using hashicorp/go-memdb.
// Stored objects are never mutated; every update inserts a modified copy.
type Driver struct {
	db *memdb.MemDB
}

var _ workspace.Storage = (*Driver)(nil)

// New creates a new empty in-memory workspace storage driver
func New() (*Driver, error) {
	db, err := memdb.NewMemDB(dbSchema)
	if err != nil {
		return nil, err
	}
	return &Driver{db}, nil
}

// Initialize does nothing as the database is created by New
func (driver *Driver) Initialize(_ context.Context) error {
	return nil
}

// Close does nothing; the in-memory database is released together with the driver
func (driver *Driver) Close() {}

// GetByRawToken retrieves a workspace by its raw (prior hashing) token
func (driver *Driver) GetByRawToken(_ context.Context, rawToken string) (*workspace.Workspace, error) {
	hash, err := secret.Hash(rawToken)
	if err != nil {
		return nil, nil
	}

	txn := driver.db.Txn(false)
	obj, err := txn.First(table, "token", hash)
	if err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, nil
	}

	return obj.(*workspace.Workspace).Copy(), nil
}

// Create creates a new workspace and returns its raw token
func (driver *Driver) Create(_ context.Context, expires int64) (string, *workspace.Workspace, error) {
	rawToken, hash, err := secret.New(workspace.TokenBytes)
	if err != nil {
		return "", nil, err
	}

	obj := &workspace.Workspace{
		ID:        uuid.NewString(),
		TokenHash: hash,
		Expires:   expires,
	}

	txn := driver.db.Txn(true)
	defer txn.Abort()
	if err := txn.Insert(table, obj); err != nil {
		return "", nil, err
	}
	txn.Commit()

	return rawToken, obj.Copy(), nil
}

// Touch moves the expiry of a workspace to the given point in time (Unix nanoseconds)
func (driver *Driver) Touch(_ context.Context, id string, expires int64) error {
	return driver.update(id, func(obj *workspace.Workspace) {
		obj.Expires = expires
	})
}

// SetPendingState stores the state value of an authorization request that is about to be issued
func (driver *Driver) SetPendingState(_ context.Context, id, state string) error {
	return driver.update(id, func(obj *workspace.Workspace) {
		obj.PendingState = state
	})
}

// ClearPendingState removes the stored state value
func (driver *Driver) ClearPendingState(_ context.Context, id string) error {
	return driver.update(id, func(obj *workspace.Workspace) {
		obj.PendingState = ""
	})
}

// SaveToken persists the bearer token of a workspace, replacing any previous one
func (driver *Driver) SaveToken(_ context.Context, id string, record *harness.TokenRecord) error {
	return driver.update(id, func(obj *workspace.Workspace) {
		cpy := *record
		obj.Token = &cpy
	})
}

// ClearToken removes the persisted bearer token of a workspace
func (driver *Driver) ClearToken(_ context.Context, id string) error {
	return driver.update(id, func(obj *workspace.Workspace) {
		obj.Token = nil
	})
}

// TerminateExpired terminates all workspaces that are expired
func (driver *Driver) TerminateExpired(_ context.Context) (int, error) {
	txn := driver.db.Txn(true)
	defer txn.Abort()

	it, err := txn.LowerBound(table, "expires", 0)
	if err != nil {
		return 0, err
	}

	now := time.Now().UnixNano()
	var expired []*workspace.Workspace
	for obj := it.Next(); obj != nil; obj = it.Next() {
		ws := obj.(*workspace.Workspace)
		if ws.Expires > now {
			break
		}
		expired = append(expired, ws)
	}
	for _, ws := range expired {
		if err := txn.Delete(table, ws); err != nil {
			return 0, err
		}
	}

	txn.Commit()
	return len(expired), nil
}

func (driver *Driver) update(id string, mutate func(obj *workspace.Workspace)) error {
	txn := driver.db.Txn(true)
	defer txn.Abort()

	obj, err := txn.First(table, "id", id)
	if err != nil {
		return err
	}
	if obj == nil {
		return workspace.ErrUnknownWorkspace
	}

	cpy := obj.(*workspace.Workspace).Copy()
	mutate(cpy)
	if err := txn.Insert(table, cpy); err != nil {
		return err
	}
	txn.Commit()
	return nil
}
