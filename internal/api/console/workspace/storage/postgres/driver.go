package postgres

import (
	"context"
	"embed"
	"errors"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/MasterLKH180cm/keycloak-poc/internal/api/console/workspace"
	"github.com/MasterLKH180cm/keycloak-poc/internal/harness"
	"github.com/MasterLKH180cm/keycloak-poc/internal/secret"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

//go:embed migrations/*.sql
var migrations embed.FS

var columns = []string{
	"workspace_id",
	"token_hash",
	"pending_state",
	"token_value",
	"token_captured_at",
	"expires",
}

// Driver represents the PostgreSQL workspace storage driver implementation
type Driver struct {
	dsn string
	db  *pgxpool.Pool
}

var _ workspace.Storage = (*Driver)(nil)

// New creates a new empty PostgreSQL workspace storage driver.
// Use Initialize to open the database connection.
func New(dsn string) *Driver {
	return &Driver{
		dsn: dsn,
	}
}

// Initialize migrates the database and opens the database connection
func (driver *Driver) Initialize(ctx context.Context) error {
	// Perform SQL migrations
	source, err := iofs.New(migrations, "migrations")
	if err != nil {
		return err
	}
	migrator, err := migrate.NewWithSourceInstance("iofs", source, driver.dsn)
	if err != nil {
		return err
	}
	defer migrator.Close()
	if err := migrator.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	// Initialize the database connection pool
	pool, err := pgxpool.Connect(ctx, driver.dsn)
	if err != nil {
		return err
	}
	driver.db = pool
	return nil
}

// Close closes the database connection
func (driver *Driver) Close() {
	if driver.db == nil {
		return
	}
	driver.db.Close()
	driver.db = nil
}

// GetByRawToken retrieves a workspace by its raw (prior hashing) token
func (driver *Driver) GetByRawToken(ctx context.Context, rawToken string) (*workspace.Workspace, error) {
	hash, err := secret.Hash(rawToken)
	if err != nil {
		return nil, nil
	}

	query, values, err := squirrel.Select(columns...).
		From("workspaces").
		Where(squirrel.Eq{"token_hash": hash}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	obj, err := driver.rowToWorkspace(driver.db.QueryRow(ctx, query, values...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return obj, nil
}

// Create creates a new workspace and returns its raw token
func (driver *Driver) Create(ctx context.Context, expires int64) (string, *workspace.Workspace, error) {
	rawToken, hash, err := secret.New(workspace.TokenBytes)
	if err != nil {
		return "", nil, err
	}

	obj := &workspace.Workspace{
		ID:        uuid.NewString(),
		TokenHash: hash,
		Expires:   expires,
	}

	_, err = driver.db.Exec(
		ctx,
		"INSERT INTO workspaces (workspace_id, token_hash, expires) VALUES ($1, $2, $3)",
		obj.ID,
		obj.TokenHash,
		obj.Expires,
	)
	if err != nil {
		return "", nil, err
	}
	return rawToken, obj, nil
}

// Touch moves the expiry of a workspace to the given point in time (Unix nanoseconds)
func (driver *Driver) Touch(ctx context.Context, id string, expires int64) error {
	return driver.update(ctx, id, map[string]any{"expires": expires})
}

// SetPendingState stores the state value of an authorization request that is about to be issued
func (driver *Driver) SetPendingState(ctx context.Context, id, state string) error {
	return driver.update(ctx, id, map[string]any{"pending_state": state})
}

// ClearPendingState removes the stored state value
func (driver *Driver) ClearPendingState(ctx context.Context, id string) error {
	return driver.update(ctx, id, map[string]any{"pending_state": ""})
}

// SaveToken persists the bearer token of a workspace, replacing any previous one
func (driver *Driver) SaveToken(ctx context.Context, id string, record *harness.TokenRecord) error {
	return driver.update(ctx, id, map[string]any{
		"token_value":       record.Value,
		"token_captured_at": record.CapturedAt,
	})
}

// ClearToken removes the persisted bearer token of a workspace
func (driver *Driver) ClearToken(ctx context.Context, id string) error {
	return driver.update(ctx, id, map[string]any{
		"token_value":       nil,
		"token_captured_at": nil,
	})
}

// TerminateExpired terminates all workspaces that are expired
func (driver *Driver) TerminateExpired(ctx context.Context) (int, error) {
	result, err := driver.db.Exec(ctx, "DELETE FROM workspaces WHERE expires <= $1", time.Now().UnixNano())
	if err != nil {
		return 0, err
	}
	return int(result.RowsAffected()), nil
}

func (driver *Driver) update(ctx context.Context, id string, fields map[string]any) error {
	query, values, err := squirrel.Update("workspaces").
		SetMap(fields).
		Where(squirrel.Eq{"workspace_id": id}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return err
	}

	result, err := driver.db.Exec(ctx, query, values...)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return workspace.ErrUnknownWorkspace
	}
	return nil
}

func (driver *Driver) rowToWorkspace(row pgx.Row) (*workspace.Workspace, error) {
	obj := new(workspace.Workspace)
	var tokenValue *string
	var tokenCapturedAt *time.Time
	if err := row.Scan(&obj.ID, &obj.TokenHash, &obj.PendingState, &tokenValue, &tokenCapturedAt, &obj.Expires); err != nil {
		return nil, err
	}
	if tokenValue != nil {
		obj.Token = &harness.TokenRecord{Value: *tokenValue}
		if tokenCapturedAt != nil {
			obj.Token.CapturedAt = tokenCapturedAt.UTC()
		}
	}
	return obj, nil
}
