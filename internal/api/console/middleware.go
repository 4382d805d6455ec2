package console

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/MasterLKH180cm/keycloak-poc/internal/api/console/workspace"
	"github.com/MasterLKH180cm/keycloak-poc/internal/harness"
	"github.com/rs/zerolog/log"
)

const cookieNameWorkspace = "harness_workspace"

type contextKey string

const (
	contextKeyWorkspace contextKey = "workspace"
	contextKeyState     contextKey = "state"
)

// MiddlewareWorkspace resolves the workspace of the requesting browser tab, creating a new one if the cookie is
// missing or points to an unknown or expired workspace.
// Every resolved workspace has its expiry moved forward and its cookie reissued, so only unused workspaces expire.
// Additionally, it injects the workspace and its runtime state into the request context.
func (service *Service) MiddlewareWorkspace(next http.HandlerFunc) http.HandlerFunc {
	return func(writer http.ResponseWriter, request *http.Request) {
		ctx := request.Context()
		now := time.Now()
		expires := now.Add(service.Config.WorkspaceLifetime)

		var obj *workspace.Workspace
		var rawToken string
		if cookie, err := request.Cookie(cookieNameWorkspace); err == nil && cookie.Value != "" {
			found, err := service.Storage.GetByRawToken(ctx, cookie.Value)
			if err != nil {
				service.writer.WriteInternalError(writer, err)
				return
			}
			if found != nil && !found.Expired(now) {
				err := service.Storage.Touch(ctx, found.ID, expires.UnixNano())
				switch {
				case err == nil:
					found.Expires = expires.UnixNano()
					obj, rawToken = found, cookie.Value
				case errors.Is(err, workspace.ErrUnknownWorkspace):
					// Terminated in the meantime
				default:
					service.writer.WriteInternalError(writer, err)
					return
				}
			}
		}

		if obj == nil {
			token, created, err := service.Storage.Create(ctx, expires.UnixNano())
			if err != nil {
				service.writer.WriteInternalError(writer, err)
				return
			}
			log.Debug().Str("workspace", created.ID).Msg("created a new workspace")
			obj, rawToken = created, token
		}

		http.SetCookie(writer, &http.Cookie{
			Name:     cookieNameWorkspace,
			Value:    rawToken,
			Path:     "/",
			Expires:  expires,
			Secure:   service.Config.IsSecure(),
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})

		state := service.Registry.Resolve(obj.ID, obj.Token)

		// Delegate to the next handler
		ctx = context.WithValue(ctx, contextKeyWorkspace, obj)
		ctx = context.WithValue(ctx, contextKeyState, state)
		next(writer, request.WithContext(ctx))
	}
}

// fromContext extracts the values injected by MiddlewareWorkspace
func fromContext(request *http.Request) (*workspace.Workspace, *harness.State, error) {
	obj, ok := request.Context().Value(contextKeyWorkspace).(*workspace.Workspace)
	if !ok {
		return nil, nil, errors.New("workspace lookup without workspace middleware")
	}
	state, ok := request.Context().Value(contextKeyState).(*harness.State)
	if !ok {
		return nil, nil, errors.New("runtime state lookup without workspace middleware")
	}
	return obj, state, nil
}
