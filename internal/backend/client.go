package backend

import (
	"context"
	"net/http"
	"net/url"

	"github.com/MasterLKH180cm/keycloak-poc/internal/dispatch"
)

// Routes selects which of the two backend route sets is used for studies and health checks
type Routes int

const (
	// RoutesLegacy uses '/study_opened', '/study_closed' and '/health'
	RoutesLegacy Routes = iota

	// RoutesViewer uses '/viewer/study_opened/{id}', '/viewer/study_closed/{id}' and '/viewer/health'
	RoutesViewer
)

// Client exposes the session backend's REST surface on top of a dispatcher
type Client struct {
	dispatcher *dispatch.Dispatcher
	target     dispatch.Target
	routes     Routes
}

// NewClient creates a new backend client calling target through dispatcher
func NewClient(dispatcher *dispatch.Dispatcher, target dispatch.Target, routes Routes) *Client {
	return &Client{
		dispatcher: dispatcher,
		target:     target,
		routes:     routes,
	}
}

// Call performs an arbitrary request against the backend
func (client *Client) Call(ctx context.Context, request dispatch.Request) dispatch.Result {
	return client.dispatcher.Do(ctx, client.target, request)
}

// OpenStudy marks a study as opened
func (client *Client) OpenStudy(ctx context.Context, params *StudyParams) dispatch.Result {
	if client.routes == RoutesViewer {
		return client.Call(ctx, dispatch.Request{
			Path:    "/viewer/study_opened/" + url.PathEscape(params.StudyID),
			Method:  http.MethodPost,
			Payload: params.payload(),
		})
	}
	return client.Call(ctx, dispatch.Request{
		Path:    "/study_opened",
		Method:  http.MethodPost,
		Payload: params.payload(),
	})
}

// CloseStudy marks a study as closed
func (client *Client) CloseStudy(ctx context.Context, params *StudyParams) dispatch.Result {
	if client.routes == RoutesViewer {
		return client.Call(ctx, dispatch.Request{
			Path:   "/viewer/study_closed/" + url.PathEscape(params.StudyID),
			Method: http.MethodPost,
		})
	}
	return client.Call(ctx, dispatch.Request{
		Path:    "/study_closed",
		Method:  http.MethodPost,
		Payload: &studyPayload{StudyID: params.StudyID},
	})
}

// SessionState retrieves the current session snapshot
func (client *Client) SessionState(ctx context.Context) dispatch.Result {
	return client.Call(ctx, dispatch.Request{Path: "/get_session_state"})
}

// Logout invalidates the session server-side
func (client *Client) Logout(ctx context.Context) dispatch.Result {
	return client.Call(ctx, dispatch.Request{Path: "/logout", Method: http.MethodPost})
}

// OpenWebSocket registers a WebSocket channel for an application type
func (client *Client) OpenWebSocket(ctx context.Context, appType AppType, clientInfo map[string]any) dispatch.Result {
	request := dispatch.Request{
		Path:   "/open_websocket/" + url.PathEscape(string(appType)),
		Method: http.MethodPost,
	}
	if len(clientInfo) > 0 {
		request.Payload = map[string]any{
			"app_id":      appType,
			"client_info": clientInfo,
		}
	}
	return client.Call(ctx, request)
}

// WebSocketStatus queries the channel status of an application type
func (client *Client) WebSocketStatus(ctx context.Context, appType AppType) dispatch.Result {
	return client.Call(ctx, dispatch.Request{Path: "/websocket_status/" + url.PathEscape(string(appType))})
}

// ActiveConnections lists the active channels
func (client *Client) ActiveConnections(ctx context.Context) dispatch.Result {
	return client.Call(ctx, dispatch.Request{Path: "/active_connections"})
}

// Health performs the liveness check; it is always sent without a token
func (client *Client) Health(ctx context.Context) dispatch.Result {
	if client.routes == RoutesViewer {
		return client.Call(ctx, dispatch.Request{Path: "/viewer/health"})
	}
	return client.Call(ctx, dispatch.Request{Path: "/health"})
}
