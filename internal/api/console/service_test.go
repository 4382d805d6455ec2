package console

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MasterLKH180cm/keycloak-poc/internal/api/console/workspace"
	"github.com/MasterLKH180cm/keycloak-poc/internal/api/console/workspace/storage/inmem"
	"github.com/MasterLKH180cm/keycloak-poc/internal/config"
	"github.com/MasterLKH180cm/keycloak-poc/internal/dispatch"
	"github.com/MasterLKH180cm/keycloak-poc/internal/harness"
	"github.com/MasterLKH180cm/keycloak-poc/internal/preset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const backendPrefix = "/session/api"

type backendCall struct {
	method        string
	path          string
	authorization string
	body          string
}

// fakeBackend records every call and answers with the response registered for its path (200 '{}' otherwise)
type fakeBackend struct {
	mtx       sync.Mutex
	calls     []backendCall
	responses map[string]func(writer http.ResponseWriter)
	server    *httptest.Server
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	backend := &fakeBackend{responses: make(map[string]func(writer http.ResponseWriter))}
	backend.server = httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		raw, _ := io.ReadAll(request.Body)
		path := strings.TrimPrefix(request.URL.Path, backendPrefix)

		backend.mtx.Lock()
		backend.calls = append(backend.calls, backendCall{
			method:        request.Method,
			path:          path,
			authorization: request.Header.Get("Authorization"),
			body:          string(raw),
		})
		respond, ok := backend.responses[path]
		backend.mtx.Unlock()

		if ok {
			respond(writer)
			return
		}
		writer.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(writer, `{}`)
	}))
	t.Cleanup(backend.server.Close)
	return backend
}

func (backend *fakeBackend) respond(path string, status int, body string) {
	backend.mtx.Lock()
	defer backend.mtx.Unlock()
	backend.responses[path] = func(writer http.ResponseWriter) {
		writer.WriteHeader(status)
		_, _ = io.WriteString(writer, body)
	}
}

func (backend *fakeBackend) lastCall(t *testing.T) backendCall {
	t.Helper()
	backend.mtx.Lock()
	defer backend.mtx.Unlock()
	require.NotEmpty(t, backend.calls, "the backend was never called")
	return backend.calls[len(backend.calls)-1]
}

// failingStorage wraps a storage and fails token erasure on demand.
// Like a database driver, it also refuses to erase on a cancelled context.
type failingStorage struct {
	workspace.Storage
	failClear error
}

func (storage *failingStorage) ClearToken(ctx context.Context, id string) error {
	if storage.failClear != nil {
		return storage.failClear
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return storage.Storage.ClearToken(ctx, id)
}

type fixture struct {
	service *Service
	storage *failingStorage
	backend *fakeBackend
	server  *httptest.Server
	client  *http.Client
}

func newFixture(t *testing.T, profile harness.Profile) *fixture {
	t.Helper()

	backend := newFakeBackend(t)
	underlying, err := inmem.New()
	require.NoError(t, err)
	storage := &failingStorage{Storage: underlying}

	defaults := harness.Endpoints{
		BackendBaseURL:      backend.server.URL + backendPrefix,
		IdentityProviderURL: "http://127.0.0.1:1",
		Realm:               "hospital",
		ClientID:            "hospital-frontend",
	}
	service := &Service{
		Config: &config.Config{
			BaseAddress:       "http://harness.test",
			AllowedOrigin:     "http://harness.test",
			WorkspaceLifetime: time.Hour,
		},
		Registry:   harness.NewRegistry(defaults, profile, time.Hour),
		Storage:    storage,
		Dispatcher: dispatch.New(nil, 5*time.Second),
		Presets:    preset.Default(),
	}
	server := httptest.NewServer(service.Router())
	t.Cleanup(server.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	return &fixture{
		service: service,
		storage: storage,
		backend: backend,
		server:  server,
		client:  client,
	}
}

func (fixture *fixture) do(t *testing.T, method, path, body string) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	request, err := http.NewRequest(method, fixture.server.URL+path, reader)
	require.NoError(t, err)
	response, err := fixture.client.Do(request)
	require.NoError(t, err)
	t.Cleanup(func() { response.Body.Close() })
	return response
}

func (fixture *fixture) doJSON(t *testing.T, method, path, body string, target any) *http.Response {
	t.Helper()
	response := fixture.do(t, method, path, body)
	require.NoError(t, json.NewDecoder(response.Body).Decode(target))
	return response
}

func (fixture *fixture) workspace(t *testing.T) *workspaceResponse {
	t.Helper()
	view := new(workspaceResponse)
	response := fixture.doJSON(t, http.MethodGet, "/v1/workspace", "", view)
	require.Equal(t, http.StatusOK, response.StatusCode)
	return view
}

func (fixture *fixture) persisted(t *testing.T) *workspace.Workspace {
	t.Helper()
	serverURL, err := url.Parse(fixture.server.URL)
	require.NoError(t, err)
	for _, cookie := range fixture.client.Jar.Cookies(serverURL) {
		if cookie.Name == cookieNameWorkspace {
			obj, err := fixture.storage.GetByRawToken(context.Background(), cookie.Value)
			require.NoError(t, err)
			require.NotNil(t, obj)
			return obj
		}
	}
	t.Fatal("no workspace cookie")
	return nil
}

func TestPageRendersAndAssignsWorkspace(t *testing.T) {
	fixture := newFixture(t, harness.ProfileViewer)

	response := fixture.do(t, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, response.StatusCode)
	assert.Contains(t, response.Header.Get("Content-Type"), "text/html")
	body, err := io.ReadAll(response.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "(viewer)")
	assert.Contains(t, string(body), `id="panel-health"`)
	assert.Contains(t, string(body), `<span id="token-status" class="token-absent">absent</span>`)
	// Login saves the edited endpoints before leaving; token actions refresh the indicator
	assert.Contains(t, string(body), `onclick="login()"`)
	assert.Contains(t, string(body), "await saveEndpoints();")
	assert.Contains(t, string(body), `onclick="tokenAction('POST', '/v1/actions/logout')"`)
	assert.Contains(t, string(body), `onclick="tokenAction('DELETE', '/v1/workspace/token')"`)

	first := fixture.workspace(t)
	second := fixture.workspace(t)
	assert.Equal(t, first.ID, second.ID)
	assert.False(t, first.TokenPresent)
}

func TestLoginStoresStateBeforeRedirect(t *testing.T) {
	fixture := newFixture(t, harness.ProfileViewer)

	response := fixture.do(t, http.MethodGet, "/v1/auth/login", "")
	require.Equal(t, http.StatusFound, response.StatusCode)

	location, err := url.Parse(response.Header.Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/realms/hospital/protocol/openid-connect/auth", location.Path)
	query := location.Query()
	assert.Equal(t, "hospital-frontend", query.Get("client_id"))
	assert.Equal(t, "code", query.Get("response_type"))
	assert.Equal(t, "openid profile email", query.Get("scope"))
	assert.Equal(t, "http://harness.test/", query.Get("redirect_uri"))
	assert.NotEmpty(t, query.Get("state"))

	assert.Equal(t, query.Get("state"), fixture.persisted(t).PendingState)

	// Every initiation issues a fresh state
	again := fixture.do(t, http.MethodGet, "/v1/auth/login", "")
	againLocation, err := url.Parse(again.Header.Get("Location"))
	require.NoError(t, err)
	assert.NotEqual(t, query.Get("state"), againLocation.Query().Get("state"))
}

func TestCallbackWithCode(t *testing.T) {
	fixture := newFixture(t, harness.ProfileViewer)

	login := fixture.do(t, http.MethodGet, "/v1/auth/login", "")
	location, err := url.Parse(login.Header.Get("Location"))
	require.NoError(t, err)
	state := location.Query().Get("state")

	code := strings.Repeat("c", 40)
	callback := url.Values{"code": {code}, "state": {state}, "session_state": {"s"}, "tab": {"2"}}
	response := fixture.do(t, http.MethodGet, "/?"+callback.Encode(), "")
	require.Equal(t, http.StatusFound, response.StatusCode)
	assert.Equal(t, "/?tab=2", response.Header.Get("Location"))

	view := fixture.workspace(t)
	assert.False(t, view.Pending)
	assert.False(t, view.TokenPresent)
	panel := view.Panels[harness.CategoryAuth]
	assert.Contains(t, panel, `"state_match": true`)
	assert.Contains(t, panel, strings.Repeat("c", 20)+"...")
	assert.NotContains(t, panel, code)
}

func TestCallbackWithError(t *testing.T) {
	fixture := newFixture(t, harness.ProfileMinimal)

	response := fixture.do(t, http.MethodGet, "/?error=access_denied&error_description=User+cancelled", "")
	require.Equal(t, http.StatusFound, response.StatusCode)
	assert.Equal(t, "/", response.Header.Get("Location"))

	panel := fixture.workspace(t).Panels[harness.CategoryAuth]
	assert.Contains(t, panel, "access_denied")
	assert.Contains(t, panel, "User cancelled")
}

func TestCodeWithoutStateIsIgnored(t *testing.T) {
	fixture := newFixture(t, harness.ProfileMinimal)

	response := fixture.do(t, http.MethodGet, "/?code=abc", "")
	assert.Equal(t, http.StatusOK, response.StatusCode)
	assert.Empty(t, fixture.workspace(t).Panels[harness.CategoryAuth])
}

func TestTokenAttachment(t *testing.T) {
	fixture := newFixture(t, harness.ProfileViewer)

	response := fixture.do(t, http.MethodPut, "/v1/workspace/token", `{"token":"tok-123"}`)
	require.Equal(t, http.StatusOK, response.StatusCode)
	assert.True(t, fixture.workspace(t).TokenPresent)

	fixture.do(t, http.MethodGet, "/v1/actions/session", "")
	call := fixture.backend.lastCall(t)
	assert.Equal(t, "/get_session_state", call.path)
	assert.Equal(t, "Bearer tok-123", call.authorization)

	fixture.do(t, http.MethodGet, "/v1/actions/health", "")
	call = fixture.backend.lastCall(t)
	assert.Equal(t, "/viewer/health", call.path)
	assert.Empty(t, call.authorization)
}

func TestActiveWorkspaceOutlivesItsLifetime(t *testing.T) {
	fixture := newFixture(t, harness.ProfileViewer)
	fixture.service.Config.WorkspaceLifetime = 1500 * time.Millisecond
	fixture.do(t, http.MethodPut, "/v1/workspace/token", `{"token":"tok"}`)
	id := fixture.workspace(t).ID

	// Keep using the workspace well past its lifetime
	for i := 0; i < 8; i++ {
		time.Sleep(300 * time.Millisecond)
		view := fixture.workspace(t)
		require.Equal(t, id, view.ID, "workspace replaced after %d requests", i+1)
		require.True(t, view.TokenPresent)
	}
	assert.Greater(t, fixture.persisted(t).Expires, time.Now().Add(time.Second).UnixNano())

	// An unused workspace expires
	time.Sleep(1700 * time.Millisecond)
	view := fixture.workspace(t)
	assert.NotEqual(t, id, view.ID)
	assert.False(t, view.TokenPresent)
}

func TestTokenPersistenceByProfile(t *testing.T) {
	viewer := newFixture(t, harness.ProfileViewer)
	viewer.do(t, http.MethodPut, "/v1/workspace/token", `{"token":"persist-me"}`)
	record := viewer.persisted(t).Token
	require.NotNil(t, record)
	assert.Equal(t, "persist-me", record.Value)
	assert.False(t, record.CapturedAt.IsZero())

	// A dropped runtime state restores the persisted token
	viewer.service.Registry.Forget(viewer.persisted(t).ID)
	assert.True(t, viewer.workspace(t).TokenPresent)

	minimal := newFixture(t, harness.ProfileMinimal)
	minimal.do(t, http.MethodPut, "/v1/workspace/token", `{"token":"memory-only"}`)
	assert.Nil(t, minimal.persisted(t).Token)
	assert.True(t, minimal.workspace(t).TokenPresent)
}

func TestSetTokenRequiresValue(t *testing.T) {
	fixture := newFixture(t, harness.ProfileViewer)

	response := fixture.do(t, http.MethodPut, "/v1/workspace/token", `{"token":""}`)
	assert.Equal(t, http.StatusBadRequest, response.StatusCode)
}

func TestForgetToken(t *testing.T) {
	fixture := newFixture(t, harness.ProfileViewer)
	fixture.do(t, http.MethodPut, "/v1/workspace/token", `{"token":"tok"}`)

	response := fixture.do(t, http.MethodDelete, "/v1/workspace/token", "")
	require.Equal(t, http.StatusOK, response.StatusCode)
	assert.False(t, fixture.workspace(t).TokenPresent)
	assert.Nil(t, fixture.persisted(t).Token)
}

func TestLogoutClearsTokenEvenIfBackendFails(t *testing.T) {
	fixture := newFixture(t, harness.ProfileViewer)
	fixture.backend.respond("/logout", http.StatusInternalServerError, `{"detail":"session store unavailable"}`)
	fixture.do(t, http.MethodPut, "/v1/workspace/token", `{"token":"tok"}`)

	result := new(actionResponse)
	response := fixture.doJSON(t, http.MethodPost, "/v1/actions/logout", "", result)
	require.Equal(t, http.StatusOK, response.StatusCode)

	assert.Equal(t, harness.CategorySession, result.Category)
	require.NotNil(t, result.Result)
	assert.False(t, result.Result.OK)
	assert.Equal(t, http.StatusInternalServerError, result.Result.Status)
	assert.Equal(t, dispatch.KindApplication, result.Result.Kind)
	assert.Equal(t, "session store unavailable", result.Result.Error)
	assert.Contains(t, result.Panel, `"token_cleared": true`)

	call := fixture.backend.lastCall(t)
	assert.Equal(t, http.MethodPost, call.method)
	assert.Equal(t, "Bearer tok", call.authorization)

	assert.False(t, fixture.workspace(t).TokenPresent)
	assert.Nil(t, fixture.persisted(t).Token)
}

func TestLogoutKeepsBothCopiesIfEraseFails(t *testing.T) {
	fixture := newFixture(t, harness.ProfileViewer)
	fixture.do(t, http.MethodPut, "/v1/workspace/token", `{"token":"tok"}`)
	fixture.storage.failClear = errors.New("disk full")

	result := new(actionResponse)
	response := fixture.doJSON(t, http.MethodPost, "/v1/actions/logout", "", result)
	require.Equal(t, http.StatusOK, response.StatusCode)
	assert.Contains(t, result.Panel, "disk full")
	assert.Contains(t, result.Panel, `"token_cleared": false`)

	assert.True(t, fixture.workspace(t).TokenPresent)
	require.NotNil(t, fixture.persisted(t).Token)
}

func TestLogoutErasesTokenAfterClientDisconnect(t *testing.T) {
	fixture := newFixture(t, harness.ProfileViewer)
	fixture.do(t, http.MethodPut, "/v1/workspace/token", `{"token":"tok"}`)
	id := fixture.persisted(t).ID

	reached := make(chan struct{})
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	fixture.backend.mtx.Lock()
	fixture.backend.responses["/logout"] = func(http.ResponseWriter) {
		close(reached)
		<-release
	}
	fixture.backend.mtx.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, fixture.server.URL+"/v1/actions/logout", nil)
	require.NoError(t, err)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if response, err := fixture.client.Do(request); err == nil {
			response.Body.Close()
		}
	}()
	<-reached
	cancel()
	<-done

	// The in-memory copy is only cleared once the persisted one was erased
	assert.Eventually(t, func() bool {
		return !fixture.service.Registry.Resolve(id, nil).HasToken()
	}, 2*time.Second, 20*time.Millisecond)
	assert.Nil(t, fixture.persisted(t).Token)
}

func TestStudyRoutes(t *testing.T) {
	viewer := newFixture(t, harness.ProfileViewer)
	result := new(actionResponse)
	viewer.doJSON(t, http.MethodPost, "/v1/actions/study/open", `{"study_id":"S 1","patient":{"id":"P1","name":"Doe"}}`, result)
	assert.Equal(t, harness.CategoryStudy, result.Category)
	assert.True(t, result.Result.OK)
	call := viewer.backend.lastCall(t)
	assert.Equal(t, "/viewer/study_opened/S 1", call.path)
	assert.JSONEq(t, `{"study_id":"S 1","metadata":{"patient":{"id":"P1","name":"Doe","birthday":""}}}`, call.body)

	minimal := newFixture(t, harness.ProfileMinimal)
	minimal.do(t, http.MethodPost, "/v1/actions/study/close", `{"study_id":"S2"}`)
	call = minimal.backend.lastCall(t)
	assert.Equal(t, "/study_closed", call.path)
	assert.JSONEq(t, `{"study_id":"S2"}`, call.body)
}

func TestStudyRequiresID(t *testing.T) {
	fixture := newFixture(t, harness.ProfileViewer)

	response := fixture.do(t, http.MethodPost, "/v1/actions/study/open", `{}`)
	assert.Equal(t, http.StatusBadRequest, response.StatusCode)
}

func TestWebSocketActions(t *testing.T) {
	fixture := newFixture(t, harness.ProfileViewer)

	result := new(actionResponse)
	fixture.doJSON(t, http.MethodPost, "/v1/actions/websocket/dictation", `{"client_info":{"host":"ws-1"}}`, result)
	assert.Equal(t, harness.CategoryWebSocket, result.Category)
	call := fixture.backend.lastCall(t)
	assert.Equal(t, http.MethodPost, call.method)
	assert.Equal(t, "/open_websocket/dictation", call.path)
	assert.JSONEq(t, `{"app_id":"dictation","client_info":{"host":"ws-1"}}`, call.body)

	fixture.do(t, http.MethodGet, "/v1/actions/websocket/viewer", "")
	assert.Equal(t, "/websocket_status/viewer", fixture.backend.lastCall(t).path)

	fixture.do(t, http.MethodGet, "/v1/actions/connections", "")
	assert.Equal(t, "/active_connections", fixture.backend.lastCall(t).path)
}

func TestCustomCall(t *testing.T) {
	fixture := newFixture(t, harness.ProfileViewer)
	fixture.backend.respond("/anything", http.StatusOK, `{"echo":true}`)

	result := new(actionResponse)
	fixture.doJSON(t, http.MethodPost, "/v1/actions/custom", `{"path":"/anything","method":"put","payload":{"a":1},"category":"health"}`, result)
	assert.Equal(t, harness.CategoryHealth, result.Category)
	assert.True(t, result.Result.OK)
	assert.Equal(t, map[string]any{"echo": true}, result.Result.Data)

	call := fixture.backend.lastCall(t)
	assert.Equal(t, http.MethodPut, call.method)
	assert.JSONEq(t, `{"a":1}`, call.body)

	panel := fixture.workspace(t).Panels[harness.CategoryHealth]
	assert.Equal(t, result.Panel, panel)

	response := fixture.do(t, http.MethodPost, "/v1/actions/custom", `{"path":"/x","category":"billing"}`)
	assert.Equal(t, http.StatusBadRequest, response.StatusCode)
}

func TestPanelsAreOverwritten(t *testing.T) {
	fixture := newFixture(t, harness.ProfileViewer)
	fixture.backend.respond("/get_session_state", http.StatusOK, `{"first":1}`)
	fixture.do(t, http.MethodGet, "/v1/actions/session", "")
	fixture.backend.respond("/get_session_state", http.StatusOK, `{"second":2}`)
	fixture.do(t, http.MethodGet, "/v1/actions/session", "")

	panel := fixture.workspace(t).Panels[harness.CategorySession]
	assert.Contains(t, panel, "second")
	assert.NotContains(t, panel, "first")
}

func TestTransportFailureIsPresented(t *testing.T) {
	fixture := newFixture(t, harness.ProfileViewer)
	fixture.do(t, http.MethodPut, "/v1/workspace/endpoints", `{"backend_base_url":"http://127.0.0.1:1"}`)

	result := new(actionResponse)
	response := fixture.doJSON(t, http.MethodGet, "/v1/actions/session", "", result)
	require.Equal(t, http.StatusOK, response.StatusCode)
	assert.False(t, result.Result.OK)
	assert.Equal(t, dispatch.KindTransport, result.Result.Kind)
	assert.Equal(t, 0, result.Result.Status)
}

func TestDiscoveryFailureIsPresented(t *testing.T) {
	fixture := newFixture(t, harness.ProfileViewer)

	result := new(actionResponse)
	response := fixture.doJSON(t, http.MethodGet, "/v1/auth/discovery", "", result)
	require.Equal(t, http.StatusOK, response.StatusCode)
	assert.Equal(t, harness.CategoryAuth, result.Category)
	assert.False(t, result.Result.OK)
	assert.Equal(t, dispatch.KindTransport, result.Result.Kind)

	// An identity provider that answers with an error is an application failure
	provider := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(provider.Close)
	fixture.do(t, http.MethodPut, "/v1/workspace/endpoints", `{"identity_provider_url":"`+provider.URL+`"}`)

	result = new(actionResponse)
	fixture.doJSON(t, http.MethodGet, "/v1/auth/discovery", "", result)
	assert.False(t, result.Result.OK)
	assert.Equal(t, dispatch.KindApplication, result.Result.Kind)
	assert.Contains(t, result.Result.Error, "404")
}

func TestEditEndpoints(t *testing.T) {
	fixture := newFixture(t, harness.ProfileViewer)
	original := fixture.workspace(t).Endpoints

	updated := new(harness.Endpoints)
	fixture.doJSON(t, http.MethodPut, "/v1/workspace/endpoints", `{"realm":"radiology"}`, updated)
	assert.Equal(t, "radiology", updated.Realm)
	assert.Equal(t, original.BackendBaseURL, updated.BackendBaseURL)
	assert.Equal(t, *updated, fixture.workspace(t).Endpoints)

	// Endpoints are per workspace
	other := &http.Client{}
	response, err := other.Get(fixture.server.URL + "/v1/workspace")
	require.NoError(t, err)
	defer response.Body.Close()
	view := new(workspaceResponse)
	require.NoError(t, json.NewDecoder(response.Body).Decode(view))
	assert.Equal(t, "hospital", view.Endpoints.Realm)
}

func TestPresets(t *testing.T) {
	fixture := newFixture(t, harness.ProfileViewer)

	set := new(preset.Set)
	response := fixture.doJSON(t, http.MethodGet, "/v1/presets", "", set)
	require.Equal(t, http.StatusOK, response.StatusCode)
	assert.NotEmpty(t, set.Studies)

	study := new(preset.Study)
	response = fixture.doJSON(t, http.MethodGet, "/v1/presets?study=default", "", study)
	require.Equal(t, http.StatusOK, response.StatusCode)
	assert.Equal(t, "default", study.Name)

	response = fixture.do(t, http.MethodGet, "/v1/presets?study=unknown", "")
	assert.Equal(t, http.StatusNotFound, response.StatusCode)
}

func TestGenericErrors(t *testing.T) {
	fixture := newFixture(t, harness.ProfileViewer)

	response := fixture.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, response.StatusCode)

	response = fixture.do(t, http.MethodGet, "/v1/unknown", "")
	assert.Equal(t, http.StatusNotFound, response.StatusCode)
	assert.Equal(t, "application/json", response.Header.Get("Content-Type"))

	response = fixture.do(t, http.MethodDelete, "/v1/actions/session", "")
	assert.Equal(t, http.StatusMethodNotAllowed, response.StatusCode)
}
