package harness

import (
	"sync"
	"time"
)

// TokenRecord is the persisted form of a bearer token
type TokenRecord struct {
	Value      string    `json:"value"`
	CapturedAt time.Time `json:"captured_at"`
}

// State is the runtime state of one workspace (the server-side counterpart of a browser tab).
// All writes happen under its mutex; network calls must never be made while holding it.
type State struct {
	mtx sync.Mutex

	workspaceID string
	profile     Profile
	endpoints   Endpoints
	token       string
	board       *Board
}

// NewState creates the runtime state of a workspace
func NewState(workspaceID string, profile Profile, endpoints Endpoints) *State {
	return &State{
		workspaceID: workspaceID,
		profile:     profile,
		endpoints:   endpoints,
		board:       NewBoard(),
	}
}

// WorkspaceID returns the ID of the workspace this state belongs to
func (state *State) WorkspaceID() string {
	return state.workspaceID
}

// Profile returns the harness variant this state runs with
func (state *State) Profile() Profile {
	return state.profile
}

// Board returns the response panels of this workspace
func (state *State) Board() *Board {
	return state.board
}

// Snapshot returns the current endpoints and token in one consistent read
func (state *State) Snapshot() (Endpoints, string) {
	state.mtx.Lock()
	defer state.mtx.Unlock()
	return state.endpoints, state.token
}

// Endpoints returns the current endpoints
func (state *State) Endpoints() Endpoints {
	state.mtx.Lock()
	defer state.mtx.Unlock()
	return state.endpoints
}

// HasToken reports whether a token is currently held
func (state *State) HasToken() bool {
	state.mtx.Lock()
	defer state.mtx.Unlock()
	return state.token != ""
}

// UpdateEndpoints applies the given update and returns the resulting endpoints
func (state *State) UpdateEndpoints(update *EndpointsUpdate) Endpoints {
	state.mtx.Lock()
	defer state.mtx.Unlock()
	state.endpoints = update.Apply(state.endpoints)
	return state.endpoints
}

// SetToken replaces the held token.
// If the profile persists tokens, persist is called first; when it fails, the previous token is kept.
func (state *State) SetToken(token string, persist func(record *TokenRecord) error) (*TokenRecord, error) {
	state.mtx.Lock()
	defer state.mtx.Unlock()

	record := &TokenRecord{
		Value:      token,
		CapturedAt: time.Now().UTC(),
	}
	if state.profile.PersistsToken() {
		if err := persist(record); err != nil {
			return nil, err
		}
	}
	state.token = token
	return record, nil
}

// ForgetToken clears the held token.
// If the profile persists tokens, erase is called first; when it fails, nothing is cleared so that the in-memory and
// the persisted copy never disagree.
func (state *State) ForgetToken(erase func() error) error {
	state.mtx.Lock()
	defer state.mtx.Unlock()

	if state.profile.PersistsToken() {
		if err := erase(); err != nil {
			return err
		}
	}
	state.token = ""
	return nil
}
