package harness

import (
	"time"

	"github.com/MasterLKH180cm/keycloak-poc/internal/hashmap"
)

// Registry keeps the runtime states of all live workspaces
type Registry struct {
	states   *hashmap.ExpiringMap[string, *State]
	defaults Endpoints
	profile  Profile
}

// NewRegistry creates a new registry whose states start with the given endpoints and run with the given profile.
// States unused for longer than lifetime are dropped; their persisted token (if any) is restored on the next use.
func NewRegistry(defaults Endpoints, profile Profile, lifetime time.Duration) *Registry {
	return &Registry{
		states:   hashmap.NewExpiring[string, *State](lifetime),
		defaults: defaults,
		profile:  profile,
	}
}

// Profile returns the profile new states run with
func (registry *Registry) Profile() Profile {
	return registry.profile
}

// Defaults returns the endpoints new states start with
func (registry *Registry) Defaults() Endpoints {
	return registry.defaults
}

// Resolve returns the runtime state of a workspace, creating it if necessary.
// A newly created state restores the persisted token when the profile persists tokens.
func (registry *Registry) Resolve(workspaceID string, persisted *TokenRecord) *State {
	state, _ := registry.states.LoadOrStore(workspaceID, func() *State {
		state := NewState(workspaceID, registry.profile, registry.defaults)
		if persisted != nil && registry.profile.PersistsToken() {
			state.token = persisted.Value
		}
		return state
	})
	return state
}

// Forget drops the runtime state of a workspace
func (registry *Registry) Forget(workspaceID string) {
	registry.states.Unset(workspaceID)
}

// Size returns the amount of runtime states currently held
func (registry *Registry) Size() int {
	return registry.states.Size()
}

// StartCleanup schedules the removal of expired runtime states
func (registry *Registry) StartCleanup(tick time.Duration) {
	registry.states.ScheduleCleanupTask(tick)
}

// StopCleanup stops the removal of expired runtime states
func (registry *Registry) StopCleanup() {
	registry.states.StopCleanupTask()
}
