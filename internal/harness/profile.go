package harness

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/MasterLKH180cm/keycloak-poc/internal/bitflag"
)

const (
	// FlagPersistToken makes the harness keep the token in workspace storage in addition to runtime memory
	FlagPersistToken bitflag.Flag = 1 << iota

	// FlagViewerRoutes makes the harness use the '/viewer/...' study and health routes of the backend
	FlagViewerRoutes
)

var flagNames = map[bitflag.Flag]string{
	FlagPersistToken: "persist_token",
	FlagViewerRoutes: "viewer_routes",
}

// Profile describes one of the harness variants
type Profile struct {
	Name  string            `json:"name"`
	Flags bitflag.Container `json:"flags"`
}

var (
	// ProfileMinimal keeps the token in memory only and talks to the legacy routes
	ProfileMinimal = Profile{
		Name:  "minimal",
		Flags: bitflag.EmptyContainer,
	}

	// ProfileViewer persists the token and talks to the viewer routes
	ProfileViewer = Profile{
		Name:  "viewer",
		Flags: bitflag.EmptyContainer.With(FlagPersistToken, FlagViewerRoutes),
	}
)

// ProfileByName resolves a profile by its (case-insensitive) name
func ProfileByName(name string) (Profile, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case ProfileMinimal.Name:
		return ProfileMinimal, nil
	case ProfileViewer.Name:
		return ProfileViewer, nil
	default:
		return Profile{}, fmt.Errorf("unknown harness profile '%s'", name)
	}
}

// PersistsToken reports whether tokens survive in workspace storage
func (profile Profile) PersistsToken() bool {
	return profile.Flags.Has(FlagPersistToken)
}

// UsesViewerRoutes reports whether the '/viewer/...' routes are used
func (profile Profile) UsesViewerRoutes() bool {
	return profile.Flags.Has(FlagViewerRoutes)
}

// Features returns the names of the flags the profile has set
func (profile Profile) Features() []string {
	return profile.Flags.Names(flagNames)
}

// MarshalJSON adds the feature names to the JSON representation of the profile
func (profile Profile) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		Name     string            `json:"name"`
		Flags    bitflag.Container `json:"flags"`
		Features []string          `json:"features"`
	}{
		Name:     profile.Name,
		Flags:    profile.Flags,
		Features: profile.Features(),
	})
}
