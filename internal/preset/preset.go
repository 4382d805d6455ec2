package preset

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/MasterLKH180cm/keycloak-poc/internal/backend"
)

// Study is a named set of study action parameters offered by the page
type Study struct {
	Name     string           `json:"name" toml:"name"`
	StudyID  string           `json:"study_id" toml:"study_id"`
	Patient  *backend.Patient `json:"patient,omitempty" toml:"patient"`
	Metadata map[string]any   `json:"metadata,omitempty" toml:"metadata"`
}

// Params converts the preset into study action parameters
func (study *Study) Params() *backend.StudyParams {
	return &backend.StudyParams{
		StudyID:  study.StudyID,
		Patient:  study.Patient,
		Metadata: study.Metadata,
	}
}

// Set holds all presets the page offers
type Set struct {
	Studies    []*Study          `json:"studies" toml:"study"`
	AppTypes   []backend.AppType `json:"app_types" toml:"app_types"`
	ClientInfo map[string]any    `json:"client_info" toml:"client_info"`
}

// Lookup returns the study preset with the given name
func (set *Set) Lookup(name string) (*Study, bool) {
	for _, study := range set.Studies {
		if study.Name == name {
			return study, true
		}
	}
	return nil, false
}

// Default returns the presets used when no presets file is configured
func Default() *Set {
	return &Set{
		Studies: []*Study{
			{
				Name:    "default",
				StudyID: "1.2.840.113619.2.55.3.604688119.969.1234567890.123",
				Patient: &backend.Patient{
					ID:       "P-0001",
					Name:     "Doe^Jane",
					Birthday: "1970-01-01",
					Gender:   "F",
					MRN:      "MRN-0001",
				},
			},
		},
		AppTypes:   backend.AppTypes,
		ClientInfo: map[string]any{
			"name": "keycloak-poc harness",
		},
	}
}

// Load reads a presets file in TOML format.
// Missing top-level values fall back to the defaults.
func Load(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read presets file: %w", err)
	}

	set := new(Set)
	if err := toml.Unmarshal(data, set); err != nil {
		return nil, fmt.Errorf("parse presets file: %w", err)
	}

	defaults := Default()
	if len(set.Studies) == 0 {
		set.Studies = defaults.Studies
	}
	if len(set.AppTypes) == 0 {
		set.AppTypes = defaults.AppTypes
	}
	if len(set.ClientInfo) == 0 {
		set.ClientInfo = defaults.ClientInfo
	}
	for i, study := range set.Studies {
		if study.Name == "" {
			return nil, fmt.Errorf("study preset #%d has no name", i+1)
		}
	}
	return set, nil
}
