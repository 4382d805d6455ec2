package backend

// Patient holds the patient metadata sent along with a study
type Patient struct {
	ID       string `json:"id" toml:"id"`
	Name     string `json:"name" toml:"name"`
	Birthday string `json:"birthday" toml:"birthday"`
	Gender   string `json:"gender,omitempty" toml:"gender"`
	MRN      string `json:"mrn,omitempty" toml:"mrn"`
}

// StudyParams are the test-call parameters of the study actions.
// Nothing but the study ID is required, and even that is only checked by the backend.
type StudyParams struct {
	StudyID  string         `json:"study_id"`
	Patient  *Patient       `json:"patient"`
	Metadata map[string]any `json:"metadata"`
}

type studyPayload struct {
	StudyID  string         `json:"study_id"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

func (params *StudyParams) payload() *studyPayload {
	metadata := make(map[string]any, len(params.Metadata)+1)
	for key, value := range params.Metadata {
		metadata[key] = value
	}
	if params.Patient != nil {
		metadata["patient"] = params.Patient
	}
	if len(metadata) == 0 {
		metadata = nil
	}
	return &studyPayload{
		StudyID:  params.StudyID,
		Metadata: metadata,
	}
}
