package models

// Artifact is the local projection of one downloaded stem or MIDI file
type Artifact struct {
	Type     string        `json:"type"`
	Path     string        `json:"path"`
	Metadata AssetMetaData `json:"metadata"`
}

// ProcessResult is returned by both the processing and the recovery pipelines.
// Failures are reported with Success false and Error set, never as a panic.
type ProcessResult struct {
	Success             bool       `json:"success"`
	Error               string     `json:"error,omitempty"`
	Metadata            *Asset     `json:"metadata,omitempty"`
	MetadataFile        string     `json:"metadataFile,omitempty"`
	InitialMetadataFile string     `json:"initialMetadataFile,omitempty"`
	Stems               []Artifact `json:"stems,omitempty"`
	Midi                []Artifact `json:"midi,omitempty"`
	OutputDirectory     string     `json:"outputDirectory,omitempty"`
}

// Failed builds the structured failure result
func Failed(err error) *ProcessResult {
	return &ProcessResult{Success: false, Error: err.Error()}
}
