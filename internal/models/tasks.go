package models

type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusError      TaskStatus = "error"
	TaskStatusFailed     TaskStatus = "failed"
)

// IsFailure reports a terminal, non-retryable status
func (s TaskStatus) IsFailure() bool {
	return s == TaskStatusError || s == TaskStatusFailed
}

type TaskID string

// StemTaskType tags second-stage split requests
type StemTaskType string

const (
	StemTaskDrums StemTaskType = "drum-stem"
	StemTaskOther StemTaskType = "other-stem"
)

// TaskAsset is the asset snapshot embedded in a task status response
type TaskAsset struct {
	ID    AssetID   `json:"_id,omitempty"`
	Stems []AssetID `json:"stems"`
	Midi  []AssetID `json:"midi"`
}

// Task is one asynchronous analysis job. It is never updated locally;
// every poll re-fetches the authoritative state.
type Task struct {
	ID     TaskID     `json:"_id" validate:"required"`
	Status TaskStatus `json:"status,omitempty"`
	Asset  TaskAsset  `json:"asset"`
}
