package models

type UploadURLResponse struct {
	URL    string `json:"url" validate:"required"`
	S3Path string `json:"s3Path" validate:"required"`
}

type AssetResponse struct {
	Asset *Asset `json:"asset" validate:"required"`
}

type TaskResponse struct {
	Task *Task `json:"task" validate:"required"`
}

type TasksResponse struct {
	Tasks []Task `json:"tasks" validate:"dive"`
}

type DownloadURLResponse struct {
	URL string `json:"url" validate:"required"`
}

type UploadURLRequest struct {
	Name      string `json:"name"`
	Extension string `json:"extension"`
}

type CreateAssetRequest struct {
	Name      string `json:"name"`
	Extension string `json:"extension"`
	Group     string `json:"group"`
	S3Path    string `json:"s3Path"`
}

type StemTaskRequest struct {
	ID       AssetID      `json:"_id"`
	StemType StemTaskType `json:"stemType,omitempty"`
}

type TaskQueryRequest struct {
	IDs []TaskID `json:"_ids"`
}

// ErrorBody is the shape of a server-supplied error payload
type ErrorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}
