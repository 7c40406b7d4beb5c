package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/kelsos/fadr-stems/internal/async"
	"github.com/kelsos/fadr-stems/internal/client"
	"github.com/kelsos/fadr-stems/internal/logger"
	"github.com/kelsos/fadr-stems/internal/models"
)

// DefaultQuality is the download quality requested for every artifact
const DefaultQuality = "hq"

// AssetService wraps the remote asset and task endpoints
type AssetService struct {
	client *client.APIClient
}

// NewAssetService creates a new asset service
func NewAssetService(client *client.APIClient) *AssetService {
	return &AssetService{
		client: client,
	}
}

// GetUploadURL requests a presigned upload URL for a source file
func (s *AssetService) GetUploadURL(ctx context.Context, fileName, extension string) (*models.UploadURLResponse, error) {
	var response models.UploadURLResponse
	request := models.UploadURLRequest{Name: fileName, Extension: extension}
	if err := s.client.Post(ctx, "/assets/upload2", request, &response); err != nil {
		return nil, fmt.Errorf("failed to get upload URL: %w", err)
	}
	return &response, nil
}

// UploadFile streams the raw file bytes to the presigned URL
func (s *AssetService) UploadFile(ctx context.Context, uploadURL, localPath, mimeType string) error {
	err := s.client.Upload(ctx, uploadURL, localPath, mimeType)
	if err == nil {
		return nil
	}
	var timeoutErr *client.TimeoutError
	if errors.As(err, &timeoutErr) {
		return err
	}
	return fmt.Errorf("upload failed: %w", err)
}

// CreateAsset registers the uploaded file. An empty group defaults to "{name}-group".
func (s *AssetService) CreateAsset(ctx context.Context, name, extension, s3Path, group string) (*models.Asset, error) {
	if group == "" {
		group = name + "-group"
	}

	var response models.AssetResponse
	request := models.CreateAssetRequest{
		Name:      name,
		Extension: extension,
		Group:     group,
		S3Path:    s3Path,
	}
	if err := s.client.Post(ctx, "/assets", request, &response); err != nil {
		return nil, fmt.Errorf("failed to create asset: %w", err)
	}

	logger.Debug("Created asset %s for %s", response.Asset.ID, name)
	return response.Asset, nil
}

func (s *AssetService) createTask(ctx context.Context, request models.StemTaskRequest, label string) (*models.Task, error) {
	var response models.TaskResponse
	if err := s.client.Post(ctx, "/assets/analyze/stem", request, &response); err != nil {
		return nil, fmt.Errorf("failed to create %s task: %w", label, err)
	}

	logger.Debug("Created %s task %s for asset %s", label, response.Task.ID, request.ID)
	return response.Task, nil
}

// CreateStemTask requests the primary split of a source asset
func (s *AssetService) CreateStemTask(ctx context.Context, assetID models.AssetID) (*models.Task, error) {
	return s.createTask(ctx, models.StemTaskRequest{ID: assetID}, "stem")
}

// CreateDrumStemTask requests a second-stage split of a drums stem
func (s *AssetService) CreateDrumStemTask(ctx context.Context, drumAssetID models.AssetID) (*models.Task, error) {
	return s.createTask(ctx, models.StemTaskRequest{ID: drumAssetID, StemType: models.StemTaskDrums}, "drum stem")
}

// CreateOtherStemTask requests a second-stage split of an other stem
func (s *AssetService) CreateOtherStemTask(ctx context.Context, otherAssetID models.AssetID) (*models.Task, error) {
	return s.createTask(ctx, models.StemTaskRequest{ID: otherAssetID, StemType: models.StemTaskOther}, "other stem")
}

// QueryTask fetches the authoritative state of a single task
func (s *AssetService) QueryTask(ctx context.Context, taskID models.TaskID) (*models.Task, error) {
	var response models.TasksResponse
	request := models.TaskQueryRequest{IDs: []models.TaskID{taskID}}
	if err := s.client.Post(ctx, "/tasks/query", request, &response); err != nil {
		return nil, fmt.Errorf("failed to query task: %w", err)
	}

	if len(response.Tasks) == 0 {
		return nil, fmt.Errorf("%w: %s", async.ErrTaskNotFound, taskID)
	}

	return &response.Tasks[0], nil
}

// GetAsset fetches an asset by id
func (s *AssetService) GetAsset(ctx context.Context, assetID models.AssetID) (*models.Asset, error) {
	var response models.AssetResponse
	endpoint := fmt.Sprintf("/assets/%s", url.PathEscape(string(assetID)))
	if err := s.client.Get(ctx, endpoint, &response); err != nil {
		return nil, fmt.Errorf("failed to get asset: %w", err)
	}
	return response.Asset, nil
}

// GetDownloadURL resolves a presigned download URL for an asset
func (s *AssetService) GetDownloadURL(ctx context.Context, assetID models.AssetID, quality string) (string, error) {
	if quality == "" {
		quality = DefaultQuality
	}

	var response models.DownloadURLResponse
	endpoint := fmt.Sprintf("/assets/download/%s/%s", url.PathEscape(string(assetID)), url.PathEscape(quality))
	if err := s.client.Get(ctx, endpoint, &response); err != nil {
		return "", fmt.Errorf("failed to get download URL: %w", err)
	}
	return response.URL, nil
}

// DownloadFile streams a download URL directly to destPath
func (s *AssetService) DownloadFile(ctx context.Context, downloadURL, destPath string) error {
	return s.client.Download(ctx, downloadURL, destPath)
}
