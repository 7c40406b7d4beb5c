package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/kelsos/fadr-stems/internal/config"
	"github.com/kelsos/fadr-stems/internal/download"
	"github.com/kelsos/fadr-stems/internal/logger"
	"github.com/kelsos/fadr-stems/internal/models"
)

// APIClient handles all HTTP communication with the stem separation API.
// Every call is a single request/response exchange; retry policy lives in
// the poller only.
type APIClient struct {
	config         *config.Config
	httpClient     *http.Client
	uploadClient   *http.Client
	downloadClient *http.Client
	validate       *validator.Validate
}

// NewAPIClient creates a new API client with the given configuration
func NewAPIClient(cfg *config.Config) *APIClient {
	return &APIClient{
		config:         cfg,
		httpClient:     &http.Client{Timeout: cfg.RequestTimeout},
		uploadClient:   &http.Client{Timeout: cfg.UploadTimeout},
		downloadClient: &http.Client{Timeout: cfg.DownloadTimeout},
		validate:       validator.New(),
	}
}

// BuildURL constructs a full URL for the given endpoint
func (c *APIClient) BuildURL(endpoint string) string {
	return fmt.Sprintf("%s%s", strings.TrimRight(c.config.APIURL, "/"), endpoint)
}

// Get makes a GET request to the specified endpoint
func (c *APIClient) Get(ctx context.Context, endpoint string, result interface{}) error {
	return c.request(ctx, http.MethodGet, endpoint, nil, result)
}

// Post makes a POST request to the specified endpoint
func (c *APIClient) Post(ctx context.Context, endpoint string, body interface{}, result interface{}) error {
	return c.request(ctx, http.MethodPost, endpoint, body, result)
}

// request is the core HTTP request method
func (c *APIClient) request(ctx context.Context, method, endpoint string, body interface{}, result interface{}) error {
	url := c.BuildURL(endpoint)
	start := time.Now()
	logger.Debug("Starting %s request to %s", method, url)

	var requestBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return &ClientError{Message: fmt.Sprintf("error marshaling request body: %v", err), Err: err}
		}
		requestBody = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, requestBody)
	if err != nil {
		return &ClientError{Message: fmt.Sprintf("error creating request: %v", err), Err: err}
	}

	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Error("Request to %s failed after %v: %v", url, time.Since(start), err)
		return translate(OpRequest, err)
	}
	defer resp.Body.Close()

	logger.Debug("Request to %s completed in %v with status %d", url, time.Since(start), resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		remoteErr := remoteError(resp)
		logger.Error("%s: HTTP error %d: %s", url, resp.StatusCode, remoteErr.Message)
		return remoteErr
	}

	if result == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		logger.Error("%s: Error decoding response: %v", url, err)
		return &DecodeError{Endpoint: endpoint, Err: err}
	}

	if err := c.validate.Struct(result); err != nil {
		logger.Error("%s: Response failed validation: %v", url, err)
		return &DecodeError{Endpoint: endpoint, Err: err}
	}

	return nil
}

// remoteError prefers the server's message, then its error field, then the raw body
func remoteError(resp *http.Response) *RemoteError {
	bodyBytes, _ := io.ReadAll(resp.Body)

	message := strings.TrimSpace(string(bodyBytes))
	var body models.ErrorBody
	if err := json.Unmarshal(bodyBytes, &body); err == nil {
		switch {
		case body.Message != "":
			message = body.Message
		case body.Error != "":
			message = body.Error
		}
	}
	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}

	return &RemoteError{Message: message, Status: resp.StatusCode}
}

// Upload streams a local file to a presigned URL with an unauthenticated PUT
func (c *APIClient) Upload(ctx context.Context, uploadURL, localPath, contentType string) error {
	file, err := os.Open(localPath)
	if err != nil {
		return &ClientError{Message: fmt.Sprintf("cannot open %s: %v", localPath, err), Err: err}
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return &ClientError{Message: fmt.Sprintf("cannot stat %s: %v", localPath, err), Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, file)
	if err != nil {
		return &ClientError{Message: fmt.Sprintf("error creating upload request: %v", err), Err: err}
	}
	req.ContentLength = info.Size()
	req.Header.Set("Content-Type", contentType)

	start := time.Now()
	logger.Debug("Uploading %d bytes to %s", info.Size(), uploadURL)

	resp, err := c.uploadClient.Do(req)
	if err != nil {
		logger.Error("Upload failed after %v: %v", time.Since(start), err)
		return translate(OpUpload, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return remoteError(resp)
	}

	logger.Debug("Upload completed in %v with status %d", time.Since(start), resp.StatusCode)
	return nil
}

// Download streams the body at downloadURL to destPath
func (c *APIClient) Download(ctx context.Context, downloadURL, destPath string) error {
	start := time.Now()
	if _, err := download.ToFile(ctx, c.downloadClient, downloadURL, destPath); err != nil {
		logger.Error("Download to %s failed after %v: %v", destPath, time.Since(start), err)
		if isTimeout(err) {
			return &TimeoutError{Op: OpDownload, Err: err}
		}
		return &DownloadError{URL: downloadURL, Err: err}
	}
	return nil
}
