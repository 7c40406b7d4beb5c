package download

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"

	"github.com/kelsos/fadr-stems/internal/logger"
)

// StatusError is a download URL that answered with a non-2xx status
type StatusError struct {
	Status string
	Code   int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("bad status: %s", e.Status)
}

// validateURL only accepts absolute http(s) URLs; download URLs are presigned
// storage links handed out by the API.
func validateURL(downloadURL string) error {
	parsedURL, err := url.Parse(downloadURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %v", err)
	}

	if parsedURL.Scheme != "https" && parsedURL.Scheme != "http" {
		return fmt.Errorf("unsupported URL scheme: %q", parsedURL.Scheme)
	}

	if parsedURL.Host == "" {
		return fmt.Errorf("URL has no host: %s", downloadURL)
	}

	return nil
}

// ToFile streams the response body at downloadURL directly to dest.
// A partially written file is left in place when the copy fails.
func ToFile(ctx context.Context, httpClient *http.Client, downloadURL, dest string) (int64, error) {
	if err := validateURL(downloadURL); err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	// #nosec G107 - URL comes from the API's download endpoint, not user input
	resp, err := httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, &StatusError{Status: resp.Status, Code: resp.StatusCode}
	}

	out, err := os.Create(dest)
	if err != nil {
		return 0, fmt.Errorf("failed to create file %s: %w", dest, err)
	}
	defer out.Close()

	written, err := io.Copy(out, resp.Body)
	if err != nil {
		return written, fmt.Errorf("failed to write file %s: %w", dest, err)
	}

	logger.Debug("Downloaded %d bytes to %s", written, dest)
	return written, nil
}
