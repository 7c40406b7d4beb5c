package validation

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// MaxInputSize is the largest accepted source file (100 MiB)
const MaxInputSize = 100 * 1024 * 1024

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrIO           = errors.New("io error")
)

var supportedExtensions = map[string]bool{
	".mp3": true,
	".wav": true,
}

// ValidateInputFile checks existence, extension and size of the source audio.
// It has no side effects.
func ValidateInputFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: input file does not exist: %s", ErrInvalidInput, path)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: input path is a directory: %s", ErrInvalidInput, path)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if !supportedExtensions[ext] {
		return fmt.Errorf("%w: unsupported file format: %s. Only .mp3 and .wav files are supported", ErrInvalidInput, ext)
	}

	if info.Size() > MaxInputSize {
		sizeMB := float64(info.Size()) / (1024 * 1024)
		return fmt.Errorf("%w: file too large: %.2fMB. Maximum allowed is 100MB", ErrInvalidInput, sizeMB)
	}

	return nil
}

// EnsureDirectory creates dirPath and any missing parents
func EnsureDirectory(dirPath string) error {
	if err := os.MkdirAll(dirPath, 0755); err != nil {
		return fmt.Errorf("%w: cannot create directory: %v", ErrIO, err)
	}
	return nil
}

// ValidateOutputDirectory creates the directory tree if absent and checks it
// for write access. The directory stays in place even if a later step fails.
func ValidateOutputDirectory(dirPath string) error {
	if err := EnsureDirectory(dirPath); err != nil {
		return err
	}

	checkFile := filepath.Join(dirPath, ".write-check-"+uuid.NewString())
	if err := os.WriteFile(checkFile, []byte("test"), 0o600); err != nil {
		return fmt.Errorf("%w: cannot write to output directory: %v", ErrIO, err)
	}
	if err := os.Remove(checkFile); err != nil {
		return fmt.Errorf("%w: cannot write to output directory: %v", ErrIO, err)
	}

	return nil
}
