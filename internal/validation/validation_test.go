package validation

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func writeSized(t *testing.T, path string, size int64) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()
	if err := f.Truncate(size); err != nil {
		t.Fatalf("truncate %s: %v", path, err)
	}
}

func TestValidateInputFileAcceptsSupportedFormats(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"song.mp3", "song.WAV", "Mix.Mp3"} {
		path := filepath.Join(dir, name)
		writeSized(t, path, 1024)
		if err := ValidateInputFile(path); err != nil {
			t.Fatalf("expected %s to validate, got %v", name, err)
		}
	}
}

func TestValidateInputFileRejectsOtherExtensions(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"song.flac", "song.ogg", "song", "song.mp3.txt"} {
		path := filepath.Join(dir, name)
		writeSized(t, path, 10)
		err := ValidateInputFile(path)
		if !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput for %s, got %v", name, err)
		}
	}
}

func TestValidateInputFileMissing(t *testing.T) {
	err := ValidateInputFile(filepath.Join(t.TempDir(), "nope.mp3"))
	if !errors.Is(err, ErrInvalidInput) || !strings.Contains(err.Error(), "does not exist") {
		t.Fatalf("expected missing file error, got %v", err)
	}
}

func TestValidateInputFileTooLarge(t *testing.T) {
	path := filepath.Join(t.TempDir(), "huge.wav")
	writeSized(t, path, MaxInputSize+512*1024)

	err := ValidateInputFile(path)
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if !strings.Contains(err.Error(), "100.50MB") {
		t.Fatalf("expected computed size in message, got %q", err.Error())
	}
}

func TestValidateInputFileAtLimit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "edge.mp3")
	writeSized(t, path, MaxInputSize)
	if err := ValidateInputFile(path); err != nil {
		t.Fatalf("expected file at the limit to pass, got %v", err)
	}
}

func TestValidateOutputDirectoryCreatesTree(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b", "c")
	if err := ValidateOutputDirectory(dir); err != nil {
		t.Fatalf("ValidateOutputDirectory returned error: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected write check file to be removed, found %d entries", len(entries))
	}
}

func TestValidateOutputDirectoryReadOnly(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced here")
	}
	dir := t.TempDir()
	if err := os.Chmod(dir, 0o500); err != nil {
		t.Fatalf("chmod: %v", err)
	}
	t.Cleanup(func() { _ = os.Chmod(dir, 0o700) })

	if err := ValidateOutputDirectory(dir); !errors.Is(err, ErrIO) {
		t.Fatalf("expected ErrIO, got %v", err)
	}
}
