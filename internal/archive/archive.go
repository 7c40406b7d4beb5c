package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelsos/fadr-stems/internal/logger"
	"github.com/kelsos/fadr-stems/internal/services"
	"github.com/kelsos/fadr-stems/internal/storage"
)

// componentDirs are the second-stage split folders inside a run directory
var componentDirs = map[string]bool{
	"drum-components":  true,
	"other-components": true,
}

var audioExtensions = map[string]bool{
	".mp3": true,
	".wav": true,
}

// CreateArchive zips the artifacts of a processed run directory into destDir.
// An empty destDir places the archive next to the run directory.
func CreateArchive(runDir, destDir string) (string, error) {
	info, err := os.Stat(runDir)
	if err != nil {
		return "", fmt.Errorf("failed to read run directory: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("not a directory: %s", runDir)
	}

	if destDir == "" {
		destDir = filepath.Dir(filepath.Clean(runDir))
	}
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	timestamp := time.Now().Format("20060102_150405")
	archiveFile := filepath.Join(destDir, fmt.Sprintf("%s_stems_%s.zip", archiveBaseName(runDir), timestamp))

	zipFile, err := os.Create(archiveFile)
	if err != nil {
		return "", fmt.Errorf("failed to create archive file: %w", err)
	}

	// a failed archive is removed rather than left half written
	discard := func() {
		zipFile.Close()
		if err := os.Remove(archiveFile); err != nil {
			logger.Warn("Could not remove incomplete archive %s: %v", archiveFile, err)
		}
	}

	zipWriter := zip.NewWriter(zipFile)

	count := 0
	err = filepath.Walk(runDir, func(path string, info os.FileInfo, err error) error {
		added, err := addToZip(path, info, err, runDir, zipWriter)
		if added {
			count++
		}
		return err
	})
	if err != nil {
		zipWriter.Close()
		discard()
		return "", fmt.Errorf("failed to create archive: %w", err)
	}

	if err := zipWriter.Close(); err != nil {
		discard()
		return "", fmt.Errorf("failed to finalize archive: %w", err)
	}
	if err := zipFile.Close(); err != nil {
		discard()
		return "", fmt.Errorf("failed to finalize archive: %w", err)
	}

	logger.Info("Archived %d files from %s into %s", count, runDir, archiveFile)
	return archiveFile, nil
}

// archiveBaseName strips the run directory prefix: "[Processed] - song" becomes "song"
func archiveBaseName(runDir string) string {
	base := filepath.Base(filepath.Clean(runDir))
	base = strings.TrimPrefix(base, services.RunDirPrefix)
	return strings.ReplaceAll(base, " ", "_")
}

func addToZip(path string, info os.FileInfo, err error, runDir string, zipWriter *zip.Writer) (bool, error) {
	if err != nil {
		return false, err
	}

	if path == runDir {
		return false, nil
	}

	relPath, err := filepath.Rel(runDir, path)
	if err != nil {
		return false, fmt.Errorf("failed to get relative path: %w", err)
	}

	if !ShouldIncludeInArchive(relPath, info.IsDir()) {
		if info.IsDir() {
			logger.Debug("Skipping directory: %s", relPath)
			return false, filepath.SkipDir
		}
		logger.Debug("Skipping file: %s", relPath)
		return false, nil
	}

	name := filepath.ToSlash(relPath)
	if info.IsDir() {
		_, err = zipWriter.Create(name + "/")
		return false, err
	}

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return false, fmt.Errorf("failed to create file header: %w", err)
	}

	header.Name = name
	header.Method = zip.Deflate

	writer, err := zipWriter.CreateHeader(header)
	if err != nil {
		return false, fmt.Errorf("failed to create file in zip: %w", err)
	}

	file, err := os.Open(path)
	if err != nil {
		return false, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	if _, err := io.Copy(writer, file); err != nil {
		return false, fmt.Errorf("failed to copy file contents: %w", err)
	}

	logger.Debug("Added file to archive: %s", name)
	return true, nil
}

// ShouldIncludeInArchive keeps stems, MIDI and metadata snapshots of a run.
// Hidden files such as leftover write checks are skipped.
func ShouldIncludeInArchive(relPath string, isDir bool) bool {
	components := strings.Split(relPath, string(filepath.Separator))
	if len(components) == 0 || strings.HasPrefix(components[len(components)-1], ".") {
		return false
	}

	switch len(components) {
	case 1:
		if isDir {
			return componentDirs[components[0]]
		}
		name := components[0]
		if name == storage.MetadataFile || name == storage.InitialMetadataFile {
			return true
		}
		ext := strings.ToLower(filepath.Ext(name))
		return audioExtensions[ext] || ext == ".mid"
	case 2:
		return !isDir && componentDirs[components[0]] && audioExtensions[strings.ToLower(filepath.Ext(components[1]))]
	default:
		return false
	}
}
