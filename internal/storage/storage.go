package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kelsos/fadr-stems/internal/models"
)

const (
	InitialMetadataFile = "initial_metadata.json"
	MetadataFile        = "metadata.json"
)

// SaveMetadata writes the asset snapshot as indented JSON into outputDir and
// returns the file path. Identical remote state yields identical bytes.
func SaveMetadata(asset *models.Asset, outputDir, fileName string) (string, error) {
	if fileName == "" {
		fileName = MetadataFile
	}
	filePath := filepath.Join(outputDir, fileName)

	jsonData, err := json.MarshalIndent(asset, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to save metadata: %w", err)
	}

	if err := os.WriteFile(filePath, jsonData, 0644); err != nil {
		return "", fmt.Errorf("failed to save metadata: %w", err)
	}

	return filePath, nil
}

// LoadMetadata reads a snapshot written by SaveMetadata
func LoadMetadata(filePath string) (*models.Asset, error) {
	fileData, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata file: %w", err)
	}

	var asset models.Asset
	if err := json.Unmarshal(fileData, &asset); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
	}

	if asset.ID == "" {
		return nil, fmt.Errorf("metadata file %s has no asset id", filePath)
	}

	return &asset, nil
}
