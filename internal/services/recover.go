package services

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/kelsos/fadr-stems/internal/logger"
	"github.com/kelsos/fadr-stems/internal/models"
	"github.com/kelsos/fadr-stems/internal/storage"
	"github.com/kelsos/fadr-stems/internal/validation"
)

// RecoveryStemExtension is assumed for every recovered stem. The source
// extension is not recorded on the asset.
const RecoveryStemExtension = "mp3"

// DownloadFilesFromAssetID re-downloads the stems and MIDI an asset currently
// references into outputDir. Only the asset fetch and the metadata save can
// fail the recovery; per-artifact failures become warnings.
//
// Components of drum and other splits are not reachable from the top-level
// asset and are never recovered.
func (s *StemService) DownloadFilesFromAssetID(ctx context.Context, assetID models.AssetID, outputDir string, progress ProgressFunc) (result *models.ProcessResult) {
	if progress == nil {
		progress = noProgress
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Recovery panicked: %v", r)
			result = models.Failed(fmt.Errorf("recovery aborted: %v", r))
		}
	}()

	result, err := s.downloadFilesFromAssetID(ctx, assetID, outputDir, progress)
	if err != nil {
		logger.Error("Recovery of asset %s failed: %v", assetID, err)
		return models.Failed(err)
	}
	return result
}

// RecoverFromSnapshot reads the asset id from a saved metadata snapshot,
// typically initial_metadata.json of an interrupted run, and recovers it.
func (s *StemService) RecoverFromSnapshot(ctx context.Context, snapshotPath, outputDir string, progress ProgressFunc) *models.ProcessResult {
	asset, err := storage.LoadMetadata(snapshotPath)
	if err != nil {
		logger.Error("Cannot read snapshot %s: %v", snapshotPath, err)
		return models.Failed(err)
	}
	logger.Info("Recovering asset %s from %s", asset.ID, snapshotPath)
	return s.DownloadFilesFromAssetID(ctx, asset.ID, outputDir, progress)
}

func (s *StemService) downloadFilesFromAssetID(ctx context.Context, assetID models.AssetID, outputDir string, progress ProgressFunc) (*models.ProcessResult, error) {
	progress("Starting recovery process...", 0)
	if err := validation.EnsureDirectory(outputDir); err != nil {
		return nil, err
	}

	progress("Retrieving asset information...", 10)
	asset, err := s.assets.GetAsset(ctx, assetID)
	if err != nil {
		return nil, err
	}

	progress("Saving metadata...", 20)
	metadataFile, err := storage.SaveMetadata(asset, outputDir, storage.MetadataFile)
	if err != nil {
		return nil, err
	}

	baseName := recoveryBaseName(asset)

	var stems []models.Artifact
	if len(asset.Stems) > 0 {
		progress(fmt.Sprintf("Found %d stems to download", len(asset.Stems)), 30)
		for _, stemID := range asset.Stems {
			artifact, err := s.recoverStem(ctx, stemID, outputDir, baseName, progress)
			if err != nil {
				logger.Warn("Error downloading stem %s: %v", stemID, err)
				progress(fmt.Sprintf("Warning: stem download failed: %v", err), 50)
				continue
			}
			stems = append(stems, artifact)
		}
	} else {
		progress("No stems found in asset", 30)
	}

	var midi []models.Artifact
	if len(asset.Midi) > 0 {
		progress(fmt.Sprintf("Found %d MIDI files to download", len(asset.Midi)), 70)
		midi = s.downloadMidi(ctx, asset.Midi, outputDir, 85, progress)
	} else {
		progress("No MIDI files found in asset", 85)
	}

	progress("Recovery process complete!", 100)
	logger.Info("Recovered asset %s: %d stems, %d MIDI files in %s", assetID, len(stems), len(midi), outputDir)

	return &models.ProcessResult{
		Success:         true,
		Metadata:        asset,
		MetadataFile:    metadataFile,
		Stems:           stems,
		Midi:            midi,
		OutputDirectory: outputDir,
	}, nil
}

func (s *StemService) recoverStem(ctx context.Context, stemID models.AssetID, outputDir, baseName string, progress ProgressFunc) (models.Artifact, error) {
	stemAsset, stemType, err := s.resolveStem(ctx, stemID)
	if err != nil {
		return models.Artifact{}, err
	}

	progress(fmt.Sprintf("Downloading %s stem...", stemType), 50)
	outputPath := filepath.Join(outputDir, fmt.Sprintf("%s_%s.%s", baseName, stemType, RecoveryStemExtension))
	if err := s.fetchArtifact(ctx, stemAsset.ID, outputPath); err != nil {
		return models.Artifact{}, err
	}

	progress(fmt.Sprintf("%s stem downloaded successfully", stemType), 50)
	return models.Artifact{
		Type:     stemType,
		Path:     outputPath,
		Metadata: stemAsset.MetaData,
	}, nil
}

// recoveryBaseName prefers the uploaded file name recorded on the asset and
// falls back to the asset id
func recoveryBaseName(asset *models.Asset) string {
	name := asset.MetaData.Name
	if name == "" {
		name = asset.Name
	}
	return fileNamePart(strings.TrimSuffix(name, filepath.Ext(name)), string(asset.ID))
}
