package services

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/kelsos/fadr-stems/internal/logger"
	"github.com/kelsos/fadr-stems/internal/models"
	"github.com/kelsos/fadr-stems/internal/validation"
)

// componentSplit describes a second-stage split of one primary stem
type componentSplit struct {
	label  string
	dir    string
	create func(s *StemService, ctx context.Context, assetID models.AssetID) (*models.Task, error)
}

var (
	drumComponents = componentSplit{
		label: "drum",
		dir:   "drum-components",
		create: func(s *StemService, ctx context.Context, assetID models.AssetID) (*models.Task, error) {
			return s.assets.CreateDrumStemTask(ctx, assetID)
		},
	}
	otherComponents = componentSplit{
		label: "other",
		dir:   "other-components",
		create: func(s *StemService, ctx context.Context, assetID models.AssetID) (*models.Task, error) {
			return s.assets.CreateOtherStemTask(ctx, assetID)
		},
	}
)

// runComponentSplit never fails the run. Components downloaded before an
// error are kept and the error is surfaced as a warning.
func (s *StemService) runComponentSplit(ctx context.Context, split componentSplit, assetID models.AssetID, runDir, fileExt, baseName string, progress ProgressFunc) []models.Artifact {
	results, err := s.splitComponents(ctx, split, assetID, runDir, fileExt, baseName, progress)
	if err != nil {
		logger.Warn("Error processing %s stems: %v", split.label, err)
		progress(fmt.Sprintf("Warning: %s stem processing failed: %v", split.label, err), 85)
	}
	return results
}

func (s *StemService) splitComponents(ctx context.Context, split componentSplit, assetID models.AssetID, runDir, fileExt, baseName string, progress ProgressFunc) ([]models.Artifact, error) {
	componentDir := filepath.Join(runDir, split.dir)
	if err := validation.EnsureDirectory(componentDir); err != nil {
		return nil, err
	}

	progress(fmt.Sprintf("Starting %s stem separation...", split.label), 85)
	task, err := split.create(s, ctx, assetID)
	if err != nil {
		return nil, err
	}

	completedTask, err := s.poller.Poll(ctx, task.ID, s.config.SubMaxAttempts, func(attempt, maxAttempts int) {
		progress(fmt.Sprintf("Waiting for %s stems (attempt %d/%d)...", split.label, attempt, maxAttempts), 85)
	})
	if err != nil {
		return nil, err
	}

	var results []models.Artifact
	for _, stemID := range completedTask.Asset.Stems {
		stemAsset, subType, err := s.resolveStem(ctx, stemID)
		if err != nil {
			return results, err
		}

		progress(fmt.Sprintf("Downloading %s %s component...", split.label, subType), 90)
		outputPath := filepath.Join(componentDir, fmt.Sprintf("%s_%s.%s", baseName, subType, fileExt))
		if err := s.fetchArtifact(ctx, stemAsset.ID, outputPath); err != nil {
			return results, err
		}

		results = append(results, models.Artifact{
			Type:     split.label + "/" + subType,
			Path:     outputPath,
			Metadata: stemAsset.MetaData,
		})
	}

	logger.Info("Downloaded %d %s components", len(results), split.label)
	return results, nil
}
