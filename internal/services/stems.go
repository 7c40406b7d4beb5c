package services

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/kelsos/fadr-stems/internal/async"
	"github.com/kelsos/fadr-stems/internal/client"
	"github.com/kelsos/fadr-stems/internal/config"
	"github.com/kelsos/fadr-stems/internal/logger"
	"github.com/kelsos/fadr-stems/internal/models"
	"github.com/kelsos/fadr-stems/internal/storage"
	"github.com/kelsos/fadr-stems/internal/validation"
)

// RunDirPrefix names the per-input output directory: "[Processed] - {baseName}"
const RunDirPrefix = "[Processed] - "

// ProgressFunc is the progress sink. It is called synchronously at every
// stage boundary and must not block.
type ProgressFunc func(message string, percent int)

func noProgress(string, int) {}

// StemService orchestrates upload, analysis, polling and artifact download
type StemService struct {
	config *config.Config
	assets *AssetService
	poller *async.Poller
}

// NewStemService creates a new stem service with all dependencies
func NewStemService(cfg *config.Config) *StemService {
	apiClient := client.NewAPIClient(cfg)
	assets := NewAssetService(apiClient)

	return &StemService{
		config: cfg,
		assets: assets,
		poller: async.NewPoller(assets, cfg.PollInterval),
	}
}

// WithSleep replaces the delay between poll attempts
func (s *StemService) WithSleep(sleep async.SleepFunc) *StemService {
	s.poller.WithSleep(sleep)
	return s
}

// Assets exposes the underlying gateway
func (s *StemService) Assets() *AssetService {
	return s.assets
}

// RunDirectory returns the dedicated output directory for an input file
func RunDirectory(outputDir, inputPath string) string {
	return filepath.Join(outputDir, RunDirPrefix+baseNameOf(inputPath))
}

func baseNameOf(path string) string {
	fileName := filepath.Base(path)
	return strings.TrimSuffix(fileName, filepath.Ext(fileName))
}

// ProcessFile runs the full pipeline for one input file. It never returns an
// error: failures are reported as a ProcessResult with Success false, and
// files already written stay on disk.
func (s *StemService) ProcessFile(ctx context.Context, inputPath, outputDir string, progress ProgressFunc) (result *models.ProcessResult) {
	if progress == nil {
		progress = noProgress
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Processing panicked: %v", r)
			result = models.Failed(fmt.Errorf("processing aborted: %v", r))
		}
	}()

	result, err := s.processFile(ctx, inputPath, outputDir, progress)
	if err != nil {
		logger.Error("Processing failed: %v", err)
		return models.Failed(err)
	}
	return result
}

func (s *StemService) processFile(ctx context.Context, inputPath, outputDir string, progress ProgressFunc) (*models.ProcessResult, error) {
	progress("Validating input and output...", 0)

	if err := validation.ValidateInputFile(inputPath); err != nil {
		return nil, err
	}
	if err := validation.ValidateOutputDirectory(outputDir); err != nil {
		return nil, err
	}

	fileName := filepath.Base(inputPath)
	fileExt := strings.TrimPrefix(filepath.Ext(fileName), ".")
	baseName := baseNameOf(inputPath)
	runDir := RunDirectory(outputDir, inputPath)

	if err := validation.EnsureDirectory(runDir); err != nil {
		return nil, err
	}

	// Step 1: upload
	progress("Getting upload URL...", 5)
	upload, err := s.assets.GetUploadURL(ctx, fileName, fileExt)
	if err != nil {
		return nil, err
	}

	progress("Uploading file...", 10)
	if err := s.assets.UploadFile(ctx, upload.URL, inputPath, "audio/"+strings.ToLower(fileExt)); err != nil {
		return nil, err
	}

	// Step 2: asset record and recovery anchor
	progress("Creating asset...", 20)
	asset, err := s.assets.CreateAsset(ctx, fileName, fileExt, upload.S3Path, fileName+"-stems")
	if err != nil {
		return nil, err
	}

	progress("Saving initial metadata...", 22)
	initialMetadataFile, err := storage.SaveMetadata(asset, runDir, storage.InitialMetadataFile)
	if err != nil {
		return nil, err
	}
	progress(fmt.Sprintf("Metadata saved to: %s", initialMetadataFile), 24)
	progress(fmt.Sprintf("Use asset ID: %s for recovery if needed", asset.ID), 25)
	logger.Info("Asset %s created for %s; recovery anchor at %s", asset.ID, fileName, initialMetadataFile)

	// Step 3: primary split
	progress("Starting stem extraction...", 25)
	task, err := s.assets.CreateStemTask(ctx, asset.ID)
	if err != nil {
		return nil, err
	}

	progress("Processing stems...", 30)
	completedTask, err := s.poller.Poll(ctx, task.ID, s.config.MaxAttempts, func(attempt, maxAttempts int) {
		progress(fmt.Sprintf("Waiting for stems (attempt %d/%d)...", attempt, maxAttempts), pollPercent(attempt, maxAttempts))
	})
	if err != nil {
		return nil, err
	}

	// Step 4: main stems
	progress("Retrieving stem information...", 70)
	finalAsset, err := s.assets.GetAsset(ctx, asset.ID)
	if err != nil {
		return nil, err
	}

	var stems []models.Artifact
	var drumAssetID, otherAssetID models.AssetID

	for _, stemID := range completedTask.Asset.Stems {
		stemAsset, stemType, err := s.resolveStem(ctx, stemID)
		if err != nil {
			return nil, err
		}

		progress(fmt.Sprintf("Downloading %s stem...", stemType), 75)
		outputPath := filepath.Join(runDir, fmt.Sprintf("%s_%s.%s", baseName, stemType, fileExt))
		if err := s.fetchArtifact(ctx, stemAsset.ID, outputPath); err != nil {
			return nil, err
		}

		stems = append(stems, models.Artifact{
			Type:     stemType,
			Path:     outputPath,
			Metadata: stemAsset.MetaData,
		})

		if models.IsDrumStem(stemType) {
			drumAssetID = stemAsset.ID
		}
		if models.IsOtherStem(stemType) {
			otherAssetID = stemAsset.ID
		}
	}

	// Step 5: optional second-stage splits
	if drumAssetID != "" {
		stems = append(stems, s.runComponentSplit(ctx, drumComponents, drumAssetID, runDir, fileExt, baseName, progress)...)
	}
	if otherAssetID != "" {
		stems = append(stems, s.runComponentSplit(ctx, otherComponents, otherAssetID, runDir, fileExt, baseName, progress)...)
	}

	// Step 6: MIDI
	progress("Processing MIDI files...", 85)
	var midi []models.Artifact
	if len(finalAsset.Midi) > 0 {
		progress(fmt.Sprintf("Found %d MIDI files to download", len(finalAsset.Midi)), 86)
		midi = s.downloadMidi(ctx, finalAsset.Midi, runDir, 87, progress)
	} else {
		progress("No MIDI files found in asset", 87)
	}

	// Step 7: final snapshot
	progress("Updating metadata file...", 98)
	metadataFile, err := storage.SaveMetadata(finalAsset, runDir, storage.MetadataFile)
	if err != nil {
		return nil, err
	}

	progress("Processing complete!", 100)
	logger.Info("Processed %s: %d stems, %d MIDI files in %s", fileName, len(stems), len(midi), runDir)

	return &models.ProcessResult{
		Success:             true,
		Metadata:            finalAsset,
		MetadataFile:        metadataFile,
		InitialMetadataFile: initialMetadataFile,
		Stems:               stems,
		Midi:                midi,
		OutputDirectory:     runDir,
	}, nil
}

// pollPercent maps primary poll attempts into the 30..70 band
func pollPercent(attempt, maxAttempts int) int {
	if maxAttempts <= 0 {
		return 30
	}
	return 30 + min(40, attempt*40/maxAttempts)
}

// isPlainName reports whether a server-supplied value can be used as part of
// a file name without leaving the directory it is joined to.
func isPlainName(name string) bool {
	return name != "" && name != "." && name != ".." && !strings.ContainsAny(name, "/\\\x00")
}

// fileNamePart returns name when it is plain, otherwise fallback with path
// separators replaced.
func fileNamePart(name, fallback string) string {
	if isPlainName(name) {
		return name
	}
	part := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', 0:
			return '_'
		}
		return r
	}, fallback)
	if !isPlainName(part) {
		return "_"
	}
	return part
}

// resolveStem fetches a stem asset and its type. A stem without a usable
// type is named after its asset id so files never collide or leave the run
// directory.
func (s *StemService) resolveStem(ctx context.Context, stemID models.AssetID) (*models.Asset, string, error) {
	stemAsset, err := s.assets.GetAsset(ctx, stemID)
	if err != nil {
		return nil, "", err
	}

	stemType := stemAsset.StemType()
	if !isPlainName(stemType) {
		logger.Warn("Stem %s has an unusable stemType %q in its metadata", stemID, stemType)
		stemType = fileNamePart("", string(stemAsset.ID))
	}
	return stemAsset, stemType, nil
}

// fetchArtifact resolves the download URL of an asset and streams it to destPath
func (s *StemService) fetchArtifact(ctx context.Context, assetID models.AssetID, destPath string) error {
	downloadURL, err := s.assets.GetDownloadURL(ctx, assetID, DefaultQuality)
	if err != nil {
		return err
	}
	return s.assets.DownloadFile(ctx, downloadURL, destPath)
}

// downloadMidi downloads every MIDI asset to "{type}.mid". Each failure is
// reported as a warning and skipped.
func (s *StemService) downloadMidi(ctx context.Context, midiIDs []models.AssetID, dir string, percent int, progress ProgressFunc) []models.Artifact {
	var results []models.Artifact

	for _, midiID := range midiIDs {
		artifact, err := s.downloadOneMidi(ctx, midiID, dir, percent, progress)
		if err != nil {
			logger.Warn("Error downloading MIDI %s: %v", midiID, err)
			progress(fmt.Sprintf("Warning: MIDI download failed: %v", err), percent+1)
			continue
		}
		results = append(results, artifact)
		progress(fmt.Sprintf("MIDI %s downloaded successfully", artifact.Type), percent+1)
	}

	return results
}

func (s *StemService) downloadOneMidi(ctx context.Context, midiID models.AssetID, dir string, percent int, progress ProgressFunc) (models.Artifact, error) {
	midiAsset, err := s.assets.GetAsset(ctx, midiID)
	if err != nil {
		return models.Artifact{}, err
	}

	midiType := midiAsset.MidiType()
	if !isPlainName(midiType) {
		logger.Warn("MIDI %s has an unusable type %q in its metadata", midiID, midiType)
		midiType = fileNamePart("", string(midiAsset.ID))
	}
	progress(fmt.Sprintf("Downloading %s MIDI...", midiType), percent)

	midiPath := filepath.Join(dir, midiType+".mid")
	if err := s.fetchArtifact(ctx, midiAsset.ID, midiPath); err != nil {
		return models.Artifact{}, err
	}

	return models.Artifact{
		Type:     midiType,
		Path:     midiPath,
		Metadata: midiAsset.MetaData,
	}, nil
}
