package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/kelsos/fadr-stems/internal/archive"
	"github.com/kelsos/fadr-stems/internal/logger"
	"github.com/kelsos/fadr-stems/internal/models"
	"github.com/kelsos/fadr-stems/internal/services"
	"github.com/kelsos/fadr-stems/internal/utils"
)

func main() {
	logger.Init()
	utils.LoadEnvironment()

	var (
		useTUI     bool
		jsonOutput bool
		archiveRun bool
		archiveDir string
	)

	rootCmd := &cobra.Command{
		Use:   "fadr-stems",
		Short: "Separate audio files into stems and MIDI with the Fadr API",
		Long: `fadr-stems uploads an audio file to the Fadr API, waits for stem separation
and downloads the resulting stems, drum and other components, and MIDI files.`,
		SilenceUsage: true,
	}

	processCmd := &cobra.Command{
		Use:   "process <input-file> <output-dir>",
		Short: "Upload an mp3 or wav file and download its stems",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			inputPath, outputDir := args[0], args[1]

			svc, logFile := setup(useTUI, jsonOutput)

			result := runJob(inputPath, useTUI, logFile, func(ctx context.Context, progress services.ProgressFunc) *models.ProcessResult {
				return svc.ProcessFile(ctx, inputPath, outputDir, progress)
			})

			if result.Success && archiveRun {
				archiveFile, err := archive.CreateArchive(result.OutputDirectory, archiveDir)
				if err != nil {
					logger.Error("Failed to archive %s: %v", result.OutputDirectory, err)
				} else if !jsonOutput {
					logger.Info("Archive created: %s", archiveFile)
				}
			}

			exit(report(os.Stdout, result, jsonOutput))
		},
	}
	processCmd.Flags().BoolVar(&archiveRun, "archive", false, "Zip the run directory after a successful run")
	processCmd.Flags().StringVar(&archiveDir, "archive-dir", "", "Directory for the archive (default: next to the run directory)")

	recoverCmd := &cobra.Command{
		Use:   "recover <asset-id|metadata-file> <output-dir>",
		Short: "Download the stems and MIDI of an existing asset",
		Long: `Recover re-downloads the stems and MIDI files an asset currently references,
without running separation again. The first argument is either an asset id or
the path to a saved metadata snapshot such as initial_metadata.json.
Drum and other components cannot be recovered.`,
		Args: cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			source, outputDir := args[0], args[1]

			svc, logFile := setup(useTUI, jsonOutput)

			result := runJob(source, useTUI, logFile, func(ctx context.Context, progress services.ProgressFunc) *models.ProcessResult {
				if isFile(source) {
					return svc.RecoverFromSnapshot(ctx, source, outputDir, progress)
				}
				return svc.DownloadFilesFromAssetID(ctx, models.AssetID(source), outputDir, progress)
			})

			exit(report(os.Stdout, result, jsonOutput))
		},
	}

	var destDir string
	archiveCmd := &cobra.Command{
		Use:   "archive <run-dir>",
		Short: "Create a zip of a processed run directory",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			archiveFile, err := archive.CreateArchive(args[0], destDir)
			if err != nil {
				logger.Fatal("Failed to create archive: %v", err)
			}
			logger.Info("Archive created successfully: %s", archiveFile)
		},
	}
	archiveCmd.Flags().StringVarP(&destDir, "dest", "d", "", "Directory where the archive will be stored (default: next to the run directory)")

	for _, cmd := range []*cobra.Command{processCmd, recoverCmd} {
		cmd.Flags().BoolVar(&useTUI, "tui", false, "Show an interactive progress monitor")
		cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the result as JSON on stdout")
	}

	rootCmd.AddCommand(processCmd)
	rootCmd.AddCommand(recoverCmd)
	rootCmd.AddCommand(archiveCmd)

	if err := rootCmd.Execute(); err != nil {
		logger.Fatal("Failed to execute command: %v", err)
	}
}
