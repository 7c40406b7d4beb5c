package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/kelsos/fadr-stems/internal/config"
	"github.com/kelsos/fadr-stems/internal/logger"
	"github.com/kelsos/fadr-stems/internal/models"
	"github.com/kelsos/fadr-stems/internal/services"
	"github.com/kelsos/fadr-stems/internal/tui"
)

// setup loads and validates configuration, then switches logging to a file
// when the monitor owns the terminal. Invalid configuration ends the process.
func setup(useTUI, jsonOutput bool) (*services.StemService, string) {
	cfg := config.NewConfig()
	cfg.LoadFromEnvironment()

	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration error: %v", err)
		exit(report(os.Stdout, models.Failed(err), jsonOutput))
	}

	var logFile string
	if useTUI {
		path, err := logger.InitFileOnly(cfg.LogDir)
		if err != nil {
			logger.Fatal("Failed to initialize file logging: %v", err)
		}
		logFile = path
	}

	logger.Debug("Using API at %s (poll every %v, %d/%d attempts)", cfg.APIURL, cfg.PollInterval, cfg.MaxAttempts, cfg.SubMaxAttempts)
	return services.NewStemService(cfg), logFile
}

// runJob drives a pipeline either under the monitor or with progress logged
func runJob(title string, useTUI bool, logFile string, job tui.Job) *models.ProcessResult {
	ctx := context.Background()

	if !useTUI {
		return job(ctx, consoleProgress)
	}

	result, err := tui.NewStemMonitor(title, logFile).Run(ctx, job)
	if err != nil {
		logger.Error("Monitor error: %v", err)
	}
	if result == nil {
		return models.Failed(fmt.Errorf("pipeline returned no result"))
	}
	return result
}

func consoleProgress(message string, percent int) {
	logger.Info("[%3d%%] %s", percent, message)
}

// report prints the result and returns the process exit code
func report(w io.Writer, result *models.ProcessResult, jsonOutput bool) int {
	if jsonOutput {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			logger.Error("Failed to encode result: %v", err)
			return 1
		}
		fmt.Fprintln(w, string(data))
	} else {
		printSummary(w, result)
	}

	if !result.Success {
		return 1
	}
	return 0
}

func printSummary(w io.Writer, result *models.ProcessResult) {
	if !result.Success {
		fmt.Fprintf(w, "Failed: %s\n", result.Error)
		return
	}

	fmt.Fprintf(w, "Output directory: %s\n", result.OutputDirectory)
	for _, stem := range result.Stems {
		fmt.Fprintf(w, "  stem %-16s %s\n", stem.Type, stem.Path)
	}
	for _, midi := range result.Midi {
		fmt.Fprintf(w, "  midi %-16s %s\n", midi.Type, midi.Path)
	}
	if result.MetadataFile != "" {
		fmt.Fprintf(w, "Metadata: %s\n", result.MetadataFile)
	}
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func exit(code int) {
	logger.Close()
	os.Exit(code)
}
