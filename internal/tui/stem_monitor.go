package tui

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/kelsos/fadr-stems/internal/logger"
	"github.com/kelsos/fadr-stems/internal/models"
	"github.com/kelsos/fadr-stems/internal/services"
)

// Job is one pipeline invocation driven by the monitor
type Job func(ctx context.Context, progress services.ProgressFunc) *models.ProcessResult

// StemMonitor renders the progress of a single pipeline run
type StemMonitor struct {
	program *tea.Program
	final   Model
	notices io.Writer
}

func NewStemMonitor(title, logFile string, opts ...tea.ProgramOption) *StemMonitor {
	if len(opts) == 0 {
		opts = []tea.ProgramOption{tea.WithAltScreen()}
	}
	return &StemMonitor{
		program: tea.NewProgram(NewModel(title, logFile), opts...),
		notices: os.Stderr,
	}
}

// Progress forwards one progress event to the UI. It satisfies services.ProgressFunc.
func (sm *StemMonitor) Progress(message string, percent int) {
	sm.program.Send(ProgressUpdate{Message: message, Percent: percent})
}

// AddLog appends a line to the log pane
func (sm *StemMonitor) AddLog(message string) {
	sm.program.Send(LogMessage{Message: message})
}

// Run executes job in the background and blocks until it returns. Closing
// the monitor early does not stop the pipeline; its result is still awaited.
// Logger warnings and errors emitted while the job runs show up in the log pane.
func (sm *StemMonitor) Run(ctx context.Context, job Job) (*models.ProcessResult, error) {
	done := make(chan *models.ProcessResult, 1)

	stopForwarding := logger.Forward(zerolog.WarnLevel, func(level zerolog.Level, message string) {
		sm.AddLog(strings.ToUpper(level.String()) + ": " + message)
	})
	defer stopForwarding()

	go func() {
		result := job(ctx, sm.Progress)
		done <- result
		sm.program.Send(Finished{Result: result})
	}()

	final, err := sm.program.Run()
	if model, ok := final.(Model); ok {
		sm.final = model
		if len(model.warnings) > 0 {
			logger.Info("Run finished with %d warnings", len(model.warnings))
		}
	}
	if err != nil {
		logger.Error("Monitor stopped: %v", err)
		return <-done, fmt.Errorf("failed to run TUI: %w", err)
	}

	select {
	case result := <-done:
		return result, nil
	default:
		logger.Info("Monitor closed; waiting for the pipeline to finish")
		fmt.Fprintln(sm.notices, "Monitor closed, waiting for the pipeline to finish...")
		return <-done, nil
	}
}
