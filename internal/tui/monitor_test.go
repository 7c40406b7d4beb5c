package tui

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kelsos/fadr-stems/internal/logger"
	"github.com/kelsos/fadr-stems/internal/models"
	"github.com/kelsos/fadr-stems/internal/services"
)

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	model, ok := next.(Model)
	if !ok {
		t.Fatalf("unexpected model type %T", next)
	}
	return model
}

func TestStageFor(t *testing.T) {
	cases := map[int]Stage{
		0:   StageIdle,
		5:   StageUpload,
		22:  StageAsset,
		50:  StageSeparation,
		75:  StageDownload,
		87:  StageComponents,
		98:  StageFinalize,
		100: StageComplete,
	}
	for percent, want := range cases {
		if got := StageFor(percent); got != want {
			t.Fatalf("StageFor(%d) = %s, want %s", percent, got, want)
		}
	}
}

func TestProgressUpdateTracksStageAndWarnings(t *testing.T) {
	m := NewModel("song.mp3", "")
	m = update(t, m, ProgressUpdate{Message: "Uploading file...", Percent: 10})
	if m.stage != StageUpload || m.percent != 10 {
		t.Fatalf("unexpected state %s/%d", m.stage, m.percent)
	}

	m = update(t, m, ProgressUpdate{Message: "Warning: drum stem processing failed: boom", Percent: 85})
	if len(m.warnings) != 1 || m.stage != StageComponents {
		t.Fatalf("expected one warning in the components stage, got %v/%s", m.warnings, m.stage)
	}
	if !strings.Contains(m.View(), "drum stem processing failed") {
		t.Fatal("expected the warning in the rendered view")
	}
}

func TestLogsAreBounded(t *testing.T) {
	m := NewModel("song.mp3", "")
	for i := 0; i < maxLogLines+5; i++ {
		m = update(t, m, LogMessage{Message: "line"})
	}
	if len(m.logs) != maxLogLines {
		t.Fatalf("expected %d log lines, got %d", maxLogLines, len(m.logs))
	}
}

func TestFinishedQuitsWithResult(t *testing.T) {
	m := NewModel("song.mp3", "logs/fadr-stems.log")
	next, cmd := m.Update(Finished{Result: models.Failed(io.ErrUnexpectedEOF)})
	if cmd == nil {
		t.Fatal("expected a quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("expected tea.Quit")
	}

	model := next.(Model)
	if model.stage != StageFailed || model.Result() == nil {
		t.Fatalf("unexpected final state %s", model.stage)
	}
	view := model.View()
	if !strings.Contains(view, "Error: unexpected EOF") || !strings.Contains(view, "logs/fadr-stems.log") {
		t.Fatalf("unexpected view:\n%s", view)
	}
}

func TestQuitKey(t *testing.T) {
	m := NewModel("song.mp3", "")
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if !next.(Model).quit {
		t.Fatal("expected q to close the monitor")
	}
}

func TestStemMonitorRunReturnsJobResult(t *testing.T) {
	monitor := NewStemMonitor("song.mp3", "",
		tea.WithInput(nil),
		tea.WithOutput(io.Discard),
		tea.WithoutRenderer(),
		tea.WithoutSignalHandler(),
	)

	result, err := monitor.Run(context.Background(), func(ctx context.Context, progress services.ProgressFunc) *models.ProcessResult {
		progress("Validating input and output...", 0)
		progress("Processing complete!", 100)
		return &models.ProcessResult{Success: true, OutputDirectory: "out"}
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result == nil || !result.Success || result.OutputDirectory != "out" {
		t.Fatalf("unexpected result %+v", result)
	}
}

func headlessMonitor() *StemMonitor {
	return NewStemMonitor("song.mp3", "",
		tea.WithInput(nil),
		tea.WithOutput(io.Discard),
		tea.WithoutRenderer(),
		tea.WithoutSignalHandler(),
	)
}

func TestStemMonitorShowsLoggedErrors(t *testing.T) {
	logger.SetOutput(io.Discard)
	monitor := headlessMonitor()

	_, err := monitor.Run(context.Background(), func(ctx context.Context, progress services.ProgressFunc) *models.ProcessResult {
		logger.Info("not shown")
		logger.Error("Request failed: %s", "connection reset")
		return &models.ProcessResult{Success: true}
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	logs := strings.Join(monitor.final.logs, "\n")
	if !strings.Contains(logs, "ERROR: Request failed: connection reset") {
		t.Fatalf("expected the logged error in the log pane:\n%s", logs)
	}
	if strings.Contains(logs, "not shown") {
		t.Fatalf("info messages must stay out of the log pane:\n%s", logs)
	}
}

// noticeWriter releases the job once the monitor reports it is waiting
type noticeWriter struct {
	once    sync.Once
	buf     bytes.Buffer
	release chan struct{}
}

func (w *noticeWriter) Write(p []byte) (int, error) {
	n, err := w.buf.Write(p)
	w.once.Do(func() { close(w.release) })
	return n, err
}

func TestStemMonitorClosedEarlyWaitsOffStdout(t *testing.T) {
	logger.SetOutput(io.Discard)
	monitor := headlessMonitor()
	notices := &noticeWriter{release: make(chan struct{})}
	monitor.notices = notices

	result, err := monitor.Run(context.Background(), func(ctx context.Context, progress services.ProgressFunc) *models.ProcessResult {
		monitor.program.Send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
		<-notices.release
		return &models.ProcessResult{Success: true, OutputDirectory: "late"}
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result == nil || result.OutputDirectory != "late" {
		t.Fatalf("expected the pipeline result after closing, got %+v", result)
	}
	if !strings.Contains(notices.buf.String(), "waiting for the pipeline to finish") {
		t.Fatalf("unexpected notice %q", notices.buf.String())
	}
}
