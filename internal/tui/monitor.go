package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kelsos/fadr-stems/internal/models"
)

type Stage string

const (
	StageIdle       Stage = "idle"
	StageUpload     Stage = "upload"
	StageAsset      Stage = "asset"
	StageSeparation Stage = "separation"
	StageDownload   Stage = "download"
	StageComponents Stage = "components"
	StageFinalize   Stage = "finalize"
	StageComplete   Stage = "complete"
	StageFailed     Stage = "failed"
)

// StageFor maps a pipeline percentage onto the stage it belongs to
func StageFor(percent int) Stage {
	switch {
	case percent <= 0:
		return StageIdle
	case percent < 20:
		return StageUpload
	case percent < 30:
		return StageAsset
	case percent < 75:
		return StageSeparation
	case percent < 85:
		return StageDownload
	case percent < 98:
		return StageComponents
	case percent < 100:
		return StageFinalize
	default:
		return StageComplete
	}
}

const maxLogLines = 10

type Model struct {
	title     string
	logFile   string
	stage     Stage
	percent   int
	message   string
	warnings  []string
	logs      []string
	result    *models.ProcessResult
	spinner   spinner.Model
	progress  progress.Model
	startTime time.Time
	width     int
	height    int
	quit      bool
}

// ProgressUpdate carries one call of the pipeline progress sink
type ProgressUpdate struct {
	Message string
	Percent int
}

type LogMessage struct {
	Message string
}

// Finished ends the monitor with the pipeline result
type Finished struct {
	Result *models.ProcessResult
}

func NewModel(title, logFile string) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	pr := progress.New(progress.WithDefaultGradient())

	return Model{
		title:     title,
		logFile:   logFile,
		stage:     StageIdle,
		logs:      []string{},
		spinner:   sp,
		progress:  pr,
		startTime: time.Now(),
		width:     80,
		height:    24,
	}
}

func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.handleKeyMsg(msg) {
			m.quit = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m = m.handleWindowSizeMsg(msg)

	case ProgressUpdate:
		m = m.handleProgressUpdate(msg)

	case LogMessage:
		m = m.appendLog(msg.Message)

	case Finished:
		m = m.handleFinished(msg)
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		if progressModel, ok := progressModel.(progress.Model); ok {
			m.progress = progressModel
		}
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m Model) handleKeyMsg(msg tea.KeyMsg) bool {
	switch msg.String() {
	case "q", "ctrl+c":
		return true
	}
	return false
}

func (m Model) handleWindowSizeMsg(msg tea.WindowSizeMsg) Model {
	m.width = msg.Width
	m.height = msg.Height
	m.progress.Width = max(10, msg.Width-20)
	return m
}

func (m Model) handleProgressUpdate(msg ProgressUpdate) Model {
	m.percent = msg.Percent
	m.message = msg.Message
	m.stage = StageFor(msg.Percent)

	if strings.HasPrefix(msg.Message, "Warning:") {
		m.warnings = append(m.warnings, msg.Message)
	}
	return m.appendLog(msg.Message)
}

func (m Model) appendLog(message string) Model {
	m.logs = append(m.logs, fmt.Sprintf("[%s] %s",
		time.Now().Format("15:04:05"), message))
	if len(m.logs) > maxLogLines {
		m.logs = m.logs[len(m.logs)-maxLogLines:]
	}
	return m
}

func (m Model) handleFinished(msg Finished) Model {
	m.result = msg.Result
	if msg.Result != nil && msg.Result.Success {
		m.stage = StageComplete
		m.percent = 100
	} else {
		m.stage = StageFailed
	}
	return m
}

// Result returns the pipeline result once Finished has been received
func (m Model) Result() *models.ProcessResult {
	return m.result
}

func (m Model) View() string {
	if m.quit {
		return "Closing monitor...\n"
	}

	var s strings.Builder

	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("39")).
		MarginBottom(1)

	s.WriteString(headerStyle.Render("🎛 Fadr Stem Monitor: " + truncate(m.title, 50)))
	s.WriteString("\n\n")

	summaryStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("244"))

	summary := fmt.Sprintf("Elapsed: %s | ⚠️ Warnings: %d",
		time.Since(m.startTime).Round(time.Second), len(m.warnings))
	s.WriteString(summaryStyle.Render(summary))
	s.WriteString("\n\n")

	statusSectionStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("62")).
		Padding(1).
		Width(m.width - 2)

	var status strings.Builder
	stageStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(getStageColor(m.stage)))
	status.WriteString(stageStyle.Render(fmt.Sprintf("%s %s %-11s %3d%%",
		getStageIcon(m.stage), m.spinner.View(), m.stage, m.percent)))
	status.WriteString("\n")
	status.WriteString(m.progress.ViewAs(float64(m.percent) / 100))
	status.WriteString("\n")
	if m.message != "" {
		messageStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
		status.WriteString(messageStyle.Render(m.message))
		status.WriteString("\n")
	}
	if m.result != nil && !m.result.Success {
		errorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
		status.WriteString(errorStyle.Render("Error: " + m.result.Error))
		status.WriteString("\n")
	}

	s.WriteString(statusSectionStyle.Render(status.String()))
	s.WriteString("\n\n")

	logSectionStyle := lipgloss.NewStyle().
		Border(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1).
		Width(m.width - 2).
		Height(maxLogLines + 1)

	var logSection strings.Builder
	logSection.WriteString("📝 Recent Progress\n")
	for _, line := range m.logs {
		logSection.WriteString(line + "\n")
	}

	s.WriteString(logSectionStyle.Render(logSection.String()))
	s.WriteString("\n\n")

	footerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	footer := "Press 'q' to close the monitor"
	if m.logFile != "" {
		footer += " | Logs: " + m.logFile
	}
	s.WriteString(footerStyle.Render(footer))

	return s.String()
}

func getStageIcon(stage Stage) string {
	switch stage {
	case StageIdle:
		return "⏸"
	case StageUpload:
		return "⬆️"
	case StageAsset:
		return "🗂"
	case StageSeparation:
		return "🎚"
	case StageDownload:
		return "⬇️"
	case StageComponents:
		return "🥁"
	case StageFinalize:
		return "💾"
	case StageComplete:
		return "✅"
	case StageFailed:
		return "❌"
	default:
		return "❓"
	}
}

func getStageColor(stage Stage) string {
	switch stage {
	case StageIdle:
		return "244"
	case StageComplete:
		return "82"
	case StageFailed:
		return "196"
	default:
		return "39"
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
