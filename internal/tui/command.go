package tui

import (
	"fmt"
	"os"
	"strings"

	"github.com/atotto/clipboard"
	osc52 "github.com/aymanbagabas/go-osc52/v2"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/zafaroo/postcraft/internal/command"
	"github.com/zafaroo/postcraft/internal/export"
	"github.com/zafaroo/postcraft/internal/session"
)

// CommandModel handles command input
type CommandModel struct {
	executor   *command.Executor
	session    *session.Session
	input      textinput.Model
	visible    bool
	lastResult *command.Result
	width      int
	height     int
	scrollPos  int // For scrolling long results
}

// NewCommandModel creates a new command model
func NewCommandModel(executor *command.Executor, sess *session.Session) CommandModel {
	input := textinput.New()
	input.Placeholder = "Enter command (e.g., 'scale 1.5', 'help')"
	input.CharLimit = 200
	input.Prompt = "> "
	input.PromptStyle = lipgloss.NewStyle().Foreground(Secondary)

	return CommandModel{
		executor: executor,
		session:  sess,
		input:    input,
		visible:  false,
		width:    80,
	}
}

// SetSize sets the component size
func (m *CommandModel) SetSize(width int) {
	if width < 40 {
		width = 40
	}
	m.width = width
	// Input width should account for prompt and padding
	m.input.Width = width - 6
}

// SetHeight sets the maximum height for the command view
func (m *CommandModel) SetHeight(height int) {
	m.height = height
}

// Show shows the command input
func (m *CommandModel) Show() {
	m.visible = true
	m.input.Focus()
	m.lastResult = nil
	m.scrollPos = 0
}

// Hide hides the command input
func (m *CommandModel) Hide() {
	m.visible = false
	m.input.Blur()
	m.input.SetValue("")
}

// IsVisible returns whether the command input is visible
func (m *CommandModel) IsVisible() bool {
	return m.visible
}

// LastResult returns the result of the last executed command
func (m *CommandModel) LastResult() *command.Result {
	return m.lastResult
}

// Update handles messages
func (m CommandModel) Update(msg tea.Msg) (CommandModel, tea.Cmd) {
	if !m.visible {
		return m, nil
	}

	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "enter":
			// Execute command
			cmdStr := strings.TrimSpace(m.input.Value())
			if cmdStr != "" {
				m.lastResult = m.executor.Execute(m.session, cmdStr)
				m.input.SetValue("")
				m.scrollPos = 0 // Reset scroll on new command
				// Keep command bar open for quick commands
			}
			return m, cmd

		case "esc":
			// Hide command bar
			m.Hide()
			return m, nil

		case "up":
			// Scroll up in results
			if m.scrollPos > 0 {
				m.scrollPos--
			}
			return m, nil

		case "down":
			// Scroll down in results (will be limited by available content)
			m.scrollPos++
			return m, nil

		case "pageup":
			if m.scrollPos > 5 {
				m.scrollPos -= 5
			} else {
				m.scrollPos = 0
			}
			return m, nil

		case "pagedown":
			m.scrollPos += 5
			return m, nil

		case "ctrl+y":
			// Copy the exported file path or job ID
			if text := copyTarget(m.lastResult); text != "" {
				if err := copyToClipboard(text); err != nil {
					m.lastResult.Message = fmt.Sprintf("%s (copy failed: %v)", m.lastResult.Message, err)
				} else {
					m.lastResult.Message = fmt.Sprintf("%s (copied)", m.lastResult.Message)
				}
			}
			return m, nil

		default:
			// Process input normally
			m.input, cmd = m.input.Update(msg)
			return m, cmd
		}
	}

	return m, cmd
}

// View renders the command input
func (m CommandModel) View() string {
	if !m.visible {
		return ""
	}

	headerHeight := 3 // Input box
	footerHeight := 2 // Help text
	availableHeight := m.height - headerHeight - footerHeight
	if m.height == 0 {
		availableHeight = 15
	}
	if availableHeight < 1 {
		availableHeight = 1
	}

	var b strings.Builder

	inputView := m.input.View()
	boxStyle := InputFocusedStyle.
		Width(m.width - 4).
		BorderForeground(Secondary)

	b.WriteString(boxStyle.Render(inputView))
	b.WriteString("\n")

	resultLines := m.resultLines()

	// Apply scrolling (calculate limits, but don't modify m.scrollPos in View)
	totalLines := len(resultLines)
	maxScroll := totalLines - availableHeight
	if maxScroll < 0 {
		maxScroll = 0
	}
	scrollPos := m.scrollPos
	if scrollPos > maxScroll {
		scrollPos = maxScroll
	}

	end := scrollPos + availableHeight
	if end > totalLines {
		end = totalLines
	}
	for i := scrollPos; i < end; i++ {
		b.WriteString(resultLines[i])
		b.WriteString("\n")
	}

	helpText := "Press Enter to execute, Esc to close"
	if totalLines > availableHeight {
		helpText += fmt.Sprintf(", ↑/↓ to scroll (%d/%d)", scrollPos+1, totalLines)
	}
	if copyTarget(m.lastResult) != "" {
		helpText += ", Ctrl+Y copy"
	}
	b.WriteString(TextMuted.Render(helpText))

	return b.String()
}

func (m CommandModel) resultLines() []string {
	res := m.lastResult
	if res == nil {
		return nil
	}

	width := m.width - 4
	var lines []string

	if !res.Success {
		for _, line := range wrapText("✗ "+res.Error, width) {
			lines = append(lines, ErrorStyle.Render(line))
		}
		return lines
	}

	if strings.Contains(res.Message, "Available Commands:") {
		for _, line := range strings.Split(res.Message, "\n") {
			lines = append(lines, TextMuted.Render(line))
		}
	} else if res.Message != "" {
		for _, line := range wrapText("✓ "+res.Message, width) {
			lines = append(lines, SuccessStyle.Render(line))
		}
	}

	if title, ok := res.Data["lines"].([]string); ok {
		lines = append(lines, SectionHeaderStyle.Render("Title lines:"))
		for _, l := range title {
			lines = append(lines, "  "+l)
		}
		if n, ok := res.Data["truncated"].(int); ok && n > 0 {
			lines = append(lines, WarningStyle.Render(fmt.Sprintf("  (+%d lines not shown)", n)))
		}
	}

	if jobs, ok := res.Data["jobs"].([]*export.Job); ok {
		lines = append(lines, SectionHeaderStyle.Render("Jobs:"))
		for _, job := range jobs {
			lines = append(lines, formatJobLine(job))
		}
	}
	if job, ok := res.Data["job"].(*export.Job); ok {
		lines = append(lines, formatJobLine(job))
		if job.Error != "" {
			lines = append(lines, ErrorStyle.Render("  Error: "+job.Error))
		}
	}
	if path, ok := res.Data["path"].(string); ok {
		lines = append(lines, InfoStyle.Render("  "+path))
	}

	return lines
}

// copyTarget picks the value of a result worth copying
func copyTarget(res *command.Result) string {
	if res == nil || !res.Success {
		return ""
	}
	if path, ok := res.Data["path"].(string); ok {
		return path
	}
	if id, ok := res.Data["job_id"].(string); ok {
		return id
	}
	return ""
}

func copyToClipboard(text string) error {
	// Prefer system clipboard (works in most setups including alt-screen).
	if err := clipboard.WriteAll(text); err == nil {
		return nil
	}

	// Fallback to OSC52 for terminals that support it (incl. tmux/screen).
	seq := osc52.New(text).Tmux().Screen()
	_, _ = fmt.Fprint(os.Stderr, seq)
	return fmt.Errorf("system clipboard unavailable; sent OSC52 copy sequence (may not be supported by your terminal)")
}

// wrapText wraps text to fit within a given width
func wrapText(text string, width int) []string {
	if width <= 0 {
		return []string{text}
	}

	var lines []string
	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{""}
	}

	currentLine := words[0]
	for _, word := range words[1:] {
		if lipgloss.Width(currentLine)+1+lipgloss.Width(word) <= width {
			currentLine += " " + word
		} else {
			lines = append(lines, currentLine)
			currentLine = word
		}
	}
	lines = append(lines, currentLine)

	return lines
}

// formatJobLine formats an export job into one display line
func formatJobLine(job *export.Job) string {
	return fmt.Sprintf("  %s %s  %-9s %s  retries %d",
		StatusIcon(job.Status), job.ID[:8], job.Status, job.Filename, job.Retries)
}
