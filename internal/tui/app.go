// Package tui is a terminal editor for one composition
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/zafaroo/postcraft/internal/command"
	"github.com/zafaroo/postcraft/internal/composer"
	"github.com/zafaroo/postcraft/internal/export"
	"github.com/zafaroo/postcraft/internal/geometry"
	"github.com/zafaroo/postcraft/internal/interaction"
	"github.com/zafaroo/postcraft/internal/renderer"
	"github.com/zafaroo/postcraft/internal/session"
	"github.com/zafaroo/postcraft/pkg/postformat"
)

// Keyboard steps
const (
	offsetStep = 5.0
	scaleStep  = 0.1
)

// Layout of the screen
const (
	sidebarWidth   = 30
	thumbnailCols  = 32
	contentPadTop  = 1 // ContentStyle padding
	contentPadLeft = 2
	headerLines    = 2 // HeaderStyle line plus its margin
)

var alignCycle = []string{postformat.AlignLeft, postformat.AlignCenter, postformat.AlignRight}

// Messages
type tickMsg time.Time
type previewMsg session.Event
type sessionClosedMsg struct{}
type exportDoneMsg struct {
	filename string
	err      error
}

// App is the main Bubble Tea model
type App struct {
	// Dependencies
	session  *session.Session
	executor *command.Executor
	sink     export.Sink
	events   <-chan session.Event
	cancel   func()

	// Composition as last rendered
	preview *renderer.Result
	state   composer.State
	lastErr error

	// UI State
	width     int
	height    int
	ready     bool
	quitting  bool
	exporting bool

	// Logs
	logs    []logEntry
	maxLogs int

	// Components
	spinner spinner.Model
	command CommandModel

	// Timing
	startTime time.Time
}

type logEntry struct {
	time    time.Time
	message string
	level   string
}

// NewApp creates a new Bubble Tea TUI over sess. Exports go to sink.
func NewApp(sess *session.Session, executor *command.Executor, sink export.Sink) *App {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	app := &App{
		session:   sess,
		executor:  executor,
		sink:      sink,
		logs:      make([]logEntry, 0),
		maxLogs:   100,
		spinner:   s,
		command:   NewCommandModel(executor, sess),
		startTime: time.Now(),
	}

	app.events, app.cancel = sess.Subscribe()
	app.preview, app.lastErr = sess.Preview()
	app.state = sess.State()

	return app
}

// Init initializes the application
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		a.spinner.Tick,
		a.tickCmd(),
		a.waitForEvent(),
	)
}

func (a *App) tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// waitForEvent delivers the next render of the session
func (a *App) waitForEvent() tea.Cmd {
	events := a.events
	return func() tea.Msg {
		ev, ok := <-events
		if !ok || ev.Type == session.EventClosed {
			return sessionClosedMsg{}
		}
		return previewMsg(ev)
	}
}

// exportCmd renders the final image into the sink off the UI goroutine
func (a *App) exportCmd() tea.Cmd {
	sess, sink := a.session, a.sink
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		err := sess.Export(ctx, sink)
		return exportDoneMsg{filename: composer.ExportFilename, err: err}
	}
}

// Update handles messages
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		// Handle command area first if visible - it has priority
		if a.command.IsVisible() {
			newCmd, cmd := a.command.Update(msg)
			a.command = newCmd
			if res := a.command.LastResult(); msg.String() == "enter" && res != nil && !res.Success {
				a.addLog(res.Error, "error")
			}
			return a, cmd
		}
		return a, a.handleKey(msg)

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.ready = true
		a.command.SetSize(a.width)
		a.command.SetHeight(a.bottomAreaHeight())

	case previewMsg:
		a.preview = msg.Result
		a.state = msg.State
		a.lastErr = msg.Err
		cmds = append(cmds, a.waitForEvent())

	case sessionClosedMsg:
		a.addLog("session closed", "warning")
		a.quitting = true
		return a, tea.Quit

	case exportDoneMsg:
		a.exporting = false
		var failure *composer.ExportFailure
		switch {
		case errors.As(msg.err, &failure):
			a.addLog(failure.Error(), "error")
		case msg.err != nil:
			a.addLog("export failed: "+msg.err.Error(), "error")
		default:
			a.addLog("exported "+msg.filename, "success")
		}

	case tickMsg:
		cmds = append(cmds, a.tickCmd())

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case tea.MouseMsg:
		if msg.Y >= a.height-a.bottomAreaHeight() {
			return a, nil
		}
		a.handleMouse(msg)
	}

	return a, tea.Batch(cmds...)
}

func (a *App) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case ":":
		// Show command line (vim-style)
		a.command.Show()
		a.command.SetSize(maxInt(20, a.width))
		a.command.SetHeight(a.bottomAreaHeight())
	case "ctrl+c", "q":
		a.quitting = true
		return tea.Quit
	case "left":
		a.move(-offsetStep, 0)
	case "right":
		a.move(offsetStep, 0)
	case "up":
		a.move(0, -offsetStep)
	case "down":
		a.move(0, offsetStep)
	case "+", "=":
		a.edit(func(c *composer.Composer) { c.SetScale(c.Scale() + scaleStep) })
	case "-", "_":
		a.edit(func(c *composer.Composer) { c.SetScale(c.Scale() - scaleStep) })
	case "a":
		a.edit(func(c *composer.Composer) { c.SetAlign(nextAlign(string(c.State().Align))) })
	case "s":
		a.edit(func(c *composer.Composer) { c.SetShadow(!c.State().Shadow) })
	case "r":
		a.edit(func(c *composer.Composer) { c.ResetTransform() })
	case "e":
		if a.exporting {
			return nil
		}
		if a.sink == nil {
			a.addLog("no export destination configured", "error")
			return nil
		}
		a.exporting = true
		a.addLog("exporting...", "info")
		return a.exportCmd()
	}
	return nil
}

// handleMouse drags and resizes the image through the thumbnail
func (a *App) handleMouse(msg tea.MouseMsg) {
	if a.preview == nil {
		return
	}
	rows := thumbnailRows(a.preview.Image, thumbnailCols)

	cx := msg.X - sidebarWidth - 1 - contentPadLeft
	cy := msg.Y - contentPadTop - headerLines
	inside := cx >= 0 && cx < thumbnailCols && cy >= 0 && cy < rows

	var typ string
	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button != tea.MouseButtonLeft || !inside {
			return
		}
		typ = "down"
	case tea.MouseActionMotion:
		typ = "move"
	case tea.MouseActionRelease:
		typ = "up"
	default:
		return
	}

	p := cellToReference(clampInt(cx, 0, thumbnailCols-1), clampInt(cy, 0, rows-1), thumbnailCols, rows)
	if _, _, err := a.session.Pointer(interaction.Event{Type: typ, X: p.X, Y: p.Y}); err != nil {
		a.addLog(err.Error(), "error")
	}
}

func (a *App) move(dx, dy float64) {
	a.edit(func(c *composer.Composer) {
		off := c.Offset()
		c.SetOffset(geometry.Point{X: off.X + dx, Y: off.Y + dy})
	})
}

func (a *App) edit(fn func(c *composer.Composer)) {
	if err := a.session.Do(func(c *composer.Composer) error {
		fn(c)
		return nil
	}); err != nil {
		a.addLog(err.Error(), "error")
	}
}

func nextAlign(current string) string {
	for i, al := range alignCycle {
		if al == current {
			return alignCycle[(i+1)%len(alignCycle)]
		}
	}
	return alignCycle[0]
}

// View renders the UI
func (a *App) View() string {
	if a.quitting {
		return "\n  Goodbye!\n\n"
	}

	if !a.ready {
		return "\n  Loading...\n"
	}

	contentHeight := a.height - a.bottomAreaHeight()
	if contentHeight < 1 {
		contentHeight = 1
	}
	contentWidth := a.width - sidebarWidth - 1
	if contentWidth < 20 {
		contentWidth = 20
	}
	sidebar := a.renderSidebar(sidebarWidth, contentHeight)
	content := a.renderContent(contentWidth, contentHeight)
	top := lipgloss.JoinHorizontal(lipgloss.Top, sidebar, content)

	var bottom string
	if a.command.IsVisible() {
		bottom = a.renderCommandArea()
	} else {
		bottom = a.renderStatusBar()
	}

	fullView := lipgloss.JoinVertical(lipgloss.Left, top, bottom)

	// Ensure the view exactly fills the screen height to clear any leftover content
	lines := strings.Split(fullView, "\n")
	for len(lines) < a.height {
		lines = append(lines, strings.Repeat(" ", a.width))
	}
	if len(lines) > a.height {
		lines = lines[:a.height]
	}

	return strings.Join(lines, "\n")
}

func (a *App) renderSidebar(width, height int) string {
	st := a.state
	row := func(label, value string) string {
		return LabelStyle.Render(label) + TextBright.Render(Truncate(value, width-12))
	}

	lines := []string{
		LogoStyle.Render("Postcraft"),
		TextMuted.Render("session " + a.session.ID[:8]),
		"",
		CardTitleStyle.Render("Image"),
		row("scale", fmt.Sprintf("%.2f", st.Scale)),
		row("offset", fmt.Sprintf("%.0f, %.0f", st.Offset.X, st.Offset.Y)),
		row("drag", a.session.InteractionState().String()),
		"",
		CardTitleStyle.Render("Text"),
		row("align", string(st.Align)),
		row("shadow", onOff(st.Shadow)),
		row("title", fmt.Sprintf("%.0fpx", st.TitleFontSize)),
		row("meta", fmt.Sprintf("%.0fpx", st.MetaFontSize)),
		row("lines", fmt.Sprintf("%.2f", st.LineHeight)),
		row("panel", postformat.FormatHexColor(st.PanelColor)),
		row("color", postformat.FormatHexColor(st.TitleColor)),
		row("qr", onOff(st.LinkQR)),
		"",
		SectionHeaderStyle.Render("Keys"),
		RenderHelp("←↑↓→", "move"),
		RenderHelp("+/-", "scale"),
		RenderHelp("a s r", "align shadow reset"),
		RenderHelp("e", "export"),
		RenderHelp(":", "command  q quit"),
	}

	content := strings.Join(lines, "\n")
	return SidebarStyle.
		Width(width).
		Height(height).
		Render(content)
}

func (a *App) renderContent(width, height int) string {
	var b strings.Builder
	b.WriteString(HeaderStyle.Render(Truncate(a.state.DrawnTitle(), maxInt(10, width-8))))
	b.WriteString("\n")

	var thumb []string
	if a.preview != nil {
		thumb = Thumbnail(a.preview.Image, thumbnailCols)
	}

	info := a.renderInfo(maxInt(20, width-2*contentPadLeft-thumbnailCols-4))
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		strings.Join(thumb, "\n"),
		"    ",
		info,
	))

	content := b.String()
	lines := strings.Split(content, "\n")
	if len(lines) > height {
		content = strings.Join(lines[:height], "\n")
	}

	return ContentStyle.
		Width(width).
		Height(height).
		Render(content)
}

// renderInfo shows what the renderer made of the title in a card width
// cells wide
func (a *App) renderInfo(width int) string {
	var lines []string
	inner := width - 4

	lines = append(lines, SectionHeaderStyle.Render("Title lines"))
	if a.preview != nil {
		for _, l := range a.preview.TitleLines {
			lines = append(lines, TextNormal.Render(Truncate(l, inner)))
		}
		if a.preview.Truncated > 0 {
			lines = append(lines, WarningStyle.Render(fmt.Sprintf("+%d lines cut", a.preview.Truncated)))
		}
	}
	lines = append(lines, "", SectionHeaderStyle.Render("Footer"), TextNormal.Render(Truncate(a.state.Footer(), inner)))

	if a.lastErr != nil {
		lines = append(lines, "", SectionHeaderStyle.Render("Last error"))
		for _, l := range wrapText(a.lastErr.Error(), inner) {
			lines = append(lines, ErrorStyle.Render(l))
		}
	}

	return CardStyle.Width(width - 2).Render(strings.Join(lines, "\n"))
}

func (a *App) renderStatusBar() string {
	base := lipgloss.NewStyle().Background(BgCard).Foreground(colorTextNormal)

	seg := func(text string, fg, bg lipgloss.Color, bold bool) string {
		s := lipgloss.NewStyle().Foreground(fg).Background(bg).Padding(0, 1)
		if bold {
			s = s.Bold(true)
		}
		return s.Render(text)
	}
	pipe := base.Render(" | ")

	mode := seg("NAV", colorTextBright, BgHover, true)

	info := a.session.Info()
	bgText := "no image"
	if info.HasBackground {
		bgText = "image"
	}
	if info.Pending {
		bgText = a.spinner.View() + " decoding"
	}
	bg := seg(bgText, colorTextBright, Secondary, false)

	// Last message (colored by severity).
	msgText := "ready"
	msgBg := BgCard
	msgFg := colorTextNormal
	if len(a.logs) > 0 {
		last := a.logs[len(a.logs)-1]
		msgText = last.message
		msgFg = colorTextBright
		switch last.level {
		case "error":
			msgBg = Error
		case "warning":
			msgBg = Warning
		case "success":
			msgBg = Success
		default:
			msgBg = BgConsole
		}
	}

	uptime := time.Since(a.startTime)
	up := seg(fmt.Sprintf("up %02d:%02d", int(uptime.Hours()), int(uptime.Minutes())%60), colorTextBright, Primary, true)

	leftFixed := mode + pipe + bg + pipe
	remaining := a.width - lipgloss.Width(leftFixed) - lipgloss.Width(pipe) - lipgloss.Width(up) - 2
	if remaining < 10 {
		remaining = 10
	}
	msg := seg(Truncate(msgText, remaining), msgFg, msgBg, false)

	left := leftFixed + msg
	gap := a.width - lipgloss.Width(left) - lipgloss.Width(pipe) - lipgloss.Width(up)
	if gap < 1 {
		gap = 1
	}

	line := left + strings.Repeat(" ", gap) + pipe + up
	return base.Width(a.width).Render(line)
}

func (a *App) renderCommandArea() string {
	base := lipgloss.NewStyle().Background(BgCard).Foreground(colorTextNormal)
	view := a.command.View()

	lines := strings.Split(view, "\n")
	h := a.bottomAreaHeight()
	for len(lines) < h {
		lines = append(lines, "")
	}
	if len(lines) > h {
		lines = lines[len(lines)-h:]
	}
	return base.Width(a.width).Height(h).Render(strings.Join(lines, "\n"))
}

func (a *App) bottomAreaHeight() int {
	if a.command.IsVisible() {
		h := a.height / 3
		if h < 6 {
			h = 6
		}
		if h > 12 {
			h = 12
		}
		return h
	}
	return 1
}

func (a *App) addLog(message, level string) {
	a.logs = append(a.logs, logEntry{
		time:    time.Now(),
		message: message,
		level:   level,
	})
	if len(a.logs) > a.maxLogs {
		a.logs = a.logs[1:]
	}
}

// Run starts the TUI and ends the session subscription when it exits
func (a *App) Run() error {
	defer a.cancel()
	p := tea.NewProgram(a, tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, err := p.Run()
	return err
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
