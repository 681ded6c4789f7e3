package tui

import (
	"github.com/charmbracelet/lipgloss"
)

// Colors - A clean, modern color palette
var (
	// Primary colors
	Primary   = lipgloss.Color("#7C3AED") // Purple
	Secondary = lipgloss.Color("#06B6D4") // Cyan
	Success   = lipgloss.Color("#10B981") // Green
	Warning   = lipgloss.Color("#F59E0B") // Amber
	Error     = lipgloss.Color("#EF4444") // Red
	Muted     = lipgloss.Color("#6B7280") // Gray

	// Background colors
	BgCard    = lipgloss.Color("#1E293B") // Slate 800
	BgHover   = lipgloss.Color("#334155") // Slate 700
	BgSidebar = lipgloss.Color("#18181B") // Zinc 900
	BgConsole = lipgloss.Color("#09090B") // Zinc 950

	// Text colors (as lipgloss.Color for use in styles)
	colorTextBright = lipgloss.Color("#F8FAFC") // Slate 50
	colorTextNormal = lipgloss.Color("#CBD5E1") // Slate 300
	colorTextMuted  = lipgloss.Color("#64748B") // Slate 500
)

// Text styles (can call .Render())
var (
	TextBright = lipgloss.NewStyle().Foreground(colorTextBright)
	TextNormal = lipgloss.NewStyle().Foreground(colorTextNormal)
	TextMuted  = lipgloss.NewStyle().Foreground(colorTextMuted)
)

// Styles
var (
	// Sidebar - solid background that fills the area
	SidebarStyle = lipgloss.NewStyle().
			Background(BgSidebar).
			Foreground(colorTextNormal).
			Padding(1, 1).
			BorderRight(true).
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(BgHover)

	// Content area
	ContentStyle = lipgloss.NewStyle().
			Padding(1, 2)

	// Header
	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorTextBright).
			Background(Primary).
			Padding(0, 2).
			MarginBottom(1)

	LogoStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorTextBright)

	// Cards/Panels
	CardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Muted).
			Padding(0, 1)

	CardTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Secondary)

	// Key/value rows in the sidebar
	LabelStyle = lipgloss.NewStyle().
			Foreground(colorTextMuted).
			Width(9)

	// Input
	InputFocusedStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(Primary).
				Padding(0, 1)

	// Help bar
	HelpStyle = lipgloss.NewStyle().
			Foreground(colorTextMuted)

	HelpKeyStyle = lipgloss.NewStyle().
			Foreground(Secondary).
			Bold(true)

	// Messages
	SuccessStyle = lipgloss.NewStyle().
			Foreground(Success)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(Error)

	WarningStyle = lipgloss.NewStyle().
			Foreground(Warning)

	InfoStyle = lipgloss.NewStyle().
			Foreground(Secondary)

	// Spinner
	SpinnerStyle = lipgloss.NewStyle().
			Foreground(Primary)

	// Section headers in content
	SectionHeaderStyle = lipgloss.NewStyle().
				Foreground(colorTextMuted).
				Bold(true)
)

// Helper functions
func RenderKey(key string) string {
	return HelpKeyStyle.Render(key)
}

func RenderHelp(key, desc string) string {
	return RenderKey(key) + HelpStyle.Render(" "+desc)
}

func StatusIcon(status string) string {
	switch status {
	case "completed":
		return SuccessStyle.Render("●")
	case "failed":
		return ErrorStyle.Render("●")
	default:
		return WarningStyle.Render("●")
	}
}

func Truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}
