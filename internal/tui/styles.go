// Package tui provides the terminal chat interface for gemmy.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	apierrors "github.com/diogo/gemmy/internal/errors"
	"github.com/diogo/gemmy/internal/render"
)

// Glyphs used across the interface
const (
	glyphSpark   = "✦"
	glyphUser    = "●"
	glyphDot     = "•"
	glyphWarn    = "⚠"
	glyphCross   = "✗"
	glyphDivider = "│"
	glyphCursor  = "▸"
	glyphCheck   = "✓"
)

var (
	colorBorder    lipgloss.Color
	colorPrimary   lipgloss.Color
	colorSecondary lipgloss.Color
	colorAccent    lipgloss.Color
	colorWarning   lipgloss.Color
	colorError     lipgloss.Color
	colorText      lipgloss.Color
	colorTextDim   lipgloss.Color
	colorSurface   lipgloss.Color
)

var (
	headerStyle   lipgloss.Style
	titleStyle    lipgloss.Style
	subtitleStyle lipgloss.Style
	hintStyle     lipgloss.Style

	messagesAreaStyle    lipgloss.Style
	userLabelStyle       lipgloss.Style
	userBubbleStyle      lipgloss.Style
	assistantLabelStyle  lipgloss.Style
	assistantBubbleStyle lipgloss.Style

	inputPanelStyle lipgloss.Style
	inputLabelStyle lipgloss.Style
	loadingStyle    lipgloss.Style

	statusBarStyle  lipgloss.Style
	statusKeyStyle  lipgloss.Style
	statusDescStyle lipgloss.Style
	noticeStyle     lipgloss.Style

	welcomeStyle      lipgloss.Style
	welcomeTitleStyle lipgloss.Style
	welcomeIconStyle  lipgloss.Style

	alertBoxStyle    lipgloss.Style
	alertTitleStyle  lipgloss.Style
	alertDetailStyle lipgloss.Style
	alertHintStyle   lipgloss.Style

	panelStyle        lipgloss.Style
	menuItemStyle     lipgloss.Style
	menuSelectedStyle lipgloss.Style
	menuValueStyle    lipgloss.Style
	feedbackStyle     lipgloss.Style
)

// Spinner colors, independent of the theme
var gradientColors = []lipgloss.Color{
	"#ff6b6b", "#feca57", "#48dbfb", "#ff9ff3", "#54a0ff", "#5f27cd", "#00d2d3", "#1dd1a1",
}

func init() {
	UpdateTheme()
}

// UpdateTheme rebuilds every style from the active render.TUITheme
func UpdateTheme() {
	theme := render.GetTUITheme()

	colorBorder = theme.Border
	colorPrimary = theme.Primary
	colorSecondary = theme.Secondary
	colorAccent = theme.Accent
	colorWarning = theme.Warning
	colorError = theme.Error
	colorText = theme.Text
	colorTextDim = theme.TextDim
	colorSurface = theme.Surface

	rebuildStyles()
}

func rebuildStyles() {
	headerStyle = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(colorBorder).
		Padding(0, 2)
	titleStyle = lipgloss.NewStyle().Foreground(colorPrimary).Bold(true)
	subtitleStyle = lipgloss.NewStyle().Foreground(colorTextDim)
	hintStyle = lipgloss.NewStyle().Foreground(colorTextDim).Italic(true)

	messagesAreaStyle = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(colorBorder).
		Padding(0, 1)

	userLabelStyle = lipgloss.NewStyle().Foreground(colorSecondary).Bold(true).MarginLeft(4)
	userBubbleStyle = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(colorSecondary).
		Foreground(colorText).
		Padding(0, 1).
		MarginLeft(4)

	assistantLabelStyle = lipgloss.NewStyle().Foreground(colorPrimary).Bold(true)
	assistantBubbleStyle = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(colorPrimary).
		Padding(0, 1).
		MarginRight(4)

	inputPanelStyle = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(colorBorder).
		Padding(0, 1)
	inputLabelStyle = lipgloss.NewStyle().Foreground(colorPrimary).Bold(true)
	loadingStyle = lipgloss.NewStyle().Foreground(colorAccent).Bold(true)

	statusBarStyle = lipgloss.NewStyle().Foreground(colorTextDim)
	statusKeyStyle = lipgloss.NewStyle().Foreground(colorText).Bold(true)
	statusDescStyle = lipgloss.NewStyle().Foreground(colorTextDim)
	noticeStyle = lipgloss.NewStyle().Foreground(colorWarning).Italic(true)

	welcomeStyle = lipgloss.NewStyle().Foreground(colorTextDim).Align(lipgloss.Center)
	welcomeTitleStyle = lipgloss.NewStyle().Foreground(colorPrimary).Bold(true).Align(lipgloss.Center)
	welcomeIconStyle = lipgloss.NewStyle().Foreground(colorAccent).Align(lipgloss.Center)

	alertBoxStyle = lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(colorError).
		Background(colorSurface).
		Padding(1, 3)
	alertTitleStyle = lipgloss.NewStyle().Foreground(colorError).Bold(true)
	alertDetailStyle = lipgloss.NewStyle().Foreground(colorTextDim)
	alertHintStyle = lipgloss.NewStyle().Foreground(colorPrimary)

	panelStyle = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(colorBorder).
		Padding(1, 2)
	menuItemStyle = lipgloss.NewStyle().Foreground(colorText)
	menuSelectedStyle = lipgloss.NewStyle().Foreground(colorAccent).Bold(true)
	menuValueStyle = lipgloss.NewStyle().Foreground(colorSecondary)
	feedbackStyle = lipgloss.NewStyle().Foreground(colorTextDim).Italic(true)
}

// errorDetails lists the structured facts carried by err, one per line
func errorDetails(err error) []string {
	var lines []string
	if status := apierrors.GetHTTPStatus(err); status > 0 {
		lines = append(lines, fmt.Sprintf("HTTP Status: %d", status))
	}
	if endpoint := apierrors.GetEndpoint(err); endpoint != "" {
		lines = append(lines, "Endpoint: "+endpoint)
	}
	return lines
}

// FormatError returns a styled multi-line description of err for the CLI
func FormatError(err error) string {
	if err == nil {
		return ""
	}
	errStyle := lipgloss.NewStyle().Foreground(colorError)
	dimStyle := lipgloss.NewStyle().Foreground(colorTextDim)

	var sb strings.Builder
	sb.WriteString(errStyle.Render(fmt.Sprintf("%s %v", glyphCross, err)))
	for _, line := range errorDetails(err) {
		sb.WriteString("\n" + dimStyle.Render("  "+line))
	}
	if hint := apierrors.Hint(err); hint != "" {
		sb.WriteString("\n" + dimStyle.Render("  Hint: "+hint))
	}
	return sb.String()
}
