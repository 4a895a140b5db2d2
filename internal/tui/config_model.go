package tui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/diogo/gemmy/internal/config"
	"github.com/diogo/gemmy/internal/render"
)

type feedbackClearMsg struct{}

// setting is one row of the settings menu. Toggles flip a bool key;
// everything else picks one of choices.
type setting struct {
	label   string
	key     string
	toggle  bool
	choices func() []string
	value   func(config.Config) string
}

var settingsMenu = []setting{
	{label: "Default model", key: "default_model", choices: config.AvailableModels,
		value: func(c config.Config) string { return c.DefaultModel }},
	{label: "Backend", key: "backend", choices: func() []string { return []string{config.BackendREST, config.BackendSDK} },
		value: func(c config.Config) string { return c.Backend }},
	{label: "Verbose logging", key: "verbose", toggle: true,
		value: func(c config.Config) string { return strconv.FormatBool(c.Verbose) }},
	{label: "Copy answers to clipboard", key: "copy_to_clipboard", toggle: true,
		value: func(c config.Config) string { return strconv.FormatBool(c.CopyToClipboard) }},
	{label: "Markdown style", key: "markdown.style", choices: markdownStyleNames,
		value: func(c config.Config) string { return c.Markdown.Style }},
	{label: "TUI theme", key: "tui_theme", choices: render.TUIThemeNames,
		value: func(c config.Config) string { return c.TUITheme }},
}

func markdownStyleNames() []string {
	styles := render.AvailableStyles()
	names := make([]string, len(styles))
	for i, s := range styles {
		names[i] = s.Name
	}
	return names
}

// ConfigModel is an interactive editor for the config file
type ConfigModel struct {
	config     config.Config
	configPath string
	save       func(config.Config) error

	cursor   int
	picking  *setting
	choice   int
	feedback string

	width int
	ready bool
}

// NewConfigModel edits cfg and persists every change with save
func NewConfigModel(cfg config.Config, configPath string, save func(config.Config) error) ConfigModel {
	if save == nil {
		save = config.SaveConfig
	}
	if render.SetTUITheme(cfg.TUITheme) {
		UpdateTheme()
	}
	return ConfigModel{config: cfg, configPath: configPath, save: save}
}

// Config returns the configuration as edited so far
func (m ConfigModel) Config() config.Config {
	return m.config
}

func (m ConfigModel) Init() tea.Cmd {
	return nil
}

func clearFeedback(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg { return feedbackClearMsg{} })
}

func (m ConfigModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.ready = true

	case feedbackClearMsg:
		m.feedback = ""

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "esc":
			if m.picking != nil {
				m.picking = nil
				return m, nil
			}
			return m, tea.Quit
		case "up", "k":
			m.move(-1)
		case "down", "j":
			m.move(1)
		case "enter", " ":
			return m.selectCurrent()
		}
	}
	return m, nil
}

func (m *ConfigModel) move(delta int) {
	n := len(settingsMenu)
	cur := &m.cursor
	if m.picking != nil {
		n = len(m.picking.choices())
		cur = &m.choice
	}
	if n == 0 {
		return
	}
	*cur = (*cur + delta + n) % n
}

func (m ConfigModel) selectCurrent() (tea.Model, tea.Cmd) {
	if m.picking != nil {
		s := *m.picking
		m.picking = nil
		return m.apply(s, s.choices()[m.choice])
	}

	s := settingsMenu[m.cursor]
	if s.toggle {
		current, _ := strconv.ParseBool(s.value(m.config))
		return m.apply(s, strconv.FormatBool(!current))
	}

	m.picking = &settingsMenu[m.cursor]
	m.choice = 0
	for i, c := range s.choices() {
		if c == s.value(m.config) {
			m.choice = i
		}
	}
	return m, nil
}

func (m ConfigModel) apply(s setting, value string) (tea.Model, tea.Cmd) {
	updated := m.config
	if err := config.Set(&updated, s.key, value); err != nil {
		m.feedback = "Error: " + err.Error()
		return m, clearFeedback(2 * time.Second)
	}
	if err := m.save(updated); err != nil {
		m.feedback = "Error: " + err.Error()
		return m, clearFeedback(2 * time.Second)
	}
	m.config = updated

	if s.key == "tui_theme" && render.SetTUITheme(value) {
		UpdateTheme()
	}
	m.feedback = fmt.Sprintf("%s set to %s", s.label, value)
	return m, clearFeedback(2 * time.Second)
}

func (m ConfigModel) View() string {
	if !m.ready {
		return loadingStyle.Render("  Initializing...")
	}
	width := m.width - 4
	if width < 40 {
		width = 40
	}

	sections := []string{
		titleStyle.Render(glyphSpark + " Configuration"),
		hintStyle.Render(m.configPath),
	}

	var body string
	if m.picking != nil {
		body = m.renderChoices()
	} else {
		body = m.renderMenu()
	}
	sections = append(sections, panelStyle.Width(width).Render(body))

	if m.feedback != "" {
		sections = append(sections, feedbackStyle.Render(glyphCheck+" "+m.feedback))
	}

	keys := []string{
		statusKeyStyle.Render("↑↓") + statusDescStyle.Render(" Move"),
		statusKeyStyle.Render("Enter") + statusDescStyle.Render(" Select"),
		statusKeyStyle.Render("Esc") + statusDescStyle.Render(" Back"),
	}
	sections = append(sections, statusBarStyle.Render(strings.Join(keys, "  "+glyphDivider+"  ")))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m ConfigModel) renderMenu() string {
	lines := make([]string, len(settingsMenu))
	for i, s := range settingsMenu {
		value := s.value(m.config)
		if s.toggle {
			if value == "true" {
				value = "on"
			} else {
				value = "off"
			}
		}
		lines[i] = cursorLine(i == m.cursor, fmt.Sprintf("%-28s", s.label)) + menuValueStyle.Render(value)
	}
	return strings.Join(lines, "\n")
}

func (m ConfigModel) renderChoices() string {
	choices := m.picking.choices()
	lines := []string{menuSelectedStyle.Render(m.picking.label), ""}
	current := m.picking.value(m.config)
	for i, c := range choices {
		line := cursorLine(i == m.choice, c)
		if c == current {
			line += hintStyle.Render("  (current)")
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func cursorLine(selected bool, text string) string {
	if selected {
		return menuSelectedStyle.Render(glyphCursor + " " + text)
	}
	return menuItemStyle.Render("  " + text)
}

// RunConfig runs the interactive settings editor
func RunConfig(cfg config.Config, configPath string) error {
	_, err := tea.NewProgram(NewConfigModel(cfg, configPath, nil)).Run()
	return err
}
