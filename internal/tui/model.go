package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/diogo/gemmy/internal/chat"
	apierrors "github.com/diogo/gemmy/internal/errors"
	"github.com/diogo/gemmy/internal/models"
	"github.com/diogo/gemmy/internal/render"
	"github.com/diogo/gemmy/internal/transcript"
)

type animationTickMsg time.Time

type (
	// completionDoneMsg carries the result of a request started by Enter
	completionDoneMsg struct {
		outcome chat.Outcome
	}
	// alertMsg opens the blocking alert modal
	alertMsg struct {
		err error
	}
)

// Options configures the chat screen
type Options struct {
	Markdown render.Options
	// CopyToClipboard copies every new answer automatically
	CopyToClipboard bool
	// WriteClipboard replaces the system clipboard, mainly for tests
	WriteClipboard func(string) error
}

// Model is the bubbletea model of the chat screen.
// All conversation state lives in the controller; Model only mirrors it.
type Model struct {
	ctrl *chat.Controller
	opts Options

	viewport viewport.Model
	textarea textarea.Model
	spinner  spinner.Model

	ready           bool
	renderedVersion uint64
	cancel          context.CancelFunc
	alert           error
	notice          string
	animationFrame  int

	width  int
	height int
}

// NewChatModel creates the chat screen for ctrl
func NewChatModel(ctrl *chat.Controller, opts Options) Model {
	if opts.WriteClipboard == nil {
		opts.WriteClipboard = clipboard.WriteAll
	}

	ta := textarea.New()
	ta.Placeholder = "Type your message here..."
	ta.CharLimit = 0
	ta.ShowLineNumbers = false
	ta.SetHeight(2)
	ta.KeyMap.InsertNewline.SetKeys("alt+enter", "ctrl+j")
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.FocusedStyle.Base = lipgloss.NewStyle().Foreground(colorText)
	ta.FocusedStyle.Placeholder = lipgloss.NewStyle().Foreground(colorTextDim)
	ta.BlurredStyle = ta.FocusedStyle
	ta.SetValue(ctrl.Pending())
	ta.Focus()

	s := spinner.New()
	s.Spinner = spinner.MiniDot
	s.Style = loadingStyle

	return Model{
		ctrl:     ctrl,
		opts:     opts,
		textarea: ta,
		spinner:  s,
	}
}

func (m Model) Init() tea.Cmd {
	return textarea.Blink
}

func animationTick() tea.Cmd {
	return tea.Tick(80*time.Millisecond, func(t time.Time) tea.Msg {
		return animationTickMsg(t)
	})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)

	case tea.KeyMsg:
		if m.alert != nil {
			return m.updateAlert(msg)
		}
		switch msg.String() {
		case "ctrl+c":
			m.cancelRequest()
			return m, tea.Quit

		case "esc":
			if m.ctrl.InFlight() {
				m.cancelRequest()
				return m, nil
			}
			return m, tea.Quit

		case "enter":
			return m.submit()
		}

	case completionDoneMsg:
		m.cancel = nil
		switch msg.outcome.Kind {
		case chat.NoAnswer:
			m.notice = "No answer was returned"
		case chat.Canceled:
			m.notice = "Request canceled"
		case chat.Answered:
			if m.opts.CopyToClipboard {
				if err := m.opts.WriteClipboard(msg.outcome.Message.Text); err != nil {
					m.notice = "Copy failed: " + err.Error()
				}
			}
		}

	case alertMsg:
		m.alert = msg.err
		if m.alert == nil {
			m.alert = errors.New("unknown error")
		}

	case spinner.TickMsg:
		if m.ctrl.InFlight() {
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}

	case animationTickMsg:
		if m.ctrl.InFlight() {
			m.animationFrame++
			cmds = append(cmds, animationTick())
		}
	}

	// Keys reach the textarea only while it is usable
	if key, ok := msg.(tea.KeyMsg); ok && !m.ctrl.InFlight() && m.alert == nil {
		m.textarea, cmd = m.textarea.Update(key)
		cmds = append(cmds, cmd)
		m.ctrl.SetPending(m.textarea.Value())
	}

	if m.ready {
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)
	}
	m.syncViewport()

	return m, tea.Batch(cmds...)
}

// updateAlert handles keys while the alert modal is open. Nothing else
// reacts until it is dismissed.
func (m Model) updateAlert(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.cancelRequest()
		return m, tea.Quit
	case "enter", "esc":
		m.alert = nil
	}
	return m, nil
}

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height

	const headerHeight, inputHeight, statusHeight = 3, 5, 2
	vpHeight := height - headerHeight - inputHeight - statusHeight - 2
	if vpHeight < 5 {
		vpHeight = 5
	}
	contentWidth := width - 4
	if contentWidth < 20 {
		contentWidth = 20
	}

	if !m.ready {
		m.viewport = viewport.New(contentWidth, vpHeight)
		m.ready = true
	} else {
		m.viewport.Width = contentWidth
		m.viewport.Height = vpHeight
	}
	m.textarea.SetWidth(contentWidth - 4)
	m.renderViewport()
}

// submit handles Enter: known slash commands run locally, anything else
// goes to the controller.
func (m Model) submit() (tea.Model, tea.Cmd) {
	if m.ctrl.InFlight() {
		return m, nil
	}
	value := m.textarea.Value()
	input := strings.TrimSpace(value)
	if input == "" {
		return m, nil
	}

	if IsChatCommand(input) {
		if quit := m.runCommand(input); quit {
			return m, tea.Quit
		}
		m.textarea.Reset()
		m.ctrl.SetPending("")
		return m, nil
	}

	turn, err := m.ctrl.Begin(value)
	if err != nil {
		return m, nil
	}
	m.textarea.Reset()
	m.notice = ""
	m.animationFrame = 0
	m.syncViewport()

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	ctrl := m.ctrl
	complete := func() tea.Msg {
		defer cancel()
		return completionDoneMsg{outcome: ctrl.Complete(ctx, turn)}
	}
	return m, tea.Batch(complete, m.spinner.Tick, animationTick())
}

// chatCommands are the slash commands handled locally. Any other input,
// including text that merely starts with a slash, is sent as a prompt.
var chatCommands = map[string]bool{
	"/copy": true,
	"/save": true,
	"/help": true,
	"/exit": true,
	"/quit": true,
}

// IsChatCommand reports whether input names a local slash command
func IsChatCommand(input string) bool {
	fields := strings.Fields(input)
	return len(fields) > 0 && chatCommands[fields[0]]
}

// runCommand executes a slash command and reports whether to quit
func (m *Model) runCommand(input string) bool {
	name := strings.Fields(input)[0]
	arg := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(input), name))

	switch name {
	case "/exit", "/quit":
		return true
	case "/copy":
		m.copyLastAnswer()
	case "/save":
		m.saveTranscript(arg)
	case "/help":
		m.notice = "/copy  copy last answer   /save <file.md|.json|.html>  export   /exit  quit"
	}
	return false
}

func (m *Model) copyLastAnswer() {
	answer, ok := m.ctrl.LastAnswer()
	if !ok {
		m.notice = "Nothing to copy yet"
		return
	}
	if err := m.opts.WriteClipboard(answer.Text); err != nil {
		m.notice = "Copy failed: " + err.Error()
		return
	}
	m.notice = "Copied last answer to clipboard"
}

func (m *Model) saveTranscript(path string) {
	if path == "" {
		m.notice = "Usage: /save <file.md|file.json|file.html>"
		return
	}
	format, err := transcript.Write(path, m.ctrl.Messages(), transcript.Meta{Model: m.ctrl.ModelName()})
	if err != nil {
		m.notice = "Save failed: " + err.Error()
		return
	}
	m.notice = fmt.Sprintf("Saved %s transcript to %s", format, path)
}

func (m *Model) cancelRequest() {
	if m.cancel != nil {
		m.cancel()
	}
}

// syncViewport re-renders when the log changed since the last render and
// keeps the newest message in view.
func (m *Model) syncViewport() {
	if !m.ready {
		return
	}
	if v := m.ctrl.Version(); v != m.renderedVersion {
		m.renderViewport()
		m.viewport.GotoBottom()
	}
}

func (m *Model) renderViewport() {
	if !m.ready {
		return
	}
	m.renderedVersion = m.ctrl.Version()

	bubbleWidth := m.viewport.Width - 6
	if bubbleWidth < 10 {
		bubbleWidth = 10
	}
	mdOpts := m.opts.Markdown.WithWidth(bubbleWidth - 4)

	var content strings.Builder
	for i, msg := range m.ctrl.Messages() {
		if i > 0 {
			content.WriteString("\n")
		}
		content.WriteString(renderMessage(msg, bubbleWidth, mdOpts))
		content.WriteString("\n")
	}
	m.viewport.SetContent(content.String())
}

func renderMessage(msg models.Message, width int, mdOpts render.Options) string {
	if msg.IsUser() {
		return userLabelStyle.Render(glyphUser+" You") + "\n" +
			userBubbleStyle.Width(width).Render(msg.Text)
	}
	return assistantLabelStyle.Render(glyphSpark+" Gemini") + "\n" +
		assistantBubbleStyle.Width(width).Render(render.MarkdownOrRaw(msg.Text, mdOpts))
}

func (m Model) View() string {
	if !m.ready {
		return loadingStyle.Render("  Initializing...")
	}
	if m.alert != nil {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, m.renderAlert())
	}

	contentWidth := m.viewport.Width
	sections := []string{m.renderHeader(contentWidth)}

	messages := m.viewport.View()
	if m.ctrl.Len() == 0 {
		messages = m.renderWelcome()
	}
	sections = append(sections, messagesAreaStyle.Width(contentWidth).Height(m.viewport.Height).Render(messages))

	var input string
	if m.ctrl.InFlight() {
		input = m.renderLoading()
	} else {
		input = lipgloss.JoinVertical(lipgloss.Left, inputLabelStyle.Render("You"), m.textarea.View())
	}
	sections = append(sections, inputPanelStyle.Width(contentWidth).Render(input))

	if m.notice != "" {
		sections = append(sections, noticeStyle.Render(" "+m.notice))
	}
	sections = append(sections, m.renderStatusBar(contentWidth))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderHeader(width int) string {
	content := lipgloss.JoinHorizontal(lipgloss.Center,
		titleStyle.Render(glyphSpark+" Gemmy Chat"),
		hintStyle.Render("  "+glyphDot+"  "),
		subtitleStyle.Render(m.ctrl.ModelName()),
	)
	return headerStyle.Width(width).Render(content)
}

func (m Model) renderWelcome() string {
	width := m.viewport.Width - 4
	content := lipgloss.JoinVertical(lipgloss.Center,
		welcomeIconStyle.Width(width).Render(glyphSpark),
		"",
		welcomeTitleStyle.Width(width).Render("Welcome to Gemmy Chat"),
		"",
		welcomeStyle.Width(width).Render("Start a conversation by typing a message below"),
	)

	top := (m.viewport.Height - lipgloss.Height(content)) / 2
	if top < 0 {
		top = 0
	}
	return strings.Repeat("\n", top) + content
}

// renderLoading replaces the input while a request is in flight
func (m Model) renderLoading() string {
	frame := m.animationFrame
	var dots strings.Builder
	for i := 0; i < 3; i++ {
		color := gradientColors[(frame+i)%len(gradientColors)]
		if i > (frame/3)%3 {
			color = colorTextDim
		}
		dots.WriteString(lipgloss.NewStyle().Foreground(color).Render(glyphUser))
	}
	return fmt.Sprintf("%s %s %s", m.spinner.View(), loadingStyle.Render("Generating..."), dots.String())
}

func (m Model) renderStatusBar(width int) string {
	escDesc := "Quit"
	if m.ctrl.InFlight() {
		escDesc = "Cancel"
	}
	shortcuts := []struct{ key, desc string }{
		{"Enter", "Send"},
		{"Esc", escDesc},
		{"↑↓", "Scroll"},
		{"/help", "Commands"},
	}

	items := make([]string, len(shortcuts))
	for i, s := range shortcuts {
		items[i] = statusKeyStyle.Render(s.key) + statusDescStyle.Render(" "+s.desc)
	}
	return statusBarStyle.Width(width).Align(lipgloss.Center).Render(strings.Join(items, "  "+glyphDivider+"  "))
}

func (m Model) renderAlert() string {
	lines := []string{
		alertTitleStyle.Render(glyphWarn + " " + apierrors.AlertMessage),
		"",
		alertDetailStyle.Render(m.alert.Error()),
	}
	for _, d := range errorDetails(m.alert) {
		lines = append(lines, alertDetailStyle.Render(d))
	}
	if hint := apierrors.Hint(m.alert); hint != "" {
		lines = append(lines, "", alertHintStyle.Render(hint))
	}
	lines = append(lines, "", statusKeyStyle.Render("Enter")+statusDescStyle.Render(" OK"))

	width := m.width * 3 / 4
	if width < 40 {
		width = 40
	}
	return alertBoxStyle.Width(width).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

// RunChat runs the chat screen until the user quits. Failures reported by
// the controller open the alert modal.
func RunChat(ctrl *chat.Controller, opts Options) error {
	p := tea.NewProgram(NewChatModel(ctrl, opts), tea.WithAltScreen())
	ctrl.SetNotifier(chat.NotifierFunc(func(err error) {
		p.Send(alertMsg{err: err})
	}))
	defer ctrl.SetNotifier(nil)

	_, err := p.Run()
	return err
}
