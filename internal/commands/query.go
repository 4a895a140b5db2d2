package commands

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/diogo/gemmy/internal/chat"
	"github.com/diogo/gemmy/internal/config"
	apierrors "github.com/diogo/gemmy/internal/errors"
	"github.com/diogo/gemmy/internal/render"
	"github.com/diogo/gemmy/internal/tui"
)

// Gradient colors for animation
var gradientColors = []lipgloss.Color{
	lipgloss.Color("#ff6b6b"),
	lipgloss.Color("#feca57"),
	lipgloss.Color("#48dbfb"),
	lipgloss.Color("#ff9ff3"),
	lipgloss.Color("#54a0ff"),
	lipgloss.Color("#5f27cd"),
	lipgloss.Color("#00d2d3"),
	lipgloss.Color("#1dd1a1"),
}

var (
	colorText     = lipgloss.Color("#c0caf5")
	colorTextDim  = lipgloss.Color("#565f89")
	colorTextMute = lipgloss.Color("#3b4261")
	colorSuccess  = lipgloss.Color("#9ece6a")
	colorPrimary  = lipgloss.Color("#7aa2f7")
	colorError    = lipgloss.Color("#f7768e")
)

var (
	assistantLabelStyle = lipgloss.NewStyle().
				Foreground(colorPrimary).
				Bold(true)

	assistantBubbleStyle = lipgloss.NewStyle().
				BorderStyle(lipgloss.RoundedBorder()).
				BorderForeground(colorPrimary).
				Foreground(colorText).
				Padding(0, 1).
				MarginTop(1).
				MarginBottom(1)

	successStyle = lipgloss.NewStyle().Foreground(colorSuccess)
	warnStyle    = lipgloss.NewStyle().Foreground(colorError)
	alertStyle   = lipgloss.NewStyle().Foreground(colorError).Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(colorTextDim).Italic(true)
)

// spinner draws an animated progress line on w until stopped.
// A nil *spinner is valid and draws nothing.
type spinner struct {
	w       io.Writer
	message string
	stop    chan struct{}
	done    chan struct{}
	mu      sync.Mutex
	frame   int
	stopped bool
}

func newSpinner(w io.Writer, message string) *spinner {
	return &spinner{
		w:       w,
		message: message,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

func (s *spinner) start() {
	if s == nil {
		return
	}
	go func() {
		defer close(s.done)

		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()

		// hide cursor
		fmt.Fprint(s.w, "\033[?25l")

		for {
			select {
			case <-s.stop:
				fmt.Fprint(s.w, "\r\033[K\033[?25h")
				return
			case <-ticker.C:
				s.mu.Lock()
				s.render()
				s.frame++
				s.mu.Unlock()
			}
		}
	}()
}

func (s *spinner) render() {
	chars := []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}

	spinColor := gradientColors[s.frame%len(gradientColors)]
	spinnerChar := lipgloss.NewStyle().Foreground(spinColor).Bold(true).Render(chars[s.frame%len(chars)])

	var dots strings.Builder
	numDots := (s.frame / 3) % 4
	for i := 0; i < 3; i++ {
		if i < numDots {
			dotColor := gradientColors[(s.frame+i)%len(gradientColors)]
			dots.WriteString(lipgloss.NewStyle().Foreground(dotColor).Render("●"))
		} else {
			dots.WriteString(lipgloss.NewStyle().Foreground(colorTextMute).Render("○"))
		}
	}

	msg := lipgloss.NewStyle().Foreground(colorText).Render(s.message)
	fmt.Fprintf(s.w, "\r\033[K%s %s %s", spinnerChar, msg, dots.String())
}

// halt stops the animation once and waits for the line to be cleared
func (s *spinner) halt() {
	if s == nil {
		return
	}
	s.mu.Lock()
	if !s.stopped {
		close(s.stop)
		s.stopped = true
	}
	s.mu.Unlock()
	<-s.done
}

func (s *spinner) stopWithSuccess(message string) {
	if s == nil {
		return
	}
	s.halt()
	fmt.Fprintln(s.w, successStyle.Bold(true).Render("✓")+" "+successStyle.Render(message))
}

func (s *spinner) stopWithError() {
	s.halt()
}

// runQuery sends one prompt through a fresh controller and prints the answer
func runQuery(cmd *cobra.Command, deps *Dependencies, gf *globalFlags, qf queryFlags, prompt string) error {
	if strings.TrimSpace(prompt) == "" {
		return apierrors.ErrEmptyPrompt
	}

	s, err := openSession(cmd.Context(), cmd, deps, gf)
	if err != nil {
		return err
	}
	defer s.Close()

	var spin *spinner
	if !qf.raw {
		spin = newSpinner(deps.Stderr, "Generating response")
		spin.start()
	}

	s.ctrl.SetNotifier(chat.NotifierFunc(func(err error) {
		spin.stopWithError()
		fmt.Fprintln(deps.Stderr, alertStyle.Render(apierrors.AlertMessage))
		fmt.Fprintln(deps.Stderr, tui.FormatError(err))
	}))

	out, err := s.ctrl.Submit(cmd.Context(), prompt)
	if err != nil {
		spin.stopWithError()
		return err
	}

	switch out.Kind {
	case chat.Failed:
		return fmt.Errorf("%w: %w", errReported, out.Err)
	case chat.Canceled:
		spin.stopWithError()
		return out.Err
	case chat.NoAnswer:
		spin.stopWithError()
		fmt.Fprintln(deps.Stderr, dimStyle.Render("No answer was returned"))
		return nil
	}

	spin.stopWithSuccess(fmt.Sprintf("Done in %s", out.Duration.Round(time.Millisecond)))
	return printAnswer(deps, s.cfg, qf, out.Message.Text)
}

// printAnswer writes text raw or inside the assistant bubble, to stdout or --output
func printAnswer(deps *Dependencies, cfg config.Config, qf queryFlags, text string) error {
	if qf.raw {
		if qf.output != "" {
			return writeOutput(qf.output, text)
		}
		fmt.Fprint(deps.Stdout, text)
		return nil
	}

	if cfg.CopyToClipboard {
		if err := deps.WriteClipboard(text); err != nil {
			fmt.Fprintln(deps.Stderr, warnStyle.Render(fmt.Sprintf("⚠ Failed to copy to clipboard: %v", err)))
		} else {
			fmt.Fprintln(deps.Stderr, successStyle.Render("✓ Copied to clipboard"))
		}
	}

	if qf.output != "" {
		if err := writeOutput(qf.output, text); err != nil {
			return err
		}
		fmt.Fprintln(deps.Stderr, successStyle.Render(fmt.Sprintf("✓ Response saved to %s", qf.output)))
		return nil
	}

	bubbleWidth := clampWidth(deps.TerminalWidth() - 4)
	contentWidth := bubbleWidth - 4

	fmt.Fprintln(deps.Stdout, assistantLabelStyle.Render("✦ Gemini"))
	rendered := render.MarkdownOrRaw(text, render.FromConfig(cfg.Markdown, contentWidth))
	fmt.Fprintln(deps.Stdout, assistantBubbleStyle.Width(bubbleWidth).Render(rendered))
	return nil
}

// clampWidth keeps the bubble readable on very narrow or very wide terminals
func clampWidth(w int) int {
	switch {
	case w < 40:
		return 40
	case w > 120:
		return 120
	}
	return w
}

func writeOutput(path, text string) error {
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}
