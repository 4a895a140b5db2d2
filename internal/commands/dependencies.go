package commands

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/atotto/clipboard"
	"golang.org/x/term"

	"github.com/diogo/gemmy/internal/api"
	"github.com/diogo/gemmy/internal/chat"
	"github.com/diogo/gemmy/internal/config"
	"github.com/diogo/gemmy/internal/tui"
)

// TUIInterface defines the methods required from the TUI package.
type TUIInterface interface {
	RunChat(ctrl *chat.Controller, opts tui.Options) error
	RunConfig(cfg config.Config, configPath string) error
}

// Dependencies holds the external dependencies for the commands.
// This allows for dependency injection and easier testing.
type Dependencies struct {
	// NewCompleter builds the completion backend for a session.
	NewCompleter func(ctx context.Context, cfg config.Config, apiKey string, logger *slog.Logger) (api.Completer, error)

	LoadConfig    func() (config.Config, error)
	SaveConfig    func(config.Config) error
	GetConfigPath func() (string, error)

	// APIKey resolves the secret after .env files are loaded.
	APIKey func() (string, error)

	// TUI is the terminal user interface.
	TUI TUIInterface

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// IsTerminal reports whether stdout is an interactive terminal.
	IsTerminal func() bool
	// StdinPiped reports whether stdin carries redirected input.
	StdinPiped func() bool
	// TerminalWidth returns the stdout width, or 0 when unknown.
	TerminalWidth func() int

	WriteClipboard func(string) error
}

// DefaultTUI is the production implementation of TUIInterface.
type DefaultTUI struct{}

func (d *DefaultTUI) RunChat(ctrl *chat.Controller, opts tui.Options) error {
	return tui.RunChat(ctrl, opts)
}

func (d *DefaultTUI) RunConfig(cfg config.Config, configPath string) error {
	return tui.RunConfig(cfg, configPath)
}

// NewDependencies creates a new Dependencies struct with default implementations.
func NewDependencies() *Dependencies {
	return &Dependencies{
		NewCompleter:   api.NewCompleter,
		LoadConfig:     config.LoadConfig,
		SaveConfig:     config.SaveConfig,
		GetConfigPath:  config.GetConfigPath,
		APIKey:         config.APIKey,
		TUI:            &DefaultTUI{},
		Stdin:          os.Stdin,
		Stdout:         os.Stdout,
		Stderr:         os.Stderr,
		IsTerminal:     isStdoutTTY,
		StdinPiped:     isStdinPiped,
		TerminalWidth:  getTerminalWidth,
		WriteClipboard: clipboard.WriteAll,
	}
}

// withDefaults returns d with every unset field filled from NewDependencies.
// A nil receiver yields the defaults.
func (d *Dependencies) withDefaults() *Dependencies {
	def := NewDependencies()
	if d == nil {
		return def
	}
	out := *d
	if out.NewCompleter == nil {
		out.NewCompleter = def.NewCompleter
	}
	if out.LoadConfig == nil {
		out.LoadConfig = def.LoadConfig
	}
	if out.SaveConfig == nil {
		out.SaveConfig = def.SaveConfig
	}
	if out.GetConfigPath == nil {
		out.GetConfigPath = def.GetConfigPath
	}
	if out.APIKey == nil {
		out.APIKey = def.APIKey
	}
	if out.TUI == nil {
		out.TUI = def.TUI
	}
	if out.Stdin == nil {
		out.Stdin = def.Stdin
	}
	if out.Stdout == nil {
		out.Stdout = def.Stdout
	}
	if out.Stderr == nil {
		out.Stderr = def.Stderr
	}
	if out.IsTerminal == nil {
		out.IsTerminal = def.IsTerminal
	}
	if out.StdinPiped == nil {
		out.StdinPiped = def.StdinPiped
	}
	if out.TerminalWidth == nil {
		out.TerminalWidth = def.TerminalWidth
	}
	if out.WriteClipboard == nil {
		out.WriteClipboard = def.WriteClipboard
	}
	return &out
}

// getTerminalWidth returns the terminal width or 0
func getTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return 0
	}
	return width
}

// isStdoutTTY returns true if stdout is connected to a terminal
func isStdoutTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// isStdinPiped returns true if stdin is redirected from a file or pipe
func isStdinPiped() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}
