package commands

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/fatih/color"

	"github.com/diogo/gemmy/internal/api"
	"github.com/diogo/gemmy/internal/chat"
	"github.com/diogo/gemmy/internal/config"
	"github.com/diogo/gemmy/internal/tui"
)

// fakeTUI records what the commands hand to the terminal UI
type fakeTUI struct {
	chatCalls   int
	chatOpts    tui.Options
	chatFunc    func(ctrl *chat.Controller) error
	configCalls int
	configCfg   config.Config
	configPath  string
}

func (f *fakeTUI) RunChat(ctrl *chat.Controller, opts tui.Options) error {
	f.chatCalls++
	f.chatOpts = opts
	if f.chatFunc != nil {
		return f.chatFunc(ctrl)
	}
	return nil
}

func (f *fakeTUI) RunConfig(cfg config.Config, configPath string) error {
	f.configCalls++
	f.configCfg = cfg
	f.configPath = configPath
	return nil
}

type testEnv struct {
	deps      *Dependencies
	completer *api.MockCompleter
	tui       *fakeTUI
	stdout    *bytes.Buffer
	stderr    *bytes.Buffer
	saved     []config.Config
	clipboard []string
	gotConfig config.Config
	gotKey    string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	noColor := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = noColor })

	for _, name := range append(append([]string{}, config.APIKeyEnvVars...), "GEMMY_MODEL", "GEMMY_BACKEND", "GEMMY_BASE_URL", "GEMMY_TIMEOUT", "GLAMOUR_STYLE") {
		t.Setenv(name, "")
	}
	t.Setenv("GEMMY_CONFIG_DIR", t.TempDir())

	env := &testEnv{
		completer: &api.MockCompleter{Answer: "hi there"},
		tui:       &fakeTUI{},
		stdout:    &bytes.Buffer{},
		stderr:    &bytes.Buffer{},
	}
	env.deps = &Dependencies{
		NewCompleter: func(ctx context.Context, cfg config.Config, apiKey string, logger *slog.Logger) (api.Completer, error) {
			env.gotConfig = cfg
			env.gotKey = apiKey
			return env.completer, nil
		},
		LoadConfig: func() (config.Config, error) { return config.DefaultConfig(), nil },
		SaveConfig: func(cfg config.Config) error {
			env.saved = append(env.saved, cfg)
			return nil
		},
		GetConfigPath: func() (string, error) { return "/tmp/gemmy/config.json", nil },
		APIKey:        func() (string, error) { return "test-key", nil },
		TUI:           env.tui,
		Stdin:         strings.NewReader(""),
		Stdout:        env.stdout,
		Stderr:        env.stderr,
		IsTerminal:    func() bool { return false },
		StdinPiped:    func() bool { return false },
		TerminalWidth: func() int { return 100 },
		WriteClipboard: func(s string) error {
			env.clipboard = append(env.clipboard, s)
			return nil
		},
	}
	return env
}

// run executes the command tree with args and returns the error
func (e *testEnv) run(args ...string) error {
	cmd := NewRootCmd(e.deps)
	cmd.SetArgs(args)
	cmd.SetOut(e.stdout)
	cmd.SetErr(e.stderr)
	return cmd.ExecuteContext(context.Background())
}

var errBoom = errors.New("boom")

func colorless() *color.Color {
	c := color.New()
	c.DisableColor()
	return c
}
