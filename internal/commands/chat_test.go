package commands

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/diogo/gemmy/internal/chat"
	"github.com/diogo/gemmy/internal/config"
	apierrors "github.com/diogo/gemmy/internal/errors"
	"github.com/diogo/gemmy/internal/models"
)

func TestChatCommand(t *testing.T) {
	cmd := newChatCmd(newTestEnv(t).deps, &globalFlags{})
	if cmd.Use != "chat" {
		t.Errorf("Expected use 'chat', got %s", cmd.Use)
	}
	if cmd.Short == "" || cmd.Long == "" {
		t.Error("descriptions should not be empty")
	}
	if cmd.Flags().Lookup("plain") == nil {
		t.Error("--plain flag missing")
	}

	tests := []struct {
		name    string
		args    []string
		wantErr bool
	}{
		{name: "no args", args: []string{}, wantErr: false},
		{name: "with args (should be rejected)", args: []string{"test"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := cmd.Args(cmd, tt.args)
			if (err != nil) != tt.wantErr {
				t.Errorf("Args(%v) error = %v, wantErr %v", tt.args, err, tt.wantErr)
			}
		})
	}
}

func TestChat_UsesTUIOnTerminal(t *testing.T) {
	env := newTestEnv(t)
	env.deps.IsTerminal = func() bool { return true }
	env.deps.LoadConfig = func() (config.Config, error) {
		cfg := config.DefaultConfig()
		cfg.CopyToClipboard = true
		cfg.Markdown.Style = "light"
		return cfg, nil
	}
	env.tui.chatFunc = func(ctrl *chat.Controller) error {
		out, err := ctrl.Submit(context.Background(), "hello")
		if err != nil {
			return err
		}
		if out.Kind != chat.Answered {
			t.Errorf("outcome = %v, want answered", out.Kind)
		}
		return nil
	}

	if err := env.run("chat"); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if env.tui.chatCalls != 1 {
		t.Fatalf("RunChat called %d times, want 1", env.tui.chatCalls)
	}
	if !env.tui.chatOpts.CopyToClipboard {
		t.Error("copy_to_clipboard not passed to the TUI")
	}
	if env.tui.chatOpts.Markdown.Style != "light" {
		t.Errorf("markdown style = %q, want light", env.tui.chatOpts.Markdown.Style)
	}
	if env.tui.chatOpts.WriteClipboard == nil {
		t.Error("clipboard writer not passed to the TUI")
	}
	if !env.completer.Closed() {
		t.Error("completer should be closed when the chat ends")
	}
}

func TestChat_MissingKeyStopsBeforeUI(t *testing.T) {
	env := newTestEnv(t)
	env.deps.IsTerminal = func() bool { return true }
	env.deps.APIKey = func() (string, error) { return "", apierrors.ErrMissingAPIKey }

	if err := env.run("chat"); err == nil {
		t.Fatal("expected an error")
	}
	if env.tui.chatCalls != 0 {
		t.Error("TUI started without an API key")
	}
}

func TestPlainChat_Conversation(t *testing.T) {
	env := newTestEnv(t)
	env.deps.StdinPiped = func() bool { return true }
	env.deps.Stdin = strings.NewReader("hello\n   \nsecond\n")

	if err := env.run("chat"); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if env.tui.chatCalls != 0 {
		t.Error("TUI must not start when stdout is not a terminal")
	}
	if got := env.completer.Prompts(); len(got) != 2 || got[0] != "hello" || got[1] != "second" {
		t.Errorf("prompts = %q, want [hello second]", got)
	}

	out := env.stdout.String()
	for _, want := range []string{"you> hello", "gemini> hi there", "you> second"} {
		if !strings.Contains(out, want) {
			t.Errorf("stdout missing %q:\n%s", want, out)
		}
	}
	if strings.Count(out, "gemini> hi there") != 2 {
		t.Errorf("want two answers:\n%s", out)
	}
}

func TestPlainChat_FailureAlertsOnce(t *testing.T) {
	env := newTestEnv(t)
	env.deps.StdinPiped = func() bool { return true }
	env.deps.Stdin = strings.NewReader("hello\n")
	env.completer.Err = apierrors.NewNetworkError("generate content", errBoom)

	if err := env.run("chat", "--plain"); err != nil {
		t.Fatalf("a failed request must not end the chat with an error, got %v", err)
	}
	if n := strings.Count(env.stderr.String(), apierrors.AlertMessage); n != 1 {
		t.Errorf("alert shown %d times, want 1:\n%s", n, env.stderr.String())
	}
	if strings.Contains(env.stdout.String(), "gemini>") {
		t.Error("no answer should be printed after a failure")
	}
}

func TestPlainChat_NoAnswer(t *testing.T) {
	env := newTestEnv(t)
	env.deps.StdinPiped = func() bool { return true }
	env.deps.Stdin = strings.NewReader("hello\n")
	env.completer.Answer = ""

	if err := env.run("chat", "--plain"); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !strings.Contains(env.stdout.String(), "(no answer)") {
		t.Errorf("stdout = %q", env.stdout.String())
	}
	if env.stderr.Len() != 0 {
		t.Errorf("stderr = %q, want nothing", env.stderr.String())
	}
}

func TestPlainChat_Commands(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chat.md")

	env := newTestEnv(t)
	env.deps.StdinPiped = func() bool { return true }
	env.deps.Stdin = strings.NewReader(strings.Join([]string{
		"/copy",
		"hello",
		"/copy",
		"/save " + path,
		"/save",
		"/help",
		"/exit",
		"never sent",
	}, "\n"))

	if err := env.run("chat", "--plain"); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	out := env.stdout.String()
	for _, want := range []string{"Nothing to copy yet", "Copied to clipboard", "Saved markdown transcript", "Usage: /save <path>", "/exit"} {
		if !strings.Contains(out, want) {
			t.Errorf("stdout missing %q:\n%s", want, out)
		}
	}
	if len(env.clipboard) != 1 || env.clipboard[0] != "hi there" {
		t.Errorf("clipboard = %q", env.clipboard)
	}
	if got := env.completer.Prompts(); len(got) != 1 {
		t.Errorf("prompts = %q, want only hello", got)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("transcript not written: %v", err)
	}
	if !strings.Contains(string(data), "hello") || !strings.Contains(string(data), "hi there") {
		t.Errorf("transcript = %q", data)
	}
}

func TestPlainChat_SlashPrefixedPromptIsSent(t *testing.T) {
	env := newTestEnv(t)
	env.deps.StdinPiped = func() bool { return true }
	env.deps.Stdin = strings.NewReader("/usr/bin is where? explain\n/bogus\n")

	if err := env.run("chat", "--plain"); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	got := env.completer.Prompts()
	if len(got) != 2 || got[0] != "/usr/bin is where? explain" || got[1] != "/bogus" {
		t.Errorf("prompts = %q", got)
	}
	if strings.Count(env.stdout.String(), "gemini> hi there") != 2 {
		t.Errorf("want two answers:\n%s", env.stdout.String())
	}
}

func TestPlainREPL_ShowEchoesUserOnlyWhenPiped(t *testing.T) {
	tests := []struct {
		echo bool
		want string
	}{
		{echo: true, want: "you> typed\n"},
		{echo: false, want: ""},
	}
	for _, tt := range tests {
		env := newTestEnv(t)
		r := &plainREPL{
			deps:      env.deps,
			echo:      tt.echo,
			userLabel: colorless(),
			aiLabel:   colorless(),
			dim:       colorless(),
			alert:     colorless(),
		}
		r.show(models.NewUserMessage("typed", time.Now()))
		if got := env.stdout.String(); got != tt.want {
			t.Errorf("echo=%v: stdout = %q, want %q", tt.echo, got, tt.want)
		}
	}
}
