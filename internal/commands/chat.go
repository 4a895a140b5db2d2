package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/diogo/gemmy/internal/chat"
	apierrors "github.com/diogo/gemmy/internal/errors"
	"github.com/diogo/gemmy/internal/models"
	"github.com/diogo/gemmy/internal/render"
	"github.com/diogo/gemmy/internal/transcript"
	"github.com/diogo/gemmy/internal/tui"
)

func newChatCmd(deps *Dependencies, gf *globalFlags) *cobra.Command {
	var plain bool

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session",
		Long: `Start an interactive chat session with Gemini.

Messages are kept for the session only. While a request is running the
input is disabled; press Esc to cancel it.

Commands inside the chat:
  /copy           Copy the last answer to the clipboard
  /save <path>    Export the conversation (.md, .json or .html)
  /help           Show the commands
  /exit, /quit    Leave the chat

When stdout is not a terminal, or with --plain, a line-oriented prompt is
used instead of the full-screen interface.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, deps, gf, plain)
		},
	}
	cmd.Flags().BoolVar(&plain, "plain", false, "Use a line-oriented prompt instead of the full-screen interface")

	return cmd
}

func runChat(cmd *cobra.Command, deps *Dependencies, gf *globalFlags, plain bool) error {
	s, err := openSession(cmd.Context(), cmd, deps, gf)
	if err != nil {
		return err
	}
	defer s.Close()

	if plain || !deps.IsTerminal() {
		return runPlainChat(cmd.Context(), s, deps)
	}

	if s.cfg.TUITheme != "" && !render.SetTUITheme(s.cfg.TUITheme) {
		s.logger.Warn("unknown tui theme, keeping default", "theme", s.cfg.TUITheme)
	}
	tui.UpdateTheme()

	return deps.TUI.RunChat(s.ctrl, tui.Options{
		Markdown:        render.FromConfig(s.cfg.Markdown, 80),
		CopyToClipboard: s.cfg.CopyToClipboard,
		WriteClipboard:  deps.WriteClipboard,
	})
}

// plainREPL is the line-oriented chat. Answers reach the screen through the
// controller's observer, failures through its notifier.
type plainREPL struct {
	ctrl *chat.Controller
	deps *Dependencies
	echo bool

	userLabel *color.Color
	aiLabel   *color.Color
	dim       *color.Color
	alert     *color.Color
}

func runPlainChat(ctx context.Context, s *session, deps *Dependencies) error {
	r := &plainREPL{
		ctrl:      s.ctrl,
		deps:      deps,
		echo:      deps.StdinPiped(),
		userLabel: color.New(color.FgCyan, color.Bold),
		aiLabel:   color.New(color.FgMagenta, color.Bold),
		dim:       color.New(color.Faint),
		alert:     color.New(color.FgRed, color.Bold),
	}

	unsubscribe := s.ctrl.Subscribe(r.show)
	defer unsubscribe()
	s.ctrl.SetNotifier(chat.NotifierFunc(r.notify))
	defer s.ctrl.SetNotifier(nil)

	r.dim.Fprintf(deps.Stdout, "Chatting with %s. Type /help for commands.\n", s.ctrl.ModelName())

	scanner := bufio.NewScanner(deps.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		if !r.echo {
			r.userLabel.Fprint(deps.Stdout, "you> ")
		}
		if !scanner.Scan() {
			break
		}
		line := scanner.Text()

		if tui.IsChatCommand(line) {
			if r.command(strings.TrimSpace(line)) {
				return nil
			}
			continue
		}

		out, err := r.ctrl.Submit(ctx, line)
		if errors.Is(err, apierrors.ErrEmptyPrompt) {
			continue
		}
		if err != nil {
			return err
		}
		switch out.Kind {
		case chat.NoAnswer:
			r.dim.Fprintln(deps.Stdout, "(no answer)")
		case chat.Canceled:
			return nil
		}
	}
	return scanner.Err()
}

func (r *plainREPL) show(msg models.Message) {
	out := r.deps.Stdout
	if msg.IsUser() {
		if r.echo {
			r.userLabel.Fprint(out, "you> ")
			fmt.Fprintln(out, msg.Text)
		}
		return
	}
	r.aiLabel.Fprint(out, "gemini> ")
	fmt.Fprintln(out, msg.Text)
}

func (r *plainREPL) notify(err error) {
	r.alert.Fprintln(r.deps.Stderr, apierrors.AlertMessage)
	r.dim.Fprintf(r.deps.Stderr, "  %v\n", err)
	if hint := apierrors.Hint(err); hint != "" {
		r.dim.Fprintf(r.deps.Stderr, "  Hint: %s\n", hint)
	}
}

// command runs a slash command and reports whether the chat should end
func (r *plainREPL) command(input string) bool {
	fields := strings.Fields(input)
	out := r.deps.Stdout

	switch fields[0] {
	case "/exit", "/quit":
		return true
	case "/help":
		fmt.Fprintln(out, "/copy  /save <path>  /help  /exit")
	case "/copy":
		msg, ok := r.ctrl.LastAnswer()
		if !ok {
			r.dim.Fprintln(out, "Nothing to copy yet")
			return false
		}
		if err := r.deps.WriteClipboard(msg.Text); err != nil {
			r.alert.Fprintf(r.deps.Stderr, "Failed to copy: %v\n", err)
			return false
		}
		r.dim.Fprintln(out, "Copied to clipboard")
	case "/save":
		if len(fields) < 2 {
			r.dim.Fprintln(out, "Usage: /save <path>")
			return false
		}
		format, err := transcript.Write(fields[1], r.ctrl.Messages(), transcript.Meta{Model: r.ctrl.ModelName()})
		if err != nil {
			r.alert.Fprintf(r.deps.Stderr, "Failed to save: %v\n", err)
			return false
		}
		r.dim.Fprintf(out, "Saved %s transcript to %s\n", format, fields[1])
	}
	return false
}
