// Package commands provides CLI commands for gemmy.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/diogo/gemmy/internal/config"
	"github.com/diogo/gemmy/internal/models"
	"github.com/diogo/gemmy/internal/tui"
)

var (
	// Version info (set at build time)
	Version   = "0.1.0"
	BuildTime = "unknown"
)

// errReported marks failures that were already shown to the user
var errReported = errors.New("already reported")

// globalFlags are shared by every command that opens a session
type globalFlags struct {
	model   string
	backend string
	timeout int
	logFile string
}

// apply overlays the flags the user actually passed on cfg
func (g *globalFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	if g.model != "" {
		cfg.DefaultModel = models.ModelFromName(g.model).Name
	}
	if g.backend != "" {
		cfg.Backend = g.backend
	}
	if f := cmd.Flags().Lookup("timeout"); f != nil && f.Changed {
		cfg.TimeoutSeconds = g.timeout
	}
}

type queryFlags struct {
	output string
	file   string
	raw    bool
}

// rootCmd represents the base command
var rootCmd = NewRootCmd(NewDependencies())

// NewRootCmd builds the command tree around deps
func NewRootCmd(deps *Dependencies) *cobra.Command {
	deps = deps.withDefaults()
	gf := &globalFlags{}
	qf := queryFlags{}

	cmd := &cobra.Command{
		Use:   "gemmy [prompt]",
		Short: "Chat with Gemini from the terminal",
		Long: `gemmy sends prompts to the Gemini generative-language API and renders
the answers in your terminal. The API key is read from GEMINI_API_KEY
(or GEMMY_API_KEY), optionally from a .env file.

Examples:
  gemmy chat                        Start interactive chat
  gemmy chat --plain                Line-oriented chat
  gemmy config                      Configure settings
  gemmy "What is Go?"               Send a single query
  gemmy -f prompt.md                Read prompt from file
  cat prompt.md | gemmy             Read prompt from stdin
  gemmy "Hello" -o response.md      Save response to file`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if v, _ := cmd.Flags().GetBool("version"); v {
				fmt.Fprintf(deps.Stdout, "gemmy %s (built %s)\n", Version, BuildTime)
				return nil
			}

			prompt, ok, err := readPrompt(deps, qf.file, args)
			if err != nil {
				return err
			}
			if !ok {
				return cmd.Help()
			}
			return runQuery(cmd, deps, gf, qf, prompt)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&gf.model, "model", "m", "", "Model to use (e.g., gemini-1.5-flash, pro)")
	pf.StringVar(&gf.backend, "backend", "", "Request backend: rest or sdk")
	pf.IntVar(&gf.timeout, "timeout", 0, "Request timeout in seconds, 0 disables it (default from config)")
	pf.StringVar(&gf.logFile, "log-file", "", "Write the request log to this file")

	cmd.Flags().StringVarP(&qf.output, "output", "o", "", "Save response to file")
	cmd.Flags().StringVarP(&qf.file, "file", "f", "", "Read prompt from file")
	cmd.Flags().BoolVar(&qf.raw, "raw", false, "Print the response text without formatting")
	cmd.Flags().BoolP("version", "v", false, "Show version and exit")

	cmd.AddCommand(newChatCmd(deps, gf))
	cmd.AddCommand(NewConfigCmd(deps))
	cmd.AddCommand(newModelsCmd(deps))

	return cmd
}

// readPrompt picks the prompt from --file, piped stdin or the argument, in that order.
// ok is false when none was given.
func readPrompt(deps *Dependencies, file string, args []string) (string, bool, error) {
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", false, fmt.Errorf("failed to read file: %w", err)
		}
		return string(data), true, nil
	}

	if deps.StdinPiped() {
		data, err := io.ReadAll(deps.Stdin)
		if err != nil {
			return "", false, fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), true, nil
	}

	if len(args) > 0 {
		return args[0], true, nil
	}
	return "", false, nil
}

// Execute runs the root command
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintln(os.Stderr, tui.FormatError(err))
		}
		stop()
		os.Exit(1)
	}
}
