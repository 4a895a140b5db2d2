package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/diogo/gemmy/internal/api"
	"github.com/diogo/gemmy/internal/chat"
	"github.com/diogo/gemmy/internal/config"
	"github.com/diogo/gemmy/internal/logging"
)

// session is everything a conversation needs, built once per command run
type session struct {
	cfg       config.Config
	ctrl      *chat.Controller
	completer api.Completer
	logger    *slog.Logger
	logCloser io.Closer
}

// openSession resolves configuration and the API key, then builds the
// completion backend and its controller. Nothing is shown on screen before
// this succeeds, so a missing key stops the program before any UI starts.
func openSession(ctx context.Context, cmd *cobra.Command, deps *Dependencies, gf *globalFlags) (*session, error) {
	config.LoadDotEnv()

	cfg, err := deps.LoadConfig()
	if err != nil {
		fmt.Fprintf(deps.Stderr, "Warning: %v (using defaults)\n", err)
		cfg = config.DefaultConfig()
	}
	config.ApplyEnv(&cfg)
	gf.apply(cmd, &cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	apiKey, err := deps.APIKey()
	if err != nil {
		return nil, err
	}

	logger, logCloser, err := openLogger(cfg, gf.logFile)
	if err != nil {
		return nil, err
	}

	completer, err := deps.NewCompleter(ctx, cfg, apiKey, logger)
	if err != nil {
		logCloser.Close()
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	logger.Debug("session opened", "model", completer.ModelName(), "backend", cfg.Backend)

	return &session{
		cfg:       cfg,
		ctrl:      chat.NewController(completer, chat.WithLogger(logger)),
		completer: completer,
		logger:    logger,
		logCloser: logCloser,
	}, nil
}

// Close releases the backend and the log file
func (s *session) Close() error {
	return errors.Join(s.completer.Close(), s.logCloser.Close())
}

// openLogger enables the file log when verbose is on or a path was given
func openLogger(cfg config.Config, logFile string) (*slog.Logger, io.Closer, error) {
	opts := logging.Options{
		Enabled: cfg.Verbose || logFile != "",
		Path:    logFile,
		Level:   "info",
	}
	if cfg.Verbose {
		opts.Level = "debug"
	}
	if opts.Enabled && opts.Path == "" {
		path, err := config.GetLogPath()
		if err != nil {
			return nil, nil, err
		}
		opts.Path = path
	}
	return logging.New(opts)
}
