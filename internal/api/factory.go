package api

import (
	"context"
	"log/slog"

	"github.com/diogo/gemmy/internal/config"
	"github.com/diogo/gemmy/internal/models"
)

// NewCompleter builds the backend selected by cfg
func NewCompleter(ctx context.Context, cfg config.Config, apiKey string, logger *slog.Logger) (Completer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	model := models.ModelFromName(cfg.DefaultModel)

	if cfg.Backend == config.BackendSDK {
		return NewSDKClient(ctx, apiKey,
			WithSDKModel(model),
			WithSDKBaseURL(cfg.BaseURL),
			WithSDKTimeout(cfg.Timeout()),
			WithSDKLogger(logger),
		)
	}

	opts := []ClientOption{
		WithModel(model),
		WithTimeout(cfg.Timeout()),
		WithLogger(logger),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, WithBaseURL(cfg.BaseURL))
	}
	return NewClient(apiKey, opts...)
}
