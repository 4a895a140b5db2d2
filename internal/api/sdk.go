package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	apierrors "github.com/diogo/gemmy/internal/errors"
	"github.com/diogo/gemmy/internal/models"
)

// sdkEndpoint labels SDK errors, which carry no URL of their own
const sdkEndpoint = "genai:" + models.MethodGenerate

// SDKClient sends prompts through the official Go client library
type SDKClient struct {
	client    *genai.Client
	model     *genai.GenerativeModel
	modelName string
	timeout   time.Duration
	logger    *slog.Logger
}

// SDKOption configures an SDKClient
type SDKOption func(*sdkSettings)

type sdkSettings struct {
	model   models.Model
	baseURL string
	timeout time.Duration
	logger  *slog.Logger
}

// WithSDKModel sets the model
func WithSDKModel(model models.Model) SDKOption {
	return func(s *sdkSettings) { s.model = model }
}

// WithSDKBaseURL overrides the API endpoint
func WithSDKBaseURL(baseURL string) SDKOption {
	return func(s *sdkSettings) { s.baseURL = baseURL }
}

// WithSDKTimeout bounds each request. Zero disables the bound.
func WithSDKTimeout(timeout time.Duration) SDKOption {
	return func(s *sdkSettings) { s.timeout = timeout }
}

// WithSDKLogger sets the request logger
func WithSDKLogger(logger *slog.Logger) SDKOption {
	return func(s *sdkSettings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSDKClient creates a client backed by github.com/google/generative-ai-go
func NewSDKClient(ctx context.Context, apiKey string, opts ...SDKOption) (*SDKClient, error) {
	if apiKey == "" {
		return nil, apierrors.ErrMissingAPIKey
	}

	settings := sdkSettings{
		model:   models.DefaultModel,
		timeout: 300 * time.Second,
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(&settings)
	}

	clientOpts := []option.ClientOption{option.WithAPIKey(apiKey)}
	if settings.baseURL != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(settings.baseURL))
	}

	client, err := genai.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &SDKClient{
		client:    client,
		model:     client.GenerativeModel(settings.model.Name),
		modelName: settings.model.Name,
		timeout:   settings.timeout,
		logger:    settings.logger,
	}, nil
}

// ModelName returns the model the client sends prompts to
func (c *SDKClient) ModelName() string {
	return c.modelName
}

// Close releases the underlying client
func (c *SDKClient) Close() error {
	return c.client.Close()
}

// Complete sends prompt as the sole content part
func (c *SDKClient) Complete(ctx context.Context, prompt string) (*models.Completion, error) {
	if prompt == "" {
		return nil, apierrors.ErrEmptyPrompt
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	c.logger.Debug("sdk generate request", "model", c.modelName, "prompt_len", len(prompt))

	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		var blocked *genai.BlockedError
		if errors.As(err, &blocked) {
			// Blocked prompts come back without text, same as an empty REST answer
			c.logger.Debug("sdk generate blocked", "error", err)
			return &models.Completion{FinishReason: blockedReason(blocked)}, nil
		}
		err = classifySDKError(ctx, err)
		c.logger.Warn("sdk generate failed", "error", err, "duration", time.Since(start))
		return nil, err
	}

	completion := completionFromResponse(resp)
	c.logger.Debug("sdk generate done", "answered", completion.HasText(), "duration", time.Since(start))
	return completion, nil
}

// completionFromResponse reads the first candidate's first part
func completionFromResponse(resp *genai.GenerateContentResponse) *models.Completion {
	completion := &models.Completion{}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return completion
	}

	cand := resp.Candidates[0]
	completion.FinishReason = cand.FinishReason.String()
	if cand.Content == nil || len(cand.Content.Parts) == 0 {
		return completion
	}
	if text, ok := cand.Content.Parts[0].(genai.Text); ok {
		completion.Text = string(text)
	}
	return completion
}

func blockedReason(err *genai.BlockedError) string {
	if err.Candidate != nil {
		return err.Candidate.FinishReason.String()
	}
	if err.PromptFeedback != nil {
		return err.PromptFeedback.BlockReason.String()
	}
	return ""
}

// classifySDKError maps library errors into the error taxonomy
func classifySDKError(ctx context.Context, err error) error {
	switch {
	case errors.Is(ctx.Err(), context.Canceled):
		return ctx.Err()
	case errors.Is(ctx.Err(), context.DeadlineExceeded), errors.Is(err, context.DeadlineExceeded):
		return apierrors.NewTimeoutError(sdkEndpoint)
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return apierrors.NewAPIErrorWithBody(gerr.Code, sdkEndpoint, gerr.Message, gerr.Body)
	}

	var coded interface{ HTTPCode() int }
	if errors.As(err, &coded) && coded.HTTPCode() > 0 {
		return apierrors.NewAPIErrorWithBody(coded.HTTPCode(), sdkEndpoint, err.Error(), err.Error())
	}

	return apierrors.NewNetworkErrorWithEndpoint("generate content", sdkEndpoint, err)
}
