package api

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	http "github.com/bogdanfinn/fhttp"
	tls_client "github.com/bogdanfinn/tls-client"
	"github.com/bogdanfinn/tls-client/profiles"

	apierrors "github.com/diogo/gemmy/internal/errors"
	"github.com/diogo/gemmy/internal/models"
)

// Completer sends a single prompt and returns the extracted answer.
// A nil error with an empty Completion means the service produced no answer.
type Completer interface {
	Complete(ctx context.Context, prompt string) (*models.Completion, error)
	ModelName() string
	Close() error
}

// Doer is the part of an HTTP client the REST backend needs.
// tls_client.HttpClient satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// idleCloser is implemented by clients that pool connections
type idleCloser interface {
	CloseIdleConnections()
}

// GeminiClient talks to the generateContent REST endpoint
type GeminiClient struct {
	httpClient Doer
	apiKey     string
	baseURL    string
	model      models.Model
	timeout    time.Duration
	logger     *slog.Logger
	mu         sync.RWMutex
	closed     bool
}

// ClientOption is a function that configures the client
type ClientOption func(*GeminiClient)

// WithModel sets the model for the client
func WithModel(model models.Model) ClientOption {
	return func(c *GeminiClient) {
		c.model = model
	}
}

// WithBaseURL overrides the API host
func WithBaseURL(baseURL string) ClientOption {
	return func(c *GeminiClient) {
		c.baseURL = baseURL
	}
}

// WithTimeout bounds each request. Zero disables the bound.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *GeminiClient) {
		c.timeout = timeout
	}
}

// WithHTTPClient injects the transport (used by tests)
func WithHTTPClient(httpClient Doer) ClientOption {
	return func(c *GeminiClient) {
		c.httpClient = httpClient
	}
}

// WithLogger sets the request logger
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *GeminiClient) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a new GeminiClient for apiKey
func NewClient(apiKey string, opts ...ClientOption) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, apierrors.ErrMissingAPIKey
	}

	client := &GeminiClient{
		apiKey:  apiKey,
		baseURL: models.DefaultBaseURL,
		model:   models.DefaultModel,
		timeout: 300 * time.Second,
		logger:  slog.New(slog.DiscardHandler),
	}

	for _, opt := range opts {
		opt(client)
	}

	if client.httpClient == nil {
		// The context deadline enforces the configured timeout, the transport
		// timeout is only a backstop.
		options := []tls_client.HttpClientOption{
			tls_client.WithTimeoutSeconds(int(client.timeout / time.Second)),
			tls_client.WithClientProfile(profiles.Chrome_120),
			tls_client.WithNotFollowRedirects(),
		}

		httpClient, err := tls_client.NewHttpClient(tls_client.NewNoopLogger(), options...)
		if err != nil {
			return nil, fmt.Errorf("failed to create HTTP client: %w", err)
		}
		client.httpClient = httpClient
	}

	return client, nil
}

// ModelName returns the model the client sends prompts to
func (c *GeminiClient) ModelName() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.model.Name
}

// Endpoint returns the generate URL without the API key
func (c *GeminiClient) Endpoint() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return models.GenerateEndpoint(c.baseURL, c.model)
}

// IsClosed returns whether the client is closed
func (c *GeminiClient) IsClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// Close releases pooled connections. Later requests fail.
func (c *GeminiClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	if ic, ok := c.httpClient.(idleCloser); ok {
		ic.CloseIdleConnections()
	}
	return nil
}
