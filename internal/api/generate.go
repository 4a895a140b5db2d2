package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	http "github.com/bogdanfinn/fhttp"
	"github.com/tidwall/gjson"

	apierrors "github.com/diogo/gemmy/internal/errors"
	"github.com/diogo/gemmy/internal/models"
)

// maxResponseSize caps how much of a response body is read
const maxResponseSize = 8 << 20

// Complete sends prompt as the sole content of a generateContent request
func (c *GeminiClient) Complete(ctx context.Context, prompt string) (*models.Completion, error) {
	if prompt == "" {
		return nil, apierrors.ErrEmptyPrompt
	}
	if c.IsClosed() {
		return nil, apierrors.ErrClientClosed
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	endpoint := c.Endpoint()
	start := time.Now()
	c.logger.Debug("generate request", "endpoint", endpoint, "prompt_len", len(prompt))

	body, err := buildPayload(prompt)
	if err != nil {
		return nil, fmt.Errorf("failed to build payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.requestURL(endpoint), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for key, value := range models.DefaultHeaders() {
		req.Header.Set(key, value)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		err = classifyTransportError(ctx, endpoint, err)
		c.logger.Warn("generate transport failure", "endpoint", endpoint, "error", err, "duration", time.Since(start))
		return nil, err
	}
	defer func() {
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}
	}()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, classifyTransportError(ctx, endpoint, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := apierrors.NewAPIErrorWithBody(resp.StatusCode, endpoint, errorMessage(data), string(data))
		c.logger.Warn("generate failed", "status", resp.StatusCode, "duration", time.Since(start))
		return nil, apiErr
	}

	completion := parseResponse(data)
	c.logger.Debug("generate done",
		"status", resp.StatusCode,
		"answered", completion.HasText(),
		"finish_reason", completion.FinishReason,
		"duration", time.Since(start),
	)
	return completion, nil
}

// requestURL appends the API key to endpoint
func (c *GeminiClient) requestURL(endpoint string) string {
	return endpoint + "?" + url.Values{"key": {c.apiKey}}.Encode()
}

// buildPayload creates the JSON body for prompt
func buildPayload(prompt string) ([]byte, error) {
	return json.Marshal(models.NewGenerateRequest(prompt))
}

// parseResponse extracts the first candidate's first text part.
// Any 2xx body without that path, JSON or not, is an empty Completion.
func parseResponse(body []byte) *models.Completion {
	if !gjson.ValidBytes(body) {
		return &models.Completion{}
	}

	parsed := gjson.ParseBytes(body)
	completion := &models.Completion{
		FinishReason: parsed.Get(PathFinishReason).String(),
	}
	if completion.FinishReason == "" {
		completion.FinishReason = parsed.Get(PathBlockReason).String()
	}

	if text := parsed.Get(PathAnswerText); text.Type == gjson.String {
		completion.Text = text.String()
	}
	return completion
}

// errorMessage pulls a readable message out of an error envelope
func errorMessage(body []byte) string {
	if gjson.ValidBytes(body) {
		if msg := gjson.GetBytes(body, PathErrorMessage).String(); msg != "" {
			return msg
		}
		if status := gjson.GetBytes(body, PathErrorStatus).String(); status != "" {
			return status
		}
	}
	return "generate content failed"
}

// classifyTransportError maps a failed Do into the error taxonomy.
// Cancellation by the caller is returned unchanged.
func classifyTransportError(ctx context.Context, endpoint string, err error) error {
	switch {
	case errors.Is(ctx.Err(), context.Canceled):
		return ctx.Err()
	case errors.Is(ctx.Err(), context.DeadlineExceeded), errors.Is(err, context.DeadlineExceeded):
		return apierrors.NewTimeoutError(endpoint)
	case isTimeout(err):
		return apierrors.NewTimeoutError(endpoint)
	}
	return apierrors.NewNetworkErrorWithEndpoint("generate content", endpoint, err)
}

func isTimeout(err error) bool {
	var te interface{ Timeout() bool }
	if errors.As(err, &te) && te.Timeout() {
		return true
	}
	return strings.Contains(err.Error(), "Client.Timeout exceeded")
}
