// Package api provides the generative-language API client implementations.
package api

// GJSON paths for extracting values from generateContent responses.
// Only the first candidate's first part is ever read.
const (
	PathAnswerText   = "candidates.0.content.parts.0.text"
	PathFinishReason = "candidates.0.finishReason"
	PathBlockReason  = "promptFeedback.blockReason"

	// Error envelope returned with non-2xx statuses
	PathErrorMessage = "error.message"
	PathErrorStatus  = "error.status"
)
