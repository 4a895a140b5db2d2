package models

// Part is a single piece of prompt or answer content
type Part struct {
	Text string `json:"text"`
}

// Content groups the parts of one turn
type Content struct {
	Parts []Part `json:"parts"`
}

// GenerateRequest is the body of a generateContent call.
// Only the user's literal text is sent; there is no history or system prompt.
type GenerateRequest struct {
	Contents []Content `json:"contents"`
}

// NewGenerateRequest builds a request whose sole content is prompt
func NewGenerateRequest(prompt string) GenerateRequest {
	return GenerateRequest{
		Contents: []Content{{Parts: []Part{{Text: prompt}}}},
	}
}

// Completion is the answer extracted from a generateContent response
type Completion struct {
	Text         string
	FinishReason string
}

// HasText reports whether an answer was found
func (c *Completion) HasText() bool {
	return c != nil && c.Text != ""
}
