package models

import "time"

// Sender identifies who authored a chat message
type Sender string

const (
	SenderUser Sender = "user"
	SenderAI   Sender = "ai"
)

// Message is a single entry of the conversation log.
// Messages are values: once appended to a log they are never modified.
type Message struct {
	Text      string    `json:"text"`
	Sender    Sender    `json:"sender"`
	CreatedAt time.Time `json:"created_at"`
}

// NewUserMessage creates a message authored by the user at the given time
func NewUserMessage(text string, at time.Time) Message {
	return Message{Text: text, Sender: SenderUser, CreatedAt: at}
}

// NewAIMessage creates a message carrying a model answer
func NewAIMessage(text string, at time.Time) Message {
	return Message{Text: text, Sender: SenderAI, CreatedAt: at}
}

// IsUser reports whether the message was sent by the user
func (m Message) IsUser() bool {
	return m.Sender == SenderUser
}
