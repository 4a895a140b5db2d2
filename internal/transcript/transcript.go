// Package transcript exports a conversation log to Markdown, JSON or HTML.
package transcript

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/diogo/gemmy/internal/models"
)

// Format is an export format
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
	FormatHTML     Format = "html"
)

// Meta describes the exported conversation
type Meta struct {
	// ID identifies the export. A random UUID is used when empty.
	ID         string
	Title      string
	Model      string
	ExportedAt time.Time
}

func (m Meta) withDefaults() Meta {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.Title == "" {
		m.Title = "Gemmy Chat"
	}
	if m.ExportedAt.IsZero() {
		m.ExportedAt = time.Now()
	}
	return m
}

// FormatFromPath picks the export format from the file extension
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown", ".txt":
		return FormatMarkdown, nil
	case ".json":
		return FormatJSON, nil
	case ".html", ".htm":
		return FormatHTML, nil
	case "":
		return "", fmt.Errorf("cannot infer export format from %q: add .md, .json or .html", path)
	}
	return "", fmt.Errorf("unsupported export extension %q", filepath.Ext(path))
}

func roleLabel(s models.Sender) string {
	if s == models.SenderAI {
		return "Assistant"
	}
	return "User"
}

// Markdown renders msgs as a Markdown document
func Markdown(msgs []models.Message, meta Meta) string {
	meta = meta.withDefaults()

	var sb strings.Builder
	sb.WriteString("# " + meta.Title + "\n\n")
	if meta.Model != "" {
		sb.WriteString("**Model:** " + meta.Model + "  \n")
	}
	sb.WriteString("**Exported:** " + meta.ExportedAt.Format("2006-01-02 15:04:05") + "  \n")
	fmt.Fprintf(&sb, "**Messages:** %d\n", len(msgs))

	for _, msg := range msgs {
		sb.WriteString("\n---\n\n## " + roleLabel(msg.Sender))
		if !msg.CreatedAt.IsZero() {
			sb.WriteString(" (" + msg.CreatedAt.Format("15:04:05") + ")")
		}
		sb.WriteString("\n\n")
		sb.WriteString(msg.Text)
		sb.WriteString("\n")
	}
	return sb.String()
}

type jsonMessage struct {
	Sender    models.Sender `json:"sender"`
	Text      string        `json:"text"`
	CreatedAt *time.Time    `json:"created_at,omitempty"`
}

type jsonTranscript struct {
	ID         string        `json:"id"`
	Title      string        `json:"title"`
	Model      string        `json:"model,omitempty"`
	ExportedAt time.Time     `json:"exported_at"`
	Messages   []jsonMessage `json:"messages"`
}

// JSON renders msgs as an indented JSON document
func JSON(msgs []models.Message, meta Meta) ([]byte, error) {
	meta = meta.withDefaults()

	doc := jsonTranscript{
		ID:         meta.ID,
		Title:      meta.Title,
		Model:      meta.Model,
		ExportedAt: meta.ExportedAt,
		Messages:   make([]jsonMessage, len(msgs)),
	}
	for i, msg := range msgs {
		doc.Messages[i] = jsonMessage{Sender: msg.Sender, Text: msg.Text}
		if !msg.CreatedAt.IsZero() {
			created := msg.CreatedAt
			doc.Messages[i].CreatedAt = &created
		}
	}
	return json.MarshalIndent(doc, "", "  ")
}

var markdownConverter = goldmark.New(goldmark.WithExtensions(extension.GFM))

var pageTemplate = template.Must(template.New("transcript").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: system-ui, sans-serif; max-width: 48rem; margin: 2rem auto; padding: 0 1rem; }
pre { background: #f4f4f6; padding: .75rem; overflow-x: auto; }
</style>
</head>
<body>
{{.Body}}
</body>
</html>
`))

// HTML renders the Markdown transcript as a standalone HTML page.
// Raw HTML inside messages is omitted by the converter.
func HTML(msgs []models.Message, meta Meta) ([]byte, error) {
	meta = meta.withDefaults()

	var body bytes.Buffer
	if err := markdownConverter.Convert([]byte(Markdown(msgs, meta)), &body); err != nil {
		return nil, fmt.Errorf("failed to convert transcript: %w", err)
	}

	var page bytes.Buffer
	err := pageTemplate.Execute(&page, struct {
		Title string
		Body  template.HTML
	}{
		Title: meta.Title,
		Body:  template.HTML(body.String()),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render page: %w", err)
	}
	return page.Bytes(), nil
}

// Render produces msgs in the given format
func Render(format Format, msgs []models.Message, meta Meta) ([]byte, error) {
	switch format {
	case FormatMarkdown:
		return []byte(Markdown(msgs, meta)), nil
	case FormatJSON:
		return JSON(msgs, meta)
	case FormatHTML:
		return HTML(msgs, meta)
	}
	return nil, fmt.Errorf("unknown export format %q", format)
}

// Write exports msgs to path, choosing the format by extension
func Write(path string, msgs []models.Message, meta Meta) (Format, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return "", err
	}
	data, err := Render(format, msgs, meta)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write transcript: %w", err)
	}
	return format, nil
}
