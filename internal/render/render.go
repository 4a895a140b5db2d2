package render

import "strings"

// Markdown renders content for the terminal
func Markdown(content string, opts Options) (string, error) {
	renderer, err := globalPool.get(opts)
	if err != nil {
		return "", err
	}
	defer globalPool.put(opts, renderer)

	return renderer.Render(content)
}

// MarkdownOrRaw renders content, falling back to the raw text when the
// renderer fails. Glamour pads its output with blank lines; they are trimmed.
func MarkdownOrRaw(content string, opts Options) string {
	out, err := Markdown(content, opts)
	if err != nil {
		return content
	}
	return strings.Trim(out, "\n")
}
