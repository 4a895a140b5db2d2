// Package render turns model answers into styled terminal output.
package render

import (
	"os"

	"github.com/diogo/gemmy/internal/config"
)

// Options configures the markdown renderer
type Options struct {
	// Width is the word-wrap column
	Width int
	// Style is a glamour style name, one of our aliases, or a JSON style file
	Style string

	EnableEmoji      bool
	PreserveNewLines bool
	TableWrap        bool
	InlineTableLinks bool
}

// DefaultOptions mirrors config.DefaultMarkdownConfig at 80 columns
func DefaultOptions() Options {
	return FromConfig(config.DefaultMarkdownConfig(), 80)
}

// FromConfig builds Options from the markdown section of the config.
// GLAMOUR_STYLE, when set, wins over the configured style.
func FromConfig(md config.MarkdownConfig, width int) Options {
	opts := Options{
		Width:            width,
		Style:            md.Style,
		EnableEmoji:      md.EnableEmoji,
		PreserveNewLines: md.PreserveNewLines,
		TableWrap:        md.TableWrap,
		InlineTableLinks: md.InlineTableLinks,
	}
	if opts.Style == "" {
		opts.Style = StyleDark
	}
	if env := os.Getenv("GLAMOUR_STYLE"); env != "" {
		opts.Style = env
	}
	return opts
}

// WithWidth returns a copy with the wrap column set
func (o Options) WithWidth(width int) Options {
	o.Width = width
	return o
}

// WithStyle returns a copy with the style set
func (o Options) WithStyle(style string) Options {
	o.Style = style
	return o
}
