package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// setters maps the keys accepted by `gemmy config set` to their parsers
var setters = map[string]func(*Config, string) error{
	"default_model": func(c *Config, v string) error {
		c.DefaultModel = v
		return nil
	},
	"backend": func(c *Config, v string) error {
		c.Backend = strings.ToLower(v)
		return nil
	},
	"base_url": func(c *Config, v string) error {
		c.BaseURL = v
		return nil
	},
	"timeout_seconds": func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("timeout_seconds must be an integer: %w", err)
		}
		c.TimeoutSeconds = n
		return nil
	},
	"verbose":           boolSetter(func(c *Config) *bool { return &c.Verbose }),
	"copy_to_clipboard": boolSetter(func(c *Config) *bool { return &c.CopyToClipboard }),
	"tui_theme": func(c *Config, v string) error {
		c.TUITheme = v
		return nil
	},
	"markdown.style": func(c *Config, v string) error {
		c.Markdown.Style = v
		return nil
	},
	"markdown.enable_emoji":       boolSetter(func(c *Config) *bool { return &c.Markdown.EnableEmoji }),
	"markdown.preserve_newlines":  boolSetter(func(c *Config) *bool { return &c.Markdown.PreserveNewLines }),
	"markdown.table_wrap":         boolSetter(func(c *Config) *bool { return &c.Markdown.TableWrap }),
	"markdown.inline_table_links": boolSetter(func(c *Config) *bool { return &c.Markdown.InlineTableLinks }),
}

func boolSetter(field func(*Config) *bool) func(*Config, string) error {
	return func(c *Config, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("expected true or false, got %q", v)
		}
		*field(c) = b
		return nil
	}
}

// SettableKeys returns the keys accepted by Set, sorted
func SettableKeys() []string {
	keys := make([]string, 0, len(setters))
	for k := range setters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Set assigns value to key and validates the result.
// cfg is left untouched when the key is unknown or the result is invalid.
func Set(cfg *Config, key, value string) error {
	setter, ok := setters[strings.ToLower(key)]
	if !ok {
		return fmt.Errorf("unknown config key %q", key)
	}

	updated := *cfg
	if err := setter(&updated, value); err != nil {
		return err
	}
	if err := updated.Validate(); err != nil {
		return err
	}

	*cfg = updated
	return nil
}
