package render

import (
	"strings"

	"github.com/charmbracelet/glamour/styles"
)

// Style names accepted in the markdown.style setting
const (
	StyleDark       = styles.DarkStyle
	StyleLight      = styles.LightStyle
	StyleDracula    = styles.DraculaStyle
	StyleTokyoNight = styles.TokyoNightStyle
	StylePink       = styles.PinkStyle
	StyleNoTTY      = styles.NoTTYStyle
	StyleASCII      = styles.AsciiStyle
)

// styleAliases maps the TUI theme spellings onto glamour styles
var styleAliases = map[string]string{
	"tokyonight": StyleTokyoNight,
	"catppuccin": StyleDark,
	"nord":       StyleDark,
	"plain":      StyleNoTTY,
}

// StyleInfo describes a markdown style for listings
type StyleInfo struct {
	Name        string
	Description string
}

// AvailableStyles lists the built-in markdown styles
func AvailableStyles() []StyleInfo {
	return []StyleInfo{
		{Name: StyleDark, Description: "Dark terminals (default)"},
		{Name: StyleLight, Description: "Light terminals"},
		{Name: StyleTokyoNight, Description: "Tokyo Night colors"},
		{Name: StyleDracula, Description: "Dracula colors"},
		{Name: StylePink, Description: "Pink accents"},
		{Name: StyleNoTTY, Description: "No colors"},
		{Name: StyleASCII, Description: "ASCII only"},
	}
}

// IsBuiltinStyle reports whether name resolves to a bundled glamour style
func IsBuiltinStyle(name string) bool {
	_, ok := styles.DefaultStyles[ResolveStyle(name)]
	return ok
}

// ResolveStyle maps aliases to glamour style names. Anything else, such as
// a path to a JSON style file, is returned as given.
func ResolveStyle(name string) string {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return StyleDark
	}
	if alias, ok := styleAliases[key]; ok {
		return alias
	}
	if _, ok := styles.DefaultStyles[key]; ok {
		return key
	}
	return name
}
