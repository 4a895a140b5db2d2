package render

import (
	"sort"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// TUITheme is the color palette of the chat screen
type TUITheme struct {
	Name        string
	Description string
	// MarkdownStyle is the glamour style that fits the palette
	MarkdownStyle string

	Surface lipgloss.Color
	Border  lipgloss.Color

	Primary   lipgloss.Color // header, user bubbles
	Secondary lipgloss.Color // ai label
	Accent    lipgloss.Color // spinner, focus
	Warning   lipgloss.Color
	Error     lipgloss.Color // alert modal

	Text    lipgloss.Color
	TextDim lipgloss.Color
}

// DefaultTUITheme is used when the configured theme is unknown
const DefaultTUITheme = "tokyonight"

var tuiThemes = map[string]TUITheme{
	"tokyonight": {
		Name:          "tokyonight",
		Description:   "Tokyo Night, blue accents",
		MarkdownStyle: StyleTokyoNight,
		Surface:       "#24283b",
		Border:        "#414868",
		Primary:       "#7aa2f7",
		Secondary:     "#9ece6a",
		Accent:        "#bb9af7",
		Warning:       "#e0af68",
		Error:         "#f7768e",
		Text:          "#c0caf5",
		TextDim:       "#565f89",
	},
	"catppuccin": {
		Name:          "catppuccin",
		Description:   "Catppuccin Mocha, pastel",
		MarkdownStyle: StyleDark,
		Surface:       "#313244",
		Border:        "#45475a",
		Primary:       "#89b4fa",
		Secondary:     "#a6e3a1",
		Accent:        "#cba6f7",
		Warning:       "#f9e2af",
		Error:         "#f38ba8",
		Text:          "#cdd6f4",
		TextDim:       "#6c7086",
	},
	"nord": {
		Name:          "nord",
		Description:   "Nord, cool tones",
		MarkdownStyle: StyleDark,
		Surface:       "#3b4252",
		Border:        "#4c566a",
		Primary:       "#88c0d0",
		Secondary:     "#a3be8c",
		Accent:        "#b48ead",
		Warning:       "#ebcb8b",
		Error:         "#bf616a",
		Text:          "#eceff4",
		TextDim:       "#7b88a1",
	},
	"dracula": {
		Name:          "dracula",
		Description:   "Dracula, vibrant",
		MarkdownStyle: StyleDracula,
		Surface:       "#44475a",
		Border:        "#6272a4",
		Primary:       "#8be9fd",
		Secondary:     "#50fa7b",
		Accent:        "#ff79c6",
		Warning:       "#f1fa8c",
		Error:         "#ff5555",
		Text:          "#f8f8f2",
		TextDim:       "#6272a4",
	},
	"light": {
		Name:          "light",
		Description:   "For light terminals",
		MarkdownStyle: StyleLight,
		Surface:       "#e9e9ed",
		Border:        "#a8a8b3",
		Primary:       "#2e59c9",
		Secondary:     "#2f7d32",
		Accent:        "#8a3ffc",
		Warning:       "#a15c00",
		Error:         "#c62828",
		Text:          "#1f1f28",
		TextDim:       "#6b6b78",
	},
}

var (
	themeMu      sync.RWMutex
	currentTheme = tuiThemes[DefaultTUITheme]
)

// GetTUITheme returns the active theme
func GetTUITheme() TUITheme {
	themeMu.RLock()
	defer themeMu.RUnlock()
	return currentTheme
}

// SetTUITheme activates the named theme. Unknown names leave it unchanged.
func SetTUITheme(name string) bool {
	theme, ok := GetTUIThemeByName(name)
	if !ok {
		return false
	}
	themeMu.Lock()
	currentTheme = theme
	themeMu.Unlock()
	return true
}

// GetTUIThemeByName looks a theme up, ignoring case
func GetTUIThemeByName(name string) (TUITheme, bool) {
	theme, ok := tuiThemes[strings.ToLower(strings.TrimSpace(name))]
	return theme, ok
}

// AvailableTUIThemes returns all themes sorted by name
func AvailableTUIThemes() []TUITheme {
	themes := make([]TUITheme, 0, len(tuiThemes))
	for _, t := range tuiThemes {
		themes = append(themes, t)
	}
	sort.Slice(themes, func(i, j int) bool { return themes[i].Name < themes[j].Name })
	return themes
}

// TUIThemeNames returns the sorted theme names
func TUIThemeNames() []string {
	themes := AvailableTUIThemes()
	names := make([]string, len(themes))
	for i, t := range themes {
		names[i] = t.Name
	}
	return names
}
