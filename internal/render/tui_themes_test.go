package render

import (
	"sort"
	"testing"
)

func TestTUIThemes_Complete(t *testing.T) {
	for _, theme := range AvailableTUIThemes() {
		t.Run(theme.Name, func(t *testing.T) {
			colors := map[string]string{
				"Surface":   string(theme.Surface),
				"Border":    string(theme.Border),
				"Primary":   string(theme.Primary),
				"Secondary": string(theme.Secondary),
				"Accent":    string(theme.Accent),
				"Warning":   string(theme.Warning),
				"Error":     string(theme.Error),
				"Text":      string(theme.Text),
				"TextDim":   string(theme.TextDim),
			}
			for field, value := range colors {
				if value == "" {
					t.Errorf("%s is empty", field)
				}
			}
			if theme.Description == "" {
				t.Error("description is empty")
			}
			if !IsBuiltinStyle(theme.MarkdownStyle) {
				t.Errorf("markdown style %q is not built in", theme.MarkdownStyle)
			}
		})
	}
}

func TestGetTUIThemeByName(t *testing.T) {
	tests := []struct {
		name   string
		wantOK bool
	}{
		{"tokyonight", true},
		{"TokyoNight", true},
		{" dracula ", true},
		{"light", true},
		{"solarized", false},
		{"", false},
	}

	for _, tt := range tests {
		_, ok := GetTUIThemeByName(tt.name)
		if ok != tt.wantOK {
			t.Errorf("GetTUIThemeByName(%q) ok = %v, want %v", tt.name, ok, tt.wantOK)
		}
	}
}

func TestSetTUITheme(t *testing.T) {
	original := GetTUITheme()
	defer SetTUITheme(original.Name)

	if GetTUITheme().Name == "" {
		t.Fatal("a theme should be active by default")
	}

	if !SetTUITheme("nord") {
		t.Fatal("SetTUITheme(nord) failed")
	}
	if GetTUITheme().Name != "nord" {
		t.Errorf("active theme = %s, want nord", GetTUITheme().Name)
	}

	if SetTUITheme("missing") {
		t.Error("unknown theme should be rejected")
	}
	if GetTUITheme().Name != "nord" {
		t.Error("failed SetTUITheme must not change the active theme")
	}
}

func TestTUIThemeNames_Sorted(t *testing.T) {
	names := TUIThemeNames()
	if len(names) != len(AvailableTUIThemes()) {
		t.Fatalf("got %d names", len(names))
	}
	if !sort.StringsAreSorted(names) {
		t.Errorf("names not sorted: %v", names)
	}
}
