package styles

import (
	"sort"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// DefaultThemeName is applied at start-up.
const DefaultThemeName = "dark"

// ColorPalette holds all theme colors as hex strings.
type ColorPalette struct {
	Primary   string
	Secondary string
	Accent    string

	Success string
	Warning string
	Error   string
	Info    string

	TextPrimary   string
	TextSecondary string
	TextMuted     string
	TextSubtle    string

	BgPrimary   string
	BgSecondary string
	BgTertiary  string

	BorderNormal string
	BorderActive string

	ToastSuccessText string
	ToastErrorText   string

	MarkdownTheme string
}

// Theme is a named palette.
type Theme struct {
	Name   string
	Colors ColorPalette
}

var (
	themeMu       sync.RWMutex
	currentTheme  = DefaultThemeName
	themeRegistry = map[string]Theme{
		"dark": {
			Name: "dark",
			Colors: ColorPalette{
				Primary:          "#7C3AED",
				Secondary:        "#3B82F6",
				Accent:           "#F59E0B",
				Success:          "#10B981",
				Warning:          "#F59E0B",
				Error:            "#EF4444",
				Info:             "#3B82F6",
				TextPrimary:      "#F9FAFB",
				TextSecondary:    "#9CA3AF",
				TextMuted:        "#6B7280",
				TextSubtle:       "#4B5563",
				BgPrimary:        "#111827",
				BgSecondary:      "#1F2937",
				BgTertiary:       "#374151",
				BorderNormal:     "#374151",
				BorderActive:     "#7C3AED",
				ToastSuccessText: "#000000",
				ToastErrorText:   "#FFFFFF",
				MarkdownTheme:    "dark",
			},
		},
		"light": {
			Name: "light",
			Colors: ColorPalette{
				Primary:          "#6D28D9",
				Secondary:        "#2563EB",
				Accent:           "#D97706",
				Success:          "#059669",
				Warning:          "#D97706",
				Error:            "#DC2626",
				Info:             "#2563EB",
				TextPrimary:      "#111827",
				TextSecondary:    "#374151",
				TextMuted:        "#6B7280",
				TextSubtle:       "#9CA3AF",
				BgPrimary:        "#FFFFFF",
				BgSecondary:      "#F3F4F6",
				BgTertiary:       "#E5E7EB",
				BorderNormal:     "#D1D5DB",
				BorderActive:     "#6D28D9",
				ToastSuccessText: "#FFFFFF",
				ToastErrorText:   "#FFFFFF",
				MarkdownTheme:    "light",
			},
		},
	}
)

// ListThemes returns the registered theme names.
func ListThemes() []string {
	themeMu.RLock()
	defer themeMu.RUnlock()
	names := make([]string, 0, len(themeRegistry))
	for name := range themeRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CurrentThemeName returns the applied theme.
func CurrentThemeName() string {
	themeMu.RLock()
	defer themeMu.RUnlock()
	return currentTheme
}

// ApplyTheme switches the palette and rebuilds all styles. Unknown names
// fall back to the default theme.
func ApplyTheme(name string) {
	themeMu.Lock()
	defer themeMu.Unlock()
	t, ok := themeRegistry[name]
	if !ok {
		t = themeRegistry[DefaultThemeName]
	}
	currentTheme = t.Name
	applyPalette(t.Colors)
	rebuild()
}

func applyPalette(c ColorPalette) {
	Primary = lipgloss.Color(c.Primary)
	Secondary = lipgloss.Color(c.Secondary)
	Accent = lipgloss.Color(c.Accent)
	Success = lipgloss.Color(c.Success)
	Warning = lipgloss.Color(c.Warning)
	Error = lipgloss.Color(c.Error)
	Info = lipgloss.Color(c.Info)
	TextPrimary = lipgloss.Color(c.TextPrimary)
	TextSecondary = lipgloss.Color(c.TextSecondary)
	TextMuted = lipgloss.Color(c.TextMuted)
	TextSubtle = lipgloss.Color(c.TextSubtle)
	BgPrimary = lipgloss.Color(c.BgPrimary)
	BgSecondary = lipgloss.Color(c.BgSecondary)
	BgTertiary = lipgloss.Color(c.BgTertiary)
	BorderNormal = lipgloss.Color(c.BorderNormal)
	BorderActive = lipgloss.Color(c.BorderActive)
	ToastSuccessTextColor = lipgloss.Color(c.ToastSuccessText)
	ToastErrorTextColor = lipgloss.Color(c.ToastErrorText)
	CurrentMarkdownTheme = c.MarkdownTheme
}
