package styles

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// RGB is a color with 0-255 float channels.
type RGB struct{ R, G, B float64 }

var hexColorRegex = regexp.MustCompile(`^#[0-9A-Fa-f]{6}([0-9A-Fa-f]{2})?$`)

// IsValidHexColor reports whether s is #RRGGBB or #RRGGBBAA.
func IsValidHexColor(s string) bool { return hexColorRegex.MatchString(s) }

// HexToRGB parses #RRGGBB. Invalid input yields black.
func HexToRGB(hex string) RGB {
	if !IsValidHexColor(hex) {
		return RGB{}
	}
	v, err := strconv.ParseUint(hex[1:7], 16, 32)
	if err != nil {
		return RGB{}
	}
	return RGB{R: float64(v >> 16 & 0xFF), G: float64(v >> 8 & 0xFF), B: float64(v & 0xFF)}
}

// RGBToHex formats c as #RRGGBB.
func RGBToHex(c RGB) string {
	return fmt.Sprintf("#%02X%02X%02X", uint8(math.Round(c.R)), uint8(math.Round(c.G)), uint8(math.Round(c.B)))
}

// ResolveColor maps a persisted color setting to a terminal color. Values
// may be hex colors or the host's theme variable names such as
// "--background-secondary". Unknown values resolve to fallback.
func ResolveColor(value string, fallback lipgloss.Color) lipgloss.Color {
	value = strings.TrimSpace(value)
	if IsValidHexColor(value) {
		return lipgloss.Color(value[:7])
	}
	switch value {
	case "--background-primary":
		return BgPrimary
	case "--background-secondary":
		return BgSecondary
	case "--background-modifier-hover", "--background-tertiary":
		return BgTertiary
	case "--interactive-accent":
		return Primary
	}
	return fallback
}

// ReadableOn returns the text color with the better contrast on bg.
func ReadableOn(bg lipgloss.Color) lipgloss.Color {
	b := HexToRGB(string(bg))
	light, dark := HexToRGB("#F9FAFB"), HexToRGB("#111827")
	if contrastRatio(light, b) >= contrastRatio(dark, b) {
		return lipgloss.Color("#F9FAFB")
	}
	return lipgloss.Color("#111827")
}

func contrastRatio(fg, bg RGB) float64 {
	l1 := relativeLuminance(fg)
	l2 := relativeLuminance(bg)
	if l1 < l2 {
		l1, l2 = l2, l1
	}
	return (l1 + 0.05) / (l2 + 0.05)
}

func relativeLuminance(c RGB) float64 {
	r := linearize(c.R / 255.0)
	g := linearize(c.G / 255.0)
	b := linearize(c.B / 255.0)
	return 0.2126*r + 0.7152*g + 0.0722*b
}

func linearize(v float64) float64 {
	if v <= 0.03928 {
		return v / 12.92
	}
	return math.Pow((v+0.055)/1.055, 2.4)
}
