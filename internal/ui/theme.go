package ui

import (
	"os"
	"strings"

	"github.com/gdamore/tcell/v2"

	"github.com/Ashfaaq98/aiops-copilot-console/internal/incident"
)

// Theme defines UI color tokens used across widgets and text tags.
type Theme struct {
	Name string

	// Widget colors
	Surface     tcell.Color
	Border      tcell.Color
	FocusBorder tcell.Color
	SelectionBg tcell.Color
	SelectionFg tcell.Color
	TextPrimary tcell.Color
	TextMuted   tcell.Color
	Accent      tcell.Color

	TableHeader   tcell.Color
	TableHeaderBg tcell.Color

	SeverityCritical tcell.Color
	SeverityHigh     tcell.Color
	SeverityMedium   tcell.Color
	SeverityLow      tcell.Color

	// Text tag colors (for tview dynamic color markup)
	TagTextPrimary      string
	TagMuted            string
	TagAccent           string
	TagSuccess          string
	TagError            string
	TagSeverityCritical string
	TagSeverityHigh     string
	TagSeverityMedium   string
	TagSeverityLow      string
}

// ThemeNames lists the palettes in cycle order.
var ThemeNames = []string{"dark", "light", "high-contrast"}

func hex(s string) tcell.Color { return tcell.GetColor(s) }

func themeDark() Theme {
	return Theme{
		Name:          "dark",
		Surface:       hex("#12161e"),
		Border:        hex("#2b3240"),
		FocusBorder:   hex("#4aa8ff"),
		SelectionBg:   hex("#2b3240"),
		SelectionFg:   hex("#cfd8e3"),
		TextPrimary:   hex("#e6edf3"),
		TextMuted:     hex("#8a939f"),
		Accent:        hex("#2dd4bf"),
		TableHeader:   hex("#eab308"),
		TableHeaderBg: hex("#1a2332"),

		SeverityCritical: hex("#ff5f5f"),
		SeverityHigh:     hex("#ffaf5f"),
		SeverityMedium:   hex("#ffd75f"),
		SeverityLow:      hex("#87afff"),

		TagTextPrimary:      "#e6edf3",
		TagMuted:            "#8a939f",
		TagAccent:           "#2dd4bf",
		TagSuccess:          "#22c55e",
		TagError:            "#ef4444",
		TagSeverityCritical: "#ff5f5f",
		TagSeverityHigh:     "#ffaf5f",
		TagSeverityMedium:   "#ffd75f",
		TagSeverityLow:      "#87afff",
	}
}

func themeLight() Theme {
	return Theme{
		Name:          "light",
		Surface:       hex("#ffffff"),
		Border:        hex("#d0d7de"),
		FocusBorder:   hex("#1f6feb"),
		SelectionBg:   hex("#e2e8f0"),
		SelectionFg:   hex("#111827"),
		TextPrimary:   hex("#111827"),
		TextMuted:     hex("#6b7280"),
		Accent:        hex("#2563eb"),
		TableHeader:   hex("#1f2937"),
		TableHeaderBg: hex("#e5e7eb"),

		SeverityCritical: hex("#b91c1c"),
		SeverityHigh:     hex("#c2410c"),
		SeverityMedium:   hex("#a16207"),
		SeverityLow:      hex("#1d4ed8"),

		TagTextPrimary:      "#111827",
		TagMuted:            "#6b7280",
		TagAccent:           "#2563eb",
		TagSuccess:          "#15803d",
		TagError:            "#b91c1c",
		TagSeverityCritical: "#b91c1c",
		TagSeverityHigh:     "#c2410c",
		TagSeverityMedium:   "#a16207",
		TagSeverityLow:      "#1d4ed8",
	}
}

func themeHighContrast() Theme {
	return Theme{
		Name:          "high-contrast",
		Surface:       hex("#000000"),
		Border:        hex("#ffffff"),
		FocusBorder:   hex("#ffff00"),
		SelectionBg:   hex("#ffffff"),
		SelectionFg:   hex("#000000"),
		TextPrimary:   hex("#ffffff"),
		TextMuted:     hex("#cccccc"),
		Accent:        hex("#00ffff"),
		TableHeader:   hex("#ffffff"),
		TableHeaderBg: hex("#000000"),

		SeverityCritical: hex("#ff0000"),
		SeverityHigh:     hex("#ff8800"),
		SeverityMedium:   hex("#ffff00"),
		SeverityLow:      hex("#00aaff"),

		TagTextPrimary:      "#ffffff",
		TagMuted:            "#cccccc",
		TagAccent:           "#00ffff",
		TagSuccess:          "#00ff00",
		TagError:            "#ff0000",
		TagSeverityCritical: "#ff0000",
		TagSeverityHigh:     "#ff8800",
		TagSeverityMedium:   "#ffff00",
		TagSeverityLow:      "#00aaff",
	}
}

// ThemeByName returns the named palette, defaulting to dark.
// Terminals without 256-color support always get high-contrast.
func ThemeByName(name string) Theme {
	if !detectColorTerm() {
		return themeHighContrast()
	}
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "light":
		return themeLight()
	case "high-contrast":
		return themeHighContrast()
	default:
		return themeDark()
	}
}

func nextThemeName(current string) string {
	for i, n := range ThemeNames {
		if n == current {
			return ThemeNames[(i+1)%len(ThemeNames)]
		}
	}
	return ThemeNames[0]
}

func detectColorTerm() bool {
	ct := strings.ToLower(os.Getenv("COLORTERM"))
	if strings.Contains(ct, "truecolor") || strings.Contains(ct, "24bit") {
		return true
	}
	term := strings.ToLower(os.Getenv("TERM"))
	// Unknown terminals (and tests) get the requested palette.
	return term == "" || strings.Contains(term, "256color") || strings.Contains(term, "truecolor") || strings.Contains(term, "xterm")
}

// SeverityColor returns the widget color for a severity.
func (t Theme) SeverityColor(sev incident.Severity) tcell.Color {
	switch sev {
	case incident.SeverityCritical:
		return t.SeverityCritical
	case incident.SeverityHigh:
		return t.SeverityHigh
	case incident.SeverityMedium:
		return t.SeverityMedium
	case incident.SeverityLow:
		return t.SeverityLow
	default:
		return t.TextPrimary
	}
}

// SeverityTag returns the markup color tag for a severity.
func (t Theme) SeverityTag(sev incident.Severity) string {
	switch sev {
	case incident.SeverityCritical:
		return t.TagSeverityCritical
	case incident.SeverityHigh:
		return t.TagSeverityHigh
	case incident.SeverityMedium:
		return t.TagSeverityMedium
	case incident.SeverityLow:
		return t.TagSeverityLow
	default:
		return t.TagTextPrimary
	}
}
