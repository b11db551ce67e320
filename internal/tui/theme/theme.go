// Package theme holds the dashboard palettes. Names match the app's theme
// preference (light, dark, system) so a synced preference applies directly.
package theme

import "github.com/charmbracelet/lipgloss"

// Theme maps UI roles to colors.
type Theme struct {
	Name string

	Background   lipgloss.Color
	Surface      lipgloss.Color // cards and bars
	Selected     lipgloss.Color // active tab, focused settings row
	Border       lipgloss.Color
	Focus        lipgloss.Color // help and setup frames
	TextDim      lipgloss.Color
	TextMuted    lipgloss.Color
	TextPrimary  lipgloss.Color
	Accent       lipgloss.Color
	AccentBright lipgloss.Color
	Highlight    lipgloss.Color // key hints, event types

	Water    lipgloss.Color
	Calories lipgloss.Color
	Tasks    lipgloss.Color
	Goal     lipgloss.Color // goal lines on charts

	Success lipgloss.Color
	Warning lipgloss.Color
}

// GoalColor returns metric while pct is below 100 and Success after.
func (t Theme) GoalColor(pct float64, metric lipgloss.Color) lipgloss.Color {
	if pct >= 100 {
		return t.Success
	}
	return metric
}

// System is the theme name that follows the terminal background.
const System = "system"

// Dark mirrors the app's dark mode: black screens, #1A1A1A cards.
var Dark = Theme{
	Name:         "dark",
	Background:   lipgloss.Color("#000000"),
	Surface:      lipgloss.Color("#1A1A1A"),
	Selected:     lipgloss.Color("#2A2A2A"),
	Border:       lipgloss.Color("#333333"),
	Focus:        lipgloss.Color("#3498DB"),
	TextDim:      lipgloss.Color("#666666"),
	TextMuted:    lipgloss.Color("#999999"),
	TextPrimary:  lipgloss.Color("#FFFFFF"),
	Accent:       lipgloss.Color("#3498DB"),
	AccentBright: lipgloss.Color("#5DADE2"),
	Highlight:    lipgloss.Color("#48C9B0"),
	Water:        lipgloss.Color("#3498DB"),
	Calories:     lipgloss.Color("#E67E22"),
	Tasks:        lipgloss.Color("#2ECC71"),
	Goal:         lipgloss.Color("#F1C40F"),
	Success:      lipgloss.Color("#4CAF50"),
	Warning:      lipgloss.Color("#E74C3C"),
}

// Light mirrors the app's light mode: white screens, #F5F5F5 cards.
var Light = Theme{
	Name:         "light",
	Background:   lipgloss.Color("#FFFFFF"),
	Surface:      lipgloss.Color("#F5F5F5"),
	Selected:     lipgloss.Color("#E0E0E0"),
	Border:       lipgloss.Color("#CCCCCC"),
	Focus:        lipgloss.Color("#2980B9"),
	TextDim:      lipgloss.Color("#999999"),
	TextMuted:    lipgloss.Color("#666666"),
	TextPrimary:  lipgloss.Color("#000000"),
	Accent:       lipgloss.Color("#2980B9"),
	AccentBright: lipgloss.Color("#1F618D"),
	Highlight:    lipgloss.Color("#16A085"),
	Water:        lipgloss.Color("#2980B9"),
	Calories:     lipgloss.Color("#D35400"),
	Tasks:        lipgloss.Color("#27AE60"),
	Goal:         lipgloss.Color("#B7950B"),
	Success:      lipgloss.Color("#2E7D32"),
	Warning:      lipgloss.Color("#C0392B"),
}

// Terminal uses the 16 ANSI colors so the terminal's own palette applies.
var Terminal = Theme{
	Name:         "terminal",
	Background:   lipgloss.Color("0"),
	Surface:      lipgloss.Color("0"),
	Selected:     lipgloss.Color("8"),
	Border:       lipgloss.Color("8"),
	Focus:        lipgloss.Color("6"),
	TextDim:      lipgloss.Color("8"),
	TextMuted:    lipgloss.Color("7"),
	TextPrimary:  lipgloss.Color("15"),
	Accent:       lipgloss.Color("6"),
	AccentBright: lipgloss.Color("14"),
	Highlight:    lipgloss.Color("14"),
	Water:        lipgloss.Color("4"),
	Calories:     lipgloss.Color("3"),
	Tasks:        lipgloss.Color("2"),
	Goal:         lipgloss.Color("11"),
	Success:      lipgloss.Color("10"),
	Warning:      lipgloss.Color("1"),
}

// All lists the concrete palettes.
var All = []Theme{Dark, Light, Terminal}

// Active is the palette used by every renderer.
var Active = Dark

// hasDarkBackground is swapped in tests.
var hasDarkBackground = lipgloss.HasDarkBackground

// Names lists the selectable theme names, System first.
func Names() []string {
	names := []string{System}
	for _, t := range All {
		names = append(names, t.Name)
	}
	return names
}

// Lookup reports whether name is selectable and returns its palette.
// System resolves against the terminal background.
func Lookup(name string) (Theme, bool) {
	if name == System {
		if hasDarkBackground() {
			return Dark, true
		}
		return Light, true
	}
	for _, t := range All {
		if t.Name == name {
			return t, true
		}
	}
	return Theme{}, false
}

// ByName is Lookup with Dark for unknown names.
func ByName(name string) Theme {
	if t, ok := Lookup(name); ok {
		return t
	}
	return Dark
}

// SetActive switches Active to the named palette.
func SetActive(name string) {
	Active = ByName(name)
}
