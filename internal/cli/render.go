package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Colors follow the app's light and dark palettes; lipgloss picks one from
// the terminal background.
var (
	ColorBorder    = lipgloss.AdaptiveColor{Light: "#CCCCCC", Dark: "#333333"}
	ColorTextDim   = lipgloss.AdaptiveColor{Light: "#999999", Dark: "#666666"}
	ColorTextMuted = lipgloss.AdaptiveColor{Light: "#666666", Dark: "#999999"}
	ColorText      = lipgloss.AdaptiveColor{Light: "#000000", Dark: "#FFFFFF"}
	ColorAccent    = lipgloss.AdaptiveColor{Light: "#2980B9", Dark: "#3498DB"}
	ColorMet       = lipgloss.AdaptiveColor{Light: "#27AE60", Dark: "#2ECC71"}
	ColorCalories  = lipgloss.AdaptiveColor{Light: "#D35400", Dark: "#E67E22"}
	ColorWarning   = lipgloss.AdaptiveColor{Light: "#C0392B", Dark: "#E74C3C"}
	ColorWater     = lipgloss.AdaptiveColor{Light: "#2980B9", Dark: "#3498DB"}
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorText).
			Align(lipgloss.Center)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorAccent)

	valueStyle = lipgloss.NewStyle().
			Foreground(ColorText)

	mutedStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted)

	waterStyle = lipgloss.NewStyle().
			Foreground(ColorWater)

	calorieStyle = lipgloss.NewStyle().
			Foreground(ColorCalories)

	metStyle = lipgloss.NewStyle().
			Foreground(ColorMet)

	dimStyle = lipgloss.NewStyle().
			Foreground(ColorTextDim)
)

// Table represents a bordered text table for CLI output.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
	Widths  []int // optional; computed from content when nil
}

// RenderTitle renders a centered title bar in a bordered box.
func RenderTitle(title string) string {
	width := 55
	border := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorBorder).
		Width(width).
		Align(lipgloss.Center).
		Padding(0, 1)

	return border.Render(titleStyle.Render(title))
}

// RenderTable renders a bordered table with headers and rows. The first
// column is left-aligned, the rest right-aligned. A row holding the single
// cell "---" renders as a separator.
func RenderTable(t Table) string {
	if len(t.Rows) == 0 && len(t.Headers) == 0 {
		return ""
	}

	cols := len(t.Headers)
	if cols == 0 {
		cols = len(t.Rows[0])
	}
	widths := columnWidths(t, cols)

	var b strings.Builder
	if t.Title != "" {
		b.WriteString("  " + headerStyle.Render(t.Title) + "\n")
	}

	b.WriteString(rule(widths, "╭", "┬", "╮"))
	if len(t.Headers) > 0 {
		b.WriteString(row(t.Headers, widths, headerStyle, false))
		b.WriteString(rule(widths, "├", "┼", "┤"))
	}
	for _, r := range t.Rows {
		if len(r) == 1 && r[0] == "---" {
			b.WriteString(rule(widths, "├", "┼", "┤"))
			continue
		}
		b.WriteString(row(r, widths, valueStyle, true))
	}
	b.WriteString(rule(widths, "╰", "┴", "╯"))
	return b.String()
}

func columnWidths(t Table, cols int) []int {
	widths := make([]int, cols)
	if t.Widths != nil {
		copy(widths, t.Widths)
		return widths
	}
	grow := func(cells []string) {
		for i, c := range cells {
			if i < cols && lipgloss.Width(c) > widths[i] {
				widths[i] = lipgloss.Width(c)
			}
		}
	}
	grow(t.Headers)
	for _, r := range t.Rows {
		grow(r)
	}
	return widths
}

func rule(widths []int, left, mid, right string) string {
	segs := make([]string, len(widths))
	for i, w := range widths {
		segs[i] = strings.Repeat("─", w+2)
	}
	return dimStyle.Render(left+strings.Join(segs, mid)+right) + "\n"
}

func row(cells []string, widths []int, style lipgloss.Style, alignNumbers bool) string {
	sep := dimStyle.Render("│")
	var b strings.Builder
	b.WriteString(sep)
	for i, w := range widths {
		cell := ""
		if i < len(cells) {
			cell = cells[i]
		}
		pad := strings.Repeat(" ", max(w-lipgloss.Width(cell), 0))
		if alignNumbers && i > 0 {
			cell = pad + cell
		} else {
			cell += pad
		}
		b.WriteString(style.Render(" " + cell + " "))
		b.WriteString(sep)
	}
	b.WriteString("\n")
	return b.String()
}

// RenderKV renders aligned "label  value" lines under an optional heading.
func RenderKV(heading string, pairs [][2]string) string {
	width := 0
	for _, p := range pairs {
		width = max(width, lipgloss.Width(p[0]))
	}
	var b strings.Builder
	if heading != "" {
		b.WriteString("  " + headerStyle.Render(heading) + "\n")
	}
	for _, p := range pairs {
		pad := strings.Repeat(" ", width-lipgloss.Width(p[0]))
		b.WriteString("  " + mutedStyle.Render(p[0]) + pad + "  " + valueStyle.Render(p[1]) + "\n")
	}
	return b.String()
}

// Muted renders s in the muted text color.
func Muted(s string) string { return mutedStyle.Render(s) }

// Warn renders s in the warning color.
func Warn(s string) string { return lipgloss.NewStyle().Foreground(ColorWarning).Render(s) }

// Meter selects the color of a goal bar.
type Meter int

// Meter kinds.
const (
	MeterWater Meter = iota
	MeterCalories
)

// RenderGoalBar renders a goal progress bar for a 0-100 percentage followed
// by "observed / goal". A full bar is drawn in the "goal met" color.
func RenderGoalBar(pct float64, observed, goal string, width int, kind Meter) string {
	if width <= 0 {
		return ""
	}
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	filled := int(pct / 100 * float64(width))

	style := waterStyle
	if kind == MeterCalories {
		style = calorieStyle
	}
	if pct >= 100 {
		style = metStyle
	}

	bar := style.Render(strings.Repeat("█", filled)) + dimStyle.Render(strings.Repeat("░", width-filled))
	return fmt.Sprintf("[%s] %4s  %s / %s", bar, FormatPercent(pct), observed, mutedStyle.Render(goal))
}

// RenderSparkline generates a unicode block sparkline from a series of values.
func RenderSparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}

	blocks := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	peak := values[0]
	for _, v := range values[1:] {
		if v > peak {
			peak = v
		}
	}
	if peak == 0 {
		peak = 1
	}

	var b strings.Builder
	for _, v := range values {
		idx := int(v / peak * float64(len(blocks)-1))
		if idx >= len(blocks) {
			idx = len(blocks) - 1
		}
		if idx < 0 {
			idx = 0
		}
		b.WriteRune(blocks[idx])
	}

	return b.String()
}

// RenderHorizontalBar renders a label followed by a bar scaled to maxValue.
func RenderHorizontalBar(label string, value, maxValue float64, maxWidth int) string {
	if maxValue <= 0 {
		return "  " + label
	}
	barLen := int(value / maxValue * float64(maxWidth))
	if barLen < 0 {
		barLen = 0
	}
	return fmt.Sprintf("  %s %s", label, headerStyle.Render(strings.Repeat("█", barLen)))
}
