package components

import (
	"fmt"
	"math"
	"strings"

	"github.com/productivity-nox/noxstat/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

var sparkBlocks = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// Sparkline renders a unicode sparkline from values.
func Sparkline(values []float64, color lipgloss.Color) string {
	if len(values) == 0 {
		return ""
	}
	peak := 0.0
	for _, v := range values {
		peak = math.Max(peak, v)
	}
	if peak == 0 {
		peak = 1
	}

	var buf strings.Builder
	for _, v := range values {
		idx := int(v / peak * float64(len(sparkBlocks)-1))
		idx = max(0, min(idx, len(sparkBlocks)-1))
		buf.WriteRune(sparkBlocks[idx])
	}
	return lipgloss.NewStyle().Foreground(color).Background(theme.Active.Surface).Render(buf.String())
}

// yScale is the vertical layout of a bar chart.
type yScale struct {
	ceiling    float64
	rows       int
	tickLabels map[int]string // row -> label
	labelWidth int
}

// newYScale picks a tick step near maxVal/5, doubles it until the ticks fit
// in height/2 intervals, and spreads the intervals over at least two rows
// each.
func newYScale(maxVal float64, height int) yScale {
	step := chartTickStep(maxVal)
	maxIntervals := max(height/2, 2)
	for int(math.Ceil(maxVal/step)) > maxIntervals {
		step *= 2
	}
	ceiling := math.Ceil(maxVal/step) * step
	intervals := max(int(math.Round(ceiling/step)), 1)
	rowsPerTick := max(height/intervals, 2)

	sc := yScale{
		ceiling:    ceiling,
		rows:       rowsPerTick * intervals,
		tickLabels: make(map[int]string, intervals),
		labelWidth: max(len(formatChartLabel(ceiling))+1, 4),
	}
	for i := 1; i <= intervals; i++ {
		sc.tickLabels[i*rowsPerTick] = formatChartLabel(step * float64(i))
	}
	return sc
}

// BarChart renders a bar chart with gradient-style coloring. A positive
// goal draws a dotted reference line through the empty cells at that level
// and always fits on the Y axis.
func BarChart(values []float64, labels []string, color lipgloss.Color, width, height int, goal float64) string {
	if len(values) == 0 {
		return ""
	}
	if width < 15 || height < 3 {
		return Sparkline(values, color)
	}
	t := theme.Active

	maxVal := goal
	for _, v := range values {
		maxVal = math.Max(maxVal, v)
	}
	if maxVal == 0 {
		maxVal = 1
	}
	sc := newYScale(maxVal, height)

	chartW := max(width-sc.labelWidth-1, 5)
	values, labels, barW, gap := fitBars(values, labels, chartW)
	n := len(values)
	axisLen := n*barW + max(0, n-1)*gap

	surface := lipgloss.NewStyle().Background(t.Surface)
	axisStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	goalStyle := lipgloss.NewStyle().Foreground(t.Goal).Background(t.Surface)
	partial := []rune{' ', '▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	var b strings.Builder
	for row := sc.rows; row >= 1; row-- {
		top := sc.ceiling * float64(row) / float64(sc.rows)
		bottom := sc.ceiling * float64(row-1) / float64(sc.rows)

		barColor := t.Accent
		switch level := float64(row) / float64(sc.rows); {
		case level > 0.8:
			barColor = t.AccentBright
		case level > 0.5:
			barColor = color
		}
		barStyle := lipgloss.NewStyle().Foreground(barColor).Background(t.Surface)

		b.WriteString(axisStyle.Render(fmt.Sprintf("%*s│", sc.labelWidth, sc.tickLabels[row])))
		for i, v := range values {
			if i > 0 && gap > 0 {
				b.WriteString(surface.Render(strings.Repeat(" ", gap)))
			}
			switch {
			case v >= top:
				b.WriteString(barStyle.Render(strings.Repeat("█", barW)))
			case v > bottom:
				idx := max(1, min(int((v-bottom)/(top-bottom)*8), 8))
				b.WriteString(barStyle.Render(strings.Repeat(string(partial[idx]), barW)))
			case goal > bottom && goal <= top:
				b.WriteString(goalStyle.Render(strings.Repeat("┈", barW)))
			default:
				b.WriteString(surface.Render(strings.Repeat(" ", barW)))
			}
		}
		b.WriteString("\n")
	}

	b.WriteString(axisStyle.Render(fmt.Sprintf("%*s└", sc.labelWidth, "0") + strings.Repeat("─", axisLen)))
	if len(labels) == n {
		b.WriteString("\n")
		b.WriteString(surface.Render(strings.Repeat(" ", sc.labelWidth+1)))
		b.WriteString(axisStyle.Render(axisLabels(labels, barW, gap, axisLen)))
	}
	return b.String()
}

// fitBars sizes bars to the chart width. When there are too many values for
// two-column bars, the series is sampled down evenly.
func fitBars(values []float64, labels []string, chartW int) ([]float64, []string, int, int) {
	n := len(values)
	if n == 1 {
		return values, labels, min(chartW, 6), 0
	}
	barW := (chartW - (n - 1)) / n
	if barW < 2 {
		keep := max((chartW+1)/3, 2)
		sampled := make([]float64, keep)
		var sampledLabels []string
		if len(labels) == n {
			sampledLabels = make([]string, keep)
		}
		for i := range sampled {
			src := i * (n - 1) / (keep - 1)
			sampled[i] = values[src]
			if sampledLabels != nil {
				sampledLabels[i] = labels[src]
			}
		}
		return sampled, sampledLabels, 2, 1
	}
	return values, labels, min(barW, 6), 1
}

// axisLabels lays out X-axis labels under their bars, skipping labels that
// would collide and always trying to show the last one.
func axisLabels(labels []string, barW, gap, axisLen int) string {
	n := len(labels)
	buf := []byte(strings.Repeat(" ", axisLen))
	step := max(1, (n*8)/(axisLen+1))

	lastEnd := -1
	place := func(i int, force bool) {
		lbl := labels[i]
		pos := i * (barW + gap)
		if force && pos+len(lbl) > axisLen {
			pos = axisLen - len(lbl)
		}
		if pos < 0 || pos <= lastEnd {
			return
		}
		end := min(pos+len(lbl), axisLen)
		if end-pos < 3 && end-pos < len(lbl) {
			return
		}
		copy(buf[pos:end], lbl)
		lastEnd = end
	}
	for i := 0; i < n; i += step {
		place(i, false)
	}
	if n > 1 && (n-1)%step != 0 {
		place(n-1, true)
	}
	return strings.TrimRight(string(buf), " ")
}

// chartTickStep computes a nice tick interval targeting ~5 ticks.
func chartTickStep(maxVal float64) float64 {
	if maxVal <= 0 {
		return 1
	}
	rough := maxVal / 5
	base := math.Pow(10, math.Floor(math.Log10(rough)))
	switch frac := rough / base; {
	case frac < 1.5:
		return base
	case frac < 3.5:
		return 2 * base
	default:
		return 5 * base
	}
}

// formatChartLabel renders Y-axis ticks: whole numbers below 1000, then k.
func formatChartLabel(v float64) string {
	if v >= 1e3 {
		if v == math.Trunc(v/1e3)*1e3 {
			return fmt.Sprintf("%.0fk", v/1e3)
		}
		return fmt.Sprintf("%.1fk", v/1e3)
	}
	return fmt.Sprintf("%.0f", v)
}
