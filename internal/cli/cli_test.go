package cli

import (
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

func init() {
	lipgloss.SetColorProfile(termenv.Ascii)
}

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{1234567, "1,234,567"},
		{-2500, "-2,500"},
	}
	for _, tt := range tests {
		if got := FormatNumber(tt.in); got != tt.want {
			t.Errorf("FormatNumber(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatML(t *testing.T) {
	tests := []struct {
		in   int
		want string
	}{
		{0, "0 ml"},
		{750, "750 ml"},
		{1000, "1 L"},
		{2250, "2.25 L"},
		{1500, "1.5 L"},
	}
	for _, tt := range tests {
		if got := FormatML(tt.in); got != tt.want {
			t.Errorf("FormatML(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatKcalAndPercent(t *testing.T) {
	if got := FormatKcal(2150); got != "2,150 kcal" {
		t.Errorf("FormatKcal = %q", got)
	}
	if got := FormatPercent(62.5); got != "62%" && got != "63%" {
		t.Errorf("FormatPercent = %q", got)
	}
	if got := FormatRate(67); got != "67%" {
		t.Errorf("FormatRate = %q", got)
	}
}

func TestFormatDay(t *testing.T) {
	d := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	if got := FormatDay(d); got != "Tue 03-10" {
		t.Errorf("FormatDay = %q", got)
	}
}

func TestFormatSince(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		at   time.Time
		want string
	}{
		{time.Time{}, "never"},
		{now.Add(-10 * time.Second), "just now"},
		{now.Add(-5 * time.Minute), "5m ago"},
		{now.Add(-3 * time.Hour), "3h ago"},
		{now.Add(-72 * time.Hour), "3d ago"},
	}
	for _, tt := range tests {
		if got := FormatSince(tt.at, now); got != tt.want {
			t.Errorf("FormatSince(%v) = %q, want %q", tt.at, got, tt.want)
		}
	}
}

func TestRenderTable(t *testing.T) {
	out := RenderTable(Table{
		Headers: []string{"Date", "Meals"},
		Rows: [][]string{
			{"Mon 03-09", "3"},
			{"---"},
			{"Total", "12"},
		},
	})
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 7 {
		t.Fatalf("got %d lines:\n%s", len(lines), out)
	}
	width := lipgloss.Width(lines[0])
	for i, l := range lines {
		if lipgloss.Width(l) != width {
			t.Errorf("line %d width %d, want %d: %q", i, lipgloss.Width(l), width, l)
		}
	}
	if !strings.Contains(lines[4], "├") {
		t.Errorf("separator row missing: %q", lines[4])
	}
	if !strings.Contains(lines[5], "   12 ") {
		t.Errorf("numeric column should be right-aligned: %q", lines[5])
	}
}

func TestRenderTable_Empty(t *testing.T) {
	if got := RenderTable(Table{}); got != "" {
		t.Errorf("empty table = %q", got)
	}
}

func TestRenderGoalBar(t *testing.T) {
	half := RenderGoalBar(50, "1 L", "2 L", 10, MeterWater)
	if strings.Count(half, "█") != 5 || strings.Count(half, "░") != 5 {
		t.Errorf("half bar = %q", half)
	}
	over := RenderGoalBar(150, "3 L", "2 L", 10, MeterWater)
	if strings.Count(over, "█") != 10 || !strings.Contains(over, "100%") {
		t.Errorf("over bar = %q", over)
	}
	if RenderGoalBar(50, "", "", 0, MeterCalories) != "" {
		t.Error("zero width should render nothing")
	}
}

func TestRenderSparkline(t *testing.T) {
	if got := RenderSparkline([]float64{0, 4, 8}); got != "▁▄█" {
		t.Errorf("sparkline = %q", got)
	}
	if got := RenderSparkline([]float64{0, 0}); got != "▁▁" {
		t.Errorf("flat sparkline = %q", got)
	}
}

func TestRenderKV(t *testing.T) {
	out := RenderKV("Totals", [][2]string{{"Meals", "4"}, {"Completion", "50%"}})
	if !strings.Contains(out, "Meals       4") {
		t.Errorf("values not aligned:\n%s", out)
	}
}
