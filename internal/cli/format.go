// Package cli provides formatting and rendering utilities for terminal output.
package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FormatNumber adds comma separators to an integer.
// e.g., 1234567 -> "1,234,567"
func FormatNumber(n int64) string {
	if n < 0 {
		return "-" + FormatNumber(-n)
	}

	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}

	var b strings.Builder
	head := len(s) % 3
	if head > 0 {
		b.WriteString(s[:head])
	}
	for i := head; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// FormatML formats a water amount. Amounts of a litre or more switch to L.
// e.g., 750 -> "750 ml", 2250 -> "2.25 L"
func FormatML(ml int) string {
	if ml >= 1000 || ml <= -1000 {
		l := strconv.FormatFloat(float64(ml)/1000, 'f', 2, 64)
		l = strings.TrimSuffix(strings.TrimRight(l, "0"), ".")
		return l + " L"
	}
	return strconv.Itoa(ml) + " ml"
}

// FormatKcal formats a calorie amount.
func FormatKcal(kcal int) string {
	return FormatNumber(int64(kcal)) + " kcal"
}

// FormatPercent formats a 0-100 percentage with no decimals.
func FormatPercent(pct float64) string {
	return fmt.Sprintf("%.0f%%", pct)
}

// FormatRate formats an integer percentage such as a completion rate.
func FormatRate(pct int) string {
	return strconv.Itoa(pct) + "%"
}

// FormatDay formats a calendar day for table rows, e.g. "Tue 03-10".
func FormatDay(t time.Time) string {
	return FormatDayOfWeek(int(t.Weekday())) + " " + t.Format("01-02")
}

// FormatDayOfWeek returns a 3-letter day abbreviation from a weekday number.
func FormatDayOfWeek(weekday int) string {
	days := []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}
	if weekday >= 0 && weekday < 7 {
		return days[weekday]
	}
	return "???"
}

// FormatSince renders the age of t relative to now, e.g. "5m ago".
// A zero t renders as "never".
func FormatSince(t, now time.Time) string {
	if t.IsZero() {
		return "never"
	}
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 48*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
