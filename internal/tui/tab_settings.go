package tui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/productivity-nox/noxstat/internal/cli"
	"github.com/productivity-nox/noxstat/internal/config"
	"github.com/productivity-nox/noxstat/internal/model"
	"github.com/productivity-nox/noxstat/internal/tracker"
	"github.com/productivity-nox/noxstat/internal/tui/components"
	"github.com/productivity-nox/noxstat/internal/tui/theme"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	settingsFieldWaterGoal = iota
	settingsFieldCalorieGoal
	settingsFieldDays
	settingsFieldTheme
	settingsFieldAutoRefresh
	settingsFieldRefreshInterval
	settingsFieldCount // sentinel
)

// settingKeys name each field in settings_updated events.
var settingKeys = [settingsFieldCount]string{
	settingsFieldWaterGoal:       "daily_water_goal",
	settingsFieldCalorieGoal:     "daily_calorie_goal",
	settingsFieldDays:            "default_days",
	settingsFieldTheme:           "theme",
	settingsFieldAutoRefresh:     "auto_refresh",
	settingsFieldRefreshInterval: "refresh_interval",
}

// settingsState tracks the settings tab state.
type settingsState struct {
	cursor  int
	editing bool
	input   textinput.Model
	saved   bool  // flash "saved" message briefly
	saveErr error // non-nil if last save failed
}

func newSettingsInput() textinput.Model {
	ti := textinput.New()
	ti.CharLimit = 64
	ti.Width = 40
	return ti
}

func (a App) settingsStartEdit() (tea.Model, tea.Cmd) {
	cfg := loadConfigOrDefault()
	a.settings.editing = true
	a.settings.saved = false

	ti := newSettingsInput()
	switch a.settings.cursor {
	case settingsFieldWaterGoal:
		ti.Placeholder = "2000 (ml)"
		ti.SetValue(strconv.Itoa(cfg.Goals.DailyWaterML))
	case settingsFieldCalorieGoal:
		ti.Placeholder = "2000 (kcal)"
		ti.SetValue(strconv.Itoa(cfg.Goals.DailyCalories))
	case settingsFieldDays:
		ti.Placeholder = "30"
		ti.SetValue(strconv.Itoa(a.days))
	case settingsFieldTheme:
		ti.Placeholder = strings.Join(theme.Names(), ", ")
		ti.SetValue(cfg.Appearance.Theme)
	case settingsFieldAutoRefresh:
		ti.Placeholder = "true or false"
		ti.SetValue(strconv.FormatBool(a.autoRefresh))
	case settingsFieldRefreshInterval:
		ti.Placeholder = "60 (seconds, minimum 10)"
		ti.SetValue(strconv.Itoa(int(a.refreshInterval.Seconds())))
	}

	ti.Focus()
	a.settings.input = ti
	return a, ti.Cursor.BlinkCmd()
}

func (a App) updateSettingsInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		cmd := a.settingsSave()
		a.settings.editing = false
		a.settings.saved = a.settings.saveErr == nil
		return a, cmd
	case "esc":
		a.settings.editing = false
		return a, nil
	}

	var cmd tea.Cmd
	a.settings.input, cmd = a.settings.input.Update(msg)
	return a, cmd
}

var errBadSetting = errors.New("invalid value")

// settingsSave validates and persists the field being edited, applies it
// to the running session and returns a command recording the change.
func (a *App) settingsSave() tea.Cmd {
	cfg := loadConfigOrDefault()
	val := strings.TrimSpace(a.settings.input.Value())
	field := a.settings.cursor
	a.settings.saveErr = nil

	var saved any
	switch field {
	case settingsFieldWaterGoal, settingsFieldCalorieGoal:
		n, err := strconv.Atoi(val)
		if err != nil {
			a.settings.saveErr = fmt.Errorf("%w: %q is not a number", errBadSetting, val)
			return nil
		}
		goals := model.GoalsInput{WaterML: cfg.Goals.DailyWaterML, Calories: cfg.Goals.DailyCalories}
		if field == settingsFieldWaterGoal {
			goals.WaterML = n
		} else {
			goals.Calories = n
		}
		if err := model.Validate(goals); err != nil {
			a.settings.saveErr = err
			return nil
		}
		cfg.Goals.DailyWaterML = goals.WaterML
		cfg.Goals.DailyCalories = goals.Calories
		a.waterGoal = goals.WaterML
		a.calorieGoal = goals.Calories
		a.recompute()
		saved = n
	case settingsFieldDays:
		d, err := strconv.Atoi(val)
		if err != nil || d <= 0 {
			a.settings.saveErr = fmt.Errorf("%w: days must be a positive number", errBadSetting)
			return nil
		}
		cfg.General.DefaultDays = d
		a.days = d
		a.recompute()
		saved = d
	case settingsFieldTheme:
		if _, ok := theme.Lookup(val); !ok {
			a.settings.saveErr = fmt.Errorf("%w: unknown theme %q", errBadSetting, val)
			return nil
		}
		cfg.Appearance.Theme = val
		a.themeName = val
		theme.SetActive(val)
		a.applyPreferredTheme()
		saved = val
	case settingsFieldAutoRefresh:
		b, err := strconv.ParseBool(val)
		if err != nil {
			a.settings.saveErr = fmt.Errorf("%w: expected true or false", errBadSetting)
			return nil
		}
		cfg.TUI.AutoRefresh = b
		a.autoRefresh = b
		saved = b
	case settingsFieldRefreshInterval:
		sec, err := strconv.Atoi(val)
		if err != nil || time.Duration(sec)*time.Second < minRefreshInterval {
			a.settings.saveErr = fmt.Errorf("%w: interval must be at least %s", errBadSetting, minRefreshInterval)
			return nil
		}
		cfg.TUI.RefreshIntervalSec = sec
		a.refreshInterval = time.Duration(sec) * time.Second
		saved = sec
	default:
		return nil
	}

	if err := config.Save(cfg); err != nil {
		a.settings.saveErr = err
		return nil
	}

	key := settingKeys[field]
	return a.trackCmd(func(ctx context.Context, tr *tracker.Tracker) error {
		if field == settingsFieldTheme {
			return tr.ThemeChanged(ctx, val)
		}
		return tr.SettingsUpdated(ctx, key, saved)
	})
}

func (a App) renderSettingsTab(cw int) string {
	t := theme.Active
	cfg := loadConfigOrDefault()

	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	valueStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	selectedStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Selected).Bold(true)
	selectedLabelStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Selected).Bold(true)
	accentStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface)
	greenStyle := lipgloss.NewStyle().Foreground(t.Success).Background(t.Surface)
	markerStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Selected)

	goalNote := ""
	if a.snapshot != nil && a.snapshot.Preferences != nil {
		goalNote = " (overridden by your preferences)"
	}

	fields := [settingsFieldCount][2]string{
		settingsFieldWaterGoal:       {"Water Goal", cli.FormatML(cfg.Goals.DailyWaterML) + goalNote},
		settingsFieldCalorieGoal:     {"Calorie Goal", cli.FormatKcal(cfg.Goals.DailyCalories) + goalNote},
		settingsFieldDays:            {"Window Days", strconv.Itoa(a.days)},
		settingsFieldTheme:           {"Theme", cfg.Appearance.Theme},
		settingsFieldAutoRefresh:     {"Auto Refresh", strconv.FormatBool(a.autoRefresh)},
		settingsFieldRefreshInterval: {"Refresh Interval", fmt.Sprintf("%ds", int(a.refreshInterval.Seconds()))},
	}

	innerW := components.CardInnerWidth(cw)
	var formBody strings.Builder
	for i, f := range fields {
		if a.settings.editing && i == a.settings.cursor {
			formBody.WriteString(markerStyle.Render("▸ "))
			formBody.WriteString(accentStyle.Render(fmt.Sprintf("%-18s ", f[0])))
			formBody.WriteString(a.settings.input.View())
			formBody.WriteString("\n")
			continue
		}

		if i == a.settings.cursor {
			marker := markerStyle.Render("▸ ")
			label := selectedLabelStyle.Render(fmt.Sprintf("%-18s ", f[0]+":"))
			value := selectedStyle.Render(f[1])
			formBody.WriteString(marker + label + value)
			if pad := innerW - lipgloss.Width(marker) - lipgloss.Width(label) - lipgloss.Width(value); pad > 0 {
				formBody.WriteString(lipgloss.NewStyle().Background(t.Selected).Render(strings.Repeat(" ", pad)))
			}
		} else {
			formBody.WriteString(lipgloss.NewStyle().Background(t.Surface).Render("  "))
			formBody.WriteString(labelStyle.Render(fmt.Sprintf("%-18s ", f[0]+":")))
			formBody.WriteString(valueStyle.Render(f[1]))
		}
		formBody.WriteString("\n")
	}

	if a.settings.saveErr != nil {
		warnStyle := lipgloss.NewStyle().Foreground(t.Warning).Background(t.Surface)
		formBody.WriteString("\n")
		formBody.WriteString(warnStyle.Render(fmt.Sprintf("Save failed: %s", a.settings.saveErr)))
	} else if a.settings.saved {
		formBody.WriteString("\n")
		formBody.WriteString(greenStyle.Render("Saved!"))
	}

	formBody.WriteString("\n")
	formBody.WriteString(labelStyle.Render("[j/k] navigate  [Enter] edit  [Esc] cancel"))

	user := cfg.General.UserID
	if user == "" {
		user = "(not set)"
	}
	backendURL := cfg.Backend.URL
	if backendURL == "" {
		backendURL = "(offline)"
	}
	var infoBody strings.Builder
	infoBody.WriteString(labelStyle.Render("User:          ") + valueStyle.Render(user) + "\n")
	infoBody.WriteString(labelStyle.Render("Backend:       ") + valueStyle.Render(backendURL) + "\n")
	if a.snapshot != nil {
		infoBody.WriteString(labelStyle.Render("Records:       ") + valueStyle.Render(fmt.Sprintf(
			"%d tasks · %d meals · %d water logs · %d events",
			len(a.snapshot.Tasks), len(a.snapshot.Meals), len(a.snapshot.Water), len(a.snapshot.Events))) + "\n")
	}
	infoBody.WriteString(labelStyle.Render("Last sync:     ") + valueStyle.Render(cli.FormatSince(a.lastSync, a.opts.Clock.Now())) + "\n")
	infoBody.WriteString(labelStyle.Render("Load time:     ") + valueStyle.Render(fmt.Sprintf("%.1fs", a.loadTime.Seconds())) + "\n")
	infoBody.WriteString(labelStyle.Render("Config file:   ") + valueStyle.Render(config.Path()))
	if a.trackErr != nil {
		infoBody.WriteString("\n" + lipgloss.NewStyle().Foreground(t.Warning).Background(t.Surface).
			Render("Tracking: "+a.trackErr.Error()))
	}

	var b strings.Builder
	b.WriteString(components.ContentCard("Settings", formBody.String(), cw))
	b.WriteString("\n")
	b.WriteString(components.ContentCard("General", infoBody.String(), cw))
	return b.String()
}
