package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/productivity-nox/noxstat/internal/config"
	"github.com/productivity-nox/noxstat/internal/model"
	"github.com/productivity-nox/noxstat/internal/tui/theme"

	"github.com/charmbracelet/huh"
)

// SetupValues backs the first-run form. Numeric goals are kept as text
// because huh inputs bind to strings.
type SetupValues struct {
	UserID      string
	BackendURL  string
	AnonKey     string
	Days        int
	Theme       string
	WaterGoal   string
	CalorieGoal string
}

// SetupValuesFrom seeds the form from an existing config.
func SetupValuesFrom(cfg config.Config) SetupValues {
	return SetupValues{
		UserID:      cfg.General.UserID,
		BackendURL:  cfg.Backend.URL,
		AnonKey:     cfg.Backend.AnonKey,
		Days:        cfg.General.DefaultDays,
		Theme:       cfg.Appearance.Theme,
		WaterGoal:   strconv.Itoa(cfg.Goals.DailyWaterML),
		CalorieGoal: strconv.Itoa(cfg.Goals.DailyCalories),
	}
}

// Goals parses and validates the goal fields.
func (v SetupValues) Goals() (model.GoalsInput, error) {
	water, err := strconv.Atoi(strings.TrimSpace(v.WaterGoal))
	if err != nil {
		return model.GoalsInput{}, fmt.Errorf("water goal %q is not a number", v.WaterGoal)
	}
	kcal, err := strconv.Atoi(strings.TrimSpace(v.CalorieGoal))
	if err != nil {
		return model.GoalsInput{}, fmt.Errorf("calorie goal %q is not a number", v.CalorieGoal)
	}
	g := model.GoalsInput{WaterML: water, Calories: kcal}
	if err := model.Validate(g); err != nil {
		return model.GoalsInput{}, err
	}
	return g, nil
}

// Apply copies the form values into cfg.
func (v SetupValues) Apply(cfg *config.Config) error {
	g, err := v.Goals()
	if err != nil {
		return err
	}
	cfg.General.UserID = strings.TrimSpace(v.UserID)
	cfg.Backend.URL = strings.TrimRight(strings.TrimSpace(v.BackendURL), "/")
	cfg.Backend.AnonKey = strings.TrimSpace(v.AnonKey)
	if v.Days > 0 {
		cfg.General.DefaultDays = v.Days
	}
	if _, ok := theme.Lookup(v.Theme); ok {
		cfg.Appearance.Theme = v.Theme
	}
	cfg.Goals.DailyWaterML = g.WaterML
	cfg.Goals.DailyCalories = g.Calories
	return nil
}

var daysOptions = []huh.Option[int]{
	huh.NewOption("7 days", 7),
	huh.NewOption("14 days", 14),
	huh.NewOption("30 days", 30),
	huh.NewOption("90 days", 90),
}

// NewSetupForm builds the setup form bound to vals. withBackend adds the
// account and backend connection fields.
func NewSetupForm(vals *SetupValues, withBackend bool) *huh.Form {
	validGoal := func(s string) error {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil || n <= 0 || n > 20000 {
			return fmt.Errorf("enter a number between 1 and 20000")
		}
		return nil
	}

	var groups []*huh.Group
	if withBackend {
		groups = append(groups, huh.NewGroup(
			huh.NewNote().
				Title("Welcome to noxstat").
				Description("Connect to your backend, or leave it blank to work from the local mirror."),
			huh.NewInput().
				Title("User ID").
				Description("Your account id; records are filtered to it.").
				Value(&vals.UserID),
			huh.NewInput().
				Title("Backend URL").
				Placeholder("https://project.example.co").
				Value(&vals.BackendURL),
			huh.NewInput().
				Title("Anon key").
				EchoMode(huh.EchoModePassword).
				Value(&vals.AnonKey),
		))
	}

	groups = append(groups,
		huh.NewGroup(
			huh.NewSelect[int]().
				Title("Default time range").
				Options(daysOptions...).
				Value(&vals.Days),
			huh.NewSelect[string]().
				Title("Color theme").
				Options(huh.NewOptions(theme.Names()...)...).
				Value(&vals.Theme),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Daily water goal (ml)").
				Description("Used when your preferences don't set one.").
				Validate(validGoal).
				Value(&vals.WaterGoal),
			huh.NewInput().
				Title("Daily calorie goal (kcal)").
				Validate(validGoal).
				Value(&vals.CalorieGoal),
		),
	)

	return huh.NewForm(groups...).WithTheme(huh.ThemeCharm()).WithShowHelp(true)
}
