// Package tui provides the interactive Bubble Tea dashboard for noxstat.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/productivity-nox/noxstat/internal/cli"
	"github.com/productivity-nox/noxstat/internal/clock"
	"github.com/productivity-nox/noxstat/internal/config"
	"github.com/productivity-nox/noxstat/internal/model"
	"github.com/productivity-nox/noxstat/internal/pipeline"
	"github.com/productivity-nox/noxstat/internal/tracker"
	"github.com/productivity-nox/noxstat/internal/tui/components"
	"github.com/productivity-nox/noxstat/internal/tui/theme"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
)

// Loader syncs and reads the user's records. progress may be nil.
type Loader func(ctx context.Context, progress pipeline.ProgressFunc) (*pipeline.MirrorLoadResult, error)

// Options configures a dashboard session.
type Options struct {
	Days        int
	WaterGoalML int // fallback goals when the user has no preferences row
	CalorieGoal int
	Clock       clock.Clock
	Load        Loader
	Tracker     *tracker.Tracker // optional; records screen views and settings changes
	NeedSetup   bool
}

// DataLoadedMsg is sent when the initial load finishes.
type DataLoadedMsg struct {
	Result   *pipeline.MirrorLoadResult
	Err      error
	LoadTime time.Duration
}

// ProgressMsg reports collection fetch progress.
type ProgressMsg struct {
	Current int
	Total   int
}

// RefreshDataMsg is sent when a background refresh completes.
type RefreshDataMsg struct {
	Result   *pipeline.MirrorLoadResult
	Err      error
	LoadTime time.Duration
}

type tickMsg struct{}

// trackedMsg carries the outcome of a background tracker call.
type trackedMsg struct{ err error }

// App is the root Bubble Tea model.
type App struct {
	opts Options

	// Data
	snapshot   *model.Snapshot
	report     *model.Report
	analyzeErr error
	loadErr    error
	syncErr    error
	lastSync   time.Time
	loaded     bool
	loadTime   time.Duration
	trackErr   error

	// Auto-refresh state
	autoRefresh     bool
	refreshInterval time.Duration
	lastRefresh     time.Time
	refreshing      bool

	// UI state
	width     int
	height    int
	activeTab int
	showHelp  bool

	// Window and fallback goals
	days        int
	waterGoal   int
	calorieGoal int
	themeName   string // configured theme; "system" defers to the synced preference

	settings settingsState

	// First-run setup (huh form)
	setupForm *huh.Form
	setupVals SetupValues
	needSetup bool

	// Loading: channel-based progress subscription
	spinner     spinner.Model
	progress    int
	progressMax int
	loadSub     chan tea.Msg
}

const (
	minTerminalWidth = 80
	compactWidth     = 120
	maxContentWidth  = 180
	minContentHeight = 5

	minRefreshInterval = 10 * time.Second
)

// Tab indexes, matching components.Tabs.
const (
	tabOverview = iota
	tabTrends
	tabActivity
	tabSettings
)

// loadConfigOrDefault loads config, returning defaults on error so the TUI
// can always start even if the file is corrupted.
func loadConfigOrDefault() config.Config {
	cfg, err := config.Load()
	if err != nil {
		return config.DefaultConfig()
	}
	return cfg
}

// NewApp creates a new TUI app model.
func NewApp(opts Options) App {
	if opts.Clock == nil {
		opts.Clock = clock.System(nil)
	}
	if opts.Days <= 0 {
		opts.Days = pipeline.DefaultWindowDays
	}
	if opts.WaterGoalML <= 0 {
		opts.WaterGoalML = pipeline.DefaultWaterGoalML
	}
	if opts.CalorieGoal <= 0 {
		opts.CalorieGoal = pipeline.DefaultCalorieGoal
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.Active.Accent).Background(theme.Active.Surface)

	cfg := loadConfigOrDefault()
	refreshInterval := time.Duration(cfg.TUI.RefreshIntervalSec) * time.Second
	if refreshInterval < minRefreshInterval {
		refreshInterval = 60 * time.Second
	}

	return App{
		opts:            opts,
		days:            opts.Days,
		waterGoal:       opts.WaterGoalML,
		calorieGoal:     opts.CalorieGoal,
		themeName:       cfg.Appearance.Theme,
		needSetup:       opts.NeedSetup,
		autoRefresh:     cfg.TUI.AutoRefresh,
		refreshInterval: refreshInterval,
		spinner:         sp,
		loadSub:         make(chan tea.Msg, 1),
	}
}

// Init implements tea.Model.
func (a App) Init() tea.Cmd {
	return tea.Batch(
		tea.EnableMouseCellMotion,
		loadDataCmd(a.opts.Load, a.loadSub),
		a.spinner.Tick,
		tickCmd(),
	)
}

// recompute runs the engine over the loaded snapshot for the current
// window and goals.
func (a *App) recompute() {
	if a.snapshot == nil {
		a.report = nil
		return
	}
	in := pipeline.InputFromSnapshot(a.snapshot, a.days, a.waterGoal, a.calorieGoal)
	a.report, a.analyzeErr = pipeline.Analyze(in, a.opts.Clock)
}

func (a *App) applyResult(res *pipeline.MirrorLoadResult, err error, took time.Duration) {
	a.loadTime = took
	a.lastRefresh = a.opts.Clock.Now()
	a.loadErr = err
	if err != nil || res == nil {
		return
	}
	a.snapshot = res.Snapshot
	a.syncErr = res.SyncErr
	a.lastSync = res.LastSync
	a.applyPreferredTheme()
	a.recompute()
}

// applyPreferredTheme follows the user's synced theme preference unless the
// config pins a concrete theme.
func (a *App) applyPreferredTheme() {
	if a.themeName != theme.System || a.snapshot == nil || a.snapshot.Preferences == nil {
		return
	}
	if t, ok := theme.Lookup(a.snapshot.Preferences.Theme); ok {
		theme.Active = t
	}
}

// switchTab activates tab i and records the screen view.
func (a App) switchTab(i int) (App, tea.Cmd) {
	if i < 0 || i >= len(components.Tabs) || i == a.activeTab {
		return a, nil
	}
	a.activeTab = i
	return a, a.trackCmd(func(ctx context.Context, tr *tracker.Tracker) error {
		return tr.ScreenViewed(ctx, components.Tabs[i].Name)
	})
}

// trackCmd runs fn against the tracker in the background.
func (a App) trackCmd(fn func(context.Context, *tracker.Tracker) error) tea.Cmd {
	tr := a.opts.Tracker
	if tr == nil {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return trackedMsg{err: fn(ctx, tr)}
	}
}

// Update implements tea.Model.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		if a.setupForm != nil {
			a.setupForm = a.setupForm.WithWidth(msg.Width).WithHeight(msg.Height)
		}
		return a, nil

	case tea.MouseMsg:
		if !a.loaded || a.showHelp || a.setupForm != nil {
			return a, nil
		}
		if msg.Button == tea.MouseButtonLeft && msg.Action == tea.MouseActionPress && msg.Y == 0 {
			return a.switchTab(a.tabAtX(msg.X))
		}
		return a, nil

	case tea.KeyMsg:
		return a.updateKey(msg)

	case DataLoadedMsg:
		a.loaded = true
		a.applyResult(msg.Result, msg.Err, msg.LoadTime)

		if a.needSetup {
			a.setupVals = SetupValuesFrom(loadConfigOrDefault())
			a.setupForm = NewSetupForm(&a.setupVals, false)
			if a.width > 0 {
				a.setupForm = a.setupForm.WithWidth(a.width).WithHeight(a.height)
			}
			return a, a.setupForm.Init()
		}
		return a, a.trackCmd(func(ctx context.Context, tr *tracker.Tracker) error {
			return tr.ScreenViewed(ctx, components.Tabs[a.activeTab].Name)
		})

	case ProgressMsg:
		a.progress = msg.Current
		a.progressMax = msg.Total
		return a, waitForLoadMsg(a.loadSub)

	case RefreshDataMsg:
		a.refreshing = false
		a.applyResult(msg.Result, msg.Err, msg.LoadTime)
		return a, nil

	case trackedMsg:
		a.trackErr = msg.err
		return a, nil

	case spinner.TickMsg:
		if !a.loaded {
			var cmd tea.Cmd
			a.spinner, cmd = a.spinner.Update(msg)
			return a, cmd
		}
		return a, nil

	case tickMsg:
		cmds := []tea.Cmd{tickCmd()}
		if a.loaded && a.autoRefresh && !a.refreshing &&
			a.opts.Clock.Now().Sub(a.lastRefresh) >= a.refreshInterval {
			a.refreshing = true
			cmds = append(cmds, refreshDataCmd(a.opts.Load))
		}
		return a, tea.Batch(cmds...)
	}

	// Forward unhandled messages to the setup form (cursor blinks, etc.)
	if a.setupForm != nil {
		return a.updateSetupForm(msg)
	}
	return a, nil
}

func (a App) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if key == "ctrl+c" {
		return a, tea.Quit
	}
	if !a.loaded {
		return a, nil
	}
	if a.setupForm != nil {
		return a.updateSetupForm(msg)
	}
	if a.activeTab == tabSettings && a.settings.editing {
		return a.updateSettingsInput(msg)
	}

	if key == "?" {
		a.showHelp = !a.showHelp
		return a, nil
	}
	if a.showHelp {
		a.showHelp = false
		return a, nil
	}

	if a.activeTab == tabSettings {
		switch key {
		case "j", "down":
			if a.settings.cursor < settingsFieldCount-1 {
				a.settings.cursor++
			}
			return a, nil
		case "k", "up":
			if a.settings.cursor > 0 {
				a.settings.cursor--
			}
			return a, nil
		case "enter":
			return a.settingsStartEdit()
		}
	}

	switch key {
	case "q":
		return a, tea.Quit
	case "r":
		if a.refreshing {
			return a, nil
		}
		a.refreshing = true
		return a, refreshDataCmd(a.opts.Load)
	case "R":
		a.autoRefresh = !a.autoRefresh
		cfg := loadConfigOrDefault()
		cfg.TUI.AutoRefresh = a.autoRefresh
		_ = config.Save(cfg)
		return a, nil
	case "[":
		return a.shiftWindow(-1), nil
	case "]":
		return a.shiftWindow(1), nil
	case "left":
		return a.switchTab((a.activeTab - 1 + len(components.Tabs)) % len(components.Tabs))
	case "right", "tab":
		return a.switchTab((a.activeTab + 1) % len(components.Tabs))
	}
	if len(msg.Runes) == 1 {
		return a.switchTab(components.TabIdxByKey(msg.Runes[0]))
	}
	return a, nil
}

// windowPresets are the window sizes cycled with [ and ].
var windowPresets = []int{7, 14, 30, 90}

// shiftWindow moves to the previous or next window preset.
func (a App) shiftWindow(dir int) App {
	idx := -1
	for i, d := range windowPresets {
		if d <= a.days {
			idx = i
		}
	}
	// Between presets, stepping down lands on the lower neighbour.
	if (idx < 0 || windowPresets[idx] != a.days) && dir < 0 {
		idx++
	}
	idx = max(0, min(idx+dir, len(windowPresets)-1))
	a.days = windowPresets[idx]
	a.recompute()
	return a
}

func (a App) updateSetupForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	form, cmd := a.setupForm.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		a.setupForm = f
	}

	switch a.setupForm.State {
	case huh.StateCompleted:
		cfg := loadConfigOrDefault()
		if err := a.setupVals.Apply(&cfg); err == nil {
			_ = config.Save(cfg)
			theme.SetActive(cfg.Appearance.Theme)
			a.days = cfg.General.DefaultDays
			a.waterGoal = cfg.Goals.DailyWaterML
			a.calorieGoal = cfg.Goals.DailyCalories
			a.recompute()
		}
		a.needSetup = false
		a.setupForm = nil
		return a, nil
	case huh.StateAborted:
		a.needSetup = false
		a.setupForm = nil
		return a, nil
	}
	return a, cmd
}

func (a App) contentWidth() int {
	return min(a.width, maxContentWidth)
}

func (a App) isCompactLayout() bool {
	return a.contentWidth() < compactWidth
}

// View implements tea.Model.
func (a App) View() string {
	if a.width == 0 {
		return ""
	}
	if a.width < minTerminalWidth {
		return a.viewTooNarrow()
	}
	if !a.loaded {
		return a.viewLoading()
	}
	if a.setupForm != nil {
		return a.setupForm.View()
	}
	if a.showHelp {
		return a.viewHelp()
	}
	return a.viewMain()
}

func (a App) viewTooNarrow() string {
	h := max(a.height, 5)
	msg := fmt.Sprintf(
		"\n  Terminal too narrow (%d cols)\n\n  noxstat needs at least %d columns.\n",
		a.width,
		minTerminalWidth,
	)
	return padHeight(truncateHeight(msg, h), h)
}

func (a App) viewLoading() string {
	t := theme.Active

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Focus).
		Background(t.Surface).
		Padding(2, 4)
	logoStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface).Bold(true)
	subtitleStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	spinnerStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface)

	var b strings.Builder
	b.WriteString(logoStyle.Render("◈ noxstat"))
	b.WriteString(subtitleStyle.Render(" · Productivity Analytics"))
	b.WriteString("\n\n")

	if a.progressMax > 0 {
		barW := max(min(40, a.width-30), 20)
		b.WriteString(spinnerStyle.Render(a.spinner.View()))
		b.WriteString(subtitleStyle.Render(fmt.Sprintf(" Syncing collections %d/%d\n\n", a.progress, a.progressMax)))
		b.WriteString(components.ProgressBar(float64(a.progress)/float64(a.progressMax), barW))
	} else {
		b.WriteString(spinnerStyle.Render(a.spinner.View()))
		b.WriteString(subtitleStyle.Render(" Loading your data..."))
	}

	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, cardStyle.Render(b.String()),
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) viewHelp() string {
	t := theme.Active

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Focus).
		Background(t.Surface).
		Padding(1, 3)
	titleStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface).Bold(true)
	sectionStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	keyStyle := lipgloss.NewStyle().Foreground(t.Highlight).Background(t.Surface).Bold(true)
	descStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	dimStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	sections := []struct {
		title    string
		bindings [][2]string
	}{
		{"Navigation", [][2]string{
			{"o t a x", "Jump to tab"},
			{"← → Tab", "Previous / Next tab"},
			{"[ ]", "Shorter / Longer window"},
			{"j k", "Move in settings"},
		}},
		{"Actions", [][2]string{
			{"Enter", "Edit setting / Confirm"},
			{"Esc", "Cancel"},
			{"r", "Sync now"},
			{"R", "Toggle auto-refresh"},
			{"?", "Toggle help"},
			{"q", "Quit"},
		}},
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("◈ Keyboard Shortcuts"))
	b.WriteString("\n")
	for _, sec := range sections {
		b.WriteString("\n" + sectionStyle.Render(sec.title) + "\n")
		for _, bind := range sec.bindings {
			fmt.Fprintf(&b, "  %s  %s\n",
				keyStyle.Render(fmt.Sprintf("%-10s", bind[0])),
				descStyle.Render(bind[1]))
		}
	}
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Press any key to close"))

	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, cardStyle.Render(b.String()),
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) viewMain() string {
	t := theme.Active
	w := a.width
	cw := a.contentWidth()

	pill := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	accent := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	goals := a.effectiveGoals()
	filterStr := pill.Render(" ") + accent.Render(fmt.Sprintf("%dd", a.days)) +
		pill.Render(" │ water ") + accent.Render(cli.FormatML(goals.WaterGoalML)) +
		pill.Render(" │ calories ") + accent.Render(cli.FormatKcal(goals.CalorieGoal)) +
		pill.Render(" ")
	header := components.RenderTabBar(a.activeTab, w) + "\n" +
		lipgloss.NewStyle().Background(t.Surface).Width(w).Render(filterStr)

	statusBar := components.RenderStatusBar(w, a.statusInfo())

	contentH := max(a.height-lipgloss.Height(header)-lipgloss.Height(statusBar), minContentHeight)

	var content string
	switch {
	case a.activeTab == tabSettings:
		content = a.renderSettingsTab(cw)
	case a.report == nil:
		content = a.renderNoData(cw)
	case a.activeTab == tabOverview:
		content = a.renderOverviewTab(cw)
	case a.activeTab == tabTrends:
		content = a.renderTrendsTab(cw)
	case a.activeTab == tabActivity:
		content = a.renderActivityTab(cw)
	}

	content = padHeight(truncateHeight(content, contentH), contentH)
	content = fillLinesWithBackground(content, cw, t.Background)
	content = lipgloss.Place(w, contentH, lipgloss.Center, lipgloss.Top, content,
		lipgloss.WithWhitespaceBackground(t.Background))

	output := lipgloss.JoinVertical(lipgloss.Left, header, content, statusBar)
	return lipgloss.Place(w, a.height, lipgloss.Left, lipgloss.Top, output,
		lipgloss.WithWhitespaceBackground(t.Background))
}

// effectiveGoals returns the goals the report was computed with, or the
// fallback goals before the first report.
func (a App) effectiveGoals() model.Progress {
	if a.report != nil {
		return a.report.Progress
	}
	return model.Progress{WaterGoalML: a.waterGoal, CalorieGoal: a.calorieGoal}
}

func (a App) statusInfo() components.StatusInfo {
	info := components.StatusInfo{
		Refreshing:  a.refreshing,
		AutoRefresh: a.autoRefresh,
	}
	switch {
	case a.syncErr != nil:
		info.Offline = true
		info.Synced = "offline · mirror from " + cli.FormatSince(a.lastSync, a.opts.Clock.Now())
	case !a.lastSync.IsZero():
		info.Synced = "synced " + cli.FormatSince(a.lastSync, a.opts.Clock.Now())
	}
	return info
}

func (a App) renderNoData(cw int) string {
	t := theme.Active
	muted := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	warn := lipgloss.NewStyle().Foreground(t.Warning).Background(t.Surface)

	var b strings.Builder
	switch {
	case a.loadErr != nil:
		b.WriteString(warn.Render("Could not load data: " + a.loadErr.Error()))
	case a.analyzeErr != nil:
		b.WriteString(warn.Render("Could not analyze data: " + a.analyzeErr.Error()))
	default:
		b.WriteString(muted.Render("No data yet."))
	}
	b.WriteString("\n\n")
	b.WriteString(muted.Render("Check the backend settings with `noxstat config`, then press r to retry."))
	return components.ContentCard("No data", b.String(), cw)
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

// loadDataCmd starts the loader in a background goroutine. It streams
// ProgressMsg updates and a final DataLoadedMsg through sub.
func loadDataCmd(load Loader, sub chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		go func() {
			start := time.Now()
			progressFn := func(current, total int) {
				// Non-blocking: a skipped update is caught up by the next one.
				select {
				case sub <- ProgressMsg{Current: current, Total: total}:
				default:
				}
			}
			if load == nil {
				sub <- DataLoadedMsg{LoadTime: time.Since(start)}
				return
			}
			res, err := load(context.Background(), progressFn)
			sub <- DataLoadedMsg{Result: res, Err: err, LoadTime: time.Since(start)}
		}()

		// Block until the first message (either ProgressMsg or DataLoadedMsg)
		return <-sub
	}
}

// waitForLoadMsg blocks until the next message arrives from the loader goroutine.
func waitForLoadMsg(sub chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return <-sub
	}
}

// refreshDataCmd reloads in the background without progress UI.
func refreshDataCmd(load Loader) tea.Cmd {
	return func() tea.Msg {
		start := time.Now()
		if load == nil {
			return RefreshDataMsg{LoadTime: time.Since(start)}
		}
		res, err := load(context.Background(), nil)
		return RefreshDataMsg{Result: res, Err: err, LoadTime: time.Since(start)}
	}
}

// tabAtX returns the tab index at the given X coordinate, or -1 if none.
// Hitboxes use the same widths as RenderTabBar.
func (a App) tabAtX(x int) int {
	pos := 0
	for i, tab := range components.Tabs {
		tabW := components.TabVisualWidth(tab, i == a.activeTab)
		if x >= pos && x < pos+tabW {
			return i
		}
		pos += tabW + 1 // separator
	}
	return -1
}

// chartDateLabels builds compact X-axis labels for a chronological series:
// the month abbreviation at the start and at month boundaries, otherwise
// the day number.
func chartDateLabels(days []model.DailyStat) []string {
	labels := make([]string, len(days))
	prev := time.Month(0)
	for i, d := range days {
		if i == 0 || d.Date.Month() != prev {
			labels[i] = d.Date.Format("Jan")
		} else {
			labels[i] = fmt.Sprint(d.Date.Day())
		}
		prev = d.Date.Month()
	}
	if n := len(days); n > 1 {
		labels[n-1] = fmt.Sprint(days[n-1].Date.Day())
	}
	return labels
}

func truncStr(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-1]) + "…"
}

func truncateHeight(s string, limit int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= limit {
		return s
	}
	return strings.Join(lines[:limit], "\n")
}

func padHeight(s string, h int) string {
	lines := strings.Split(s, "\n")
	if len(lines) >= h {
		return s
	}
	return s + strings.Repeat("\n", h-len(lines))
}

// fillLinesWithBackground pads each line to width w with the background color.
func fillLinesWithBackground(s string, w int, bg lipgloss.Color) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = lipgloss.PlaceHorizontal(w, lipgloss.Left, line, lipgloss.WithWhitespaceBackground(bg))
	}
	return strings.Join(lines, "\n")
}
