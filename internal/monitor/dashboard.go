package monitor

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/NimbleMarkets/ntcharts/sparkline"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fyrsmithlabs/weekpulse/internal/task"
)

const (
	sparklineWidth  = 30
	sparklineHeight = 3
	fetchTimeout    = 5 * time.Second
)

// Model represents the BubbleTea dashboard model
type Model struct {
	source     Source
	serverURL  string
	interval   time.Duration
	lastUpdate time.Time
	data       Snapshot
	err        error
	quitting   bool
	now        func() time.Time

	completionProgress progress.Model
	categoryProgress   progress.Model
	goalProgress       progress.Model
}

// Lipgloss styles (k9s-inspired color scheme)
var (
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("51")).
			Bold(true).
			Padding(0, 1)

	sectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51")).
			Bold(true).
			MarginTop(1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("45"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("231")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	healthyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("46")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("226")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	containerStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238")).
			Padding(1, 2)

	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			MarginTop(1)

	footerKeyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51")).
			Bold(true)

	sparklineStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51"))
)

// NewModel creates a dashboard over src that refreshes every interval.
// serverURL is only displayed.
func NewModel(src Source, serverURL string, interval time.Duration) Model {
	return Model{
		source:    src,
		serverURL: serverURL,
		interval:  interval,
		now:       time.Now,
		completionProgress: progress.New(
			progress.WithGradient("#ff0000", "#00ff00"),
			progress.WithWidth(40),
		),
		categoryProgress: progress.New(
			progress.WithGradient("#00ffff", "#ff00ff"),
			progress.WithWidth(24),
		),
		goalProgress: progress.New(
			progress.WithGradient("#00ff00", "#ffff00"),
			progress.WithWidth(24),
		),
	}
}

// completionBadge grades a completion rate against the 80/60 thresholds the
// rule engine uses.
func completionBadge(rate int) string {
	switch {
	case rate >= 80:
		return healthyStyle.Render("✓ ON TRACK")
	case rate >= 60:
		return warningStyle.Render("⚠ IMPROVING")
	default:
		return errorStyle.Render("✗ STALLED")
	}
}

func trendStyle(points int) lipgloss.Style {
	switch {
	case points > 0:
		return healthyStyle
	case points < 0:
		return errorStyle
	default:
		return dimStyle
	}
}

// createSparkline creates a sparkline chart from historical data
func createSparkline(data []float64) string {
	if len(data) == 0 {
		return dimStyle.Render(fmt.Sprintf("%*s", sparklineWidth, "no data"))
	}

	spark := sparkline.New(sparklineWidth, sparklineHeight)
	for _, v := range data {
		spark.Push(v)
	}
	spark.Draw()
	return sparklineStyle.Render(spark.View())
}

// Message types
type tickMsg time.Time
type snapshotMsg Snapshot
type errMsg error

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		tick(m.interval),
		fetch(m.source),
	)
}

func tick(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetch(src Source) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()

		snap, err := Fetch(ctx, src)
		if err != nil {
			return errMsg(err)
		}
		return snapshotMsg(snap)
	}
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "r":
			return m, fetch(m.source)
		}

	case tickMsg:
		return m, tea.Batch(
			tick(m.interval),
			fetch(m.source),
		)

	case snapshotMsg:
		m.data = Snapshot(msg)
		m.lastUpdate = m.now()
		m.err = nil
		return m, nil

	case errMsg:
		m.err = error(msg)
		return m, nil
	}

	return m, nil
}

// View renders the dashboard
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.err != nil {
		return m.renderError()
	}
	return m.renderDashboard()
}

func (m Model) renderError() string {
	header := headerStyle.Render("weekpulse Dashboard")

	var sb strings.Builder
	sb.WriteString("\n")
	sb.WriteString(errorStyle.Render("⚠ Cannot reach the weekpulse server") + "\n\n")
	sb.WriteString(dimStyle.Render("URL: ") + valueStyle.Render(m.serverURL) + "\n")
	sb.WriteString(dimStyle.Render("Error: ") + errorStyle.Render(m.err.Error()) + "\n\n")
	sb.WriteString(dimStyle.Render("Start it with: weekpulse") + "\n")
	sb.WriteString(footerStyle.Render("[q] quit  [r] retry") + "\n")

	return containerStyle.Render(header + "\n" + sb.String())
}

func (m Model) renderDashboard() string {
	var sb strings.Builder
	r := m.data.Report

	lastUpdate := "Never"
	if !m.lastUpdate.IsZero() {
		lastUpdate = m.lastUpdate.Format("3:04:05 PM")
	}
	sb.WriteString(headerStyle.Render(" weekpulse ") + "\n")
	sb.WriteString(fmt.Sprintf("%s   %s   %s\n",
		completionBadge(r.AverageCompletionRate),
		dimStyle.Render(fmt.Sprintf("%d weeks", r.Weeks)),
		dimStyle.Render(lastUpdate)))

	// Overview
	sb.WriteString("\n" + sectionStyle.Render("┃ Overview") + "\n")
	trend := make([]float64, 0, len(r.WeeklyTrend))
	for _, w := range r.WeeklyTrend {
		trend = append(trend, float64(w.CompletionRate))
	}
	sb.WriteString(labelStyle.Render("  Avg completion: ") +
		valueStyle.Render(FormatRate(r.AverageCompletionRate)) +
		"   " + createSparkline(trend) + "\n")
	sb.WriteString(labelStyle.Render("  Trend: ") +
		trendStyle(r.ImprovementTrend).Render(FormatTrend(r.ImprovementTrend)) +
		"  " + labelStyle.Render("Alignment: ") +
		valueStyle.Render(FormatRate(r.StrategicAlignment)) + "\n")
	if r.BestCategory != "" {
		sb.WriteString(labelStyle.Render("  Best: ") + valueStyle.Render(categoryName(r.BestCategory)) +
			"  " + labelStyle.Render("Weakest: ") + valueStyle.Render(categoryName(r.WeakestCategory)) + "\n")
	}

	// Latest week
	if e := m.data.Latest; e != nil {
		sb.WriteString("\n" + sectionStyle.Render("┃ Week "+FormatWeek(e.WeekNumber, e.Year)) +
			dimStyle.Render("  "+e.DateRange+"  saved "+FormatAge(e.CreatedAt, m.now())+" ago") + "\n")
		sb.WriteString(labelStyle.Render("  Completion: ") +
			m.completionProgress.ViewAs(float64(e.Metrics.CompletionRate)/100) +
			" " + dimStyle.Render(fmt.Sprintf("%d/%d", e.Metrics.CompletedTasks, e.Metrics.TotalTasks)) + "\n")
		sb.WriteString(labelStyle.Render("  S-priority done: ") +
			valueStyle.Render(fmt.Sprintf("%d", e.Metrics.HighPriorityCompleted)) + "\n")
		for _, c := range task.ProgressCategories {
			sb.WriteString(fmt.Sprintf("  %-12s ", categoryName(c)) +
				m.categoryProgress.ViewAs(float64(e.Metrics.CategoryProgress[c])/100) + "\n")
		}
		if e.AIInsight != nil && len(e.AIInsight.FocusAreas) > 0 {
			sb.WriteString(labelStyle.Render("  Focus: ") + dimStyle.Render(e.AIInsight.FocusAreas[0]) + "\n")
		}
	}

	// Goals
	if len(m.data.Goals) > 0 {
		sb.WriteString("\n" + sectionStyle.Render("┃ Goals") + "\n")
		for _, g := range m.data.Goals {
			line := fmt.Sprintf("  %-24s ", g.Label)
			if isNumeric(g.Target) {
				line += m.goalProgress.ViewAs(g.Progress / 100)
				line += " " + dimStyle.Render(fmt.Sprintf("%s/%s %s", g.Current, g.Target, g.Unit))
				if g.Growth != 0 {
					line += " " + trendStyle(int(g.Growth)).Render(FormatGrowth(g.Growth))
				}
			} else {
				line += valueStyle.Render(g.Current) + dimStyle.Render(" → "+g.Target)
			}
			sb.WriteString(line + "\n")
		}
	}

	// Insights
	if len(r.Insights) > 0 {
		sb.WriteString("\n" + sectionStyle.Render("┃ Insights") + "\n")
		for _, s := range r.Insights {
			sb.WriteString(dimStyle.Render("  • "+s) + "\n")
		}
	}

	footer := footerKeyStyle.Render("[q]") + footerStyle.Render(" quit  ") +
		footerKeyStyle.Render("[r]") + footerStyle.Render(" refresh  ") +
		footerStyle.Render(fmt.Sprintf("Auto: %v", m.interval))
	sb.WriteString("\n" + footer)

	return containerStyle.Render(sb.String())
}

func categoryName(c task.Category) string {
	if info, ok := task.Lookup(c); ok {
		return info.Name
	}
	return string(c)
}

func isNumeric(s string) bool {
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}
