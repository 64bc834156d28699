package main

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/weekpulse/internal/history"
	httpapi "github.com/fyrsmithlabs/weekpulse/internal/http"
	"github.com/fyrsmithlabs/weekpulse/internal/insight"
	"github.com/fyrsmithlabs/weekpulse/internal/reflection"
	"github.com/fyrsmithlabs/weekpulse/internal/weekly"
)

var (
	saveWeek       int
	saveYear       int
	saveReflection string
	saveInsight    bool
	clearConfirm   bool
	historyLimit   int
)

// historyCmd is the parent command for saved weeks
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect and manage saved weeks",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved weeks, newest first",
	Args:  cobra.NoArgs,
	RunE:  runHistoryList,
}

var historyGetCmd = &cobra.Command{
	Use:   "get <year> <week>",
	Short: "Show one saved week",
	Args:  cobra.ExactArgs(2),
	RunE:  runHistoryGet,
}

var historySaveCmd = &cobra.Command{
	Use:   "save <tasks.json>",
	Short: "Save a week's tasks and reflection",
	Long: `Save the metrics snapshot and reflection for a week. Saving a week that
already exists replaces it. Defaults to the current ISO week.

Examples:
  wpctl history save week.json --reflection reflection.json --insight
  wpctl history save week.json --year 2025 --week 3`,
	Args: cobra.ExactArgs(1),
	RunE: runHistorySave,
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all saved weeks",
	Args:  cobra.NoArgs,
	RunE:  runHistoryClear,
}

// analyticsCmd shows the cross-week report
var analyticsCmd = &cobra.Command{
	Use:   "analytics",
	Short: "Show trends across saved weeks",
	Args:  cobra.NoArgs,
	RunE:  runAnalytics,
}

// goalsCmd shows SNS goal progress
var goalsCmd = &cobra.Command{
	Use:   "goals",
	Short: "Show goal progress",
	Args:  cobra.NoArgs,
	RunE:  runGoals,
}

func init() {
	historyListCmd.Flags().IntVarP(&historyLimit, "limit", "n", 0, "show at most n weeks (0 for all)")

	historySaveCmd.Flags().IntVar(&saveWeek, "week", 0, "ISO week number (default current week)")
	historySaveCmd.Flags().IntVar(&saveYear, "year", 0, "ISO year (default current year)")
	historySaveCmd.Flags().StringVarP(&saveReflection, "reflection", "r", "", "reflection JSON file")
	historySaveCmd.Flags().BoolVar(&saveInsight, "insight", false, "generate an insight for the week")

	historyClearCmd.Flags().BoolVar(&clearConfirm, "yes", false, "confirm deletion")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyGetCmd)
	historyCmd.AddCommand(historySaveCmd)
	historyCmd.AddCommand(historyClearCmd)
}

func runHistoryList(cmd *cobra.Command, _ []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	entries, err := newClient().History(ctx)
	if err != nil {
		return fmt.Errorf("failed to list history: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Year != entries[j].Year {
			return entries[i].Year > entries[j].Year
		}
		return entries[i].WeekNumber > entries[j].WeekNumber
	})
	if historyLimit > 0 && len(entries) > historyLimit {
		entries = entries[:historyLimit]
	}

	if outputFormat != "table" {
		return render(cmd.OutOrStdout(), entries)
	}
	if len(entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No saved weeks.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "WEEK\tDATES\tCOMPLETION\tTASKS\tS DONE\tINSIGHT")
	for _, e := range entries {
		engine := "-"
		if e.AIInsight != nil {
			engine = string(e.AIInsight.Engine)
		}
		fmt.Fprintf(w, "%d-W%02d\t%s\t%d%%\t%d/%d\t%d\t%s\n",
			e.Year, e.WeekNumber, e.DateRange,
			e.Metrics.CompletionRate, e.Metrics.CompletedTasks, e.Metrics.TotalTasks,
			e.Metrics.HighPriorityCompleted, engine)
	}
	return w.Flush()
}

func runHistoryGet(cmd *cobra.Command, args []string) error {
	year, week, err := parseWeekArgs(args[0], args[1])
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	entry, err := newClient().Week(ctx, week, year)
	if err != nil {
		return fmt.Errorf("failed to get week: %w", err)
	}
	if outputFormat != "table" {
		return render(cmd.OutOrStdout(), entry)
	}
	printEntry(cmd.OutOrStdout(), entry)
	return nil
}

func runHistorySave(cmd *cobra.Command, args []string) error {
	tasks, err := readTasks(cmd.InOrStdin(), args[0])
	if err != nil {
		return err
	}
	var in reflection.Input
	if saveReflection != "" {
		if err := readJSONFile(saveReflection, &in); err != nil {
			return err
		}
	}

	week, year := saveWeek, saveYear
	if week == 0 || year == 0 {
		cw, cy := weekly.WeekOf(time.Now())
		if week == 0 {
			week = cw
		}
		if year == 0 {
			year = cy
		}
	}
	if !weekly.ValidWeek(week, year) {
		return fmt.Errorf("invalid week %d of %d", week, year)
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	resp, err := newClient().SaveWeek(ctx, week, year, httpapi.SaveWeekRequest{
		DateRange:       weekly.DateRange(week, year),
		Tasks:           tasks,
		Reflection:      in,
		GenerateInsight: saveInsight,
	})
	if err != nil {
		return fmt.Errorf("failed to save week: %w", err)
	}
	if outputFormat != "table" {
		return render(cmd.OutOrStdout(), resp)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Saved %d-W%02d (%s): %d%% complete\n",
		year, week, resp.Entry.DateRange, resp.Entry.Metrics.CompletionRate)
	if resp.Insight != nil {
		if resp.Insight.Fallback {
			fmt.Fprintf(cmd.ErrOrStderr(), "note: remote insight unavailable (%s), rule engine used\n", resp.Insight.Reason)
		}
		fmt.Fprintln(cmd.OutOrStdout())
		fmt.Fprint(cmd.OutOrStdout(), insight.Report(resp.Insight.Insight, insight.FormatText))
	}
	return nil
}

func runHistoryClear(cmd *cobra.Command, _ []string) error {
	if !clearConfirm {
		return fmt.Errorf("refusing to delete all weeks without --yes")
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	if err := newClient().ClearHistory(ctx); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "History cleared.")
	return nil
}

func runAnalytics(cmd *cobra.Command, _ []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	report, err := newClient().Analytics(ctx)
	if err != nil {
		return fmt.Errorf("failed to load analytics: %w", err)
	}
	if outputFormat != "table" {
		return render(cmd.OutOrStdout(), report)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Weeks:               %d\n", report.Weeks)
	fmt.Fprintf(out, "Average completion:  %d%%\n", report.AverageCompletionRate)
	fmt.Fprintf(out, "Improvement trend:   %+dpt\n", report.ImprovementTrend)
	fmt.Fprintf(out, "Strategic alignment: %d%%\n", report.StrategicAlignment)
	fmt.Fprintf(out, "High-energy tasks:   %d (%d done)\n", report.HighEnergyTasks, report.HighEnergyCompleted)
	fmt.Fprintf(out, "Energy efficiency:   %d\n", report.EnergyEfficiencyScore)
	if report.BestCategory != "" {
		fmt.Fprintf(out, "Best category:       %s\n", report.BestCategory)
		fmt.Fprintf(out, "Weakest category:    %s\n", report.WeakestCategory)
	}
	if len(report.Insights) > 0 {
		fmt.Fprintln(out)
		for _, s := range report.Insights {
			fmt.Fprintf(out, "- %s\n", s)
		}
	}
	return nil
}

func runGoals(cmd *cobra.Command, _ []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	resp, err := newClient().Goals(ctx)
	if err != nil {
		return fmt.Errorf("failed to load goals: %w", err)
	}
	if outputFormat != "table" {
		return render(cmd.OutOrStdout(), resp)
	}

	keys := make([]string, 0, len(resp.Goals))
	for k := range resp.Goals {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "GOAL\tCURRENT\tTARGET\tPROGRESS\tWEEKLY")
	for _, k := range keys {
		g := resp.Goals[k]
		fmt.Fprintf(w, "%s\t%s %s\t%s %s\t%.0f%%\t%+g\n",
			g.Label, g.Current, g.Unit, g.Target, g.Unit, g.Progress, g.WeeklyGrowth)
	}
	return w.Flush()
}

func printEntry(out io.Writer, e history.Entry) {
	fmt.Fprintf(out, "Week %d-W%02d (%s)\n\n", e.Year, e.WeekNumber, e.DateRange)
	printSnapshot(out, e.Metrics)

	r := e.Reflection
	if r.Wins != "" || r.Challenges != "" || r.Learnings != "" || r.FocusNextWeek != "" {
		fmt.Fprintln(out)
		printField(out, "Wins", r.Wins)
		printField(out, "Challenges", r.Challenges)
		printField(out, "Learnings", r.Learnings)
		printField(out, "Next week", r.FocusNextWeek)
	}
	if e.AIInsight != nil {
		fmt.Fprintln(out)
		fmt.Fprint(out, insight.Report(*e.AIInsight, insight.FormatText))
	}
}

func printField(out io.Writer, label, value string) {
	if strings.TrimSpace(value) == "" {
		return
	}
	fmt.Fprintf(out, "%s: %s\n", label, value)
}

func parseWeekArgs(yearArg, weekArg string) (year, week int, err error) {
	year, err = strconv.Atoi(yearArg)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid year %q", yearArg)
	}
	week, err = strconv.Atoi(weekArg)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid week %q", weekArg)
	}
	if !weekly.ValidWeek(week, year) {
		return 0, 0, fmt.Errorf("invalid week %d of %d", week, year)
	}
	return year, week, nil
}
