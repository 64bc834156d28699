package mcp

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/weekpulse/internal/analytics"
	"github.com/fyrsmithlabs/weekpulse/internal/history"
	"github.com/fyrsmithlabs/weekpulse/internal/insight"
	"github.com/fyrsmithlabs/weekpulse/internal/snapshot"
)

// registerTools registers all MCP tools with the server.
func (s *Server) registerTools() error {
	s.registerWeeklyTools()
	s.registerHistoryTools()
	s.registerGoalTools()
	s.registerSearchTools()

	for _, meta := range toolCatalog {
		if meta.Category == CategoryGoals && s.registry.Goals() == nil {
			continue
		}
		if err := s.toolRegistry.Register(meta); err != nil {
			return fmt.Errorf("registering %s: %w", meta.Name, err)
		}
	}
	return nil
}

var toolCatalog = []*ToolMetadata{
	{Name: "weekly_snapshot", Description: "Compute completion rate, S-priority completions, per-category progress and energy/priority distributions for a task list.", Category: CategorySnapshot, Keywords: []string{"metrics", "tasks", "completion"}},
	{Name: "weekly_insight", Description: "Generate coaching guidance for a week from its tasks and reflection.", Category: CategoryInsight, Keywords: []string{"coach", "advice", "reflection", "openai"}},
	{Name: "history_get", Description: "Fetch the saved entry for one ISO week.", Category: CategoryHistory, Keywords: []string{"week", "entry"}},
	{Name: "history_list", Description: "List saved weekly entries, newest first.", Category: CategoryHistory, Keywords: []string{"weeks", "entries"}},
	{Name: "analytics_report", Description: "Analyze saved history: average completion, best and weakest categories, trend and strategic alignment.", Category: CategoryAnalytics, Keywords: []string{"trend", "alignment", "report"}},
	{Name: "goals_status", Description: "Show platform goals with progress and weekly growth, plus roadmap phase progress.", Category: CategoryGoals, Keywords: []string{"followers", "revenue", "targets", "roadmap", "phase"}},
	{Name: "tool_list", Description: "List the available weekpulse tools.", Category: CategorySearch},
	{Name: "tool_search", Description: "Search the available tools by name, description or keyword.", Category: CategorySearch},
}

// instrument records metrics for one tool call and logs failures.
func (s *Server) instrument(ctx context.Context, tool string) func(err error) {
	category := CategorySearch
	if meta, ok := s.toolRegistry.Get(tool); ok {
		category = meta.Category
	}
	done := s.metrics.Track(ctx, tool, category)
	return func(err error) {
		done(err)
		if err != nil {
			s.logger.Warn("tool call failed", zap.String("tool", tool), zap.Error(err))
		}
	}
}

// ===== WEEKLY TOOLS =====

type snapshotInput struct {
	Tasks []taskInput `json:"tasks" jsonschema:"Tasks of the week"`
}

type snapshotOutput struct {
	Snapshot snapshot.Snapshot `json:"snapshot" jsonschema:"Computed weekly metrics"`
}

type insightInput struct {
	Tasks      []taskInput     `json:"tasks" jsonschema:"Tasks of the week"`
	Reflection reflectionInput `json:"reflection,omitempty" jsonschema:"Weekly reflection"`
	Format     string          `json:"format,omitempty" jsonschema:"Output format: json, markdown or text (default: json)"`
}

type insightOutput struct {
	Insight        insight.Insight `json:"insight" jsonschema:"Generated insight"`
	Engine         string          `json:"engine" jsonschema:"Engine that produced the insight"`
	Fallback       bool            `json:"fallback" jsonschema:"True when the remote engine failed and rules answered"`
	FallbackReason string          `json:"fallback_reason,omitempty" jsonschema:"Why the remote engine failed"`
	FormattedText  string          `json:"formatted_text,omitempty" jsonschema:"Formatted insight (for text/markdown)"`
}

func (s *Server) registerWeeklyTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "weekly_snapshot",
		Description: "Compute weekly metrics for a task list: completion rate, completed S-priority tasks, per-category progress and energy and priority distributions.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args snapshotInput) (*mcp.CallToolResult, snapshotOutput, error) {
		done := s.instrument(ctx, "weekly_snapshot")
		snap, err := s.registry.Weekly().Snapshot(toTasks(args.Tasks))
		done(err)
		if err != nil {
			return nil, snapshotOutput{}, err
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf(
				"Completion rate %d%% (%d of %d tasks). Completed S-priority tasks: %d.",
				snap.CompletionRate, snap.CompletedTasks, snap.TotalTasks, snap.HighPriorityCompleted)}},
		}, snapshotOutput{Snapshot: snap}, nil
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "weekly_insight",
		Description: "Generate coaching guidance for a week. Uses the configured remote model when a key is set and falls back to built-in rules when allowed.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args insightInput) (*mcp.CallToolResult, insightOutput, error) {
		done := s.instrument(ctx, "weekly_insight")

		format := strings.ToLower(args.Format)
		if format != "" && format != "json" && format != string(insight.FormatMarkdown) && format != string(insight.FormatText) {
			err := fmt.Errorf("invalid format %q: use json, markdown or text", args.Format)
			done(err)
			return nil, insightOutput{}, err
		}

		res, err := s.registry.Weekly().Insight(ctx, toTasks(args.Tasks), args.Reflection.toReflection())
		done(err)
		if err != nil {
			return nil, insightOutput{}, err
		}

		s.metrics.RecordEngine(ctx, res)
		out := insightOutput{
			Insight:        res.Insight,
			Engine:         string(res.Engine),
			Fallback:       res.Fallback,
			FallbackReason: insight.Reason(res.Cause),
		}
		text := res.Insight.Summary
		if format == string(insight.FormatMarkdown) || format == string(insight.FormatText) {
			out.FormattedText = insight.Report(res.Insight, insight.Format(format))
			text = out.FormattedText
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: text}},
		}, out, nil
	})
}

// ===== HISTORY TOOLS =====

type historyGetInput struct {
	Year int `json:"year" jsonschema:"ISO year"`
	Week int `json:"week" jsonschema:"ISO week number (1-53)"`
}

type historyGetOutput struct {
	Entry history.Entry `json:"entry" jsonschema:"Saved weekly entry"`
}

type historyListInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"Maximum entries to return (default: 12)"`
}

type historyListOutput struct {
	Entries []history.Entry `json:"entries" jsonschema:"Saved entries, newest first"`
	Count   int             `json:"count" jsonschema:"Number of entries returned"`
	Total   int             `json:"total" jsonschema:"Number of saved entries"`
}

type analyticsInput struct{}

type analyticsOutput struct {
	Report analytics.Report `json:"report" jsonschema:"Analytics over saved history"`
}

const defaultHistoryLimit = 12

func (s *Server) registerHistoryTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "history_get",
		Description: "Fetch the saved entry for one ISO week, including its metrics, reflection and insight.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args historyGetInput) (*mcp.CallToolResult, historyGetOutput, error) {
		done := s.instrument(ctx, "history_get")
		e, err := s.registry.Weekly().Entry(args.Week, args.Year)
		done(err)
		if err != nil {
			return nil, historyGetOutput{}, err
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf(
				"Week %d of %d (%s): completion rate %d%%.", e.WeekNumber, e.Year, e.DateRange, e.Metrics.CompletionRate)}},
		}, historyGetOutput{Entry: e}, nil
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "history_list",
		Description: "List saved weekly entries, newest first.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args historyListInput) (*mcp.CallToolResult, historyListOutput, error) {
		done := s.instrument(ctx, "history_list")
		defer done(nil)

		limit := args.Limit
		if limit <= 0 {
			limit = defaultHistoryLimit
		}
		entries := s.registry.Weekly().History()
		total := len(entries)
		sort.SliceStable(entries, func(i, j int) bool {
			if entries[i].Year != entries[j].Year {
				return entries[i].Year > entries[j].Year
			}
			return entries[i].WeekNumber > entries[j].WeekNumber
		})
		if len(entries) > limit {
			entries = entries[:limit]
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("Found %d of %d saved weeks", len(entries), total)}},
		}, historyListOutput{Entries: entries, Count: len(entries), Total: total}, nil
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "analytics_report",
		Description: "Analyze saved history: average completion rate, best and weakest categories, improvement trend and strategic alignment.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args analyticsInput) (*mcp.CallToolResult, analyticsOutput, error) {
		done := s.instrument(ctx, "analytics_report")
		defer done(nil)

		report := s.registry.Weekly().Analytics()
		text := fmt.Sprintf("%d weeks analyzed, average completion rate %d%%.", report.Weeks, report.AverageCompletionRate)
		if len(report.Insights) > 0 {
			text += "\n" + strings.Join(report.Insights, "\n")
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: text}},
		}, analyticsOutput{Report: report}, nil
	})
}

// ===== GOAL TOOLS =====

type goalsInput struct{}

type goalStatus struct {
	Key          string  `json:"key" jsonschema:"Platform key"`
	Label        string  `json:"label" jsonschema:"Display label"`
	Target       string  `json:"target" jsonschema:"Target value"`
	Current      string  `json:"current" jsonschema:"Current value"`
	Unit         string  `json:"unit,omitempty" jsonschema:"Unit"`
	Progress     float64 `json:"progress" jsonschema:"Progress toward target in percent"`
	WeeklyGrowth float64 `json:"weekly_growth" jsonschema:"Change since the last recorded week"`
}

type phaseStatus struct {
	ID       string `json:"id" jsonschema:"Phase ID"`
	Title    string `json:"title" jsonschema:"Phase title"`
	Period   string `json:"period" jsonschema:"Years the phase covers"`
	Current  bool   `json:"current" jsonschema:"Whether this is the current phase"`
	Achieved int    `json:"achieved" jsonschema:"Milestones achieved"`
	Total    int    `json:"total" jsonschema:"Milestones in the phase"`
	Progress int    `json:"progress" jsonschema:"Achieved milestones in percent"`
}

type goalsOutput struct {
	Goals  []goalStatus  `json:"goals" jsonschema:"Goals sorted by key"`
	Phases []phaseStatus `json:"phases" jsonschema:"Long-term roadmap phases in order"`
}

func (s *Server) registerGoalTools() {
	tracker := s.registry.Goals()
	if tracker == nil {
		s.logger.Warn("goal tracker not configured, skipping goal tools")
		return
	}

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "goals_status",
		Description: "Show platform goals with progress toward target and weekly growth, plus long-term roadmap phase progress.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args goalsInput) (*mcp.CallToolResult, goalsOutput, error) {
		done := s.instrument(ctx, "goals_status")
		defer done(nil)

		current := tracker.Goals()
		keys := make([]string, 0, len(current))
		for k := range current {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		out := goalsOutput{Goals: make([]goalStatus, 0, len(keys))}
		lines := make([]string, 0, len(keys))
		for _, k := range keys {
			g := current[k]
			out.Goals = append(out.Goals, goalStatus{
				Key:          k,
				Label:        g.Label,
				Target:       g.Target.String(),
				Current:      g.Current.String(),
				Unit:         g.Unit,
				Progress:     g.Progress(),
				WeeklyGrowth: tracker.WeeklyGrowth(k),
			})
			lines = append(lines, fmt.Sprintf("%s: %s / %s %s", g.Label, g.Current, g.Target, g.Unit))
		}

		roadmap := tracker.Roadmap()
		out.Phases = make([]phaseStatus, 0, len(roadmap.Phases))
		for _, p := range roadmap.Phases {
			achieved := 0
			for _, m := range p.Goals {
				if m.Achieved {
					achieved++
				}
			}
			out.Phases = append(out.Phases, phaseStatus{
				ID:       p.ID,
				Title:    p.Title,
				Period:   p.Period,
				Current:  p.Current,
				Achieved: achieved,
				Total:    len(p.Goals),
				Progress: p.Progress(),
			})
			lines = append(lines, fmt.Sprintf("%s (%s): %d%%", p.Title, p.Period, p.Progress()))
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: strings.Join(lines, "\n")}},
		}, out, nil
	})
}
