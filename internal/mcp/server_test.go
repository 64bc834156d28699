package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/weekpulse/internal/goals"
	"github.com/fyrsmithlabs/weekpulse/internal/history"
	"github.com/fyrsmithlabs/weekpulse/internal/insight"
	"github.com/fyrsmithlabs/weekpulse/internal/reflection"
	"github.com/fyrsmithlabs/weekpulse/internal/services"
	"github.com/fyrsmithlabs/weekpulse/internal/storage"
	"github.com/fyrsmithlabs/weekpulse/internal/task"
	"github.com/fyrsmithlabs/weekpulse/internal/weekly"
)

func newTestRegistry(t *testing.T, withGoals bool) services.Registry {
	t.Helper()
	ctx := context.Background()
	kv := storage.NewMemory()
	hist := history.NewStore(ctx, kv)
	profiles := reflection.NewProfileStore(ctx, kv)
	gen := insight.NewGenerator(nil)
	svc, err := weekly.NewService(weekly.Options{History: hist, Profiles: profiles, Generator: gen})
	require.NoError(t, err)

	opts := services.Options{Weekly: svc, History: hist, Profiles: profiles, Generator: gen, Storage: kv}
	if withGoals {
		opts.Goals = goals.NewTracker(ctx, kv)
	}
	return services.NewRegistry(opts)
}

// connect starts s on an in-memory transport and returns a client session.
func connect(t *testing.T, s *Server) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()
	clientTransport, serverTransport := mcp.NewInMemoryTransports()

	ss, err := s.mcp.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ss.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cs.Close() })
	return cs
}

func callTool(t *testing.T, cs *mcp.ClientSession, name string, args map[string]interface{}, out interface{}) *mcp.CallToolResult {
	t.Helper()
	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	if out != nil && !res.IsError {
		data, err := json.Marshal(res.StructuredContent)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(data, out))
	}
	return res
}

func sampleTasks() []map[string]interface{} {
	return []map[string]interface{}{
		{"id": 1, "category": "note", "title": "Write essay", "priority": "S", "energy": "high", "completed": true, "estimatedHours": 2},
		{"id": 2, "category": "note", "title": "Edit draft", "priority": "A", "energy": "medium", "completed": false, "estimatedHours": 1},
		{"id": 3, "category": "topform", "title": "Monthly report", "priority": "S", "energy": "low", "completed": true, "estimatedHours": 1},
	}
}

func TestNewServer(t *testing.T) {
	t.Run("requires weekly service", func(t *testing.T) {
		_, err := NewServer(nil, services.NewRegistry(services.Options{}))
		require.Error(t, err)
	})

	t.Run("registers catalog", func(t *testing.T) {
		s, err := NewServer(&Config{Name: "weekpulse", Version: "test", Logger: zap.NewNop()}, newTestRegistry(t, true))
		require.NoError(t, err)
		assert.Equal(t, len(toolCatalog), s.toolRegistry.Count())
	})

	t.Run("skips goal tools without tracker", func(t *testing.T) {
		s, err := NewServer(nil, newTestRegistry(t, false))
		require.NoError(t, err)
		_, ok := s.toolRegistry.Get("goals_status")
		assert.False(t, ok)
	})
}

func TestServer_ListTools(t *testing.T) {
	s, err := NewServer(nil, newTestRegistry(t, true))
	require.NoError(t, err)
	cs := connect(t, s)

	res, err := cs.ListTools(context.Background(), nil)
	require.NoError(t, err)

	names := make(map[string]bool, len(res.Tools))
	for _, tool := range res.Tools {
		names[tool.Name] = true
	}
	for _, meta := range toolCatalog {
		assert.True(t, names[meta.Name], "tool %s not advertised", meta.Name)
	}
}

func TestTool_WeeklySnapshot(t *testing.T) {
	s, err := NewServer(nil, newTestRegistry(t, false))
	require.NoError(t, err)
	cs := connect(t, s)

	var out snapshotOutput
	res := callTool(t, cs, "weekly_snapshot", map[string]interface{}{"tasks": sampleTasks()}, &out)
	require.False(t, res.IsError)
	assert.Equal(t, 67, out.Snapshot.CompletionRate)
	assert.Equal(t, 2, out.Snapshot.HighPriorityCompleted)
	assert.Equal(t, 100, out.Snapshot.CategoryProgress[task.CategoryTopform])

	res = callTool(t, cs, "weekly_snapshot", map[string]interface{}{
		"tasks": []map[string]interface{}{{"id": 1, "category": "nope", "title": "x", "priority": "S", "energy": "high"}},
	}, nil)
	assert.True(t, res.IsError)
}

func TestTool_WeeklyInsight(t *testing.T) {
	s, err := NewServer(nil, newTestRegistry(t, false))
	require.NoError(t, err)
	cs := connect(t, s)

	var out insightOutput
	res := callTool(t, cs, "weekly_insight", map[string]interface{}{
		"tasks":      sampleTasks(),
		"reflection": map[string]interface{}{"wins": "Shipped the essay", "mood": "low"},
		"format":     "markdown",
	}, &out)
	require.False(t, res.IsError)
	assert.Equal(t, string(insight.EngineRuleBased), out.Engine)
	assert.False(t, out.Fallback)
	assert.Contains(t, out.FormattedText, out.Insight.Summary)

	res = callTool(t, cs, "weekly_insight", map[string]interface{}{"tasks": sampleTasks(), "format": "html"}, nil)
	assert.True(t, res.IsError)
}

func TestTool_History(t *testing.T) {
	reg := newTestRegistry(t, false)
	ctx := context.Background()
	for _, week := range []int{2, 3} {
		_, err := reg.Weekly().SaveWeek(ctx, weekly.SaveRequest{Week: week, Year: 2025})
		require.NoError(t, err)
	}

	s, err := NewServer(nil, reg)
	require.NoError(t, err)
	cs := connect(t, s)

	var got historyGetOutput
	res := callTool(t, cs, "history_get", map[string]interface{}{"year": 2025, "week": 3}, &got)
	require.False(t, res.IsError)
	assert.Equal(t, 3, got.Entry.WeekNumber)

	res = callTool(t, cs, "history_get", map[string]interface{}{"year": 2025, "week": 10}, nil)
	assert.True(t, res.IsError)

	var list historyListOutput
	res = callTool(t, cs, "history_list", map[string]interface{}{"limit": 1}, &list)
	require.False(t, res.IsError)
	assert.Equal(t, 1, list.Count)
	assert.Equal(t, 2, list.Total)
	assert.Equal(t, 3, list.Entries[0].WeekNumber)

	var report analyticsOutput
	res = callTool(t, cs, "analytics_report", map[string]interface{}{}, &report)
	require.False(t, res.IsError)
	assert.Equal(t, 2, report.Report.Weeks)
}

func TestTool_GoalsStatus(t *testing.T) {
	s, err := NewServer(nil, newTestRegistry(t, true))
	require.NoError(t, err)
	cs := connect(t, s)

	var out goalsOutput
	res := callTool(t, cs, "goals_status", map[string]interface{}{}, &out)
	require.False(t, res.IsError)
	require.Len(t, out.Goals, 8)
	assert.Equal(t, "business", out.Goals[0].Key)
	require.Len(t, out.Phases, 3)
	assert.True(t, out.Phases[0].Current)
	assert.Equal(t, 4, out.Phases[0].Total)
	assert.Equal(t, 0, out.Phases[0].Progress)
}

func TestTool_Search(t *testing.T) {
	s, err := NewServer(nil, newTestRegistry(t, true))
	require.NoError(t, err)
	cs := connect(t, s)

	var out toolSearchOutput
	res := callTool(t, cs, "tool_search", map[string]interface{}{"query": "history"}, &out)
	require.False(t, res.IsError)
	assert.GreaterOrEqual(t, out.Count, 2)
	assert.Equal(t, len(toolCatalog), out.TotalTools)

	res = callTool(t, cs, "tool_search", map[string]interface{}{"query": " "}, nil)
	assert.True(t, res.IsError)

	var list toolListOutput
	res = callTool(t, cs, "tool_list", map[string]interface{}{"category": "search"}, &list)
	require.False(t, res.IsError)
	assert.Equal(t, 2, list.Count)
}
