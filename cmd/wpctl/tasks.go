package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/weekpulse/internal/insight"
	"github.com/fyrsmithlabs/weekpulse/internal/reflection"
	"github.com/fyrsmithlabs/weekpulse/internal/snapshot"
	"github.com/fyrsmithlabs/weekpulse/internal/task"
)

var (
	reflectionFile string
	reportFormat   string
)

func init() {
	insightCmd.Flags().StringVarP(&reflectionFile, "reflection", "r", "", "reflection JSON file")
	insightCmd.Flags().StringVar(&reportFormat, "format", "text", "report format: text or markdown")
}

// snapshotCmd computes metrics locally
var snapshotCmd = &cobra.Command{
	Use:   "snapshot <tasks.json>",
	Short: "Compute the metrics snapshot for a task list",
	Long: `Compute completion rate, S-priority completions and per-category progress
for a task list. The file holds a JSON array of tasks or an object with a
"tasks" array. Use - to read stdin. No server is needed.

Examples:
  wpctl snapshot week.json
  cat week.json | wpctl snapshot - -o json`,
	Args: cobra.ExactArgs(1),
	RunE: runSnapshot,
}

// insightCmd asks the server for an insight
var insightCmd = &cobra.Command{
	Use:   "insight <tasks.json>",
	Short: "Generate an insight for a task list and reflection",
	Long: `Generate an insight on the server. The server uses the remote model when
a key is configured and falls back to the rule engine when allowed.

Examples:
  wpctl insight week.json --reflection reflection.json
  wpctl insight week.json --format markdown > insight.md`,
	Args: cobra.ExactArgs(1),
	RunE: runInsight,
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	tasks, err := readTasks(cmd.InOrStdin(), args[0])
	if err != nil {
		return err
	}
	if err := task.ValidateAll(tasks); err != nil {
		return err
	}

	snap := snapshot.Build(tasks)
	if outputFormat != "table" {
		return render(cmd.OutOrStdout(), snap)
	}
	printSnapshot(cmd.OutOrStdout(), snap)
	return nil
}

func printSnapshot(out io.Writer, snap snapshot.Snapshot) {
	fmt.Fprintf(out, "Completion:  %d%% (%d/%d)\n", snap.CompletionRate, snap.CompletedTasks, snap.TotalTasks)
	fmt.Fprintf(out, "S completed: %d\n\n", snap.HighPriorityCompleted)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CATEGORY\tPROGRESS")
	for _, c := range task.ProgressCategories {
		name := string(c)
		if info, ok := task.Lookup(c); ok {
			name = info.Name
		}
		fmt.Fprintf(w, "%s\t%d%%\n", name, snap.CategoryProgress[c])
	}
	w.Flush()
}

func runInsight(cmd *cobra.Command, args []string) error {
	format := insight.Format(reportFormat)
	if format != insight.FormatText && format != insight.FormatMarkdown {
		return fmt.Errorf("invalid format %q (use text or markdown)", reportFormat)
	}

	tasks, err := readTasks(cmd.InOrStdin(), args[0])
	if err != nil {
		return err
	}
	var in reflection.Input
	if reflectionFile != "" {
		if err := readJSONFile(reflectionFile, &in); err != nil {
			return err
		}
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	resp, err := newClient().Insight(ctx, tasks, in)
	if err != nil {
		return fmt.Errorf("insight failed: %w", err)
	}
	if outputFormat != "table" {
		return render(cmd.OutOrStdout(), resp)
	}
	if resp.Fallback {
		fmt.Fprintf(cmd.ErrOrStderr(), "note: remote insight unavailable (%s), rule engine used\n", resp.Reason)
	}
	fmt.Fprint(cmd.OutOrStdout(), insight.Report(resp.Insight, format))
	return nil
}

// readTasks reads a JSON task list from path, or from stdin when path is "-".
// Both a bare array and {"tasks": [...]} are accepted.
func readTasks(stdin io.Reader, path string) ([]task.Task, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read tasks: %w", err)
	}

	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("no tasks in %s", path)
	}

	var tasks []task.Task
	if data[0] == '[' {
		err = json.Unmarshal(data, &tasks)
	} else {
		var wrapped struct {
			Tasks []task.Task `json:"tasks"`
		}
		err = json.Unmarshal(data, &wrapped)
		tasks = wrapped.Tasks
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse tasks: %w", err)
	}
	return tasks, nil
}

func readJSONFile(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}
