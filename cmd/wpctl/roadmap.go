package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	httpapi "github.com/fyrsmithlabs/weekpulse/internal/http"
)

var achieveUndo bool

var roadmapCmd = &cobra.Command{
	Use:   "roadmap",
	Short: "Show the long-term roadmap",
	Long: `Show each long-term phase with its milestones and progress.

Examples:
  wpctl goals roadmap
  wpctl goals roadmap -o json`,
	Args: cobra.NoArgs,
	RunE: runRoadmap,
}

var achieveCmd = &cobra.Command{
	Use:   "achieve <phase> <goal>",
	Short: "Mark a roadmap milestone achieved",
	Long: `Mark a roadmap milestone achieved, or not achieved with --undo.

Examples:
  wpctl goals achieve phase-1 phase1-online
  wpctl goals achieve phase-1 phase1-online --undo`,
	Args: cobra.ExactArgs(2),
	RunE: runAchieve,
}

var phaseCmd = &cobra.Command{
	Use:   "phase <phase>",
	Short: "Set the current roadmap phase",
	Args:  cobra.ExactArgs(1),
	RunE:  runPhase,
}

func init() {
	achieveCmd.Flags().BoolVar(&achieveUndo, "undo", false, "mark the milestone not achieved")

	goalsCmd.AddCommand(roadmapCmd)
	goalsCmd.AddCommand(achieveCmd)
	goalsCmd.AddCommand(phaseCmd)
}

func runRoadmap(cmd *cobra.Command, _ []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	resp, err := newClient().Roadmap(ctx)
	if err != nil {
		return fmt.Errorf("failed to load roadmap: %w", err)
	}
	return printRoadmap(cmd.OutOrStdout(), resp)
}

func runAchieve(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	resp, err := newClient().SetMilestone(ctx, args[0], args[1], !achieveUndo)
	if err != nil {
		return fmt.Errorf("failed to update milestone: %w", err)
	}
	return printRoadmap(cmd.OutOrStdout(), resp)
}

func runPhase(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	resp, err := newClient().SetCurrentPhase(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to set phase: %w", err)
	}
	return printRoadmap(cmd.OutOrStdout(), resp)
}

func printRoadmap(out io.Writer, resp httpapi.RoadmapResponse) error {
	if outputFormat != "table" {
		return render(out, resp)
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, p := range resp.Phases {
		marker := " "
		if p.ID == resp.CurrentPhase {
			marker = "*"
		}
		fmt.Fprintf(w, "%s %s\t%s\t%d%%\n", marker, p.Title, p.Period, p.Progress)
		for _, g := range p.Goals {
			check := "[ ]"
			if g.Achieved {
				check = "[x]"
			}
			fmt.Fprintf(w, "    %s %s\t%s\t\n", check, g.Title, g.ID)
		}
	}
	return w.Flush()
}
