package main

import (
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/weekpulse/internal/monitor"
	"github.com/fyrsmithlabs/weekpulse/internal/reflection"
)

var (
	exportFormat string
	exportFile   string

	profilePersona  string
	profileTone     string
	profileModel    string
	profileAPIKey   string
	profileFallback bool

	dashboardInterval time.Duration
)

// exportCmd downloads saved data
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export saved weeks as JSON or CSV",
	Long: `Export saved weeks. JSON is the full bundle and can be imported again;
CSV is one row per week.

Examples:
  wpctl export > backup.json
  wpctl export --format csv --file weeks.csv`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

// profileCmd is the parent command for the reflection profile
var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Show or change the insight profile",
}

var profileGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Show the insight profile",
	Args:  cobra.NoArgs,
	RunE:  runProfileGet,
}

var profileSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Update the insight profile",
	Long: `Update fields of the insight profile. Only flags given are changed.

Examples:
  wpctl profile set --persona INTJ --tone "direct, concise"
  wpctl profile set --api-key "$OPENAI_API_KEY" --allow-fallback=false`,
	Args: cobra.NoArgs,
	RunE: runProfileSet,
}

// dashboardCmd opens the live terminal dashboard
var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Open the live terminal dashboard",
	Args:  cobra.NoArgs,
	RunE:  runDashboard,
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "json", "export format: json or csv")
	exportCmd.Flags().StringVarP(&exportFile, "file", "f", "", "write to file instead of stdout")

	profileSetCmd.Flags().StringVar(&profilePersona, "persona", "", "personality type used to shape insights")
	profileSetCmd.Flags().StringVar(&profileTone, "tone", "", "tone of generated insights")
	profileSetCmd.Flags().StringVar(&profileModel, "model", "", "preferred remote model")
	profileSetCmd.Flags().StringVar(&profileAPIKey, "api-key", "", "remote model API key")
	profileSetCmd.Flags().BoolVar(&profileFallback, "allow-fallback", true, "fall back to the rule engine when the remote call fails")

	profileCmd.AddCommand(profileGetCmd)
	profileCmd.AddCommand(profileSetCmd)

	dashboardCmd.Flags().DurationVar(&dashboardInterval, "interval", 5*time.Second, "refresh interval")
}

func runExport(cmd *cobra.Command, _ []string) error {
	if exportFormat != "json" && exportFormat != "csv" {
		return fmt.Errorf("invalid format %q (use json or csv)", exportFormat)
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	data, err := newClient().Export(ctx, exportFormat)
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}
	if exportFile == "" {
		_, err = cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(exportFile, data, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", exportFile, err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d bytes to %s\n", len(data), exportFile)
	return nil
}

func runProfileGet(cmd *cobra.Command, _ []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	p, err := newClient().Profile(ctx)
	if err != nil {
		return fmt.Errorf("failed to load profile: %w", err)
	}
	if outputFormat != "table" {
		return render(cmd.OutOrStdout(), p)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Persona:        %s\n", p.Persona)
	fmt.Fprintf(out, "Tone:           %s\n", p.Tone)
	fmt.Fprintf(out, "API key:        %s\n", yesNo(p.HasAPIKey))
	if p.PreferredModel != "" {
		fmt.Fprintf(out, "Model:          %s\n", p.PreferredModel)
	}
	fmt.Fprintf(out, "Rule fallback:  %s\n", yesNo(p.AllowRuleFallback))
	if !p.LastUpdated.IsZero() {
		fmt.Fprintf(out, "Last updated:   %s\n", p.LastUpdated.Format(time.RFC3339))
	}
	return nil
}

func runProfileSet(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	var patch reflection.Patch
	if flags.Changed("persona") {
		patch.Persona = &profilePersona
	}
	if flags.Changed("tone") {
		patch.Tone = &profileTone
	}
	if flags.Changed("model") {
		patch.PreferredModel = &profileModel
	}
	if flags.Changed("api-key") {
		patch.APIKey = &profileAPIKey
	}
	if flags.Changed("allow-fallback") {
		patch.AllowRuleFallback = &profileFallback
	}
	if patch == (reflection.Patch{}) {
		return fmt.Errorf("nothing to update")
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	p, err := newClient().UpdateProfile(ctx, patch)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	if outputFormat != "table" {
		return render(cmd.OutOrStdout(), p)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Profile updated (persona %s, API key %s).\n", p.Persona, yesNo(p.HasAPIKey))
	return nil
}

func runDashboard(cmd *cobra.Command, _ []string) error {
	c := newClient()
	model := monitor.NewModel(c, c.BaseURL(), dashboardInterval)
	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("dashboard error: %w", err)
	}
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
