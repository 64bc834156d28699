// Package main implements wpctl, the command-line client for a weekpulse server.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/fyrsmithlabs/weekpulse/internal/client"
)

var (
	// serverURL is the base URL for the weekpulse HTTP server
	serverURL string
	// outputFormat selects table, json or yaml rendering
	outputFormat string
	// requestTimeout bounds each API call
	requestTimeout time.Duration
	// version information
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "wpctl",
	Short: "CLI for the weekpulse server",
	Long: `wpctl is a command-line interface for a running weekpulse server.
It saves weeks, generates insights, inspects history and goals, and opens a
live terminal dashboard.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:9191", "weekpulse server URL")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "output format: table, json or yaml")
	rootCmd.PersistentFlags().DurationVar(&requestTimeout, "timeout", 60*time.Second, "per-request timeout")

	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(snapshotCmd)
	rootCmd.AddCommand(insightCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(analyticsCmd)
	rootCmd.AddCommand(goalsCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(profileCmd)
	rootCmd.AddCommand(dashboardCmd)
}

// healthCmd checks server health
var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check weekpulse server health",
	Long: `Check the health status of the weekpulse HTTP server.

Examples:
  # Check health
  wpctl health

  # Check health on a different server
  wpctl health --server http://localhost:9292`,
	RunE: runHealth,
}

func runHealth(cmd *cobra.Command, _ []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	resp, err := newClient().Health(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if outputFormat != "table" {
		return render(cmd.OutOrStdout(), resp)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Status:  %s\n", resp.Status)
	if resp.Version != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "Version: %s\n", resp.Version)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Weeks:   %d\n", resp.Weeks)
	return nil
}

func newClient() *client.Client {
	return client.New(serverURL, requestTimeout)
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, requestTimeout)
}

// render writes v as JSON or YAML according to --output.
func render(w io.Writer, v interface{}) error {
	switch outputFormat {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		// Round-trip through JSON so YAML keys follow the API's json tags.
		data, err := json.Marshal(v)
		if err != nil {
			return err
		}
		var generic interface{}
		if err := json.Unmarshal(data, &generic); err != nil {
			return err
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(generic)
	default:
		return fmt.Errorf("unsupported output format %q (use table, json or yaml)", outputFormat)
	}
}
