package insight

import (
	"fmt"
	"strings"
	"time"
)

// Format selects a report layout.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatText     Format = "text"
)

// Report renders an insight for humans.
func Report(ins Insight, format Format) string {
	if format == FormatText {
		return formatAsText(ins)
	}
	return formatAsMarkdown(ins)
}

func formatAsMarkdown(ins Insight) string {
	var sb strings.Builder

	sb.WriteString("# Weekly Insight\n\n")
	sb.WriteString(fmt.Sprintf("**Engine:** %s\n", ins.Engine))
	sb.WriteString(fmt.Sprintf("**Generated:** %s\n\n", ins.GeneratedAt.Format(time.RFC3339)))

	sb.WriteString("## Summary\n\n")
	sb.WriteString(ins.Summary + "\n\n")

	if len(ins.FocusAreas) > 0 {
		sb.WriteString("## Focus Areas\n\n")
		for _, f := range ins.FocusAreas {
			sb.WriteString(fmt.Sprintf("- %s\n", f))
		}
		sb.WriteString("\n")
	}

	if len(ins.Recommendations) > 0 {
		sb.WriteString("## Recommendations\n\n")
		for _, r := range ins.Recommendations {
			sb.WriteString(fmt.Sprintf("- %s\n", r))
		}
		sb.WriteString("\n")
	}

	if ins.Encouragement != "" {
		sb.WriteString("## Encouragement\n\n" + ins.Encouragement + "\n\n")
	}
	if ins.EnergyAdvice != "" {
		sb.WriteString("## Energy\n\n" + ins.EnergyAdvice + "\n")
	}

	return sb.String()
}

func formatAsText(ins Insight) string {
	var sb strings.Builder

	sb.WriteString("WEEKLY INSIGHT\n")
	sb.WriteString(strings.Repeat("=", 50) + "\n\n")
	sb.WriteString(ins.Summary + "\n\n")

	for _, f := range ins.FocusAreas {
		sb.WriteString("* " + f + "\n")
	}
	for _, r := range ins.Recommendations {
		sb.WriteString("> " + r + "\n")
	}
	if ins.Encouragement != "" {
		sb.WriteString("\n" + ins.Encouragement + "\n")
	}
	if ins.EnergyAdvice != "" {
		sb.WriteString(ins.EnergyAdvice + "\n")
	}
	sb.WriteString(fmt.Sprintf("\n[%s, %s]\n", ins.Engine, ins.GeneratedAt.Format(time.RFC3339)))

	return sb.String()
}
