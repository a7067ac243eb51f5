package logger

import (
	"fmt"
	"strings"

	"github.com/fatih/color"

	"github.com/harrison/ccinsights/internal/behavioral"
)

// highCostThreshold marks the summary cost in the warning color
const highCostThreshold = 100.0

// colorScheme defines consistent colors for different metric types.
// Green: success/positive metrics
// Red: failure/error metrics
// Yellow: warning/threshold metrics
// Cyan: labels and identifiers
type colorScheme struct {
	success *color.Color
	fail    *color.Color
	warn    *color.Color
	label   *color.Color
	value   *color.Color
}

// newColorScheme creates the standard color scheme for metrics.
func newColorScheme() *colorScheme {
	return &colorScheme{
		success: color.New(color.FgGreen),
		fail:    color.New(color.FgRed),
		warn:    color.New(color.FgYellow),
		label:   color.New(color.FgCyan),
		value:   color.New(color.FgWhite),
	}
}

// formatColorizedMetric formats a single metric with colorized label and value.
// Format: "label: value"
func formatColorizedMetric(label string, value interface{}, scheme *colorScheme) string {
	return fmt.Sprintf("%s: %s", scheme.label.Sprint(label), scheme.value.Sprintf("%v", value))
}

// formatColorizedSummary formats the document summary with color coding.
// Format: "sessions: N, tokens: N, cost: $X.XX, tools: N, errors: N, skipped: N"
// Error and skipped counts are red when non-zero; a cost above
// highCostThreshold is yellow.
func formatColorizedSummary(doc *behavioral.Document) string {
	if doc == nil {
		return ""
	}

	scheme := newColorScheme()
	parts := []string{
		fmt.Sprintf("%s: %s", scheme.success.Sprint("sessions"), scheme.value.Sprintf("%d", doc.Meta.Sessions)),
		formatColorizedMetric("tokens", doc.Tokens.TotalTokens, scheme),
	}

	costStr := fmt.Sprintf("$%.2f", doc.Tokens.TotalCost)
	if doc.Tokens.TotalCost > highCostThreshold {
		parts = append(parts, fmt.Sprintf("%s: %s", scheme.warn.Sprint("cost"), scheme.warn.Sprint(costStr)))
	} else {
		parts = append(parts, formatColorizedMetric("cost", costStr, scheme))
	}

	parts = append(parts, formatColorizedMetric("tools", doc.Tools.TotalCalls, scheme))

	if doc.Errors.Failures > 0 {
		parts = append(parts, fmt.Sprintf("%s: %s", scheme.fail.Sprint("errors"), scheme.fail.Sprintf("%d", doc.Errors.Failures)))
	}
	if doc.Meta.SkippedTotal > 0 {
		parts = append(parts, fmt.Sprintf("%s: %s", scheme.fail.Sprint("skipped"), scheme.fail.Sprintf("%d", doc.Meta.SkippedTotal)))
	}

	return strings.Join(parts, ", ")
}

// severityColor maps a recommendation severity to its display color
func severityColor(s behavioral.Severity) *color.Color {
	switch s {
	case behavioral.SeverityCritical:
		return color.New(color.FgRed, color.Bold)
	case behavioral.SeverityWarning:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgCyan)
	}
}
