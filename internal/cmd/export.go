package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/harrison/ccinsights/internal/behavioral"
	"github.com/harrison/ccinsights/internal/filelock"
)

// NewExportCommand creates the 'ccinsights export' command
func NewExportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the analytics document",
		Long: `Export the analytics document as JSON, Markdown or CSV.

Examples:
  ccinsights export --format json --output insights.json
  ccinsights export --format markdown --output report.md
  ccinsights export --format md  # Outputs to stdout`,
		Args: cobra.NoArgs,
		RunE: runExport,
	}

	cmd.Flags().StringP("format", "f", "json", "Export format: json, markdown (or md), csv")
	cmd.Flags().StringP("output", "o", "", "Output file path (empty for stdout)")

	return cmd
}

func runExport(cmd *cobra.Command, args []string) error {
	formatFlag, _ := cmd.Flags().GetString("format")
	outputPath, _ := cmd.Flags().GetString("output")

	format, err := parseExportFormat(formatFlag)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	log, err := newRunLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer log.Close()

	doc, err := analyze(cmd.Context(), cmd, cfg, log)
	if err != nil {
		log.LogError(err.Error())
		return err
	}

	content, err := behavioral.ExportToString(doc, format)
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	if outputPath == "" {
		fmt.Fprintln(cmd.OutOrStdout(), content)
		return nil
	}

	if err := filelock.WriteFile(cmd.Context(), outputPath, []byte(content)); err != nil {
		return fmt.Errorf("export to file failed: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Exported insights to: %s\n", outputPath)
	return nil
}

// parseExportFormat validates and normalizes the export format
func parseExportFormat(format string) (string, error) {
	format = strings.ToLower(strings.TrimSpace(format))

	// Normalize aliases
	if format == "md" {
		format = "markdown"
	}

	switch format {
	case "json", "markdown", "csv":
		return format, nil
	}
	return "", fmt.Errorf("invalid format '%s': must be one of: json, markdown (or md), csv", format)
}
