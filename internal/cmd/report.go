package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harrison/ccinsights/internal/behavioral"
	"github.com/harrison/ccinsights/internal/config"
	"github.com/harrison/ccinsights/internal/filelock"
	"github.com/harrison/ccinsights/internal/report"
)

// NewReportCommand creates the 'ccinsights report' command
func NewReportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Generate the usage dashboard",
		Long: `Analyze all session logs and write the HTML dashboard.

With --data-only the analytics document is written as JSON instead and
the output extension changes from .html to .json.

Examples:
  ccinsights report
  ccinsights report --output usage.html
  ccinsights report --data-only --input ./fixtures
  ccinsights report --mcp-server slack --mcp-server gmail`,
		Args: cobra.NoArgs,
		RunE: runReport,
	}

	addReportFlags(cmd)
	return cmd
}

func addReportFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("output", "o", "", fmt.Sprintf("Output file (default: %s)", config.DefaultOutput))
	cmd.Flags().Bool("data-only", false, "Write the analytics document as JSON instead of HTML")
	cmd.Flags().Bool("json-only", false, "Alias for --data-only")
	_ = cmd.Flags().MarkHidden("json-only")
}

func runReport(cmd *cobra.Command, args []string) error {
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

	data, err := renderReport(cfg, doc)
	if err != nil {
		return err
	}

	outputPath := cfg.OutputPath()
	if err := filelock.WriteFile(cmd.Context(), outputPath, data); err != nil {
		return fmt.Errorf("failed to write %s: %w", outputPath, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Saved report to: %s\n", outputPath)
	return nil
}

func renderReport(cfg *config.Config, doc *behavioral.Document) ([]byte, error) {
	if cfg.DataOnly {
		out, err := (&behavioral.JSONExporter{Pretty: true}).Export(doc)
		if err != nil {
			return nil, err
		}
		return []byte(out), nil
	}
	return report.NewRenderer().RenderHTML(doc)
}
