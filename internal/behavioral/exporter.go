package behavioral

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/samber/lo"
)

// Exporter renders a document as text
type Exporter interface {
	Export(doc *Document) (string, error)
}

var errNilDocument = errors.New("document cannot be nil")

// JSONExporter renders the document as JSON
type JSONExporter struct {
	Pretty bool // Enable pretty printing with indentation
}

// Export converts the document to a JSON string
func (je *JSONExporter) Export(doc *Document) (string, error) {
	if doc == nil {
		return "", errNilDocument
	}

	var data []byte
	var err error
	if je.Pretty {
		data, err = json.MarshalIndent(doc, "", "  ")
	} else {
		data, err = json.Marshal(doc)
	}
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return string(data), nil
}

// MarkdownExporter renders a readable summary of the document
type MarkdownExporter struct {
	IncludeTimestamp bool // Include generated_at in the header
}

// Export converts the document to Markdown
func (me *MarkdownExporter) Export(doc *Document) (string, error) {
	if doc == nil {
		return "", errNilDocument
	}

	var sb strings.Builder
	m := doc.Meta

	sb.WriteString("# Usage Insights\n\n")
	if me.IncludeTimestamp {
		fmt.Fprintf(&sb, "**Generated**: %s\n\n", m.GeneratedAt)
	}

	// Summary section
	sb.WriteString("## Summary\n\n")
	fmt.Fprintf(&sb, "- **Period**: %s to %s\n", orDash(m.DateRange.Start), orDash(m.DateRange.End))
	fmt.Fprintf(&sb, "- **Sessions**: %s\n", humanize.Comma(int64(m.Sessions)))
	fmt.Fprintf(&sb, "- **Events**: %s\n", humanize.Comma(int64(m.Events)))
	fmt.Fprintf(&sb, "- **Files**: %d, %s (%s lines, %s skipped)\n",
		m.Files, humanize.Bytes(uint64(m.Bytes)), humanize.Comma(int64(m.Lines)), humanize.Comma(int64(m.SkippedTotal)))
	fmt.Fprintf(&sb, "- **Total Tokens**: %s\n", humanize.Comma(doc.Tokens.TotalTokens))
	fmt.Fprintf(&sb, "- **Estimated Cost**: $%.2f\n", doc.Tokens.TotalCost)
	fmt.Fprintf(&sb, "- **Cache Hit Rate**: %.1f%%\n", doc.Tokens.CacheHitRate*100)
	sb.WriteString("\n")

	// Health section
	if len(doc.Health.Recommendations) > 0 {
		sb.WriteString("## Health\n\n")
		for _, r := range doc.Health.Recommendations {
			fmt.Fprintf(&sb, "- **%s** %s\n", strings.ToUpper(string(r.Severity)), r.Message)
		}
		sb.WriteString("\n")
	}

	// Token usage section
	t := doc.Tokens.Totals
	sb.WriteString("## Tokens\n\n")
	sb.WriteString("| Category | Tokens |\n")
	sb.WriteString("|----------|--------|\n")
	fmt.Fprintf(&sb, "| Input | %s |\n", humanize.Comma(t.Input))
	fmt.Fprintf(&sb, "| Output | %s |\n", humanize.Comma(t.Output))
	fmt.Fprintf(&sb, "| Cache read | %s |\n", humanize.Comma(t.CacheRead))
	fmt.Fprintf(&sb, "| Cache creation | %s |\n", humanize.Comma(t.CacheCreation))
	sb.WriteString("\n")

	if len(doc.Tokens.WhatIf) > 0 {
		sb.WriteString("| Priced as | Cost |\n")
		sb.WriteString("|-----------|------|\n")
		for _, w := range doc.Tokens.WhatIf {
			fmt.Fprintf(&sb, "| %s | $%.2f |\n", w.Tier, w.Cost)
		}
		sb.WriteString("\n")
	}

	// Tool section
	if len(doc.Tools.Tools) > 0 {
		sb.WriteString("## Tools\n\n")
		sb.WriteString("| Tool | Calls | Failures | Failure Rate |\n")
		sb.WriteString("|------|-------|----------|--------------|\n")
		for _, tool := range truncate(doc.Tools.Tools, m.TopN) {
			fmt.Fprintf(&sb, "| %s | %s | %d | %.1f%% |\n",
				tool.Name, humanize.Comma(int64(tool.Count)), tool.Failures, tool.FailureRate*100)
		}
		sb.WriteString("\n")
	}

	// MCP section
	if len(doc.MCP.Servers) > 0 || len(doc.MCP.Unused) > 0 {
		sb.WriteString("## MCP Servers\n\n")
		sb.WriteString("| Server | Calls | Failures |\n")
		sb.WriteString("|--------|-------|----------|\n")
		for _, name := range sortedKeys(doc.MCP.Servers) {
			srv := doc.MCP.Servers[name]
			fmt.Fprintf(&sb, "| %s | %d | %d |\n", name, srv.Calls, srv.Failures)
		}
		for _, name := range doc.MCP.Unused {
			fmt.Fprintf(&sb, "| %s (unused) | 0 | 0 |\n", name)
		}
		sb.WriteString("\n")
	}

	// Subagent section
	if sub := doc.Subagents; len(sub.Types) > 0 || sub.SidechainEvents > 0 {
		sb.WriteString("## Subagents\n\n")
		if len(sub.Types) > 0 {
			sb.WriteString("| Type | Runs | Incomplete | Mean Duration |\n")
			sb.WriteString("|------|------|------------|---------------|\n")
			for _, st := range sub.Types {
				fmt.Fprintf(&sb, "| %s | %d | %d | %.1fs |\n", st.Type, st.Count, st.Incomplete, st.MeanMs/1000)
			}
			sb.WriteString("\n")
		}
		if sub.SidechainEvents > 0 {
			fmt.Fprintf(&sb, "Sidechain events: %s in %d session(s)\n\n", humanize.Comma(int64(sub.SidechainEvents)), sub.SidechainSessions)
		}
	}

	// Chain section
	if len(doc.Chains.Bigrams) > 0 {
		sb.WriteString("## Tool Chains\n\n")
		sb.WriteString("| Sequence | Count |\n")
		sb.WriteString("|----------|-------|\n")
		for _, seq := range doc.Chains.Bigrams {
			fmt.Fprintf(&sb, "| %s | %d |\n", escapePipes(seq.Sequence), seq.Count)
		}
		sb.WriteString("\n")
	}

	// Project section
	if len(doc.Projects.Projects) > 0 {
		sb.WriteString("## Projects\n\n")
		sb.WriteString("| Project | Sessions | Tokens | Cost |\n")
		sb.WriteString("|---------|----------|--------|------|\n")
		for _, p := range doc.Projects.Projects {
			fmt.Fprintf(&sb, "| %s | %d | %s | $%.2f |\n",
				p.DisplayName, p.Sessions, humanize.Comma(p.TotalTokens), p.Cost)
		}
		sb.WriteString("\n")
	}

	// Data quality section
	if len(m.Notes) > 0 {
		sb.WriteString("## Data Quality\n\n")
		for _, note := range m.Notes {
			fmt.Fprintf(&sb, "- %s\n", note)
		}
		sb.WriteString("\n")
	}

	return sb.String(), nil
}

// CSVExporter renders the ranked tables as Type,Name,Value rows
type CSVExporter struct{}

// Export converts the document to CSV
func (ce *CSVExporter) Export(doc *Document) (string, error) {
	if doc == nil {
		return "", errNilDocument
	}

	var sb strings.Builder
	w := csv.NewWriter(&sb)
	rows := [][]string{{"Type", "Name", "Value"}}
	add := func(kind, name string, value any) {
		rows = append(rows, []string{kind, name, fmt.Sprint(value)})
	}

	add("Summary", "Sessions", doc.Meta.Sessions)
	add("Summary", "Events", doc.Meta.Events)
	add("Summary", "SkippedLines", doc.Meta.SkippedTotal)
	add("Summary", "TotalCost", strconv.FormatFloat(doc.Tokens.TotalCost, 'f', 4, 64))
	add("Tokens", "Input", doc.Tokens.Totals.Input)
	add("Tokens", "Output", doc.Tokens.Totals.Output)
	add("Tokens", "CacheRead", doc.Tokens.Totals.CacheRead)
	add("Tokens", "CacheCreation", doc.Tokens.Totals.CacheCreation)
	for _, d := range doc.Tokens.Daily {
		add("DailyCost", d.Key, strconv.FormatFloat(d.Cost, 'f', 4, 64))
	}
	for _, tool := range doc.Tools.Tools {
		add("ToolCalls", tool.Name, tool.Count)
	}
	for _, name := range sortedKeys(doc.MCP.Servers) {
		add("MCPCalls", name, doc.MCP.Servers[name].Calls)
	}
	for _, seq := range doc.Chains.Bigrams {
		add("Chain", seq.Sequence, seq.Count)
	}

	if err := w.WriteAll(rows); err != nil {
		return "", fmt.Errorf("failed to write CSV: %w", err)
	}
	return sb.String(), nil
}

// ExportToString renders doc in the named format.
// Supports format values: "json", "markdown", "md", "csv"
func ExportToString(doc *Document, format string) (string, error) {
	exporter, err := exporterFor(format)
	if err != nil {
		return "", err
	}
	return exporter.Export(doc)
}

func exporterFor(format string) (Exporter, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json":
		return &JSONExporter{Pretty: true}, nil
	case "markdown", "md":
		return &MarkdownExporter{IncludeTimestamp: true}, nil
	case "csv":
		return &CSVExporter{}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s (supported: json, markdown, csv)", format)
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := lo.Keys(m)
	sort.Strings(keys)
	return keys
}

func escapePipes(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
