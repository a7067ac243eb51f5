package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseExportFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"json", "json", false},
		{"JSON", "json", false},
		{" markdown ", "markdown", false},
		{"md", "markdown", false},
		{"csv", "csv", false},
		{"xml", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseExportFormat(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExportToStdout(t *testing.T) {
	input := writeLogs(t)

	tests := []struct {
		format string
		want   []string
	}{
		{"md", []string{"# Usage Insights", "## Tools", "Bash"}},
		{"csv", []string{"Summary", "Bash"}},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			stdout, _, err := execute(t, "export", "--input", input, "--format", tt.format)
			require.NoError(t, err)
			for _, want := range tt.want {
				assert.Contains(t, stdout, want)
			}
		})
	}
}

func TestExportJSONToStdout(t *testing.T) {
	stdout, _, err := execute(t, "export", "--input", writeLogs(t))
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &decoded))
	assert.Contains(t, decoded, "meta")
	assert.Contains(t, decoded, "health")
}

func TestExportToFile(t *testing.T) {
	output := filepath.Join(t.TempDir(), "reports", "insights.md")
	stdout, _, err := execute(t, "export", "--input", writeLogs(t), "-f", "markdown", "-o", output)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Exported insights to: "+output)

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# Usage Insights")
}

func TestExportInvalidFormat(t *testing.T) {
	_, _, err := execute(t, "export", "--input", writeLogs(t), "--format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}
