package behavioral

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

// record builds one JSONL line from field overrides
func record(t testing.TB, fields map[string]any) string {
	t.Helper()
	data, err := json.Marshal(fields)
	if err != nil {
		t.Fatalf("failed to marshal record: %v", err)
	}
	return string(data)
}

func usageBlock(in, out, cacheRead, cacheCreation int64) map[string]any {
	return map[string]any{
		"input_tokens":                in,
		"output_tokens":               out,
		"cache_read_input_tokens":     cacheRead,
		"cache_creation_input_tokens": cacheCreation,
	}
}

func toolUseLine(t testing.TB, session, ts, id, name string, input map[string]any, usage map[string]any) string {
	t.Helper()
	if input == nil {
		input = map[string]any{}
	}
	msg := map[string]any{
		"role":  "assistant",
		"model": "claude-sonnet-4-5-20250929",
		"content": []any{
			map[string]any{"type": "tool_use", "id": id, "name": name, "input": input},
		},
	}
	if usage != nil {
		msg["usage"] = usage
	}
	return record(t, map[string]any{
		"type":      "assistant",
		"sessionId": session,
		"timestamp": ts,
		"cwd":       "/Users/dev/code/app",
		"gitBranch": "main",
		"message":   msg,
	})
}

func toolResultLine(t testing.TB, session, ts, toolUseID, content string, isError bool) string {
	t.Helper()
	block := map[string]any{"type": "tool_result", "content": content, "is_error": isError}
	if toolUseID != "" {
		block["tool_use_id"] = toolUseID
	}
	return record(t, map[string]any{
		"type":      "user",
		"sessionId": session,
		"timestamp": ts,
		"message": map[string]any{
			"role":    "user",
			"content": []any{block},
		},
	})
}

func textLine(t testing.TB, session, ts, role, model string, usage map[string]any) string {
	t.Helper()
	msg := map[string]any{"role": role, "content": "hello"}
	if model != "" {
		msg["model"] = model
	}
	if usage != nil {
		msg["usage"] = usage
	}
	return record(t, map[string]any{
		"type":      role,
		"sessionId": session,
		"timestamp": ts,
		"message":   msg,
	})
}

// aggregateLines parses lines with a fresh parser and returns the finalized set
func aggregateLines(t testing.TB, lines ...string) *SessionSet {
	t.Helper()
	parser := NewParser(nil)
	agg := NewAggregator(DefaultPricingTable())
	for i, line := range lines {
		events, _ := parser.ParseLine([]byte(line), Source{File: "test.jsonl", Line: i + 1, Project: "proj"})
		for _, ev := range events {
			if err := agg.Add(ev); err != nil {
				t.Fatalf("Add() unexpected error: %v", err)
			}
		}
	}
	return agg.Finalize()
}

// writeLog writes lines to rel below dir
func writeLog(t testing.TB, dir, rel string, lines ...string) {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}
	var content []byte
	for _, l := range lines {
		content = append(content, l...)
		content = append(content, '\n')
	}
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("failed to write log: %v", err)
	}
}
