package behavioral

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestParseLineSkipReasons(t *testing.T) {
	tests := []struct {
		name   string
		line   string
		reason SkipReason
	}{
		{"invalid json", `{invalid json}`, SkipMalformedJSON},
		{"truncated json", `{"sessionId":"s1","timestamp":`, SkipMalformedJSON},
		{"missing session", `{"timestamp":"2025-01-15T10:00:00Z","message":{"role":"user","content":"hi"}}`, SkipMissingField},
		{"missing timestamp", `{"sessionId":"s1","message":{"role":"user","content":"hi"}}`, SkipMissingField},
		{"missing message", `{"sessionId":"s1","timestamp":"2025-01-15T10:00:00Z"}`, SkipMissingField},
		{"missing role", `{"sessionId":"s1","timestamp":"2025-01-15T10:00:00Z","message":{"content":"hi"}}`, SkipMissingField},
		{"unknown role", `{"sessionId":"s1","timestamp":"2025-01-15T10:00:00Z","message":{"role":"tool","content":"hi"}}`, SkipUnknownRole},
		{"bad timestamp", `{"sessionId":"s1","timestamp":"yesterday","message":{"role":"user","content":"hi"}}`, SkipBadTimestamp},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewParser(nil)
			events, skipped := p.ParseLine([]byte(tt.line), Source{File: "a.jsonl", Line: 7})
			if len(events) != 0 {
				t.Errorf("ParseLine() got %d events, want 0", len(events))
			}
			if skipped == nil {
				t.Fatalf("ParseLine() expected skip, got none")
			}
			if skipped.Reason != tt.reason {
				t.Errorf("ParseLine() reason = %s, want %s", skipped.Reason, tt.reason)
			}
			if skipped.File != "a.jsonl" || skipped.Line != 7 {
				t.Errorf("ParseLine() location = %s:%d, want a.jsonl:7", skipped.File, skipped.Line)
			}
			stats := p.Stats()
			if stats.Skipped[tt.reason] != 1 || stats.SkippedTotal() != 1 {
				t.Errorf("Stats().Skipped = %v, want exactly one %s", stats.Skipped, tt.reason)
			}
		})
	}
}

func TestParseLineMalformedDoesNotChangeTotals(t *testing.T) {
	good := toolUseLine(t, "s1", "2025-01-15T10:00:00Z", "tu1", "Bash", nil, usageBlock(100, 50, 0, 0))
	before := aggregateLines(t, good)
	after := aggregateLines(t, good, `{"sessionId":"s1", broken`)

	s1, _ := before.Get("s1")
	s2, _ := after.Get("s1")
	if s1.Tokens != s2.Tokens {
		t.Errorf("malformed line changed tokens: %+v vs %+v", s1.Tokens, s2.Tokens)
	}

	p := NewParser(nil)
	p.ParseLine([]byte(good), Source{})
	p.ParseLine([]byte(`not json`), Source{})
	if got := p.Stats().Skipped[SkipMalformedJSON]; got != 1 {
		t.Errorf("malformed count = %d, want 1", got)
	}
}

func TestParseLineNonMessageAndBlank(t *testing.T) {
	p := NewParser(nil)
	lines := []string{
		`{"type":"summary","summary":"Fix the build","leafUuid":"x"}`,
		`{"type":"file-history-snapshot","messageId":"m1","snapshot":{}}`,
		`{"type":"queue-operation","operation":"enqueue"}`,
		``,
		`   `,
	}
	for _, l := range lines {
		events, skipped := p.ParseLine([]byte(l), Source{})
		if events != nil || skipped != nil {
			t.Errorf("ParseLine(%q) = %v, %v, want nothing", l, events, skipped)
		}
	}
	stats := p.Stats()
	if stats.NonMessage != 3 {
		t.Errorf("NonMessage = %d, want 3", stats.NonMessage)
	}
	if stats.Blank != 2 {
		t.Errorf("Blank = %d, want 2", stats.Blank)
	}
	if stats.SkippedTotal() != 0 {
		t.Errorf("SkippedTotal() = %d, want 0", stats.SkippedTotal())
	}
}

func TestParseLineContentBlocks(t *testing.T) {
	line := record(t, map[string]any{
		"type":        "assistant",
		"sessionId":   "s1",
		"timestamp":   "2025-01-15T10:00:00.123Z",
		"cwd":         "/work/app",
		"gitBranch":   "feature",
		"isSidechain": true,
		"message": map[string]any{
			"id":    "msg_1",
			"role":  "assistant",
			"model": "claude-opus-4-5-20251101",
			"content": []any{
				map[string]any{"type": "thinking", "thinking": "hmm"},
				map[string]any{"type": "text", "text": "Running it"},
				map[string]any{"type": "tool_use", "id": "tu1", "name": "Bash", "input": map[string]any{"command": "ls"}},
				map[string]any{"type": "image", "source": map[string]any{}},
			},
			"usage": usageBlock(10, 20, 30, 40),
		},
	})

	p := NewParser(nil)
	events, skipped := p.ParseLine([]byte(line), Source{File: "p/s1.jsonl", Line: 3, Project: "p"})
	if skipped != nil {
		t.Fatalf("ParseLine() unexpected skip: %+v", skipped)
	}
	if len(events) != 3 {
		t.Fatalf("ParseLine() got %d events, want 3", len(events))
	}

	wantKinds := []Kind{KindText, KindText, KindToolUse}
	for i, ev := range events {
		if ev.Kind != wantKinds[i] {
			t.Errorf("event %d kind = %s, want %s", i, ev.Kind, wantKinds[i])
		}
		if ev.SessionID != "s1" || ev.Project != "p" || ev.GitBranch != "feature" || !ev.Sidechain {
			t.Errorf("event %d lost line metadata: %+v", i, ev)
		}
	}

	if events[0].Usage == nil || *events[0].Usage != (TokenCounts{10, 20, 30, 40}) {
		t.Errorf("first event usage = %v, want {10 20 30 40}", events[0].Usage)
	}
	for _, ev := range events[1:] {
		if ev.Usage != nil {
			t.Errorf("usage attached to a later event: %+v", ev)
		}
	}

	tu := events[2]
	if tu.ToolName != "Bash" || tu.ToolUseID != "tu1" || tu.ToolInput["command"] != "ls" {
		t.Errorf("tool_use event = %+v", tu)
	}
	if tu.Timestamp.Nanosecond() != 123000000 {
		t.Errorf("fractional seconds lost: %v", tu.Timestamp)
	}
}

func TestParseLineStringContent(t *testing.T) {
	p := NewParser(nil)
	events, _ := p.ParseLine([]byte(textLine(t, "s1", "2025-01-15T10:00:00Z", "user", "", nil)), Source{})
	if len(events) != 1 || events[0].Kind != KindText || events[0].Role != RoleUser {
		t.Fatalf("ParseLine() = %+v, want one user text event", events)
	}
	if events[0].Usage != nil {
		t.Errorf("usage = %v, want nil", events[0].Usage)
	}
}

func TestParseLineNestedCacheCreation(t *testing.T) {
	line := record(t, map[string]any{
		"sessionId": "s1",
		"timestamp": "2025-01-15T10:00:00Z",
		"message": map[string]any{
			"role":    "assistant",
			"content": "ok",
			"usage": map[string]any{
				"input_tokens":  5,
				"output_tokens": 6,
				"cache_creation": map[string]any{
					"ephemeral_5m_input_tokens": 100,
					"ephemeral_1h_input_tokens": 20,
				},
			},
		},
	})
	events, _ := NewParser(nil).ParseLine([]byte(line), Source{})
	if len(events) != 1 || events[0].Usage == nil {
		t.Fatalf("ParseLine() = %+v, want one event with usage", events)
	}
	if got := events[0].Usage.CacheCreation; got != 120 {
		t.Errorf("CacheCreation = %d, want 120", got)
	}
}

func TestParseLineKeepsMessageID(t *testing.T) {
	mk := func(block map[string]any) string {
		return record(t, map[string]any{
			"sessionId": "s1",
			"timestamp": "2025-01-15T10:00:00Z",
			"message": map[string]any{
				"id":      "msg_same",
				"role":    "assistant",
				"content": []any{block},
				"usage":   usageBlock(100, 10, 0, 0),
			},
		})
	}
	p := NewParser(nil)
	first, _ := p.ParseLine([]byte(mk(map[string]any{"type": "text", "text": "a"})), Source{})
	second, _ := p.ParseLine([]byte(mk(map[string]any{"type": "tool_use", "id": "tu1", "name": "Read"})), Source{})

	// Copies are merged by the aggregator, the parser keeps both usages
	for i, events := range [][]Event{first, second} {
		if events[0].Usage == nil || events[0].MessageID != "msg_same" {
			t.Errorf("copy %d = %+v, want usage and message id", i, events[0])
		}
	}
	if second[0].Kind != KindToolUse {
		t.Errorf("second copy content dropped: %+v", second[0])
	}
}

func TestParseLineToolResultResolution(t *testing.T) {
	p := NewParser(nil)
	p.ParseLine([]byte(toolUseLine(t, "s1", "2025-01-15T10:00:00Z", "tu1", "Grep", nil, nil)), Source{})

	tests := []struct {
		name          string
		session       string
		id            string
		wantName      string
		wantUnmatched bool
	}{
		{"matched", "s1", "tu1", "Grep", false},
		{"unknown id", "s1", "tu-missing", UnknownTool, true},
		{"other session", "s2", "tu1", UnknownTool, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events, _ := p.ParseLine([]byte(toolResultLine(t, tt.session, "2025-01-15T10:00:01Z", tt.id, "done", false)), Source{})
			if len(events) != 1 {
				t.Fatalf("ParseLine() got %d events, want 1", len(events))
			}
			ev := events[0]
			if ev.Kind != KindToolResult || ev.ToolName != tt.wantName || ev.Unmatched != tt.wantUnmatched {
				t.Errorf("result = {%s %q unmatched=%v}, want {tool_result %q unmatched=%v}",
					ev.Kind, ev.ToolName, ev.Unmatched, tt.wantName, tt.wantUnmatched)
			}
		})
	}
}

func TestParseLineFailureHeuristic(t *testing.T) {
	tests := []struct {
		name    string
		content string
		isError bool
		want    bool
	}{
		{"explicit flag", "fine", true, true},
		{"error prefix", "Error: file not found", false, true},
		{"tool use error tag", "<tool_use_error>String not found</tool_use_error>", false, true},
		{"keyword", "bash: foo: command not found", false, true},
		{"keyword case", "PERMISSION DENIED while opening", false, true},
		{"traceback", "Traceback (most recent call last):\n  File x", false, true},
		{"success", "PASS\nok  ./...", false, false},
		{"error inside text", "no Error: here at start", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewParser(nil)
			p.ParseLine([]byte(toolUseLine(t, "s1", "2025-01-15T10:00:00Z", "tu1", "Bash", nil, nil)), Source{})
			events, _ := p.ParseLine([]byte(toolResultLine(t, "s1", "2025-01-15T10:00:01Z", "tu1", tt.content, tt.isError)), Source{})
			if got := events[0].IsError; got != tt.want {
				t.Errorf("IsError = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseLineCustomKeywords(t *testing.T) {
	p := NewParser([]string{"  FLAKY  ", ""})
	p.ParseLine([]byte(toolUseLine(t, "s1", "2025-01-15T10:00:00Z", "tu1", "Bash", nil, nil)), Source{})
	events, _ := p.ParseLine([]byte(toolResultLine(t, "s1", "2025-01-15T10:00:01Z", "tu1", "test was flaky", false)), Source{})
	if !events[0].IsError {
		t.Errorf("custom keyword not applied")
	}
	events, _ = p.ParseLine([]byte(toolResultLine(t, "s1", "2025-01-15T10:00:02Z", "tu1", "permission denied", false)), Source{})
	if events[0].IsError {
		t.Errorf("default keywords applied despite custom list")
	}
}

func TestParseResultTextBlocks(t *testing.T) {
	line := record(t, map[string]any{
		"sessionId": "s1",
		"timestamp": "2025-01-15T10:00:01Z",
		"message": map[string]any{
			"role": "user",
			"content": []any{map[string]any{
				"type":        "tool_result",
				"tool_use_id": "tu1",
				"content": []any{
					map[string]any{"type": "text", "text": "first"},
					map[string]any{"type": "text", "text": "Exit code 1"},
				},
			}},
		},
	})
	events, _ := NewParser(nil).ParseLine([]byte(line), Source{})
	if !events[0].IsError {
		t.Errorf("keyword in a later text block not detected")
	}
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
		hour    int
		offset  int
	}{
		{"2025-01-15T10:00:00Z", false, 10, 0},
		{"2025-01-15T10:00:00.999Z", false, 10, 0},
		{"2025-01-15T23:30:00+05:30", false, 23, 5*3600 + 1800},
		{"2025-01-15T10:00:00", false, 10, 0},
		{"2025-01-15T10:00:00.5", false, 10, 0},
		{"15/01/2025", true, 0, 0},
		{"", true, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			ts, err := parseTimestamp(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("parseTimestamp(%q) expected error", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseTimestamp(%q) unexpected error: %v", tt.input, err)
			}
			if ts.Hour() != tt.hour {
				t.Errorf("Hour() = %d, want %d", ts.Hour(), tt.hour)
			}
			if _, off := ts.Zone(); off != tt.offset {
				t.Errorf("offset = %d, want %d", off, tt.offset)
			}
		})
	}
}

func TestParseReader(t *testing.T) {
	content := strings.Join([]string{
		toolUseLine(t, "s1", "2025-01-15T10:00:00Z", "tu1", "Read", nil, usageBlock(1, 2, 0, 0)),
		`{broken`,
		toolResultLine(t, "s1", "2025-01-15T10:00:01Z", "tu1", "ok", false),
	}, "\n")

	p := NewParser(nil)
	var got []Event
	err := p.ParseReader(strings.NewReader(content), Source{File: "x.jsonl"}, func(ev Event) error {
		got = append(got, ev)
		return nil
	})
	if err != nil {
		t.Fatalf("ParseReader() unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ParseReader() got %d events, want 2", len(got))
	}
	if got[1].Line != 3 {
		t.Errorf("line number = %d, want 3", got[1].Line)
	}
	samples := p.Stats().Samples
	if len(samples) != 1 || samples[0].Line != 2 || samples[0].File != "x.jsonl" {
		t.Errorf("Samples = %+v, want one at x.jsonl:2", samples)
	}
}

func TestParseReaderLineTooLong(t *testing.T) {
	content := strings.Join([]string{
		toolUseLine(t, "s1", "2025-01-15T10:00:00Z", "tu1", "Read", nil, usageBlock(1, 0, 0, 0)),
		strings.Repeat("x", maxLineSize+1),
		toolUseLine(t, "s1", "2025-01-15T10:00:05Z", "tu2", "Bash", nil, usageBlock(100, 0, 0, 0)),
	}, "\n") + "\n"

	p := NewParser(nil)
	var got []Event
	err := p.ParseReader(strings.NewReader(content), Source{File: "p/s1.jsonl"}, func(ev Event) error {
		got = append(got, ev)
		return nil
	})
	if err != nil {
		t.Fatalf("ParseReader() unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ParseReader() got %d events, want 2", len(got))
	}
	if got[1].ToolName != "Bash" || got[1].Line != 3 || got[1].Tokens().Input != 100 {
		t.Errorf("event after long line = %+v, want Bash at line 3", got[1])
	}

	stats := p.Stats()
	if stats.Lines != 3 || stats.Skipped[SkipLineTooLong] != 1 || stats.SkippedTotal() != 1 {
		t.Errorf("Stats() = %+v, want 3 lines and one line-too-long skip", stats)
	}
	if len(stats.Samples) != 1 || stats.Samples[0].Line != 2 {
		t.Errorf("Samples = %+v, want one at line 2", stats.Samples)
	}
}

func TestParseReaderLineEndings(t *testing.T) {
	tests := []struct {
		name    string
		content string
		events  int
		lines   int
	}{
		{"no trailing newline", "A\nB", 2, 2},
		{"trailing newline", "A\nB\n", 2, 2},
		{"crlf", "A\r\nB\r\n", 2, 2},
		{"blank lines", "A\n\n\nB\n", 2, 4},
		{"empty", "", 0, 0},
		{"limit sized line", "A\n" + strings.Repeat(" ", maxLineSize) + "\n", 1, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line := textLine(t, "s1", "2025-01-15T10:00:00Z", "user", "", nil)
			content := strings.NewReplacer("A", line, "B", line).Replace(tt.content)

			p := NewParser(nil)
			events := 0
			err := p.ParseReader(strings.NewReader(content), Source{File: "x.jsonl"}, func(Event) error {
				events++
				return nil
			})
			if err != nil {
				t.Fatalf("ParseReader() unexpected error: %v", err)
			}
			if events != tt.events || p.Stats().Lines != tt.lines {
				t.Errorf("events = %d, lines = %d; want %d, %d", events, p.Stats().Lines, tt.events, tt.lines)
			}
			if p.Stats().SkippedTotal() != 0 {
				t.Errorf("unexpected skips: %v", p.Stats().Skipped)
			}
		})
	}
}

func TestParseReaderSinkError(t *testing.T) {
	sentinel := errors.New("stop")
	content := textLine(t, "s1", "2025-01-15T10:00:00Z", "user", "", nil)
	err := NewParser(nil).ParseReader(strings.NewReader(content), Source{File: "x.jsonl"}, func(Event) error {
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Errorf("ParseReader() error = %v, want wrapped sentinel", err)
	}
}

func TestParseStatsSampleLimit(t *testing.T) {
	p := NewParser(nil)
	for i := 0; i < MaxSkipSamples+5; i++ {
		p.ParseLine([]byte("nope"), Source{Line: i + 1})
	}
	stats := p.Stats()
	if len(stats.Samples) != MaxSkipSamples {
		t.Errorf("Samples = %d, want %d", len(stats.Samples), MaxSkipSamples)
	}
	if stats.SkippedTotal() != MaxSkipSamples+5 {
		t.Errorf("SkippedTotal() = %d, want %d", stats.SkippedTotal(), MaxSkipSamples+5)
	}
}

func TestEventTimestampKeepsOffset(t *testing.T) {
	events, _ := NewParser(nil).ParseLine([]byte(textLine(t, "s1", "2025-01-15T08:00:00-08:00", "user", "", nil)), Source{})
	want := time.Date(2025, 1, 15, 16, 0, 0, 0, time.UTC)
	if !events[0].Timestamp.Equal(want) {
		t.Errorf("Timestamp = %v, want instant %v", events[0].Timestamp, want)
	}
	if events[0].Timestamp.Hour() != 8 {
		t.Errorf("Hour() = %d, want stored hour 8", events[0].Timestamp.Hour())
	}
}
