package behavioral

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"
)

const (
	readerBufferSize = 64 * 1024        // bufio.Reader buffer
	maxLineSize      = 10 * 1024 * 1024 // longest accepted line, without its newline
	// MaxSkipSamples bounds the skipped-line samples kept in ParseStats
	MaxSkipSamples = 20
)

// SkipReason explains why a line produced no events
type SkipReason string

const (
	SkipMalformedJSON SkipReason = "malformed-json"
	SkipMissingField  SkipReason = "missing-required-field"
	SkipUnknownRole   SkipReason = "unknown-role"
	SkipBadTimestamp  SkipReason = "bad-timestamp"
	SkipLineTooLong   SkipReason = "line-too-long"
)

// Markers that classify a tool result as failed regardless of keywords
const (
	errorMarkerPrefix  = "Error:"
	toolUseErrorMarker = "<tool_use_error>"
)

// DefaultErrorKeywords are matched case-insensitively against tool result text
var DefaultErrorKeywords = []string{
	"command not found",
	"permission denied",
	"exit code 1",
	"traceback (most recent call last)",
}

// nonMessageTypes are record types that carry no conversation content
var nonMessageTypes = map[string]bool{
	"summary":               true,
	"file-history-snapshot": true,
	"queue-operation":       true,
	"system":                true,
	"progress":              true,
}

// Skipped describes one unusable line
type Skipped struct {
	Reason SkipReason `json:"reason"`
	File   string     `json:"file"`
	Line   int        `json:"line"`
	Detail string     `json:"detail,omitempty"`
}

// Source identifies where a line came from
type Source struct {
	File    string // Path relative to the input root
	Line    int
	Project string
}

// ParseStats counts what the parser saw across all lines
type ParseStats struct {
	Lines      int
	Blank      int
	NonMessage int
	Parsed     int // Lines that produced events
	Events     int
	Skipped    map[SkipReason]int
	Samples    []Skipped // First MaxSkipSamples skips
}

// SkippedTotal returns the number of skipped lines over all reasons
func (s ParseStats) SkippedTotal() int {
	n := 0
	for _, c := range s.Skipped {
		n += c
	}
	return n
}

// Parser turns raw log lines into Events.
// One Parser serves a whole run so tool_result lines can be resolved against
// tool_use lines seen earlier in any file of the same session.
type Parser struct {
	keywords  []string
	toolNames map[string]map[string]string // session -> tool_use id -> name
	stats     ParseStats
}

// NewParser creates a parser using the given failure keywords.
// A nil slice selects DefaultErrorKeywords.
func NewParser(errorKeywords []string) *Parser {
	if errorKeywords == nil {
		errorKeywords = DefaultErrorKeywords
	}
	keywords := make([]string, 0, len(errorKeywords))
	for _, k := range errorKeywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" {
			keywords = append(keywords, k)
		}
	}
	return &Parser{
		keywords:  keywords,
		toolNames: make(map[string]map[string]string),
		stats:     ParseStats{Skipped: make(map[SkipReason]int)},
	}
}

// Stats returns the accumulated parse statistics
func (p *Parser) Stats() ParseStats {
	return p.stats
}

// rawRecord mirrors one JSONL line
type rawRecord struct {
	Type              string      `json:"type"`
	SessionID         string      `json:"sessionId"`
	Timestamp         string      `json:"timestamp"`
	Cwd               string      `json:"cwd"`
	GitBranch         string      `json:"gitBranch"`
	IsSidechain       bool        `json:"isSidechain"`
	IsAPIErrorMessage bool        `json:"isApiErrorMessage"`
	Message           *rawMessage `json:"message"`
}

type rawMessage struct {
	ID      string          `json:"id"`
	Role    string          `json:"role"`
	Model   string          `json:"model"`
	Content json.RawMessage `json:"content"`
	Usage   *rawUsage       `json:"usage"`
}

type rawUsage struct {
	InputTokens              int64  `json:"input_tokens"`
	OutputTokens             int64  `json:"output_tokens"`
	CacheReadInputTokens     int64  `json:"cache_read_input_tokens"`
	CacheCreationInputTokens *int64 `json:"cache_creation_input_tokens"`
	CacheCreation            *struct {
		Ephemeral5m int64 `json:"ephemeral_5m_input_tokens"`
		Ephemeral1h int64 `json:"ephemeral_1h_input_tokens"`
	} `json:"cache_creation"`
}

func (u *rawUsage) counts() TokenCounts {
	tc := TokenCounts{
		Input:     u.InputTokens,
		Output:    u.OutputTokens,
		CacheRead: u.CacheReadInputTokens,
	}
	switch {
	case u.CacheCreationInputTokens != nil:
		tc.CacheCreation = *u.CacheCreationInputTokens
	case u.CacheCreation != nil:
		tc.CacheCreation = u.CacheCreation.Ephemeral5m + u.CacheCreation.Ephemeral1h
	}
	return tc
}

// contentBlock is one element of an array-valued message content
type contentBlock struct {
	Type      string          `json:"type"`
	Text      string          `json:"text"`
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Input     map[string]any  `json:"input"`
	ToolUseID string          `json:"tool_use_id"`
	IsError   bool            `json:"is_error"`
	Content   json.RawMessage `json:"content"`
}

// ParseLine parses a single line. It returns the events of the line, or a
// Skipped describing why the line is unusable. Blank lines and non-message
// records return neither.
func (p *Parser) ParseLine(line []byte, src Source) ([]Event, *Skipped) {
	p.stats.Lines++
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		p.stats.Blank++
		return nil, nil
	}

	var rec rawRecord
	if err := json.Unmarshal(line, &rec); err != nil {
		return nil, p.skip(SkipMalformedJSON, src, err.Error())
	}
	if nonMessageTypes[rec.Type] {
		p.stats.NonMessage++
		return nil, nil
	}

	switch {
	case rec.SessionID == "":
		return nil, p.skip(SkipMissingField, src, "sessionId")
	case rec.Timestamp == "":
		return nil, p.skip(SkipMissingField, src, "timestamp")
	case rec.Message == nil || rec.Message.Role == "":
		return nil, p.skip(SkipMissingField, src, "message.role")
	}

	role := Role(rec.Message.Role)
	if role != RoleUser && role != RoleAssistant {
		return nil, p.skip(SkipUnknownRole, src, rec.Message.Role)
	}

	ts, err := parseTimestamp(rec.Timestamp)
	if err != nil {
		return nil, p.skip(SkipBadTimestamp, src, rec.Timestamp)
	}

	base := Event{
		SessionID: rec.SessionID,
		Timestamp: ts,
		Role:      role,
		Kind:      KindText,
		GitBranch: rec.GitBranch,
		Cwd:       rec.Cwd,
		Model:     rec.Message.Model,
		MessageID: rec.Message.ID,
		Project:   src.Project,
		Sidechain: rec.IsSidechain,
		File:      src.File,
		Line:      src.Line,
	}

	events := p.contentEvents(base, rec.Message.Content)
	if len(events) == 0 {
		events = append(events, base)
	}

	if rec.Message.Usage != nil {
		usage := rec.Message.Usage.counts()
		events[0].Usage = &usage
	}
	events[0].APIError = rec.IsAPIErrorMessage

	p.stats.Parsed++
	p.stats.Events += len(events)
	return events, nil
}

// ParseReader streams r line by line and passes every event to sink.
// Skipped lines are counted in Stats. A line longer than maxLineSize is
// discarded as line-too-long and reading continues with the next line.
// A read or sink error aborts the file.
func (p *Parser) ParseReader(r io.Reader, src Source, sink func(Event) error) error {
	reader := bufio.NewReaderSize(r, readerBufferSize)
	var buf []byte

	lineNo := 0
	for {
		line, tooLong, err := readLine(reader, buf[:0])
		buf = line
		if err != nil && err != io.EOF {
			return fmt.Errorf("reading %s after line %d: %w", src.File, lineNo, err)
		}
		if err == io.EOF && len(line) == 0 && !tooLong {
			return nil
		}

		lineNo++
		src.Line = lineNo
		if tooLong {
			p.stats.Lines++
			p.skip(SkipLineTooLong, src, fmt.Sprintf("longer than %d bytes", maxLineSize))
		} else {
			events, _ := p.ParseLine(line, src)
			for _, ev := range events {
				if err := sink(ev); err != nil {
					return fmt.Errorf("%s:%d: %w", src.File, lineNo, err)
				}
			}
		}
		if err == io.EOF {
			return nil
		}
	}
}

// readLine appends the next line of r to buf, without its newline. A line
// over maxLineSize is consumed to its end but not kept; tooLong reports it.
// err is io.EOF when the line was the last one of r.
func readLine(r *bufio.Reader, buf []byte) (line []byte, tooLong bool, err error) {
	for {
		chunk, err := r.ReadSlice('\n')
		chunk = bytes.TrimSuffix(chunk, []byte("\n"))
		if !tooLong {
			if len(buf)+len(chunk) > maxLineSize {
				tooLong = true
				buf = buf[:0]
			} else {
				buf = append(buf, chunk...)
			}
		}
		if err == bufio.ErrBufferFull {
			continue
		}
		return buf, tooLong, err
	}
}

func (p *Parser) skip(reason SkipReason, src Source, detail string) *Skipped {
	s := &Skipped{Reason: reason, File: src.File, Line: src.Line, Detail: detail}
	p.stats.Skipped[reason]++
	if len(p.stats.Samples) < MaxSkipSamples {
		p.stats.Samples = append(p.stats.Samples, *s)
	}
	return s
}

func (p *Parser) contentEvents(base Event, content json.RawMessage) []Event {
	content = bytes.TrimSpace(content)
	if len(content) == 0 || content[0] != '[' {
		// Plain string content or none at all
		return nil
	}

	var blocks []json.RawMessage
	if err := json.Unmarshal(content, &blocks); err != nil {
		return nil
	}

	events := make([]Event, 0, len(blocks))
	for _, raw := range blocks {
		var block contentBlock
		if err := json.Unmarshal(raw, &block); err != nil {
			continue
		}
		ev := base
		switch block.Type {
		case "text", "thinking", "redacted_thinking":
			ev.Kind = KindText
		case "tool_use":
			ev.Kind = KindToolUse
			ev.ToolName = block.Name
			ev.ToolUseID = block.ID
			ev.ToolInput = block.Input
			p.rememberTool(base.SessionID, block.ID, block.Name)
		case "tool_result":
			ev.Kind = KindToolResult
			ev.ToolUseID = block.ToolUseID
			ev.IsError = block.IsError || p.looksFailed(resultText(block.Content))
			if block.ToolUseID != "" {
				name, ok := p.toolNames[base.SessionID][block.ToolUseID]
				if ok {
					ev.ToolName = name
				} else {
					ev.ToolName = UnknownTool
					ev.Unmatched = true
				}
			}
		default:
			continue
		}
		events = append(events, ev)
	}
	return events
}

func (p *Parser) rememberTool(session, id, name string) {
	if id == "" {
		return
	}
	names, ok := p.toolNames[session]
	if !ok {
		names = make(map[string]string)
		p.toolNames[session] = names
	}
	names[id] = name
}

// looksFailed applies the result-content failure heuristic
func (p *Parser) looksFailed(text string) bool {
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, errorMarkerPrefix) || strings.Contains(trimmed, toolUseErrorMarker) {
		return true
	}
	lower := strings.ToLower(trimmed)
	for _, k := range p.keywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

// resultText flattens tool_result content, which is either a string or a
// list of text blocks
func resultText(content json.RawMessage) string {
	content = bytes.TrimSpace(content)
	if len(content) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(content, &s); err == nil {
		return s
	}
	var parts []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(content, &parts); err != nil {
		return ""
	}
	var b strings.Builder
	for _, part := range parts {
		if part.Type != "text" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(part.Text)
	}
	return b.String()
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

// parseTimestamp accepts RFC3339 with or without fractional seconds and a
// zone-less form read as UTC
func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
