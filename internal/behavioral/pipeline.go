package behavioral

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// ErrNoSessions is returned when sessions are required but none were found
var ErrNoSessions = errors.New("no sessions found")

// fingerprintNamespace scopes the name-based UUID of an input set
var fingerprintNamespace = uuid.MustParse("6f1b8f8e-3c1d-5a7e-9a53-2f4c0e6d7b10")

// Logger receives pipeline progress messages
type Logger interface {
	LogDebug(message string)
	LogInfo(message string)
	LogWarn(message string)
}

// ProgressLogger is implemented by loggers that report per-file progress
type ProgressLogger interface {
	LogProgress(done, total int)
}

type nopLogger struct{}

func (nopLogger) LogDebug(string) {}
func (nopLogger) LogInfo(string)  {}
func (nopLogger) LogWarn(string)  {}

func orNop(l Logger) Logger {
	if l == nil {
		return nopLogger{}
	}
	return l
}

// Options configures a pipeline run
type Options struct {
	InputDir        string
	Pricing         *PricingTable // nil selects DefaultPricingTable
	Thresholds      Thresholds    // zero value selects DefaultThresholds
	MCPServers      []string      // Configured servers, checked for use
	ErrorKeywords   []string      // nil selects DefaultErrorKeywords
	TopN            int           // zero selects DefaultTopN, negative keeps everything
	RequireSessions bool          // Fail with ErrNoSessions on empty input
	Sequential      bool          // Run extractors one after another
	Logger          Logger
	Now             func() time.Time
}

// Pipeline turns a log directory into a Document
type Pipeline struct {
	opts Options
	log  Logger
}

// NewPipeline validates opts and fills in defaults
func NewPipeline(opts Options) (*Pipeline, error) {
	if strings.TrimSpace(opts.InputDir) == "" {
		return nil, errors.New("input directory is required")
	}
	if opts.Pricing == nil {
		opts.Pricing = DefaultPricingTable()
	}
	if opts.Thresholds == (Thresholds{}) {
		opts.Thresholds = DefaultThresholds()
	}
	if err := opts.Thresholds.Validate(); err != nil {
		return nil, fmt.Errorf("invalid health thresholds: %w", err)
	}
	if opts.TopN == 0 {
		opts.TopN = DefaultTopN
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Pipeline{opts: opts, log: orNop(opts.Logger)}, nil
}

// Run discovers, parses and analyzes the input. On error no document is
// returned.
func (p *Pipeline) Run(ctx context.Context) (*Document, error) {
	files, err := DiscoverLogFiles(p.opts.InputDir, p.log)
	if err != nil {
		return nil, err
	}
	p.log.LogInfo(fmt.Sprintf("Found %d log files under %s", len(files), p.opts.InputDir))

	parser := NewParser(p.opts.ErrorKeywords)
	agg := NewAggregator(p.opts.Pricing)
	var digests []string
	var readErrors []string

	progress, _ := p.log.(ProgressLogger)
	for i, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		digest, err := p.ingestFile(parser, agg, f)
		if err != nil {
			p.log.LogWarn(err.Error())
			readErrors = append(readErrors, err.Error())
		}
		digests = append(digests, f.RelPath+"\x00"+digest)
		if progress != nil {
			progress.LogProgress(i+1, len(files))
		}
	}

	set := agg.Finalize()
	if err := set.Validate(); err != nil {
		return nil, fmt.Errorf("invalid session set: %w", err)
	}
	if p.opts.RequireSessions && set.Len() == 0 {
		return nil, fmt.Errorf("%w under %s", ErrNoSessions, p.opts.InputDir)
	}

	stats := parser.Stats()
	doc := &Document{Meta: p.buildMeta(files, set, stats, digests, readErrors)}
	if err := p.extract(ctx, doc, set); err != nil {
		return nil, err
	}
	doc.Meta.Notes = dataQualityNotes(doc, stats, len(readErrors))

	recs := Evaluate(doc, p.opts.Thresholds)
	doc.Health = NewHealthSlice(recs)
	if len(recs) > 0 {
		p.log.LogDebug("Health findings: " + summarize(recs))
	}

	p.log.LogInfo(fmt.Sprintf("Analyzed %d sessions, %d events, %d skipped lines",
		doc.Meta.Sessions, doc.Meta.Events, doc.Meta.SkippedTotal))
	return doc, nil
}

// ingestFile streams one file into the aggregator and returns its sha256.
// A read error keeps the events parsed before it.
func (p *Pipeline) ingestFile(parser *Parser, agg *Aggregator, f LogFile) (string, error) {
	fh, err := os.Open(f.Path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", f.RelPath, err)
	}
	defer fh.Close()

	before := parser.Stats().SkippedTotal()
	h := sha256.New()
	src := Source{File: f.RelPath, Project: f.Project}
	err = parser.ParseReader(io.TeeReader(fh, h), src, agg.Add)
	after := parser.Stats().SkippedTotal()
	p.log.LogDebug(fmt.Sprintf("Parsed %s (%d skipped lines)", f.RelPath, after-before))

	return hex.EncodeToString(h.Sum(nil)), err
}

// extract runs every extractor over the finalized set. Each task writes a
// distinct field of doc.
func (p *Pipeline) extract(ctx context.Context, doc *Document, set *SessionSet) error {
	topN := p.opts.TopN
	tasks := []func(){
		func() { doc.Tokens = ExtractTokens(set, p.opts.Pricing) },
		func() { doc.Tools = ExtractTools(set) },
		func() { doc.MCP = ExtractMCP(set, p.opts.MCPServers) },
		func() { doc.Subagents = ExtractSubagents(set) },
		func() { doc.TimePatterns = ExtractTimePatterns(set) },
		func() { doc.Chains = ExtractChains(set, topN) },
		func() { doc.Errors = ExtractErrors(set, topN) },
		func() { doc.Projects = ExtractProjects(set) },
		func() { doc.Sessions = ExtractSessions(set, topN) },
	}

	if p.opts.Sequential {
		for _, task := range tasks {
			task()
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, task := range tasks {
		task := task
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			task()
			return nil
		})
	}
	return g.Wait()
}

func (p *Pipeline) buildMeta(files []LogFile, set *SessionSet, stats ParseStats, digests, readErrors []string) Meta {
	start, end := set.DateRange()
	skipped := map[string]int{
		string(SkipMalformedJSON): 0,
		string(SkipMissingField):  0,
		string(SkipUnknownRole):   0,
		string(SkipBadTimestamp):  0,
		string(SkipLineTooLong):   0,
	}
	for reason, n := range stats.Skipped {
		skipped[string(reason)] = n
	}
	samples := append([]Skipped{}, stats.Samples...)
	if readErrors == nil {
		readErrors = []string{}
	}

	var totalBytes int64
	subagentFiles := 0
	for _, f := range files {
		totalBytes += f.Size
		if f.Subagent {
			subagentFiles++
		}
	}

	root := p.opts.InputDir
	if expanded, err := expandHomeDir(root); err == nil {
		root = expanded
	}

	return Meta{
		GeneratedAt:         p.opts.Now().UTC().Format(time.RFC3339),
		InputRoot:           root,
		Fingerprint:         Fingerprint(digests),
		DateRange:           DateRange{Start: formatTime(start), End: formatTime(end)},
		Files:               len(files),
		SubagentFiles:       subagentFiles,
		Bytes:               totalBytes,
		Lines:               stats.Lines,
		ParsedLines:         stats.Parsed,
		BlankLines:          stats.Blank,
		NonMessageLines:     stats.NonMessage,
		Sessions:            set.Len(),
		Events:              set.EventCount(),
		Skipped:             skipped,
		SkippedTotal:        stats.SkippedTotal(),
		SkipSamples:         samples,
		DuplicateUsageLines: set.DuplicateUsage(),
		ReadErrors:          readErrors,
		DefaultTier:         p.opts.Pricing.DefaultTier().Name,
		TopN:                p.opts.TopN,
	}
}

// Fingerprint derives a stable UUIDv5 from per-file digests
func Fingerprint(digests []string) string {
	sorted := append([]string(nil), digests...)
	sort.Strings(sorted)
	return uuid.NewSHA1(fingerprintNamespace, []byte(strings.Join(sorted, "\n"))).String()
}

func dataQualityNotes(doc *Document, stats ParseStats, readErrors int) []string {
	notes := []string{}
	fallback := 0
	for _, s := range doc.Tokens.Sessions {
		if s.PricingFallback {
			fallback++
		}
	}
	if fallback > 0 {
		notes = append(notes, fmt.Sprintf("%d session(s) had a missing or unknown model and were priced at the default tier %s",
			fallback, doc.Meta.DefaultTier))
	}
	if n := doc.Tools.UnmatchedResults; n > 0 {
		notes = append(notes, fmt.Sprintf("%d tool result(s) had no matching tool_use and are counted under %q", n, UnknownTool))
	}
	if n := doc.Meta.DuplicateUsageLines; n > 0 {
		notes = append(notes, fmt.Sprintf("%d line(s) repeated the usage of an earlier message and were merged into one", n))
	}
	if n := stats.Skipped[SkipLineTooLong]; n > 0 {
		notes = append(notes, fmt.Sprintf("%d line(s) exceeded %d bytes and were skipped", n, maxLineSize))
	}
	if readErrors > 0 {
		notes = append(notes, fmt.Sprintf("%d file(s) could not be read completely", readErrors))
	}
	return notes
}
