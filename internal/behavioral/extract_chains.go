package behavioral

import (
	"sort"
	"strings"
)

// DefaultTopN is the number of entries kept in ranked lists
const DefaultTopN = 20

const (
	sequenceSeparator = " -> "
	collapsedMCP      = "MCP"
)

func sequenceKey(names ...string) string {
	return strings.Join(names, sequenceSeparator)
}

// ExtractChains builds frequency tables of consecutive tool pairs and triples
// within each session, in arrival order. topN bounds every table; zero or
// less keeps all entries.
func ExtractChains(set *SessionSet, topN int) ChainSlice {
	bigrams := make(map[string]int)
	trigrams := make(map[string]int)
	collapsedBi := make(map[string]int)
	collapsedTri := make(map[string]int)

	for _, s := range set.Sessions() {
		for k, n := range s.Bigrams {
			bigrams[k] += n
		}
		for k, n := range s.Trigrams {
			trigrams[k] += n
		}

		names := make([]string, len(s.Tools))
		for i := range s.Tools {
			names[i] = collapseMCP(s.Tools[i].Name)
		}
		countWindows(names, 2, collapsedBi)
		countWindows(names, 3, collapsedTri)
	}

	return ChainSlice{
		UniqueBigrams:     len(bigrams),
		UniqueTrigrams:    len(trigrams),
		Bigrams:           rankSequences(bigrams, topN),
		Trigrams:          rankSequences(trigrams, topN),
		CollapsedBigrams:  rankSequences(collapsedBi, topN),
		CollapsedTrigrams: rankSequences(collapsedTri, topN),
	}
}

func collapseMCP(name string) string {
	if strings.HasPrefix(name, mcpPrefix) {
		return collapsedMCP
	}
	return name
}

func countWindows(names []string, size int, into map[string]int) {
	for i := 0; i+size <= len(names); i++ {
		into[sequenceKey(names[i:i+size]...)]++
	}
}

// rankSequences sorts by count descending then key ascending
func rankSequences(counts map[string]int, topN int) []SequenceCount {
	out := make([]SequenceCount, 0, len(counts))
	for k, n := range counts {
		out = append(out, SequenceCount{Sequence: k, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Sequence < out[j].Sequence
	})
	return truncate(out, topN)
}
