package behavioral

import (
	"fmt"
	"sort"
	"time"
)

const unknownModel = "unknown"

// ExtractTokens sums the four token categories per day, ISO week, project,
// model and session. Costs of a bucket are the sum of its event costs at the
// owning session's dominant model tier.
func ExtractTokens(set *SessionSet, table *PricingTable) TokenSlice {
	if table == nil {
		table = DefaultPricingTable()
	}
	daily := newBuckets()
	weekly := newBuckets()
	projects := newBuckets()
	models := newBuckets()

	slice := TokenSlice{Sessions: []SessionCost{}, WhatIf: []TierCost{}}
	for _, s := range set.Sessions() {
		tier, _ := table.Resolve(s.Model)
		for i := range s.Events {
			ev := &s.Events[i]
			if ev.Usage == nil {
				continue
			}
			tokens := *ev.Usage
			cost := tier.Cost(tokens)
			daily.add(dayKey(ev.Timestamp), tokens, cost)
			weekly.add(weekKey(ev.Timestamp), tokens, cost)
			projects.add(s.Project, tokens, cost)

			model := ev.Model
			if model == "" || model == syntheticModel {
				model = unknownModel
			}
			modelTier, _ := table.Resolve(ev.Model)
			models.add(model, tokens, modelTier.Cost(tokens))
		}

		slice.Totals.Add(s.Tokens)
		slice.TotalCost += s.Cost
		slice.Sessions = append(slice.Sessions, SessionCost{
			SessionID:       s.ID,
			Model:           s.Model,
			Tier:            s.Tier,
			PricingFallback: s.PricingFallback,
			Tokens:          s.Tokens,
			TotalTokens:     s.Tokens.Total(),
			Cost:            s.Cost,
		})
	}

	slice.TotalTokens = slice.Totals.Total()
	slice.CacheHitRate = CacheHitRate(slice.Totals)
	slice.Daily = daily.byKey()
	slice.Weekly = weekly.byKey()
	slice.Projects = projects.byTokens()
	slice.Models = models.byTokens()

	sort.Slice(slice.Sessions, func(i, j int) bool {
		a, b := slice.Sessions[i], slice.Sessions[j]
		if a.Cost != b.Cost {
			return a.Cost > b.Cost
		}
		return a.SessionID < b.SessionID
	})

	for _, tier := range table.Tiers() {
		slice.WhatIf = append(slice.WhatIf, TierCost{Tier: tier.Name, Cost: tier.Cost(slice.Totals)})
	}
	return slice
}

// CacheHitRate is cacheRead / (input + cacheRead + cacheCreation), zero
// when no input was sent
func CacheHitRate(t TokenCounts) float64 {
	den := t.Input + t.CacheRead + t.CacheCreation
	if den == 0 {
		return 0
	}
	return float64(t.CacheRead) / float64(den)
}

func dayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// weekKey returns the ISO week (Monday start) of t as YYYY-Www
func weekKey(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%04d-W%02d", year, week)
}

type buckets map[string]*TokenBucket

func newBuckets() buckets {
	return make(buckets)
}

func (b buckets) add(key string, tokens TokenCounts, cost float64) {
	bucket, ok := b[key]
	if !ok {
		bucket = &TokenBucket{Key: key}
		b[key] = bucket
	}
	bucket.Tokens.Add(tokens)
	bucket.TotalTokens = bucket.Tokens.Total()
	bucket.Cost += cost
}

func (b buckets) list() []TokenBucket {
	out := make([]TokenBucket, 0, len(b))
	for _, bucket := range b {
		out = append(out, *bucket)
	}
	return out
}

func (b buckets) byKey() []TokenBucket {
	out := b.list()
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func (b buckets) byTokens() []TokenBucket {
	out := b.list()
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalTokens != out[j].TotalTokens {
			return out[i].TotalTokens > out[j].TotalTokens
		}
		return out[i].Key < out[j].Key
	})
	return out
}
