package behavioral

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
)

// ErrInvalidPricing is returned for pricing tables that cannot be used
var ErrInvalidPricing = errors.New("invalid pricing")

// DefaultTierName is the tier used for unknown models unless configured otherwise
const DefaultTierName = "sonnet"

const tokensPerMillion = 1_000_000

// Rate is the price of each token category in USD per million tokens
type Rate struct {
	Input      float64  `json:"input" yaml:"input" toml:"input"`
	Output     float64  `json:"output" yaml:"output" toml:"output"`
	CacheRead  float64  `json:"cache_read" yaml:"cache_read" toml:"cache_read"`
	CacheWrite float64  `json:"cache_write" yaml:"cache_write" toml:"cache_write"`
	Aliases    []string `json:"aliases,omitempty" yaml:"aliases,omitempty" toml:"aliases,omitempty"`
}

// Validate rejects negative and non-numeric rates
func (r Rate) Validate() error {
	fields := []struct {
		name  string
		value float64
	}{
		{"input", r.Input},
		{"output", r.Output},
		{"cache_read", r.CacheRead},
		{"cache_write", r.CacheWrite},
	}
	for _, f := range fields {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return fmt.Errorf("%s rate is not a number", f.name)
		}
		if f.value < 0 {
			return fmt.Errorf("%s rate %g is negative", f.name, f.value)
		}
	}
	return nil
}

// PerToken returns the four prices per single token
func (r Rate) PerToken() (input, output, cacheRead, cacheWrite float64) {
	return r.Input / tokensPerMillion,
		r.Output / tokensPerMillion,
		r.CacheRead / tokensPerMillion,
		r.CacheWrite / tokensPerMillion
}

// Tier is a named rate
type Tier struct {
	Name string
	Rate Rate
}

// Cost prices tokens at this tier.
// Each product is converted explicitly so the result is not fused into an FMA.
func (t Tier) Cost(tokens TokenCounts) float64 {
	in, out, cr, cw := t.Rate.PerToken()
	return float64(float64(tokens.Input)*in) +
		float64(float64(tokens.Output)*out) +
		float64(float64(tokens.CacheRead)*cr) +
		float64(float64(tokens.CacheCreation)*cw)
}

// DefaultRates returns the built-in tiers, per million tokens
func DefaultRates() map[string]Rate {
	return map[string]Rate{
		"sonnet": {
			Input: 3.0, Output: 15.0, CacheRead: 0.30, CacheWrite: 3.75,
			Aliases: []string{"claude-3-5-sonnet-20241022", "claude-sonnet-4-5-20250929"},
		},
		"opus": {
			Input: 15.0, Output: 75.0, CacheRead: 1.50, CacheWrite: 18.75,
			Aliases: []string{"claude-3-opus-20240229", "claude-opus-4-5-20251101"},
		},
		"haiku": {
			Input: 0.80, Output: 4.0, CacheRead: 0.08, CacheWrite: 1.0,
			Aliases: []string{"claude-3-5-haiku-20241022", "claude-haiku-4-5-20251001"},
		},
	}
}

// PricingTable resolves model names to tiers. It is immutable once built.
type PricingTable struct {
	tiers       map[string]Tier
	names       []string // sorted tier names
	aliases     map[string]string
	defaultTier string
}

// NewPricingTable validates rates and builds a table.
// All errors wrap ErrInvalidPricing.
func NewPricingTable(rates map[string]Rate, defaultTier string) (*PricingTable, error) {
	if len(rates) == 0 {
		return nil, fmt.Errorf("%w: no tiers configured", ErrInvalidPricing)
	}
	defaultTier = strings.ToLower(strings.TrimSpace(defaultTier))
	if defaultTier == "" {
		defaultTier = DefaultTierName
	}

	pt := &PricingTable{
		tiers:       make(map[string]Tier, len(rates)),
		aliases:     make(map[string]string),
		defaultTier: defaultTier,
	}
	for rawName, rate := range rates {
		name := strings.ToLower(strings.TrimSpace(rawName))
		if name == "" {
			return nil, fmt.Errorf("%w: empty tier name", ErrInvalidPricing)
		}
		if err := rate.Validate(); err != nil {
			return nil, fmt.Errorf("%w: tier %q: %v", ErrInvalidPricing, rawName, err)
		}
		if _, dup := pt.tiers[name]; dup {
			return nil, fmt.Errorf("%w: tier %q defined twice", ErrInvalidPricing, name)
		}
		rate.Aliases = append([]string(nil), rate.Aliases...)
		pt.tiers[name] = Tier{Name: name, Rate: rate}
		pt.names = append(pt.names, name)
	}
	sort.Strings(pt.names)

	for _, name := range pt.names {
		for _, alias := range pt.tiers[name].Rate.Aliases {
			key := strings.ToLower(strings.TrimSpace(alias))
			if key == "" {
				continue
			}
			if owner, taken := pt.aliases[key]; taken && owner != name {
				return nil, fmt.Errorf("%w: alias %q used by tiers %q and %q", ErrInvalidPricing, alias, owner, name)
			}
			pt.aliases[key] = name
		}
	}

	if _, ok := pt.tiers[defaultTier]; !ok {
		return nil, fmt.Errorf("%w: default tier %q is not defined", ErrInvalidPricing, defaultTier)
	}
	return pt, nil
}

// DefaultPricingTable returns the built-in table
func DefaultPricingTable() *PricingTable {
	pt, err := NewPricingTable(DefaultRates(), DefaultTierName)
	if err != nil {
		panic(err)
	}
	return pt
}

// Resolve finds the tier for model: exact tier name, then alias, then the
// first tier name (sorted) contained in the model name, then the default.
// fellBack is true when the default tier was used.
func (pt *PricingTable) Resolve(model string) (tier Tier, fellBack bool) {
	key := strings.ToLower(strings.TrimSpace(model))
	if key != "" {
		if t, ok := pt.tiers[key]; ok {
			return t, false
		}
		if name, ok := pt.aliases[key]; ok {
			return pt.tiers[name], false
		}
		for _, name := range pt.names {
			if strings.Contains(key, name) {
				return pt.tiers[name], false
			}
		}
	}
	return pt.tiers[pt.defaultTier], true
}

// Tiers returns all tiers sorted by name
func (pt *PricingTable) Tiers() []Tier {
	out := make([]Tier, 0, len(pt.names))
	for _, name := range pt.names {
		out = append(out, pt.tiers[name])
	}
	return out
}

// DefaultTier returns the fallback tier
func (pt *PricingTable) DefaultTier() Tier {
	return pt.tiers[pt.defaultTier]
}

// Cost prices tokens for model using table
func Cost(model string, tokens TokenCounts, table *PricingTable) (float64, Tier, bool) {
	tier, fellBack := table.Resolve(model)
	return tier.Cost(tokens), tier, fellBack
}
