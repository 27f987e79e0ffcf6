// Package variant maps (category, seed fraction) onto one template string
// from a named pool. Pools are large families of natural-language variants
// baked in as embedded YAML; each call-site derives its own sub-seed so
// consecutive selections do not visibly repeat across documents generated
// from the same input archetype.
package variant

import (
	"embed"
	"fmt"
	"math"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed data
var embedded embed.FS

// Pool categories. Call-sites pick with these names rather than raw strings
// so a typo fails at compile time, not as a silent empty pool.
const (
	CategoryOpener          = "opener"
	CategoryHook            = "hook"
	CategoryTransition      = "transition"
	CategorySentence        = "sentence"
	CategoryReversedClause  = "reversed_clause"
	CategoryDenouement      = "denouement"
	CategoryAphorism        = "aphorism"
	CategorySummaryLead     = "summary_lead"
	CategoryHeadingsMythic  = "headings_mythic"
	CategoryHeadingsSeason  = "headings_season"
	CategoryHeadingsInward  = "headings_inward"
	CategoryIntentionFrame  = "intention_frame"
	CategoryIntegrationLead = "integration_lead"
)

// Selector resolves categories to pools.
type Selector struct {
	pools map[string][]string
}

var (
	defaultOnce     sync.Once
	defaultSelector *Selector
	defaultErr      error
)

// Default returns the selector backed by the embedded pools. The embedded
// corpus loads once; a parse failure yields an empty selector whose every
// choice is the neutral default.
func Default() *Selector {
	defaultOnce.Do(func() {
		defaultSelector, defaultErr = loadEmbedded()
		if defaultErr != nil {
			defaultSelector = &Selector{pools: map[string][]string{}}
		}
	})
	return defaultSelector
}

// NewSelector builds a selector over explicit pools. Tests use it to pin
// choices down to a single known variant.
func NewSelector(pools map[string][]string) *Selector {
	return &Selector{pools: pools}
}

func loadEmbedded() (*Selector, error) {
	data, err := embedded.ReadFile("data/pools.yaml")
	if err != nil {
		return nil, fmt.Errorf("read embedded pools: %w", err)
	}
	var file struct {
		Pools map[string][]string `yaml:"pools"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse embedded pools: %w", err)
	}
	return &Selector{pools: file.Pools}, nil
}

// Choose returns the pool entry at floor(fraction*len) mod len. An unknown
// category or empty pool returns the empty string, the documented neutral
// default, so a gated block simply contributes nothing.
func (s *Selector) Choose(category string, fraction float64) string {
	pool := s.pools[category]
	if len(pool) == 0 {
		return ""
	}
	idx := int(math.Floor(fraction*float64(len(pool)))) % len(pool)
	if idx < 0 {
		idx += len(pool)
	}
	return pool[idx]
}

// Pool returns the raw pool for a category; the arc composer uses this to
// map chapter indexes onto a whole heading family.
func (s *Selector) Pool(category string) []string {
	return s.pools[category]
}
