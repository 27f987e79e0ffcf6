// Package tarot holds the static reference tables the engine composes from:
// the symbol database, the geometric embedding of each symbol, the quote
// repository, and the named symbol-pair interaction table.
//
// All data is baked into the binary as embedded YAML, eliminating filesystem
// dependencies. Tables load once and are immutable afterwards.
package tarot

import (
	"embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed data
var embedded embed.FS

// Symbol is one entry of the symbol database.
type Symbol struct {
	ID               int      `yaml:"id"`
	Name             string   `yaml:"name"`
	KeywordsUpright  []string `yaml:"keywords_upright"`
	KeywordsReversed []string `yaml:"keywords_reversed"`
	Element          string   `yaml:"element"`
	Archetypes       []string `yaml:"archetypes"`
}

// EmbeddingPoint places a symbol in the three-axis meaning space.
type EmbeddingPoint struct {
	SymbolID int        `yaml:"id"`
	Position [3]float64 `yaml:"position"`
	Radius   float64    `yaml:"radius"`
}

// Quote is an attributed line of prose tied to a symbol.
type Quote struct {
	Text   string `yaml:"text"`
	Source string `yaml:"source"`
}

// Interaction names a bonus theme emitted when both symbols of a pair are
// present in one spread.
type Interaction struct {
	Name    string `yaml:"name"`
	First   int    `yaml:"first"`
	Second  int    `yaml:"second"`
	Label   string `yaml:"label"`
	Insight string `yaml:"insight"`
}

type tables struct {
	symbols      map[int]Symbol
	embeddings   map[int]EmbeddingPoint
	quotes       map[int][]Quote
	interactions []Interaction
}

var (
	loadOnce sync.Once
	loaded   *tables
	loadErr  error
)

func load() (*tables, error) {
	loadOnce.Do(func() {
		t := &tables{
			symbols:    make(map[int]Symbol),
			embeddings: make(map[int]EmbeddingPoint),
			quotes:     make(map[int][]Quote),
		}

		var symbolFile struct {
			Symbols []Symbol `yaml:"symbols"`
		}
		if loadErr = readYAML("data/symbols.yaml", &symbolFile); loadErr != nil {
			return
		}
		for _, s := range symbolFile.Symbols {
			t.symbols[s.ID] = s
		}

		var embedFile struct {
			Points []EmbeddingPoint `yaml:"points"`
		}
		if loadErr = readYAML("data/embeddings.yaml", &embedFile); loadErr != nil {
			return
		}
		for _, p := range embedFile.Points {
			t.embeddings[p.SymbolID] = p
		}

		var quoteFile struct {
			Quotes []struct {
				SymbolID int     `yaml:"id"`
				Entries  []Quote `yaml:"entries"`
			} `yaml:"quotes"`
		}
		if loadErr = readYAML("data/quotes.yaml", &quoteFile); loadErr != nil {
			return
		}
		for _, q := range quoteFile.Quotes {
			t.quotes[q.SymbolID] = q.Entries
		}

		var interactionFile struct {
			Interactions []Interaction `yaml:"interactions"`
		}
		if loadErr = readYAML("data/interactions.yaml", &interactionFile); loadErr != nil {
			return
		}
		t.interactions = interactionFile.Interactions

		loaded = t
	})
	return loaded, loadErr
}

func readYAML(path string, out any) error {
	data, err := embedded.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read embedded %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse embedded %s: %w", path, err)
	}
	return nil
}

// Lookup returns the symbol for id. Unknown ids return a placeholder symbol
// rather than an error so composition can proceed on partial data.
func Lookup(id int) Symbol {
	t, err := load()
	if err != nil {
		return placeholder(id)
	}
	s, ok := t.symbols[id]
	if !ok {
		return placeholder(id)
	}
	return s
}

func placeholder(id int) Symbol {
	return Symbol{
		ID:               id,
		Name:             fmt.Sprintf("Unknown Symbol %d", id),
		KeywordsUpright:  []string{"mystery", "the unnamed"},
		KeywordsReversed: []string{"obscurity", "the withheld"},
		Element:          "aether",
		Archetypes:       []string{"the stranger"},
	}
}

// Embedding returns the embedding point for id and whether it exists.
func Embedding(id int) (EmbeddingPoint, bool) {
	t, err := load()
	if err != nil {
		return EmbeddingPoint{}, false
	}
	p, ok := t.embeddings[id]
	return p, ok
}

// Quotes selects up to count quotes for a symbol. The fraction steers which
// entries are chosen; reversed shifts the starting offset so inverted draws
// tend to surface different lines. An unknown symbol yields no quotes.
func Quotes(symbolID int, fraction float64, reversed bool, count int) []Quote {
	t, err := load()
	if err != nil || count <= 0 {
		return nil
	}
	pool, ok := t.quotes[symbolID]
	if !ok || len(pool) == 0 {
		return nil
	}
	if count > len(pool) {
		count = len(pool)
	}
	start := int(fraction*float64(len(pool))) % len(pool)
	if reversed {
		start = (start + 1) % len(pool)
	}
	out := make([]Quote, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, pool[(start+i)%len(pool)])
	}
	return out
}

// Interactions returns the full symbol-pair interaction table.
func Interactions() []Interaction {
	t, err := load()
	if err != nil {
		return nil
	}
	return t.interactions
}
