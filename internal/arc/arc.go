// Package arc imposes the structural skeleton on an ordered spread: journey
// stages, a three-act partition, tension beats, a climax anchor, chapter
// headings, and a denouement. The skeleton depends only on draw order and
// signal levels, never on symbol identity.
package arc

import (
	"fmt"
	"math"

	"arcana/internal/reading"
	"arcana/internal/seed"
	"arcana/internal/signals"
	"arcana/internal/variant"
)

// Selector is the variant-selection surface the arc composer needs; the
// concrete variant.Selector satisfies it.
type Selector interface {
	Choose(category string, fraction float64) string
	Pool(category string) []string
}

// Stage names a position's role in the four-stage journey.
type Stage string

const (
	StageSetup       Stage = "setup"
	StageConflict    Stage = "conflict"
	StageResolution  Stage = "resolution"
	StageIntegration Stage = "integration"
)

// Act is one contiguous slice of the spread.
type Act struct {
	Label string
	Start int // inclusive draw index
	End   int // exclusive draw index
}

// Plan is the composed structural skeleton.
type Plan struct {
	Acts            []Act
	JourneyStages   []Stage
	TensionBeats    []string
	ClimaxIndex     int // -1 when no climax is emitted
	ClimaxText      string
	ChapterHeadings []string
	DenouementText  string
}

// resonance below this threshold registers as narrative tension.
const tensionResonance = 2.5

// StageFor maps a draw index to its journey stage, purely by position.
func StageFor(index int) Stage {
	switch index {
	case 0:
		return StageSetup
	case 1:
		return StageConflict
	case 2:
		return StageResolution
	default:
		return StageIntegration
	}
}

// Compose builds the full plan for a spread.
func Compose(draws []reading.Draw, sig signals.Signals, sel Selector, baseSeed float64) Plan {
	n := len(draws)
	p := Plan{ClimaxIndex: -1}

	for i := range draws {
		p.JourneyStages = append(p.JourneyStages, StageFor(i))
	}

	p.Acts = partition(n)
	p.TensionBeats = tensionBeats(draws, sig)

	if n >= 3 {
		p.ClimaxIndex = n / 2
		p.ClimaxText = "Here the spread reaches its pivot: everything before this card builds toward it, everything after answers it."
	}

	p.ChapterHeadings = Headings(n, sel, baseSeed)
	p.DenouementText = sel.Choose(variant.CategoryDenouement, seed.Derive(baseSeed, seed.SaltDenouement))
	return p
}

// partition splits n draws into three contiguous acts with ceiling-based
// boundaries. Fewer than 3 draws cannot carry a three-act shape and yield
// no acts at all.
func partition(n int) []Act {
	if n < 3 {
		return nil
	}
	third := int(math.Ceil(float64(n) / 3))
	first := third
	second := third * 2
	if second > n {
		second = n
	}
	return []Act{
		{Label: "Act I", Start: 0, End: first},
		{Label: "Act II", Start: first, End: second},
		{Label: "Act III", Start: second, End: n},
	}
}

// ActFor returns the act label covering a draw index, or "" outside any act.
func (p Plan) ActFor(index int) string {
	for _, a := range p.Acts {
		if index >= a.Start && index < a.End {
			return a.Label
		}
	}
	return ""
}

// tensionBeats derives additive, independently gated annotations. Each gate
// contributes at most one beat; none depends on another.
func tensionBeats(draws []reading.Draw, sig signals.Signals) []string {
	var beats []string

	reversed := 0
	for _, d := range draws {
		if d.Reversed {
			reversed++
		}
	}
	if len(draws) > 0 && reversed*2 >= len(draws) {
		beats = append(beats, "A high density of reversed cards runs through this spread; the story is told from its resistances.")
	}

	if sig.OverallResonance > 0 && sig.OverallResonance < tensionResonance {
		beats = append(beats, "The cards landed at an angle to your expectations, which is often where the useful material hides.")
	}

	if sig.ActionReadiness == reading.LevelHigh {
		beats = append(beats, "You arrive ready to act, so the tension here is not whether to move but where to aim.")
	}

	return beats
}

// Headings picks one heading-style family by seed and maps each chapter
// index into it, falling back to a generic "Chapter k" label where the
// family runs shorter than the spread.
func Headings(n int, sel Selector, baseSeed float64) []string {
	if n <= 0 {
		return nil
	}
	families := []string{
		variant.CategoryHeadingsMythic,
		variant.CategoryHeadingsSeason,
		variant.CategoryHeadingsInward,
	}
	f := seed.Derive(baseSeed, seed.SaltHeading)
	family := families[int(f*float64(len(families)))%len(families)]
	pool := sel.Pool(family)

	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		if i < len(pool) {
			out = append(out, pool[i])
		} else {
			out = append(out, fmt.Sprintf("Chapter %d", i+1))
		}
	}
	return out
}
