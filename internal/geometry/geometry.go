// Package geometry computes centroid and overlap statistics over the static
// symbol embedding and surfaces higher-order themes from them. The embedding
// is a three-axis bipolar space; each axis contributes a pole label, the mean
// pairwise overlap grades coherence, and an explicit co-occurrence table adds
// named interaction themes.
package geometry

import (
	"math"

	"arcana/internal/reading"
	"arcana/internal/tarot"
)

// Theme is one labeled higher-order pattern.
type Theme struct {
	Axis     string
	Label    string
	Strength float64
}

// ThemeSet aggregates everything the extractor derives from a spread.
type ThemeSet struct {
	Themes     []Theme
	Centroid   [3]float64
	AvgOverlap float64

	// Coherence is "high synergy", "scattered", or "mixed" depending on
	// the mean pairwise overlap.
	Coherence string

	// Interactions lists the named pair themes present in this spread.
	Interactions []tarot.Interaction
}

// axisPoles names the positive and negative pole of each embedding axis.
var axisPoles = [3]struct {
	axis     string
	positive string
	negative string
}{
	{axis: "agency", positive: "active will", negative: "receptive flow"},
	{axis: "orientation", positive: "outer world", negative: "inner world"},
	{axis: "ground", positive: "structure", negative: "transformation"},
}

// deadband is the half-width around zero inside which an axis reads balanced.
const deadband = 0.5

// Centroid returns the arithmetic mean of the positions of the given symbol
// ids. Ids without an embedding are skipped; an empty (or fully unknown) set
// yields the origin.
func Centroid(ids []int) [3]float64 {
	var sum [3]float64
	n := 0
	for _, id := range ids {
		p, ok := tarot.Embedding(id)
		if !ok {
			continue
		}
		for i := 0; i < 3; i++ {
			sum[i] += p.Position[i]
		}
		n++
	}
	if n == 0 {
		return [3]float64{}
	}
	for i := 0; i < 3; i++ {
		sum[i] /= float64(n)
	}
	return sum
}

// Overlap measures how much two embedded symbols share meaning, in [0,1].
//
// With d the Euclidean distance between positions and R the sum of radii:
// in contact (d <= R) overlap is 1 - d/R, reaching exactly 0 at d == R;
// beyond contact a residual proximity 1/(1+(d-R)) decays toward 0. The
// contact boundary itself always resolves through the linear branch, so an
// exact d == R pair scores 0.
func Overlap(a, b tarot.EmbeddingPoint) float64 {
	d := distance(a.Position, b.Position)
	r := a.Radius + b.Radius
	if r <= 0 {
		return 0
	}
	if d <= r {
		return 1 - d/r
	}
	return 1 / (1 + (d - r))
}

func distance(a, b [3]float64) float64 {
	var s float64
	for i := 0; i < 3; i++ {
		d := a[i] - b[i]
		s += d * d
	}
	return math.Sqrt(s)
}

// ExtractThemes derives the theme set for an ordered spread.
func ExtractThemes(draws []reading.Draw) ThemeSet {
	ids := make([]int, 0, len(draws))
	for _, d := range draws {
		ids = append(ids, d.SymbolID)
	}

	ts := ThemeSet{Centroid: Centroid(ids)}

	// Pole labels per axis, with a deadband around zero reading balanced.
	for i, pole := range axisPoles {
		v := ts.Centroid[i]
		th := Theme{Axis: pole.axis, Strength: math.Abs(v)}
		switch {
		case v > deadband:
			th.Label = pole.positive
		case v < -deadband:
			th.Label = pole.negative
		default:
			th.Label = "balanced"
			th.Strength = deadband - math.Abs(v)
		}
		ts.Themes = append(ts.Themes, th)
	}

	ts.AvgOverlap = meanPairwiseOverlap(ids)
	switch {
	case ts.AvgOverlap >= 0.6:
		ts.Coherence = "high synergy"
	case ts.AvgOverlap < 0.45:
		ts.Coherence = "scattered"
	default:
		ts.Coherence = "mixed"
	}

	ts.Interactions = presentInteractions(ids)
	return ts
}

func meanPairwiseOverlap(ids []int) float64 {
	var sum float64
	pairs := 0
	for i := 0; i < len(ids); i++ {
		a, ok := tarot.Embedding(ids[i])
		if !ok {
			continue
		}
		for j := i + 1; j < len(ids); j++ {
			b, ok := tarot.Embedding(ids[j])
			if !ok {
				continue
			}
			sum += Overlap(a, b)
			pairs++
		}
	}
	if pairs == 0 {
		return 0
	}
	return sum / float64(pairs)
}

func presentInteractions(ids []int) []tarot.Interaction {
	present := make(map[int]bool, len(ids))
	for _, id := range ids {
		present[id] = true
	}
	var out []tarot.Interaction
	for _, in := range tarot.Interactions() {
		if present[in.First] && present[in.Second] {
			out = append(out, in)
		}
	}
	return out
}
