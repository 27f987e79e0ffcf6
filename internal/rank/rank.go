// Package rank generates K independent candidate documents and selects the
// best by a five-axis heuristic score. The scoring is literal keyword and
// pattern matching over generated prose: an approximate ranking signal, not
// a correctness oracle, and deliberately kept that way so observable
// selection behavior stays stable.
package rank

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"arcana/internal/reading"
)

// Composer is the single-candidate generation surface the ranker drives.
type Composer interface {
	Compose(rc reading.Context, seed float64) string
}

// Scores holds the five sub-scores, each in [0,1].
type Scores struct {
	Specificity   float64
	Depth         float64
	Actionability float64
	Coherence     float64
	Truthfulness  float64
}

// Candidate is one fully composed document and its evaluation.
type Candidate struct {
	Text  string
	Seed  float64
	Order int
	Scores
	TotalScore float64
}

// Ranker runs the generate-and-select loop.
type Ranker struct {
	composer Composer
	logger   *zap.Logger
}

// New returns a ranker over the given composer.
func New(composer Composer, logger *zap.Logger) *Ranker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ranker{composer: composer, logger: logger}
}

// Generate composes candidates for seeds base, base+1, ..., base+k-1 and
// returns the highest scoring one. K=1 bypasses scoring entirely. The K
// compositions are pure functions of (context, seed) and run concurrently;
// if ctx expires before all complete, the best candidate finished so far is
// returned. With no finished candidate at the deadline, ok is false.
func (r *Ranker) Generate(ctx context.Context, rc reading.Context, base float64, k int) (Candidate, bool) {
	if k < 1 {
		k = 1
	}
	if k == 1 {
		return Candidate{Text: r.composer.Compose(rc, base), Seed: base}, true
	}

	results := make(chan Candidate, k)
	var g errgroup.Group
	for i := 0; i < k; i++ {
		s := base + float64(i)
		order := i
		g.Go(func() error {
			text := r.composer.Compose(rc, s)
			cand := Candidate{Text: text, Seed: s, Order: order}
			cand.Scores = Score(text, rc.Intention)
			cand.TotalScore = cand.Total()
			results <- cand
			return nil
		})
	}
	done := make(chan struct{})
	go func() {
		_ = g.Wait()
		close(done)
	}()

	var candidates []Candidate
collect:
	for len(candidates) < k {
		select {
		case c := <-results:
			candidates = append(candidates, c)
		case <-ctx.Done():
			r.logger.Warn("deadline elapsed before all candidates completed",
				zap.Int("completed", len(candidates)), zap.Int("requested", k))
			break collect
		}
	}
	<-ctxOrDone(ctx, done)

	if len(candidates) == 0 {
		return Candidate{}, false
	}
	return Select(candidates), true
}

// ctxOrDone waits for candidate goroutines unless the context has already
// expired; abandoned goroutines finish into the buffered channel.
func ctxOrDone(ctx context.Context, done chan struct{}) <-chan struct{} {
	if ctx.Err() != nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return done
}

// Select sorts descending by total score, ties broken by generation order,
// and returns the top candidate.
func Select(candidates []Candidate) Candidate {
	sorted := make([]Candidate, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].TotalScore != sorted[j].TotalScore {
			return sorted[i].TotalScore > sorted[j].TotalScore
		}
		return sorted[i].Order < sorted[j].Order
	})
	return sorted[0]
}

// Total is the arithmetic mean of the five sub-scores.
func (s Scores) Total() float64 {
	return (s.Specificity + s.Depth + s.Actionability + s.Coherence + s.Truthfulness) / 5
}

// depthKeywords is the psychological register the depth axis counts.
var depthKeywords = []string{
	"shadow", "pattern", "integration", "threshold", "resistance",
	"wound", "becoming", "surrender", "witness", "reclaim",
	"transformation", "discernment",
}

// clichePhrases are generic filler; each occurrence costs 0.2 truthfulness.
var clichePhrases = []string{
	"everything happens for a reason",
	"the universe has a plan",
	"good vibes",
	"trust the process",
	"meant to be",
	"follow your heart",
}

var stepMarkers = []*regexp.Regexp{
	regexp.MustCompile(`(?m)^\s*1\.`),
	regexp.MustCompile(`(?m)^\s*2\.`),
	regexp.MustCompile(`(?m)^\s*3\.`),
	regexp.MustCompile(`(?i)\btoday\b`),
	regexp.MustCompile(`(?i)\bthis week\b`),
	regexp.MustCompile(`(?i)\bwithin the month\b`),
	regexp.MustCompile(`(?i)\bnext step\b`),
}

// Score evaluates one candidate against the stated intention.
func Score(text, intention string) Scores {
	lower := strings.ToLower(text)

	var s Scores
	s.Specificity = specificity(lower, intention)

	depth := 0
	for _, kw := range depthKeywords {
		if strings.Contains(lower, kw) {
			depth++
		}
	}
	if depth > 8 {
		depth = 8
	}
	s.Depth = float64(depth) / 8

	markers := 0
	for _, re := range stepMarkers {
		if re.MatchString(text) {
			markers++
		}
	}
	if markers > 5 {
		markers = 5
	}
	s.Actionability = float64(markers) / 5

	words := len(strings.Fields(text))
	if words >= 600 && words <= 1500 {
		s.Coherence = 1.0
	} else {
		s.Coherence = 0.5
	}

	cliches := 0
	for _, p := range clichePhrases {
		cliches += strings.Count(lower, p)
	}
	s.Truthfulness = 1 - 0.2*float64(cliches)
	if s.Truthfulness < 0 {
		s.Truthfulness = 0
	}

	return s
}

// specificity is the fraction of the intention's significant words (longer
// than 3 runes) literally present in the output.
func specificity(lowerText, intention string) float64 {
	var significant []string
	for _, w := range strings.Fields(strings.ToLower(intention)) {
		w = strings.Trim(w, `.,!?"'`)
		if len([]rune(w)) > 3 {
			significant = append(significant, w)
		}
	}
	if len(significant) == 0 {
		return 0
	}
	hit := 0
	for _, w := range significant {
		if strings.Contains(lowerText, w) {
			hit++
		}
	}
	return float64(hit) / float64(len(significant))
}
