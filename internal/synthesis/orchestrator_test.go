package synthesis

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"arcana/internal/astro"
	"arcana/internal/cache"
	"arcana/internal/compose"
	"arcana/internal/reading"
)

func TestMain(m *testing.M) {
	// The genai dependency chain pulls in opencensus, whose init starts a
	// permanent stats worker; it is not ours to stop.
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}

func fixedComposer() *compose.Composer {
	provider := astro.Provider{Now: func() time.Time {
		return time.Date(2026, time.May, 15, 12, 0, 0, 0, time.UTC)
	}}
	return compose.New(nil, provider, nil)
}

func careerContext() reading.Context {
	return reading.Context{
		Draws: []reading.Draw{
			{SymbolID: 16, Reversed: true},
			{SymbolID: 13},
			{SymbolID: 17},
		},
		Profile:   reading.Profile{Name: "Ada", SunSign: "leo", FocusArea: "career"},
		Intention: "find clarity about my career",
	}
}

func pinned(s float64) *float64 { return &s }

// countingComposer wraps another composer and counts invocations, so cache
// behavior is observable.
type countingComposer struct {
	calls int64
	inner *compose.Composer
}

func (c *countingComposer) Compose(rc reading.Context, s float64) string {
	atomic.AddInt64(&c.calls, 1)
	return c.inner.Compose(rc, s)
}

// stubEnhancer returns a fixed refinement or error.
type stubEnhancer struct {
	out string
	err error
}

func (e stubEnhancer) Enhance(context.Context, string, reading.Context) (string, error) {
	return e.out, e.err
}

// blockingComposer holds every composition until released.
type blockingComposer struct{ release chan struct{} }

func (c *blockingComposer) Compose(reading.Context, float64) string {
	<-c.release
	return "late"
}

func TestGenerateDeterminism(t *testing.T) {
	newOrch := func() *Orchestrator {
		return New(Config{Composer: fixedComposer()})
	}
	opts := Options{SkipCache: true, CandidateCount: 3, Seed: pinned(0.42)}

	a := newOrch().Generate(context.Background(), careerContext(), opts)
	b := newOrch().Generate(context.Background(), careerContext(), opts)
	assert.Equal(t, a, b, "pinned seed and identical context must reproduce the document")
	assert.NotEmpty(t, a)
}

func TestGenerateCacheReuse(t *testing.T) {
	comp := &countingComposer{inner: fixedComposer()}
	o := New(Config{Composer: comp, Cache: cache.New(8)})

	first := o.Generate(context.Background(), careerContext(),
		Options{CandidateCount: 1, Seed: pinned(0.1)})
	require.NotEmpty(t, first)
	callsAfterFirst := atomic.LoadInt64(&comp.calls)

	// A different seed must not matter: the key is seed-independent.
	second := o.Generate(context.Background(), careerContext(),
		Options{CandidateCount: 1, Seed: pinned(0.9)})
	assert.Equal(t, first, second)
	assert.Equal(t, callsAfterFirst, atomic.LoadInt64(&comp.calls),
		"cache hit must not re-compose")
}

func TestGenerateSkipCache(t *testing.T) {
	comp := &countingComposer{inner: fixedComposer()}
	o := New(Config{Composer: comp, Cache: cache.New(8)})
	opts := Options{SkipCache: true, CandidateCount: 1, Seed: pinned(0.1)}

	o.Generate(context.Background(), careerContext(), opts)
	o.Generate(context.Background(), careerContext(), opts)
	assert.Equal(t, int64(2), atomic.LoadInt64(&comp.calls))

	// Nothing was written either: a cached read still misses.
	_, ok := o.cache.Get(careerContext().Normalize())
	assert.False(t, ok)
}

func TestGenerateUnidentifiableContext(t *testing.T) {
	o := New(Config{Composer: fixedComposer()})
	text := o.Generate(context.Background(), reading.Context{}, Options{})
	assert.Contains(t, text, "could not be composed")
	assert.Contains(t, text, ErrUnidentifiableContext.Error())
}

func TestGenerateIntentionOnlyContextIsServed(t *testing.T) {
	o := New(Config{Composer: fixedComposer()})
	text := o.Generate(context.Background(),
		reading.Context{Intention: "a question with no cards"}, Options{})
	assert.NotContains(t, text, "could not be composed")
	assert.Contains(t, text, "a question with no cards")
}

func TestGenerateDeadlineFallback(t *testing.T) {
	comp := &blockingComposer{release: make(chan struct{})}
	defer close(comp.release)

	o := New(Config{Composer: comp})
	text := o.Generate(context.Background(), careerContext(), Options{
		SkipCache:      true,
		CandidateCount: 3,
		Deadline:       25 * time.Millisecond,
		Seed:           pinned(0.1),
	})
	assert.Contains(t, text, "A quieter reading today.")
	assert.Contains(t, text, "The Tower")
}

func TestGenerateEnhancement(t *testing.T) {
	t.Run("refined text replaces the draft and is cached", func(t *testing.T) {
		o := New(Config{
			Composer: fixedComposer(),
			Enhancer: stubEnhancer{out: "refined document"},
			Cache:    cache.New(8),
		})
		text := o.Generate(context.Background(), careerContext(),
			Options{CandidateCount: 1, Seed: pinned(0.1)})
		assert.Equal(t, "refined document", text)

		cached, ok := o.cache.Get(careerContext().Normalize())
		require.True(t, ok)
		assert.Equal(t, "refined document", cached)
	})

	t.Run("enhancement failure keeps the draft", func(t *testing.T) {
		o := New(Config{
			Composer: fixedComposer(),
			Enhancer: stubEnhancer{err: context.DeadlineExceeded},
		})
		text := o.Generate(context.Background(), careerContext(),
			Options{SkipCache: true, CandidateCount: 1, Seed: pinned(0.1)})
		assert.NotEmpty(t, text)
		assert.Contains(t, text, "The Tower", "draft must survive a failed refinement")
	})
}

// The reference scenario: Tower reversed, Death, Star, asked about career
// clarity. The document must speak to the stated intention, carry one section
// per draw, and surface the Tower-Death pairing.
func TestGenerateReferenceScenario(t *testing.T) {
	o := New(Config{Composer: fixedComposer()})
	rc := careerContext()

	text := o.Generate(context.Background(), rc, Options{
		SkipCache:      true,
		CandidateCount: 3,
		Seed:           pinned(0.42),
	})

	require.NotEmpty(t, text)
	assert.Contains(t, text, "career")
	assert.Contains(t, text, "clarity")
	assert.Equal(t, 3, strings.Count(text, "## "), "one section per draw")
	assert.Contains(t, text, "Compound Transformation")
	assert.Contains(t, text, "The Tower")
	assert.Contains(t, text, "Death")
	assert.Contains(t, text, "The Star")

	words := len(strings.Fields(text))
	assert.GreaterOrEqual(t, words, 600, "a three-draw reading must reach long-form length")
	assert.LessOrEqual(t, words, 1500, "and must not overshoot it")
}
