// Package synthesis wires the full pipeline: cache lookup, candidate
// generation and ranking, optional external enhancement, and cache write.
// Every collaborator is dependency-injected, so tests pin the seed sequence
// and tenants get isolated caches.
//
// Generate always returns a non-empty string: a composed document, a cached
// one, or a clearly labeled fallback or error document. It never raises to
// the caller under normal operation.
package synthesis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"arcana/internal/astro"
	"arcana/internal/cache"
	"arcana/internal/compose"
	"arcana/internal/enhance"
	"arcana/internal/rank"
	"arcana/internal/reading"
	"arcana/internal/seed"
)

// ErrUnidentifiableContext marks input with no usable identifying
// information at all; even then the caller receives a labeled error
// document rather than an error value.
var ErrUnidentifiableContext = errors.New("reading context carries no draws and no intention")

// Options tune one Generate call.
type Options struct {
	// SkipCache bypasses both cache read and write.
	SkipCache bool

	// CandidateCount is K; values below 1 are treated as 1, which
	// bypasses scoring entirely.
	CandidateCount int

	// Deadline bounds the whole request. Zero means no overall deadline.
	Deadline time.Duration

	// Seed pins the base seed when non-nil; nil draws from the provider.
	Seed *float64
}

// Orchestrator owns the wired pipeline.
type Orchestrator struct {
	cache    *cache.Cache
	seeds    seed.Provider
	ranker   *rank.Ranker
	enhancer enhance.Enhancer
	logger   *zap.Logger
}

// Config is the dependency set for New. Nil fields get working defaults:
// a capacity-64 memory cache, the crypto seed provider, the embedded
// variant pools, a no-op enhancer, and a no-op logger.
type Config struct {
	Cache    *cache.Cache
	Seeds    seed.Provider
	Composer rank.Composer
	Enhancer enhance.Enhancer
	Logger   *zap.Logger
}

// New wires an orchestrator.
func New(cfg Config) *Orchestrator {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Cache == nil {
		cfg.Cache = cache.New(64, cache.WithLogger(cfg.Logger))
	}
	if cfg.Seeds == nil {
		cfg.Seeds = seed.NewCryptoProvider()
	}
	if cfg.Composer == nil {
		cfg.Composer = compose.New(nil, astro.Provider{}, cfg.Logger)
	}
	if cfg.Enhancer == nil {
		cfg.Enhancer = enhance.Nop{}
	}
	return &Orchestrator{
		cache:    cfg.Cache,
		seeds:    cfg.Seeds,
		ranker:   rank.New(cfg.Composer, cfg.Logger),
		enhancer: cfg.Enhancer,
		logger:   cfg.Logger,
	}
}

// Generate runs one full synthesis request.
func (o *Orchestrator) Generate(ctx context.Context, rc reading.Context, opts Options) string {
	requestID := uuid.NewString()
	logger := o.logger.With(zap.String("request_id", requestID))

	if !rc.Identifiable() {
		logger.Warn("unidentifiable context, returning error document")
		return errorDocument(ErrUnidentifiableContext)
	}
	rc = rc.Normalize()

	if !opts.SkipCache {
		if text, ok := o.cache.Get(rc); ok {
			logger.Info("cache hit")
			return text
		}
	}

	if opts.Deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Deadline)
		defer cancel()
	}

	base := o.seeds.Next()
	if opts.Seed != nil {
		base = *opts.Seed
	}
	k := opts.CandidateCount
	if k < 1 {
		k = 1
	}

	started := time.Now()
	best, ok := o.ranker.Generate(ctx, rc, base, k)
	if !ok {
		// Deadline elapsed with nothing finished: the documented policy is
		// the reduced-fidelity fallback, not blocking for stragglers.
		logger.Warn("no candidate completed before deadline, using fallback")
		return compose.Fallback(rc)
	}
	logger.Info("candidates ranked",
		zap.Int("k", k),
		zap.Float64("total_score", best.TotalScore),
		zap.Duration("elapsed", time.Since(started)))

	text := best.Text
	if refined, err := o.enhancer.Enhance(ctx, text, rc); err != nil {
		logger.Warn("enhancement degraded to draft", zap.Error(err))
	} else {
		text = refined
	}

	if !opts.SkipCache {
		o.cache.Put(rc, text)
	}
	return text
}

// errorDocument is the terminal contract: callers always receive text back,
// carrying the underlying error message.
func errorDocument(err error) string {
	return fmt.Sprintf(
		"This reading could not be composed.\n\nReason: %v.\n\nPlease draw at least one card or state an intention, and try again.",
		err)
}
