// Package seed provides the deterministic numeric drivers behind every
// pseudo-random template choice in the synthesis pipeline.
//
// A Provider hands out base seeds in [0,1). Derive folds a base seed with a
// call-site salt into a decorrelated sub-seed, so consecutive picks from the
// same base do not visibly repeat. Given the same base and salt, Derive is
// pure: composition stays a function of (context, seed).
package seed

import (
	crand "crypto/rand"
	"encoding/binary"
	"math"
	"sync"
)

// Provider yields base seeds for candidate generation.
type Provider interface {
	// Next returns a fraction in [0,1). Implementations decide whether the
	// sequence is entropy-backed or fixed for tests.
	Next() float64
}

// CryptoProvider draws seeds from crypto/rand. It is the production default.
type CryptoProvider struct{}

// NewCryptoProvider returns an entropy-backed seed provider.
func NewCryptoProvider() *CryptoProvider {
	return &CryptoProvider{}
}

// Next reads 8 bytes of entropy and maps them onto [0,1). A failed read
// falls back to a fixed mid-range fraction rather than failing the request;
// the pipeline remains usable, just less varied.
func (p *CryptoProvider) Next() float64 {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0.5
	}
	u := binary.LittleEndian.Uint64(b[:])
	return float64(u>>11) / (1 << 53)
}

// SequenceProvider replays a fixed list of fractions, wrapping at the end.
// Tests inject it to make every template choice reproducible.
type SequenceProvider struct {
	mu    sync.Mutex
	seeds []float64
	next  int
}

// NewSequenceProvider returns a provider replaying the given fractions.
// An empty list degenerates to a constant 0.
func NewSequenceProvider(seeds ...float64) *SequenceProvider {
	return &SequenceProvider{seeds: seeds}
}

// Next returns the next fraction in the sequence.
func (p *SequenceProvider) Next() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.seeds) == 0 {
		return 0
	}
	v := p.seeds[p.next%len(p.seeds)]
	p.next++
	return v
}

// Derive folds a base seed with a salt into a new fraction in [0,1).
// The transform is the fractional part of base*salt + base + salt/1000,
// which spreads nearby bases across the unit interval as long as salts
// are distinct and well separated (see the Salt* constants).
func Derive(base, salt float64) float64 {
	v := base*salt + base + salt/1000
	f := v - math.Floor(v)
	if f < 0 || f >= 1 || math.IsNaN(f) {
		return 0
	}
	return f
}

// Call-site salts. Each pipeline stage that makes an independent choice owns
// a distinct salt so selections stay decorrelated within one candidate.
const (
	SaltOpener      = 7.13
	SaltHook        = 11.47
	SaltTransition  = 13.91
	SaltSentence    = 17.23
	SaltQuote       = 19.31
	SaltHeading     = 23.57
	SaltDenouement  = 29.11
	SaltAphorism    = 31.73
	SaltWordChoice  = 37.19
	SaltToneBlock   = 41.29
	SaltSummary     = 43.67
	SaltIntegration = 47.41
)
