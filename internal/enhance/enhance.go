// Package enhance wraps the optional external text-refinement step. An
// Enhancer takes a finished draft and may return a refined version; every
// implementation carries an explicit timeout, and any failure degrades to
// the pre-enhancement draft rather than failing the request.
package enhance

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"arcana/internal/reading"
)

// ErrTimeout marks an enhancement that exceeded its deadline.
var ErrTimeout = errors.New("enhancement timed out")

// Enhancer refines a draft document.
type Enhancer interface {
	// Enhance returns the refined text, or an error; callers keep the
	// draft on any error.
	Enhance(ctx context.Context, draft string, rc reading.Context) (string, error)
}

// Nop returns the draft unchanged. It is the default when no provider is
// configured.
type Nop struct{}

// Enhance implements Enhancer.
func (Nop) Enhance(_ context.Context, draft string, _ reading.Context) (string, error) {
	return draft, nil
}

// GenAI refines drafts through the Gemini API.
type GenAI struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

// NewGenAI builds a Gemini-backed enhancer. Model defaults to a flash-tier
// model; timeout defaults to 10s.
func NewGenAI(ctx context.Context, apiKey, model string, timeout time.Duration) (*GenAI, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("enhancement API key is required")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GenAI{client: client, model: model, timeout: timeout}, nil
}

// Enhance asks the model to polish the draft without changing its structure
// or claims. The draft is returned untouched on timeout or error.
func (g *GenAI) Enhance(ctx context.Context, draft string, rc reading.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	prompt := fmt.Sprintf(
		"Polish the prose of the following reading without changing its structure, headings, quotes, or claims. Keep every numbered step. The querent's intention: %q.\n\n%s",
		rc.Intention, draft)

	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}
	result, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", ErrTimeout
		}
		return "", fmt.Errorf("genai enhance: %w", err)
	}

	refined := strings.TrimSpace(result.Text())
	if refined == "" {
		return "", fmt.Errorf("genai enhance: empty response")
	}
	return refined, nil
}
