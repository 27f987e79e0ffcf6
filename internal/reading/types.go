// Package reading defines the immutable input model for the synthesis engine.
// A Context is constructed once per request and treated as read-only by every
// downstream stage; all derived structures (signals, themes, arcs) are
// recomputed per invocation and never written back.
package reading

import "strings"

// QuestionKind classifies a free-form answer record.
type QuestionKind string

const (
	KindResonance    QuestionKind = "resonance"
	KindEmotion      QuestionKind = "emotion"
	KindAction       QuestionKind = "action"
	KindSituation    QuestionKind = "situation"
	KindConfirmation QuestionKind = "confirmation"
	KindTakeaway     QuestionKind = "takeaway"
	KindReadiness    QuestionKind = "readiness"
)

// Level is a low/medium/high scale shared by specificity and readiness.
type Level string

const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

// Draw is a single symbol drawn into a spread position.
type Draw struct {
	// SymbolID references the static symbol table (internal/tarot).
	SymbolID int `json:"symbol_id"`

	// Reversed indicates the symbol landed inverted.
	Reversed bool `json:"reversed"`

	// Position is the spread slot label, e.g. "past" or "Act I".
	Position string `json:"position"`

	// PositionMeaning optionally explains what the slot asks of the symbol.
	PositionMeaning string `json:"position_meaning,omitempty"`
}

// Tag carries the selected answer value plus its metadata.
type Tag struct {
	Value       string  `json:"value"`
	Polarity    string  `json:"polarity,omitempty"`    // expansive, contracted, neutral
	Readiness   string  `json:"readiness,omitempty"`   // ready, hesitant, overwhelmed
	Specificity string  `json:"specificity,omitempty"` // low, medium, high
	Score       float64 `json:"score,omitempty"`       // resonance answers: 0..5
}

// AnswerRecord is one free-form answer signal tied to a draw.
type AnswerRecord struct {
	DrawIndex   int          `json:"draw_index"`
	Kind        QuestionKind `json:"kind"`
	SelectedTag Tag          `json:"selected_tag"`
}

// Profile holds the querent essentials that personalize a document.
type Profile struct {
	Name            string `json:"name,omitempty"`
	Birthdate       string `json:"birthdate,omitempty"` // YYYY-MM-DD
	SunSign         string `json:"sun_sign,omitempty"`
	PersonalityType string `json:"personality_type,omitempty"`
	FocusArea       string `json:"focus_area,omitempty"` // career, love, growth, ...
}

// Context is the immutable input to one synthesis request.
type Context struct {
	Draws       []Draw         `json:"draws"`
	Answers     []AnswerRecord `json:"answers,omitempty"`
	Profile     Profile        `json:"profile"`
	Intention   string         `json:"intention"`
	ReadingType string         `json:"reading_type"`
	SpreadType  string         `json:"spread_type"`
}

// Normalize fills documented neutral defaults for missing fields so that
// downstream stages never observe a malformed context. Missing input is a
// degraded request, not a fatal one.
func (c Context) Normalize() Context {
	if c.ReadingType == "" {
		c.ReadingType = "general"
	}
	if c.SpreadType == "" {
		c.SpreadType = "open"
	}
	c.Intention = strings.TrimSpace(c.Intention)
	if c.Intention == "" {
		c.Intention = "guidance for this moment"
	}
	// Copy before filling positions; the caller's slice stays untouched.
	draws := make([]Draw, len(c.Draws))
	copy(draws, c.Draws)
	for i := range draws {
		if draws[i].Position == "" {
			draws[i].Position = positionLabel(i)
		}
	}
	c.Draws = draws
	return c
}

// Identifiable reports whether the context carries any usable identifying
// information at all. A context failing this check is the only terminal
// input error in the pipeline.
func (c Context) Identifiable() bool {
	return len(c.Draws) > 0 || strings.TrimSpace(c.Intention) != ""
}

func positionLabel(i int) string {
	labels := []string{"opening", "crossing", "foundation", "horizon", "outcome"}
	if i < len(labels) {
		return labels[i]
	}
	return "beyond"
}
