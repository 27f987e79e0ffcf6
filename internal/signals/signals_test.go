package signals

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arcana/internal/reading"
)

func resonance(score float64) reading.AnswerRecord {
	return reading.AnswerRecord{Kind: reading.KindResonance, SelectedTag: reading.Tag{Score: score}}
}

func emotion(value, polarity string) reading.AnswerRecord {
	return reading.AnswerRecord{Kind: reading.KindEmotion, SelectedTag: reading.Tag{Value: value, Polarity: polarity}}
}

func readiness(tag string) reading.AnswerRecord {
	return reading.AnswerRecord{Kind: reading.KindReadiness, SelectedTag: reading.Tag{Readiness: tag}}
}

func TestAnalyzeEmptyInput(t *testing.T) {
	for _, answers := range [][]reading.AnswerRecord{nil, {}} {
		s := Analyze(answers)
		assert.Equal(t, 0.0, s.OverallResonance)
		assert.Empty(t, s.DominantEmotions)
		assert.Equal(t, reading.LevelLow, s.SituationSpecificity)
		assert.Equal(t, reading.LevelMedium, s.ActionReadiness)
		assert.Equal(t, SeverityNone, s.Crisis.Severity)
		assert.False(t, s.Crisis.Detected)
	}
}

func TestOverallResonance(t *testing.T) {
	t.Run("mean of resonance answers", func(t *testing.T) {
		s := Analyze([]reading.AnswerRecord{resonance(4), resonance(2), resonance(3)})
		assert.InDelta(t, 3.0, s.OverallResonance, 1e-9)
	})

	t.Run("zero when no resonance answers", func(t *testing.T) {
		s := Analyze([]reading.AnswerRecord{emotion("joy", "expansive")})
		assert.Equal(t, 0.0, s.OverallResonance)
	})
}

func TestSituationSpecificityKeepsHighest(t *testing.T) {
	s := Analyze([]reading.AnswerRecord{
		{Kind: reading.KindSituation, SelectedTag: reading.Tag{Specificity: "high"}},
		{Kind: reading.KindSituation, SelectedTag: reading.Tag{Specificity: "low"}},
	})
	assert.Equal(t, reading.LevelHigh, s.SituationSpecificity)
}

func TestActionReadinessPrecedence(t *testing.T) {
	t.Run("default is medium", func(t *testing.T) {
		s := Analyze([]reading.AnswerRecord{resonance(3)})
		assert.Equal(t, reading.LevelMedium, s.ActionReadiness)
	})

	t.Run("hesitant lowers", func(t *testing.T) {
		s := Analyze([]reading.AnswerRecord{readiness("hesitant")})
		assert.Equal(t, reading.LevelLow, s.ActionReadiness)
	})

	t.Run("later hesitant does not revert earlier ready", func(t *testing.T) {
		s := Analyze([]reading.AnswerRecord{readiness("ready"), readiness("hesitant")})
		assert.Equal(t, reading.LevelHigh, s.ActionReadiness)
	})

	t.Run("ready after hesitant still wins", func(t *testing.T) {
		s := Analyze([]reading.AnswerRecord{readiness("hesitant"), readiness("ready")})
		assert.Equal(t, reading.LevelHigh, s.ActionReadiness)
	})
}

func TestCrisisStepFunction(t *testing.T) {
	// Each helper below contributes exactly one independent indicator.
	overwhelm := readiness("overwhelmed")
	twoFears := []reading.AnswerRecord{emotion("fear", "contracted"), emotion("dread", "contracted")}
	twoNumb := []reading.AnswerRecord{emotion("numb", ""), emotion("blocked", "")}
	lowResonance := resonance(1.0)

	t.Run("zero indicators is none", func(t *testing.T) {
		s := Analyze([]reading.AnswerRecord{resonance(4), emotion("joy", "expansive")})
		assert.Equal(t, SeverityNone, s.Crisis.Severity)
		assert.False(t, s.Crisis.Detected)
	})

	t.Run("one indicator is mild", func(t *testing.T) {
		s := Analyze([]reading.AnswerRecord{overwhelm})
		assert.Equal(t, SeverityMild, s.Crisis.Severity)
		assert.True(t, s.Crisis.Detected)
		assert.Len(t, s.Crisis.Indicators, 1)
	})

	t.Run("two indicators is moderate", func(t *testing.T) {
		answers := append([]reading.AnswerRecord{overwhelm}, twoFears...)
		s := Analyze(answers)
		assert.Equal(t, SeverityModerate, s.Crisis.Severity)
		assert.Len(t, s.Crisis.Indicators, 2)
	})

	t.Run("three or more indicators is severe", func(t *testing.T) {
		answers := append([]reading.AnswerRecord{overwhelm, lowResonance}, twoFears...)
		s := Analyze(answers)
		assert.Equal(t, SeveritySevere, s.Crisis.Severity)

		answers = append(answers, twoNumb...)
		s = Analyze(answers)
		assert.Equal(t, SeveritySevere, s.Crisis.Severity)
	})

	t.Run("severity never decreases with indicator count", func(t *testing.T) {
		rank := map[Severity]int{SeverityNone: 0, SeverityMild: 1, SeverityModerate: 2, SeveritySevere: 3}

		stages := [][]reading.AnswerRecord{
			{resonance(4)},
			{overwhelm},
			append([]reading.AnswerRecord{overwhelm}, twoFears...),
			append([]reading.AnswerRecord{overwhelm, lowResonance}, twoFears...),
			append(append([]reading.AnswerRecord{overwhelm, lowResonance}, twoFears...), twoNumb...),
		}
		prev := -1
		for i, answers := range stages {
			s := Analyze(answers)
			cur, ok := rank[s.Crisis.Severity]
			require.True(t, ok)
			assert.GreaterOrEqual(t, cur, prev, "stage %d regressed", i)
			prev = cur
		}
	})
}

func TestDominantEmotionsAccumulate(t *testing.T) {
	s := Analyze([]reading.AnswerRecord{
		emotion("joy", "expansive"),
		emotion("fear", "contracted"),
	})
	require.Len(t, s.DominantEmotions, 2)
	assert.Equal(t, Emotion{Emotion: "joy", Polarity: "expansive"}, s.DominantEmotions[0])
	assert.Equal(t, Emotion{Emotion: "fear", Polarity: "contracted"}, s.DominantEmotions[1])
}
