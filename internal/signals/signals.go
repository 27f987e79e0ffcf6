// Package signals reduces raw answer records into a normalized summary the
// composer can condition on. The analyzer is a pure classifier: no network,
// no logging of raw content, deterministic given its input. Empty or absent
// input yields all-neutral defaults, never an error.
package signals

import (
	"strings"

	"arcana/internal/reading"
)

// Severity grades detected crisis signals.
type Severity string

const (
	SeverityNone     Severity = "none"
	SeverityMild     Severity = "mild"
	SeverityModerate Severity = "moderate"
	SeveritySevere   Severity = "severe"
)

// Emotion is one accumulated emotion/polarity pair.
type Emotion struct {
	Emotion  string
	Polarity string
}

// Crisis captures crisis-indicator detection.
type Crisis struct {
	Detected   bool
	Severity   Severity
	Indicators []string
}

// Signals is the normalized summary of all answer records.
type Signals struct {
	// OverallResonance is the mean of resonance-kind scores, in [0,5].
	OverallResonance float64

	// DominantEmotions lists every emotion/polarity pair observed, in order.
	DominantEmotions []Emotion

	// SituationSpecificity keeps the highest specificity tag observed.
	SituationSpecificity reading.Level

	// ActionReadiness follows precedence high > low > medium(default):
	// once a "ready" answer is seen the level stays high; a later
	// hesitant answer does not revert it.
	ActionReadiness reading.Level

	// PatternRecognition is set when confirmation answers affirm the spread.
	PatternRecognition reading.Level

	Crisis Crisis
}

// Neutral returns the all-default summary used for empty input.
func Neutral() Signals {
	return Signals{
		OverallResonance:     0,
		SituationSpecificity: reading.LevelLow,
		ActionReadiness:      reading.LevelMedium,
		PatternRecognition:   reading.LevelLow,
		Crisis:               Crisis{Severity: SeverityNone},
	}
}

// Analyze reduces answer records to Signals.
func Analyze(answers []reading.AnswerRecord) Signals {
	s := Neutral()
	if len(answers) == 0 {
		return s
	}

	var resonanceSum float64
	var resonanceN int
	var fearCount, numbCount int
	var overwhelmed bool
	var confirmations, confirmTotal int
	readinessHigh := false
	readinessLow := false

	for _, a := range answers {
		switch a.Kind {
		case reading.KindResonance:
			resonanceSum += a.SelectedTag.Score
			resonanceN++

		case reading.KindEmotion:
			emo := strings.ToLower(strings.TrimSpace(a.SelectedTag.Value))
			if emo == "" {
				continue
			}
			s.DominantEmotions = append(s.DominantEmotions, Emotion{
				Emotion:  emo,
				Polarity: a.SelectedTag.Polarity,
			})
			if isFearful(emo, a.SelectedTag.Polarity) {
				fearCount++
			}
			if isNumb(emo) {
				numbCount++
			}

		case reading.KindSituation:
			s.SituationSpecificity = maxLevel(s.SituationSpecificity, parseLevel(a.SelectedTag.Specificity))

		case reading.KindAction, reading.KindReadiness:
			switch a.SelectedTag.Readiness {
			case "ready":
				readinessHigh = true
			case "hesitant":
				readinessLow = true
			case "overwhelmed":
				readinessLow = true
				overwhelmed = true
			}

		case reading.KindConfirmation:
			confirmTotal++
			if strings.EqualFold(a.SelectedTag.Value, "yes") || a.SelectedTag.Polarity == "expansive" {
				confirmations++
			}

		case reading.KindTakeaway:
			// Takeaways personalize the closing block downstream; they carry
			// no signal weight here.
		}
	}

	if resonanceN > 0 {
		s.OverallResonance = resonanceSum / float64(resonanceN)
	}

	// Precedence: high > low > medium(default). A "ready" answer anywhere
	// wins regardless of later hesitation.
	switch {
	case readinessHigh:
		s.ActionReadiness = reading.LevelHigh
	case readinessLow:
		s.ActionReadiness = reading.LevelLow
	}

	if confirmTotal > 0 {
		switch {
		case confirmations*2 > confirmTotal:
			s.PatternRecognition = reading.LevelHigh
		case confirmations > 0:
			s.PatternRecognition = reading.LevelMedium
		}
	}

	s.Crisis = detectCrisis(resonanceN, s.OverallResonance, fearCount, numbCount, overwhelmed)
	return s
}

// detectCrisis counts independent indicators and maps the count to severity
// via a monotonically non-decreasing step function:
// 0 -> none, 1 -> mild, 2 -> moderate, >=3 -> severe.
func detectCrisis(resonanceN int, resonance float64, fearCount, numbCount int, overwhelmed bool) Crisis {
	var indicators []string
	if fearCount >= 2 {
		indicators = append(indicators, "repeated fearful or contracted emotions")
	}
	if overwhelmed {
		indicators = append(indicators, "explicit overwhelm in readiness answers")
	}
	if resonanceN > 0 && resonance <= 1.5 {
		indicators = append(indicators, "very low overall resonance")
	}
	if numbCount >= 2 {
		indicators = append(indicators, "repeated numb or disconnected emotions")
	}

	c := Crisis{Indicators: indicators}
	switch len(indicators) {
	case 0:
		c.Severity = SeverityNone
	case 1:
		c.Severity = SeverityMild
	case 2:
		c.Severity = SeverityModerate
	default:
		c.Severity = SeveritySevere
	}
	c.Detected = len(indicators) > 0
	return c
}

func isFearful(emotion, polarity string) bool {
	switch emotion {
	case "fear", "afraid", "anxious", "dread", "panic":
		return true
	}
	return polarity == "contracted"
}

func isNumb(emotion string) bool {
	switch emotion {
	case "numb", "blocked", "disconnected", "empty", "frozen":
		return true
	}
	return false
}

func parseLevel(v string) reading.Level {
	switch strings.ToLower(v) {
	case "high":
		return reading.LevelHigh
	case "medium":
		return reading.LevelMedium
	default:
		return reading.LevelLow
	}
}

func maxLevel(a, b reading.Level) reading.Level {
	rank := map[reading.Level]int{reading.LevelLow: 0, reading.LevelMedium: 1, reading.LevelHigh: 2}
	if rank[b] > rank[a] {
		return b
	}
	return a
}
