// Package psycho maps a personality type onto tone guidelines for the
// composer: registers to emphasize, registers to avoid, and an overall tone.
// The table is static; unknown types fall back to a balanced default.
package psycho

import "strings"

// Guidelines steer the psychometric tone block of a document.
type Guidelines struct {
	Emphasize []string
	Avoid     []string
	Tone      string
}

var table = map[string]Guidelines{
	"analyst": {
		Emphasize: []string{"patterns", "cause and effect", "frameworks"},
		Avoid:     []string{"vague reassurance", "appeals to fate"},
		Tone:      "precise and structural",
	},
	"idealist": {
		Emphasize: []string{"meaning", "values", "possibility"},
		Avoid:     []string{"cold pragmatism", "dismissing feeling"},
		Tone:      "warm and aspirational",
	},
	"guardian": {
		Emphasize: []string{"stability", "concrete next steps", "duty honored"},
		Avoid:     []string{"abrupt upheaval framing", "open-ended ambiguity"},
		Tone:      "steady and grounded",
	},
	"explorer": {
		Emphasize: []string{"momentum", "experimentation", "fresh angles"},
		Avoid:     []string{"rigid prescriptions", "long-horizon abstractions"},
		Tone:      "energetic and direct",
	},
}

// For returns the guidelines for a personality type. Unknown or empty types
// receive the balanced default.
func For(personalityType string) Guidelines {
	if g, ok := table[strings.ToLower(strings.TrimSpace(personalityType))]; ok {
		return g
	}
	return Guidelines{
		Emphasize: []string{"clarity", "self-trust"},
		Avoid:     []string{"overwhelm"},
		Tone:      "balanced and plain-spoken",
	}
}
