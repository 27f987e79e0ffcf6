package cache

import (
	"strconv"
	"strings"

	"arcana/internal/reading"
)

// maxIntentionKeyLen bounds the normalized intention's contribution to a key.
const maxIntentionKeyLen = 64

// Key canonicalizes the semantic subset of a reading context into a cache
// key. Draw triples (symbol, orientation, position), profile essentials, the
// normalized intention, reading type, and spread type participate; the seed
// explicitly does not, so the first successfully generated document for a
// context wins and is reused regardless of internal seeds.
func Key(rc reading.Context) string {
	var parts []string

	for _, d := range rc.Draws {
		orientation := "u"
		if d.Reversed {
			orientation = "r"
		}
		parts = append(parts, strings.Join([]string{
			strconv.Itoa(d.SymbolID), orientation, normalize(d.Position),
		}, ":"))
	}

	parts = append(parts,
		"p="+normalize(rc.Profile.Name)+","+normalize(rc.Profile.SunSign)+","+normalize(rc.Profile.PersonalityType)+","+normalize(rc.Profile.FocusArea),
		"i="+normalizeIntention(rc.Intention),
		"t="+normalize(rc.ReadingType),
		"s="+normalize(rc.SpreadType),
	)

	return strings.Join(parts, "|")
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// normalizeIntention lowercases, strips non-alphanumerics, and truncates.
func normalizeIntention(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		}
		if b.Len() >= maxIntentionKeyLen {
			break
		}
	}
	return b.String()
}
