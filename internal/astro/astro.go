// Package astro supplies the temporal and astrological context interpolated
// into a document: lunar phase, the shadow/wound/destiny axis signs derived
// from the querent's sun sign, and any active transits. The provider is
// deterministic arithmetic over the zodiac wheel and a mean lunar cycle; it
// is consumed opaquely by the composer, which only interpolates its fields.
package astro

import (
	"math"
	"strings"
	"time"
)

// Context carries the fields the composer interpolates.
type Context struct {
	LunarPhase      string
	ShadowAxisSign  string
	WoundAxisSign   string
	DestinyAxisSign string
	ActiveTransits  []string
}

var wheel = []string{
	"aries", "taurus", "gemini", "cancer", "leo", "virgo",
	"libra", "scorpio", "sagittarius", "capricorn", "aquarius", "pisces",
}

// synodic month in days, anchored to a known new moon (2000-01-06 18:14 UTC).
const synodicDays = 29.530588

var lunarEpoch = time.Date(2000, time.January, 6, 18, 14, 0, 0, time.UTC)

// Provider computes astrological context for a querent.
type Provider struct {
	// Now is injectable for deterministic tests; nil means time.Now.
	Now func() time.Time
}

// For derives the context from a birthdate (YYYY-MM-DD, optional) and a sun
// sign. An unrecognized sign yields empty axis fields; the composer's gated
// blocks then simply omit the corresponding passages.
func (p Provider) For(birthdate, sunSign string) Context {
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}

	c := Context{LunarPhase: lunarPhase(now())}

	idx := signIndex(sunSign)
	if idx < 0 && birthdate != "" {
		idx = signIndex(signFromBirthdate(birthdate))
	}
	if idx >= 0 {
		// Shadow: the opposing sign. Wound: square (three signs on).
		// Destiny: trine (four signs on). Standard wheel aspects.
		c.ShadowAxisSign = wheel[(idx+6)%12]
		c.WoundAxisSign = wheel[(idx+3)%12]
		c.DestinyAxisSign = wheel[(idx+4)%12]
	}

	c.ActiveTransits = transitsFor(now())
	return c
}

func signIndex(sign string) int {
	s := strings.ToLower(strings.TrimSpace(sign))
	for i, w := range wheel {
		if w == s {
			return i
		}
	}
	return -1
}

// signFromBirthdate maps a YYYY-MM-DD date onto the tropical zodiac.
func signFromBirthdate(birthdate string) string {
	t, err := time.Parse("2006-01-02", birthdate)
	if err != nil {
		return ""
	}
	m, d := int(t.Month()), t.Day()
	switch {
	case m == 3 && d >= 21 || m == 4 && d <= 19:
		return "aries"
	case m == 4 || m == 5 && d <= 20:
		return "taurus"
	case m == 5 || m == 6 && d <= 20:
		return "gemini"
	case m == 6 || m == 7 && d <= 22:
		return "cancer"
	case m == 7 || m == 8 && d <= 22:
		return "leo"
	case m == 8 || m == 9 && d <= 22:
		return "virgo"
	case m == 9 || m == 10 && d <= 22:
		return "libra"
	case m == 10 || m == 11 && d <= 21:
		return "scorpio"
	case m == 11 || m == 12 && d <= 21:
		return "sagittarius"
	case m == 12 || m == 1 && d <= 19:
		return "capricorn"
	case m == 1 || m == 2 && d <= 18:
		return "aquarius"
	default:
		return "pisces"
	}
}

func lunarPhase(now time.Time) string {
	days := now.Sub(lunarEpoch).Hours() / 24
	age := math.Mod(days, synodicDays)
	if age < 0 {
		age += synodicDays
	}
	switch {
	case age < 1.85:
		return "new moon"
	case age < 5.54:
		return "waxing crescent"
	case age < 9.23:
		return "first quarter"
	case age < 12.92:
		return "waxing gibbous"
	case age < 16.61:
		return "full moon"
	case age < 20.30:
		return "waning gibbous"
	case age < 23.99:
		return "last quarter"
	case age < 27.68:
		return "waning crescent"
	default:
		return "new moon"
	}
}

// transitsFor reports coarse seasonal transits. This stands in for a real
// ephemeris; only the interpolated strings matter to the composer.
func transitsFor(now time.Time) []string {
	var out []string
	switch now.Month() {
	case time.March, time.April:
		out = append(out, "the spring equinox window")
	case time.June, time.July:
		out = append(out, "the solstice tide")
	case time.September, time.October:
		out = append(out, "the autumn equinox window")
	case time.December, time.January:
		out = append(out, "the deep solstice")
	}
	return out
}
