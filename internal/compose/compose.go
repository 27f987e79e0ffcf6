// Package compose assembles one full narrative document from a reading
// context and a seed. The assembly order is fixed; individual blocks are
// gated on the presence of their inputs and are omission-safe, so a skipped
// block never leaves a dangling separator.
//
// Compose never propagates a failure to its caller: any panic in a sub-step
// is caught at the top level and replaced by a reduced-fidelity fallback
// document (symbol names, one quote each, restated intention).
package compose

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"arcana/internal/arc"
	"arcana/internal/astro"
	"arcana/internal/geometry"
	"arcana/internal/psycho"
	"arcana/internal/reading"
	"arcana/internal/seed"
	"arcana/internal/signals"
	"arcana/internal/tarot"
	"arcana/internal/variant"
)

// Selector is the slice of variant.Selector the composer needs. Tests
// substitute failing implementations to exercise the fallback path.
type Selector interface {
	Choose(category string, fraction float64) string
	Pool(category string) []string
}

// Composer builds candidate documents.
type Composer struct {
	sel    Selector
	astro  astro.Provider
	logger *zap.Logger
}

// New returns a composer over the given selector. A nil selector uses the
// embedded default pools; a nil logger is replaced with a no-op.
func New(sel Selector, provider astro.Provider, logger *zap.Logger) *Composer {
	if sel == nil {
		sel = variant.Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Composer{sel: sel, astro: provider, logger: logger}
}

// Compose produces the full document for (context, seed). It is a pure
// function of its inputs and never returns an empty string for an
// identifiable context.
func (c *Composer) Compose(rc reading.Context, baseSeed float64) (text string) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Warn("composition sub-step failed, using fallback",
				zap.Any("cause", r))
			text = Fallback(rc)
		}
	}()
	return c.assemble(rc, baseSeed)
}

func (c *Composer) assemble(rc reading.Context, baseSeed float64) string {
	sig := signals.Analyze(rc.Answers)
	themes := geometry.ExtractThemes(rc.Draws)
	plan := arc.Compose(rc.Draws, sig, c.sel, baseSeed)
	astroCtx := c.astro.For(rc.Profile.Birthdate, rc.Profile.SunSign)
	guide := psycho.For(rc.Profile.PersonalityType)

	var doc document

	doc.add(c.opener(rc.Profile, baseSeed))
	doc.add(c.hook(rc.Profile, baseSeed))
	doc.add(c.intentionFrame(rc.Intention, baseSeed))
	doc.add(temporalBlock(astroCtx))

	for i, d := range rc.Draws {
		doc.add(c.drawSection(rc, plan, d, i, baseSeed))
	}

	doc.add(c.summaryBlock(rc, sig, themes, baseSeed))
	doc.add(c.integrationBlock("shadow", astroCtx.ShadowAxisSign, baseSeed))
	doc.add(c.integrationBlock("wound", astroCtx.WoundAxisSign, baseSeed))
	doc.add(c.integrationBlock("destiny", astroCtx.DestinyAxisSign, baseSeed))
	doc.add(crisisBlock(sig.Crisis))
	doc.add(toneBlock(guide))
	doc.add(actionBlock(sig.ActionReadiness, rc.Intention))
	doc.add(c.closing(rc, plan, baseSeed))

	return doc.String()
}

// document accumulates blocks, dropping empties so separators never dangle.
type document struct {
	blocks []string
}

func (d *document) add(block string) {
	block = strings.TrimSpace(block)
	if block != "" {
		d.blocks = append(d.blocks, block)
	}
}

func (d *document) String() string {
	return strings.Join(d.blocks, "\n\n")
}

func (c *Composer) opener(p reading.Profile, baseSeed float64) string {
	name := p.Name
	if name == "" {
		name = "Seeker"
	}
	tmpl := c.sel.Choose(variant.CategoryOpener, seed.Derive(baseSeed, seed.SaltOpener))
	if tmpl == "" {
		tmpl = "{{name}}, the cards have been drawn; here is what they say."
	}
	return strings.ReplaceAll(tmpl, "{{name}}", name)
}

func (c *Composer) hook(p reading.Profile, baseSeed float64) string {
	if p.FocusArea == "" {
		return ""
	}
	tmpl := c.sel.Choose(variant.CategoryHook, seed.Derive(baseSeed, seed.SaltHook))
	return strings.ReplaceAll(tmpl, "{{focus}}", p.FocusArea)
}

func (c *Composer) intentionFrame(intention string, baseSeed float64) string {
	tmpl := c.sel.Choose(variant.CategoryIntentionFrame, seed.Derive(baseSeed, seed.SaltSentence))
	if tmpl == "" {
		return fmt.Sprintf("You asked: %q.", intention)
	}
	return strings.ReplaceAll(tmpl, "{{intention}}", intention)
}

func temporalBlock(a astro.Context) string {
	var b strings.Builder
	fmt.Fprintf(&b, "This reading falls under a %s", a.LunarPhase)
	if len(a.ActiveTransits) > 0 {
		fmt.Fprintf(&b, ", during %s", strings.Join(a.ActiveTransits, " and "))
	}
	b.WriteString(". The timing colors everything below: readings taken in this phase reward patience with beginnings and honesty about endings.")
	b.WriteString(" None of this overrides the cards themselves; it only tells you which of their registers the present moment will amplify and which it will mute.")
	return b.String()
}

// drawSection emits one per-draw chapter: optional heading, optional climax
// marker, transition, templated sentence, one or two quotations.
func (c *Composer) drawSection(rc reading.Context, plan arc.Plan, d reading.Draw, i int, baseSeed float64) string {
	sym := tarot.Lookup(d.SymbolID)
	sub := seed.Derive(baseSeed, seed.SaltSentence+float64(i))

	var b strings.Builder

	if i < len(plan.ChapterHeadings) {
		fmt.Fprintf(&b, "## %s: %s\n\n", plan.ChapterHeadings[i], sym.Name)
	}

	if i == plan.ClimaxIndex && plan.ClimaxText != "" {
		b.WriteString(plan.ClimaxText)
		b.WriteString("\n\n")
	}

	if i > 0 {
		if tr := c.sel.Choose(variant.CategoryTransition, seed.Derive(baseSeed, seed.SaltTransition+float64(i))); tr != "" {
			b.WriteString(tr)
			b.WriteString(" ")
		}
	}

	b.WriteString(c.drawSentence(plan, d, sym, i, sub))

	if span := keywordSpan(sym, d.Reversed, sub); span != "" {
		b.WriteString(" ")
		b.WriteString(span)
	}

	if d.Reversed {
		if rev := c.sel.Choose(variant.CategoryReversedClause, sub); rev != "" {
			b.WriteString(" ")
			b.WriteString(rev)
		}
	}

	if d.PositionMeaning != "" {
		fmt.Fprintf(&b, " In this spread, the position asks: %s.", strings.TrimSuffix(d.PositionMeaning, "."))
	}

	if line := stageLine(arc.StageFor(i)); line != "" {
		b.WriteString("\n\n")
		b.WriteString(line)
	}

	quoteCount := 1
	if stage := arc.StageFor(i); stage == arc.StageConflict || stage == arc.StageResolution {
		quoteCount = 2
	}
	for _, q := range tarot.Quotes(d.SymbolID, seed.Derive(baseSeed, seed.SaltQuote+float64(i)), d.Reversed, quoteCount) {
		fmt.Fprintf(&b, "\n\n> %q (%s)", q.Text, q.Source)
	}

	return b.String()
}

func (c *Composer) drawSentence(plan arc.Plan, d reading.Draw, sym tarot.Symbol, i int, sub float64) string {
	keywords := sym.KeywordsUpright
	if d.Reversed {
		keywords = sym.KeywordsReversed
	}
	keyword := "the unspoken"
	if len(keywords) > 0 {
		keyword = keywords[int(sub*float64(len(keywords)))%len(keywords)]
	}
	archetype := "the unnamed"
	if len(sym.Archetypes) > 0 {
		archetype = sym.Archetypes[0]
	}

	position := d.Position
	if act := plan.ActFor(i); act != "" {
		position = fmt.Sprintf("%s (%s)", d.Position, act)
	}

	tmpl := c.sel.Choose(variant.CategorySentence, sub)
	if tmpl == "" {
		tmpl = "{{symbol}} at {{position}} speaks of {{keyword}}."
	}
	r := strings.NewReplacer(
		"{{symbol}}", sym.Name,
		"{{position}}", position,
		"{{keyword}}", keyword,
		"{{element}}", sym.Element,
		"{{archetype}}", archetype,
	)
	return r.Replace(tmpl)
}

// keywordSpan names the card's neighboring keywords so a reader who does not
// recognize the chosen one still has somewhere to stand.
func keywordSpan(sym tarot.Symbol, reversed bool, sub float64) string {
	keywords := sym.KeywordsUpright
	if reversed {
		keywords = sym.KeywordsReversed
	}
	if len(keywords) < 2 {
		return ""
	}
	chosen := int(sub*float64(len(keywords))) % len(keywords)
	others := make([]string, 0, 2)
	for i := 0; i < len(keywords) && len(others) < 2; i++ {
		if i != chosen {
			others = append(others, keywords[i])
		}
	}
	return fmt.Sprintf(
		"The card's wider register in this orientation also covers %s; if the first word does not land for you, read toward whichever of these does, since all of them name the same underlying movement from different angles.",
		strings.Join(others, " and "))
}

// stageLine situates a section in the four-stage journey.
func stageLine(stage arc.Stage) string {
	switch stage {
	case arc.StageSetup:
		return "As the opening movement, this position sets the terms of everything that follows: what appears here is not yet a problem to solve but the ground the rest of the spread stands on, so take it as description before you take it as advice."
	case arc.StageConflict:
		return "This is the spread's point of friction. Where the first card described the terrain, this one names what pushes back, and the honest reading is to let it push rather than explain it away too quickly."
	case arc.StageResolution:
		return "Here the tension begins to resolve. This card does not cancel what came before it; it shows the shape the earlier material takes once it has been faced, which is why its counsel tends to be the most practical in the spread."
	case arc.StageIntegration:
		return "This position belongs to integration: the work of carrying what the earlier cards surfaced back into ordinary days, where it either becomes habit or quietly evaporates."
	}
	return ""
}

func (c *Composer) summaryBlock(rc reading.Context, sig signals.Signals, themes geometry.ThemeSet, baseSeed float64) string {
	var b strings.Builder

	if lead := c.sel.Choose(variant.CategorySummaryLead, seed.Derive(baseSeed, seed.SaltSummary)); lead != "" {
		b.WriteString(lead)
		b.WriteString(" ")
	}

	var labels []string
	for _, t := range themes.Themes {
		if t.Label != "balanced" {
			labels = append(labels, t.Label)
		}
	}
	switch {
	case len(labels) > 0:
		fmt.Fprintf(&b, "The spread leans toward %s.", strings.Join(labels, ", toward "))
	default:
		b.WriteString("The spread sits in unusual equilibrium: no single pull dominates.")
	}

	switch themes.Coherence {
	case "high synergy":
		b.WriteString(" The cards cluster tightly in meaning; this is one message delivered three ways.")
	case "scattered":
		b.WriteString(" The cards range widely; read them as separate voices around one table rather than a chorus.")
	}

	for _, in := range themes.Interactions {
		fmt.Fprintf(&b, "\n\n**%s.** %s", in.Label, strings.TrimSpace(in.Insight))
	}

	switch {
	case sig.OverallResonance >= 3.5:
		b.WriteString("\n\nYour answers resonated strongly with what the cards showed, which usually means the reading is naming something you had already half-admitted; treat it as confirmation, not news.")
	case sig.OverallResonance > 0 && sig.OverallResonance < 2.5:
		b.WriteString("\n\nYour answers sat at an angle to the cards, and that distance is worth keeping: the places where a reading grates are often the places it is working.")
	}

	if sig.SituationSpecificity == reading.LevelHigh {
		b.WriteString(" You described your situation in concrete terms, so hold the counsel here to the same standard and translate every image back into the particulars you named.")
	}

	if sig.PatternRecognition == reading.LevelHigh {
		b.WriteString("\n\nYou confirmed the pattern yourself as the cards turned; trust that recognition.")
	}

	return b.String()
}

func (c *Composer) integrationBlock(axis, sign string, baseSeed float64) string {
	if sign == "" {
		return ""
	}
	lead := c.sel.Choose(variant.CategoryIntegrationLead, seed.Derive(baseSeed, seed.SaltIntegration))
	body := map[string]string{
		"shadow":  "Your shadow axis runs through %s: the qualities you disown tend to wear that sign's face. This spread invites you to reclaim one of them deliberately, starting with whichever one you noticed yourself resisting as you read the sections above.",
		"wound":   "Your wound axis touches %s. Old injuries in that register are not obstacles to this reading's advice; they are its address, and the counsel above will land soft or sharp depending on how honestly that territory is acknowledged.",
		"destiny": "Your destiny axis points along %s. The long arc of this reading bends that way, whether or not the next step does, so let the short-term actions stay small while the orientation stays fixed.",
	}[axis]
	if body == "" {
		return ""
	}
	text := fmt.Sprintf(body, capitalize(sign))
	if lead != "" {
		return lead + " " + text
	}
	return text
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func crisisBlock(cr signals.Crisis) string {
	if cr.Severity != signals.SeverityModerate && cr.Severity != signals.SeveritySevere {
		return ""
	}
	return "A gentle note before anything else: your answers carry real strain. " +
		"A reading is a companion to support, not a substitute for it. Go slowly, " +
		"and let the practical steps below be small."
}

func toneBlock(g psycho.Guidelines) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Read all of this in a %s register.", g.Tone)
	if len(g.Emphasize) > 0 {
		fmt.Fprintf(&b, " Lean into %s.", strings.Join(g.Emphasize, ", "))
	}
	if len(g.Avoid) > 0 {
		fmt.Fprintf(&b, " Let go of %s.", strings.Join(g.Avoid, " and "))
	}
	return b.String()
}

// actionBlock selects one of three step structures keyed to readiness. Each
// is a distinct three-step shape, not a reworded copy of the others.
func actionBlock(readiness reading.Level, intention string) string {
	switch readiness {
	case reading.LevelHigh:
		return "Your next steps, since you are ready to move:\n\n" +
			"1. Today, take the single most concrete action this reading points to, however small; readiness spends badly when it waits.\n" +
			"2. This week, tell one person what you decided; spoken commitments hold their shape far better than private resolutions do.\n" +
			"3. Within the month, review what changed and let the result, not the mood, set the next step; momentum is only useful while it is being steered."
	case reading.LevelLow:
		return "Your next steps, taken gently:\n\n" +
			"1. Today, do nothing except write down what this reading stirred; no action is required yet, and writing keeps the material from fading before you are ready for it.\n" +
			"2. This week, notice when the question returns on its own, and where you are when it does; the circumstances of its return are part of the answer.\n" +
			"3. When readiness arrives by itself, choose one small step; readiness, not urgency, is the signal worth waiting for."
	default:
		return "Your next steps, balancing reflection and motion:\n\n" +
			"1. Today, name the one thing you now see differently, and say it in a full sentence rather than a fragment.\n" +
			"2. This week, test that new seeing with one low-stakes action, something you could undo without cost if the reading turns out to have overstated its case.\n" +
			fmt.Sprintf("3. Then pause and ask whether the intention you started with still fits: %q. If it has shifted, that shift is itself the most useful result this spread could produce.", intention)
	}
}

func (c *Composer) closing(rc reading.Context, plan arc.Plan, baseSeed float64) string {
	var parts []string

	if plan.DenouementText != "" {
		parts = append(parts, plan.DenouementText)
	}
	if aph := c.sel.Choose(variant.CategoryAphorism, seed.Derive(baseSeed, seed.SaltAphorism)); aph != "" {
		parts = append(parts, aph)
	}

	if takeaway := firstTakeaway(rc.Answers); takeaway != "" {
		parts = append(parts, fmt.Sprintf("You named your own takeaway already: %q. Keep it.", takeaway))
	} else if rc.Profile.FocusArea != "" {
		parts = append(parts, fmt.Sprintf("And whatever else this reading stirred, your %s remains the thread to follow.", rc.Profile.FocusArea))
	}

	parts = append(parts, "A reading ends when its language does; what it described keeps moving. Return to any single section above when the week tests it, and read that section alone rather than the whole again.")

	return strings.Join(parts, " ")
}

func firstTakeaway(answers []reading.AnswerRecord) string {
	for _, a := range answers {
		if a.Kind == reading.KindTakeaway && a.SelectedTag.Value != "" {
			return a.SelectedTag.Value
		}
	}
	return ""
}

// Fallback is the reduced-fidelity document used when assembly fails: symbol
// names, one quote each, and the restated intention. It is never empty.
func Fallback(rc reading.Context) string {
	var b strings.Builder
	b.WriteString("A quieter reading today.\n")
	for _, d := range rc.Draws {
		sym := tarot.Lookup(d.SymbolID)
		orientation := "upright"
		if d.Reversed {
			orientation = "reversed"
		}
		fmt.Fprintf(&b, "\n%s (%s) in the %s position.", sym.Name, orientation, d.Position)
		for _, q := range tarot.Quotes(d.SymbolID, 0, d.Reversed, 1) {
			fmt.Fprintf(&b, " %q (%s)", q.Text, q.Source)
		}
	}
	fmt.Fprintf(&b, "\n\nYour intention remains the compass: %q. Sit with the cards above; their plain meanings are enough for today.", rc.Intention)
	return b.String()
}
