// Package translate implements the QueryTranslator component: it turns a
// free-text request into a QueryPlan — an embedding, a set of constraint
// filters, and zero or more symbolic statements — using whichever of its
// sub-strategies are currently available. No sub-strategy failure is fatal:
// when a strategy can't run, Translate records a degradation flag and
// proceeds with what it has, matching the rest of the system's
// fail-partial posture.
package translate

import (
	"context"
	"regexp"
	"strings"

	"codegraph/internal/embeddings"
	"codegraph/internal/types"
)

// Mode selects which translation strategy produces symbolic statements.
type Mode string

const (
	// ModeLLM defers statement extraction to an external LLM-assisted
	// strategy (not implemented in this offline build; Translator falls
	// back to the rule-based strategy and records a degradation flag).
	ModeLLM Mode = "llm"
	// ModeOffline uses only the rule-based strategy.
	ModeOffline Mode = "offline"
)

// Translator turns natural-language requests into QueryPlans.
type Translator struct {
	embedder        embeddings.Embedder
	mode            Mode
	defaultCycles   int
	knownCategories []string
	knownSystems    []string
}

// New creates a Translator. embedder may be nil, in which case Translate
// degrades gracefully and returns a plan with no embedding.
func New(embedder embeddings.Embedder, mode Mode, defaultInferenceCycles int) *Translator {
	return &Translator{
		embedder:      embedder,
		mode:          mode,
		defaultCycles: defaultInferenceCycles,
		knownCategories: []string{
			types.FamilyLayout, types.FamilyNavigation, types.FamilyForms,
			types.FamilyActions, types.FamilyDisplay, types.FamilyFeedback,
			types.FamilyOverlay, types.FamilyMedia, types.FamilyTypography,
		},
		knownSystems: []string{
			string(types.DesignSystemMaterialUI), string(types.DesignSystemTailwind),
			string(types.DesignSystemChakra), string(types.DesignSystemBootstrap),
			string(types.DesignSystemAntDesign), string(types.DesignSystemShadcn),
		},
	}
}

// Translate produces a QueryPlan for nlText. limit<=0 is left for the caller
// to default. It never returns an error: every sub-failure degrades instead.
func (t *Translator) Translate(ctx context.Context, nlText string, limit int, includeReasoning bool) *types.QueryPlan {
	plan := &types.QueryPlan{
		NLText:           nlText,
		Limit:            limit,
		IncludeReasoning: includeReasoning,
		InferenceCycles:  t.defaultCycles,
		Constraints:      t.extractConstraints(nlText),
	}

	if emb, err := t.embed(ctx, nlText); err != nil {
		plan.DegradationFlags = append(plan.DegradationFlags, "embedding_unavailable")
	} else {
		plan.Embedding = emb
	}

	statements, degraded := t.translateStatements(nlText)
	plan.Statements = statements
	if degraded {
		plan.DegradationFlags = append(plan.DegradationFlags, "llm_unavailable")
	}

	return plan
}

func (t *Translator) embed(ctx context.Context, text string) ([]float32, error) {
	if t.embedder == nil {
		return nil, errNoEmbedder
	}
	return t.embedder.Embed(ctx, text)
}

var errNoEmbedder = &translateError{"no embedder configured"}

type translateError struct{ msg string }

func (e *translateError) Error() string { return e.msg }

// extractConstraints scans text for mentions of known categories, design
// systems, and hashtag-like tags, matching the teacher's lexical-scan
// approach to constraint parsing rather than a grammar-driven one.
func (t *Translator) extractConstraints(text string) types.Constraints {
	lower := strings.ToLower(text)
	var c types.Constraints

	for _, cat := range t.knownCategories {
		if strings.Contains(lower, cat) {
			c.Category = types.Category(cat)
			break
		}
	}
	for _, sys := range t.knownSystems {
		if strings.Contains(lower, strings.ReplaceAll(sys, "-", " ")) || strings.Contains(lower, sys) {
			c.DesignSystem = types.DesignSystem(sys)
			break
		}
	}

	tagPattern := regexp.MustCompile(`#(\w[\w-]*)`)
	for _, m := range tagPattern.FindAllStringSubmatch(text, -1) {
		c.Tags = append(c.Tags, m[1])
	}

	return c
}

var (
	replacesPattern  = regexp.MustCompile(`(?i)\b([a-zA-Z][\w.-]*)\b\s+(?:replaces|can replace)\s+\b([a-zA-Z][\w.-]*)\b`)
	similarToPattern = regexp.MustCompile(`(?i)\b([a-zA-Z][\w.-]*)\b\s+(?:similar to|like)\s+\b([a-zA-Z][\w.-]*)\b`)
	wordPattern      = regexp.MustCompile(`[a-zA-Z]+`)
)

// nounLexicon maps recognised UI component nouns to the category family
// they belong to. Entries are singular; singular strips a trailing "s"
// before lookup so plurals ("buttons") still resolve.
var nounLexicon = map[string]string{
	"container": types.FamilyLayout, "grid": types.FamilyLayout, "row": types.FamilyLayout,
	"column": types.FamilyLayout, "stack": types.FamilyLayout, "spacer": types.FamilyLayout,
	"divider": types.FamilyLayout,

	"navbar": types.FamilyNavigation, "menu": types.FamilyNavigation, "tab": types.FamilyNavigation,
	"breadcrumb": types.FamilyNavigation, "pagination": types.FamilyNavigation, "sidebar": types.FamilyNavigation,
	"link": types.FamilyNavigation,

	"input": types.FamilyForms, "textfield": types.FamilyForms, "checkbox": types.FamilyForms,
	"radio": types.FamilyForms, "select": types.FamilyForms, "dropdown": types.FamilyForms,
	"slider": types.FamilyForms, "switch": types.FamilyForms, "toggle": types.FamilyForms,
	"form": types.FamilyForms, "textarea": types.FamilyForms,

	"button": types.FamilyActions, "fab": types.FamilyActions, "iconbutton": types.FamilyActions,

	"card": types.FamilyDisplay, "table": types.FamilyDisplay, "list": types.FamilyDisplay,
	"avatar": types.FamilyDisplay, "badge": types.FamilyDisplay, "chip": types.FamilyDisplay,
	"tooltip": types.FamilyDisplay,

	"alert": types.FamilyFeedback, "toast": types.FamilyFeedback, "snackbar": types.FamilyFeedback,
	"spinner": types.FamilyFeedback, "progress": types.FamilyFeedback, "skeleton": types.FamilyFeedback,

	"modal": types.FamilyOverlay, "dialog": types.FamilyOverlay, "drawer": types.FamilyOverlay,
	"popover": types.FamilyOverlay, "overlay": types.FamilyOverlay,

	"image": types.FamilyMedia, "video": types.FamilyMedia, "carousel": types.FamilyMedia,
	"icon": types.FamilyMedia,

	"heading": types.FamilyTypography, "text": types.FamilyTypography, "label": types.FamilyTypography,
	"paragraph": types.FamilyTypography,
}

// adjectiveLexicon is the fixed set of descriptive words translateStatements
// recognises as properties.
var adjectiveLexicon = map[string]bool{
	"disabled": true, "primary": true, "secondary": true, "large": true, "small": true,
	"rounded": true, "outlined": true, "filled": true, "bordered": true, "active": true,
	"inactive": true, "required": true, "readonly": true, "checked": true, "selected": true,
	"hidden": true, "visible": true, "compact": true, "responsive": true, "bold": true,
	"italic": true, "underlined": true, "dark": true, "light": true, "striped": true,
	"elevated": true, "flat": true, "minimal": true, "dense": true,
}

// singular strips a common plural "s" if the singular form is in the
// lexicon; "buttons" should resolve the same as "button".
func singular(word string) string {
	if nounLexicon[word] != "" {
		return word
	}
	if trimmed := strings.TrimSuffix(word, "s"); trimmed != word && nounLexicon[trimmed] != "" {
		return trimmed
	}
	return word
}

// translateStatements applies the rule-based strategy regardless of mode:
// in ModeLLM this stands in for the external call and the caller is told
// about the degradation; in ModeOffline it is the only strategy.
//
// It runs a deterministic tokeniser over the text and, for every recognised
// noun, emits a `<term --> category>` inheritance statement naming the
// noun's family; for every recognised adjective, emits a `<term --> [adj]>`
// property statement, attached to the nearest recognised noun in the text
// when one is present. The "replaces"/"similar to" surface patterns run in
// addition, not instead.
func (t *Translator) translateStatements(text string) ([]types.Statement, bool) {
	var out []types.Statement

	words := wordPattern.FindAllString(text, -1)
	var nouns, adjectives []lexiconHit
	for i, w := range words {
		lw := singular(strings.ToLower(w))
		if cat, ok := nounLexicon[lw]; ok {
			nouns = append(nouns, lexiconHit{pos: i, word: lw})
			out = append(out, types.Statement{
				Shape:       types.ShapeInheritance,
				Subject:     types.Term{Atom: lw},
				Predicate:   types.Term{Atom: cat},
				Punctuation: types.PunctuationJudgement,
			})
		} else if adjectiveLexicon[lw] {
			adjectives = append(adjectives, lexiconHit{pos: i, word: lw})
		}
	}

	for _, adj := range adjectives {
		subject := adj.word
		if n := nearestNoun(nouns, adj.pos); n != "" {
			subject = n
		}
		out = append(out, types.Statement{
			Shape:       types.ShapeProperty,
			Subject:     types.Term{Atom: subject},
			Predicate:   types.Term{Atom: adj.word},
			Punctuation: types.PunctuationJudgement,
		})
	}

	for _, m := range replacesPattern.FindAllStringSubmatch(text, -1) {
		out = append(out, types.Statement{
			Shape:       types.ShapeInheritance,
			Subject:     types.Term{Atom: m[1]},
			Predicate:   types.Term{Atom: m[2]},
			Punctuation: types.PunctuationJudgement,
		})
	}
	for _, m := range similarToPattern.FindAllStringSubmatch(text, -1) {
		out = append(out, types.Statement{
			Shape:       types.ShapeSimilarity,
			Subject:     types.Term{Atom: m[1]},
			Predicate:   types.Term{Atom: m[2]},
			Punctuation: types.PunctuationJudgement,
		})
	}

	degraded := t.mode == ModeLLM // an LLM strategy was requested but not run
	return out, degraded
}

// lexiconHit is a recognised noun or adjective token and its position in
// the tokenised text, used to attach adjectives to their nearest noun.
type lexiconHit struct {
	pos  int
	word string
}

// nearestNoun returns the recognised noun closest to pos by token distance,
// or "" if none were recognised in the text.
func nearestNoun(nouns []lexiconHit, pos int) string {
	best := ""
	bestDist := -1
	for _, n := range nouns {
		dist := n.pos - pos
		if dist < 0 {
			dist = -dist
		}
		if bestDist == -1 || dist < bestDist {
			bestDist = dist
			best = n.word
		}
	}
	return best
}
