// Package classification tags items with themes and a risk/opportunity
// polarity using keyword rules. Matching is deterministic: the same item and
// rule set always yield the same result.
package classification

import (
	"strings"
	"unicode"

	"mediawatch/types"

	"golang.org/x/text/unicode/norm"
)

// Classifier applies a RuleSet to normalized items. Construct once and share;
// it is read-only after New and safe for concurrent use.
type Classifier struct {
	themes      []foldedRule
	risk        []string
	opportunity []string
}

type foldedRule struct {
	tag      types.ThemeTag
	keywords []string
}

// New prepares a Classifier from a rule set. Keywords are folded once here
// so per-item work is pure substring scanning.
func New(rules RuleSet) *Classifier {
	c := &Classifier{
		themes:      make([]foldedRule, 0, len(rules.Themes)),
		risk:        foldAll(rules.Risk),
		opportunity: foldAll(rules.Opportunity),
	}
	for _, tr := range rules.Themes {
		c.themes = append(c.themes, foldedRule{tag: tr.Tag, keywords: foldAll(tr.Keywords)})
	}
	return c
}

// Classify tags a single item. It never fails: an item matching no theme
// comes back with no themes, neutral polarity and zero confidence.
func (c *Classifier) Classify(item *types.NormalizedItem) *types.ClassifiedItem {
	text := Fold(item.Title + " " + item.Body)

	var themes []types.ThemeTag
	bestRatio := 0.0
	for _, rule := range c.themes {
		fired := 0
		for _, kw := range rule.keywords {
			if strings.Contains(text, kw) {
				fired++
			}
		}
		if fired == 0 {
			continue
		}
		themes = append(themes, rule.tag)
		// Strictly-greater comparison: on a ratio tie the earlier rule keeps
		// the score.
		if ratio := float64(fired) / float64(len(rule.keywords)); ratio > bestRatio {
			bestRatio = ratio
		}
	}

	out := &types.ClassifiedItem{
		NormalizedItem: *item,
		Themes:         themes,
		Polarity:       types.PolarityNeutral,
		Confidence:     0,
	}

	// No theme matched: the item is off-topic noise, polarity stays neutral
	// whatever the risk/opportunity vocabulary would say.
	if len(themes) == 0 {
		return out
	}

	out.Confidence = clamp01(bestRatio)
	switch {
	case containsAny(text, c.risk):
		// Risk wins when both vocabularies match: a flagged risk must not be
		// buried by upbeat wording in the same piece.
		out.Polarity = types.PolarityRisk
	case containsAny(text, c.opportunity):
		out.Polarity = types.PolarityOpportunity
	}
	return out
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Fold prepares text for keyword matching: lowercase, strip accents
// (NFD, drop combining marks), replace punctuation with spaces and collapse
// runs of whitespace. "Inversión récord" and "INVERSION RECORD" fold to the
// same string.
func Fold(s string) string {
	s = strings.ToLower(s)
	s = norm.NFD.String(s)

	var b strings.Builder
	b.Grow(len(s))
	lastSpace := true
	for _, r := range s {
		switch {
		case unicode.Is(unicode.Mn, r):
			// combining mark: dropped
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		default:
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

func foldAll(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		if f := Fold(kw); f != "" {
			out = append(out, f)
		}
	}
	return out
}
