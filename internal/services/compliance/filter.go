// Package compliance removes advice-oriented language from generated text.
package compliance

import (
	"regexp"
	"sort"
)

// Marker replaces every removed span. It matches none of the rules, so
// sanitizing already sanitized text changes nothing.
const Marker = "[COMPLIANCE_REMOVED]"

// Disclaimer is returned alongside every report. It is kept out of the
// sanitized text.
const Disclaimer = "This analysis is generated from publicly available financial data for educational purposes only. " +
	"It is not investment advice and does not recommend buying, selling or holding any security. " +
	"Figures may be incomplete or delayed; verify them independently before relying on them."

type rule struct {
	name string
	re   *regexp.Regexp
}

// phraseRules run before wordRules so a whole clause is removed as one span.
var phraseRules = []rule{
	{"strong_call", regexp.MustCompile(`(?i)\bstrong\s+(?:buy|sell)\b`)},
	{"urgent_call", regexp.MustCompile(`(?i)\b(?:buy|sell)\s+now\b`)},
	{"price_target", regexp.MustCompile(`(?i)\b(?:price\s+target|target\s+price)\b[^.!?\n]*`)},
	{"rating", regexp.MustCompile(`(?i)\b(?:buy|sell|hold)\s+(?:rating|call|recommendation)s?\b`)},
	{"guarantee", regexp.MustCompile(`(?i)\bguaranteed\s+returns?\b`)},
	{"price_prediction", regexp.MustCompile(`(?i)\b(?:will|should|could)\s+(?:reach|hit)\s+(?:rs\.?\s*|\$|₹)?\d[\d,]*(?:\.\d+)?`)},
}

var wordRules = []rule{
	{"word", regexp.MustCompile(`(?i)\b(?:buy|sell|hold|accumulate|invest|target)\b`)},
}

// Violation is one rule match in the scanned text.
type Violation struct {
	Rule   string `json:"rule"`
	Match  string `json:"match"`
	Offset int    `json:"offset"`
}

// Sanitize replaces advice phrases, then advice words, with Marker.
func Sanitize(text string) string {
	if text == "" {
		return text
	}
	for _, r := range phraseRules {
		text = r.re.ReplaceAllLiteralString(text, Marker)
	}
	for _, r := range wordRules {
		text = r.re.ReplaceAllLiteralString(text, Marker)
	}
	return text
}

// Scan reports rule matches without modifying text. A word match inside a
// phrase match is not reported again.
func Scan(text string) []Violation {
	var out []Violation
	var spans [][]int
	covered := func(loc []int) bool {
		for _, s := range spans {
			if loc[0] < s[1] && s[0] < loc[1] {
				return true
			}
		}
		return false
	}
	for _, rules := range [][]rule{phraseRules, wordRules} {
		for _, r := range rules {
			for _, loc := range r.re.FindAllStringIndex(text, -1) {
				if covered(loc) {
					continue
				}
				spans = append(spans, loc)
				out = append(out, Violation{Rule: r.name, Match: text[loc[0]:loc[1]], Offset: loc[0]})
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Offset < out[j].Offset })
	return out
}

// Compliant reports whether text contains no advice language.
func Compliant(text string) bool {
	return len(Scan(text)) == 0
}
