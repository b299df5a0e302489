// Package search holds the citizen search helpers: query tokenization for the
// substring filter and the short-lived, in-process result cache that sits in
// front of the game database.
package search

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
)

// MaxTerms caps the number of substrings a single query contributes to the
// citizen filter. Extra words are ignored.
const MaxTerms = 5

var wordRE = regexp.MustCompile(`[\p{L}\p{N}'-]+`)

// Normalize collapses runs of whitespace, trims, and case-folds q.
func Normalize(q string) string {
	return cases.Fold().String(strings.TrimSpace(normalizeWhitespace(q)))
}

// Terms splits q into the distinct substrings used by the citizen search
// filter, in order of first appearance. Case is preserved: the game database
// compares names case-insensitively.
//
//	Terms("  John   DOE john ") // ["John", "DOE"]
func Terms(q string) []string {
	words := wordRE.FindAllString(q, -1)
	if len(words) == 0 {
		return nil
	}
	folder := cases.Fold() // Casers are stateful; one per call.
	seen := make(map[string]struct{}, len(words))
	out := make([]string, 0, min(len(words), MaxTerms))
	for _, w := range words {
		k := folder.String(w)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, w)
		if len(out) == MaxTerms {
			break
		}
	}
	return out
}

func normalizeWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevSpace := false
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\r' || r == '\n' {
			if !prevSpace {
				b.WriteByte(' ')
				prevSpace = true
			}
			continue
		}
		prevSpace = false
		b.WriteRune(r)
	}
	return b.String()
}
