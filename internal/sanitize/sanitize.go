// Package sanitize keeps prescriptive or decision-making vocabulary out of
// user-facing text. It only replaces words from a fixed table or falls back
// to caller-supplied text; it never generates content.
package sanitize

import (
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ShortDisclaimer is appended to every delivered narrative.
const ShortDisclaimer = "Decision-support only. Final decisions remain with you."

// Result reports what Output did to the candidate text.
type Result struct {
	Text         string   `json:"text"`
	WasModified  bool     `json:"was_modified"`
	TermsFound   []string `json:"terms_found"`
	UsedFallback bool     `json:"used_fallback"`
}

// FindProhibited returns the distinct prohibited words present in text,
// lowercased, in table order.
func FindProhibited(text string) []string {
	var found []string
	for _, t := range prohibited {
		if t.re.MatchString(text) {
			found = append(found, t.word)
		}
	}
	return found
}

// Output cleans candidate. Clean text is returned untouched. Otherwise known
// words are replaced; if anything prohibited survives, fallback is returned
// verbatim instead of a partially cleaned text.
func Output(candidate, fallback string) Result {
	found := FindProhibited(candidate)
	if len(found) == 0 {
		return Result{Text: candidate, TermsFound: []string{}}
	}

	cleaned := candidate
	for _, t := range prohibited {
		if t.replacement == "" || !slices.Contains(found, t.word) {
			continue
		}
		repl := t.replacement
		cleaned = t.re.ReplaceAllStringFunc(cleaned, func(match string) string {
			return matchCase(match, repl)
		})
	}

	if len(FindProhibited(cleaned)) > 0 {
		return Result{Text: fallback, WasModified: true, TermsFound: found, UsedFallback: true}
	}
	return Result{Text: cleaned, WasModified: true, TermsFound: found}
}

// EnsureDisclaimer appends ShortDisclaimer after a blank line unless text
// already contains it.
func EnsureDisclaimer(text string) string {
	if strings.Contains(text, ShortDisclaimer) {
		return text
	}
	return text + "\n\n" + ShortDisclaimer
}

// matchCase capitalizes repl when the matched word starts with an upper-case letter.
func matchCase(match, repl string) string {
	r, _ := utf8.DecodeRuneInString(match)
	if !unicode.IsUpper(r) {
		return repl
	}
	first, size := utf8.DecodeRuneInString(repl)
	return string(unicode.ToUpper(first)) + repl[size:]
}
