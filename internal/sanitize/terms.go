package sanitize

import (
	"regexp"
)

// term is one prohibited word and its neutral replacement. An empty
// replacement means the word can only be removed by falling back.
type term struct {
	word        string
	replacement string
	re          *regexp.Regexp
}

var prohibited = compile([][2]string{
	{"approve", "review"},
	{"approved", "reviewed"},
	{"approval", "review"},
	{"decline", "review"},
	{"declined", "reviewed"},
	{"reject", "review"},
	{"rejected", "reviewed"},
	{"recommend", "note"},
	{"recommended", "noted"},
	{"recommendation", "observation"},
	{"advise", "note"},
	{"advice", "information"},
	{"should", "could"},
	{"must", "may"},
	{"eligible", "in range"},
	{"ineligible", "out of range"},
	{"creditworthy", "lower-risk"},
	{"creditworthiness", "risk profile"},
	{"guarantee", "indication"},
	{"guaranteed", "indicated"},
	{"qualify", "match"},
	{"qualifies", "matches"},
	{"lender", ""},
	{"lending", ""},
	{"accepted", ""},
})

func compile(table [][2]string) []term {
	out := make([]term, 0, len(table))
	for _, row := range table {
		out = append(out, term{
			word:        row[0],
			replacement: row[1],
			re:          regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(row[0]) + `\b`),
		})
	}
	return out
}

// Terms returns the prohibited words in table order.
func Terms() []string {
	out := make([]string, len(prohibited))
	for i, t := range prohibited {
		out[i] = t.word
	}
	return out
}
