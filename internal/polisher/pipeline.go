package polisher

import (
	"context"
	"slices"
	"strings"

	"github.com/sirupsen/logrus"

	"CredBuddy/internal/explain"
	"CredBuddy/internal/sanitize"
)

// disclaimerMark stands in for the fixed disclaimer while the sanitizer runs,
// so audited disclaimer wording is never rewritten.
const disclaimerMark = "[[disclaimer]]"

// Narrative is what gets delivered for one breakdown.
type Narrative struct {
	Entrepreneur string   `json:"entrepreneur"`
	Lender       string   `json:"lender"`
	Polished     bool     `json:"polished"`
	UsedFallback bool     `json:"used_fallback"`
	TermsFound   []string `json:"terms_found"`
}

// Pipeline renders, optionally polishes, and sanitizes narratives.
type Pipeline struct {
	rewriter Rewriter
	log      *logrus.Logger
}

// NewPipeline creates a pipeline. A nil rewriter disables polishing.
func NewPipeline(rw Rewriter, log *logrus.Logger) *Pipeline {
	return &Pipeline{rewriter: rw, log: log}
}

// Enabled reports whether a rewriter is configured.
func (p *Pipeline) Enabled() bool {
	return p.rewriter != nil
}

// Run renders both audiences from b. When polish is set and a rewriter is
// configured, rewritten text replaces the template only after it passes the
// sanitizer; otherwise the template is used. Every text ends with the short
// disclaimer.
func (p *Pipeline) Run(ctx context.Context, b explain.Breakdown, polish bool) Narrative {
	tmpl := Texts{
		Entrepreneur: explain.RenderEntrepreneur(b),
		Lender:       explain.RenderLenderText(b),
	}
	out := Narrative{
		Entrepreneur: sanitize.EnsureDisclaimer(tmpl.Entrepreneur),
		Lender:       sanitize.EnsureDisclaimer(tmpl.Lender),
		TermsFound:   []string{},
	}
	if !polish || p.rewriter == nil {
		return out
	}

	rewritten, err := p.rewriter.Rewrite(ctx, tmpl, b.Language)
	if err != nil {
		p.log.WithError(err).Warn("polish failed, using template text")
		return out
	}

	ent := clean(rewritten.Entrepreneur, tmpl.Entrepreneur, b.Disclaimer)
	lend := clean(rewritten.Lender, tmpl.Lender, b.Disclaimer)

	out.Entrepreneur = sanitize.EnsureDisclaimer(ent.Text)
	out.Lender = sanitize.EnsureDisclaimer(lend.Text)
	out.Polished = !ent.UsedFallback || !lend.UsedFallback
	out.UsedFallback = ent.UsedFallback || lend.UsedFallback
	for _, t := range append(ent.TermsFound, lend.TermsFound...) {
		if !slices.Contains(out.TermsFound, t) {
			out.TermsFound = append(out.TermsFound, t)
		}
	}

	if len(out.TermsFound) > 0 {
		p.log.WithFields(logrus.Fields{
			"terms":    out.TermsFound,
			"fallback": out.UsedFallback,
		}).Warn("polished text contained prohibited terms")
	}
	return out
}

func clean(candidate, fallback, disclaimer string) sanitize.Result {
	body := strings.ReplaceAll(candidate, disclaimer, disclaimerMark)
	res := sanitize.Output(body, fallback)
	if !res.UsedFallback {
		res.Text = strings.ReplaceAll(res.Text, disclaimerMark, disclaimer)
	}
	return res
}
