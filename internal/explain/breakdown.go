// Package explain turns a score result into human-readable narratives.
package explain

import (
	"fmt"
	"math"
	"slices"

	"CredBuddy/internal/model"
)

const (
	maxPositive     = 3
	maxNegative     = 2
	maxImprovements = 2
)

// Context describes the scoring run being explained.
type Context struct {
	LookbackDays int    `json:"lookback_days"`
	BusinessType string `json:"business_type"`
}

// Input is everything the narrative depends on. Confidence is a 0..1 ratio.
type Input struct {
	Score      int
	Band       model.Band
	Confidence float64
	Features   model.FeatureVector
	Flags      []string
	Context    Context
}

// InputFromResult adapts a stored ScoreResult.
func InputFromResult(res model.ScoreResult, ctx Context) Input {
	return Input{
		Score:      res.Score,
		Band:       res.Band,
		Confidence: res.ConfidenceRatio(),
		Features:   res.Features,
		Flags:      res.Flags,
		Context:    ctx,
	}
}

// Summary holds the headline and the score and confidence lines.
type Summary struct {
	Headline       string `json:"headline"`
	ScoreLine      string `json:"score_line"`
	ConfidenceLine string `json:"confidence_line"`
}

// Drivers lists the feature labels surfaced as strengths and concerns.
type Drivers struct {
	Positive []string `json:"positive"`
	Negative []string `json:"negative"`
}

// Raw keeps the classified inputs next to the rendered text.
type Raw struct {
	Classified   map[string]Sentiment `json:"classified"`
	Score        int                  `json:"score"`
	Band         model.Band           `json:"band"`
	Confidence   float64              `json:"confidence"`
	Flags        []string             `json:"flags"`
	LookbackDays int                  `json:"lookback_days"`
	BusinessType string               `json:"business_type"`
}

// Breakdown is the language-specific explanation shared by both renderings.
type Breakdown struct {
	Language     Language `json:"language"`
	Summary      Summary  `json:"summary"`
	Drivers      Drivers  `json:"drivers"`
	Improvements []string `json:"improvements"`
	Disclaimer   string   `json:"disclaimer"`
	Raw          Raw      `json:"raw"`
}

// Build classifies each feature and assembles drivers, tips and summary lines.
//
// Negative drivers are padded with neutral labels, in canonical feature order,
// until two are shown. Tips come from the features behind the negative drivers:
// first tips first, then second tips if fewer than two were collected.
func Build(in Input, lang Language) Breakdown {
	p := pack(lang)

	classified := make(map[string]Sentiment, len(model.FeatureKeys))
	positive := make([]string, 0, maxPositive)
	negative := make([]string, 0, maxNegative)
	var sources []string

	for _, key := range model.FeatureKeys {
		s := Classify(in.Features.Get(key))
		classified[key] = s
		switch s {
		case Positive:
			positive = append(positive, p.labels[key].text(s))
		case Negative:
			negative = append(negative, p.labels[key].text(s))
			sources = append(sources, key)
		}
	}

	if len(negative) < maxNegative {
		for _, key := range model.FeatureKeys {
			if len(negative) >= maxNegative {
				break
			}
			if classified[key] == Neutral {
				negative = append(negative, p.labels[key].neutral)
				sources = append(sources, key)
			}
		}
	}

	flags := in.Flags
	if flags == nil {
		flags = []string{}
	}

	return Breakdown{
		Language: lang,
		Summary: Summary{
			Headline: headline(in.Band),
			ScoreLine: fmt.Sprintf("Score: %d/1000 (Band %s). %s.",
				in.Score, in.Band, fmt.Sprintf(p.lookback, in.Context.LookbackDays)),
			ConfidenceLine: fmt.Sprintf(p.confidence, int(math.Round(in.Confidence*100))),
		},
		Drivers: Drivers{
			Positive: capped(positive, maxPositive),
			Negative: capped(negative, maxNegative),
		},
		Improvements: improvements(p, sources),
		Disclaimer:   p.disclaimer,
		Raw: Raw{
			Classified:   classified,
			Score:        in.Score,
			Band:         in.Band,
			Confidence:   in.Confidence,
			Flags:        flags,
			LookbackDays: in.Context.LookbackDays,
			BusinessType: in.Context.BusinessType,
		},
	}
}

func improvements(p *langPack, sources []string) []string {
	out := make([]string, 0, maxImprovements)
	for pass := 0; pass < 2 && len(out) < maxImprovements; pass++ {
		for _, key := range sources {
			if len(out) >= maxImprovements {
				break
			}
			tips := p.tips[key]
			if len(tips) > pass && !slices.Contains(out, tips[pass]) {
				out = append(out, tips[pass])
			}
		}
	}
	return out
}

func capped(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
