package explain

import (
	"strings"
)

// Audience selects the rendering style.
type Audience string

const (
	Entrepreneur Audience = "entrepreneur"
	Lender       Audience = "lender"
)

// ParseAudience accepts "entrepreneur" or "lender".
func ParseAudience(s string) (Audience, bool) {
	switch Audience(s) {
	case Entrepreneur, Lender:
		return Audience(s), true
	}
	return "", false
}

// LenderExplanation is the structured analyst view of a breakdown.
type LenderExplanation struct {
	Headline        string   `json:"headline"`
	ScoreLine       string   `json:"score_line"`
	ConfidenceLine  string   `json:"confidence_line"`
	PositiveDrivers []string `json:"positive_drivers"`
	NegativeDrivers []string `json:"negative_drivers"`
	Flags           []string `json:"flags"`
	Improvements    []string `json:"improvements"`
	Disclaimer      string   `json:"disclaimer"`
}

// Render dispatches on audience.
func Render(b Breakdown, a Audience) string {
	if a == Lender {
		return RenderLenderText(b)
	}
	return RenderEntrepreneur(b)
}

// RenderEntrepreneur produces the encouraging bullet narrative.
func RenderEntrepreneur(b Breakdown) string {
	p := pack(b.Language)

	var sb strings.Builder
	sb.WriteString("📊 " + b.Summary.Headline + "\n")
	sb.WriteString("\n")
	sb.WriteString(b.Summary.ScoreLine + "\n")
	sb.WriteString(b.Summary.ConfidenceLine + "\n")

	section(&sb, p.goingWell, "• ", b.Drivers.Positive)
	section(&sb, p.watchFor, "• ", b.Drivers.Negative)
	section(&sb, p.tipsTitle, "• ", b.Improvements)

	sb.WriteString("\n")
	sb.WriteString(b.Disclaimer)
	return sb.String()
}

// RenderLender returns the structured analyst view.
func RenderLender(b Breakdown) LenderExplanation {
	return LenderExplanation{
		Headline:        b.Summary.Headline,
		ScoreLine:       b.Summary.ScoreLine,
		ConfidenceLine:  b.Summary.ConfidenceLine,
		PositiveDrivers: b.Drivers.Positive,
		NegativeDrivers: b.Drivers.Negative,
		Flags:           b.Raw.Flags,
		Improvements:    b.Improvements,
		Disclaimer:      b.Disclaimer,
	}
}

// RenderLenderText produces the neutral analyst narrative.
func RenderLenderText(b Breakdown) string {
	var sb strings.Builder
	sb.WriteString("CREDIT ASSESSMENT: " + strings.ToUpper(b.Summary.Headline) + "\n")
	sb.WriteString("\n")
	sb.WriteString(b.Summary.ScoreLine + "\n")
	sb.WriteString(b.Summary.ConfidenceLine + "\n")

	section(&sb, "Positive Indicators:", "  + ", b.Drivers.Positive)
	section(&sb, "Risk Indicators:", "  - ", b.Drivers.Negative)
	section(&sb, "Active Risk Flags:", "  ! ", b.Raw.Flags)
	section(&sb, "Observed Data Insights:", "  > ", b.Improvements)

	sb.WriteString("\n")
	sb.WriteString("DISCLAIMER: " + b.Disclaimer)
	return sb.String()
}

func section(sb *strings.Builder, title, bullet string, items []string) {
	if len(items) == 0 {
		return
	}
	sb.WriteString("\n")
	sb.WriteString(title + "\n")
	for _, it := range items {
		sb.WriteString(bullet + it + "\n")
	}
}
