package scoring

import (
	"math"
	"time"

	"CredBuddy/internal/calculator"
	"CredBuddy/internal/model"
)

const (
	// LookbackDays is the scoring window length.
	LookbackDays = 14

	minExpenseDays = 7
	maxCashAgeDays = 7
)

// Signals carries the intermediate measurements behind the features and flags.
type Signals struct {
	SubmissionRate   float64
	DistinctDays     int
	MeanRevenue      float64
	HasExpenses      bool
	HasBuffer        bool
	BufferDays       float64
	CV               float64
	Delta            float64
	HasPrev7         bool
	DeficitDaysLast7 int
}

// Evaluation is the full output of a scoring run.
type Evaluation struct {
	Result          model.ScoreResult
	Factors         []model.FactorScore
	Signals         Signals
	ConfidenceRatio float64
	ColdStart       bool
}

// ColdStart is the result returned when no entry falls inside the lookback window.
func ColdStart() model.ScoreResult {
	return model.ScoreResult{
		Score:      0,
		Confidence: 50,
		Band:       model.BandD,
		Flags:      []string{model.FlagLowReliability},
		Features:   model.FeatureVector{DD: 0.1, RS: 0, EP: 0.5, BB: 0.4, TM: 0.5, SR: 0.8},
	}
}

// bandRules are evaluated in order; the first match wins and anything unmatched is D.
var bandRules = []struct {
	Band  model.Band
	Match func(score, flags int, conf float64) bool
}{
	{model.BandA, func(s, f int, c float64) bool { return s >= 720 && f <= 1 && c >= 0.70 }},
	{model.BandB, func(s, f int, c float64) bool { return s >= 620 && s <= 719 && f <= 2 && c >= 0.65 }},
	{model.BandC, func(s, f int, c float64) bool { return (s >= 520 && s <= 619) || (f == 3 && c >= 0.60) }},
}

// AssignBand gates a score into a band using the flag count and confidence ratio.
func AssignBand(score, flagCount int, conf float64) model.Band {
	for _, r := range bandRules {
		if r.Match(score, flagCount, conf) {
			return r.Band
		}
	}
	return model.BandD
}

// Compute scores entries as of now.
func Compute(entries []model.DailyEntry, cash *model.CashEstimate, now time.Time) model.ScoreResult {
	return Evaluate(entries, cash, now).Result
}

// Evaluate computes features, composite score, flags, confidence and band.
func Evaluate(entries []model.DailyEntry, cash *model.CashEstimate, now time.Time) *Evaluation {
	window := calculator.Window(entries, now, LookbackDays)
	if len(window) == 0 {
		return coldStartEvaluation()
	}

	var sig Signals
	sig.DistinctDays = calculator.DistinctDays(window)
	revenues := calculator.Revenues(window)
	sig.MeanRevenue = calculator.Mean(revenues)

	dd, rate := scoreDataDiscipline(sig.DistinctDays)
	sig.SubmissionRate = rate
	rs, cv := scoreRevenueStability(revenues)
	sig.CV = cv
	ep, hasExpenses := scoreExpensePressure(window, sig.MeanRevenue)
	sig.HasExpenses = hasExpenses
	bb, hasBuffer, bufferDays := scoreBufferBehavior(window, sig.DistinctDays, sig.MeanRevenue, cash, now)
	sig.HasBuffer, sig.BufferDays = hasBuffer, bufferDays
	tm, delta, hasPrev := scoreTrendMomentum(entries, now)
	sig.Delta, sig.HasPrev7 = delta, hasPrev
	sr := scoreShockRecovery(window, sig.MeanRevenue)

	for _, e := range calculator.Window(window, now, 7) {
		if e.NetCents() < 0 {
			sig.DeficitDaysLast7++
		}
	}

	factors := []model.FactorScore{dd, rs, ep, bb, tm, sr}
	total := dd.Weighted + rs.Weighted + ep.Weighted + bb.Weighted + tm.Weighted + sr.Weighted
	score := int(math.Round(1000 * total))

	flags := raiseFlags(&sig)
	conf := confidence(&sig)
	band := AssignBand(score, len(flags), conf)

	return &Evaluation{
		Result: model.ScoreResult{
			Score:      score,
			Confidence: int(math.Round(conf * 100)),
			Band:       band,
			Flags:      flags,
			Features: model.FeatureVector{
				DD: dd.Value,
				RS: rs.Value,
				EP: ep.Value,
				BB: bb.Value,
				TM: tm.Value,
				SR: sr.Value,
			},
		},
		Factors:         factors,
		Signals:         sig,
		ConfidenceRatio: conf,
	}
}

func raiseFlags(sig *Signals) []string {
	flags := make([]string, 0, 5)
	if sig.SubmissionRate < 0.50 {
		flags = append(flags, model.FlagLowReliability)
	}
	if sig.HasExpenses && sig.DeficitDaysLast7 >= 4 {
		flags = append(flags, model.FlagSustainedDeficit)
	}
	if sig.CV > 0.9 {
		flags = append(flags, model.FlagHighVolatility)
	}
	if sig.HasBuffer && sig.BufferDays < 2 {
		flags = append(flags, model.FlagLowBuffer)
	}
	if sig.HasPrev7 && sig.Delta < -0.15 {
		flags = append(flags, model.FlagDecliningRevenue)
	}
	return flags
}

func confidence(sig *Signals) float64 {
	conf := 0.5 + 0.03*float64(sig.DistinctDays) + bonus(sig.HasExpenses) + bonus(sig.HasBuffer)
	return calculator.Clamp(conf, 0, 1)
}

func bonus(ok bool) float64 {
	if ok {
		return 0.10
	}
	return 0
}

func coldStartEvaluation() *Evaluation {
	res := ColdStart()
	f := res.Features
	return &Evaluation{
		Result: res,
		Factors: []model.FactorScore{
			factor(model.KeyDataDiscipline, f.DD, WeightDataDiscipline, "no entries in lookback window"),
			factor(model.KeyRevenueStability, f.RS, WeightRevenueStability, "no entries in lookback window"),
			factor(model.KeyExpensePressure, f.EP, WeightExpensePressure, "no entries in lookback window"),
			factor(model.KeyBufferBehavior, f.BB, WeightBufferBehavior, "no entries in lookback window"),
			factor(model.KeyTrendMomentum, f.TM, WeightTrendMomentum, "no entries in lookback window"),
			factor(model.KeyShockRecovery, f.SR, WeightShockRecovery, "no entries in lookback window"),
		},
		ConfidenceRatio: 0.5,
		ColdStart:       true,
	}
}
