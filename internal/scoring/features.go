package scoring

import (
	"fmt"
	"time"

	"CredBuddy/internal/calculator"
	"CredBuddy/internal/model"
)

// Feature weights in the composite score.
const (
	WeightDataDiscipline   = 0.20
	WeightRevenueStability = 0.20
	WeightExpensePressure  = 0.15
	WeightBufferBehavior   = 0.20
	WeightTrendMomentum    = 0.10
	WeightShockRecovery    = 0.15
)

func factor(key string, value, weight float64, commentary string) model.FactorScore {
	return model.FactorScore{
		Key:        key,
		Value:      value,
		Weight:     weight,
		Weighted:   value * weight,
		Commentary: commentary,
	}
}

// scoreDataDiscipline maps the submission rate over the lookback to a step value.
// Weight: 0.20
func scoreDataDiscipline(distinctDays int) (model.FactorScore, float64) {
	rate := float64(distinctDays) / LookbackDays

	var v float64
	switch {
	case rate < 0.35:
		v = 0.1
	case rate < 0.60:
		v = 0.4
	case rate < 0.80:
		v = 0.7
	default:
		v = 1.0
	}

	return factor(model.KeyDataDiscipline, v, WeightDataDiscipline,
		fmt.Sprintf("%d/%d days reported", distinctDays, LookbackDays)), rate
}

// scoreRevenueStability penalizes the coefficient of variation of daily revenue.
// Weight: 0.20
func scoreRevenueStability(revenues []float64) (model.FactorScore, float64) {
	cv := calculator.CoefficientOfVariation(revenues)
	v := 1 - calculator.Clamp(cv/1.0, 0, 1)
	return factor(model.KeyRevenueStability, v, WeightRevenueStability, fmt.Sprintf("cv=%.2f", cv)), cv
}

// scoreExpensePressure maps the mean operating margin to [0,1].
// Only computed when at least 7 entries carry an expense; otherwise 0.5.
// Weight: 0.15
func scoreExpensePressure(window []model.DailyEntry, meanRevenue float64) (model.FactorScore, bool) {
	withExpense := 0
	for _, e := range window {
		if e.ExpenseCents > 0 {
			withExpense++
		}
	}
	if withExpense < minExpenseDays {
		return factor(model.KeyExpensePressure, 0.5, WeightExpensePressure,
			fmt.Sprintf("expenses on %d days, not enough to assess", withExpense)), false
	}

	margin := calculator.Ratio(calculator.Mean(calculator.Nets(window)), meanRevenue)
	v := calculator.Clamp((margin+0.10)/0.40, 0, 1)
	return factor(model.KeyExpensePressure, v, WeightExpensePressure, fmt.Sprintf("margin %+.0f%%", margin*100)), true
}

// scoreBufferBehavior converts a fresh cash estimate into days of expense coverage.
// A missing or stale (older than 7 days) estimate yields 0.4.
// Weight: 0.20
func scoreBufferBehavior(window []model.DailyEntry, distinctDays int, meanRevenue float64,
	cash *model.CashEstimate, now time.Time) (fs model.FactorScore, hasBuffer bool, bufferDays float64) {
	days := float64(distinctDays)
	if distinctDays == 0 {
		days = 1
	}
	burn := calculator.TotalExpense(window) / days
	if burn <= 0 {
		// No expenses reported: assume 60% of average revenue is spent.
		burn = 0.6 * (meanRevenue / days)
	}

	if cash == nil || calculator.AgeDays(cash.AsOfDate, now) > maxCashAgeDays {
		return factor(model.KeyBufferBehavior, 0.4, WeightBufferBehavior, "no recent cash estimate"), false, 0
	}

	bufferDays = calculator.Ratio(float64(cash.CashAvailableCents), burn)
	v := calculator.Clamp(bufferDays/7, 0, 1)
	return factor(model.KeyBufferBehavior, v, WeightBufferBehavior, fmt.Sprintf("%.1f days of cover", bufferDays)), true, bufferDays
}

// scoreTrendMomentum compares mean revenue of the last 7 days against the 7 days before.
// Weight: 0.10
func scoreTrendMomentum(entries []model.DailyEntry, now time.Time) (fs model.FactorScore, delta float64, hasPrev bool) {
	last7 := calculator.Window(entries, now, 7)
	prev7 := calculator.PriorWindow(entries, now, 7, LookbackDays)

	switch {
	case len(prev7) > 0:
		meanLast := calculator.Mean(calculator.Revenues(last7))
		meanPrev := calculator.Mean(calculator.Revenues(prev7))
		delta = calculator.Ratio(meanLast-meanPrev, meanPrev)
		v := calculator.Clamp((delta+0.10)/0.30, 0, 1)
		return factor(model.KeyTrendMomentum, v, WeightTrendMomentum, fmt.Sprintf("week over week %+.0f%%", delta*100)), delta, true
	case len(last7) > 0:
		return factor(model.KeyTrendMomentum, 0.6, WeightTrendMomentum, "no prior week to compare"), 0, false
	default:
		return factor(model.KeyTrendMomentum, 0.5, WeightTrendMomentum, "no recent week"), 0, false
	}
}

// scoreShockRecovery measures how many days revenue takes to return to the mean after a dip.
// A dip is a day below half the window mean. A dip that never recovers costs the days
// remaining to the end of the window, so a dip on the final day costs nothing.
// TODO: product review of the zero cost for an unrecovered final-day dip.
// Weight: 0.15
func scoreShockRecovery(window []model.DailyEntry, meanRevenue float64) model.FactorScore {
	sorted := calculator.Chronological(window)
	last := len(sorted) - 1

	dips, total := 0, 0
	for i, e := range sorted {
		if float64(e.RevenueCents) >= 0.5*meanRevenue {
			continue
		}
		dips++
		cost := last - i
		for j := i + 1; j < len(sorted); j++ {
			if float64(sorted[j].RevenueCents) >= meanRevenue {
				cost = j - i
				break
			}
		}
		total += cost
	}

	if dips == 0 {
		return factor(model.KeyShockRecovery, 0.8, WeightShockRecovery, "no revenue dips")
	}
	avg := float64(total) / float64(dips)
	v := 1 - calculator.Clamp(avg/7, 0, 1)
	return factor(model.KeyShockRecovery, v, WeightShockRecovery, fmt.Sprintf("%d dips, %.1f days to recover", dips, avg))
}
