package scoring

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CredBuddy/internal/model"
)

var now = time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)

func daysAgo(n int) time.Time {
	return now.AddDate(0, 0, -n)
}

// steady returns one entry per day for ages 0..n-1.
func steady(n int, revenue, expense int64) []model.DailyEntry {
	out := make([]model.DailyEntry, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, model.DailyEntry{UserID: 1, Date: daysAgo(i), RevenueCents: revenue, ExpenseCents: expense})
	}
	return out
}

func cash(amount int64, age int) *model.CashEstimate {
	return &model.CashEstimate{UserID: 1, AsOfDate: daysAgo(age), CashAvailableCents: amount}
}

func TestCompute_ColdStart(t *testing.T) {
	want := ColdStart()

	assert.Equal(t, want, Compute(nil, nil, now))

	old := []model.DailyEntry{{Date: daysAgo(20), RevenueCents: 1000}, {Date: daysAgo(15), RevenueCents: 1000}}
	assert.Equal(t, want, Compute(old, cash(5000, 0), now))

	ev := Evaluate(nil, nil, now)
	assert.True(t, ev.ColdStart)
	assert.Len(t, ev.Factors, 6)
}

func TestCompute_HealthyBusiness(t *testing.T) {
	res := Compute(steady(14, 1000, 500), cash(10000, 0), now)

	assert.Equal(t, 1.0, res.Features.DD)
	assert.Equal(t, 1.0, res.Features.RS)
	assert.Equal(t, 1.0, res.Features.EP)
	assert.Equal(t, 1.0, res.Features.BB)
	assert.InDelta(t, 1.0/3, res.Features.TM, 1e-9)
	assert.Equal(t, 0.8, res.Features.SR)
	assert.Equal(t, 903, res.Score)
	assert.Equal(t, 100, res.Confidence)
	assert.Empty(t, res.Flags)
	assert.NotNil(t, res.Flags)
	assert.Equal(t, model.BandA, res.Band)
}

func TestCompute_Deterministic(t *testing.T) {
	entries := steady(10, 1200, 700)
	entries[3].RevenueCents = 0
	c := cash(3000, 2)

	first := Compute(entries, c, now)
	second := Compute(entries, c, now)
	assert.Equal(t, first, second)
}

func TestCompute_ReliabilityFlagBoundary(t *testing.T) {
	six := Compute(steady(6, 1000, 0), nil, now)
	assert.Contains(t, six.Flags, model.FlagLowReliability)
	assert.Equal(t, 0.4, six.Features.DD)

	seven := Compute(steady(7, 1000, 0), nil, now)
	assert.NotContains(t, seven.Flags, model.FlagLowReliability)
	assert.Equal(t, 0.4, seven.Features.DD)

	eleven := Compute(steady(11, 1000, 0), nil, now)
	assert.Equal(t, 0.7, eleven.Features.DD)
}

func TestCompute_TrendWithoutPriorWeek(t *testing.T) {
	res := Compute(steady(6, 1000, 0), nil, now)
	assert.Equal(t, 0.6, res.Features.TM)
	assert.NotContains(t, res.Flags, model.FlagDecliningRevenue)
}

func TestCompute_DecliningRevenue(t *testing.T) {
	entries := steady(14, 1000, 0)
	for i := 8; i < 14; i++ {
		entries[i].RevenueCents = 2000
	}

	ev := Evaluate(entries, nil, now)
	assert.True(t, ev.Signals.HasPrev7)
	assert.InDelta(t, -0.5, ev.Signals.Delta, 1e-9)
	assert.Equal(t, 0.0, ev.Result.Features.TM)
	assert.Contains(t, ev.Result.Flags, model.FlagDecliningRevenue)
	assert.NotContains(t, ev.Result.Flags, model.FlagHighVolatility)
}

func TestCompute_HighVolatilityAndSlowRecovery(t *testing.T) {
	entries := steady(14, 0, 0)
	entries[0].RevenueCents = 14000

	ev := Evaluate(entries, nil, now)
	assert.Greater(t, ev.Signals.CV, 0.9)
	assert.Equal(t, 0.0, ev.Result.Features.RS)
	assert.Equal(t, 0.0, ev.Result.Features.SR)
	assert.Contains(t, ev.Result.Flags, model.FlagHighVolatility)
}

func TestCompute_DipOnLastDayCostsNothing(t *testing.T) {
	entries := steady(14, 1000, 0)
	entries[0].RevenueCents = 0

	res := Compute(entries, nil, now)
	assert.Equal(t, 1.0, res.Features.SR)
}

func TestCompute_SustainedDeficit(t *testing.T) {
	entries := steady(14, 1000, 500)
	for i := 0; i < 4; i++ {
		entries[i].RevenueCents = 100
	}

	ev := Evaluate(entries, nil, now)
	assert.True(t, ev.Signals.HasExpenses)
	assert.Equal(t, 4, ev.Signals.DeficitDaysLast7)
	assert.Contains(t, ev.Result.Flags, model.FlagSustainedDeficit)

	// Deficits without enough expense history do not raise the flag.
	sparse := steady(14, 100, 0)
	for i := 0; i < 6; i++ {
		sparse[i].ExpenseCents = 500
	}
	assert.NotContains(t, Compute(sparse, nil, now).Flags, model.FlagSustainedDeficit)
}

func TestCompute_BufferBehavior(t *testing.T) {
	entries := steady(14, 1000, 500)

	low := Evaluate(entries, cash(500, 0), now)
	assert.True(t, low.Signals.HasBuffer)
	assert.InDelta(t, 1.0, low.Signals.BufferDays, 1e-9)
	assert.InDelta(t, 1.0/7, low.Result.Features.BB, 1e-9)
	assert.Contains(t, low.Result.Flags, model.FlagLowBuffer)

	stale := Evaluate(entries, cash(500, 8), now)
	assert.False(t, stale.Signals.HasBuffer)
	assert.Equal(t, 0.4, stale.Result.Features.BB)
	assert.NotContains(t, stale.Result.Flags, model.FlagLowBuffer)

	none := Compute(entries, nil, now)
	assert.Equal(t, 0.4, none.Features.BB)
}

func TestCompute_BufferUsesRevenueProxyWithoutExpenses(t *testing.T) {
	ev := Evaluate(steady(14, 1000, 0), cash(6000, 1), now)
	assert.True(t, ev.Signals.HasBuffer)
	assert.InDelta(t, 140.0, ev.Signals.BufferDays, 1e-6)
	assert.Equal(t, 1.0, ev.Result.Features.BB)
	assert.False(t, ev.Signals.HasExpenses)
	assert.Equal(t, 0.5, ev.Result.Features.EP)
}

func TestAssignBand(t *testing.T) {
	tests := []struct {
		name  string
		score int
		flags int
		conf  float64
		want  model.Band
	}{
		{"A at floor", 720, 1, 0.70, model.BandA},
		{"high score too many flags", 900, 4, 1.0, model.BandD},
		{"A score with two flags falls through", 720, 2, 0.9, model.BandD},
		{"B at ceiling", 719, 2, 0.65, model.BandB},
		{"B confidence too low", 650, 0, 0.64, model.BandD},
		{"C by score", 619, 0, 0, model.BandC},
		{"C by three flags", 800, 3, 0.60, model.BandC},
		{"three flags low confidence", 800, 3, 0.59, model.BandD},
		{"below C", 519, 0, 1.0, model.BandD},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AssignBand(tt.score, tt.flags, tt.conf))
		})
	}
}

func TestCompute_OutputsStayInRange(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 300; i++ {
		var entries []model.DailyEntry
		n := rng.Intn(20)
		for j := 0; j < n; j++ {
			entries = append(entries, model.DailyEntry{
				Date:         daysAgo(rng.Intn(20) - 2),
				RevenueCents: rng.Int63n(500000),
				ExpenseCents: rng.Int63n(400000),
			})
		}
		var c *model.CashEstimate
		if rng.Intn(2) == 0 {
			c = cash(rng.Int63n(1000000), rng.Intn(12))
		}

		ev := Evaluate(entries, c, now)
		res := ev.Result
		require.GreaterOrEqual(t, res.Score, 0)
		require.LessOrEqual(t, res.Score, 1000)
		require.GreaterOrEqual(t, res.Confidence, 0)
		require.LessOrEqual(t, res.Confidence, 100)
		require.True(t, res.Band.Valid())
		for _, f := range ev.Factors {
			require.GreaterOrEqual(t, f.Value, 0.0, f.Key)
			require.LessOrEqual(t, f.Value, 1.0, f.Key)
		}
		if ev.Signals.SubmissionRate < 0.5 && !ev.ColdStart {
			require.Contains(t, res.Flags, model.FlagLowReliability)
		}
	}
}
