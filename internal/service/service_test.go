package service

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CredBuddy/internal/explain"
	"CredBuddy/internal/model"
	"CredBuddy/internal/polisher"
	"CredBuddy/internal/sanitize"
	"CredBuddy/internal/store"
)

var clock = time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *store.MemoryStore) {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	st := store.NewMemoryStore()
	svc := New(st, polisher.NewPipeline(nil, log), log, Options{Language: explain.Dutch, HistoryLimit: 5})
	svc.SetClock(func() time.Time { return clock })
	return svc, st
}

// seedHealthy submits fourteen days ending today with steady figures.
func seedHealthy(t *testing.T, svc *Service, userID int64) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < 14; i++ {
		_, err := svc.SubmitEntry(ctx, EntryInput{
			UserID:       userID,
			Date:         clock.AddDate(0, 0, -i).Format(model.DateLayout),
			RevenueCents: 1000,
			ExpenseCents: 500,
		})
		require.NoError(t, err)
	}
	_, err := svc.SubmitCashEstimate(ctx, CashInput{UserID: userID, AsOfDate: "2025-03-15", CashAvailableCents: 10000})
	require.NoError(t, err)
}

func TestSubmitEntry_Validation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		in    EntryInput
		field string
		rule  string
	}{
		{"negative revenue", EntryInput{UserID: 1, Date: "2025-03-15", RevenueCents: -1}, "revenue_cents", "gte"},
		{"negative expense", EntryInput{UserID: 1, Date: "2025-03-15", ExpenseCents: -5}, "expense_cents", "gte"},
		{"bad date", EntryInput{UserID: 1, Date: "2025-13-01"}, "date", "datetime"},
		{"missing date", EntryInput{UserID: 1}, "date", "required"},
		{"bad user", EntryInput{UserID: 0, Date: "2025-03-15"}, "user_id", "gt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.SubmitEntry(ctx, tt.in)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidInput))

			var ve *ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tt.rule, ve.Fields[tt.field])
		})
	}
}

func TestSubmitEntry_UpsertsSameDay(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.SubmitEntry(ctx, EntryInput{UserID: 1, Date: "2025-03-14", RevenueCents: 100, ExpenseNote: "  rent "})
	require.NoError(t, err)
	e, err := svc.SubmitEntry(ctx, EntryInput{UserID: 1, Date: "2025-03-14", RevenueCents: 200})
	require.NoError(t, err)
	assert.Equal(t, int64(200), e.RevenueCents)

	entries, err := svc.Entries(ctx, 1, 7)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(200), entries[0].RevenueCents)
}

func TestSubmitCashEstimate_Validation(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.SubmitCashEstimate(context.Background(), CashInput{UserID: 1, AsOfDate: "yesterday", CashAvailableCents: 10})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.SubmitCashEstimate(context.Background(), CashInput{UserID: 1, AsOfDate: "2025-03-15", CashAvailableCents: -10})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestSubmitCashEstimate_DefaultsToToday(t *testing.T) {
	svc, st := newTestService(t)
	svc.SetClock(func() time.Time { return time.Date(2024, 12, 31, 23, 30, 0, 0, time.UTC) })

	c, err := svc.SubmitCashEstimate(context.Background(), CashInput{UserID: 1, CashAvailableCents: 500})
	require.NoError(t, err)
	assert.Equal(t, "2024-12-31", c.AsOfDate.Format(model.DateLayout))

	latest, err := st.LatestCashEstimate(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, c.ID, latest.ID)
}

func TestUsers(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	seedHealthy(t, svc, 3)
	_, err := svc.Recompute(ctx, 3)
	require.NoError(t, err)
	_, err = svc.SubmitCashEstimate(ctx, CashInput{UserID: 1, CashAvailableCents: 100})
	require.NoError(t, err)

	users, err := svc.Users(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, int64(1), users[0].UserID)
	assert.Nil(t, users[0].Score)
	assert.Equal(t, int64(3), users[1].UserID)
	require.NotNil(t, users[1].Score)
	assert.Equal(t, 903, users[1].Score.Score)
	assert.Equal(t, model.BandA, users[1].Score.Band)
	assert.Equal(t, 100, users[1].Score.Confidence)
}

func TestRecompute_ColdStart(t *testing.T) {
	svc, st := newTestService(t)

	got, err := svc.Recompute(context.Background(), 9)
	require.NoError(t, err)
	assert.True(t, got.ColdStart)
	assert.Equal(t, 0, got.Snapshot.Score)
	assert.Equal(t, model.BandD, got.Snapshot.Band)
	assert.Equal(t, []string{model.FlagLowReliability}, got.Snapshot.Flags)

	latest, err := st.LatestSnapshot(context.Background(), 9)
	require.NoError(t, err)
	assert.Equal(t, got.Snapshot.ID, latest.ID)
	assert.Equal(t, model.Today(clock), latest.AsOfDate)
}

func TestRecompute_HealthyUser(t *testing.T) {
	svc, _ := newTestService(t)
	seedHealthy(t, svc, 1)

	got, err := svc.Recompute(context.Background(), 1)
	require.NoError(t, err)
	assert.False(t, got.ColdStart)
	assert.Equal(t, 903, got.Snapshot.Score)
	assert.Equal(t, 100, got.Snapshot.Confidence)
	assert.Equal(t, model.BandA, got.Snapshot.Band)
	assert.Empty(t, got.Snapshot.Flags)
	assert.Len(t, got.Factors, 6)
}

func TestLatestAndHistory(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Latest(ctx, 1)
	assert.ErrorIs(t, err, store.ErrNotFound)

	for i := 0; i < 7; i++ {
		_, err := svc.Recompute(ctx, 1)
		require.NoError(t, err)
	}
	hist, err := svc.History(ctx, 1, 100)
	require.NoError(t, err)
	assert.Len(t, hist, 5)
	assert.Greater(t, hist[0].ID, hist[1].ID)

	hist, err = svc.History(ctx, 1, 2)
	require.NoError(t, err)
	assert.Len(t, hist, 2)

	_, err = svc.History(ctx, -1, 2)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestExplain(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	seedHealthy(t, svc, 1)

	_, err := svc.Explain(ctx, 1, ExplainOptions{})
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = svc.Recompute(ctx, 1)
	require.NoError(t, err)

	nl, err := svc.Explain(ctx, 1, ExplainOptions{})
	require.NoError(t, err)
	assert.Equal(t, explain.Entrepreneur, nl.Audience)
	assert.Equal(t, explain.Dutch, nl.Breakdown.Language)
	assert.Contains(t, nl.Text, "Betrouwbaarheid: 100%")
	assert.Contains(t, nl.Text, sanitize.ShortDisclaimer)
	assert.Equal(t, "Unknown", nl.Breakdown.Raw.BusinessType)

	en, err := svc.Explain(ctx, 1, ExplainOptions{Audience: explain.Lender, Language: explain.English, BusinessType: "salon"})
	require.NoError(t, err)
	assert.Contains(t, en.Text, "CREDIT ASSESSMENT: LOWER OBSERVED RISK INDICATORS")
	assert.Equal(t, "Lower observed risk indicators", en.Lender.Headline)
	assert.Equal(t, "salon", en.Breakdown.Raw.BusinessType)
	assert.False(t, en.Narrative.Polished)

	_, err = svc.Explain(ctx, 1, ExplainOptions{Audience: "bank"})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.Explain(ctx, 1, ExplainOptions{Language: "fr"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestRecomputeActiveAndDashboard(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	seedHealthy(t, svc, 1)

	_, err := svc.SubmitEntry(ctx, EntryInput{UserID: 2, Date: "2025-03-14", RevenueCents: 500})
	require.NoError(t, err)
	_, err = svc.SubmitEntry(ctx, EntryInput{UserID: 3, Date: "2025-01-01", RevenueCents: 500})
	require.NoError(t, err)

	sum, err := svc.RecomputeActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, RecomputeSummary{Users: 2, Scored: 2}, sum)

	stats, err := svc.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.UserCount)
	assert.Equal(t, 2, stats.ScoredUserCount)
	assert.Equal(t, 1, stats.BandDistribution[model.BandA])
}
