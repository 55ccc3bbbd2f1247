package scheduler

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CredBuddy/internal/model"
	"CredBuddy/internal/service"
	"CredBuddy/internal/store"
)

type fakeScorer struct {
	summary    service.RecomputeSummary
	recomputeE error
	snapshots  map[int64]*model.ScoreSnapshot
	recomputed []int64
	failWith   error
}

func (f *fakeScorer) RecomputeActive(context.Context) (service.RecomputeSummary, error) {
	return f.summary, f.recomputeE
}

func (f *fakeScorer) Recompute(_ context.Context, id int64) (*service.Scored, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	f.recomputed = append(f.recomputed, id)
	snap := model.ScoreSnapshot{UserID: id, ScoreResult: model.ScoreResult{Score: 700, Band: model.BandB, Confidence: 90}}
	return &service.Scored{Snapshot: snap}, nil
}

func (f *fakeScorer) Latest(_ context.Context, id int64) (*model.ScoreSnapshot, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	snap, ok := f.snapshots[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return snap, nil
}

func (f *fakeScorer) Dashboard(context.Context) (*model.DashboardStats, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	return &model.DashboardStats{UserCount: 2, ScoredUserCount: 1, AverageScore: 812,
		BandDistribution: map[model.Band]int{model.BandA: 1}}, nil
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (f *fakeNotifier) SendWithRetry(_ context.Context, text string, _ int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, text)
	return f.err
}

func newTestScheduler(sc Scorer, n Notifier) *Scheduler {
	log := logrus.New()
	log.SetOutput(io.Discard)
	s := NewScheduler(context.Background(), sc, n, log)
	s.now = func() time.Time { return time.Date(2025, 3, 15, 8, 0, 0, 0, time.UTC) }
	return s
}

func TestRegisterAll(t *testing.T) {
	s := newTestScheduler(&fakeScorer{}, &fakeNotifier{})
	require.NoError(t, s.RegisterAll("0 0 2 * * *", "0 0 8 * * *"))
	assert.Len(t, s.Cron.Entries(), 2)

	s = newTestScheduler(&fakeScorer{}, &fakeNotifier{})
	require.NoError(t, s.RegisterAll("0 0 2 * * *", ""))
	assert.Len(t, s.Cron.Entries(), 1)

	s = newTestScheduler(&fakeScorer{}, &fakeNotifier{})
	assert.Error(t, s.RegisterAll("not a cron", ""))
}

func TestRecomputeTask(t *testing.T) {
	n := &fakeNotifier{}
	s := newTestScheduler(&fakeScorer{summary: service.RecomputeSummary{Users: 3, Scored: 2, Failed: 1}}, n)
	s.RunRecomputeNow()

	require.Len(t, n.sent, 1)
	assert.Contains(t, n.sent[0], "Active users: 3")
	assert.Contains(t, n.sent[0], "Failed: 1")
}

func TestRecomputeTask_Error(t *testing.T) {
	n := &fakeNotifier{}
	s := newTestScheduler(&fakeScorer{recomputeE: errors.New("db down")}, n)
	s.RunRecomputeNow()

	require.Len(t, n.sent, 1)
	assert.Contains(t, n.sent[0], "db down")
}

func TestDigestTask(t *testing.T) {
	n := &fakeNotifier{err: errors.New("telegram down")}
	s := newTestScheduler(&fakeScorer{}, n)
	s.digestTask()

	require.Len(t, n.sent, 1)
	assert.Contains(t, n.sent[0], "2025-03-15")
	assert.Contains(t, n.sent[0], "Average score: 812")
}

func TestHandleCommand(t *testing.T) {
	sc := &fakeScorer{snapshots: map[int64]*model.ScoreSnapshot{
		5: {UserID: 5, ScoreResult: model.ScoreResult{Score: 640, Band: model.BandB, Confidence: 70}},
	}}
	n := &fakeNotifier{}
	s := newTestScheduler(sc, n)

	assert.Contains(t, s.HandleCommand("/stats"), "Users: 2 (scored 1)")
	assert.Contains(t, s.HandleCommand("/score 5"), "Score: 640/1000 (Band B)")
	assert.Equal(t, "User 6 has not been scored yet.", s.HandleCommand("/score 6"))
	assert.Contains(t, s.HandleCommand("/recalc 9"), "Score: 700/1000 (Band B)")
	assert.Equal(t, []int64{9}, sc.recomputed)

	assert.Empty(t, s.HandleCommand("/recompute"))
	assert.Len(t, n.sent, 1)

	for _, cmd := range []string{"", "/score", "/score x", "/recalc -1", "hello"} {
		assert.True(t, strings.HasPrefix(s.HandleCommand(cmd), "Commands:"), cmd)
	}
}

func TestErrorsAreEscapedForHTML(t *testing.T) {
	cause := errors.New(`pool <closed> & "drained"`)
	n := &fakeNotifier{}
	s := newTestScheduler(&fakeScorer{recomputeE: cause, failWith: cause}, n)

	s.RunRecomputeNow()
	require.Len(t, n.sent, 1)
	assert.Contains(t, n.sent[0], "pool &lt;closed&gt; &amp; &#34;drained&#34;")
	assert.NotContains(t, n.sent[0], "<closed>")

	for _, cmd := range []string{"/stats", "/score 5", "/recalc 5"} {
		reply := s.HandleCommand(cmd)
		assert.Equal(t, "❌ pool &lt;closed&gt; &amp; &#34;drained&#34;", reply, cmd)
	}
}
