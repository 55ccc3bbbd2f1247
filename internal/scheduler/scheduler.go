// Package scheduler runs the nightly recompute and the operator digest.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"CredBuddy/internal/model"
	"CredBuddy/internal/notifier"
	"CredBuddy/internal/service"
	"CredBuddy/internal/store"
)

// Scorer is the subset of the service the scheduler drives.
type Scorer interface {
	RecomputeActive(ctx context.Context) (service.RecomputeSummary, error)
	Recompute(ctx context.Context, userID int64) (*service.Scored, error)
	Latest(ctx context.Context, userID int64) (*model.ScoreSnapshot, error)
	Dashboard(ctx context.Context) (*model.DashboardStats, error)
}

// Notifier delivers operator messages.
type Notifier interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

const sendRetries = 3

const helpText = "Commands:\n• /stats\n• /score &lt;user id&gt;\n• /recalc &lt;user id&gt;\n• /recompute"

// Scheduler manages all cron tasks.
type Scheduler struct {
	Cron     *cron.Cron
	Scorer   Scorer
	Notifier Notifier
	Ctx      context.Context
	log      *logrus.Logger
	now      func() time.Time
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, sc Scorer, n Notifier, log *logrus.Logger) *Scheduler {
	return &Scheduler{
		Cron:     cron.New(cron.WithSeconds()),
		Scorer:   sc,
		Notifier: n,
		Ctx:      ctx,
		log:      log,
		now:      time.Now,
	}
}

// RegisterAll registers the recompute and digest tasks. An empty schedule skips that task.
func (s *Scheduler) RegisterAll(recomputeCron, digestCron string) error {
	if recomputeCron != "" {
		if _, err := s.Cron.AddFunc(recomputeCron, s.recomputeTask); err != nil {
			return fmt.Errorf("register recompute task: %w", err)
		}
	}
	if digestCron != "" {
		if _, err := s.Cron.AddFunc(digestCron, s.digestTask); err != nil {
			return fmt.Errorf("register digest task: %w", err)
		}
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.log.WithField("jobs", len(s.Cron.Entries())).Info("scheduler started")
}

// Stop stops the cron scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.log.Info("scheduler stopped")
}

// RunRecomputeNow executes the recompute task immediately.
func (s *Scheduler) RunRecomputeNow() {
	s.recomputeTask()
}

func (s *Scheduler) recomputeTask() {
	s.log.Info("running nightly recompute")
	start := s.now()
	sum, err := s.Scorer.RecomputeActive(s.Ctx)
	if err != nil {
		s.log.WithError(err).Error("nightly recompute")
		s.trySend("❌ Nightly recompute failed: " + html.EscapeString(err.Error()))
		return
	}
	took := s.now().Sub(start)
	s.log.WithFields(logrus.Fields{
		"users":  sum.Users,
		"scored": sum.Scored,
		"failed": sum.Failed,
		"took":   took,
	}).Info("nightly recompute done")
	s.trySend(notifier.FormatRecompute(sum.Users, sum.Scored, sum.Failed, took))
}

func (s *Scheduler) digestTask() {
	s.log.Info("running daily digest")
	stats, err := s.Scorer.Dashboard(s.Ctx)
	if err != nil {
		s.log.WithError(err).Error("daily digest")
		return
	}
	s.trySend(notifier.FormatDashboard(stats, s.now()))
}

// HandleCommand processes an operator command and returns a reply.
func (s *Scheduler) HandleCommand(command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return helpText
	}
	switch fields[0] {
	case "/stats":
		stats, err := s.Scorer.Dashboard(s.Ctx)
		if err != nil {
			return failure(err)
		}
		return notifier.FormatDashboard(stats, s.now())
	case "/score":
		id, ok := parseUserID(fields)
		if !ok {
			return helpText
		}
		snap, err := s.Scorer.Latest(s.Ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Sprintf("User %d has not been scored yet.", id)
		}
		if err != nil {
			return failure(err)
		}
		return notifier.FormatScoreCard(snap)
	case "/recalc":
		id, ok := parseUserID(fields)
		if !ok {
			return helpText
		}
		scored, err := s.Scorer.Recompute(s.Ctx, id)
		if err != nil {
			return failure(err)
		}
		return notifier.FormatScoreCard(&scored.Snapshot)
	case "/recompute":
		s.recomputeTask()
		return ""
	default:
		return helpText
	}
}

// failure renders err for an HTML-mode Telegram message.
func failure(err error) string {
	return "❌ " + html.EscapeString(err.Error())
}

func parseUserID(fields []string) (int64, bool) {
	if len(fields) != 2 {
		return 0, false
	}
	id, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func (s *Scheduler) trySend(text string) {
	if err := s.Notifier.SendWithRetry(s.Ctx, text, sendRetries); err != nil {
		s.log.WithError(err).Error("send notification")
	}
}
