// Package service orchestrates persistence, scoring and explanation.
package service

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"CredBuddy/internal/explain"
	"CredBuddy/internal/model"
	"CredBuddy/internal/polisher"
	"CredBuddy/internal/scoring"
	"CredBuddy/internal/store"
)

// EntryInput is one day of self-reported trading.
type EntryInput struct {
	UserID       int64  `json:"user_id" validate:"gt=0"`
	Date         string `json:"date" validate:"required,datetime=2006-01-02"`
	RevenueCents int64  `json:"revenue_cents" validate:"gte=0"`
	ExpenseCents int64  `json:"expense_cents" validate:"gte=0"`
	ExpenseNote  string `json:"expense_note" validate:"max=280"`
}

// CashInput is a point-in-time cash on hand report. An empty AsOfDate means today.
type CashInput struct {
	UserID             int64  `json:"user_id" validate:"gt=0"`
	AsOfDate           string `json:"as_of_date" validate:"required,datetime=2006-01-02"`
	CashAvailableCents int64  `json:"cash_available_cents" validate:"gte=0"`
}

// Options configures defaults for scoring and explanation.
type Options struct {
	Language     explain.Language
	BusinessType string
	HistoryLimit int
}

// Scored is the outcome of one recompute.
type Scored struct {
	Snapshot  model.ScoreSnapshot `json:"snapshot"`
	Factors   []model.FactorScore `json:"factors"`
	ColdStart bool                `json:"cold_start"`
}

// ExplainOptions selects the narrative for Explain. Empty fields use defaults.
type ExplainOptions struct {
	Audience     explain.Audience
	Language     explain.Language
	Polish       bool
	BusinessType string
}

// Explanation bundles the latest snapshot with its narratives.
type Explanation struct {
	Snapshot  model.ScoreSnapshot       `json:"snapshot"`
	Breakdown explain.Breakdown         `json:"breakdown"`
	Lender    explain.LenderExplanation `json:"lender"`
	Narrative polisher.Narrative        `json:"narrative"`
	Audience  explain.Audience          `json:"audience"`
	Text      string                    `json:"text"`
}

// RecomputeSummary reports a batch recompute.
type RecomputeSummary struct {
	Users  int `json:"users"`
	Scored int `json:"scored"`
	Failed int `json:"failed"`
}

// Service is the application layer used by the HTTP API and the scheduler.
type Service struct {
	store    store.Store
	pipeline *polisher.Pipeline
	log      *logrus.Logger
	validate *validator.Validate
	opts     Options
	now      func() time.Time
}

// New creates a Service.
func New(st store.Store, pipeline *polisher.Pipeline, log *logrus.Logger, opts Options) *Service {
	if _, ok := explain.ParseLanguage(string(opts.Language)); !ok {
		opts.Language = explain.Dutch
	}
	if opts.BusinessType == "" {
		opts.BusinessType = "Unknown"
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = 30
	}
	return &Service{
		store:    st,
		pipeline: pipeline,
		log:      log,
		validate: newValidator(),
		opts:     opts,
		now:      time.Now,
	}
}

// SetClock replaces the wall clock.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// SubmitEntry validates and upserts a daily entry.
func (s *Service) SubmitEntry(ctx context.Context, in EntryInput) (*model.DailyEntry, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, validationError(err)
	}
	date, err := model.ParseDay(in.Date)
	if err != nil {
		return nil, invalid("date", "datetime")
	}

	e := &model.DailyEntry{
		UserID:       in.UserID,
		Date:         date,
		RevenueCents: in.RevenueCents,
		ExpenseCents: in.ExpenseCents,
		ExpenseNote:  strings.TrimSpace(in.ExpenseNote),
	}
	if err := s.store.UpsertEntry(ctx, e); err != nil {
		return nil, fmt.Errorf("save entry: %w", err)
	}
	s.log.WithFields(logrus.Fields{"user_id": e.UserID, "date": e.Day()}).Debug("entry saved")
	return e, nil
}

// Entries returns the user's entries of the last days calendar days.
func (s *Service) Entries(ctx context.Context, userID int64, days int) ([]model.DailyEntry, error) {
	if userID <= 0 {
		return nil, invalid("user_id", "gt")
	}
	if days <= 0 {
		days = scoring.LookbackDays
	}
	since := model.Today(s.now()).AddDate(0, 0, -days)
	entries, err := s.store.Entries(ctx, userID, since)
	if err != nil {
		return nil, fmt.Errorf("load entries: %w", err)
	}
	if entries == nil {
		entries = []model.DailyEntry{}
	}
	return entries, nil
}

// SubmitCashEstimate validates and stores a cash estimate.
func (s *Service) SubmitCashEstimate(ctx context.Context, in CashInput) (*model.CashEstimate, error) {
	if in.AsOfDate == "" {
		in.AsOfDate = model.Today(s.now()).Format(model.DateLayout)
	}
	if err := s.validate.Struct(in); err != nil {
		return nil, validationError(err)
	}
	asOf, err := model.ParseDay(in.AsOfDate)
	if err != nil {
		return nil, invalid("as_of_date", "datetime")
	}

	c := &model.CashEstimate{UserID: in.UserID, AsOfDate: asOf, CashAvailableCents: in.CashAvailableCents}
	if err := s.store.AddCashEstimate(ctx, c); err != nil {
		return nil, fmt.Errorf("save cash estimate: %w", err)
	}
	return c, nil
}

// Recompute scores the user as of now and appends a snapshot.
func (s *Service) Recompute(ctx context.Context, userID int64) (*Scored, error) {
	if userID <= 0 {
		return nil, invalid("user_id", "gt")
	}
	now := s.now()

	entries, err := s.store.Entries(ctx, userID, model.Today(now).AddDate(0, 0, -scoring.LookbackDays))
	if err != nil {
		return nil, fmt.Errorf("load entries: %w", err)
	}
	cash, err := s.store.LatestCashEstimate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load cash estimate: %w", err)
	}

	ev := scoring.Evaluate(entries, cash, now)
	snap := model.ScoreSnapshot{
		UserID:      userID,
		AsOfDate:    model.Today(now),
		ScoreResult: ev.Result,
	}
	if err := s.store.RecordSnapshot(ctx, &snap); err != nil {
		return nil, fmt.Errorf("save snapshot: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"user_id": userID,
		"score":   snap.Score,
		"band":    snap.Band,
		"flags":   len(snap.Flags),
	}).Info("score recomputed")
	return &Scored{Snapshot: snap, Factors: ev.Factors, ColdStart: ev.ColdStart}, nil
}

// Latest returns the newest snapshot; store.ErrNotFound if never scored.
func (s *Service) Latest(ctx context.Context, userID int64) (*model.ScoreSnapshot, error) {
	if userID <= 0 {
		return nil, invalid("user_id", "gt")
	}
	return s.store.LatestSnapshot(ctx, userID)
}

// History returns up to limit snapshots, newest first.
func (s *Service) History(ctx context.Context, userID int64, limit int) ([]model.ScoreSnapshot, error) {
	if userID <= 0 {
		return nil, invalid("user_id", "gt")
	}
	if limit <= 0 || limit > s.opts.HistoryLimit {
		limit = s.opts.HistoryLimit
	}
	return s.store.SnapshotHistory(ctx, userID, limit)
}

// Explain renders the latest snapshot for an audience and language.
func (s *Service) Explain(ctx context.Context, userID int64, opts ExplainOptions) (*Explanation, error) {
	if opts.Audience == "" {
		opts.Audience = explain.Entrepreneur
	}
	if _, ok := explain.ParseAudience(string(opts.Audience)); !ok {
		return nil, invalid("audience", "oneof")
	}
	if opts.Language == "" {
		opts.Language = s.opts.Language
	}
	if _, ok := explain.ParseLanguage(string(opts.Language)); !ok {
		return nil, invalid("lang", "oneof")
	}
	if opts.BusinessType == "" {
		opts.BusinessType = s.opts.BusinessType
	}

	snap, err := s.Latest(ctx, userID)
	if err != nil {
		return nil, err
	}

	b := explain.Build(explain.InputFromResult(snap.ScoreResult, explain.Context{
		LookbackDays: scoring.LookbackDays,
		BusinessType: opts.BusinessType,
	}), opts.Language)
	n := s.pipeline.Run(ctx, b, opts.Polish)

	text := n.Entrepreneur
	if opts.Audience == explain.Lender {
		text = n.Lender
	}
	return &Explanation{
		Snapshot:  *snap,
		Breakdown: b,
		Lender:    explain.RenderLender(b),
		Narrative: n,
		Audience:  opts.Audience,
		Text:      text,
	}, nil
}

// RecomputeActive rescores every user with an entry in the lookback window.
// Failures are logged and counted; the batch continues.
func (s *Service) RecomputeActive(ctx context.Context) (RecomputeSummary, error) {
	since := model.Today(s.now()).AddDate(0, 0, -scoring.LookbackDays)
	ids, err := s.store.ActiveUsers(ctx, since)
	if err != nil {
		return RecomputeSummary{}, fmt.Errorf("list active users: %w", err)
	}

	sum := RecomputeSummary{Users: len(ids)}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		if _, err := s.Recompute(ctx, id); err != nil {
			sum.Failed++
			s.log.WithError(err).WithField("user_id", id).Error("recompute failed")
			continue
		}
		sum.Scored++
	}
	return sum, nil
}

// Dashboard returns aggregate statistics over the latest snapshots.
func (s *Service) Dashboard(ctx context.Context) (*model.DashboardStats, error) {
	stats, err := s.store.Dashboard(ctx)
	if err != nil {
		return nil, fmt.Errorf("load dashboard: %w", err)
	}
	return stats, nil
}

// Users lists every known user with their newest score.
func (s *Service) Users(ctx context.Context) ([]model.UserSummary, error) {
	users, err := s.store.Users(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// jsonFieldName reports validation failures under their wire names.
func jsonFieldName(f reflect.StructField) string {
	name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	if name == "-" || name == "" {
		return f.Name
	}
	return name
}
