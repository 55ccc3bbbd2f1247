// Package store persists entries, cash estimates and score snapshots.
package store

import (
	"context"
	"errors"
	"math"
	"time"

	"CredBuddy/internal/model"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Store is the persistence collaborator of the scoring core.
type Store interface {
	// UpsertEntry inserts or atomically replaces the entry for (UserID, Date),
	// filling in ID and timestamps.
	UpsertEntry(ctx context.Context, e *model.DailyEntry) error
	// Entries returns a user's entries dated on or after since, oldest first.
	Entries(ctx context.Context, userID int64, since time.Time) ([]model.DailyEntry, error)

	AddCashEstimate(ctx context.Context, c *model.CashEstimate) error
	// LatestCashEstimate returns nil without error when the user has none.
	LatestCashEstimate(ctx context.Context, userID int64) (*model.CashEstimate, error)

	RecordSnapshot(ctx context.Context, s *model.ScoreSnapshot) error
	// LatestSnapshot returns ErrNotFound when the user was never scored.
	LatestSnapshot(ctx context.Context, userID int64) (*model.ScoreSnapshot, error)
	// SnapshotHistory returns up to limit snapshots, newest first.
	SnapshotHistory(ctx context.Context, userID int64, limit int) ([]model.ScoreSnapshot, error)

	// ActiveUsers lists users with an entry dated on or after since.
	ActiveUsers(ctx context.Context, since time.Time) ([]int64, error)
	Dashboard(ctx context.Context) (*model.DashboardStats, error)
	// Users lists every user with an entry, cash estimate or snapshot, by id,
	// each with the headline of their newest snapshot.
	Users(ctx context.Context) ([]model.UserSummary, error)

	Close() error
}

// latest is the score and band of one user's newest snapshot.
type latest struct {
	score int
	band  model.Band
}

func summarize(users int, rows []latest) *model.DashboardStats {
	stats := &model.DashboardStats{
		UserCount:        users,
		ScoredUserCount:  len(rows),
		BandDistribution: model.NewBandDistribution(),
	}
	if len(rows) == 0 {
		return stats
	}
	total := 0
	for _, r := range rows {
		total += r.score
		stats.BandDistribution[r.band]++
	}
	stats.AverageScore = int(math.Round(float64(total) / float64(len(rows))))
	return stats
}

func nonNilFlags(flags []string) []string {
	if flags == nil {
		return []string{}
	}
	return flags
}
