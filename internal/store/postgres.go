package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"CredBuddy/internal/model"
)

// PostgresStore persists data to PostgreSQL. The schema is managed by the
// embedded migrations, see RunMigrations.
type PostgresStore struct {
	pool *pgxpool.Pool
	log  *logrus.Logger
}

// NewPostgresStore connects a pool with UTC session timezone and pings it.
func NewPostgresStore(ctx context.Context, databaseURL string, log *logrus.Logger) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	config.ConnConfig.RuntimeParams["timezone"] = "UTC"

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	log.WithField("host", config.ConnConfig.Host).Info("postgres store opened")
	return &PostgresStore{pool: pool, log: log}, nil
}

func (p *PostgresStore) UpsertEntry(ctx context.Context, e *model.DailyEntry) error {
	err := p.pool.QueryRow(ctx, `
		INSERT INTO daily_entries (user_id, entry_date, revenue_cents, expense_cents, expense_note)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, entry_date)
		DO UPDATE SET
			revenue_cents = EXCLUDED.revenue_cents,
			expense_cents = EXCLUDED.expense_cents,
			expense_note  = EXCLUDED.expense_note,
			updated_at    = NOW()
		RETURNING id, created_at, updated_at`,
		e.UserID, e.Date, e.RevenueCents, e.ExpenseCents, e.ExpenseNote,
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert entry for user %d on %s: %w", e.UserID, e.Day(), err)
	}
	return nil
}

func (p *PostgresStore) Entries(ctx context.Context, userID int64, since time.Time) ([]model.DailyEntry, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, user_id, entry_date, revenue_cents, expense_cents, expense_note, created_at, updated_at
		FROM daily_entries
		WHERE user_id = $1 AND entry_date >= $2
		ORDER BY entry_date`,
		userID, model.Today(since),
	)
	if err != nil {
		return nil, fmt.Errorf("query entries for user %d: %w", userID, err)
	}
	defer rows.Close()

	var out []model.DailyEntry
	for rows.Next() {
		var e model.DailyEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Date, &e.RevenueCents, &e.ExpenseCents,
			&e.ExpenseNote, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		e.Date = model.Today(e.Date)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return out, nil
}

func (p *PostgresStore) AddCashEstimate(ctx context.Context, c *model.CashEstimate) error {
	err := p.pool.QueryRow(ctx, `
		INSERT INTO cash_estimates (user_id, as_of_date, cash_available_cents)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`,
		c.UserID, c.AsOfDate, c.CashAvailableCents,
	).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert cash estimate for user %d: %w", c.UserID, err)
	}
	return nil
}

func (p *PostgresStore) LatestCashEstimate(ctx context.Context, userID int64) (*model.CashEstimate, error) {
	var c model.CashEstimate
	err := p.pool.QueryRow(ctx, `
		SELECT id, user_id, as_of_date, cash_available_cents, created_at
		FROM cash_estimates
		WHERE user_id = $1
		ORDER BY as_of_date DESC, id DESC
		LIMIT 1`, userID,
	).Scan(&c.ID, &c.UserID, &c.AsOfDate, &c.CashAvailableCents, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query cash estimate for user %d: %w", userID, err)
	}
	c.AsOfDate = model.Today(c.AsOfDate)
	return &c, nil
}

func (p *PostgresStore) RecordSnapshot(ctx context.Context, s *model.ScoreSnapshot) error {
	s.Flags = nonNilFlags(s.Flags)
	f := s.Features
	err := p.pool.QueryRow(ctx, `
		INSERT INTO score_snapshots
			(user_id, as_of_date, score, confidence, band, flags, dd, rs, ep, bb, tm, sr)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at`,
		s.UserID, s.AsOfDate, s.Score, s.Confidence, string(s.Band), s.Flags,
		f.DD, f.RS, f.EP, f.BB, f.TM, f.SR,
	).Scan(&s.ID, &s.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert snapshot for user %d: %w", s.UserID, err)
	}
	return nil
}

const pgSnapshotColumns = `id, user_id, as_of_date, score, confidence, band, flags, dd, rs, ep, bb, tm, sr, created_at`

func scanPgSnapshot(row pgx.Row) (*model.ScoreSnapshot, error) {
	var (
		s    model.ScoreSnapshot
		band string
	)
	f := &s.Features
	if err := row.Scan(&s.ID, &s.UserID, &s.AsOfDate, &s.Score, &s.Confidence, &band, &s.Flags,
		&f.DD, &f.RS, &f.EP, &f.BB, &f.TM, &f.SR, &s.CreatedAt); err != nil {
		return nil, err
	}
	s.Band = model.Band(band)
	s.AsOfDate = model.Today(s.AsOfDate)
	s.Flags = nonNilFlags(s.Flags)
	return &s, nil
}

func (p *PostgresStore) LatestSnapshot(ctx context.Context, userID int64) (*model.ScoreSnapshot, error) {
	s, err := scanPgSnapshot(p.pool.QueryRow(ctx, `
		SELECT `+pgSnapshotColumns+`
		FROM score_snapshots
		WHERE user_id = $1
		ORDER BY id DESC
		LIMIT 1`, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query latest snapshot for user %d: %w", userID, err)
	}
	return s, nil
}

func (p *PostgresStore) SnapshotHistory(ctx context.Context, userID int64, limit int) ([]model.ScoreSnapshot, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT `+pgSnapshotColumns+`
		FROM score_snapshots
		WHERE user_id = $1
		ORDER BY id DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query snapshot history for user %d: %w", userID, err)
	}
	defer rows.Close()

	out := []model.ScoreSnapshot{}
	for rows.Next() {
		s, err := scanPgSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		out = append(out, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}
	return out, nil
}

func (p *PostgresStore) ActiveUsers(ctx context.Context, since time.Time) ([]int64, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT DISTINCT user_id FROM daily_entries
		WHERE entry_date >= $1
		ORDER BY user_id`, model.Today(since))
	if err != nil {
		return nil, fmt.Errorf("query active users: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("collect active users: %w", err)
	}
	return ids, nil
}

func (p *PostgresStore) Dashboard(ctx context.Context) (*model.DashboardStats, error) {
	var users int
	if err := p.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM (
			SELECT user_id FROM daily_entries
			UNION SELECT user_id FROM cash_estimates
			UNION SELECT user_id FROM score_snapshots
		) AS u`).Scan(&users); err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}

	rows, err := p.pool.Query(ctx, `
		SELECT DISTINCT ON (user_id) score, band
		FROM score_snapshots
		ORDER BY user_id, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("query latest snapshots: %w", err)
	}
	defer rows.Close()

	var latestRows []latest
	for rows.Next() {
		var (
			l    latest
			band string
		)
		if err := rows.Scan(&l.score, &band); err != nil {
			return nil, fmt.Errorf("scan latest snapshot: %w", err)
		}
		l.band = model.Band(band)
		latestRows = append(latestRows, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate latest snapshots: %w", err)
	}
	return summarize(users, latestRows), nil
}

func (p *PostgresStore) Users(ctx context.Context) ([]model.UserSummary, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT u.user_id, l.score, l.band, l.confidence, l.as_of_date
		FROM (
			SELECT user_id FROM daily_entries
			UNION SELECT user_id FROM cash_estimates
			UNION SELECT user_id FROM score_snapshots
		) AS u
		LEFT JOIN (
			SELECT DISTINCT ON (user_id) user_id, score, band, confidence, as_of_date
			FROM score_snapshots
			ORDER BY user_id, id DESC
		) AS l ON l.user_id = u.user_id
		ORDER BY u.user_id`)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	out := []model.UserSummary{}
	for rows.Next() {
		var (
			u                 model.UserSummary
			score, confidence *int
			band              *string
			asOf              *time.Time
		)
		if err := rows.Scan(&u.UserID, &score, &band, &confidence, &asOf); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		if score != nil {
			u.Score = &model.LatestScore{
				Score:      *score,
				Band:       model.Band(*band),
				Confidence: *confidence,
				AsOfDate:   model.Today(*asOf),
			}
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return out, nil
}

func (p *PostgresStore) Close() error {
	p.log.Info("closing postgres store")
	p.pool.Close()
	return nil
}
