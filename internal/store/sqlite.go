package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"CredBuddy/internal/model"
)

// SQLiteStore persists data to a SQLite database.
type SQLiteStore struct {
	db  *sql.DB
	mu  sync.Mutex
	log *logrus.Logger
}

// NewSQLiteStore opens (or creates) the SQLite database and runs migrations.
func NewSQLiteStore(dbPath string, log *logrus.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets the dashboard read while the scheduler writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	s := &SQLiteStore{db: db, log: log}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.WithField("path", dbPath).Info("sqlite store opened")
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS daily_entries (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id       INTEGER NOT NULL,
			entry_date    TEXT    NOT NULL,
			revenue_cents INTEGER NOT NULL,
			expense_cents INTEGER NOT NULL,
			expense_note  TEXT    NOT NULL DEFAULT '',
			created_at    INTEGER NOT NULL,
			updated_at    INTEGER NOT NULL,
			UNIQUE (user_id, entry_date)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_entries_date ON daily_entries(entry_date)`,

		`CREATE TABLE IF NOT EXISTS cash_estimates (
			id                   INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id              INTEGER NOT NULL,
			as_of_date           TEXT    NOT NULL,
			cash_available_cents INTEGER NOT NULL,
			created_at           INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_cash_user ON cash_estimates(user_id, as_of_date)`,

		`CREATE TABLE IF NOT EXISTS score_snapshots (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id    INTEGER NOT NULL,
			as_of_date TEXT    NOT NULL,
			score      INTEGER NOT NULL,
			confidence INTEGER NOT NULL,
			band       TEXT    NOT NULL,
			flags      TEXT    NOT NULL,
			dd         REAL,
			rs         REAL,
			ep         REAL,
			bb         REAL,
			tm         REAL,
			sr         REAL,
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_user ON score_snapshots(user_id, id)`,
	}

	for _, st := range stmts {
		if _, err := s.db.Exec(st); err != nil {
			return fmt.Errorf("exec %q: %w", stmtPrefix(st), err)
		}
	}
	return nil
}

func (s *SQLiteStore) UpsertEntry(ctx context.Context, e *model.DailyEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().Unix()
	var createdAt int64
	err := s.db.QueryRowContext(ctx, `INSERT INTO daily_entries
		(user_id, entry_date, revenue_cents, expense_cents, expense_note, created_at, updated_at)
		VALUES (?,?,?,?,?,?,?)
		ON CONFLICT(user_id, entry_date) DO UPDATE SET
			revenue_cents = excluded.revenue_cents,
			expense_cents = excluded.expense_cents,
			expense_note  = excluded.expense_note,
			updated_at    = excluded.updated_at
		RETURNING id, created_at`,
		e.UserID, e.Day(), e.RevenueCents, e.ExpenseCents, e.ExpenseNote, now, now,
	).Scan(&e.ID, &createdAt)
	if err != nil {
		return fmt.Errorf("upsert entry: %w", err)
	}
	e.CreatedAt = time.Unix(createdAt, 0).UTC()
	e.UpdatedAt = time.Unix(now, 0).UTC()
	return nil
}

func (s *SQLiteStore) Entries(ctx context.Context, userID int64, since time.Time) ([]model.DailyEntry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, user_id, entry_date, revenue_cents, expense_cents,
			expense_note, created_at, updated_at
		FROM daily_entries
		WHERE user_id = ? AND entry_date >= ?
		ORDER BY entry_date`,
		userID, since.Format(model.DateLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	var out []model.DailyEntry
	for rows.Next() {
		var (
			e                model.DailyEntry
			day              string
			created, updated int64
		)
		if err := rows.Scan(&e.ID, &e.UserID, &day, &e.RevenueCents, &e.ExpenseCents,
			&e.ExpenseNote, &created, &updated); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		if e.Date, err = model.ParseDay(day); err != nil {
			return nil, fmt.Errorf("parse entry date %q: %w", day, err)
		}
		e.CreatedAt = time.Unix(created, 0).UTC()
		e.UpdatedAt = time.Unix(updated, 0).UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) AddCashEstimate(ctx context.Context, c *model.CashEstimate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().Unix()
	res, err := s.db.ExecContext(ctx, `INSERT INTO cash_estimates
		(user_id, as_of_date, cash_available_cents, created_at)
		VALUES (?,?,?,?)`,
		c.UserID, c.AsOfDate.Format(model.DateLayout), c.CashAvailableCents, now,
	)
	if err != nil {
		return fmt.Errorf("insert cash estimate: %w", err)
	}
	if c.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("cash estimate id: %w", err)
	}
	c.CreatedAt = time.Unix(now, 0).UTC()
	return nil
}

func (s *SQLiteStore) LatestCashEstimate(ctx context.Context, userID int64) (*model.CashEstimate, error) {
	var (
		c       model.CashEstimate
		day     string
		created int64
	)
	err := s.db.QueryRowContext(ctx, `SELECT id, user_id, as_of_date, cash_available_cents, created_at
		FROM cash_estimates
		WHERE user_id = ?
		ORDER BY as_of_date DESC, id DESC
		LIMIT 1`, userID,
	).Scan(&c.ID, &c.UserID, &day, &c.CashAvailableCents, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query cash estimate: %w", err)
	}
	if c.AsOfDate, err = model.ParseDay(day); err != nil {
		return nil, fmt.Errorf("parse cash date %q: %w", day, err)
	}
	c.CreatedAt = time.Unix(created, 0).UTC()
	return &c, nil
}

func (s *SQLiteStore) RecordSnapshot(ctx context.Context, snap *model.ScoreSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	flags, err := json.Marshal(nonNilFlags(snap.Flags))
	if err != nil {
		return fmt.Errorf("marshal flags: %w", err)
	}
	now := time.Now().Unix()
	f := snap.Features
	res, err := s.db.ExecContext(ctx, `INSERT INTO score_snapshots
		(user_id, as_of_date, score, confidence, band, flags, dd, rs, ep, bb, tm, sr, created_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		snap.UserID, snap.AsOfDate.Format(model.DateLayout), snap.Score, snap.Confidence,
		string(snap.Band), string(flags), f.DD, f.RS, f.EP, f.BB, f.TM, f.SR, now,
	)
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	if snap.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("snapshot id: %w", err)
	}
	snap.CreatedAt = time.Unix(now, 0).UTC()
	return nil
}

const snapshotColumns = `id, user_id, as_of_date, score, confidence, band, flags, dd, rs, ep, bb, tm, sr, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row rowScanner) (*model.ScoreSnapshot, error) {
	var (
		snap    model.ScoreSnapshot
		day     string
		band    string
		flags   string
		created int64
	)
	f := &snap.Features
	if err := row.Scan(&snap.ID, &snap.UserID, &day, &snap.Score, &snap.Confidence, &band, &flags,
		&f.DD, &f.RS, &f.EP, &f.BB, &f.TM, &f.SR, &created); err != nil {
		return nil, err
	}
	var err error
	if snap.AsOfDate, err = model.ParseDay(day); err != nil {
		return nil, fmt.Errorf("parse snapshot date %q: %w", day, err)
	}
	if err := json.Unmarshal([]byte(flags), &snap.Flags); err != nil {
		return nil, fmt.Errorf("decode flags: %w", err)
	}
	snap.Flags = nonNilFlags(snap.Flags)
	snap.Band = model.Band(band)
	snap.CreatedAt = time.Unix(created, 0).UTC()
	return &snap, nil
}

func (s *SQLiteStore) LatestSnapshot(ctx context.Context, userID int64) (*model.ScoreSnapshot, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+snapshotColumns+`
		FROM score_snapshots WHERE user_id = ? ORDER BY id DESC LIMIT 1`, userID)
	snap, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query latest snapshot: %w", err)
	}
	return snap, nil
}

func (s *SQLiteStore) SnapshotHistory(ctx context.Context, userID int64, limit int) ([]model.ScoreSnapshot, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+snapshotColumns+`
		FROM score_snapshots WHERE user_id = ? ORDER BY id DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query snapshot history: %w", err)
	}
	defer rows.Close()

	out := []model.ScoreSnapshot{}
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		out = append(out, *snap)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) ActiveUsers(ctx context.Context, since time.Time) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT user_id FROM daily_entries
		WHERE entry_date >= ? ORDER BY user_id`, since.Format(model.DateLayout))
	if err != nil {
		return nil, fmt.Errorf("query active users: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *SQLiteStore) Dashboard(ctx context.Context) (*model.DashboardStats, error) {
	var users int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM (
			SELECT user_id FROM daily_entries
			UNION SELECT user_id FROM cash_estimates
			UNION SELECT user_id FROM score_snapshots
		) AS u`).Scan(&users); err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT s.score, s.band
		FROM score_snapshots s
		JOIN (SELECT user_id, MAX(id) AS id FROM score_snapshots GROUP BY user_id) l ON l.id = s.id`)
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
		return nil, err
	}
	return summarize(users, latestRows), nil
}

func (s *SQLiteStore) Users(ctx context.Context) ([]model.UserSummary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT u.user_id, s.score, s.band, s.confidence, s.as_of_date
		FROM (
			SELECT user_id FROM daily_entries
			UNION SELECT user_id FROM cash_estimates
			UNION SELECT user_id FROM score_snapshots
		) AS u
		LEFT JOIN (SELECT user_id, MAX(id) AS id FROM score_snapshots GROUP BY user_id) l ON l.user_id = u.user_id
		LEFT JOIN score_snapshots s ON s.id = l.id
		ORDER BY u.user_id`)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	out := []model.UserSummary{}
	for rows.Next() {
		var (
			u                 model.UserSummary
			score, confidence sql.NullInt64
			band, asOf        sql.NullString
		)
		if err := rows.Scan(&u.UserID, &score, &band, &confidence, &asOf); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		if score.Valid {
			date, err := model.ParseDay(asOf.String)
			if err != nil {
				return nil, fmt.Errorf("parse as_of_date: %w", err)
			}
			u.Score = &model.LatestScore{
				Score:      int(score.Int64),
				Band:       model.Band(band.String),
				Confidence: int(confidence.Int64),
				AsOfDate:   date,
			}
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error {
	s.log.Info("closing sqlite store")
	return s.db.Close()
}

// stmtPrefix shortens a statement for error messages.
func stmtPrefix(st string) string {
	return st[:min(40, len(st))]
}
