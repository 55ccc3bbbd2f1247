package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"CredBuddy/internal/model"
)

type entryKey struct {
	userID int64
	day    string
}

// MemoryStore keeps everything in process memory. Used in tests and when no
// database is configured.
type MemoryStore struct {
	mu        sync.RWMutex
	nextID    int64
	entries   map[entryKey]model.DailyEntry
	cash      []model.CashEstimate
	snapshots []model.ScoreSnapshot
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[entryKey]model.DailyEntry)}
}

func (m *MemoryStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *MemoryStore) UpsertEntry(_ context.Context, e *model.DailyEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	key := entryKey{e.UserID, e.Day()}
	if prev, ok := m.entries[key]; ok {
		e.ID, e.CreatedAt = prev.ID, prev.CreatedAt
	} else {
		e.ID, e.CreatedAt = m.id(), now
	}
	e.UpdatedAt = now
	m.entries[key] = *e
	return nil
}

func (m *MemoryStore) Entries(_ context.Context, userID int64, since time.Time) ([]model.DailyEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	from := since.Format(model.DateLayout)
	var out []model.DailyEntry
	for k, e := range m.entries {
		if k.userID == userID && k.day >= from {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (m *MemoryStore) AddCashEstimate(_ context.Context, c *model.CashEstimate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c.ID, c.CreatedAt = m.id(), time.Now().UTC()
	m.cash = append(m.cash, *c)
	return nil
}

func (m *MemoryStore) LatestCashEstimate(_ context.Context, userID int64) (*model.CashEstimate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var best *model.CashEstimate
	for i := range m.cash {
		c := &m.cash[i]
		if c.UserID != userID {
			continue
		}
		if best == nil || c.AsOfDate.After(best.AsOfDate) || (c.AsOfDate.Equal(best.AsOfDate) && c.ID > best.ID) {
			best = c
		}
	}
	if best == nil {
		return nil, nil
	}
	out := *best
	return &out, nil
}

func (m *MemoryStore) RecordSnapshot(_ context.Context, s *model.ScoreSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s.ID, s.CreatedAt = m.id(), time.Now().UTC()
	s.Flags = nonNilFlags(s.Flags)
	stored := *s
	stored.Flags = append([]string(nil), s.Flags...)
	m.snapshots = append(m.snapshots, stored)
	return nil
}

func (m *MemoryStore) LatestSnapshot(_ context.Context, userID int64) (*model.ScoreSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := len(m.snapshots) - 1; i >= 0; i-- {
		if m.snapshots[i].UserID == userID {
			out := m.snapshots[i]
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) SnapshotHistory(_ context.Context, userID int64, limit int) ([]model.ScoreSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []model.ScoreSnapshot{}
	for i := len(m.snapshots) - 1; i >= 0 && len(out) < limit; i-- {
		if m.snapshots[i].UserID == userID {
			out = append(out, m.snapshots[i])
		}
	}
	return out, nil
}

func (m *MemoryStore) ActiveUsers(_ context.Context, since time.Time) ([]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	from := since.Format(model.DateLayout)
	seen := make(map[int64]struct{})
	for k := range m.entries {
		if k.day >= from {
			seen[k.userID] = struct{}{}
		}
	}
	ids := make([]int64, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (m *MemoryStore) Dashboard(_ context.Context) (*model.DashboardStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	users := make(map[int64]struct{})
	for k := range m.entries {
		users[k.userID] = struct{}{}
	}
	for _, c := range m.cash {
		users[c.UserID] = struct{}{}
	}

	newest := make(map[int64]model.ScoreSnapshot)
	for _, s := range m.snapshots {
		users[s.UserID] = struct{}{}
		newest[s.UserID] = s
	}
	rows := make([]latest, 0, len(newest))
	for _, s := range newest {
		rows = append(rows, latest{score: s.Score, band: s.Band})
	}
	return summarize(len(users), rows), nil
}

func (m *MemoryStore) Users(_ context.Context) ([]model.UserSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	scores := make(map[int64]*model.LatestScore)
	for k := range m.entries {
		scores[k.userID] = nil
	}
	for _, c := range m.cash {
		scores[c.UserID] = nil
	}
	for _, s := range m.snapshots {
		scores[s.UserID] = &model.LatestScore{
			Score:      s.Score,
			Band:       s.Band,
			Confidence: s.Confidence,
			AsOfDate:   s.AsOfDate,
		}
	}

	out := make([]model.UserSummary, 0, len(scores))
	for id, sc := range scores {
		out = append(out, model.UserSummary{UserID: id, Score: sc})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (m *MemoryStore) Close() error { return nil }
