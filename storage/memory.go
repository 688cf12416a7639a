package storage

import (
	"context"
	"sync"
	"time"

	"f95-crawler/models"
)

// MemoryStore keeps everything in process memory. It backs the "memory"
// driver for dry runs and the crawler tests.
type MemoryStore struct {
	mu       sync.Mutex
	now      func() time.Time
	games    map[int64]*models.Game
	order    []int64
	details  map[int64]*models.ThreadDetail
	dorder   []int64
	tags     []models.Tag
	prefixes []models.Prefix
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		now:     time.Now,
		games:   make(map[int64]*models.Game),
		details: make(map[int64]*models.ThreadDetail),
	}
}

// SetClock replaces the timestamp source.
func (m *MemoryStore) SetClock(now func() time.Time) {
	m.mu.Lock()
	m.now = now
	m.mu.Unlock()
}

// SetReference loads the lookup tables, standing in for the external
// process that fills them in a real database.
func (m *MemoryStore) SetReference(tags []models.Tag, prefixes []models.Prefix) {
	m.mu.Lock()
	m.tags = append([]models.Tag(nil), tags...)
	m.prefixes = append([]models.Prefix(nil), prefixes...)
	m.mu.Unlock()
}

func (m *MemoryStore) UpsertGame(_ context.Context, g *models.Game) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	row := cloneGame(g)
	if prev, ok := m.games[g.ThreadID]; ok {
		row.CreatedAt = prev.CreatedAt
		row.UpdatedAt = after(prev.UpdatedAt, now)
	} else {
		row.CreatedAt = now
		row.UpdatedAt = now
		m.order = append(m.order, g.ThreadID)
	}
	m.games[g.ThreadID] = row
	return nil
}

func (m *MemoryStore) GameThreadIDs(context.Context) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int64(nil), m.order...), nil
}

func (m *MemoryStore) Game(_ context.Context, threadID int64) (*models.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.games[threadID]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneGame(g), nil
}

func (m *MemoryStore) Games(context.Context) ([]*models.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.Game, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, cloneGame(m.games[id]))
	}
	return out, nil
}

func (m *MemoryStore) UpsertThreadDetail(_ context.Context, d *models.ThreadDetail) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	row := *d
	if prev, ok := m.details[d.ThreadID]; ok {
		row.CreatedAt = prev.CreatedAt
		row.UpdatedAt = after(prev.UpdatedAt, now)
	} else {
		row.CreatedAt = now
		row.UpdatedAt = now
		m.dorder = append(m.dorder, d.ThreadID)
	}
	m.details[d.ThreadID] = &row
	return nil
}

func (m *MemoryStore) ThreadDetailIDs(context.Context) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int64(nil), m.dorder...), nil
}

func (m *MemoryStore) ThreadDetail(_ context.Context, threadID int64) (*models.ThreadDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.details[threadID]
	if !ok {
		return nil, ErrNotFound
	}
	row := *d
	return &row, nil
}

func (m *MemoryStore) Tags(context.Context) ([]models.Tag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Tag(nil), m.tags...), nil
}

func (m *MemoryStore) Prefixes(context.Context) ([]models.Prefix, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Prefix(nil), m.prefixes...), nil
}

func (m *MemoryStore) Close() error { return nil }

// after returns now, or prev plus one nanosecond when the clock has not
// moved past prev.
func after(prev, now time.Time) time.Time {
	if now.After(prev) {
		return now
	}
	return prev.Add(time.Nanosecond)
}

func cloneGame(g *models.Game) *models.Game {
	c := *g
	c.Prefixes = append([]int64(nil), g.Prefixes...)
	c.Tags = append([]int64(nil), g.Tags...)
	c.Screens = append([]string(nil), g.Screens...)
	return &c
}
