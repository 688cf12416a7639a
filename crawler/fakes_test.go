package crawler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"f95-crawler/models"
	"f95-crawler/storage"
	"f95-crawler/utils"
)

var (
	errRateLimited = fmt.Errorf("%w: test", models.ErrRateLimited)
	errTransient   = errors.New("connection reset by peer")
	errStop        = errors.New("test stop")
)

// fakeClock advances only when slept on.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Sleep(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sleeps = append(f.sleeps, d)
	f.now = f.now.Add(d)
}

func (f *fakeClock) Sleeps() []time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]time.Duration(nil), f.sleeps...)
}

type reply struct {
	page   *models.ListingPage
	detail *models.ThreadDetail
	err    error
}

func okPage(total int, ids ...int64) reply {
	p := &models.ListingPage{TotalPages: total}
	for _, id := range ids {
		p.Records = append(p.Records, models.RawGame{ThreadID: id, Title: fmt.Sprintf("Game %d", id), Tags: []int64{1}})
	}
	return reply{page: p}
}

func okThread(id int64) reply {
	return reply{detail: &models.ThreadDetail{ThreadID: id, Overview: fmt.Sprintf("overview %d", id), OriginalHTML: "<html/>"}}
}

func fail(err error) reply { return reply{err: err} }

// scripted answers each unit with its replies in order, repeating the last
// one forever. With stopAfter set it panics with errStop on that call.
type scripted struct {
	mu        sync.Mutex
	replies   map[int64][]reply
	counts    map[int64]int
	calls     []int64
	stopAfter int
}

func newScripted(replies map[int64][]reply) *scripted {
	return &scripted{replies: replies, counts: make(map[int64]int)}
}

func (s *scripted) next(unit int64) reply {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, unit)
	if s.stopAfter > 0 && len(s.calls) >= s.stopAfter {
		panic(errStop)
	}
	rs := s.replies[unit]
	if len(rs) == 0 {
		return fail(fmt.Errorf("no script for %d", unit))
	}
	i := s.counts[unit]
	s.counts[unit]++
	if i >= len(rs) {
		i = len(rs) - 1
	}
	return rs[i]
}

func (s *scripted) FetchPage(_ context.Context, page int) (*models.ListingPage, error) {
	r := s.next(int64(page))
	return r.page, r.err
}

func (s *scripted) FetchThread(_ context.Context, id int64) (*models.ThreadDetail, error) {
	r := s.next(id)
	return r.detail, r.err
}

func (s *scripted) Calls() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int64(nil), s.calls...)
}

func (s *scripted) Count(unit int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[unit]
}

// countingStore counts upserts per id and can fail chosen game upserts.
type countingStore struct {
	*storage.MemoryStore
	mu       sync.Mutex
	games    map[int64]int
	details  map[int64]int
	failGame map[int64]int // remaining failures per id
}

func newCountingStore() *countingStore {
	return &countingStore{
		MemoryStore: storage.NewMemoryStore(),
		games:       make(map[int64]int),
		details:     make(map[int64]int),
		failGame:    make(map[int64]int),
	}
}

func (c *countingStore) UpsertGame(ctx context.Context, g *models.Game) error {
	c.mu.Lock()
	if c.failGame[g.ThreadID] > 0 {
		c.failGame[g.ThreadID]--
		c.mu.Unlock()
		return errors.New("db: connection lost")
	}
	c.games[g.ThreadID]++
	c.mu.Unlock()
	return c.MemoryStore.UpsertGame(ctx, g)
}

func (c *countingStore) UpsertThreadDetail(ctx context.Context, d *models.ThreadDetail) error {
	c.mu.Lock()
	c.details[d.ThreadID]++
	c.mu.Unlock()
	return c.MemoryStore.UpsertThreadDetail(ctx, d)
}

// recordingReporter keeps every value passed to Update.
type recordingReporter struct {
	mu      sync.Mutex
	total   int
	values  []int
	errors  []string
	stopped bool
}

func (r *recordingReporter) Start(total, value int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.total = total
	r.values = append(r.values, value)
	r.errors = append(r.errors, "")
}

func (r *recordingReporter) Update(value int, lastError string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values = append(r.values, value)
	r.errors = append(r.errors, lastError)
}

func (r *recordingReporter) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopped = true
}

func (r *recordingReporter) Values() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.values...)
}

func quietLogger() (*utils.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return utils.NewLoggerTo(&syncWriter{buf: &buf}), &buf
}

type syncWriter struct {
	mu  sync.Mutex
	buf *bytes.Buffer
}

func (w *syncWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.Write(p)
}
