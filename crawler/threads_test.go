package crawler

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"f95-crawler/models"
)

func seed(t *testing.T, store *countingStore, games []int64, details []int64) {
	t.Helper()
	ctx := context.Background()
	for _, id := range games {
		require.NoError(t, store.MemoryStore.UpsertGame(ctx, &models.Game{ThreadID: id}))
	}
	for _, id := range details {
		require.NoError(t, store.MemoryStore.UpsertThreadDetail(ctx, &models.ThreadDetail{ThreadID: id, Overview: "seeded"}))
	}
}

func newThreadCrawler(src *scripted, store *countingStore, clock *fakeClock) (*ThreadCrawler, *recordingReporter) {
	logger, _ := quietLogger()
	rep := &recordingReporter{}
	return &ThreadCrawler{
		Source:   src,
		Games:    store,
		Details:  store,
		Delay:    time.Second,
		Policy:   DetailPolicy(1800*time.Second, 5*time.Second),
		Clock:    clock,
		Reporter: rep,
		Logger:   logger,
	}, rep
}

func TestCrawlMissingSkipsTransientFailureOnce(t *testing.T) {
	store := newCountingStore()
	seed(t, store, []int64{100, 200, 300}, []int64{100})
	src := newScripted(map[int64][]reply{
		200: {okThread(200)},
		300: {fail(errTransient), okThread(300)},
	})
	clock := newFakeClock()
	c, rep := newThreadCrawler(src, store, clock)

	sum, err := c.CrawlMissing(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []int64{200, 300}, src.Calls())
	assert.Equal(t, 1, src.Count(300), "abandoned thread is attempted exactly once")
	assert.Equal(t, []int64{300}, sum.Skipped)
	assert.Equal(t, 1, sum.Completed)
	assert.Equal(t, 2, sum.Total)
	assert.Equal(t, []time.Duration{time.Second, time.Second, 5 * time.Second}, clock.Sleeps())

	ids, err := store.ThreadDetailIDs(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{100, 200}, ids)
	assert.Equal(t, 0, store.details[100], "existing detail is not refetched")

	assert.Equal(t, 2, rep.total)
	assert.Equal(t, []int{0, 1, 1, 2}, rep.Values())
	assert.True(t, rep.stopped)

	// the skipped thread is picked up by the next run
	src2 := newScripted(map[int64][]reply{300: {okThread(300)}})
	c2, _ := newThreadCrawler(src2, store, newFakeClock())
	sum, err = c2.CrawlMissing(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int64{300}, src2.Calls())
	assert.Empty(t, sum.Skipped)

	missing, err := MissingThreadIDs(context.Background(), store, store)
	require.NoError(t, err)
	assert.Empty(t, missing)
}

func TestCrawlThreadsRetriesRateLimitedThread(t *testing.T) {
	store := newCountingStore()
	src := newScripted(map[int64][]reply{
		7: {fail(errRateLimited), fail(errRateLimited), okThread(7)},
		8: {okThread(8)},
	})
	clock := newFakeClock()
	c, rep := newThreadCrawler(src, store, clock)

	sum := c.CrawlThreads(context.Background(), []int64{7, 8})

	assert.Equal(t, []int64{7, 7, 7, 8}, src.Calls())
	assert.Equal(t, []time.Duration{
		time.Second, 1800 * time.Second,
		time.Second, 1800 * time.Second,
		time.Second,
		time.Second,
	}, clock.Sleeps())
	assert.Empty(t, sum.Skipped)
	assert.Equal(t, 2, sum.Completed)
	assert.Equal(t, 2, sum.RateLimited)
	assert.Equal(t, 1, store.details[7])
	assert.Contains(t, rep.errors, "429 Rate Limit")

	d, err := store.ThreadDetail(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "overview 7", d.Overview)
}

func TestCrawlThreadsLogsParseFailure(t *testing.T) {
	store := newCountingStore()
	src := newScripted(map[int64][]reply{
		5: {fail(fmt.Errorf("thread 5: %w: no message body", models.ErrParse))},
		6: {okThread(6)},
	})
	logger, buf := quietLogger()
	c, _ := newThreadCrawler(src, store, newFakeClock())
	c.Logger = logger

	sum := c.CrawlThreads(context.Background(), []int64{5, 6})

	assert.Equal(t, []int64{5}, sum.Skipped)
	assert.Equal(t, 1, sum.Failures)
	assert.Contains(t, buf.String(), "Parse failure on thread 5")
	assert.Contains(t, buf.String(), "skipping")
	assert.Equal(t, 1, store.details[6])
}

func TestCrawlThreadSingle(t *testing.T) {
	store := newCountingStore()
	src := newScripted(map[int64][]reply{42: {okThread(42)}})
	clock := newFakeClock()
	c, _ := newThreadCrawler(src, store, clock)

	sum := c.CrawlThread(context.Background(), 42)

	assert.Equal(t, 1, sum.Completed)
	assert.Equal(t, []time.Duration{time.Second}, clock.Sleeps())
	_, err := store.ThreadDetail(context.Background(), 42)
	assert.NoError(t, err)
}

func TestCrawlMissingNothingToDo(t *testing.T) {
	store := newCountingStore()
	seed(t, store, []int64{1, 2}, []int64{1, 2})
	src := newScripted(nil)
	clock := newFakeClock()
	c, rep := newThreadCrawler(src, store, clock)

	sum, err := c.CrawlMissing(context.Background())
	require.NoError(t, err)

	assert.Empty(t, src.Calls())
	assert.Empty(t, clock.Sleeps())
	assert.Zero(t, sum.Total)
	assert.Empty(t, rep.Values())
}

func TestCrawlThreadsBadStatusSkips(t *testing.T) {
	store := newCountingStore()
	src := newScripted(map[int64][]reply{
		9: {fail(fmt.Errorf("%w: 503", models.ErrUnexpectedStatus))},
	})
	c, _ := newThreadCrawler(src, store, newFakeClock())

	sum := c.CrawlThreads(context.Background(), []int64{9})

	assert.Equal(t, []int64{9}, sum.Skipped)
	assert.Equal(t, 1, src.Count(9))
	assert.Zero(t, store.details[9])
}
