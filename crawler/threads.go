package crawler

import (
	"context"
	"fmt"
	"time"

	"f95-crawler/storage"
	"f95-crawler/utils"
)

// ThreadCrawler fetches thread details into Details. A rate-limited thread
// is waited on and retried; any other failure abandons it after one
// ErrorDelay and the worklist moves on.
type ThreadCrawler struct {
	Source   ThreadSource
	Games    storage.GameStore
	Details  storage.DetailStore
	Delay    time.Duration // before every attempt
	Policy   Policy
	Clock    Clock
	Reporter Reporter
	Logger   *utils.Logger
}

func (c *ThreadCrawler) defaults() {
	if c.Clock == nil {
		c.Clock = SystemClock
	}
	if c.Reporter == nil {
		c.Reporter = NopReporter{}
	}
	if c.Logger == nil {
		c.Logger = utils.NewLogger()
	}
}

// CrawlMissing builds the worklist once and crawls it. Threads abandoned
// during this run stay missing until the next one. The error is only ever
// a store read failure while building the worklist.
func (c *ThreadCrawler) CrawlMissing(ctx context.Context) (Summary, error) {
	c.defaults()
	c.Logger.Info("[threads] Checking for missing threads...")

	ids, err := MissingThreadIDs(ctx, c.Games, c.Details)
	if err != nil {
		return Summary{}, err
	}
	c.Logger.Info("[threads] Found %d missing threads", len(ids))

	if len(ids) == 0 {
		sum := newSummary(c.Clock)
		sum.Finished = sum.Started
		return sum, nil
	}
	return c.CrawlThreads(ctx, ids), nil
}

// CrawlThread runs the detail crawl for a single thread.
func (c *ThreadCrawler) CrawlThread(ctx context.Context, threadID int64) Summary {
	return c.CrawlThreads(ctx, []int64{threadID})
}

// CrawlThreads processes ids in order, each exactly once.
func (c *ThreadCrawler) CrawlThreads(ctx context.Context, ids []int64) Summary {
	c.defaults()
	sum := newSummary(c.Clock)
	sum.Total = len(ids)

	c.Logger.Info("[threads] Starting run %s over %d threads", sum.RunID, len(ids))
	c.Reporter.Start(len(ids), 0)

	for i, id := range ids {
		final := drive(c.Policy, c.Clock,
			func(int) error {
				c.Clock.Sleep(c.Delay)
				sum.Attempts++
				return c.fetchAndStore(ctx, id, &sum)
			},
			func(s State) {
				sum.record(s)
				c.Reporter.Update(i, lastError(s))
				next := "retrying"
				if s.Class == Transient && c.Policy.OnTransient == SkipUnit {
					next = "skipping"
				}
				logFailure(c.Logger, "threads", fmt.Sprintf("thread %d", id), s, c.wait(s), next)
			},
		)

		if final.Phase == Skipped {
			sum.Skipped = append(sum.Skipped, id)
			c.Reporter.Update(i+1, lastError(final))
			continue
		}
		sum.Completed++
		c.Reporter.Update(i+1, "")
	}

	c.Reporter.Stop()
	sum.Finished = c.Clock.Now()
	c.Logger.Info("[threads] Run %s complete: %d saved, %d skipped, %d rate limits",
		sum.RunID, sum.Completed, len(sum.Skipped), sum.RateLimited)
	return sum
}

func (c *ThreadCrawler) fetchAndStore(ctx context.Context, id int64, sum *Summary) error {
	d, err := c.Source.FetchThread(ctx, id)
	if err != nil {
		return err
	}
	if err := c.Details.UpsertThreadDetail(ctx, d); err != nil {
		return fmt.Errorf("store thread %d: %w", id, err)
	}
	sum.Upserts++
	return nil
}

func (c *ThreadCrawler) wait(s State) time.Duration {
	if s.Class == RateLimited {
		return c.Policy.RateLimitDelay
	}
	return c.Policy.ErrorDelay
}
