package crawler

import (
	"context"
	"fmt"
	"time"

	"f95-crawler/storage"
	"f95-crawler/utils"
)

// ListingCrawler ingests every page of the catalog into Store.
//
// Page 1 is fetched first and its total page count is used for the rest of
// the run without re-checking. Any failed page is retried forever; a page
// that never succeeds stalls the crawl.
type ListingCrawler struct {
	Source   ListingSource
	Store    storage.GameStore
	Delay    time.Duration // before every attempt of pages 2..N
	Policy   Policy
	Clock    Clock
	Reporter Reporter
	Logger   *utils.Logger
}

func (c *ListingCrawler) defaults() {
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

// Run crawls pages 1..N and returns once the last page is stored.
func (c *ListingCrawler) Run(ctx context.Context) Summary {
	c.defaults()
	sum := newSummary(c.Clock)

	c.Logger.Info("[listing] Starting crawl %s", sum.RunID)
	c.Logger.Info("[listing] Delay between requests: %v | delay after 429: %v | delay after error: %v",
		c.Delay, c.Policy.RateLimitDelay, c.Policy.ErrorDelay)

	var total int
	drive(c.Policy, c.Clock,
		func(int) error {
			sum.Attempts++
			n, err := c.ingest(ctx, 1, &sum)
			if err != nil {
				return err
			}
			total = n
			return nil
		},
		func(s State) {
			sum.record(s)
			logFailure(c.Logger, "listing", "initial page", s, c.wait(s), "retrying")
		},
	)
	sum.Total = total
	sum.Completed = 1

	c.Logger.Info("[listing] Total pages to fetch: %d", total)
	c.Reporter.Start(total, 1)

	for page := 2; page <= total; page++ {
		drive(c.Policy, c.Clock,
			func(int) error {
				c.Clock.Sleep(c.Delay)
				sum.Attempts++
				_, err := c.ingest(ctx, page, &sum)
				return err
			},
			func(s State) {
				sum.record(s)
				c.Reporter.Update(page-1, lastError(s))
				logFailure(c.Logger, "listing", fmt.Sprintf("page %d", page), s, c.wait(s), "retrying")
			},
		)
		sum.Completed++
		c.Reporter.Update(page, "")
	}

	c.Reporter.Stop()
	sum.Finished = c.Clock.Now()
	c.Logger.Info("[listing] Crawl %s complete: %d pages, %d upserts, %d rate limits, %d errors",
		sum.RunID, sum.Completed, sum.Upserts, sum.RateLimited, sum.Failures)
	return sum
}

// ingest fetches one page and upserts its records one by one. It returns
// the page's reported total page count.
func (c *ListingCrawler) ingest(ctx context.Context, page int, sum *Summary) (int, error) {
	p, err := c.Source.FetchPage(ctx, page)
	if err != nil {
		return 0, err
	}
	for _, raw := range p.Records {
		if err := c.Store.UpsertGame(ctx, raw.ToGame()); err != nil {
			return 0, fmt.Errorf("store page %d: %w", page, err)
		}
		sum.Upserts++
	}
	return p.TotalPages, nil
}

func (c *ListingCrawler) wait(s State) time.Duration {
	if s.Class == RateLimited {
		return c.Policy.RateLimitDelay
	}
	return c.Policy.ErrorDelay
}
