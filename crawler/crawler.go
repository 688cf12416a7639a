// Package crawler holds the crawl control loops: the paginated listing
// crawl, the per-thread detail crawl and the reconciliation that feeds it.
//
// Both loops are strictly sequential and never stop on a remote failure.
// Retry decisions come from Policy; all waiting goes through Clock.
package crawler

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"f95-crawler/models"
	"f95-crawler/utils"
)

// ListingSource yields one decoded page of the catalog.
type ListingSource interface {
	FetchPage(ctx context.Context, page int) (*models.ListingPage, error)
}

// ThreadSource yields the parsed detail of one thread.
type ThreadSource interface {
	FetchThread(ctx context.Context, threadID int64) (*models.ThreadDetail, error)
}

// Summary describes a finished crawl run.
type Summary struct {
	RunID       string
	Total       int     // pages, or worklist length
	Completed   int     // pages or threads stored
	Skipped     []int64 // abandoned thread ids
	Upserts     int     // rows written, retries included
	Attempts    int
	RateLimited int
	Failures    int // non-rate-limit failures
	Started     time.Time
	Finished    time.Time
}

func newSummary(clock Clock) Summary {
	return Summary{RunID: uuid.NewString(), Started: clock.Now()}
}

func (s *Summary) record(st State) {
	if st.Class == RateLimited {
		s.RateLimited++
	} else {
		s.Failures++
	}
}

// drive runs attempt until the policy reports Done or Skipped, sleeping
// through every Waiting state. onWait sees each failure before its wait.
func drive(p Policy, clock Clock, attempt func(n int) error, onWait func(State)) State {
	s := Start()
	for {
		err := attempt(s.Attempt)
		now := clock.Now()
		s = p.AfterAttempt(s, err, now)
		if s.Phase == Done {
			return s
		}

		onWait(s)
		clock.Sleep(s.Until.Sub(now))

		s = p.AfterWait(s)
		if s.Phase == Skipped {
			return s
		}
	}
}

func logFailure(logger *utils.Logger, component, unit string, s State, wait time.Duration, next string) {
	switch {
	case s.Class == RateLimited:
		logger.Warn("[%s] Rate limit hit on %s (attempt %d), waiting %v", component, unit, s.Attempt, wait)
	case errors.Is(s.Err, models.ErrParse):
		logger.Warn("[%s] Parse failure on %s: %v, %s in %v", component, unit, s.Err, next, wait)
	default:
		logger.Warn("[%s] %s failed (attempt %d): %v, %s in %v", component, unit, s.Attempt, s.Err, next, wait)
	}
}
