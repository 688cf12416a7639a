package crawler

import (
	"errors"
	"time"

	"f95-crawler/models"
)

// Class is the backoff category of a failed fetch.
type Class int

const (
	// Transient covers network errors, bad statuses, error envelopes,
	// parse failures and store errors.
	Transient Class = iota
	// RateLimited means the remote rejected the request for frequency.
	RateLimited
)

func (c Class) String() string {
	if c == RateLimited {
		return "rate-limited"
	}
	return "transient"
}

// Classify maps an error onto a Class. It only looks for
// models.ErrRateLimited, so any transport can feed it.
func Classify(err error) Class {
	if errors.Is(err, models.ErrRateLimited) {
		return RateLimited
	}
	return Transient
}

// Phase is where a unit of work (a page or a thread) stands.
type Phase int

const (
	Fetching Phase = iota
	Waiting
	Done
	Skipped
)

func (p Phase) String() string {
	switch p {
	case Fetching:
		return "fetching"
	case Waiting:
		return "waiting"
	case Done:
		return "done"
	default:
		return "skipped"
	}
}

// State is the retry state of one unit of work.
type State struct {
	Phase   Phase
	Attempt int       // 1-based number of the attempt in flight or just finished
	Until   time.Time // end of the wait while Waiting
	Class   Class     // class of the last failure
	Err     error     // last failure
}

// Start is the state before the first attempt.
func Start() State {
	return State{Phase: Fetching, Attempt: 1}
}

// OnTransient selects what happens after the wait that follows a
// Transient failure.
type OnTransient int

const (
	// RetryUnit fetches the same unit again, with no attempt limit.
	RetryUnit OnTransient = iota
	// SkipUnit abandons the unit.
	SkipUnit
)

// Policy decides waits and retry-or-skip. RateLimited failures always wait
// RateLimitDelay and retry the same unit, whatever OnTransient says.
type Policy struct {
	RateLimitDelay time.Duration
	ErrorDelay     time.Duration
	OnTransient    OnTransient
}

// ListingPolicy never gives up on a page.
func ListingPolicy(rateLimitDelay, errorDelay time.Duration) Policy {
	return Policy{RateLimitDelay: rateLimitDelay, ErrorDelay: errorDelay, OnTransient: RetryUnit}
}

// DetailPolicy abandons a thread after its first non-rate-limit failure.
func DetailPolicy(rateLimitDelay, errorDelay time.Duration) Policy {
	return Policy{RateLimitDelay: rateLimitDelay, ErrorDelay: errorDelay, OnTransient: SkipUnit}
}

// AfterAttempt moves a Fetching state to Done on success or to Waiting on
// failure. Other phases are returned unchanged.
func (p Policy) AfterAttempt(s State, err error, now time.Time) State {
	if s.Phase != Fetching {
		return s
	}
	if err == nil {
		return State{Phase: Done, Attempt: s.Attempt}
	}

	class := Classify(err)
	delay := p.ErrorDelay
	if class == RateLimited {
		delay = p.RateLimitDelay
	}
	return State{Phase: Waiting, Attempt: s.Attempt, Until: now.Add(delay), Class: class, Err: err}
}

// AfterWait moves a Waiting state to the next attempt or to Skipped.
// Other phases are returned unchanged.
func (p Policy) AfterWait(s State) State {
	if s.Phase != Waiting {
		return s
	}
	if s.Class == Transient && p.OnTransient == SkipUnit {
		return State{Phase: Skipped, Attempt: s.Attempt, Class: s.Class, Err: s.Err}
	}
	return State{Phase: Fetching, Attempt: s.Attempt + 1}
}
