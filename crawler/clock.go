package crawler

import "time"

// Clock supplies time and blocking sleeps to the crawl loops.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) Sleep(d time.Duration) {
	if d > 0 {
		time.Sleep(d)
	}
}

// SystemClock is the wall clock with real sleeps.
var SystemClock Clock = systemClock{}
