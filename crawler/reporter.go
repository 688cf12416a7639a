package crawler

// Reporter shows crawl progress. It never influences the crawl.
// utils.ProgressBar satisfies it.
type Reporter interface {
	Start(total, value int)
	Update(value int, lastError string)
	Stop()
}

// NopReporter discards progress.
type NopReporter struct{}

func (NopReporter) Start(int, int)     {}
func (NopReporter) Update(int, string) {}
func (NopReporter) Stop()              {}

// lastError renders a failure the way the progress line shows it.
func lastError(s State) string {
	if s.Class == RateLimited {
		return "429 Rate Limit"
	}
	if s.Err == nil {
		return "Error"
	}
	return s.Err.Error()
}
