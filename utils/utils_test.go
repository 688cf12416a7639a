package utils

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestIDSetNoDuplicates(t *testing.T) {
	s := NewIDSet()

	if !s.Add(100) {
		t.Error("first Add should return true")
	}
	if s.Add(100) {
		t.Error("second Add of same id should return false")
	}
	if s.Size() != 1 {
		t.Errorf("size: got %d, want 1", s.Size())
	}
}

func TestIDSetDifferenceKeepsOrder(t *testing.T) {
	s := NewIDSet(100, 400)

	got := s.Difference([]int64{300, 100, 200, 300, 400, 50})
	want := []int64{300, 200, 50}

	if len(got) != len(want) {
		t.Fatalf("Difference: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Difference[%d]: got %d, want %d", i, got[i], want[i])
		}
	}
}

func TestRetryStopsOnSuccess(t *testing.T) {
	var slept []time.Duration
	r := &RetryConfig{
		MaxAttempts: 5,
		BaseDelay:   time.Second,
		Logger:      NewLoggerTo(&bytes.Buffer{}),
		Sleep:       func(d time.Duration) { slept = append(slept, d) },
	}

	calls := 0
	err := r.Do("ping", func() error {
		calls++
		if calls < 3 {
			return errors.New("not yet")
		}
		return nil
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls: got %d, want 3", calls)
	}
	if len(slept) != 2 || slept[0] != time.Second || slept[1] != 2*time.Second {
		t.Errorf("sleeps: got %v, want [1s 2s]", slept)
	}
}

func TestRetryGivesUp(t *testing.T) {
	boom := errors.New("boom")
	r := &RetryConfig{MaxAttempts: 2, Sleep: func(time.Duration) {}}

	err := r.Do("ping", func() error { return boom })
	if !errors.Is(err, boom) {
		t.Errorf("expected wrapped boom, got %v", err)
	}
}

func TestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	l := NewLoggerTo(&buf)
	l.SetLevel(ParseLevel("warn"))

	l.Info("hidden %d", 1)
	l.Warn("shown %d", 2)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info line should be filtered: %q", out)
	}
	if !strings.Contains(out, "shown 2") {
		t.Errorf("warn line missing: %q", out)
	}
}

func TestProgressBarRender(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgressBarTo(&buf, "Pages")

	p.Start(4, 1)
	p.Update(2, "429 Rate Limit")

	value, total, lastErr := p.Snapshot()
	if value != 2 || total != 4 || lastErr != "429 Rate Limit" {
		t.Errorf("snapshot: got (%d, %d, %q)", value, total, lastErr)
	}
	if !strings.Contains(buf.String(), "50% | 2/4 Pages | Error: 429 Rate Limit") {
		t.Errorf("unexpected render: %q", buf.String())
	}

	p.Update(3, "")
	if _, _, lastErr := p.Snapshot(); lastErr != "None" {
		t.Errorf("empty error should render as None, got %q", lastErr)
	}
	p.Stop()
}
