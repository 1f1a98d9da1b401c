// Package perf records coarse timings of the sign-in path (validation,
// user lookup, token signing) so slow logins can be diagnosed from logs.
package perf

import (
	"context"
	"slices"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/logging"
)

// Missing is returned for labels that were never marked.
const Missing time.Duration = -1

// Metric is one mark's offset from the timer start and from the mark
// recorded just before it.
type Metric struct {
	Label string
	Total time.Duration
	Delta time.Duration
}

// Timer is scoped to a single sign-in attempt and is not safe for
// concurrent use.
type Timer struct {
	now   func() time.Time
	start time.Time
	marks map[string]time.Time
	order []string
}

// NewTimer starts a timer at the current instant.
func NewTimer() *Timer {
	return NewTimerWithClock(time.Now)
}

// NewTimerWithClock starts a timer driven by now.
func NewTimerWithClock(now func() time.Time) *Timer {
	return &Timer{
		now:   now,
		start: now(),
		marks: make(map[string]time.Time),
	}
}

// Mark records the current instant under label. Marking the same label
// again moves its timestamp but keeps its original insertion position.
func (t *Timer) Mark(label string) {
	if _, ok := t.marks[label]; !ok {
		t.order = append(t.order, label)
	}
	t.marks[label] = t.now()
}

// Elapsed returns the offset of label from the timer start.
func (t *Timer) Elapsed(label string) time.Duration {
	at, ok := t.marks[label]
	if !ok {
		return Missing
	}
	return at.Sub(t.start)
}

// Since returns how long ago label was marked.
func (t *Timer) Since(label string) time.Duration {
	at, ok := t.marks[label]
	if !ok {
		return Missing
	}
	return t.now().Sub(at)
}

// Total returns the time since the timer started.
func (t *Timer) Total() time.Duration {
	return t.now().Sub(t.start)
}

// Metrics lists every mark in chronological order. Marks with equal
// timestamps keep their insertion order.
func (t *Timer) Metrics() []Metric {
	labels := slices.Clone(t.order)
	slices.SortStableFunc(labels, func(a, b string) int {
		return t.marks[a].Compare(t.marks[b])
	})

	out := make([]Metric, 0, len(labels))
	prev := t.start
	for _, label := range labels {
		at := t.marks[label]
		out = append(out, Metric{
			Label: label,
			Total: at.Sub(t.start),
			Delta: at.Sub(prev),
		})
		prev = at
	}
	return out
}

// Log writes the metrics as a single structured line.
func (t *Timer) Log(ctx context.Context, logger logging.Logger, prefix string) {
	if logger == nil {
		return
	}
	if prefix == "" {
		prefix = "Auth"
	}

	args := []any{"prefix", prefix, "total_ms", ms(t.Total())}
	for _, m := range t.Metrics() {
		args = append(args, m.Label+"_total_ms", ms(m.Total), m.Label+"_delta_ms", ms(m.Delta))
	}
	logger.Info(ctx, "auth timing", args...)
}

func ms(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}
