// Package reveal renders a growing piece of model output either instantly,
// while the model is still streaming, or as a short typewriter animation
// once streaming has finished.
//
// A Revealer is in one of two states:
//
//   - mirror: the source is streaming (or animation is off); the displayed
//     text always equals the source text.
//   - revealing: the source stopped streaming while the displayed text was
//     shorter; a ticker grows the displayed text until it catches up.
//
// The reveal step is max(1, target/tickBudget) runes, so a reveal takes a
// roughly constant number of ticks whatever the message length.
package reveal

import (
	"context"
	"sync"
	"time"
	"unicode/utf8"
)

const (
	// DefaultInterval is the time between two reveal ticks.
	DefaultInterval = 20 * time.Millisecond
	// DefaultTickBudget is the number of ticks a full reveal aims for.
	DefaultTickBudget = 45
)

// Scheduler runs fn every interval until the returned stop func is called.
// stop must be idempotent and must not block.
type Scheduler interface {
	Every(interval time.Duration, fn func()) (stop func())
}

// Option configures a Revealer.
type Option func(*Revealer)

// WithAnimation toggles the typewriter effect. Disabled means the displayed
// text always mirrors the source.
func WithAnimation(enabled bool) Option {
	return func(r *Revealer) { r.animate = enabled }
}

// WithInterval overrides DefaultInterval.
func WithInterval(d time.Duration) Option {
	return func(r *Revealer) {
		if d > 0 {
			r.interval = d
		}
	}
}

// WithTickBudget overrides DefaultTickBudget.
func WithTickBudget(n int) Option {
	return func(r *Revealer) {
		if n > 0 {
			r.budget = n
		}
	}
}

// WithScheduler replaces the ticker-backed scheduler.
func WithScheduler(s Scheduler) Option {
	return func(r *Revealer) { r.sched = s }
}

// OnRender registers a callback receiving the displayed text whenever it
// changes. It runs with the Revealer locked and must not call back into it.
func OnRender(fn func(string)) Option {
	return func(r *Revealer) { r.render = fn }
}

// Revealer is safe for concurrent use.
type Revealer struct {
	mu sync.Mutex

	source    string
	displayed string
	streaming bool
	animate   bool
	closed    bool

	interval time.Duration
	budget   int
	sched    Scheduler
	render   func(string)

	stop func()
	gen  uint64
	idle chan struct{}
}

// New creates a Revealer for text. A streaming source is shown as is; a
// finished one is revealed from the empty string.
func New(text string, streaming bool, opts ...Option) *Revealer {
	r := &Revealer{
		animate:  true,
		interval: DefaultInterval,
		budget:   DefaultTickBudget,
		sched:    TickerScheduler{},
		idle:     closedChan(),
	}
	for _, opt := range opts {
		opt(r)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.source = text
	r.streaming = streaming
	if streaming {
		r.displayed = text
	}
	if r.render != nil {
		r.render(r.displayed)
	}
	r.apply()
	return r
}

// Update feeds the latest source text and streaming flag. Repeating the
// current values is a no-op and does not restart a running reveal.
func (r *Revealer) Update(text string, streaming bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed || (text == r.source && streaming == r.streaming) {
		return
	}
	r.source = text
	r.streaming = streaming
	r.apply()
}

// SetAnimation enables or disables the typewriter effect.
func (r *Revealer) SetAnimation(enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed || enabled == r.animate {
		return
	}
	r.animate = enabled
	r.apply()
}

// Displayed returns the text currently shown.
func (r *Revealer) Displayed() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.displayed
}

// Revealing reports whether a reveal timer is active.
func (r *Revealer) Revealing() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stop != nil
}

// Wait blocks until no reveal is running or ctx is done.
func (r *Revealer) Wait(ctx context.Context) error {
	r.mu.Lock()
	idle := r.idle
	r.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops any running reveal. Later updates are ignored.
func (r *Revealer) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.cancel()
	r.closed = true
}

// apply re-evaluates the state after any input changed. Caller holds mu.
func (r *Revealer) apply() {
	r.cancel()

	if !r.animate || r.streaming {
		r.set(r.source)
		return
	}
	if r.source == r.displayed {
		return
	}

	target := []rune(r.source)
	start := utf8.RuneCountInString(r.displayed)
	if len(target) <= start {
		r.set(r.source)
		return
	}

	step := max(1, len(target)/r.budget)
	index := start

	r.gen++
	gen := r.gen
	r.idle = make(chan struct{})
	r.stop = r.sched.Every(r.interval, func() {
		r.mu.Lock()
		defer r.mu.Unlock()

		if gen != r.gen || r.stop == nil {
			return
		}
		index = min(len(target), index+step)
		r.set(string(target[:index]))
		if index >= len(target) {
			r.cancel()
		}
	})
}

// cancel releases the reveal timer, if any. Caller holds mu.
func (r *Revealer) cancel() {
	if r.stop == nil {
		return
	}
	stop := r.stop
	r.stop = nil
	r.gen++
	stop()
	close(r.idle)
}

func (r *Revealer) set(text string) {
	if text == r.displayed {
		return
	}
	r.displayed = text
	if r.render != nil {
		r.render(text)
	}
}

func closedChan() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

// TickerScheduler runs callbacks from a time.Ticker goroutine.
type TickerScheduler struct{}

func (TickerScheduler) Every(interval time.Duration, fn func()) func() {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	var once sync.Once

	go func() {
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				fn()
			}
		}
	}()

	return func() {
		once.Do(func() {
			ticker.Stop()
			close(done)
		})
	}
}
