// Package warmup runs a one-shot background warm-up (typically opening the
// database pool) the first time it is triggered.
package warmup

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/dmitrijs2005/gophchat/internal/logging"
)

// Func performs the warm-up work. Its error is logged and otherwise ignored.
type Func func(ctx context.Context) error

// Guard tracks whether warm-up has completed.
//
// Trigger never blocks. Until the first warm-up settles, every Trigger call
// starts its own attempt; the redundant attempts are harmless.
type Guard struct {
	warm        Func
	log         logging.Logger
	initialized atomic.Bool

	mu        sync.Mutex
	onSettled []func()

	// base context for detached work, never canceled by callers.
	base context.Context
}

func New(warm Func, log logging.Logger) *Guard {
	return &Guard{
		warm: warm,
		log:  log.With("module", "warmup"),
		base: context.Background(),
	}
}

// OnSettled registers fn to run once after the first warm-up attempt
// returns. If warm-up already settled, fn runs immediately.
func (g *Guard) OnSettled(fn func()) {
	g.mu.Lock()
	if g.initialized.Load() {
		g.mu.Unlock()
		fn()
		return
	}
	g.onSettled = append(g.onSettled, fn)
	g.mu.Unlock()
}

// Initialized reports whether a warm-up attempt has completed.
func (g *Guard) Initialized() bool {
	return g.initialized.Load()
}

// Trigger starts a detached warm-up unless one already completed.
func (g *Guard) Trigger() {
	if g.initialized.Load() {
		return
	}
	go g.run()
}

func (g *Guard) run() {
	defer g.settle()
	defer func() {
		if p := recover(); p != nil {
			g.log.Error(g.base, "warm-up panicked", "panic", p)
		}
	}()

	if err := g.warm(g.base); err != nil {
		g.log.Error(g.base, "warm-up failed", "error", err)
		return
	}
	g.log.Info(g.base, "warm-up finished")
}

func (g *Guard) settle() {
	g.mu.Lock()
	if g.initialized.Swap(true) {
		g.mu.Unlock()
		return
	}
	hooks := g.onSettled
	g.onSettled = nil
	g.mu.Unlock()

	for _, fn := range hooks {
		fn()
	}
}
