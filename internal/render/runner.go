package render

import (
	"log/slog"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/gatherpoint/mapfeed/internal/cluster"
)

// EmitFunc receives each newly revealed prefix of the cluster list. done is
// true on the final batch of a reveal cycle.
type EmitFunc func(visible []cluster.Unified, state State, done bool)

// Runner is the effect shell around the render reducer: it owns the repeating
// timer, feeds ticks to the reducer, and emits visible batches. All state
// transitions go through the pure Observe/Tick functions so the batching
// logic stays testable without real timers.
type Runner struct {
	cfg     Config
	clk     clock.Clock
	emit    EmitFunc
	logger  *slog.Logger
	metrics *Metrics

	mu       sync.Mutex
	state    State
	clusters []cluster.Unified
	ticker   *clock.Ticker
	quit     chan struct{}
	gen      int
	started  time.Time

	// emitMu serializes frame delivery across cycles.
	emitMu sync.Mutex
}

// NewRunner creates a renderer runner. clk may be a mock clock in tests; when
// nil the wall clock is used. emit must not be nil.
func NewRunner(cfg Config, clk clock.Clock, emit EmitFunc, logger *slog.Logger, metrics *Metrics) *Runner {
	if clk == nil {
		clk = clock.New()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		cfg:     cfg.withDefaults(),
		clk:     clk,
		emit:    emit,
		logger:  logger,
		metrics: metrics,
	}
}

// Observe hands the runner a new flattened cluster list. If the list identity
// changed, any in-flight reveal cycle is cancelled, the initial batch is
// emitted immediately, and the tick timer is re-armed. An unchanged list is a
// no-op.
func (r *Runner) Observe(clusters []cluster.Unified) {
	r.mu.Lock()

	sameList := len(clusters) == len(r.clusters) &&
		(len(clusters) == 0 || &clusters[0] == &r.clusters[0])

	var next State
	if sameList {
		next = Observe(r.state, len(clusters), r.cfg)
		if next == r.state && r.state.Phase != PhaseIdle {
			r.mu.Unlock()
			return
		}
	} else {
		// A new list restarts the reveal even at equal length.
		next = Observe(State{Phase: PhaseIdle}, len(clusters), r.cfg)
	}

	r.stopTickerLocked()
	r.state = next
	r.clusters = clusters
	r.gen++

	switch next.Phase {
	case PhaseIdle:
		r.mu.Unlock()
		return
	case PhaseComplete:
		gen := r.gen
		visible := clusters[:next.Visible]
		state := next
		r.mu.Unlock()
		r.observeCycle(0)
		r.emitFrame(gen, visible, state, true)
		return
	}

	r.started = r.clk.Now()
	ticker := r.clk.Ticker(r.cfg.TickInterval)
	r.ticker = ticker
	r.quit = make(chan struct{})
	quit := r.quit
	gen := r.gen
	visible := clusters[:next.Visible]
	state := next
	r.mu.Unlock()

	r.emitFrame(gen, visible, state, false)
	go r.tickLoop(ticker, quit, gen)
}

// tickLoop advances the reveal on each timer tick until the cycle completes
// or a newer Observe supersedes it. quit unblocks the loop when the cycle is
// cancelled; a stopped ticker never fires again and never closes its channel,
// so waiting on ticker.C alone would strand the goroutine.
func (r *Runner) tickLoop(ticker *clock.Ticker, quit chan struct{}, gen int) {
	for {
		select {
		case <-quit:
			return
		case <-ticker.C:
		}

		r.mu.Lock()
		if r.gen != gen {
			r.mu.Unlock()
			return
		}

		r.state = Tick(r.state, r.cfg)
		state := r.state
		visible := r.clusters[:state.Visible]
		done := state.Phase == PhaseComplete
		var elapsed time.Duration
		if done {
			r.stopTickerLocked()
			elapsed = r.clk.Now().Sub(r.started)
		}
		r.mu.Unlock()

		if !r.emitFrame(gen, visible, state, done) {
			return
		}
		if r.metrics != nil {
			r.metrics.IncBatches()
		}
		if done {
			r.observeCycle(elapsed)
			return
		}
	}
}

// emitFrame delivers one frame unless a newer Observe superseded the cycle
// after the frame was computed. Emits are serialized, so a frame from an old
// cycle cannot land after a newer cycle's first batch. Reports whether the
// frame was delivered.
func (r *Runner) emitFrame(gen int, visible []cluster.Unified, state State, done bool) bool {
	r.emitMu.Lock()
	defer r.emitMu.Unlock()

	r.mu.Lock()
	superseded := r.gen != gen
	r.mu.Unlock()
	if superseded {
		return false
	}

	r.emit(visible, state, done)
	return true
}

// Stop cancels any in-flight reveal cycle. Safe to call repeatedly; intended
// for teardown.
func (r *Runner) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopTickerLocked()
	r.gen++
	r.state = State{Phase: PhaseIdle}
	r.clusters = nil
}

// State returns a snapshot of the current reducer state.
func (r *Runner) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Runner) stopTickerLocked() {
	if r.ticker != nil {
		r.ticker.Stop()
		r.ticker = nil
	}
	if r.quit != nil {
		close(r.quit)
		r.quit = nil
	}
}

func (r *Runner) observeCycle(elapsed time.Duration) {
	if r.metrics != nil {
		r.metrics.ObserveCycle(elapsed)
	}
	r.logger.Debug("render cycle complete",
		slog.Duration("elapsed", elapsed))
}
