// Package render reveals clustered markers in timed batches so the map never
// has to draw hundreds of annotations in one frame. The batching logic is a
// pure reducer over an explicit state machine; the Runner owns the actual
// timer.
package render

import "time"

// Phase is the progressive renderer's state machine phase.
type Phase int

// Renderer phases.
const (
	// PhaseIdle means there is nothing to render.
	PhaseIdle Phase = iota
	// PhaseRendering means markers are being revealed batch by batch.
	PhaseRendering
	// PhaseComplete means every marker is visible; no timer runs until the
	// cluster list changes again.
	PhaseComplete
)

// String implements fmt.Stringer for log output.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseRendering:
		return "rendering"
	case PhaseComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// Batching defaults: the first paint shows 20 markers, then 15 more every
// 50 ms, reaching a few hundred markers within roughly a second.
const (
	DefaultInitialBatch = 20
	DefaultIncrement    = 15
	DefaultTickInterval = 50 * time.Millisecond
)

// Config tunes the batching parameters. Zero values fall back to defaults.
type Config struct {
	InitialBatch int
	Increment    int
	TickInterval time.Duration
}

// withDefaults fills zero fields with the package defaults.
func (c Config) withDefaults() Config {
	if c.InitialBatch <= 0 {
		c.InitialBatch = DefaultInitialBatch
	}
	if c.Increment <= 0 {
		c.Increment = DefaultIncrement
	}
	if c.TickInterval <= 0 {
		c.TickInterval = DefaultTickInterval
	}
	return c
}

// State is the renderer's visible-count cursor over the flattened cluster
// list. Visible advances monotonically until it reaches Total, then the
// machine parks in PhaseComplete until the list identity changes.
type State struct {
	Phase   Phase
	Visible int
	Total   int
}

// Rendering reports whether a reveal cycle is in progress.
func (s State) Rendering() bool { return s.Phase == PhaseRendering }

// Observe folds a new cluster list length into the state. An unchanged total
// is a no-op; a changed total restarts the reveal from the initial batch; a
// zero total resets to idle.
func Observe(s State, total int, cfg Config) State {
	cfg = cfg.withDefaults()

	if total == s.Total && s.Phase != PhaseIdle {
		return s
	}
	if total <= 0 {
		return State{Phase: PhaseIdle}
	}

	visible := cfg.InitialBatch
	if visible >= total {
		return State{Phase: PhaseComplete, Visible: total, Total: total}
	}
	return State{Phase: PhaseRendering, Visible: visible, Total: total}
}

// Tick advances the reveal by one batch increment, clamped to the total.
// Ticks outside PhaseRendering are no-ops.
func Tick(s State, cfg Config) State {
	if s.Phase != PhaseRendering {
		return s
	}
	cfg = cfg.withDefaults()

	visible := s.Visible + cfg.Increment
	if visible >= s.Total {
		return State{Phase: PhaseComplete, Visible: s.Total, Total: s.Total}
	}
	return State{Phase: PhaseRendering, Visible: visible, Total: s.Total}
}
