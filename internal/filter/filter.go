// Package filter narrows the library snapshot to the tracks eligible
// for the next step. Constraints apply in a fixed order: recency
// exclusion, minimum duration, then the tempo tolerance window. When
// the window yields nothing, the tolerance widens in bounded steps
// before the step is declared exhausted.
package filter

import (
	"fmt"

	"github.com/franz/autodj/internal/library"
	"github.com/franz/autodj/internal/store"
	"github.com/franz/autodj/internal/util"
)

// Config holds the filter constraints
type Config struct {
	BPMTolerancePercent     float64
	EscalationStepPercent   float64
	MaxEscalations          int
	MinTrackDurationSeconds int
}

// Context is the per-step input. Current is nil on the seed step, which
// disables the tempo constraint entirely.
type Context struct {
	Current          *store.Track
	Recent           map[int64]bool
	RemainingSeconds float64
}

// Result is one successful filter pass
type Result struct {
	Candidates       []*store.Track
	Escalations      int
	TolerancePercent float64
}

// Filter narrows a snapshot according to its config
type Filter struct {
	cfg  *Config
	snap *library.Snapshot
}

// New creates a filter over an immutable snapshot
func New(cfg *Config, snap *library.Snapshot) *Filter {
	return &Filter{cfg: cfg, snap: snap}
}

// Filter returns the eligible candidates for one step, escalating the
// tempo tolerance up to MaxEscalations before giving up. An exhausted
// pool is an error, never an empty result.
func (f *Filter) Filter(ctx Context) (*Result, error) {
	for escalation := 0; escalation <= f.cfg.MaxEscalations; escalation++ {
		tolerance := f.cfg.BPMTolerancePercent + float64(escalation)*f.cfg.EscalationStepPercent

		query := library.Query{
			Exclude:     ctx.Recent,
			MinDuration: float64(f.cfg.MinTrackDurationSeconds),
		}
		if ctx.Current != nil {
			query.BPMMin = ctx.Current.TempoBPM * (1 - tolerance/100)
			query.BPMMax = ctx.Current.TempoBPM * (1 + tolerance/100)
		}

		candidates := f.snap.Select(query)
		if len(candidates) > 0 {
			return &Result{
				Candidates:       candidates,
				Escalations:      escalation,
				TolerancePercent: tolerance,
			}, nil
		}

		// The seed step has no tempo window to widen
		if ctx.Current == nil {
			break
		}
	}

	return nil, fmt.Errorf("%w: no candidates after %d escalations",
		util.ErrExhausted, f.cfg.MaxEscalations)
}
