// Package planner orchestrates the generation loop: it derives
// per-step targets from the global energy trajectory, drives filter,
// selector and scheduler one track at a time, and decides termination
// and degradation. Selection is greedy with no backtracking; a pick is
// never reconsidered.
package planner

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/google/uuid"

	"github.com/franz/autodj/internal/config"
	"github.com/franz/autodj/internal/filter"
	"github.com/franz/autodj/internal/library"
	"github.com/franz/autodj/internal/report"
	"github.com/franz/autodj/internal/schedule"
	"github.com/franz/autodj/internal/selector"
	"github.com/franz/autodj/internal/store"
	"github.com/franz/autodj/internal/util"
)

// Degradation tiers: full target, then reduced targets, then reuse of
// the last persisted valid plan.
var tierFactors = []float64{1.0, 0.75, 0.5}

// A tier counts as met once the plan covers this share of its target
const completionFraction = 0.9

// Below this share of the tier target a timed-out partial plan is
// discarded rather than shipped
const timeoutKeepFraction = 0.5

// Energy trajectory anchors: intro level, peak plateau, outro level
const (
	energyIntro = 0.35
	energyPeak  = 0.85
	energyOutro = 0.40
)

// PlanStep is one output unit, serialized verbatim into the manifest
type PlanStep struct {
	Position         int     `json:"track_index"`
	TrackID          int64   `json:"track_id"`
	EntryCueFrame    int64   `json:"entry_cue"`
	HoldDurationBars int     `json:"hold_duration_bars"`
	TargetBPM        float64 `json:"target_bpm"`
	ExitCueFrame     int64   `json:"exit_cue"`
	MixOutSeconds    int     `json:"mix_out_seconds"`
	Effect           string  `json:"effect,omitempty"`
	Escalations      int     `json:"escalations,omitempty"`
	NextTrackID      *int64  `json:"next_track_id"`

	TrackPath string `json:"-"`
}

// Plan is the complete transition plan for one set
type Plan struct {
	SetID                string
	Seed                 int64
	Tier                 int
	Steps                []PlanStep
	TrackCount           int
	TotalDurationSeconds float64
	TotalEscalations     int
}

// Outcome is the terminal state of a run
type Outcome struct {
	Status string // store.PlanStatus*
	Tier   int
	Plan   *Plan
	Reused *store.SetPlanRecord
	Err    error
}

// Planner drives one generation run
type Planner struct {
	cfg    *config.Config
	snap   *library.Snapshot
	st     *store.Store // nil disables the reuse-previous tier
	events *report.EventLogger
	seed   int64
	now    time.Time
}

// New creates a planner over a loaded snapshot. The store is only used
// for the reuse-previous degradation tier and may be nil.
func New(cfg *config.Config, snap *library.Snapshot, st *store.Store, events *report.EventLogger, seed int64, now time.Time) *Planner {
	return &Planner{cfg: cfg, snap: snap, st: st, events: events, seed: seed, now: now}
}

// SetID derives the set identifier from the seed and the snapshot
// fingerprint. Name-based rather than random so that equal seed and
// equal library state identify the same plan.
func (p *Planner) SetID() string {
	h := fnv.New64a()
	for _, t := range p.snap.All() {
		fmt.Fprintf(h, "%d:%d:%d;", t.ID, t.CueInFrame, t.CueOutFrame)
	}
	name := fmt.Sprintf("autodj-set:%d:%x", p.seed, h.Sum64())
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(name)).String()
}

// Run executes the tier ladder: full target, 75%, 50%, then reuse of
// the last persisted valid plan. Each generation tier restarts the
// whole greedy loop from the seed step.
func (p *Planner) Run(ctx context.Context, recent map[int64]time.Time) Outcome {
	setID := p.SetID()
	target := float64(p.cfg.Mix.TargetDurationMinutes) * 60

	for tier, factor := range tierFactors {
		tierTarget := target * factor

		plan, err := p.attempt(ctx, setID, tier, tierTarget, recent)
		if err == nil {
			status := store.PlanStatusCompleted
			if tier > 0 {
				status = store.PlanStatusDegraded
			}
			return Outcome{Status: status, Tier: tier, Plan: plan}
		}

		if errors.Is(err, util.ErrTimeout) {
			// No budget left for lower tiers. Ship the partial plan
			// if it covers enough of this tier, otherwise fall
			// through to reuse.
			if plan != nil && plan.TotalDurationSeconds >= tierTarget*timeoutKeepFraction {
				p.events.LogDegrade(setID, tier, "time budget exceeded, keeping partial plan")
				util.WarnLog("Time budget exceeded; keeping partial %d-track plan", plan.TrackCount)
				return Outcome{Status: store.PlanStatusDegraded, Tier: tier, Plan: plan}
			}
			p.events.LogDegrade(setID, tier, "time budget exceeded")
			break
		}

		if errors.Is(err, util.ErrExhausted) {
			p.events.LogDegrade(setID, tier+1, "candidate exhaustion")
			util.WarnLog("Tier %d exhausted at %.0fs of %.0fs target, degrading",
				tier, planDuration(plan), tierTarget)
			continue
		}

		// Seed failure or other non-degradable error
		return Outcome{Status: store.PlanStatusFailed, Err: err}
	}

	if p.st != nil {
		previous, err := p.st.LastValidSetPlan()
		if err == nil && previous != nil {
			p.events.LogReuse(setID, previous.SetID)
			util.WarnLog("All generation tiers exhausted; reusing plan %s", previous.SetID)
			return Outcome{Status: store.PlanStatusDegraded, Tier: len(tierFactors), Reused: previous}
		}
	}

	return Outcome{
		Status: store.PlanStatusFailed,
		Err:    fmt.Errorf("%w: all degradation tiers exhausted", util.ErrExhausted),
	}
}

func planDuration(plan *Plan) float64 {
	if plan == nil {
		return 0
	}
	return plan.TotalDurationSeconds
}

// attempt runs the greedy loop once against a single tier target. On
// ErrExhausted or ErrTimeout the partial plan built so far is returned
// alongside the error.
func (p *Planner) attempt(ctx context.Context, setID string, tier int, targetSeconds float64, recent map[int64]time.Time) (*Plan, error) {
	f := filter.New(&filter.Config{
		BPMTolerancePercent:     p.cfg.Constraints.BPMTolerancePercent,
		EscalationStepPercent:   p.cfg.Constraints.EscalationStepPercent,
		MaxEscalations:          p.cfg.Constraints.MaxEscalations,
		MinTrackDurationSeconds: p.cfg.Constraints.MinTrackDurationSeconds,
	}, p.snap)

	sel := selector.New(selector.Weights{
		Harmonic: p.cfg.Weights.Harmonic,
		Energy:   p.cfg.Weights.Energy,
		Recency:  p.cfg.Weights.Recency,
		Jitter:   p.cfg.Weights.Jitter,
	}, p.snap)

	// Horizon exclusions plus everything picked this run
	excluded := make(map[int64]bool, len(recent))
	for id := range recent {
		excluded[id] = true
	}

	plan := &Plan{SetID: setID, Seed: p.seed, Tier: tier}

	seed, escalations, err := p.pickSeed(f, sel, excluded)
	if err != nil {
		return nil, err
	}
	p.appendStep(plan, seed, schedule.SnapToBeat(seed.CueInFrame, seed.TempoBPM), escalations)
	excluded[seed.ID] = true
	p.events.LogSelect(setID, 0, seed.ID, 0, escalations)

	current := seed
	exhausted := false

	for plan.TotalDurationSeconds < targetSeconds && plan.TrackCount < p.cfg.Mix.MaxPlaylistTracks {
		// Cancellation is cooperative at step granularity
		if ctx.Err() != nil {
			return plan, fmt.Errorf("%w: budget hit at step %d", util.ErrTimeout, plan.TrackCount)
		}

		result, err := f.Filter(filter.Context{
			Current:          current,
			Recent:           excluded,
			RemainingSeconds: targetSeconds - plan.TotalDurationSeconds,
		})
		if err != nil {
			exhausted = true
			break
		}
		if result.Escalations > 0 {
			p.events.LogEscalate(setID, plan.TrackCount, result.TolerancePercent)
		}

		progress := plan.TotalDurationSeconds / targetSeconds
		choice := sel.Pick(result.Candidates, selector.Context{
			Previous:            current,
			TargetEnergy:        p.targetEnergy(progress),
			Step:                plan.TrackCount,
			Seed:                p.seed,
			Now:                 p.now,
			MaxRepeatDecayHours: p.cfg.Constraints.MaxRepeatDecayHours,
		})

		transition := schedule.Schedule(current, choice.Track, schedule.Intent{
			HoldBars:         p.cfg.Render.HoldDurationBars,
			MixOutSeconds:    p.cfg.Render.CrossfadeDurationSeconds,
			HarmonicDistance: choice.HarmonicDistance,
			Escalated:        result.Escalations > 0,
		})

		// Appending resolves the previous step's outgoing edge
		prev := &plan.Steps[len(plan.Steps)-1]
		prev.ExitCueFrame = transition.MixOutFrame
		prev.MixOutSeconds = p.cfg.Render.CrossfadeDurationSeconds
		prev.Effect = transition.Effect
		id := choice.Track.ID
		prev.NextTrackID = &id

		p.appendStep(plan, choice.Track, transition.MixInFrame, result.Escalations)
		excluded[choice.Track.ID] = true

		p.events.LogSelect(setID, plan.TrackCount-1, choice.Track.ID, choice.Score, result.Escalations)
		p.events.LogSchedule(setID, plan.TrackCount-1, choice.Track.ID, transition.Effect, transition.HoldFrames)

		current = choice.Track
	}

	if plan.TotalDurationSeconds < targetSeconds*completionFraction {
		reason := "track cap"
		if exhausted {
			reason = "candidate pool"
		}
		return plan, fmt.Errorf("%w: %s hit at %.0fs of %.0fs",
			util.ErrExhausted, reason, plan.TotalDurationSeconds, targetSeconds)
	}

	return plan, nil
}

// pickSeed chooses the opening track: explicit override when configured
// and present, otherwise the same scoring scheme with no previous track.
func (p *Planner) pickSeed(f *filter.Filter, sel *selector.Selector, excluded map[int64]bool) (*store.Track, int, error) {
	if id := p.cfg.Mix.SeedTrack; id != 0 {
		if t := p.snap.Get(id); t != nil && !excluded[id] {
			return t, 0, nil
		}
		util.WarnLog("Configured seed track %d not usable, falling back to scored pick", id)
	}

	result, err := f.Filter(filter.Context{Recent: excluded})
	if err != nil {
		return nil, 0, fmt.Errorf("%w: no viable seed track", util.ErrEmptyLibrary)
	}

	choice := sel.Pick(result.Candidates, selector.Context{
		TargetEnergy:        p.targetEnergy(0),
		Step:                0,
		Seed:                p.seed,
		Now:                 p.now,
		MaxRepeatDecayHours: p.cfg.Constraints.MaxRepeatDecayHours,
	})

	return choice.Track, result.Escalations, nil
}

func (p *Planner) appendStep(plan *Plan, t *store.Track, entryCue int64, escalations int) {
	plan.Steps = append(plan.Steps, PlanStep{
		Position:         len(plan.Steps),
		TrackID:          t.ID,
		TrackPath:        t.FilePath,
		EntryCueFrame:    entryCue,
		HoldDurationBars: p.cfg.Render.HoldDurationBars,
		TargetBPM:        t.TempoBPM,
		ExitCueFrame:     t.CueOutFrame, // resolved when the next pick lands
		Escalations:      escalations,
	})
	plan.TrackCount++
	plan.TotalDurationSeconds += t.DurationSeconds
	plan.TotalEscalations += escalations
}

// targetEnergy maps run progress in [0, 1] onto the trajectory: a
// monotonic rise into a plateau around the midpoint, then a fall into
// the outro. The plateau half-width scales with energy_window_size.
func (p *Planner) targetEnergy(progress float64) float64 {
	if progress < 0 {
		progress = 0
	}
	if progress > 1 {
		progress = 1
	}

	halfWidth := float64(p.cfg.Constraints.EnergyWindowSize) / 20
	riseEnd := 0.5 - halfWidth
	fallStart := 0.5 + halfWidth

	switch {
	case progress <= riseEnd:
		return energyIntro + (energyPeak-energyIntro)*progress/riseEnd
	case progress < fallStart:
		return energyPeak
	default:
		return energyPeak - (energyPeak-energyOutro)*(progress-fallStart)/(1-fallStart)
	}
}
