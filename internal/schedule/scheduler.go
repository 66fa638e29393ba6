// Package schedule converts a chosen track pair and transition intent
// into exact sample-accurate timing. All arithmetic is integer-only at
// the library's fixed sample rate; no fractional samples exist anywhere
// in the pipeline.
package schedule

import (
	"math"

	"github.com/franz/autodj/internal/camelot"
	"github.com/franz/autodj/internal/store"
)

// The analyzer normalizes every library file to this rate
const (
	SampleRate  = 44100
	BeatsPerBar = 4
)

// Transition effects understood by the renderer
const (
	EffectCrossfade   = "smart_crossfade"
	EffectFilterSweep = "filter_sweep"
)

// Intent carries what the planner decided about this transition
type Intent struct {
	HoldBars         int
	MixOutSeconds    int
	HarmonicDistance int
	Escalated        bool
}

// Transition is the sample-accurate schedule for one step boundary
type Transition struct {
	MixInFrame  int64
	HoldFrames  int64
	MixOutFrame int64
	Effect      string
}

// bpmCenti converts a tempo to hundredths of a BPM. Fixed-point keeps
// the hold-duration math in integers without losing analyzer precision.
func bpmCenti(bpm float64) int64 {
	return int64(math.Round(bpm * 100))
}

// SamplesPerBeat returns the floored samples per beat at the given
// tempo. Display and snapping only; HoldFrames does not build on this,
// so its truncation never accumulates.
func SamplesPerBeat(bpm float64) int64 {
	return SampleRate * 60 * 100 / bpmCenti(bpm)
}

// SnapToBeat rounds a frame offset forward to the next beat boundary
// at the given tempo. Frames already on a boundary stay put.
func SnapToBeat(frame int64, bpm float64) int64 {
	spb := SamplesPerBeat(bpm)
	beats := (frame + spb - 1) / spb
	return beats * spb
}

// HoldFrames returns bars * beats * samples-per-beat with a single
// trailing division, so the only truncation happens once:
// 16 bars at 128 BPM is exactly 1323000 frames.
func HoldFrames(bars int, bpm float64) int64 {
	return int64(bars) * BeatsPerBar * SampleRate * 60 * 100 / bpmCenti(bpm)
}

// Schedule computes the transition from prev into next. The default
// effect is a smooth crossfade; a harmonically distant pair accepted
// under escalated tolerance gets a filter sweep so the renderer applies
// heavier masking.
func Schedule(prev, next *store.Track, intent Intent) Transition {
	mixOut := prev.CueOutFrame - int64(intent.MixOutSeconds)*SampleRate
	if mixOut < 0 {
		mixOut = 0
	}

	effect := EffectCrossfade
	if intent.HarmonicDistance > camelot.DistanceAdjacent && intent.Escalated {
		effect = EffectFilterSweep
	}

	return Transition{
		MixInFrame:  SnapToBeat(next.CueInFrame, next.TempoBPM),
		HoldFrames:  HoldFrames(intent.HoldBars, next.TempoBPM),
		MixOutFrame: mixOut,
		Effect:      effect,
	}
}
