// Package selector picks a single best next track from a candidate
// pool. The pick is strictly local: one step, no lookahead, never
// revisited.
package selector

import (
	"encoding/binary"
	"hash/fnv"
	"math"
	"time"

	"github.com/franz/autodj/internal/camelot"
	"github.com/franz/autodj/internal/library"
	"github.com/franz/autodj/internal/store"
)

// Weights combines the scoring terms. All weights are non-negative;
// penalties carry their own sign.
type Weights struct {
	Harmonic float64
	Energy   float64
	Recency  float64
	Jitter   float64
}

// DefaultWeights are the shipped tuning
func DefaultWeights() Weights {
	return Weights{Harmonic: 1.0, Energy: 1.0, Recency: 0.5, Jitter: 0.05}
}

// Harmonic penalties per Camelot distance tier
const (
	penaltySameKey     = 0.0
	penaltyAdjacentKey = 0.3
	penaltyFarKey      = 1.0
)

// Context is the per-step scoring input
type Context struct {
	Previous            *store.Track // nil on the seed step
	TargetEnergy        float64
	Step                int
	Seed                int64
	Now                 time.Time
	MaxRepeatDecayHours int
}

// Choice is the selector's output for one step
type Choice struct {
	Track            *store.Track
	Score            float64
	HarmonicDistance int
}

// Selector scores candidates against a snapshot's key table
type Selector struct {
	weights Weights
	snap    *library.Snapshot
}

// New creates a selector with the given weights
func New(weights Weights, snap *library.Snapshot) *Selector {
	return &Selector{weights: weights, snap: snap}
}

// Pick returns the highest-scoring candidate. Candidates must be
// non-empty and sorted by id; exact ties break to the lowest id because
// a later candidate only wins on a strictly greater score.
func (s *Selector) Pick(candidates []*store.Track, ctx Context) Choice {
	best := Choice{Score: math.Inf(-1)}

	for _, cand := range candidates {
		distance := camelot.DistanceSame
		if ctx.Previous != nil {
			distance = camelot.Distance(s.snap.KeyOf(ctx.Previous.ID), s.snap.KeyOf(cand.ID))
		}

		score := s.weights.Harmonic*-harmonicPenalty(distance) +
			s.weights.Energy*-math.Abs(cand.Energy-ctx.TargetEnergy) +
			s.weights.Recency*recencyBonus(cand.LastPlayedAt, ctx.Now, ctx.MaxRepeatDecayHours) +
			s.weights.Jitter*jitter(ctx.Seed, ctx.Step, cand.ID)

		if score > best.Score {
			best = Choice{Track: cand, Score: score, HarmonicDistance: distance}
		}
	}

	return best
}

func harmonicPenalty(distance int) float64 {
	switch distance {
	case camelot.DistanceSame:
		return penaltySameKey
	case camelot.DistanceAdjacent:
		return penaltyAdjacentKey
	default:
		return penaltyFarKey
	}
}

// recencyBonus grows with hours since last play, capped at the decay
// horizon. Never-played tracks get the maximum.
func recencyBonus(lastPlayed *time.Time, now time.Time, capHours int) float64 {
	if capHours <= 0 {
		return 0
	}
	if lastPlayed == nil {
		return 1
	}

	hours := now.Sub(*lastPlayed).Hours()
	if hours < 0 {
		hours = 0
	}
	if hours > float64(capHours) {
		hours = float64(capHours)
	}

	return hours / float64(capHours)
}

// jitter is a deterministic perturbation in [0, 1) derived purely from
// the run seed, the step index, and the track id. No wall-clock input:
// equal seed and library state give byte-identical plans.
func jitter(seed int64, step int, trackID int64) float64 {
	var buf [24]byte
	binary.BigEndian.PutUint64(buf[0:], uint64(seed))
	binary.BigEndian.PutUint64(buf[8:], uint64(step))
	binary.BigEndian.PutUint64(buf[16:], uint64(trackID))

	h := fnv.New64a()
	h.Write(buf[:])

	// 53 bits of hash into the unit interval
	return float64(h.Sum64()>>11) / float64(1<<53)
}
