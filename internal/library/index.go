// Package library loads a consistent, immutable snapshot of the
// analyzed track metadata for one generation run. The snapshot is
// read-only once built, so concurrent queries need no locking.
package library

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/franz/autodj/internal/camelot"
	"github.com/franz/autodj/internal/store"
	"github.com/franz/autodj/internal/util"
)

// Tempo bounds the analyzer guarantees; anything outside is a bad row
const (
	MinTempoBPM = 50
	MaxTempoBPM = 200
)

// Snapshot is the in-memory library index for a single run
type Snapshot struct {
	tracks   []*store.Track // sorted by id
	keys     map[int64]camelot.Key
	byID     map[int64]*store.Track
	skipped  int
	loadedAt time.Time
}

// Load builds a snapshot from all valid rows in the store. Rows that
// claim valid but fail field validation are logged and excluded; a
// library with zero usable tracks is fatal.
func Load(ctx context.Context, st *store.Store) (*Snapshot, error) {
	start := time.Now()

	rows, err := st.GetValidTracks()
	if err != nil {
		return nil, fmt.Errorf("failed to load library: %w", err)
	}

	snap := &Snapshot{
		keys:     make(map[int64]camelot.Key),
		byID:     make(map[int64]*store.Track),
		loadedAt: start,
	}

	for _, t := range rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		key, err := validate(t)
		if err != nil {
			util.WarnLog("Excluding track %d (%s): %v", t.ID, t.FilePath, err)
			snap.skipped++
			continue
		}

		snap.tracks = append(snap.tracks, t)
		snap.keys[t.ID] = key
		snap.byID[t.ID] = t
	}

	sort.Slice(snap.tracks, func(i, j int) bool {
		return snap.tracks[i].ID < snap.tracks[j].ID
	})

	if len(snap.tracks) == 0 {
		return nil, util.ErrEmptyLibrary
	}

	util.InfoLog("Library snapshot: %d tracks (%d excluded) in %v",
		len(snap.tracks), snap.skipped, time.Since(start).Round(time.Millisecond))

	return snap, nil
}

// validate checks the fields the planner depends on
func validate(t *store.Track) (camelot.Key, error) {
	if t.TempoBPM < MinTempoBPM || t.TempoBPM > MaxTempoBPM {
		return camelot.Key{}, fmt.Errorf("%w: tempo %.1f outside [%d, %d]",
			util.ErrInvalidTrack, t.TempoBPM, MinTempoBPM, MaxTempoBPM)
	}

	key, err := camelot.Parse(t.Key)
	if err != nil {
		return camelot.Key{}, fmt.Errorf("%w: %v", util.ErrInvalidTrack, err)
	}

	if t.CueInFrame < 0 || t.CueOutFrame < 0 {
		return camelot.Key{}, fmt.Errorf("%w: missing cue points", util.ErrInvalidTrack)
	}
	if t.CueOutFrame <= t.CueInFrame {
		return camelot.Key{}, fmt.Errorf("%w: cue_out %d not after cue_in %d",
			util.ErrInvalidTrack, t.CueOutFrame, t.CueInFrame)
	}

	if t.DurationSeconds <= 0 {
		return camelot.Key{}, fmt.Errorf("%w: non-positive duration", util.ErrInvalidTrack)
	}
	if t.Energy < 0 || t.Energy > 1 {
		return camelot.Key{}, fmt.Errorf("%w: energy %.2f outside [0, 1]",
			util.ErrInvalidTrack, t.Energy)
	}

	return key, nil
}

// FromTracks builds a snapshot directly from track values, applying the
// same validation as Load. Used by tests and simulations.
func FromTracks(tracks []*store.Track) (*Snapshot, error) {
	snap := &Snapshot{
		keys:     make(map[int64]camelot.Key),
		byID:     make(map[int64]*store.Track),
		loadedAt: time.Now(),
	}

	for _, t := range tracks {
		key, err := validate(t)
		if err != nil {
			snap.skipped++
			continue
		}
		snap.tracks = append(snap.tracks, t)
		snap.keys[t.ID] = key
		snap.byID[t.ID] = t
	}

	sort.Slice(snap.tracks, func(i, j int) bool {
		return snap.tracks[i].ID < snap.tracks[j].ID
	})

	if len(snap.tracks) == 0 {
		return nil, util.ErrEmptyLibrary
	}

	return snap, nil
}

// Len returns the number of usable tracks
func (s *Snapshot) Len() int {
	return len(s.tracks)
}

// Skipped returns how many rows failed validation during load
func (s *Snapshot) Skipped() int {
	return s.skipped
}

// Get returns a track by id, or nil
func (s *Snapshot) Get(id int64) *store.Track {
	return s.byID[id]
}

// KeyOf returns the parsed Camelot key for a snapshot track
func (s *Snapshot) KeyOf(id int64) camelot.Key {
	return s.keys[id]
}

// All returns every track, sorted by id. Callers must not mutate.
func (s *Snapshot) All() []*store.Track {
	return s.tracks
}

// Query narrows the snapshot. Zero-valued bounds are ignored.
type Query struct {
	BPMMin      float64
	BPMMax      float64
	Keys        []camelot.Key // nil means any key
	EnergyMin   float64
	EnergyMax   float64 // 0 means no upper bound
	MinDuration float64
	Exclude     map[int64]bool
}

// Select returns tracks matching the query, in id order
func (s *Snapshot) Select(q Query) []*store.Track {
	keySet := make(map[camelot.Key]bool, len(q.Keys))
	for _, k := range q.Keys {
		keySet[k] = true
	}

	var out []*store.Track
	for _, t := range s.tracks {
		if q.Exclude[t.ID] {
			continue
		}
		if q.BPMMin > 0 && t.TempoBPM < q.BPMMin {
			continue
		}
		if q.BPMMax > 0 && t.TempoBPM > q.BPMMax {
			continue
		}
		if len(keySet) > 0 && !keySet[s.keys[t.ID]] {
			continue
		}
		if t.Energy < q.EnergyMin {
			continue
		}
		if q.EnergyMax > 0 && t.Energy > q.EnergyMax {
			continue
		}
		if t.DurationSeconds < q.MinDuration {
			continue
		}
		out = append(out, t)
	}

	return out
}
