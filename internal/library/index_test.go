package library

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/franz/autodj/internal/camelot"
	"github.com/franz/autodj/internal/store"
	"github.com/franz/autodj/internal/util"
)

func track(id int64, bpm float64, key string, energy, duration float64) *store.Track {
	return &store.Track{
		ID:              id,
		FilePath:        filepath.Join("/music", key+".mp3"),
		TempoBPM:        bpm,
		Key:             key,
		Energy:          energy,
		DurationSeconds: duration,
		CueInFrame:      44100,
		CueOutFrame:     int64(duration) * 44100,
		Valid:           true,
	}
}

func TestFromTracksValidation(t *testing.T) {
	testCases := []struct {
		name  string
		track *store.Track
	}{
		{"tempo too low", track(1, 40, "8B", 0.5, 200)},
		{"tempo too high", track(1, 250, "8B", 0.5, 200)},
		{"bad key", track(1, 126, "not-a-key", 0.5, 200)},
		{"energy out of range", track(1, 126, "8B", 1.5, 200)},
		{"zero duration", track(1, 126, "8B", 0.5, 0)},
	}

	for _, tc := range testCases {
		_, err := FromTracks([]*store.Track{tc.track})
		if !errors.Is(err, util.ErrEmptyLibrary) {
			t.Errorf("%s: expected empty library after exclusion, got %v", tc.name, err)
		}
	}

	// Bad cue ordering
	bad := track(1, 126, "8B", 0.5, 200)
	bad.CueOutFrame = bad.CueInFrame
	if _, err := FromTracks([]*store.Track{bad}); !errors.Is(err, util.ErrEmptyLibrary) {
		t.Errorf("cue_out == cue_in: expected exclusion, got %v", err)
	}

	// A valid row survives alongside a broken one
	snap, err := FromTracks([]*store.Track{bad, track(2, 126, "8B", 0.5, 200)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.Len() != 1 || snap.Skipped() != 1 {
		t.Errorf("expected 1 usable / 1 skipped, got %d / %d", snap.Len(), snap.Skipped())
	}
}

func TestLoadSkipsInvalidRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lib.db")
	st, err := store.Open(path)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	defer st.Close()

	good := track(0, 126, "8B", 0.5, 200)
	good.FilePath = "/music/good.mp3"
	if _, err := st.InsertTrack(good); err != nil {
		t.Fatalf("failed to insert: %v", err)
	}

	// Marked valid by a buggy analyzer but missing a key
	bad := track(0, 126, "", 0.5, 200)
	bad.FilePath = "/music/bad.mp3"
	if _, err := st.InsertTrack(bad); err != nil {
		t.Fatalf("failed to insert: %v", err)
	}
	if _, err := st.DB().Exec("UPDATE tracks SET valid = 1"); err != nil {
		t.Fatalf("failed to force valid: %v", err)
	}

	snap, err := Load(context.Background(), st)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if snap.Len() != 1 {
		t.Errorf("expected 1 usable track, got %d", snap.Len())
	}
	if snap.Skipped() != 1 {
		t.Errorf("expected 1 skipped row, got %d", snap.Skipped())
	}
}

func TestSelect(t *testing.T) {
	snap, err := FromTracks([]*store.Track{
		track(1, 120, "8B", 0.3, 180),
		track(2, 126, "9B", 0.5, 240),
		track(3, 130, "8A", 0.7, 300),
		track(4, 126, "3B", 0.9, 90),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := snap.Select(Query{BPMMin: 122, BPMMax: 128})
	if len(got) != 2 {
		t.Fatalf("tempo window: expected 2 tracks, got %d", len(got))
	}
	if got[0].ID != 2 || got[1].ID != 4 {
		t.Errorf("tempo window: expected ids [2 4], got [%d %d]", got[0].ID, got[1].ID)
	}

	eightB, _ := camelot.Parse("8B")
	got = snap.Select(Query{Keys: camelot.Neighbors(eightB)})
	for _, tr := range got {
		if tr.ID == 4 {
			t.Errorf("key filter leaked harmonically distant id %d", tr.ID)
		}
	}
	if len(got) != 3 {
		t.Errorf("key filter: expected 3 compatible tracks, got %d", len(got))
	}

	got = snap.Select(Query{MinDuration: 120, Exclude: map[int64]bool{2: true}})
	for _, tr := range got {
		if tr.ID == 2 || tr.ID == 4 {
			t.Errorf("exclusion/duration filter leaked id %d", tr.ID)
		}
	}

	got = snap.Select(Query{EnergyMin: 0.6, EnergyMax: 0.8})
	if len(got) != 1 || got[0].ID != 3 {
		t.Errorf("energy band: expected only id 3, got %v", got)
	}
}
