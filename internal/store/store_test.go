package store

import (
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test-metadata.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	return s
}

func TestStoreOpenAndMigrate(t *testing.T) {
	s := openTestStore(t)

	version, err := s.getSchemaVersion()
	if err != nil {
		t.Fatalf("failed to get schema version: %v", err)
	}
	if version != currentSchemaVersion {
		t.Errorf("expected schema version %d, got %d", currentSchemaVersion, version)
	}

	tables := []string{"tracks", "playlist_history", "set_plans", "schema_version"}
	for _, table := range tables {
		var count int
		err := s.db.QueryRow(
			"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&count)
		if err != nil {
			t.Fatalf("failed to query table %s: %v", table, err)
		}
		if count != 1 {
			t.Errorf("expected table %s to exist", table)
		}
	}
}

func TestInsertAndGetTrack(t *testing.T) {
	s := openTestStore(t)

	analyzed := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	id, err := s.InsertTrack(&Track{
		FilePath:        "/music/one.mp3",
		Title:           "One",
		Artist:          "Somebody",
		TempoBPM:        126,
		Key:             "8B",
		Energy:          0.6,
		DurationSeconds: 240,
		CueInFrame:      44100,
		CueOutFrame:     10000000,
		Valid:           true,
		AnalyzedAt:      &analyzed,
	})
	if err != nil {
		t.Fatalf("failed to insert track: %v", err)
	}

	got, err := s.GetTrack(id)
	if err != nil {
		t.Fatalf("failed to get track: %v", err)
	}
	if got == nil {
		t.Fatal("expected track, got nil")
	}
	if got.TempoBPM != 126 || got.Key != "8B" || !got.Valid {
		t.Errorf("track roundtrip mismatch: %+v", got)
	}
	if got.LastPlayedAt != nil {
		t.Errorf("expected nil last_played_at for fresh track, got %v", got.LastPlayedAt)
	}

	// Cue-less registration stays invalid
	pendingID, err := s.InsertTrack(&Track{
		FilePath:   "/music/pending.mp3",
		Title:      "Pending",
		CueInFrame: -1, CueOutFrame: -1,
	})
	if err != nil {
		t.Fatalf("failed to insert pending track: %v", err)
	}
	pending, err := s.GetTrack(pendingID)
	if err != nil {
		t.Fatalf("failed to get pending track: %v", err)
	}
	if pending.Valid {
		t.Error("expected unanalyzed track to be invalid")
	}

	total, valid, err := s.CountTracks()
	if err != nil {
		t.Fatalf("failed to count tracks: %v", err)
	}
	if total != 2 || valid != 1 {
		t.Errorf("expected 2 total / 1 valid, got %d / %d", total, valid)
	}
}

func TestRecordSetUsage(t *testing.T) {
	s := openTestStore(t)

	var ids []int64
	for _, path := range []string{"/music/a.mp3", "/music/b.mp3"} {
		id, err := s.InsertTrack(&Track{
			FilePath: path, TempoBPM: 124, Key: "5A", Energy: 0.5,
			DurationSeconds: 200, CueInFrame: 0, CueOutFrame: 8000000, Valid: true,
		})
		if err != nil {
			t.Fatalf("failed to insert track: %v", err)
		}
		ids = append(ids, id)
	}

	now := time.Date(2026, 8, 20, 22, 0, 0, 0, time.UTC)
	if err := s.RecordSetUsage("set-1", ids, now); err != nil {
		t.Fatalf("failed to record usage: %v", err)
	}

	recent, err := s.RecentlyUsed(168*time.Hour, now.Add(time.Hour))
	if err != nil {
		t.Fatalf("failed to query recent usage: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("expected 2 recent tracks, got %d", len(recent))
	}

	// Outside the horizon nothing is recent
	recent, err = s.RecentlyUsed(time.Hour, now.Add(48*time.Hour))
	if err != nil {
		t.Fatalf("failed to query recent usage: %v", err)
	}
	if len(recent) != 0 {
		t.Errorf("expected no recent tracks outside horizon, got %d", len(recent))
	}

	track, err := s.GetTrack(ids[0])
	if err != nil {
		t.Fatalf("failed to get track: %v", err)
	}
	if track.LastPlayedAt == nil {
		t.Error("expected last_played_at to be stamped after usage")
	}
}

func TestRecentlyUsedReturnsLatestUsage(t *testing.T) {
	s := openTestStore(t)

	id, err := s.InsertTrack(&Track{
		FilePath: "/music/repeat.mp3", TempoBPM: 126, Key: "8B", Energy: 0.6,
		DurationSeconds: 240, CueInFrame: 0, CueOutFrame: 10000000, Valid: true,
	})
	if err != nil {
		t.Fatalf("failed to insert track: %v", err)
	}

	first := time.Date(2026, 8, 18, 22, 0, 0, 0, time.UTC)
	second := time.Date(2026, 8, 20, 22, 0, 0, 0, time.UTC)
	if err := s.RecordSetUsage("set-1", []int64{id}, first); err != nil {
		t.Fatalf("failed to record first usage: %v", err)
	}
	if err := s.RecordSetUsage("set-2", []int64{id}, second); err != nil {
		t.Fatalf("failed to record second usage: %v", err)
	}

	recent, err := s.RecentlyUsed(168*time.Hour, second.Add(time.Hour))
	if err != nil {
		t.Fatalf("failed to query recent usage: %v", err)
	}
	usedAt, ok := recent[id]
	if !ok {
		t.Fatalf("expected track %d in recent set, got %v", id, recent)
	}
	if !usedAt.Equal(second) {
		t.Errorf("expected latest usage %v, got %v", second, usedAt)
	}
}

func TestSetPlanRecords(t *testing.T) {
	s := openTestStore(t)

	if rec, err := s.LastValidSetPlan(); err != nil || rec != nil {
		t.Fatalf("expected no plan on fresh store, got %v / %v", rec, err)
	}

	first := &SetPlanRecord{
		SetID: "set-1", Status: PlanStatusCompleted, Seed: 42,
		TrackCount: 12, TotalDurationSeconds: 3600,
		PlaylistPath: "/out/playlist-set-1.m3u",
		ManifestPath: "/out/transitions-set-1.json",
		CreatedAt:    time.Date(2026, 8, 19, 21, 0, 0, 0, time.UTC),
	}
	if err := s.SaveSetPlan(first); err != nil {
		t.Fatalf("failed to save plan: %v", err)
	}

	second := &SetPlanRecord{
		SetID: "set-2", Status: PlanStatusDegraded, Tier: 1, Seed: 43,
		TrackCount: 9, TotalDurationSeconds: 2700,
		PlaylistPath: "/out/playlist-set-2.m3u",
		ManifestPath: "/out/transitions-set-2.json",
		CreatedAt:    time.Date(2026, 8, 20, 21, 0, 0, 0, time.UTC),
	}
	if err := s.SaveSetPlan(second); err != nil {
		t.Fatalf("failed to save plan: %v", err)
	}

	// Failed runs never become reuse candidates
	failed := &SetPlanRecord{
		SetID: "set-3", Status: PlanStatusFailed, Seed: 44,
		CreatedAt: time.Date(2026, 8, 21, 21, 0, 0, 0, time.UTC),
	}
	if err := s.SaveSetPlan(failed); err != nil {
		t.Fatalf("failed to save plan: %v", err)
	}

	last, err := s.LastValidSetPlan()
	if err != nil {
		t.Fatalf("failed to load last plan: %v", err)
	}
	if last == nil || last.SetID != "set-2" {
		t.Errorf("expected set-2 as last valid plan, got %+v", last)
	}
	if last.Tier != 1 {
		t.Errorf("expected tier 1 on reloaded plan, got %d", last.Tier)
	}
}
