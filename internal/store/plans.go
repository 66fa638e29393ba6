package store

import (
	"database/sql"
	"fmt"
	"time"
)

// Plan statuses as persisted in set_plans
const (
	PlanStatusCompleted = "completed"
	PlanStatusDegraded  = "degraded"
	PlanStatusFailed    = "failed"
)

// SetPlanRecord summarizes one generated set plan
type SetPlanRecord struct {
	SetID                string
	Status               string
	Tier                 int
	Seed                 int64
	TrackCount           int
	TotalDurationSeconds float64
	PlaylistPath         string
	ManifestPath         string
	CreatedAt            time.Time
}

// SaveSetPlan persists the summary row for a finished run
func (s *Store) SaveSetPlan(rec *SetPlanRecord) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO set_plans
			(set_id, status, tier, seed, track_count, total_duration_seconds,
			 playlist_path, manifest_path, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.SetID, rec.Status, rec.Tier, rec.Seed, rec.TrackCount,
		rec.TotalDurationSeconds, rec.PlaylistPath, rec.ManifestPath, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save set plan: %w", err)
	}
	return nil
}

// LastValidSetPlan returns the most recent completed or degraded plan,
// or nil if none exists. The reuse-previous degradation tier falls back
// to this record's outputs.
func (s *Store) LastValidSetPlan() (*SetPlanRecord, error) {
	row := s.db.QueryRow(`
		SELECT set_id, status, tier, seed, track_count, total_duration_seconds,
			COALESCE(playlist_path, ''), COALESCE(manifest_path, ''), created_at
		FROM set_plans
		WHERE status IN (?, ?)
		ORDER BY created_at DESC, set_id DESC
		LIMIT 1`, PlanStatusCompleted, PlanStatusDegraded)

	var rec SetPlanRecord
	err := row.Scan(&rec.SetID, &rec.Status, &rec.Tier, &rec.Seed,
		&rec.TrackCount, &rec.TotalDurationSeconds,
		&rec.PlaylistPath, &rec.ManifestPath, &rec.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load last set plan: %w", err)
	}

	return &rec, nil
}
