package store

import (
	"database/sql"
	"fmt"
	"time"
)

// RecordSetUsage writes one history row per plan step and stamps each
// track's last_played_at, all in one transaction so a crash cannot
// leave the recency state half-updated.
func (s *Store) RecordSetUsage(setID string, trackIDs []int64, usedAt time.Time) error {
	return s.Transaction(func(tx *sql.Tx) error {
		for pos, id := range trackIDs {
			if _, err := tx.Exec(`
				INSERT INTO playlist_history (track_id, set_id, position, used_at)
				VALUES (?, ?, ?, ?)`, id, setID, pos, usedAt); err != nil {
				return fmt.Errorf("failed to record usage for track %d: %w", id, err)
			}
			if _, err := tx.Exec(
				"UPDATE tracks SET last_played_at = ? WHERE id = ?", usedAt, id); err != nil {
				return fmt.Errorf("failed to stamp track %d: %w", id, err)
			}
		}
		return nil
	})
}

// RecentlyUsed returns the ids of tracks used within the given horizon,
// mapped to their most recent usage time. The latest-per-track reduction
// happens here rather than via MAX(used_at): the driver only converts
// declared DATETIME columns to time.Time, not expression columns.
func (s *Store) RecentlyUsed(horizon time.Duration, now time.Time) (map[int64]time.Time, error) {
	cutoff := now.Add(-horizon)

	rows, err := s.db.Query(`
		SELECT track_id, used_at FROM playlist_history
		WHERE used_at > ?`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent usage: %w", err)
	}
	defer rows.Close()

	recent := make(map[int64]time.Time)
	for rows.Next() {
		var id int64
		var usedAt time.Time
		if err := rows.Scan(&id, &usedAt); err != nil {
			return nil, fmt.Errorf("failed to scan usage row: %w", err)
		}
		if last, ok := recent[id]; !ok || usedAt.After(last) {
			recent[id] = usedAt
		}
	}

	return recent, rows.Err()
}
