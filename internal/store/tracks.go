package store

import (
	"database/sql"
	"fmt"
	"time"
)

// Track is one analyzed library entry. Immutable for the duration of a
// generation run once loaded into a snapshot.
type Track struct {
	ID              int64
	FilePath        string
	Title           string
	Artist          string
	TempoBPM        float64
	Key             string
	Energy          float64
	DurationSeconds float64
	CueInFrame      int64
	CueOutFrame     int64
	LastPlayedAt    *time.Time // nil if never played
	Valid           bool
	AnalyzedAt      *time.Time
}

const trackColumns = `id, file_path, COALESCE(title, ''), COALESCE(artist, ''),
	COALESCE(tempo_bpm, 0), COALESCE(key, ''), COALESCE(energy, 0),
	COALESCE(duration_seconds, 0), COALESCE(cue_in_frame, -1),
	COALESCE(cue_out_frame, -1), last_played_at, valid, analyzed_at`

func scanTrack(row interface{ Scan(...any) error }) (*Track, error) {
	var t Track
	var lastPlayed, analyzed sql.NullTime
	var valid int

	err := row.Scan(&t.ID, &t.FilePath, &t.Title, &t.Artist,
		&t.TempoBPM, &t.Key, &t.Energy,
		&t.DurationSeconds, &t.CueInFrame,
		&t.CueOutFrame, &lastPlayed, &valid, &analyzed)
	if err != nil {
		return nil, err
	}

	if lastPlayed.Valid {
		lp := lastPlayed.Time
		t.LastPlayedAt = &lp
	}
	if analyzed.Valid {
		at := analyzed.Time
		t.AnalyzedAt = &at
	}
	t.Valid = valid != 0

	return &t, nil
}

// InsertTrack registers a new track row. Used by `tracks add`; the row
// stays valid=0 until the analyzer fills tempo/key/cues.
func (s *Store) InsertTrack(t *Track) (int64, error) {
	valid := 0
	if t.Valid {
		valid = 1
	}

	res, err := s.db.Exec(`
		INSERT INTO tracks (file_path, title, artist, tempo_bpm, key, energy,
			duration_seconds, cue_in_frame, cue_out_frame, valid, analyzed_at)
		VALUES (?, ?, ?, NULLIF(?, 0), NULLIF(?, ''), NULLIF(?, 0), NULLIF(?, 0),
			NULLIF(?, -1), NULLIF(?, -1), ?, ?)
		ON CONFLICT(file_path) DO UPDATE SET
			title = excluded.title,
			artist = excluded.artist,
			updated_at = CURRENT_TIMESTAMP`,
		t.FilePath, t.Title, t.Artist, t.TempoBPM, t.Key, t.Energy,
		t.DurationSeconds, t.CueInFrame, t.CueOutFrame, valid, t.AnalyzedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to insert track: %w", err)
	}

	return res.LastInsertId()
}

// GetValidTracks returns all rows the analyzer marked valid, ordered by
// id so snapshot iteration order is stable across runs.
func (s *Store) GetValidTracks() ([]*Track, error) {
	rows, err := s.db.Query(
		"SELECT " + trackColumns + " FROM tracks WHERE valid = 1 ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query tracks: %w", err)
	}
	defer rows.Close()

	var tracks []*Track
	for rows.Next() {
		t, err := scanTrack(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan track: %w", err)
		}
		tracks = append(tracks, t)
	}

	return tracks, rows.Err()
}

// GetTrack returns a single track by id, or nil if not found
func (s *Store) GetTrack(id int64) (*Track, error) {
	row := s.db.QueryRow(
		"SELECT "+trackColumns+" FROM tracks WHERE id = ?", id)

	t, err := scanTrack(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return t, err
}

// CountTracks returns total and valid row counts
func (s *Store) CountTracks() (total int, valid int, err error) {
	err = s.db.QueryRow(
		"SELECT COUNT(*), COALESCE(SUM(valid), 0) FROM tracks").Scan(&total, &valid)
	return total, valid, err
}

// TempoRange returns the min/max tempo over valid tracks
func (s *Store) TempoRange() (min float64, max float64, err error) {
	err = s.db.QueryRow(`
		SELECT COALESCE(MIN(tempo_bpm), 0), COALESCE(MAX(tempo_bpm), 0)
		FROM tracks WHERE valid = 1`).Scan(&min, &max)
	return min, max, err
}
