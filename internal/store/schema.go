package store

// Schema v1 - tracks populated by the analyzer, history and plan
// records appended by the generator
const schemaV1 = `
-- Schema version tracking
CREATE TABLE IF NOT EXISTS schema_version (
  version INTEGER PRIMARY KEY,
  applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Analyzed tracks. Rows stay valid=0 until the analyzer has filled
-- tempo, key and cue points; the generator only ever sees valid=1.
CREATE TABLE IF NOT EXISTS tracks (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  file_path TEXT UNIQUE NOT NULL,
  title TEXT,
  artist TEXT,
  tempo_bpm REAL,
  key TEXT,
  energy REAL,
  duration_seconds REAL,
  cue_in_frame INTEGER,
  cue_out_frame INTEGER,
  last_played_at DATETIME,
  valid INTEGER NOT NULL DEFAULT 0,
  analyzed_at DATETIME,
  updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_tracks_valid ON tracks(valid);
CREATE INDEX IF NOT EXISTS idx_tracks_tempo ON tracks(tempo_bpm);
CREATE INDEX IF NOT EXISTS idx_tracks_key ON tracks(key);
CREATE INDEX IF NOT EXISTS idx_tracks_last_played ON tracks(last_played_at);

-- Per-set usage history, the source of the recency horizon
CREATE TABLE IF NOT EXISTS playlist_history (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  track_id INTEGER NOT NULL REFERENCES tracks(id) ON DELETE CASCADE,
  set_id TEXT NOT NULL,
  position INTEGER NOT NULL,
  used_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_history_track_id ON playlist_history(track_id);
CREATE INDEX IF NOT EXISTS idx_history_used_at ON playlist_history(used_at);

-- One row per generated set plan; the reuse-previous degradation tier
-- and the show command read from here
CREATE TABLE IF NOT EXISTS set_plans (
  set_id TEXT PRIMARY KEY,
  status TEXT NOT NULL,
  tier INTEGER NOT NULL DEFAULT 0,
  seed INTEGER NOT NULL DEFAULT 0,
  track_count INTEGER NOT NULL DEFAULT 0,
  total_duration_seconds REAL NOT NULL DEFAULT 0,
  playlist_path TEXT,
  manifest_path TEXT,
  created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_set_plans_created ON set_plans(created_at);
`
