// Package output writes the two renderer-facing artifacts: an M3U
// playlist of absolute paths and a JSON transition manifest. Both go
// through a temp-file-then-rename sequence so a crash never leaves a
// half-written plan visible.
package output

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/franz/autodj/internal/library"
	"github.com/franz/autodj/internal/planner"
	"github.com/franz/autodj/internal/util"
)

// Manifest is the renderer's structured input, serialized as indented
// JSON. generated_at lives in the plan record, not here, so equal seed
// and library state produce byte-identical manifests.
type Manifest struct {
	SetID                string             `json:"set_id"`
	Seed                 int64              `json:"seed"`
	Tier                 int                `json:"tier"`
	TrackCount           int                `json:"track_count"`
	TotalDurationSeconds float64            `json:"total_duration_seconds"`
	Steps                []planner.PlanStep `json:"steps"`
}

// Paths locates the written artifacts
type Paths struct {
	Playlist string
	Manifest string
}

// Writer writes plans into a fixed output directory
type Writer struct {
	dir   string
	retry *util.RetryConfig
}

// New creates a writer rooted at dir
func New(dir string) *Writer {
	return &Writer{dir: dir, retry: util.DefaultRetryConfig()}
}

// WritePlan writes the playlist and manifest for a finished plan. The
// snapshot supplies display metadata for the playlist entries.
func (w *Writer) WritePlan(plan *planner.Plan, snap *library.Snapshot) (*Paths, error) {
	if err := util.RetryableMkdirAll(w.dir, 0755, w.retry); err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrPlanWrite, err)
	}

	paths := &Paths{
		Playlist: filepath.Join(w.dir, fmt.Sprintf("playlist-%s.m3u", plan.SetID)),
		Manifest: filepath.Join(w.dir, fmt.Sprintf("transitions-%s.json", plan.SetID)),
	}

	if err := w.writeAtomic(paths.Playlist, playlistBytes(plan, snap)); err != nil {
		return nil, err
	}

	manifest, err := manifestBytes(plan)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrPlanWrite, err)
	}
	if err := w.writeAtomic(paths.Manifest, manifest); err != nil {
		return nil, err
	}

	return paths, nil
}

// playlistBytes renders the extended M3U: one playable absolute path
// per step, in position order
func playlistBytes(plan *planner.Plan, snap *library.Snapshot) []byte {
	var b strings.Builder
	b.WriteString("#EXTM3U\n")

	for _, step := range plan.Steps {
		seconds := 0
		display := filepath.Base(step.TrackPath)
		if t := snap.Get(step.TrackID); t != nil {
			seconds = int(t.DurationSeconds)
			if t.Title != "" {
				display = t.Title
				if t.Artist != "" {
					display = t.Artist + " - " + t.Title
				}
			}
		}

		fmt.Fprintf(&b, "#EXTINF:%d,%s\n%s\n", seconds, display, step.TrackPath)
	}

	return []byte(b.String())
}

func manifestBytes(plan *planner.Plan) ([]byte, error) {
	manifest := Manifest{
		SetID:                plan.SetID,
		Seed:                 plan.Seed,
		Tier:                 plan.Tier,
		TrackCount:           plan.TrackCount,
		TotalDurationSeconds: plan.TotalDurationSeconds,
		Steps:                plan.Steps,
	}

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// writeAtomic writes to a .part sibling and renames into place, with
// bounded retry on each filesystem step. Failure after retries is
// fatal, and the temp file never survives it.
func (w *Writer) writeAtomic(path string, data []byte) error {
	tmp := path + ".part"

	f, err := util.RetryableCreate(tmp, w.retry)
	if err != nil {
		return fmt.Errorf("%w: %v", util.ErrPlanWrite, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		util.RetryableRemove(tmp, w.retry)
		return fmt.Errorf("%w: %v", util.ErrPlanWrite, err)
	}
	if err := f.Close(); err != nil {
		util.RetryableRemove(tmp, w.retry)
		return fmt.Errorf("%w: %v", util.ErrPlanWrite, err)
	}

	if err := util.RetryableRename(tmp, path, w.retry); err != nil {
		util.RetryableRemove(tmp, w.retry)
		return fmt.Errorf("%w: %v", util.ErrPlanWrite, err)
	}

	return nil
}
