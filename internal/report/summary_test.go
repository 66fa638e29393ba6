package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestWriteMarkdownReport(t *testing.T) {
	report := &SummaryReport{
		GeneratedAt:          time.Date(2026, 8, 22, 21, 30, 0, 0, time.UTC),
		Duration:             420 * time.Millisecond,
		SetID:                "11111111-2222-3333-4444-555555555555",
		Status:               "completed",
		Seed:                 1337,
		TrackCount:           2,
		TotalDurationSeconds: 510,
		TotalEscalations:     1,
		PlaylistPath:         "/out/playlist.m3u",
		ManifestPath:         "/out/transitions.json",
		Steps: []StepSummary{
			{Position: 0, TrackID: 7, Artist: "Someone", Title: "Opener", TempoBPM: 124, Key: "8B"},
			{Position: 1, TrackID: 12, Title: "Peak", TempoBPM: 126.5, Key: "9B",
				Effect: "smart_crossfade", Escalations: 1},
		},
	}

	outputPath := filepath.Join(t.TempDir(), "reports", "set-report.md")
	if err := WriteMarkdownReport(report, outputPath); err != nil {
		t.Fatalf("WriteMarkdownReport failed: %v", err)
	}

	content, err := os.ReadFile(outputPath)
	if err != nil {
		t.Fatalf("Failed to read report: %v", err)
	}
	text := string(content)

	for _, want := range []string{
		"# Set Generation Report",
		"11111111-2222-3333-4444-555555555555",
		"| Status | completed |",
		"| Seed | 1337 |",
		"| Tracks | 2 |",
		"Someone - Opener",
		"smart_crossfade",
		"| 124.0 | 8B | - |", // effect-less rows render a plain ASCII dash
		"/out/transitions.json",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("report missing %q", want)
		}
	}

	// Degraded runs surface their tier
	report.Status = "degraded"
	report.Tier = 2
	if err := WriteMarkdownReport(report, outputPath); err != nil {
		t.Fatalf("WriteMarkdownReport failed: %v", err)
	}
	content, _ = os.ReadFile(outputPath)
	if !strings.Contains(string(content), "| Degradation Tier | 2 |") {
		t.Error("degraded report missing tier row")
	}
}
