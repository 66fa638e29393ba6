package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// SummaryReport represents a human-readable summary of one generation run
type SummaryReport struct {
	GeneratedAt time.Time
	Duration    time.Duration

	SetID  string
	Status string
	Tier   int
	Seed   int64
	Reused bool

	TrackCount           int
	TotalDurationSeconds float64
	TotalEscalations     int

	Steps []StepSummary

	// Metadata
	DatabasePath string
	PlaylistPath string
	ManifestPath string
	EventLogPath string
}

// StepSummary is one playlist position in the summary table
type StepSummary struct {
	Position    int
	TrackID     int64
	Title       string
	Artist      string
	TempoBPM    float64
	Key         string
	Effect      string
	Escalations int
}

// WriteMarkdownReport writes the summary report as Markdown
func WriteMarkdownReport(report *SummaryReport, outputPath string) error {
	dir := filepath.Dir(outputPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	var md strings.Builder

	md.WriteString("# Set Generation Report\n\n")
	md.WriteString(fmt.Sprintf("**Generated:** %s\n\n", report.GeneratedAt.Format("2006-01-02 15:04:05")))
	md.WriteString(fmt.Sprintf("**Set ID:** `%s`\n\n", report.SetID))

	if report.DatabasePath != "" {
		md.WriteString(fmt.Sprintf("**Database:** `%s`\n\n", report.DatabasePath))
	}
	if report.EventLogPath != "" {
		md.WriteString(fmt.Sprintf("**Event Log:** `%s`\n\n", report.EventLogPath))
	}

	md.WriteString("---\n\n")

	md.WriteString("## Overview\n\n")
	md.WriteString("| Metric | Value |\n")
	md.WriteString("|--------|-------|\n")
	md.WriteString(fmt.Sprintf("| Status | %s |\n", report.Status))
	if report.Tier > 0 {
		md.WriteString(fmt.Sprintf("| Degradation Tier | %d |\n", report.Tier))
	}
	if report.Reused {
		md.WriteString("| Reused Previous Plan | yes |\n")
	}
	md.WriteString(fmt.Sprintf("| Seed | %d |\n", report.Seed))
	md.WriteString(fmt.Sprintf("| Tracks | %d |\n", report.TrackCount))
	md.WriteString(fmt.Sprintf("| Set Length | %s |\n",
		(time.Duration(report.TotalDurationSeconds)*time.Second).Round(time.Second)))
	if report.TotalEscalations > 0 {
		md.WriteString(fmt.Sprintf("| Tolerance Escalations | %d |\n", report.TotalEscalations))
	}
	if report.Duration > 0 {
		md.WriteString(fmt.Sprintf("| Generation Time | %s |\n", report.Duration.Round(time.Millisecond)))
	}
	md.WriteString("\n")

	if report.PlaylistPath != "" || report.ManifestPath != "" {
		md.WriteString("## Artifacts\n\n")
		if report.PlaylistPath != "" {
			md.WriteString(fmt.Sprintf("- Playlist: `%s`\n", report.PlaylistPath))
		}
		if report.ManifestPath != "" {
			md.WriteString(fmt.Sprintf("- Transition manifest: `%s`\n", report.ManifestPath))
		}
		md.WriteString("\n")
	}

	if len(report.Steps) > 0 {
		md.WriteString("## Tracklist\n\n")
		md.WriteString("| # | Track | BPM | Key | Transition | Escalations |\n")
		md.WriteString("|---|-------|-----|-----|------------|-------------|\n")
		for _, step := range report.Steps {
			name := step.Title
			if step.Artist != "" {
				name = step.Artist + " - " + name
			}
			if name == "" || name == " - " {
				name = fmt.Sprintf("track %d", step.TrackID)
			}

			effect := step.Effect
			if effect == "" {
				effect = "-"
			}

			escalations := ""
			if step.Escalations > 0 {
				escalations = fmt.Sprintf("%d", step.Escalations)
			}

			md.WriteString(fmt.Sprintf("| %d | %s | %.1f | %s | %s | %s |\n",
				step.Position, name, step.TempoBPM, step.Key, effect, escalations))
		}
		md.WriteString("\n")
	}

	if err := os.WriteFile(outputPath, []byte(md.String()), 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	return nil
}
