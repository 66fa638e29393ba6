package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/franz/autodj/internal/config"
	"github.com/franz/autodj/internal/library"
	"github.com/franz/autodj/internal/output"
	"github.com/franz/autodj/internal/planner"
	"github.com/franz/autodj/internal/report"
	"github.com/franz/autodj/internal/store"
	"github.com/franz/autodj/internal/util"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a set plan from the analyzed library",
	Long: `Generate an ordered set and its sample-accurate transition plan.

The run acquires an exclusive lock on the database, loads an immutable
library snapshot, and greedily selects tracks under tempo, harmonic,
energy, duration and repetition constraints. Outputs are written
atomically: an M3U playlist and a JSON transition manifest.

Exit codes: 0 completed, 3 degraded (reduced target or reused plan),
1 failed.`,
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().Int64("seed", 0, "run seed (0 picks one and logs it)")
	generateCmd.Flags().Int("duration", 0, "target set duration in minutes (overrides config)")
	generateCmd.Flags().Int64("seed-track", 0, "force the opening track by id (overrides config)")
	generateCmd.Flags().StringP("output", "o", "", "output directory (overrides config)")
	generateCmd.Flags().Bool("report", false, "also write a markdown summary next to the artifacts")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	util.SetVerbose(viper.GetBool("verbose"))
	util.SetQuiet(viper.GetBool("quiet"))

	// Flag overrides only apply when actually set, so config file and
	// env values survive
	if cmd.Flags().Changed("duration") {
		v, _ := cmd.Flags().GetInt("duration")
		viper.Set("mix.target_duration_minutes", v)
	}
	if cmd.Flags().Changed("seed-track") {
		v, _ := cmd.Flags().GetInt64("seed-track")
		viper.Set("mix.seed_track", v)
	}
	if cmd.Flags().Changed("output") {
		v, _ := cmd.Flags().GetString("output")
		viper.Set("run.output_dir", v)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	seed, _ := cmd.Flags().GetInt64("seed")
	if seed == 0 {
		seed = time.Now().UnixNano()
		util.InfoLog("No seed given, using %d (pass --seed %d to reproduce)", seed, seed)
	}
	writeReport, _ := cmd.Flags().GetBool("report")

	status, err := generate(cfg, seed, writeReport)
	if err != nil {
		util.ErrorLog("Generation failed: %v", err)
		os.Exit(1)
	}
	if status == store.PlanStatusDegraded {
		os.Exit(3)
	}
	return nil
}

// generate runs one full generation and returns the terminal status.
// Kept separate from runGenerate so deferred cleanup (lock release,
// store and event log close) runs before the process exits.
func generate(cfg *config.Config, seed int64, writeReport bool) (string, error) {
	dbPath := viper.GetString("db")

	// Coarse run-scoped lock: no analyzer write or concurrent run may
	// mutate the store while the snapshot is live
	release, err := util.AcquireRunLock(dbPath)
	if err != nil {
		return "", err
	}
	defer release()

	db, err := store.Open(dbPath)
	if err != nil {
		return "", fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	logLevel := report.LevelInfo
	if viper.GetBool("quiet") {
		logLevel = report.LevelWarning
	} else if viper.GetBool("verbose") {
		logLevel = report.LevelDebug
	}
	events, err := report.NewEventLogger(cfg.Run.OutputDir, logLevel)
	if err != nil {
		util.WarnLog("Failed to create event logger: %v", err)
		events = report.NullLogger()
	}
	defer events.Close()

	startTime := time.Now()
	now := startTime

	// The watchdog budget wraps the whole planning phase; cancellation
	// is cooperative at step granularity
	ctx, cancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.Run.TimeBudgetSeconds)*time.Second)
	defer cancel()

	snap, err := library.Load(ctx, db)
	if err != nil {
		return "", err
	}

	horizon := time.Duration(cfg.Constraints.MaxRepeatDecayHours) * time.Hour
	recent, err := db.RecentlyUsed(horizon, now)
	if err != nil {
		return "", fmt.Errorf("failed to load play history: %w", err)
	}

	p := planner.New(cfg, snap, db, events, seed, now)
	events.LogLoad(p.SetID(), snap.Len(), snap.Skipped(), time.Since(startTime))

	outcome := p.Run(ctx, recent)
	cancel()

	switch outcome.Status {
	case store.PlanStatusFailed:
		events.LogError(report.EventError, p.SetID(), outcome.Err)
		db.SaveSetPlan(&store.SetPlanRecord{
			SetID:     p.SetID(),
			Status:    store.PlanStatusFailed,
			Seed:      seed,
			CreatedAt: now,
		})
		return "", outcome.Err

	case store.PlanStatusDegraded:
		if outcome.Reused != nil {
			util.WarnLog("Reusing plan %s from %s", outcome.Reused.SetID,
				outcome.Reused.CreatedAt.Format("2006-01-02 15:04"))
			util.SuccessLog("Playlist: %s", outcome.Reused.PlaylistPath)
			util.SuccessLog("Manifest: %s", outcome.Reused.ManifestPath)
			return store.PlanStatusDegraded, nil
		}
	}

	plan := outcome.Plan

	writeStart := time.Now()
	paths, err := output.New(cfg.Run.OutputDir).WritePlan(plan, snap)
	events.LogWrite(plan.SetID, cfg.Run.OutputDir, time.Since(writeStart), err)
	if err != nil {
		return "", err
	}

	trackIDs := make([]int64, len(plan.Steps))
	for i, step := range plan.Steps {
		trackIDs[i] = step.TrackID
	}
	if err := db.RecordSetUsage(plan.SetID, trackIDs, now); err != nil {
		util.WarnLog("Failed to record play history: %v", err)
	}

	if err := db.SaveSetPlan(&store.SetPlanRecord{
		SetID:                plan.SetID,
		Status:               outcome.Status,
		Tier:                 outcome.Tier,
		Seed:                 seed,
		TrackCount:           plan.TrackCount,
		TotalDurationSeconds: plan.TotalDurationSeconds,
		PlaylistPath:         paths.Playlist,
		ManifestPath:         paths.Manifest,
		CreatedAt:            now,
	}); err != nil {
		util.WarnLog("Failed to persist plan record: %v", err)
	}

	if writeReport {
		reportPath := fmt.Sprintf("%s/report-%s.md", cfg.Run.OutputDir, plan.SetID)
		if err := report.WriteMarkdownReport(summarize(plan, outcome, snap, paths,
			dbPath, events.Path(), now, time.Since(startTime)), reportPath); err != nil {
			util.WarnLog("Failed to write summary report: %v", err)
		} else {
			util.InfoLog("Summary: %s", reportPath)
		}
	}

	elapsed := time.Since(startTime).Round(time.Millisecond)
	if outcome.Status == store.PlanStatusDegraded {
		util.WarnLog("Degraded to tier %d (%d tracks, %s)", outcome.Tier,
			plan.TrackCount, setLength(plan))
	} else {
		util.SuccessLog("Set complete: %d tracks, %s in %v", plan.TrackCount,
			setLength(plan), elapsed)
	}
	util.SuccessLog("Playlist: %s", paths.Playlist)
	util.SuccessLog("Manifest: %s", paths.Manifest)

	return outcome.Status, nil
}

func setLength(plan *planner.Plan) time.Duration {
	return (time.Duration(plan.TotalDurationSeconds) * time.Second).Round(time.Second)
}

func summarize(plan *planner.Plan, outcome planner.Outcome, snap *library.Snapshot,
	paths *output.Paths, dbPath, eventLogPath string, now time.Time, elapsed time.Duration) *report.SummaryReport {

	summary := &report.SummaryReport{
		GeneratedAt:          now,
		Duration:             elapsed,
		SetID:                plan.SetID,
		Status:               outcome.Status,
		Tier:                 outcome.Tier,
		Seed:                 plan.Seed,
		TrackCount:           plan.TrackCount,
		TotalDurationSeconds: plan.TotalDurationSeconds,
		TotalEscalations:     plan.TotalEscalations,
		DatabasePath:         dbPath,
		PlaylistPath:         paths.Playlist,
		ManifestPath:         paths.Manifest,
		EventLogPath:         eventLogPath,
	}

	for _, step := range plan.Steps {
		row := report.StepSummary{
			Position:    step.Position,
			TrackID:     step.TrackID,
			TempoBPM:    step.TargetBPM,
			Effect:      step.Effect,
			Escalations: step.Escalations,
		}
		if t := snap.Get(step.TrackID); t != nil {
			row.Title = t.Title
			row.Artist = t.Artist
			row.Key = t.Key
		}
		summary.Steps = append(summary.Steps, row)
	}

	return summary
}
