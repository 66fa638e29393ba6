package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/franz/autodj/internal/store"
	"github.com/franz/autodj/internal/util"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the last persisted set plan",
	Long: `Display the most recent valid (completed or degraded) plan record:
when it was generated, with which seed and tier, and where its playlist
and transition manifest live.`,
	RunE: runShow,
}

func init() {
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	util.SetVerbose(viper.GetBool("verbose"))
	util.SetQuiet(viper.GetBool("quiet"))

	db, err := store.Open(viper.GetString("db"))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	plan, err := db.LastValidSetPlan()
	if err != nil {
		return fmt.Errorf("failed to load plan record: %w", err)
	}
	if plan == nil {
		util.WarnLog("No plans yet. Run 'setgen generate' first.")
		return nil
	}

	util.InfoLog("Set %s", plan.SetID)
	util.InfoLog("  Generated: %s (%s)",
		plan.CreatedAt.Format("2006-01-02 15:04:05"), humanize.Time(plan.CreatedAt))
	util.InfoLog("  Status:    %s", plan.Status)
	if plan.Tier > 0 {
		util.InfoLog("  Tier:      %d", plan.Tier)
	}
	util.InfoLog("  Seed:      %d", plan.Seed)
	util.InfoLog("  Tracks:    %d", plan.TrackCount)
	util.InfoLog("  Length:    %s",
		(time.Duration(plan.TotalDurationSeconds) * time.Second).Round(time.Second))
	util.InfoLog("  Playlist:  %s", plan.PlaylistPath)
	util.InfoLog("  Manifest:  %s", plan.ManifestPath)

	return nil
}
