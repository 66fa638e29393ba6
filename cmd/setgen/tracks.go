package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dhowden/tag"
	"github.com/dustin/go-humanize"
	"github.com/franz/autodj/internal/store"
	"github.com/franz/autodj/internal/util"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var tracksCmd = &cobra.Command{
	Use:   "tracks",
	Short: "Manage the track library",
}

var tracksAddCmd = &cobra.Command{
	Use:   "add <files...>",
	Short: "Register audio files in the library",
	Long: `Register audio files by reading their container tags.

Only title, artist and path are captured here; tempo, key, energy and
cue points come from the external analyzer. Rows stay invalid (and
invisible to the generator) until the analyzer fills them in.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runTracksAdd,
}

var tracksListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show library contents and stats",
	RunE:  runTracksList,
}

func init() {
	rootCmd.AddCommand(tracksCmd)
	tracksCmd.AddCommand(tracksAddCmd)
	tracksCmd.AddCommand(tracksListCmd)

	tracksListCmd.Flags().Bool("all", false, "include rows awaiting analysis")
}

func runTracksAdd(cmd *cobra.Command, args []string) error {
	util.SetVerbose(viper.GetBool("verbose"))
	util.SetQuiet(viper.GetBool("quiet"))

	db, err := store.Open(viper.GetString("db"))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	var bar *progressbar.ProgressBar
	if util.IsTerminal(os.Stderr.Fd()) && !util.IsQuiet() {
		bar = progressbar.NewOptions(len(args),
			progressbar.OptionSetDescription("Registering"),
			progressbar.OptionSetWidth(progressWidth()),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("files"),
			progressbar.OptionThrottle(200*time.Millisecond),
			progressbar.OptionClearOnFinish(),
		)
	}

	added := 0
	failed := 0
	for _, arg := range args {
		if bar != nil {
			bar.Add(1)
		}

		path, err := filepath.Abs(arg)
		if err != nil {
			util.WarnLog("Skipping %s: %v", arg, err)
			failed++
			continue
		}

		track := &store.Track{
			FilePath:    path,
			CueInFrame:  -1,
			CueOutFrame: -1,
		}

		if f, err := os.Open(path); err != nil {
			util.WarnLog("Skipping %s: %v", arg, err)
			failed++
			continue
		} else {
			if m, err := tag.ReadFrom(f); err == nil {
				track.Title = m.Title()
				track.Artist = m.Artist()
			} else {
				util.DebugLog("No readable tags in %s: %v", arg, err)
			}
			f.Close()
		}

		if _, err := db.InsertTrack(track); err != nil {
			util.WarnLog("Failed to register %s: %v", arg, err)
			failed++
			continue
		}
		added++
	}

	if bar != nil {
		bar.Finish()
	}

	util.SuccessLog("Registered %d file(s), %d failed", added, failed)
	util.InfoLog("Run the analyzer to make them selectable")
	return nil
}

// progressWidth keeps the bar inside narrow terminals
func progressWidth() int {
	if w := util.GetTerminalWidth(); w < 100 {
		return w / 2
	}
	return 40
}

func runTracksList(cmd *cobra.Command, args []string) error {
	util.SetVerbose(viper.GetBool("verbose"))
	util.SetQuiet(viper.GetBool("quiet"))
	showAll, _ := cmd.Flags().GetBool("all")

	db, err := store.Open(viper.GetString("db"))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	total, valid, err := db.CountTracks()
	if err != nil {
		return fmt.Errorf("failed to count tracks: %w", err)
	}

	util.InfoLog("Library: %d tracks (%d analyzed, %d pending)", total, valid, total-valid)

	if valid > 0 {
		minBPM, maxBPM, err := db.TempoRange()
		if err == nil {
			util.InfoLog("Tempo range: %.1f - %.1f BPM", minBPM, maxBPM)
		}
	}

	tracks, err := db.GetValidTracks()
	if err != nil {
		return fmt.Errorf("failed to load tracks: %w", err)
	}

	if len(tracks) > 0 {
		util.InfoLog("")
		util.InfoLog("%6s  %-40s %7s %4s %6s %9s  %s",
			"ID", "TRACK", "BPM", "KEY", "ENERGY", "LENGTH", "LAST PLAYED")
	}

	for _, t := range tracks {
		name := t.Title
		if t.Artist != "" {
			name = t.Artist + " - " + name
		}
		if name == "" {
			name = filepath.Base(t.FilePath)
		}
		if len(name) > 40 {
			name = name[:37] + "..."
		}

		lastPlayed := "never"
		if t.LastPlayedAt != nil {
			lastPlayed = humanize.Time(*t.LastPlayedAt)
		}

		length := (time.Duration(t.DurationSeconds) * time.Second).Round(time.Second)
		util.InfoLog("%6d  %-40s %7.1f %4s %6.2f %9s  %s",
			t.ID, name, t.TempoBPM, t.Key, t.Energy, length, lastPlayed)
	}

	if showAll && total > valid {
		util.InfoLog("")
		util.InfoLog("%d row(s) awaiting analysis are hidden from selection", total-valid)
	}

	return nil
}
