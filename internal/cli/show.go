package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func init() {
	progressCmd.Flags().IntVar(&progressRecent, "recent", 5, "Recent completions to list")
	rootCmd.AddCommand(progressCmd)
}

var progressRecent int

var progressCmd = &cobra.Command{
	Use:     "progress USER",
	Aliases: []string{"show"},
	Short:   "Show level, XP, streaks and this week's activity",
	Args:    cobra.ExactArgs(1),
	RunE:    runProgress,
}

func runProgress(cmd *cobra.Command, args []string) error {
	userID := args[0]

	d, err := openDaemon()
	if err != nil {
		return err
	}
	defer d.Close()

	ctx := cmd.Context()
	snap, err := d.Service.Progress(ctx, userID)
	if err != nil {
		return err
	}
	week, err := d.Service.Week(ctx, userID)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "User:         %s (as of %s)\n", snap.UserID, snap.AsOf)
	fmt.Fprintf(out, "Level:        %d\n", snap.Level)
	fmt.Fprintf(out, "XP:           %d\n", snap.TotalXP)
	fmt.Fprintf(out, "              %s │ %d XP to level %d\n",
		levelBar(snap.LevelProgressPct), snap.XPToNextLevel, snap.Level+1)
	fmt.Fprintf(out, "Streak:       %d day(s) (longest %d)\n", snap.CurrentStreak, snap.LongestStreak)
	fmt.Fprintf(out, "Active days:  %d\n", snap.ActiveDays)
	fmt.Fprintf(out, "Completions:  %d\n", snap.TotalCompletions)
	fmt.Fprintf(out, "Achievements: %d/%d\n", snap.UnlockedCount, len(d.Engine.Achievements))
	fmt.Fprintln(out)
	writeWeek(out, week)

	if progressRecent <= 0 {
		return nil
	}
	recent, err := d.Service.Completions(ctx, userID, progressRecent)
	if err != nil {
		return err
	}
	if len(recent) == 0 {
		return nil
	}

	fmt.Fprintln(out)
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DAY\tEXERCISE\tCATEGORY\tXP")
	for _, r := range recent {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", r.Day, r.ExerciseID, r.Category, r.XPAwarded)
	}
	return w.Flush()
}
