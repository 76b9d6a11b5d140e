package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mindpath-app/mindpath/internal/domain"
)

func init() {
	moodCmd.Flags().IntVar(&moodIntensity, "intensity", 5, "Intensity from 1 to 10")
	moodCmd.Flags().StringVar(&moodNote, "note", "", "Free-text note")
	moodCmd.Flags().StringVar(&moodAt, "at", "", "Check-in time (RFC 3339 or YYYY-MM-DD, default now)")
	moodsCmd.Flags().IntVar(&moodsLimit, "limit", 0, "Maximum entries to show")
	rootCmd.AddCommand(moodCmd)
	rootCmd.AddCommand(moodsCmd)
}

var (
	moodIntensity int
	moodNote      string
	moodAt        string
	moodsLimit    int
)

var moodCmd = &cobra.Command{
	Use:   "mood USER MOOD",
	Short: "Log a mood check-in and get an exercise suggestion",
	Long: `Log a mood check-in. MOOD is one of:
  great, good, okay, low, sad, anxious, stressed, angry`,
	Args: cobra.ExactArgs(2),
	RunE: runMood,
}

var moodsCmd = &cobra.Command{
	Use:   "moods USER",
	Short: "Show mood history, newest first",
	Args:  cobra.ExactArgs(1),
	RunE:  runMoods,
}

func runMood(cmd *cobra.Command, args []string) error {
	mood, err := domain.ParseMood(args[1])
	if err != nil {
		return err
	}
	at, err := parseAt(moodAt)
	if err != nil {
		return err
	}

	d, err := openDaemon()
	if err != nil {
		return err
	}
	defer d.Close()

	res, err := d.Service.LogMood(cmd.Context(), args[0], mood, moodIntensity, moodNote, at)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	info := res.Entry.Mood.Info()
	fmt.Fprintf(w, "Logged %s %s (intensity %d)\n", info.Emoji, info.Label, res.Entry.Intensity)
	fmt.Fprintf(w, "Suggested: %s\n", res.Recommendation)
	for _, ex := range d.Catalog.ByCategory(res.Recommendation) {
		fmt.Fprintf(w, "  %-20s %2d min  +%d XP\n", ex.ID, ex.DurationMinutes, ex.XPReward)
	}
	return nil
}

func runMoods(cmd *cobra.Command, args []string) error {
	d, err := openDaemon()
	if err != nil {
		return err
	}
	defer d.Close()

	entries, err := d.Service.Moods(cmd.Context(), args[0], moodsLimit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No mood check-ins yet. Run 'mindpath mood <user> <mood>' to log one.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "WHEN\tMOOD\tINTENSITY\tNOTE")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n",
			e.OccurredAt.Format("2006-01-02 15:04"),
			e.Mood,
			e.Intensity,
			e.Note,
		)
	}
	return w.Flush()
}
