package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mindpath-app/mindpath/internal/domain"
)

func init() {
	completeCmd.Flags().StringVar(&completeAt, "at", "", "Completion time (RFC 3339 or YYYY-MM-DD, default now)")
	rootCmd.AddCommand(completeCmd)
}

var completeAt string

var completeCmd = &cobra.Command{
	Use:   "complete USER EXERCISE",
	Short: "Record a finished exercise",
	Args:  cobra.ExactArgs(2),
	RunE:  runComplete,
}

func runComplete(cmd *cobra.Command, args []string) error {
	at, err := parseAt(completeAt)
	if err != nil {
		return err
	}

	d, err := openDaemon()
	if err != nil {
		return err
	}
	defer d.Close()

	out, err := d.Service.CompleteExercise(cmd.Context(), domain.ExerciseCompletionEvent{
		UserID:     args[0],
		ExerciseID: args[1],
		OccurredAt: at,
	})
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "%s completed on %s: +%d XP (total %d)\n",
		out.Exercise.Title, out.Day, out.XPAwarded, out.State.TotalXP)
	if out.LeveledUp {
		fmt.Fprintf(w, "Level up! %d → %d\n", out.PreviousLevel, out.Level)
	}
	fmt.Fprintf(w, "Streak: %d day(s)\n", out.Snapshot.CurrentStreak)
	for _, a := range out.NewlyUnlocked {
		fmt.Fprintf(w, "%s Achievement unlocked: %s\n", a.Icon, a.Title)
	}
	return nil
}
