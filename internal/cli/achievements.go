package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func init() {
	achievementsCmd.Flags().BoolVar(&achievementsReevaluate, "reevaluate", false, "Re-run unlock rules over stored progress first")
	rootCmd.AddCommand(achievementsCmd)
}

var achievementsReevaluate bool

var achievementsCmd = &cobra.Command{
	Use:   "achievements [USER]",
	Short: "List achievements, with unlock status when USER is given",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runAchievements,
}

func runAchievements(cmd *cobra.Command, args []string) error {
	d, err := openDaemon()
	if err != nil {
		return err
	}
	defer d.Close()

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)

	if len(args) == 0 {
		fmt.Fprintln(w, "ID\tTITLE\tCATEGORY\tDESCRIPTION")
		for _, a := range d.Engine.Achievements {
			fmt.Fprintf(w, "%s\t%s %s\t%s\t%s\n", a.ID, a.Icon, a.Title, a.Category, a.Description)
		}
		return w.Flush()
	}

	ctx := cmd.Context()
	if achievementsReevaluate {
		unlocked, err := d.Service.Reevaluate(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Re-evaluated: %d new unlock(s)\n", len(unlocked))
	}

	statuses, err := d.Service.Achievements(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(w, "ID\tTITLE\tUNLOCKED")
	for _, s := range statuses {
		when := "-"
		if s.Unlocked {
			when = s.UnlockedAt.Format("2006-01-02 15:04")
		}
		fmt.Fprintf(w, "%s\t%s %s\t%s\n", s.ID, s.Icon, s.Title, when)
	}
	return w.Flush()
}
