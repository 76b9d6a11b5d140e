package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mindpath-app/mindpath/internal/domain"
)

func init() {
	exercisesCmd.Flags().StringVar(&exercisesCategory, "category", "", "Only list one category")
	rootCmd.AddCommand(exercisesCmd)
}

var exercisesCategory string

var exercisesCmd = &cobra.Command{
	Use:     "exercises",
	Aliases: []string{"ls"},
	Short:   "List the exercise catalog",
	Args:    cobra.NoArgs,
	RunE:    runExercises,
}

func runExercises(cmd *cobra.Command, args []string) error {
	d, err := openDaemon()
	if err != nil {
		return err
	}
	defer d.Close()

	defs := d.Catalog.List()
	if exercisesCategory != "" {
		cat := domain.ExerciseCategory(exercisesCategory)
		if !cat.Valid() {
			return fmt.Errorf("unknown category %q (want one of %v)", exercisesCategory, domain.AllCategories())
		}
		defs = d.Catalog.ByCategory(cat)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tCATEGORY\tMINUTES\tXP")
	for _, ex := range defs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\n",
			ex.ID,
			ex.Title,
			ex.Category,
			ex.DurationMinutes,
			ex.XPReward,
		)
	}
	return w.Flush()
}
