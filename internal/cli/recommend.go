package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mindpath-app/mindpath/internal/app/engagement"
	"github.com/mindpath-app/mindpath/internal/infra/catalog"
)

func init() {
	recommendCmd.Flags().IntVar(&recommendIntensity, "intensity", 5, "Intensity from 1 to 10")
	rootCmd.AddCommand(recommendCmd)
}

var recommendIntensity int

var recommendCmd = &cobra.Command{
	Use:   "recommend MOOD",
	Short: "Suggest an exercise category for a mood without logging it",
	Args:  cobra.ExactArgs(1),
	RunE:  runRecommend,
}

// runRecommend needs no database; unknown moods get the default suggestion.
func runRecommend(cmd *cobra.Command, args []string) error {
	cat := engagement.RecommendKey(args[0], recommendIntensity)

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Suggested: %s\n", cat)
	for _, ex := range catalog.Default().ByCategory(cat) {
		fmt.Fprintf(w, "  %-20s %2d min  +%d XP\n", ex.ID, ex.DurationMinutes, ex.XPReward)
	}
	return nil
}
