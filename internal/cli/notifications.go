package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func init() {
	notificationsCmd.Flags().BoolVar(&notificationsAck, "ack", false, "Mark listed notifications as shown")
	rootCmd.AddCommand(notificationsCmd)
}

var notificationsAck bool

var notificationsCmd = &cobra.Command{
	Use:   "notifications USER",
	Short: "List pending notifications",
	Args:  cobra.ExactArgs(1),
	RunE:  runNotifications,
}

func runNotifications(cmd *cobra.Command, args []string) error {
	userID := args[0]

	d, err := openDaemon()
	if err != nil {
		return err
	}
	defer d.Close()

	ctx := cmd.Context()
	pending, err := d.Service.Notifications().Pending(ctx, userID, 50)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No pending notifications.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTYPE\tTITLE\tCREATED")
	for _, n := range pending {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", n.ID, n.Type, n.Title, n.CreatedAt.Format("2006-01-02 15:04"))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if notificationsAck {
		for _, n := range pending {
			if err := d.Service.Notifications().MarkShown(ctx, userID, n.ID); err != nil {
				return err
			}
		}
	}
	return nil
}
