package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	userAddCmd.Flags().StringVar(&userTZ, "tz", "", "IANA time zone (default from config)")
	userCmd.AddCommand(userAddCmd)
	rootCmd.AddCommand(userCmd)
}

var userTZ string

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage users",
}

var userAddCmd = &cobra.Command{
	Use:   "add USER",
	Short: "Register a user, or update an existing user's time zone",
	Args:  cobra.ExactArgs(1),
	RunE:  runUserAdd,
}

func runUserAdd(cmd *cobra.Command, args []string) error {
	d, err := openDaemon()
	if err != nil {
		return err
	}
	defer d.Close()

	u, err := d.Service.RegisterUser(cmd.Context(), args[0], userTZ)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "User %s registered (time zone %s)\n", u.ID, u.TimeZone)
	return nil
}
