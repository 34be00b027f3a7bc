package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"
)

var licenseCmd = &cobra.Command{
	Use:   "license <key>",
	Short: "Activate a license key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		ok, message, err := cli.ActivateLicense(ctx, args[0])
		if err != nil {
			return err
		}
		if !ok {
			cmd.Printf("license rejected: %s\n", message)
			return nil
		}
		cmd.Println("license activated, pro features unlocked")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(licenseCmd)
}
