package cli

import (
	"context"
	"errors"
	"time"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"
)

var (
	upgradeEmail  string
	upgradeNoOpen bool
)

var upgradeCmd = &cobra.Command{
	Use:   "upgrade",
	Short: "Open a checkout session for the pro plan",
	RunE: func(cmd *cobra.Command, args []string) error {
		if upgradeEmail == "" {
			return errors.New("--email is required")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		url, err := cli.CreateCheckout(ctx, upgradeEmail)
		if err != nil {
			return err
		}
		cmd.Printf("checkout: %s\n", url)
		if upgradeNoOpen {
			return nil
		}
		if err := browser.OpenURL(url); err != nil {
			cmd.Printf("could not open a browser, visit the URL above (%v)\n", err)
		}
		return nil
	},
}

func init() {
	upgradeCmd.Flags().StringVar(&upgradeEmail, "email", "", "email for the checkout session")
	upgradeCmd.Flags().BoolVar(&upgradeNoOpen, "no-open", false, "print the URL without opening a browser")
	rootCmd.AddCommand(upgradeCmd)
}
