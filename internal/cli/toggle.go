package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"
)

var (
	flagHide bool
	flagShow bool
)

var toggleCmd = &cobra.Command{
	Use:   "toggle",
	Short: "Toggle the overlay on every attached tab",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		// Registering briefly is the cheapest way to read the current state.
		hidden, err := cli.Attach(ctx)
		if err != nil {
			return err
		}
		defer cli.Detach(ctx)

		target := !hidden
		switch {
		case flagHide:
			target = true
		case flagShow:
			target = false
		}
		if err := cli.NotifyVisibility(ctx, target); err != nil {
			return err
		}
		if target {
			cmd.Println("overlay hidden")
		} else {
			cmd.Println("overlay shown")
		}
		return nil
	},
}

func init() {
	toggleCmd.Flags().BoolVar(&flagHide, "hide", false, "hide instead of toggling")
	toggleCmd.Flags().BoolVar(&flagShow, "show", false, "show instead of toggling")
	toggleCmd.MarkFlagsMutuallyExclusive("hide", "show")
	rootCmd.AddCommand(toggleCmd)
}
