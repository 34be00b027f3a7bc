package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"github.com/yourname/daybar/internal"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon, subscription and trial status",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cli.Alive() {
			cmd.Println("daemon: not running")
			return nil
		}
		cmd.Println("daemon: running")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		us, err := cli.UserStatus(ctx)
		if err != nil {
			return err
		}
		if us.IsPro {
			cmd.Println("plan: pro")
		} else if us.IsTrialActive {
			cmd.Println("plan: trial")
		} else {
			cmd.Println("plan: free")
		}
		if us.TrialStartTime != nil && us.TrialEndTime != nil {
			cmd.Printf("trial window: %s to %s\n",
				us.TrialStartTime.Format(time.RFC3339),
				us.TrialEndTime.Format(time.RFC3339))
		}

		enabled, err := cli.CheckFeature(ctx, internal.FeatureCountdown)
		if err != nil {
			return err
		}
		cmd.Printf("countdown: enabled=%v\n", enabled)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
