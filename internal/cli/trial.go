package cli

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	trialEmail string
	trialUser  string
)

var trialCmd = &cobra.Command{
	Use:   "trial",
	Short: "Start the one-time full-feature trial",
	RunE: func(cmd *cobra.Command, args []string) error {
		if trialEmail == "" {
			return errors.New("--email is required")
		}
		userID := trialUser
		if userID == "" {
			userID = uuid.NewString()
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		ok, message, err := cli.StartTrial(ctx, userID, trialEmail)
		if err != nil {
			return err
		}
		if !ok {
			cmd.Printf("trial not started: %s\n", message)
			return nil
		}
		cmd.Println("trial started, countdown unlocked")
		return nil
	},
}

func init() {
	trialCmd.Flags().StringVar(&trialEmail, "email", "", "email to register the trial under")
	trialCmd.Flags().StringVar(&trialUser, "user", "", "user id (generated when omitted)")
	rootCmd.AddCommand(trialCmd)
}
